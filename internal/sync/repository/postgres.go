package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/fekuna/pantry-service/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, tx *model.SyncTransaction) error {
	query := `
        INSERT INTO sync_transactions (
            id, user_id, client_id, status, start_time, end_time,
            operations_processed, server_changes_count, conflicts_resolved,
            error_message, last_sync_timestamp
        )
        VALUES (
            :id, :user_id, :client_id, :status, :start_time, :end_time,
            :operations_processed, :server_changes_count, :conflicts_resolved,
            :error_message, :last_sync_timestamp
        )
    `
	if _, err := r.DB.NamedExecContext(ctx, query, tx); err != nil {
		return errors.Wrap(err, "insert sync transaction")
	}
	return nil
}

func (r *PGRepository) Complete(ctx context.Context, id string, counts model.SyncCounts, endTime time.Time) error {
	query := `
        UPDATE sync_transactions
        SET status = $2, end_time = $3,
            operations_processed = $4, server_changes_count = $5, conflicts_resolved = $6
        WHERE id = $1 AND status = $7
    `
	res, err := r.DB.ExecContext(ctx, query, id, model.SyncCompleted, endTime,
		counts.OperationsProcessed, counts.ServerChangesCount, counts.ConflictsResolved, model.SyncInProgress)
	if err != nil {
		return errors.Wrap(err, "complete sync transaction")
	}
	return r.checkTransition(ctx, res, id)
}

func (r *PGRepository) Fail(ctx context.Context, id string, message string, endTime time.Time) error {
	query := `
        UPDATE sync_transactions
        SET status = $2, end_time = $3, error_message = $4
        WHERE id = $1 AND status = $5
    `
	res, err := r.DB.ExecContext(ctx, query, id, model.SyncFailed, endTime, message, model.SyncInProgress)
	if err != nil {
		return errors.Wrap(err, "fail sync transaction")
	}
	return r.checkTransition(ctx, res, id)
}

// checkTransition distinguishes a missing record from one that already reached a terminal state.
func (r *PGRepository) checkTransition(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "sync transaction rows affected")
	}
	if n > 0 {
		return nil
	}
	var exists bool
	if err := r.DB.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM sync_transactions WHERE id = $1)`, id); err != nil {
		return errors.Wrap(err, "lookup sync transaction")
	}
	if !exists {
		return errors.Wrapf(model.ErrSyncNotFound, "sync %s", id)
	}
	return errors.Wrapf(model.ErrSyncFinalized, "sync %s", id)
}

func (r *PGRepository) FindByID(ctx context.Context, id, userID string) (*model.SyncTransaction, error) {
	var tx model.SyncTransaction
	query := `SELECT * FROM sync_transactions WHERE id = $1 AND user_id = $2 LIMIT 1`
	err := r.DB.GetContext(ctx, &tx, query, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "select sync transaction")
	}
	return &tx, nil
}

func (r *PGRepository) ListPending(ctx context.Context, userID, clientID string) ([]model.SyncTransaction, error) {
	txs := []model.SyncTransaction{}
	query := `
        SELECT * FROM sync_transactions
        WHERE user_id = $1 AND client_id = $2 AND status = $3
        ORDER BY start_time ASC
    `
	if err := r.DB.SelectContext(ctx, &txs, query, userID, clientID, model.SyncInProgress); err != nil {
		return nil, errors.Wrap(err, "list pending sync transactions")
	}
	return txs, nil
}

func (r *PGRepository) ChangesSince(ctx context.Context, userID string, since *time.Time, until time.Time) ([]model.ServerChange, error) {
	from := time.Unix(0, 0).UTC()
	if since != nil {
		from = *since
	}

	var items []model.Item
	itemQuery := `
        SELECT * FROM items
        WHERE user_id = $1 AND updated_at > $2 AND updated_at <= $3
        ORDER BY updated_at ASC, id ASC
    `
	if err := r.DB.SelectContext(ctx, &items, itemQuery, userID, from, until); err != nil {
		return nil, errors.Wrap(err, "select changed items")
	}

	var entries []model.StockEntry
	entryQuery := `
        SELECT se.* FROM stock_entries se
        JOIN items i ON i.id = se.item_id
        WHERE i.user_id = $1 AND se.created_at > $2 AND se.created_at <= $3
        ORDER BY se.created_at ASC, se.id ASC
    `
	if err := r.DB.SelectContext(ctx, &entries, entryQuery, userID, from, until); err != nil {
		return nil, errors.Wrap(err, "select new stock entries")
	}

	changes := make([]model.ServerChange, 0, len(items)+len(entries))
	for i := range items {
		changes = append(changes, model.ItemChange(&items[i]))
	}
	for i := range entries {
		changes = append(changes, model.StockEntryChange(&entries[i]))
	}
	model.SortChanges(changes)
	return changes, nil
}
