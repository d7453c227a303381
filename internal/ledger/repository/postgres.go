package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/fekuna/pantry-service/internal/ledger"
	"github.com/fekuna/pantry-service/internal/ledger/dto"
	"github.com/fekuna/pantry-service/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// signedSum folds in/out entries into the current stock.
const signedSum = `COALESCE(SUM(CASE WHEN direction = 'in' THEN quantity_base ELSE -quantity_base END), 0)::bigint`

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) WithItemLock(ctx context.Context, itemID string, fn func(tx ledger.Tx, item *model.Item) error) (err error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin ledger tx")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var item model.Item
	// the row lock serializes every read-decide-write on this item's stock
	err = tx.GetContext(ctx, &item, `SELECT * FROM items WHERE id = $1 AND is_active FOR UPDATE`, itemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errors.Wrapf(model.ErrItemNotFound, "item %s", itemID)
		}
		return errors.Wrap(err, "lock item")
	}

	if err = fn(&pgTx{tx: tx}, &item); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit ledger tx")
	}
	return nil
}

type pgTx struct {
	tx *sqlx.Tx
}

func (t *pgTx) CurrentStock(ctx context.Context, itemID string) (int64, error) {
	return currentStock(ctx, t.tx, itemID)
}

func (t *pgTx) AppendEntry(ctx context.Context, e *model.StockEntry) error {
	query := `
        INSERT INTO stock_entries (
            id, item_id, user_id, quantity_base, unit_type, base_unit,
            operation_type, direction, reason, cost_minor, created_at
        )
        VALUES (
            :id, :item_id, :user_id, :quantity_base, :unit_type, :base_unit,
            :operation_type, :direction, :reason, :cost_minor, :created_at
        )
    `
	if _, err := t.tx.NamedExecContext(ctx, query, e); err != nil {
		return errors.Wrap(err, "insert stock entry")
	}
	return nil
}

func (r *PGRepository) CurrentStock(ctx context.Context, itemID string) (int64, error) {
	return currentStock(ctx, r.DB, itemID)
}

func currentStock(ctx context.Context, q sqlx.QueryerContext, itemID string) (int64, error) {
	var stock int64
	query := `SELECT ` + signedSum + ` FROM stock_entries WHERE item_id = $1`
	if err := sqlx.GetContext(ctx, q, &stock, query, itemID); err != nil {
		return 0, errors.Wrap(err, "sum stock entries")
	}
	return stock, nil
}

func (r *PGRepository) ListEntries(ctx context.Context, f *dto.HistoryFilters) ([]model.StockEntry, int, error) {
	entries := []model.StockEntry{}
	var count int

	conditions := []string{"item_id = :item_id"}
	args := map[string]interface{}{"item_id": f.ItemID}

	if f.OperationType != "" {
		conditions = append(conditions, "operation_type = :operation_type")
		args["operation_type"] = f.OperationType
	}
	if f.From != nil {
		conditions = append(conditions, "created_at >= :from")
		args["from"] = *f.From
	}
	if f.To != nil {
		conditions = append(conditions, "created_at <= :to")
		args["to"] = *f.To
	}

	whereClause := " WHERE " + strings.Join(conditions, " AND ")

	countStmt, err := r.DB.PrepareNamedContext(ctx, "SELECT count(*) FROM stock_entries"+whereClause)
	if err != nil {
		return nil, 0, errors.Wrap(err, "prepare count stock entries")
	}
	defer countStmt.Close()
	if err := countStmt.GetContext(ctx, &count, args); err != nil {
		return nil, 0, errors.Wrap(err, "count stock entries")
	}

	query := fmt.Sprintf("SELECT * FROM stock_entries%s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d",
		whereClause, f.Limit, f.Offset)
	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, errors.Wrap(err, "prepare list stock entries")
	}
	defer nstmt.Close()

	if err := nstmt.SelectContext(ctx, &entries, args); err != nil {
		return nil, 0, errors.Wrap(err, "list stock entries")
	}
	return entries, count, nil
}

func (r *PGRepository) ListItemStock(ctx context.Context, householdID string) ([]model.ItemStock, error) {
	items := []model.ItemStock{}
	query := `
        SELECT i.*, COALESCE(s.current_stock, 0) AS current_stock
        FROM items i
        LEFT JOIN (
            SELECT item_id, ` + signedSum + ` AS current_stock
            FROM stock_entries
            GROUP BY item_id
        ) s ON s.item_id = i.id
        WHERE i.household_id = $1 AND i.is_active
        ORDER BY i.name, i.id
    `
	if err := r.DB.SelectContext(ctx, &items, query, householdID); err != nil {
		return nil, errors.Wrap(err, "list item stock")
	}
	return items, nil
}
