package repository

import (
	"context"
	"database/sql"

	"github.com/fekuna/pantry-service/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const uniqueViolation = "23505"

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, item *model.Item) error {
	query := `
        INSERT INTO items (
            id, household_id, user_id, name, category, preferred_unit,
            minimum_quantity, minimum_unit, version, is_active, deleted_at, created_at, updated_at
        )
        VALUES (
            :id, :household_id, :user_id, :name, :category, :preferred_unit,
            :minimum_quantity, :minimum_unit, :version, :is_active, :deleted_at, :created_at, :updated_at
        )
    `
	_, err := r.DB.NamedExecContext(ctx, query, item)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return errors.Wrapf(model.ErrItemExists, "item %s", item.ID)
		}
		return errors.Wrap(err, "insert item")
	}
	return nil
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.Item, error) {
	var item model.Item
	query := `SELECT * FROM items WHERE id = $1 LIMIT 1`
	err := r.DB.GetContext(ctx, &item, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "select item")
	}
	return &item, nil
}

type versionedItem struct {
	*model.Item
	ExpectedVersion int64 `db:"expected_version"`
}

func (r *PGRepository) Update(ctx context.Context, item *model.Item, expectedVersion int64) error {
	query := `
        UPDATE items
        SET name = :name,
            category = :category,
            preferred_unit = :preferred_unit,
            minimum_quantity = :minimum_quantity,
            minimum_unit = :minimum_unit,
            version = :version,
            is_active = :is_active,
            deleted_at = :deleted_at,
            updated_at = :updated_at
        WHERE id = :id AND version = :expected_version
    `
	res, err := r.DB.NamedExecContext(ctx, query, versionedItem{Item: item, ExpectedVersion: expectedVersion})
	if err != nil {
		return errors.Wrap(err, "update item")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "update item rows affected")
	}
	if n == 0 {
		return errors.Wrapf(model.ErrOutdatedVersion, "item %s changed since version %d", item.ID, expectedVersion)
	}
	return nil
}
