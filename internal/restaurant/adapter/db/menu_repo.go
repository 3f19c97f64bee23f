package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"moms-kitchen/internal/restaurant/app/core"
	"moms-kitchen/internal/restaurant/domain/models"
	"moms-kitchen/internal/xpkg/logger"
)

type MenuRepo struct {
	db  Querier
	log logger.Logger
}

func NewMenuRepo(db Querier, log logger.Logger) *MenuRepo {
	return &MenuRepo{
		db:  db,
		log: log,
	}
}

func (mr *MenuRepo) List(ctx context.Context) ([]models.MenuItem, error) {
	q := `
	SELECT
		id::text,
		name,
		COALESCE(price, 0)::text,
		category,
		image,
		is_veg,
		created_at
	FROM
		menu_items
	ORDER BY
		created_at DESC, id DESC`

	rows, err := mr.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query menu items: %w", err)
	}
	defer rows.Close()

	items := []models.MenuItem{}
	for rows.Next() {
		var r menuRow
		if err := rows.Scan(&r.ID, &r.Name, &r.Price, &r.Category, &r.Image, &r.IsVeg, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		items = append(items, r.toModel())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read menu items: %w", err)
	}
	return items, nil
}

func (mr *MenuRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := mr.db.QueryRow(ctx, `SELECT COUNT(*) FROM menu_items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count menu items: %w", err)
	}
	return n, nil
}

const insertMenuItem = `
	INSERT INTO menu_items (
		name,
		price,
		category,
		image,
		is_veg
	)
	VALUES ($1, $2::numeric, $3, $4, $5)
	RETURNING id::text, created_at`

func (mr *MenuRepo) Insert(ctx context.Context, item models.MenuItem) (models.MenuItem, error) {
	err := mr.db.QueryRow(ctx, insertMenuItem,
		item.Name,
		item.Price.String(),
		item.Category,
		item.Image,
		item.IsVeg,
	).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		return models.MenuItem{}, fmt.Errorf("insert menu item: %w", err)
	}
	item.CreatedAt = item.CreatedAt.UTC()
	return item, nil
}

// InsertMany writes all items in one transaction.
func (mr *MenuRepo) InsertMany(ctx context.Context, items []models.MenuItem) error {
	log := mr.log.Action("insert_menu_items")

	tx, err := mr.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(insertMenuItem, item.Name, item.Price.String(), item.Category, item.Image, item.IsVeg)
	}
	br := tx.SendBatch(ctx, batch)
	for i := range items {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("insert menu item %q: %w", items[i].Name, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("insert menu items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	log.Debug("menu items inserted", "count", len(items))
	return nil
}

func (mr *MenuRepo) Update(ctx context.Context, item models.MenuItem) error {
	q := `
	UPDATE
		menu_items
	SET
		name = $1,
		price = $2::numeric,
		category = $3,
		image = $4,
		is_veg = $5
	WHERE
		id::text = $6`

	cmdTag, err := mr.db.Exec(ctx, q, item.Name, item.Price.String(), item.Category, item.Image, item.IsVeg, item.ID)
	if err != nil {
		return fmt.Errorf("update menu item %s: %w", item.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return core.ErrMenuItemNotFound
	}
	return nil
}

func (mr *MenuRepo) Delete(ctx context.Context, id string) error {
	cmdTag, err := mr.db.Exec(ctx, `DELETE FROM menu_items WHERE id::text = $1`, id)
	if err != nil {
		return fmt.Errorf("delete menu item %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return core.ErrMenuItemNotFound
	}
	return nil
}
