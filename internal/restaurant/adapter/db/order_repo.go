package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"moms-kitchen/internal/restaurant/app/core"
	"moms-kitchen/internal/restaurant/domain/models"
	"moms-kitchen/internal/xpkg/logger"
)

type OrderRepo struct {
	db  Querier
	log logger.Logger
}

func NewOrderRepo(db Querier, log logger.Logger) *OrderRepo {
	return &OrderRepo{
		db:  db,
		log: log,
	}
}

// LoadAll reads headers and items inside one read-only snapshot so the join is
// consistent even while orders are being written.
func (or *OrderRepo) LoadAll(ctx context.Context) ([]models.Order, error) {
	tx, err := or.db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback(ctx)

	q1 := `
	SELECT
		id::text,
		table_id,
		status,
		payment_method,
		payment_status,
		COALESCE(total_amount, 0)::text,
		created_at,
		customer_name,
		customer_mobile
	FROM
		orders
	ORDER BY
		created_at DESC, id DESC`

	rows, err := tx.Query(ctx, q1)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	orders := []models.Order{}
	for rows.Next() {
		var r orderRow
		if err := rows.Scan(
			&r.ID,
			&r.TableID,
			&r.Status,
			&r.PaymentMethod,
			&r.PaymentStatus,
			&r.TotalAmount,
			&r.CreatedAt,
			&r.CustomerName,
			&r.CustomerMobile,
		); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, r.toModel())
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read orders: %w", err)
	}

	q2 := `
	SELECT
		id::text,
		order_id::text,
		item_name,
		quantity,
		COALESCE(price_at_order, 0)::text
	FROM
		order_items
	ORDER BY
		created_at, id`

	rows, err = tx.Query(ctx, q2)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	var items []orderItemRow
	for rows.Next() {
		var r orderItemRow
		if err := rows.Scan(&r.ID, &r.OrderID, &r.ItemName, &r.Quantity, &r.Price); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read order items: %w", err)
	}

	return joinItems(orders, items), nil
}

// Create inserts the header and all items in one transaction, so a failed item
// insert never leaves an orphan header behind.
func (or *OrderRepo) Create(ctx context.Context, order models.Order) (models.Order, error) {
	log := or.log.Action("create_order")

	tx, err := or.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	q1 := `
	INSERT INTO orders (
		table_id,
		status,
		payment_method,
		payment_status,
		total_amount,
		customer_name,
		customer_mobile
	)
	VALUES ($1, $2, $3, $4, $5::numeric, $6, $7)
	RETURNING id::text, created_at`

	err = tx.QueryRow(ctx, q1,
		order.TableID,
		order.Status.Wire(),
		order.PaymentMethod,
		order.PaymentStatus.Wire(),
		order.TotalAmount.String(),
		order.CustomerName,
		order.CustomerMobile,
	).Scan(&order.ID, &order.Timestamp)
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to insert order: %w", err)
	}
	log.Debug("order header inserted", "order_id", order.ID)

	q2 := `
	INSERT INTO order_items (
		order_id,
		item_name,
		quantity,
		price_at_order
	)
	VALUES ($1::uuid, $2, $3, $4::numeric)
	RETURNING id::text`

	batch := &pgx.Batch{}
	for _, item := range order.Items {
		batch.Queue(q2, order.ID, item.Name, item.Quantity, item.Price.String())
	}
	br := tx.SendBatch(ctx, batch)
	for i := range order.Items {
		if err := br.QueryRow().Scan(&order.Items[i].ID); err != nil {
			br.Close()
			return models.Order{}, fmt.Errorf("failed to insert item %d: %w", i+1, err)
		}
	}
	if err := br.Close(); err != nil {
		return models.Order{}, fmt.Errorf("failed to insert items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Order{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	order.Timestamp = order.Timestamp.UTC()
	return order, nil
}

func (or *OrderRepo) SetStatus(ctx context.Context, orderID string, status models.OrderStatus) error {
	q := `UPDATE orders SET status = $1 WHERE id::text = $2`
	return or.updateOne(ctx, q, status.Wire(), orderID)
}

func (or *OrderRepo) SetPaymentStatus(ctx context.Context, orderID string, status models.PaymentStatus) error {
	q := `UPDATE orders SET payment_status = $1 WHERE id::text = $2`
	return or.updateOne(ctx, q, status.Wire(), orderID)
}

func (or *OrderRepo) updateOne(ctx context.Context, q, value, orderID string) error {
	cmdTag, err := or.db.Exec(ctx, q, value, orderID)
	if err != nil {
		return fmt.Errorf("update order %s: %w", orderID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return core.ErrOrderNotFound
	}
	return nil
}

func (or *OrderRepo) Delete(ctx context.Context, orderID string) error {
	log := or.log.Action("delete_order")

	tx, err := or.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Query 1
	q1 := `DELETE FROM order_items WHERE order_id::text = $1`
	itemsTag, err := tx.Exec(ctx, q1, orderID)
	if err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}

	// Query 2
	q2 := `DELETE FROM orders WHERE id::text = $1`
	cmdTag, err := tx.Exec(ctx, q2, orderID)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return core.ErrOrderNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	log.Debug("order deleted", "order_id", orderID, "items_deleted", itemsTag.RowsAffected())
	return nil
}
