package orders

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/shawarma-timaro/storefront/internal/domain"
)

// Repository persists orders in the remote database. Lookups return nil for
// a missing id; every error is returned as-is for the Service to decide on
// mirror fallback.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create assigns a fresh id and inserts the order with its items in one
// transaction.
func (r *Repository) Create(ctx context.Context, order *domain.Order) error {
	order.ID = uuid.New().String()
	return r.insert(ctx, order, false)
}

// CreateWithID inserts the order keeping its existing id, skipping orders
// already present. Startup reconciliation uses this so re-uploading the same
// mirrored orders cannot duplicate them.
func (r *Repository) CreateWithID(ctx context.Context, order *domain.Order) (bool, error) {
	err := r.insert(ctx, order, true)
	if err == errAlreadyExists {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

var errAlreadyExists = errors.New("order already exists")

func (r *Repository) insert(ctx context.Context, order *domain.Order, keepExisting bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO orders (id, user_id, address, payment_method, change_amount, total, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if keepExisting {
		query += ` ON CONFLICT (id) DO NOTHING`
	}

	result, err := tx.ExecContext(ctx, query,
		order.ID, nullString(order.UserID), order.Address, order.PaymentMethod,
		nullFloat(order.ChangeAmount), order.Total, order.Status, order.CreatedAt)
	if err != nil {
		return err
	}

	if keepExisting {
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return errAlreadyExists
		}
	}

	for _, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, name, price, quantity)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.New().String(), order.ID, item.ProductID, item.Name, item.Price, item.Quantity)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order := &domain.Order{}
	var userID sql.NullString
	var change sql.NullFloat64

	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, address, payment_method, change_amount, total, status, created_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &userID, &order.Address, &order.PaymentMethod, &change, &order.Total, &order.Status, &order.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	order.UserID = userID.String
	if change.Valid {
		order.ChangeAmount = &change.Float64
	}
	order.Items = []domain.OrderItem{}

	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, name, price, quantity
		FROM order_items
		WHERE order_id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Price, &item.Quantity); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return order, nil
}

// SetStatus merges the new status into the stored order and returns the
// refreshed record, or nil when the id does not exist.
func (r *Repository) SetStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1
		WHERE id = $2
	`, status, id)
	if err != nil {
		return nil, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	if affected == 0 {
		return nil, nil
	}

	return r.GetByID(ctx, id)
}

func (r *Repository) ListAll(ctx context.Context) ([]domain.Order, error) {
	return r.list(ctx, `
		SELECT id, user_id, address, payment_method, change_amount, total, status, created_at
		FROM orders
		ORDER BY created_at DESC
	`)
}

func (r *Repository) ListForUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return r.list(ctx, `
		SELECT id, user_id, address, payment_method, change_amount, total, status, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.Order)
	var orderIDs []string

	for rows.Next() {
		var order domain.Order
		var userID sql.NullString
		var change sql.NullFloat64
		if err := rows.Scan(&order.ID, &userID, &order.Address, &order.PaymentMethod, &change, &order.Total, &order.Status, &order.CreatedAt); err != nil {
			return nil, err
		}
		order.UserID = userID.String
		if change.Valid {
			order.ChangeAmount = &change.Float64
		}
		order.Items = []domain.OrderItem{}
		orderMap[order.ID] = &order
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT order_id, product_id, name, price, quantity
		FROM order_items
		WHERE order_id = ANY($1)
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = itemRows.Close() }()

	for itemRows.Next() {
		var orderID string
		var item domain.OrderItem
		if err := itemRows.Scan(&orderID, &item.ProductID, &item.Name, &item.Price, &item.Quantity); err != nil {
			return nil, err
		}
		order := orderMap[orderID]
		order.Items = append(order.Items, item)
	}

	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}

	return orders, nil
}

func (r *Repository) CountAll(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&count)
	return count, err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
