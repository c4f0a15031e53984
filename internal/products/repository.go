package products

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/shawarma-timaro/storefront/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListAll(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, price, image_url, category
		FROM products
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.ImageURL, &p.Category); err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	p := &domain.Product{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, price, image_url, category
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.ImageURL, &p.Category)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return p, nil
}

func (r *Repository) Create(ctx context.Context, p *domain.Product) error {
	p.ID = uuid.New().String()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, name, description, price, image_url, category)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.Name, p.Description, p.Price, p.ImageURL, p.Category)
	return err
}

// Update is a partial-field merge: only non-nil fields touch the row. The
// refreshed product is returned, nil when the id does not exist.
type Update struct {
	Name        *string
	Description *string
	Price       *float64
	ImageURL    *string
	Category    *string
}

func (r *Repository) Update(ctx context.Context, id string, update Update) (*domain.Product, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE products SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			price = COALESCE($4, price),
			image_url = COALESCE($5, image_url),
			category = COALESCE($6, category)
		WHERE id = $1
	`, id, update.Name, update.Description, update.Price, update.ImageURL, update.Category)
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

func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	return err
}

func (r *Repository) CountAll(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&count)
	return count, err
}

// Seed inserts the initial catalog. Each product gets a fresh id; callers
// gate on CountAll to avoid reseeding a live catalog.
func (r *Repository) Seed(ctx context.Context, products []domain.Product) error {
	for i := range products {
		p := products[i]
		if err := r.Create(ctx, &p); err != nil {
			return err
		}
	}
	return nil
}
