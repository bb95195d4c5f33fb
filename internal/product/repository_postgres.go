package product

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

const (
	productColumns = `id, slug, title, weight, type, roast, price, description, image_url, in_stock, created_at, updated_at`

	listProductsQuery = `
		SELECT ` + productColumns + `
		FROM products
		ORDER BY created_at, title
	`
	getProductByIDQuery = `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = $1
	`
	getProductBySlugQuery = `
		SELECT ` + productColumns + `
		FROM products
		WHERE slug = $1
	`
	listProductsByIDsQuery = `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = ANY($1::uuid[])
		ORDER BY array_position($1::uuid[], id)
	`
	insertProductQuery = `
		INSERT INTO products (slug, title, weight, type, roast, price, description, image_url, in_stock)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING ` + productColumns
	updateProductQuery = `
		UPDATE products
		SET slug = $1,
			title = $2,
			weight = $3,
			type = $4,
			roast = $5,
			price = $6,
			description = $7,
			image_url = $8,
			in_stock = $9,
			updated_at = now()
		WHERE id = $10
		RETURNING ` + productColumns
	deleteProductQuery = `DELETE FROM products WHERE id = $1`

	uniqueViolation = "23505"
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context) ([]Product, error) {
	rows, err := r.db.QueryContext(ctx, listProductsQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Product{}, ErrNotFound
	}
	return r.getOne(ctx, getProductByIDQuery, id)
}

func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string) (Product, error) {
	return r.getOne(ctx, getProductBySlugQuery, slug)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

// ListByIDs retrieves all products in ids, ordered like the input.
func (r *PostgresRepository) ListByIDs(ctx context.Context, ids []string) ([]Product, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []Product{}, nil
	}

	rows, err := r.db.QueryContext(ctx, listProductsByIDsQuery, pq.Array(valid))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Product, 0, len(valid))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Create(ctx context.Context, p Product) (Product, error) {
	row := r.db.QueryRowContext(ctx, insertProductQuery,
		p.Slug,
		p.Title,
		p.Weight,
		p.Type,
		p.Roast,
		p.Price,
		p.Description,
		p.ImageURL,
		p.InStock,
	)
	created, err := scanProduct(row)
	if err != nil {
		return Product{}, translateErr(err)
	}
	return created, nil
}

func (r *PostgresRepository) Update(ctx context.Context, p Product) (Product, error) {
	if _, err := uuid.Parse(p.ID); err != nil {
		return Product{}, ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, updateProductQuery,
		p.Slug,
		p.Title,
		p.Weight,
		p.Type,
		p.Roast,
		p.Price,
		p.Description,
		p.ImageURL,
		p.InStock,
		p.ID,
	)
	updated, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, translateErr(err)
	}
	return updated, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	result, err := r.db.ExecContext(ctx, deleteProductQuery, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanProduct(row rowScanner) (Product, error) {
	var (
		p   Product
		img sql.NullString
	)
	err := row.Scan(&p.ID, &p.Slug, &p.Title, &p.Weight, &p.Type, &p.Roast, &p.Price,
		&p.Description, &img, &p.InStock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	if img.Valid {
		p.ImageURL = &img.String
	}
	return p, nil
}

func translateErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrSlugExists
	}
	return err
}
