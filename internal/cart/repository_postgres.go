package cart

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/wichananm65/coffee-shop-backend/internal/product"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	entryColumns = `id, session_id, product_id, quantity, created_at`

	upsertEntryQuery = `
		INSERT INTO cart_items (session_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		WHERE cart_items.quantity + EXCLUDED.quantity <= $4
		RETURNING ` + entryColumns
	setQuantityQuery = `
		UPDATE cart_items
		SET quantity = $3
		WHERE id = $2 AND session_id = $1
		RETURNING ` + entryColumns
	removeEntryQuery = `DELETE FROM cart_items WHERE id = $2 AND session_id = $1`
	clearCartQuery   = `DELETE FROM cart_items WHERE session_id = $1`
	cartLinesQuery   = `
		SELECT ci.id, ci.session_id, ci.product_id, ci.quantity, ci.created_at,
			p.id, p.slug, p.title, p.weight, p.type, p.roast, p.price, p.description, p.image_url, p.in_stock, p.created_at, p.updated_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.session_id = $1
		ORDER BY ci.created_at, ci.id
	`

	foreignKeyViolation = "23503"
	checkViolation      = "23514"
	numericOutOfRange   = "22003"
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Add(ctx context.Context, sessionID, productID string, qty int) (Entry, error) {
	if _, err := uuid.Parse(productID); err != nil {
		return Entry{}, product.ErrNotFound
	}
	var e Entry
	err := r.db.QueryRowContext(ctx, upsertEntryQuery, sessionID, productID, qty, MaxQuantity).
		Scan(&e.ID, &e.SessionID, &e.ProductID, &e.Quantity, &e.CreatedAt)
	if err != nil {
		// the conflict branch skipped the update because of the cap
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, ErrQuantityTooLarge
		}
		return Entry{}, translateErr(err)
	}
	return e, nil
}

func (r *PostgresRepository) SetQuantity(ctx context.Context, sessionID, entryID string, qty int) (Entry, error) {
	if _, err := uuid.Parse(entryID); err != nil {
		return Entry{}, ErrNotFound
	}
	var e Entry
	err := r.db.QueryRowContext(ctx, setQuantityQuery, sessionID, entryID, qty).
		Scan(&e.ID, &e.SessionID, &e.ProductID, &e.Quantity, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, translateErr(err)
	}
	return e, nil
}

func (r *PostgresRepository) Remove(ctx context.Context, sessionID, entryID string) error {
	if _, err := uuid.Parse(entryID); err != nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, removeEntryQuery, sessionID, entryID)
	return err
}

func (r *PostgresRepository) Clear(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, clearCartQuery, sessionID)
	return err
}

func (r *PostgresRepository) Lines(ctx context.Context, sessionID string) ([]Line, error) {
	rows, err := r.db.QueryContext(ctx, cartLinesQuery, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Line, 0)
	for rows.Next() {
		var (
			l   Line
			img sql.NullString
		)
		p := &l.Product
		if err := rows.Scan(&l.ID, &l.SessionID, &l.ProductID, &l.Quantity, &l.CreatedAt,
			&p.ID, &p.Slug, &p.Title, &p.Weight, &p.Type, &p.Roast, &p.Price, &p.Description, &img, &p.InStock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if img.Valid {
			p.ImageURL = &img.String
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func translateErr(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case foreignKeyViolation:
		// product deleted between the catalog check and the insert
		return product.ErrNotFound
	case checkViolation, numericOutOfRange:
		return ErrQuantityTooLarge
	}
	return err
}
