package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/wichananm65/coffee-shop-backend/internal/apperror"
	"github.com/wichananm65/coffee-shop-backend/internal/database"
)

const numericOutOfRange = "22003"

// ErrTotalTooLarge is returned when the order total does not fit the stored
// precision.
var ErrTotalTooLarge = apperror.Validation("cart", "order total is too large")

type PostgresRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

const (
	orderColumns = `id, session_id, provider_session_id, provider_payment_id, status,
		customer_type, customer_name, customer_email, customer_phone, company_name, company_nip,
		inpost_point_id, inpost_point_name, inpost_point_address,
		total_amount, currency, items, created_at, updated_at`

	insertOrderQuery = `
		INSERT INTO orders (session_id, status, customer_type, customer_name, customer_email, customer_phone,
			company_name, company_nip, inpost_point_id, inpost_point_name, inpost_point_address,
			total_amount, currency, items)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING ` + orderColumns
	attachSessionQuery = `
		UPDATE orders
		SET provider_session_id = $2, status = 'awaiting_payment', updated_at = now()
		WHERE id = $1 AND status = 'pending' AND provider_session_id IS NULL
	`
	markPaidQuery = `
		UPDATE orders
		SET status = 'paid', provider_payment_id = COALESCE(NULLIF($2, ''), provider_payment_id), updated_at = now()
		WHERE id = $1 AND status <> 'paid'
		RETURNING ` + orderColumns
	clearSessionCartQuery = `DELETE FROM cart_items WHERE session_id = $1`
	getOrderQuery         = `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE id = $1
	`
	listByStatusQuery = `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status = $1
		ORDER BY created_at
		LIMIT $2
	`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, ord Order) (Order, error) {
	itemsJSON, err := json.Marshal(ord.Items)
	if err != nil {
		return Order{}, fmt.Errorf("encode order items: %w", err)
	}
	var pointID, pointName, pointAddress *string
	if s := ord.Shipping; s != nil {
		pointID, pointName, pointAddress = &s.PointID, &s.PointName, &s.PointAddress
	}

	row := r.db.QueryRowContext(ctx, insertOrderQuery,
		ord.SessionID,
		string(ord.Status),
		string(ord.Customer.Type),
		ord.Customer.Name,
		ord.Customer.Email,
		ord.Customer.Phone,
		ord.Customer.CompanyName,
		ord.Customer.CompanyNIP,
		pointID,
		pointName,
		pointAddress,
		ord.TotalAmount,
		ord.Currency,
		string(itemsJSON),
	)
	created, err := scanOrder(row)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == numericOutOfRange {
		return Order{}, ErrTotalTooLarge
	}
	return created, err
}

func (r *PostgresRepository) AttachProviderSession(ctx context.Context, orderID, providerSessionID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, attachSessionQuery, orderID, providerSessionID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// MarkPaid runs the conditional status update and the cart delete in one
// transaction. A second caller finds no row to update and leaves the cart
// alone.
func (r *PostgresRepository) MarkPaid(ctx context.Context, orderID, providerPaymentID string) (Order, bool, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return Order{}, false, ErrNotFound
	}

	var (
		ord          Order
		transitioned bool
	)
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		ord, err = scanOrder(tx.QueryRowContext(ctx, markPaidQuery, orderID, providerPaymentID))
		switch {
		case err == nil:
			transitioned = true
			if _, err := tx.ExecContext(ctx, clearSessionCartQuery, ord.SessionID); err != nil {
				return fmt.Errorf("clear cart: %w", err)
			}
			return nil
		case errors.Is(err, sql.ErrNoRows):
			// already paid, or no such order
			ord, err = scanOrder(tx.QueryRowContext(ctx, getOrderQuery, orderID))
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		default:
			return err
		}
	})
	if err != nil {
		return Order{}, false, err
	}
	return ord, transitioned, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Order{}, ErrNotFound
	}
	ord, err := scanOrder(r.db.QueryRowContext(ctx, getOrderQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return ord, err
}

func (r *PostgresRepository) ListByStatus(ctx context.Context, status Status, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, listByStatusQuery, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Order, 0)
	for rows.Next() {
		ord, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ord)
	}
	return out, rows.Err()
}

func scanOrder(row rowScanner) (Order, error) {
	var (
		ord                              Order
		providerSession, providerPayment sql.NullString
		companyName, companyNIP          sql.NullString
		pointID, pointName, pointAddress sql.NullString
		status, customerType             string
		itemsJSON                        []byte
	)
	err := row.Scan(&ord.ID, &ord.SessionID, &providerSession, &providerPayment, &status,
		&customerType, &ord.Customer.Name, &ord.Customer.Email, &ord.Customer.Phone, &companyName, &companyNIP,
		&pointID, &pointName, &pointAddress,
		&ord.TotalAmount, &ord.Currency, &itemsJSON, &ord.CreatedAt, &ord.UpdatedAt)
	if err != nil {
		return Order{}, err
	}

	ord.Status = Status(status)
	ord.Customer.Type = CustomerType(customerType)
	ord.ProviderSessionID = nullableString(providerSession)
	ord.ProviderPaymentID = nullableString(providerPayment)
	ord.Customer.CompanyName = nullableString(companyName)
	ord.Customer.CompanyNIP = nullableString(companyNIP)
	if pointID.Valid {
		ord.Shipping = &ShippingDestination{
			PointID:      pointID.String,
			PointName:    pointName.String,
			PointAddress: pointAddress.String,
		}
	}
	if err := json.Unmarshal(itemsJSON, &ord.Items); err != nil {
		return Order{}, fmt.Errorf("decode order items: %w", err)
	}
	return ord, nil
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
