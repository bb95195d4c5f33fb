package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/wichananm65/coffee-shop-backend/internal/apperror"
)

const orderID = "5f0c2a8e-7d1b-4a55-9e2f-0a1b2c3d4e5f"

var orderCols = []string{
	"id", "session_id", "provider_session_id", "provider_payment_id", "status",
	"customer_type", "customer_name", "customer_email", "customer_phone", "company_name", "company_nip",
	"inpost_point_id", "inpost_point_name", "inpost_point_address",
	"total_amount", "currency", "items", "created_at", "updated_at",
}

func orderRow(status string, paymentID any) *sqlmock.Rows {
	items := []byte(`[{"productId":"p1","title":"Ciemne Palenie","weight":"250g","type":"beans","price":"25","quantity":2}]`)
	now := time.Now()
	return sqlmock.NewRows(orderCols).AddRow(
		orderID, "s1", "cs_test_1", paymentID, status,
		"individual", "Jan Kowalski", "jan@example.com", "600100200", nil, nil,
		"KRA01M", "Paczkomat KRA01M", "ul. Długa 1",
		"50.00", "pln", items, now, now,
	)
}

func TestPostgresMarkPaid_TransitionsAndClearsCart(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE orders\\s+SET status = 'paid'").
		WithArgs(orderID, "pi_1").
		WillReturnRows(orderRow("paid", "pi_1"))
	mock.ExpectExec("DELETE FROM cart_items WHERE session_id = \\$1").
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	ord, transitioned, err := repo.MarkPaid(context.Background(), orderID, "pi_1")
	if err != nil {
		t.Fatalf("expected nil err, got %v", err)
	}
	if !transitioned || ord.Status != StatusPaid {
		t.Fatalf("expected transition to paid, got %v %+v", transitioned, ord)
	}
	if ord.ProviderPaymentID == nil || *ord.ProviderPaymentID != "pi_1" {
		t.Fatalf("unexpected payment id %v", ord.ProviderPaymentID)
	}
	if len(ord.Items) != 1 || ord.Items[0].Quantity != 2 || ord.Items[0].Price.String() != "25" {
		t.Fatalf("unexpected items %+v", ord.Items)
	}
	if ord.Shipping == nil || ord.Shipping.PointID != "KRA01M" || ord.Customer.CompanyName != nil {
		t.Fatalf("unexpected nullable columns %+v", ord)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresMarkPaid_AlreadyPaidLeavesCart(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE orders").WithArgs(orderID, "pi_1").WillReturnRows(sqlmock.NewRows(orderCols))
	mock.ExpectQuery("SELECT .* FROM orders\\s+WHERE id = \\$1").WithArgs(orderID).WillReturnRows(orderRow("paid", "pi_1"))
	mock.ExpectCommit()

	ord, transitioned, err := repo.MarkPaid(context.Background(), orderID, "pi_1")
	if err != nil {
		t.Fatalf("expected nil err, got %v", err)
	}
	if transitioned || ord.Status != StatusPaid {
		t.Fatalf("expected no transition, got %v %+v", transitioned, ord)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresMarkPaid_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	if _, _, err := repo.MarkPaid(context.Background(), "not-a-uuid", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for invalid id, got %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE orders").WithArgs(orderID, "").WillReturnRows(sqlmock.NewRows(orderCols))
	mock.ExpectQuery("SELECT .* FROM orders").WithArgs(orderID).WillReturnRows(sqlmock.NewRows(orderCols))
	mock.ExpectRollback()

	if _, _, err := repo.MarkPaid(context.Background(), orderID, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresMarkPaid_CartDeleteFailureRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE orders").WithArgs(orderID, "pi_1").WillReturnRows(orderRow("paid", "pi_1"))
	mock.ExpectExec("DELETE FROM cart_items").WithArgs("s1").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	if _, transitioned, err := repo.MarkPaid(context.Background(), orderID, "pi_1"); err == nil || transitioned {
		t.Fatalf("expected error without transition, got %v %v", transitioned, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresAttachProviderSession(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectExec("status = 'pending' AND provider_session_id IS NULL").
		WithArgs(orderID, "cs_test_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("status = 'pending' AND provider_session_id IS NULL").
		WithArgs(orderID, "cs_test_2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.AttachProviderSession(context.Background(), orderID, "cs_test_1")
	if err != nil || !ok {
		t.Fatalf("expected attach, got %v %v", ok, err)
	}
	ok, err = repo.AttachProviderSession(context.Background(), orderID, "cs_test_2")
	if err != nil || ok {
		t.Fatalf("expected second attach to be refused, got %v %v", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresGetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	if _, err := repo.GetByID(context.Background(), "garbage"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	mock.ExpectQuery("FROM orders").WithArgs(orderID).WillReturnRows(orderRow("awaiting_payment", nil))
	ord, err := repo.GetByID(context.Background(), orderID)
	if err != nil {
		t.Fatalf("expected nil err, got %v", err)
	}
	if ord.Status != StatusAwaitingPayment || ord.ProviderPaymentID != nil || ord.TotalAmount.StringFixed(2) != "50.00" {
		t.Fatalf("unexpected order %+v", ord)
	}

	mock.ExpectQuery("FROM orders").WithArgs(orderID).WillReturnRows(sqlmock.NewRows(orderCols))
	if _, err := repo.GetByID(context.Background(), orderID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresListByStatus_DefaultLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectQuery("WHERE status = \\$1").WithArgs("awaiting_payment", 100).WillReturnRows(orderRow("awaiting_payment", nil))
	out, err := repo.ListByStatus(context.Background(), StatusAwaitingPayment, 0)
	if err != nil || len(out) != 1 {
		t.Fatalf("expected one order, got %d %v", len(out), err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresCreate_TotalOverflow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectQuery("INSERT INTO orders").WillReturnError(&pgconn.PgError{Code: "22003"})

	_, err = repo.Create(context.Background(), Order{
		SessionID:   "s1",
		Status:      StatusPending,
		Customer:    Customer{Type: CustomerIndividual, Name: "Jan", Email: "jan@example.com", Phone: "600100200"},
		TotalAmount: decimal.RequireFromString("123456789012.00"),
		Currency:    "pln",
		Items:       []LineItem{{ProductID: "p1", Price: decimal.RequireFromString("123456789.01"), Quantity: 999}},
	})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected a validation error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
