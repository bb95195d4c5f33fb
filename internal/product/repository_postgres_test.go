package product

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

const (
	darkID  = "0b6a3c1e-52f5-4c1c-9d53-1c2f0f6f1a01"
	lightID = "0b6a3c1e-52f5-4c1c-9d53-1c2f0f6f1a02"
)

var productCols = []string{"id", "slug", "title", "weight", "type", "roast", "price", "description", "image_url", "in_stock", "created_at", "updated_at"}

func TestPostgresList(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(productCols).
		AddRow(darkID, "ciemne", "Ciemne", "250g", "beans", "dark", "49.00", "d", nil, true, now, now).
		AddRow(lightID, "jasne", "Jasne", "1kg", "beans", "light", "159.00", "d", "/img/jasne.jpg", false, now, now)
	mock.ExpectQuery("FROM products").WillReturnRows(rows)

	all, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("expected nil err, got %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 products, got %d", len(all))
	}
	if all[0].ImageURL != nil {
		t.Fatalf("expected nil image for first row")
	}
	if all[1].ImageURL == nil || *all[1].ImageURL != "/img/jasne.jpg" {
		t.Fatalf("unexpected image %v", all[1].ImageURL)
	}
	if !all[1].Price.Equal(decimal.RequireFromString("159")) {
		t.Fatalf("unexpected price %s", all[1].Price)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresGetByID_InvalidUUIDSkipsQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	if _, err := repo.GetByID(context.Background(), "not-a-uuid"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected queries: %v", err)
	}
}

func TestPostgresGetBySlug_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectQuery("WHERE slug = \\$1").WithArgs("missing").WillReturnRows(sqlmock.NewRows(productCols))

	if _, err := repo.GetBySlug(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresListByIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(productCols).
		AddRow(lightID, "jasne", "Jasne", "1kg", "beans", "light", "159.00", "d", nil, true, now, now)
	mock.ExpectQuery("WHERE id = ANY").WithArgs(sqlmock.AnyArg()).WillReturnRows(rows)

	out, err := repo.ListByIDs(context.Background(), []string{lightID, "garbage"})
	if err != nil {
		t.Fatalf("expected nil err, got %v", err)
	}
	if len(out) != 1 || out[0].ID != lightID {
		t.Fatalf("unexpected products %+v", out)
	}

	// nothing valid means nothing to ask the database
	out, err = repo.ListByIDs(context.Background(), []string{"garbage"})
	if err != nil || len(out) != 0 {
		t.Fatalf("expected empty result, got %v %v", out, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresCreate_DuplicateSlug(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectQuery("INSERT INTO products").WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err = repo.Create(context.Background(), Product{Slug: "ciemne", Title: "Ciemne", Price: decimal.NewFromInt(49)})
	if !errors.Is(err, ErrSlugExists) {
		t.Fatalf("expected ErrSlugExists, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectExec("DELETE FROM products").WithArgs(darkID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM products").WithArgs(lightID).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), darkID); err != nil {
		t.Fatalf("expected nil err, got %v", err)
	}
	if err := repo.Delete(context.Background(), lightID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
