package database

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM cart_items").WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err = WithTx(context.Background(), db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`DELETE FROM cart_items WHERE session_id = $1`, "s1")
		return err
	})
	if err != nil {
		t.Fatalf("expected nil err, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err = WithTx(context.Background(), db, func(tx *sql.Tx) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	ups, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	if err != nil || len(ups) == 0 {
		t.Fatalf("expected embedded up migrations, got %v (%v)", ups, err)
	}
}

func TestOpen_RequiresURL(t *testing.T) {
	if _, err := Open(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty url")
	}
}
