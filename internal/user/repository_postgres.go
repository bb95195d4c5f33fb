package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

type PostgresRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

const (
	userColumns = `id, email, password_hash, first_name, last_name, is_admin, created_at`

	getUserByIDQuery = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`
	getUserByEmailQuery = `
		SELECT ` + userColumns + `
		FROM users
		WHERE lower(email) = lower($1)
	`
	insertUserQuery = `
		INSERT INTO users (email, password_hash, first_name, last_name, is_admin)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns
	setAdminQuery = `UPDATE users SET is_admin = $2 WHERE id = $1`

	uniqueViolation = "23505"
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return User{}, ErrNotFound
	}
	return r.getOne(ctx, getUserByIDQuery, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.getOne(ctx, getUserByEmailQuery, email)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func (r *PostgresRepository) Create(ctx context.Context, u User) (User, error) {
	row := r.db.QueryRowContext(ctx, insertUserQuery, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.IsAdmin)
	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, ErrEmailExists
		}
		return User{}, err
	}
	return created, nil
}

func (r *PostgresRepository) SetAdmin(ctx context.Context, id string, isAdmin bool) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, setAdminQuery, id, isAdmin)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(scanner rowScanner) (User, error) {
	var (
		u         User
		firstName sql.NullString
		lastName  sql.NullString
	)
	if err := scanner.Scan(&u.ID, &u.Email, &u.PasswordHash, &firstName, &lastName, &u.IsAdmin, &u.CreatedAt); err != nil {
		return User{}, err
	}
	u.FirstName = firstName.String
	u.LastName = lastName.String
	return u, nil
}
