package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	pgx "github.com/jackc/pgx/v4"

	"github.com/AlibekovAA/margarine/internal/account/domain"
	"github.com/AlibekovAA/margarine/internal/common/db"
)

const postgresStoreName = "postgres"

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	username      TEXT PRIMARY KEY,
	email         TEXT NOT NULL DEFAULT '',
	display_name  TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL DEFAULT '',
	creation_id   TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Querier is the part of *pgxpool.Pool the repository uses.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Ping(ctx context.Context) error
}

type PostgresRepository struct {
	pool Querier
}

func NewPostgresRepository(pool Querier) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, postgresSchema)
	return err
}

func (r *PostgresRepository) Insert(ctx context.Context, account domain.Account) error {
	start := time.Now()
	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO users (username, email, display_name, password_hash, creation_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		account.Username,
		account.Email,
		account.DisplayName,
		account.PasswordHash,
		account.CreationID,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			err = ErrAccountAlreadyExists
		}
	}
	return db.ObserveOperation(postgresStoreName, "insert account", start, err, ErrAccountAlreadyExists)
}

func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (domain.Account, error) {
	start := time.Now()
	row := r.pool.QueryRow(
		ctx,
		`SELECT username, email, display_name, password_hash, creation_id, created_at, updated_at
		 FROM users WHERE username = $1`,
		username,
	)

	var a domain.Account
	err := row.Scan(&a.Username, &a.Email, &a.DisplayName, &a.PasswordHash, &a.CreationID, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		err = ErrAccountNotFound
	}
	if err = db.ObserveOperation(postgresStoreName, "find account", start, err, ErrAccountNotFound); err != nil {
		return domain.Account{}, err
	}
	return a, nil
}

func (r *PostgresRepository) UpsertPasswordHash(ctx context.Context, username, hash string, at time.Time) error {
	start := time.Now()
	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO users (username, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $3)
		 ON CONFLICT (username) DO UPDATE SET password_hash = EXCLUDED.password_hash, updated_at = EXCLUDED.updated_at`,
		username,
		hash,
		at,
	)
	return db.ObserveOperation(postgresStoreName, "upsert account password", start, err)
}

func (r *PostgresRepository) DeleteByUsername(ctx context.Context, username string) error {
	start := time.Now()
	_, err := r.pool.Exec(ctx, `DELETE FROM users WHERE username = $1`, username)
	return db.ObserveOperation(postgresStoreName, "delete account", start, err)
}

func (r *PostgresRepository) DeleteByCreation(ctx context.Context, username, creationID string) (bool, error) {
	start := time.Now()
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE username = $1 AND creation_id = $2`, username, creationID)
	if err = db.ObserveOperation(postgresStoreName, "delete created account", start, err); err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
