package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgconn"
	pgx "github.com/jackc/pgx/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlibekovAA/margarine/internal/account/domain"
)

type execCall struct {
	sql  string
	args []interface{}
}

type fakeQuerier struct {
	execs   []execCall
	execTag pgconn.CommandTag
	execErr error
	row     fakeRow
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	return f.execTag, f.execErr
}

func (f *fakeQuerier) QueryRow(context.Context, string, ...interface{}) pgx.Row {
	return f.row
}

func (f *fakeQuerier) Ping(context.Context) error {
	return nil
}

type fakeRow struct {
	values []interface{}
	err    error
}

func (r fakeRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch v := d.(type) {
		case *string:
			*v = r.values[i].(string)
		case *time.Time:
			*v = r.values[i].(time.Time)
		}
	}
	return nil
}

func TestPostgresRepository_Insert(t *testing.T) {
	t.Run("unique violation", func(t *testing.T) {
		q := &fakeQuerier{execErr: &pgconn.PgError{Code: "23505", ConstraintName: "users_pkey"}}
		repo := NewPostgresRepository(q)

		err := repo.Insert(context.Background(), domain.Account{Username: "alice"})
		require.ErrorIs(t, err, ErrAccountAlreadyExists)
	})

	t.Run("other failures pass through", func(t *testing.T) {
		q := &fakeQuerier{execErr: errors.New("conn closed")}
		repo := NewPostgresRepository(q)

		err := repo.Insert(context.Background(), domain.Account{Username: "alice"})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrAccountAlreadyExists)
	})
}

func TestPostgresRepository_UpsertPasswordHash(t *testing.T) {
	q := &fakeQuerier{execTag: pgconn.CommandTag("INSERT 0 1")}
	repo := NewPostgresRepository(q)
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.UpsertPasswordHash(context.Background(), "alice", "digest", at))

	require.Len(t, q.execs, 1)
	assert.Contains(t, q.execs[0].sql, "ON CONFLICT (username) DO UPDATE SET password_hash = EXCLUDED.password_hash")
	assert.Equal(t, []interface{}{"alice", "digest", at}, q.execs[0].args)
}

func TestPostgresRepository_FindByUsername(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		q := &fakeQuerier{row: fakeRow{values: []interface{}{
			"alice", "a@x.com", "Alice", "", "req-1", created, created,
		}}}
		repo := NewPostgresRepository(q)

		account, err := repo.FindByUsername(context.Background(), "alice")
		require.NoError(t, err)
		assert.Equal(t, "a@x.com", account.Email)
		assert.Equal(t, "req-1", account.CreationID)
		assert.True(t, account.Pending())
	})

	t.Run("absent", func(t *testing.T) {
		repo := NewPostgresRepository(&fakeQuerier{row: fakeRow{err: pgx.ErrNoRows}})

		_, err := repo.FindByUsername(context.Background(), "ghost")
		require.ErrorIs(t, err, ErrAccountNotFound)
	})
}

func TestPostgresRepository_DeleteByCreation(t *testing.T) {
	testCases := []struct {
		name string
		tag  string
		want bool
	}{
		{"matching creation", "DELETE 1", true},
		{"foreign creation", "DELETE 0", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q := &fakeQuerier{execTag: pgconn.CommandTag(tc.tag)}
			repo := NewPostgresRepository(q)

			deleted, err := repo.DeleteByCreation(context.Background(), "alice", "req-1")
			require.NoError(t, err)
			assert.Equal(t, tc.want, deleted)
			assert.Equal(t, []interface{}{"alice", "req-1"}, q.execs[0].args)
		})
	}
}
