package repository

import (
	"context"
	"errors"
	"time"

	"github.com/AlibekovAA/margarine/internal/account/domain"
)

var (
	ErrAccountAlreadyExists = errors.New("account already exists")
	ErrAccountNotFound      = errors.New("account not found")
)

// Repository is the Account Store. Deletes succeed when nothing matches.
type Repository interface {
	Insert(ctx context.Context, account domain.Account) error
	FindByUsername(ctx context.Context, username string) (domain.Account, error)
	UpsertPasswordHash(ctx context.Context, username, hash string, at time.Time) error
	DeleteByUsername(ctx context.Context, username string) error
	// DeleteByCreation removes the account only if it still carries the given
	// creation id, so a rollback can never touch an account another request made.
	DeleteByCreation(ctx context.Context, username, creationID string) (bool, error)
	Ping(ctx context.Context) error
}
