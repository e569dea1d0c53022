package store

import (
	"context"
	"errors"
	"time"
)

var ErrTokenNotFound = errors.New("verification token not found")

// TokenStore holds token -> username mappings with a per-key TTL. Get never
// returns a key past its TTL; Delete of an absent key succeeds.
type TokenStore interface {
	Set(ctx context.Context, token, username string, ttl time.Duration) error
	Get(ctx context.Context, token string) (string, error)
	Delete(ctx context.Context, token string) error
	Ping(ctx context.Context) error
}
