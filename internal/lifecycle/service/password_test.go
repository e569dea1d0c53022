package service

import (
	"context"
	"errors"
	"testing"
	"time"

	accountdomain "github.com/AlibekovAA/margarine/internal/account/domain"
	commonerrors "github.com/AlibekovAA/margarine/internal/common/errors"
	"github.com/AlibekovAA/margarine/internal/lifecycle/domain"
	tokenstore "github.com/AlibekovAA/margarine/internal/verification/store"
)

func passwordCommand(token string) domain.Command {
	return domain.Command{
		Kind:     domain.KindApplyPasswordChange,
		Username: "alice",
		Password: "password123",
		Token:    token,
	}
}

func TestApplyPasswordChange_ConsumesToken(t *testing.T) {
	env := setupWorkflow(t)
	ctx := context.Background()

	if err := env.workflow.CreateAccount(ctx, createCommand("req-1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	token := env.notifier.calls()[0].token

	if err := env.workflow.ApplyPasswordChange(ctx, passwordCommand(token)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	account, _ := env.accounts.get("alice")
	if account.PasswordHash != "hashed:password123" {
		t.Errorf("expected hashed password, got %q", account.PasswordHash)
	}
	if account.PasswordHash == "password123" {
		t.Error("plaintext password must never be stored")
	}
	if _, err := env.store.Get(ctx, token); !errors.Is(err, tokenstore.ErrTokenNotFound) {
		t.Errorf("expected token to be consumed, got %v", err)
	}
}

func TestApplyPasswordChange_RedeliveryIsNoop(t *testing.T) {
	env := setupWorkflow(t)
	ctx := context.Background()
	_ = env.store.Set(ctx, "tok-x", "alice", time.Hour)

	for i := 0; i < 2; i++ {
		if err := env.workflow.ApplyPasswordChange(ctx, passwordCommand("tok-x")); err != nil {
			t.Fatalf("delivery %d: unexpected error: %v", i+1, err)
		}
	}
}

func TestApplyPasswordChange_ExpiredTokenDoesNotBlock(t *testing.T) {
	env := setupWorkflow(t)
	ctx := context.Background()
	_ = env.accounts.Insert(ctx, accountdomain.Account{Username: "alice"})
	_ = env.store.Set(ctx, "tok-x", "alice", time.Minute)
	env.clock.Advance(time.Hour)

	if err := env.workflow.ApplyPasswordChange(ctx, passwordCommand("tok-x")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	account, _ := env.accounts.get("alice")
	if account.Pending() {
		t.Error("expected password to be set")
	}
}

func TestApplyPasswordChange_UpsertsMissingAccount(t *testing.T) {
	env := setupWorkflow(t)

	if err := env.workflow.ApplyPasswordChange(context.Background(), passwordCommand("tok-x")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	account, ok := env.accounts.get("alice")
	if !ok || account.PasswordHash != "hashed:password123" {
		t.Errorf("expected upserted account, got %+v", account)
	}
}

func TestApplyPasswordChange_TokenOfAnotherAccount(t *testing.T) {
	env := setupWorkflow(t)
	ctx := context.Background()
	_ = env.accounts.Insert(ctx, accountdomain.Account{Username: "alice"})
	_ = env.store.Set(ctx, "tok-bob", "bob", time.Hour)

	err := env.workflow.ApplyPasswordChange(ctx, passwordCommand("tok-bob"))
	if !errors.Is(err, commonerrors.ErrTokenMismatch) || commonerrors.IsTransient(err) {
		t.Fatalf("expected terminal ErrTokenMismatch, got %v", err)
	}

	account, _ := env.accounts.get("alice")
	if !account.Pending() {
		t.Error("password must not change")
	}
	if username, err := env.store.Get(ctx, "tok-bob"); err != nil || username != "bob" {
		t.Error("token of another account must not be consumed")
	}
}

func TestApplyPasswordChange_UpsertFailureKeepsToken(t *testing.T) {
	env := setupWorkflow(t)
	ctx := context.Background()
	_ = env.store.Set(ctx, "tok-x", "alice", time.Hour)
	env.accounts.upsertFunc = func(context.Context, string) error {
		return errors.New("connection refused")
	}

	err := env.workflow.ApplyPasswordChange(ctx, passwordCommand("tok-x"))
	if !errors.Is(err, commonerrors.ErrStoreUnavailable) || !commonerrors.IsTransient(err) {
		t.Fatalf("expected transient ErrStoreUnavailable, got %v", err)
	}
	if _, err := env.store.Get(ctx, "tok-x"); err != nil {
		t.Error("token must survive a failed password change")
	}
}

func TestApplyPasswordChange_TokenLookupFailureIsTransient(t *testing.T) {
	env := setupWorkflow(t)
	env.tokens.getFunc = func(context.Context, string) error {
		return errors.New("i/o timeout")
	}

	err := env.workflow.ApplyPasswordChange(context.Background(), passwordCommand("tok-x"))
	if !commonerrors.IsTransient(err) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if _, ok := env.accounts.get("alice"); ok {
		t.Error("no mutation expected")
	}
}

func TestApplyPasswordChange_HashFailureIsTerminal(t *testing.T) {
	env := setupWorkflow(t)
	env.hasher.hashFunc = func(string) (string, error) {
		return "", errors.New("bcrypt failure")
	}

	err := env.workflow.ApplyPasswordChange(context.Background(), passwordCommand("tok-x"))
	if !errors.Is(err, commonerrors.ErrInternalError) || commonerrors.IsTransient(err) {
		t.Fatalf("expected terminal ErrInternalError, got %v", err)
	}
}
