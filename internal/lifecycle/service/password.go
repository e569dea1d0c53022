package service

import (
	"context"
	"errors"

	commonerrors "github.com/AlibekovAA/margarine/internal/common/errors"
	"github.com/AlibekovAA/margarine/internal/common/logger"
	"github.com/AlibekovAA/margarine/internal/lifecycle/domain"
	"github.com/AlibekovAA/margarine/internal/observability/metrics"
	tokenstore "github.com/AlibekovAA/margarine/internal/verification/store"
)

// ApplyPasswordChange stores the new password digest and consumes the token.
// The token was resolved to this username before the command was published;
// it is only read here so a token of another account is never consumed.
func (w *Workflow) ApplyPasswordChange(ctx context.Context, cmd domain.Command) error {
	if err := cmd.Validate(); err != nil {
		w.log.WithFields(ctx, logger.Fields{
			"username": cmd.Username,
			"action":   "apply_password_change_invalid",
		}).Warnf("password change rejected: %v", err)
		return err
	}

	hash, err := w.hasher.Hash(cmd.Password)
	if err != nil {
		w.log.WithFields(ctx, logger.Fields{
			"username": cmd.Username,
			"action":   "apply_password_change_hash_failed",
		}).Errorf("password change failed: hash error: %v", err)
		return commonerrors.ErrInternalError.WithCause(err)
	}

	var owner string
	err = w.tokenBreaker.Call(ctx, func(ctx context.Context) error {
		var getErr error
		owner, getErr = w.tokens.Get(ctx, cmd.Token)
		return getErr
	})
	if err != nil && !errors.Is(err, tokenstore.ErrTokenNotFound) {
		return storeError(err)
	}
	if owner != "" && owner != cmd.Username {
		w.log.WithFields(ctx, logger.Fields{
			"username": cmd.Username,
			"action":   "apply_password_change_token_mismatch",
		}).Warn("password change rejected: token belongs to another account")
		return commonerrors.ErrTokenMismatch
	}

	err = w.accountBreaker.Call(ctx, func(ctx context.Context) error {
		return w.accounts.UpsertPasswordHash(ctx, cmd.Username, hash, w.clock.Now())
	})
	if err != nil {
		w.log.WithFields(ctx, logger.Fields{
			"username": cmd.Username,
			"action":   "apply_password_change_upsert_failed",
		}).Errorf("password change failed: %v", err)
		return storeError(err)
	}

	err = w.tokenBreaker.Call(ctx, func(ctx context.Context) error {
		return w.tokens.Delete(ctx, cmd.Token)
	})
	if err != nil {
		w.log.WithFields(ctx, logger.Fields{
			"username": cmd.Username,
			"action":   "apply_password_change_token_delete_failed",
		}).Errorf("password change applied but token not consumed: %v", err)
		return storeError(err)
	}

	metrics.PasswordChangesApplied.Inc()
	if owner != "" {
		metrics.VerificationTokensConsumed.Inc()
	}
	w.log.WithFields(ctx, logger.Fields{
		"username": cmd.Username,
		"action":   "apply_password_change_success",
	}).Info("password change applied")
	return nil
}
