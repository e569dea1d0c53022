package service

import (
	"context"
	"time"

	accountdomain "github.com/AlibekovAA/margarine/internal/account/domain"
	commonerrors "github.com/AlibekovAA/margarine/internal/common/errors"
	"github.com/AlibekovAA/margarine/internal/common/logger"
	"github.com/AlibekovAA/margarine/internal/lifecycle/domain"
	"github.com/AlibekovAA/margarine/internal/observability/metrics"
	verificationdomain "github.com/AlibekovAA/margarine/internal/verification/domain"
)

// IssueVerification sends a fresh token to an existing account. A missing
// account is terminal and leaves the token store untouched.
func (w *Workflow) IssueVerification(ctx context.Context, cmd domain.Command) error {
	if err := cmd.Validate(); err != nil {
		w.log.WithFields(ctx, logger.Fields{
			"username": cmd.Username,
			"action":   "issue_verification_invalid",
		}).Warnf("issue verification rejected: %v", err)
		return err
	}

	account, err := w.findAccount(ctx, cmd.Username)
	if err != nil {
		w.log.WithFields(ctx, logger.Fields{
			"username": cmd.Username,
			"action":   "issue_verification_lookup_failed",
		}).Warnf("issue verification failed: %v", err)
		return err
	}

	return w.issue(ctx, account)
}

func (w *Workflow) issue(ctx context.Context, account accountdomain.Account) error {
	id, err := w.idGenerator.NewID()
	if err != nil {
		return commonerrors.ErrInternalError.WithCause(err)
	}
	token := verificationdomain.VerificationToken{
		Token:    id,
		Username: account.Username,
		IssuedAt: w.clock.Now(),
		TTL:      w.tokenTTL,
	}

	err = w.tokenBreaker.Call(ctx, func(ctx context.Context) error {
		return w.tokens.Set(ctx, token.Token, token.Username, token.TTL)
	})
	if err != nil {
		w.log.WithFields(ctx, logger.Fields{
			"username": account.Username,
			"action":   "issue_verification_store_failed",
		}).Errorf("failed to store verification token: %v", err)
		return storeError(err)
	}
	metrics.VerificationTokensIssued.Inc()

	if err := w.notifier.SendVerification(ctx, account.Email, token.Token); err != nil {
		metrics.NotificationFailures.Inc()
		w.log.WithFields(ctx, logger.Fields{
			"username": account.Username,
			"action":   "issue_verification_notify_failed",
		}).Errorf("failed to deliver verification: %v", err)

		if delErr := w.tokens.Delete(ctx, token.Token); delErr != nil {
			w.log.WithFields(ctx, logger.Fields{
				"username": account.Username,
				"action":   "issue_verification_token_cleanup_failed",
			}).Warnf("failed to delete undelivered token, it will expire: %v", delErr)
		}
		return commonerrors.ErrNotificationDelivery.WithCause(err)
	}

	w.log.WithFields(ctx, logger.Fields{
		"username": account.Username,
		"action":   "issue_verification_success",
	}).Infof("verification issued, valid until %s", token.ExpiresAt().Format(time.RFC3339))
	return nil
}
