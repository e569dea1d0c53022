package service

import (
	"context"
	"errors"

	accountdomain "github.com/AlibekovAA/margarine/internal/account/domain"
	accountrepo "github.com/AlibekovAA/margarine/internal/account/repository"
	"github.com/AlibekovAA/margarine/internal/common/db"
	commonerrors "github.com/AlibekovAA/margarine/internal/common/errors"
	"github.com/AlibekovAA/margarine/internal/common/logger"
	"github.com/AlibekovAA/margarine/internal/lifecycle/domain"
	"github.com/AlibekovAA/margarine/internal/observability/metrics"
)

// CreateAccount inserts the account and issues its verification in the same
// unit of work. If issuance fails the account this call inserted is removed
// again. An existing account is a successful outcome unless it is this
// request's own unfinished creation, in which case issuance is resumed. A
// resumed creation never compensates: the account predates this call.
func (w *Workflow) CreateAccount(ctx context.Context, cmd domain.Command) error {
	if err := cmd.Validate(); err != nil {
		w.log.WithFields(ctx, logger.Fields{
			"username": cmd.Username,
			"action":   "create_account_invalid",
		}).Warnf("create account rejected: %v", err)
		return err
	}

	creationID := cmd.RequestID
	if creationID == "" {
		id, err := w.idGenerator.NewID()
		if err != nil {
			return commonerrors.ErrInternalError.WithCause(err)
		}
		creationID = id
	}

	now := w.clock.Now()
	account := accountdomain.Account{
		Username:    cmd.Username,
		Email:       cmd.Email,
		DisplayName: cmd.DisplayName,
		CreationID:  creationID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := w.accountBreaker.Call(ctx, func(ctx context.Context) error {
		return w.accounts.Insert(ctx, account)
	})
	inserted := err == nil
	switch {
	case inserted:
		metrics.AccountsCreated.Inc()
		w.log.WithFields(ctx, logger.Fields{
			"username": account.Username,
			"action":   "create_account_inserted",
		}).Info("account inserted")
	case errors.Is(err, accountrepo.ErrAccountAlreadyExists):
		existing, resumable, findErr := w.resumableCreation(ctx, cmd)
		if findErr != nil {
			return findErr
		}
		if !resumable {
			metrics.DuplicateAccountsTotal.Inc()
			w.log.WithFields(ctx, logger.Fields{
				"username": cmd.Username,
				"action":   "create_account_duplicate",
			}).Warn("create account skipped: account already exists")
			return nil
		}
		account = existing
		w.log.WithFields(ctx, logger.Fields{
			"username": account.Username,
			"action":   "create_account_resumed",
		}).Info("resuming unfinished account creation")
	default:
		w.log.WithFields(ctx, logger.Fields{
			"username": cmd.Username,
			"action":   "create_account_insert_failed",
		}).Errorf("create account failed: %v", err)
		return storeError(err)
	}

	issueErr := w.issue(ctx, account)
	if issueErr == nil {
		w.log.WithFields(ctx, logger.Fields{
			"username": account.Username,
			"action":   "create_account_success",
		}).Info("account created and verification issued")
		return nil
	}

	if !inserted {
		w.log.WithFields(ctx, logger.Fields{
			"username": account.Username,
			"action":   "create_account_resume_failed",
		}).Warnf("resumed creation failed, account kept: %v", issueErr)
		return issueErr
	}

	if err := w.compensate(ctx, account); err != nil {
		return err
	}
	return issueErr
}

// resumableCreation reports whether an existing account was left behind by an
// earlier delivery of the same request that never completed.
func (w *Workflow) resumableCreation(ctx context.Context, cmd domain.Command) (accountdomain.Account, bool, error) {
	if cmd.RequestID == "" {
		return accountdomain.Account{}, false, nil
	}

	existing, err := w.findAccount(ctx, cmd.Username)
	if err != nil {
		if errors.Is(err, commonerrors.ErrAccountNotFound) {
			// Deleted between the insert and the lookup: let redelivery retry the insert.
			return accountdomain.Account{}, false, commonerrors.ErrStoreUnavailable.WithCause(err)
		}
		return accountdomain.Account{}, false, err
	}

	return existing, existing.CreationID == cmd.RequestID && existing.Pending(), nil
}

// compensate removes the account this call inserted. Failure is transient so
// the delivery comes back and the creation is resumed.
func (w *Workflow) compensate(ctx context.Context, account accountdomain.Account) error {
	fields := logger.Fields{
		"username":    account.Username,
		"creation_id": account.CreationID,
	}

	var deleted bool
	err := db.RetryWithBackoff(ctx, w.log, w.compensationRetry, func() error {
		var delErr error
		deleted, delErr = w.accounts.DeleteByCreation(ctx, account.Username, account.CreationID)
		return delErr
	})
	if err != nil {
		metrics.CompensationsTotal.WithLabelValues("failed").Inc()
		fields["action"] = "create_account_compensation_failed"
		w.log.WithFields(ctx, fields).Errorf("failed to remove account after issuance failure: %v", err)
		return commonerrors.ErrCompensationFailed.WithCause(err)
	}

	metrics.CompensationsTotal.WithLabelValues("succeeded").Inc()
	fields["action"] = "create_account_compensated"
	fields["deleted"] = deleted
	w.log.WithFields(ctx, fields).Warn("account removed after issuance failure")
	return nil
}
