package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	accountdomain "github.com/AlibekovAA/margarine/internal/account/domain"
	accountrepo "github.com/AlibekovAA/margarine/internal/account/repository"
	"github.com/AlibekovAA/margarine/internal/common/clock"
	commoncrypto "github.com/AlibekovAA/margarine/internal/common/crypto"
	"github.com/AlibekovAA/margarine/internal/common/db"
	commonerrors "github.com/AlibekovAA/margarine/internal/common/errors"
	"github.com/AlibekovAA/margarine/internal/common/logger"
	"github.com/AlibekovAA/margarine/internal/common/resilience"
	"github.com/AlibekovAA/margarine/internal/lifecycle/domain"
	"github.com/AlibekovAA/margarine/internal/notification"
	"github.com/AlibekovAA/margarine/internal/observability/metrics"
	tokenstore "github.com/AlibekovAA/margarine/internal/verification/store"
)

type WorkflowDeps struct {
	Accounts    accountrepo.Repository
	Tokens      tokenstore.TokenStore
	Notifier    notification.Notifier
	Hasher      commoncrypto.PasswordHasher
	IDGenerator commoncrypto.IDGenerator
	Clock       clock.Clock
	Log         *logger.Logger
}

type WorkflowConfig struct {
	TokenTTL                time.Duration
	CircuitBreakerThreshold int32
	CircuitBreakerTimeout   time.Duration
	CircuitBreakerReset     time.Duration
	CompensationRetry       db.RetryConfig
}

// Workflow implements the three lifecycle consumers. It holds no mutable state
// of its own; all coordination goes through the account and token stores.
type Workflow struct {
	accounts          accountrepo.Repository
	tokens            tokenstore.TokenStore
	notifier          notification.Notifier
	hasher            commoncrypto.PasswordHasher
	idGenerator       commoncrypto.IDGenerator
	clock             clock.Clock
	log               *logger.Logger
	tokenTTL          time.Duration
	compensationRetry db.RetryConfig
	accountBreaker    *resilience.CircuitBreaker
	tokenBreaker      *resilience.CircuitBreaker
}

func NewWorkflow(deps WorkflowDeps, config WorkflowConfig) *Workflow {
	c := deps.Clock
	if c == nil {
		c = clock.NewRealClock()
	}
	retry := config.CompensationRetry
	if retry.MaxAttempts == 0 {
		retry = db.DefaultRetryConfig
	}

	return &Workflow{
		accounts:          deps.Accounts,
		tokens:            deps.Tokens,
		notifier:          deps.Notifier,
		hasher:            deps.Hasher,
		idGenerator:       deps.IDGenerator,
		clock:             c,
		log:               deps.Log,
		tokenTTL:          config.TokenTTL,
		compensationRetry: retry,
		accountBreaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Threshold:  config.CircuitBreakerThreshold,
			Timeout:    config.CircuitBreakerTimeout,
			ResetAfter: config.CircuitBreakerReset,
			Name:       "account_store",
			IsFailure: func(err error) bool {
				return !errors.Is(err, accountrepo.ErrAccountAlreadyExists) &&
					!errors.Is(err, accountrepo.ErrAccountNotFound)
			},
			Logger: deps.Log,
		}),
		tokenBreaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Threshold:  config.CircuitBreakerThreshold,
			Timeout:    config.CircuitBreakerTimeout,
			ResetAfter: config.CircuitBreakerReset,
			Name:       "token_store",
			IsFailure: func(err error) bool {
				return !errors.Is(err, tokenstore.ErrTokenNotFound)
			},
			Logger: deps.Log,
		}),
	}
}

// Handle routes a command to its consumer. A nil or terminal result means the
// delivery may be acknowledged; a transient one means it must be redelivered.
func (w *Workflow) Handle(ctx context.Context, cmd domain.Command) error {
	var err error
	switch cmd.Kind {
	case domain.KindCreate:
		err = w.CreateAccount(ctx, cmd)
	case domain.KindIssueVerification:
		err = w.IssueVerification(ctx, cmd)
	case domain.KindApplyPasswordChange:
		err = w.ApplyPasswordChange(ctx, cmd)
	default:
		err = cmd.Validate()
	}

	if de, ok := commonerrors.AsDomainError(err); ok {
		metrics.DomainErrorsTotal.WithLabelValues(
			string(de.Category()),
			de.Code(),
			strconv.FormatBool(de.Transient()),
		).Inc()
	}
	return err
}

func (w *Workflow) findAccount(ctx context.Context, username string) (accountdomain.Account, error) {
	var account accountdomain.Account
	err := w.accountBreaker.Call(ctx, func(ctx context.Context) error {
		var findErr error
		account, findErr = w.accounts.FindByUsername(ctx, username)
		return findErr
	})
	if err != nil {
		if errors.Is(err, accountrepo.ErrAccountNotFound) {
			return account, commonerrors.ErrAccountNotFound.WithCause(err)
		}
		return account, storeError(err)
	}
	return account, nil
}

// storeError keeps already classified errors (an open circuit) and marks any
// other store failure as transient.
func storeError(err error) error {
	if commonerrors.IsDomainError(err) {
		return err
	}
	return commonerrors.ErrStoreUnavailable.WithCause(err)
}
