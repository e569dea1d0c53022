package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"

	accountrepo "github.com/AlibekovAA/margarine/internal/account/repository"
	"github.com/AlibekovAA/margarine/internal/common/clock"
	"github.com/AlibekovAA/margarine/internal/common/config"
	"github.com/AlibekovAA/margarine/internal/common/constants"
	"github.com/AlibekovAA/margarine/internal/common/db"
	commonhttp "github.com/AlibekovAA/margarine/internal/common/http"
	"github.com/AlibekovAA/margarine/internal/common/logger"
	"github.com/AlibekovAA/margarine/internal/messaging"
	"github.com/AlibekovAA/margarine/internal/notification"
	"github.com/AlibekovAA/margarine/internal/verification/cleanup"
	tokenstore "github.com/AlibekovAA/margarine/internal/verification/store"
)

type closer func(ctx context.Context) error

// resources releases everything it acquired, newest first.
type resources struct {
	closers []closer
}

func (r *resources) add(c closer) {
	r.closers = append(r.closers, c)
}

func (r *resources) Close(ctx context.Context) error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

type WorkerApp struct {
	resources
	Log      *logger.Logger
	Config   config.WorkerConfig
	Accounts accountrepo.Repository
	Tokens   tokenstore.TokenStore
	Notifier notification.Notifier
	Broker   *messaging.Session
}

type PublisherApp struct {
	resources
	Log    *logger.Logger
	Config config.PublisherConfig
	Broker *messaging.Session
}

// NewWorkerApp opens every store the worker needs. Background goroutines it
// starts stop when ctx is cancelled; Close releases connections.
func NewWorkerApp(ctx context.Context) (*WorkerApp, error) {
	log, err := initializeLogger("worker")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.LoadWorkerConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	app := &WorkerApp{Log: log, Config: cfg}
	app.add(func(context.Context) error { return log.Close() })

	if err := app.initialize(ctx); err != nil {
		_ = app.Close(context.Background())
		return nil, err
	}
	return app, nil
}

func (a *WorkerApp) initialize(ctx context.Context) error {
	accounts, err := openAccountStore(ctx, a.Log, a.Config.DatastoreURL, &a.resources)
	if err != nil {
		return err
	}
	a.Accounts = accounts

	tokens, err := openTokenStore(ctx, a.Log, a.Config.TokenStoreURL, &a.resources)
	if err != nil {
		return err
	}
	a.Tokens = tokens

	notifier, err := newNotifier(a.Config, a.Log)
	if err != nil {
		return err
	}
	a.Notifier = notifier

	session, err := messaging.OpenSession(ctx, a.Log, a.Config.AMQP.URL)
	if err != nil {
		return err
	}
	a.Broker = session
	a.add(func(context.Context) error { return session.Close() })
	return nil
}

func (a *WorkerApp) HealthChecks() map[string]commonhttp.HealthCheck {
	return map[string]commonhttp.HealthCheck{
		"account_store": a.Accounts.Ping,
		"token_store":   a.Tokens.Ping,
		"broker": func(context.Context) error {
			return a.Broker.Healthy()
		},
	}
}

func NewPublisherApp(ctx context.Context) (*PublisherApp, error) {
	log, err := initializeLogger("publish")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.LoadPublisherConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	session, err := messaging.OpenSession(ctx, log, cfg.AMQP.URL)
	if err != nil {
		return nil, err
	}

	app := &PublisherApp{Log: log, Config: cfg, Broker: session}
	app.add(func(context.Context) error { return log.Close() })
	app.add(func(context.Context) error { return session.Close() })
	return app, nil
}

func openAccountStore(ctx context.Context, log *logger.Logger, url string, res *resources) (accountrepo.Repository, error) {
	kind, err := config.DatastoreKind(url)
	if err != nil {
		return nil, err
	}

	switch kind {
	case config.StoreMongo:
		client, database, err := db.NewMongoClient(ctx, log, url)
		if err != nil {
			return nil, err
		}
		res.add(client.Disconnect)

		repo := accountrepo.NewMongoRepository(database.Collection(constants.AccountsCollection))
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure account indexes: %w", err)
		}
		return repo, nil
	default:
		pool, err := db.NewPool(ctx, log, url)
		if err != nil {
			return nil, err
		}
		res.add(func(context.Context) error {
			pool.Close()
			return nil
		})
		db.StartPoolMetrics(ctx, pool, constants.DBPoolMetricsInterval)

		repo := accountrepo.NewPostgresRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure account schema: %w", err)
		}
		return repo, nil
	}
}

func openTokenStore(ctx context.Context, log *logger.Logger, url string, res *resources) (tokenstore.TokenStore, error) {
	kind, err := config.TokenStoreKind(url)
	if err != nil {
		return nil, err
	}

	switch kind {
	case config.StoreRedis:
		client, err := db.NewRedisClient(ctx, log, url)
		if err != nil {
			return nil, err
		}
		res.add(func(context.Context) error { return client.Close() })
		db.StartRedisPoolMetrics(ctx, client, constants.DBPoolMetricsInterval)
		return tokenstore.NewRedisStore(client), nil
	default:
		log.Warn("using in-memory token store; tokens do not survive a restart")
		store := tokenstore.NewMemoryStore(clock.NewRealClock())
		go cleanup.StartTokenSweep(ctx, store, constants.MemoryTokenSweepInterval, log)
		return store, nil
	}
}

func newNotifier(cfg config.WorkerConfig, log *logger.Logger) (notification.Notifier, error) {
	links, err := notification.NewLinkBuilder(cfg.VerificationURL)
	if err != nil {
		return nil, err
	}
	if !cfg.SMTP.Enabled() {
		log.Warn("SMTP_HOST not set; verification links are only logged")
		return notification.NewLogNotifier(links, log), nil
	}
	return notification.NewSMTPNotifier(cfg.SMTP, links, log)
}

func initializeLogger(serviceName string) (*logger.Logger, error) {
	return logger.New(os.Getenv("LOG_DIR"), serviceName, os.Getenv("LOG_LEVEL"))
}
