package main

import (
	"context"
	"fmt"
	"os"

	"github.com/AlibekovAA/margarine/internal/common/bootstrap"
	"github.com/AlibekovAA/margarine/internal/common/clock"
	"github.com/AlibekovAA/margarine/internal/common/constants"
	commoncrypto "github.com/AlibekovAA/margarine/internal/common/crypto"
	"github.com/AlibekovAA/margarine/internal/common/db"
	commonhttp "github.com/AlibekovAA/margarine/internal/common/http"
	srv "github.com/AlibekovAA/margarine/internal/common/server"
	"github.com/AlibekovAA/margarine/internal/lifecycle/service"
	"github.com/AlibekovAA/margarine/internal/messaging"
)

func main() {
	ctx, stop := srv.SignalContext(context.Background())
	defer stop()

	app, err := bootstrap.NewWorkerApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start worker: %v\n", err)
		os.Exit(1)
	}
	log := app.Log
	cfg := app.Config

	workflow := service.NewWorkflow(
		service.WorkflowDeps{
			Accounts:    app.Accounts,
			Tokens:      app.Tokens,
			Notifier:    app.Notifier,
			Hasher:      commoncrypto.NewBcryptHasher(),
			IDGenerator: commoncrypto.NewUUIDGenerator(),
			Clock:       clock.NewRealClock(),
			Log:         log,
		},
		service.WorkflowConfig{
			TokenTTL:                cfg.VerificationTokenTTL,
			CircuitBreakerThreshold: cfg.CircuitBreakerThreshold,
			CircuitBreakerTimeout:   cfg.CircuitBreakerTimeout,
			CircuitBreakerReset:     cfg.CircuitBreakerReset,
			CompensationRetry:       db.DefaultRetryConfig,
		},
	)

	dispatcher := messaging.NewDispatcher(
		app.Broker.Channel,
		messaging.NewTopology(cfg.AMQP.Exchange, cfg.AMQP.DeadLetterExchange),
		workflow,
		messaging.DispatcherConfig{
			Prefetch:     cfg.AMQP.Prefetch,
			DrainTimeout: constants.DrainTimeout,
		},
		log,
	)

	dispatchCtx, cancelDispatch := context.WithCancel(ctx)
	dispatched := make(chan error, 1)
	go func() {
		err := dispatcher.Run(dispatchCtx)
		if err != nil {
			log.Errorf("dispatcher failed: %v", err)
		}
		dispatched <- err
		stop()
	}()

	exitCode := 0
	hooks := []srv.ShutdownHook{
		func(ctx context.Context) error {
			cancelDispatch()
			select {
			case err := <-dispatched:
				if err != nil {
					exitCode = 1
				}
				return err
			case <-ctx.Done():
				exitCode = 1
				return fmt.Errorf("dispatcher did not stop: %w", ctx.Err())
			}
		},
		func(ctx context.Context) error {
			return app.Close(ctx)
		},
	}

	server := srv.NewServer(cfg.MetricsPort, commonhttp.BuildOpsHandler(log, app.HealthChecks()))
	log.Infof("worker started: exchange=%s prefetch=%d token_ttl=%v", cfg.AMQP.Exchange, cfg.AMQP.Prefetch, cfg.VerificationTokenTTL)
	srv.StartWithGracefulShutdownAndHooks(ctx, server, log, "worker", hooks)

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
