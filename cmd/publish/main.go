package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/AlibekovAA/margarine/internal/common/bootstrap"
	commoncrypto "github.com/AlibekovAA/margarine/internal/common/crypto"
	"github.com/AlibekovAA/margarine/internal/lifecycle/domain"
	"github.com/AlibekovAA/margarine/internal/messaging"
)

func main() {
	var cmd domain.Command
	var kind string
	flag.StringVar(&kind, "kind", string(domain.KindCreate), "command kind: create, issue_verification or apply_password_change")
	flag.StringVar(&cmd.RequestID, "request-id", "", "idempotency key; generated when empty")
	flag.StringVar(&cmd.Username, "username", "", "account username")
	flag.StringVar(&cmd.Email, "email", "", "contact address (create)")
	flag.StringVar(&cmd.DisplayName, "display-name", "", "display name (create)")
	flag.StringVar(&cmd.Password, "password", "", "new password (apply_password_change)")
	flag.StringVar(&cmd.Token, "token", "", "resolved verification token (apply_password_change)")
	timeout := flag.Duration("timeout", 30*time.Second, "overall timeout")
	flag.Parse()
	cmd.Kind = domain.Kind(kind)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, cmd); err != nil {
		fmt.Fprintf(os.Stderr, "publish failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd domain.Command) error {
	app, err := bootstrap.NewPublisherApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close(context.Background()) }()

	publisher := messaging.NewPublisher(
		app.Broker.Channel,
		messaging.NewTopology(app.Config.AMQP.Exchange, app.Config.AMQP.DeadLetterExchange),
		commoncrypto.NewUUIDGenerator(),
		app.Log,
	)

	requestID, err := publisher.Publish(ctx, cmd)
	if err != nil {
		return err
	}
	fmt.Println(requestID)
	return nil
}
