package messaging

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/AlibekovAA/margarine/internal/common/constants"
	"github.com/AlibekovAA/margarine/internal/common/logger"
)

// Dial connects to the broker, retrying while it comes up.
func Dial(ctx context.Context, log *logger.Logger, url string) (*amqp.Connection, error) {
	var err error
	for attempt := 1; attempt <= constants.AMQPDialMaxAttempts; attempt++ {
		var conn *amqp.Connection
		conn, err = amqp.DialConfig(url, amqp.Config{
			Heartbeat:  10 * time.Second,
			Properties: amqp.Table{"connection_name": "margarine-worker"},
		})
		if err == nil {
			log.Info("connected to message broker")
			return conn, nil
		}

		log.Warnf("failed to connect to message broker (attempt %d/%d): %v", attempt, constants.AMQPDialMaxAttempts, err)

		if attempt == constants.AMQPDialMaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(constants.AMQPDialRetryDelay):
		}
	}
	return nil, fmt.Errorf("failed to connect to message broker: %w", err)
}

// Session owns one connection and one channel. Close releases both.
type Session struct {
	Conn    *amqp.Connection
	Channel *amqp.Channel
}

func OpenSession(ctx context.Context, log *logger.Logger, url string) (*Session, error) {
	conn, err := Dial(ctx, log, url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	return &Session{Conn: conn, Channel: ch}, nil
}

func (s *Session) Healthy() error {
	if s.Conn.IsClosed() {
		return fmt.Errorf("broker connection closed")
	}
	return nil
}

func (s *Session) Close() error {
	chErr := s.Channel.Close()
	connErr := s.Conn.Close()
	if connErr != nil {
		return connErr
	}
	return chErr
}
