package messaging

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	commoncrypto "github.com/AlibekovAA/margarine/internal/common/crypto"
	"github.com/AlibekovAA/margarine/internal/common/logger"
	"github.com/AlibekovAA/margarine/internal/lifecycle/domain"
	"github.com/AlibekovAA/margarine/internal/observability/metrics"
)

type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher sends validated commands as persistent JSON messages. The request
// id doubles as the AMQP message id.
type Publisher struct {
	ch       publishChannel
	topology Topology
	ids      commoncrypto.IDGenerator
	now      func() time.Time
	log      *logger.Logger
}

func NewPublisher(ch publishChannel, topology Topology, ids commoncrypto.IDGenerator, log *logger.Logger) *Publisher {
	return &Publisher{
		ch:       ch,
		topology: topology,
		ids:      ids,
		now:      time.Now,
		log:      log,
	}
}

func (p *Publisher) Publish(ctx context.Context, cmd domain.Command) (string, error) {
	if err := cmd.Validate(); err != nil {
		return "", err
	}
	key, ok := p.topology.RoutingKey(cmd.Kind)
	if !ok {
		return "", fmt.Errorf("no routing key for kind %q", cmd.Kind)
	}

	if cmd.RequestID == "" {
		id, err := p.ids.NewID()
		if err != nil {
			return "", fmt.Errorf("failed to generate request id: %w", err)
		}
		cmd.RequestID = id
	}

	body, err := domain.Encode(cmd)
	if err != nil {
		return "", err
	}

	err = p.ch.PublishWithContext(ctx, p.topology.Exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    cmd.RequestID,
		Timestamp:    p.now(),
		Body:         body,
	})
	if err != nil {
		return "", fmt.Errorf("failed to publish %s command: %w", cmd.Kind, err)
	}

	metrics.CommandsPublished.WithLabelValues(key).Inc()
	p.log.WithFields(ctx, logger.Fields{
		"username":    cmd.Username,
		"routing_key": key,
		"request_id":  cmd.RequestID,
	}).Info("command published")
	return cmd.RequestID, nil
}
