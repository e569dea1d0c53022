package messaging

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/AlibekovAA/margarine/internal/lifecycle/domain"
)

const (
	QueueCreate   = "margarine.users.create"
	QueueEmail    = "margarine.users.email"
	QueuePassword = "margarine.users.password"

	RoutingKeyCreate   = "users.create"
	RoutingKeyEmail    = "users.email"
	RoutingKeyPassword = "users.password"
)

// Binding ties one durable queue to the single command kind its consumer accepts.
type Binding struct {
	Queue       string
	RoutingKey  string
	ConsumerTag string
	Kind        domain.Kind
}

type Topology struct {
	Exchange           string
	DeadLetterExchange string
	Bindings           []Binding
}

func NewTopology(exchange, deadLetterExchange string) Topology {
	return Topology{
		Exchange:           exchange,
		DeadLetterExchange: deadLetterExchange,
		Bindings: []Binding{
			{Queue: QueueCreate, RoutingKey: RoutingKeyCreate, ConsumerTag: "create", Kind: domain.KindCreate},
			{Queue: QueueEmail, RoutingKey: RoutingKeyEmail, ConsumerTag: "email", Kind: domain.KindIssueVerification},
			{Queue: QueuePassword, RoutingKey: RoutingKeyPassword, ConsumerTag: "password", Kind: domain.KindApplyPasswordChange},
		},
	}
}

func (t Topology) RoutingKey(kind domain.Kind) (string, bool) {
	for _, b := range t.Bindings {
		if b.Kind == kind {
			return b.RoutingKey, true
		}
	}
	return "", false
}

func (t Topology) queueArgs() amqp.Table {
	if t.DeadLetterExchange == "" {
		return nil
	}
	return amqp.Table{"x-dead-letter-exchange": t.DeadLetterExchange}
}

type declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// Declare is idempotent; the broker accepts redeclaration with identical arguments.
func (t Topology) Declare(ch declarer) error {
	if err := ch.ExchangeDeclare(t.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", t.Exchange, err)
	}

	args := t.queueArgs()
	for _, b := range t.Bindings {
		if _, err := ch.QueueDeclare(b.Queue, true, false, false, false, args); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", b.Queue, err)
		}
		if err := ch.QueueBind(b.Queue, b.RoutingKey, t.Exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s to %s: %w", b.Queue, b.RoutingKey, err)
		}
	}
	return nil
}
