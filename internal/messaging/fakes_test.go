package messaging

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/AlibekovAA/margarine/internal/common/constants"
	"github.com/AlibekovAA/margarine/internal/lifecycle/domain"
)

type fakeChannel struct {
	mu         sync.Mutex
	exchanges  []string
	queues     map[string]amqp.Table
	bindings   map[string]string
	prefetch   int
	deliveries map[string]chan amqp.Delivery
	cancelled  []string
	consumeErr error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		queues:     make(map[string]amqp.Table),
		bindings:   make(map[string]string),
		deliveries: make(map[string]chan amqp.Delivery),
	}
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanges = append(f.exchanges, name+":"+kind)
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queues[name] = args
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bindings[name] = key
	return nil
}

func (f *fakeChannel) Qos(prefetchCount, prefetchSize int, global bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefetch = prefetchCount
	return nil
}

func (f *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.consumeErr != nil {
		return nil, f.consumeErr
	}
	ch := make(chan amqp.Delivery, 16)
	f.deliveries[consumer] = ch
	return ch, nil
}

func (f *fakeChannel) Cancel(consumer string, noWait bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, consumer)
	if ch, ok := f.deliveries[consumer]; ok {
		close(ch)
		delete(f.deliveries, consumer)
	}
	return nil
}

func (f *fakeChannel) deliver(consumer string, dlv amqp.Delivery) {
	f.mu.Lock()
	ch := f.deliveries[consumer]
	f.mu.Unlock()
	ch <- dlv
}

func (f *fakeChannel) consumerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deliveries)
}

// closeConsumer simulates the broker dropping a consumer.
func (f *fakeChannel) closeConsumer(consumer string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.deliveries[consumer]; ok {
		close(ch)
		delete(f.deliveries, consumer)
	}
}

type settlement struct {
	op      string
	requeue bool
}

type fakeAcknowledger struct {
	mu      sync.Mutex
	settled map[uint64]settlement
	done    chan uint64
}

func newFakeAcknowledger() *fakeAcknowledger {
	return &fakeAcknowledger{
		settled: make(map[uint64]settlement),
		done:    make(chan uint64, 64),
	}
}

func (a *fakeAcknowledger) record(tag uint64, s settlement) error {
	a.mu.Lock()
	a.settled[tag] = s
	a.mu.Unlock()
	a.done <- tag
	return nil
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	return a.record(tag, settlement{op: "ack"})
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	return a.record(tag, settlement{op: "nack", requeue: requeue})
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.record(tag, settlement{op: "reject", requeue: requeue})
}

func (a *fakeAcknowledger) get(tag uint64) settlement {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.settled[tag]
}

type mockHandler struct {
	mu         sync.Mutex
	handleFunc func(ctx context.Context, cmd domain.Command) error
	handled    []domain.Command
	traceIDs   []string
}

func (m *mockHandler) Handle(ctx context.Context, cmd domain.Command) error {
	m.mu.Lock()
	m.handled = append(m.handled, cmd)
	if id, ok := ctx.Value(constants.TraceIDKey).(string); ok {
		m.traceIDs = append(m.traceIDs, id)
	}
	m.mu.Unlock()
	if m.handleFunc != nil {
		return m.handleFunc(ctx, cmd)
	}
	return nil
}

func (m *mockHandler) commands() []domain.Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Command(nil), m.handled...)
}

type fakePublishChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
}

func (f *fakePublishChannel) PublishWithContext(_ context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.exchange = exchange
	f.key = key
	f.msg = msg
	return f.err
}
