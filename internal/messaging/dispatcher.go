package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/AlibekovAA/margarine/internal/common/constants"
	commonerrors "github.com/AlibekovAA/margarine/internal/common/errors"
	"github.com/AlibekovAA/margarine/internal/common/logger"
	"github.com/AlibekovAA/margarine/internal/lifecycle/domain"
	"github.com/AlibekovAA/margarine/internal/observability/metrics"
)

const (
	outcomeAcked    = "acked"
	outcomeDropped  = "dropped"
	outcomeRequeued = "requeued"
	outcomeRejected = "rejected"
)

var ErrConsumerClosed = errors.New("consumer delivery channel closed")

// Channel is the subset of *amqp.Channel the dispatcher needs.
type Channel interface {
	declarer
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Cancel(consumer string, noWait bool) error
}

type Handler interface {
	Handle(ctx context.Context, cmd domain.Command) error
}

type DispatcherConfig struct {
	Prefetch     int
	DrainTimeout time.Duration
}

// Dispatcher consumes every queue of the topology with manual acknowledgment.
// Each delivery runs in its own goroutine; the broker bounds concurrency
// through the prefetch count. It never retries: transient failures are
// returned to the broker.
type Dispatcher struct {
	ch       Channel
	topology Topology
	handler  Handler
	log      *logger.Logger
	config   DispatcherConfig
	inFlight sync.WaitGroup
}

func NewDispatcher(ch Channel, topology Topology, handler Handler, config DispatcherConfig, log *logger.Logger) *Dispatcher {
	if config.Prefetch <= 0 {
		config.Prefetch = constants.DefaultPrefetch
	}
	if config.DrainTimeout <= 0 {
		config.DrainTimeout = constants.DrainTimeout
	}
	return &Dispatcher{
		ch:       ch,
		topology: topology,
		handler:  handler,
		log:      log,
		config:   config,
	}
}

// Run declares the topology and consumes until ctx is cancelled or a delivery
// channel closes underneath it. On return no handler is running unless the
// drain timeout elapsed.
func (d *Dispatcher) Run(ctx context.Context) error {
	if err := d.topology.Declare(d.ch); err != nil {
		return err
	}
	if err := d.ch.Qos(d.config.Prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}

	handlerCtx := context.WithoutCancel(ctx)
	closed := make(chan error, len(d.topology.Bindings))
	var consumers sync.WaitGroup
	var started []Binding

	for _, b := range d.topology.Bindings {
		deliveries, err := d.ch.Consume(b.Queue, b.ConsumerTag, false, false, false, false, nil)
		if err != nil {
			d.cancelConsumers(started)
			consumers.Wait()
			d.drain()
			return fmt.Errorf("failed to consume %s: %w", b.Queue, err)
		}
		started = append(started, b)

		consumers.Add(1)
		go func(b Binding, deliveries <-chan amqp.Delivery) {
			defer consumers.Done()
			d.consume(ctx, handlerCtx, b, deliveries, closed)
		}(b, deliveries)

		d.log.Infof("consuming queue=%s routing_key=%s consumer=%s", b.Queue, b.RoutingKey, b.ConsumerTag)
	}

	var runErr error
	select {
	case <-ctx.Done():
		d.log.Info("dispatcher shutting down")
	case runErr = <-closed:
		d.log.Errorf("dispatcher stopping: %v", runErr)
	}

	d.cancelConsumers(started)
	consumers.Wait()
	d.drain()
	return runErr
}

func (d *Dispatcher) consume(ctx, handlerCtx context.Context, b Binding, deliveries <-chan amqp.Delivery, closed chan<- error) {
	for {
		select {
		case <-ctx.Done():
			return
		case dlv, ok := <-deliveries:
			if !ok {
				if ctx.Err() == nil {
					closed <- fmt.Errorf("%w: %s", ErrConsumerClosed, b.Queue)
				}
				return
			}
			d.inFlight.Add(1)
			go func() {
				defer d.inFlight.Done()
				d.handle(handlerCtx, b, dlv)
			}()
		}
	}
}

func (d *Dispatcher) cancelConsumers(bindings []Binding) {
	for _, b := range bindings {
		if err := d.ch.Cancel(b.ConsumerTag, false); err != nil {
			d.log.Warnf("failed to cancel consumer %s: %v", b.ConsumerTag, err)
		}
	}
}

func (d *Dispatcher) drain() {
	done := make(chan struct{})
	go func() {
		d.inFlight.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(d.config.DrainTimeout):
		d.log.Warnf("in-flight deliveries did not finish within %v", d.config.DrainTimeout)
	}
}

func (d *Dispatcher) handle(ctx context.Context, b Binding, dlv amqp.Delivery) {
	metrics.DeliveriesInFlight.Inc()
	defer metrics.DeliveriesInFlight.Dec()
	start := time.Now()

	ctx = context.WithValue(ctx, constants.TraceIDKey, traceID(dlv))
	fields := logger.Fields{
		"queue":       b.Queue,
		"redelivered": dlv.Redelivered,
	}

	outcome := d.process(ctx, b, dlv, fields)

	metrics.DeliveriesTotal.WithLabelValues(b.Queue, outcome).Inc()
	metrics.DeliveryDurationSeconds.WithLabelValues(b.Queue).Observe(time.Since(start).Seconds())
}

func (d *Dispatcher) process(ctx context.Context, b Binding, dlv amqp.Delivery, fields logger.Fields) string {
	cmd, err := domain.Decode(dlv.Body)
	if err == nil && cmd.Kind != b.Kind {
		err = fmt.Errorf("command kind %q does not belong on queue %s", cmd.Kind, b.Queue)
	}
	if err != nil {
		d.log.WithFields(ctx, fields).Errorf("rejecting undecodable delivery: %v", err)
		d.settle(ctx, fields, "reject", dlv.Reject(false))
		return outcomeRejected
	}

	// A message id that would not pass request_id validation is left out
	// rather than turning a valid command into an invalid one.
	if cmd.RequestID == "" && len(dlv.MessageId) <= constants.RequestIDMaxLength {
		cmd.RequestID = dlv.MessageId
	}
	fields["username"] = cmd.Username

	err = d.handler.Handle(ctx, cmd)
	switch {
	case err == nil:
		d.settle(ctx, fields, "ack", dlv.Ack(false))
		return outcomeAcked
	case commonerrors.IsTransient(err):
		d.log.WithFields(ctx, fields).Warnf("requeueing delivery after transient failure: %v", err)
		d.settle(ctx, fields, "nack", dlv.Nack(false, true))
		return outcomeRequeued
	default:
		d.log.WithFields(ctx, fields).Errorf("dropping delivery after terminal failure: %v", err)
		d.settle(ctx, fields, "ack", dlv.Ack(false))
		return outcomeDropped
	}
}

func (d *Dispatcher) settle(ctx context.Context, fields logger.Fields, op string, err error) {
	if err != nil {
		d.log.WithFields(ctx, fields).Errorf("failed to %s delivery: %v", op, err)
	}
}

func traceID(dlv amqp.Delivery) string {
	if dlv.MessageId != "" {
		return dlv.MessageId
	}
	if dlv.CorrelationId != "" {
		return dlv.CorrelationId
	}
	return uuid.NewString()
}
