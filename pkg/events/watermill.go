// Package events carries todo domain events through PostgreSQL using
// Watermill's SQL transport.
//
// Events are written by the todo store inside the same transaction as the row
// change (see NewTxPublisher). In forwarder mode the transaction only appends an
// envelope to an outbox queue, and a Forwarder daemon delivers it to the real
// topic after commit. Subscribers sharing a ServiceName form one consumer
// group, so each event is handled by a single worker instance.
//
// A failing handler is retried with exponential backoff and then Nacked.
// Handlers must therefore tolerate redelivery and arbitrary ordering across
// topics. The W3C trace context travels in message metadata.
package events

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	watermillsql "github.com/ThreeDotsLabs/watermill-sql/v3/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/components/forwarder"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/ghuser/todolist/pkg/config"
	"github.com/ghuser/todolist/pkg/logger"
)

const (
	maxRetries      = 3
	retryBaseDelay  = time.Second
	shutdownTimeout = 30 * time.Second
	errBuffer       = 100

	forwarderTopic = "_forwarder_queue"
	forwarderGroup = "forwarder-consumer"
)

// EventBus owns the SQL subscriber, the optional forwarder, and the handler
// goroutines started by Subscribe.
type EventBus struct {
	subscriber   *watermillsql.Subscriber
	fwd          *forwarder.Forwarder
	db           *sql.DB
	log          logger.Logger
	wlog         watermill.LoggerAdapter
	wg           sync.WaitGroup
	useForwarder bool
}

// Handler processes one message. Returning an error triggers a retry.
type Handler func(context.Context, *message.Message) error

// NewEventBus opens its own connection to cfg.DatabaseURL for subscribing.
// Used by the worker.
func NewEventBus(cfg *config.Config, log logger.Logger) (*EventBus, error) {
	return newEventBus(cfg, log, false)
}

// NewEventBusWithForwarder is used by the API process: transactional publishes
// are enveloped into the outbox queue and delivered by the Forwarder once
// StartForwarder has been called.
func NewEventBusWithForwarder(cfg *config.Config, log logger.Logger) (*EventBus, error) {
	return newEventBus(cfg, log, true)
}

func newEventBus(cfg *config.Config, log logger.Logger, useForwarder bool) (*EventBus, error) {
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("events: open db: %w", err)
	}

	wlog := &slogAdapter{log: log}
	sub, err := watermillsql.NewSubscriber(db, subscriberConfig(cfg.ServiceName+"-consumer"), wlog)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("events: new subscriber: %w", err)
	}

	return &EventBus{
		subscriber:   sub,
		db:           db,
		log:          log,
		wlog:         wlog,
		useForwarder: useForwarder,
	}, nil
}

func subscriberConfig(group string) watermillsql.SubscriberConfig {
	return watermillsql.SubscriberConfig{
		SchemaAdapter:    watermillsql.DefaultPostgreSQLSchema{},
		OffsetsAdapter:   watermillsql.DefaultPostgreSQLOffsetsAdapter{},
		InitializeSchema: true,
		ConsumerGroup:    group,
	}
}

func publisherConfig(autoInitialize bool) watermillsql.PublisherConfig {
	return watermillsql.PublisherConfig{
		SchemaAdapter:        watermillsql.DefaultPostgreSQLSchema{},
		AutoInitializeSchema: autoInitialize,
	}
}

// StartForwarder runs the Forwarder daemon until ctx ends or the bus is
// closed. It returns once the daemon is consuming. Only valid on a bus built
// with NewEventBusWithForwarder, and only once.
func (q *EventBus) StartForwarder(ctx context.Context) error {
	switch {
	case !q.useForwarder:
		return fmt.Errorf("events: StartForwarder called on non-forwarder EventBus")
	case q.fwd != nil:
		return fmt.Errorf("events: forwarder already started")
	}

	outbox, err := watermillsql.NewSubscriber(q.db, subscriberConfig(forwarderGroup), q.wlog)
	if err != nil {
		return fmt.Errorf("events: new forwarder subscriber: %w", err)
	}
	target, err := watermillsql.NewPublisher(q.db, publisherConfig(true), q.wlog)
	if err != nil {
		_ = outbox.Close()
		return fmt.Errorf("events: new forwarder target publisher: %w", err)
	}

	fwd, err := forwarder.NewForwarder(outbox, target, q.wlog, forwarder.Config{ForwarderTopic: forwarderTopic})
	if err != nil {
		_ = target.Close()
		_ = outbox.Close()
		return fmt.Errorf("events: create forwarder: %w", err)
	}
	q.fwd = fwd

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.log.InfoContext(ctx, "events: forwarder started")
		if err := fwd.Run(ctx); err != nil {
			q.log.ErrorContext(ctx, "events: forwarder stopped with error", "error", err)
			return
		}
		q.log.InfoContext(ctx, "events: forwarder stopped")
	}()

	select {
	case <-fwd.Running():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("events: context cancelled waiting for forwarder: %w", ctx.Err())
	}
}

// NewTxPublisher returns a Publisher that writes inside tx, so an event exists
// exactly when the row change it describes was committed. The trace context
// of ctx is stamped on every message.
//
// The schema is not auto-initialized inside tx: the outbox table is created by
// StartForwarder and topic tables by the worker's subscriptions.
func (q *EventBus) NewTxPublisher(ctx context.Context, tx *sql.Tx) (message.Publisher, error) {
	pub, err := watermillsql.NewPublisher(tx, publisherConfig(false), q.wlog)
	if err != nil {
		return nil, fmt.Errorf("events: new tx publisher: %w", err)
	}

	var next message.Publisher = pub
	if q.useForwarder {
		next = forwarder.NewPublisher(pub, forwarder.PublisherConfig{ForwarderTopic: forwarderTopic})
	}
	return &tracePublisher{ctx: ctx, next: next}, nil
}

// tracePublisher injects the trace context of ctx before delegating.
type tracePublisher struct {
	ctx  context.Context
	next message.Publisher
}

func (p *tracePublisher) Publish(topic string, msgs ...*message.Message) error {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(p.ctx, carrier)
	for _, msg := range msgs {
		for k, v := range carrier {
			msg.Metadata.Set(k, v)
		}
	}
	return p.next.Publish(topic, msgs...)
}

func (p *tracePublisher) Close() error {
	return p.next.Close()
}

// Subscribe consumes topic in a goroutine, calling handler with the
// publisher's trace restored. A handler error is retried maxRetries times;
// after that the message is Nacked and the error is sent on the returned
// channel (buffered, dropped with a log line when full). The channel is closed
// when the subscription ends and must be drained; SubscribeAll does that.
func (q *EventBus) Subscribe(ctx context.Context, topic string, handler Handler) (<-chan error, error) {
	msgs, err := q.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("events: subscribe to %s: %w", topic, err)
	}

	errCh := make(chan error, errBuffer)
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		defer close(errCh)
		for msg := range msgs {
			q.dispatch(ctx, topic, msg, handler, errCh)
		}
	}()
	return errCh, nil
}

func (q *EventBus) dispatch(ctx context.Context, topic string, msg *message.Message, handler Handler, errCh chan<- error) {
	msgCtx := otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(msg.Metadata))

	err := retryWithBackoff(msgCtx, msg, handler, maxRetries, retryBaseDelay, q.log)
	if err == nil {
		msg.Ack()
		return
	}
	msg.Nack()
	select {
	case errCh <- err:
	default:
		q.log.ErrorContext(msgCtx, "events: error channel full, dropping error", "error", err, "topic", topic)
	}
}

// SubscribeAll subscribes each topic in handlers and drains its error channel
// into the logger. It stops at the first subscription that fails.
func (q *EventBus) SubscribeAll(ctx context.Context, handlers map[string]Handler) error {
	for topic, handler := range handlers {
		errCh, err := q.Subscribe(ctx, topic, handler)
		if err != nil {
			return err
		}
		go drainErrors(ctx, q.log, topic, errCh)
	}
	return nil
}

func drainErrors(ctx context.Context, log logger.Logger, topic string, errCh <-chan error) {
	for err := range errCh {
		log.ErrorContext(ctx, "subscriber error", "topic", topic, "error", err)
	}
}

// retryWithBackoff calls handler up to attempts times, doubling the pause
// after each failure. It gives up early when ctx ends.
func retryWithBackoff(
	ctx context.Context,
	msg *message.Message,
	handler Handler,
	attempts int,
	delay time.Duration,
	log logger.Logger,
) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = handler(ctx, msg); err == nil {
			return nil
		}
		if attempt == attempts {
			return fmt.Errorf("events: handler failed after %d retries: %w", attempts, err)
		}
		log.WarnContext(ctx, "events: handler failed, retrying",
			"attempt", attempt,
			"max_retries", attempts,
			"next_delay", delay,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}

// Ping checks the EventBus database connection health.
func (q *EventBus) Ping(ctx context.Context) error {
	if err := q.db.PingContext(ctx); err != nil {
		return fmt.Errorf("events: ping db: %w", err)
	}
	return nil
}

// Close stops consuming, stops the forwarder, waits up to shutdownTimeout for
// in-flight handlers and then closes the connection.
func (q *EventBus) Close() error {
	if err := q.subscriber.Close(); err != nil {
		return fmt.Errorf("events: close subscriber: %w", err)
	}
	if q.fwd != nil {
		if err := q.fwd.Close(); err != nil {
			return fmt.Errorf("events: close forwarder: %w", err)
		}
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		q.log.Error("events: timed out waiting for in-flight handlers to complete")
	}

	return q.db.Close()
}

// slogAdapter bridges logger.Logger to watermill.LoggerAdapter.
type slogAdapter struct{ log logger.Logger }

func (a *slogAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.log.Error(msg, append(fieldsToArgs(fields), "error", err)...)
}
func (a *slogAdapter) Info(msg string, fields watermill.LogFields) {
	a.log.Info(msg, fieldsToArgs(fields)...)
}
func (a *slogAdapter) Debug(msg string, fields watermill.LogFields) {
	a.log.Debug(msg, fieldsToArgs(fields)...)
}
func (a *slogAdapter) Trace(msg string, fields watermill.LogFields) {
	a.log.Debug(msg, fieldsToArgs(fields)...)
}
func (a *slogAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &slogAdapter{log: a.log.With(fieldsToArgs(fields)...)}
}

func fieldsToArgs(fields watermill.LogFields) []any {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return args
}
