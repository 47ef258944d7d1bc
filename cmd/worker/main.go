package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/ghuser/todolist/pkg/app"
	"github.com/ghuser/todolist/pkg/cache"
	"github.com/ghuser/todolist/pkg/config"
	"github.com/ghuser/todolist/pkg/events"
	"github.com/ghuser/todolist/pkg/logger"
	"github.com/ghuser/todolist/pkg/telemetry"
	todoEvents "github.com/ghuser/todolist/services/todo/domain/events"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := config.ValidateForProduction(cfg); err != nil {
		slog.Error("production config validation failed", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, _, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		log.Error("failed to setup otel", "error", err)
		os.Exit(1)
	}
	defer otelShutdown(context.Background()) //nolint:errcheck

	if err := telemetry.SetupSentry(cfg); err != nil {
		log.Warn("failed to setup sentry, continuing without crash reporting", "error", err)
	}
	defer telemetry.SentryFlush()

	eventBus, err := events.NewEventBus(cfg, log)
	if err != nil {
		log.Error("failed to setup event bus", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	defer eventBus.Close() //nolint:errcheck

	redisClient, err := cache.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	defer redisClient.Close() //nolint:errcheck
	log.Info("redis connected")

	appConfig := &app.Application{
		Config:   cfg,
		Logger:   log,
		EventBus: eventBus,
		Redis:    redisClient,
	}

	if err := eventBus.SubscribeAll(ctx, subscribers(appConfig)); err != nil {
		log.Error("failed to register subscribers", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	log.Info("event subscribers registered", "topics", todoEvents.Topics)

	<-ctx.Done()

	// EventBus.Close() (via defer) waits up to 30s for in-flight handlers.
	log.Info("shutting down worker...")
}

// subscribers maps each todo topic to a handler that evicts the todo from the
// item cache. Topics are consumed independently, so events for one id can
// arrive in any order; eviction is the only write that is correct in every
// order. Reads refill the cache from the store.
func subscribers(a *app.Application) map[string]events.Handler {
	c := cache.NewTodoCache(a.Redis)
	handlers := make(map[string]events.Handler, len(todoEvents.Topics))
	for _, topic := range todoEvents.Topics {
		handlers[topic] = evictTodo(c, a.Logger, topic)
	}
	return handlers
}

// todoInvalidator is the slice of cache.TodoCache the handlers use.
type todoInvalidator interface {
	Invalidate(ctx context.Context, id uuid.UUID) error
}

// todoRef is the part every todo event payload shares.
type todoRef struct {
	TodoID uuid.UUID `json:"todo_id"`
}

// evictTodo invalidates the todo named by the event. A cache failure is
// retried by the bus; an undecodable payload is not recoverable and fails.
func evictTodo(c todoInvalidator, log logger.Logger, topic string) events.Handler {
	return func(ctx context.Context, msg *message.Message) error {
		var ref todoRef
		if err := json.Unmarshal(msg.Payload, &ref); err != nil {
			return fmt.Errorf("decode %s: %w", topic, err)
		}
		if ref.TodoID == uuid.Nil {
			return fmt.Errorf("decode %s: missing todo_id", topic)
		}

		if err := c.Invalidate(ctx, ref.TodoID); err != nil {
			log.WarnContext(ctx, "cache evict failed", "topic", topic, "todo_id", ref.TodoID, "error", err)
			return err
		}
		log.DebugContext(ctx, "cache evicted", "topic", topic, "todo_id", ref.TodoID)
		return nil
	}
}
