package app

import (
	"github.com/gorilla/sessions"

	"github.com/ghuser/todolist/pkg/cache"
	"github.com/ghuser/todolist/pkg/config"
	"github.com/ghuser/todolist/pkg/database"
	"github.com/ghuser/todolist/pkg/events"
	"github.com/ghuser/todolist/pkg/logger"
	"github.com/ghuser/todolist/pkg/telemetry"
)

// Application holds shared infrastructure dependencies for all services.
// Pass it to each service's route registration during server initialization.
//
// Logging: app.Logger is backed by a trace-aware handler; use slog's context methods
// and trace_id, span_id, and request_id are injected automatically:
//
//	app.Logger.InfoContext(ctx, "todo added", "todo_id", id)
//	app.Logger.ErrorContext(ctx, "failed to save", "error", err)
//
// Use app.Logger.Info/Error (no context) only for startup and shutdown messages.
type Application struct {
	Config       *config.Config
	Db           *database.Database
	Logger       logger.Logger
	EventBus     *events.EventBus
	Redis        *cache.RedisClient
	SessionStore sessions.Store // Redis-backed session store; nil in worker process
	Metrics      *telemetry.CommandMetrics
}
