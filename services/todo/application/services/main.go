package services

import (
	"github.com/ghuser/todolist/pkg/app"
	"github.com/ghuser/todolist/pkg/cache"
	"github.com/ghuser/todolist/pkg/config"
	"github.com/ghuser/todolist/services/todo/domain/repositories"
	"github.com/ghuser/todolist/services/todo/infrastructure/persistence/postgres"
)

// Services is the application-layer service container for this bounded context.
// It wires domain services with their infrastructure implementations.
type Services struct {
	Todo *TodoService
}

// New wires the todo command layer with infrastructure from the Application container.
func New(a *app.Application) *Services {
	store := postgres.NewTodoStore(a.Db, a.EventBus)

	var (
		items     ItemCache
		snapshots SnapshotCache
	)
	if a.Redis != nil {
		items = cache.NewTodoCache(a.Redis)
		snapshots = cache.NewListCache(a.Redis, a.Config.TodoSnapshotTTL)
	}

	return &Services{
		Todo: NewTodoService(store, items, snapshots, a.Metrics, a.Logger, OptionsFromConfig(a.Config)),
	}
}

// OptionsFromConfig maps the TODO_* settings onto command Options.
func OptionsFromConfig(cfg *config.Config) Options {
	order := repositories.Ascending
	if cfg.Descending() {
		order = repositories.Descending
	}
	return Options{
		Order:        order,
		EnableDelete: cfg.TodoEnableDelete,
		Refresh:      RefreshStrategy(cfg.TodoViewRefresh),
	}
}
