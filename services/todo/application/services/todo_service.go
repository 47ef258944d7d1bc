package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	pkgcache "github.com/ghuser/todolist/pkg/cache"
	"github.com/ghuser/todolist/pkg/logger"
	"github.com/ghuser/todolist/pkg/telemetry"
	tododomain "github.com/ghuser/todolist/services/todo/domain"
	"github.com/ghuser/todolist/services/todo/domain/models"
	"github.com/ghuser/todolist/services/todo/domain/repositories"
	domainsvcs "github.com/ghuser/todolist/services/todo/domain/services"
)

var tracer = otel.Tracer("github.com/ghuser/todolist/services/todo/application/services")

// RefreshStrategy selects how the View's list is brought back in line with the
// store after a successful mutation.
type RefreshStrategy string

const (
	// RefreshRefetch replaces the list with a fresh Select.
	RefreshRefetch RefreshStrategy = "refetch"
	// RefreshPatch applies the mutation to the cached list, then reconciles
	// with a Select. A failed reconcile keeps the patched list.
	RefreshPatch RefreshStrategy = "patch"
)

// Options configures list ordering, delete availability and refresh strategy.
type Options struct {
	Order        repositories.SortOrder
	EnableDelete bool
	Refresh      RefreshStrategy
}

// View is the transient state behind one rendering of the page: the cached
// list and the add-form draft. Commands mutate it only after the store call
// succeeds.
type View struct {
	Todos []models.Todo
	Draft string
	// Stale is set while Todos comes from the snapshot rather than a fetch.
	Stale bool
}

// ItemCache is the per-todo read-through cache used by Get. Fill must refuse
// to write when Invalidate ran for the id after version was read.
type ItemCache interface {
	Get(ctx context.Context, id uuid.UUID) (*pkgcache.CachedTodo, error)
	Version(ctx context.Context, id uuid.UUID) (int64, error)
	Fill(ctx context.Context, todo *pkgcache.CachedTodo, version int64) (bool, error)
	Invalidate(ctx context.Context, id uuid.UUID) error
}

// SnapshotCache keeps the last fetched list for the next page load.
type SnapshotCache interface {
	Load(ctx context.Context) ([]pkgcache.CachedTodo, error)
	Save(ctx context.Context, todos []pkgcache.CachedTodo) error
}

// TodoService is the command layer: each command is one store call followed,
// on success, by a refresh of the View.
type TodoService struct {
	store     repositories.TodoStore
	items     ItemCache
	snapshots SnapshotCache
	metrics   *telemetry.CommandMetrics
	log       logger.Logger
	opts      Options
}

// NewTodoService returns a TodoService. items, snapshots and metrics may be nil.
func NewTodoService(
	store repositories.TodoStore,
	items ItemCache,
	snapshots SnapshotCache,
	metrics *telemetry.CommandMetrics,
	log logger.Logger,
	opts Options,
) *TodoService {
	if opts.Refresh == "" {
		opts.Refresh = RefreshRefetch
	}
	return &TodoService{
		store:     store,
		items:     items,
		snapshots: snapshots,
		metrics:   metrics,
		log:       log,
		opts:      opts,
	}
}

// DeleteEnabled reports whether Delete is available.
func (s *TodoService) DeleteEnabled() bool {
	return s.opts.EnableDelete
}

// NewView returns a View seeded from the list snapshot. A missing or
// unreadable snapshot yields an empty, non-stale View.
func (s *TodoService) NewView(ctx context.Context) *View {
	v := &View{}
	if s.snapshots == nil {
		return v
	}
	cached, err := s.snapshots.Load(ctx)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.WarnContext(ctx, "todo snapshot unavailable", "error", err)
		}
		return v
	}
	v.Todos = fromCached(cached)
	v.Stale = true
	return v
}

// Fetch replaces v.Todos with every todo in the configured order. On failure
// the error is logged and returned and v is left untouched.
func (s *TodoService) Fetch(ctx context.Context, v *View) error {
	ctx, span := tracer.Start(ctx, "TodoService.Fetch")
	defer span.End()

	todos, err := s.store.Select(ctx, s.opts.Order)
	if err != nil {
		s.log.ErrorContext(ctx, "fetch todos failed", "error", err)
		s.metrics.Command(ctx, "fetch", telemetry.OutcomeError)
		return fmt.Errorf("fetch todos: %w", err)
	}

	v.Todos = todos
	v.Stale = false
	s.metrics.Command(ctx, "fetch", telemetry.OutcomeOK)
	s.metrics.Items(ctx, len(todos))
	span.SetAttributes(attribute.Int("todo.count", len(todos)))

	if s.snapshots != nil {
		if err := s.snapshots.Save(ctx, toCached(todos)); err != nil {
			s.log.WarnContext(ctx, "save todo snapshot failed", "error", err)
		}
	}
	return nil
}

// Add inserts a todo named name with done=false. The draft always takes the
// submitted text; it is cleared only when the insert succeeds. Blank input is
// a no-op: no store call and a nil error.
func (s *TodoService) Add(ctx context.Context, v *View, name string) (*models.Todo, error) {
	ctx, span := tracer.Start(ctx, "TodoService.Add")
	defer span.End()

	v.Draft = name
	if models.IsBlank(name) {
		s.metrics.Command(ctx, "add", telemetry.OutcomeNoop)
		return nil, nil
	}

	todoName, err := models.NewTodoName(name)
	if err != nil {
		s.log.WarnContext(ctx, "rejected todo name", "error", err)
		s.metrics.Command(ctx, "add", telemetry.OutcomeRejected)
		return nil, fmt.Errorf("%w: %w", tododomain.ErrInvalidTodoName, err)
	}

	todo, err := s.store.Insert(ctx, todoName)
	if err != nil {
		s.log.ErrorContext(ctx, "add todo failed", "error", err)
		s.metrics.Command(ctx, "add", telemetry.OutcomeError)
		return nil, fmt.Errorf("add todo: %w", err)
	}

	span.SetAttributes(attribute.String("todo.id", todo.ID.String()))
	s.metrics.Command(ctx, "add", telemetry.OutcomeOK)
	v.Draft = ""
	s.refresh(ctx, v, func(todos []models.Todo) []models.Todo {
		return domainsvcs.ApplyCreated(todos, todo, s.opts.Order)
	})
	return &todo, nil
}

// Toggle sets the todo's done flag to !current. On failure v is unchanged.
func (s *TodoService) Toggle(ctx context.Context, v *View, id uuid.UUID, current bool) error {
	ctx, span := tracer.Start(ctx, "TodoService.Toggle", trace.WithAttributes(
		attribute.String("todo.id", id.String()),
		attribute.Bool("todo.done", current),
	))
	defer span.End()

	patch := models.ToggleOf(current)
	if err := s.store.Update(ctx, id, patch); err != nil {
		s.log.ErrorContext(ctx, "toggle todo failed", "todo_id", id, "error", err)
		s.metrics.Command(ctx, "toggle", telemetry.OutcomeError)
		return fmt.Errorf("toggle todo: %w", err)
	}

	s.metrics.Command(ctx, "toggle", telemetry.OutcomeOK)
	s.invalidate(ctx, id)
	s.refresh(ctx, v, func(todos []models.Todo) []models.Todo {
		return domainsvcs.ApplyPatch(todos, id, patch)
	})
	return nil
}

// Delete removes the todo. It returns ErrDeleteDisabled without calling the
// store when delete is turned off. On failure v is unchanged.
func (s *TodoService) Delete(ctx context.Context, v *View, id uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "TodoService.Delete", trace.WithAttributes(
		attribute.String("todo.id", id.String()),
	))
	defer span.End()

	if !s.opts.EnableDelete {
		s.metrics.Command(ctx, "delete", telemetry.OutcomeRejected)
		return tododomain.ErrDeleteDisabled
	}

	if err := s.store.Delete(ctx, id); err != nil {
		s.log.ErrorContext(ctx, "delete todo failed", "todo_id", id, "error", err)
		s.metrics.Command(ctx, "delete", telemetry.OutcomeError)
		return fmt.Errorf("delete todo: %w", err)
	}

	s.metrics.Command(ctx, "delete", telemetry.OutcomeOK)
	s.invalidate(ctx, id)
	s.refresh(ctx, v, func(todos []models.Todo) []models.Todo {
		return domainsvcs.ApplyDeleted(todos, id)
	})
	return nil
}

// Get retrieves one todo using a read-through cache:
//  1. Check Redis first.
//  2. On miss (or cache error), note the entry's version and query the store.
//  3. Fill the cache asynchronously, unless the todo was invalidated meanwhile.
func (s *TodoService) Get(ctx context.Context, id uuid.UUID) (*models.Todo, error) {
	ctx, span := tracer.Start(ctx, "TodoService.Get", trace.WithAttributes(
		attribute.String("todo.id", id.String()),
	))
	defer span.End()

	version, warm := int64(0), false
	if s.items != nil {
		cached, err := s.items.Get(ctx, id)
		if err == nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			todo := fromCachedTodo(*cached)
			return &todo, nil
		}
		if !errors.Is(err, redis.Nil) {
			s.log.WarnContext(ctx, "todo cache read failed", "todo_id", id, "error", err)
		}
		if version, err = s.items.Version(ctx, id); err == nil {
			warm = true
		}
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	todo, err := s.store.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, tododomain.ErrTodoNotFound) {
			s.log.ErrorContext(ctx, "get todo failed", "todo_id", id, "error", err)
		}
		return nil, fmt.Errorf("get todo: %w", err)
	}

	if warm {
		cached := toCachedTodo(todo)
		go func() {
			if _, err := s.items.Fill(context.Background(), &cached, version); err != nil {
				s.log.Warn("todo cache warm failed", "todo_id", cached.ID, "error", err)
			}
		}()
	}
	return &todo, nil
}

// refresh brings v in line with the store after a successful mutation. A
// failed fetch is already logged by Fetch; the mutation itself succeeded, so
// it is not reported to the caller.
func (s *TodoService) refresh(ctx context.Context, v *View, patch func([]models.Todo) []models.Todo) {
	if s.opts.Refresh == RefreshPatch {
		v.Todos = patch(v.Todos)
	}
	_ = s.Fetch(ctx, v)
}

// invalidate drops the per-item cache entry so the next Get reads the store.
func (s *TodoService) invalidate(ctx context.Context, id uuid.UUID) {
	if s.items == nil {
		return
	}
	if err := s.items.Invalidate(ctx, id); err != nil {
		s.log.WarnContext(ctx, "todo cache invalidate failed", "todo_id", id, "error", err)
	}
}

func toCachedTodo(t models.Todo) pkgcache.CachedTodo {
	return pkgcache.CachedTodo{
		ID:        t.ID,
		Name:      t.Name.String(),
		Done:      t.Done,
		CreatedAt: t.CreatedAt,
	}
}

func fromCachedTodo(c pkgcache.CachedTodo) models.Todo {
	return models.Todo{
		ID:        c.ID,
		Name:      models.TodoName(c.Name),
		Done:      c.Done,
		CreatedAt: c.CreatedAt,
	}
}

func toCached(todos []models.Todo) []pkgcache.CachedTodo {
	out := make([]pkgcache.CachedTodo, len(todos))
	for i, t := range todos {
		out[i] = toCachedTodo(t)
	}
	return out
}

func fromCached(cached []pkgcache.CachedTodo) []models.Todo {
	out := make([]models.Todo, len(cached))
	for i, c := range cached {
		out[i] = fromCachedTodo(c)
	}
	return out
}
