// Package memory is an in-process TodoStore. It behaves like the Postgres
// store (store-assigned ids and timestamps, ordered selects, not-found on
// missing rows) and can be told to fail, which makes it the substitute store
// for command and handler tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	tododomain "github.com/ghuser/todolist/services/todo/domain"
	"github.com/ghuser/todolist/services/todo/domain/models"
	"github.com/ghuser/todolist/services/todo/domain/repositories"
	domainsvcs "github.com/ghuser/todolist/services/todo/domain/services"
)

var tracer = otel.Tracer("github.com/ghuser/todolist/services/todo/infrastructure/persistence/memory")

// TodoStore implements repositories.TodoStore in memory.
type TodoStore struct {
	mu    sync.RWMutex
	todos map[uuid.UUID]models.Todo
	now   func() time.Time
	fail  error
	calls int
}

// NewTodoStore returns an empty store.
func NewTodoStore() *TodoStore {
	return &TodoStore{
		todos: make(map[uuid.UUID]models.Todo),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the timestamp source used for created_at.
func (s *TodoStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// FailWith makes every subsequent call return err wrapped in
// ErrStoreOperation. Pass nil to recover.
func (s *TodoStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// Calls returns how many store operations have been attempted.
func (s *TodoStore) Calls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls
}

// Select returns all todos ordered by created_at.
func (s *TodoStore) Select(ctx context.Context, order repositories.SortOrder) ([]models.Todo, error) {
	_, span := tracer.Start(ctx, "TodoStore.Select",
		trace.WithAttributes(attribute.String("todo.order", order.String())),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(); err != nil {
		return nil, fmt.Errorf("select todos: %w", err)
	}

	todos := make([]models.Todo, 0, len(s.todos))
	for _, t := range s.todos {
		todos = append(todos, t)
	}

	span.SetAttributes(attribute.Int("todo.count", len(todos)))
	return domainsvcs.Sort(todos, order), nil
}

// Get returns the todo with the given id.
func (s *TodoStore) Get(ctx context.Context, id uuid.UUID) (models.Todo, error) {
	_, span := tracer.Start(ctx, "TodoStore.Get",
		trace.WithAttributes(attribute.String("todo.id", id.String())),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(); err != nil {
		return models.Todo{}, fmt.Errorf("get todo: %w", err)
	}

	t, ok := s.todos[id]
	span.SetAttributes(attribute.Bool("todo.found", ok))
	if !ok {
		return models.Todo{}, tododomain.ErrTodoNotFound
	}
	return t, nil
}

// Insert stores a new todo with done=false.
func (s *TodoStore) Insert(ctx context.Context, name models.TodoName) (models.Todo, error) {
	_, span := tracer.Start(ctx, "TodoStore.Insert")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(); err != nil {
		return models.Todo{}, fmt.Errorf("insert todo: %w", err)
	}

	t := models.Todo{
		ID:        uuid.New(),
		Name:      name,
		Done:      false,
		CreatedAt: s.now(),
	}
	s.todos[t.ID] = t

	span.SetAttributes(attribute.String("todo.id", t.ID.String()))
	return t, nil
}

// Update applies patch to the todo with the given id.
func (s *TodoStore) Update(ctx context.Context, id uuid.UUID, patch models.TodoPatch) error {
	_, span := tracer.Start(ctx, "TodoStore.Update",
		trace.WithAttributes(attribute.String("todo.id", id.String())),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(); err != nil {
		return fmt.Errorf("update todo: %w", err)
	}

	t, ok := s.todos[id]
	span.SetAttributes(attribute.Bool("todo.found", ok))
	if !ok {
		return tododomain.ErrTodoNotFound
	}
	s.todos[id] = patch.Apply(t)
	return nil
}

// Delete removes the todo with the given id.
func (s *TodoStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, span := tracer.Start(ctx, "TodoStore.Delete",
		trace.WithAttributes(attribute.String("todo.id", id.String())),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(); err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}

	_, ok := s.todos[id]
	span.SetAttributes(attribute.Bool("todo.found", ok))
	if !ok {
		return tododomain.ErrTodoNotFound
	}
	delete(s.todos, id)
	return nil
}

// begin counts the call and reports the injected failure, if any.
// Callers must hold s.mu.
func (s *TodoStore) begin() error {
	s.calls++
	if s.fail != nil {
		return fmt.Errorf("%w: %w", tododomain.ErrStoreOperation, s.fail)
	}
	return nil
}
