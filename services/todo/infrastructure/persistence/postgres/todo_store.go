package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ghuser/todolist/pkg/database"
	"github.com/ghuser/todolist/pkg/events"
	tododomain "github.com/ghuser/todolist/services/todo/domain"
	domainevents "github.com/ghuser/todolist/services/todo/domain/events"
	"github.com/ghuser/todolist/services/todo/domain/models"
	"github.com/ghuser/todolist/services/todo/domain/repositories"
	"github.com/ghuser/todolist/services/todo/infrastructure/persistence/postgres/db"
)

const uniqueViolation = "23505"

var tracer = otel.Tracer("github.com/ghuser/todolist/services/todo/infrastructure/persistence/postgres")

// TodoStore implements repositories.TodoStore against PostgreSQL.
type TodoStore struct {
	db  *database.Database
	bus *events.EventBus
}

// NewTodoStore returns a TodoStore backed by the given connection pool and
// event bus. Writes publish their domain event through the bus inside the same
// transaction; a nil bus disables publishing.
func NewTodoStore(database *database.Database, bus *events.EventBus) *TodoStore {
	return &TodoStore{db: database, bus: bus}
}

// Select returns every todo ordered by created_at (then id) in the given direction.
func (s *TodoStore) Select(ctx context.Context, order repositories.SortOrder) ([]models.Todo, error) {
	ctx, span := tracer.Start(ctx, "TodoStore.Select",
		trace.WithAttributes(attribute.String("todo.order", order.String())),
	)
	defer span.End()

	q := db.New(s.db.DB())
	var (
		rows []db.Todo
		err  error
	)
	if order == repositories.Descending {
		rows, err = q.SelectTodosDesc(ctx)
	} else {
		rows, err = q.SelectTodosAsc(ctx)
	}
	if err != nil {
		return nil, fail(span, "select todos", err)
	}

	todos := make([]models.Todo, len(rows))
	for i, row := range rows {
		todos[i] = rowToTodo(row)
	}
	span.SetAttributes(attribute.Int("todo.count", len(todos)))
	return todos, nil
}

// Get returns the todo with the given id or ErrTodoNotFound.
func (s *TodoStore) Get(ctx context.Context, id uuid.UUID) (models.Todo, error) {
	ctx, span := tracer.Start(ctx, "TodoStore.Get",
		trace.WithAttributes(attribute.String("todo.id", id.String())),
	)
	defer span.End()

	row, err := db.New(s.db.DB()).GetTodo(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Todo{}, tododomain.ErrTodoNotFound
		}
		return models.Todo{}, fail(span, "get todo", err)
	}
	return rowToTodo(row), nil
}

// Insert persists a new todo (done=false) and publishes TodoCreatedEvent within
// the same transaction. The id and created_at come from the database.
func (s *TodoStore) Insert(ctx context.Context, name models.TodoName) (models.Todo, error) {
	ctx, span := tracer.Start(ctx, "TodoStore.Insert")
	defer span.End()

	var todo models.Todo
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		row, err := db.New(tx).InsertTodo(ctx, name.String())
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return tododomain.ErrTodoAlreadyExists
			}
			return fmt.Errorf("insert todo: %w", err)
		}
		todo = rowToTodo(row)

		return s.publish(ctx, tx, domainevents.TopicTodoCreated, domainevents.TodoCreatedEvent{
			EventID:    uuid.New(),
			Version:    1,
			TodoID:     todo.ID,
			Name:       todo.Name.String(),
			Done:       todo.Done,
			OccurredAt: todo.CreatedAt,
		})
	})
	if err != nil {
		return models.Todo{}, fail(span, "insert todo", err)
	}

	span.SetAttributes(attribute.String("todo.id", todo.ID.String()))
	return todo, nil
}

// Update applies patch to the todo with the given id and publishes
// TodoToggledEvent. Returns ErrTodoNotFound when no row matches.
func (s *TodoStore) Update(ctx context.Context, id uuid.UUID, patch models.TodoPatch) error {
	ctx, span := tracer.Start(ctx, "TodoStore.Update",
		trace.WithAttributes(attribute.String("todo.id", id.String())),
	)
	defer span.End()

	if patch.Done == nil {
		_, err := s.Get(ctx, id)
		return err
	}
	done := *patch.Done
	span.SetAttributes(attribute.Bool("todo.done", done))

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		n, err := db.New(tx).UpdateTodoDone(ctx, db.UpdateTodoDoneParams{ID: id, Done: done})
		if err != nil {
			return fmt.Errorf("update todo: %w", err)
		}
		if n == 0 {
			return tododomain.ErrTodoNotFound
		}

		return s.publish(ctx, tx, domainevents.TopicTodoToggled, domainevents.TodoToggledEvent{
			EventID:    uuid.New(),
			Version:    1,
			TodoID:     id,
			Done:       done,
			OccurredAt: time.Now().UTC(),
		})
	})
	if err != nil {
		return fail(span, "update todo", err)
	}
	return nil
}

// Delete removes the todo with the given id and publishes TodoDeletedEvent.
// Returns ErrTodoNotFound when no row matches.
func (s *TodoStore) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "TodoStore.Delete",
		trace.WithAttributes(attribute.String("todo.id", id.String())),
	)
	defer span.End()

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		n, err := db.New(tx).DeleteTodo(ctx, id)
		if err != nil {
			return fmt.Errorf("delete todo: %w", err)
		}
		if n == 0 {
			return tododomain.ErrTodoNotFound
		}

		return s.publish(ctx, tx, domainevents.TopicTodoDeleted, domainevents.TodoDeletedEvent{
			EventID:    uuid.New(),
			Version:    1,
			TodoID:     id,
			OccurredAt: time.Now().UTC(),
		})
	})
	if err != nil {
		return fail(span, "delete todo", err)
	}
	return nil
}

func (s *TodoStore) publish(ctx context.Context, tx *sql.Tx, topic string, event any) error {
	if s.bus == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("event_version", "1")
	p, err := s.bus.NewTxPublisher(ctx, tx)
	if err != nil {
		return fmt.Errorf("create publisher: %w", err)
	}
	if err := p.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// fail records err on span and classifies it. Not-found and duplicate errors
// pass through; everything else becomes ErrStoreOperation.
func fail(span trace.Span, op string, err error) error {
	if errors.Is(err, tododomain.ErrTodoNotFound) || errors.Is(err, tododomain.ErrTodoAlreadyExists) {
		return err
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, op)
	return fmt.Errorf("%w: %s: %w", tododomain.ErrStoreOperation, op, err)
}

// rowToTodo maps a db.Todo row to a domain models.Todo.
func rowToTodo(row db.Todo) models.Todo {
	return models.Todo{
		ID:        row.ID,
		Name:      models.TodoName(row.Name),
		Done:      row.Done,
		CreatedAt: row.CreatedAt,
	}
}
