package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/ghuser/todolist/services/todo/domain/models"
)

// SortOrder is the created_at direction used when listing todos.
type SortOrder int

const (
	Ascending SortOrder = iota
	Descending
)

// String returns the SQL keyword for the order.
func (o SortOrder) String() string {
	if o == Descending {
		return "DESC"
	}
	return "ASC"
}

// TodoStore is the handle to the remote todos table. The domain layer owns
// this interface; infrastructure implements it.
//
// Every method reports failure through its error value. A missing row is
// ErrTodoNotFound; anything else wraps ErrStoreOperation.
type TodoStore interface {
	// Select returns every row ordered by created_at in the given direction.
	Select(ctx context.Context, order SortOrder) ([]models.Todo, error)

	// Get returns the row with the given id.
	Get(ctx context.Context, id uuid.UUID) (models.Todo, error)

	// Insert creates one row with done=false. The store assigns id and created_at.
	Insert(ctx context.Context, name models.TodoName) (models.Todo, error)

	// Update writes the non-nil fields of patch to the row with the given id.
	Update(ctx context.Context, id uuid.UUID, patch models.TodoPatch) error

	// Delete removes the row with the given id.
	Delete(ctx context.Context, id uuid.UUID) error
}
