package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ghuser/todolist/pkg/httpx"
	"github.com/ghuser/todolist/services/todo/domain/models"
)

// TodoResponse is the JSON form of one todo.
type TodoResponse struct {
	ID        uuid.UUID `json:"id"         example:"123e4567-e89b-12d3-a456-426614174000"`
	Name      string    `json:"name"       example:"Buy milk"`
	Done      bool      `json:"done"       example:"false"`
	CreatedAt time.Time `json:"created_at" example:"2025-01-15T10:30:00Z"`
} // @name TodoResponse

// ListResponse is the list returned by GET /api/todos and after every mutation.
// Stale is true when the list could not be refreshed and comes from the last
// snapshot.
type ListResponse struct {
	Todos []TodoResponse `json:"todos"`
	Stale bool           `json:"stale" example:"false"`
} // @name ListResponse

// CreateTodoRequest is the request body for POST /api/todos. The length bound
// is enforced by models.NewTodoName after trimming.
type CreateTodoRequest struct {
	Name string `json:"name" validate:"notblank" maxLength:"255" example:"Buy milk"`
} // @name CreateTodoRequest

// CreateTodoResponse is returned on successful creation.
type CreateTodoResponse struct {
	Todo  TodoResponse   `json:"todo"`
	Todos []TodoResponse `json:"todos"`
	Stale bool           `json:"stale" example:"false"`
} // @name CreateTodoResponse

// ToggleTodoRequest carries the state the client currently shows. The stored
// value becomes its negation.
type ToggleTodoRequest struct {
	Done *bool `json:"done" validate:"required" example:"false"`
} // @name ToggleTodoRequest

// ErrorResponse is returned on all error responses.
type ErrorResponse struct {
	Error string `json:"error" example:"todo not found"`
} // @name ErrorResponse

func toResponse(t models.Todo) TodoResponse {
	return TodoResponse{
		ID:        t.ID,
		Name:      t.Name.String(),
		Done:      t.Done,
		CreatedAt: t.CreatedAt,
	}
}

func toResponses(todos []models.Todo) []TodoResponse {
	out := make([]TodoResponse, len(todos))
	for i, t := range todos {
		out[i] = toResponse(t)
	}
	return out
}

// todoID parses the {id} route parameter.
func todoID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	return id, err == nil
}

func writeInvalidID(w http.ResponseWriter) {
	httpx.JSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid todo id"})
}
