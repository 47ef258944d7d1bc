package handlers

import (
	"net/http"

	"github.com/ghuser/todolist/pkg/errhttp"
	"github.com/ghuser/todolist/pkg/httpx"
	appsvcs "github.com/ghuser/todolist/services/todo/application/services"
)

// GetTodosHandler handles GET /api/todos requests.
type GetTodosHandler struct {
	svc *appsvcs.Services
}

// NewGetTodosHandler returns a GetTodosHandler backed by the given services.
func NewGetTodosHandler(svc *appsvcs.Services) *GetTodosHandler {
	return &GetTodosHandler{svc: svc}
}

// Execute lists every todo in the configured order.
//
//	@Summary		List todos
//	@Description	Returns all todos ordered by creation time
//	@Tags			todos
//	@Produce		json
//	@Success		200	{object}	ListResponse
//	@Failure		502	{object}	ErrorResponse
//	@Router			/api/todos [get]
func (h *GetTodosHandler) Execute(w http.ResponseWriter, r *http.Request) {
	v := &appsvcs.View{}
	if err := h.svc.Todo.Fetch(r.Context(), v); err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ListResponse{Todos: toResponses(v.Todos)})
}
