package handlers

import (
	"net/http"

	"github.com/ghuser/todolist/pkg/errhttp"
	"github.com/ghuser/todolist/pkg/httpx"
	appsvcs "github.com/ghuser/todolist/services/todo/application/services"
)

// GetTodoHandler handles GET /api/todos/{id} requests.
type GetTodoHandler struct {
	svc *appsvcs.Services
}

// NewGetTodoHandler returns a GetTodoHandler backed by the given services.
func NewGetTodoHandler(svc *appsvcs.Services) *GetTodoHandler {
	return &GetTodoHandler{svc: svc}
}

// Execute returns one todo, served from cache when available.
//
//	@Summary		Get todo
//	@Tags			todos
//	@Produce		json
//	@Param			id	path		string	true	"Todo ID"	format(uuid)
//	@Success		200	{object}	TodoResponse
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		502	{object}	ErrorResponse
//	@Router			/api/todos/{id} [get]
func (h *GetTodoHandler) Execute(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(r)
	if !ok {
		writeInvalidID(w)
		return
	}
	todo, err := h.svc.Todo.Get(r.Context(), id)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*todo))
}
