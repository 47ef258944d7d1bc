package handlers

import (
	"net/http"

	"github.com/ghuser/todolist/pkg/errhttp"
	"github.com/ghuser/todolist/pkg/httpx"
	appsvcs "github.com/ghuser/todolist/services/todo/application/services"
)

// DeleteTodoHandler handles DELETE /api/todos/{id} requests.
type DeleteTodoHandler struct {
	svc *appsvcs.Services
}

// NewDeleteTodoHandler returns a DeleteTodoHandler backed by the given services.
func NewDeleteTodoHandler(svc *appsvcs.Services) *DeleteTodoHandler {
	return &DeleteTodoHandler{svc: svc}
}

// Execute removes a todo.
//
//	@Summary		Delete todo
//	@Description	Removes a todo and returns the refreshed list. Answers 405 when delete is disabled.
//	@Tags			todos
//	@Produce		json
//	@Param			id	path		string	true	"Todo ID"	format(uuid)
//	@Success		200	{object}	ListResponse
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		405	{object}	ErrorResponse
//	@Failure		502	{object}	ErrorResponse
//	@Router			/api/todos/{id} [delete]
func (h *DeleteTodoHandler) Execute(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(r)
	if !ok {
		writeInvalidID(w)
		return
	}

	v := h.svc.Todo.NewView(r.Context())
	if err := h.svc.Todo.Delete(r.Context(), v, id); err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ListResponse{Todos: toResponses(v.Todos), Stale: v.Stale})
}
