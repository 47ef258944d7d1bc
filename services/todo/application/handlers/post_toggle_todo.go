package handlers

import (
	"net/http"

	"github.com/ghuser/todolist/pkg/errhttp"
	"github.com/ghuser/todolist/pkg/httpx"
	pkgvalidator "github.com/ghuser/todolist/pkg/validator"
	appsvcs "github.com/ghuser/todolist/services/todo/application/services"
)

// PostToggleTodoHandler handles POST /api/todos/{id}/toggle requests.
type PostToggleTodoHandler struct {
	svc *appsvcs.Services
}

// NewPostToggleTodoHandler returns a PostToggleTodoHandler backed by the given services.
func NewPostToggleTodoHandler(svc *appsvcs.Services) *PostToggleTodoHandler {
	return &PostToggleTodoHandler{svc: svc}
}

// Execute flips a todo's done flag. The body carries the state the client
// currently shows; the stored value becomes its negation.
//
//	@Summary		Toggle todo
//	@Tags			todos
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Todo ID"	format(uuid)
//	@Param			request	body		ToggleTodoRequest	true	"Current done state"
//	@Success		200		{object}	ListResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Router			/api/todos/{id}/toggle [post]
func (h *PostToggleTodoHandler) Execute(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(r)
	if !ok {
		writeInvalidID(w)
		return
	}
	req, ok := pkgvalidator.ValidateRequest[ToggleTodoRequest](w, r)
	if !ok {
		return
	}

	v := h.svc.Todo.NewView(r.Context())
	if err := h.svc.Todo.Toggle(r.Context(), v, id, *req.Done); err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ListResponse{Todos: toResponses(v.Todos), Stale: v.Stale})
}
