package handlers

import (
	"net/http"

	"github.com/ghuser/todolist/pkg/errhttp"
	"github.com/ghuser/todolist/pkg/httpx"
	pkgvalidator "github.com/ghuser/todolist/pkg/validator"
	appsvcs "github.com/ghuser/todolist/services/todo/application/services"
)

// PostTodoHandler handles POST /api/todos requests.
type PostTodoHandler struct {
	svc *appsvcs.Services
}

// NewPostTodoHandler returns a PostTodoHandler backed by the given services.
func NewPostTodoHandler(svc *appsvcs.Services) *PostTodoHandler {
	return &PostTodoHandler{svc: svc}
}

// Execute creates a todo with done=false.
//
//	@Summary		Create todo
//	@Description	Creates a todo and returns it with the refreshed list
//	@Tags			todos
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateTodoRequest	true	"Todo creation request"
//	@Success		201		{object}	CreateTodoResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Router			/api/todos [post]
func (h *PostTodoHandler) Execute(w http.ResponseWriter, r *http.Request) {
	req, ok := pkgvalidator.ValidateRequest[CreateTodoRequest](w, r)
	if !ok {
		return
	}

	v := h.svc.Todo.NewView(r.Context())
	todo, err := h.svc.Todo.Add(r.Context(), v, req.Name)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, CreateTodoResponse{
		Todo:  toResponse(*todo),
		Todos: toResponses(v.Todos),
		Stale: v.Stale,
	})
}
