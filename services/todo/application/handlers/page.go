package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/sessions"

	"github.com/ghuser/todolist/pkg/logger"
	"github.com/ghuser/todolist/pkg/session"
	appsvcs "github.com/ghuser/todolist/services/todo/application/services"
	"github.com/ghuser/todolist/services/todo/application/views"
	tododomain "github.com/ghuser/todolist/services/todo/domain"
)

// PageHandler serves the HTML page and its form posts. Every form post
// redirects back to the page, which re-renders from a fresh fetch. Command
// failures are logged by the command layer and otherwise invisible: the page
// simply shows the unchanged list.
type PageHandler struct {
	svc      *appsvcs.Services
	sessions sessions.Store
	log      logger.Logger
}

// NewPageHandler returns a PageHandler. store holds the add-form draft between
// the post and the redirect; nil disables draft retention.
func NewPageHandler(svc *appsvcs.Services, store sessions.Store, log logger.Logger) *PageHandler {
	return &PageHandler{svc: svc, sessions: store, log: log}
}

// Show handles GET /.
func (h *PageHandler) Show(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v := h.svc.Todo.NewView(ctx)
	_ = h.svc.Todo.Fetch(ctx, v) // on failure the snapshot (or empty list) is shown
	if h.sessions != nil {
		v.Draft = session.Draft(h.sessions, r)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := views.Render(w, views.Page{
		Todos:         v.Todos,
		Draft:         v.Draft,
		Stale:         v.Stale,
		DeleteEnabled: h.svc.Todo.DeleteEnabled(),
	}); err != nil {
		h.log.ErrorContext(ctx, "render page failed", "error", err)
	}
}

// Add handles POST /todos.
func (h *PageHandler) Add(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	v := &appsvcs.View{}
	_, _ = h.svc.Todo.Add(r.Context(), v, r.PostFormValue("name"))
	h.saveDraft(w, r, v.Draft)
	h.backToPage(w, r)
}

// Toggle handles POST /todos/{id}/toggle. The form's done field is the state
// the page showed when it was rendered.
func (h *PageHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	current, err := strconv.ParseBool(r.PostFormValue("done"))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	_ = h.svc.Todo.Toggle(r.Context(), &appsvcs.View{}, id, current)
	h.backToPage(w, r)
}

// Delete handles POST /todos/{id}/delete.
func (h *PageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := h.svc.Todo.Delete(r.Context(), &appsvcs.View{}, id); errors.Is(err, tododomain.ErrDeleteDisabled) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	h.backToPage(w, r)
}

func (h *PageHandler) saveDraft(w http.ResponseWriter, r *http.Request, draft string) {
	if h.sessions == nil {
		return
	}
	if err := session.SaveDraft(h.sessions, w, r, draft); err != nil {
		h.log.WarnContext(r.Context(), "save draft failed", "error", err)
	}
}

func (h *PageHandler) backToPage(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
