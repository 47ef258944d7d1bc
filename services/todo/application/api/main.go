package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"

	"github.com/ghuser/todolist/pkg/app"
	"github.com/ghuser/todolist/pkg/logger"
	"github.com/ghuser/todolist/services/todo/application/handlers"
	appsvcs "github.com/ghuser/todolist/services/todo/application/services"
	"github.com/ghuser/todolist/services/todo/application/views"
)

// TodoRoutes registers the todo page, its assets and the JSON API on the
// provided chi router.
func TodoRoutes(r chi.Router, a *app.Application) {
	Mount(r, appsvcs.New(a), a.SessionStore, a.Logger)
}

// Mount registers the todo routes against an already wired service container.
func Mount(r chi.Router, svcs *appsvcs.Services, store sessions.Store, log logger.Logger) {
	page := handlers.NewPageHandler(svcs, store, log)

	r.Handle("/static/*", http.StripPrefix("/static/", views.Static()))

	r.Get("/", page.Show)
	r.Route("/todos", func(r chi.Router) {
		r.Post("/", page.Add)
		r.Post("/{id}/toggle", page.Toggle)
		r.Post("/{id}/delete", page.Delete)
	})

	r.Route("/api/todos", func(r chi.Router) {
		r.Get("/", handlers.NewGetTodosHandler(svcs).Execute)
		r.Post("/", handlers.NewPostTodoHandler(svcs).Execute)
		r.Get("/{id}", handlers.NewGetTodoHandler(svcs).Execute)
		r.Post("/{id}/toggle", handlers.NewPostToggleTodoHandler(svcs).Execute)
		r.Delete("/{id}", handlers.NewDeleteTodoHandler(svcs).Execute)
	})
}
