// Package views renders the todo page and serves its static assets. Both are
// embedded in the binary.
package views

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"

	"github.com/ghuser/todolist/services/todo/domain/models"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var page = template.Must(template.ParseFS(templateFS, "templates/page.html"))

// Page is the data rendered by the todo page.
type Page struct {
	Todos         []models.Todo
	Draft         string
	Stale         bool
	DeleteEnabled bool
}

// Render writes the page to w.
func Render(w io.Writer, p Page) error {
	if err := page.Execute(w, p); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

// Static serves the embedded assets. Mount it with the /static/ prefix stripped.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
