// Package errhttp maps domain sentinel errors to HTTP status codes.
// Add a case to mapErrorToStatus for each new domain sentinel error.
package errhttp

import (
	"errors"
	"net/http"

	"github.com/ghuser/todolist/pkg/httpx"
	tododomain "github.com/ghuser/todolist/services/todo/domain"
)

// WriteError maps err to an HTTP status code and writes a JSON error response.
// Uses errors.Is() so wrapped sentinel errors are matched correctly.
// Defaults to 500 Internal Server Error for unrecognized errors. Server-side
// failures answer with the status text only; the cause is logged, not returned.
func WriteError(w http.ResponseWriter, err error) {
	status := mapErrorToStatus(err)
	httpx.JSONError(w, status, httpx.SafeError(err, status, true))
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, tododomain.ErrTodoNotFound):
		return http.StatusNotFound // 404
	case errors.Is(err, tododomain.ErrTodoAlreadyExists):
		return http.StatusConflict // 409
	case errors.Is(err, tododomain.ErrInvalidTodoName):
		return http.StatusUnprocessableEntity // 422
	case errors.Is(err, tododomain.ErrDeleteDisabled):
		return http.StatusMethodNotAllowed // 405
	case errors.Is(err, tododomain.ErrStoreOperation):
		return http.StatusBadGateway // 502
	default:
		return http.StatusInternalServerError // 500
	}
}
