package httpx

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

// JSON writes v with status. The body is encoded before any header is sent,
// so a value that cannot be encoded yields a 500 instead of a truncated 2xx.
func JSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(ErrorBody{Error: http.StatusText(status)})
	}
	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

// JSONError writes ErrorBody{message}.
func JSONError(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorBody{Error: message})
}

// SafeError is the client-facing text for err. With hideServerCause set, 5xx
// statuses answer with the status text only: a store failure must not leak
// connection strings or SQL.
func SafeError(err error, status int, hideServerCause bool) string {
	if hideServerCause && status >= http.StatusInternalServerError {
		return http.StatusText(status)
	}
	return err.Error()
}
