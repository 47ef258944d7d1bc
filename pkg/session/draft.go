package session

import (
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	// Name is the cookie name of the page session.
	Name = "todolist"

	draftKey = "draft"
)

// SaveDraft stores the add-form text so the page rendered after the redirect
// can put it back into the input. An empty draft removes the value.
func SaveDraft(store sessions.Store, w http.ResponseWriter, r *http.Request, draft string) error {
	sess, err := store.Get(r, Name)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if draft == "" {
		delete(sess.Values, draftKey)
	} else {
		sess.Values[draftKey] = draft
	}
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Draft returns the stored add-form text, or "" when none is stored.
func Draft(store sessions.Store, r *http.Request) string {
	sess, err := store.Get(r, Name)
	if err != nil {
		return ""
	}
	draft, _ := sess.Values[draftKey].(string)
	return draft
}
