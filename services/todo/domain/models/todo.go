package models

import (
	"time"

	"github.com/google/uuid"
)

// Todo is the single aggregate of this bounded context. ID and CreatedAt are
// assigned by the store on insert; Name never changes after creation.
type Todo struct {
	ID        uuid.UUID
	Name      TodoName
	Done      bool
	CreatedAt time.Time
}

// TodoPatch is a partial row for updates. Nil fields are left untouched.
type TodoPatch struct {
	Done *bool
}

// ToggleOf returns the patch that flips a todo whose current state is done.
func ToggleOf(done bool) TodoPatch {
	next := !done
	return TodoPatch{Done: &next}
}

// Apply returns a copy of t with the patch applied.
func (p TodoPatch) Apply(t Todo) Todo {
	if p.Done != nil {
		t.Done = *p.Done
	}
	return t
}
