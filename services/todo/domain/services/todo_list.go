// Package services contains stateless domain services for the todo bounded context.
// Domain services operate purely on domain types and have zero external
// dependencies beyond stdlib and the domain layer.
//
// The functions here apply a known, already-committed mutation to a cached
// list so a view can be updated without a round trip. Each returns a new
// slice; the input is never modified.
package services

import (
	"slices"

	"github.com/google/uuid"

	"github.com/ghuser/todolist/services/todo/domain/models"
	"github.com/ghuser/todolist/services/todo/domain/repositories"
)

// Sort orders todos by CreatedAt in the given direction, tie-broken by ID so
// the result is deterministic.
func Sort(todos []models.Todo, order repositories.SortOrder) []models.Todo {
	out := slices.Clone(todos)
	slices.SortStableFunc(out, func(a, b models.Todo) int {
		c := a.CreatedAt.Compare(b.CreatedAt)
		if c == 0 {
			c = compareIDs(a.ID, b.ID)
		}
		if order == repositories.Descending {
			return -c
		}
		return c
	})
	return out
}

// ApplyCreated inserts todo at its ordered position.
func ApplyCreated(todos []models.Todo, todo models.Todo, order repositories.SortOrder) []models.Todo {
	out := make([]models.Todo, 0, len(todos)+1)
	for _, t := range todos {
		if t.ID != todo.ID {
			out = append(out, t)
		}
	}
	return Sort(append(out, todo), order)
}

// ApplyPatch applies patch to the todo with the given id. Unknown ids leave
// the list unchanged.
func ApplyPatch(todos []models.Todo, id uuid.UUID, patch models.TodoPatch) []models.Todo {
	out := slices.Clone(todos)
	for i := range out {
		if out[i].ID == id {
			out[i] = patch.Apply(out[i])
		}
	}
	return out
}

// ApplyDeleted drops the todo with the given id.
func ApplyDeleted(todos []models.Todo, id uuid.UUID) []models.Todo {
	return slices.DeleteFunc(slices.Clone(todos), func(t models.Todo) bool {
		return t.ID == id
	})
}

func compareIDs(a, b uuid.UUID) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}
