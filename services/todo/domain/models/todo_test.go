package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestToggleOf(t *testing.T) {
	t.Run("false becomes true", func(t *testing.T) {
		p := ToggleOf(false)
		if p.Done == nil || !*p.Done {
			t.Fatalf("expected Done=true, got %v", p.Done)
		}
	})

	t.Run("true becomes false", func(t *testing.T) {
		p := ToggleOf(true)
		if p.Done == nil || *p.Done {
			t.Fatalf("expected Done=false, got %v", p.Done)
		}
	})
}

func TestTodoPatch_Apply(t *testing.T) {
	original := Todo{
		ID:        uuid.New(),
		Name:      "Buy milk",
		Done:      false,
		CreatedAt: time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC),
	}

	t.Run("sets Done", func(t *testing.T) {
		got := ToggleOf(false).Apply(original)
		if !got.Done {
			t.Fatal("expected Done=true")
		}
		if got.ID != original.ID || got.Name != original.Name || !got.CreatedAt.Equal(original.CreatedAt) {
			t.Fatalf("patch changed immutable fields: %+v", got)
		}
	})

	t.Run("empty patch is identity", func(t *testing.T) {
		got := TodoPatch{}.Apply(original)
		if got != original {
			t.Fatalf("expected unchanged todo, got %+v", got)
		}
	})

	t.Run("original is not mutated", func(t *testing.T) {
		_ = ToggleOf(false).Apply(original)
		if original.Done {
			t.Fatal("Apply must not mutate its argument")
		}
	})
}
