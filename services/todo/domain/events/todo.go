package events

import (
	"time"

	"github.com/google/uuid"
)

// Watermill topics published by the todo store after each committed write.
const (
	TopicTodoCreated = "todo.created"
	TopicTodoToggled = "todo.toggled"
	TopicTodoDeleted = "todo.deleted"
)

// Topics lists every topic the worker subscribes to.
var Topics = []string{TopicTodoCreated, TopicTodoToggled, TopicTodoDeleted}

// TodoCreatedEvent is published after a new todo is persisted.
type TodoCreatedEvent struct {
	EventID    uuid.UUID `json:"event_id"` // Unique publish-time identifier for deduplication
	Version    int       `json:"version"`  // Schema version; increment on breaking changes
	TodoID     uuid.UUID `json:"todo_id"`
	Name       string    `json:"name"`
	Done       bool      `json:"done"`
	OccurredAt time.Time `json:"occurred_at"`
}

// TodoToggledEvent is published after a todo's done flag is written.
type TodoToggledEvent struct {
	EventID    uuid.UUID `json:"event_id"`
	Version    int       `json:"version"`
	TodoID     uuid.UUID `json:"todo_id"`
	Done       bool      `json:"done"`
	OccurredAt time.Time `json:"occurred_at"`
}

// TodoDeletedEvent is published after a todo row is removed.
type TodoDeletedEvent struct {
	EventID    uuid.UUID `json:"event_id"`
	Version    int       `json:"version"`
	TodoID     uuid.UUID `json:"todo_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
