package models

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// TodoName is a value object holding a trimmed, non-empty label.
type TodoName string

// MaxTodoNameLength bounds a name in characters, counted after trimming.
const MaxTodoNameLength = 255

// NewTodoName trims surrounding whitespace and rejects blank or oversized names.
func NewTodoName(s string) (TodoName, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("todo name must not be blank")
	}
	if utf8.RuneCountInString(s) > MaxTodoNameLength {
		return "", fmt.Errorf("todo name must not exceed %d characters", MaxTodoNameLength)
	}
	return TodoName(s), nil
}

// IsBlank reports whether s has no visible characters.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// String returns the underlying string value.
func (n TodoName) String() string {
	return string(n)
}
