package domain

import "errors"

// Sentinel errors for the todo domain. Use errors.Is() to check these.
var (
	// ErrStoreOperation wraps every failed call to the backing store. It is the
	// only failure kind a command surfaces; the store's own message is wrapped
	// underneath it.
	ErrStoreOperation = errors.New("store operation failed")

	// ErrTodoNotFound indicates no row matches the requested id.
	ErrTodoNotFound = errors.New("todo not found")

	// ErrTodoAlreadyExists indicates an insert collided with an existing id.
	ErrTodoAlreadyExists = errors.New("todo already exists")

	// ErrInvalidTodoName indicates the name is blank or too long.
	ErrInvalidTodoName = errors.New("invalid todo name")

	// ErrDeleteDisabled is returned by Delete when the deployment has no delete action.
	ErrDeleteDisabled = errors.New("delete is disabled")
)
