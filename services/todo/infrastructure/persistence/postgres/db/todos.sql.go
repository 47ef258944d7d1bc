package db

import (
	"context"

	"github.com/google/uuid"
)

const deleteTodo = `-- name: DeleteTodo :execrows
DELETE FROM todos
WHERE id = $1
`

func (q *Queries) DeleteTodo(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTodo, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getTodo = `-- name: GetTodo :one
SELECT id, name, done, created_at FROM todos
WHERE id = $1
`

func (q *Queries) GetTodo(ctx context.Context, id uuid.UUID) (Todo, error) {
	row := q.db.QueryRowContext(ctx, getTodo, id)
	var i Todo
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Done,
		&i.CreatedAt,
	)
	return i, err
}

const insertTodo = `-- name: InsertTodo :one
INSERT INTO todos (name, done)
VALUES ($1, false)
RETURNING id, name, done, created_at
`

func (q *Queries) InsertTodo(ctx context.Context, name string) (Todo, error) {
	row := q.db.QueryRowContext(ctx, insertTodo, name)
	var i Todo
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Done,
		&i.CreatedAt,
	)
	return i, err
}

const selectTodosAsc = `-- name: SelectTodosAsc :many
SELECT id, name, done, created_at FROM todos
ORDER BY created_at ASC, id ASC
`

func (q *Queries) SelectTodosAsc(ctx context.Context) ([]Todo, error) {
	return q.selectTodos(ctx, selectTodosAsc)
}

const selectTodosDesc = `-- name: SelectTodosDesc :many
SELECT id, name, done, created_at FROM todos
ORDER BY created_at DESC, id DESC
`

func (q *Queries) SelectTodosDesc(ctx context.Context) ([]Todo, error) {
	return q.selectTodos(ctx, selectTodosDesc)
}

func (q *Queries) selectTodos(ctx context.Context, query string) ([]Todo, error) {
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Todo{}
	for rows.Next() {
		var i Todo
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Done,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateTodoDone = `-- name: UpdateTodoDone :execrows
UPDATE todos
SET done = $2
WHERE id = $1
`

type UpdateTodoDoneParams struct {
	ID   uuid.UUID `json:"id"`
	Done bool      `json:"done"`
}

func (q *Queries) UpdateTodoDone(ctx context.Context, arg UpdateTodoDoneParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateTodoDone, arg.ID, arg.Done)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
