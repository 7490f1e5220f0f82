// Package service defines the backend-agnostic interface for task operations.
package service

import "context"

// RecordStore is the remote, authoritative task collection.
// All backend calls go through this interface; the cache and the commands
// never import a storage SDK directly.
type RecordStore interface {
	// List returns every task owned by the current session.
	List(ctx context.Context) ([]Task, error)

	// Create stores a new task and returns the server record.
	// A nil task with a nil error is a malformed response.
	Create(ctx context.Context, in NewTask) (*Task, error)

	// Update applies a partial update and returns the server record.
	Update(ctx context.Context, id string, patch TaskPatch) (*Task, error)

	// Delete removes a task and returns the number of deleted records.
	Delete(ctx context.Context, id string) (int, error)
}
