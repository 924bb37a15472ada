// Package service defines the backend-agnostic task model and store contracts.
package service

import "context"

// Store defines the task document operations.
// All backend calls go through this interface.
// Commands and the controller never import a database driver directly.
type Store interface {
	// Create writes a new task owned by ownerID and returns its id.
	// The store assigns the id and both timestamps.
	Create(ctx context.Context, ownerID string, f Fields) (string, error)

	// Update merges p into the task and refreshes its update timestamp.
	// Returns an error wrapping ErrNotFound if the task does not exist.
	Update(ctx context.Context, id string, p Patch) error

	// Delete removes a task. Deleting a missing task is not an error.
	Delete(ctx context.Context, id string) error

	// ListForOwner returns every task owned by ownerID.
	// Order is whatever the store returns.
	ListForOwner(ctx context.Context, ownerID string) ([]Task, error)

	// Get returns a single task by id.
	Get(ctx context.Context, id string) (Task, error)
}

// SnapshotFunc receives the full current result set of a subscription.
type SnapshotFunc func(tasks []Task)

// ErrorFunc receives the error that ended a subscription.
type ErrorFunc func(err error)

// Unsubscribe ends a subscription. Once it returns, no further callbacks run.
// Calling it more than once is allowed.
type Unsubscribe func()

// Watcher opens live, owner-scoped task subscriptions.
type Watcher interface {
	// Subscribe delivers a snapshot immediately and then one per change
	// until the returned Unsubscribe is called, ctx is done, or an error
	// is reported through onError. Errors are not retried.
	Subscribe(ctx context.Context, ownerID string, onSnapshot SnapshotFunc, onError ErrorFunc) (Unsubscribe, error)
}

// Backend is a store that can also be watched.
type Backend interface {
	Store
	Watcher
}
