package core

import "context"

// NoteSource supplies a point-in-time snapshot of every note.
type NoteSource interface {
	Notes(ctx context.Context) ([]Note, error)
}

// Watchable is implemented by stores that push change events.
// The returned channel is closed when ctx is done.
type Watchable interface {
	Watch(ctx context.Context) (<-chan Event, error)
}

// Repository defines the contract for storing and retrieving notes.
type Repository interface {
	NoteSource

	// Save persists a note. It creates if not exists, or updates if it does.
	Save(ctx context.Context, n Note) (Note, error)

	// Get retrieves a note by its ID.
	Get(ctx context.Context, id string) (Note, error)

	// Delete removes a note by its ID.
	Delete(ctx context.Context, id string) error

	// Initialize ensures the underlying storage is ready.
	Initialize(ctx context.Context) error
}
