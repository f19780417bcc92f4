package storage

import "context"

// Backend is the durable key/value medium behind the Adapter.
type Backend interface {
	// Get returns the raw bytes of a slot, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put writes every entry or none of them.
	Put(ctx context.Context, entries map[string][]byte) error

	// Close releases resources owned by the backend.
	Close() error
}

// Loader reads slots. Implemented by *Adapter.
type Loader interface {
	Load(ctx context.Context, key string) (Slot, bool)
}

// Fetcher reads slots and reports backend failures. Implemented by *Adapter.
type Fetcher interface {
	Fetch(ctx context.Context, key string) (Slot, bool, error)
}

// Saver schedules a slot write. Implemented by *Adapter and *UnitOfWork.
type Saver interface {
	Save(key string, version int, value any)
}

// BatchSaver schedules several slot writes that must land together.
type BatchSaver interface {
	SaveAll(entries ...Entry)
}
