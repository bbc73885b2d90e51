package audit

import "context"

// Storage persists single events.
type Storage interface {
	Store(ctx context.Context, event Event) error
}

// BatchStorage persists events in bulk. A batch either succeeds or fails as a whole.
type BatchStorage interface {
	StoreBatch(ctx context.Context, events []Event) error
}
