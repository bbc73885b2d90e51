package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// AsyncOptions configures batching and buffering for an AsyncWriter.
type AsyncOptions struct {
	BufferSize     int           // Max events queued before Store starts dropping
	BatchSize      int           // Events per StoreBatch call
	BatchTimeout   time.Duration // Max time a partial batch waits before flushing
	StorageTimeout time.Duration // Per-batch storage deadline
	Logger         *slog.Logger  // Receives flush failures and dropped events
}

// AsyncWriter is a fire-and-forget Storage in front of a BatchStorage.
// Store only enqueues. Storage errors are logged, never returned to callers.
type AsyncWriter struct {
	storage BatchStorage
	events  chan Event
	done    chan struct{}
	wg      sync.WaitGroup
	options AsyncOptions

	mu     sync.RWMutex
	closed bool
}

// NewAsyncWriter starts the batching worker. Zero options take defaults.
func NewAsyncWriter(storage BatchStorage, opts AsyncOptions) *AsyncWriter {
	if storage == nil {
		panic("audit: batch storage cannot be nil")
	}

	if opts.BufferSize <= 0 {
		opts.BufferSize = 1000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = 100 * time.Millisecond
	}
	if opts.StorageTimeout <= 0 {
		opts.StorageTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	aw := &AsyncWriter{
		storage: storage,
		events:  make(chan Event, opts.BufferSize),
		done:    make(chan struct{}),
		options: opts,
	}

	aw.wg.Add(1)
	go aw.worker()

	return aw
}

// Store enqueues the event. It returns ErrBufferFull when the queue is at
// capacity and ErrWriterClosed after Close.
func (aw *AsyncWriter) Store(ctx context.Context, event Event) error {
	aw.mu.RLock()
	defer aw.mu.RUnlock()

	if aw.closed {
		return ErrWriterClosed
	}

	select {
	case aw.events <- event:
		return nil
	default:
		aw.options.Logger.WarnContext(ctx, "audit buffer full, event dropped",
			slog.String("action", event.Action),
			slog.String("account_id", event.AccountID))
		return ErrBufferFull
	}
}

func (aw *AsyncWriter) worker() {
	defer aw.wg.Done()

	batch := make([]Event, 0, aw.options.BatchSize)
	ticker := time.NewTicker(aw.options.BatchTimeout)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), aw.options.StorageTimeout)
		defer cancel()

		if err := aw.storage.StoreBatch(ctx, batch); err != nil {
			aw.options.Logger.ErrorContext(ctx, "failed to store audit batch",
				slog.Int("events", len(batch)),
				slog.String("error", err.Error()))
		}

		clear(batch)
		batch = batch[:0]
	}

	for {
		select {
		case event := <-aw.events:
			batch = append(batch, event)
			if len(batch) >= aw.options.BatchSize {
				flush()
			}

		case <-ticker.C:
			flush()

		case <-aw.done:
			for {
				select {
				case event := <-aw.events:
					batch = append(batch, event)
					if len(batch) >= aw.options.BatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

// Close stops accepting events and flushes what is queued. The context bounds
// how long Close waits for the final flush. Calling Close twice is a no-op.
func (aw *AsyncWriter) Close(ctx context.Context) error {
	aw.mu.Lock()
	if aw.closed {
		aw.mu.Unlock()
		return nil
	}
	aw.closed = true
	close(aw.done)
	aw.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		aw.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
