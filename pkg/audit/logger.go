package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type contextExtractor func(context.Context) (string, bool)

// Logger builds events and hands them to a Storage.
type Logger struct {
	storage            Storage
	filter             *MetadataFilter
	now                func() time.Time
	requestIDExtractor contextExtractor
	ipExtractor        contextExtractor
	userAgentExtractor contextExtractor
}

// Option configures a Logger.
type Option func(*Logger)

// WithRequestIDExtractor reads the request ID from the context.
func WithRequestIDExtractor(fn func(context.Context) (string, bool)) Option {
	return func(l *Logger) { l.requestIDExtractor = fn }
}

// WithIPExtractor reads the client IP from the context.
func WithIPExtractor(fn func(context.Context) (string, bool)) Option {
	return func(l *Logger) { l.ipExtractor = fn }
}

// WithUserAgentExtractor reads the user agent from the context.
func WithUserAgentExtractor(fn func(context.Context) (string, bool)) Option {
	return func(l *Logger) { l.userAgentExtractor = fn }
}

// WithMetadataFilter replaces the default sensitive-field filter.
func WithMetadataFilter(f *MetadataFilter) Option {
	return func(l *Logger) {
		if f != nil {
			l.filter = f
		}
	}
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLogger panics on a nil storage.
func NewLogger(storage Storage, opts ...Option) *Logger {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}

	l := &Logger{
		storage: storage,
		filter:  NewMetadataFilter(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Log records a successful action.
func (l *Logger) Log(ctx context.Context, action string, opts ...EventOption) error {
	event := l.newEvent(ctx, action, ResultSuccess)
	return l.store(ctx, event, opts)
}

// LogError records a failed action together with its cause.
func (l *Logger) LogError(ctx context.Context, action string, err error, opts ...EventOption) error {
	event := l.newEvent(ctx, action, ResultError)
	if err != nil {
		event.Error = err.Error()
	}
	return l.store(ctx, event, opts)
}

func (l *Logger) store(ctx context.Context, event Event, opts []EventOption) error {
	for _, opt := range opts {
		opt(&event)
	}
	if err := event.Validate(); err != nil {
		return err
	}
	event.Metadata = l.filter.Filter(event.Metadata)

	return l.storage.Store(ctx, event)
}

func (l *Logger) newEvent(ctx context.Context, action string, result Result) Event {
	event := Event{
		ID:        uuid.New().String(),
		Action:    action,
		Result:    result,
		CreatedAt: l.now().UTC(),
	}

	if l.requestIDExtractor != nil {
		if v, ok := l.requestIDExtractor(ctx); ok {
			event.RequestID = v
		}
	}
	if l.ipExtractor != nil {
		if v, ok := l.ipExtractor(ctx); ok {
			event.IP = v
		}
	}
	if l.userAgentExtractor != nil {
		if v, ok := l.userAgentExtractor(ctx); ok {
			event.UserAgent = v
		}
	}

	return event
}
