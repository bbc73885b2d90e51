package twofactor

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/twofactor/pkg/audit"
	"github.com/dmitrymomot/twofactor/pkg/ratelimiter"
)

// Vault seals secrets before they reach storage. *vault.Vault satisfies it.
type Vault interface {
	Encrypt(ctx context.Context, plaintext string) (string, error)
	Decrypt(ctx context.Context, envelope string) (string, error)
}

// AuditLogger receives audit events. *audit.Logger satisfies it.
type AuditLogger interface {
	Log(ctx context.Context, action string, opts ...audit.EventOption) error
	LogError(ctx context.Context, action string, err error, opts ...audit.EventOption) error
}

// Limiter caps verification attempts per key. *ratelimiter.Bucket satisfies it.
type Limiter interface {
	Allow(ctx context.Context, key string) (*ratelimiter.Result, error)
	Reset(ctx context.Context, key string) error
}

// Option configures a Service.
type Option func(*Service)

// WithIssuer sets the issuer shown by authenticator apps.
func WithIssuer(issuer string) Option {
	return func(s *Service) {
		if issuer != "" {
			s.issuer = issuer
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger. Logs are discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithAuditLogger enables audit events.
func WithAuditLogger(a AuditLogger) Option {
	return func(s *Service) { s.audit = a }
}

// WithAuditTimeout bounds each audit call.
func WithAuditTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.auditTimeout = d
		}
	}
}

// WithAttemptLimiter caps verification attempts per account.
func WithAttemptLimiter(l Limiter) Option {
	return func(s *Service) { s.limiter = l }
}

// WithWindow sets how many 30 second steps either side of now are accepted.
func WithWindow(steps int) Option {
	return func(s *Service) {
		if steps >= 0 {
			s.window = steps
		}
	}
}

// WithBackupCodeCount sets how many backup codes Setup and RegenerateBackupCodes issue.
func WithBackupCodeCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.backupCodeCount = n
		}
	}
}

// WithLabelResolver maps an account ID to the label shown in the
// authenticator app, typically an email. The account ID is used by default.
func WithLabelResolver(fn func(ctx context.Context, accountID string) string) Option {
	return func(s *Service) {
		if fn != nil {
			s.labelFor = fn
		}
	}
}
