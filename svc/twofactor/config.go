package twofactor

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/twofactor/pkg/ratelimiter"
	"github.com/dmitrymomot/twofactor/pkg/vault"
)

// Config is loaded from TWO_FACTOR_* environment variables.
type Config struct {
	MasterKey            string        `env:"TWO_FACTOR_MASTER_KEY,required,notEmpty"`
	Issuer               string        `env:"TWO_FACTOR_ISSUER" envDefault:"TwoFactor"`
	AllowLegacyPlaintext bool          `env:"TWO_FACTOR_ALLOW_LEGACY_PLAINTEXT" envDefault:"true"`
	Window               int           `env:"TWO_FACTOR_WINDOW" envDefault:"1"`
	BackupCodeCount      int           `env:"TWO_FACTOR_BACKUP_CODE_COUNT" envDefault:"10"`
	AttemptCapacity      int           `env:"TWO_FACTOR_ATTEMPT_CAPACITY" envDefault:"5"`
	AttemptRefill        int           `env:"TWO_FACTOR_ATTEMPT_REFILL" envDefault:"1"`
	AttemptInterval      time.Duration `env:"TWO_FACTOR_ATTEMPT_INTERVAL" envDefault:"1m"`
	AuditTimeout         time.Duration `env:"TWO_FACTOR_AUDIT_TIMEOUT" envDefault:"5s"`
}

// LogValue keeps the master key out of logs.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("issuer", c.Issuer),
		slog.Bool("allow_legacy_plaintext", c.AllowLegacyPlaintext),
		slog.Int("window", c.Window),
		slog.Int("backup_code_count", c.BackupCodeCount),
		slog.Int("attempt_capacity", c.AttemptCapacity),
	)
}

// AttemptLimit is the token bucket policy for verification attempts. Unset
// refill fields fall back to one token per minute.
func (c Config) AttemptLimit() ratelimiter.Config {
	limit := ratelimiter.Config{
		Capacity:       c.AttemptCapacity,
		RefillRate:     c.AttemptRefill,
		RefillInterval: c.AttemptInterval,
	}
	if limit.RefillRate <= 0 {
		limit.RefillRate = 1
	}
	if limit.RefillInterval <= 0 {
		limit.RefillInterval = time.Minute
	}
	return limit
}

// NewServiceFromConfig builds the vault and, when AttemptCapacity is positive,
// an in-memory attempt limiter from cfg. cfg is applied before opts, so
// explicit options win. Service.Close stops the limiter's cleanup loop.
func NewServiceFromConfig(cfg Config, storage Storage, opts ...Option) (*Service, error) {
	v, err := vault.New(cfg.MasterKey, vault.WithLegacyPlaintext(cfg.AllowLegacyPlaintext))
	if err != nil {
		return nil, err
	}

	base := []Option{
		WithIssuer(cfg.Issuer),
		WithWindow(cfg.Window),
		WithBackupCodeCount(cfg.BackupCodeCount),
		WithAuditTimeout(cfg.AuditTimeout),
	}

	var closers []func() error
	if cfg.AttemptCapacity > 0 {
		store := ratelimiter.NewMemoryStore()
		bucket, err := ratelimiter.NewBucket(store, cfg.AttemptLimit())
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		base = append(base, WithAttemptLimiter(bucket))
		closers = append(closers, store.Close)
	}

	s := NewService(storage, v, append(base, opts...)...)
	s.closers = append(s.closers, closers...)

	return s, nil
}
