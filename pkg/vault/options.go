package vault

// Option configures a Vault.
type Option func(*Vault)

// WithIterations overrides the PBKDF2 iteration count.
// Envelopes are only readable by a vault using the same count, so this is
// meant for tests that cannot afford the default cost.
func WithIterations(n int) Option {
	return func(v *Vault) {
		if n > 0 {
			v.iterations = n
		}
	}
}

// WithConcurrency limits how many key derivations may run at once.
func WithConcurrency(n int) Option {
	return func(v *Vault) {
		if n > 0 {
			v.concurrency = n
		}
	}
}

// WithLegacyPlaintext toggles the pass-through of values that are not
// envelopes. It is enabled by default.
func WithLegacyPlaintext(enabled bool) Option {
	return func(v *Vault) {
		v.legacyPlaintext = enabled
	}
}
