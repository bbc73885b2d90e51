package twofactor

import (
	"errors"

	"github.com/dmitrymomot/twofactor/pkg/vault"
)

var (
	ErrInvalidCode       = errors.New("invalid two-factor code")
	ErrNotSetUp          = errors.New("two-factor authentication is not set up")
	ErrAlreadyEnabled    = errors.New("two-factor authentication is already enabled")
	ErrDecryptionFailure = vault.ErrDecryptionFailed
	ErrUnavailable       = errors.New("two-factor storage unavailable")
	ErrRecordNotFound    = errors.New("two-factor record not found")
	ErrTooManyAttempts   = errors.New("too many two-factor attempts")
	ErrMissingAccountID  = errors.New("missing account id")
)

// errNoChange aborts a storage callback without writing. It never leaves the package.
var errNoChange = errors.New("no change")
