package backupcode

import "errors"

var (
	ErrInvalidCount         = errors.New("invalid backup code count, must be greater than 0")
	ErrFailedToGenerateCode = errors.New("failed to generate backup code")
	ErrTooManyCollisions    = errors.New("too many backup code collisions")
)
