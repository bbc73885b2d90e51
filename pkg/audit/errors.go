package audit

import "errors"

var (
	ErrStorageNotAvailable = errors.New("audit storage is unavailable")
	ErrEventValidation     = errors.New("event validation failed")
	ErrBufferFull          = errors.New("audit buffer is full")
	ErrWriterClosed        = errors.New("audit writer is closed")
)
