package brc

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidOptions  = errors.New("invalid options")
	ErrMalformedRecord = errors.New("malformed record")
	ErrKeyTooLong      = fmt.Errorf("%w: station name longer than %d bytes", ErrMalformedRecord, MAX_KEY_SIZE)
	ErrWorkerPanic     = errors.New("worker terminated abnormally")
)

// RecordError reports the byte offset of the record a worker could not parse.
type RecordError struct {
	Offset int64
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record at offset %d: %v", e.Offset, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrMalformedRecord}, args...)...)
}
