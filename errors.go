package starpipe

import "github.com/pkg/errors"

// MalformedRecordError marks a single record which failed
// required-field validation. It is recovered locally: the record is
// skipped and counted, the batch continues.
type MalformedRecordError struct {
	reason string
}

func (e *MalformedRecordError) Error() string {
	return "malformed record: " + e.reason
}

// IsMalformed reports whether err (or any error it wraps) is a
// MalformedRecordError.
func IsMalformed(err error) bool {
	var m *MalformedRecordError
	return errors.As(err, &m)
}

// ErrOrderingViolation is returned when a fact load is attempted
// before the dimension load has committed. This is a programming
// error in the caller; it is never silently reordered.
var ErrOrderingViolation = errors.New("fact load attempted before dimension load committed")

// ErrSinkUnavailable marks a sink which cannot be reached or written.
// Sink implementations wrap their fatal errors with it so the pipeline
// can abort the run and surface partial counts.
var ErrSinkUnavailable = errors.New("sink unavailable")
