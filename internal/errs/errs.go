// Package errs defines the error-kind taxonomy shared across the lift
// pipeline: precondition failures (bad input, stale fingerprints),
// I/O failures, postcondition failures (final verify mismatch), and bugs
// (interval-index invariant violations). Callers classify an error with
// errors.Is against the exported sentinels.
package errs

import (
	"github.com/cockroachdb/errors"
)

// Sentinels used with errors.Is / errors.Mark to classify a failure
// without losing the underlying message or stack.
var (
	Precondition  = errors.New("precondition")
	IO            = errors.New("i/o")
	Postcondition = errors.New("postcondition")
)

// Preconditionf builds a Precondition-marked error with a formatted message.
func Preconditionf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), Precondition)
}

// IOf builds an IO-marked error with a formatted message.
func IOf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), IO)
}

// WrapIO marks err as an IO-kind failure, preserving its message and cause.
func WrapIO(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrapf(err, format, args...), IO)
}

// Postconditionf builds a Postcondition-marked error with a formatted message.
func Postconditionf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), Postcondition)
}

// Bug panics with a message identifying an invariant the rest of the
// package believes can never be violated (interval-index corruption,
// split-selection fallthrough). A panic is the idiomatic way to surface
// an unreachable case without inventing a recovery path nothing calls for.
func Bug(format string, args ...interface{}) {
	panic(errors.Newf("looplift: bug: "+format, args...))
}
