package rotation

import (
	"errors"
	"fmt"
)

// AggregatedError is returned after every credential in a pool failed.
// Only the last failure is retained.
type AggregatedError struct {
	Provider string
	Attempts int
	Last     error
}

func (e *AggregatedError) Error() string {
	return fmt.Sprintf("provider %s: all %d credential attempts failed: %v", e.Provider, e.Attempts, e.Last)
}

func (e *AggregatedError) Unwrap() error {
	return e.Last
}

// IsAggregatedError reports whether err is or wraps an AggregatedError.
func IsAggregatedError(err error) bool {
	var aggErr *AggregatedError
	return errors.As(err, &aggErr)
}

// attemptError carries a failure whose message has been scrubbed of the raw
// credential. The original error stays reachable for errors.As.
type attemptError struct {
	msg string
	err error
}

func (e *attemptError) Error() string {
	return e.msg
}

func (e *attemptError) Unwrap() error {
	return e.err
}
