package bench

import (
	"context"
	"errors"
	"fmt"
)

// ExitError is a fatal setup error carrying the process exit status.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d: %v", e.Code, e.Err)
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps the result of a run to the process exit status. An interrupted sweep is a
// normal way to stop, so context.Canceled maps to 0.
func ExitCode(err error) int {
	var ee *ExitError
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return 0
	case errors.As(err, &ee):
		return ee.Code
	default:
		return 1
	}
}
