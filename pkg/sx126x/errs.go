package sx126x

import (
	"errors"
	"fmt"
)

// StatusError is a failed driver operation with its status code.
type StatusError struct {
	Op   string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sx126x: %s failed, code %d", e.Op, e.Code)
}

// Code returns the driver status code carried by err: ErrNone for nil, the StatusError code
// when err wraps one, and ErrSPICmdFailed for any other error.
func Code(err error) int {
	if err == nil {
		return ErrNone
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return ErrSPICmdFailed
}
