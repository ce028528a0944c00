package sweep

import "errors"

var (
	ErrGrid   = errors.New("sweep: invalid grid")
	ErrClosed = errors.New("sweep: session closed")
)
