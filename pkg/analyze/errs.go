package analyze

import "errors"

var (
	ErrNoHeader    = errors.New("analyze: log has no csv header")
	ErrNoReference = errors.New("analyze: no reference configuration in logs")
	ErrNoLogs      = errors.New("analyze: no .log files")
)
