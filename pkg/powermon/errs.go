package powermon

import "github.com/pkg/errors"

var (
	ErrClosed   = errors.New("powermon: client closed")
	ErrBadReply = errors.New("powermon: bad reply")
	ErrMeter    = errors.New("powermon: meter error")
	ErrLinkLost = errors.New("powermon: link lost")
)
