package protocol

import (
	"errors"
	"fmt"
)

// ErrInvalidFrame is matched by every decode failure.
var ErrInvalidFrame = errors.New("invalid frame")

// ErrInvalidMessage is returned when a message cannot be encoded.
var ErrInvalidMessage = errors.New("invalid message")

// Reasons reported by InvalidFrameError. They are stable and used as metric
// labels.
const (
	ReasonLinkHeader   = "link_header"
	ReasonShort        = "short"
	ReasonTruncated    = "truncated"
	ReasonMagic        = "magic"
	ReasonMsgType      = "msg_type"
	ReasonLength       = "length"
	ReasonSessionCtl   = "session_subtype"
	ReasonUnknownError = "unknown"
)

// InvalidFrameError describes why a frame was rejected.
type InvalidFrameError struct {
	Reason string
	Detail string
}

func (e *InvalidFrameError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("invalid frame: %s", e.Reason)
	}
	return fmt.Sprintf("invalid frame: %s: %s", e.Reason, e.Detail)
}

// Is makes every InvalidFrameError match ErrInvalidFrame.
func (e *InvalidFrameError) Is(target error) bool {
	return target == ErrInvalidFrame
}

func invalid(reason, format string, args ...any) error {
	return &InvalidFrameError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// DropReason extracts the InvalidFrameError reason from err.
func DropReason(err error) string {
	var ife *InvalidFrameError
	if errors.As(err, &ife) {
		return ife.Reason
	}
	return ReasonUnknownError
}
