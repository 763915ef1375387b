package pcm

import "errors"

var (
	// ErrNoData indicates no eligible period: the head of the queue is not
	// complete yet, or the queue is empty. It is the normal underflow
	// condition, not a failure.
	ErrNoData = errors.New("no period ready")

	// ErrInvalidChannel indicates a channel index outside the period geometry
	ErrInvalidChannel = errors.New("invalid channel")

	// ErrWrongDirection indicates a playback operation on a capture engine
	// or vice versa
	ErrWrongDirection = errors.New("operation not valid for stream direction")

	// ErrClosed indicates the engine or stream was closed
	ErrClosed = errors.New("stream closed")
)
