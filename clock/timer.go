package clock

import "errors"

var (
	// ErrInvalidParams indicates a non-positive rate or period, or a buffer
	// shorter than one period.
	ErrInvalidParams = errors.New("invalid clock parameters")

	// ErrNotPrepared indicates Start was called before Prepare.
	ErrNotPrepared = errors.New("clock not prepared")

	// ErrRunning indicates Prepare was called on a running clock.
	ErrRunning = errors.New("clock is running")

	// ErrClosed indicates the clock was closed.
	ErrClosed = errors.New("clock closed")
)

// Params configures a stream clock. Sizes are in frames.
type Params struct {
	Rate         int
	PeriodFrames int
	BufferFrames int
}

// Validate checks the parameters for invalid values.
func (p Params) Validate() error {
	if p.Rate <= 0 || p.PeriodFrames <= 0 || p.BufferFrames < p.PeriodFrames {
		return ErrInvalidParams
	}
	return nil
}

// ElapsedFunc is called with the number of period boundaries passed since
// the previous call. It runs outside the clock lock.
type ElapsedFunc func(periods int)

// Timer emulates the sample clock of one stream. Implementations report
// period boundaries through an ElapsedFunc.
type Timer interface {
	// Prepare resets the position and applies new parameters.
	Prepare(p Params) error
	// Start begins counting from the current time.
	Start() error
	// Stop suspends counting and disarms pending notifications.
	Stop() error
	// Position brings the clock up to date and returns the frame position
	// within the buffer.
	Position() int
	// Close stops the clock permanently.
	Close() error
}
