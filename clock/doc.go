// Package clock emulates the sample clock of an audio stream in software.
//
// A [Timer] tracks the frame position of one stream inside its emulated
// ring buffer and reports period boundaries. [SystemTimer] is driven by
// wall-clock ticks from a [TimeProvider]: positions are kept in units of
// frames*hz, so each tick advances the position by exactly rate units and
// no precision is lost between ticks. Instead of firing at a fixed
// interval, the timer is rearmed for the tick at which the current period
// ends, which guarantees one notification per period without polling.
//
// [ManualProvider] moves time only when told to, which makes clock,
// heartbeat and timeout behavior testable without sleeping:
//
//	tp := clock.NewManualProvider(time.Unix(0, 0))
//	t := clock.NewSystemTimer(tp, 1000, onElapsed)
//	_ = t.Prepare(clock.Params{Rate: 48000, PeriodFrames: 192, BufferFrames: 1536})
//	_ = t.Start()
//	tp.Advance(4 * time.Millisecond) // onElapsed(1)
package clock
