// Package pcm converts between continuous per-channel sample streams and
// the fixed-size periods carried by PCM data frames.
//
// An [Engine] holds the period queue of one direction. On the playback side
// the audio framework writes samples with [Engine.WriteSamples] and the
// transport worker drains complete periods with [Engine.NextReadyPeriod].
// The capture side mirrors it: received periods are queued with
// [Engine.AcceptIncoming] and drained per channel with [Engine.ReadSamples].
//
// A [Stream] pairs an engine with the software clock that paces the
// framework through period-elapsed notifications.
package pcm
