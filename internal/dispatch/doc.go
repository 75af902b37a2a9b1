// Package dispatch runs chart computations in the background, decoupled
// from the HTTP request that submitted them.
//
// A submission that passed authentication and validation is acknowledged to
// the caller and enqueued here as a Task. Worker goroutines drain the queue:
// each task computes the chart, merge-upserts the subject's result slot, and
// only then appends a notification and fans it out to the delivery sinks, so
// a client reacting to a success notification always finds a completed
// result. Every failure after the acknowledgment is converted into an
// error-kind notification; nothing propagates back to the long-gone request
// or crashes the process. Tasks for the same subject may race; the result
// slot is latest-write-wins by design.
package dispatch
