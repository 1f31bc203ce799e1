// Package chansel implements bounded, multi-producer multi-consumer message
// channels, with multi-way selection across any number of send and receive
// cases, optionally non-blocking via a default case.
//
// Channels pair a fixed-capacity FIFO ring buffer with queues of parked
// operations, preferring direct handoff between a sender and a parked
// receiver (and vice versa) over buffering. Capacity 0 gives a synchronous
// rendezvous. Select commits to exactly one case, polling in a random
// permutation for fairness, and locking channels in a global id order for
// deadlock freedom.
//
// The semantics deliberately mirror Go's built-in channels, including the
// panics on sends to closed channels and on double closes. The value over the
// built-in is a channel that is an ordinary library type: cases are
// first-class values, channels carry optional operation counters (see
// WithMetrics), and lifecycle transitions can be traced via
// [github.com/joeycumines/logiface] (see WithLogger).
package chansel
