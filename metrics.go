package chansel

import "sync/atomic"

type (
	// Metrics tracks operation counters for a single channel, enabled via
	// WithMetrics. All methods are safe for concurrent use, and tolerate a
	// nil receiver, so channels without metrics pay a single nil check per
	// counter.
	Metrics struct {
		sends         atomic.Uint64
		recvs         atomic.Uint64
		handoffs      atomic.Uint64
		bufferedSends atomic.Uint64
		bufferedRecvs atomic.Uint64
		parks         atomic.Uint64
		closeWakes    atomic.Uint64
	}

	// MetricsSnapshot is a point-in-time copy of a channel's Metrics.
	MetricsSnapshot struct {
		// Sends is the number of successfully delivered sends.
		Sends uint64

		// Recvs is the number of receives that returned a value.
		Recvs uint64

		// Handoffs counts deliveries that paired a sender directly with a
		// receiver, bypassing or rotating through the buffer. Each pairing
		// counts once.
		Handoffs uint64

		// BufferedSends and BufferedRecvs count ring buffer puts and gets.
		BufferedSends uint64
		BufferedRecvs uint64

		// Parks counts waiters parked on this channel, selects included.
		Parks uint64

		// CloseWakes counts waiters woken by Close.
		CloseWakes uint64
	}
)

// Snapshot returns a copy of the current counter values. Counters read
// concurrently with operations may be mutually inconsistent, e.g. a send
// counted before its matching receive.
func (x *Metrics) Snapshot() MetricsSnapshot {
	if x == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		Sends:         x.sends.Load(),
		Recvs:         x.recvs.Load(),
		Handoffs:      x.handoffs.Load(),
		BufferedSends: x.bufferedSends.Load(),
		BufferedRecvs: x.bufferedRecvs.Load(),
		Parks:         x.parks.Load(),
		CloseWakes:    x.closeWakes.Load(),
	}
}

func (x *Metrics) countSend() {
	if x != nil {
		x.sends.Add(1)
	}
}

func (x *Metrics) countRecv() {
	if x != nil {
		x.recvs.Add(1)
	}
}

func (x *Metrics) countHandoff() {
	if x != nil {
		x.handoffs.Add(1)
	}
}

func (x *Metrics) countBufferedSend() {
	if x != nil {
		x.bufferedSends.Add(1)
	}
}

func (x *Metrics) countBufferedRecv() {
	if x != nil {
		x.bufferedRecvs.Add(1)
	}
}

func (x *Metrics) countPark() {
	if x != nil {
		x.parks.Add(1)
	}
}

func (x *Metrics) countCloseWakes(n int) {
	if x != nil {
		x.closeWakes.Add(uint64(n))
	}
}
