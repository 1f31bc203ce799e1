package chansel

import (
	"sync"
	"sync/atomic"

	"github.com/joeycumines/logiface"
)

// Panic messages for channel misuse, matching the semantics of Go's built-in
// channels.
const (
	panicSendClosed  = `chansel: send on closed channel`
	panicCloseClosed = `chansel: close of closed channel`
)

type (
	// core is the element-type-independent channel state. Select operates on
	// cores, so that cases over different element types share one lock
	// ordering and one waiter protocol.
	core struct {
		// id orders lock acquisition across channels, see sellock.
		id uint64

		// mu guards qcount, the ring buffer state on Chan, and both queues.
		mu sync.Mutex

		// qcount is the number of buffered elements. Written under mu, read
		// atomically on the non-blocking fast paths.
		qcount atomic.Int64

		// closed is monotonic, false to true, set under mu.
		closed atomic.Bool

		sendq waiterQueue
		recvq waiterQueue

		logger  *logiface.Logger[logiface.Event]
		metrics *Metrics
	}

	// Chan is a bounded FIFO channel of T. Capacity 0 makes every delivery a
	// synchronous rendezvous between a sender and a receiver.
	// Instances must be initialized using the Make factory.
	Chan[T any] struct {
		core

		// ring buffer state, guarded by core.mu; buf is nil for capacity 0
		buf   []T
		sendx int
		recvx int
	}
)

// Make allocates a new channel with the given capacity. A panic will occur if
// capacity is negative, or an option fails to apply.
func Make[T any](capacity int, opts ...Option) *Chan[T] {
	if capacity < 0 {
		panic(`chansel: make: negative capacity`)
	}

	cfg, err := resolveOptions(opts)
	if err != nil {
		panic(err)
	}

	x := Chan[T]{core: core{
		id:     nextChanID(),
		logger: cfg.logger,
	}}
	if capacity > 0 {
		x.buf = make([]T, capacity)
	}
	if cfg.metrics {
		x.core.metrics = new(Metrics)
	}

	x.logger.Debug().
		Uint64(`chan`, x.id).
		Int(`capacity`, capacity).
		Log(`channel created`)

	return &x
}

// Cap returns the channel's buffer capacity.
func (x *Chan[T]) Cap() int { return len(x.buf) }

// Len returns the number of buffered elements.
func (x *Chan[T]) Len() int { return int(x.qcount.Load()) }

// Metrics returns the channel's operation counters, or nil unless enabled
// via WithMetrics.
func (x *Chan[T]) Metrics() *Metrics { return x.core.metrics }

// full reports whether a send would block. Advisory when called without mu:
// the counterparty queue is read before qcount, so a receiver that was
// already parked is never missed by a non-blocking send.
func (x *Chan[T]) full() bool {
	if x.recvq.size.Load() != 0 {
		return false
	}
	return len(x.buf) == 0 || x.qcount.Load() == int64(len(x.buf))
}

// empty mirrors full, for the receive side.
func (x *Chan[T]) empty() bool {
	if x.sendq.size.Load() != 0 {
		return false
	}
	return len(x.buf) == 0 || x.qcount.Load() == 0
}

// Send delivers v, blocking until a receiver or buffer space accepts it.
// Send panics if the channel is or becomes closed.
func (x *Chan[T]) Send(v T) { x.send(v, true) }

// TrySend attempts to deliver v without blocking, and reports whether it was
// delivered. TrySend panics if the channel is closed.
func (x *Chan[T]) TrySend(v T) bool { return x.send(v, false) }

func (x *Chan[T]) send(v T, block bool) bool {
	// fast path: obviously-blocked non-blocking sends skip the lock; a
	// wrong answer is re-validated under mu
	if !block && !x.closed.Load() && x.full() {
		return false
	}

	x.mu.Lock()

	if x.closed.Load() {
		x.mu.Unlock()
		panic(panicSendClosed)
	}

	if w := x.recvq.dequeue(); w != nil {
		// direct handoff to the oldest parked receiver
		w.val = v
		x.mu.Unlock()
		x.core.metrics.countHandoff()
		x.core.metrics.countSend()
		x.logHandoff(w)
		w.park <- w
		return true
	}

	if x.qcount.Load() < int64(len(x.buf)) {
		x.bufput(v)
		x.mu.Unlock()
		x.core.metrics.countSend()
		return true
	}

	if !block {
		x.mu.Unlock()
		return false
	}

	// park until a receiver pairs with us, or the channel closes
	w := waiter{
		sid:  nextWaiterID(),
		ch:   &x.core,
		kind: waiterSend,
		val:  v,
		park: make(chan *waiter, 1),
	}
	x.enqueueWaiter(&w)
	x.mu.Unlock()

	if sg := <-w.park; sg == nil {
		if !x.closed.Load() {
			panic(`chansel: internal error: spurious wakeup of parked sender`)
		}
		panic(panicSendClosed)
	}

	x.core.metrics.countSend()
	return true
}

// Recv returns the next value, blocking until one is available. The second
// return is false if the channel is closed and drained, in which case value
// is the zero value.
func (x *Chan[T]) Recv() (value T, ok bool) {
	value, ok, _ = x.recv(true)
	return
}

// TryRecv attempts a receive without blocking. If received is false the
// operation would have blocked, and the channel is unchanged. Otherwise the
// result is as for Recv: ok false means closed and drained.
func (x *Chan[T]) TryRecv() (value T, ok bool, received bool) {
	return x.recv(false)
}

func (x *Chan[T]) recv(block bool) (value T, ok bool, received bool) {
	if !block && x.empty() {
		if !x.closed.Load() {
			return value, false, false
		}
		// closed: once drained it stays drained, so a re-check of empty
		// distinguishes "closed and drained" from a racing delivery
		if x.empty() {
			return value, false, true
		}
	}

	x.mu.Lock()

	if x.closed.Load() && x.qcount.Load() == 0 {
		x.mu.Unlock()
		return value, false, true
	}

	if w := x.sendq.dequeue(); w != nil {
		// a parked sender implies a rendezvous (capacity 0), or a full
		// buffer: pop the head slot and refill it from the sender, keeping
		// FIFO order and qcount unchanged
		if len(x.buf) == 0 {
			value = w.val.(T)
		} else {
			value = x.buf[x.recvx]
			x.buf[x.recvx] = w.val.(T)
			x.recvx++
			if x.recvx == len(x.buf) {
				x.recvx = 0
			}
			// still full: the refilled slot is now the tail
			x.sendx = x.recvx
		}
		x.mu.Unlock()
		x.core.metrics.countHandoff()
		x.core.metrics.countRecv()
		x.logHandoff(w)
		w.park <- w
		return value, true, true
	}

	if x.qcount.Load() > 0 {
		value = x.bufget()
		x.mu.Unlock()
		x.core.metrics.countRecv()
		return value, true, true
	}

	if !block {
		x.mu.Unlock()
		return value, false, false
	}

	w := waiter{
		sid:  nextWaiterID(),
		ch:   &x.core,
		kind: waiterRecv,
		park: make(chan *waiter, 1),
	}
	x.enqueueWaiter(&w)
	x.mu.Unlock()

	if sg := <-w.park; sg == nil {
		// closed while parked
		return value, false, true
	}

	x.core.metrics.countRecv()
	return w.val.(T), true, true
}

// Close marks the channel closed and wakes every parked waiter. Parked
// receivers observe the closed result; parked senders panic with "send on
// closed channel", as their value was never delivered. A panic will occur if
// the channel is already closed.
func (x *Chan[T]) Close() {
	x.mu.Lock()

	if x.closed.Load() {
		x.mu.Unlock()
		panic(panicCloseClosed)
	}
	x.closed.Store(true)

	// drain before waking: waking under mu would contend with woken
	// goroutines re-validating their state, and the claiming dequeue skips
	// select losers, keeping the one-poster park invariant
	var drained []*waiter
	for {
		w := x.recvq.dequeue()
		if w == nil {
			break
		}
		drained = append(drained, w)
	}
	for {
		w := x.sendq.dequeue()
		if w == nil {
			break
		}
		drained = append(drained, w)
	}

	x.mu.Unlock()

	x.core.metrics.countCloseWakes(len(drained))
	x.logClosed(len(drained))

	for _, w := range drained {
		w.park <- nil
	}
}

func (x *Chan[T]) bufput(v T) {
	x.buf[x.sendx] = v
	x.sendx++
	if x.sendx == len(x.buf) {
		x.sendx = 0
	}
	x.qcount.Add(1)
	x.core.metrics.countBufferedSend()
}

func (x *Chan[T]) bufget() T {
	var zero T
	v := x.buf[x.recvx]
	x.buf[x.recvx] = zero // drop the reference
	x.recvx++
	if x.recvx == len(x.buf) {
		x.recvx = 0
	}
	x.qcount.Add(-1)
	x.core.metrics.countBufferedRecv()
	return v
}

// enqueueWaiter links w into the queue matching its kind. Call with mu held.
func (x *core) enqueueWaiter(w *waiter) {
	if w.kind == waiterSend {
		x.sendq.enqueue(w)
	} else {
		x.recvq.enqueue(w)
	}
	x.metrics.countPark()
	x.logParked(w)
}

// removeWaiter unlinks w if it is still queued. Call with mu held.
func (x *core) removeWaiter(w *waiter) {
	if w.kind == waiterSend {
		x.sendq.remove(w)
	} else {
		x.recvq.remove(w)
	}
}
