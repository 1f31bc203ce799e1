package chansel

import "sync/atomic"

type waiterKind uint8

const (
	waiterSend waiterKind = iota
	waiterRecv
)

func (x waiterKind) String() string {
	if x == waiterSend {
		return `send`
	}
	return `recv`
}

type (
	// waiter is one parked operation, linked into a channel's send or recv
	// queue. All fields other than val and the links are immutable after
	// construction; val and the links are guarded by the owning channel's
	// mutex, except that the counterparty that claims a recv waiter writes
	// val before posting to park.
	waiter struct {
		sid  uint64
		ch   *core
		kind waiterKind

		// val carries the boxed element: senders populate it ahead of
		// enqueue, and a direct handoff writes it into a recv waiter.
		val any

		// park is the one-shot slot the parked goroutine blocks on. The
		// waker posts the claimed waiter; close posts nil. At most one post
		// can occur per selectDone generation, so the capacity-1 post never
		// blocks, even with channel locks held.
		park chan *waiter

		// selectDone is shared by every waiter belonging to one Select
		// pass, and is nil for single-channel operations. The first CAS
		// from false to true claims the whole select.
		selectDone *atomic.Bool
		// caseIndex identifies the originating select case; meaningful only
		// when selectDone is non-nil.
		caseIndex int

		prev, next *waiter
	}

	// waiterQueue is a FIFO of parked operations. size is maintained under
	// the owning channel's mutex, but read without it on the non-blocking
	// fast paths; it may transiently include select waiters already won
	// elsewhere, which is fine, as those reads are advisory.
	waiterQueue struct {
		head, tail *waiter
		size       atomic.Int64
	}
)

// claim marks x as taken by the caller. Single-op waiters are always
// claimable; select waiters are claimable by exactly one caller.
func (x *waiter) claim() bool {
	return x.selectDone == nil || x.selectDone.CompareAndSwap(false, true)
}

func (x *waiterQueue) enqueue(w *waiter) {
	w.prev = x.tail
	w.next = nil
	if x.tail != nil {
		x.tail.next = w
	} else {
		x.head = w
	}
	x.tail = w
	x.size.Add(1)
}

// dequeue pops the oldest claimable waiter, discarding any select waiter
// already won elsewhere (a ghost). Returns nil once the queue is empty.
func (x *waiterQueue) dequeue() *waiter {
	for {
		w := x.head
		if w == nil {
			return nil
		}
		x.head = w.next
		if x.head != nil {
			x.head.prev = nil
		} else {
			x.tail = nil
		}
		w.prev, w.next = nil, nil
		x.size.Add(-1)
		if !w.claim() {
			continue
		}
		return w
	}
}

// remove unlinks w, tolerating waiters a counterparty already dequeued.
func (x *waiterQueue) remove(w *waiter) {
	if w.prev == nil && w.next == nil && x.head != w {
		return
	}
	if w.prev != nil {
		w.prev.next = w.next
	} else {
		x.head = w.next
	}
	if w.next != nil {
		w.next.prev = w.prev
	} else {
		x.tail = w.prev
	}
	w.prev, w.next = nil, nil
	x.size.Add(-1)
}
