package chansel

import (
	"math/rand/v2"
	"sort"
	"sync/atomic"
)

type (
	// Case models one branch of a Select. Values are created by RecvCase,
	// SendCase, and DefaultCase.
	Case[R any] interface {
		chanCore() *core

		// tryLocked attempts to complete the case synchronously, with its
		// channel lock held, returning the handler thunk to run once every
		// lock is released.
		tryLocked() (func() R, caseStatus)

		// newWaiter builds this case's parked representative for pass 2.
		newWaiter(index int, done *atomic.Bool, park chan *waiter) *waiter

		// completeWoken dispatches the handler for the won waiter w.
		completeWoken(w *waiter) R
	}

	caseStatus uint8

	recvCase[T, R any] struct {
		c  *Chan[T]
		fn func(value T, ok bool) R
	}

	sendCase[T, R any] struct {
		c  *Chan[T]
		v  T
		fn func() R
	}

	defaultCase[R any] struct {
		fn func() R
	}
)

const (
	caseNotReady caseStatus = iota
	caseReady
	caseClosedSend
)

// RecvCase builds a Select branch that receives from c. The handler's ok
// parameter is false if c was closed and drained, in which case value is the
// zero value, mirroring a two-value channel receive.
func RecvCase[T, R any](c *Chan[T], handler func(value T, ok bool) R) Case[R] {
	if c == nil {
		panic(`chansel: select: nil channel`)
	}
	if handler == nil {
		panic(`chansel: select: nil handler`)
	}
	return recvCase[T, R]{c: c, fn: handler}
}

// SendCase builds a Select branch that sends value on c. The handler runs
// after the value is delivered. Select panics with "send on closed channel"
// if it observes c closed before another case commits.
func SendCase[T, R any](c *Chan[T], value T, handler func() R) Case[R] {
	if c == nil {
		panic(`chansel: select: nil channel`)
	}
	if handler == nil {
		panic(`chansel: select: nil handler`)
	}
	return sendCase[T, R]{c: c, v: value, fn: handler}
}

// DefaultCase makes Select non-blocking: the handler runs if and only if no
// other case is immediately completable. At most one per Select.
func DefaultCase[R any](handler func() R) Case[R] {
	if handler == nil {
		panic(`chansel: select: nil handler`)
	}
	return defaultCase[R]{fn: handler}
}

// Select blocks until exactly one of the given cases completes, then returns
// the result of that case's handler. Immediately completable cases are
// polled in a random permutation, so no case is preferred by position. If a
// DefaultCase is present and no other case is immediately completable, it
// runs instead of blocking.
//
// A Select with no cases (and no default) blocks forever, like an empty
// select statement. A panic will occur on a nil case, on more than one
// DefaultCase, or if a SendCase's channel is closed.
func Select[R any](cases ...Case[R]) R {
	var def func() R
	chanCases := make([]Case[R], 0, len(cases))
	for _, c := range cases {
		switch v := c.(type) {
		case nil:
			panic(`chansel: select: nil case`)
		case defaultCase[R]:
			if def != nil {
				panic(`chansel: select: multiple default cases`)
			}
			def = v.fn
		default:
			chanCases = append(chanCases, c)
		}
	}

	if len(chanCases) == 0 {
		if def != nil {
			return def()
		}
		select {} // block forever, like the empty select statement
	}

	// lock order: ascending channel id, stable so duplicates are adjacent
	lockOrder := make([]int, len(chanCases))
	for i := range lockOrder {
		lockOrder[i] = i
	}
	sort.SliceStable(lockOrder, func(a, b int) bool {
		return chanCases[lockOrder[a]].chanCore().id < chanCases[lockOrder[b]].chanCore().id
	})

	for {
		// poll order: a fresh random permutation per attempt
		pollOrder := rand.Perm(len(chanCases))

		sellock(chanCases, lockOrder)

		// pass 1: try each case synchronously, in poll order
		for _, i := range pollOrder {
			thunk, status := chanCases[i].tryLocked()
			switch status {
			case caseReady:
				selunlock(chanCases, lockOrder)
				return thunk()
			case caseClosedSend:
				selunlock(chanCases, lockOrder)
				panic(panicSendClosed)
			}
		}

		if def != nil {
			selunlock(chanCases, lockOrder)
			return def()
		}

		// pass 2: enqueue one waiter per case, sharing a single claim flag
		// and a single park slot
		done := new(atomic.Bool)
		park := make(chan *waiter, 1)
		waiters := make([]*waiter, len(chanCases))
		for _, i := range lockOrder {
			w := chanCases[i].newWaiter(i, done, park)
			waiters[i] = w
			chanCases[i].chanCore().enqueueWaiter(w)
		}

		selunlock(chanCases, lockOrder)

		sg := <-park

		// pass 3: losers may still be linked; unlink them all
		sellock(chanCases, lockOrder)
		for _, i := range lockOrder {
			w := waiters[i]
			w.ch.removeWaiter(w)
		}
		selunlock(chanCases, lockOrder)

		if sg != nil {
			return chanCases[sg.caseIndex].completeWoken(sg)
		}

		// woken by close: retry, so the closed channel resolves through
		// pass 1, under a fresh permutation and claim flag
	}
}

// sellock acquires every distinct channel lock, ascending by id. lockOrder
// holds case indices sorted by channel id, so duplicates are adjacent, and
// each distinct channel is locked exactly once.
func sellock[R any](cases []Case[R], lockOrder []int) {
	var prev *core
	for _, i := range lockOrder {
		if c := cases[i].chanCore(); c != prev {
			c.mu.Lock()
			prev = c
		}
	}
}

// selunlock releases in reverse, skipping duplicates.
func selunlock[R any](cases []Case[R], lockOrder []int) {
	for i := len(lockOrder) - 1; i >= 0; i-- {
		c := cases[lockOrder[i]].chanCore()
		if i > 0 && cases[lockOrder[i-1]].chanCore() == c {
			continue
		}
		c.mu.Unlock()
	}
}

func (x recvCase[T, R]) chanCore() *core { return &x.c.core }

func (x recvCase[T, R]) tryLocked() (func() R, caseStatus) {
	c := x.c
	if w := c.sendq.dequeue(); w != nil {
		var value T
		if len(c.buf) == 0 {
			value = w.val.(T)
		} else {
			// full buffer: pop the head slot, refill it from the sender
			value = c.buf[c.recvx]
			c.buf[c.recvx] = w.val.(T)
			c.recvx++
			if c.recvx == len(c.buf) {
				c.recvx = 0
			}
			// still full: the refilled slot is now the tail
			c.sendx = c.recvx
		}
		c.core.metrics.countHandoff()
		c.core.metrics.countRecv()
		w.park <- w // capacity 1, sole poster: never blocks under locks
		return func() R { return x.fn(value, true) }, caseReady
	}
	if c.qcount.Load() > 0 {
		value := c.bufget()
		c.core.metrics.countRecv()
		return func() R { return x.fn(value, true) }, caseReady
	}
	if c.closed.Load() {
		return func() R {
			var zero T
			return x.fn(zero, false)
		}, caseReady
	}
	return nil, caseNotReady
}

func (x recvCase[T, R]) newWaiter(index int, done *atomic.Bool, park chan *waiter) *waiter {
	return &waiter{
		sid:        nextWaiterID(),
		ch:         &x.c.core,
		kind:       waiterRecv,
		park:       park,
		selectDone: done,
		caseIndex:  index,
	}
}

func (x recvCase[T, R]) completeWoken(w *waiter) R {
	x.c.core.metrics.countRecv()
	return x.fn(w.val.(T), true)
}

func (x sendCase[T, R]) chanCore() *core { return &x.c.core }

func (x sendCase[T, R]) tryLocked() (func() R, caseStatus) {
	c := x.c
	if c.closed.Load() {
		return nil, caseClosedSend
	}
	if w := c.recvq.dequeue(); w != nil {
		w.val = x.v
		c.core.metrics.countHandoff()
		c.core.metrics.countSend()
		w.park <- w
		return x.fn, caseReady
	}
	if c.qcount.Load() < int64(len(c.buf)) {
		c.bufput(x.v)
		c.core.metrics.countSend()
		return x.fn, caseReady
	}
	return nil, caseNotReady
}

func (x sendCase[T, R]) newWaiter(index int, done *atomic.Bool, park chan *waiter) *waiter {
	return &waiter{
		sid:        nextWaiterID(),
		ch:         &x.c.core,
		kind:       waiterSend,
		val:        x.v,
		park:       park,
		selectDone: done,
		caseIndex:  index,
	}
}

func (x sendCase[T, R]) completeWoken(*waiter) R {
	x.c.core.metrics.countSend()
	return x.fn()
}

func (x defaultCase[R]) chanCore() *core { return nil }

func (x defaultCase[R]) tryLocked() (func() R, caseStatus) { return nil, caseNotReady }

func (x defaultCase[R]) newWaiter(int, *atomic.Bool, chan *waiter) *waiter { return nil }

func (x defaultCase[R]) completeWoken(*waiter) R { return x.fn() }
