package chansel

// Log helpers for lifecycle transitions. Every call site tolerates a nil
// logger, as logiface builders are nil-safe.

func (x *core) logParked(w *waiter) {
	x.logger.Debug().
		Uint64(`chan`, x.id).
		Uint64(`waiter`, w.sid).
		Stringer(`kind`, w.kind).
		Bool(`select`, w.selectDone != nil).
		Log(`waiter parked`)
}

func (x *core) logHandoff(w *waiter) {
	x.logger.Trace().
		Uint64(`chan`, x.id).
		Uint64(`waiter`, w.sid).
		Stringer(`kind`, w.kind).
		Log(`direct handoff`)
}

func (x *core) logClosed(woken int) {
	x.logger.Debug().
		Uint64(`chan`, x.id).
		Int(`woken`, woken).
		Log(`channel closed`)
}
