package chansel

import "sync/atomic"

// Process-wide monotonic id sources. Channel ids are globally comparable, and
// order lock acquisition in Select (see sellock). Waiter ids only need to be
// unique per live waiter, and exist for diagnostics, e.g. WithLogger output.
var (
	chanIDs   atomic.Uint64
	waiterIDs atomic.Uint64
)

func nextChanID() uint64 { return chanIDs.Add(1) }

func nextWaiterID() uint64 { return waiterIDs.Add(1) }
