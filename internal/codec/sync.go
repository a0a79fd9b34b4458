package codec

// Decision is the outcome of reconciling a received sync count against the
// locally tracked one.
type Decision int

const (
	// Duplicate: same count seen again, re-render is idempotent, do not
	// advance.
	Duplicate Decision = iota
	// Apply: the expected next step, apply and advance.
	Apply
	// Desync: a gap in either direction. Local state is untrustworthy and
	// must be replaced by a full snapshot, never patched incrementally.
	Desync
)

func (d Decision) String() string {
	switch d {
	case Duplicate:
		return "duplicate"
	case Apply:
		return "apply"
	case Desync:
		return "desync"
	}
	return "unknown"
}

// SyncTracker reconciles broadcast sync counts on the receiving side. It is
// seeded from a full snapshot on (re)connect so the first broadcast after a
// reload does not look like a gap.
type SyncTracker struct {
	local  uint64
	seeded bool
}

// Seed sets the local count from a full-state snapshot and marks the
// tracker trustworthy.
func (t *SyncTracker) Seed(count uint64) {
	t.local = count
	t.seeded = true
}

// Local returns the last reconciled count.
func (t *SyncTracker) Local() uint64 { return t.local }

// Observe reconciles a received count. Before the first Seed every
// state-dependent broadcast is a Desync, forcing a snapshot fetch.
func (t *SyncTracker) Observe(received uint64) Decision {
	if !t.seeded {
		return Desync
	}
	switch received {
	case t.local:
		return Duplicate
	case t.local + 1:
		t.local = received
		return Apply
	default:
		t.seeded = false
		return Desync
	}
}
