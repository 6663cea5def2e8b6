// internal/status/tracker.go
package status

import (
	"errors"
	"sync"
	"time"
)

// staleAfter is how long without a good poll before OK degrades to stale.
const staleAfter = 30 * time.Second

// Tracker folds poll outcomes into a health snapshot. Safe for concurrent
// use: the orchestrator observes, HTTP handlers read.
type Tracker struct {
	mu   sync.Mutex
	snap Snapshot
}

func NewTracker() *Tracker {
	return &Tracker{snap: Snapshot{Health: HealthUnknown}}
}

// Observe records the outcome of one poll cycle.
func (t *Tracker) Observe(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err == nil {
		t.snap.Health = HealthOK
		t.snap.LastErrorCode = 0
		t.snap.LastError = ""
		t.snap.SecondsInError = 0
		t.snap.LastGoodPoll = time.Now()
		return
	}

	t.snap.Health = HealthError
	t.snap.LastErrorCode = errorCode(err)
	t.snap.LastError = err.Error()
}

// Tick advances the 1Hz clock: seconds-in-error accumulates while not OK,
// and a silent-but-OK connection degrades to stale.
func (t *Tracker) Tick() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.snap.Health == HealthOK && time.Since(t.snap.LastGoodPoll) > staleAfter {
		t.snap.Health = HealthStale
	}

	if t.snap.Health != HealthOK {
		if t.snap.SecondsInError < 65535 {
			t.snap.SecondsInError++
		}
	}
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

// errorCode extracts a best-effort uint16 code from an error without
// assuming concrete types. Errors that expose no code map to 1.
func errorCode(err error) uint16 {
	if err == nil {
		return 0
	}

	type coderA interface{ Code() uint16 }
	type coderB interface{ ErrorCode() uint16 }
	type coderC interface{ ModbusCode() uint16 }

	var a coderA
	if errors.As(err, &a) {
		return a.Code()
	}
	var b coderB
	if errors.As(err, &b) {
		return b.ErrorCode()
	}
	var c coderC
	if errors.As(err, &c) {
		return c.ModbusCode()
	}

	return 1
}
