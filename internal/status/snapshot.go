// internal/status/snapshot.go
package status

import "time"

// Snapshot is the current health state, nothing more.
// It contains no logic and no memory of the past beyond current state.
type Snapshot struct {
	Health         uint16
	LastErrorCode  uint16
	LastError      string
	SecondsInError uint16
	LastGoodPoll   time.Time
}
