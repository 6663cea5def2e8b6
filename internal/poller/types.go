// internal/poller/types.go
package poller

import (
	"time"

	"github.com/InfinityNT/power-meter-monitor-nologin/internal/meter"
)

// PollResult is a snapshot produced by one poll cycle.
type PollResult struct {
	At       time.Time
	Duration time.Duration

	Reading *meter.Reading
	Err     error // non-nil means the poll cycle failed
}
