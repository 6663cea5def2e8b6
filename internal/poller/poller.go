// internal/poller/poller.go
package poller

import (
	"errors"
	"time"

	"github.com/InfinityNT/power-meter-monitor-nologin/internal/meter"
)

// Source abstracts the meter reads the poller drives.
type Source interface {
	ReadBasic() (*meter.Reading, error)
	ReadDetailed() (*meter.Reading, error)
}

// Config is the minimal runtime config the poller needs.
type Config struct {
	Interval time.Duration
	Detailed bool
}

// Poller is a dumb, clock-driven reader.
type Poller struct {
	cfg    Config
	source Source
}

// New creates a poller with immutable config.
func New(cfg Config, source Source) (*Poller, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if source == nil {
		return nil, errors.New("poller: source required")
	}
	return &Poller{cfg: cfg, source: source}, nil
}

// PollOnce performs exactly one poll cycle.
// All-or-nothing: a failed read yields a result with Err set and no Reading.
func (p *Poller) PollOnce() PollResult {
	res := PollResult{At: time.Now()}

	var reading *meter.Reading
	var err error
	if p.cfg.Detailed {
		reading, err = p.source.ReadDetailed()
	} else {
		reading, err = p.source.ReadBasic()
	}
	res.Duration = time.Since(res.At)

	if err != nil {
		res.Err = err
		return res
	}

	res.Reading = reading
	return res
}
