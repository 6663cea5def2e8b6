// internal/meter/latest.go
package meter

import "sync"

// Latest holds the most recent reading for API consumers.
// Safe for concurrent use.
type Latest struct {
	mu sync.RWMutex
	r  *Reading
}

func (l *Latest) Set(r *Reading) {
	l.mu.Lock()
	l.r = r
	l.mu.Unlock()
}

// Get returns the most recent reading, or nil before the first poll.
func (l *Latest) Get() *Reading {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.r
}
