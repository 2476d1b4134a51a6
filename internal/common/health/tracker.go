// Package health tracks availability of external dependencies.
package health

import (
	"sync"
	"time"
)

// Status describes the last known state of a tracked component.
type Status struct {
	Available bool      `json:"available"`
	LastCheck time.Time `json:"lastCheck"`
	LastError string    `json:"lastError,omitempty"`
}

// Tracker records component availability as reported by the code paths
// that actually talk to each dependency. Handlers read it for /health.
type Tracker struct {
	mu         sync.RWMutex
	components map[string]Status
}

func NewTracker() *Tracker {
	return &Tracker{
		components: make(map[string]Status),
	}
}

// SetAvailable marks a component as healthy.
func (t *Tracker) SetAvailable(component string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.components[component] = Status{
		Available: true,
		LastCheck: time.Now().UTC(),
	}
}

// SetUnavailable marks a component as unhealthy with the causing error.
func (t *Tracker) SetUnavailable(component string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	status := Status{
		Available: false,
		LastCheck: time.Now().UTC(),
	}
	if err != nil {
		status.LastError = err.Error()
	}
	t.components[component] = status
}

// IsAvailable reports the last known availability of a component.
// Unknown components are treated as available so a component is only
// degraded after an observed failure.
func (t *Tracker) IsAvailable(component string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	status, exists := t.components[component]
	if !exists {
		return true
	}
	return status.Available
}

// Snapshot returns a copy of all tracked component statuses.
func (t *Tracker) Snapshot() map[string]Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]Status, len(t.components))
	for k, v := range t.components {
		out[k] = v
	}
	return out
}
