package service

import (
	"sync"
	"time"

	"github.com/fabura/gonka-tools/internal/features/monitor/domain"
)

// CooldownTracker suppresses repeated alerts for the same identity
// within a fixed window. The window is anchored to the last emission,
// not the last observation, so a continuously breaching metric still
// fires at a steady period.
//
// State is process-lifetime only: a restart resets all cooldowns.
type CooldownTracker struct {
	window       time.Duration
	lastEmission map[domain.AlertIdentity]time.Time
	mu           sync.Mutex
}

// NewCooldownTracker creates a tracker with the given window
func NewCooldownTracker(window time.Duration) *CooldownTracker {
	return &CooldownTracker{
		window:       window,
		lastEmission: make(map[domain.AlertIdentity]time.Time),
	}
}

// ShouldEmit decides whether the finding becomes an alert. A true
// return records now as the identity's new emission anchor. The
// read-then-write is atomic per call: identities are node-scoped in
// practice, but the map is guarded regardless so concurrent per-node
// evaluation cannot race.
func (t *CooldownTracker) ShouldEmit(finding domain.Finding, now time.Time) bool {
	identity := finding.Identity()

	t.mu.Lock()
	defer t.mu.Unlock()

	if last, seen := t.lastEmission[identity]; seen {
		if now.Sub(last) < t.window {
			// Suppressed observations never refresh the anchor
			return false
		}
	}

	t.lastEmission[identity] = now
	return true
}

// TrackedIdentities returns how many identities have fired at least once
func (t *CooldownTracker) TrackedIdentities() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.lastEmission)
}
