package services

import (
	"log"
	"sync"
	"time"
)

const minSweepInterval = 60 * time.Second

// SessionData holds the workflow fields staged for one Slack user.
type SessionData map[string]interface{}

// String returns a string field.
func (d SessionData) String(key string) (string, bool) {
	v, ok := d[key].(string)
	return v, ok
}

// Int64 returns a numeric field as int64.
func (d SessionData) Int64(key string) (int64, bool) {
	switch v := d[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}

// Bool returns a boolean field.
func (d SessionData) Bool(key string) (bool, bool) {
	v, ok := d[key].(bool)
	return v, ok
}

func (d SessionData) clone() SessionData {
	out := make(SessionData, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

type sessionEntry struct {
	data      SessionData
	expiresAt time.Time
}

// SessionManager is an in-process session store keyed by Slack user id.
// Entries expire TTL after their last write; expired entries are dropped on
// read and by a background sweep.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// SessionOption configures a SessionManager.
type SessionOption func(*SessionManager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SessionOption {
	return func(sm *SessionManager) { sm.now = now }
}

// WithSweepInterval overrides the computed sweep interval.
func WithSweepInterval(d time.Duration) SessionOption {
	return func(sm *SessionManager) { sm.interval = d }
}

// NewSessionManager creates the store and starts its sweeper. Call Close to stop it.
func NewSessionManager(ttl time.Duration, opts ...SessionOption) *SessionManager {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	sm := &SessionManager{
		sessions: make(map[string]*sessionEntry),
		ttl:      ttl,
		interval: SweepInterval(ttl),
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(sm)
	}

	go sm.cleanupExpiredSessions()

	return sm
}

// SweepInterval is TTL/2, never less than a minute.
func SweepInterval(ttl time.Duration) time.Duration {
	interval := ttl / 2
	if interval < minSweepInterval {
		interval = minSweepInterval
	}
	return interval
}

// TTL returns the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// Get returns a copy of the user's session, or false if absent or expired.
func (sm *SessionManager) Get(userID string) (SessionData, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	entry, ok := sm.liveEntry(userID)
	if !ok {
		return nil, false
	}
	return entry.data.clone(), true
}

// Has reports whether a non-expired session exists.
func (sm *SessionManager) Has(userID string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	_, ok := sm.liveEntry(userID)
	return ok
}

// Set replaces the user's session and restamps its expiry.
func (sm *SessionManager) Set(userID string, data SessionData) SessionData {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	stored := data.clone()
	sm.sessions[userID] = &sessionEntry{data: stored, expiresAt: sm.now().Add(sm.ttl)}
	return stored.clone()
}

// Update merges patch into the user's session (or an empty one) and restamps
// its expiry. Keys absent from patch are left untouched.
func (sm *SessionManager) Update(userID string, patch SessionData) SessionData {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	merged := SessionData{}
	if entry, ok := sm.liveEntry(userID); ok {
		merged = entry.data
	}
	for k, v := range patch {
		merged[k] = v
	}
	sm.sessions[userID] = &sessionEntry{data: merged, expiresAt: sm.now().Add(sm.ttl)}
	return merged.clone()
}

// Delete removes the user's session. Deleting a missing session is a no-op.
func (sm *SessionManager) Delete(userID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	delete(sm.sessions, userID)
}

// Len returns the number of stored entries, including any not yet swept.
func (sm *SessionManager) Len() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	return len(sm.sessions)
}

// Sweep removes every expired entry and returns how many were removed.
func (sm *SessionManager) Sweep() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := sm.now()
	removed := 0
	for userID, entry := range sm.sessions {
		if !now.Before(entry.expiresAt) {
			delete(sm.sessions, userID)
			removed++
		}
	}
	return removed
}

// Close stops the background sweeper.
func (sm *SessionManager) Close() {
	sm.closeOnce.Do(func() {
		close(sm.stop)
		<-sm.done
	})
}

// liveEntry must be called with mu held. Expired entries are deleted.
func (sm *SessionManager) liveEntry(userID string) (*sessionEntry, bool) {
	entry, ok := sm.sessions[userID]
	if !ok {
		return nil, false
	}
	if !sm.now().Before(entry.expiresAt) {
		delete(sm.sessions, userID)
		return nil, false
	}
	return entry, true
}

func (sm *SessionManager) cleanupExpiredSessions() {
	defer close(sm.done)

	ticker := time.NewTicker(sm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-sm.stop:
			return
		case <-ticker.C:
			if n := sm.Sweep(); n > 0 {
				log.Printf("🧹 Cleaned up %d expired session(s)", n)
			}
		}
	}
}
