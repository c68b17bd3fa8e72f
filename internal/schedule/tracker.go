package schedule

import "sync"

// Tracker remembers the last status per user so a periodic evaluation only
// publishes when the (current, next) pair changes.
type Tracker struct {
	mu   sync.Mutex
	last map[string]Status
}

func NewTracker() *Tracker {
	return &Tracker{last: make(map[string]Status)}
}

// Observe stores st for userID and reports whether it differs from the
// previous status. The first observation for a user always counts as a change.
func (t *Tracker) Observe(userID string, st Status) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, ok := t.last[userID]
	t.last[userID] = st
	return !ok || st.Changed(prev)
}

// Forget drops the remembered status for userID.
func (t *Tracker) Forget(userID string) {
	t.mu.Lock()
	delete(t.last, userID)
	t.mu.Unlock()
}

// Retain drops every user not in ids.
func (t *Tracker) Retain(ids []string) {
	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}
	t.mu.Lock()
	for id := range t.last {
		if !keep[id] {
			delete(t.last, id)
		}
	}
	t.mu.Unlock()
}
