// Package board holds the per-session copy of every activity the page shows.
// It is the only client-side source of truth between round-trips to the
// Activities API: it is filled once by the loader and patched in place by the
// signup and removal flows, never refetched.
package board

import (
	"sync"

	"activityboard/internal/domain/activity"
)

// Status is the loader outcome for a board.
type Status string

// Board statuses
const (
	StatusEmpty  Status = "empty"
	StatusLoaded Status = "loaded"
	StatusFailed Status = "failed"
)

// Board is an ordered mapping from activity name to its snapshot.
// Concurrent requests on the same board are serialized; the last write wins.
type Board struct {
	mu      sync.RWMutex
	status  Status
	order   []string
	records map[string]activity.Activity
}

// New creates an empty board.
func New() *Board {
	return &Board{status: StatusEmpty, records: make(map[string]activity.Activity)}
}

// Reset replaces every snapshot with list, keeping list order.
// PRE: names in list are unique
// POST: status is loaded; Names() follows list order
func (b *Board) Reset(list []activity.Activity) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.order = make([]string, 0, len(list))
	b.records = make(map[string]activity.Activity, len(list))
	for _, a := range list {
		if _, dup := b.records[a.Name]; !dup {
			b.order = append(b.order, a.Name)
		}
		b.records[a.Name] = clone(a)
	}
	b.status = StatusLoaded
}

// MarkFailed empties the board and records a failed load.
// POST: status is failed, no records
func (b *Board) MarkFailed() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.order = nil
	b.records = make(map[string]activity.Activity)
	b.status = StatusFailed
}

// Status returns the loader outcome.
func (b *Board) Status() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

// Names returns activity names in load order.
func (b *Board) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// Get returns a copy of the snapshot for name.
func (b *Board) Get(name string) (activity.Activity, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	a, ok := b.records[name]
	if !ok {
		return activity.Activity{}, false
	}
	return clone(a), true
}

// List returns copies of every snapshot in load order.
func (b *Board) List() []activity.Activity {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]activity.Activity, 0, len(b.order))
	for _, name := range b.order {
		out = append(out, clone(b.records[name]))
	}
	return out
}

// Patch applies fn to the snapshot for name and stores the result.
// Unknown names are left alone and reported with ok=false.
// POST: on ok, Get(name) returns the patched snapshot
func (b *Board) Patch(name string, fn func(activity.Activity) activity.Activity) (activity.Activity, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	current, ok := b.records[name]
	if !ok {
		return activity.Activity{}, false
	}
	updated := fn(clone(current))
	updated.Name = name
	b.records[name] = clone(updated)
	return clone(updated), true
}

func clone(a activity.Activity) activity.Activity {
	if a.Participants != nil {
		a.Participants = append([]string(nil), a.Participants...)
	}
	return a
}
