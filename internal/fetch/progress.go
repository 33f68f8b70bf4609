// Package fetch orchestrates GitHub activity retrieval: batched work
// units, progress reporting, cache read-through, and the per-scope fetch
// strategies built on them.
package fetch

import (
	"sync"

	"github.com/DiveshKumarChordia/gitpulse-dashboard-sub000/internal/activity"
)

// ProgressSink receives transient progress emissions during one fetch.
// Emissions are advisory UI state and are never persisted.
type ProgressSink interface {
	Publish(progress activity.Progress)
}

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(progress activity.Progress)

func (f SinkFunc) Publish(progress activity.Progress) {
	f(progress)
}

// Tracker publishes monotone progress for one fetch session. Percentage is
// clamped to [0,100] and never moves backwards even when concurrent units
// finish out of order or the unit total was estimated low.
type Tracker struct {
	mu        sync.Mutex
	sink      ProgressSink
	total     int
	processed int
	lastPct   int
}

// NewTracker creates a tracker over total units. A nil sink discards all
// emissions.
func NewTracker(sink ProgressSink, total int) *Tracker {
	if total < 0 {
		total = 0
	}
	return &Tracker{sink: sink, total: total}
}

// Announce publishes the current position without advancing.
func (t *Tracker) Announce(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.publishLocked(status, false)
}

// Advance records one completed unit and publishes.
func (t *Tracker) Advance(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.processed < t.total {
		t.processed++
	}
	t.publishLocked(status, false)
}

// Finish publishes the terminal emission at 100%.
func (t *Tracker) Finish(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.processed = t.total
	t.lastPct = 100
	if t.sink == nil {
		return
	}
	t.sink.Publish(activity.Progress{
		Processed:  t.processed,
		Total:      t.total,
		Percentage: 100,
		Status:     status,
	})
}

// FinishCached publishes the single emission of a cache-served fetch.
func (t *Tracker) FinishCached(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.processed = t.total
	t.lastPct = 100
	if t.sink == nil {
		return
	}
	t.sink.Publish(activity.Progress{
		Processed:  t.processed,
		Total:      t.total,
		Percentage: 100,
		Status:     status,
		Cached:     true,
	})
}

func (t *Tracker) publishLocked(status string, cached bool) {
	pct := 0
	if t.total > 0 {
		pct = t.processed * 100 / t.total
	}
	if pct > 100 {
		pct = 100
	}
	if pct < t.lastPct {
		pct = t.lastPct
	}
	t.lastPct = pct

	if t.sink == nil {
		return
	}
	t.sink.Publish(activity.Progress{
		Processed:  t.processed,
		Total:      t.total,
		Percentage: pct,
		Status:     status,
		Cached:     cached,
	})
}
