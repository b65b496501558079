package health

import (
	"sync"
	"time"

	"github.com/masa-finance/liveness-supervisor/api/types"
)

// Registry is the in-memory table of worker liveness records.
//
// All methods are O(1) under a single mutex and never perform I/O while holding it,
// so high-frequency heartbeat callers are never stalled by the scan side.
type Registry struct {
	workers map[string]*WorkerRecord
	now     func() time.Time
	mu      sync.Mutex
}

var _ Reporter = (*Registry)(nil)

// NewRegistry creates an empty registry. A nil clock defaults to time.Now.
func NewRegistry(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		workers: make(map[string]*WorkerRecord),
		now:     now,
	}
}

// Register creates or overwrites the record for name.
func (r *Registry) Register(name string, criticality types.Criticality, launcher Launcher) {
	if criticality == "" {
		criticality = types.CriticalityStandard
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.workers[name] = &WorkerRecord{
		Name:        name,
		Criticality: criticality,
		LastSeen:    r.now(),
		Status:      StatusAlive,
		Launcher:    launcher,
	}
}

// Heartbeat updates the record for name. Unknown workers are auto-registered at
// STANDARD criticality instead of being rejected.
func (r *Registry) Heartbeat(name, status string) {
	if status == "" {
		status = StatusAlive
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.workers[name]
	if !exists {
		rec = &WorkerRecord{Name: name, Criticality: types.CriticalityStandard}
		r.workers[name] = rec
	}
	rec.LastSeen = r.now()
	rec.Status = status
	rec.MissedBeats = 0
}

// Attach sets the handle of an already running worker. It returns false if name is unknown.
func (r *Registry) Attach(name string, h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.workers[name]
	if !exists {
		return false
	}
	rec.Handle = h
	return true
}

// RecordMiss increments the missed beat counter of a worker last seen at seen and
// returns the new value. It reports false, leaving the record untouched, when the
// worker is unknown or has reported since seen.
func (r *Registry) RecordMiss(name string, seen time.Time) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.workers[name]
	if !exists || !rec.LastSeen.Equal(seen) {
		return 0, false
	}
	rec.MissedBeats++
	return rec.MissedBeats, true
}

// Touch marks a worker last seen at seen as seen now without changing its status. It
// is used when a silent worker turns out to be alive but slow. A worker that has
// reported since seen is left as is.
func (r *Registry) Touch(name string, seen time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.workers[name]
	if !exists || !rec.LastSeen.Equal(seen) {
		return false
	}
	rec.LastSeen = r.now()
	rec.MissedBeats = 0
	return true
}

// MarkRestarted replaces the handle of a freshly restarted worker and resets its clock.
func (r *Registry) MarkRestarted(name string, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, exists := r.workers[name]; exists {
		rec.Handle = h
		rec.LastSeen = r.now()
		rec.Status = StatusRestarted
		rec.MissedBeats = 0
	}
}

// Get returns a copy of the record for name.
func (r *Registry) Get(name string) (WorkerRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.workers[name]
	if !exists {
		return WorkerRecord{}, false
	}
	return *rec, true
}

// Snapshot returns a point-in-time copy of every record.
func (r *Registry) Snapshot() map[string]WorkerRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make(map[string]WorkerRecord, len(r.workers))
	for name, rec := range r.workers {
		snapshot[name] = *rec
	}
	return snapshot
}

// Len returns the number of known workers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workers)
}
