package generation

import (
	"sort"
	"sync"
	"time"
)

// InFlight tracks which reports are currently generating. At most one
// generation runs per report; different reports run independently.
type InFlight struct {
	mu      sync.Mutex
	reports map[string]time.Time
}

// NewInFlight creates an empty in-flight set
func NewInFlight() *InFlight {
	return &InFlight{reports: make(map[string]time.Time)}
}

// TryAdd claims reportID. It returns false if a generation for it is already running.
func (f *InFlight) TryAdd(reportID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, busy := f.reports[reportID]; busy {
		return false
	}
	f.reports[reportID] = time.Now()
	return true
}

// Remove releases reportID
func (f *InFlight) Remove(reportID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.reports, reportID)
}

// Contains reports whether reportID is generating
func (f *InFlight) Contains(reportID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.reports[reportID]
	return ok
}

// List returns the generating report ids, oldest first
func (f *InFlight) List() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]string, 0, len(f.reports))
	for id := range f.reports {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ti, tj := f.reports[ids[i]], f.reports[ids[j]]
		if ti.Equal(tj) {
			return ids[i] < ids[j]
		}
		return ti.Before(tj)
	})
	return ids
}
