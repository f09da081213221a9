// Package report renders completed diagnoses as markdown or HTML and
// keeps an in-memory archive of snapshots. Nothing here touches disk;
// the archive dies with the process.
package report

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sfecr/compliagent/internal/analyst"
)

// Status of an archived analysis run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Snapshot is one archived analysis version.
type Snapshot struct {
	ID        string                    `json:"id"`
	SessionID string                    `json:"session_id"`
	Timestamp time.Time                 `json:"timestamp"`
	FileName  string                    `json:"file_name,omitempty"`
	Status    Status                    `json:"status"`
	Entities  []analyst.ExtractedEntity `json:"entities,omitempty"`
	Diagnosis *analyst.Diagnosis        `json:"diagnosis,omitempty"`
}

// Archive stores snapshots newest-first.
type Archive struct {
	mu        sync.RWMutex
	snapshots map[string]*Snapshot
}

// NewArchive creates an empty archive.
func NewArchive() *Archive {
	return &Archive{snapshots: make(map[string]*Snapshot)}
}

// Save archives a snapshot and returns it with id and timestamp set.
func (a *Archive) Save(snap Snapshot) *Snapshot {
	snap.ID = uuid.New().String()
	snap.Timestamp = time.Now()

	a.mu.Lock()
	a.snapshots[snap.ID] = &snap
	a.mu.Unlock()

	out := snap
	return &out
}

// Get returns the snapshot with the given id, or nil.
func (a *Archive) Get(id string) *Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	snap, ok := a.snapshots[id]
	if !ok {
		return nil
	}
	out := *snap
	return &out
}

// List returns all snapshots, newest first.
func (a *Archive) List() []Snapshot {
	a.mu.RLock()
	out := make([]Snapshot, 0, len(a.snapshots))
	for _, snap := range a.snapshots {
		out = append(out, *snap)
	}
	a.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// Delete removes a snapshot. Unknown ids are a no-op.
func (a *Archive) Delete(id string) {
	a.mu.Lock()
	delete(a.snapshots, id)
	a.mu.Unlock()
}
