package entity

import (
	"context"
	"errors"
	"sync"
)

// ErrNoSnapshot is returned when a source holds no data yet.
var ErrNoSnapshot = errors.New("entity: no snapshot available")

// Source produces sealed snapshots.
//
// Implementations must be safe for concurrent use.
type Source interface {
	Load(ctx context.Context) (*Snapshot, error)
}

// MemSource is a [Source] serving an in-memory snapshot.
type MemSource struct {
	mu   sync.Mutex
	snap *Snapshot
}

var _ Source = (*MemSource)(nil)

// NewMemSource returns a source serving snap. A nil snap makes Load fail
// with [ErrNoSnapshot] until [MemSource.Set] is called.
func NewMemSource(snap *Snapshot) *MemSource {
	return &MemSource{snap: snap}
}

// Set replaces the served snapshot.
func (m *MemSource) Set(snap *Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = snap
}

// Load seals and returns the current snapshot.
func (m *MemSource) Load(ctx context.Context) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return nil, ErrNoSnapshot
	}
	if m.snap.Version == "" {
		if err := m.snap.Seal(); err != nil {
			return nil, err
		}
	}
	return m.snap, nil
}
