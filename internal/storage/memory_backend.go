package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryBackend is an in-memory implementation of Backend for testing.
type MemoryBackend struct {
	mu       sync.RWMutex
	readOnly bool
	units    map[string]UnitRecord
	defs     map[string]DefRecord
	edges    map[string]EdgeRecord
}

// NewMemoryBackend creates a new in-memory index backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		units: make(map[string]UnitRecord),
		defs:  make(map[string]DefRecord),
		edges: make(map[string]EdgeRecord),
	}
}

// Initialize implements Backend.
func (m *MemoryBackend) Initialize(path string, readOnly bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readOnly = readOnly
	return nil
}

// Close implements Backend.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.units = nil
	m.defs = nil
	m.edges = nil
	return nil
}

// BulkLoad implements Backend.
func (m *MemoryBackend) BulkLoad(ctx context.Context, snap *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.readOnly {
		return ErrReadOnly
	}

	m.units = make(map[string]UnitRecord, len(snap.Units))
	m.defs = make(map[string]DefRecord, len(snap.Defs))
	m.edges = make(map[string]EdgeRecord, len(snap.Edges))

	for _, u := range snap.Units {
		m.units[u.RelPath] = u
	}
	for _, d := range snap.Defs {
		m.defs[d.ID] = d
	}
	for _, e := range snap.Edges {
		m.edges[e.ID] = e
	}
	return nil
}

// Units implements Backend.
func (m *MemoryBackend) Units(ctx context.Context) ([]UnitRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	units := make([]UnitRecord, 0, len(m.units))
	for _, u := range m.units {
		units = append(units, u)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].RelPath < units[j].RelPath })
	return units, nil
}

// GetUnit implements Backend.
func (m *MemoryBackend) GetUnit(ctx context.Context, relPath string) (*UnitRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if u, ok := m.units[relPath]; ok {
		return &u, nil
	}
	return nil, nil
}

// DefsByFile implements Backend.
func (m *MemoryBackend) DefsByFile(ctx context.Context, relPath string) ([]DefRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var defs []DefRecord
	for _, d := range m.defs {
		if d.File == relPath {
			defs = append(defs, d)
		}
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Line < defs[j].Line })
	return defs, nil
}

// GetDef implements Backend.
func (m *MemoryBackend) GetDef(ctx context.Context, id string) (*DefRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if d, ok := m.defs[id]; ok {
		return &d, nil
	}
	return nil, nil
}

// FindDefs implements Backend.
func (m *MemoryBackend) FindDefs(ctx context.Context, name string) ([]DefRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var defs []DefRecord
	for _, d := range m.defs {
		if d.Name == name {
			defs = append(defs, d)
		}
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs, nil
}

// DeadDefs implements Backend.
func (m *MemoryBackend) DeadDefs(ctx context.Context) ([]DefRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var defs []DefRecord
	for _, d := range m.defs {
		if !d.Live {
			defs = append(defs, d)
		}
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs, nil
}

// Importers implements Backend.
func (m *MemoryBackend) Importers(ctx context.Context, relPath string) ([]EdgeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var edges []EdgeRecord
	for _, e := range m.edges {
		if e.To == relPath {
			edges = append(edges, e)
		}
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })
	return edges, nil
}

// RemoveFile implements Backend.
func (m *MemoryBackend) RemoveFile(ctx context.Context, relPath string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.readOnly {
		return 0, ErrReadOnly
	}

	count := 0
	if _, ok := m.units[relPath]; ok {
		delete(m.units, relPath)
		count++
	}
	for id, d := range m.defs {
		if d.File == relPath {
			delete(m.defs, id)
			count++
		}
	}
	for id := range m.edges {
		if strings.HasPrefix(id, relPath+"#") {
			delete(m.edges, id)
			count++
		}
	}
	return count, nil
}

// Stats implements Backend.
func (m *MemoryBackend) Stats(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{
		Units: len(m.units),
		Defs:  len(m.defs),
		Edges: len(m.edges),
	}
	for _, d := range m.defs {
		if d.Live {
			stats.LiveDefs++
		}
	}
	return stats, nil
}
