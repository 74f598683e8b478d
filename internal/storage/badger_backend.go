package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// Key prefixes for different record types
const (
	prefixUnit     = "u:"      // unit data
	prefixDef      = "d:"      // definition data
	prefixEdge     = "e:"      // edge data
	prefixIncoming = "i:in:"   // reverse importer index
	prefixDefName  = "i:name:" // definition name index
)

// BadgerBackend is a BadgerDB-backed index implementation.
type BadgerBackend struct {
	db       *badger.DB
	readOnly bool
	mu       sync.RWMutex
}

// NewBadgerBackend creates a new BadgerDB backend.
func NewBadgerBackend() *BadgerBackend {
	return &BadgerBackend{}
}

// Initialize opens or creates the BadgerDB database at the given path.
func (b *BadgerBackend) Initialize(path string, readOnly bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	opts := badger.DefaultOptions(path).
		WithNumCompactors(2).
		WithLoggingLevel(badger.ERROR) // Suppress INFO/WARNING logs

	if readOnly {
		opts = opts.WithReadOnly(true)
	}

	var err error
	b.db, err = badger.Open(opts)
	if err != nil {
		return fmt.Errorf("opening badger DB: %w", err)
	}
	b.readOnly = readOnly
	return nil
}

// Close releases all resources held by the backend.
func (b *BadgerBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

func unitKey(relPath string) []byte { return []byte(prefixUnit + relPath) }
func defKey(id string) []byte       { return []byte(prefixDef + id) }
func edgeKey(id string) []byte      { return []byte(prefixEdge + id) }

func incomingKey(to, edgeID string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", prefixIncoming, to, edgeID))
}

func defNameKey(name, id string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", prefixDefName, name, id))
}

// BulkLoad replaces the entire index with the snapshot.
func (b *BadgerBackend) BulkLoad(ctx context.Context, snap *Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.readOnly {
		return ErrReadOnly
	}

	if err := b.db.DropAll(); err != nil {
		return fmt.Errorf("clearing index: %w", err)
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	for _, unit := range snap.Units {
		data, err := json.Marshal(unit)
		if err != nil {
			return fmt.Errorf("marshaling unit: %w", err)
		}
		if err := wb.Set(unitKey(unit.RelPath), data); err != nil {
			return fmt.Errorf("setting unit: %w", err)
		}
	}

	for _, def := range snap.Defs {
		data, err := json.Marshal(def)
		if err != nil {
			return fmt.Errorf("marshaling def: %w", err)
		}
		if err := wb.Set(defKey(def.ID), data); err != nil {
			return fmt.Errorf("setting def: %w", err)
		}
		if err := wb.Set(defNameKey(def.Name, def.ID), []byte(def.ID)); err != nil {
			return fmt.Errorf("indexing def name: %w", err)
		}
	}

	for _, edge := range snap.Edges {
		data, err := json.Marshal(edge)
		if err != nil {
			return fmt.Errorf("marshaling edge: %w", err)
		}
		if err := wb.Set(edgeKey(edge.ID), data); err != nil {
			return fmt.Errorf("setting edge: %w", err)
		}
		if edge.To != "" {
			if err := wb.Set(incomingKey(edge.To, edge.ID), []byte(edge.ID)); err != nil {
				return fmt.Errorf("indexing edge: %w", err)
			}
		}
	}

	return wb.Flush()
}

// Units returns every stored unit, ordered by path.
func (b *BadgerBackend) Units(ctx context.Context) ([]UnitRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var units []UnitRecord
	err := b.scanPrefix(prefixUnit, func(val []byte) error {
		var unit UnitRecord
		if err := json.Unmarshal(val, &unit); err != nil {
			return err
		}
		units = append(units, unit)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(units, func(i, j int) bool { return units[i].RelPath < units[j].RelPath })
	return units, nil
}

// GetUnit returns one unit by relative path, or nil if absent.
func (b *BadgerBackend) GetUnit(ctx context.Context, relPath string) (*UnitRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var unit *UnitRecord
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(unitKey(relPath))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			unit = &UnitRecord{}
			return json.Unmarshal(val, unit)
		})
	})
	return unit, err
}

// DefsByFile returns the definitions of one file, ordered by line.
func (b *BadgerBackend) DefsByFile(ctx context.Context, relPath string) ([]DefRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var defs []DefRecord
	err := b.scanPrefix(prefixDef, func(val []byte) error {
		var def DefRecord
		if err := json.Unmarshal(val, &def); err != nil {
			return err
		}
		if def.File == relPath {
			defs = append(defs, def)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Line < defs[j].Line })
	return defs, nil
}

// GetDef returns one definition by ID, or nil if absent.
func (b *BadgerBackend) GetDef(ctx context.Context, id string) (*DefRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var def *DefRecord
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(defKey(id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			def = &DefRecord{}
			return json.Unmarshal(val, def)
		})
	})
	return def, err
}

// FindDefs returns every definition with the given name.
func (b *BadgerBackend) FindDefs(ctx context.Context, name string) ([]DefRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var ids []string
	err := b.scanPrefix(prefixDefName+name+":", func(val []byte) error {
		ids = append(ids, string(val))
		return nil
	})
	if err != nil {
		return nil, err
	}

	var defs []DefRecord
	err = b.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			item, err := txn.Get(defKey(id))
			if err == badger.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return err
			}
			var def DefRecord
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &def)
			}); err != nil {
				return err
			}
			defs = append(defs, def)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs, nil
}

// DeadDefs returns every definition not marked live.
func (b *BadgerBackend) DeadDefs(ctx context.Context) ([]DefRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var defs []DefRecord
	err := b.scanPrefix(prefixDef, func(val []byte) error {
		var def DefRecord
		if err := json.Unmarshal(val, &def); err != nil {
			return err
		}
		if !def.Live {
			defs = append(defs, def)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs, nil
}

// Importers returns the edges targeting the given file.
func (b *BadgerBackend) Importers(ctx context.Context, relPath string) ([]EdgeRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var ids []string
	err := b.scanPrefix(prefixIncoming+relPath+":", func(val []byte) error {
		ids = append(ids, string(val))
		return nil
	})
	if err != nil {
		return nil, err
	}

	var edges []EdgeRecord
	err = b.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			item, err := txn.Get(edgeKey(id))
			if err == badger.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return err
			}
			var edge EdgeRecord
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &edge)
			}); err != nil {
				return err
			}
			edges = append(edges, edge)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })
	return edges, nil
}

// RemoveFile deletes a unit, its definitions and its outgoing edges.
func (b *BadgerBackend) RemoveFile(ctx context.Context, relPath string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.readOnly {
		return 0, ErrReadOnly
	}

	// Records removed; index keys deleted alongside do not count.
	count := 0
	var keysToDelete [][]byte

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(unitKey(relPath))
		if err == nil {
			keysToDelete = append(keysToDelete, item.KeyCopy(nil))
			count++
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	err = b.scanPrefix(prefixDef, func(val []byte) error {
		var def DefRecord
		if err := json.Unmarshal(val, &def); err != nil {
			return err
		}
		if def.File == relPath {
			keysToDelete = append(keysToDelete, defKey(def.ID), defNameKey(def.Name, def.ID))
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	err = b.scanPrefix(prefixEdge, func(val []byte) error {
		var edge EdgeRecord
		if err := json.Unmarshal(val, &edge); err != nil {
			return err
		}
		if edge.From == relPath {
			keysToDelete = append(keysToDelete, edgeKey(edge.ID))
			if edge.To != "" {
				keysToDelete = append(keysToDelete, incomingKey(edge.To, edge.ID))
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	err = b.db.Update(func(txn *badger.Txn) error {
		for _, key := range keysToDelete {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Stats summarizes the stored index.
func (b *BadgerBackend) Stats(ctx context.Context) (Stats, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var stats Stats
	err := b.scanPrefix(prefixUnit, func([]byte) error {
		stats.Units++
		return nil
	})
	if err != nil {
		return stats, err
	}

	err = b.scanPrefix(prefixDef, func(val []byte) error {
		var def DefRecord
		if err := json.Unmarshal(val, &def); err != nil {
			return err
		}
		stats.Defs++
		if def.Live {
			stats.LiveDefs++
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	err = b.scanPrefix(prefixEdge, func([]byte) error {
		stats.Edges++
		return nil
	})
	return stats, err
}

// scanPrefix iterates every value under a key prefix.
func (b *BadgerBackend) scanPrefix(prefix string, fn func(val []byte) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}
