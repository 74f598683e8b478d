// Package storage persists the analyzed corpus index.
//
// It defines the Backend protocol that all index implementations must
// satisfy, along with the record types shared across backends.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/Asthestarsfalll/codeslim-go/internal/analysis"
	"github.com/Asthestarsfalll/codeslim-go/internal/corpus"
)

// ErrReadOnly is returned by writes against a read-only backend.
var ErrReadOnly = errors.New("storage: backend is read-only")

// UnitRecord represents one analyzed source file.
type UnitRecord struct {
	// RelPath is the file path relative to the corpus root.
	RelPath string `json:"rel_path"`

	// Module is the dotted module name.
	Module string `json:"module"`

	// IsEntry reports whether the file was an analysis entry point.
	IsEntry bool `json:"is_entry"`
}

// DefRecord represents one top-level definition.
type DefRecord struct {
	// ID uniquely identifies the definition (kind:file:name).
	ID string `json:"id"`

	// Name is the definition name.
	Name string `json:"name"`

	// Kind is "function" or "class".
	Kind string `json:"kind"`

	// File is the defining file, relative to the corpus root.
	File string `json:"file"`

	// Line is the 1-based definition line.
	Line int `json:"line"`

	// Live reports whether the liveness analyzer marked the definition
	// as reachable.
	Live bool `json:"live"`

	// Bases lists a class's base names, empty for functions.
	Bases []string `json:"bases,omitempty"`

	// Methods lists a class's method names, empty for functions.
	Methods []string `json:"methods,omitempty"`
}

// EdgeRecord represents one import edge.
type EdgeRecord struct {
	// ID uniquely identifies the edge.
	ID string `json:"id"`

	// From is the importing file, relative to the corpus root.
	From string `json:"from"`

	// To is the imported file, relative to the corpus root, or empty
	// for external imports.
	To string `json:"to,omitempty"`

	// Module is the dotted module name as written.
	Module string `json:"module"`

	// Level is the relative-import level (0 for absolute).
	Level int `json:"level"`

	// Symbols lists the imported names for from-imports.
	Symbols []string `json:"symbols,omitempty"`

	// Wildcard reports a star import.
	Wildcard bool `json:"wildcard,omitempty"`
}

// Snapshot is everything persisted for one analysis run.
type Snapshot struct {
	Units []UnitRecord `json:"units"`
	Defs  []DefRecord  `json:"defs"`
	Edges []EdgeRecord `json:"edges"`
}

// Stats summarizes the stored index.
type Stats struct {
	Units    int `json:"units"`
	Defs     int `json:"defs"`
	LiveDefs int `json:"live_defs"`
	Edges    int `json:"edges"`
}

// Backend defines the interface for index storage implementations.
//
// Implementations must be thread-safe and support concurrent access.
type Backend interface {
	// Initialize opens or creates the index at the given path.
	// If readOnly is true, the backend is opened in read-only mode.
	Initialize(path string, readOnly bool) error

	// Close releases all resources held by the backend.
	Close() error

	// BulkLoad replaces the entire index with the snapshot.
	BulkLoad(ctx context.Context, snap *Snapshot) error

	// Units returns every stored unit, ordered by path.
	Units(ctx context.Context) ([]UnitRecord, error)

	// GetUnit returns one unit by relative path, or nil if absent.
	GetUnit(ctx context.Context, relPath string) (*UnitRecord, error)

	// DefsByFile returns the definitions of one file, ordered by line.
	DefsByFile(ctx context.Context, relPath string) ([]DefRecord, error)

	// GetDef returns one definition by ID, or nil if absent.
	GetDef(ctx context.Context, id string) (*DefRecord, error)

	// FindDefs returns every definition with the given name.
	FindDefs(ctx context.Context, name string) ([]DefRecord, error)

	// DeadDefs returns every definition not marked live.
	DeadDefs(ctx context.Context) ([]DefRecord, error)

	// Importers returns the edges targeting the given file.
	Importers(ctx context.Context, relPath string) ([]EdgeRecord, error)

	// RemoveFile deletes a unit, its definitions and its outgoing
	// edges. Returns the number of records removed.
	RemoveFile(ctx context.Context, relPath string) (int, error)

	// Stats summarizes the stored index.
	Stats(ctx context.Context) (Stats, error)
}

// DefID builds the canonical definition ID.
func DefID(kind, file, name string) string {
	return fmt.Sprintf("%s:%s:%s", kind, file, name)
}

// BuildSnapshot flattens a built graph and its liveness results into
// storable records.
func BuildSnapshot(g *corpus.Graph, a *analysis.Analyzer) *Snapshot {
	snap := &Snapshot{}

	for _, unit := range g.Units() {
		snap.Units = append(snap.Units, UnitRecord{
			RelPath: unit.RelPath,
			Module:  unit.Module,
			IsEntry: unit.IsEntry,
		})

		for _, def := range unit.Defs {
			rec := DefRecord{
				ID:    DefID(defKind(def.Kind), unit.RelPath, def.Name),
				Name:  def.Name,
				Kind:  defKind(def.Kind),
				File:  unit.RelPath,
				Line:  def.Line,
				Live:  a.IsLive(unit.Path, def.Name),
				Bases: def.Bases,
			}
			for _, m := range def.Methods {
				rec.Methods = append(rec.Methods, m.Name)
			}
			snap.Defs = append(snap.Defs, rec)
		}

		for i, edge := range unit.Imports {
			to := ""
			if !edge.External() {
				if target := g.Unit(edge.Target); target != nil {
					to = target.RelPath
				}
			}
			snap.Edges = append(snap.Edges, EdgeRecord{
				ID:       fmt.Sprintf("%s#%d", unit.RelPath, i),
				From:     unit.RelPath,
				To:       to,
				Module:   edge.Module,
				Level:    edge.Level,
				Symbols:  edge.Symbols,
				Wildcard: edge.Wildcard,
			})
		}
	}

	return snap
}

func defKind(kind corpus.DefKind) string {
	if kind == corpus.DefClass {
		return "class"
	}
	return "function"
}
