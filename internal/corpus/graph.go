package corpus

import (
	"fmt"
	"sort"
	"sync"
)

// Graph is the corpus-wide dependency graph: every loaded source unit plus
// a reverse index from each unit to the import edges that target it.
//
// The graph is built once per generation run and is read-only afterwards.
// Query methods are still guarded by a lock because the MCP server and the
// storage backend may read the graph concurrently with CLI reporting.
type Graph struct {
	mu    sync.RWMutex
	root  string
	units map[string]*SourceUnit

	// importers indexes edges by target path.
	importers map[string][]*ImportEdge

	// warnings collects non-fatal build problems (unparseable
	// non-entry files, dropped edges).
	warnings []string
}

// NewGraph creates an empty graph for a corpus rooted at root.
func NewGraph(root string) *Graph {
	return &Graph{
		root:      root,
		units:     make(map[string]*SourceUnit),
		importers: make(map[string][]*ImportEdge),
	}
}

// Root returns the corpus root directory.
func (g *Graph) Root() string { return g.root }

// AddUnit adds a unit to the graph. Call Reindex once all units are in
// place to rebuild the reverse-import index.
func (g *Graph) AddUnit(unit *SourceUnit) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.units[unit.Path] = unit
}

// Reindex rebuilds the reverse-import index from the loaded units. Edges
// that target a path with no loaded unit are demoted to external, with a
// warning, so a file excluded by a parse failure never contributes demand.
func (g *Graph) Reindex() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.importers = make(map[string][]*ImportEdge)
	for _, unit := range g.units {
		for _, edge := range unit.Imports {
			if edge.External() {
				continue
			}
			if _, ok := g.units[edge.Target]; !ok {
				g.warnings = append(g.warnings, fmt.Sprintf(
					"%s: dropping import of %s: target not in corpus", unit.RelPath, edge.Module))
				edge.Target = ""
				continue
			}
			g.importers[edge.Target] = append(g.importers[edge.Target], edge)
		}
	}
}

// Unit returns the unit with the given absolute path, or nil.
func (g *Graph) Unit(path string) *SourceUnit {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.units[path]
}

// Has reports whether a unit with the given path is loaded.
func (g *Graph) Has(path string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.units[path]
	return ok
}

// Units returns all units sorted by path.
func (g *Graph) Units() []*SourceUnit {
	g.mu.RLock()
	defer g.mu.RUnlock()

	units := make([]*SourceUnit, 0, len(g.units))
	for _, unit := range g.units {
		units = append(units, unit)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].Path < units[j].Path })
	return units
}

// UnitCount returns the number of loaded units.
func (g *Graph) UnitCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.units)
}

// Importers returns the import edges that target the given unit path.
func (g *Graph) Importers(path string) []*ImportEdge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.importers[path]
}

// ExternalDemand returns the definition names of the given unit demanded
// by other corpus files, and whether some importer demands the whole
// module (plain import or wildcard), in which case every definition is
// externally used.
func (g *Graph) ExternalDemand(path string) (names map[string]bool, whole bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	names = make(map[string]bool)
	for _, edge := range g.importers[path] {
		if edge.WholeModule() {
			whole = true
			continue
		}
		for _, symbol := range edge.Symbols {
			names[symbol] = true
		}
	}
	return names, whole
}

// Warn records a non-fatal build problem.
func (g *Graph) Warn(msg string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.warnings = append(g.warnings, msg)
}

// Warnings returns the problems recorded during the build.
func (g *Graph) Warnings() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.warnings...)
}

// DefCount returns the total number of module-level definitions.
func (g *Graph) DefCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	count := 0
	for _, unit := range g.units {
		count += len(unit.Defs)
	}
	return count
}

// EdgeCount returns the total number of import edges, external included.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	count := 0
	for _, unit := range g.units {
		count += len(unit.Imports)
	}
	return count
}
