// Package analysis answers liveness queries over a built corpus graph.
package analysis

import (
	"sort"
	"strings"

	"github.com/Asthestarsfalll/codeslim-go/internal/corpus"
)

// Analyzer marks top-level definitions as live or prunable.
//
// A definition is live when some other corpus file imports it by name
// (or imports its whole module), or when its name is referenced within
// its own file from outside its own body. Self-recursion alone does not
// keep a definition alive.
type Analyzer struct {
	graph *corpus.Graph
}

// New creates an analyzer over the given graph.
func New(g *corpus.Graph) *Analyzer {
	return &Analyzer{graph: g}
}

// IsLive reports whether the named definition in the file at path must
// be retained. An unknown file or name yields false.
func (a *Analyzer) IsLive(path, name string) bool {
	unit := a.graph.Unit(path)
	if unit == nil {
		return false
	}
	if unit.Def(name) == nil {
		return false
	}

	// Protocol hooks are invoked implicitly by the runtime and never
	// show up in the reference scan.
	if isDunder(name) {
		return true
	}

	demanded, whole := a.graph.ExternalDemand(path)
	if whole || demanded[name] {
		return true
	}

	return unit.ReferencedOutside(name)
}

// LivenessSet returns the live definition names for one file.
func (a *Analyzer) LivenessSet(path string) map[string]bool {
	unit := a.graph.Unit(path)
	if unit == nil {
		return nil
	}

	live := make(map[string]bool)
	for _, name := range unit.DefNames() {
		if a.IsLive(path, name) {
			live[name] = true
		}
	}
	return live
}

// Finding is one prunable definition.
type Finding struct {
	// Path is the absolute file path.
	Path string

	// RelPath is the path relative to the corpus root.
	RelPath string

	// Name is the definition name.
	Name string

	// Kind is the definition kind.
	Kind corpus.DefKind

	// Line is the 1-based line of the definition.
	Line int
}

// DeadCode reports every prunable definition in the corpus, ordered by
// file and line.
func (a *Analyzer) DeadCode() []Finding {
	var findings []Finding
	for _, unit := range a.graph.Units() {
		for _, def := range unit.Defs {
			if a.IsLive(unit.Path, def.Name) {
				continue
			}
			findings = append(findings, Finding{
				Path:    unit.Path,
				RelPath: unit.RelPath,
				Name:    def.Name,
				Kind:    def.Kind,
				Line:    def.Line,
			})
		}
	}

	sort.Slice(findings, func(i, j int) bool {
		if findings[i].RelPath != findings[j].RelPath {
			return findings[i].RelPath < findings[j].RelPath
		}
		return findings[i].Line < findings[j].Line
	})
	return findings
}

// isDunder reports whether name is a __special__ name.
func isDunder(name string) bool {
	return len(name) > 4 && strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__")
}
