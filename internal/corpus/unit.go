// Package corpus provides the dependency-graph data model for CodeSlim.
//
// It defines the source units, definitions and import edges that represent
// a Python corpus, and the graph built from them that powers liveness
// analysis and import rewriting.
package corpus

import (
	"path/filepath"
	"strings"

	"github.com/Asthestarsfalll/codeslim-go/internal/pyast"
)

// DefKind is the kind of a top-level definition.
type DefKind string

const (
	DefFunction DefKind = "function"
	DefClass    DefKind = "class"
	DefMethod   DefKind = "method"
)

// Definition is a top-level function, class, or class method.
type Definition struct {
	// Name is the definition name, unique within its enclosing scope.
	Name string

	// Kind is the definition kind.
	Kind DefKind

	// ClassName is the enclosing class name for methods.
	ClassName string

	// Bases holds the declared base-class names, for classes.
	Bases []string

	// Methods holds the class's methods in declaration order, for classes.
	Methods []*Definition

	// Node is the owning tree node, exclusively owned by the unit's tree.
	Node pyast.Node

	// Line is the 1-based line number of the definition.
	Line int
}

// ImportEdge records that a unit depends on another module, and through
// which names.
type ImportEdge struct {
	// From is the absolute path of the importing unit.
	From string

	// Target is the absolute path of the imported corpus unit, or empty
	// when the import does not resolve inside the corpus (external).
	Target string

	// Module is the dotted module path as written, without leading dots.
	Module string

	// Level is the relative-import level (number of leading dots).
	Level int

	// Symbols holds the names the import binds. Empty for plain
	// "import x" statements, which demand the whole target module.
	Symbols []string

	// Wildcard reports a "from x import *" edge, which also demands the
	// whole target module.
	Wildcard bool

	// Node is the import node in the importing unit's tree.
	Node pyast.Node
}

// External reports whether the edge points outside the corpus.
func (e *ImportEdge) External() bool { return e.Target == "" }

// WholeModule reports whether the edge demands every definition of its
// target rather than specific names.
func (e *ImportEdge) WholeModule() bool { return e.Wildcard || len(e.Symbols) == 0 }

// SourceUnit is one parsed input file.
type SourceUnit struct {
	// Path is the absolute file path.
	Path string

	// RelPath is the path relative to the corpus root.
	RelPath string

	// Module is the dotted module name derived from RelPath.
	Module string

	// Tree is the parsed syntax tree, exclusively owned by this unit and
	// mutated in place during generation.
	Tree *pyast.Module

	// Defs holds the module-level definitions in declaration order.
	Defs []*Definition

	// Imports holds the unit's import edges in declaration order.
	Imports []*ImportEdge

	// IsEntry marks designated entry files.
	IsEntry bool

	// refs maps a referenced identifier to the set of top-level contexts
	// it was seen in ("" for module-level statements).
	refs map[string]map[string]bool
}

// Def returns the module-level definition with the given name, or nil.
func (u *SourceUnit) Def(name string) *Definition {
	for _, def := range u.Defs {
		if def.Name == name {
			return def
		}
	}
	return nil
}

// DefNames returns the module-level definition names in declaration order.
func (u *SourceUnit) DefNames() []string {
	names := make([]string, len(u.Defs))
	for i, def := range u.Defs {
		names[i] = def.Name
	}
	return names
}

// ReferencedOutside reports whether the identifier is referenced from any
// context other than the definition of the same name. Self-reference alone
// never counts as use, so an otherwise-unused recursive function stays
// prunable.
func (u *SourceUnit) ReferencedOutside(name string) bool {
	for context := range u.refs[name] {
		if context != name {
			return true
		}
	}
	return false
}

// IsInit reports whether the unit is a package init file.
func (u *SourceUnit) IsInit() bool {
	return filepath.Base(u.Path) == "__init__.py"
}

// moduleName derives the dotted module name from a root-relative path.
func moduleName(relPath string) string {
	relPath = strings.TrimSuffix(relPath, ".py")
	relPath = strings.TrimSuffix(relPath, string(filepath.Separator)+"__init__")
	if relPath == "__init__" {
		return ""
	}
	return strings.ReplaceAll(relPath, string(filepath.Separator), ".")
}
