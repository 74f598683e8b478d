package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Asthestarsfalll/codeslim-go/internal/pyast"
)

// Builder constructs a corpus graph by parsing entry files and following
// their resolvable imports.
type Builder struct {
	root string
}

// NewBuilder creates a builder for a corpus rooted at root. Imports are
// resolved by literal module-name matching against files under root;
// anything else is treated as external.
func NewBuilder(root string) *Builder {
	return &Builder{root: root}
}

// Build parses the entry files and every corpus file transitively
// reachable from them through imports.
//
// A parse failure in an entry file is fatal. A parse failure in any other
// file excludes that file from the corpus with a warning; edges into it
// are demoted to external during reindexing.
func (b *Builder) Build(entries []string) (*Graph, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("no entry files given")
	}

	g := NewGraph(b.root)

	entrySet := make(map[string]bool, len(entries))
	queue := make([]string, 0, len(entries))
	for _, entry := range entries {
		// Entry paths are relative to the corpus root, not the working
		// directory.
		if !filepath.IsAbs(entry) {
			entry = filepath.Join(b.root, entry)
		}
		abs, err := filepath.Abs(entry)
		if err != nil {
			return nil, fmt.Errorf("resolving entry %s: %w", entry, err)
		}
		entrySet[abs] = true
		queue = append(queue, abs)
	}

	visited := make(map[string]bool)
	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]
		if visited[path] {
			continue
		}
		visited[path] = true

		unit, err := b.loadUnit(path, entrySet[path])
		if err != nil {
			if entrySet[path] {
				return nil, fmt.Errorf("loading entry: %w", err)
			}
			g.Warn(fmt.Sprintf("excluding %s: %v", path, err))
			continue
		}

		g.AddUnit(unit)
		for _, edge := range unit.Imports {
			if !edge.External() && !visited[edge.Target] {
				queue = append(queue, edge.Target)
			}
		}
	}

	g.Reindex()
	return g, nil
}

// loadUnit reads and parses one file and extracts its definitions,
// reference set and import edges.
func (b *Builder) loadUnit(path string, isEntry bool) (*SourceUnit, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	tree, err := pyast.Parse(path, content)
	if err != nil {
		return nil, err
	}

	rel, err := filepath.Rel(b.root, path)
	if err != nil {
		rel = path
	}

	unit := &SourceUnit{
		Path:    path,
		RelPath: rel,
		Module:  moduleName(rel),
		Tree:    tree,
		IsEntry: isEntry,
	}

	extractDefs(unit)
	b.extractImports(unit)
	scanRefs(unit)
	return unit, nil
}

// extractDefs records the module-level definitions and, for classes,
// their methods.
func extractDefs(unit *SourceUnit) {
	for _, node := range unit.Tree.Body {
		switch n := node.(type) {
		case *pyast.FunctionDef:
			unit.Defs = append(unit.Defs, &Definition{
				Name: n.Name,
				Kind: DefFunction,
				Node: n,
				Line: n.Line,
			})

		case *pyast.ClassDef:
			def := &Definition{
				Name:  n.Name,
				Kind:  DefClass,
				Bases: baseNames(n.Bases),
				Node:  n,
				Line:  n.Line,
			}
			for _, child := range n.Body {
				if fn, ok := child.(*pyast.FunctionDef); ok {
					def.Methods = append(def.Methods, &Definition{
						Name:      fn.Name,
						Kind:      DefMethod,
						ClassName: n.Name,
						Node:      fn,
						Line:      fn.Line,
					})
				}
			}
			unit.Defs = append(unit.Defs, def)
		}
	}
}

var baseNameRegex = regexp.MustCompile(`^[A-Za-z_][\w.]*$`)

// baseNames filters a class's base list down to plain base-class names,
// dropping keyword arguments such as metaclass=....
func baseNames(bases []string) []string {
	var names []string
	for _, base := range bases {
		if baseNameRegex.MatchString(base) {
			names = append(names, base)
		}
	}
	return names
}

// extractImports builds one edge per imported module and resolves each
// against the corpus.
func (b *Builder) extractImports(unit *SourceUnit) {
	for _, node := range unit.Tree.Body {
		switch n := node.(type) {
		case *pyast.Import:
			for _, alias := range n.Names {
				unit.Imports = append(unit.Imports, &ImportEdge{
					From:   unit.Path,
					Target: b.resolve(unit, alias.Name, 0),
					Module: alias.Name,
					Node:   node,
				})
			}

		case *pyast.ImportFrom:
			edge := &ImportEdge{
				From:     unit.Path,
				Target:   b.resolve(unit, n.Module, n.Level),
				Module:   n.Module,
				Level:    n.Level,
				Wildcard: n.Wildcard,
				Node:     node,
			}
			for _, alias := range n.Names {
				edge.Symbols = append(edge.Symbols, alias.Name)
			}
			unit.Imports = append(unit.Imports, edge)

			// "from pkg import submodule" names a module, not a symbol,
			// when pkg/submodule.py exists. Add a whole-module edge per
			// alias that resolves that way.
			for _, alias := range n.Names {
				sub := alias.Name
				if n.Module != "" {
					sub = n.Module + "." + alias.Name
				}
				if target := b.resolve(unit, sub, n.Level); target != "" {
					unit.Imports = append(unit.Imports, &ImportEdge{
						From:   unit.Path,
						Target: target,
						Module: sub,
						Level:  n.Level,
						Node:   node,
					})
				}
			}
		}
	}
}

// resolve maps a dotted module name to a corpus file path, or "" when the
// import is external. Resolution is purely literal: the module path is
// joined under the corpus root (or, for relative imports, under the
// importing file's directory) and matched against <path>.py and
// <path>/__init__.py.
func (b *Builder) resolve(unit *SourceUnit, module string, level int) string {
	base := b.root
	if level > 0 {
		base = filepath.Dir(unit.Path)
		for i := 1; i < level; i++ {
			base = filepath.Dir(base)
		}
	}

	candidate := base
	if module != "" {
		parts := strings.Split(module, ".")
		candidate = filepath.Join(append([]string{base}, parts...)...)
	}

	for _, path := range []string{candidate + ".py", filepath.Join(candidate, "__init__.py")} {
		if !underRoot(b.root, path) {
			continue
		}
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// underRoot reports whether path stays inside root.
func underRoot(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

var identRegex = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// pythonKeywords are excluded from the reference set.
var pythonKeywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true,
	"class": true, "continue": true, "def": true, "del": true,
	"elif": true, "else": true, "except": true, "finally": true,
	"for": true, "from": true, "global": true, "if": true, "import": true,
	"in": true, "is": true, "lambda": true, "nonlocal": true, "not": true,
	"or": true, "pass": true, "raise": true, "return": true, "try": true,
	"while": true, "with": true, "yield": true,
}

// scanRefs extracts the unit's referenced-identifier set, attributing each
// occurrence to its enclosing top-level definition ("" for module-level
// statements).
//
// The scan is purely lexical: every identifier token outside import
// statements counts as a reference. This over-approximates real use
// (shadowing, attribute chains and string contents are not distinguished),
// which is the safe direction: false positives keep definitions alive,
// and a real use is never missed.
func scanRefs(unit *SourceUnit) {
	unit.refs = make(map[string]map[string]bool)

	add := func(context string, lines []string) {
		for _, line := range lines {
			for _, ident := range identRegex.FindAllString(line, -1) {
				if pythonKeywords[ident] {
					continue
				}
				if unit.refs[ident] == nil {
					unit.refs[ident] = make(map[string]bool)
				}
				unit.refs[ident][context] = true
			}
		}
	}

	for _, node := range unit.Tree.Body {
		switch n := node.(type) {
		case *pyast.FunctionDef:
			add(n.Name, n.Decorators)
			add(n.Name, n.Header)
			add(n.Name, n.Body)

		case *pyast.ClassDef:
			add(n.Name, n.Decorators)
			add(n.Name, n.Bases)
			add(n.Name, []string{n.Inline})
			scanClassBody(unit, n.Name, n)

		case *pyast.RawStmt:
			add("", n.Lines)
		}
	}
}

// scanClassBody attributes everything inside a class, methods included,
// to the class's own context.
func scanClassBody(unit *SourceUnit, context string, cls *pyast.ClassDef) {
	add := func(lines []string) {
		for _, line := range lines {
			for _, ident := range identRegex.FindAllString(line, -1) {
				if pythonKeywords[ident] {
					continue
				}
				if unit.refs[ident] == nil {
					unit.refs[ident] = make(map[string]bool)
				}
				unit.refs[ident][context] = true
			}
		}
	}

	for _, node := range cls.Body {
		switch n := node.(type) {
		case *pyast.FunctionDef:
			add(n.Decorators)
			add(n.Header)
			add(n.Body)
		case *pyast.ClassDef:
			add(n.Decorators)
			add(n.Bases)
			scanClassBody(unit, context, n)
		case *pyast.RawStmt:
			add(n.Lines)
		}
	}
}
