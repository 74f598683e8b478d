package codegen

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/Asthestarsfalll/codeslim-go/internal/analysis"
	"github.com/Asthestarsfalll/codeslim-go/internal/corpus"
	"github.com/Asthestarsfalll/codeslim-go/internal/pyast"
	"github.com/Asthestarsfalll/codeslim-go/internal/rewrite"
)

// Segment emits each corpus file with prunable definitions removed,
// marked classes flattened and surviving imports remapped.
type Segment struct {
	generator
	analyzer *analysis.Analyzer
}

// NewSegment creates a segment-level generator.
func NewSegment(graph *corpus.Graph, outDir string, opts Options) *Segment {
	return &Segment{
		generator: generator{graph: graph, outDir: outDir, opts: opts},
		analyzer:  analysis.New(graph),
	}
}

// Generate runs the pipeline in three phases: resolve merge chains for
// every unit, rewrite every tree, then serialize. Chain resolution reads
// import nodes that rewriting mutates in place, so all plans are built
// before any tree changes; and a KeepOne merge pushes methods onto a
// base in another file, so all trees are rewritten before any file is
// written. A failed file is recorded in the result and the run continues.
func (s *Segment) Generate() (*Result, error) {
	if err := os.MkdirAll(s.outDir, 0o755); err != nil {
		return nil, err
	}

	res := &Result{}
	var units []*corpus.SourceUnit
	var plans []unitPlan
	for _, unit := range s.graph.Units() {
		if unit.IsInit() {
			continue
		}
		plan, warnings := s.mergePlan(unit)
		units = append(units, unit)
		plans = append(plans, plan)
		res.Files = append(res.Files, FileResult{
			RelPath:  unit.RelPath,
			Output:   s.outputPath(unit),
			Warnings: warnings,
		})
	}

	for i, unit := range units {
		res.Files[i].Err = s.rewriteUnit(unit, plans[i], &res.Files[i])
	}

	for i, unit := range units {
		if res.Files[i].Err == nil {
			res.Files[i].Err = s.writeFile(res.Files[i].Output, pyast.Print(unit.Tree))
		}
	}

	if err := s.writeInit(); err != nil {
		res.Files = append(res.Files, FileResult{RelPath: "__init__.py", Err: err})
	}
	return res, nil
}

// rewriteUnit applies pruning, merging and import remapping to one
// unit's tree in place.
func (s *Segment) rewriteUnit(unit *corpus.SourceUnit, plan unitPlan, fr *FileResult) error {
	live := s.analyzer.LivenessSet(unit.Path)

	mergedBases := make(map[string]bool)
	needImport := make(map[string]*corpus.SourceUnit)

	handlers := rewrite.ImportHandlers(s.opts.Mapper, importInternal(unit))
	handlers[pyast.KindFunctionDef] = func(node pyast.Node) (pyast.Node, error) {
		if !live[node.(*pyast.FunctionDef).Name] {
			return nil, nil
		}
		return node, nil
	}
	handlers[pyast.KindClassDef] = func(node pyast.Node) (pyast.Node, error) {
		cls := node.(*pyast.ClassDef)
		if !live[cls.Name] {
			return nil, nil
		}
		if chain, ok := plan[cls.Name]; ok {
			classes := make([]*pyast.ClassDef, len(chain))
			for i, link := range chain {
				classes[i] = link.cls
			}

			// Under KeepOne the highest base survives as the new direct
			// base, so its import must not be stripped, and a missing
			// one must be added.
			survivor := ""
			if s.opts.Merge == rewrite.MergeKeepOne {
				last := chain[len(chain)-1]
				survivor = last.cls.Name
				if last.unit != unit {
					needImport[survivor] = last.unit
				}
			}
			for _, link := range chain {
				if link.cls.Name != survivor {
					mergedBases[link.cls.Name] = true
				}
			}
			fr.Warnings = append(fr.Warnings, rewrite.Merge(cls, classes, s.opts.Merge)...)
		}
		return node, nil
	}

	if err := rewrite.New(handlers, nil, nil).Rewrite(unit.Tree); err != nil {
		return fmt.Errorf("generating %s: %w", unit.RelPath, err)
	}

	if len(mergedBases) > 0 {
		if err := stripMergedImports(unit.Tree, mergedBases); err != nil {
			return fmt.Errorf("generating %s: %w", unit.RelPath, err)
		}
	}
	if len(needImport) > 0 {
		s.ensureImports(unit.Tree, needImport)
	}
	return nil
}

// ensureImports prepends a from-import for every surviving base not
// already bound in the tree. Modules are remapped for the output layout,
// matching what the import rewriter did to the existing imports.
func (s *Segment) ensureImports(tree *pyast.Module, needed map[string]*corpus.SourceUnit) {
	bound := make(map[string]bool)
	for _, node := range tree.Body {
		switch n := node.(type) {
		case *pyast.Import:
			for _, alias := range n.Names {
				bound[alias.Bound()] = true
			}
		case *pyast.ImportFrom:
			for _, alias := range n.Names {
				bound[alias.Bound()] = true
			}
		case *pyast.ClassDef:
			bound[n.Name] = true
		case *pyast.FunctionDef:
			bound[n.Name] = true
		}
	}

	var added []pyast.Node
	for _, name := range sortedKeys(needed) {
		if bound[name] {
			continue
		}
		added = append(added, &pyast.ImportFrom{
			Module: rewrite.RemapModule(needed[name].Module, s.opts.Mapper),
			Names:  []pyast.Alias{{Name: name}},
		})
	}
	if len(added) > 0 {
		tree.Body = append(added, tree.Body...)
	}
}

// sortedKeys returns the map's keys in sorted order, for deterministic
// output.
func sortedKeys(m map[string]*corpus.SourceUnit) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// stripMergedImports removes imports whose bound names were merged away.
func stripMergedImports(tree *pyast.Module, mergedBases map[string]bool) error {
	strip := func(names []pyast.Alias) []pyast.Alias {
		var kept []pyast.Alias
		for _, alias := range names {
			if !mergedBases[alias.Bound()] {
				kept = append(kept, alias)
			}
		}
		return kept
	}

	handlers := map[pyast.Kind]rewrite.Handler{
		pyast.KindImportFrom: func(node pyast.Node) (pyast.Node, error) {
			imp := node.(*pyast.ImportFrom)
			if imp.Wildcard {
				return imp, nil
			}
			imp.Names = strip(imp.Names)
			if len(imp.Names) == 0 {
				return nil, nil
			}
			return imp, nil
		},
		pyast.KindImport: func(node pyast.Node) (pyast.Node, error) {
			imp := node.(*pyast.Import)
			imp.Names = strip(imp.Names)
			if len(imp.Names) == 0 {
				return nil, nil
			}
			return imp, nil
		},
	}
	return rewrite.New(handlers, nil, nil).Rewrite(tree)
}

// chainLink pairs a base class with the unit that defines it.
type chainLink struct {
	cls  *pyast.ClassDef
	unit *corpus.SourceUnit
}

// unitPlan maps a class name to its resolved base chain, nearest first.
type unitPlan map[string][]chainLink

// mergePlan resolves the base chain for every class in the unit that
// inherits from a corpus-local class. A base that is imported from a
// corpus file but not defined there is reported as a warning and the
// class is skipped rather than merged.
func (s *Segment) mergePlan(unit *corpus.SourceUnit) (unitPlan, []string) {
	if s.opts.Merge == rewrite.MergeNone {
		return nil, nil
	}

	plan := make(unitPlan)
	var warnings []string

	for _, def := range unit.Defs {
		if def.Kind != corpus.DefClass {
			continue
		}

		var chain []chainLink
		seen := map[string]bool{def.Name: true}
		err := s.collectChain(unit, def.Bases, seen, &chain)
		if err != nil {
			var mergeErr *MergeBaseError
			if errors.As(err, &mergeErr) {
				mergeErr.Class = def.Name
			}
			warnings = append(warnings, fmt.Sprintf("%s: %v (skipping merge)", unit.RelPath, err))
			continue
		}
		if len(chain) > 0 {
			plan[def.Name] = chain
		}
	}
	return plan, warnings
}

// collectChain appends every corpus-resolvable base, declaration order,
// nearest first, walking up the hierarchy.
func (s *Segment) collectChain(unit *corpus.SourceUnit, bases []string, seen map[string]bool, chain *[]chainLink) error {
	for _, base := range bases {
		baseUnit, cls, err := s.resolveBase(unit, base)
		if err != nil {
			return err
		}
		if cls == nil || seen[cls.Name] {
			continue
		}
		seen[cls.Name] = true
		*chain = append(*chain, chainLink{cls: cls, unit: baseUnit})

		baseDef := baseUnit.Def(cls.Name)
		if baseDef != nil {
			if err := s.collectChain(baseUnit, baseDef.Bases, seen, chain); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveBase maps a base name used in unit to the class definition it
// refers to. A nil class with a nil error means the base is external.
func (s *Segment) resolveBase(unit *corpus.SourceUnit, base string) (*corpus.SourceUnit, *pyast.ClassDef, error) {
	// Same-file base
	if def := unit.Def(base); def != nil {
		if cls, ok := def.Node.(*pyast.ClassDef); ok && def.Kind == corpus.DefClass {
			return unit, cls, nil
		}
		return nil, nil, nil
	}

	// Dotted base: mod.Base bound by a plain import
	if i := strings.LastIndex(base, "."); i > 0 {
		prefix, name := base[:i], base[i+1:]
		for _, edge := range unit.Imports {
			if edge.External() {
				continue
			}
			imp, ok := edge.Node.(*pyast.Import)
			if !ok {
				continue
			}
			for _, alias := range imp.Names {
				if alias.Bound() != prefix || alias.Name != edge.Module {
					continue
				}
				target := s.graph.Unit(edge.Target)
				if target == nil {
					return nil, nil, nil
				}
				return lookupClass(target, name, base)
			}
		}
		return nil, nil, nil
	}

	// Base bound by a from-import
	for _, edge := range unit.Imports {
		if edge.External() {
			continue
		}
		imp, ok := edge.Node.(*pyast.ImportFrom)
		if !ok {
			continue
		}
		for _, alias := range imp.Names {
			if alias.Bound() != base {
				continue
			}
			target := s.graph.Unit(edge.Target)
			if target == nil {
				return nil, nil, nil
			}
			return lookupClass(target, alias.Name, base)
		}
	}

	return nil, nil, nil
}

// lookupClass finds the named class in a corpus unit, or reports a
// merge-base failure when the import resolves but the class is absent.
// The caller fills in the merging class's name.
func lookupClass(target *corpus.SourceUnit, name, base string) (*corpus.SourceUnit, *pyast.ClassDef, error) {
	def := target.Def(name)
	if def == nil || def.Kind != corpus.DefClass {
		return nil, nil, &MergeBaseError{Base: base}
	}
	return target, def.Node.(*pyast.ClassDef), nil
}
