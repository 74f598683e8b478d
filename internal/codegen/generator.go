// Package codegen emits slimmed copies of a source corpus in two modes:
// file-level (imports remapped, nothing pruned) and segment-level
// (prunable definitions removed, marked classes flattened).
package codegen

import (
	"os"
	"path/filepath"

	"github.com/Asthestarsfalll/codeslim-go/internal/corpus"
	"github.com/Asthestarsfalll/codeslim-go/internal/rewrite"
)

// Header marks every generated file.
const Header = "# Generated by CodeSlim\n"

// Options configure an output run.
type Options struct {
	// Mapper overrides output module names for rewritten imports,
	// keyed by the original dotted module name. Modules without an
	// entry flatten to their last path component.
	Mapper map[string]string

	// Force allows overwriting existing output files.
	Force bool

	// Merge selects the class-flattening policy. Segment mode only.
	Merge rewrite.MergePolicy
}

// FileResult is the outcome of generating one output file.
type FileResult struct {
	// RelPath is the source path relative to the corpus root.
	RelPath string

	// Output is the path the file was written to (or would have been).
	Output string

	// Warnings holds non-fatal findings from merging.
	Warnings []string

	// Err is set when generation of this file failed. Other files in
	// the run are unaffected.
	Err error
}

// Result is the outcome of a whole generation run.
type Result struct {
	// Files holds one entry per attempted output file, in corpus order.
	Files []FileResult
}

// Failed returns the files whose generation failed.
func (r *Result) Failed() []FileResult {
	var failed []FileResult
	for _, f := range r.Files {
		if f.Err != nil {
			failed = append(failed, f)
		}
	}
	return failed
}

// generator holds what both output modes share.
type generator struct {
	graph  *corpus.Graph
	outDir string
	opts   Options
}

// outputPath maps a source unit to its flat output location.
func (g *generator) outputPath(unit *corpus.SourceUnit) string {
	return filepath.Join(g.outDir, filepath.Base(unit.Path))
}

// writeFile writes one generated file, refusing to overwrite without
// force.
func (g *generator) writeFile(path, content string) error {
	if !g.opts.Force {
		if _, err := os.Stat(path); err == nil {
			return &OutputExistsError{Path: path}
		}
	}
	return os.WriteFile(path, []byte(Header+content), 0o644)
}

// writeInit emits a header-only __init__.py so the output directory is
// importable as a package.
func (g *generator) writeInit() error {
	return g.writeFile(filepath.Join(g.outDir, "__init__.py"), "")
}

// importInternal builds the corpus-membership predicate the import
// rewriter uses for one unit.
func importInternal(unit *corpus.SourceUnit) func(module string, level int) bool {
	return func(module string, level int) bool {
		for _, edge := range unit.Imports {
			if edge.Module == module && edge.Level == level && !edge.External() {
				return true
			}
		}
		return false
	}
}
