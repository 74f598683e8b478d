package codegen

import (
	"fmt"
	"os"

	"github.com/Asthestarsfalll/codeslim-go/internal/corpus"
	"github.com/Asthestarsfalll/codeslim-go/internal/pyast"
	"github.com/Asthestarsfalll/codeslim-go/internal/rewrite"
)

// FileLevel copies every corpus file into the output directory with
// imports remapped to the flat layout. It never prunes a definition.
type FileLevel struct {
	generator
}

// NewFileLevel creates a file-level generator. Class merging is a
// segment-mode feature and is rejected here.
func NewFileLevel(graph *corpus.Graph, outDir string, opts Options) (*FileLevel, error) {
	if opts.Merge != rewrite.MergeNone {
		return nil, fmt.Errorf("file-level output does not support class merging")
	}
	return &FileLevel{generator{graph: graph, outDir: outDir, opts: opts}}, nil
}

// Generate emits every corpus file except package-init files, plus a
// fresh __init__.py. A failed file is recorded in the result and the
// run continues.
func (f *FileLevel) Generate() (*Result, error) {
	if err := os.MkdirAll(f.outDir, 0o755); err != nil {
		return nil, err
	}

	res := &Result{}
	for _, unit := range f.graph.Units() {
		if unit.IsInit() {
			continue
		}
		fr := FileResult{RelPath: unit.RelPath, Output: f.outputPath(unit)}
		fr.Err = f.generateOne(unit)
		res.Files = append(res.Files, fr)
	}

	if err := f.writeInit(); err != nil {
		res.Files = append(res.Files, FileResult{RelPath: "__init__.py", Err: err})
	}
	return res, nil
}

func (f *FileLevel) generateOne(unit *corpus.SourceUnit) error {
	r := rewrite.New(rewrite.ImportHandlers(f.opts.Mapper, importInternal(unit)), nil, nil)
	if err := r.Rewrite(unit.Tree); err != nil {
		return fmt.Errorf("generating %s: %w", unit.RelPath, err)
	}
	return f.writeFile(f.outputPath(unit), pyast.Print(unit.Tree))
}
