package rewrite

import (
	"strings"

	"github.com/Asthestarsfalll/codeslim-go/internal/pyast"
)

// RemapModule returns the output-layout module name for a corpus-internal
// import: the mapped name when the mapper has an entry, otherwise the
// last path component of the original dotted name. The fallback assumes
// a flat output layout; hierarchical layouts need a full mapping.
func RemapModule(module string, mapper map[string]string) string {
	if mapped, ok := mapper[module]; ok {
		return mapped
	}
	parts := strings.Split(module, ".")
	return parts[len(parts)-1]
}

// ImportHandlers builds the handler entries that remap corpus-internal
// imports for the output layout. internal reports whether a dotted
// module name at the given relative level resolves to a corpus file;
// external imports pass through unchanged. Import nodes are mutated in
// place, with relative levels reset to zero.
func ImportHandlers(mapper map[string]string, internal func(module string, level int) bool) map[pyast.Kind]Handler {
	return map[pyast.Kind]Handler{
		pyast.KindImportFrom: func(node pyast.Node) (pyast.Node, error) {
			imp := node.(*pyast.ImportFrom)
			if internal(imp.Module, imp.Level) {
				imp.Module = RemapModule(imp.Module, mapper)
				imp.Level = 0
			}
			return imp, nil
		},

		pyast.KindImport: func(node pyast.Node) (pyast.Node, error) {
			imp := node.(*pyast.Import)
			for i := range imp.Names {
				if internal(imp.Names[i].Name, 0) {
					imp.Names[i].Name = RemapModule(imp.Names[i].Name, mapper)
				}
			}
			return imp, nil
		},
	}
}
