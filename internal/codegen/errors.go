package codegen

import "fmt"

// OutputExistsError reports a refusal to overwrite an existing output
// file without force.
type OutputExistsError struct {
	// Path is the output file that already exists.
	Path string
}

func (e *OutputExistsError) Error() string {
	return fmt.Sprintf("output file %s already exists", e.Path)
}

// MergeBaseError reports a class marked for merging whose base could
// not be resolved to a class definition in the corpus.
type MergeBaseError struct {
	// Class is the class being merged.
	Class string

	// Base is the unresolvable base name.
	Base string
}

func (e *MergeBaseError) Error() string {
	return fmt.Sprintf("cannot merge %s: base %s not found in corpus", e.Class, e.Base)
}
