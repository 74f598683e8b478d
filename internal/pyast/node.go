// Package pyast provides a structural, mutable syntax tree for Python
// source files.
//
// The tree is deliberately shallow: it models the constructs the slimmer
// needs to inspect or rewrite (imports, top-level functions, classes and
// their methods) and keeps everything else as raw source lines. Function
// bodies are never rewritten, so they stay verbatim; only import statements
// and class headers are regenerated when printing.
package pyast

// Kind identifies the type of a tree node.
type Kind string

const (
	KindModule      Kind = "module"
	KindImport      Kind = "import"
	KindImportFrom  Kind = "import_from"
	KindFunctionDef Kind = "function_def"
	KindClassDef    Kind = "class_def"
	KindRawStmt     Kind = "raw_stmt"
)

// Node is a node in the structural tree.
type Node interface {
	// NodeKind returns the kind tag used for handler dispatch.
	NodeKind() Kind
}

// Module is the root node for one source file.
type Module struct {
	// Path is the file path the module was parsed from.
	Path string

	// Body is the ordered sequence of top-level nodes.
	Body []Node
}

// Alias is one imported name, optionally rebound with "as".
type Alias struct {
	// Name is the imported symbol or module name.
	Name string

	// AsName is the local binding if the import uses "as", else empty.
	AsName string
}

// Bound returns the name the import binds in the importing scope.
func (a Alias) Bound() string {
	if a.AsName != "" {
		return a.AsName
	}
	return a.Name
}

// Import is a plain "import a, b as c" statement.
type Import struct {
	// Names is the list of imported modules.
	Names []Alias

	// Line is the 1-based line number of the statement.
	Line int
}

// ImportFrom is a "from x import a, b as c" statement.
type ImportFrom struct {
	// Module is the dotted module path without leading dots.
	Module string

	// Level is the number of leading dots (0 for absolute imports).
	Level int

	// Names is the list of imported symbols.
	Names []Alias

	// Wildcard reports a "from x import *" statement.
	Wildcard bool

	// Line is the 1-based line number of the statement.
	Line int
}

// FunctionDef is a function or method definition.
//
// Header and Body hold raw source lines, indentation included, so the
// definition can be re-emitted byte for byte.
type FunctionDef struct {
	// Name is the function name.
	Name string

	// Decorators holds the raw decorator lines preceding the definition.
	Decorators []string

	// Header holds the raw "def ..." line(s), including any continuation
	// lines of a multi-line signature.
	Header []string

	// Body holds the raw body lines.
	Body []string

	// Indent is the leading whitespace of the header (empty for
	// module-level functions).
	Indent string

	// Line is the 1-based line number of the header.
	Line int
}

// ClassDef is a class definition. Methods appear in Body as FunctionDef
// nodes; any other class-level statements are RawStmt nodes.
//
// Unlike functions, the class header is regenerated when printing, because
// merging rewrites the base list.
type ClassDef struct {
	// Name is the class name.
	Name string

	// Decorators holds the raw decorator lines preceding the definition.
	Decorators []string

	// Bases holds the base-list entries as written, one per argument
	// (keyword arguments such as metaclass=... included).
	Bases []string

	// Body is the ordered sequence of class-level nodes.
	Body []Node

	// Inline is the statement following the colon for body-less classes
	// ("class Foo(Base): pass"), empty otherwise.
	Inline string

	// Indent is the leading whitespace of the header.
	Indent string

	// BodyIndent is the leading whitespace of the class members.
	BodyIndent string

	// Line is the 1-based line number of the header.
	Line int
}

// RawStmt is an opaque run of source lines the slimmer does not model:
// assignments, expression statements, conditionals, docstrings, comments
// and blank lines.
type RawStmt struct {
	// Lines holds the raw source lines.
	Lines []string

	// Line is the 1-based line number of the first line.
	Line int
}

func (*Module) NodeKind() Kind      { return KindModule }
func (*Import) NodeKind() Kind      { return KindImport }
func (*ImportFrom) NodeKind() Kind  { return KindImportFrom }
func (*FunctionDef) NodeKind() Kind { return KindFunctionDef }
func (*ClassDef) NodeKind() Kind    { return KindClassDef }
func (*RawStmt) NodeKind() Kind     { return KindRawStmt }

// Methods returns the class's methods keyed by name, in no particular order.
func (c *ClassDef) Methods() map[string]*FunctionDef {
	methods := make(map[string]*FunctionDef)
	for _, node := range c.Body {
		if fn, ok := node.(*FunctionDef); ok {
			methods[fn.Name] = fn
		}
	}
	return methods
}

// MethodNames returns the class's method names in declaration order.
func (c *ClassDef) MethodNames() []string {
	var names []string
	for _, node := range c.Body {
		if fn, ok := node.(*FunctionDef); ok {
			names = append(names, fn.Name)
		}
	}
	return names
}
