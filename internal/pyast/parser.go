package pyast

import (
	"fmt"
	"regexp"
	"strings"
)

// ParseError reports a file whose structure could not be parsed.
type ParseError struct {
	// Path is the file the error occurred in.
	Path string

	// Line is the 1-based line number of the offending construct.
	Line int

	// Msg describes the failure.
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s:%d: %s", e.Path, e.Line, e.Msg)
}

var (
	defRegex    = regexp.MustCompile(`^(?:async\s+)?def\s+(\w+)`)
	classRegex  = regexp.MustCompile(`^class\s+(\w+)\s*(?:\((.*)\))?\s*:`)
	importRegex = regexp.MustCompile(`^import\s+(.+)$`)
	fromRegex   = regexp.MustCompile(`^from\s+([.\w]+)\s+import\s+(.+)$`)
)

// Parse parses Python source into a structural tree.
//
// The parser is indentation-driven and string/bracket-aware: multi-line
// signatures, parenthesized imports and triple-quoted strings are consumed
// as single logical statements. It does not validate expression syntax;
// anything that is not an import, function or class definition becomes an
// opaque RawStmt.
func Parse(path string, src []byte) (*Module, error) {
	lines := strings.Split(string(src), "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		// Every printed line carries its own newline; the terminator is
		// not a line of its own.
		lines = lines[:n-1]
	}

	p := &parser{path: path, lines: lines}

	body, next, err := p.parseBlock(0, 0)
	if err != nil {
		return nil, err
	}
	if next < len(p.lines) {
		return nil, &ParseError{Path: path, Line: next + 1, Msg: "unexpected dedent"}
	}

	return &Module{Path: path, Body: body}, nil
}

type parser struct {
	path  string
	lines []string
}

// parseBlock parses the members of one block: the module body (width 0) or
// a class body. It returns the parsed nodes and the index of the first line
// that no longer belongs to the block.
func (p *parser) parseBlock(start, width int) ([]Node, int, error) {
	var nodes []Node
	var raw *RawStmt
	var decorators []string

	flushRaw := func() {
		if raw != nil {
			nodes = append(nodes, raw)
			raw = nil
		}
	}
	appendRaw := func(lines []string, lineNum int) {
		if raw == nil {
			raw = &RawStmt{Line: lineNum}
		}
		raw.Lines = append(raw.Lines, lines...)
	}

	i := start
	for i < len(p.lines) {
		line := p.lines[i]

		if isBlank(line) {
			appendRaw([]string{line}, i+1)
			i++
			continue
		}

		w := indentWidth(line)
		if w < width {
			break
		}
		if w > width {
			// Stray deeper indentation outside a tracked definition;
			// keep it with the surrounding raw statement.
			logical := p.collectLogical(i)
			appendRaw(logical.raw, i+1)
			i = logical.next
			continue
		}

		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "@"):
			logical := p.collectLogical(i)
			decorators = append(decorators, logical.raw...)
			i = logical.next

		case strings.HasPrefix(trimmed, "def ") || strings.HasPrefix(trimmed, "async def "):
			flushRaw()
			fn, next, err := p.parseFunction(i, width, decorators)
			if err != nil {
				return nil, 0, err
			}
			decorators = nil
			nodes = append(nodes, fn)
			i = next

		case strings.HasPrefix(trimmed, "class "):
			flushRaw()
			cls, next, err := p.parseClass(i, width, decorators)
			if err != nil {
				return nil, 0, err
			}
			decorators = nil
			nodes = append(nodes, cls)
			i = next

		// Only module-level imports become Import/ImportFrom nodes; an
		// import inside a class or function body stays raw so its
		// indentation survives printing.
		case width == 0 && (strings.HasPrefix(trimmed, "import ") || strings.HasPrefix(trimmed, "from ")):
			flushRaw()
			logical := p.collectLogical(i)
			imp, err := p.parseImport(logical.text, i+1)
			if err != nil {
				return nil, 0, err
			}
			nodes = append(nodes, imp)
			i = logical.next

		default:
			// Dangling decorators belong to whatever follows; if a plain
			// statement follows instead, they were not decorators after all.
			if len(decorators) > 0 {
				appendRaw(decorators, i+1)
				decorators = nil
			}
			logical := p.collectLogical(i)
			appendRaw(logical.raw, i+1)
			i = logical.next
		}
	}

	if len(decorators) > 0 {
		appendRaw(decorators, i)
	}
	flushRaw()

	return nodes, i, nil
}

// parseFunction parses a def at line index i with the given block width.
func (p *parser) parseFunction(i, width int, decorators []string) (*FunctionDef, int, error) {
	logical := p.collectLogical(i)

	matches := defRegex.FindStringSubmatch(strings.TrimSpace(logical.text))
	if matches == nil {
		return nil, 0, &ParseError{Path: p.path, Line: i + 1, Msg: "malformed function definition"}
	}

	fn := &FunctionDef{
		Name:       matches[1],
		Decorators: decorators,
		Header:     logical.raw,
		Indent:     leadingWhitespace(p.lines[i]),
		Line:       i + 1,
	}

	body, next := p.collectBody(logical.next, width)
	fn.Body = body
	return fn, next, nil
}

// parseClass parses a class at line index i with the given block width.
func (p *parser) parseClass(i, width int, decorators []string) (*ClassDef, int, error) {
	logical := p.collectLogical(i)

	text := strings.TrimSpace(logical.text)
	loc := classRegex.FindStringSubmatchIndex(text)
	if loc == nil {
		return nil, 0, &ParseError{Path: p.path, Line: i + 1, Msg: "malformed class definition"}
	}

	cls := &ClassDef{
		Name:       text[loc[2]:loc[3]],
		Decorators: decorators,
		Inline:     strings.TrimSpace(text[loc[1]:]),
		Indent:     leadingWhitespace(p.lines[i]),
		BodyIndent: "    ",
		Line:       i + 1,
	}
	if loc[4] >= 0 {
		cls.Bases = splitArgs(text[loc[4]:loc[5]])
	}

	// Find the class body width from the first non-blank line after the
	// header. A body-less class ("class Foo(Base): ..." inline) is legal.
	j := logical.next
	for j < len(p.lines) && isBlank(p.lines[j]) {
		j++
	}
	if j >= len(p.lines) || indentWidth(p.lines[j]) <= width {
		return cls, logical.next, nil
	}

	cls.BodyIndent = leadingWhitespace(p.lines[j])
	body, next, err := p.parseBlock(logical.next, indentWidth(p.lines[j]))
	if err != nil {
		return nil, 0, err
	}

	// Trailing blank lines belong to the enclosing scope, not the class
	// body; give them back so spacing survives class deletion.
	body, blanks := trimTrailingBlanks(body)
	cls.Body = body
	return cls, next - blanks, nil
}

// collectBody consumes the raw body lines of a function: everything
// indented deeper than the definition itself. Trailing blank lines are
// given back to the enclosing block so spacing between definitions is
// preserved when a definition is deleted.
func (p *parser) collectBody(start, width int) ([]string, int) {
	var body []string
	i := start
	lastCode := start

	for i < len(p.lines) {
		line := p.lines[i]
		if isBlank(line) {
			body = append(body, line)
			i++
			continue
		}
		if indentWidth(line) <= width {
			break
		}
		logical := p.collectLogical(i)
		body = append(body, logical.raw...)
		i = logical.next
		lastCode = i
	}

	if lastCode < i {
		body = body[:len(body)-(i-lastCode)]
		i = lastCode
	}
	return body, i
}

// parseImport parses one logical import statement.
func (p *parser) parseImport(text string, line int) (Node, error) {
	text = strings.TrimSpace(text)

	if matches := fromRegex.FindStringSubmatch(text); matches != nil {
		module := matches[1]
		level := 0
		for level < len(module) && module[level] == '.' {
			level++
		}

		imp := &ImportFrom{
			Module: module[level:],
			Level:  level,
			Line:   line,
		}

		names := strings.Trim(strings.TrimSpace(matches[2]), "()")
		if strings.TrimSpace(names) == "*" {
			imp.Wildcard = true
			return imp, nil
		}
		imp.Names = parseAliases(names)
		if len(imp.Names) == 0 {
			return nil, &ParseError{Path: p.path, Line: line, Msg: "empty import list"}
		}
		return imp, nil
	}

	if matches := importRegex.FindStringSubmatch(text); matches != nil {
		imp := &Import{Line: line}
		imp.Names = parseAliases(matches[1])
		if len(imp.Names) == 0 {
			return nil, &ParseError{Path: p.path, Line: line, Msg: "empty import list"}
		}
		return imp, nil
	}

	return nil, &ParseError{Path: p.path, Line: line, Msg: "malformed import"}
}

// parseAliases splits "a, b as c" into aliases.
func parseAliases(list string) []Alias {
	var aliases []Alias
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		alias := Alias{Name: part}
		if fields := strings.Fields(part); len(fields) == 3 && fields[1] == "as" {
			alias = Alias{Name: fields[0], AsName: fields[2]}
		}
		aliases = append(aliases, alias)
	}
	return aliases
}

// logicalLine is one logical statement, possibly spanning several
// physical lines.
type logicalLine struct {
	// raw holds the physical lines, verbatim.
	raw []string

	// text is the joined statement with comments stripped.
	text string

	// next is the index of the first line after the statement.
	next int
}

// collectLogical consumes one logical line starting at index i, following
// open brackets, backslash continuations and unterminated triple-quoted
// strings across physical lines.
func (p *parser) collectLogical(i int) logicalLine {
	var state scanState
	var result logicalLine
	var text strings.Builder

	for i < len(p.lines) {
		line := p.lines[i]
		code := state.scan(line)
		result.raw = append(result.raw, line)
		i++

		if text.Len() > 0 {
			text.WriteByte(' ')
		}
		text.WriteString(strings.TrimSuffix(strings.TrimSpace(code), "\\"))

		if state.depth <= 0 && !state.inString() && !strings.HasSuffix(strings.TrimRight(code, " \t"), "\\") {
			break
		}
	}

	result.text = text.String()
	result.next = i
	return result
}

// scanState tracks bracket depth and string state across physical lines.
type scanState struct {
	depth  int
	quote  byte // 0 when outside a string
	triple bool
}

func (s *scanState) inString() bool { return s.quote != 0 }

// scan processes one physical line, updating bracket and string state, and
// returns the line with any trailing comment removed.
func (s *scanState) scan(line string) string {
	for i := 0; i < len(line); i++ {
		c := line[i]

		if s.quote != 0 {
			switch {
			case c == '\\':
				i++
			case c == s.quote && s.triple:
				if i+2 < len(line) && line[i+1] == s.quote && line[i+2] == s.quote {
					s.quote = 0
					s.triple = false
					i += 2
				}
			case c == s.quote:
				s.quote = 0
			}
			continue
		}

		switch c {
		case '#':
			return line[:i]
		case '\'', '"':
			s.quote = c
			if i+2 < len(line) && line[i+1] == c && line[i+2] == c {
				s.triple = true
				i += 2
			}
		case '(', '[', '{':
			s.depth++
		case ')', ']', '}':
			s.depth--
		}
	}

	// A single-quoted string cannot span lines; reset rather than poison
	// the rest of the file on a lexing hiccup.
	if s.quote != 0 && !s.triple {
		s.quote = 0
	}
	return line
}

// splitArgs splits a base-class list on top-level commas.
func splitArgs(list string) []string {
	if strings.TrimSpace(list) == "" {
		return nil
	}

	var args []string
	depth := 0
	start := 0
	for i := 0; i < len(list); i++ {
		switch list[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(list[start:i]))
				start = i + 1
			}
		}
	}
	if arg := strings.TrimSpace(list[start:]); arg != "" {
		args = append(args, arg)
	}
	return args
}

// trimTrailingBlanks strips trailing blank lines from the last RawStmt of
// a block and returns the number of lines stripped.
func trimTrailingBlanks(nodes []Node) ([]Node, int) {
	if len(nodes) == 0 {
		return nodes, 0
	}
	raw, ok := nodes[len(nodes)-1].(*RawStmt)
	if !ok {
		return nodes, 0
	}

	n := 0
	for len(raw.Lines) > 0 && isBlank(raw.Lines[len(raw.Lines)-1]) {
		raw.Lines = raw.Lines[:len(raw.Lines)-1]
		n++
	}
	if len(raw.Lines) == 0 {
		nodes = nodes[:len(nodes)-1]
	}
	return nodes, n
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// indentWidth measures leading whitespace, counting tabs as 8 columns.
func indentWidth(line string) int {
	width := 0
	for _, c := range line {
		switch c {
		case ' ':
			width++
		case '\t':
			width += 8
		default:
			return width
		}
	}
	return width
}

func leadingWhitespace(line string) string {
	for i, c := range line {
		if c != ' ' && c != '\t' {
			return line[:i]
		}
	}
	return line
}
