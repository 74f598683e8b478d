package pyast

import "strings"

// Print renders a module back to source text.
//
// Raw statements, function headers and function bodies are emitted
// verbatim. Import statements and class headers are regenerated, because
// they are the nodes the slimmer rewrites. A class whose body was pruned
// to nothing is emitted with a pass statement so the output stays
// re-parseable.
func Print(m *Module) string {
	var sb strings.Builder
	for _, node := range m.Body {
		printNode(&sb, node)
	}
	return sb.String()
}

func printNode(sb *strings.Builder, node Node) {
	switch n := node.(type) {
	case *Import:
		sb.WriteString(printImport(n))
		sb.WriteByte('\n')

	case *ImportFrom:
		sb.WriteString(printImportFrom(n))
		sb.WriteByte('\n')

	case *FunctionDef:
		writeLines(sb, n.Decorators)
		writeLines(sb, n.Header)
		writeLines(sb, n.Body)

	case *ClassDef:
		writeLines(sb, n.Decorators)
		sb.WriteString(classHeader(n))
		sb.WriteByte('\n')
		if len(n.Body) == 0 && n.Inline == "" {
			sb.WriteString(n.BodyIndent)
			sb.WriteString("pass\n")
		}
		for _, child := range n.Body {
			printNode(sb, child)
		}

	case *RawStmt:
		writeLines(sb, n.Lines)
	}
}

func printImport(n *Import) string {
	return "import " + joinAliases(n.Names)
}

func printImportFrom(n *ImportFrom) string {
	module := strings.Repeat(".", n.Level) + n.Module
	if n.Wildcard {
		return "from " + module + " import *"
	}
	return "from " + module + " import " + joinAliases(n.Names)
}

func classHeader(n *ClassDef) string {
	var sb strings.Builder
	sb.WriteString(n.Indent)
	sb.WriteString("class ")
	sb.WriteString(n.Name)
	if len(n.Bases) > 0 {
		sb.WriteString("(")
		sb.WriteString(strings.Join(n.Bases, ", "))
		sb.WriteString(")")
	}
	sb.WriteString(":")
	if n.Inline != "" {
		sb.WriteString(" ")
		sb.WriteString(n.Inline)
	}
	return sb.String()
}

func joinAliases(aliases []Alias) string {
	parts := make([]string, len(aliases))
	for i, a := range aliases {
		parts[i] = a.Name
		if a.AsName != "" {
			parts[i] = a.Name + " as " + a.AsName
		}
	}
	return strings.Join(parts, ", ")
}

func writeLines(sb *strings.Builder, lines []string) {
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
}
