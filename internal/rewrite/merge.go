package rewrite

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Asthestarsfalll/codeslim-go/internal/pyast"
)

// MergePolicy selects how an inheritance chain is flattened.
type MergePolicy int

const (
	// MergeNone disables class merging.
	MergeNone MergePolicy = iota

	// MergeEliminate collapses the whole chain into the subclass: every
	// inherited method not already overridden is copied in, and the
	// merged bases disappear from the base list.
	MergeEliminate

	// MergeKeepOne keeps a two-level hierarchy: members of intermediate
	// bases are pushed onto the highest base in the chain, and the
	// subclass inherits from that base directly.
	MergeKeepOne
)

// ParseMergePolicy maps a policy name to its value.
func ParseMergePolicy(name string) (MergePolicy, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return MergeNone, nil
	case "eliminate":
		return MergeEliminate, nil
	case "keepone":
		return MergeKeepOne, nil
	}
	return MergeNone, fmt.Errorf("unknown merge policy %q", name)
}

func (p MergePolicy) String() string {
	switch p {
	case MergeEliminate:
		return "eliminate"
	case MergeKeepOne:
		return "keepone"
	}
	return "none"
}

// Merge flattens cls over its resolved base chain, nearest base first.
// The subclass tree is mutated in place; base trees are never modified
// under MergeEliminate, and only the highest base is modified under
// MergeKeepOne.
//
// Method conflicts resolve first-writer-wins: the most-derived
// definition of a name always survives, later bases contribute a method
// only when no earlier class in the chain defined it.
//
// Copied method bodies are not rewritten. A body that still names
// another class in the chain, or calls super(), would resolve against a
// definition the merge removed, so each such method produces a warning.
func Merge(cls *pyast.ClassDef, chain []*pyast.ClassDef, policy MergePolicy) []string {
	if policy == MergeNone || len(chain) == 0 {
		return nil
	}

	chainNames := make(map[string]bool, len(chain))
	for _, base := range chain {
		chainNames[base.Name] = true
	}

	switch policy {
	case MergeKeepOne:
		return mergeKeepOne(cls, chain, chainNames)
	default:
		return mergeEliminate(cls, chain, chainNames)
	}
}

func mergeEliminate(cls *pyast.ClassDef, chain []*pyast.ClassDef, chainNames map[string]bool) []string {
	var warnings []string

	seen := make(map[string]bool)
	for _, name := range cls.MethodNames() {
		seen[name] = true
	}

	for _, base := range chain {
		for _, node := range base.Body {
			fn, ok := node.(*pyast.FunctionDef)
			if !ok || seen[fn.Name] {
				continue
			}
			seen[fn.Name] = true

			copied := reindentFunction(fn, cls.BodyIndent)
			cls.Body = append(cls.Body, copied)
			if ref := chainReference(copied, chainNames); ref != "" {
				warnings = append(warnings, fmt.Sprintf(
					"%s.%s (inherited from %s) still references %s after merging",
					cls.Name, fn.Name, base.Name, ref))
			}
		}
	}

	// The highest base's own bases survive; everything merged away does not.
	top := chain[len(chain)-1]
	cls.Bases = filterBases(top.Bases, chainNames)
	return warnings
}

func mergeKeepOne(cls *pyast.ClassDef, chain []*pyast.ClassDef, chainNames map[string]bool) []string {
	top := chain[len(chain)-1]
	if len(chain) == 1 {
		// Nothing between the subclass and the highest base.
		cls.Bases = replaceChainBases(cls.Bases, chainNames, top.Name)
		return nil
	}

	var warnings []string

	// Intermediate members land on the highest base, nearest first, so
	// the most-derived definition wins: an intermediate method replaces
	// the top base's own method of the same name.
	seen := make(map[string]bool)
	for _, base := range chain[:len(chain)-1] {
		for _, node := range base.Body {
			fn, ok := node.(*pyast.FunctionDef)
			if !ok || seen[fn.Name] {
				continue
			}
			seen[fn.Name] = true

			copied := reindentFunction(fn, top.BodyIndent)
			replaceMethod(top, copied)
			if ref := chainReference(copied, chainNames); ref != "" {
				warnings = append(warnings, fmt.Sprintf(
					"%s.%s (inherited from %s) still references %s after merging",
					top.Name, fn.Name, base.Name, ref))
			}
		}
	}

	cls.Bases = replaceChainBases(cls.Bases, chainNames, top.Name)
	return warnings
}

// replaceMethod swaps the class's method of the same name for fn, or
// appends fn when the class has no such method.
func replaceMethod(cls *pyast.ClassDef, fn *pyast.FunctionDef) {
	for i, node := range cls.Body {
		if existing, ok := node.(*pyast.FunctionDef); ok && existing.Name == fn.Name {
			cls.Body[i] = fn
			return
		}
	}
	cls.Body = append(cls.Body, fn)
}

// filterBases drops every base that was merged away.
func filterBases(bases []string, chainNames map[string]bool) []string {
	var out []string
	for _, base := range bases {
		if !chainNames[base] {
			out = append(out, base)
		}
	}
	return out
}

// replaceChainBases swaps merged-away bases for a single reference to
// the surviving base, preserving the position of the first one.
func replaceChainBases(bases []string, chainNames map[string]bool, survivor string) []string {
	var out []string
	replaced := false
	for _, base := range bases {
		if chainNames[base] {
			if !replaced {
				out = append(out, survivor)
				replaced = true
			}
			continue
		}
		out = append(out, base)
	}
	if !replaced {
		out = append(out, survivor)
	}
	return out
}

// reindentFunction deep-copies a method and shifts it to the target
// body indent.
func reindentFunction(fn *pyast.FunctionDef, indent string) *pyast.FunctionDef {
	copied := &pyast.FunctionDef{
		Name:       fn.Name,
		Decorators: reindentLines(fn.Decorators, fn.Indent, indent),
		Header:     reindentLines(fn.Header, fn.Indent, indent),
		Body:       reindentLines(fn.Body, fn.Indent, indent),
		Indent:     indent,
		Line:       fn.Line,
	}
	return copied
}

// reindentLines swaps the old indent prefix for the new one on every
// line that carries it. Blank lines and lines with unrelated
// indentation (continuation lines inside strings) pass through.
func reindentLines(lines []string, oldIndent, newIndent string) []string {
	if oldIndent == newIndent {
		return append([]string(nil), lines...)
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		if strings.HasPrefix(line, oldIndent) && strings.TrimSpace(line) != "" {
			out[i] = newIndent + strings.TrimPrefix(line, oldIndent)
		} else {
			out[i] = line
		}
	}
	return out
}

var mergeIdentRegex = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// chainReference returns the first merged-away class name (or "super")
// appearing in the method's source, or "" when the body is clean.
func chainReference(fn *pyast.FunctionDef, chainNames map[string]bool) string {
	for _, lines := range [][]string{fn.Decorators, fn.Header, fn.Body} {
		for _, line := range lines {
			for _, ident := range mergeIdentRegex.FindAllString(line, -1) {
				if ident == "super" || chainNames[ident] {
					return ident
				}
			}
		}
	}
	return ""
}
