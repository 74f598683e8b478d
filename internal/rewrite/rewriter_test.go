package rewrite

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Asthestarsfalll/codeslim-go/internal/pyast"
)

// parseModule is a test helper around pyast.Parse.
func parseModule(t *testing.T, src string) *pyast.Module {
	t.Helper()
	m, err := pyast.Parse("test.py", []byte(src))
	require.NoError(t, err)
	return m
}

// topLevelNames lists the names of modeled definitions in body order.
func topLevelNames(m *pyast.Module) []string {
	var names []string
	for _, node := range m.Body {
		switch n := node.(type) {
		case *pyast.FunctionDef:
			names = append(names, n.Name)
		case *pyast.ClassDef:
			names = append(names, n.Name)
		}
	}
	return names
}

func TestRewriter_Deletion(t *testing.T) {
	t.Parallel()

	t.Run("RemovesHandledNodes", func(t *testing.T) {
		t.Parallel()
		m := parseModule(t, "def keep():\n    return 1\n\n\ndef drop():\n    return 2\n\n\ndef also_keep():\n    return 3\n")

		r := New(map[pyast.Kind]Handler{
			pyast.KindFunctionDef: func(node pyast.Node) (pyast.Node, error) {
				if node.(*pyast.FunctionDef).Name == "drop" {
					return nil, nil
				}
				return node, nil
			},
		}, nil, nil)

		require.NoError(t, r.Rewrite(m))
		assert.Equal(t, []string{"keep", "also_keep"}, topLevelNames(m))
	})

	t.Run("DeletedContainerSkipsDescendants", func(t *testing.T) {
		t.Parallel()
		m := parseModule(t, "class Gone:\n    def method(self):\n        return 1\n")

		var visitedMethods int
		r := New(map[pyast.Kind]Handler{
			pyast.KindClassDef: func(pyast.Node) (pyast.Node, error) {
				return nil, nil
			},
			pyast.KindFunctionDef: func(node pyast.Node) (pyast.Node, error) {
				visitedMethods++
				return node, nil
			},
		}, nil, nil)

		require.NoError(t, r.Rewrite(m))
		assert.Empty(t, m.Body)
		assert.Zero(t, visitedMethods)
	})

	t.Run("OutputReparsesCleanly", func(t *testing.T) {
		t.Parallel()
		m := parseModule(t, "import os\n\n\ndef drop():\n    return 2\n\n\nclass Kept:\n    def run(self):\n        return os.sep\n")

		r := New(map[pyast.Kind]Handler{
			pyast.KindFunctionDef: func(pyast.Node) (pyast.Node, error) { return nil, nil },
			pyast.KindClassDef:    func(node pyast.Node) (pyast.Node, error) { return node, nil },
		}, nil, nil)
		require.NoError(t, r.Rewrite(m))

		printed := pyast.Print(m)
		again, err := pyast.Parse("test.py", []byte(printed))
		require.NoError(t, err)
		assert.Equal(t, []string{"Kept"}, topLevelNames(again))
	})
}

func TestRewriter_DefaultRecursion(t *testing.T) {
	t.Parallel()

	// Without a ClassDef handler the rewriter descends into class bodies
	m := parseModule(t, "class Holder:\n    def drop(self):\n        return 1\n\n    def keep(self):\n        return 2\n")

	r := New(map[pyast.Kind]Handler{
		pyast.KindFunctionDef: func(node pyast.Node) (pyast.Node, error) {
			if node.(*pyast.FunctionDef).Name == "drop" {
				return nil, nil
			}
			return node, nil
		},
	}, nil, nil)

	require.NoError(t, r.Rewrite(m))
	cls := m.Body[0].(*pyast.ClassDef)
	assert.Equal(t, []string{"keep"}, cls.MethodNames())
}

func TestRewriter_Hooks(t *testing.T) {
	t.Parallel()

	t.Run("PreHookRunsBeforeHandler", func(t *testing.T) {
		t.Parallel()
		m := parseModule(t, "class A:\n    pass\n")

		var order []string
		r := New(map[pyast.Kind]Handler{
			pyast.KindClassDef: func(node pyast.Node) (pyast.Node, error) {
				order = append(order, "handler")
				return node, nil
			},
		}, map[pyast.Kind]PreHook{
			pyast.KindClassDef: func(pyast.Node) error {
				order = append(order, "pre")
				return nil
			},
		}, nil)

		require.NoError(t, r.Rewrite(m))
		assert.Equal(t, []string{"pre", "handler"}, order)
	})

	t.Run("PostHookMayReplaceResult", func(t *testing.T) {
		t.Parallel()
		m := parseModule(t, "class A:\n    pass\n")

		r := New(nil, nil, map[pyast.Kind]PostHook{
			pyast.KindClassDef: func(pyast.Node) (pyast.Node, error) {
				return nil, nil
			},
		})

		require.NoError(t, r.Rewrite(m))
		assert.Empty(t, m.Body)
	})

	t.Run("HandlerErrorPropagates", func(t *testing.T) {
		t.Parallel()
		m := parseModule(t, "def f():\n    return 1\n")

		boom := errors.New("boom")
		r := New(map[pyast.Kind]Handler{
			pyast.KindFunctionDef: func(pyast.Node) (pyast.Node, error) {
				return nil, boom
			},
		}, nil, nil)

		err := r.Rewrite(m)
		assert.ErrorIs(t, err, boom)

		var handlerErr *HandlerError
		require.ErrorAs(t, err, &handlerErr)
		assert.Equal(t, pyast.KindFunctionDef, handlerErr.Kind)
	})
}

func TestImportHandlers(t *testing.T) {
	t.Parallel()

	internal := func(module string, level int) bool {
		return level > 0 || module == "pkg.util" || module == "pkg.helpers"
	}

	t.Run("MapperEntryWins", func(t *testing.T) {
		t.Parallel()
		m := parseModule(t, "from pkg.util import f\n")

		r := New(ImportHandlers(map[string]string{"pkg.util": "util_renamed"}, internal), nil, nil)
		require.NoError(t, r.Rewrite(m))

		imp := m.Body[0].(*pyast.ImportFrom)
		assert.Equal(t, "util_renamed", imp.Module)
		assert.Equal(t, 0, imp.Level)
	})

	t.Run("FallbackFlattensToLastComponent", func(t *testing.T) {
		t.Parallel()
		m := parseModule(t, "from pkg.util import f\nfrom ..helpers import g\n")

		r := New(ImportHandlers(nil, internal), nil, nil)
		require.NoError(t, r.Rewrite(m))

		first := m.Body[0].(*pyast.ImportFrom)
		assert.Equal(t, "util", first.Module)

		second := m.Body[1].(*pyast.ImportFrom)
		assert.Equal(t, "helpers", second.Module)
		assert.Equal(t, 0, second.Level)
	})

	t.Run("ExternalImportsUntouched", func(t *testing.T) {
		t.Parallel()
		m := parseModule(t, "import os\nfrom collections import OrderedDict\n")

		r := New(ImportHandlers(nil, internal), nil, nil)
		require.NoError(t, r.Rewrite(m))

		assert.Equal(t, "os", m.Body[0].(*pyast.Import).Names[0].Name)
		assert.Equal(t, "collections", m.Body[1].(*pyast.ImportFrom).Module)
	})

	t.Run("PlainImportFlattened", func(t *testing.T) {
		t.Parallel()
		m := parseModule(t, "import pkg.util\n")

		r := New(ImportHandlers(nil, internal), nil, nil)
		require.NoError(t, r.Rewrite(m))

		assert.Equal(t, "util", m.Body[0].(*pyast.Import).Names[0].Name)
	})
}
