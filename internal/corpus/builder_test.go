package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree writes a corpus of Python files under a fresh temp root.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestBuilder_Build(t *testing.T) {
	t.Parallel()

	t.Run("FollowsLocalImports", func(t *testing.T) {
		t.Parallel()
		root := writeTree(t, map[string]string{
			"main.py": "from util import helper\n\nhelper()\n",
			"util.py": "import os\n\n\ndef helper():\n    return os.getcwd()\n",
		})

		g, err := NewBuilder(root).Build([]string{filepath.Join(root, "main.py")})
		require.NoError(t, err)

		assert.Equal(t, 2, g.UnitCount())
		main := g.Unit(filepath.Join(root, "main.py"))
		require.NotNil(t, main)
		assert.True(t, main.IsEntry)

		util := g.Unit(filepath.Join(root, "util.py"))
		require.NotNil(t, util)
		assert.False(t, util.IsEntry)
		require.NotNil(t, util.Def("helper"))
	})

	t.Run("TransitiveImports", func(t *testing.T) {
		t.Parallel()
		root := writeTree(t, map[string]string{
			"main.py": "from a import f\n\nf()\n",
			"a.py":    "from b import g\n\n\ndef f():\n    return g()\n",
			"b.py":    "def g():\n    return 1\n",
		})

		g, err := NewBuilder(root).Build([]string{filepath.Join(root, "main.py")})
		require.NoError(t, err)

		assert.Equal(t, 3, g.UnitCount())
		assert.NotNil(t, g.Unit(filepath.Join(root, "b.py")))
	})

	t.Run("PackageImportsResolveToInit", func(t *testing.T) {
		t.Parallel()
		root := writeTree(t, map[string]string{
			"main.py":           "from pkg import thing\n\nthing()\n",
			"pkg/__init__.py":   "from pkg.impl import thing\n",
			"pkg/impl.py":       "def thing():\n    return 2\n",
			"pkg/unrelated.py":  "def other():\n    return 3\n",
			"other/unused.py":   "def never():\n    return 4\n",
		})

		g, err := NewBuilder(root).Build([]string{filepath.Join(root, "main.py")})
		require.NoError(t, err)

		assert.NotNil(t, g.Unit(filepath.Join(root, "pkg", "__init__.py")))
		assert.NotNil(t, g.Unit(filepath.Join(root, "pkg", "impl.py")))
		// Only reachable files enter the corpus
		assert.Nil(t, g.Unit(filepath.Join(root, "pkg", "unrelated.py")))
		assert.Nil(t, g.Unit(filepath.Join(root, "other", "unused.py")))
	})

	t.Run("EntriesRelativeToRoot", func(t *testing.T) {
		t.Parallel()
		root := writeTree(t, map[string]string{
			"main.py": "from util import helper\n\nhelper()\n",
			"util.py": "def helper():\n    return 1\n",
		})

		// Relative entry paths name files under the corpus root, no
		// matter the working directory.
		g, err := NewBuilder(root).Build([]string{"main.py"})
		require.NoError(t, err)

		assert.Equal(t, 2, g.UnitCount())
		main := g.Unit(filepath.Join(root, "main.py"))
		require.NotNil(t, main)
		assert.True(t, main.IsEntry)
	})

	t.Run("SubmoduleFromImports", func(t *testing.T) {
		t.Parallel()
		root := writeTree(t, map[string]string{
			"main.py":         "from pkg import worker\n\nworker.run()\n",
			"pkg/__init__.py": "",
			"pkg/worker.py":   "def run():\n    return 1\n\n\ndef spare():\n    return 2\n",
		})

		g, err := NewBuilder(root).Build([]string{filepath.Join(root, "main.py")})
		require.NoError(t, err)

		// "worker" names a module, not a symbol of pkg/__init__.py
		require.NotNil(t, g.Unit(filepath.Join(root, "pkg", "worker.py")))
		_, whole := g.ExternalDemand(filepath.Join(root, "pkg", "worker.py"))
		assert.True(t, whole)
	})

	t.Run("RelativeSiblingModuleImports", func(t *testing.T) {
		t.Parallel()
		root := writeTree(t, map[string]string{
			"pkg/__init__.py": "",
			"pkg/a.py":        "from . import b\n\nb.f()\n",
			"pkg/b.py":        "def f():\n    return 1\n",
		})

		g, err := NewBuilder(root).Build([]string{filepath.Join(root, "pkg", "a.py")})
		require.NoError(t, err)

		assert.NotNil(t, g.Unit(filepath.Join(root, "pkg", "b.py")))
	})

	t.Run("RelativeImports", func(t *testing.T) {
		t.Parallel()
		root := writeTree(t, map[string]string{
			"pkg/__init__.py": "",
			"pkg/a.py":        "from .b import f\nfrom ..common import shared\n\nf()\nshared()\n",
			"pkg/b.py":        "def f():\n    return 1\n",
			"common.py":       "def shared():\n    return 2\n",
		})

		g, err := NewBuilder(root).Build([]string{filepath.Join(root, "pkg", "a.py")})
		require.NoError(t, err)

		assert.NotNil(t, g.Unit(filepath.Join(root, "pkg", "b.py")))
		assert.NotNil(t, g.Unit(filepath.Join(root, "common.py")))
	})

	t.Run("ExternalImportsHaveNoTarget", func(t *testing.T) {
		t.Parallel()
		root := writeTree(t, map[string]string{
			"main.py": "import os\nfrom collections import OrderedDict\n\nprint(os.sep, OrderedDict)\n",
		})

		g, err := NewBuilder(root).Build([]string{filepath.Join(root, "main.py")})
		require.NoError(t, err)

		main := g.Unit(filepath.Join(root, "main.py"))
		require.Len(t, main.Imports, 2)
		for _, edge := range main.Imports {
			assert.True(t, edge.External(), "edge for %s", edge.Module)
		}
	})

	t.Run("EntryParseFailureIsFatal", func(t *testing.T) {
		t.Parallel()
		root := writeTree(t, map[string]string{
			"broken.py": "class :\n    pass\n",
		})

		_, err := NewBuilder(root).Build([]string{filepath.Join(root, "broken.py")})
		assert.Error(t, err)
	})

	t.Run("NonEntryParseFailureExcludesWithWarning", func(t *testing.T) {
		t.Parallel()
		root := writeTree(t, map[string]string{
			"main.py":   "from broken import f\n\nf()\n",
			"broken.py": "class :\n    pass\n",
		})

		g, err := NewBuilder(root).Build([]string{filepath.Join(root, "main.py")})
		require.NoError(t, err)

		assert.Equal(t, 1, g.UnitCount())
		assert.NotEmpty(t, g.Warnings())

		// The dangling edge is demoted to external
		main := g.Unit(filepath.Join(root, "main.py"))
		require.Len(t, main.Imports, 1)
		assert.True(t, main.Imports[0].External())
	})

	t.Run("NoEntries", func(t *testing.T) {
		t.Parallel()
		_, err := NewBuilder(t.TempDir()).Build(nil)
		assert.Error(t, err)
	})
}

func TestSourceUnit_References(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"main.py": "import helpers\n\n\ndef used():\n    return 1\n\n\ndef recursive(n):\n    return recursive(n - 1)\n\n\ndef unused():\n    return 2\n\n\nclass Consumer:\n    def run(self):\n        return used()\n\n\nresult = Consumer().run()\n",
	})

	g, err := NewBuilder(root).Build([]string{filepath.Join(root, "main.py")})
	require.NoError(t, err)
	main := g.Unit(filepath.Join(root, "main.py"))

	t.Run("ReferencedFromOtherDefinition", func(t *testing.T) {
		t.Parallel()
		assert.True(t, main.ReferencedOutside("used"))
	})

	t.Run("ReferencedFromModuleLevel", func(t *testing.T) {
		t.Parallel()
		assert.True(t, main.ReferencedOutside("Consumer"))
	})

	t.Run("SelfRecursionDoesNotCount", func(t *testing.T) {
		t.Parallel()
		assert.False(t, main.ReferencedOutside("recursive"))
	})

	t.Run("NeverReferenced", func(t *testing.T) {
		t.Parallel()
		assert.False(t, main.ReferencedOutside("unused"))
	})

	t.Run("ImportStatementsAreNotReferences", func(t *testing.T) {
		t.Parallel()
		assert.False(t, main.ReferencedOutside("helpers"))
	})
}

func TestGraph_ExternalDemand(t *testing.T) {
	t.Parallel()

	t.Run("NamedSymbols", func(t *testing.T) {
		t.Parallel()
		root := writeTree(t, map[string]string{
			"main.py": "from lib import f, g\n\nf()\ng()\n",
			"lib.py":  "def f():\n    return 1\n\n\ndef g():\n    return 2\n\n\ndef h():\n    return 3\n",
		})

		g, err := NewBuilder(root).Build([]string{filepath.Join(root, "main.py")})
		require.NoError(t, err)

		names, whole := g.ExternalDemand(filepath.Join(root, "lib.py"))
		assert.False(t, whole)
		assert.True(t, names["f"])
		assert.True(t, names["g"])
		assert.False(t, names["h"])
	})

	t.Run("WildcardDemandsEverything", func(t *testing.T) {
		t.Parallel()
		root := writeTree(t, map[string]string{
			"main.py": "from lib import *\n",
			"lib.py":  "def f():\n    return 1\n",
		})

		g, err := NewBuilder(root).Build([]string{filepath.Join(root, "main.py")})
		require.NoError(t, err)

		_, whole := g.ExternalDemand(filepath.Join(root, "lib.py"))
		assert.True(t, whole)
	})

	t.Run("WholeModuleImportDemandsEverything", func(t *testing.T) {
		t.Parallel()
		root := writeTree(t, map[string]string{
			"main.py": "import lib\n\nlib.f()\n",
			"lib.py":  "def f():\n    return 1\n",
		})

		g, err := NewBuilder(root).Build([]string{filepath.Join(root, "main.py")})
		require.NoError(t, err)

		_, whole := g.ExternalDemand(filepath.Join(root, "lib.py"))
		assert.True(t, whole)
	})

	t.Run("EntryHasNoDemand", func(t *testing.T) {
		t.Parallel()
		root := writeTree(t, map[string]string{
			"main.py": "def f():\n    return 1\n",
		})

		g, err := NewBuilder(root).Build([]string{filepath.Join(root, "main.py")})
		require.NoError(t, err)

		names, whole := g.ExternalDemand(filepath.Join(root, "main.py"))
		assert.False(t, whole)
		assert.Empty(t, names)
	})
}

func TestExtractDefs(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"main.py": "class Base:\n    def hello(self):\n        return 1\n\n\nclass Derived(Base, metaclass=Meta):\n    def world(self):\n        return 2\n\n\nBase()\nDerived()\n",
	})

	g, err := NewBuilder(root).Build([]string{filepath.Join(root, "main.py")})
	require.NoError(t, err)
	main := g.Unit(filepath.Join(root, "main.py"))

	derived := main.Def("Derived")
	require.NotNil(t, derived)
	assert.Equal(t, DefClass, derived.Kind)
	// Keyword arguments in the base list are not base classes
	assert.Equal(t, []string{"Base"}, derived.Bases)
	require.Len(t, derived.Methods, 1)
	assert.Equal(t, "world", derived.Methods[0].Name)
	assert.Equal(t, "Derived", derived.Methods[0].ClassName)
}

func TestModuleName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "main", moduleName("main.py"))
	assert.Equal(t, "pkg.util", moduleName(filepath.Join("pkg", "util.py")))
	assert.Equal(t, "pkg", moduleName(filepath.Join("pkg", "__init__.py")))
}
