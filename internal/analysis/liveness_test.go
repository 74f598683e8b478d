package analysis

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Asthestarsfalll/codeslim-go/internal/corpus"
)

// buildGraph writes the given files under a temp root and builds a graph
// from the listed entries.
func buildGraph(t *testing.T, files map[string]string, entries ...string) (*corpus.Graph, string) {
	t.Helper()

	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	abs := make([]string, len(entries))
	for i, e := range entries {
		abs[i] = filepath.Join(root, e)
	}

	g, err := corpus.NewBuilder(root).Build(abs)
	require.NoError(t, err)
	return g, root
}

func TestAnalyzer_IsLive(t *testing.T) {
	t.Parallel()

	t.Run("ExternallyImported", func(t *testing.T) {
		t.Parallel()
		g, root := buildGraph(t, map[string]string{
			"main.py": "from lib import f\n\nf()\n",
			"lib.py":  "def f():\n    return 1\n\n\ndef g():\n    return 2\n",
		}, "main.py")
		a := New(g)

		lib := filepath.Join(root, "lib.py")
		assert.True(t, a.IsLive(lib, "f"))
		assert.False(t, a.IsLive(lib, "g"))
	})

	t.Run("WholeModuleImportKeepsEverything", func(t *testing.T) {
		t.Parallel()
		g, root := buildGraph(t, map[string]string{
			"main.py": "import lib\n\nlib.f()\n",
			"lib.py":  "def f():\n    return 1\n\n\ndef g():\n    return 2\n",
		}, "main.py")
		a := New(g)

		lib := filepath.Join(root, "lib.py")
		assert.True(t, a.IsLive(lib, "f"))
		assert.True(t, a.IsLive(lib, "g"))
	})

	t.Run("LocallyReferenced", func(t *testing.T) {
		t.Parallel()
		g, root := buildGraph(t, map[string]string{
			"main.py": "def used():\n    return 1\n\n\ndef caller():\n    return used()\n\n\ncaller()\n",
		}, "main.py")
		a := New(g)

		main := filepath.Join(root, "main.py")
		assert.True(t, a.IsLive(main, "used"))
		assert.True(t, a.IsLive(main, "caller"))
	})

	t.Run("SelfRecursionIsPrunable", func(t *testing.T) {
		t.Parallel()
		g, root := buildGraph(t, map[string]string{
			"a.py": "def helper():\n    return helper()\n",
		}, "a.py")
		a := New(g)

		assert.False(t, a.IsLive(filepath.Join(root, "a.py"), "helper"))
	})

	t.Run("DunderNamesAlwaysLive", func(t *testing.T) {
		t.Parallel()
		g, root := buildGraph(t, map[string]string{
			"a.py": "def __getattr__(name):\n    return None\n\n\ndef plain():\n    return None\n",
		}, "a.py")
		a := New(g)

		path := filepath.Join(root, "a.py")
		assert.True(t, a.IsLive(path, "__getattr__"))
		assert.False(t, a.IsLive(path, "plain"))
	})

	t.Run("UnknownFileOrName", func(t *testing.T) {
		t.Parallel()
		g, root := buildGraph(t, map[string]string{
			"a.py": "def f():\n    return 1\n",
		}, "a.py")
		a := New(g)

		assert.False(t, a.IsLive(filepath.Join(root, "missing.py"), "f"))
		assert.False(t, a.IsLive(filepath.Join(root, "a.py"), "nope"))
	})
}

func TestAnalyzer_DeadCode(t *testing.T) {
	t.Parallel()

	g, root := buildGraph(t, map[string]string{
		"main.py": "from lib import f\n\nf()\n",
		"lib.py":  "def f():\n    return 1\n\n\ndef unused_one():\n    return 2\n\n\nclass UnusedClass:\n    pass\n",
	}, "main.py")
	a := New(g)

	findings := a.DeadCode()
	require.Len(t, findings, 2)

	assert.Equal(t, "unused_one", findings[0].Name)
	assert.Equal(t, corpus.DefFunction, findings[0].Kind)
	assert.Equal(t, "UnusedClass", findings[1].Name)
	assert.Equal(t, corpus.DefClass, findings[1].Kind)
	assert.Equal(t, "lib.py", findings[0].RelPath)
	assert.Equal(t, filepath.Join(root, "lib.py"), findings[0].Path)
}

func TestIsDunder(t *testing.T) {
	t.Parallel()

	assert.True(t, isDunder("__init__"))
	assert.True(t, isDunder("__eq__"))
	assert.False(t, isDunder("__main"))
	assert.False(t, isDunder("____"))
	assert.False(t, isDunder("plain"))
}
