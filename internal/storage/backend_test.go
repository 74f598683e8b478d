package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Asthestarsfalll/codeslim-go/internal/analysis"
	"github.com/Asthestarsfalll/codeslim-go/internal/corpus"
)

// testSnapshot is a small fixture shared by the backend tests.
func testSnapshot() *Snapshot {
	return &Snapshot{
		Units: []UnitRecord{
			{RelPath: "main.py", Module: "main", IsEntry: true},
			{RelPath: "lib.py", Module: "lib"},
		},
		Defs: []DefRecord{
			{ID: DefID("function", "lib.py", "f"), Name: "f", Kind: "function", File: "lib.py", Line: 1, Live: true},
			{ID: DefID("function", "lib.py", "unused"), Name: "unused", Kind: "function", File: "lib.py", Line: 5},
			{ID: DefID("class", "lib.py", "Worker"), Name: "Worker", Kind: "class", File: "lib.py", Line: 9, Live: true, Methods: []string{"run"}},
		},
		Edges: []EdgeRecord{
			{ID: "main.py#0", From: "main.py", To: "lib.py", Module: "lib", Symbols: []string{"f", "Worker"}},
			{ID: "main.py#1", From: "main.py", Module: "os"},
		},
	}
}

// eachBackend runs a subtest against both backend implementations.
func eachBackend(t *testing.T, fn func(t *testing.T, backend Backend)) {
	t.Helper()

	t.Run("Memory", func(t *testing.T) {
		t.Parallel()
		backend := NewMemoryBackend()
		require.NoError(t, backend.Initialize(t.TempDir(), false))
		defer backend.Close()
		fn(t, backend)
	})

	t.Run("Badger", func(t *testing.T) {
		t.Parallel()
		backend := NewBadgerBackend()
		require.NoError(t, backend.Initialize(t.TempDir(), false))
		defer backend.Close()
		fn(t, backend)
	})
}

func TestBackend_BulkLoadAndQuery(t *testing.T) {
	t.Parallel()

	eachBackend(t, func(t *testing.T, backend Backend) {
		ctx := context.Background()
		require.NoError(t, backend.BulkLoad(ctx, testSnapshot()))

		units, err := backend.Units(ctx)
		require.NoError(t, err)
		require.Len(t, units, 2)
		assert.Equal(t, "lib.py", units[0].RelPath)
		assert.Equal(t, "main.py", units[1].RelPath)

		unit, err := backend.GetUnit(ctx, "main.py")
		require.NoError(t, err)
		require.NotNil(t, unit)
		assert.True(t, unit.IsEntry)

		missing, err := backend.GetUnit(ctx, "nope.py")
		require.NoError(t, err)
		assert.Nil(t, missing)

		defs, err := backend.DefsByFile(ctx, "lib.py")
		require.NoError(t, err)
		require.Len(t, defs, 3)
		assert.Equal(t, "f", defs[0].Name)
		assert.Equal(t, "Worker", defs[2].Name)

		def, err := backend.GetDef(ctx, DefID("class", "lib.py", "Worker"))
		require.NoError(t, err)
		require.NotNil(t, def)
		assert.Equal(t, []string{"run"}, def.Methods)

		found, err := backend.FindDefs(ctx, "unused")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "lib.py", found[0].File)

		dead, err := backend.DeadDefs(ctx)
		require.NoError(t, err)
		require.Len(t, dead, 1)
		assert.Equal(t, "unused", dead[0].Name)

		importers, err := backend.Importers(ctx, "lib.py")
		require.NoError(t, err)
		require.Len(t, importers, 1)
		assert.Equal(t, "main.py", importers[0].From)

		stats, err := backend.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, Stats{Units: 2, Defs: 3, LiveDefs: 2, Edges: 2}, stats)
	})
}

func TestBackend_RemoveFile(t *testing.T) {
	t.Parallel()

	eachBackend(t, func(t *testing.T, backend Backend) {
		ctx := context.Background()
		require.NoError(t, backend.BulkLoad(ctx, testSnapshot()))

		// lib.py: 1 unit + 3 defs, no outgoing edges
		count, err := backend.RemoveFile(ctx, "lib.py")
		require.NoError(t, err)
		assert.Equal(t, 4, count)

		unit, err := backend.GetUnit(ctx, "lib.py")
		require.NoError(t, err)
		assert.Nil(t, unit)

		defs, err := backend.DefsByFile(ctx, "lib.py")
		require.NoError(t, err)
		assert.Empty(t, defs)

		// main.py: 1 unit + 2 outgoing edges
		count, err = backend.RemoveFile(ctx, "main.py")
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		stats, err := backend.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, Stats{}, stats)
	})
}

func TestBackend_BulkLoadReplaces(t *testing.T) {
	t.Parallel()

	eachBackend(t, func(t *testing.T, backend Backend) {
		ctx := context.Background()
		require.NoError(t, backend.BulkLoad(ctx, testSnapshot()))

		replacement := &Snapshot{
			Units: []UnitRecord{{RelPath: "solo.py", Module: "solo", IsEntry: true}},
		}
		require.NoError(t, backend.BulkLoad(ctx, replacement))

		stats, err := backend.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, Stats{Units: 1}, stats)
	})
}

func TestMemoryBackend_ReadOnly(t *testing.T) {
	t.Parallel()

	backend := NewMemoryBackend()
	require.NoError(t, backend.Initialize(t.TempDir(), true))
	defer backend.Close()

	err := backend.BulkLoad(context.Background(), testSnapshot())
	assert.ErrorIs(t, err, ErrReadOnly)

	_, err = backend.RemoveFile(context.Background(), "lib.py")
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestBadgerBackend_Persistence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx := context.Background()

	backend := NewBadgerBackend()
	require.NoError(t, backend.Initialize(dir, false))
	require.NoError(t, backend.BulkLoad(ctx, testSnapshot()))
	require.NoError(t, backend.Close())

	reopened := NewBadgerBackend()
	require.NoError(t, reopened.Initialize(dir, true))
	defer reopened.Close()

	stats, err := reopened.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Units: 2, Defs: 3, LiveDefs: 2, Edges: 2}, stats)

	err = reopened.BulkLoad(ctx, testSnapshot())
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestBuildSnapshot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	files := map[string]string{
		"main.py": "from lib import f\n\nf()\n",
		"lib.py":  "def f():\n    return 1\n\n\ndef unused():\n    return 2\n",
	}
	for rel, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, rel), []byte(content), 0o644))
	}

	g, err := corpus.NewBuilder(root).Build([]string{filepath.Join(root, "main.py")})
	require.NoError(t, err)

	snap := BuildSnapshot(g, analysis.New(g))

	require.Len(t, snap.Units, 2)
	require.Len(t, snap.Defs, 2)
	require.Len(t, snap.Edges, 1)

	byName := make(map[string]DefRecord)
	for _, d := range snap.Defs {
		byName[d.Name] = d
	}
	assert.True(t, byName["f"].Live)
	assert.False(t, byName["unused"].Live)

	assert.Equal(t, "main.py", snap.Edges[0].From)
	assert.Equal(t, "lib.py", snap.Edges[0].To)
	assert.Equal(t, []string{"f"}, snap.Edges[0].Symbols)
}
