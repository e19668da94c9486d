package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tia/internal/analysis"
	tiaerrors "tia/internal/errors"
)

func sampleAnalysis(t *testing.T, hash, ref string) *analysis.TestImpactAnalysis {
	t.Helper()
	testUnit := analysis.CompiledUnit{Name: "a.ATest", Path: "a/ATest.class", OutputFolder: "build/classes/java/test", Hash: "t"}
	mainUnit := analysis.CompiledUnit{Name: "a.A", Path: "a/A.class", OutputFolder: "build/classes/java/main", Hash: hash}
	registry := analysis.NewRegistry([]analysis.CompiledUnit{testUnit, mainUnit})

	test, err := analysis.NewAnalyzedTest(registry.IDByUnit(testUnit), analysis.NewTagSet(analysis.Passed),
		[]int{registry.IDByUnit(mainUnit)}, ref)
	require.NoError(t, err)
	tia, err := analysis.New(registry, []analysis.AnalyzedTest{test})
	require.NoError(t, err)
	return tia
}

// forEachBackend runs fn against every backend that needs no network.
func forEachBackend(t *testing.T, fn func(t *testing.T, store *Store)) {
	for _, name := range []string{"folder", "sqlite"} {
		t.Run(name, func(t *testing.T) {
			store, err := Open(context.Background(), name, Options{Dir: t.TempDir(), CacheSize: 4})
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close() })
			fn(t, store)
		})
	}
}

func TestStore_AnalysisRoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		tia := sampleAnalysis(t, "1", "r1")

		id, err := store.SaveAnalysis(ctx, tia)
		require.NoError(t, err)
		assert.Equal(t, tia.ID(), id)

		loaded, err := store.FindAnalysis(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, analysis.Encode(tia), analysis.Encode(loaded))
		assert.Equal(t, id, loaded.ID())
	})
}

func TestStore_FindAnalysisMissing(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *Store) {
		_, err := store.FindAnalysis(context.Background(), "0123456789abcdef0123456789abcdef")
		require.Error(t, err)
		assert.True(t, tiaerrors.Is(err, tiaerrors.AnalysisNotFound))
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestStore_SaveMissingAnalysisFails(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *Store) {
		_, err := store.SaveAnalysis(context.Background(), analysis.NotFound)
		assert.True(t, tiaerrors.Is(err, tiaerrors.InvariantViolation))
	})
}

func TestStore_Pointer(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *Store) {
		ctx := context.Background()

		id, err := store.ReadPointer(ctx)
		require.NoError(t, err)
		assert.Empty(t, id)

		require.NoError(t, store.WritePointer(ctx, "abc"))
		require.NoError(t, store.WritePointer(ctx, "def"))

		id, err = store.ReadPointer(ctx)
		require.NoError(t, err)
		assert.Equal(t, "def", id)
	})
}

func TestStore_RawCoverage(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		blob := []byte("coverage coverage coverage coverage")

		ref, err := store.SaveRawCoverage(ctx, blob)
		require.NoError(t, err)
		assert.Equal(t, ExecutionRef(blob), ref)

		again, err := store.SaveRawCoverage(ctx, blob)
		require.NoError(t, err)
		assert.Equal(t, ref, again, "refs are content-addressed")

		got, err := store.FindRawCoverage(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, blob, got)

		_, err = store.FindRawCoverage(ctx, ExecutionRef([]byte("other")))
		assert.True(t, tiaerrors.Is(err, tiaerrors.StorageUnavailable))
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestStore_Prune(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *Store) {
		ctx := context.Background()

		keptRef, err := store.SaveRawCoverage(ctx, []byte("kept"))
		require.NoError(t, err)
		staleRef, err := store.SaveRawCoverage(ctx, []byte("stale"))
		require.NoError(t, err)

		old := sampleAnalysis(t, "1", staleRef)
		current := sampleAnalysis(t, "2", keptRef)
		_, err = store.SaveAnalysis(ctx, old)
		require.NoError(t, err)
		_, err = store.SaveAnalysis(ctx, current)
		require.NoError(t, err)

		result, err := store.Prune(ctx, current)
		require.NoError(t, err)
		assert.Equal(t, PruneResult{Analyses: 1, Executions: 1}, result)

		_, err = store.FindAnalysis(ctx, old.ID())
		assert.True(t, tiaerrors.Is(err, tiaerrors.AnalysisNotFound))
		_, err = store.FindAnalysis(ctx, current.ID())
		assert.NoError(t, err)
		_, err = store.FindRawCoverage(ctx, keptRef)
		assert.NoError(t, err)
		_, err = store.FindRawCoverage(ctx, staleRef)
		assert.Error(t, err)
	})
}

func TestStore_MalformedRecord(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(context.Background(), "folder", Options{Dir: dir})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "analysis-broken.tia"), []byte(`{"classes": [`), 0644))

	_, err = store.FindAnalysis(context.Background(), "broken")
	assert.True(t, tiaerrors.Is(err, tiaerrors.MalformedRecord))
}

func TestFolderBackend_Layout(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(context.Background(), "folder", Options{Dir: dir})
	require.NoError(t, err)
	ctx := context.Background()

	tia := sampleAnalysis(t, "1", "")
	_, err = store.SaveAnalysis(ctx, tia)
	require.NoError(t, err)
	require.NoError(t, store.WritePointer(ctx, tia.ID()))
	ref, err := store.SaveRawCoverage(ctx, []byte("x"))
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "analysis-"+tia.ID()+".tia"))
	assert.FileExists(t, filepath.Join(dir, "current"))
	assert.FileExists(t, filepath.Join(dir, "executions", ref+".zst"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-", "temp files are renamed away")
	}
}

func TestFolderBackend_RejectsPathKeys(t *testing.T) {
	backend, err := openFolder(context.Background(), Options{Dir: t.TempDir()})
	require.NoError(t, err)

	err = backend.Put(context.Background(), KindAnalysis, "../escape", []byte("x"))
	assert.Error(t, err)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), "floppy", Options{})
	require.Error(t, err)
	assert.True(t, tiaerrors.Is(err, tiaerrors.ConfigInvalid))
	assert.Contains(t, err.Error(), "folder, postgres, s3, sqlite")
}

func TestOpen_BackendsValidateOptions(t *testing.T) {
	for _, name := range []string{"folder", "sqlite", "postgres", "s3"} {
		_, err := Open(context.Background(), name, Options{})
		assert.True(t, tiaerrors.Is(err, tiaerrors.StorageUnavailable), name)
	}
}

func TestCompress_RoundTrip(t *testing.T) {
	enc, dec := codec()
	require.NotNil(t, enc)
	require.NotNil(t, dec)

	blob := []byte("coverage coverage coverage coverage")
	packed := compress(blob)
	assert.NotEqual(t, blob, packed)

	unpacked, err := decompress(packed)
	require.NoError(t, err)
	assert.Equal(t, blob, unpacked)

	_, err = decompress([]byte("not zstd"))
	assert.Error(t, err)
}
