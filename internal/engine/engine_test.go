package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tia/internal/analysis"
	"tia/internal/collector"
	"tia/internal/config"
	tiaerrors "tia/internal/errors"
	"tia/internal/predict"
	"tia/internal/storage"
	"tia/internal/testutil"
)

const (
	mainFolder = "build/classes/java/main"
	testFolder = "build/classes/java/test"
)

type project struct {
	*testutil.ProjectFixture
	cfg *config.Config
}

func newProject(t *testing.T) *project {
	fx := testutil.NewProjectFixture(t)
	fx.WriteFile(t, mainFolder+"/com/example/Foo.class", []byte("foo v1"))
	fx.WriteFile(t, mainFolder+"/com/example/Bar.class", []byte("bar v1"))
	fx.WriteFile(t, testFolder+"/com/example/FooTest.class", []byte("foo test"))
	fx.WriteFile(t, testFolder+"/com/example/BarTest.class", []byte("bar test"))
	return &project{ProjectFixture: fx, cfg: config.DefaultConfig()}
}

func (p *project) engine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(context.Background(), Options{Root: p.Root, Config: p.cfg})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func (p *project) record(t *testing.T, e *Engine, name string, tags []string, covered ...string) {
	t.Helper()
	require.NoError(t, e.Record(collector.TestFact{TestName: name, Tags: tags, CoveredUnits: covered}))
}

func decide(t *testing.T, e *Engine, name string) predict.Prediction {
	t.Helper()
	result, err := e.PredictAll(context.Background(), []string{name}, predict.Metadata{})
	require.NoError(t, err)
	require.Len(t, result.Predictions, 1)
	return result.Predictions[0]
}

var (
	passed = []string{"PASSED"}
	failed = []string{"FAILED"}
)

func TestEngine_NoAnalysisExecutesEverything(t *testing.T) {
	e := newProject(t).engine(t)

	tia, status := e.Load(context.Background())
	assert.False(t, tia.Available())
	assert.False(t, status.Verified)

	assert.Equal(t, predict.AnalysisNotFound, decide(t, e, "com.example.FooTest").Reason)
}

func TestEngine_RecordFinishPredict(t *testing.T) {
	p := newProject(t)
	e := p.engine(t)
	ctx := context.Background()

	p.record(t, e, "com.example.FooTest", passed, "com.example.Foo", "com.example.FooTest")
	p.record(t, e, "com.example.BarTest", failed, "com.example.Bar")

	result, err := e.Finish(ctx)
	require.NoError(t, err)
	assert.Empty(t, result.PreviousID)
	assert.Equal(t, 2, result.Recorded)
	assert.Equal(t, 2, result.Tests)
	assert.Equal(t, 4, result.Units)
	assert.Len(t, result.ID, 32)

	tia, status := e.Load(ctx)
	require.True(t, tia.Available())
	assert.True(t, status.Verified)
	assert.Equal(t, result.ID, tia.ID())

	facts, err := collector.ReadFacts(p.Path(".tia/facts"))
	require.NoError(t, err)
	assert.Empty(t, facts, "consumed facts are cleared")

	assert.Equal(t, predict.Skip, decide(t, e, "com.example.FooTest").Decision)
	assert.Equal(t, predict.TestFailedPreviously, decide(t, e, "com.example.BarTest").Reason)
	assert.Equal(t, predict.NoDataForTest, decide(t, e, "com.example.BazTest").Reason)

	p.WriteFile(t, mainFolder+"/com/example/Foo.class", []byte("foo v2"))
	got := decide(t, e, "com.example.FooTest")
	assert.Equal(t, predict.ChangeInCoveredUnit, got.Reason)
	assert.Equal(t, "com.example.Foo", got.Detail)

	p.Remove(t, testFolder+"/com/example/FooTest.class")
	assert.Equal(t, predict.TestUnitNotFound, decide(t, e, "com.example.FooTest").Reason)
}

func TestEngine_SecondBuildMergesOverBaseline(t *testing.T) {
	p := newProject(t)
	e := p.engine(t)
	ctx := context.Background()

	p.record(t, e, "com.example.FooTest", passed, "com.example.Foo")
	p.record(t, e, "com.example.BarTest", failed, "com.example.Bar")
	first, err := e.Finish(ctx)
	require.NoError(t, err)

	// Only BarTest ran again, and now passes.
	p.record(t, e, "com.example.BarTest", passed, "com.example.Bar")
	second, err := e.Finish(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.PreviousID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 1, second.Recorded)
	assert.Equal(t, 2, second.Tests, "FooTest passes through")
	assert.Equal(t, 1, second.Pruned.Analyses)

	assert.Equal(t, predict.Skip, decide(t, e, "com.example.BarTest").Decision)
	assert.Equal(t, predict.Skip, decide(t, e, "com.example.FooTest").Decision)

	entries, err := filepath.Glob(p.Path(".tia/store/analysis-*.tia"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "only the latest analysis is kept")
}

func TestEngine_NestedFailurePropagates(t *testing.T) {
	p := newProject(t)
	p.WriteFile(t, testFolder+"/com/example/SuiteTest.class", []byte("suite"))
	p.WriteFile(t, testFolder+"/com/example/SuiteTest$Inner.class", []byte("inner"))
	e := p.engine(t)

	p.record(t, e, "com.example.SuiteTest", passed, "com.example.SuiteTest")
	p.record(t, e, "com.example.SuiteTest$Inner", failed, "com.example.Foo")
	_, err := e.Finish(context.Background())
	require.NoError(t, err)

	got := decide(t, e, "com.example.SuiteTest")
	assert.Equal(t, predict.CoveredTestFailedPreviously, got.Reason)
	assert.Equal(t, "com.example.SuiteTest$Inner", got.Detail)

	// the enclosing test also picked up what the nested test covered
	tia, _ := e.Load(context.Background())
	suite := tia.TestsByName("com.example.SuiteTest")
	require.Len(t, suite, 1)
	fooID := tia.Registry().IDsByName("com.example.Foo")[0]
	assert.Contains(t, suite[0].CoveredUnitIDs, fooID)
}

func TestEngine_IgnoresFactsForUnknownTests(t *testing.T) {
	p := newProject(t)
	e := p.engine(t)

	p.record(t, e, "com.example.GhostTest", passed, "com.example.Foo")
	p.record(t, e, "com.example.FooTest", passed, "com.example.Foo", "com.example.Unknown")

	result, err := e.Finish(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"com.example.GhostTest"}, result.Ignored)
	assert.Equal(t, 1, result.Recorded)
}

func TestEngine_RecordRejectsBadTags(t *testing.T) {
	e := newProject(t).engine(t)

	for _, tags := range [][]string{nil, {"PASSED", "FAILED"}, {"FLAKY"}} {
		err := e.Record(collector.TestFact{TestName: "com.example.FooTest", Tags: tags})
		assert.True(t, tiaerrors.Is(err, tiaerrors.InvariantViolation), "%v", tags)
	}
}

func TestEngine_ExecutionData(t *testing.T) {
	p := newProject(t)
	p.cfg.Prediction.CaptureExecutionData = true
	p.cfg.Prediction.RequireExecutionData = true
	e := p.engine(t)
	ctx := context.Background()

	require.NoError(t, e.Record(collector.TestFact{
		TestName:     "com.example.FooTest",
		Tags:         passed,
		CoveredUnits: []string{"com.example.Foo"},
		RawCoverage:  []byte("raw coverage"),
	}))
	p.record(t, e, "com.example.BarTest", passed, "com.example.Bar")
	_, err := e.Finish(ctx)
	require.NoError(t, err)

	assert.Equal(t, predict.Skip, decide(t, e, "com.example.FooTest").Decision)
	assert.Equal(t, predict.MissingExecutionReference, decide(t, e, "com.example.BarTest").Reason)

	tia, _ := e.Load(ctx)
	foo := tia.TestsByName("com.example.FooTest")[0]
	raw, err := e.store.FindRawCoverage(ctx, foo.ExecutionRef)
	require.NoError(t, err)
	assert.Equal(t, []byte("raw coverage"), raw)
}

func TestEngine_LoadRejectsMismatchedRecord(t *testing.T) {
	p := newProject(t)
	e := p.engine(t)
	ctx := context.Background()

	p.record(t, e, "com.example.FooTest", passed, "com.example.Foo")
	result, err := e.Finish(ctx)
	require.NoError(t, err)

	// Another analysis body stored under the current id.
	record := p.Path(".tia/store/analysis-" + result.ID + ".tia")
	require.NoError(t, os.WriteFile(record, analysis.Encode(analysis.Empty()), 0o644))

	// a fresh engine, so nothing is served from the in-memory cache
	tia, status := p.engine(t).Load(ctx)
	assert.False(t, tia.Available())
	assert.False(t, status.Verified)
	assert.Equal(t, result.ID, status.Pointer)
	assert.NotEmpty(t, status.Problem)
}

func TestEngine_LoadDegradesMalformedRecord(t *testing.T) {
	p := newProject(t)
	e := p.engine(t)
	ctx := context.Background()

	p.record(t, e, "com.example.FooTest", passed, "com.example.Foo")
	result, err := e.Finish(ctx)
	require.NoError(t, err)

	record := p.Path(".tia/store/analysis-" + result.ID + ".tia")
	require.NoError(t, os.WriteFile(record, []byte(`{"classes": {"0": `), 0o644))

	fresh := p.engine(t)
	tia, status := fresh.Load(ctx)
	assert.False(t, tia.Available())
	assert.Contains(t, status.Problem, string(tiaerrors.MalformedRecord))
	assert.Equal(t, predict.AnalysisNotFound, decide(t, fresh, "com.example.FooTest").Reason)
}

// failingBackend fails analysis reads while failReads is set.
type failingBackend struct {
	storage.Backend
	failReads bool
}

func (b *failingBackend) Get(ctx context.Context, kind storage.Kind, key string) ([]byte, error) {
	if b.failReads && kind == storage.KindAnalysis {
		return nil, errors.New("connection reset")
	}
	return b.Backend.Get(ctx, kind, key)
}

func TestEngine_FinishKeepsBaselineWhenStorageFails(t *testing.T) {
	p := newProject(t)
	ctx := context.Background()

	folder, err := storage.Backends["folder"](ctx, storage.Options{Dir: p.Path(".tia/store")})
	require.NoError(t, err)
	backend := &failingBackend{Backend: folder}
	store, err := storage.NewStore(backend, storage.Options{})
	require.NoError(t, err)
	e, err := New(ctx, Options{Root: p.Root, Config: p.cfg, Store: store})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	p.record(t, e, "com.example.FooTest", passed, "com.example.Foo")
	p.record(t, e, "com.example.BarTest", passed, "com.example.Bar")
	first, err := e.Finish(ctx)
	require.NoError(t, err)

	backend.failReads = true
	p.record(t, e, "com.example.BarTest", passed, "com.example.Bar")
	_, err = e.Finish(ctx)
	require.Error(t, err)
	assert.True(t, tiaerrors.Is(err, tiaerrors.StorageUnavailable))

	_, status := e.Load(ctx)
	assert.False(t, status.Verified)
	assert.True(t, tiaerrors.Is(status.Err, tiaerrors.StorageUnavailable))

	backend.failReads = false
	tia, status := e.Load(ctx)
	require.True(t, status.Verified)
	assert.Equal(t, first.ID, tia.ID())
	assert.Len(t, tia.Tests(), 2)
	assert.Equal(t, predict.Skip, decide(t, e, "com.example.FooTest").Decision)

	facts, err := collector.ReadFacts(p.Path(".tia/facts"))
	require.NoError(t, err)
	assert.Len(t, facts, 1, "unconsumed facts stay for the next finish")
}

func TestEngine_ModifiersFromConfig(t *testing.T) {
	p := newProject(t)
	p.cfg.Prediction.Modifiers = []config.ModifierConfig{{Name: "pattern", Values: []string{"*.Bar*"}}}
	e := p.engine(t)
	ctx := context.Background()

	p.record(t, e, "com.example.FooTest", passed, "com.example.Foo")
	p.record(t, e, "com.example.BarTest", passed, "com.example.Bar")
	_, err := e.Finish(ctx)
	require.NoError(t, err)

	result, err := e.PredictAll(ctx, []string{"com.example.FooTest", "com.example.BarTest"}, predict.Metadata{})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AnalysisID)
	assert.Equal(t, predict.Skip, result.Predictions[0].Decision)
	assert.Equal(t, predict.OverrideByModifier, result.Predictions[1].Reason)
	assert.Equal(t, 1, result.Stats.Skipped)
	assert.Equal(t, 1, result.Stats.Executed)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Backend = "floppy"

	_, err := New(context.Background(), Options{Root: t.TempDir(), Config: cfg})
	assert.True(t, tiaerrors.Is(err, tiaerrors.ConfigInvalid))
}
