package docsift

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/docsift/pkg/docsift/analysis"
	"github.com/cognicore/docsift/pkg/docsift/batch"
	"github.com/cognicore/docsift/pkg/docsift/format"
	"github.com/cognicore/docsift/pkg/docsift/internalerr"
	"github.com/cognicore/docsift/pkg/docsift/metrics"
	"github.com/cognicore/docsift/pkg/docsift/nlp/lexical"
	"github.com/cognicore/docsift/pkg/docsift/reader"
	"github.com/cognicore/docsift/pkg/docsift/store"
	"github.com/cognicore/docsift/pkg/docsift/store/memstore"
)

func newEngine(t *testing.T, st store.Store, rec batch.Recorder) *Engine {
	t.Helper()
	r, err := reader.New(reader.Options{})
	require.NoError(t, err)
	e, err := New(Options{
		Reader:   r,
		Pipeline: analysis.NewPipeline(analysis.DefaultOptions(lexical.New(lexical.Options{}))),
		Store:    st,
		Metrics:  rec,
	})
	require.NoError(t, err)
	return e
}

func TestNewRequiresReaderAndPipeline(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestDefaultOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("in", "a_processed.txt"), DefaultOutputPath(filepath.Join("in", "a.txt"), format.Summary))
	assert.Equal(t, filepath.Join("in", "a_processed.json"), DefaultOutputPath(filepath.Join("in", "a.csv"), format.JSON))
	assert.Equal(t, "notes_processed", DefaultOutputPath("notes", format.Text))
}

func TestProcessFileScenario(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "price.txt")
	require.NoError(t, os.WriteFile(in, []byte("Hello! Price is $1,234.56 on 2024-01-15."), 0o644))

	reg := prometheus.NewRegistry()
	rec, err := metrics.New(reg)
	require.NoError(t, err)

	e := newEngine(t, nil, rec)
	res, out, err := e.ProcessFile(context.Background(), in, "", format.JSON)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "price_processed.json"), out)
	assert.Equal(t, []float64{1234.56}, res.Numbers)
	assert.Equal(t, []string{"2024-01-15"}, res.Dates)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	parsed, err := format.ParseJSON(data)
	require.NoError(t, err)
	assert.Equal(t, res.Numbers, parsed.Numbers)

	n, err := testutil.GatherAndCount(reg, "docsift_files_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestProcessFileExplicitOutput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(in, []byte("The cat sat on the mat."), 0o644))
	out := filepath.Join(dir, "nested", "result.txt")

	_, written, err := newEngine(t, nil, nil).ProcessFile(context.Background(), in, out, format.Text)
	require.NoError(t, err)
	assert.Equal(t, out, written)

	body, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "cat sat mat", string(body))
}

func TestProcessFileTypedErrors(t *testing.T) {
	dir := t.TempDir()
	e := newEngine(t, nil, nil)
	ctx := context.Background()

	_, _, err := e.ProcessFile(ctx, filepath.Join(dir, "missing.txt"), "", format.Summary)
	assert.ErrorIs(t, err, internalerr.ErrNotFound)

	docx := filepath.Join(dir, "a.docx")
	require.NoError(t, os.WriteFile(docx, []byte("x"), 0o644))
	_, _, err = e.ProcessFile(ctx, docx, "", format.Summary)
	assert.Equal(t, internalerr.KindUnsupportedFormat, internalerr.KindOf(err))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"a":`), 0o644))
	_, _, err = e.ProcessFile(ctx, bad, "", format.Summary)
	assert.Equal(t, internalerr.KindMalformedContent, internalerr.KindOf(err))

	good := filepath.Join(dir, "good.txt")
	require.NoError(t, os.WriteFile(good, []byte("fine"), 0o644))
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	_, _, err = e.ProcessFile(ctx, good, filepath.Join(blocker, "out.txt"), format.Summary)
	assert.Equal(t, internalerr.KindWriteError, internalerr.KindOf(err))
}

func TestRunBatchRecordsRun(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.WriteFile(filepath.Join(in, "a.txt"), []byte("Sales rose 12% in 2023."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(in, "b.json"), []byte(`{"x": `), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(in, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(in, "sub", "c.csv"), []byte("k,v\nq,1\n"), 0o644))

	st := memstore.New()
	e := newEngine(t, st, nil)
	defer e.Close()

	ctx := context.Background()
	sum, err := e.RunBatch(ctx, batch.Job{InputRoot: in, OutputRoot: out, OutputFormat: format.JSON, Concurrency: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 2, sum.Succeeded)
	assert.Equal(t, 1, sum.Failed)
	assert.FileExists(t, filepath.Join(out, "sub", "c.processed.csv"))

	run, ok, err := e.Run(ctx, sum.RunID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "json", run.Format)
	assert.Equal(t, in, run.InputRoot)
	assert.Len(t, run.Outcomes, 3)

	counts, err := st.FailureCounts(ctx, sum.RunID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"MalformedContent": 1}, counts)

	runs, err := e.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, sum.RunID, runs[0].ID)
}

type failingStore struct{ store.Store }

func (failingStore) RecordRun(context.Context, store.Run) error { return errors.New("disk full") }

func TestRunBatchStoreFailure(t *testing.T) {
	in := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(in, "a.txt"), []byte("hi"), 0o644))

	e := newEngine(t, failingStore{memstore.New()}, nil)
	sum, err := e.RunBatch(context.Background(), batch.Job{InputRoot: in, OutputRoot: filepath.Join(t.TempDir(), "o")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	require.NotNil(t, sum, "summary survives a store failure")
	assert.Equal(t, 1, sum.Succeeded)
}

func TestRunBatchJobError(t *testing.T) {
	e := newEngine(t, memstore.New(), nil)
	sum, err := e.RunBatch(context.Background(), batch.Job{InputRoot: filepath.Join(t.TempDir(), "nope"), OutputRoot: t.TempDir()})
	assert.Nil(t, sum)
	assert.ErrorIs(t, err, internalerr.ErrNotFound)

	runs, err := e.Runs(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestNoStore(t *testing.T) {
	e := newEngine(t, nil, nil)
	runs, err := e.Runs(context.Background(), 5)
	assert.NoError(t, err)
	assert.Nil(t, runs)
	_, ok, err := e.Run(context.Background(), "x")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, e.Close())
}

func TestRunRecord(t *testing.T) {
	started := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sum := &batch.Summary{
		RunID: "01ARZ3NDEKTSV4RRFFQ69G5FAV", Total: 2, Succeeded: 1, Failed: 1,
		StartedAt: started, FinishedAt: started.Add(time.Second),
		Outcomes: []batch.Outcome{
			{Path: "a.txt", Format: reader.FormatText, OK: true, Output: "o/a.processed.txt"},
			{Path: "b.pdf", Format: reader.FormatPDF, Kind: internalerr.KindMalformedContent, Error: "bad xref"},
		},
	}
	r := RunRecord(batch.Job{InputRoot: "in", OutputRoot: "o"}, sum)
	assert.Equal(t, "summary", r.Format)
	assert.Equal(t, "pdf", r.Outcomes[1].Format)
	assert.Equal(t, "MalformedContent", r.Outcomes[1].Kind)
	assert.True(t, r.FinishedAt.Equal(started.Add(time.Second)))
}
