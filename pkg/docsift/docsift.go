// Package docsift wires the reader, analysis pipeline, formatter and
// batch scheduler into a single Engine.
package docsift

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/docsift/pkg/docsift/analysis"
	"github.com/cognicore/docsift/pkg/docsift/batch"
	"github.com/cognicore/docsift/pkg/docsift/format"
	"github.com/cognicore/docsift/pkg/docsift/internalerr"
	"github.com/cognicore/docsift/pkg/docsift/store"
)

// Engine is the main document processing facade
type Engine struct {
	reader   batch.DocumentReader
	pipeline batch.Processor
	store    store.Store
	metrics  batch.Recorder
	logger   *zap.Logger
	sched    *batch.Scheduler
}

// Options configures an Engine. Reader and Pipeline are required; the
// rest are optional.
type Options struct {
	Reader   batch.DocumentReader
	Pipeline batch.Processor
	Store    store.Store
	Metrics  batch.Recorder
	Observer batch.Observer
	Logger   *zap.Logger
}

// New creates an Engine with the given dependencies
func New(opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sched, err := batch.New(batch.Options{
		Reader:    opts.Reader,
		Processor: opts.Pipeline,
		Observer:  opts.Observer,
		Recorder:  opts.Metrics,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	return &Engine{
		reader:   opts.Reader,
		pipeline: opts.Pipeline,
		store:    opts.Store,
		metrics:  opts.Metrics,
		logger:   logger,
		sched:    sched,
	}, nil
}

// Close releases the run store, if any.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// DefaultOutputPath is where single-file mode writes when no output path
// is given: beside the input, named <stem>_processed<ext>.
func DefaultOutputPath(in string, f format.Format) string {
	ext := filepath.Ext(in)
	return strings.TrimSuffix(in, ext) + "_processed" + format.Ext(f, ext)
}

// ProcessFile reads, analyzes and formats one file, writing the result
// to out (or DefaultOutputPath when out is empty). It returns the result
// and the path written. Read and write failures are returned as typed
// *internalerr.Error values.
func (e *Engine) ProcessFile(ctx context.Context, in, out string, f format.Format) (*analysis.Result, string, error) {
	if f == "" {
		f = format.Summary
	}
	if out == "" {
		out = DefaultOutputPath(in, f)
	}
	start := time.Now()
	res, docFormat, err := e.processFile(ctx, in, out, f)
	if e.metrics != nil {
		e.metrics.FileProcessed(docFormat, string(internalerr.KindOf(err)), err == nil, time.Since(start))
	}
	if err != nil {
		e.logger.Warn("file failed", zap.String("path", in), zap.Error(err))
		return nil, "", err
	}
	e.logger.Info("file processed",
		zap.String("path", in),
		zap.String("output", out),
		zap.String("language", string(res.Language)),
		zap.Int("stage_errors", len(res.Errors)))
	return res, out, nil
}

func (e *Engine) processFile(ctx context.Context, in, out string, f format.Format) (*analysis.Result, string, error) {
	docFormat, err := e.reader.Check(in)
	if err != nil {
		return nil, "", err
	}
	doc, err := e.reader.Read(ctx, in)
	if err != nil {
		return nil, string(docFormat), err
	}

	res := e.pipeline.Process(doc.Text)
	body, err := format.Render(f, res)
	if err != nil {
		return nil, string(docFormat), internalerr.New(internalerr.KindAnalysisError, in, err)
	}
	if dir := filepath.Dir(out); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, string(docFormat), internalerr.New(internalerr.KindWriteError, out, err)
		}
	}
	if err := os.WriteFile(out, []byte(body), 0o644); err != nil {
		return nil, string(docFormat), internalerr.New(internalerr.KindWriteError, out, err)
	}
	return res, string(docFormat), nil
}

// RunBatch processes job and, when a store is configured, records the
// run. A store failure is returned alongside the summary.
func (e *Engine) RunBatch(ctx context.Context, job batch.Job) (*batch.Summary, error) {
	sum, err := e.sched.Run(ctx, job)
	if sum == nil || e.store == nil {
		return sum, err
	}
	// Record even when the report write failed; the run itself completed.
	if recErr := e.store.RecordRun(context.WithoutCancel(ctx), RunRecord(job, sum)); recErr != nil {
		recErr = fmt.Errorf("record run %s: %w", sum.RunID, recErr)
		return sum, errors.Join(err, recErr)
	}
	e.logger.Debug("run recorded", zap.String("run_id", sum.RunID))
	return sum, err
}

// Runs lists recorded runs, newest first.
func (e *Engine) Runs(ctx context.Context, limit int) ([]store.Run, error) {
	if e.store == nil {
		return nil, nil
	}
	return e.store.ListRuns(ctx, limit)
}

// Run fetches one recorded run with its outcomes.
func (e *Engine) Run(ctx context.Context, id string) (store.Run, bool, error) {
	if e.store == nil {
		return store.Run{}, false, nil
	}
	return e.store.GetRun(ctx, id)
}

// RunRecord converts a finished batch into its stored form.
func RunRecord(job batch.Job, sum *batch.Summary) store.Run {
	jobFormat := job.OutputFormat
	if jobFormat == "" {
		jobFormat = format.Summary
	}
	r := store.Run{
		ID:         sum.RunID,
		InputRoot:  job.InputRoot,
		OutputRoot: job.OutputRoot,
		Format:     string(jobFormat),
		StartedAt:  sum.StartedAt,
		FinishedAt: sum.FinishedAt,
		Total:      sum.Total,
		Succeeded:  sum.Succeeded,
		Failed:     sum.Failed,
		Canceled:   sum.Canceled,
		Outcomes:   make([]store.Outcome, len(sum.Outcomes)),
	}
	for i, o := range sum.Outcomes {
		r.Outcomes[i] = store.Outcome{
			Path:     o.Path,
			Format:   string(o.Format),
			OK:       o.OK,
			Kind:     string(o.Kind),
			Error:    o.Error,
			Output:   o.Output,
			Duration: o.Duration,
		}
	}
	return r
}
