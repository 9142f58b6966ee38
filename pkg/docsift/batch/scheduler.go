// Package batch processes every supported file under a directory tree
// with a bounded worker pool. Per-file failures are recorded in the
// Summary and never stop the run.
package batch

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/docsift/pkg/docsift/analysis"
	"github.com/cognicore/docsift/pkg/docsift/format"
	"github.com/cognicore/docsift/pkg/docsift/internalerr"
	"github.com/cognicore/docsift/pkg/docsift/reader"
)

// Job describes one batch run.
type Job struct {
	InputRoot    string
	OutputRoot   string
	OutputFormat format.Format
	// Concurrency bounds parallel workers. Zero means GOMAXPROCS.
	Concurrency int
	// ReportPath, when set, receives a JSON report of the run.
	ReportPath string
}

// DocumentReader validates and decodes input files.
type DocumentReader interface {
	Check(path string) (reader.Format, error)
	Read(ctx context.Context, path string) (*reader.Document, error)
}

// Processor analyzes decoded text.
type Processor interface {
	Process(text string) *analysis.Result
}

// Recorder is notified of every outcome and every finished run.
type Recorder interface {
	FileProcessed(format string, kind string, ok bool, d time.Duration)
	RunFinished(total, failed int, d time.Duration)
}

// Options configures a Scheduler.
type Options struct {
	Reader    DocumentReader
	Processor Processor
	Observer  Observer
	Recorder  Recorder
	Logger    *zap.Logger
	Now       func() time.Time
}

// Scheduler runs batch jobs. It may run several jobs concurrently.
type Scheduler struct {
	reader    DocumentReader
	processor Processor
	observer  Observer
	recorder  Recorder
	logger    *zap.Logger
	now       func() time.Time

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// New creates a Scheduler. Reader and Processor are required.
func New(opts Options) (*Scheduler, error) {
	if opts.Reader == nil || opts.Processor == nil {
		return nil, errors.New("batch: reader and processor are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		reader:    opts.Reader,
		processor: opts.Processor,
		observer:  opts.Observer,
		recorder:  opts.Recorder,
		logger:    logger,
		now:       now,
		entropy:   ulid.Monotonic(rand.Reader, 0),
	}, nil
}

func (s *Scheduler) newRunID(at time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), s.entropy).String()
}

type task struct {
	path   string
	format reader.Format
}

// Run processes job. The error is non-nil only for job-level failures:
// an unusable input root, an output root that cannot be created, or a
// report that cannot be written. Per-file failures are in the Summary.
func (s *Scheduler) Run(ctx context.Context, job Job) (*Summary, error) {
	if job.OutputFormat == "" {
		job.OutputFormat = format.Summary
	}
	workers := job.Concurrency
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	tasks, err := s.enumerate(job)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(job.OutputRoot, 0o755); err != nil {
		return nil, internalerr.New(internalerr.KindWriteError, job.OutputRoot, err)
	}

	started := s.now()
	sum := newSummary(s.newRunID(started), started, len(tasks))
	log := s.logger.With(zap.String("run_id", sum.RunID))
	log.Info("batch started",
		zap.String("input", job.InputRoot),
		zap.String("output", job.OutputRoot),
		zap.Int("files", len(tasks)),
		zap.Int("workers", workers))

	pump := startProgress(s.observer)

	// slots bounds the pool. Acquiring one also watches ctx, so no file
	// is dispatched once cancellation is observed.
	slots := make(chan struct{}, workers)
	var g errgroup.Group
	for i, t := range tasks {
		if !acquire(ctx, slots) {
			err := context.Cause(ctx)
			sum.Canceled = true
			for _, rest := range tasks[i:] {
				s.recordOutcome(sum, pump, len(tasks), Outcome{
					Path:   rest.path,
					Format: rest.format,
					Kind:   internalerr.KindCanceled,
					Error:  err.Error(),
				}, log)
			}
			log.Warn("batch canceled", zap.Int("undispatched", len(tasks)-i))
			break
		}
		g.Go(func() error {
			defer func() { <-slots }()
			o := s.processOne(ctx, job, t, log)
			s.recordOutcome(sum, pump, len(tasks), o, log)
			return nil
		})
	}
	_ = g.Wait()
	pump.stop()

	sum.finish(s.now())
	if s.recorder != nil {
		s.recorder.RunFinished(sum.Total, sum.Failed, sum.Elapsed())
	}
	log.Info("batch finished",
		zap.Int("total", sum.Total),
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("failed", sum.Failed),
		zap.Duration("elapsed", sum.Elapsed()))

	if job.ReportPath != "" {
		if err := WriteReport(job.ReportPath, sum); err != nil {
			return sum, err
		}
	}
	return sum, nil
}

// acquire takes a worker slot, or reports false if ctx ends first.
func acquire(ctx context.Context, slots chan struct{}) bool {
	select {
	case <-ctx.Done():
		return false
	case slots <- struct{}{}:
	}
	if ctx.Err() != nil {
		<-slots
		return false
	}
	return true
}

// enumerate lists the files under the input root that pass the reader's
// pre-check, in lexical order. The output root is skipped if nested.
func (s *Scheduler) enumerate(job Job) ([]task, error) {
	info, err := os.Stat(job.InputRoot)
	if err != nil {
		return nil, internalerr.New(internalerr.KindNotFound, job.InputRoot, err)
	}
	if !info.IsDir() {
		return nil, internalerr.New(internalerr.KindNotAFile, job.InputRoot, errors.New("input root is not a directory"))
	}

	outAbs, _ := filepath.Abs(job.OutputRoot)
	var tasks []task
	err = filepath.WalkDir(job.InputRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == job.InputRoot {
				return err
			}
			s.logger.Debug("skipping unreadable entry", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if abs, _ := filepath.Abs(path); path != job.InputRoot && abs == outAbs {
				return fs.SkipDir
			}
			return nil
		}
		f, err := s.reader.Check(path)
		if err != nil {
			s.logger.Debug("skipping file", zap.String("path", path), zap.Error(err))
			return nil
		}
		tasks = append(tasks, task{path: path, format: f})
		return nil
	})
	if err != nil {
		return nil, internalerr.New(internalerr.KindNotFound, job.InputRoot, err)
	}
	return tasks, nil
}

func (s *Scheduler) processOne(ctx context.Context, job Job, t task, log *zap.Logger) (o Outcome) {
	start := s.now()
	o = Outcome{Path: t.path, Format: t.format}
	defer func() {
		if p := recover(); p != nil {
			log.Error("worker panicked", zap.String("path", t.path), zap.Any("panic", p))
			o.OK, o.Output = false, ""
			o.Kind = internalerr.KindAnalysisError
			o.Error = fmt.Sprintf("panic: %v", p)
		}
		o.Duration = s.now().Sub(start)
	}()

	fail := func(err error) Outcome {
		o.Kind = internalerr.KindOf(err)
		o.Error = err.Error()
		return o
	}

	// Dispatched files run to completion even if the run is canceled.
	doc, err := s.reader.Read(context.WithoutCancel(ctx), t.path)
	if err != nil {
		return fail(err)
	}

	res := s.processor.Process(doc.Text)
	body, err := format.Render(job.OutputFormat, res)
	if err != nil {
		return fail(internalerr.New(internalerr.KindAnalysisError, t.path, err))
	}

	out, err := OutputPath(job.InputRoot, job.OutputRoot, t.path)
	if err != nil {
		return fail(internalerr.New(internalerr.KindWriteError, t.path, err))
	}
	if err := writeOutput(out, body); err != nil {
		return fail(internalerr.New(internalerr.KindWriteError, out, err))
	}

	o.OK = true
	o.Output = out
	log.Debug("file processed",
		zap.String("path", t.path),
		zap.String("output", out),
		zap.Int("stage_errors", len(res.Errors)))
	return o
}

func (s *Scheduler) recordOutcome(sum *Summary, pump *progressPump, total int, o Outcome, log *zap.Logger) {
	if err := sum.record(o); err != nil {
		log.Error("outcome rejected", zap.Error(err))
		return
	}
	if !o.OK {
		log.Warn("file failed",
			zap.String("path", o.Path),
			zap.String("kind", string(o.Kind)),
			zap.String("error", o.Error))
	}
	if s.recorder != nil {
		s.recorder.FileProcessed(string(o.Format), string(o.Kind), o.OK, o.Duration)
	}
	done := sum.done()
	pump.send(Progress{
		Done:     done,
		Total:    total,
		Path:     o.Path,
		Fraction: float64(done) / float64(total),
	})
}

// OutputPath mirrors path from inputRoot into outputRoot, inserting
// ".processed" before the extension.
func OutputPath(inputRoot, outputRoot, path string) (string, error) {
	rel, err := filepath.Rel(inputRoot, path)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", path, inputRoot)
	}
	ext := filepath.Ext(rel)
	return filepath.Join(outputRoot, strings.TrimSuffix(rel, ext)+".processed"+ext), nil
}

func writeOutput(path, body string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(body), 0o644)
}
