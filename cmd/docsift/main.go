package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/docsift/internal/logging"
	"github.com/cognicore/docsift/pkg/docsift"
	"github.com/cognicore/docsift/pkg/docsift/analysis"
	"github.com/cognicore/docsift/pkg/docsift/batch"
	"github.com/cognicore/docsift/pkg/docsift/config"
	"github.com/cognicore/docsift/pkg/docsift/format"
	"github.com/cognicore/docsift/pkg/docsift/metrics"
	"github.com/cognicore/docsift/pkg/docsift/reader"
	"github.com/cognicore/docsift/pkg/docsift/store"
	"github.com/cognicore/docsift/pkg/docsift/store/memstore"
	"github.com/cognicore/docsift/pkg/docsift/store/sqlite"
)

const version = "docsift 2.0"

// Exit codes.
const (
	exitOK      = 0
	exitFailed  = 1
	exitUsage   = 2
	exitPartial = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	configPath string
	envFile    string
	format     string
	workers    int
	report     string
	dbPath     string
	verbose    bool
	showConfig bool
	listRuns   int
	showRun    string
	version    bool
	input      string
	output     string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("docsift", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "Path to config YAML")
	fs.StringVar(&o.envFile, "env", ".env", "Dotenv file with DOCSIFT_* overrides")
	fs.StringVar(&o.format, "format", "", "Output format: summary, json or text")
	fs.IntVar(&o.workers, "workers", 0, "Batch worker count (default from config)")
	fs.StringVar(&o.report, "report", "", "Write a JSON batch report to this path")
	fs.StringVar(&o.dbPath, "db", "", "SQLite run ledger path (default from config)")
	fs.BoolVar(&o.verbose, "verbose", false, "Enable debug logging")
	fs.BoolVar(&o.showConfig, "show-config", false, "Print the effective configuration and exit")
	fs.IntVar(&o.listRuns, "runs", 0, "List the N most recent recorded runs and exit")
	fs.StringVar(&o.showRun, "run", "", "Show one recorded run and exit")
	fs.BoolVar(&o.version, "version", false, "Print version and exit")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: docsift [flags] <input> [output]")
		fmt.Fprintln(stderr, "  <input> is a file (single-file mode) or a directory (batch mode).")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	rest := fs.Args()
	if len(rest) > 2 {
		return o, errors.New("too many arguments")
	}
	if len(rest) > 0 {
		o.input = rest[0]
	}
	if len(rest) > 1 {
		o.output = rest[1]
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, "docsift:", err)
		return exitUsage
	}
	if opts.version {
		fmt.Fprintln(stdout, version)
		return exitOK
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintln(stderr, "docsift:", err)
		return exitUsage
	}

	if opts.showConfig {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(stderr, "docsift:", err)
			return exitFailed
		}
		stdout.Write(out)
		return exitOK
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		fmt.Fprintln(stderr, "docsift:", err)
		return exitUsage
	}
	defer logging.Sync(logger)

	engine, reg, cleanup, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return exitFailed
	}
	defer cleanup()

	switch {
	case opts.listRuns > 0:
		return listRuns(ctx, engine, opts.listRuns, stdout, stderr)
	case opts.showRun != "":
		return showRun(ctx, engine, opts.showRun, stdout, stderr)
	case opts.input == "":
		fmt.Fprintln(stderr, "docsift: input path required")
		return exitUsage
	}

	code := process(ctx, engine, cfg, opts, stdout, stderr)

	if cfg.Metrics.Textfile != "" {
		if err := prometheus.WriteToTextfile(cfg.Metrics.Textfile, reg); err != nil {
			logger.Warn("write metrics", zap.String("path", cfg.Metrics.Textfile), zap.Error(err))
		}
	}
	return code
}

// loadConfig layers file, environment and flags, in that order.
func loadConfig(opts options) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(opts.envFile); err != nil {
		return cfg, err
	}
	if opts.format != "" {
		cfg.Output.Format = opts.format
	}
	if opts.workers > 0 {
		cfg.Processing.MaxWorkers = opts.workers
	}
	if opts.dbPath != "" {
		cfg.Store.Path = opts.dbPath
	}
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, cfg.Validate()
}

func buildEngine(ctx context.Context, cfg config.Config, logger *zap.Logger) (*docsift.Engine, *prometheus.Registry, func(), error) {
	readerOpts := cfg.ReaderOptions()
	readerOpts.Logger = logger.Named("reader")
	r, err := reader.New(readerOpts)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build reader: %w", err)
	}

	loader := cfg.Loader()
	analyzer, err := loader.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load resources: %w", err)
	}

	pipeOpts := analysis.DefaultOptions(analyzer)
	pipeOpts.DetectLanguage = cfg.NLP.DetectLanguage
	pipeOpts.Sentiment = cfg.NLP.SentimentAnalysis
	pipeOpts.Entities = cfg.NLP.Entities
	pipeOpts.SampleSize = cfg.NLP.SampleSize
	pipeOpts.Logger = logger.Named("analysis")

	var st store.Store = memstore.New()
	if cfg.Store.Path != "" {
		st, err = sqlite.OpenSQLite(ctx, cfg.Store.Path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open store: %w", err)
		}
	}

	reg := prometheus.NewRegistry()
	rec, err := metrics.New(reg)
	if err != nil {
		st.Close()
		return nil, nil, nil, fmt.Errorf("register metrics: %w", err)
	}

	engine, err := docsift.New(docsift.Options{
		Reader:   r,
		Pipeline: analysis.NewPipeline(pipeOpts),
		Store:    st,
		Metrics:  rec,
		Logger:   logger,
	})
	if err != nil {
		st.Close()
		return nil, nil, nil, err
	}

	cleanup := func() {
		if err := engine.Close(); err != nil {
			logger.Warn("close store", zap.Error(err))
		}
	}
	return engine, reg, cleanup, nil
}

func process(ctx context.Context, engine *docsift.Engine, cfg config.Config, opts options, stdout, stderr io.Writer) int {
	outFormat, _ := format.ParseFormat(cfg.Output.Format)

	info, err := os.Stat(opts.input)
	if err != nil {
		fmt.Fprintln(stderr, "docsift:", err)
		return exitFailed
	}

	if !info.IsDir() {
		res, out, err := engine.ProcessFile(ctx, opts.input, opts.output, outFormat)
		if err != nil {
			fmt.Fprintln(stderr, "docsift:", err)
			return exitFailed
		}
		fmt.Fprintln(stdout, format.SummaryText(res))
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "Output:", out)
		return exitOK
	}

	output := opts.output
	if output == "" {
		output = filepath.Clean(opts.input) + "_processed"
	}
	sum, err := engine.RunBatch(ctx, batch.Job{
		InputRoot:    opts.input,
		OutputRoot:   output,
		OutputFormat: outFormat,
		Concurrency:  cfg.Processing.MaxWorkers,
		ReportPath:   opts.report,
	})
	if sum != nil {
		fmt.Fprintln(stdout, sum.Text())
	}
	if err != nil {
		fmt.Fprintln(stderr, "docsift:", err)
		return exitFailed
	}
	if sum.Failed > 0 || sum.Canceled {
		return exitPartial
	}
	return exitOK
}

func listRuns(ctx context.Context, engine *docsift.Engine, limit int, stdout, stderr io.Writer) int {
	runs, err := engine.Runs(ctx, limit)
	if err != nil {
		fmt.Fprintln(stderr, "docsift:", err)
		return exitFailed
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "No runs recorded.")
		return exitOK
	}
	for _, r := range runs {
		fmt.Fprintf(stdout, "%s  %s  %d/%d ok  %s -> %s\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Succeeded, r.Total, r.InputRoot, r.OutputRoot)
	}
	return exitOK
}

func showRun(ctx context.Context, engine *docsift.Engine, id string, stdout, stderr io.Writer) int {
	r, ok, err := engine.Run(ctx, id)
	if err != nil {
		fmt.Fprintln(stderr, "docsift:", err)
		return exitFailed
	}
	if !ok {
		fmt.Fprintf(stderr, "docsift: run %s not found\n", id)
		return exitFailed
	}
	fmt.Fprintf(stdout, "Run: %s\nInput: %s\nOutput: %s\nFiles: %d  Succeeded: %d  Failed: %d\n",
		r.ID, r.InputRoot, r.OutputRoot, r.Total, r.Succeeded, r.Failed)
	for _, o := range r.Outcomes {
		if o.OK {
			fmt.Fprintf(stdout, "  ok    %s -> %s\n", o.Path, o.Output)
			continue
		}
		fmt.Fprintf(stdout, "  fail  %s [%s] %s\n", o.Path, o.Kind, o.Error)
	}
	return exitOK
}
