// Package config holds docsift's typed settings and the loaders for the
// word-list resources the lexical analyzer is built from.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/docsift/pkg/docsift/analysis"
	"github.com/cognicore/docsift/pkg/docsift/format"
	"github.com/cognicore/docsift/pkg/docsift/internalerr"
	"github.com/cognicore/docsift/pkg/docsift/reader"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DOCSIFT_"

// Config is the full runtime configuration.
type Config struct {
	Processing Processing `yaml:"processing"`
	NLP        NLP        `yaml:"nlp"`
	Output     Output     `yaml:"output"`
	Logging    Logging    `yaml:"logging"`
	Store      Store      `yaml:"store"`
	Metrics    Metrics    `yaml:"metrics"`
	Resources  Resources  `yaml:"resources"`
}

// Processing controls ingestion and the worker pool. MaxWorkers of zero
// uses one worker per available CPU (GOMAXPROCS).
type Processing struct {
	MaxFileSizeMB     int64    `yaml:"max_file_size_mb"`
	MaxWorkers        int      `yaml:"max_workers"`
	FallbackEncodings []string `yaml:"fallback_encodings"`
	PDFExtractor      string   `yaml:"pdf_extractor"`
}

// NLP toggles analysis stages.
type NLP struct {
	DetectLanguage    bool   `yaml:"detect_language"`
	SentimentAnalysis bool   `yaml:"sentiment_analysis"`
	Entities          bool   `yaml:"entities"`
	SampleSize        int    `yaml:"sample_size"`
	FallbackLanguage  string `yaml:"fallback_language"`
}

type Output struct {
	Format string `yaml:"format"`
}

type Logging struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Store selects the run ledger. An empty Path keeps runs in memory.
type Store struct {
	Path string `yaml:"path"`
}

// Metrics writes Prometheus text exposition after each command when
// Textfile is set.
type Metrics struct {
	Textfile string `yaml:"textfile"`
}

// Resources points at word-list files. Stoplists and Lexicons are keyed
// by language code.
type Resources struct {
	Stoplists map[string]string `yaml:"stoplists"`
	Lexicons  map[string]string `yaml:"lexicons"`
	Valence   string            `yaml:"valence"`
	Gazetteer string            `yaml:"gazetteer"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Processing: Processing{
			MaxFileSizeMB:     reader.DefaultMaxFileSize >> 20,
			MaxWorkers:        0,
			FallbackEncodings: append([]string(nil), reader.DefaultFallbackEncodings...),
			PDFExtractor:      string(reader.PDFNative),
		},
		NLP: NLP{
			DetectLanguage:    true,
			SentimentAnalysis: true,
			Entities:          true,
			SampleSize:        analysis.DefaultSampleSize,
			FallbackLanguage:  "en",
		},
		Output:  Output{Format: string(format.Summary)},
		Logging: Logging{Level: "info"},
	}
}

// Load reads a YAML file over the defaults. Keys absent from the file
// keep their default values. An empty path returns Default().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv loads envFile (when it exists) into the process environment
// and then applies DOCSIFT_* overrides.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	return c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(EnvPrefix + key)
		return strings.TrimSpace(v), ok
	}

	if v, ok := get("MAX_FILE_SIZE_MB"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return envError("MAX_FILE_SIZE_MB", v, err)
		}
		c.Processing.MaxFileSizeMB = n
	}
	if v, ok := get("MAX_WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return envError("MAX_WORKERS", v, err)
		}
		c.Processing.MaxWorkers = n
	}
	if v, ok := get("FALLBACK_ENCODINGS"); ok {
		c.Processing.FallbackEncodings = splitList(v)
	}
	if v, ok := get("PDF_EXTRACTOR"); ok {
		c.Processing.PDFExtractor = v
	}
	for key, dst := range map[string]*bool{
		"DETECT_LANGUAGE":    &c.NLP.DetectLanguage,
		"SENTIMENT_ANALYSIS": &c.NLP.SentimentAnalysis,
		"ENTITIES":           &c.NLP.Entities,
		"LOG_DEVELOPMENT":    &c.Logging.Development,
	} {
		if v, ok := get(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return envError(key, v, err)
			}
			*dst = b
		}
	}
	if v, ok := get("OUTPUT_FORMAT"); ok {
		c.Output.Format = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.Logging.Level = v
	}
	if v, ok := get("STORE_PATH"); ok {
		c.Store.Path = v
	}
	if v, ok := get("METRICS_TEXTFILE"); ok {
		c.Metrics.Textfile = v
	}
	return nil
}

func envError(key, value string, err error) error {
	return fmt.Errorf("%w: %s%s=%q: %v", internalerr.ErrInvalidConfig, EnvPrefix, key, value, err)
}

func splitList(v string) []string {
	out := []string{}
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	invalid := func(msg string, args ...any) error {
		return fmt.Errorf("%w: %s", internalerr.ErrInvalidConfig, fmt.Sprintf(msg, args...))
	}
	if c.Processing.MaxFileSizeMB <= 0 {
		return invalid("max_file_size_mb must be positive, got %d", c.Processing.MaxFileSizeMB)
	}
	if c.Processing.MaxWorkers < 0 {
		return invalid("max_workers must not be negative, got %d", c.Processing.MaxWorkers)
	}
	for _, label := range c.Processing.FallbackEncodings {
		if _, err := reader.LookupEncoding(label); err != nil {
			return invalid("fallback encoding %q: %v", label, err)
		}
	}
	switch reader.PDFExtractor(c.Processing.PDFExtractor) {
	case "", reader.PDFNative, reader.PDFDocconv:
	default:
		return invalid("pdf_extractor %q (want native or docconv)", c.Processing.PDFExtractor)
	}
	if c.NLP.SampleSize < 0 {
		return invalid("sample_size must not be negative")
	}
	if _, err := format.ParseFormat(c.Output.Format); err != nil {
		return invalid("%v", err)
	}
	return nil
}

// ReaderOptions maps processing settings onto reader.Options.
func (c Config) ReaderOptions() reader.Options {
	return reader.Options{
		MaxFileSize:       c.Processing.MaxFileSizeMB << 20,
		FallbackEncodings: c.Processing.FallbackEncodings,
		PDF:               reader.PDFExtractor(c.Processing.PDFExtractor),
	}
}

// Loader returns a resource loader for the configured word lists.
func (c Config) Loader() Loader {
	return Loader{
		StoplistPaths:    c.Resources.Stoplists,
		LexiconPaths:     c.Resources.Lexicons,
		ValencePath:      c.Resources.Valence,
		GazetteerPath:    c.Resources.Gazetteer,
		DisableSentiment: !c.NLP.SentimentAnalysis,
		Fallback:         c.NLP.FallbackLanguage,
	}
}
