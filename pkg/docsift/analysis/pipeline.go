// Package analysis turns decoded document text into a Result:
// language → normalization → tokenization → numbers → dates →
// sentiment → entities → statistics.
package analysis

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/cognicore/docsift/pkg/docsift/nlp"
)

// DefaultSampleSize is how many runes language detection looks at.
const DefaultSampleSize = 200

// Options configures a Pipeline.
type Options struct {
	// Analyzer may be nil; every stage that needs it then contributes
	// nothing and tokenization passes text through.
	Analyzer       nlp.TextAnalyzer
	DetectLanguage bool
	Sentiment      bool
	Entities       bool
	SampleSize     int
	Logger         *zap.Logger
	// Now stamps results. Defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions enables every stage.
func DefaultOptions(analyzer nlp.TextAnalyzer) Options {
	return Options{
		Analyzer:       analyzer,
		DetectLanguage: true,
		Sentiment:      true,
		Entities:       true,
		SampleSize:     DefaultSampleSize,
	}
}

// Pipeline orchestrates analysis of one text. It holds no per-call
// state and may be shared across goroutines.
type Pipeline struct {
	opts   Options
	logger *zap.Logger
}

// NewPipeline creates a pipeline.
func NewPipeline(opts Options) *Pipeline {
	if opts.SampleSize <= 0 {
		opts.SampleSize = DefaultSampleSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{opts: opts, logger: logger}
}

// Process analyzes text. It never fails: stage faults are recorded in
// Result.Errors and the stage contributes nothing.
func (p *Pipeline) Process(text string) *Result {
	res := newResult(text, p.opts.Now())

	// 1. Empty input short-circuit
	if strings.TrimSpace(text) == "" {
		res.Errors = append(res.Errors, EmptyInputError)
		res.Statistics = computeStatistics(text, res)
		res.Statistics.WordCount = 0
		res.Statistics.SentenceCount = 0
		return res
	}

	// 2. Language identification
	res.Language = nlp.Default
	p.stage(res, "language", func() error {
		res.Language = p.detectLanguage(text)
		return nil
	})

	// 3. Normalization
	normalized := text
	p.stage(res, "normalize", func() error {
		normalized = normalizeWhitespace(text)
		return nil
	})

	// 4. Tokenization and stopword filtering
	res.ProcessedText = normalized
	p.stage(res, "tokenize", func() error {
		processed, err := p.tokenize(normalized, res.Language)
		if err != nil {
			return err
		}
		res.ProcessedText = processed
		return nil
	})

	// 5. Numbers, over the original text
	p.stage(res, "numbers", func() error {
		res.Numbers = extractNumbers(text)
		return nil
	})

	// 6. Dates, over the original text
	p.stage(res, "dates", func() error {
		res.Dates = extractDates(text)
		return nil
	})

	// 7. Sentiment, over the normalized text
	if p.opts.Sentiment {
		p.stage(res, "sentiment", func() error {
			s, err := p.sentiment(normalized)
			if err != nil {
				return err
			}
			res.Sentiment = s
			return nil
		})
	}

	// 8. Entities, over the original text so spans index into it
	if p.opts.Entities {
		p.stage(res, "entities", func() error {
			ents, err := p.entities(text, res.Language)
			if err != nil {
				return err
			}
			res.Entities = ents
			return nil
		})
	}

	// 9. Statistics
	p.stage(res, "statistics", func() error {
		res.Statistics = computeStatistics(text, res)
		return nil
	})

	return res
}

// stage runs fn, converting returned errors and panics into entries in
// res.Errors.
func (p *Pipeline) stage(res *Result, name string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("%s: panic: %v", name, r)
			p.logger.Warn("analysis stage panicked", zap.String("stage", name), zap.Any("panic", r))
			res.Errors = append(res.Errors, msg)
		}
	}()
	if err := fn(); err != nil {
		p.logger.Warn("analysis stage failed", zap.String("stage", name), zap.Error(err))
		res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", name, err))
	}
}

func (p *Pipeline) detectLanguage(text string) nlp.Language {
	if !p.opts.DetectLanguage || p.opts.Analyzer == nil {
		return nlp.Default
	}

	sample := strings.TrimSpace(firstRunes(text, p.opts.SampleSize))
	code, err := p.opts.Analyzer.DetectLanguage(sample)
	if err != nil {
		p.logger.Debug("language detection failed, using default", zap.Error(err))
		return nlp.Default
	}
	lang := nlp.NormalizeCode(code)
	if lang == nlp.Unknown {
		return nlp.Default
	}
	return lang
}

func (p *Pipeline) tokenize(normalized string, lang nlp.Language) (string, error) {
	if p.opts.Analyzer == nil {
		return normalized, nil
	}
	model, ok := p.opts.Analyzer.Model(lang)
	if !ok {
		p.logger.Debug("no model for language, passing text through", zap.String("language", string(lang)))
		return normalized, nil
	}

	tokens, err := model.Tokenize(normalized)
	if err != nil {
		return "", err
	}

	filterStops := lang.HasFunctionalStopwords()
	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok.IsPunct || tok.IsSpace {
			continue
		}
		if filterStops {
			if tok.IsStop {
				continue
			}
			kept = append(kept, strings.ToLower(tok.Lemma))
			continue
		}
		kept = append(kept, tok.Text)
	}
	if len(kept) == 0 {
		return normalized, nil
	}
	return strings.Join(kept, " "), nil
}

func (p *Pipeline) sentiment(normalized string) (*nlp.Sentiment, error) {
	if p.opts.Analyzer == nil {
		return nil, nil
	}
	scorer := p.opts.Analyzer.Scorer()
	if scorer == nil {
		return nil, nil
	}
	s, err := scorer.Sentiment(normalized)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (p *Pipeline) entities(text string, lang nlp.Language) ([]nlp.Entity, error) {
	if p.opts.Analyzer == nil {
		return []nlp.Entity{}, nil
	}
	model, ok := p.opts.Analyzer.Model(lang)
	if !ok {
		return []nlp.Entity{}, nil
	}
	ents, err := model.Entities(text)
	if err != nil {
		return nil, err
	}
	if ents == nil {
		ents = []nlp.Entity{}
	}
	return ents, nil
}

// normalizeWhitespace collapses whitespace runs to one space and trims.
func normalizeWhitespace(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	space := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

func firstRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
