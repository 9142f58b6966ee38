// Package lexical is a dependency-free TextAnalyzer built from word
// lists: stoplists, a lemma lexicon, a valence lexicon and an entity
// gazetteer. It is immutable once built and safe for concurrent use.
package lexical

import (
	"github.com/cognicore/docsift/pkg/docsift/nlp"
)

// Model is the per-language tokenizer and entity recognizer.
type Model struct {
	tokenizer *Tokenizer
	stops     *Stoplist
	lexicon   *Lexicon
	gazetteer *Gazetteer
}

// NewModel assembles a model. Any component may be nil.
func NewModel(stops *Stoplist, lexicon *Lexicon, gazetteer *Gazetteer) *Model {
	if gazetteer == nil {
		gazetteer = NewGazetteer()
	}
	return &Model{
		tokenizer: NewTokenizer(),
		stops:     stops,
		lexicon:   lexicon,
		gazetteer: gazetteer,
	}
}

// Tokenize splits text and flags stopwords; lemmas come from the lexicon.
func (m *Model) Tokenize(text string) ([]nlp.Token, error) {
	tokens := m.tokenizer.Tokenize(text)
	for i := range tokens {
		if tokens[i].IsPunct {
			continue
		}
		tokens[i].Lemma = m.lexicon.Lemma(tokens[i].Text)
		tokens[i].IsStop = m.stops.IsStop(tokens[i].Text)
	}
	return tokens, nil
}

// Entities finds gazetteer and pattern entities.
func (m *Model) Entities(text string) ([]nlp.Entity, error) {
	return m.gazetteer.Find(text), nil
}

// Analyzer implements nlp.TextAnalyzer.
type Analyzer struct {
	detector *Detector
	models   *nlp.ModelTable
	scorer   nlp.SentimentScorer
}

var _ nlp.TextAnalyzer = (*Analyzer)(nil)

// Options configures an Analyzer.
type Options struct {
	// Stoplists per language; languages listed here get a model.
	Stoplists map[nlp.Language]*Stoplist
	// Lexicons per language for lemmatization.
	Lexicons map[nlp.Language]*Lexicon
	// Gazetteer is shared by every model.
	Gazetteer *Gazetteer
	// Valence overrides the built-in sentiment lexicon.
	Valence map[string]float64
	// DisableSentiment leaves Scorer() nil.
	DisableSentiment bool
	// Fallback is the default model language.
	Fallback nlp.Language
}

// New builds an Analyzer. With zero Options it carries English and
// Chinese models, the built-in valence lexicon, and pattern entities.
func New(opts Options) *Analyzer {
	stoplists := opts.Stoplists
	if len(stoplists) == 0 {
		stoplists = map[nlp.Language]*Stoplist{
			nlp.English: NewStoplist(EnglishStopwords),
			nlp.Chinese: NewStoplist(nil),
		}
	}

	table := nlp.NewModelTable()
	if opts.Fallback != "" {
		table.SetFallback(opts.Fallback)
	}
	profiles := make(map[nlp.Language]*Stoplist)
	for lang, stops := range stoplists {
		table.Register(lang, NewModel(stops, opts.Lexicons[lang], opts.Gazetteer))
		if lang != nlp.Chinese && stops.Len() > 0 {
			profiles[lang] = stops
		}
	}

	a := &Analyzer{
		detector: NewDetector(profiles),
		models:   table,
	}
	if !opts.DisableSentiment {
		a.scorer = NewScorer(opts.Valence)
	}
	return a
}

// DetectLanguage implements nlp.LanguageDetector.
func (a *Analyzer) DetectLanguage(text string) (string, error) {
	return a.detector.DetectLanguage(text)
}

// Model implements nlp.TextAnalyzer.
func (a *Analyzer) Model(lang nlp.Language) (nlp.Model, bool) {
	return a.models.Lookup(lang)
}

// Scorer implements nlp.TextAnalyzer.
func (a *Analyzer) Scorer() nlp.SentimentScorer {
	return a.scorer
}
