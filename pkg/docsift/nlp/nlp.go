// Package nlp defines the text-analysis capability consumed by the
// analysis pipeline. Concrete models live elsewhere (see nlp/lexical);
// the pipeline only ever sees these interfaces.
package nlp

import "strings"

// Language is a normalized language code.
type Language string

const (
	English Language = "en"
	Chinese Language = "zh"
	Unknown Language = "unknown"
)

// Default is consulted when a language has no model of its own.
const Default = English

// NormalizeCode folds detector output into the closed set the pipeline
// works with: any Chinese variant becomes zh, any English variant en,
// anything else passes through lower-cased.
func NormalizeCode(code string) Language {
	c := strings.ToLower(strings.TrimSpace(code))
	switch {
	case c == "":
		return Unknown
	case c == "zh" || strings.HasPrefix(c, "zh-") || strings.HasPrefix(c, "zh_"):
		return Chinese
	case c == "en" || strings.HasPrefix(c, "en-") || strings.HasPrefix(c, "en_"):
		return English
	default:
		return Language(c)
	}
}

// HasFunctionalStopwords reports whether stopword filtering applies to
// tokens of this language. Chinese keeps every non-punctuation token.
func (l Language) HasFunctionalStopwords() bool {
	return l != Chinese
}

// Token is one unit produced by a Model.
type Token struct {
	Text    string
	Lemma   string
	IsPunct bool
	IsSpace bool
	IsStop  bool
}

// Entity is a named entity with rune offsets into the analyzed text.
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Sentiment is a four-way polarity score.
type Sentiment struct {
	Neg      float64 `json:"neg"`
	Neu      float64 `json:"neu"`
	Pos      float64 `json:"pos"`
	Compound float64 `json:"compound"`
}

// Sentiment labels.
const (
	Positive = "positive"
	Negative = "negative"
	Neutral  = "neutral"
)

// Label maps a compound score onto positive/negative/neutral using the
// fixed ±0.05 thresholds.
func Label(compound float64) string {
	switch {
	case compound > 0.05:
		return Positive
	case compound < -0.05:
		return Negative
	default:
		return Neutral
	}
}

// Model is a language-specific tokenizer and entity recognizer.
// Implementations must be safe for concurrent use.
type Model interface {
	Tokenize(text string) ([]Token, error)
	Entities(text string) ([]Entity, error)
}

// LanguageDetector identifies the language of a text sample.
type LanguageDetector interface {
	DetectLanguage(text string) (string, error)
}

// SentimentScorer scores polarity.
type SentimentScorer interface {
	Sentiment(text string) (Sentiment, error)
}

// TextAnalyzer is the full capability the pipeline depends on.
// Implementations must be safe for concurrent use; the same instance is
// shared by every batch worker.
type TextAnalyzer interface {
	LanguageDetector
	// Model returns the model that serves lang, walking the fallback chain.
	// ok is false when no model is available and callers should pass
	// text through unchanged.
	Model(lang Language) (m Model, ok bool)
	// Scorer returns nil when sentiment is unavailable.
	Scorer() SentimentScorer
}
