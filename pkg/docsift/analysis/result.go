package analysis

import (
	"time"

	"github.com/cognicore/docsift/pkg/docsift/nlp"
)

// Result is the outcome of analyzing one document. It is built once by
// Pipeline.Process and not modified afterwards.
type Result struct {
	OriginalText  string
	ProcessedText string
	Language      nlp.Language
	// Sentiment is nil when scoring is disabled or unavailable.
	Sentiment  *nlp.Sentiment
	Numbers    []float64 // ascending, unique
	Dates      []string  // unique, sorted
	Entities   []nlp.Entity
	Statistics Statistics
	Errors     []string
	Timestamp  time.Time
}

// Statistics summarizes counts over the original text.
type Statistics struct {
	CharCount        int     `json:"char_count"`
	WordCount        int     `json:"word_count"`
	SentenceCount    int     `json:"sentence_count"`
	AvgWordLength    float64 `json:"avg_word_length"`
	NumberCount      int     `json:"number_count"`
	DateCount        int     `json:"date_count"`
	EntityCount      int     `json:"entity_count"`
	Language         string  `json:"language"`
	ProcessingErrors int     `json:"processing_errors"`
}

// SentimentLabel returns the label for the result's compound score, or
// "" when no sentiment was computed.
func (r *Result) SentimentLabel() string {
	if r.Sentiment == nil {
		return ""
	}
	return nlp.Label(r.Sentiment.Compound)
}

// EmptyInputError is recorded for blank input.
const EmptyInputError = "empty input"

func newResult(text string, now time.Time) *Result {
	return &Result{
		OriginalText: text,
		Language:     nlp.Unknown,
		Numbers:      []float64{},
		Dates:        []string{},
		Entities:     []nlp.Entity{},
		Errors:       []string{},
		Timestamp:    now,
	}
}
