package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cognicore/docsift/pkg/docsift/analysis"
	"github.com/cognicore/docsift/pkg/docsift/nlp"
)

// resultJSON fixes the field order of the wire schema.
type resultJSON struct {
	OriginalText  string              `json:"original_text"`
	ProcessedText string              `json:"processed_text"`
	Language      string              `json:"language"`
	Sentiment     sentimentJSON       `json:"sentiment"`
	Numbers       []float64           `json:"numbers"`
	Dates         []string            `json:"dates"`
	Entities      []nlp.Entity        `json:"entities"`
	Statistics    analysis.Statistics `json:"statistics"`
	Errors        []string            `json:"errors"`
	Timestamp     string              `json:"timestamp"`
}

// sentimentJSON encodes as {} when no score was computed.
type sentimentJSON struct {
	Neg      *float64 `json:"neg,omitempty"`
	Neu      *float64 `json:"neu,omitempty"`
	Pos      *float64 `json:"pos,omitempty"`
	Compound *float64 `json:"compound,omitempty"`
}

// MarshalJSON encodes r with two-space indentation. Collections are
// never null and non-ASCII text is written verbatim.
func MarshalJSON(r *analysis.Result) ([]byte, error) {
	w := resultJSON{
		OriginalText:  r.OriginalText,
		ProcessedText: r.ProcessedText,
		Language:      string(r.Language),
		Numbers:       nonNil(r.Numbers),
		Dates:         nonNil(r.Dates),
		Entities:      nonNil(r.Entities),
		Statistics:    r.Statistics,
		Errors:        nonNil(r.Errors),
		Timestamp:     r.Timestamp.Format(time.RFC3339Nano),
	}
	if s := r.Sentiment; s != nil {
		neg, neu, pos, compound := s.Neg, s.Neu, s.Pos, s.Compound
		w.Sentiment = sentimentJSON{Neg: &neg, Neu: &neu, Pos: &pos, Compound: &compound}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(w); err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ParseJSON decodes output of MarshalJSON.
func ParseJSON(data []byte) (*analysis.Result, error) {
	var w resultJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}

	r := &analysis.Result{
		OriginalText:  w.OriginalText,
		ProcessedText: w.ProcessedText,
		Language:      nlp.Language(w.Language),
		Numbers:       nonNil(w.Numbers),
		Dates:         nonNil(w.Dates),
		Entities:      nonNil(w.Entities),
		Statistics:    w.Statistics,
		Errors:        nonNil(w.Errors),
	}
	if s := w.Sentiment; s.Compound != nil {
		r.Sentiment = &nlp.Sentiment{
			Neg:      deref(s.Neg),
			Neu:      deref(s.Neu),
			Pos:      deref(s.Pos),
			Compound: *s.Compound,
		}
	}
	if w.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339Nano, w.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("decode result timestamp: %w", err)
		}
		r.Timestamp = ts
	}
	return r, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
