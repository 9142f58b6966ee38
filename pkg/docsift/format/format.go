// Package format renders analysis results as a summary report, JSON, or
// the processed text alone.
package format

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cognicore/docsift/pkg/docsift/analysis"
)

// Format is an output rendering.
type Format string

const (
	Summary Format = "summary"
	JSON    Format = "json"
	Text    Format = "text"
)

// PreviewRunes bounds the processed-text preview in summaries.
const PreviewRunes = 200

// ParseFormat accepts "summary", "json" or "text", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case Summary, JSON, Text:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want summary, json or text)", s)
}

// Ext returns the output file extension for f, or inputExt when the
// format keeps the input's extension.
func Ext(f Format, inputExt string) string {
	if f == JSON {
		return ".json"
	}
	return inputExt
}

// Render formats r. Unknown formats render as Text.
func Render(f Format, r *analysis.Result) (string, error) {
	switch f {
	case Summary:
		return SummaryText(r), nil
	case JSON:
		b, err := MarshalJSON(r)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return PlainText(r), nil
}

// PlainText returns the processed text.
func PlainText(r *analysis.Result) string {
	return r.ProcessedText
}

// SummaryText is a human-readable report of r.
func SummaryText(r *analysis.Result) string {
	st := r.Statistics
	lines := []string{
		fmt.Sprintf("Language: %s", r.Language),
		fmt.Sprintf("Characters: %d", st.CharCount),
		fmt.Sprintf("Words: %d", st.WordCount),
		fmt.Sprintf("Sentences: %d", st.SentenceCount),
	}
	if r.Sentiment != nil {
		lines = append(lines, fmt.Sprintf("Sentiment: %s (%.3f)", r.SentimentLabel(), r.Sentiment.Compound))
	}
	if len(r.Numbers) > 0 {
		lines = append(lines, fmt.Sprintf("Numbers found: %d", len(r.Numbers)))
	}
	if len(r.Dates) > 0 {
		lines = append(lines, fmt.Sprintf("Dates found: %d", len(r.Dates)))
	}
	if labels := entityLabels(r); len(labels) > 0 {
		lines = append(lines, "Entity labels: "+strings.Join(labels, ", "))
	}
	if len(r.Errors) > 0 {
		lines = append(lines, fmt.Sprintf("Errors: %d", len(r.Errors)))
	}
	lines = append(lines, "", "Processed text:", preview(r.ProcessedText, PreviewRunes))
	return strings.Join(lines, "\n")
}

func entityLabels(r *analysis.Result) []string {
	set := make(map[string]struct{})
	for _, e := range r.Entities {
		set[e.Label] = struct{}{}
	}
	labels := make([]string, 0, len(set))
	for l := range set {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

func preview(s string, n int) string {
	runes := 0
	for i := range s {
		if runes == n {
			return s[:i] + "..."
		}
		runes++
	}
	return s
}
