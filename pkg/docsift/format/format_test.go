package format

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/docsift/pkg/docsift/analysis"
	"github.com/cognicore/docsift/pkg/docsift/nlp"
	"github.com/cognicore/docsift/pkg/docsift/nlp/lexical"
)

func sampleResult() *analysis.Result {
	return &analysis.Result{
		OriginalText:  "Acme paid $1,234.56 on 2024-01-15 in 北京 <b>",
		ProcessedText: "acme paid 1,234.56 2024-01-15 北京 <b>",
		Language:      nlp.English,
		Sentiment:     &nlp.Sentiment{Neg: 0, Neu: 0.8, Pos: 0.2, Compound: 0.4404},
		Numbers:       []float64{1234.56},
		Dates:         []string{"2024-01-15"},
		Entities: []nlp.Entity{
			{Text: "Acme", Label: "ORG", Start: 0, End: 4},
			{Text: "$1,234.56", Label: "MONEY", Start: 10, End: 19},
			{Text: "北京", Label: "GPE", Start: 37, End: 39},
		},
		Statistics: analysis.Statistics{
			CharCount: 41, WordCount: 8, SentenceCount: 2, AvgWordLength: 4.25,
			NumberCount: 1, DateCount: 1, EntityCount: 3, Language: "en",
		},
		Errors:    []string{},
		Timestamp: time.Date(2024, 1, 15, 9, 30, 0, 123456789, time.UTC),
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"summary": Summary, "JSON": JSON, " text ": Text} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestExt(t *testing.T) {
	assert.Equal(t, ".json", Ext(JSON, ".txt"))
	assert.Equal(t, ".csv", Ext(Summary, ".csv"))
	assert.Equal(t, ".pdf", Ext(Text, ".pdf"))
}

func TestSummaryText(t *testing.T) {
	r := sampleResult()
	r.Errors = []string{"sentiment: boom"}

	want := strings.Join([]string{
		"Language: en",
		"Characters: 41",
		"Words: 8",
		"Sentences: 2",
		"Sentiment: positive (0.440)",
		"Numbers found: 1",
		"Dates found: 1",
		"Entity labels: GPE, MONEY, ORG",
		"Errors: 1",
		"",
		"Processed text:",
		"acme paid 1,234.56 2024-01-15 北京 <b>",
	}, "\n")
	assert.Equal(t, want, SummaryText(r))
}

func TestSummaryTextOmitsEmptySections(t *testing.T) {
	r := &analysis.Result{Language: nlp.Unknown, ProcessedText: ""}

	want := "Language: unknown\nCharacters: 0\nWords: 0\nSentences: 0\n\nProcessed text:\n"
	assert.Equal(t, want, SummaryText(r))
}

func TestSummaryPreviewTruncatesByRune(t *testing.T) {
	r := &analysis.Result{ProcessedText: strings.Repeat("字", PreviewRunes+5)}
	out := SummaryText(r)

	last := out[strings.LastIndex(out, "\n")+1:]
	assert.Equal(t, strings.Repeat("字", PreviewRunes)+"...", last)

	r.ProcessedText = strings.Repeat("a", PreviewRunes)
	out = SummaryText(r)
	assert.True(t, strings.HasSuffix(out, "\n"+strings.Repeat("a", PreviewRunes)))
}

func TestMarshalJSONFieldOrder(t *testing.T) {
	b, err := MarshalJSON(sampleResult())
	require.NoError(t, err)
	out := string(b)

	fields := []string{
		`"original_text"`, `"processed_text"`, `"language"`, `"sentiment"`, `"numbers"`,
		`"dates"`, `"entities"`, `"statistics"`, `"errors"`, `"timestamp"`,
	}
	last := -1
	for _, f := range fields {
		i := strings.Index(out, f)
		require.Greater(t, i, last, f)
		last = i
	}

	assert.Contains(t, out, "北京", "non-ASCII is written verbatim")
	assert.Contains(t, out, "<b>", "HTML is not escaped")
	assert.Contains(t, out, "\n  \"language\": \"en\"", "two-space indent")
	assert.Contains(t, out, `"timestamp": "2024-01-15T09:30:00.123456789Z"`)
	assert.False(t, strings.HasSuffix(out, "\n"))
}

func TestMarshalJSONEmptyResult(t *testing.T) {
	b, err := MarshalJSON(&analysis.Result{Language: nlp.Unknown})
	require.NoError(t, err)

	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &m))
	assert.JSONEq(t, `{}`, string(m["sentiment"]))
	for _, k := range []string{"numbers", "dates", "entities", "errors"} {
		assert.JSONEq(t, `[]`, string(m[k]), k)
	}
}

func TestJSONRoundTripIsStable(t *testing.T) {
	p := analysis.NewPipeline(analysis.DefaultOptions(lexical.New(lexical.Options{})))
	inputs := []*analysis.Result{
		sampleResult(),
		{Language: nlp.Unknown},
		p.Process("Hello! Price is $1,234.56 on 2024-01-15."),
		p.Process(""),
		p.Process("今天是2024年1月15日，天气很好！"),
	}
	for _, r := range inputs {
		first, err := MarshalJSON(r)
		require.NoError(t, err)

		parsed, err := ParseJSON(first)
		require.NoError(t, err)
		second, err := MarshalJSON(parsed)
		require.NoError(t, err)

		assert.Equal(t, string(first), string(second))
	}
}

func TestParseJSON(t *testing.T) {
	r := sampleResult()
	b, err := MarshalJSON(r)
	require.NoError(t, err)

	got, err := ParseJSON(b)
	require.NoError(t, err)
	assert.Equal(t, r.Entities, got.Entities)
	assert.Equal(t, r.Statistics, got.Statistics)
	assert.Equal(t, *r.Sentiment, *got.Sentiment)
	assert.True(t, r.Timestamp.Equal(got.Timestamp))

	noSentiment, err := ParseJSON([]byte(`{"sentiment":{},"language":"zh"}`))
	require.NoError(t, err)
	assert.Nil(t, noSentiment.Sentiment)
	assert.Equal(t, nlp.Chinese, noSentiment.Language)
	assert.NotNil(t, noSentiment.Numbers)

	_, err = ParseJSON([]byte(`{"timestamp": "yesterday"}`))
	assert.Error(t, err)
	_, err = ParseJSON([]byte(`not json`))
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	r := sampleResult()

	out, err := Render(Text, r)
	require.NoError(t, err)
	assert.Equal(t, r.ProcessedText, out)

	out, err = Render(Format("bogus"), r)
	require.NoError(t, err)
	assert.Equal(t, r.ProcessedText, out, "unknown formats render as text")

	out, err = Render(Summary, r)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Language: en\n"))

	out, err = Render(JSON, r)
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(out)))
}
