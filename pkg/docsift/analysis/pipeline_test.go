package analysis

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/docsift/pkg/docsift/nlp"
	"github.com/cognicore/docsift/pkg/docsift/nlp/lexical"
)

var fixedNow = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func newTestPipeline(a nlp.TextAnalyzer) *Pipeline {
	opts := DefaultOptions(a)
	opts.Now = func() time.Time { return fixedNow }
	return NewPipeline(opts)
}

func TestProcessPriceAndDate(t *testing.T) {
	p := newTestPipeline(lexical.New(lexical.Options{}))

	res := p.Process("Hello! Price is $1,234.56 on 2024-01-15.")

	assert.Equal(t, []float64{1234.56}, res.Numbers)
	assert.Equal(t, []string{"2024-01-15"}, res.Dates)
	assert.Equal(t, nlp.English, res.Language)
	assert.Empty(t, res.Errors)
	assert.Equal(t, fixedNow, res.Timestamp)
	assert.Equal(t, 1, res.Statistics.NumberCount)
	assert.Equal(t, 1, res.Statistics.DateCount)
}

func TestProcessEmptyInput(t *testing.T) {
	p := newTestPipeline(lexical.New(lexical.Options{}))

	for _, in := range []string{"", "   ", "\n\t"} {
		res := p.Process(in)

		assert.Equal(t, []string{EmptyInputError}, res.Errors)
		assert.Equal(t, utf8.RuneCountInString(in), res.Statistics.CharCount)
		assert.Equal(t, 0, res.Statistics.WordCount)
		assert.Empty(t, res.Numbers)
		assert.Empty(t, res.Dates)
		assert.Empty(t, res.Entities)
		assert.Nil(t, res.Sentiment)
		assert.Equal(t, "", res.ProcessedText)
		assert.Equal(t, nlp.Unknown, res.Language)
	}
}

func TestCharCountMatchesOriginalLength(t *testing.T) {
	p := newTestPipeline(lexical.New(lexical.Options{}))

	inputs := []string{
		"a",
		"Hello world.",
		"今天是2024年1月15日。",
		"tabs\tand\nnewlines  ",
		"emoji 😀 counts once",
	}
	for _, in := range inputs {
		res := p.Process(in)
		assert.Equal(t, utf8.RuneCountInString(in), res.Statistics.CharCount, in)
	}
}

func TestProcessedTextDropsStopwordsAndPunctuation(t *testing.T) {
	p := newTestPipeline(lexical.New(lexical.Options{}))

	res := p.Process("The   cat sat on the mat.")

	assert.Equal(t, "cat sat mat", res.ProcessedText)
}

func TestProcessedTextChineseKeepsAllWords(t *testing.T) {
	p := newTestPipeline(lexical.New(lexical.Options{}))

	res := p.Process("今天 天气 很好。")

	assert.Equal(t, nlp.Chinese, res.Language)
	assert.Equal(t, "今天 天气 很好", res.ProcessedText)
}

func TestProcessedTextFallsBackToNormalized(t *testing.T) {
	p := newTestPipeline(lexical.New(lexical.Options{}))

	// Only stopwords survive filtering, so the normalized text is kept.
	res := p.Process("  the   and  of ")
	assert.Equal(t, "the and of", res.ProcessedText)
}

func TestProcessWithoutAnalyzer(t *testing.T) {
	p := newTestPipeline(nil)

	res := p.Process("Plain   text with 42 apples")

	assert.Equal(t, nlp.English, res.Language)
	assert.Equal(t, "Plain text with 42 apples", res.ProcessedText)
	assert.Equal(t, []float64{42}, res.Numbers)
	assert.Nil(t, res.Sentiment)
	assert.Empty(t, res.Entities)
	assert.Empty(t, res.Errors)
}

func TestSentimentDisabled(t *testing.T) {
	opts := DefaultOptions(lexical.New(lexical.Options{}))
	opts.Sentiment = false
	res := NewPipeline(opts).Process("What a great day")

	assert.Nil(t, res.Sentiment)
	assert.Equal(t, "", res.SentimentLabel())
}

func TestSentimentLabelFromResult(t *testing.T) {
	p := newTestPipeline(lexical.New(lexical.Options{}))

	assert.Equal(t, nlp.Positive, p.Process("What a great and wonderful day").SentimentLabel())
	assert.Equal(t, nlp.Negative, p.Process("This is a terrible failure").SentimentLabel())
	assert.Equal(t, nlp.Neutral, p.Process("The box is on the shelf").SentimentLabel())
}

func TestEntitiesSpanOriginalText(t *testing.T) {
	g := lexical.NewGazetteer()
	g.AddEntity("ORG", "acme", []string{"acme"})
	p := newTestPipeline(lexical.New(lexical.Options{Gazetteer: g}))

	text := "Shares of  ACME rose."
	res := p.Process(text)

	require.Len(t, res.Entities, 1)
	e := res.Entities[0]
	assert.Equal(t, "ORG", e.Label)
	assert.Equal(t, "ACME", string([]rune(text)[e.Start:e.End]))
}

// faultyAnalyzer fails in configurable stages.
type faultyAnalyzer struct {
	detectErr  error
	tokenErr   error
	panicEnts  bool
	sentErr    error
	noModel    bool
	tokens     []nlp.Token
	sentiments nlp.Sentiment
}

func (f *faultyAnalyzer) DetectLanguage(string) (string, error) {
	if f.detectErr != nil {
		return "", f.detectErr
	}
	return "en-US", nil
}

func (f *faultyAnalyzer) Model(nlp.Language) (nlp.Model, bool) {
	if f.noModel {
		return nil, false
	}
	return f, true
}

func (f *faultyAnalyzer) Scorer() nlp.SentimentScorer { return f }

func (f *faultyAnalyzer) Tokenize(string) ([]nlp.Token, error) {
	return f.tokens, f.tokenErr
}

func (f *faultyAnalyzer) Entities(string) ([]nlp.Entity, error) {
	if f.panicEnts {
		panic("model crashed")
	}
	return nil, nil
}

func (f *faultyAnalyzer) Sentiment(string) (nlp.Sentiment, error) {
	return f.sentiments, f.sentErr
}

func TestStageFailuresAreIsolated(t *testing.T) {
	f := &faultyAnalyzer{
		tokenErr:  errors.New("tokenizer offline"),
		panicEnts: true,
		sentErr:   errors.New("scorer offline"),
	}
	p := newTestPipeline(f)

	res := p.Process("Invoice 2024-03-01 total 1,500 units")

	require.Len(t, res.Errors, 3)
	assert.Contains(t, res.Errors[0], "tokenize: tokenizer offline")
	assert.Contains(t, res.Errors[1], "sentiment: scorer offline")
	assert.Contains(t, res.Errors[2], "entities: panic: model crashed")

	// Later stages still ran.
	assert.Equal(t, []float64{1500}, res.Numbers)
	assert.Equal(t, []string{"2024-03-01"}, res.Dates)
	assert.Equal(t, "Invoice 2024-03-01 total 1,500 units", res.ProcessedText)
	assert.Nil(t, res.Sentiment)
	assert.Empty(t, res.Entities)
	assert.Equal(t, 3, res.Statistics.ProcessingErrors)
	assert.Equal(t, 5, res.Statistics.WordCount)
}

func TestDetectorFailureDefaultsToEnglish(t *testing.T) {
	f := &faultyAnalyzer{detectErr: errors.New("no signal")}
	res := newTestPipeline(f).Process("12345")

	assert.Equal(t, nlp.English, res.Language)
	assert.Empty(t, res.Errors)
}

func TestDetectorCodeIsNormalized(t *testing.T) {
	res := newTestPipeline(&faultyAnalyzer{}).Process("whatever")
	assert.Equal(t, nlp.English, res.Language)
}

func TestNoModelPassesThrough(t *testing.T) {
	res := newTestPipeline(&faultyAnalyzer{noModel: true}).Process("  keep   me ")
	assert.Equal(t, "keep me", res.ProcessedText)
	assert.Empty(t, res.Entities)
}

func TestSentenceCount(t *testing.T) {
	p := newTestPipeline(nil)

	assert.Equal(t, 3, p.Process("One. Two! Three").Statistics.SentenceCount)
	assert.Equal(t, 3, p.Process("你好。再见！").Statistics.SentenceCount)
}

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", normalizeWhitespace("  a \t\n b   c  "))
	assert.Equal(t, "", normalizeWhitespace(" \n "))
}

func TestFirstRunes(t *testing.T) {
	assert.Equal(t, "你好", firstRunes("你好世界", 2))
	assert.Equal(t, "ab", firstRunes("ab", 200))
	long := strings.Repeat("x", 500)
	assert.Len(t, firstRunes(long, DefaultSampleSize), DefaultSampleSize)
}

func TestLanguageSampleIsBounded(t *testing.T) {
	var seen string
	rec := &recordingDetector{faultyAnalyzer: &faultyAnalyzer{}, seen: &seen}
	newTestPipeline(rec).Process(strings.Repeat("word ", 200))

	assert.LessOrEqual(t, utf8.RuneCountInString(seen), DefaultSampleSize)
}

type recordingDetector struct {
	*faultyAnalyzer
	seen *string
}

func (r *recordingDetector) DetectLanguage(s string) (string, error) {
	*r.seen = s
	return "en", nil
}

func TestGroupedNumbersMatchManualParsing(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		whole := rng.Int63n(1_000_000_000)
		grouped := groupThousands(whole)
		frac := ""
		if rng.Intn(2) == 0 {
			frac = fmt.Sprintf(".%d", rng.Intn(100))
		}
		literal := grouped + frac

		want, err := strconv.ParseFloat(strings.ReplaceAll(literal, ",", ""), 64)
		require.NoError(t, err)

		got := extractNumbers("total: " + literal + " units")
		assert.Equal(t, []float64{want}, got, literal)
	}
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	return strings.Join(parts, ",")
}

func TestExtractNumbers(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []float64
	}{
		{"sorted and deduplicated", "5 apples, 3 pears, 5 plums and 3.0 figs", []float64{3, 5}},
		{"decimal not split", "pi is 3.14", []float64{3.14}},
		{"grouping stripped", "1,000,000 and 2,500.75", []float64{2500.75, 1000000}},
		{"date parts ignored", "due 12/31/2024 or 2024年1月5日, ref 7", []float64{7}},
		{"no numbers", "nothing here", []float64{}},
		{"glued digits ignored", "abc123 x9", []float64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractNumbers(tt.text))
		})
	}
}

func TestExtractDates(t *testing.T) {
	text := "Start 2024-01-15, again 2024-01-15, US 01/15/2024, dash 01-15-2024, 中文 2024年1月15日"
	assert.Equal(t,
		[]string{"01-15-2024", "01/15/2024", "2024-01-15", "2024年1月15日"},
		extractDates(text))
	assert.Empty(t, extractDates("no dates"))
}
