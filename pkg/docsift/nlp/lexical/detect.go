package lexical

import (
	"errors"
	"sort"
	"strings"
	"unicode"

	"github.com/cognicore/docsift/pkg/docsift/nlp"
)

// ErrNoLinguisticContent is returned when a sample has no letters to
// base a decision on.
var ErrNoLinguisticContent = errors.New("no linguistic content in sample")

// scriptShare is the fraction of letters a non-Latin script needs before
// it decides the language outright.
const scriptShare = 0.1

var scriptLanguages = []struct {
	table *unicode.RangeTable
	code  string
}{
	{unicode.Han, "zh-cn"},
	{unicode.Hiragana, "ja"},
	{unicode.Katakana, "ja"},
	{unicode.Hangul, "ko"},
	{unicode.Cyrillic, "ru"},
	{unicode.Arabic, "ar"},
	{unicode.Greek, "el"},
	{unicode.Hebrew, "he"},
	{unicode.Thai, "th"},
	{unicode.Devanagari, "hi"},
}

// Detector identifies language by script, then by stopword profile
// among Latin-script languages.
type Detector struct {
	profiles map[nlp.Language]*Stoplist
}

// NewDetector creates a detector. profiles maps Latin-script languages
// to their stoplists; English is always present.
func NewDetector(profiles map[nlp.Language]*Stoplist) *Detector {
	p := make(map[nlp.Language]*Stoplist, len(profiles)+1)
	for l, s := range profiles {
		p[l] = s
	}
	if _, ok := p[nlp.English]; !ok {
		p[nlp.English] = NewStoplist(EnglishStopwords)
	}
	return &Detector{profiles: p}
}

// DetectLanguage returns a raw language code for text.
func (d *Detector) DetectLanguage(text string) (string, error) {
	counts := make(map[string]int)
	letters := 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		for _, s := range scriptLanguages {
			if unicode.Is(s.table, r) {
				counts[s.code]++
				break
			}
		}
	}
	if letters == 0 {
		return "", ErrNoLinguisticContent
	}

	// Kana anywhere means Japanese even if Han dominates.
	if counts["ja"] > 0 && float64(counts["ja"]+counts["zh-cn"]) > float64(letters)*scriptShare {
		return "ja", nil
	}

	best, bestCount := "", 0
	for code, n := range counts {
		if n > bestCount || (n == bestCount && code < best) {
			best, bestCount = code, n
		}
	}
	if bestCount > 0 && float64(bestCount) > float64(letters)*scriptShare {
		return best, nil
	}

	return string(d.latinProfile(text)), nil
}

// latinProfile picks the Latin-script language whose stoplist matches
// the most words, defaulting to English.
func (d *Detector) latinProfile(text string) nlp.Language {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})

	langs := make([]nlp.Language, 0, len(d.profiles))
	for l := range d.profiles {
		langs = append(langs, l)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })

	best, bestHits := nlp.English, d.profiles[nlp.English].Hits(words)
	for _, l := range langs {
		if hits := d.profiles[l].Hits(words); hits > bestHits {
			best, bestHits = l, hits
		}
	}
	return best
}
