package lexical

import (
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/docsift/pkg/docsift/nlp"
)

// Gazetteer recognizes named entities by keyword lookup
// (label → name → keywords) plus a few surface patterns.
type Gazetteer struct {
	entries  []gazetteerEntry
	patterns []entityPattern
}

type gazetteerEntry struct {
	label   string
	keyword string // folded
}

type entityPattern struct {
	label string
	re    *regexp.Regexp
}

// defaultPatterns cover entity types that are recognizable from their
// shape alone.
var defaultPatterns = []entityPattern{
	{label: "MONEY", re: regexp.MustCompile(`[$€£¥]\s?\d{1,3}(?:,\d{3})*(?:\.\d+)?|[$€£¥]\s?\d+(?:\.\d+)?`)},
	{label: "PERCENT", re: regexp.MustCompile(`\d+(?:\.\d+)?\s?%`)},
	{label: "EMAIL", re: regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)},
	{label: "URL", re: regexp.MustCompile(`https?://[^\s\]]+`)},
}

// NewGazetteer creates a gazetteer with the built-in surface patterns.
func NewGazetteer() *Gazetteer {
	return &Gazetteer{patterns: defaultPatterns}
}

// AddEntity registers keywords that identify the entity name under label.
func (g *Gazetteer) AddEntity(label, name string, keywords []string) {
	if len(keywords) == 0 {
		keywords = []string{name}
	}
	for _, kw := range keywords {
		kw, _ = fold(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		g.entries = append(g.entries, gazetteerEntry{label: label, keyword: kw})
	}
	g.sortEntries()
}

// Len returns the number of registered keywords.
func (g *Gazetteer) Len() int {
	return len(g.entries)
}

// LoadGazetteer loads entities from a YAML file:
//
//	entities:
//	  ORG:
//	    acme: [acme corp, acme inc]
//	  GPE:
//	    beijing: [beijing, 北京]
func LoadGazetteer(path string) (*Gazetteer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config struct {
		Entities map[string]map[string][]string `yaml:"entities"`
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	g := NewGazetteer()
	for label, names := range config.Entities {
		for name, keywords := range names {
			g.AddEntity(label, name, keywords)
		}
	}
	return g, nil
}

// sortEntries orders keywords longest first so overlapping matches
// resolve to the most specific name.
func (g *Gazetteer) sortEntries() {
	sort.SliceStable(g.entries, func(i, j int) bool {
		if len(g.entries[i].keyword) != len(g.entries[j].keyword) {
			return len(g.entries[i].keyword) > len(g.entries[j].keyword)
		}
		return g.entries[i].keyword < g.entries[j].keyword
	})
}

type byteSpan struct {
	start, end int
	label      string
}

// Find returns non-overlapping entities ordered by position. Offsets are
// rune offsets into text.
func (g *Gazetteer) Find(text string) []nlp.Entity {
	var spans []byteSpan
	folded, offsets := fold(text)

	for _, e := range g.entries {
		from := 0
		for {
			idx := strings.Index(folded[from:], e.keyword)
			if idx < 0 {
				break
			}
			idx += from
			from = idx + len(e.keyword)
			start, end := offsets[idx], offsets[from]
			if wordBounded(text, start, end) {
				spans = append(spans, byteSpan{start: start, end: end, label: e.label})
			}
		}
	}

	for _, p := range g.patterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			spans = append(spans, byteSpan{start: loc[0], end: loc[1], label: p.label})
		}
	}

	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end-spans[i].start > spans[j].end-spans[j].start
	})

	var entities []nlp.Entity
	lastEnd := -1
	for _, s := range spans {
		if s.start < lastEnd {
			continue
		}
		entities = append(entities, nlp.Entity{
			Text:  text[s.start:s.end],
			Label: s.label,
			Start: utf8.RuneCountInString(text[:s.start]),
			End:   utf8.RuneCountInString(text[:s.end]),
		})
		lastEnd = s.end
	}
	return entities
}

// fold lower-cases s one rune at a time. offsets maps each byte of the
// folded string to the byte offset in s of the rune it came from, with a
// final entry for len(s), since lowering can change a rune's width.
func fold(s string) (string, []int) {
	var b strings.Builder
	b.Grow(len(s))
	offsets := make([]int, 0, len(s)+1)
	for i, r := range s {
		n := b.Len()
		if _, w := utf8.DecodeRuneInString(s[i:]); r == utf8.RuneError && w == 1 {
			b.WriteByte(s[i])
		} else {
			b.WriteRune(unicode.ToLower(r))
		}
		for ; n < b.Len(); n++ {
			offsets = append(offsets, i)
		}
	}
	return b.String(), append(offsets, len(s))
}

// wordBounded reports whether text[start:end] is not glued to adjacent
// letters. CJK keywords are exempt since CJK text has no word spacing.
func wordBounded(text string, start, end int) bool {
	first, _ := utf8.DecodeRuneInString(text[start:end])
	if unicode.Is(unicode.Han, first) {
		return true
	}
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
