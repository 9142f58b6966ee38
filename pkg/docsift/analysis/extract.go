package analysis

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Number patterns, applied in this order. Earlier patterns win ties.
var numberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d+\.\d+\b`),                     // decimal
	regexp.MustCompile(`\b\d+\b`),                          // integer
	regexp.MustCompile(`\b\d{1,3}(?:,\d{3})*(?:\.\d+)?\b`), // thousands-grouped
}

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{4}-\d{1,2}-\d{1,2}\b`), // YYYY-MM-DD
	regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`), // MM/DD/YYYY
	regexp.MustCompile(`\b\d{1,2}-\d{1,2}-\d{4}\b`), // MM-DD-YYYY
	regexp.MustCompile(`\d{4}年\d{1,2}月\d{1,2}日`),    // YYYY年MM月DD日
}

var sentenceSplit = regexp.MustCompile(`[.!?。！？]`)

type span struct {
	start, end int
	pattern    int
}

func (s span) overlaps(o span) bool {
	return s.start < o.end && o.start < s.end
}

func dateSpans(text string) []span {
	var spans []span
	for i, re := range datePatterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			spans = append(spans, span{start: loc[0], end: loc[1], pattern: i})
		}
	}
	return spans
}

// extractDates returns the unique date substrings of text, sorted.
func extractDates(text string) []string {
	seen := make(map[string]struct{})
	for _, s := range dateSpans(text) {
		seen[text[s.start:s.end]] = struct{}{}
	}
	dates := make([]string, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// extractNumbers returns the unique numeric values in text, ascending.
//
// The patterns overlap ("1,234.56" also yields "1", "234" and "234.56"),
// so matches are resolved by span: anything inside a date is dropped,
// then the longest span wins and ties go to the earlier pattern.
func extractNumbers(text string) []float64 {
	dates := dateSpans(text)

	var candidates []span
	for i, re := range numberPatterns {
	next:
		for _, loc := range re.FindAllStringIndex(text, -1) {
			c := span{start: loc[0], end: loc[1], pattern: i}
			for _, d := range dates {
				if c.overlaps(d) {
					continue next
				}
			}
			candidates = append(candidates, c)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		li, lj := candidates[i].end-candidates[i].start, candidates[j].end-candidates[j].start
		if li != lj {
			return li > lj
		}
		if candidates[i].pattern != candidates[j].pattern {
			return candidates[i].pattern < candidates[j].pattern
		}
		return candidates[i].start < candidates[j].start
	})

	var kept []span
	seen := make(map[float64]struct{})
	numbers := []float64{}
	for _, c := range candidates {
		clash := false
		for _, k := range kept {
			if c.overlaps(k) {
				clash = true
				break
			}
		}
		if clash {
			continue
		}
		kept = append(kept, c)

		v, err := strconv.ParseFloat(strings.ReplaceAll(text[c.start:c.end], ",", ""), 64)
		if err != nil {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		numbers = append(numbers, v)
	}

	sort.Float64s(numbers)
	return numbers
}

func computeStatistics(original string, r *Result) Statistics {
	words := strings.Fields(original)
	letters := 0
	for _, w := range words {
		letters += utf8.RuneCountInString(w)
	}
	avg := 0.0
	if len(words) > 0 {
		avg = float64(letters) / float64(len(words))
	}

	return Statistics{
		CharCount:        utf8.RuneCountInString(original),
		WordCount:        len(words),
		SentenceCount:    len(sentenceSplit.Split(original, -1)),
		AvgWordLength:    avg,
		NumberCount:      len(r.Numbers),
		DateCount:        len(r.Dates),
		EntityCount:      len(r.Entities),
		Language:         string(r.Language),
		ProcessingErrors: len(r.Errors),
	}
}
