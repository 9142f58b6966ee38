package lexical

import "strings"

// Stoplist holds the functional stopwords of one language.
type Stoplist struct {
	stops map[string]struct{}
}

// NewStoplist creates a stoplist from terms (case-insensitive).
func NewStoplist(terms []string) *Stoplist {
	stops := make(map[string]struct{}, len(terms))
	for _, s := range terms {
		stops[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	return &Stoplist{stops: stops}
}

// IsStop checks if a token is a stopword
func (s *Stoplist) IsStop(token string) bool {
	if s == nil {
		return false
	}
	_, ok := s.stops[strings.ToLower(token)]
	return ok
}

// Add adds terms to the stoplist.
func (s *Stoplist) Add(terms ...string) {
	for _, t := range terms {
		s.stops[strings.ToLower(t)] = struct{}{}
	}
}

// Len returns the number of stopwords.
func (s *Stoplist) Len() int {
	if s == nil {
		return 0
	}
	return len(s.stops)
}

// Hits counts how many of tokens are stopwords. Used by the language
// detector to compare Latin-script profiles.
func (s *Stoplist) Hits(tokens []string) int {
	n := 0
	for _, t := range tokens {
		if s.IsStop(t) {
			n++
		}
	}
	return n
}

// EnglishStopwords is the built-in English list.
var EnglishStopwords = []string{
	"i", "me", "my", "myself", "we", "our", "ours", "ourselves", "you", "your", "yours",
	"yourself", "yourselves", "he", "him", "his", "himself", "she", "her", "hers",
	"herself", "it", "its", "itself", "they", "them", "their", "theirs", "themselves",
	"what", "which", "who", "whom", "this", "that", "these", "those", "am", "is", "are",
	"was", "were", "be", "been", "being", "have", "has", "had", "having", "do", "does",
	"did", "doing", "a", "an", "the", "and", "but", "if", "or", "because", "as", "until",
	"while", "of", "at", "by", "for", "with", "through", "during", "before", "after",
	"above", "below", "to", "from", "up", "down", "in", "out", "on", "off", "over", "under",
	"again", "further", "then", "once", "so", "than", "too", "very", "can", "will", "just",
	"should", "now",
}
