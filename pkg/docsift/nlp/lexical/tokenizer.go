package lexical

import (
	"strings"
	"unicode"

	"github.com/cognicore/docsift/pkg/docsift/nlp"
)

// Tokenizer splits text into word, punctuation and CJK tokens.
// Stopword and lemma handling is applied afterwards by the Model.
type Tokenizer struct{}

// NewTokenizer creates a tokenizer.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{}
}

type runeClass int

const (
	classSpace runeClass = iota
	classWord
	classHan
	classPunct
)

func classify(r rune) runeClass {
	switch {
	case unicode.IsSpace(r):
		return classSpace
	case unicode.Is(unicode.Han, r):
		return classHan
	case unicode.IsLetter(r) || unicode.IsNumber(r) || r == '-' || r == '\'' || r == '_':
		return classWord
	default:
		return classPunct
	}
}

// Tokenize returns tokens in text order. Every punctuation rune is its
// own token; runs of Han characters form a single token.
func (t *Tokenizer) Tokenize(text string) []nlp.Token {
	var tokens []nlp.Token
	var current strings.Builder
	currentClass := classSpace

	flush := func() {
		if current.Len() == 0 {
			return
		}
		word := current.String()
		current.Reset()
		if currentClass == classWord {
			word = cleanToken(word)
			if word == "" {
				return
			}
		}
		tokens = append(tokens, nlp.Token{Text: word, Lemma: strings.ToLower(word)})
	}

	for _, r := range text {
		c := classify(r)
		if c != currentClass {
			flush()
			currentClass = c
		}
		switch c {
		case classSpace:
			// whitespace never becomes a token
		case classPunct:
			tokens = append(tokens, nlp.Token{Text: string(r), Lemma: string(r), IsPunct: true})
		default:
			current.WriteRune(r)
		}
	}
	flush()

	return tokens
}

// cleanToken strips leading/trailing hyphens and apostrophes and
// normalizes consecutive hyphens.
func cleanToken(token string) string {
	token = strings.Trim(token, "-'_")

	for strings.Contains(token, "--") {
		token = strings.ReplaceAll(token, "--", "-")
	}

	return token
}

// isHan reports whether s starts with a Han character.
func isHan(s string) bool {
	for _, r := range s {
		return unicode.Is(unicode.Han, r)
	}
	return false
}
