package lexical

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lexicon maps inflected forms to a lemma:
// "running" → "run", "mice" → "mouse".
type Lexicon struct {
	// lemma -> all forms (including lemma itself)
	forms map[string][]string

	// form -> lemma
	reverseIndex map[string]string
}

// NewLexicon creates an empty lexicon.
func NewLexicon() *Lexicon {
	return &Lexicon{
		forms:        make(map[string][]string),
		reverseIndex: make(map[string]string),
	}
}

// LoadLexicon loads lemma groups from a YAML file.
//
// Expected format:
//
//	lemmas:
//	  - lemma: run
//	    forms: [runs, running, ran]
//	  - lemma: mouse
//	    forms: [mice]
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config struct {
		Lemmas []struct {
			Lemma string   `yaml:"lemma"`
			Forms []string `yaml:"forms"`
		} `yaml:"lemmas"`
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	lex := NewLexicon()
	for _, entry := range config.Lemmas {
		lex.AddGroup(entry.Lemma, entry.Forms)
	}

	return lex, nil
}

// AddGroup adds a lemma with its forms. If the lemma already exists,
// old reverse index entries are cleaned up first.
func (l *Lexicon) AddGroup(lemma string, forms []string) {
	lemma = strings.ToLower(lemma)

	if oldForms, exists := l.forms[lemma]; exists {
		for _, f := range oldForms {
			delete(l.reverseIndex, f)
		}
	}

	normalized := make([]string, 0, len(forms)+1)
	seen := make(map[string]bool)

	normalized = append(normalized, lemma)
	seen[lemma] = true

	for _, f := range forms {
		f = strings.ToLower(f)
		if !seen[f] {
			normalized = append(normalized, f)
			seen[f] = true
		}
	}

	l.forms[lemma] = normalized

	for _, f := range normalized {
		l.reverseIndex[f] = lemma
	}
}

// Lemma returns the lemma of token, or the lower-cased token itself.
//
// Examples:
//   - Lemma("Running") -> "run"
//   - Lemma("unknown") -> "unknown"
func (l *Lexicon) Lemma(token string) string {
	token = strings.ToLower(token)
	if l == nil {
		return token
	}
	if lemma, ok := l.reverseIndex[token]; ok {
		return lemma
	}
	return token
}

// Forms returns all known forms of a token's lemma.
func (l *Lexicon) Forms(token string) []string {
	lemma := l.Lemma(token)
	if forms, ok := l.forms[lemma]; ok {
		return forms
	}
	return []string{lemma}
}

// Len returns the number of lemma groups.
func (l *Lexicon) Len() int {
	return len(l.forms)
}
