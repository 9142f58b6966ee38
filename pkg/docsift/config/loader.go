package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/docsift/pkg/docsift/nlp"
	"github.com/cognicore/docsift/pkg/docsift/nlp/lexical"
)

// Stoplist represents the stopword list configuration
type Stoplist struct {
	Terms []string `yaml:"terms"`
}

// LoadStoplist loads stopwords from a YAML file
func LoadStoplist(path string) (*Stoplist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sl Stoplist
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, err
	}

	return &sl, nil
}

// Loader loads word-list files and builds the lexical analyzer. Every
// path is optional; an empty Loader yields the built-in analyzer.
type Loader struct {
	StoplistPaths    map[string]string
	LexiconPaths     map[string]string
	ValencePath      string
	GazetteerPath    string
	DisableSentiment bool
	Fallback         string
}

// Load reads all configured files and returns the analyzer.
func (l *Loader) Load() (*lexical.Analyzer, error) {
	opts := lexical.Options{DisableSentiment: l.DisableSentiment}
	if l.Fallback != "" {
		opts.Fallback = nlp.NormalizeCode(l.Fallback)
	}

	// Load stoplists
	if len(l.StoplistPaths) > 0 {
		opts.Stoplists = make(map[nlp.Language]*lexical.Stoplist)
		for _, lang := range sortedKeys(l.StoplistPaths) {
			sl, err := LoadStoplist(l.StoplistPaths[lang])
			if err != nil {
				return nil, fmt.Errorf("load stoplist %s: %w", lang, err)
			}
			opts.Stoplists[nlp.NormalizeCode(lang)] = lexical.NewStoplist(sl.Terms)
		}
		if _, ok := opts.Stoplists[nlp.Chinese]; !ok {
			opts.Stoplists[nlp.Chinese] = lexical.NewStoplist(nil)
		}
	}

	// Load lexicons
	if len(l.LexiconPaths) > 0 {
		opts.Lexicons = make(map[nlp.Language]*lexical.Lexicon)
		for _, lang := range sortedKeys(l.LexiconPaths) {
			lex, err := lexical.LoadLexicon(l.LexiconPaths[lang])
			if err != nil {
				return nil, fmt.Errorf("load lexicon %s: %w", lang, err)
			}
			opts.Lexicons[nlp.NormalizeCode(lang)] = lex
		}
	}

	if l.ValencePath != "" && !l.DisableSentiment {
		valence, err := lexical.LoadValence(l.ValencePath)
		if err != nil {
			return nil, fmt.Errorf("load valence: %w", err)
		}
		opts.Valence = valence
	}

	if l.GazetteerPath != "" {
		g, err := lexical.LoadGazetteer(l.GazetteerPath)
		if err != nil {
			return nil, fmt.Errorf("load gazetteer: %w", err)
		}
		opts.Gazetteer = g
	}

	return lexical.New(opts), nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
