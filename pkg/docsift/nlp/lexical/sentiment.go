package lexical

import (
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/docsift/pkg/docsift/nlp"
)

const (
	// normalization constant for the compound score: x / sqrt(x² + alpha)
	compoundAlpha = 15.0

	// scalar applied to a valence preceded by a negator
	negationScalar = -0.74

	// how many tokens back a negator still applies
	negationWindow = 3

	boosterIncrement = 0.293
)

var negators = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "none": {}, "nobody": {}, "nothing": {},
	"neither": {}, "nor": {}, "cannot": {}, "can't": {}, "don't": {}, "doesn't": {},
	"didn't": {}, "isn't": {}, "wasn't": {}, "aren't": {}, "won't": {}, "without": {},
	"不": {}, "没": {}, "没有": {}, "别": {},
}

var boosters = map[string]float64{
	"very": boosterIncrement, "really": boosterIncrement, "extremely": boosterIncrement,
	"absolutely": boosterIncrement, "incredibly": boosterIncrement, "so": boosterIncrement,
	"slightly": -boosterIncrement, "somewhat": -boosterIncrement, "barely": -boosterIncrement,
	"很": boosterIncrement, "非常": boosterIncrement,
}

// defaultValence is a small polarity lexicon used when no valence file
// is configured. Values follow the usual -4..+4 rating scale.
var defaultValence = map[string]float64{
	"good": 1.9, "great": 3.1, "excellent": 2.7, "amazing": 2.8, "happy": 2.7,
	"love": 3.2, "like": 1.5, "nice": 1.8, "wonderful": 2.7, "best": 3.2,
	"positive": 2.3, "success": 2.7, "successful": 2.8, "win": 2.8, "glad": 2.0,
	"bad": -2.5, "terrible": -2.1, "awful": -2.0, "horrible": -2.5, "hate": -2.7,
	"sad": -2.1, "worst": -3.1, "poor": -2.1, "negative": -2.7, "fail": -2.5,
	"failure": -2.3, "angry": -2.3, "problem": -1.7, "wrong": -2.1, "broken": -1.8,
	"好": 1.9, "喜欢": 2.0, "优秀": 2.7, "快乐": 2.7, "成功": 2.7,
	"坏": -2.5, "讨厌": -2.7, "失败": -2.3, "糟糕": -2.5, "难过": -2.1,
}

// Scorer computes lexicon-based sentiment in the style of rule-based
// valence scoring: per-token valences with booster and negation handling,
// normalized into a compound score in [-1, 1].
type Scorer struct {
	tokenizer *Tokenizer
	valence   map[string]float64
}

// NewScorer creates a scorer. A nil or empty valence map selects the
// built-in lexicon.
func NewScorer(valence map[string]float64) *Scorer {
	if len(valence) == 0 {
		valence = defaultValence
	}
	v := make(map[string]float64, len(valence))
	for w, s := range valence {
		v[strings.ToLower(w)] = s
	}
	return &Scorer{tokenizer: NewTokenizer(), valence: v}
}

// LoadValence reads a YAML valence file:
//
//	words:
//	  good: 1.9
//	  bad: -2.5
func LoadValence(path string) (map[string]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var config struct {
		Words map[string]float64 `yaml:"words"`
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	return config.Words, nil
}

// Sentiment scores text.
func (s *Scorer) Sentiment(text string) (nlp.Sentiment, error) {
	var words []string
	exclamations := 0
	for _, tok := range s.tokenizer.Tokenize(text) {
		if tok.IsPunct {
			if tok.Text == "!" || tok.Text == "！" {
				exclamations++
			}
			continue
		}
		if isHan(tok.Text) {
			words = append(words, s.segment(tok.Text)...)
			continue
		}
		words = append(words, tok.Lemma)
	}

	var valences []float64
	for i, w := range words {
		v, ok := s.valence[w]
		if !ok {
			valences = append(valences, 0)
			continue
		}
		if i > 0 {
			if b, ok := boosters[words[i-1]]; ok {
				if v > 0 {
					v += b
				} else {
					v -= b
				}
			}
		}
		for j := i - 1; j >= 0 && j >= i-negationWindow; j-- {
			if _, ok := negators[words[j]]; ok {
				v *= negationScalar
				break
			}
		}
		valences = append(valences, v)
	}

	return scoreValences(valences, exclamations), nil
}

func scoreValences(valences []float64, exclamations int) nlp.Sentiment {
	if len(valences) == 0 {
		return nlp.Sentiment{}
	}

	sum := 0.0
	for _, v := range valences {
		sum += v
	}

	// exclamation marks amplify whatever polarity is present, capped at 4
	if exclamations > 4 {
		exclamations = 4
	}
	emphasis := float64(exclamations) * 0.292
	if sum > 0 {
		sum += emphasis
	} else if sum < 0 {
		sum -= emphasis
	}

	compound := 0.0
	if sum != 0 {
		compound = sum / math.Sqrt(sum*sum+compoundAlpha)
		compound = math.Max(-1, math.Min(1, compound))
	}

	var posSum, negSum float64
	neutral := 0
	for _, v := range valences {
		switch {
		case v > 0:
			posSum += v + 1
		case v < 0:
			negSum += v - 1
		default:
			neutral++
		}
	}
	total := posSum + math.Abs(negSum) + float64(neutral)
	if total == 0 {
		return nlp.Sentiment{}
	}

	return nlp.Sentiment{
		Neg:      round3(math.Abs(negSum) / total),
		Neu:      round3(float64(neutral) / total),
		Pos:      round3(posSum / total),
		Compound: round4(compound),
	}
}

// maxSegmentRunes bounds dictionary lookups when segmenting Han text.
const maxSegmentRunes = 4

// segment splits a run of Han characters by forward maximum matching
// against the scorer's dictionaries; unknown characters stand alone.
func (s *Scorer) segment(run string) []string {
	runes := []rune(run)
	var out []string
	for i := 0; i < len(runes); {
		n := maxSegmentRunes
		if rest := len(runes) - i; n > rest {
			n = rest
		}
		for ; n > 1; n-- {
			if s.known(string(runes[i : i+n])) {
				break
			}
		}
		out = append(out, string(runes[i:i+n]))
		i += n
	}
	return out
}

func (s *Scorer) known(w string) bool {
	if _, ok := s.valence[w]; ok {
		return true
	}
	if _, ok := negators[w]; ok {
		return true
	}
	_, ok := boosters[w]
	return ok
}

func round3(x float64) float64 { return math.Round(x*1000) / 1000 }
func round4(x float64) float64 { return math.Round(x*10000) / 10000 }
