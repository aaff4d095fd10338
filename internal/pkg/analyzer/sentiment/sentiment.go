package sentiment

import (
	"math"
	"strings"

	"github.com/jonreiter/govader"
	"threatlens/internal/pkg/lexicon"
	"threatlens/internal/pkg/models"
)

// Model is one member of the sentiment ensemble. Score reports per-class
// probabilities plus a compound polarity in [-1, 1]; applicable is false
// when the model cannot judge the given text.
type Model interface {
	Name() string
	Weight() float64
	Score(text string, lang models.LanguageResult) (scores ModelScores, applicable bool)
}

// ModelScores is one model's raw output before ensemble weighting.
type ModelScores struct {
	Positive float64
	Negative float64
	Neutral  float64
	Compound float64
}

// Combines ensemble polarity with lexical emotion detection.
type Analyzer struct {
	models  []Model
	lexicon *lexicon.Store
}

// Creates an analyzer with the default ensemble: VADER for Latin-script
// social media text and the emotion lexicon's polarity model as the
// always-available fallback.
func NewAnalyzer(store *lexicon.Store, extra ...Model) *Analyzer {
	models := []Model{
		newVaderModel(),
		newLexiconModel(store),
	}
	models = append(models, extra...)
	return &Analyzer{models: models, lexicon: store}
}

// Runs the ensemble and emotion pass over one text.
func (a *Analyzer) Analyze(text string, lang models.LanguageResult) models.SentimentProfile {
	// Starts as the zero-value profile: with no model votes (empty or
	// unanalyzable text) every score stays 0 and confidence stays 0.
	profile := models.SentimentProfile{
		Label:       "neutral",
		Intensity:   "low",
		ModelScores: make(map[string]float64),
	}

	var totalWeight, pos, neg, neu, compound float64
	for _, m := range a.models {
		scores, ok := m.Score(text, lang)
		if !ok {
			continue
		}
		w := m.Weight()
		totalWeight += w
		pos += scores.Positive * w
		neg += scores.Negative * w
		neu += scores.Neutral * w
		compound += scores.Compound * w
		profile.ModelScores[m.Name()] = scores.Compound
	}

	if totalWeight > 0 {
		profile.Positive = pos / totalWeight
		profile.Negative = neg / totalWeight
		profile.Neutral = neu / totalWeight
		profile.Compound = compound / totalWeight
		profile.Subjectivity = min(profile.Positive+profile.Negative, 1)

		switch {
		case profile.Compound >= 0.05:
			profile.Label = "positive"
			profile.Confidence = profile.Positive
		case profile.Compound <= -0.05:
			profile.Label = "negative"
			profile.Confidence = profile.Negative
		default:
			profile.Label = "neutral"
			profile.Confidence = profile.Neutral
		}

		switch {
		case math.Abs(profile.Compound) >= 0.7:
			profile.Intensity = "high"
		case math.Abs(profile.Compound) >= 0.4:
			profile.Intensity = "medium"
		}
	}

	profile.Emotions = a.scoreEmotions(text, lang)
	best := 0.0
	for emotion, score := range profile.Emotions {
		if score > best {
			best = score
			profile.TopEmotion = emotion
		}
	}
	return profile
}

// Scores each emotion as the share of emotion-lexicon words in the text,
// scaled so a sprinkling of matches already registers.
func (a *Analyzer) scoreEmotions(text string, lang models.LanguageResult) map[string]float64 {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return map[string]float64{}
	}

	langKey := "en"
	if lang.Script == "devanagari" {
		langKey = "hi"
	}
	emotionWords, ok := a.lexicon.Emotions[langKey]
	if !ok {
		return map[string]float64{}
	}

	lower := strings.ToLower(text)
	scores := make(map[string]float64, len(emotionWords))
	for emotion, vocab := range emotionWords {
		count := 0
		for _, w := range vocab {
			count += strings.Count(lower, strings.ToLower(w))
		}
		if count == 0 {
			continue
		}
		score := float64(count) / float64(len(words)) * 10
		if score > 1 {
			score = 1
		}
		scores[emotion] = score
	}
	return scores
}

// VADER model, tuned for short social media text. Only judges texts whose
// dominant script is Latin.
type vaderModel struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func newVaderModel() *vaderModel {
	return &vaderModel{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

func (v *vaderModel) Name() string    { return "vader" }
func (v *vaderModel) Weight() float64 { return 0.3 }

func (v *vaderModel) Score(text string, lang models.LanguageResult) (ModelScores, bool) {
	if strings.TrimSpace(text) == "" {
		return ModelScores{}, false
	}
	if lang.Script != "latin" && !lang.Mixed {
		return ModelScores{}, false
	}
	s := v.analyzer.PolarityScores(text)
	return ModelScores{
		Positive: s.Positive,
		Negative: s.Negative,
		Neutral:  s.Neutral,
		Compound: s.Compound,
	}, true
}

// Lexicon polarity model. Counts emotion vocabulary in any supported
// language, so it covers Devanagari text that VADER cannot read.
type lexiconModel struct {
	store *lexicon.Store
}

func newLexiconModel(store *lexicon.Store) *lexiconModel {
	return &lexiconModel{store: store}
}

func (l *lexiconModel) Name() string    { return "emotion_lexicon" }
func (l *lexiconModel) Weight() float64 { return 0.25 }

func (l *lexiconModel) Score(text string, lang models.LanguageResult) (ModelScores, bool) {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return ModelScores{}, false
	}

	langKey := "en"
	if lang.Script == "devanagari" {
		langKey = "hi"
	}
	vocab, ok := l.store.Emotions[langKey]
	if !ok {
		return ModelScores{}, false
	}

	lower := strings.ToLower(text)
	posCount, negCount := 0, 0
	for emotion, terms := range vocab {
		for _, term := range terms {
			n := strings.Count(lower, strings.ToLower(term))
			switch emotion {
			case "joy", "surprise":
				posCount += n
			case "anger", "fear", "sadness", "disgust":
				negCount += n
			}
		}
	}

	total := posCount + negCount
	if total == 0 {
		// No emotional vocabulary at all still counts as a neutral vote.
		return ModelScores{Neutral: 1}, true
	}

	pos := float64(posCount) / float64(total)
	neg := float64(negCount) / float64(total)
	density := float64(total) / float64(len(words))
	if density > 1 {
		density = 1
	}
	return ModelScores{
		Positive: pos * density,
		Negative: neg * density,
		Neutral:  1 - density,
		Compound: (pos - neg) * density,
	}, true
}
