package language

import (
	"strings"
	"sync"
	"unicode"

	"github.com/pemistahl/lingua-go"
	"go.uber.org/zap"
	"threatlens/internal/pkg/logger"
	"threatlens/internal/pkg/metrics"
	"threatlens/internal/pkg/models"
)

// Identifies the dominant script and language of a post.
type Detector interface {
	Detect(text string) models.LanguageResult
}

type detector struct {
	lingua lingua.LanguageDetector
	once   sync.Once
}

// Creates a detector. The underlying statistical models load lazily on the
// first Latin-script text, so construction stays cheap.
func NewDetector() Detector {
	return &detector{}
}

// Counts runes per script family. Devanagari, Arabic and Latin cover the
// traffic this pipeline sees; anything else is left uncounted.
func countScripts(text string) (latin, devanagari, arabic int) {
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Latin, r):
			latin++
		case r >= 0x0900 && r <= 0x097F:
			devanagari++
		case r >= 0x0600 && r <= 0x06FF:
			arabic++
		}
	}
	return
}

func (d *detector) Detect(text string) models.LanguageResult {
	latin, devanagari, arabic := countScripts(text)
	total := latin + devanagari + arabic

	if total == 0 {
		return models.LanguageResult{Language: "unknown", Script: "unknown"}
	}

	latinPct := float64(latin) / float64(total)
	devanagariPct := float64(devanagari) / float64(total)
	arabicPct := float64(arabic) / float64(total)

	// A script is significant once it holds more than a fifth of the
	// counted runes. Two significant scripts mean mixed content.
	significant := 0
	for _, pct := range []float64{latinPct, devanagariPct, arabicPct} {
		if pct > 0.2 {
			significant++
		}
	}
	mixed := significant > 1

	switch {
	case devanagariPct >= latinPct && devanagariPct >= arabicPct:
		return models.LanguageResult{Language: "hi", Script: "devanagari", Confidence: devanagariPct, Mixed: mixed}
	case arabicPct >= latinPct:
		return models.LanguageResult{Language: "ur", Script: "arabic", Confidence: arabicPct, Mixed: mixed}
	}

	// Latin script dominates. Script ratios alone cannot tell English from
	// romanized Hindi or other Latin-script languages, so confirm with the
	// statistical detector when the text is long enough to be reliable.
	result := models.LanguageResult{Language: "en", Script: "latin", Confidence: latinPct, Mixed: mixed}

	const minTextLength = 20
	if len(strings.TrimSpace(text)) < minTextLength {
		return result
	}

	d.once.Do(func() {
		d.lingua = lingua.NewLanguageDetectorBuilder().
			FromLanguages(lingua.English, lingua.Hindi, lingua.Urdu, lingua.Bengali, lingua.Tamil, lingua.Telugu, lingua.Gujarati).
			Build()
	})

	detected, exists := d.lingua.DetectLanguageOf(text)
	if !exists {
		metrics.LanguageDetectionFailures.Inc()
		return result
	}

	var confidence float64
	for _, conf := range d.lingua.ComputeLanguageConfidenceValues(text) {
		if conf.Language() == detected {
			confidence = conf.Value()
			break
		}
	}

	logger.Log.Debug("Language detection result",
		zap.String("detected_language", detected.String()),
		zap.Float64("confidence", confidence))

	result.Language = strings.ToLower(detected.IsoCode639_1().String())
	if confidence > 0 {
		result.Confidence = confidence
	}
	return result
}
