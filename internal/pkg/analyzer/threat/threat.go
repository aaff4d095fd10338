package threat

import (
	"fmt"
	"sort"
	"strings"

	"threatlens/internal/pkg/lexicon"
	"threatlens/internal/pkg/models"
)

const (
	threatCategoryCap  = 60.0
	contentCategoryCap = 40.0
	patternScale       = 30.0
)

// Scores keyword, pattern, sentiment and account signals into a threat
// assessment.
type Analyzer struct {
	lexicon *lexicon.Store
	matcher *lexicon.Matcher
}

func NewAnalyzer(store *lexicon.Store) *Analyzer {
	return &Analyzer{
		lexicon: store,
		matcher: lexicon.NewMatcher(store),
	}
}

// Assess runs the focused threat scoring over one text. Sentiment must come
// from the same text; metadata is optional.
func (a *Analyzer) Assess(text string, sentiment models.SentimentProfile, meta *models.AccountMetadata) models.ThreatAssessment {
	assessment := models.ThreatAssessment{}
	if strings.TrimSpace(text) == "" {
		assessment.Severity = models.SeverityMinimal
		return assessment
	}

	score := 0.0
	var evidence []string
	var subcategories []string

	// Keyword analysis across every lexicon category. Low-tier keywords
	// only count as much as their surrounding context allows; each
	// category is capped before its importance weight is applied.
	hitsByCategory := a.groupHits(text)
	var orderedCategories []string
	for category := range hitsByCategory {
		orderedCategories = append(orderedCategories, category)
	}
	sort.Strings(orderedCategories)

	probabilities := make(map[string]float64, len(orderedCategories))
	for _, category := range orderedCategories {
		hits := hitsByCategory[category]
		catScore := models.CategoryScore{Category: category}
		for _, h := range hits {
			weight := lexicon.TierWeight(h.Tier)
			multiplier := 1.0
			if h.Tier == "low" {
				multiplier = a.ContextMultiplier(text, h.Keyword)
			}
			scored := weight * multiplier
			catScore.Raw += scored
			catScore.Hits = append(catScore.Hits, models.KeywordHit{
				Keyword:    h.Keyword,
				Category:   category,
				Tier:       h.Tier,
				Position:   h.Position,
				Multiplier: multiplier,
				Score:      scored,
			})
			evidence = append(evidence, fmt.Sprintf("%s keyword detected: %q (tier: %s)", category, h.Keyword, h.Tier))
		}
		capped := min(catScore.Raw, threatCategoryCap)
		catScore.Weighted = capped * a.lexicon.CategoryWeight(category)
		probabilities[category] = capped / threatCategoryCap
		score += catScore.Weighted
		subcategories = append(subcategories, category)
		assessment.Categories = append(assessment.Categories, catScore)
	}
	if len(probabilities) > 0 {
		assessment.Probabilities = probabilities
	}

	// Pattern analysis catches coded phrasing across all categories.
	lower := strings.ToLower(text)
	for _, p := range a.lexicon.Patterns {
		matches := p.Re.FindAllString(lower, -1)
		if len(matches) == 0 {
			continue
		}
		patternScore := float64(len(matches)) * p.Weight * patternScale
		score += patternScore
		evidence = append(evidence, fmt.Sprintf("pattern detected: %s (severity: %s)", p.Label, p.Severity))
		assessment.Categories = appendPattern(assessment.Categories, "anti_national", p.Label)
	}

	// Sentiment amplification
	if sentiment.Negative > 0.7 {
		score += 15
		assessment.SentimentAmp += 15
		evidence = append(evidence, fmt.Sprintf("highly negative sentiment (%.2f)", sentiment.Negative))
	}
	var hostile []string
	for _, emotion := range []string{"anger", "disgust"} {
		if sentiment.Emotions[emotion] > 0.6 {
			hostile = append(hostile, emotion)
		}
	}
	if len(hostile) > 0 {
		score += 10
		assessment.SentimentAmp += 10
		evidence = append(evidence, "hostile emotions detected: "+strings.Join(hostile, ", "))
	}

	// Account metadata risk
	if meta != nil {
		signals := a.metadataRisk(meta)
		score += signals.risk
		assessment.MetadataRisk = signals.risk
		evidence = append(evidence, signals.evidence...)
		assessment.GeoIndicators = signals.geographic
		assessment.TemporalIndicators = signals.temporal
		assessment.NetworkIndicators = signals.network
	}

	assessment.Score = min(score, 100)
	assessment.Severity = models.SeverityForScore(assessment.Score)
	assessment.Subcategories = subcategories
	assessment.Evidence = evidence

	keywordCount := 0
	for _, cat := range assessment.Categories {
		keywordCount += len(cat.Hits)
	}
	assessment.Confidence = confidence(len(evidence), keywordCount, sentiment.Confidence, len(subcategories))

	assessment.ThreatType, assessment.TypeSeverity = a.Classify(text, meta)
	return assessment
}

// ContentRisk scores every lexicon category with its category weight and a
// tighter per-category cap. This is the aggregator's content component.
func (a *Analyzer) ContentRisk(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}

	risk := 0.0
	for category, hits := range a.groupHits(text) {
		catRisk := 0.0
		for _, h := range hits {
			catRisk += lexicon.TierWeight(h.Tier) * a.ContextMultiplier(text, h.Keyword)
		}
		risk += min(catRisk*a.lexicon.CategoryWeight(category), contentCategoryCap)
	}
	return min(risk, 100)
}

// ContextMultiplier inspects a window around each keyword occurrence and
// scales the keyword's weight by what it finds: planning vocabulary raises
// it, negation and fiction markers lower it, questions soften it and
// exclamations sharpen it. The result is the mean across occurrences,
// each clamped to [0, 2].
func (a *Analyzer) ContextMultiplier(text, keyword string) float64 {
	const window = 50

	lower := strings.ToLower(text)
	keyword = strings.ToLower(keyword)

	var scores []float64
	start := 0
	for {
		pos := strings.Index(lower[start:], keyword)
		if pos < 0 {
			break
		}
		pos += start
		start = pos + 1

		from := max(0, pos-window)
		to := min(len(lower), pos+len(keyword)+window)
		context := lower[from:to]

		score := 1.0
		for amp := range a.lexicon.Amplifiers {
			if strings.Contains(context, amp) {
				score += 0.2
			}
		}
		for dim := range a.lexicon.Diminishers {
			if strings.Contains(context, dim) {
				score -= 0.3
			}
		}
		if strings.Contains(context, "?") {
			score *= 0.7
		}
		if strings.Contains(context, "!") {
			score *= 1.2
		}
		scores = append(scores, clamp(score, 0, 2))
	}

	if len(scores) == 0 {
		return 1.0
	}
	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

func (a *Analyzer) groupHits(text string) map[string][]lexicon.Hit {
	grouped := make(map[string][]lexicon.Hit)
	for _, h := range a.matcher.Match(text) {
		grouped[h.Category] = append(grouped[h.Category], h)
	}
	return grouped
}

// metadataSignals groups the account risk score with its indicators split
// by dimension for the assessment's indicator lists.
type metadataSignals struct {
	risk       float64
	evidence   []string
	geographic []string
	temporal   []string
	network    []string
}

func (s *metadataSignals) add(points float64, kind string, detail string) {
	s.risk += points
	s.evidence = append(s.evidence, detail)
	switch kind {
	case "geographic":
		s.geographic = append(s.geographic, detail)
	case "temporal":
		s.temporal = append(s.temporal, detail)
	case "network":
		s.network = append(s.network, detail)
	}
}

func (a *Analyzer) metadataRisk(meta *models.AccountMetadata) metadataSignals {
	var signals metadataSignals

	age := meta.AccountAgeDays
	switch {
	case age > 0 && age < 7:
		signals.add(20, "temporal", "very new account")
	case age > 0 && age < 30:
		signals.add(10, "temporal", "new account")
	}

	switch {
	case meta.PostsPerDay > 100:
		signals.add(25, "temporal", "extremely high posting frequency")
	case meta.PostsPerDay > 50:
		signals.add(15, "temporal", "high posting frequency")
	}

	if meta.Following > 0 {
		ratio := float64(meta.Followers) / float64(meta.Following)
		if ratio < 0.1 {
			signals.add(15, "network", "low follower ratio")
		}
	}

	location := strings.ToLower(meta.Location)
	for _, risky := range a.lexicon.RiskyLocations {
		if strings.Contains(location, risky) {
			signals.add(20, "geographic", "high-risk geographic location: "+location)
			break
		}
	}

	if meta.UsingVPN {
		signals.add(10, "network", "VPN usage detected")
	}
	if meta.Anonymous {
		signals.add(15, "network", "anonymous posting pattern")
	}

	return signals
}

func confidence(evidenceCount, keywordCount int, sentimentConfidence float64, subcategoryCount int) float64 {
	c := float64(evidenceCount)*0.1 +
		float64(keywordCount)*0.05 +
		sentimentConfidence*0.3 +
		float64(subcategoryCount)/3*0.2
	return min(c, 0.95)
}

func appendPattern(categories []models.CategoryScore, category, label string) []models.CategoryScore {
	for i := range categories {
		if categories[i].Category == category {
			categories[i].Patterns = append(categories[i].Patterns, label)
			return categories
		}
	}
	return append(categories, models.CategoryScore{Category: category, Patterns: []string{label}})
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
