package engine

import (
	"strings"

	"threatlens/internal/pkg/models"
)

// Relative weight of each signal in the final risk score.
const (
	contentWeight   = 0.40
	sentimentWeight = 0.15
	entityWeight    = 0.15
	behaviorWeight  = 0.20
	temporalWeight  = 0.10
)

// Combines the per-signal scores into the final 0-100 risk score with a
// clamped context multiplier and suggested actions.
func (e *Engine) aggregate(req models.AnalysisRequest, contentRisk float64,
	sentiment models.SentimentProfile, entities models.EntityBundle,
	threat models.ThreatAssessment, bot *models.BotAssessment) models.AggregateRisk {

	components := map[string]float64{
		"content":   contentRisk,
		"sentiment": sentimentRisk(sentiment),
		"entities":  e.entityRisk(entities),
		"behavior":  behaviorRisk(req.Metadata),
		"temporal":  temporalRisk(req.Metadata, req.Context),
	}

	base := components["content"]*contentWeight +
		components["sentiment"]*sentimentWeight +
		components["entities"]*entityWeight +
		components["behavior"]*behaviorWeight +
		components["temporal"]*temporalWeight

	multiplier, factors := contextMultiplier(req)
	score := clamp(base*multiplier, 0, 100)
	severity := models.SeverityForScore(score)

	return models.AggregateRisk{
		Score:       score,
		Severity:    severity,
		Confidence:  overallConfidence(threat, bot),
		Components:  components,
		Multiplier:  multiplier,
		Factors:     factors,
		Mitigations: suggestedActions(severity, threat, bot, e.botLikelyThreshold),
	}
}

// Scores how much the emotional tone of the content contributes to risk.
func sentimentRisk(profile models.SentimentProfile) float64 {
	risk := 0.0

	switch {
	case profile.Negative > 0.8:
		risk += 30
	case profile.Negative > 0.6:
		risk += 20
	case profile.Negative > 0.4:
		risk += 10
	}

	for _, emotion := range []string{"anger", "disgust", "fear"} {
		switch level := profile.Emotions[emotion]; {
		case level > 0.7:
			risk += 15
		case level > 0.5:
			risk += 10
		}
	}

	switch profile.Intensity {
	case "high":
		risk *= 1.3
	case "medium":
		risk *= 1.1
	}

	// Low-confidence ensembles contribute less
	if profile.Confidence < 0.3 {
		risk *= 0.7
	}

	return clamp(risk, 0, 100)
}

// Scores the extracted entities: weapons, drugs, crypto wallets, risky
// locations, contact identifiers and flagged organizations.
func (e *Engine) entityRisk(bundle models.EntityBundle) float64 {
	risk := 0.0

	risk += float64(bundle.ByType["WEAPON"]) * 15
	risk += float64(bundle.ByType["DRUG"]) * 12
	risk += float64(bundle.ByType["CRYPTO_WALLET"]) * 8

	if bundle.ByType["PHONE"] > 2 {
		risk += 8
	}
	if bundle.ByType["EMAIL"] > 3 {
		risk += 6
	}

	for _, ent := range bundle.Entities {
		lower := strings.ToLower(ent.Text)
		switch ent.Type {
		case "GPE":
			if containsTerm(e.store.RiskyLocations, lower) {
				risk += 10
			}
		case "ORG":
			if containsTerm(e.store.FlaggedOrgs, lower) {
				risk += 25
			}
		}
	}

	return clamp(risk, 0, 100)
}

// Scores the posting account's behavior profile.
func behaviorRisk(meta *models.AccountMetadata) float64 {
	if meta == nil {
		return 0
	}
	risk := 0.0

	if meta.AccountAgeDays > 0 {
		switch {
		case meta.AccountAgeDays < 7:
			risk += 25
		case meta.AccountAgeDays < 30:
			risk += 15
		case meta.AccountAgeDays < 90:
			risk += 8
		}
	}

	switch {
	case meta.PostsPerDay > 100:
		risk += 30
	case meta.PostsPerDay > 50:
		risk += 20
	case meta.PostsPerDay > 20:
		risk += 12
	}

	if meta.Following > 0 {
		ratio := float64(meta.Followers) / float64(meta.Following)
		switch {
		case ratio < 0.05:
			risk += 20
		case ratio < 0.2:
			risk += 12
		case ratio < 0.5:
			risk += 5
		}
	}

	if meta.EngagementRate > 0 {
		if meta.EngagementRate < 0.01 {
			risk += 10
		} else if meta.EngagementRate > 0.5 {
			risk += 8
		}
	}

	if isRiskyLocation(meta.Location) {
		risk += 15
	}
	if meta.UsingVPN || meta.UsingProxy {
		risk += 10
	}

	return clamp(risk, 0, 100)
}

// Scores temporal posting signals: unusual hours plus situational flags
// supplied by the calling layer.
func temporalRisk(meta *models.AccountMetadata, contextData *models.ContextData) float64 {
	risk := 0.0

	if meta != nil {
		lateNight, earlyMorning := false, false
		for _, hour := range meta.PostingHours {
			if hour >= 2 && hour <= 5 {
				earlyMorning = true
			}
			if hour >= 22 || hour < 2 {
				lateNight = true
			}
		}
		if earlyMorning {
			risk += 8
		} else if lateNight {
			risk += 5
		}
	}

	if contextData != nil {
		if contextData.MajorEventProximity {
			risk += 12
		}
		if contextData.HolidayPeriod {
			risk += 8
		}
		if contextData.FrequencySpike {
			risk += 10
		}
		if contextData.CoordinatedTiming {
			risk += 15
		}
	}

	return clamp(risk, 0, 100)
}

// Derives the final score multiplier from content and account context,
// clamped to [0.5, 2.0].
func contextMultiplier(req models.AnalysisRequest) (float64, []string) {
	multiplier := 1.0
	var factors []string

	switch length := len(req.Content); {
	case length > 2000:
		multiplier *= 1.1
		factors = append(factors, "long-form content")
	case length < 50 && length > 0:
		multiplier *= 0.9
		factors = append(factors, "very short content")
	}

	if hasMixedScript(req.Content) {
		multiplier *= 1.05
		factors = append(factors, "mixed-script content")
	}

	if meta := req.Metadata; meta != nil {
		if meta.Verified {
			multiplier *= 0.8
			factors = append(factors, "verified account")
		}
		if meta.Followers > 10000 && meta.AccountAgeDays > 365 {
			multiplier *= 0.9
			factors = append(factors, "established account")
		}
	}

	if ctx := req.Context; ctx != nil {
		if ctx.ViralContent {
			multiplier *= 1.2
			factors = append(factors, "viral content")
		}
		if ctx.TrendingHashtags {
			multiplier *= 1.1
			factors = append(factors, "trending hashtags")
		}
	}

	return clamp(multiplier, 0.5, 2.0), factors
}

// The overall confidence is the mean of the signal confidences that exist,
// defaulting to 0.5 when no signal reported one.
func overallConfidence(threat models.ThreatAssessment, bot *models.BotAssessment) float64 {
	var confidences []float64
	if threat.Confidence > 0 {
		confidences = append(confidences, threat.Confidence)
	}
	if bot != nil && bot.Confidence > 0 {
		confidences = append(confidences, bot.Confidence)
	}
	if len(confidences) == 0 {
		return 0.5
	}
	total := 0.0
	for _, c := range confidences {
		total += c
	}
	return total / float64(len(confidences))
}

// Proposes follow-up actions for the severity band and detected signals.
func suggestedActions(severity string, threat models.ThreatAssessment,
	bot *models.BotAssessment, botThreshold float64) []string {

	var actions []string
	switch severity {
	case models.SeverityCritical:
		actions = append(actions,
			"Escalate for immediate review",
			"Preserve all digital evidence",
			"Initiate forensic investigation",
			"Place account under enhanced monitoring")
	case models.SeverityHigh:
		actions = append(actions,
			"Escalate within four hours",
			"Increase monitoring and data collection",
			"Collect additional account history",
			"Review evidence for potential action")
	case models.SeverityMedium:
		actions = append(actions,
			"Maintain regular monitoring",
			"Log activity for pattern analysis",
			"Reassess if posting patterns escalate")
	default:
		actions = append(actions,
			"Include in routine monitoring",
			"Log for future reference")
	}

	if bot != nil && bot.Score > botThreshold {
		actions = append(actions,
			"Investigate potential bot network",
			"Map related automated accounts")
	}

	for _, cat := range threat.Categories {
		if cat.Category == "terrorism" && cat.Weighted > 0 {
			actions = append(actions, "Notify national security desk")
			break
		}
	}

	return actions
}

func hasMixedScript(text string) bool {
	var latin, other bool
	for _, r := range text {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			latin = true
		case r >= 0x0900 && r <= 0x097F, r >= 0x0600 && r <= 0x06FF:
			other = true
		}
	}
	return latin && other
}

func isRiskyLocation(location string) bool {
	if location == "" {
		return false
	}
	lower := strings.ToLower(location)
	for _, risky := range riskyAccountLocations {
		if strings.Contains(lower, risky) {
			return true
		}
	}
	return false
}

var riskyAccountLocations = []string{"pakistan", "afghanistan", "syria", "iraq", "disputed region"}

func containsTerm(list []string, term string) bool {
	for _, item := range list {
		if strings.Contains(term, item) || item == term {
			return true
		}
	}
	return false
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
