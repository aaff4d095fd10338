package threat

import (
	"fmt"
	"sort"
	"strings"

	"threatlens/internal/pkg/models"
)

// Classification phrasing per category and severity band.
var classifications = map[string]map[string]string{
	"terrorism": {
		"high":   "Critical Terrorism Threat",
		"medium": "Potential Terrorism Activity",
		"low":    "Terrorism-Related Content",
	},
	"anti_national": {
		"high":   "Confirmed Anti-National Activity",
		"medium": "Suspected Anti-National Content",
		"low":    "Anti-National Indicators",
	},
	"violence": {
		"high":   "Imminent Violence Threat",
		"medium": "Violence Incitement",
		"low":    "Violence-Related Content",
	},
	"hate_speech": {
		"high":   "Severe Hate Speech",
		"medium": "Discriminatory Content",
		"low":    "Prejudicial Language",
	},
	"cybercrime": {
		"high":   "Active Cybercrime",
		"medium": "Cybercrime Planning",
		"low":    "Cybercrime References",
	},
	"drugs": {
		"high":   "Drug Trafficking Activity",
		"medium": "Drug Distribution Content",
		"low":    "Drug-Related Discussion",
	},
	"radicalization": {
		"high":   "Active Radicalization",
		"medium": "Radicalization Content",
		"low":    "Extremist Ideology",
	},
}

// Classify names the dominant threat category. Keyword tiers weigh 3/2/1
// here rather than the score weights, so classification tracks evidence
// density instead of raw risk.
func (a *Analyzer) Classify(text string, meta *models.AccountMetadata) (string, string) {
	if strings.TrimSpace(text) == "" {
		return "No Threat Detected", ""
	}

	lower := strings.ToLower(text)
	scores := make(map[string]float64)
	for category, hits := range a.groupHits(text) {
		score := 0.0
		for _, h := range hits {
			weight := classifyWeight(h.Tier)
			score += weight * a.ContextMultiplier(text, h.Keyword)
		}

		// Domain-specific context boosts
		switch category {
		case "terrorism":
			if meta != nil {
				location := strings.ToLower(meta.Location)
				for _, risky := range []string{"afghanistan", "pakistan", "syria"} {
					if location == risky {
						score *= 1.5
						break
					}
				}
			}
		case "cybercrime":
			if strings.Contains(lower, "bitcoin") {
				score *= 1.3
			}
		}
		scores[category] = score
	}

	primary, best := "", 0.0
	for category, score := range scores {
		if score > best || (score == best && category < primary) {
			primary, best = category, score
		}
	}
	if best == 0 {
		return "No Threat Detected", ""
	}

	severity := "low"
	switch {
	case best >= 8:
		severity = "high"
	case best >= 4:
		severity = "medium"
	}

	classification, ok := classifications[primary][severity]
	if !ok {
		classification = fmt.Sprintf("Unclassified %s Threat", primary)
	}

	var secondary []string
	for category, score := range scores {
		if score > 0 && category != primary {
			secondary = append(secondary, category)
		}
	}
	if len(secondary) > 0 {
		sort.Strings(secondary)
		if len(secondary) > 2 {
			secondary = secondary[:2]
		}
		classification += " (Secondary: " + strings.Join(secondary, ", ") + ")"
	}
	return classification, severity
}

func classifyWeight(tier string) float64 {
	switch tier {
	case "high":
		return 3
	case "medium":
		return 2
	default:
		return 1
	}
}
