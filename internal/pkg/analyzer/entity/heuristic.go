package entity

import (
	"context"
	"regexp"
	"strings"

	"threatlens/internal/pkg/lexicon"
	"threatlens/internal/pkg/models"
)

// Capitalization-based NER fallback used when no remote model is
// configured. It finds capitalized spans and classifies them with small
// gazetteers and context cues.
type heuristicNER struct {
	lexicon *lexicon.Store
}

var capitalizedSpan = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)

// Sentence starters and function words that capitalization alone would
// misread as names.
var commonCapitalized = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "i": {}, "he": {}, "she": {}, "it": {},
	"we": {}, "they": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"my": {}, "our": {}, "your": {}, "his": {}, "her": {}, "its": {},
	"what": {}, "when": {}, "where": {}, "who": {}, "why": {}, "how": {},
	"yes": {}, "no": {}, "not": {}, "and": {}, "but": {}, "or": {},
	"if": {}, "then": {}, "there": {}, "here": {}, "today": {}, "tomorrow": {},
}

var knownPlaces = map[string]struct{}{
	"india": {}, "pakistan": {}, "afghanistan": {}, "syria": {}, "iraq": {},
	"kashmir": {}, "delhi": {}, "mumbai": {}, "kolkata": {}, "chennai": {},
	"hyderabad": {}, "bangalore": {}, "punjab": {}, "lahore": {},
	"karachi": {}, "kabul": {}, "srinagar": {},
}

var orgMarkers = []string{"ltd", "inc", "corp", "group", "army", "front", "force", "party", "agency", "bank", "media"}

func newHeuristicNER(store *lexicon.Store) *heuristicNER {
	return &heuristicNER{lexicon: store}
}

func (h *heuristicNER) Recognize(_ context.Context, text string) ([]models.Entity, error) {
	var out []models.Entity
	for _, loc := range capitalizedSpan.FindAllStringIndex(text, -1) {
		span := text[loc[0]:loc[1]]
		lower := strings.ToLower(span)

		if len(strings.Fields(span)) == 1 {
			if _, common := commonCapitalized[lower]; common {
				continue
			}
		}

		out = append(out, models.Entity{
			Text:   span,
			Type:   h.classify(lower),
			Start:  loc[0],
			End:    loc[1],
			Source: "heuristic",
		})
	}
	return out, nil
}

func (h *heuristicNER) classify(lower string) string {
	if _, ok := knownPlaces[lower]; ok {
		return "GPE"
	}
	for _, risky := range h.lexicon.RiskyLocations {
		if strings.Contains(lower, risky) {
			return "GPE"
		}
	}
	for _, org := range h.lexicon.FlaggedOrgs {
		if strings.Contains(lower, org) {
			return "ORG"
		}
	}
	for _, marker := range orgMarkers {
		if strings.HasSuffix(lower, " "+marker) || lower == marker {
			return "ORG"
		}
	}
	return "PERSON"
}
