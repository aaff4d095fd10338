package entity

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
	"threatlens/internal/pkg/lexicon"
	"threatlens/internal/pkg/logger"
	"threatlens/internal/pkg/models"
)

// NERModel produces named entities (persons, organizations, places) for a
// text. Pattern-based identifiers are extracted locally regardless of which
// model is plugged in.
type NERModel interface {
	Recognize(ctx context.Context, text string) ([]models.Entity, error)
}

// Extracts identifiers, named entities and entity relationships.
type Extractor struct {
	lexicon *lexicon.Store
	ner     NERModel
}

// Compiled identifier patterns. Indian formats dominate because that is the
// traffic this pipeline is built for.
var identifierPatterns = []struct {
	typ string
	re  *regexp.Regexp
}{
	{"PHONE", regexp.MustCompile(`(?:\+91|91|0)?[6-9]\d{9}`)},
	{"EMAIL", regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)},
	{"URL", regexp.MustCompile(`https?://[^\s]+`)},
	{"ID_AADHAAR", regexp.MustCompile(`\b\d{4}\s?\d{4}\s?\d{4}\b`)},
	{"ID_PAN", regexp.MustCompile(`\b[A-Z]{5}\d{4}[A-Z]\b`)},
	{"VEHICLE", regexp.MustCompile(`\b[A-Z]{2}\s?\d{2}\s?[A-Z]{1,2}\s?\d{4}\b`)},
	{"IFSC", regexp.MustCompile(`\b[A-Z]{4}0[A-Z0-9]{6}\b`)},
	{"CRYPTO_WALLET", regexp.MustCompile(`\b[13][a-km-zA-HJ-NP-Z1-9]{25,34}\b`)},
	{"CRYPTO_WALLET", regexp.MustCompile(`\b0x[a-fA-F0-9]{40}\b`)},
	{"HANDLE", regexp.MustCompile(`@[A-Za-z0-9_]+`)},
	{"HASHTAG", regexp.MustCompile(`#[A-Za-z0-9_]+`)},
	{"IP", regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)},
}

var relationshipPatterns = []struct {
	predicate string
	re        *regexp.Regexp
}{
	{"EMPLOYED_BY", regexp.MustCompile(`(?i)(\w+)\s+(?:works for|employed by|member of)\s+(\w+)`)},
	{"CONTACTED", regexp.MustCompile(`(?i)(\w+)\s+(?:met|spoke with|contacted)\s+(\w+)`)},
	{"LOCATED_IN", regexp.MustCompile(`(?i)(\w+)\s+(?:lives in|located in|from)\s+(\w+)`)},
	{"OWNS", regexp.MustCompile(`(?i)(\w+)\s+(?:owns|possesses|has)\s+(\w+)`)},
	{"ASSOCIATED_WITH", regexp.MustCompile(`(?i)(\w+)\s+(?:and|with)\s+(\w+)`)},
}

// Creates an extractor. A nil NER model falls back to the built-in
// capitalization heuristic.
func NewExtractor(store *lexicon.Store, ner NERModel) *Extractor {
	if ner == nil {
		ner = newHeuristicNER(store)
	}
	return &Extractor{lexicon: store, ner: ner}
}

// Runs all extraction passes over one text.
func (e *Extractor) Extract(ctx context.Context, text string) models.EntityBundle {
	bundle := models.EntityBundle{ByType: make(map[string]int)}
	if strings.TrimSpace(text) == "" {
		return bundle
	}

	bundle.Entities = append(bundle.Entities, e.extractIdentifiers(text)...)
	bundle.Entities = append(bundle.Entities, e.extractDomainTerms(text)...)

	named, err := e.ner.Recognize(ctx, text)
	if err != nil {
		// Pattern results still stand when the NER model is unavailable.
		logger.Log.Warn("NER model failed, keeping pattern entities only", zap.Error(err))
	} else {
		bundle.Entities = append(bundle.Entities, named...)
	}

	bundle.Entities = dedupe(bundle.Entities)
	scoreConfidence(text, bundle.Entities)

	for _, ent := range bundle.Entities {
		bundle.ByType[ent.Type]++
	}
	bundle.Relationships = extractRelationships(text)
	return bundle
}

func (e *Extractor) extractIdentifiers(text string) []models.Entity {
	var out []models.Entity
	for _, p := range identifierPatterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			out = append(out, models.Entity{
				Text:   text[loc[0]:loc[1]],
				Type:   p.typ,
				Start:  loc[0],
				End:    loc[1],
				Source: "pattern",
			})
		}
	}
	return out
}

// Flags weapon and narcotics vocabulary as entities so reports can list
// them alongside persons and places.
func (e *Extractor) extractDomainTerms(text string) []models.Entity {
	lower := strings.ToLower(text)
	var out []models.Entity

	scan := func(category, entityType string, groups []string) {
		cat, ok := e.lexicon.Categories[category]
		if !ok {
			return
		}
		for _, g := range cat.Groups {
			if len(groups) > 0 && !contains(groups, g.Name) {
				continue
			}
			for _, kw := range g.Keywords {
				term := strings.ToLower(kw)
				pos := strings.Index(lower, term)
				if pos < 0 {
					continue
				}
				out = append(out, models.Entity{
					Text:   kw,
					Type:   entityType,
					Start:  pos,
					End:    pos + len(term),
					Source: "gazetteer",
				})
			}
		}
	}

	scan("violence", "WEAPON", []string{"weapons"})
	scan("drugs", "DRUG", []string{"substances"})
	return out
}

func extractRelationships(text string) []models.Relationship {
	var out []models.Relationship
	for _, rp := range relationshipPatterns {
		for _, m := range rp.re.FindAllStringSubmatch(text, -1) {
			if len(m) != 3 {
				continue
			}
			out = append(out, models.Relationship{
				Subject:    m[1],
				Predicate:  rp.predicate,
				Object:     m[2],
				Confidence: 0.6,
			})
		}
	}
	return out
}

// Confidence starts at 0.5 and grows with capitalization, multi-word spans
// and repeated occurrences, capped at 1.0. Pattern hits are exact matches
// and keep a fixed high confidence.
func scoreConfidence(text string, entities []models.Entity) {
	lower := strings.ToLower(text)
	for i := range entities {
		if entities[i].Source == "pattern" {
			entities[i].Confidence = 0.9
			continue
		}
		if entities[i].Confidence > 0 {
			continue
		}
		conf := 0.5
		if entities[i].Text != "" && entities[i].Text[0] >= 'A' && entities[i].Text[0] <= 'Z' {
			conf += 0.2
		}
		if len(strings.Fields(entities[i].Text)) > 1 {
			conf += 0.1
		}
		occurrences := strings.Count(lower, strings.ToLower(entities[i].Text))
		if occurrences > 1 {
			bonus := float64(occurrences) * 0.05
			if bonus > 0.2 {
				bonus = 0.2
			}
			conf += bonus
		}
		if conf > 1 {
			conf = 1
		}
		entities[i].Confidence = conf
	}
}

func dedupe(entities []models.Entity) []models.Entity {
	seen := make(map[string]struct{}, len(entities))
	out := entities[:0]
	for _, ent := range entities {
		key := ent.Type + "\x00" + strings.ToLower(ent.Text)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ent)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
