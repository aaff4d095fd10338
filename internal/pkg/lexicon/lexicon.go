package lexicon

import (
	_ "embed"
	"fmt"
	"regexp"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"threatlens/internal/pkg/logger"
)

//go:embed data/lexicon.yaml
var rawLexicon []byte

// Tier weights applied to keyword matches before context adjustment.
const (
	TierHighWeight   = 25.0
	TierMediumWeight = 15.0
	TierLowWeight    = 10.0
)

// Group is a named cluster of keywords sharing one priority tier.
type Group struct {
	Name     string   `yaml:"name"`
	Tier     string   `yaml:"tier"`
	Keywords []string `yaml:"keywords"`
}

// Category holds all keyword groups for one threat category plus its
// relative weight in the content risk score.
type Category struct {
	Weight float64 `yaml:"weight"`
	Groups []Group `yaml:"groups"`
}

// Pattern is a compiled regex signal with its score weight and severity.
type Pattern struct {
	Expr     string  `yaml:"pattern"`
	Weight   float64 `yaml:"weight"`
	Label    string  `yaml:"label"`
	Severity string  `yaml:"severity"`
	Re       *regexp.Regexp `yaml:"-"`
}

type rawStore struct {
	Categories map[string]Category            `yaml:"categories"`
	Patterns   []Pattern                      `yaml:"patterns"`
	Emotions   map[string]map[string][]string `yaml:"emotions"`
	Amplifiers []string                       `yaml:"amplifiers"`
	Diminishers []string                      `yaml:"diminishers"`
	RiskyLocations []string                   `yaml:"risky_locations"`
	FlaggedOrgs    []string                   `yaml:"flagged_orgs"`
}

// Holds the parsed lexicon and derived lookup structures
type Store struct {
	Categories     map[string]Category
	Patterns       []Pattern
	Emotions       map[string]map[string][]string
	Amplifiers     map[string]struct{}
	Diminishers    map[string]struct{}
	RiskyLocations []string
	FlaggedOrgs    []string
}

// Parses the embedded lexicon and compiles its regex patterns
func Load() (*Store, error) {
	var raw rawStore
	if err := yaml.Unmarshal(rawLexicon, &raw); err != nil {
		return nil, fmt.Errorf("parsing lexicon: %w", err)
	}

	for i := range raw.Patterns {
		re, err := regexp.Compile(`(?i)` + raw.Patterns[i].Expr)
		if err != nil {
			return nil, fmt.Errorf("compiling lexicon pattern %q: %w", raw.Patterns[i].Expr, err)
		}
		raw.Patterns[i].Re = re
	}

	store := &Store{
		Categories:     raw.Categories,
		Patterns:       raw.Patterns,
		Emotions:       raw.Emotions,
		Amplifiers:     toSet(raw.Amplifiers),
		Diminishers:    toSet(raw.Diminishers),
		RiskyLocations: raw.RiskyLocations,
		FlaggedOrgs:    raw.FlaggedOrgs,
	}

	keywordCount := 0
	for _, cat := range store.Categories {
		for _, g := range cat.Groups {
			keywordCount += len(g.Keywords)
		}
	}
	logger.Log.Info("Loaded threat lexicon",
		zap.Int("categories", len(store.Categories)),
		zap.Int("keywords", keywordCount),
		zap.Int("patterns", len(store.Patterns)))

	return store, nil
}

// TierWeight returns the base score weight for a priority tier.
func TierWeight(tier string) float64 {
	switch tier {
	case "high":
		return TierHighWeight
	case "medium":
		return TierMediumWeight
	default:
		return TierLowWeight
	}
}

// CategoryWeight returns the category multiplier, defaulting to 1.0 for
// categories the lexicon does not define.
func (s *Store) CategoryWeight(category string) float64 {
	if cat, ok := s.Categories[category]; ok && cat.Weight > 0 {
		return cat.Weight
	}
	return 1.0
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
