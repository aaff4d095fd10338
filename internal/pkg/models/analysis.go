package models

import (
	"time"
)

// Severity bands shared by the threat, bot and aggregate scorers.
const (
	SeverityCritical = "CRITICAL"
	SeverityHigh     = "HIGH"
	SeverityMedium   = "MEDIUM"
	SeverityLow      = "LOW"
	SeverityMinimal  = "MINIMAL"
)

// SeverityForScore maps a 0-100 score onto the shared severity bands.
func SeverityForScore(score float64) string {
	switch {
	case score >= 80:
		return SeverityCritical
	case score >= 60:
		return SeverityHigh
	case score >= 40:
		return SeverityMedium
	case score >= 20:
		return SeverityLow
	default:
		return SeverityMinimal
	}
}

// LanguageResult is the outcome of script and language identification.
type LanguageResult struct {
	Language   string  `json:"language"`
	Script     string  `json:"script"`
	Confidence float64 `json:"confidence"`
	Mixed      bool    `json:"mixed_script"`
}

// SentimentProfile is the weight-averaged output of the sentiment ensemble
// plus lexical emotion signals.
type SentimentProfile struct {
	Label        string             `json:"label"` // positive, negative or neutral
	Compound     float64            `json:"compound"`
	Positive     float64            `json:"positive"`
	Negative     float64            `json:"negative"`
	Neutral      float64            `json:"neutral"`
	Intensity    string             `json:"intensity"` // high, medium or low
	Confidence   float64            `json:"confidence"`
	Subjectivity float64            `json:"subjectivity"` // share of polar vs neutral mass, 0-1
	Emotions     map[string]float64 `json:"emotions,omitempty"`
	TopEmotion   string             `json:"dominant_emotion,omitempty"`
	ModelScores  map[string]float64 `json:"model_scores,omitempty"`
}

// Entity is a single span extracted from the text.
type Entity struct {
	Text       string  `json:"text"`
	Type       string  `json:"type"` // PERSON, ORG, GPE, PHONE, EMAIL, URL, ...
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"` // gazetteer, pattern, heuristic or remote
}

// Relationship links two extracted entities through a connecting phrase.
type Relationship struct {
	Subject    string  `json:"subject"`
	Predicate  string  `json:"predicate"`
	Object     string  `json:"object"`
	Confidence float64 `json:"confidence"`
}

// EntityBundle groups all extraction output for one text.
type EntityBundle struct {
	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships,omitempty"`
	ByType        map[string]int `json:"counts_by_type,omitempty"`
}

// KeywordHit records a single lexicon match with its context-adjusted weight.
type KeywordHit struct {
	Keyword    string  `json:"keyword"`
	Category   string  `json:"category"`
	Tier       string  `json:"tier"` // high, medium or low
	Position   int     `json:"position"`
	Multiplier float64 `json:"context_multiplier"`
	Score      float64 `json:"score"`
}

// CategoryScore is the capped per-category contribution to a threat or
// content-risk score.
type CategoryScore struct {
	Category string       `json:"category"`
	Raw      float64      `json:"raw_score"`
	Weighted float64      `json:"weighted_score"`
	Hits     []KeywordHit `json:"hits,omitempty"`
	Patterns []string     `json:"patterns,omitempty"`
}

// ThreatAssessment is the combined keyword, pattern, sentiment and metadata
// threat signal for one post.
type ThreatAssessment struct {
	Score         float64            `json:"threat_score"` // 0-100
	Severity      string             `json:"severity"`
	Confidence    float64            `json:"confidence"`
	Categories    []CategoryScore    `json:"categories,omitempty"`
	Subcategories []string           `json:"subcategories,omitempty"`
	Probabilities map[string]float64 `json:"category_probabilities,omitempty"` // per-category score share, 0-1
	ThreatType    string             `json:"threat_type,omitempty"`
	TypeSeverity  string             `json:"threat_type_severity,omitempty"`
	MetadataRisk  float64            `json:"metadata_risk"`
	SentimentAmp  float64            `json:"sentiment_amplification"`
	Evidence      []string           `json:"evidence,omitempty"`

	GeoIndicators      []string `json:"geographic_indicators,omitempty"`
	TemporalIndicators []string `json:"temporal_indicators,omitempty"`
	NetworkIndicators  []string `json:"network_indicators,omitempty"`
}

// BotIndicator is one named contribution to the bot likelihood score.
type BotIndicator struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`  // 0-100 before weighting
	Weight float64 `json:"weight"` // share of the composite
	Detail string  `json:"detail,omitempty"`
}

// BotAssessment scores how automated the posting account appears.
type BotAssessment struct {
	Score            float64        `json:"bot_score"` // 0-100
	Likely           bool           `json:"is_bot_likely"`
	HumanProbability float64        `json:"human_probability"` // 100 - bot_score
	Likelihood       string         `json:"likelihood"`
	Confidence       float64        `json:"confidence"`
	Indicators       []BotIndicator `json:"indicators,omitempty"`
}

// PostPair identifies two near-duplicate posts and their similarity.
type PostPair struct {
	IndexA     int     `json:"index_a"`
	IndexB     int     `json:"index_b"`
	Similarity float64 `json:"similarity"`
}

// CoordinationAssessment reports whether a set of posts looks like a
// coordinated campaign.
type CoordinationAssessment struct {
	Score           float64    `json:"coordination_score"` // 0-1
	Coordinated     bool       `json:"is_coordinated"`
	Confidence      float64    `json:"confidence"`
	PatternType     string     `json:"pattern_type"` // CONTENT, TIMING, BEHAVIORAL, HYBRID_COORDINATION or NO_COORDINATION
	ContentScore    float64    `json:"content_similarity_score"`
	TemporalScore   float64    `json:"temporal_score"`
	BehavioralScore float64    `json:"behavioral_score"`
	TemplateScore   float64    `json:"template_score"`
	Sophistication  string     `json:"sophistication"` // HIGHLY_SOPHISTICATED, SOPHISTICATED, MODERATE or BASIC
	NetworkSize     int        `json:"estimated_network_size"`
	SimilarPairs    []PostPair `json:"similar_pairs,omitempty"`
	SyncedIntervals int        `json:"synced_intervals"`
	BurstDetected   bool       `json:"burst_detected"`
	Evidence        []string   `json:"evidence,omitempty"`
}

// AggregateRisk is the final weighted combination of all per-signal scores.
type AggregateRisk struct {
	Score       float64            `json:"risk_score"` // 0-100
	Severity    string             `json:"severity"`
	Confidence  float64            `json:"confidence"`
	Components  map[string]float64 `json:"components"`         // per-signal weighted inputs
	Multiplier  float64            `json:"context_multiplier"` // clamped 0.5-2.0
	Factors     []string           `json:"multiplier_factors,omitempty"`
	Mitigations []string           `json:"suggested_actions,omitempty"`
}

// AnalysisResult is the full record produced for one analysis request.
type AnalysisResult struct {
	CaseID       string                  `json:"case_id"`
	Content      string                  `json:"content,omitempty"`
	Language     LanguageResult          `json:"language"`
	Sentiment    SentimentProfile        `json:"sentiment"`
	Entities     EntityBundle            `json:"entities"`
	Threat       ThreatAssessment        `json:"threat"`
	Bot          *BotAssessment          `json:"bot,omitempty"`
	Coordination *CoordinationAssessment `json:"coordination,omitempty"`
	Risk         AggregateRisk           `json:"risk"`
	Enrichment   *Enrichment             `json:"enrichment,omitempty"`
	AnalyzedAt   time.Time               `json:"analyzed_at"`
	ElapsedMS    int64                   `json:"elapsed_ms"`
	FromCache    bool                    `json:"from_cache,omitempty"`
}

// Enrichment holds the optional LLM-generated assessment. A failed call is
// recorded with Success false and the error string so callers can tell
// "enrichment off" from "enrichment failed".
type Enrichment struct {
	Profile   string `json:"profile"` // comprehensive, threat_detection, bot_detection, intelligence_assessment
	Model     string `json:"model,omitempty"`
	Summary   string `json:"summary,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}
