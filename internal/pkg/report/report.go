package report

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"threatlens/internal/pkg/models"
)

// EvidenceReport is the investigator-facing summary built from one
// analysis result.
type EvidenceReport struct {
	CaseID             string            `json:"case_id"`
	GeneratedAt        time.Time         `json:"generated_at"`
	ThreatLevel        string            `json:"threat_level"`
	Summary            string            `json:"summary"`
	EvidencePoints     []string          `json:"evidence_points"`
	RecommendedActions []string          `json:"recommended_actions"`
	TechnicalDetails   TechnicalDetails  `json:"technical_details"`
	ForensicMarkers    ForensicMarkers   `json:"forensic_markers"`
	CorrelationData    CorrelationData   `json:"correlation_data"`
}

// TechnicalDetails carries reproducibility data for the analyzed content.
type TechnicalDetails struct {
	ContentHash   string  `json:"content_hash"`
	ContentLength int     `json:"content_length"`
	WordCount     int     `json:"word_count"`
	Language      string  `json:"language"`
	MixedScript   bool    `json:"mixed_script"`
	RiskScore     float64 `json:"risk_score"`
	Confidence    float64 `json:"confidence"`
	ElapsedMS     int64   `json:"elapsed_ms"`
}

// ForensicMarkers lists contact and identity artifacts found in the text.
type ForensicMarkers struct {
	URLs          []string `json:"urls,omitempty"`
	Emails        []string `json:"email_addresses,omitempty"`
	Phones        []string `json:"phone_numbers,omitempty"`
	SocialHandles []string `json:"social_handles,omitempty"`
	CryptoWallets []string `json:"crypto_wallets,omitempty"`
}

// CorrelationData lets investigators connect this case to others.
type CorrelationData struct {
	ThreatKeywords []string `json:"threat_keywords,omitempty"`
	Subcategories  []string `json:"subcategories,omitempty"`
	ThreatType     string   `json:"threat_type,omitempty"`
	Persons        []string `json:"persons,omitempty"`
	Locations      []string `json:"locations,omitempty"`
	Organizations  []string `json:"organizations,omitempty"`
	Sentiment      string   `json:"sentiment,omitempty"`
}

// NewCaseID mints a unique case identifier with an embedded date for
// human-readable triage.
func NewCaseID() string {
	return fmt.Sprintf("CASE_%s_%s",
		time.Now().UTC().Format("20060102"),
		strings.Split(uuid.NewString(), "-")[0])
}

// Build assembles an evidence report from a completed analysis result.
func Build(result models.AnalysisResult) EvidenceReport {
	level := threatLevel(result)
	return EvidenceReport{
		CaseID:             result.CaseID,
		GeneratedAt:        time.Now().UTC(),
		ThreatLevel:        level,
		Summary:            executiveSummary(result, level),
		EvidencePoints:     evidencePoints(result),
		RecommendedActions: append([]string(nil), result.Risk.Mitigations...),
		TechnicalDetails: TechnicalDetails{
			ContentHash:   hashContent(result.Content),
			ContentLength: len(result.Content),
			WordCount:     len(strings.Fields(result.Content)),
			Language:      result.Language.Language,
			MixedScript:   result.Language.Mixed,
			RiskScore:     result.Risk.Score,
			Confidence:    result.Risk.Confidence,
			ElapsedMS:     result.ElapsedMS,
		},
		ForensicMarkers: forensicMarkers(result.Entities),
		CorrelationData: correlationData(result),
	}
}

// The report threat level starts from the risk score band and escalates
// when automation or sophisticated coordination is also present.
func threatLevel(result models.AnalysisResult) string {
	level := models.SeverityMinimal
	switch score := result.Risk.Score; {
	case score >= 90:
		level = models.SeverityCritical
	case score >= 75:
		level = models.SeverityHigh
	case score >= 50:
		level = models.SeverityMedium
	case score >= 25:
		level = models.SeverityLow
	}

	amplifiers := 0
	if result.Threat.Severity == models.SeverityCritical {
		amplifiers++
	}
	if result.Bot != nil && (result.Bot.Likelihood == "SOPHISTICATED_BOT" || result.Bot.Likelihood == "ADVANCED_BOT") {
		amplifiers++
	}
	if result.Coordination != nil && result.Coordination.Coordinated &&
		result.Coordination.Sophistication == "HIGHLY_SOPHISTICATED" {
		amplifiers++
	}

	switch {
	case amplifiers >= 2 && level == models.SeverityMedium:
		level = models.SeverityHigh
	case amplifiers >= 2 && level == models.SeverityLow:
		level = models.SeverityMedium
	case amplifiers >= 1 && level == models.SeverityMinimal:
		level = models.SeverityLow
	}
	return level
}

func executiveSummary(result models.AnalysisResult, level string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Case %s: %s threat level, risk score %.1f/100.", result.CaseID, level, result.Risk.Score)
	if result.Threat.ThreatType != "" {
		fmt.Fprintf(&b, " Primary threat type: %s.", result.Threat.ThreatType)
	}
	fmt.Fprintf(&b, " Language: %s, sentiment: %s.", result.Language.Language, result.Sentiment.Label)
	if result.Bot != nil {
		fmt.Fprintf(&b, " Automation likelihood: %.1f%% (%s).", result.Bot.Score, result.Bot.Likelihood)
	}
	if result.Coordination != nil && result.Coordination.Coordinated {
		fmt.Fprintf(&b, " Coordinated activity detected (%s, estimated network size %d).",
			result.Coordination.PatternType, result.Coordination.NetworkSize)
	}
	fmt.Fprintf(&b, " Entities identified: %d.", len(result.Entities.Entities))
	return b.String()
}

func evidencePoints(result models.AnalysisResult) []string {
	var points []string

	for _, ev := range result.Threat.Evidence {
		points = append(points, "THREAT: "+ev)
	}
	if result.Bot != nil {
		for i, ind := range result.Bot.Indicators {
			if i >= 5 {
				break
			}
			points = append(points, fmt.Sprintf("AUTOMATION: %s scored %.0f", ind.Name, ind.Score))
		}
	}
	if result.Coordination != nil {
		for i, ev := range result.Coordination.Evidence {
			if i >= 5 {
				break
			}
			points = append(points, "COORDINATION: "+ev)
		}
	}

	count := 0
	for _, ent := range result.Entities.Entities {
		if count >= 3 {
			break
		}
		switch ent.Type {
		case "WEAPON", "DRUG", "CRYPTO_WALLET":
			points = append(points, fmt.Sprintf("ENTITY: %s reference %q", ent.Type, ent.Text))
			count++
		}
	}

	if result.Sentiment.Negative > 0.7 {
		points = append(points, fmt.Sprintf("SENTIMENT: highly negative sentiment (%.2f)", result.Sentiment.Negative))
	}
	for emotion, score := range result.Sentiment.Emotions {
		if score > 0.7 && (emotion == "anger" || emotion == "disgust" || emotion == "fear") {
			points = append(points, fmt.Sprintf("EMOTION: high %s detected (%.2f)", emotion, score))
		}
	}

	return points
}

func forensicMarkers(entities models.EntityBundle) ForensicMarkers {
	markers := ForensicMarkers{}
	for _, ent := range entities.Entities {
		switch ent.Type {
		case "URL":
			markers.URLs = append(markers.URLs, ent.Text)
		case "EMAIL":
			markers.Emails = append(markers.Emails, ent.Text)
		case "PHONE":
			markers.Phones = append(markers.Phones, ent.Text)
		case "HANDLE":
			markers.SocialHandles = append(markers.SocialHandles, ent.Text)
		case "CRYPTO_WALLET":
			markers.CryptoWallets = append(markers.CryptoWallets, ent.Text)
		}
	}
	return markers
}

func correlationData(result models.AnalysisResult) CorrelationData {
	data := CorrelationData{
		Subcategories: append([]string(nil), result.Threat.Subcategories...),
		ThreatType:    result.Threat.ThreatType,
		Sentiment:     result.Sentiment.Label,
	}

	seen := make(map[string]struct{})
	for _, cat := range result.Threat.Categories {
		for _, hit := range cat.Hits {
			if _, ok := seen[hit.Keyword]; ok {
				continue
			}
			seen[hit.Keyword] = struct{}{}
			data.ThreatKeywords = append(data.ThreatKeywords, hit.Keyword)
		}
	}

	for _, ent := range result.Entities.Entities {
		switch ent.Type {
		case "PERSON":
			data.Persons = append(data.Persons, ent.Text)
		case "GPE":
			data.Locations = append(data.Locations, ent.Text)
		case "ORG":
			data.Organizations = append(data.Organizations, ent.Text)
		}
	}
	return data
}

func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
