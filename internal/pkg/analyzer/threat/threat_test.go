package threat

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"threatlens/internal/pkg/lexicon"
	"threatlens/internal/pkg/logger"
	"threatlens/internal/pkg/models"
)

func init() {
	logger.Log = zap.NewNop()
}

func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	store, err := lexicon.Load()
	if err != nil {
		t.Fatalf("Loading lexicon: %v", err)
	}
	return NewAnalyzer(store)
}

func TestAssessBenignText(t *testing.T) {
	a := newTestAnalyzer(t)
	res := a.Assess("lovely weather for a picnic by the lake", models.SentimentProfile{}, nil)

	if res.Score != 0 {
		t.Errorf("Expected zero score for benign text, got %v", res.Score)
	}
	if res.Severity != models.SeverityMinimal {
		t.Errorf("Expected MINIMAL severity, got %q", res.Severity)
	}
	if res.ThreatType != "No Threat Detected" {
		t.Errorf("Expected no threat classification, got %q", res.ThreatType)
	}
}

func TestAssessEmptyText(t *testing.T) {
	a := newTestAnalyzer(t)
	res := a.Assess("   ", models.SentimentProfile{}, nil)
	if res.Score != 0 || res.Severity != models.SeverityMinimal {
		t.Errorf("Expected minimal assessment for empty text, got %+v", res)
	}
}

func TestAssessTerrorKeywords(t *testing.T) {
	a := newTestAnalyzer(t)
	res := a.Assess("we will bomb the parliament, jihad is coming", models.SentimentProfile{}, nil)

	if res.Score < 40 {
		t.Errorf("Expected substantial score for explicit threats, got %v", res.Score)
	}
	found := false
	for _, cat := range res.Categories {
		if cat.Category == "terrorism" && len(cat.Hits) >= 2 {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected terrorism category with hits, got %+v", res.Categories)
	}
	if len(res.Evidence) == 0 {
		t.Error("Expected evidence entries")
	}
}

func TestAssessBombThreatSentence(t *testing.T) {
	a := newTestAnalyzer(t)
	res := a.Assess("There is a bomb threat at the station, attack planned tonight", models.SentimentProfile{}, nil)

	if res.Severity != models.SeverityHigh && res.Severity != models.SeverityCritical {
		t.Errorf("Expected at least HIGH severity, got %q (score %v)", res.Severity, res.Score)
	}

	keywords := make(map[string]bool)
	for _, cat := range res.Categories {
		for _, hit := range cat.Hits {
			keywords[hit.Keyword] = true
		}
	}
	if !keywords["bomb"] || !keywords["attack"] {
		t.Errorf("Expected bomb and attack among detected keywords, got %v", keywords)
	}
	if res.Probabilities["terrorism"] <= 0 {
		t.Errorf("Expected terrorism probability, got %v", res.Probabilities)
	}
}

func TestAssessViolenceKeywords(t *testing.T) {
	a := newTestAnalyzer(t)
	res := a.Assess("we will kill and murder them in a massacre, total slaughter", models.SentimentProfile{}, nil)

	// Four high-tier violence hits: raw 100, capped 60, weighted by 1.3.
	if res.Score < 60 {
		t.Errorf("Expected at least HIGH score for violent text, got %v", res.Score)
	}
	found := false
	for _, sub := range res.Subcategories {
		if sub == "violence" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected violence subcategory, got %v", res.Subcategories)
	}
}

func TestAssessAppliesCategoryWeight(t *testing.T) {
	a := newTestAnalyzer(t)
	res := a.Assess("they planted a bomb", models.SentimentProfile{}, nil)

	if len(res.Categories) != 1 {
		t.Fatalf("Expected one category, got %+v", res.Categories)
	}
	cat := res.Categories[0]
	// One high-tier terrorism hit: raw 25, weighted 25 * 1.5.
	if cat.Raw != 25 {
		t.Errorf("Expected raw 25, got %v", cat.Raw)
	}
	if cat.Weighted != 37.5 {
		t.Errorf("Expected weighted 37.5, got %v", cat.Weighted)
	}
	want := 25.0 / 60.0
	if got := res.Probabilities["terrorism"]; got < want-1e-9 || got > want+1e-9 {
		t.Errorf("Expected probability %v, got %v", want, got)
	}
}

func TestAssessPatternScore(t *testing.T) {
	a := newTestAnalyzer(t)
	res := a.Assess("pakistan zindabad everyone", models.SentimentProfile{}, nil)

	// Pattern weight 0.9 scaled by 30 on top of the keyword hit.
	if res.Score < 27 {
		t.Errorf("Expected pattern contribution, got %v", res.Score)
	}
	hasPatternEvidence := false
	for _, e := range res.Evidence {
		if strings.Contains(e, "direct_support_enemy") {
			hasPatternEvidence = true
		}
	}
	if !hasPatternEvidence {
		t.Errorf("Expected pattern evidence, got %v", res.Evidence)
	}
}

func TestAssessSentimentAmplification(t *testing.T) {
	a := newTestAnalyzer(t)
	text := "bomb threats everywhere"
	calm := a.Assess(text, models.SentimentProfile{}, nil)
	hostile := a.Assess(text, models.SentimentProfile{
		Negative: 0.8,
		Emotions: map[string]float64{"anger": 0.7},
	}, nil)

	if hostile.Score != calm.Score+25 {
		t.Errorf("Expected +25 amplification, calm=%v hostile=%v", calm.Score, hostile.Score)
	}
	if hostile.SentimentAmp != 25 {
		t.Errorf("Expected recorded amplification 25, got %v", hostile.SentimentAmp)
	}
}

func TestAssessMetadataRisk(t *testing.T) {
	a := newTestAnalyzer(t)
	meta := &models.AccountMetadata{
		AccountAgeDays: 3,
		PostsPerDay:    120,
		Followers:      5,
		Following:      1000,
		Location:       "somewhere in Pakistan",
		UsingVPN:       true,
		Anonymous:      true,
	}
	res := a.Assess("nothing alarming here at all", models.SentimentProfile{}, meta)

	// 20 (age) + 25 (frequency) + 15 (ratio) + 20 (location) + 10 (vpn) + 15 (anonymous)
	if res.MetadataRisk != 105 {
		t.Errorf("Expected metadata risk 105, got %v", res.MetadataRisk)
	}
	if res.Score != 100 {
		t.Errorf("Expected score capped at 100, got %v", res.Score)
	}
	if len(res.TemporalIndicators) != 2 {
		t.Errorf("Expected age and frequency temporal indicators, got %v", res.TemporalIndicators)
	}
	if len(res.GeoIndicators) != 1 {
		t.Errorf("Expected one geographic indicator, got %v", res.GeoIndicators)
	}
	if len(res.NetworkIndicators) != 3 {
		t.Errorf("Expected ratio, VPN and anonymity network indicators, got %v", res.NetworkIndicators)
	}
}

func TestSeverityBands(t *testing.T) {
	for score, want := range map[float64]string{
		85: models.SeverityCritical,
		65: models.SeverityHigh,
		45: models.SeverityMedium,
		25: models.SeverityLow,
		5:  models.SeverityMinimal,
	} {
		if got := models.SeverityForScore(score); got != want {
			t.Errorf("SeverityForScore(%v) = %q, want %q", score, got, want)
		}
	}
}

func TestContextMultiplierDiminishers(t *testing.T) {
	a := newTestAnalyzer(t)

	plain := a.ContextMultiplier("they will bomb the station", "bomb")
	joke := a.ContextMultiplier("that movie bomb scene was fake, just a joke", "bomb")
	urgent := a.ContextMultiplier("urgent: plan the bomb for tonight", "bomb")

	if joke >= plain {
		t.Errorf("Expected fiction context to lower multiplier: joke=%v plain=%v", joke, plain)
	}
	if urgent <= plain {
		t.Errorf("Expected urgency to raise multiplier: urgent=%v plain=%v", urgent, plain)
	}
	if joke < 0 || urgent > 2 {
		t.Errorf("Multiplier out of [0,2]: joke=%v urgent=%v", joke, urgent)
	}
}

func TestContextMultiplierQuestionSoftens(t *testing.T) {
	a := newTestAnalyzer(t)
	question := a.ContextMultiplier("did someone bomb the bridge?", "bomb")
	statement := a.ContextMultiplier("someone will bomb the bridge", "bomb")
	if question >= statement {
		t.Errorf("Expected question (%v) below statement (%v)", question, statement)
	}
}

func TestContentRiskWeighsCategories(t *testing.T) {
	a := newTestAnalyzer(t)

	terror := a.ContentRisk("they will attack with a bomb")
	if terror <= 0 {
		t.Fatal("Expected positive content risk")
	}
	if a.ContentRisk("") != 0 {
		t.Error("Expected zero content risk for empty text")
	}
}

func TestClassifyCybercrimeWithBitcoinBoost(t *testing.T) {
	a := newTestAnalyzer(t)
	typ, _ := a.Classify("phishing kit plus ransomware, paid in bitcoin, big hack planned with malware and a botnet ddos", nil)
	if !strings.Contains(typ, "Cybercrime") {
		t.Errorf("Expected cybercrime classification, got %q", typ)
	}
}

func TestClassifySeverityFromDensity(t *testing.T) {
	a := newTestAnalyzer(t)
	typ, severity := a.Classify("bomb blast attack jihad terrorist", nil)
	if severity != "high" {
		t.Errorf("Expected high severity, got %q (%q)", severity, typ)
	}
	if !strings.Contains(typ, "Terrorism") {
		t.Errorf("Expected terrorism classification, got %q", typ)
	}
}

func TestConfidenceCappedAt95(t *testing.T) {
	a := newTestAnalyzer(t)
	res := a.Assess(strings.Repeat("bomb attack jihad traitor khalistan ", 10),
		models.SentimentProfile{Confidence: 1}, nil)
	if res.Confidence > 0.95 {
		t.Errorf("Confidence must cap at 0.95, got %v", res.Confidence)
	}
	if res.Confidence <= 0 {
		t.Error("Expected positive confidence")
	}
}
