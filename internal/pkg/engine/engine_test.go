package engine

import (
	"context"
	"errors"
	"math"
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

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	store, err := lexicon.Load()
	if err != nil {
		t.Fatalf("loading lexicon: %v", err)
	}
	return New(store, Options{})
}

func TestAnalyzeBenignContent(t *testing.T) {
	e := newTestEngine(t)

	result := e.Analyze(context.Background(), models.AnalysisRequest{
		Content: "Had a wonderful morning walk in the park with my family today.",
	})

	if result.CaseID == "" {
		t.Errorf("expected a generated case id")
	}
	if result.Risk.Score >= 40 {
		t.Errorf("benign content scored %.1f, expected below 40", result.Risk.Score)
	}
	if result.Bot != nil {
		t.Errorf("bot assessment should be skipped without account data")
	}
	if result.Coordination != nil {
		t.Errorf("coordination should be skipped for a single post")
	}
	if result.FromCache {
		t.Errorf("first analysis must not come from cache")
	}
}

func TestAnalyzeThreateningContentScoresHigher(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	benign := e.Analyze(ctx, models.AnalysisRequest{
		Content: "Looking forward to the cricket match this weekend.",
	})
	hostile := e.Analyze(ctx, models.AnalysisRequest{
		Content: "We will bomb the city tomorrow, jihad against the government, kill them all.",
	})

	if hostile.Risk.Score <= benign.Risk.Score {
		t.Errorf("threatening content scored %.1f, benign %.1f", hostile.Risk.Score, benign.Risk.Score)
	}
	if len(hostile.Threat.Categories) == 0 {
		t.Errorf("expected threat categories for hostile content")
	}
	if hostile.Threat.ThreatType == "" {
		t.Errorf("expected a threat type classification")
	}
}

func TestAnalyzeServesRepeatsFromCache(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	req := models.AnalysisRequest{Content: "identical content submitted twice"}

	first := e.Analyze(ctx, req)
	second := e.Analyze(ctx, req)

	if second.FromCache != true {
		t.Fatalf("expected second analysis to be served from cache")
	}
	if second.Risk.Score != first.Risk.Score {
		t.Errorf("cached result diverged: %.2f vs %.2f", second.Risk.Score, first.Risk.Score)
	}

	stats := e.Stats()
	if stats.Processed != 2 || stats.CacheHits != 1 {
		t.Errorf("stats = %+v, want processed 2 and cache hits 1", stats)
	}
	if stats.CacheHitRatio != 0.5 {
		t.Errorf("cache hit ratio = %.2f, want 0.5", stats.CacheHitRatio)
	}
}

func TestBotAssessmentGatedOnAccountData(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	withMeta := e.Analyze(ctx, models.AnalysisRequest{
		Content:  "hello world",
		Metadata: &models.AccountMetadata{Username: "user123456", AccountAgeDays: 3, PostsPerDay: 150},
	})
	if withMeta.Bot == nil {
		t.Fatalf("expected bot assessment when metadata is present")
	}
	if withMeta.Bot.Score <= 0 {
		t.Errorf("suspicious account scored %.1f, expected positive", withMeta.Bot.Score)
	}
}

type failingEnricher struct{}

func (failingEnricher) Enrich(ctx context.Context, content, profile string, analysisContext map[string]any) (*models.Enrichment, error) {
	return nil, errors.New("upstream quota exhausted")
}

func TestEnrichmentFailureSurfacedInResult(t *testing.T) {
	store, err := lexicon.Load()
	if err != nil {
		t.Fatalf("loading lexicon: %v", err)
	}
	e := New(store, Options{Enricher: failingEnricher{}})

	result := e.Analyze(context.Background(), models.AnalysisRequest{
		Content:    "ordinary content with enrichment requested",
		EnrichWith: "comprehensive",
	})

	if result.Enrichment == nil {
		t.Fatalf("expected a failed enrichment marker, got nil")
	}
	if result.Enrichment.Success {
		t.Errorf("failed enrichment must not report success")
	}
	if result.Enrichment.Error == "" {
		t.Errorf("expected the failure reason to be carried")
	}
	if result.Enrichment.Profile != "comprehensive" {
		t.Errorf("expected the requested profile, got %q", result.Enrichment.Profile)
	}
	if result.Risk.Severity == "" {
		t.Errorf("core scoring must be unaffected by enrichment failure")
	}
}

func TestBotLikelyUsesConfiguredThreshold(t *testing.T) {
	store, err := lexicon.Load()
	if err != nil {
		t.Fatalf("loading lexicon: %v", err)
	}
	ctx := context.Background()
	req := models.AnalysisRequest{
		Content:  "hello there",
		Metadata: &models.AccountMetadata{Username: "user123456"},
	}

	// Incomplete profile plus generic username: behavioral 55.
	strict := New(store, Options{BotLikelyThreshold: 60}).Analyze(ctx, req)
	if strict.Bot == nil || strict.Bot.Likely {
		t.Errorf("score below the raised threshold must not be bot-likely: %+v", strict.Bot)
	}

	lenient := New(store, Options{}).Analyze(ctx, req)
	if lenient.Bot == nil || !lenient.Bot.Likely {
		t.Errorf("score above the default threshold must be bot-likely: %+v", lenient.Bot)
	}
}

func TestCoordinationGatedOnRelatedPosts(t *testing.T) {
	e := newTestEngine(t)

	result := e.Analyze(context.Background(), models.AnalysisRequest{
		Content: "Breaking news everyone must share this now",
		Related: []models.Post{
			{Content: "Breaking news everyone must share this now", UserID: "u2"},
			{Content: "Breaking news everyone must share this now", UserID: "u3"},
		},
	})

	if result.Coordination == nil {
		t.Fatalf("expected coordination assessment with related posts")
	}
	if !result.Coordination.Coordinated {
		t.Errorf("identical posts should be flagged coordinated, score %.2f", result.Coordination.Score)
	}
}

func TestSentimentRisk(t *testing.T) {
	profile := models.SentimentProfile{
		Negative:   0.85,
		Intensity:  "high",
		Confidence: 0.9,
		Emotions:   map[string]float64{"anger": 0.75},
	}
	// (30 for negative + 15 for anger) * 1.3 intensity = 58.5
	got := sentimentRisk(profile)
	if math.Abs(got-58.5) > 1e-9 {
		t.Errorf("sentimentRisk = %.2f, want 58.5", got)
	}

	neutral := sentimentRisk(models.SentimentProfile{Neutral: 1, Confidence: 0.8})
	if neutral != 0 {
		t.Errorf("neutral profile scored %.2f, want 0", neutral)
	}
}

func TestBehaviorRiskCapsAtHundred(t *testing.T) {
	meta := &models.AccountMetadata{
		AccountAgeDays: 5,       // +25
		PostsPerDay:    120,     // +30
		Followers:      10,      // ratio 0.01 -> +20
		Following:      1000,
		EngagementRate: 0.005,   // +10
		Location:       "Karachi, Pakistan", // +15
		UsingVPN:       true,    // +10
	}
	if got := behaviorRisk(meta); got != 100 {
		t.Errorf("behaviorRisk = %.2f, want capped 100", got)
	}
	if got := behaviorRisk(nil); got != 0 {
		t.Errorf("behaviorRisk(nil) = %.2f, want 0", got)
	}
}

func TestTemporalRisk(t *testing.T) {
	meta := &models.AccountMetadata{PostingHours: []int{3}}
	ctxData := &models.ContextData{
		MajorEventProximity: true,
		HolidayPeriod:       true,
		FrequencySpike:      true,
		CoordinatedTiming:   true,
	}
	// 8 + 12 + 8 + 10 + 15 = 53
	if got := temporalRisk(meta, ctxData); got != 53 {
		t.Errorf("temporalRisk = %.2f, want 53", got)
	}

	lateNight := &models.AccountMetadata{PostingHours: []int{23}}
	if got := temporalRisk(lateNight, nil); got != 5 {
		t.Errorf("late night temporalRisk = %.2f, want 5", got)
	}
}

func TestEntityRisk(t *testing.T) {
	e := newTestEngine(t)

	bundle := models.EntityBundle{
		Entities: []models.Entity{
			{Text: "Pakistan", Type: "GPE"},
		},
		ByType: map[string]int{"WEAPON": 2, "GPE": 1},
	}
	// 2 weapons * 15 + risky location 10 = 40
	if got := e.entityRisk(bundle); got != 40 {
		t.Errorf("entityRisk = %.2f, want 40", got)
	}

	if got := e.entityRisk(models.EntityBundle{}); got != 0 {
		t.Errorf("empty bundle scored %.2f, want 0", got)
	}
}

func TestContextMultiplierBounds(t *testing.T) {
	long := models.AnalysisRequest{
		Content: strings.Repeat("a", 2500),
		Context: &models.ContextData{ViralContent: true, TrendingHashtags: true},
	}
	multiplier, factors := contextMultiplier(long)
	// 1.1 * 1.2 * 1.1 = 1.452
	if math.Abs(multiplier-1.452) > 1e-9 {
		t.Errorf("multiplier = %.4f, want 1.452", multiplier)
	}
	if len(factors) != 3 {
		t.Errorf("got %d factors, want 3", len(factors))
	}

	verified := models.AnalysisRequest{
		Content:  "short note",
		Metadata: &models.AccountMetadata{Verified: true, Followers: 50000, AccountAgeDays: 1000},
	}
	multiplier, _ = contextMultiplier(verified)
	// 0.9 short * 0.8 verified * 0.9 established = 0.648
	if math.Abs(multiplier-0.648) > 1e-9 {
		t.Errorf("verified multiplier = %.4f, want 0.648", multiplier)
	}
}

func TestSuggestedActionsIncludeBotFollowup(t *testing.T) {
	bot := &models.BotAssessment{Score: 80}
	actions := suggestedActions(models.SeverityCritical, models.ThreatAssessment{}, bot, 50)

	foundEscalation, foundBot := false, false
	for _, a := range actions {
		if strings.Contains(a, "Escalate for immediate review") {
			foundEscalation = true
		}
		if strings.Contains(a, "bot network") {
			foundBot = true
		}
	}
	if !foundEscalation || !foundBot {
		t.Errorf("actions missing expected entries: %v", actions)
	}
}

func TestOverallConfidenceDefaults(t *testing.T) {
	if got := overallConfidence(models.ThreatAssessment{}, nil); got != 0.5 {
		t.Errorf("default confidence = %.2f, want 0.5", got)
	}

	threat := models.ThreatAssessment{Confidence: 0.8}
	bot := &models.BotAssessment{Confidence: 0.4}
	if got := overallConfidence(threat, bot); math.Abs(got-0.6) > 1e-9 {
		t.Errorf("mean confidence = %.2f, want 0.6", got)
	}
}
