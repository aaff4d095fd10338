package coordination

import (
	"fmt"
	"testing"
	"time"

	"threatlens/internal/pkg/models"
)

func TestAnalyzeFewerThanTwoPosts(t *testing.T) {
	d := NewDetector()
	for _, posts := range [][]models.Post{nil, {{Content: "solo post"}}} {
		res := d.Analyze(posts)
		if res.Score != 0 || res.Coordinated {
			t.Errorf("Expected zero verdict for %d posts, got %+v", len(posts), res)
		}
		if res.PatternType != "NO_COORDINATION" {
			t.Errorf("Expected NO_COORDINATION, got %q", res.PatternType)
		}
		if res.NetworkSize != 1 {
			t.Errorf("Expected network size 1, got %d", res.NetworkSize)
		}
	}
}

func TestAnalyzeCoordinatedCampaign(t *testing.T) {
	d := NewDetector()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var posts []models.Post
	for i := 0; i < 5; i++ {
		posts = append(posts, models.Post{
			Content:   "Share this everyone! Visit https://campaign.example now #truth",
			UserID:    fmt.Sprintf("acct_%d", i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Metadata: &models.AccountMetadata{
				Followers:      100 + i,
				AccountAgeDays: 10 + i,
			},
		})
	}

	res := d.Analyze(posts)
	if !res.Coordinated {
		t.Fatalf("Expected coordination verdict, score %v", res.Score)
	}
	if res.Score <= 0.6 {
		t.Errorf("Expected score above 0.6, got %v", res.Score)
	}
	if len(res.SimilarPairs) == 0 {
		t.Error("Expected similar pairs for identical content")
	}
	if res.SyncedIntervals != 4 {
		t.Errorf("Expected 4 synced intervals, got %d", res.SyncedIntervals)
	}
	if res.TemplateScore <= 0.7 {
		t.Errorf("Expected high template score, got %v", res.TemplateScore)
	}
	if res.Sophistication != "HIGHLY_SOPHISTICATED" && res.Sophistication != "SOPHISTICATED" {
		t.Errorf("Expected sophisticated campaign, got %q", res.Sophistication)
	}
	if res.NetworkSize < 5 {
		t.Errorf("Expected network estimate covering the 5 authors, got %d", res.NetworkSize)
	}
	if res.Confidence > 0.95 {
		t.Errorf("Confidence must cap at 0.95, got %v", res.Confidence)
	}
}

func TestAnalyzeOrganicPosts(t *testing.T) {
	d := NewDetector()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	posts := []models.Post{
		{Content: "just finished a long run, legs are jelly", UserID: "u1", Timestamp: base},
		{Content: "Does anyone have a good biryani recipe? Asking for a very hungry friend which is me.", UserID: "u2", Timestamp: base.Add(7 * time.Hour)},
		{Content: "traffic on the expressway is absurd today", UserID: "u3", Timestamp: base.Add(26 * time.Hour)},
	}

	res := d.Analyze(posts)
	if res.Coordinated {
		t.Errorf("Organic posts must not be coordinated, score %v", res.Score)
	}
	if len(res.SimilarPairs) != 0 {
		t.Errorf("Expected no similar pairs, got %v", res.SimilarPairs)
	}
}

func TestSimilarityBounds(t *testing.T) {
	if s := Similarity("", "anything"); s != 0 {
		t.Errorf("Empty text similarity must be 0, got %v", s)
	}
	if s := Similarity("identical words here", "identical words here"); s < 0.99 {
		t.Errorf("Identical text similarity must be ~1, got %v", s)
	}
	s := Similarity("the cat sat on the mat", "stock markets rallied sharply overnight")
	if s > 0.2 {
		t.Errorf("Unrelated texts must score low, got %v", s)
	}
}

func TestSimilarityCatchesLightRewording(t *testing.T) {
	a := "Everyone must share this message about the protest tomorrow"
	b := "Everyone must share this message about the protest tonight"
	if s := Similarity(a, b); s <= 0.7 {
		t.Errorf("Light rewording must stay similar, got %v", s)
	}
}

func TestTemporalRegularIntervals(t *testing.T) {
	d := NewDetector()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	var posts []models.Post
	for i := 0; i < 6; i++ {
		posts = append(posts, models.Post{
			Content:   fmt.Sprintf("update number %d with totally different words each time volume %d", i, i*7),
			UserID:    "scheduler",
			Timestamp: base.Add(time.Duration(i) * time.Hour),
		})
	}

	res := d.Analyze(posts)
	found := false
	for _, e := range res.Evidence {
		if len(e) >= 7 && e[:7] == "regular" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected regular interval evidence, got %v", res.Evidence)
	}
}

func TestPatternTypeHybrid(t *testing.T) {
	typ := patternType(
		[]string{"a", "b"},
		[]string{"c", "d"},
		nil,
	)
	if typ != "HYBRID_COORDINATION" {
		t.Errorf("Expected HYBRID_COORDINATION, got %q", typ)
	}

	if typ := patternType(nil, nil, nil); typ != "NO_COORDINATION" {
		t.Errorf("Expected NO_COORDINATION, got %q", typ)
	}

	if typ := patternType([]string{"a"}, nil, nil); typ != "CONTENT" {
		t.Errorf("Expected CONTENT, got %q", typ)
	}
}

func TestNetworkSizeCap(t *testing.T) {
	var posts []models.Post
	for i := 0; i < 600; i++ {
		posts = append(posts, models.Post{UserID: fmt.Sprintf("u%d", i)})
	}
	if size := estimateNetworkSize(posts, 6); size != 1000 {
		t.Errorf("Expected cap at 1000, got %d", size)
	}
}
