package bot

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"

	"threatlens/internal/pkg/analyzer/language"
	"threatlens/internal/pkg/analyzer/sentiment"
	"threatlens/internal/pkg/models"
)

// Component weights in the composite bot score. Components without input
// data (no recent posts, no temporal fields, no network data) are dropped
// and the remaining weights are renormalized, so a metadata-only account
// can still span the full 0-100 range.
const (
	linguisticWeight = 0.30
	behavioralWeight = 0.25
	temporalWeight   = 0.20
	networkWeight    = 0.15
	contentWeight    = 0.10

	likelyThreshold = 50.0
)

var (
	urlPattern       = regexp.MustCompile(`https?://\S+`)
	hashtagPattern   = regexp.MustCompile(`#\w+`)
	mentionPattern   = regexp.MustCompile(`@\w+`)
	genericUsernames = []*regexp.Regexp{
		regexp.MustCompile(`^user\d+$`),
		regexp.MustCompile(`^[a-z]+\d{6,}$`),
	}
)

// Scores how automated an account's behavior looks.
type Analyzer struct {
	languages *languageCache
	sentiment *sentiment.Analyzer
}

// Memoizes per-post language detection so linguistic and emotional passes
// share one detection per post. One Analyzer is shared across worker
// goroutines, so the map is guarded.
type languageCache struct {
	detector language.Detector
	mu       sync.Mutex
	cache    map[string]models.LanguageResult
}

func (c *languageCache) detect(text string) models.LanguageResult {
	c.mu.Lock()
	if res, ok := c.cache[text]; ok {
		c.mu.Unlock()
		return res
	}
	c.mu.Unlock()

	res := c.detector.Detect(text)

	c.mu.Lock()
	c.cache[text] = res
	c.mu.Unlock()
	return res
}

func NewAnalyzer(detector language.Detector, sentimentAnalyzer *sentiment.Analyzer) *Analyzer {
	return &Analyzer{
		languages: &languageCache{detector: detector, cache: make(map[string]models.LanguageResult)},
		sentiment: sentimentAnalyzer,
	}
}

// Assess combines linguistic, behavioral, temporal, network and content
// signals into one bot likelihood score.
func (a *Analyzer) Assess(meta *models.AccountMetadata, recentPosts []string, network *models.NetworkMetadata) models.BotAssessment {
	var weighted, weightSum float64
	var indicators []models.BotIndicator

	add := func(name string, weight, componentScore float64, details []string) {
		componentScore = min(componentScore, 100)
		weighted += componentScore * weight
		weightSum += weight
		indicators = append(indicators, models.BotIndicator{
			Name:   name,
			Score:  componentScore,
			Weight: weight,
			Detail: strings.Join(details, "; "),
		})
	}

	if len(recentPosts) > 0 {
		s, details := a.linguisticScore(recentPosts)
		add("linguistic", linguisticWeight, s, details)
	}

	if meta != nil {
		s, details := behavioralScore(meta)
		add("behavioral", behavioralWeight, s, details)

		if hasTemporalData(meta) {
			s, details = temporalScore(meta)
			add("temporal", temporalWeight, s, details)
		}
	}

	if network != nil {
		s, details := networkScore(network)
		add("network", networkWeight, s, details)
	}

	if len(recentPosts) > 0 {
		s, details := contentScore(recentPosts)
		add("content", contentWeight, s, details)
	}

	var score float64
	if weightSum > 0 {
		score = min(weighted/weightSum, 100)
	}
	return models.BotAssessment{
		Score:            score,
		Likely:           score > likelyThreshold,
		HumanProbability: 100 - score,
		Likelihood:       likelihood(score),
		Confidence:       min(score/100+0.1, 0.95),
		Indicators:       indicators,
	}
}

// Temporal signals only exist when at least one timing field is populated;
// without them the component is dropped from the blend instead of scoring
// a misleading zero.
func hasTemporalData(meta *models.AccountMetadata) bool {
	return len(meta.PostingHours) > 0 || len(meta.ActivityPattern) == 24 || meta.ResponseSeconds > 0
}

func likelihood(score float64) string {
	switch {
	case score >= 85:
		return "SOPHISTICATED_BOT"
	case score >= 70:
		return "ADVANCED_BOT"
	case score >= 50:
		return "SIMPLE_BOT"
	case score >= 30:
		return "SEMI_AUTOMATED"
	default:
		return "LIKELY_HUMAN"
	}
}

func (a *Analyzer) linguisticScore(posts []string) (float64, []string) {
	var score float64
	var details []string

	// Content repetition
	unique := make(map[string]struct{}, len(posts))
	for _, p := range posts {
		unique[p] = struct{}{}
	}
	repetition := 1 - float64(len(unique))/float64(len(posts))
	switch {
	case repetition > 0.8:
		score += 40
		details = append(details, "extremely high content repetition")
	case repetition > 0.6:
		score += 25
		details = append(details, "high content repetition")
	case repetition > 0.4:
		score += 15
		details = append(details, "moderate content repetition")
	}

	// Language consistency: a human rarely alternates languages post to
	// post, so many distinct languages in a short window reads automated.
	langs := make(map[string]struct{})
	for _, p := range posts {
		langs[a.languages.detect(p).Language] = struct{}{}
	}
	if float64(len(langs))/float64(len(posts)) > 0.5 && len(posts) > 1 {
		score += 20
		details = append(details, "inconsistent language patterns")
	}

	// Template detection
	if templated, confidence := detectTemplates(posts); templated {
		score += 30
		details = append(details, fmt.Sprintf("template-based content (consistency %.2f)", confidence))
	}

	// Emotional consistency
	if consistency := a.emotionalConsistency(posts); consistency > 0.9 {
		score += 20
		details = append(details, "unnaturally consistent emotional patterns")
	}

	return score, details
}

func behavioralScore(meta *models.AccountMetadata) (float64, []string) {
	var score float64
	var details []string

	switch {
	case meta.PostsPerDay > 200:
		score += 50
		details = append(details, "extremely high posting frequency")
	case meta.PostsPerDay > 100:
		score += 35
		details = append(details, "very high posting frequency")
	case meta.PostsPerDay > 50:
		score += 20
		details = append(details, "high posting frequency")
	}

	completed := 0
	for _, field := range []string{meta.Bio, meta.ProfileImage, meta.Location, meta.Website, meta.DisplayName} {
		if field != "" {
			completed++
		}
	}
	if float64(completed)/5 < 0.3 {
		score += 25
		details = append(details, "incomplete profile")
	}

	username := strings.ToLower(meta.Username)
	for _, re := range genericUsernames {
		if re.MatchString(username) {
			score += 30
			details = append(details, "auto-generated username pattern")
			break
		}
	}

	if meta.Following > 0 {
		ratio := float64(meta.Followers) / float64(meta.Following)
		switch {
		case ratio < 0.01:
			score += 25
			details = append(details, "extremely low follower-to-following ratio")
		case ratio < 0.1:
			score += 15
			details = append(details, "low follower-to-following ratio")
		}
	}

	if meta.AccountAgeDays > 0 {
		activityRate := meta.PostsPerDay / (float64(meta.AccountAgeDays) / 30)
		if activityRate > 1000 {
			score += 30
			details = append(details, "unusually high activity rate for account age")
		}
	}

	switch {
	case meta.EngagementRate > 0 && meta.EngagementRate < 0.005:
		score += 20
		details = append(details, "extremely low engagement rate")
	case meta.EngagementRate > 0.8:
		score += 15
		details = append(details, "suspiciously high engagement rate")
	}

	return score, details
}

func temporalScore(meta *models.AccountMetadata) (float64, []string) {
	var score float64
	var details []string

	if len(meta.PostingHours) > 5 {
		v := variance(toFloats(meta.PostingHours))
		switch {
		case v < 1:
			score += 25
			details = append(details, "unnaturally consistent posting times")
		case v < 3:
			score += 15
			details = append(details, "somewhat consistent posting times")
		}
	}

	if len(meta.ActivityPattern) == 24 {
		active := 0
		for _, count := range meta.ActivityPattern {
			if count > 0 {
				active++
			}
		}
		switch {
		case active > 20:
			score += 35
			details = append(details, "inhuman round-the-clock activity")
		case active > 16:
			score += 20
			details = append(details, "suspicious activity pattern")
		}
	}

	switch {
	case meta.ResponseSeconds > 0 && meta.ResponseSeconds < 10:
		score += 20
		details = append(details, "unnaturally fast response times")
	case meta.ResponseSeconds > 0 && meta.ResponseSeconds < 30:
		score += 10
		details = append(details, "very fast response times")
	}

	return score, details
}

func networkScore(network *models.NetworkMetadata) (float64, []string) {
	var score float64
	var details []string

	total := network.TotalConnections
	if total == 0 {
		total = 1
	}
	similarity := float64(network.SimilarConnections) / float64(total)
	switch {
	case similarity > 0.8:
		score += 30
		details = append(details, "highly similar connection patterns")
	case similarity > 0.6:
		score += 20
		details = append(details, "similar connection patterns")
	}

	if network.ClusteringCoefficient > 0.9 {
		score += 25
		details = append(details, "unnaturally high network clustering")
	}
	if network.CoordinatedFollowing {
		score += 30
		details = append(details, "coordinated following behavior")
	}
	if network.SimultaneousCreation {
		score += 35
		details = append(details, "simultaneous account creation with similar accounts")
	}

	return score, details
}

func contentScore(posts []string) (float64, []string) {
	var score float64
	var details []string

	var urls, hashtags, mentions []float64
	for _, p := range posts {
		urls = append(urls, float64(len(urlPattern.FindAllString(p, -1))))
		hashtags = append(hashtags, float64(len(hashtagPattern.FindAllString(p, -1))))
		mentions = append(mentions, float64(len(mentionPattern.FindAllString(p, -1))))
	}

	if mean(urls) > 2 {
		score += 20
		details = append(details, "excessive URL sharing")
	}
	if mean(hashtags) > 5 && variance(hashtags) < 2 {
		score += 15
		details = append(details, "consistent excessive hashtag usage")
	}
	if mean(mentions) > 3 {
		score += 10
		details = append(details, "excessive mention usage")
	}

	return score, details
}

// detectTemplates checks structural consistency across posts: identical
// URL/mention/hashtag placement plus low variation in length suggests
// posts generated from one template.
func detectTemplates(posts []string) (bool, float64) {
	if len(posts) < 3 {
		return false, 0
	}

	type structure struct {
		hasURL, hasMention, hasHashtag bool
	}
	var structures []structure
	var wordCounts, sentenceCounts []float64
	for _, p := range posts {
		structures = append(structures, structure{
			hasURL:     urlPattern.MatchString(p),
			hasMention: mentionPattern.MatchString(p),
			hasHashtag: hashtagPattern.MatchString(p),
		})
		wordCounts = append(wordCounts, float64(len(strings.Fields(p))))
		sentenceCounts = append(sentenceCounts, float64(len(regexp.MustCompile(`[.!?]+`).Split(p, -1))))
	}

	consistent, checks := 0, 0
	for _, counts := range [][]float64{wordCounts, sentenceCounts} {
		m := mean(counts)
		cv := 0.0
		if m > 0 {
			cv = variance(counts) / m
		}
		if cv < 0.2 {
			consistent++
		}
		checks++
	}
	boolFields := []func(structure) bool{
		func(s structure) bool { return s.hasURL },
		func(s structure) bool { return s.hasMention },
		func(s structure) bool { return s.hasHashtag },
	}
	for _, field := range boolFields {
		uniform := true
		for _, s := range structures {
			if field(s) != field(structures[0]) {
				uniform = false
				break
			}
		}
		if uniform {
			consistent++
		}
		checks++
	}

	confidence := float64(consistent) / float64(checks)
	return confidence > 0.7, confidence
}

// emotionalConsistency measures how little the emotional profile varies
// across posts. Humans drift; bots stay flat.
func (a *Analyzer) emotionalConsistency(posts []string) float64 {
	if len(posts) < 3 {
		return 0.5
	}

	limit := min(len(posts), 10)
	tracked := []string{"anger", "joy", "sadness", "fear"}
	vectors := make([][]float64, 0, limit)
	for _, p := range posts[:limit] {
		profile := a.sentiment.Analyze(p, a.languages.detect(p))
		vec := make([]float64, len(tracked))
		for i, emotion := range tracked {
			vec[i] = profile.Emotions[emotion]
		}
		vectors = append(vectors, vec)
	}

	var consistencySum float64
	for i := range tracked {
		col := make([]float64, len(vectors))
		for j, vec := range vectors {
			col[j] = vec[i]
		}
		consistencySum += 1 - min(math.Sqrt(variance(col)), 1.0)
	}
	return consistencySum / float64(len(tracked))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		sum += (v - m) * (v - m)
	}
	return sum / float64(len(values))
}

func toFloats(ints []int) []float64 {
	out := make([]float64, len(ints))
	for i, v := range ints {
		out[i] = float64(v)
	}
	return out
}
