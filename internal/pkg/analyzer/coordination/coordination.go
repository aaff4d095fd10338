package coordination

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"threatlens/internal/pkg/models"
)

// Weights of the three coordination families in the overall score.
const (
	contentWeight    = 0.4
	temporalWeight   = 0.3
	behavioralWeight = 0.3

	pairThreshold     = 0.8 // pairwise similarity above this flags a pair
	coordinationBar   = 0.6 // overall score above this declares coordination
	syncWindowSeconds = 300
)

var (
	urlPattern     = regexp.MustCompile(`https?://\S+`)
	domainPattern  = regexp.MustCompile(`https?://([^/\s]+)`)
	hashtagPattern = regexp.MustCompile(`#(\w+)`)
	mentionPattern = regexp.MustCompile(`@(\w+)`)
)

// Detects coordinated posting campaigns across a set of posts.
type Detector struct{}

func NewDetector() *Detector {
	return &Detector{}
}

// Analyze scores a post set for coordination. Fewer than two posts cannot
// exhibit coordination and return the zero-value verdict.
func (d *Detector) Analyze(posts []models.Post) models.CoordinationAssessment {
	if len(posts) < 2 {
		return models.CoordinationAssessment{PatternType: "NO_COORDINATION", NetworkSize: 1}
	}

	content := d.analyzeContent(posts)
	temporal := d.analyzeTemporal(posts)
	behavioral := d.analyzeBehavioral(posts)

	contentScore := min(content.score, 1)
	temporalScore := min(temporal.score, 1)
	behavioralScore := min(behavioral.score, 1)
	overall := min(contentScore*contentWeight+temporalScore*temporalWeight+behavioralScore*behavioralWeight, 1)

	allEvidence := append(append(append([]string{}, content.evidence...), temporal.evidence...), behavioral.evidence...)

	assessment := models.CoordinationAssessment{
		Score:           overall,
		Coordinated:     overall > coordinationBar,
		Confidence:      confidence(len(posts), content.evidence, temporal.evidence, behavioral.evidence),
		PatternType:     patternType(content.evidence, temporal.evidence, behavioral.evidence),
		ContentScore:    contentScore,
		TemporalScore:   temporalScore,
		BehavioralScore: behavioralScore,
		TemplateScore:   content.templateScore,
		Sophistication:  sophistication(allEvidence, content.similarities),
		NetworkSize:     estimateNetworkSize(posts, len(allEvidence)),
		SimilarPairs:    content.pairs,
		SyncedIntervals: temporal.syncedIntervals,
		BurstDetected:   temporal.burst,
		Evidence:        allEvidence,
	}
	return assessment
}

type contentFindings struct {
	score         float64
	templateScore float64
	similarities  []float64
	pairs         []models.PostPair
	evidence      []string
}

func (d *Detector) analyzeContent(posts []models.Post) contentFindings {
	var f contentFindings

	contents := make([]string, len(posts))
	for i, p := range posts {
		contents[i] = p.Content
	}

	for i := 0; i < len(contents); i++ {
		for j := i + 1; j < len(contents); j++ {
			sim := Similarity(contents[i], contents[j])
			f.similarities = append(f.similarities, sim)
			if sim > pairThreshold {
				f.pairs = append(f.pairs, models.PostPair{IndexA: i, IndexB: j, Similarity: sim})
				f.evidence = append(f.evidence, fmt.Sprintf("high content similarity between posts %d and %d (%.2f)", i+1, j+1, sim))
			}
		}
	}

	if len(f.similarities) > 0 {
		f.score = mean(f.similarities)
	}

	if len(contents) > 2 {
		f.templateScore = templateScore(contents)
		if f.templateScore > 0.7 {
			f.evidence = append(f.evidence, "template-based content coordination detected")
		} else if f.templateScore > 0.5 {
			f.evidence = append(f.evidence, "potential template usage detected")
		}
	}
	f.score += f.templateScore * 0.3

	f.evidence = append(f.evidence, urlCoordination(contents)...)
	f.evidence = append(f.evidence, hashtagCoordination(contents)...)
	return f
}

type temporalFindings struct {
	score           float64
	syncedIntervals int
	burst           bool
	evidence        []string
}

func (d *Detector) analyzeTemporal(posts []models.Post) temporalFindings {
	var f temporalFindings

	var seconds []float64
	for _, p := range posts {
		if !p.Timestamp.IsZero() {
			seconds = append(seconds, float64(p.Timestamp.Unix()))
		}
	}
	if len(seconds) < 2 {
		return f
	}
	sort.Float64s(seconds)

	intervals := make([]float64, 0, len(seconds)-1)
	for i := 1; i < len(seconds); i++ {
		intervals = append(intervals, seconds[i]-seconds[i-1])
	}

	for _, iv := range intervals {
		if iv < syncWindowSeconds {
			f.syncedIntervals++
		}
	}
	if float64(f.syncedIntervals) > float64(len(intervals))*0.5 {
		f.score += 0.6
		f.evidence = append(f.evidence, "synchronized posting detected (multiple posts within 5 minutes)")
	}

	if len(intervals) > 3 {
		m := mean(intervals)
		if m > 0 {
			cv := math.Sqrt(variance(intervals)) / m
			if cv < 0.3 {
				f.score += 0.4
				f.evidence = append(f.evidence, fmt.Sprintf("regular posting intervals detected (CV: %.2f)", cv))
			}
		}
	}

	burstThreshold := mean(intervals) - 2*math.Sqrt(variance(intervals))
	burstCount := 0
	for _, iv := range intervals {
		if iv > 0 && iv < burstThreshold {
			burstCount++
		}
	}
	if float64(burstCount) > float64(len(intervals))*0.3 {
		f.burst = true
		f.evidence = append(f.evidence, "burst posting patterns detected")
	}

	return f
}

type behavioralFindings struct {
	score    float64
	evidence []string
}

func (d *Detector) analyzeBehavioral(posts []models.Post) behavioralFindings {
	var f behavioralFindings

	type profile struct {
		followers int
		ageDays   int
		verified  bool
	}
	var profiles []profile
	for _, p := range posts {
		if p.Metadata == nil {
			continue
		}
		profiles = append(profiles, profile{
			followers: p.Metadata.Followers,
			ageDays:   p.Metadata.AccountAgeDays,
			verified:  p.Metadata.Verified,
		})
	}
	if len(profiles) < 2 {
		return f
	}

	// Pairwise profile similarity
	var sims []float64
	for i := 0; i < len(profiles); i++ {
		for j := i + 1; j < len(profiles); j++ {
			a, b := profiles[i], profiles[j]
			score, factors := 0.0, 0
			if a.followers > 0 && b.followers > 0 {
				score += float64(min(a.followers, b.followers)) / float64(max(a.followers, b.followers))
				factors++
			}
			if a.ageDays > 0 && b.ageDays > 0 {
				ageDiff := math.Abs(float64(a.ageDays - b.ageDays))
				score += 1 - min(ageDiff/365, 1.0)
				factors++
			}
			if a.verified == b.verified {
				score++
				factors++
			}
			if factors > 0 {
				sims = append(sims, score/float64(factors))
			}
		}
	}
	if len(sims) > 0 {
		f.score = mean(sims)
		if f.score > 0.8 {
			f.evidence = append(f.evidence, "high user profile similarity detected")
		}
	}

	// Account age clustering
	var ages []float64
	for _, p := range profiles {
		if p.ageDays > 0 {
			ages = append(ages, float64(p.ageDays))
		}
	}
	if len(ages) > 2 && math.Sqrt(variance(ages)) < mean(ages)*0.2 {
		f.evidence = append(f.evidence, "similar account creation times detected")
	}

	// Follower count clustering
	var followers []float64
	for _, p := range profiles {
		followers = append(followers, float64(p.followers))
	}
	if len(followers) > 2 && mean(followers) > 0 {
		if math.Sqrt(variance(followers))/mean(followers) < 0.3 {
			f.evidence = append(f.evidence, "similar follower counts across accounts")
		}
	}

	return f
}

// Similarity blends word-set overlap with character trigram overlap, so
// both wholesale copying and light rewording score high.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}

	wordsA := toSet(strings.Fields(strings.ToLower(a)))
	wordsB := toSet(strings.Fields(strings.ToLower(b)))
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}
	jaccard := jaccardIndex(wordsA, wordsB)

	ngramsA := trigrams(strings.ToLower(a))
	ngramsB := trigrams(strings.ToLower(b))
	ngramSim := 0.0
	if len(ngramsA) > 0 && len(ngramsB) > 0 {
		ngramSim = jaccardIndex(ngramsA, ngramsB)
	}

	return jaccard*0.7 + ngramSim*0.3
}

// templateScore measures structural uniformity: shared URL/hashtag/mention
// placement, similar length buckets and consistent capitalization.
func templateScore(contents []string) float64 {
	if len(contents) < 3 {
		return 0
	}

	type structure struct {
		hasURL, hasHashtag, hasMention, startsCaps bool
		wordBucket                                 int
	}
	structures := make([]structure, len(contents))
	for i, c := range contents {
		trimmed := strings.TrimSpace(c)
		structures[i] = structure{
			hasURL:     urlPattern.MatchString(c),
			hasHashtag: hashtagPattern.MatchString(c),
			hasMention: mentionPattern.MatchString(c),
			startsCaps: trimmed != "" && trimmed[0] >= 'A' && trimmed[0] <= 'Z',
			wordBucket: len(strings.Fields(c)) / 10,
		}
	}

	var scores []float64
	boolFields := []func(structure) bool{
		func(s structure) bool { return s.hasURL },
		func(s structure) bool { return s.hasHashtag },
		func(s structure) bool { return s.hasMention },
		func(s structure) bool { return s.startsCaps },
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
			scores = append(scores, 1)
		} else {
			scores = append(scores, 0)
		}
	}

	buckets := make(map[int]struct{})
	for _, s := range structures {
		buckets[s.wordBucket] = struct{}{}
	}
	if len(buckets) <= 2 {
		scores = append(scores, 0.8)
	} else {
		scores = append(scores, 0)
	}

	return mean(scores)
}

func urlCoordination(contents []string) []string {
	var evidence []string

	urlCounts := make(map[string]int)
	domainCounts := make(map[string]int)
	for _, c := range contents {
		for _, u := range urlPattern.FindAllString(c, -1) {
			urlCounts[u]++
			if m := domainPattern.FindStringSubmatch(u); m != nil {
				domainCounts[m[1]]++
			}
		}
	}

	shared := 0
	for _, count := range urlCounts {
		if count > 1 {
			shared++
		}
	}
	if shared > 0 {
		evidence = append(evidence, fmt.Sprintf("shared URLs detected: %d unique URLs", shared))
	}

	var dominant []string
	for domain, count := range domainCounts {
		if float64(count) > float64(len(contents))*0.5 {
			dominant = append(dominant, domain)
		}
	}
	if len(dominant) > 0 {
		sort.Strings(dominant)
		evidence = append(evidence, "coordinated domain usage: "+strings.Join(dominant, ", "))
	}
	return evidence
}

func hashtagCoordination(contents []string) []string {
	counts := make(map[string]int)
	for _, c := range contents {
		for _, m := range hashtagPattern.FindAllStringSubmatch(strings.ToLower(c), -1) {
			counts[m[1]]++
		}
	}

	var coordinated []string
	for tag, count := range counts {
		if count > 1 && float64(count) >= float64(len(contents))*0.3 {
			coordinated = append(coordinated, tag)
		}
	}
	if len(coordinated) == 0 {
		return nil
	}
	sort.Strings(coordinated)
	if len(coordinated) > 3 {
		coordinated = coordinated[:3]
	}
	return []string{"coordinated hashtag usage: " + strings.Join(coordinated, ", ")}
}

func patternType(contentEv, temporalEv, behavioralEv []string) string {
	scores := map[string]int{
		"CONTENT":    len(contentEv),
		"TIMING":     len(temporalEv),
		"BEHAVIORAL": len(behavioralEv),
	}

	total := 0
	high := 0
	primary, best := "NO_COORDINATION", 0
	for _, family := range []string{"CONTENT", "TIMING", "BEHAVIORAL"} {
		n := scores[family]
		total += n
		if n >= 2 {
			high++
		}
		if n > best {
			primary, best = family, n
		}
	}
	if total == 0 {
		return "NO_COORDINATION"
	}
	if high > 1 {
		return "HYBRID_COORDINATION"
	}
	return primary
}

func sophistication(evidence []string, similarities []float64) string {
	score := len(evidence)

	if len(similarities) > 0 {
		avg := mean(similarities)
		switch {
		case avg > 0.9:
			score += 3
		case avg > 0.7:
			score += 2
		case avg > 0.5:
			score++
		}
	}

	for _, e := range evidence {
		lower := strings.ToLower(e)
		for _, marker := range []string{"template", "synchronized", "campaign", "coordinated"} {
			if strings.Contains(lower, marker) {
				score++
				break
			}
		}
	}

	switch {
	case score >= 8:
		return "HIGHLY_SOPHISTICATED"
	case score >= 5:
		return "SOPHISTICATED"
	case score >= 3:
		return "MODERATE"
	default:
		return "BASIC"
	}
}

func estimateNetworkSize(posts []models.Post, evidenceCount int) int {
	users := make(map[string]struct{})
	for _, p := range posts {
		users[p.UserID] = struct{}{}
	}

	multiplier := 1.5
	switch {
	case evidenceCount >= 5:
		multiplier = 2.5
	case evidenceCount >= 3:
		multiplier = 2.0
	}

	size := int(float64(len(users)) * multiplier)
	if size > 1000 {
		size = 1000
	}
	return size
}

func confidence(postCount int, contentEv, temporalEv, behavioralEv []string) float64 {
	factors := []float64{
		min(float64(postCount)/5, 1.0),
		float64(len(contentEv)) * 0.1,
		float64(len(temporalEv)) * 0.1,
		float64(len(behavioralEv)) * 0.1,
	}
	return min(mean(factors), 0.95)
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, s := range items {
		set[s] = struct{}{}
	}
	return set
}

func trigrams(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for i := 0; i+3 <= len(s); i++ {
		set[s[i:i+3]] = struct{}{}
	}
	return set
}

func jaccardIndex(a, b map[string]struct{}) float64 {
	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
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
