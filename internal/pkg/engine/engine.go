package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"threatlens/internal/pkg/analyzer/bot"
	"threatlens/internal/pkg/analyzer/coordination"
	"threatlens/internal/pkg/analyzer/entity"
	"threatlens/internal/pkg/analyzer/language"
	"threatlens/internal/pkg/analyzer/sentiment"
	"threatlens/internal/pkg/analyzer/threat"
	"threatlens/internal/pkg/cache"
	"threatlens/internal/pkg/enrich"
	"threatlens/internal/pkg/lexicon"
	"threatlens/internal/pkg/logger"
	"threatlens/internal/pkg/metrics"
	"threatlens/internal/pkg/models"
	"threatlens/internal/pkg/report"
)

// Options tunes the optional collaborators and calibration knobs.
type Options struct {
	NER                   entity.NERModel   // nil = built-in heuristic tagger
	Cache                 cache.ResultCache // nil = in-memory LRU
	Enricher              enrich.Enricher   // nil = enrichment off
	BotLikelyThreshold    float64           // bot score considered automated, default 50
	CoordinationThreshold float64           // coordination score considered coordinated, default 0.6
}

// Engine runs the full multi-signal analysis pipeline for one request.
type Engine struct {
	store        *lexicon.Store
	detector     language.Detector
	sentiment    *sentiment.Analyzer
	entities     *entity.Extractor
	threat       *threat.Analyzer
	bot          *bot.Analyzer
	coordination *coordination.Detector
	cache        cache.ResultCache
	enricher     enrich.Enricher

	botLikelyThreshold    float64
	coordinationThreshold float64

	stats stats
}

type stats struct {
	mu                   sync.Mutex
	processed            int64
	cacheHits            int64
	botAnalyses          int64
	coordinationAnalyses int64
	enrichments          int64
	totalElapsedMS       int64
}

// Snapshot of the engine counters for the health endpoint.
type StatsSnapshot struct {
	Processed            int64   `json:"processed"`
	CacheHits            int64   `json:"cache_hits"`
	CacheHitRatio        float64 `json:"cache_hit_ratio"`
	BotAnalyses          int64   `json:"bot_analyses"`
	CoordinationAnalyses int64   `json:"coordination_analyses"`
	Enrichments          int64   `json:"enrichments"`
	AvgElapsedMS         float64 `json:"avg_elapsed_ms"`
}

// Creates a new analysis engine over a loaded lexicon store.
func New(store *lexicon.Store, opts Options) *Engine {
	detector := language.NewDetector()
	sentimentAnalyzer := sentiment.NewAnalyzer(store)

	resultCache := opts.Cache
	if resultCache == nil {
		resultCache = cache.NewLRUCache(1024)
	}
	if opts.BotLikelyThreshold <= 0 {
		opts.BotLikelyThreshold = 50
	}
	if opts.CoordinationThreshold <= 0 {
		opts.CoordinationThreshold = 0.6
	}

	return &Engine{
		store:                 store,
		detector:              detector,
		sentiment:             sentimentAnalyzer,
		entities:              entity.NewExtractor(store, opts.NER),
		threat:                threat.NewAnalyzer(store),
		bot:                   bot.NewAnalyzer(detector, sentimentAnalyzer),
		coordination:          coordination.NewDetector(),
		cache:                 resultCache,
		enricher:              opts.Enricher,
		botLikelyThreshold:    opts.BotLikelyThreshold,
		coordinationThreshold: opts.CoordinationThreshold,
	}
}

// Analyze runs every applicable signal for the request and aggregates them
// into a single risk assessment. Optional signals are skipped when their
// inputs are absent; failures in optional collaborators degrade to a
// logged warning rather than failing the analysis.
func (e *Engine) Analyze(ctx context.Context, req models.AnalysisRequest) models.AnalysisResult {
	started := time.Now()

	caseID := req.CaseID
	if caseID == "" {
		caseID = report.NewCaseID()
	}

	key := cache.Signature(req.Content, req.Metadata)
	if cached, ok := e.cache.Get(ctx, key); ok {
		metrics.CacheHits.Inc()
		e.stats.mu.Lock()
		e.stats.cacheHits++
		e.stats.processed++
		e.stats.mu.Unlock()

		result := *cached
		result.CaseID = caseID
		result.FromCache = true
		return result
	}
	metrics.CacheMisses.Inc()

	lang := e.detector.Detect(req.Content)
	sentimentProfile := e.sentiment.Analyze(req.Content, lang)
	entities := e.entities.Extract(ctx, req.Content)
	threatAssessment := e.threat.Assess(req.Content, sentimentProfile, req.Metadata)
	contentRisk := e.threat.ContentRisk(req.Content)

	result := models.AnalysisResult{
		CaseID:    caseID,
		Content:   req.Content,
		Language:  lang,
		Sentiment: sentimentProfile,
		Entities:  entities,
		Threat:    threatAssessment,
	}

	if req.Metadata != nil || req.Network != nil || len(req.RecentPosts) > 0 {
		botAssessment := e.bot.Assess(req.Metadata, req.RecentPosts, req.Network)
		botAssessment.Likely = botAssessment.Score > e.botLikelyThreshold
		result.Bot = &botAssessment
		e.stats.mu.Lock()
		e.stats.botAnalyses++
		e.stats.mu.Unlock()
	}

	if len(req.Related) > 0 {
		posts := e.collectPosts(req)
		coordAssessment := e.coordination.Analyze(posts)
		coordAssessment.Coordinated = coordAssessment.Score > e.coordinationThreshold
		result.Coordination = &coordAssessment
		e.stats.mu.Lock()
		e.stats.coordinationAnalyses++
		e.stats.mu.Unlock()
	}

	result.Risk = e.aggregate(req, contentRisk, sentimentProfile, entities, threatAssessment, result.Bot)

	if req.EnrichWith != "" && e.enricher != nil {
		enrichment, err := e.enricher.Enrich(ctx, req.Content, req.EnrichWith, map[string]any{
			"risk_score":   result.Risk.Score,
			"threat_score": threatAssessment.Score,
			"severity":     result.Risk.Severity,
		})
		if err != nil {
			logger.Log.Warn("Enrichment failed",
				zap.String("case_id", caseID),
				zap.String("profile", req.EnrichWith),
				zap.Error(err))
			result.Enrichment = &models.Enrichment{
				Profile: req.EnrichWith,
				Error:   err.Error(),
			}
		} else {
			result.Enrichment = enrichment
			e.stats.mu.Lock()
			e.stats.enrichments++
			e.stats.mu.Unlock()
		}
	}

	result.AnalyzedAt = time.Now().UTC()
	result.ElapsedMS = time.Since(started).Milliseconds()

	metrics.PostsAnalyzed.Inc()
	metrics.RiskScores.Observe(result.Risk.Score)
	metrics.ResultsBySeverity.WithLabelValues(result.Risk.Severity).Inc()

	e.stats.mu.Lock()
	e.stats.processed++
	e.stats.totalElapsedMS += result.ElapsedMS
	e.stats.mu.Unlock()

	cached := result
	cached.FromCache = false
	e.cache.Put(ctx, key, &cached)

	logger.Log.Debug("Analysis complete",
		zap.String("case_id", caseID),
		zap.Float64("risk_score", result.Risk.Score),
		zap.String("severity", result.Risk.Severity),
		zap.Int64("elapsed_ms", result.ElapsedMS))

	return result
}

// Builds the post set for coordination analysis: the submitted post first,
// then its related posts.
func (e *Engine) collectPosts(req models.AnalysisRequest) []models.Post {
	current := models.Post{
		Content:   req.Content,
		Timestamp: req.ReceivedAt,
		Metadata:  req.Metadata,
	}
	if req.Metadata != nil {
		current.UserID = req.Metadata.Username
	}
	return append([]models.Post{current}, req.Related...)
}

// Stats returns a point-in-time snapshot of the engine counters.
func (e *Engine) Stats() StatsSnapshot {
	e.stats.mu.Lock()
	defer e.stats.mu.Unlock()

	snapshot := StatsSnapshot{
		Processed:            e.stats.processed,
		CacheHits:            e.stats.cacheHits,
		BotAnalyses:          e.stats.botAnalyses,
		CoordinationAnalyses: e.stats.coordinationAnalyses,
		Enrichments:          e.stats.enrichments,
	}
	if e.stats.processed > 0 {
		snapshot.CacheHitRatio = float64(e.stats.cacheHits) / float64(e.stats.processed)
	}
	analyzed := e.stats.processed - e.stats.cacheHits
	if analyzed > 0 {
		snapshot.AvgElapsedMS = float64(e.stats.totalElapsedMS) / float64(analyzed)
	}
	return snapshot
}
