package administrator

import (
    "context"
    "time"

    "go.uber.org/zap"

    "threatlens/internal/pkg/analyzer/entity"
    "threatlens/internal/pkg/archive"
    "threatlens/internal/pkg/cache"
    "threatlens/internal/pkg/config"
    "threatlens/internal/pkg/engine"
    "threatlens/internal/pkg/enrich"
    "threatlens/internal/pkg/lexicon"
    "threatlens/internal/pkg/logger"
    "threatlens/internal/pkg/models"
    "threatlens/internal/pkg/queue"
    "threatlens/internal/pkg/worker"
)

// Administrator interface
type Administrator interface {
    EnqueueAnalysis(ctx context.Context, req models.AnalysisRequest) error
    AnalyzeNow(ctx context.Context, req models.AnalysisRequest) models.AnalysisResult
    StartWorkers(ctx context.Context) error
    StartService(port string)
    Stop()
    QueueDepth() int
    WorkerCount() int
    StartTime() time.Time
    EngineStats() engine.StatsSnapshot
}

// Implementation of the Administrator interface
type administrator struct {
    engine     *engine.Engine
    queue      *queue.Queue
    exporter   *archive.BulkExporter
    workerPool *worker.WorkerPool
    remoteNER  *entity.RemoteNER
    startTime  time.Time
    numWorkers int
}

// Creates a new instance of an Administrator with a config
func New(cfg *config.Config) Administrator {
    requestQueue, err := queue.CreateQueue(cfg.QueueCapacity)
    if err != nil {
        logger.Log.Fatal("Failed to create queue", zap.Error(err))
    }

    store, err := lexicon.Load()
    if err != nil {
        logger.Log.Fatal("Failed to load lexicon", zap.Error(err))
    }

    // Redis cache if configured, in-memory LRU otherwise
    var resultCache cache.ResultCache
    if cfg.RedisHost != "" {
        resultCache, err = cache.NewRedisCache(
            cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword, cfg.RedisDB,
            time.Duration(cfg.CacheTTLHours)*time.Hour,
        )
        if err != nil {
            logger.Log.Warn("Redis unavailable, falling back to in-memory cache", zap.Error(err))
            resultCache = nil
        }
    }
    if resultCache == nil {
        resultCache = cache.NewLRUCache(cfg.CacheCapacity)
    }

    var remoteNER *entity.RemoteNER
    var ner entity.NERModel
    if cfg.NerServiceURL != "" {
        remoteNER = entity.NewRemoteNER(cfg.NerServiceURL, 10, 200*time.Millisecond)
        ner = remoteNER
    }

    var enricher enrich.Enricher
    if cfg.OpenAIKey != "" {
        enricher = enrich.NewEnricher(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
    }

    analysisEngine := engine.New(store, engine.Options{
        NER:                   ner,
        Cache:                 resultCache,
        Enricher:              enricher,
        BotLikelyThreshold:    cfg.BotLikelyThreshold,
        CoordinationThreshold: cfg.CoordinationThreshold,
    })

    exporter := archive.NewBulkExporter(
        cfg.BulkThreshold,
        cfg.ArchiveURL,
        cfg.ArchiveIndex,
        cfg.FlushInterval,
        cfg.MaxRetries,
    )

    // Get number of workers from config
    numWorkers := cfg.NumWorkers
    if numWorkers <= 0 {
        numWorkers = 1 // Default to 1 worker if not specified
    }

    wp := worker.NewWorkerPool(numWorkers, requestQueue, analysisEngine, exporter)

    return &administrator{
        engine:     analysisEngine,
        queue:      requestQueue,
        exporter:   exporter,
        workerPool: wp,
        remoteNER:  remoteNER,
        startTime:  time.Now(),
        numWorkers: numWorkers,
    }
}

func (admin *administrator) EnqueueAnalysis(ctx context.Context, req models.AnalysisRequest) error {
    // This quickly returns so the caller can move on
    return admin.queue.Insert(req)
}

// Runs the analysis synchronously, bypassing the queue. Used by the
// report endpoint.
func (admin *administrator) AnalyzeNow(ctx context.Context, req models.AnalysisRequest) models.AnalysisResult {
    result := admin.engine.Analyze(ctx, req)
    if !result.FromCache {
        admin.exporter.Add(&result)
    }
    return result
}

// Starts the worker pool that drains the request queue
func (admin *administrator) StartWorkers(ctx context.Context) error {
    admin.workerPool.Start(ctx)
    return nil
}

// StartService starts the HTTP service at the given port
func (admin *administrator) StartService(port string) {
    logger.Log.Info("Starting HTTP analysis service", zap.String("port", port))
    startServiceHTTP(admin, port)
}

// Stops the queue, worker pool and exporter gracefully
func (admin *administrator) Stop() {
    logger.Log.Info("Beginning shutdown sequence")

    // First stop accepting new items in the queue
    admin.queue.Close()

    logger.Log.Info("Waiting for worker pool to finish processing existing items")
    admin.workerPool.Wait()

    logger.Log.Info("Worker pool shutdown complete, stopping bulk exporter")
    admin.exporter.Stop()

    if admin.remoteNER != nil {
        admin.remoteNER.Stop()
    }

    logger.Log.Info("Administrator stopped gracefully")
}

// Returns the current queue depth for health checks
func (admin *administrator) QueueDepth() int {
    return admin.queue.Length()
}

// Returns the number of workers for health checks
func (admin *administrator) WorkerCount() int {
    return admin.numWorkers
}

// Returns when the service was started for health checks
func (admin *administrator) StartTime() time.Time {
    return admin.startTime
}

// Returns a snapshot of the engine counters for health checks
func (admin *administrator) EngineStats() engine.StatsSnapshot {
    return admin.engine.Stats()
}
