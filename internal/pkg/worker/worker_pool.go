package worker

import (
    "context"
    "sync"
    "time"

    "go.uber.org/zap"

    "threatlens/internal/pkg/archive"
    "threatlens/internal/pkg/engine"
    "threatlens/internal/pkg/logger"
    "threatlens/internal/pkg/queue"
)

// Manages a pool of workers that analyze queued requests in parallel
type WorkerPool struct {
    numWorkers int
    queue      *queue.Queue
    engine     *engine.Engine
    exporter   *archive.BulkExporter
    wg         sync.WaitGroup
}

// Creates a new worker pool with the specified number of workers
func NewWorkerPool(numWorkers int, queue *queue.Queue, engine *engine.Engine, exporter *archive.BulkExporter) *WorkerPool {
    return &WorkerPool{
        numWorkers: numWorkers,
        queue:      queue,
        engine:     engine,
        exporter:   exporter,
    }
}

// Launches the worker goroutines
func (wp *WorkerPool) Start(ctx context.Context) {
    logger.Log.Info("Starting worker pool", zap.Int("workers", wp.numWorkers))

    for i := 0; i < wp.numWorkers; i++ {
        wp.wg.Add(1)
        go wp.runWorker(ctx, i)
    }
}

// Blocks until all workers have finished
func (wp *WorkerPool) Wait() {
    wp.wg.Wait()
}

// The main loop for each worker goroutine
func (wp *WorkerPool) runWorker(ctx context.Context, id int) {
    defer wp.wg.Done()

    logger.Log.Info("Worker started", zap.Int("worker_id", id))

    for {
        select {
        case <-ctx.Done():
            logger.Log.Info("Worker received stop signal", zap.Int("worker_id", id))
            return
        default:
            request, err := wp.queue.Remove()
            if err != nil {
                // If queue is empty, wait a bit before trying again
                time.Sleep(200 * time.Millisecond)
                continue
            }

            result := wp.engine.Analyze(ctx, request)

            logger.Log.Debug("Analyzed request",
                zap.Int("worker_id", id),
                zap.String("case_id", result.CaseID),
                zap.Float64("risk_score", result.Risk.Score))

            // Cached results were already archived on first analysis
            if !result.FromCache && wp.exporter != nil {
                wp.exporter.Add(&result)
            }
        }
    }
}
