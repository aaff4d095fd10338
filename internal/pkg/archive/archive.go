package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"threatlens/internal/pkg/logger"
	"threatlens/internal/pkg/metrics"
	"threatlens/internal/pkg/models"
)

// Buffers analysis results until a threshold is reached or a flush
// interval elapses, then ships them as an NDJSON bulk payload.
type BulkExporter struct {
	mutex         sync.Mutex
	buffer        []*models.AnalysisResult
	threshold     int
	flushChannel  chan struct{}
	done          chan struct{}
	wg            sync.WaitGroup
	archiveURL    string
	archiveIndex  string
	flushInterval time.Duration
	maxRetries    int
}

// Creates a new BulkExporter and starts its background flush loop.
func NewBulkExporter(threshold int, archiveURL, archiveIndex string, flushIntervalSeconds, maxRetries int) *BulkExporter {
	if threshold <= 0 {
		threshold = 25
	}
	if flushIntervalSeconds <= 0 {
		flushIntervalSeconds = 30
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	exporter := &BulkExporter{
		buffer:        make([]*models.AnalysisResult, 0, threshold),
		threshold:     threshold,
		flushChannel:  make(chan struct{}, 1),
		done:          make(chan struct{}),
		archiveURL:    archiveURL,
		archiveIndex:  archiveIndex,
		flushInterval: time.Duration(flushIntervalSeconds) * time.Second,
		maxRetries:    maxRetries,
	}
	exporter.wg.Add(1)
	go exporter.startFlushing()
	return exporter
}

// Runs in a goroutine and flushes when signaled or on the interval.
func (exporter *BulkExporter) startFlushing() {
	defer exporter.wg.Done()
	ticker := time.NewTicker(exporter.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-exporter.flushChannel:
			exporter.flush()
		case <-ticker.C:
			exporter.flush()
		case <-exporter.done:
			exporter.flush()
			return
		}
	}
}

// Adds a result to the buffer and signals a flush if the threshold is met.
func (exporter *BulkExporter) Add(result *models.AnalysisResult) {
	exporter.mutex.Lock()
	defer exporter.mutex.Unlock()

	exporter.buffer = append(exporter.buffer, result)
	if len(exporter.buffer) >= exporter.threshold {
		select {
		case exporter.flushChannel <- struct{}{}:
		default:
			// flush already signaled
		}
	}
}

// Stops the background loop after a final flush of buffered results.
func (exporter *BulkExporter) Stop() {
	close(exporter.done)
	exporter.wg.Wait()
}

// Builds the NDJSON payload and sends it to the archive.
func (exporter *BulkExporter) flush() {
	exporter.mutex.Lock()
	if len(exporter.buffer) == 0 {
		exporter.mutex.Unlock()
		return
	}
	resultsToExport := exporter.buffer
	exporter.buffer = make([]*models.AnalysisResult, 0, exporter.threshold)
	exporter.mutex.Unlock()

	var ndjsonPayload bytes.Buffer
	for _, result := range resultsToExport {
		meta := map[string]map[string]string{
			"index": {
				"_index": exporter.archiveIndex,
				"_id":    result.CaseID,
			},
		}
		metaLine, err := json.Marshal(meta)
		if err != nil {
			logger.Log.Error("Failed to marshal meta line", zap.Error(err))
			continue
		}
		ndjsonPayload.Write(metaLine)
		ndjsonPayload.WriteByte('\n')

		resultLine, err := json.Marshal(result)
		if err != nil {
			logger.Log.Error("Failed to marshal analysis result", zap.Error(err))
			continue
		}
		ndjsonPayload.Write(resultLine)
		ndjsonPayload.WriteByte('\n')
	}

	logger.Log.Info("Flushing analysis results to archive", zap.Int("count", len(resultsToExport)))
	metrics.BulkFlushes.Inc()
	metrics.ResultsArchived.Add(float64(len(resultsToExport)))

	exporter.sendBulkRequest(ndjsonPayload.Bytes())
}

// Sends the bulk payload, retrying with backoff on failure.
func (exporter *BulkExporter) sendBulkRequest(payload []byte) {
	for attempt := 1; attempt <= exporter.maxRetries; attempt++ {
		request, err := http.NewRequestWithContext(context.Background(), "POST", exporter.archiveURL, bytes.NewReader(payload))
		if err != nil {
			logger.Log.Error("Failed to create bulk request", zap.Error(err))
			metrics.BulkFailures.Inc()
			return
		}
		request.Header.Set("Content-Type", "application/x-ndjson")

		response, err := http.DefaultClient.Do(request)
		if err != nil {
			logger.Log.Warn("Bulk archive request failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
		} else {
			statusCode := response.StatusCode
			response.Body.Close()
			if statusCode >= 200 && statusCode < 300 {
				logger.Log.Info("Bulk archive successful", zap.Int("status_code", statusCode))
				return
			}
			logger.Log.Warn("Bulk archive rejected",
				zap.Int("attempt", attempt),
				zap.Int("status_code", statusCode))
		}

		if attempt < exporter.maxRetries {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}
	metrics.BulkFailures.Inc()
	logger.Log.Error("Bulk archive failed after retries", zap.Int("retries", exporter.maxRetries))
}
