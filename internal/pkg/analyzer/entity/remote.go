package entity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"threatlens/internal/pkg/circuitbreaker"
	"threatlens/internal/pkg/logger"
	"threatlens/internal/pkg/models"
	"threatlens/internal/pkg/metrics"
)

// Remote NER model backed by an external tagging service. Requests are
// batched to amortize model startup cost on the service side.
type RemoteNER struct {
	serviceURL     string
	circuitBreaker *circuitbreaker.CircuitBreaker
	batchSize      int
	batchTimeout   time.Duration

	// Rate limiter for controlling API request rate
	rateLimiter *rate.Limiter
	limiterMu   sync.Mutex

	// Batch state
	mu             sync.Mutex
	currentBatch   []batchItem
	processingChan chan struct{}

	// For graceful shutdown
	done chan struct{}
}

type batchItem struct {
	text     string
	resultCh chan nerResult
}

type nerResult struct {
	entities []span
	err      error
}

// Wire format of one span returned by the tagging service.
type span struct {
	Text  string `json:"text"`
	Label string `json:"label"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Creates a remote NER client and starts its batching loop.
func NewRemoteNER(serviceURL string, batchSize int, batchTimeout time.Duration) *RemoteNER {
	r := &RemoteNER{
		serviceURL:     serviceURL,
		circuitBreaker: circuitbreaker.NewCircuitBreaker("ner-service", 5, 30*time.Second),
		batchSize:      batchSize,
		batchTimeout:   batchTimeout,
		// Rate limit to 5 batch requests per second with a burst of 10
		rateLimiter:    rate.NewLimiter(rate.Limit(5), 10),
		currentBatch:   make([]batchItem, 0, batchSize),
		processingChan: make(chan struct{}, 1),
		done:           make(chan struct{}),
	}

	go r.processBatches()

	return r
}

// Gracefully shuts down the batching loop.
func (r *RemoteNER) Stop() {
	close(r.done)
}

// Submits one text and blocks until its batch completes.
func (r *RemoteNER) Recognize(ctx context.Context, text string) ([]models.Entity, error) {
	if text == "" {
		return nil, nil
	}

	resultCh := make(chan nerResult, 1)
	r.mu.Lock()
	r.currentBatch = append(r.currentBatch, batchItem{text: text, resultCh: resultCh})

	// If batch is full, trigger processing
	if len(r.currentBatch) >= r.batchSize {
		select {
		case r.processingChan <- struct{}{}:
		default:
			// Channel already has signal
		}
	}
	r.mu.Unlock()

	select {
	case result := <-resultCh:
		if result.err != nil {
			return nil, result.err
		}
		return toModelEntities(result.entities), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *RemoteNER) processBatches() {
	ticker := time.NewTicker(r.batchTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-r.processingChan:
			r.processBatch()
		case <-ticker.C:
			r.processBatch()
		}
	}
}

func (r *RemoteNER) processBatch() {
	r.mu.Lock()
	if len(r.currentBatch) == 0 {
		r.mu.Unlock()
		return
	}
	batch := r.currentBatch
	r.currentBatch = make([]batchItem, 0, r.batchSize)
	r.mu.Unlock()

	metrics.NerBatchCount.Inc()
	metrics.NerBatchSize.Observe(float64(len(batch)))

	if r.circuitBreaker.State() == "open" {
		logger.Log.Warn("Circuit breaker open, skipping NER batch")
		failBatch(batch, circuitbreaker.ErrCircuitOpen)
		return
	}

	// Apply rate limiting before sending the batch
	r.limiterMu.Lock()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err := r.rateLimiter.Wait(ctx)
	cancel()
	r.limiterMu.Unlock()

	if err != nil {
		logger.Log.Warn("Rate limit exceeded for NER batch", zap.Error(err))
		failBatch(batch, fmt.Errorf("rate limit exceeded: %w", err))
		return
	}

	texts := make([]string, len(batch))
	for i, item := range batch {
		texts[i] = item.text
	}
	jsonData, err := json.Marshal(map[string]any{"documents": texts})
	if err != nil {
		failBatch(batch, err)
		return
	}

	var response struct {
		Results [][]span `json:"results"`
	}
	err = r.circuitBreaker.Execute(func() error {
		start := time.Now()

		req, err := http.NewRequest("POST", r.serviceURL+"/batch", bytes.NewBuffer(jsonData))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		client := &http.Client{Timeout: 30 * time.Second}
		resp, err := client.Do(req)
		if err != nil {
			metrics.NerErrors.Inc()
			return err
		}
		defer resp.Body.Close()

		metrics.NerLatency.Observe(time.Since(start).Seconds())

		if resp.StatusCode != http.StatusOK {
			metrics.NerErrors.Inc()
			return fmt.Errorf("NER service returned status: %d", resp.StatusCode)
		}

		return json.NewDecoder(resp.Body).Decode(&response)
	})

	if err != nil {
		logger.Log.Error("NER batch request failed", zap.Error(err))
		failBatch(batch, err)
		return
	}

	if len(response.Results) != len(batch) {
		err := fmt.Errorf("result count mismatch: got %d, want %d", len(response.Results), len(batch))
		logger.Log.Error("NER batch response error", zap.Error(err))
		failBatch(batch, err)
		return
	}

	for i := range batch {
		batch[i].resultCh <- nerResult{entities: response.Results[i]}
	}
}

func failBatch(batch []batchItem, err error) {
	for _, item := range batch {
		item.resultCh <- nerResult{err: err}
	}
}

func toModelEntities(spans []span) []models.Entity {
	out := make([]models.Entity, 0, len(spans))
	for _, s := range spans {
		typ := s.Label
		switch s.Label {
		case "PER", "PERSON":
			typ = "PERSON"
		case "LOC", "GPE", "PLACE":
			typ = "GPE"
		case "ORGANIZATION":
			typ = "ORG"
		}
		out = append(out, models.Entity{
			Text:       s.Text,
			Type:       typ,
			Start:      s.Start,
			End:        s.End,
			Confidence: 0.8,
			Source:     "remote",
		})
	}
	return out
}
