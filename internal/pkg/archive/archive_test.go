package archive

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"threatlens/internal/pkg/logger"
	"threatlens/internal/pkg/models"
)

func init() {
	// Ensure that the logger is not nil during tests.
	logger.Log = zap.NewNop()
}

// Verifies that when the threshold is met, the BulkExporter flushes
// results to the (simulated) archive endpoint.
func TestBulkExporterFlushSuccess(t *testing.T) {
	// Create a channel to capture the request payload.
	payloadCh := make(chan []byte, 1)

	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("Failed to read request body: %v", err)
		}
		payloadCh <- body
		w.WriteHeader(http.StatusOK)
	}))
	defer testServer.Close()

	// Threshold of 2 with a long flush interval, so flush comes only from
	// the threshold.
	threshold := 2
	archiveIndex := "test_results"
	exporter := NewBulkExporter(threshold, testServer.URL, archiveIndex, 60, 1)
	defer exporter.Stop()

	exporter.Add(&models.AnalysisResult{CaseID: "CASE_1", Risk: models.AggregateRisk{Score: 12}})
	exporter.Add(&models.AnalysisResult{CaseID: "CASE_2", Risk: models.AggregateRisk{Score: 88}})

	select {
	case payload := <-payloadCh:
		// The NDJSON payload has a meta line and a result line per entry.
		scanner := bufio.NewScanner(bytes.NewReader(payload))
		var lines []string
		for scanner.Scan() {
			line := scanner.Text()
			if strings.TrimSpace(line) != "" {
				lines = append(lines, line)
			}
		}
		expectedLines := threshold * 2
		if len(lines) != expectedLines {
			t.Errorf("Expected %d NDJSON lines (2 per result), got %d", expectedLines, len(lines))
		}

		var meta map[string]map[string]string
		if err := json.Unmarshal([]byte(lines[0]), &meta); err != nil {
			t.Errorf("Failed to unmarshal meta line: %v", err)
		}
		if meta["index"]["_index"] != archiveIndex {
			t.Errorf("Expected _index to be %q, got %q", archiveIndex, meta["index"]["_index"])
		}
		if meta["index"]["_id"] != "CASE_1" {
			t.Errorf("Expected _id to be CASE_1, got %q", meta["index"]["_id"])
		}
	case <-time.After(3 * time.Second):
		t.Error("Timed out waiting for flush payload")
	}
}

// Verifies that the retry mechanism is exercised when the archive
// endpoint returns error codes.
func TestBulkExporterRetry(t *testing.T) {
	var attemptCount int32

	// Returns HTTP 500 for the first two attempts, then HTTP 200.
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := atomic.AddInt32(&attemptCount, 1)
		if count < 3 {
			w.WriteHeader(http.StatusInternalServerError)
		} else {
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer testServer.Close()

	// Threshold of 1 so that flush is triggered immediately.
	exporter := NewBulkExporter(1, testServer.URL, "retry_results", 60, 3)
	defer exporter.Stop()

	exporter.Add(&models.AnalysisResult{CaseID: "CASE_RETRY"})

	// Wait enough time for the retries to complete.
	time.Sleep(5 * time.Second)

	if atomic.LoadInt32(&attemptCount) < 3 {
		t.Errorf("Expected at least 3 attempts, got %d", attemptCount)
	}
}

// Verifies that Stop performs a final flush of buffered results.
func TestBulkExporterStopFlushes(t *testing.T) {
	var requests int32
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer testServer.Close()

	exporter := NewBulkExporter(100, testServer.URL, "final_results", 60, 1)
	exporter.Add(&models.AnalysisResult{CaseID: "CASE_FINAL"})
	exporter.Stop()

	if atomic.LoadInt32(&requests) != 1 {
		t.Errorf("Expected final flush on Stop, got %d requests", requests)
	}
}
