package administrator

import (
    "encoding/json"
    "net/http"
    "strings"
    "time"

    "github.com/prometheus/client_golang/prometheus/promhttp"
    "go.uber.org/zap"

    "threatlens/internal/pkg/engine"
    "threatlens/internal/pkg/enrich"
    "threatlens/internal/pkg/logger"
    "threatlens/internal/pkg/models"
    "threatlens/internal/pkg/report"
)

// Builds the HTTP mux for the analysis service: /analyze enqueues a
// request for asynchronous processing, /report runs one synchronously and
// returns the evidence report, /health and /metrics serve monitoring.
func newServiceMux(admin Administrator) *http.ServeMux {
    mux := http.NewServeMux()

    mux.HandleFunc("/analyze", func(writer http.ResponseWriter, request *http.Request) {
        req, ok := decodeAnalysisRequest(writer, request)
        if !ok {
            return
        }

        if err := admin.EnqueueAnalysis(request.Context(), req); err != nil {
            http.Error(writer, "failed to enqueue analysis request", http.StatusServiceUnavailable)
            logger.Log.Error("Failed to enqueue analysis request", zap.Error(err))
            return
        }

        writer.Header().Set("Content-Type", "application/json")
        writer.WriteHeader(http.StatusAccepted)
        json.NewEncoder(writer).Encode(map[string]string{
            "case_id": req.CaseID,
            "status":  "queued",
        })
    })

    mux.HandleFunc("/report", func(writer http.ResponseWriter, request *http.Request) {
        req, ok := decodeAnalysisRequest(writer, request)
        if !ok {
            return
        }

        result := admin.AnalyzeNow(request.Context(), req)
        writer.Header().Set("Content-Type", "application/json")
        json.NewEncoder(writer).Encode(report.Build(result))
    })

    // /metrics endpoint for Prometheus
    mux.Handle("/metrics", promhttp.Handler())

    // /health endpoint
    mux.HandleFunc("/health", func(writer http.ResponseWriter, request *http.Request) {
        health := struct {
            Status     string               `json:"status"`
            QueueDepth int                  `json:"queue_depth"`
            Workers    int                  `json:"workers"`
            Uptime     string               `json:"uptime"`
            StartTime  time.Time            `json:"start_time"`
            Engine     engine.StatsSnapshot `json:"engine"`
        }{
            Status:     "OK",
            QueueDepth: admin.QueueDepth(),
            Workers:    admin.WorkerCount(),
            Uptime:     time.Since(admin.StartTime()).String(),
            StartTime:  admin.StartTime(),
            Engine:     admin.EngineStats(),
        }

        writer.Header().Set("Content-Type", "application/json")
        json.NewEncoder(writer).Encode(health)
    })

    return mux
}

// Decodes and validates an incoming analysis request, assigning a case id
// when the caller did not provide one.
func decodeAnalysisRequest(writer http.ResponseWriter, request *http.Request) (models.AnalysisRequest, bool) {
    var req models.AnalysisRequest

    if request.Method != http.MethodPost {
        http.Error(writer, "method not allowed", http.StatusMethodNotAllowed)
        return req, false
    }

    contentType := request.Header.Get("Content-Type")
    if !strings.HasPrefix(contentType, "application/json") {
        http.Error(writer, "expected Content-Type: application/json", http.StatusUnsupportedMediaType)
        logger.Log.Warn("Unsupported Content-Type", zap.String("content_type", contentType))
        return req, false
    }

    if err := json.NewDecoder(request.Body).Decode(&req); err != nil {
        http.Error(writer, "failed to decode request", http.StatusBadRequest)
        logger.Log.Warn("Failed to decode incoming JSON", zap.Error(err))
        return req, false
    }

    if strings.TrimSpace(req.Content) == "" {
        http.Error(writer, "content is required", http.StatusBadRequest)
        return req, false
    }
    if req.EnrichWith != "" && !enrich.ValidProfile(req.EnrichWith) {
        http.Error(writer, "unknown enrichment profile", http.StatusBadRequest)
        return req, false
    }

    if req.CaseID == "" {
        req.CaseID = report.NewCaseID()
    }
    if req.ReceivedAt.IsZero() {
        req.ReceivedAt = time.Now().UTC()
    }
    return req, true
}

// Starts the HTTP analysis service. This is a simple HTTP server that
// accepts analysis requests and provides health and metrics endpoints.
func startServiceHTTP(admin Administrator, port string) {
    mux := newServiceMux(admin)

    logger.Log.Info("HTTP analysis service listening", zap.String("address", ":"+port))

    if err := http.ListenAndServe(":"+port, mux); err != nil {
        logger.Log.Fatal("Failed to start analysis service", zap.Error(err))
    }
}
