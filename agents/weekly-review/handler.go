package weeklyreview

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"progress-dashboard/shared/monitoring"
)

// Reviewer runs one review send.
type Reviewer interface {
	SendWeeklyReview(ctx context.Context) Result
}

// Handler serves the manual weekly review trigger.
type Handler struct {
	reviewer Reviewer
	monitor  *monitoring.Monitor
	logger   *zap.Logger
}

// NewHandler creates a new Handler. monitor may be nil.
func NewHandler(reviewer Reviewer, monitor *monitoring.Monitor, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{reviewer: reviewer, monitor: monitor, logger: logger}
}

// NewRouter wires the review trigger and, when monitor is set, the health
// routes behind request logging.
func NewRouter(reviewer Reviewer, monitor *monitoring.Monitor, logger *zap.Logger) *mux.Router {
	h := NewHandler(reviewer, monitor, logger)

	r := mux.NewRouter()
	r.Use(h.requestLogger)
	r.HandleFunc("/api/weekly-review", h.TriggerReview).Methods(http.MethodGet, http.MethodPost)
	if monitor != nil {
		monitoring.RegisterRoutes(r, monitor)
	}
	return r
}

// TriggerReview always sends, regardless of what the scheduler has already
// delivered this week. It answers 200 or 500 with a JSON Result.
func (h *Handler) TriggerReview(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result := h.reviewer.SendWeeklyReview(r.Context())

	if h.monitor != nil {
		if result.Success {
			h.monitor.RecordSuccess("manual weekly review: "+result.Message, time.Since(start))
		} else {
			h.monitor.RecordCriticalFailure(fmt.Errorf("manual weekly review: %s", result.Message), time.Since(start))
		}
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, result)
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		h.logger.Info("http request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
