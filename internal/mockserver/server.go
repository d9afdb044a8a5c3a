package mockserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"incomecast/internal/backend"
	"incomecast/internal/logging"
)

// Options tunes the simulated backend.
type Options struct {
	// WarmUp is how long after New every model endpoint answers 503.
	WarmUp time.Duration
	// Latency is added to each /predict response.
	Latency time.Duration
	// FailFirst makes the first N post-warm-up predictions return 500.
	FailFirst int
	Logger    *slog.Logger
}

// Server is the mock prediction backend.
type Server struct {
	opts    Options
	logger  *slog.Logger
	started time.Time

	mu       sync.Mutex
	predicts int
	failures int
}

// New returns a server whose warm-up window starts now.
func New(opts Options) *Server {
	return &Server{
		opts:    opts,
		logger:  logging.NewComponentLogger(opts.Logger, "mockserver"),
		started: time.Now(),
	}
}

// Ready reports whether the warm-up window has elapsed.
func (s *Server) Ready() bool {
	return time.Since(s.started) >= s.opts.WarmUp
}

// Predictions reports how many /predict requests were received.
func (s *Server) Predictions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.predicts
}

// Handler builds the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/predict", s.handlePredict).Methods(http.MethodPost)
	r.HandleFunc("/model-info", s.handleModelInfo).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Use(s.logRequests)
	return r
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.predicts++
	s.mu.Unlock()

	if !s.Ready() {
		writeDetail(w, http.StatusServiceUnavailable, "Server is starting up")
		return
	}
	if s.opts.Latency > 0 {
		select {
		case <-time.After(s.opts.Latency):
		case <-r.Context().Done():
			return
		}
	}
	if s.takeFailure() {
		writeDetail(w, http.StatusInternalServerError, "Prediction failed: model not loaded")
		return
	}

	var req backend.PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []validationIssue{{Loc: []string{"body"}, Msg: "invalid JSON body", Type: "value_error.jsondecode"}},
		})
		return
	}
	if issues := validate(req); len(issues) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": issues})
		return
	}

	result := Score(req)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"prediction":    result.Label,
		"probabilities": result.Probabilities,
		"confidence":    result.Confidence,
	})
}

func (s *Server) takeFailure() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures >= s.opts.FailFirst {
		return false
	}
	s.failures++
	return true
}

func (s *Server) handleModelInfo(w http.ResponseWriter, _ *http.Request) {
	if !s.Ready() {
		writeDetail(w, http.StatusServiceUnavailable, "Server is starting up")
		return
	}
	writeJSON(w, http.StatusOK, backend.ModelInfo{
		ModelTrained:  true,
		ModelType:     "LogisticStub",
		FeaturesCount: 12,
		Accuracy:      0.85,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if !s.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, backend.Health{Status: "starting", Message: "Model is loading"})
		return
	}
	writeJSON(w, http.StatusOK, backend.Health{Status: "healthy", Message: "Mock prediction API is running"})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.logger.Info("request served",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", rec.status),
			logging.Duration("duration", time.Since(start)),
			logging.String(logging.FieldCorrelationID, r.Header.Get("X-Request-ID")),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
