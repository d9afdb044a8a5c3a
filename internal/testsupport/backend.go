package testsupport

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// BackendResponse scripts one reply from the fake prediction service.
type BackendResponse struct {
	Status int
	Body   string
	Delay  time.Duration
}

// SuccessBody is a well-formed prediction response.
const SuccessBody = `{"success":true,"prediction":">50K","confidence":0.77,"probabilities":{"<=50K":0.23,">50K":0.77}}`

// BackendServer is an httptest server that replays scripted /predict
// responses in order, repeating the last one once the script runs out.
type BackendServer struct {
	*httptest.Server

	mu        sync.Mutex
	responses []BackendResponse
	requests  []map[string]any
}

// NewBackendServer starts a fake backend and registers cleanup.
func NewBackendServer(t testing.TB, responses ...BackendResponse) *BackendServer {
	t.Helper()
	if len(responses) == 0 {
		responses = []BackendResponse{{Status: http.StatusOK, Body: SuccessBody}}
	}
	b := &BackendServer{responses: responses}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /predict", b.predict)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"status":"healthy","message":"test backend"}`)
	})
	mux.HandleFunc("GET /model-info", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"model_trained":true,"model_type":"stub","features_count":12,"accuracy":0.85}`)
	})
	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Close)
	return b
}

func (b *BackendServer) predict(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	b.mu.Lock()
	idx := min(len(b.requests), len(b.responses)-1)
	b.requests = append(b.requests, body)
	resp := b.responses[idx]
	b.mu.Unlock()

	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-r.Context().Done():
			return
		}
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, resp.Body)
}

// PredictCalls reports how many /predict requests were served.
func (b *BackendServer) PredictCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

// Requests returns the decoded /predict bodies in arrival order.
func (b *BackendServer) Requests() []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string]any(nil), b.requests...)
}
