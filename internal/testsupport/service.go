package testsupport

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// FakeService is an in-memory stand-in for the remote workflow service and
// the run-record API, served over httptest.
type FakeService struct {
	server *httptest.Server

	mu      sync.Mutex
	dataset string
	runID   string
	status  string
	modelID string
	healthy *bool
	image   string
	fail    map[string]int
	calls   map[string]int
}

// NewFakeService starts a fake service and registers cleanup on t.
func NewFakeService(t testing.TB) *FakeService {
	t.Helper()
	f := &FakeService{
		image: "https://images.example/out.png",
		fail:  make(map[string]int),
		calls: make(map[string]int),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /user_data", f.handleUserData)
	mux.HandleFunc("GET /model_status", f.handleModelStatus)
	mux.HandleFunc("POST /fine_tune_model", f.handleFineTune)
	mux.HandleFunc("POST /call_model", f.handleCallModel)
	mux.HandleFunc("POST /clear_user_data", f.handleClear)
	mux.HandleFunc("PATCH /rest/v1/{table}", f.handleRecord)
	mux.HandleFunc("GET /rest/v1/{table}", f.handleRecordList)
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the base URL of the fake.
func (f *FakeService) URL() string { return f.server.URL }

// Calls returns how many times endpoint was hit.
func (f *FakeService) Calls(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[endpoint]
}

// Dataset returns the dataset reference currently on the run record.
func (f *FakeService) Dataset() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dataset
}

// SetRun overrides the run id and status reported by user_data.
func (f *FakeService) SetRun(runID, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runID = runID
	f.status = status
}

// SetDataset overrides the dataset reported by user_data.
func (f *FakeService) SetDataset(ref string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dataset = ref
}

// SetModel overrides the model_status response.
func (f *FakeService) SetModel(modelID string, healthy bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modelID = modelID
	f.healthy = &healthy
}

// FailNext makes the next n calls to endpoint return HTTP 500.
func (f *FakeService) FailNext(endpoint string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[endpoint] = n
}

func (f *FakeService) begin(w http.ResponseWriter, endpoint string) bool {
	f.calls[endpoint]++
	if f.fail[endpoint] > 0 {
		f.fail[endpoint]--
		http.Error(w, "injected failure", http.StatusInternalServerError)
		return false
	}
	return true
}

func writeOutput(w http.ResponseWriter, output any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"output": output})
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func (f *FakeService) handleUserData(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.begin(w, "user_data") {
		return
	}
	var runData any
	if f.status != "" {
		runData = map[string]string{"status": f.status}
	}
	writeOutput(w, map[string]any{
		"user_id":  r.URL.Query().Get("user_id"),
		"dataset":  nullable(f.dataset),
		"run_id":   nullable(f.runID),
		"run_data": runData,
	})
}

func (f *FakeService) handleModelStatus(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.begin(w, "model_status") {
		return
	}
	healthy := false
	if f.healthy != nil {
		healthy = *f.healthy
	}
	writeOutput(w, map[string]any{"model_id": nullable(f.modelID), "healthy": healthy})
}

func (f *FakeService) handleFineTune(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL    string `json:"url"`
		Prompt string `json:"prompt"`
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.begin(w, "fine_tune_model") {
		return
	}
	f.runID = "run-" + strings.ReplaceAll(body.UserID, " ", "-")
	f.status = "PENDING"
	writeOutput(w, map[string]any{"run_id": f.runID})
}

func (f *FakeService) handleCallModel(w http.ResponseWriter, r *http.Request) {
	_, _ = io.Copy(io.Discard, r.Body)
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.begin(w, "call_model") {
		return
	}
	writeOutput(w, map[string]any{"url": f.image})
}

func (f *FakeService) handleClear(w http.ResponseWriter, r *http.Request) {
	_, _ = io.Copy(io.Discard, r.Body)
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.begin(w, "clear_user_data") {
		return
	}
	f.dataset, f.runID, f.status, f.modelID, f.healthy = "", "", "", "", nil
	writeOutput(w, map[string]any{"dataset": nil, "run_id": nil, "run_data": nil})
}

func (f *FakeService) handleRecord(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Dataset string `json:"dataset"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.begin(w, "records") {
		return
	}
	f.dataset = body.Dataset
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeService) handleRecordList(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.begin(w, "records_list") {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte("[]"))
}
