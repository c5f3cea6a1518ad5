package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/psa231093/fbrelay/internal/domain"
)

func newJobRouter(h *JobHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Post("/jobs", h.Submit)
	r.Post("/jobs/batch", h.SubmitBatch)
	r.Get("/jobs", h.List)
	r.Get("/jobs/{jobID}", h.Get)
	r.Get("/jobs/{jobID}/status", h.GetStatus)
	return r
}

func TestJobHandler_Submit(t *testing.T) {
	svc := newTestRelayService(t, &fakeExtractor{}, &fakeUploader{}, &fakeHistory{})
	router := newJobRouter(NewJobHandler(svc, testLogger()))

	body := bytes.NewBufferString(`{"url":"https://www.facebook.com/watch?v=123","title_prefix":"[A] "}`)
	req := httptest.NewRequest(http.MethodPost, "/jobs", body)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusAccepted, w.Body.String())
	}

	var resp SubmitResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.JobID == "" || !strings.HasPrefix(resp.JobID, "job_") {
		t.Errorf("job_id = %q", resp.JobID)
	}
	if resp.Stage != string(domain.JobPending) {
		t.Errorf("stage = %q, want pending", resp.Stage)
	}
}

func TestJobHandler_Submit_InvalidBody(t *testing.T) {
	svc := newTestRelayService(t, &fakeExtractor{}, &fakeUploader{}, &fakeHistory{})
	router := newJobRouter(NewJobHandler(svc, testLogger()))

	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestJobHandler_Submit_EmptyURL(t *testing.T) {
	svc := newTestRelayService(t, &fakeExtractor{}, &fakeUploader{}, &fakeHistory{})
	router := newJobRouter(NewJobHandler(svc, testLogger()))

	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(`{"url":""}`))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestJobHandler_SubmitBatch(t *testing.T) {
	svc := newTestRelayService(t, &fakeExtractor{}, &fakeUploader{}, &fakeHistory{})
	router := newJobRouter(NewJobHandler(svc, testLogger()))

	body := strings.NewReader(`{"urls":["https://example.com/a","","https://example.com/b"]}`)
	req := httptest.NewRequest(http.MethodPost, "/jobs/batch", body)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var resp BatchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Jobs) != 3 {
		t.Fatalf("batch returned %d items", len(resp.Jobs))
	}
	if resp.Jobs[0].JobID == "" || resp.Jobs[0].Error != "" {
		t.Errorf("first item = %+v", resp.Jobs[0])
	}
	if resp.Jobs[1].Error == "" {
		t.Error("empty URL accepted")
	}
	if resp.Jobs[2].JobID == "" {
		t.Errorf("third item = %+v", resp.Jobs[2])
	}
}

func TestJobHandler_SubmitBatch_Empty(t *testing.T) {
	svc := newTestRelayService(t, &fakeExtractor{}, &fakeUploader{}, &fakeHistory{})
	router := newJobRouter(NewJobHandler(svc, testLogger()))

	req := httptest.NewRequest(http.MethodPost, "/jobs/batch", strings.NewReader(`{"urls":[]}`))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestJobHandler_Get(t *testing.T) {
	svc := newTestRelayService(t, &fakeExtractor{}, &fakeUploader{}, &fakeHistory{})
	router := newJobRouter(NewJobHandler(svc, testLogger()))

	// Submit first
	req := httptest.NewRequest(http.MethodPost, "/jobs",
		strings.NewReader(`{"url":"https://example.com/v"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var submitted SubmitResponse
	if err := json.NewDecoder(w.Body).Decode(&submitted); err != nil {
		t.Fatal(err)
	}

	req = httptest.NewRequest(http.MethodGet, "/jobs/"+submitted.JobID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var resp JobResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.JobID != submitted.JobID || resp.URL != "https://example.com/v" {
		t.Errorf("response = %+v", resp)
	}
	if resp.Progress != "Waiting in queue" {
		t.Errorf("progress = %q", resp.Progress)
	}
}

func TestJobHandler_Get_NotFound(t *testing.T) {
	svc := newTestRelayService(t, &fakeExtractor{}, &fakeUploader{}, &fakeHistory{})
	router := newJobRouter(NewJobHandler(svc, testLogger()))

	req := httptest.NewRequest(http.MethodGet, "/jobs/job_missing", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestJobHandler_List(t *testing.T) {
	svc := newTestRelayService(t, &fakeExtractor{}, &fakeUploader{}, &fakeHistory{})
	router := newJobRouter(NewJobHandler(svc, testLogger()))

	for _, url := range []string{"https://example.com/a", "https://example.com/b"} {
		req := httptest.NewRequest(http.MethodPost, "/jobs",
			strings.NewReader(`{"url":"`+url+`"}`))
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	req := httptest.NewRequest(http.MethodGet, "/jobs?limit=10", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp ListResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Jobs) != 2 {
		t.Errorf("listed %d jobs, want 2", len(resp.Jobs))
	}
	if resp.Limit != 10 {
		t.Errorf("limit = %d, want 10", resp.Limit)
	}
}
