package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/psa231093/fbrelay/internal/domain"
)

func newUploadRouter(h *UploadHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Post("/uploads/preview", h.Preview)
	r.Post("/uploads", h.Upload)
	r.Get("/history", h.History)
	return r
}

func TestUploadHandler_Preview(t *testing.T) {
	ext := &fakeExtractor{info: &domain.VideoInfo{
		ID:           "abc123",
		Title:        "Preview Title",
		DurationSecs: 90,
	}}
	svc := newTestRelayService(t, ext, &fakeUploader{}, &fakeHistory{})
	h := NewUploadHandler(svc, ext, &fakeHistory{}, t.TempDir(), testLogger())
	router := newUploadRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/uploads/preview",
		strings.NewReader(`{"url":"https://example.com/v"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var info domain.VideoInfo
	if err := json.NewDecoder(w.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	if info.Title != "Preview Title" || info.DurationSecs != 90 {
		t.Errorf("info = %+v", info)
	}
}

func TestUploadHandler_Preview_MissingURL(t *testing.T) {
	ext := &fakeExtractor{}
	svc := newTestRelayService(t, ext, &fakeUploader{}, &fakeHistory{})
	h := NewUploadHandler(svc, ext, &fakeHistory{}, t.TempDir(), testLogger())
	router := newUploadRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/uploads/preview", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestUploadHandler_Upload(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "clip.mp4"), make([]byte, 100), 0o644); err != nil {
		t.Fatal(err)
	}

	up := &fakeUploader{result: &domain.UploadResult{
		VideoID:          "998877",
		PermalinkURL:     "https://www.facebook.com/1234/videos/998877",
		BytesTransferred: 100,
		Chunks:           1,
	}}
	history := &fakeHistory{}
	svc := newTestRelayService(t, &fakeExtractor{}, up, history)
	h := NewUploadHandler(svc, &fakeExtractor{}, history, dir, testLogger())
	router := newUploadRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/uploads",
		strings.NewReader(`{"file":"clip.mp4","title":"My clip"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var resp UploadResultResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.VideoID != "998877" {
		t.Errorf("video_id = %q", resp.VideoID)
	}
}

func TestUploadHandler_Upload_MissingFile(t *testing.T) {
	svc := newTestRelayService(t, &fakeExtractor{}, &fakeUploader{}, &fakeHistory{})
	h := NewUploadHandler(svc, &fakeExtractor{}, &fakeHistory{}, t.TempDir(), testLogger())
	router := newUploadRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/uploads",
		strings.NewReader(`{"file":"nope.mp4"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestUploadHandler_Upload_EscapesDownloadDir(t *testing.T) {
	svc := newTestRelayService(t, &fakeExtractor{}, &fakeUploader{}, &fakeHistory{})
	h := NewUploadHandler(svc, &fakeExtractor{}, &fakeHistory{}, t.TempDir(), testLogger())
	router := newUploadRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/uploads",
		strings.NewReader(`{"file":"../../etc/passwd"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestUploadHandler_History(t *testing.T) {
	history := &fakeHistory{}
	history.RecordUpload(context.Background(), &domain.UploadRecord{
		FilePath: "/d/a.mp4",
		Success:  true,
		VideoID:  "1",
	})

	svc := newTestRelayService(t, &fakeExtractor{}, &fakeUploader{}, history)
	h := NewUploadHandler(svc, &fakeExtractor{}, history, t.TempDir(), testLogger())
	router := newUploadRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp HistoryResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Uploads) != 1 || resp.Uploads[0].VideoID != "1" {
		t.Errorf("uploads = %+v", resp.Uploads)
	}
}
