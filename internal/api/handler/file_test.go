package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/psa231093/fbrelay/internal/domain"
)

func newFileRouter(h *FileHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/files", h.List)
	r.Get("/files/{name}", h.Serve)
	return r
}

func TestFileHandler_List(t *testing.T) {
	history := &fakeHistory{}
	history.RecordDownload(context.Background(), &domain.DownloadedFile{
		Path:     "/d/abc.mp4",
		Filename: "abc.mp4",
	})

	h := NewFileHandler(history, t.TempDir(), testLogger())
	router := newFileRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/files", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp FilesResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Files) != 1 || resp.Files[0].Filename != "abc.mp4" {
		t.Errorf("files = %+v", resp.Files)
	}
}

func TestFileHandler_Serve(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "clip.mp4"), []byte("video bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	h := NewFileHandler(&fakeHistory{}, dir, testLogger())
	router := newFileRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/files/clip.mp4", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Body.String() != "video bytes" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestFileHandler_Serve_NotFound(t *testing.T) {
	h := NewFileHandler(&fakeHistory{}, t.TempDir(), testLogger())
	router := newFileRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/files/missing.mp4", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestFileHandler_Serve_TraversalRejected(t *testing.T) {
	dir := t.TempDir()
	// A secret outside the download dir must not be reachable.
	outside := filepath.Join(filepath.Dir(dir), "secret.txt")
	if err := os.WriteFile(outside, []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}
	defer os.Remove(outside)

	h := NewFileHandler(&fakeHistory{}, dir, testLogger())
	router := newFileRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/files/"+"%2e%2e%2fsecret.txt", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code == http.StatusOK {
		t.Fatalf("traversal served: %q", w.Body.String())
	}
}

func TestResolveWithin(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		in   string
		ok   bool
	}{
		{"plain name", "clip.mp4", true},
		{"subdir", filepath.Join("sub", "clip.mp4"), true},
		{"parent escape", filepath.Join("..", "clip.mp4"), false},
		{"deep escape", filepath.Join("..", "..", "etc", "passwd"), false},
		{"absolute inside", filepath.Join(dir, "clip.mp4"), true},
		{"absolute outside", filepath.Join(filepath.Dir(dir), "clip.mp4"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := resolveWithin(dir, tt.in)
			if ok != tt.ok {
				t.Errorf("resolveWithin(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
		})
	}
}
