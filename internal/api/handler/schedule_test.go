package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/psa231093/fbrelay/internal/repository"
)

func newScheduleRouter(t *testing.T, dir string) (*chi.Mux, *repository.SQLiteScheduleRepository) {
	t.Helper()

	db, err := repository.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	repo := repository.NewSQLiteScheduleRepository(db)
	h := NewScheduleHandler(repo, dir, testLogger())

	r := chi.NewRouter()
	r.Post("/schedule", h.Create)
	r.Get("/schedule", h.List)
	r.Delete("/schedule/{id}", h.Delete)
	return r, repo
}

func TestScheduleHandler_Create(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "clip.mp4"), make([]byte, 10), 0o644); err != nil {
		t.Fatal(err)
	}
	router, _ := newScheduleRouter(t, dir)

	when := time.Now().Add(time.Hour).Format(time.RFC3339)
	body := `{"file":"clip.mp4","title":"Later","scheduled_at":"` + when + `"}`
	req := httptest.NewRequest(http.MethodPost, "/schedule", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var resp ScheduledPostResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.ID == 0 || resp.Status != "pending" || resp.Title != "Later" {
		t.Errorf("response = %+v", resp)
	}
}

func TestScheduleHandler_Create_BadTimestamp(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "clip.mp4"), make([]byte, 10), 0o644); err != nil {
		t.Fatal(err)
	}
	router, _ := newScheduleRouter(t, dir)

	body := `{"file":"clip.mp4","title":"Later","scheduled_at":"tomorrow"}`
	req := httptest.NewRequest(http.MethodPost, "/schedule", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestScheduleHandler_Create_MissingFile(t *testing.T) {
	router, _ := newScheduleRouter(t, t.TempDir())

	when := time.Now().Add(time.Hour).Format(time.RFC3339)
	body := `{"file":"missing.mp4","title":"Later","scheduled_at":"` + when + `"}`
	req := httptest.NewRequest(http.MethodPost, "/schedule", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestScheduleHandler_ListAndDelete(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "clip.mp4"), make([]byte, 10), 0o644); err != nil {
		t.Fatal(err)
	}
	router, _ := newScheduleRouter(t, dir)

	when := time.Now().Add(time.Hour).Format(time.RFC3339)
	body := `{"file":"clip.mp4","title":"Later","scheduled_at":"` + when + `"}`
	req := httptest.NewRequest(http.MethodPost, "/schedule", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var created ScheduledPostResponse
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}

	req = httptest.NewRequest(http.MethodGet, "/schedule", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var list ScheduleListResponse
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list.Posts) != 1 {
		t.Fatalf("listed %d posts, want 1", len(list.Posts))
	}

	req = httptest.NewRequest(http.MethodDelete, "/schedule/"+strconv.FormatInt(created.ID, 10), nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want %d", w.Code, http.StatusNoContent)
	}
}

func TestScheduleHandler_Delete_NotFound(t *testing.T) {
	router, _ := newScheduleRouter(t, t.TempDir())

	req := httptest.NewRequest(http.MethodDelete, "/schedule/9999", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
