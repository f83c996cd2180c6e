package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/compare"
	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/fetch"
	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/model"
	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/scrape"
	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/session"
	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/storage"
	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/summarizer"
)

type stubFetcher struct {
	items []model.RawItem
	err   error
}

func (f *stubFetcher) Fetch(ctx context.Context, spec model.FilterSpec, limit int) ([]model.RawItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

type stubSummarizer struct {
	summary *model.Summary
	report  string
	err     error
}

func (s *stubSummarizer) Summarize(ctx context.Context, spec model.FilterSpec, items []model.RawItem, opts summarizer.Options) (*model.Summary, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.summary, nil
}

func (s *stubSummarizer) Compare(ctx context.Context, sections []summarizer.CompareSection, opts summarizer.Options) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.report, nil
}

type testEnv struct {
	handler  http.Handler
	repo     storage.Repository
	fetcher  *stubFetcher
	sessions *session.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	fetcher := &stubFetcher{items: []model.RawItem{
		{PlatformID: "keep-1", Title: "Release day megathread", PopularityScore: 150,
			CreatedAt: time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)},
		{PlatformID: "low", Title: "Quiet post", PopularityScore: 5,
			CreatedAt: time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)},
	}}
	sum := &stubSummarizer{report: "comparison report"}

	reg := fetch.NewRegistry()
	reg.Register(model.PlatformReddit, fetcher)

	sessions := session.NewStore(time.Minute)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	scraper := scrape.NewOrchestrator(reg, sum, sessions, 100, logger)
	comparer := compare.NewEngine(repo, sum, "deepseek-chat")

	srv := New(sessions, repo, scraper, comparer, []string{"deepseek-chat", "deepseek-reasoner"}, "deepseek-chat", logger)
	return &testEnv{handler: srv.Handler(), repo: repo, fetcher: fetcher, sessions: sessions}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func validScrapeRequest() map[string]any {
	return map[string]any{
		"session_id": "sess-1",
		"filter": map[string]any{
			"platform":         "reddit",
			"target":           "r/gaming",
			"time_range_start": "2026-08-01T00:00:00Z",
			"time_range_end":   "2026-08-08T00:00:00Z",
			"min_popularity":   100,
		},
	}
}

func TestScrape(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/scrape", validScrapeRequest())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	state := decodeBody[model.SessionState](t, rec)
	if state.SessionID != "sess-1" {
		t.Errorf("session_id = %q", state.SessionID)
	}
	if len(state.RawItems) != 1 || state.RawItems[0].PlatformID != "keep-1" {
		t.Errorf("items = %+v", state.RawItems)
	}

	rec = env.do(t, http.MethodGet, "/api/sessions/sess-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("restore status = %d", rec.Code)
	}
	restored := decodeBody[model.SessionState](t, rec)
	if diff := cmp.Diff(state.RawItems, restored.RawItems); diff != "" {
		t.Errorf("restored items mismatch (-scraped +restored):\n%s", diff)
	}
}

func TestScrapeGeneratesSessionID(t *testing.T) {
	env := newTestEnv(t)

	req := validScrapeRequest()
	delete(req, "session_id")
	rec := env.do(t, http.MethodPost, "/api/scrape", req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	state := decodeBody[model.SessionState](t, rec)
	if state.SessionID == "" {
		t.Error("server should assign a session ID")
	}
}

func TestScrapeInvalidFilter(t *testing.T) {
	env := newTestEnv(t)

	req := validScrapeRequest()
	req["filter"].(map[string]any)["target"] = ""
	rec := env.do(t, http.MethodPost, "/api/scrape", req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	resp := decodeBody[errorResponse](t, rec)
	if resp.Error == "" {
		t.Error("error body is empty")
	}
}

func TestScrapeUpstreamFailure(t *testing.T) {
	env := newTestEnv(t)
	env.fetcher.err = &model.FetchError{Platform: model.PlatformReddit, Reason: "rate limited"}

	rec := env.do(t, http.MethodPost, "/api/scrape", validScrapeRequest())
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/sessions/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("absent session status = %d, want 404", rec.Code)
	}

	env.do(t, http.MethodPost, "/api/scrape", validScrapeRequest())

	rec = env.do(t, http.MethodDelete, "/api/sessions/sess-1", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("clear status = %d, want 204", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/sessions/sess-1", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("cleared session status = %d, want 404", rec.Code)
	}
}

func TestNotesUpdateAndExport(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/scrape", validScrapeRequest())

	rec := env.do(t, http.MethodPut, "/api/sessions/sess-1/notes", map[string]any{
		"notes":     "check the DNS thread again",
		"selection": []string{"keep-1"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("notes update status = %d", rec.Code)
	}
	state := decodeBody[model.SessionState](t, rec)
	if state.Notes != "check the DNS thread again" {
		t.Errorf("notes = %q", state.Notes)
	}
	if diff := cmp.Diff([]string{"keep-1"}, state.Selection); diff != "" {
		t.Errorf("selection mismatch (-want +got):\n%s", diff)
	}

	rec = env.do(t, http.MethodGet, "/api/sessions/sess-1/notes/export", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("content disposition = %q", cd)
	}
	if rec.Body.String() != "check the DNS thread again" {
		t.Errorf("export body = %q", rec.Body.String())
	}
}

func TestNotesUpdateRejectsUnknownSelection(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/scrape", validScrapeRequest())

	rec := env.do(t, http.MethodPut, "/api/sessions/sess-1/notes", map[string]any{
		"selection": []string{"keep-1", "not-a-real-item-id"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	resp := decodeBody[errorResponse](t, rec)
	if !strings.Contains(resp.Error, "not-a-real-item-id") {
		t.Errorf("error should name the unknown item, got %q", resp.Error)
	}

	// the rejected update must not leak into the session
	state, ok := env.sessions.Get("sess-1")
	if !ok {
		t.Fatal("session missing")
	}
	if len(state.Selection) != 0 {
		t.Errorf("selection = %v, want empty after rejected update", state.Selection)
	}
}

func TestNotesUpdateMissingSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/sessions/missing/notes", map[string]any{"notes": "x"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestMaterialLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/scrape", validScrapeRequest())

	rec := env.do(t, http.MethodPost, "/api/materials", map[string]any{
		"session_id":   "sess-1",
		"project_name": "launch-week",
		"tags":         []string{"launch"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("save status = %d, body %s", rec.Code, rec.Body.String())
	}
	material := decodeBody[model.Material](t, rec)
	if material.MaterialID == "" {
		t.Fatal("material ID not assigned")
	}
	if material.Kind != model.KindScrape {
		t.Errorf("kind = %q", material.Kind)
	}

	rec = env.do(t, http.MethodGet, "/api/materials", nil)
	list := decodeBody[[]model.MaterialSummary](t, rec)
	if len(list) != 1 || list[0].MaterialID != material.MaterialID {
		t.Fatalf("list = %+v", list)
	}
	if list[0].ItemCount != 1 {
		t.Errorf("item count = %d", list[0].ItemCount)
	}

	rec = env.do(t, http.MethodGet, "/api/materials/"+material.MaterialID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	got := decodeBody[model.Material](t, rec)
	if got.ProjectName != "launch-week" || len(got.RawItems) != 1 {
		t.Errorf("material = %+v", got)
	}

	rec = env.do(t, http.MethodDelete, "/api/materials/"+material.MaterialID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/materials/"+material.MaterialID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("deleted material status = %d, want 404", rec.Code)
	}
}

func TestMaterialSaveValidation(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/scrape", validScrapeRequest())

	rec := env.do(t, http.MethodPost, "/api/materials", map[string]any{
		"session_id": "sess-1",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing project name status = %d, want 400", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/materials", map[string]any{
		"session_id":   "expired",
		"project_name": "launch-week",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expired session status = %d, want 404", rec.Code)
	}
}

func TestMaterialListEmpty(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/materials", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("empty list body = %q, want []", body)
	}
}

func saveTestMaterial(t *testing.T, env *testEnv, projectName string) string {
	t.Helper()
	m := model.Material{
		ProjectName: projectName,
		Kind:        model.KindScrape,
		FilterSpec:  model.FilterSpec{Platform: model.PlatformReddit, Target: "r/gaming"},
		RawItems:    []model.RawItem{{PlatformID: "x", Title: "post"}},
	}
	if err := env.repo.Save(context.Background(), &m); err != nil {
		t.Fatalf("save material: %v", err)
	}
	return m.MaterialID
}

func TestCompare(t *testing.T) {
	env := newTestEnv(t)
	idA := saveTestMaterial(t, env, "project-a")
	idB := saveTestMaterial(t, env, "project-b")

	rec := env.do(t, http.MethodPost, "/api/compare", map[string]any{
		"material_ids": []string{idA, idB},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	report := decodeBody[model.ComparisonReport](t, rec)
	if report.ReportText != "comparison report" {
		t.Errorf("report text = %q", report.ReportText)
	}
	if diff := cmp.Diff([]string{idA, idB}, report.MaterialIDs); diff != "" {
		t.Errorf("material IDs mismatch (-want +got):\n%s", diff)
	}
}

func TestCompareErrors(t *testing.T) {
	env := newTestEnv(t)
	idA := saveTestMaterial(t, env, "project-a")

	rec := env.do(t, http.MethodPost, "/api/compare", map[string]any{
		"material_ids": []string{idA},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("single material status = %d, want 400", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/compare", map[string]any{
		"material_ids": []string{idA, "no-such-id"},
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing material status = %d, want 404", rec.Code)
	}
}

func TestReportSave(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/reports", map[string]any{
		"project_name": "aug-comparison",
		"report_text":  "Side by side, the beta crowd is tougher.",
		"material_ids": []string{"a", "b"},
		"model_used":   "deepseek-chat",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	material := decodeBody[model.Material](t, rec)
	if material.Kind != model.KindReport {
		t.Errorf("kind = %q", material.Kind)
	}

	got, err := env.repo.Get(context.Background(), material.MaterialID)
	if err != nil {
		t.Fatalf("get saved report: %v", err)
	}
	if got.ReportText != "Side by side, the beta crowd is tougher." {
		t.Errorf("report text = %q", got.ReportText)
	}
	if diff := cmp.Diff([]string{"a", "b"}, got.SourceMaterialIDs); diff != "" {
		t.Errorf("source IDs mismatch (-want +got):\n%s", diff)
	}
	if got.ModelUsed != "deepseek-chat" {
		t.Errorf("model used = %q", got.ModelUsed)
	}
}

func TestReportSaveValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/reports", map[string]any{
		"project_name": "aug-comparison",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing report text status = %d, want 400", rec.Code)
	}
}

func TestInvalidJSONBody(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/scrape", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestModels(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/models", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeBody[modelsResponse](t, rec)
	if diff := cmp.Diff([]string{"deepseek-chat", "deepseek-reasoner"}, resp.Models); diff != "" {
		t.Errorf("models mismatch (-want +got):\n%s", diff)
	}
	if resp.DefaultModel != "deepseek-chat" {
		t.Errorf("default model = %q", resp.DefaultModel)
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
