package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/snipdex/internal/db"
	"github.com/kailas-cloud/snipdex/internal/db/memory"
	"github.com/kailas-cloud/snipdex/internal/domain"
	"github.com/kailas-cloud/snipdex/internal/domain/item"
	"github.com/kailas-cloud/snipdex/internal/domain/search/request"
	"github.com/kailas-cloud/snipdex/internal/repository/embcache"
	snippetrepo "github.com/kailas-cloud/snipdex/internal/repository/snippet"
	"github.com/kailas-cloud/snipdex/internal/transport/hashing"
	embeddinguc "github.com/kailas-cloud/snipdex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/snipdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/snipdex/internal/usecase/search"
	snippetuc "github.com/kailas-cloud/snipdex/internal/usecase/snippet"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	local, synced, cacheArea := memory.New(), memory.New(), memory.New()

	store, err := snippetrepo.NewStore(item.Domains, map[item.Domain]snippetrepo.Area{
		item.Local: local,
		item.Sync:  db.NewQuotaArea(synced, 512),
	}, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	client := embeddinguc.NewClient(embeddinguc.ClientConfig{
		Runtime:     hashing.NewEmbedder(64),
		RuntimeName: "hashing",
		Model:       "hashing-64",
	})
	cache := embcache.New(cacheArea, client, 0, nil)
	snippets := snippetuc.New(store, cache, nil)
	if err := snippets.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	controller := searchuc.NewController(store, cache, client, nil)
	health := healthuc.New(map[string]healthuc.Pinger{"local": local, "sync": synced, "cache": cacheArea}, client)

	r := chi.NewRouter()
	NewServer(snippets, controller, health, SearchDefaults{Limit: 20}, nil).Routes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode %T: %v", v, err)
	}
	return v
}

func createSnippet(t *testing.T, h http.Handler, text, d string) Snippet {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/snippets", fmt.Sprintf(`{"text":%q,"domain":%q}`, text, d))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create %q: got %d: %s", text, rr.Code, rr.Body.String())
	}
	resp := decode[CreateSnippetResponse](t, rr)
	if !resp.Embedded {
		t.Fatalf("create %q: expected embedded snippet", text)
	}
	return resp.Snippet
}

func TestServer_CreateAndList(t *testing.T) {
	h := newTestRouter(t)

	a := createSnippet(t, h, "the quick brown fox", "local")
	b := createSnippet(t, h, "lazy dogs sleep all day", "sync")

	rr := do(t, h, http.MethodGet, "/snippets", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list: got %d", rr.Code)
	}
	list := decode[SnippetListResponse](t, rr)
	if list.Total != 2 || list.Items[0].ID != a.ID || list.Items[1].ID != b.ID {
		t.Fatalf("unexpected list: %+v", list)
	}

	rr = do(t, h, http.MethodGet, "/snippets?domain=sync", "")
	list = decode[SnippetListResponse](t, rr)
	if list.Total != 1 || list.Items[0].ID != b.ID {
		t.Fatalf("unexpected sync list: %+v", list)
	}
}

func TestServer_CreateValidation(t *testing.T) {
	h := newTestRouter(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"empty text", `{"text":"  ","domain":"local"}`, http.StatusBadRequest},
		{"unknown domain", `{"text":"x","domain":"cloud"}`, http.StatusBadRequest},
		{"malformed body", `{"text":`, http.StatusBadRequest},
		{"unknown field", `{"text":"x","domain":"local","tags":[]}`, http.StatusBadRequest},
		{"over sync quota", fmt.Sprintf(`{"text":%q,"domain":"sync"}`, strings.Repeat("word ", 200)), http.StatusInsufficientStorage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, "/snippets", tt.body)
			if rr.Code != tt.want {
				t.Errorf("got %d, want %d: %s", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}

func TestServer_SearchRanksExactMatchFirst(t *testing.T) {
	h := newTestRouter(t)

	createSnippet(t, h, "kubernetes cluster autoscaling", "local")
	want := createSnippet(t, h, "sourdough bread recipe", "sync")
	createSnippet(t, h, "postgres index tuning", "local")

	rr := do(t, h, http.MethodGet, "/search?q=sourdough+bread+recipe", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("search: got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decode[SearchResponse](t, rr)
	if resp.State != "done" || resp.Superseded {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(resp.Results))
	}
	if resp.Results[0].ID != want.ID || resp.Results[0].Domain != "sync" {
		t.Errorf("expected %s first, got %+v", want.ID, resp.Results[0])
	}
	if resp.Results[0].Score < 0.999 {
		t.Errorf("expected exact match score ~1, got %f", resp.Results[0].Score)
	}

	rr = do(t, h, http.MethodGet, "/search/state", "")
	state := decode[SearchResponse](t, rr)
	if state.Token != resp.Token || state.Query != "sourdough bread recipe" || len(state.Results) != 3 {
		t.Errorf("unexpected snapshot: %+v", state)
	}
}

func TestServer_EmptySearchIsIdle(t *testing.T) {
	h := newTestRouter(t)
	createSnippet(t, h, "one", "local")

	rr := do(t, h, http.MethodGet, "/search?q=", "")
	resp := decode[SearchResponse](t, rr)
	if resp.State != "idle" || len(resp.Results) != 1 || resp.Results[0].Score != 0 {
		t.Errorf("unexpected idle response: %+v", resp)
	}
}

func TestServer_SearchBadParams(t *testing.T) {
	h := newTestRouter(t)

	for _, path := range []string{"/search?q=x&limit=ten", "/search?q=x&min_score=high", "/search?q=x&min_score=2", "/search?q=x&min_score=-0.5"} {
		if rr := do(t, h, http.MethodGet, path, ""); rr.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want 400", path, rr.Code)
		}
	}
}

func TestServer_MoveAndDelete(t *testing.T) {
	h := newTestRouter(t)
	s := createSnippet(t, h, "move me", "local")

	rr := do(t, h, http.MethodPost, "/snippets/"+s.ID+"/move", `{"from":"local","to":"sync"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("move: got %d: %s", rr.Code, rr.Body.String())
	}
	if moved := decode[Snippet](t, rr); moved.Domain != "sync" {
		t.Errorf("expected sync, got %s", moved.Domain)
	}

	rr = do(t, h, http.MethodPost, "/snippets/"+s.ID+"/move", `{"from":"local","to":"sync"}`)
	if rr.Code != http.StatusNotFound {
		t.Errorf("second move: got %d, want 404", rr.Code)
	}

	rr = do(t, h, http.MethodDelete, "/snippets/sync/"+s.ID, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete: got %d", rr.Code)
	}
	rr = do(t, h, http.MethodDelete, "/snippets/sync/"+s.ID, "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("second delete: got %d, want 404", rr.Code)
	}
}

func TestServer_ClearDomain(t *testing.T) {
	h := newTestRouter(t)
	createSnippet(t, h, "a", "local")
	createSnippet(t, h, "b", "local")
	createSnippet(t, h, "c", "sync")

	rr := do(t, h, http.MethodDelete, "/snippets/local", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("clear: got %d", rr.Code)
	}
	if resp := decode[ClearResponse](t, rr); resp.Removed != 2 {
		t.Errorf("expected 2 removed, got %d", resp.Removed)
	}

	list := decode[SnippetListResponse](t, do(t, h, http.MethodGet, "/snippets", ""))
	if list.Total != 1 {
		t.Errorf("expected 1 remaining, got %d", list.Total)
	}
}

func TestServer_Health(t *testing.T) {
	h := newTestRouter(t)

	rr := do(t, h, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("health: got %d", rr.Code)
	}
	resp := decode[HealthResponse](t, rr)
	if resp.Status != "ok" || resp.Checks["storage.cache"] != "ok" || resp.Checks["embedding"] != "ok" {
		t.Errorf("unexpected health: %+v", resp)
	}
}

// --- Error mapping ---

type failingSnippets struct{ err error }

func (f failingSnippets) Create(context.Context, snippetuc.CreateInput) (item.Item, error) {
	return item.Item{}, f.err
}

func (f failingSnippets) List(context.Context, item.Domain) ([]item.Item, error) { return nil, f.err }

func (f failingSnippets) Move(context.Context, string, item.Domain, item.Domain) (item.Item, error) {
	return item.Item{}, f.err
}

func (f failingSnippets) Delete(context.Context, item.Domain, string) error { return f.err }

func (f failingSnippets) Clear(context.Context, item.Domain) (int, error) { return 0, f.err }

type failingSearch struct{ err error }

func (f failingSearch) Search(context.Context, request.Request) (searchuc.Response, error) {
	return searchuc.Response{}, f.err
}

func (f failingSearch) Snapshot() searchuc.Snapshot { return searchuc.Snapshot{} }

type staticHealth struct{ report healthuc.Report }

func (s staticHealth) Check(context.Context) healthuc.Report { return s.report }

func TestServer_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody ErrorCode
	}{
		{"not found", domain.NewItemError("x", "local", domain.ErrNotFound), http.StatusNotFound, CodeNotFound},
		{"duplicate", domain.ErrDuplicateInTarget, http.StatusConflict, CodeDuplicateInTarget},
		{"unavailable", fmt.Errorf("init: %w", domain.ErrEmbedderUnavailable), http.StatusServiceUnavailable, CodeEmbedderUnavailable},
		{"embedding failed", domain.ErrEmbeddingFailed, http.StatusBadGateway, CodeEmbeddingFailed},
		{"invalid vector", domain.ErrInvalidVector, http.StatusUnprocessableEntity, CodeInvalidVector},
		{"quota", fmt.Errorf("%w: %w", domain.ErrStorageFailure, db.ErrQuotaExceeded), http.StatusInsufficientStorage, CodeQuotaExceeded},
		{"storage", fmt.Errorf("%w: disk", domain.ErrStorageFailure), http.StatusInternalServerError, CodeStorageFailure},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			NewServer(failingSnippets{err: tt.err}, failingSearch{err: tt.err}, staticHealth{}, SearchDefaults{}, nil).Routes(r)

			for _, path := range []string{"/snippets", "/search?q=x"} {
				rr := do(t, r, http.MethodGet, path, "")
				if rr.Code != tt.wantCode {
					t.Errorf("%s: got %d, want %d", path, rr.Code, tt.wantCode)
				}
				if resp := decode[ErrorResponse](t, rr); resp.Code != tt.wantBody {
					t.Errorf("%s: got code %s, want %s", path, resp.Code, tt.wantBody)
				}
			}
		})
	}
}

func TestServer_HealthStatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		report healthuc.Report
		want   int
	}{
		{"degraded", healthuc.Report{Status: healthuc.Degraded, Checks: map[string]healthuc.CheckResult{
			"embedding": healthuc.CheckError, "storage.local": healthuc.CheckOK,
		}}, http.StatusOK},
		{"unhealthy", healthuc.Report{Status: healthuc.Unhealthy, Checks: map[string]healthuc.CheckResult{
			"embedding": healthuc.CheckError, "storage.local": healthuc.CheckError,
		}}, http.StatusServiceUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			NewServer(failingSnippets{}, failingSearch{}, staticHealth{report: tc.report}, SearchDefaults{}, nil).Routes(r)

			rr := do(t, r, http.MethodGet, "/health", "")
			if rr.Code != tc.want {
				t.Fatalf("got %d, want %d", rr.Code, tc.want)
			}
			var body HealthResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != string(tc.report.Status) {
				t.Errorf("status = %q, want %q", body.Status, tc.report.Status)
			}
		})
	}
}
