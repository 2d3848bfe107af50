// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hagnberger/researchlens/internal/jobs"
	"github.com/hagnberger/researchlens/internal/pipeline"
	"github.com/hagnberger/researchlens/internal/store"
	"github.com/hagnberger/researchlens/pkg/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type runnerCall struct {
	numberArticles int
	categories     []string
}

// stubRunner records Run invocations and signals each one on a channel.
type stubRunner struct {
	calls chan runnerCall
	err   error
}

func newStubRunner() *stubRunner {
	return &stubRunner{calls: make(chan runnerCall, 8)}
}

func (r *stubRunner) Run(ctx context.Context, numberArticles int, categories []string) (pipeline.Stats, error) {
	r.calls <- runnerCall{numberArticles: numberArticles, categories: categories}
	return pipeline.Stats{}, r.err
}

func (r *stubRunner) waitForCall(t *testing.T) runnerCall {
	t.Helper()
	select {
	case call := <-r.calls:
		return call
	case <-time.After(5 * time.Second):
		t.Fatal("ingestion runner was never invoked")
		return runnerCall{}
	}
}

type fixture struct {
	store  *store.Store
	runner *stubRunner
	router *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.New(types.StoreConfig{Path: filepath.Join(t.TempDir(), "server.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	q := jobs.New(8, nil)
	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)
	t.Cleanup(func() {
		cancel()
		q.Wait()
	})

	runner := newStubRunner()
	srv := New(s, q, runner, types.ServerConfig{
		Mode:         "test",
		AllowOrigins: []string{"http://localhost:3000"},
	}, nil)
	return &fixture{store: s, runner: runner, router: srv.Router()}
}

func (f *fixture) do(t *testing.T, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "response body: %s", w.Body.String())
	return w, body
}

func (f *fixture) addPaper(t *testing.T, arxivID, title, date, categories string, authors []string, embedding []float32) *types.Paper {
	t.Helper()
	ctx := context.Background()
	p, _, err := f.store.GetOrCreatePaper(ctx, arxivID, store.PaperFields{
		Title:         title,
		Abstract:      "Abstract of " + title,
		PublishedDate: date,
		Categories:    categories,
		Link:          "http://arxiv.org/abs/" + arxivID,
	})
	require.NoError(t, err)
	for _, name := range authors {
		p.Authors = append(p.Authors, &types.Author{Name: name})
	}
	p.Embedding = embedding
	require.NoError(t, f.store.UpdatePaper(ctx, p))
	return p
}

func TestHealthcheck(t *testing.T) {
	f := newFixture(t)
	w, body := f.do(t, http.MethodGet, "/healthcheck")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestFetchUsesDefaults(t *testing.T) {
	f := newFixture(t)
	w, body := f.do(t, http.MethodPost, "/api/papers/fetch")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Data fetching and preprocessing started", body["status"])

	call := f.runner.waitForCall(t)
	assert.Equal(t, 10, call.numberArticles)
	assert.Equal(t, []string{"cs", "math"}, call.categories)
}

func TestFetchPassesParams(t *testing.T) {
	f := newFixture(t)
	w, _ := f.do(t, http.MethodPost, "/api/papers/fetch?number_articles=25&categories=stat,q-bio")
	assert.Equal(t, http.StatusOK, w.Code)

	call := f.runner.waitForCall(t)
	assert.Equal(t, 25, call.numberArticles)
	assert.Equal(t, []string{"stat", "q-bio"}, call.categories)
}

func TestFetchRejectsBadNumberArticles(t *testing.T) {
	f := newFixture(t)
	for _, raw := range []string{"abc", "0", "-3"} {
		w, body := f.do(t, http.MethodPost, "/api/papers/fetch?number_articles="+raw)
		assert.Equal(t, http.StatusBadRequest, w.Code, "number_articles=%s", raw)
		assert.Equal(t, "error", body["status"])
	}
	assert.Empty(t, f.runner.calls)
}

func TestFetchQueueFull(t *testing.T) {
	s, err := store.New(types.StoreConfig{Path: filepath.Join(t.TempDir(), "full.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	// One slot, no worker: the first submission fills the queue for good.
	q := jobs.New(1, nil)
	_, err = q.Submit("occupy", func(ctx context.Context) error { return nil })
	require.NoError(t, err)

	srv := New(s, q, newStubRunner(), types.ServerConfig{Mode: "test"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/papers/fetch", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestListPapersPaginates(t *testing.T) {
	f := newFixture(t)
	f.addPaper(t, "2601.00001", "Oldest", "2026-01-01", "Computer Science", []string{"Alice Smith"}, nil)
	f.addPaper(t, "2601.00002", "Middle", "2026-01-02", "Computer Science", []string{"Bob Jones"}, nil)
	f.addPaper(t, "2601.00003", "Newest", "2026-01-03", "Mathematics", []string{"Alice Smith", "Carol White"}, nil)

	w, body := f.do(t, http.MethodGet, "/api/papers?page=1&page_size=2")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", body["status"])
	assert.EqualValues(t, 1, body["current_page"])
	assert.EqualValues(t, 2, body["total_pages"])
	assert.EqualValues(t, 3, body["total_items"])

	results := body["results"].([]any)
	require.Len(t, results, 2)
	first := results[0].(map[string]any)
	assert.Equal(t, "Newest", first["title"])
	assert.Equal(t, "2026-01-03", first["published_date"])
	assert.Equal(t, "Mathematics", first["categories"])
	assert.Equal(t, []any{"Alice Smith", "Carol White"}, first["authors"])
	assert.Equal(t, []any{}, first["keywords"])
	assert.Equal(t, "http://arxiv.org/abs/2601.00003", first["link"])

	second := results[1].(map[string]any)
	assert.Equal(t, "Middle", second["title"])

	_, body = f.do(t, http.MethodGet, "/api/papers?page=2&page_size=2")
	results = body["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "Oldest", results[0].(map[string]any)["title"])
}

func TestListPapersEmptyCatalog(t *testing.T) {
	f := newFixture(t)
	w, body := f.do(t, http.MethodGet, "/api/papers")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, body["total_items"])
	assert.EqualValues(t, 1, body["total_pages"])
	assert.Equal(t, []any{}, body["results"])
}

func TestListPapersFilters(t *testing.T) {
	f := newFixture(t)
	f.addPaper(t, "2601.00010", "Quantum Entanglement Basics", "2026-02-01", "Physics", []string{"Dana Fox"}, nil)
	f.addPaper(t, "2601.00011", "Transformer Scaling Laws", "2026-02-05", "Computer Science", []string{"Eli Gray"}, nil)

	_, body := f.do(t, http.MethodGet, "/api/papers?search=quantum")
	results := body["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "Quantum Entanglement Basics", results[0].(map[string]any)["title"])

	_, body = f.do(t, http.MethodGet, "/api/papers?categories=Computer+Science")
	results = body["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "Transformer Scaling Laws", results[0].(map[string]any)["title"])

	_, body = f.do(t, http.MethodGet, "/api/papers?start_date=2026-02-02")
	results = body["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "Transformer Scaling Laws", results[0].(map[string]any)["title"])
}

func TestListPapersClampsPageSize(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.addPaper(t, fmt.Sprintf("2601.0010%d", i), fmt.Sprintf("Paper %d", i),
			"2026-03-01", "Computer Science", []string{"Alice Smith"}, nil)
	}
	w, body := f.do(t, http.MethodGet, "/api/papers?page_size=5000")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, body["total_pages"])
	assert.Len(t, body["results"].([]any), 3)
}

func TestListPapersRejectsBadPaging(t *testing.T) {
	f := newFixture(t)
	for _, target := range []string{
		"/api/papers?page=zero",
		"/api/papers?page=0",
		"/api/papers?page_size=-1",
		"/api/papers?page_size=abc",
	} {
		w, body := f.do(t, http.MethodGet, target)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		assert.Equal(t, "error", body["status"], target)
	}
}

func TestListPapersNullPublishedDate(t *testing.T) {
	f := newFixture(t)
	f.addPaper(t, "2601.00020", "Undated Paper", "", "Computer Science", []string{"Alice Smith"}, nil)

	_, body := f.do(t, http.MethodGet, "/api/papers")
	results := body["results"].([]any)
	require.Len(t, results, 1)
	assert.Nil(t, results[0].(map[string]any)["published_date"])
}

func TestRelatedPapersRankedByDistance(t *testing.T) {
	f := newFixture(t)
	origin := f.addPaper(t, "2601.00030", "Origin", "2026-01-01", "Computer Science",
		[]string{"Alice Smith"}, []float32{0, 0})
	f.addPaper(t, "2601.00031", "Near", "2026-01-02", "Computer Science",
		[]string{"Bob Jones"}, []float32{1, 0})
	f.addPaper(t, "2601.00032", "Far", "2026-01-03", "Computer Science",
		[]string{"Carol White"}, []float32{5, 0})
	f.addPaper(t, "2601.00033", "Unembedded", "2026-01-04", "Computer Science",
		[]string{"Dana Fox"}, nil)

	w, body := f.do(t, http.MethodGet, fmt.Sprintf("/api/papers/%d/related", origin.ID))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", body["status"])

	results := body["results"].([]any)
	require.Len(t, results, 2)
	assert.Equal(t, "Near", results[0].(map[string]any)["title"])
	assert.Equal(t, "Far", results[1].(map[string]any)["title"])
}

func TestRelatedPapersEmptyCases(t *testing.T) {
	f := newFixture(t)
	unembedded := f.addPaper(t, "2601.00040", "Unembedded", "2026-01-01", "Computer Science",
		[]string{"Alice Smith"}, nil)

	// Unknown paper id.
	w, body := f.do(t, http.MethodGet, "/api/papers/999999/related")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{}, body["results"])

	// Known paper without an embedding.
	w, body = f.do(t, http.MethodGet, fmt.Sprintf("/api/papers/%d/related", unembedded.ID))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{}, body["results"])
}

func TestRelatedPapersRejectsBadID(t *testing.T) {
	f := newFixture(t)
	w, body := f.do(t, http.MethodGet, "/api/papers/abc/related")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "error", body["status"])
}
