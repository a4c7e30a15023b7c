package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/devsentry/internal/rag"
	"github.com/kraklabs/devsentry/internal/scanner"
	"github.com/kraklabs/devsentry/internal/store"
)

type fakeEngine struct{ dim int }

func (f *fakeEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	v := make([]float32, f.dim)
	for i := range v {
		v[i] = float32(len(text)) / float32(i+1)
	}
	return v, nil
}

func (f *fakeEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, _ := f.Embed(ctx, t)
		out[i] = v
	}
	return out, nil
}

func (f *fakeEngine) Dimensions() int { return f.dim }
func (f *fakeEngine) Name() string    { return "fake-embed" }

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "devsentry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	engine := &fakeEngine{dim: 8}
	indexer := rag.NewIndexer(s, engine)
	searcher := rag.NewSearcher(s, engine)
	sv := scanner.NewSupervisor(s, nil, nil, nil, time.Second, 2, 5, "")

	srv := New(Config{Store: s, Scanner: sv, Indexer: indexer, Searcher: searcher, Version: "test"})
	return srv, s
}

func doJSON(srv *Server, method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func TestCreateAndProgressRepo(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(srv, http.MethodPost, "/repos", createRepoRequest{Name: "widgets", GitURL: "https://example.com/w.git"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created["id"]
	require.NotEmpty(t, id)

	rec = doJSON(srv, http.MethodGet, "/repos/"+id+"/progress", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var progress repoProgressResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &progress))
	assert.Equal(t, store.ScanStatusIdle, progress.ScanStatus)
}

func TestUpdateRepoSettingsRejectsOutOfRangeInterval(t *testing.T) {
	srv, s := newTestServer(t)
	ctx := context.Background()

	repo, err := s.CreateRepository(ctx, &store.Repository{Name: "w", RemoteURL: "https://example.com/w.git", ScanIntervalMin: 60})
	require.NoError(t, err)

	interval := 4
	rec := doJSON(srv, http.MethodPost, "/repos/"+repo.ID+"/settings", updateRepoSettingsRequest{ScanIntervalMinutes: &interval})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateRepoSettingsAcceptsValidInterval(t *testing.T) {
	srv, s := newTestServer(t)
	ctx := context.Background()

	repo, err := s.CreateRepository(ctx, &store.Repository{Name: "w", RemoteURL: "https://example.com/w.git", ScanIntervalMin: 60})
	require.NoError(t, err)

	interval := 30
	rec := doJSON(srv, http.MethodPost, "/repos/"+repo.ID+"/settings", updateRepoSettingsRequest{ScanIntervalMinutes: &interval})
	require.Equal(t, http.StatusOK, rec.Code)

	updated, err := s.GetRepository(ctx, repo.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, updated.ScanIntervalMin)
}

func TestCreateAndDeleteNoteAdjustsTagUsage(t *testing.T) {
	srv, s := newTestServer(t)
	ctx := context.Background()

	rec := doJSON(srv, http.MethodPost, "/api/notes", createNoteRequest{Content: "fix the bug", Tags: []string{"urgent"}})
	require.Equal(t, http.StatusCreated, rec.Code)

	var note store.Note
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &note))

	tag, err := s.GetTag(ctx, "urgent")
	require.NoError(t, err)
	assert.Equal(t, 1, tag.UsageCount)

	rec = doJSON(srv, http.MethodDelete, "/api/notes/"+note.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	tag, err = s.GetTag(ctx, "urgent")
	require.NoError(t, err)
	assert.Equal(t, 0, tag.UsageCount)
}

func TestCreateIdeaAndListWithFilters(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(srv, http.MethodPost, "/api/ideas", createIdeaRequest{Content: "add dark mode", Category: "feature", Tags: []string{"ui"}})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(srv, http.MethodGet, "/api/ideas?category=feature", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var ideas []*store.Idea
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ideas))
	require.Len(t, ideas, 1)
	assert.Equal(t, "add dark mode", ideas[0].Content)
}

func TestCreateDocTriggersAsyncIndexAndSearchFindsIt(t *testing.T) {
	srv, s := newTestServer(t)
	ctx := context.Background()

	rec := doJSON(srv, http.MethodPost, "/api/docs", createDocRequest{
		Title: "Deployment Guide", Content: "This document explains how the service is deployed to production.",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var doc store.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))

	require.Eventually(t, func() bool {
		d, err := s.GetDocument(ctx, doc.ID)
		return err == nil && d.IndexState == store.IndexStateIndexed
	}, time.Second, 10*time.Millisecond)

	rec = doJSON(srv, http.MethodGet, "/api/docs/search?q=deployment", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var candidates []rag.ContextCandidate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &candidates))
	require.NotEmpty(t, candidates)
}

func TestHealthReportsScannerAndCost(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(srv, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var health healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "test", health.Version)
	assert.True(t, health.Scanner.Running)
}
