package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citescope/citescope/internal/cache"
	"github.com/citescope/citescope/internal/core"
	"github.com/citescope/citescope/internal/core/model"
)

type mockLLM struct {
	Calls int
}

const decompositionJSON = `{
	"components": [{"component": "C", "description": "d", "keywords": ["k"]}],
	"main_concepts": ["c"],
	"relationships": []
}`

func (m *mockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.Calls++
	if strings.Contains(prompt, "decompose academic search queries") {
		return decompositionJSON, nil
	}
	return "Relevant", nil
}

type mockBibliography struct {
	Calls int
}

func (m *mockBibliography) FindTopMatch(ctx context.Context, query string) (*model.Paper, error) {
	m.Calls++
	if query == "no hits" {
		return nil, nil
	}
	return &model.Paper{PaperID: "seed", Title: "Seed Paper"}, nil
}

func (m *mockBibliography) ForwardCitations(ctx context.Context, paperID string, limit int) ([]model.Paper, error) {
	m.Calls++
	papers := []model.Paper{{PaperID: paperID + "-f1", Title: "F1"}, {PaperID: paperID + "-f2", Title: "F2"}}
	if len(papers) > limit {
		papers = papers[:limit]
	}
	return papers, nil
}

func (m *mockBibliography) BackwardCitations(ctx context.Context, paperID string, limit int) ([]model.Paper, error) {
	m.Calls++
	papers := []model.Paper{{PaperID: paperID + "-b1", Title: "B1"}}
	if len(papers) > limit {
		papers = papers[:limit]
	}
	return papers, nil
}

func newTestServer(t *testing.T) (*Server, *mockBibliography, *mockLLM) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	bib := &mockBibliography{}
	llmClient := &mockLLM{}
	resultCache := cache.NewFileCache(filepath.Join(t.TempDir(), "cache.json"))

	return &Server{
		Discovery:    core.NewDiscovery(bib, llmClient, resultCache),
		Bibliography: bib,
		Cache:        resultCache,
		LLM:          llmClient,
	}, bib, llmClient
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestDecomposeQueryEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)
	r := s.SetupRouter()

	w := doJSON(t, r, http.MethodPost, "/decompose-query", gin.H{"query": "llms in robotics"})
	require.Equal(t, http.StatusOK, w.Code)

	var dec model.QueryDecomposition
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dec))
	assert.Equal(t, "llms in robotics", dec.OriginalQuery)
	assert.Len(t, dec.Components, 1)
}

func TestDecomposeQueryRejectsMissingQuery(t *testing.T) {
	s, _, _ := newTestServer(t)
	w := doJSON(t, s.SetupRouter(), http.MethodPost, "/decompose-query", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCitationSearchEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)
	w := doJSON(t, s.SetupRouter(), http.MethodPost, "/citation-search", gin.H{"query": "anything", "forward_limit": 1})
	require.Equal(t, http.StatusOK, w.Code)

	var res model.CitationSearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, res.TotalForward, len(res.ForwardCitations))
	assert.Len(t, res.ForwardCitations, 1)
}

func TestCitationSearchNotFound(t *testing.T) {
	s, _, _ := newTestServer(t)
	w := doJSON(t, s.SetupRouter(), http.MethodPost, "/citation-search", gin.H{"query": "no hits"})
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "no hits")
}

func TestCitationSearchRatedCaches(t *testing.T) {
	s, bib, llmClient := newTestServer(t)
	r := s.SetupRouter()

	first := doJSON(t, r, http.MethodPost, "/citation-search-rated", gin.H{"query": "anything"})
	require.Equal(t, http.StatusOK, first.Code)

	bibCalls, llmCalls := bib.Calls, llmClient.Calls

	second := doJSON(t, r, http.MethodPost, "/citation-search-rated", gin.H{"query": "anything"})
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, bibCalls, bib.Calls)
	assert.Equal(t, llmCalls, llmClient.Calls)

	stats := doJSON(t, r, http.MethodGet, "/cache/stats", nil)
	assert.Contains(t, stats.Body.String(), `"cache_size":1`)
}

func TestCacheClearEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)
	r := s.SetupRouter()

	doJSON(t, r, http.MethodPost, "/citation-search-rated", gin.H{"query": "anything"})

	w := doJSON(t, r, http.MethodGet, "/cache/clear", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"items_cleared":1`)

	stats := doJSON(t, r, http.MethodGet, "/cache/stats", nil)
	assert.Contains(t, stats.Body.String(), `"cache_size":0`)
}

func TestPaperCitationsEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)
	w := doJSON(t, s.SetupRouter(), http.MethodGet, "/paper/p1/citations?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		PaperID          string        `json:"paper_id"`
		ForwardCitations []model.Paper `json:"forward_citations"`
		Count            int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "p1", res.PaperID)
	assert.Equal(t, 1, res.Count)
}

func TestSearchPaperEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)
	r := s.SetupRouter()

	w := doJSON(t, r, http.MethodGet, "/search-paper?query=seed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"paperId":"seed"`)

	w = doJSON(t, r, http.MethodGet, "/search-paper?query=no+hits", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/search-paper", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndIndex(t *testing.T) {
	s, _, _ := newTestServer(t)
	r := s.SetupRouter()

	w := doJSON(t, r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")

	w = doJSON(t, r, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/citation-search-rated")
}

func TestListModelsUnsupported(t *testing.T) {
	// The mock LLM does not implement ModelLister.
	s, _, _ := newTestServer(t)
	w := doJSON(t, s.SetupRouter(), http.MethodGet, "/list-models", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRequestIDHeader(t *testing.T) {
	s, _, _ := newTestServer(t)
	r := s.SetupRouter()

	w := doJSON(t, r, http.MethodGet, "/health", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}
