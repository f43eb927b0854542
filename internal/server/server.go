package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/citescope/citescope/internal/cache"
	"github.com/citescope/citescope/internal/config"
	"github.com/citescope/citescope/internal/core"
	"github.com/citescope/citescope/internal/llm"
	"github.com/citescope/citescope/internal/scholar"
)

const defaultLimit = 3

type Server struct {
	Discovery    *core.Discovery
	Bibliography scholar.Bibliography
	Cache        cache.Cache
	LLM          llm.LLMClient
}

func NewServer() *Server {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Printf("Warning: could not load %s: %v. Using environment variables only", cfgPath, err)
		cfg = &config.Config{}
	}

	// Env vars override the config file.
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("SCHOLAR_BASE_URL"); v != "" {
		cfg.Scholar.BaseURL = v
	}
	if v := os.Getenv("SCHOLAR_API_KEY"); v != "" {
		cfg.Scholar.APIKey = v
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("CACHE_PATH"); v != "" {
		cfg.Cache.Path = v
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "gemini"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gemini-2.5-flash"
	}
	if cfg.LLM.APIKey == "" && cfg.LLM.Provider != "ollama" {
		log.Fatalf("LLM_API_KEY is not set; provider %q requires an API key", cfg.LLM.Provider)
	}

	llmClient, err := llm.NewClient(context.Background(), cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}

	bib := scholar.NewClient(cfg.Scholar.BaseURL, cfg.Scholar.APIKey)
	resultCache := buildCache(cfg.Cache)

	return &Server{
		Discovery:    core.NewDiscovery(bib, llmClient, resultCache),
		Bibliography: bib,
		Cache:        resultCache,
		LLM:          llmClient,
	}
}

func buildCache(cfg config.CacheConfig) cache.Cache {
	path := cfg.Path
	switch strings.ToLower(cfg.Backend) {
	case "", "file":
		if path == "" {
			path = "cache.json"
		}
		return cache.NewFileCache(path)
	case "sqlite":
		if path == "" {
			path = "cache.db"
		}
		c, err := cache.NewSQLiteCache(path)
		if err != nil {
			log.Fatalf("Failed to open cache database: %v", err)
		}
		return c
	default:
		log.Fatalf("Unsupported cache backend: %s", cfg.Backend)
		return nil
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()
	r.Use(requestID())

	r.POST("/decompose-query", s.DecomposeQuery)
	r.POST("/citation-search", s.CitationSearch)
	r.POST("/citation-search-rated", s.CitationSearchRated)
	r.GET("/paper/:paperId/citations", s.PaperCitations)
	r.GET("/paper/:paperId/references", s.PaperReferences)
	r.GET("/search-paper", s.SearchPaper)
	r.GET("/cache/clear", s.ClearCache)
	r.GET("/cache/stats", s.CacheStats)
	r.GET("/health", s.Health)
	r.GET("/", s.Index)
	r.GET("/list-models", s.ListModels)

	return r
}

// requestID tags every response, generating an id when the caller sent none.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

type SearchQueryRequest struct {
	Query string `json:"query" binding:"required"`
}

type CitationSearchRequest struct {
	Query         string `json:"query" binding:"required"`
	ForwardLimit  int    `json:"forward_limit"`
	BackwardLimit int    `json:"backward_limit"`
}

func (r *CitationSearchRequest) applyDefaults() {
	if r.ForwardLimit <= 0 {
		r.ForwardLimit = defaultLimit
	}
	if r.BackwardLimit <= 0 {
		r.BackwardLimit = defaultLimit
	}
}

// fail maps domain errors onto HTTP statuses with a human-readable detail.
func fail(c *gin.Context, err error) {
	var nf *core.NotFoundError
	if errors.As(err, &nf) {
		c.JSON(http.StatusNotFound, gin.H{"detail": nf.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
}

func (s *Server) DecomposeQuery(c *gin.Context) {
	var req SearchQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request"})
		return
	}

	dec, err := s.Discovery.Decompose(c.Request.Context(), req.Query)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dec)
}

func (s *Server) CitationSearch(c *gin.Context) {
	var req CitationSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request"})
		return
	}
	req.applyDefaults()

	res, err := s.Discovery.CitationSearch(c.Request.Context(), req.Query, req.ForwardLimit, req.BackwardLimit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) CitationSearchRated(c *gin.Context) {
	var req CitationSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request"})
		return
	}
	req.applyDefaults()

	res, err := s.Discovery.RatedSearch(c.Request.Context(), req.Query, req.ForwardLimit, req.BackwardLimit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) PaperCitations(c *gin.Context) {
	papers, err := s.Bibliography.ForwardCitations(c.Request.Context(), c.Param("paperId"), limitParam(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"paper_id":          c.Param("paperId"),
		"forward_citations": papers,
		"count":             len(papers),
	})
}

func (s *Server) PaperReferences(c *gin.Context) {
	papers, err := s.Bibliography.BackwardCitations(c.Request.Context(), c.Param("paperId"), limitParam(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"paper_id":           c.Param("paperId"),
		"backward_citations": papers,
		"count":              len(papers),
	})
}

func limitParam(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit <= 0 {
		return defaultLimit
	}
	return limit
}

func (s *Server) SearchPaper(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "query parameter is required"})
		return
	}

	paper, err := s.Bibliography.FindTopMatch(c.Request.Context(), query)
	if err != nil {
		fail(c, err)
		return
	}
	if paper == nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "no papers found for query: " + query})
		return
	}
	c.JSON(http.StatusOK, paper)
}

func (s *Server) ClearCache(c *gin.Context) {
	n, err := s.Cache.Clear()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       "Cache cleared",
		"items_cleared": n,
	})
}

func (s *Server) CacheStats(c *gin.Context) {
	size, keys := s.Cache.Stats()
	c.JSON(http.StatusOK, gin.H{
		"cache_size":     size,
		"cached_queries": keys,
	})
}

func (s *Server) ListModels(c *gin.Context) {
	lister, ok := s.LLM.(llm.ModelLister)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "model listing is not supported by the configured provider"})
		return
	}

	models, err := lister.ListModels(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Error listing models: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"available_models": models,
		"count":            len(models),
	})
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Research Paper Citation Discovery API",
		"endpoints": gin.H{
			"/decompose-query":              "POST - Decompose a search query into components",
			"/citation-search":              "POST - Find most relevant paper and get forward/backward citations",
			"/citation-search-rated":        "POST - Citation search with relevance ratings (cached)",
			"/search-paper":                 "GET - Search for most relevant paper",
			"/paper/{paper_id}/citations":   "GET - Get forward citations for a paper",
			"/paper/{paper_id}/references":  "GET - Get backward citations for a paper",
			"/cache/clear":                  "GET - Clear the search cache",
			"/cache/stats":                  "GET - Get cache statistics",
		},
	})
}
