package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kraklabs/devsentry/internal/apperr"
	"github.com/kraklabs/devsentry/internal/config"
	"github.com/kraklabs/devsentry/internal/metrics"
	"github.com/kraklabs/devsentry/internal/rag"
	"github.com/kraklabs/devsentry/internal/store"
)

// createRepoRequest is the body of POST /repos (spec.md §6).
type createRepoRequest struct {
	Name   string `json:"name"`
	GitURL string `json:"git_url"`
}

func (s *Server) handleCreateRepo(c echo.Context) error {
	var req createRepoRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("malformed request body")
	}
	if req.Name == "" || req.GitURL == "" {
		return apperr.Validation("name and git_url are required")
	}

	repo, err := s.store.CreateRepository(c.Request().Context(), &store.Repository{
		Name:            req.Name,
		RemoteURL:       req.GitURL,
		AutoScan:        false,
		ScanIntervalMin: 60,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]string{"id": repo.ID})
}

// updateRepoSettingsRequest is the body of POST /repos/{id}/settings.
type updateRepoSettingsRequest struct {
	ScanIntervalMinutes *int  `json:"scan_interval_minutes"`
	AutoScanEnabled     *bool `json:"auto_scan_enabled"`
}

func (s *Server) handleUpdateRepoSettings(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	repo, err := s.store.GetRepository(ctx, id)
	if err != nil {
		return err
	}

	var req updateRepoSettingsRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("malformed request body")
	}

	interval := repo.ScanIntervalMin
	if req.ScanIntervalMinutes != nil {
		if err := config.ValidateScanInterval(*req.ScanIntervalMinutes); err != nil {
			return err
		}
		interval = *req.ScanIntervalMinutes
	}
	autoScan := repo.AutoScan
	if req.AutoScanEnabled != nil {
		autoScan = *req.AutoScanEnabled
	}

	if err := s.store.UpdateRepositorySettings(ctx, id, autoScan, interval); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"toast": "settings saved",
	})
}

// repoProgressResponse is the scan-progress projection for a single
// repository (spec.md §6 "JSON and HTML fragment forms"). Only the JSON
// form is implemented here; an HTML fragment renderer is outside the
// engine core.
type repoProgressResponse struct {
	ScanStatus      string `json:"scan_status"`
	ProgressTotal   int    `json:"progress_total"`
	ProgressDone    int    `json:"progress_done"`
	ProgressCurrent string `json:"progress_current"`
	IssuesFound     int    `json:"issues_found"`
	LastError       string `json:"last_error,omitempty"`
}

func (s *Server) handleRepoProgress(c echo.Context) error {
	repo, err := s.store.GetRepository(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, repoProgressResponse{
		ScanStatus:      repo.ScanStatus,
		ProgressTotal:   repo.ProgressTotal,
		ProgressDone:    repo.ProgressDone,
		ProgressCurrent: repo.ProgressCurrent,
		IssuesFound:     repo.IssuesFound,
		LastError:       repo.LastError,
	})
}

type createNoteRequest struct {
	Content string   `json:"content"`
	RepoID  *string  `json:"repo_id"`
	Tags    []string `json:"tags"`
}

func (s *Server) handleCreateNote(c echo.Context) error {
	var req createNoteRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("malformed request body")
	}
	if req.Content == "" {
		return apperr.Validation("content is required")
	}

	note, err := s.store.CreateNote(c.Request().Context(), &store.Note{
		Content: req.Content,
		RepoID:  req.RepoID,
		Tags:    req.Tags,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, note)
}

func (s *Server) handleDeleteNote(c echo.Context) error {
	if err := s.store.DeleteNote(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type createIdeaRequest struct {
	Content  string   `json:"content"`
	Priority int      `json:"priority"`
	Category string   `json:"category"`
	RepoID   *string  `json:"repo_id"`
	Tags     []string `json:"tags"`
}

func (s *Server) handleCreateIdea(c echo.Context) error {
	var req createIdeaRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("malformed request body")
	}
	if req.Content == "" {
		return apperr.Validation("content is required")
	}

	idea, err := s.store.CreateIdea(c.Request().Context(), &store.Idea{
		Content:  req.Content,
		Priority: req.Priority,
		Category: req.Category,
		RepoID:   req.RepoID,
		Tags:     req.Tags,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, idea)
}

func (s *Server) handleListIdeas(c echo.Context) error {
	f := store.IdeaFilter{
		Category: c.QueryParam("category"),
		Tag:      c.QueryParam("tag"),
		RepoID:   c.QueryParam("repo"),
	}
	ideas, err := s.store.ListIdeas(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ideas)
}

func (s *Server) handleSearchDocs(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return apperr.Validation("q is required")
	}

	limit := 10
	if l := c.QueryParam("limit"); l != "" {
		if parsed, err := parsePositiveInt(l); err == nil {
			limit = parsed
		}
	}
	var threshold float64
	if t := c.QueryParam("threshold"); t != "" {
		if parsed, err := parseFloat(t); err == nil {
			threshold = parsed
		}
	}

	candidates, err := s.searcher.Search(c.Request().Context(), q, rag.SearchFilter{
		TopK:          limit,
		MinSimilarity: threshold,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, candidates)
}

type createDocRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	DocType string   `json:"doc_type"`
	RepoID  *string  `json:"repo_id"`
	Tags    []string `json:"tags"`
}

func (s *Server) handleCreateDoc(c echo.Context) error {
	var req createDocRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("malformed request body")
	}
	if req.Title == "" || req.Content == "" {
		return apperr.Validation("title and content are required")
	}

	doc, err := s.store.CreateDocument(c.Request().Context(), &store.Document{
		Title:   req.Title,
		Content: req.Content,
		DocType: req.DocType,
		RepoID:  req.RepoID,
		Tags:    req.Tags,
	})
	if err != nil {
		return err
	}

	// Chunk+embed asynchronously; the caller gets the document id
	// immediately, matching spec.md §6 "triggers async chunk+embed".
	go func(id string) {
		bgCtx := detachedContext()
		if err := s.indexer.IndexDocument(bgCtx, id); err != nil {
			s.logIndexFailure(id, err)
		}
	}(doc.ID)

	return c.JSON(http.StatusCreated, doc)
}

type healthResponse struct {
	Version string        `json:"version"`
	Scanner healthScanner `json:"scanner"`
	Cache   healthCache   `json:"cache"`
	Cost    healthCost    `json:"cost"`
}

type healthScanner struct {
	Running      bool `json:"running"`
	ActiveScans  int  `json:"active_scans"`
}

type healthCache struct {
	HitRate1h float64 `json:"hit_rate_1h"`
}

type healthCost struct {
	Day   float64 `json:"day"`
	Week  float64 `json:"week"`
	Month float64 `json:"month"`
}

func (s *Server) handleHealth(c echo.Context) error {
	ctx := c.Request().Context()
	now := time.Now()

	hourAgo := now.Add(-time.Hour).Unix()
	hourSummary, err := s.store.CostSummarySince(ctx, hourAgo)
	if err != nil {
		return err
	}
	var hitRate float64
	if hourSummary.TotalCalls > 0 {
		hitRate = float64(hourSummary.CacheHits) / float64(hourSummary.TotalCalls)
	}

	daySummary, err := s.store.CostSummarySince(ctx, now.AddDate(0, 0, -1).Unix())
	if err != nil {
		return err
	}
	weekSummary, err := s.store.CostSummarySince(ctx, now.AddDate(0, 0, -7).Unix())
	if err != nil {
		return err
	}
	monthSummary, err := s.store.CostSummarySince(ctx, now.AddDate(0, -1, 0).Unix())
	if err != nil {
		return err
	}

	running := s.scanner != nil
	active := 0
	if running {
		active = s.scanner.ActiveScans()
	}

	metrics.CacheHitRatio.Set(hitRate)
	metrics.CostAccumulatedUSD.WithLabelValues("day").Set(daySummary.TotalCostUSD)
	metrics.CostAccumulatedUSD.WithLabelValues("week").Set(weekSummary.TotalCostUSD)
	metrics.CostAccumulatedUSD.WithLabelValues("month").Set(monthSummary.TotalCostUSD)

	return c.JSON(http.StatusOK, healthResponse{
		Version: s.version,
		Scanner: healthScanner{Running: running, ActiveScans: active},
		Cache:   healthCache{HitRate1h: hitRate},
		Cost: healthCost{
			Day:   daySummary.TotalCostUSD,
			Week:  weekSummary.TotalCostUSD,
			Month: monthSummary.TotalCostUSD,
		},
	})
}
