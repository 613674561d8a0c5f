package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stockyard-ci/stockyard/internal/models"
	"github.com/stockyard-ci/stockyard/internal/services"
	"github.com/stockyard-ci/stockyard/pkg/logger"
	"github.com/stockyard-ci/stockyard/pkg/response"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

type rawFetcher func(ctx context.Context, scope services.Scope) ([]byte, error)

// LatestHandler serves the JSON read API. Report endpoints replay the stored
// upload body verbatim.
type LatestHandler struct {
	repos   *services.RepositoryService
	reports *services.Reports
	owners  *OwnerDirectory
}

func NewLatestHandler(repos *services.RepositoryService, reports *services.Reports, owners *OwnerDirectory) *LatestHandler {
	return &LatestHandler{repos: repos, reports: reports, owners: owners}
}

func (h *LatestHandler) raw(c *gin.Context, kind string, fetch rawFetcher) {
	scope := bindScope(c)
	if !scope.Complete() {
		response.RawJSON(c, nil)
		return
	}
	raw, err := fetch(c.Request.Context(), scope)
	if err != nil {
		logger.Error().Err(err).Str("type", kind).Str("scope", scope.String()).Msg("[Read] latest raw fetch failed")
		raw = nil
	}
	response.RawJSON(c, raw)
}

// GET /api/latest/linesofcode
func (h *LatestHandler) LinesOfCode(c *gin.Context) {
	h.raw(c, "linesofcode", h.reports.LinesOfCode.FetchLatestRaw)
}

// GET /api/latest/codecoverage
func (h *LatestHandler) CodeCoverage(c *gin.Context) {
	h.raw(c, "codecoverage", h.reports.CodeCoverage.FetchLatestRaw)
}

// GET /api/latest/unittest
func (h *LatestHandler) UnitTests(c *gin.Context) {
	h.raw(c, "unittest", h.reports.UnitTests.FetchLatestRaw)
}

// GET /api/latest/imagecapture
func (h *LatestHandler) ImageCaptures(c *gin.Context) {
	h.raw(c, "imagecapture", h.reports.ImageCaptures.FetchLatestRaw)
}

// GET /api/latest/imagecapturediff
func (h *LatestHandler) ImageCaptureDiff(c *gin.Context) {
	h.raw(c, "imagecapturediff", h.reports.ImageCaptureDiffs.FetchLatestRaw)
}

// CoverageHistory returns the newest coverage ratios of a branch.
// GET /api/history/codecoverage?owner=&repository=&branch=&limit=
func (h *LatestHandler) CoverageHistory(c *gin.Context) {
	scope := bindScope(c)
	points := []services.CoveragePoint{}
	if !scope.Complete() {
		c.JSON(http.StatusOK, points)
		return
	}

	limit := defaultHistoryLimit
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = min(v, maxHistoryLimit)
	}

	history, err := h.reports.CodeCoverage.FetchHistory(c.Request.Context(), scope, limit)
	if err != nil {
		logger.Error().Err(err).Str("scope", scope.String()).Msg("[Read] coverage history failed")
	} else if history != nil {
		points = history
	}
	c.JSON(http.StatusOK, points)
}

// GET /api/owners
func (h *LatestHandler) Owners(c *gin.Context) {
	c.JSON(http.StatusOK, h.owners.List(c.Request.Context()))
}

// GET /api/repositories?owner=
func (h *LatestHandler) Repositories(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		repos []models.Repository
		err   error
	)
	if owner := c.Query("owner"); owner != "" {
		repos, err = h.repos.FetchRepositoriesWithOwner(ctx, owner)
	} else {
		repos, err = h.repos.FetchRepositories(ctx)
	}
	if err != nil {
		logger.Error().Err(err).Msg("[Read] repositories fetch failed")
	}
	if repos == nil {
		repos = []models.Repository{}
	}
	c.JSON(http.StatusOK, repos)
}

// Branches lists every branch of a repository, most recently active first.
// GET /api/branches?owner=&repository=
func (h *LatestHandler) Branches(c *gin.Context) {
	owner, repo := c.Query("owner"), c.Query("repository")
	branches := []models.Branch{}
	if owner == "" || repo == "" {
		c.JSON(http.StatusOK, branches)
		return
	}
	rows, err := h.repos.FetchBranches(c.Request.Context(), owner, repo, "")
	if err != nil {
		logger.Error().Err(err).Str("owner", owner).Str("repository", repo).Msg("[Read] branches fetch failed")
	} else if rows != nil {
		branches = rows
	}
	c.JSON(http.StatusOK, branches)
}
