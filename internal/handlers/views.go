package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stockyard-ci/stockyard/internal/middleware"
	"github.com/stockyard-ci/stockyard/internal/services"
	"github.com/stockyard-ci/stockyard/internal/summary"
	"github.com/stockyard-ci/stockyard/internal/views"
	"github.com/stockyard-ci/stockyard/pkg/logger"
)

// ViewHandler renders the dashboard pages. A page whose reports are missing
// or unreadable renders with zeroed fields.
type ViewHandler struct {
	repos         *services.RepositoryService
	reports       *services.Reports
	owners        *OwnerDirectory
	thresholds    summary.CoverageThresholds
	defaultBranch string
}

func NewViewHandler(repos *services.RepositoryService, reports *services.Reports, owners *OwnerDirectory, thresholds summary.CoverageThresholds, defaultBranch string) *ViewHandler {
	return &ViewHandler{
		repos:         repos,
		reports:       reports,
		owners:        owners,
		thresholds:    thresholds,
		defaultBranch: defaultBranch,
	}
}

// page fills the fields shared by every page. The branch falls back to the
// repository's default branch, then to the server default.
func (h *ViewHandler) page(c *gin.Context, title string) (views.Page, services.Scope) {
	ctx := c.Request.Context()
	owner, repo := c.Query("owner"), c.Query("repository")
	p := views.Page{
		Title:      title,
		Owners:     h.owners.List(ctx),
		IsAdmin:    middleware.IsAdmin(c),
		Owner:      owner,
		Repository: repo,
	}
	if repo != "" {
		p.Branch = h.repos.ResolveBranch(ctx, owner, repo, c.Query("branch"), h.defaultBranch)
	}
	return p, services.Scope{Owner: p.Owner, Repository: p.Repository, Branch: p.Branch}
}

// GET /
func (h *ViewHandler) Index(c *gin.Context) {
	p, _ := h.page(c, "")
	c.HTML(http.StatusOK, "index.html", views.IndexPage{Page: p})
}

// GET /repositories?owner=
func (h *ViewHandler) Repositories(c *gin.Context) {
	p, _ := h.page(c, "Repositories")
	ctx := c.Request.Context()

	data := views.RepositoriesPage{Page: p}
	var err error
	if p.Owner != "" {
		p.Title = p.Owner
		data.Page = p
		data.Repositories, err = h.repos.FetchRepositoriesWithOwner(ctx, p.Owner)
	} else {
		data.Repositories, err = h.repos.FetchRepositories(ctx)
	}
	if err != nil {
		logger.Error().Err(err).Str("owner", p.Owner).Msg("[View] repositories fetch failed")
	}
	c.HTML(http.StatusOK, "repositories.html", data)
}

// GET /repositories/repositoryDetails
func (h *ViewHandler) RepositoryDetails(c *gin.Context) {
	p, scope := h.page(c, c.Query("repository"))
	ctx := c.Request.Context()
	data := views.RepositoryDetailsPage{Page: p}

	if loc := orEmpty(h.reports.LinesOfCode.FetchLatestSummary(ctx, scope)); loc != nil {
		data.LinesOfCode = summary.LinesOfCode(loc.Counts())
		data.HasLinesOfCode = true
	}
	if cov := orEmpty(h.reports.CodeCoverage.FetchLatestSummary(ctx, scope)); cov != nil {
		data.Coverage = summary.Coverage(cov.LineCoverage, cov.FileRatios(), h.thresholds)
		data.HasCoverage = true
	}
	if ut := orEmpty(h.reports.UnitTests.FetchLatestSummary(ctx, scope)); ut != nil {
		data.UnitTests = summary.UnitTests(ut.Summary)
		data.HasUnitTests = true
	}
	if ic := orEmpty(h.reports.ImageCaptures.FetchLatestSummary(ctx, scope)); ic != nil {
		data.ImageCaptures = len(ic.Files)
		data.HasImageCaptures = true
	}
	if diff := orEmpty(h.reports.ImageCaptureDiffs.FetchLatestSummary(ctx, scope)); diff != nil {
		data.ImageDiff = diff.Counts()
		data.HasImageDiff = true
	}
	c.HTML(http.StatusOK, "repositoryDetails.html", data)
}

// GET /repositories/linesOfCodeDetails
func (h *ViewHandler) LinesOfCodeDetails(c *gin.Context) {
	p, scope := h.page(c, "Lines of code")
	data := views.LinesOfCodeDetailsPage{Page: p}

	if loc := orEmpty(h.reports.LinesOfCode.FetchLatestSummary(c.Request.Context(), scope)); loc != nil {
		data.Summary = summary.LinesOfCode(loc.Counts())
		data.CreatedAt = &loc.CreatedAt
	}
	c.HTML(http.StatusOK, "linesOfCodeDetails.html", data)
}

// GET /repositories/codeCoverageDetails
func (h *ViewHandler) CodeCoverageDetails(c *gin.Context) {
	p, scope := h.page(c, "Code coverage")
	ctx := c.Request.Context()
	data := views.CodeCoverageDetailsPage{Page: p}

	cov := orEmpty(h.reports.CodeCoverage.FetchLatestSummary(ctx, scope))
	if cov != nil {
		data.Summary = summary.Coverage(cov.LineCoverage, cov.FileRatios(), h.thresholds)
		data.Files = cov.Files
		data.CreatedAt = &cov.CreatedAt

		targets, err := h.reports.CodeCoverage.FetchTargets(ctx, cov.ID)
		if err != nil {
			logger.Error().Err(err).Str("report_id", cov.ID).Msg("[View] coverage targets fetch failed")
		}
		data.Targets = targets

		history, err := h.reports.CodeCoverage.FetchHistory(ctx, scope, defaultHistoryLimit)
		if err != nil {
			logger.Error().Err(err).Str("scope", scope.String()).Msg("[View] coverage history fetch failed")
		}
		data.History = history
	}
	c.HTML(http.StatusOK, "codeCoverageDetails.html", data)
}

// GET /repositories/unitTestDetails
func (h *ViewHandler) UnitTestDetails(c *gin.Context) {
	p, scope := h.page(c, "Unit tests")
	ctx := c.Request.Context()
	data := views.UnitTestDetailsPage{Page: p}

	if ut := orEmpty(h.reports.UnitTests.FetchLatestSummary(ctx, scope)); ut != nil {
		data.Summary = summary.UnitTests(ut.Summary)
		data.CreatedAt = &ut.CreatedAt

		cases, err := h.reports.UnitTests.FetchTestExecutionDetails(ctx, ut.ID)
		if err != nil {
			logger.Error().Err(err).Str("report_id", ut.ID).Msg("[View] test cases fetch failed")
		}
		data.Cases = cases
	}
	c.HTML(http.StatusOK, "unitTestDetails.html", data)
}

// GET /repositories/imageCaptureDetails
func (h *ViewHandler) ImageCaptureDetails(c *gin.Context) {
	p, scope := h.page(c, "Screenshots")
	data := views.ImageCaptureDetailsPage{Page: p}

	if ic := orEmpty(h.reports.ImageCaptures.FetchLatestSummary(c.Request.Context(), scope)); ic != nil {
		data.Files = ic.Files
		data.CreatedAt = &ic.CreatedAt
	}
	c.HTML(http.StatusOK, "imageCaptureDetails.html", data)
}

// GET /repositories/imageCaptureDiffDetails
func (h *ViewHandler) ImageCaptureDiffDetails(c *gin.Context) {
	p, scope := h.page(c, "Screenshot diff")
	data := views.ImageCaptureDiffDetailsPage{Page: p}

	if diff := orEmpty(h.reports.ImageCaptureDiffs.FetchLatestSummary(c.Request.Context(), scope)); diff != nil {
		data.Counts = diff.Counts()
		data.Entries = diff.Entries
		data.CreatedAt = &diff.CreatedAt
	}
	c.HTML(http.StatusOK, "imageCaptureDiffDetails.html", data)
}

// GET /repositories/changeBranch
func (h *ViewHandler) ChangeBranch(c *gin.Context) {
	p, _ := h.page(c, "Change branch")
	data := views.ChangeBranchPage{Page: p, DefaultBranch: p.Branch}

	if p.Repository != "" {
		branches, err := h.repos.FetchBranches(c.Request.Context(), p.Owner, p.Repository, p.Branch)
		if err != nil {
			logger.Error().Err(err).Str("owner", p.Owner).Str("repository", p.Repository).Msg("[View] branches fetch failed")
		}
		data.Branches = branches
	}
	c.HTML(http.StatusOK, "changeBranch.html", data)
}
