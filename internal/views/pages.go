package views

import (
	"time"

	"github.com/stockyard-ci/stockyard/internal/models"
	"github.com/stockyard-ci/stockyard/internal/services"
	"github.com/stockyard-ci/stockyard/internal/summary"
)

// Page is embedded in every page model. Owners feeds the navigation menu.
type Page struct {
	Title      string
	Owners     []string
	IsAdmin    bool
	Owner      string
	Repository string
	Branch     string
}

type IndexPage struct {
	Page
}

type RepositoriesPage struct {
	Page
	Repositories []models.Repository
}

// RepositoryDetailsPage summarizes the latest report of each type. The Has*
// flags are false when a type was never uploaded and its summary is zeroed.
type RepositoryDetailsPage struct {
	Page
	LinesOfCode      summary.LinesOfCodeSummary
	HasLinesOfCode   bool
	Coverage         summary.CoverageSummary
	HasCoverage      bool
	UnitTests        summary.UnitTestSummary
	HasUnitTests     bool
	ImageDiff        summary.ImageDiffCounts
	HasImageDiff     bool
	ImageCaptures    int
	HasImageCaptures bool
}

type LinesOfCodeDetailsPage struct {
	Page
	Summary   summary.LinesOfCodeSummary
	CreatedAt *time.Time
}

type CodeCoverageDetailsPage struct {
	Page
	Summary   summary.CoverageSummary
	Targets   []models.CodeCoverageTarget
	Files     []models.CodeCoverageFile
	History   []services.CoveragePoint
	CreatedAt *time.Time
}

type UnitTestDetailsPage struct {
	Page
	Summary   summary.UnitTestSummary
	Cases     []models.UnitTestCase
	CreatedAt *time.Time
}

type ImageCaptureDetailsPage struct {
	Page
	Files     []models.ImageCaptureFile
	CreatedAt *time.Time
}

type ImageCaptureDiffDetailsPage struct {
	Page
	Counts    summary.ImageDiffCounts
	Entries   services.ImageDiffEntries
	CreatedAt *time.Time
}

type ChangeBranchPage struct {
	Page
	DefaultBranch string
	Branches      []models.Branch
}
