package services

import (
	"context"
	"fmt"
	"time"

	"github.com/stockyard-ci/stockyard/internal/models"
	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

type CoverageInput struct {
	LineCoverage    float64
	ExecutableLines int
	CoveredLines    int
	Targets         []TargetInput
}

type TargetInput struct {
	Name            string
	LineCoverage    float64
	ExecutableLines int
	CoveredLines    int
	Files           []FileCoverageInput
}

type FileCoverageInput struct {
	Path            string
	Name            string
	LineCoverage    float64
	ExecutableLines int
	CoveredLines    int
}

// ParseCodeCoverage reads {"codeCoverage": {...}}; a document without the
// wrapper is read as the coverage object itself.
func ParseCodeCoverage(raw []byte) (*CoverageInput, error) {
	if !gjson.ValidBytes(raw) {
		return nil, ErrInvalidReport
	}
	root := gjson.GetBytes(raw, "codeCoverage")
	if !root.Exists() {
		root = gjson.ParseBytes(raw)
	}

	in := &CoverageInput{
		LineCoverage:    root.Get("lineCoverage").Float(),
		ExecutableLines: int(root.Get("executableLines").Int()),
		CoveredLines:    int(root.Get("coveredLines").Int()),
	}
	for _, t := range root.Get("targets").Array() {
		target := TargetInput{
			Name:            t.Get("name").String(),
			LineCoverage:    t.Get("lineCoverage").Float(),
			ExecutableLines: int(t.Get("executableLines").Int()),
			CoveredLines:    int(t.Get("coveredLines").Int()),
		}
		for _, f := range t.Get("files").Array() {
			target.Files = append(target.Files, FileCoverageInput{
				Path:            f.Get("path").String(),
				Name:            f.Get("name").String(),
				LineCoverage:    f.Get("lineCoverage").Float(),
				ExecutableLines: int(f.Get("executableLines").Int()),
				CoveredLines:    int(f.Get("coveredLines").Int()),
			})
		}
		in.Targets = append(in.Targets, target)
	}
	return in, nil
}

type CodeCoverageService struct {
	db    *gorm.DB
	clock clock
}

func NewCodeCoverageService(db *gorm.DB) *CodeCoverageService {
	return &CodeCoverageService{db: db}
}

func (s *CodeCoverageService) SetClock(now func() time.Time) { s.clock = now }

// CodeCoverageReport is the newest report with every file row, which is what
// the file buckets are computed from.
type CodeCoverageReport struct {
	models.CodeCoverage
	Files []models.CodeCoverageFile `json:"files"`
}

func (r *CodeCoverageReport) FileRatios() []float64 {
	out := make([]float64, len(r.Files))
	for i, f := range r.Files {
		out[i] = f.LineCoverage
	}
	return out
}

// CoveragePoint is one entry of a branch's coverage history.
type CoveragePoint struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	LineCoverage float64   `json:"line_coverage"`
}

func (s *CodeCoverageService) Store(ctx context.Context, scope Scope, in *CoverageInput, raw []byte) (string, error) {
	report := models.CodeCoverage{
		ID:              newReportID(),
		Owner:           scope.Owner,
		Repository:      scope.Repository,
		Branch:          scope.Branch,
		CreatedAt:       s.clock.now(),
		RawPayload:      string(raw),
		LineCoverage:    in.LineCoverage,
		ExecutableLines: in.ExecutableLines,
		CoveredLines:    in.CoveredLines,
	}

	var targets []models.CodeCoverageTarget
	var files []models.CodeCoverageFile
	for _, t := range in.Targets {
		targets = append(targets, models.CodeCoverageTarget{
			ReportID:        report.ID,
			Target:          t.Name,
			LineCoverage:    t.LineCoverage,
			ExecutableLines: t.ExecutableLines,
			CoveredLines:    t.CoveredLines,
		})
		for _, f := range t.Files {
			files = append(files, models.CodeCoverageFile{
				ReportID:        report.ID,
				Target:          t.Name,
				FilePath:        f.Path,
				FileName:        f.Name,
				LineCoverage:    f.LineCoverage,
				ExecutableLines: f.ExecutableLines,
				CoveredLines:    f.CoveredLines,
			})
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&report).Error; err != nil {
			return err
		}
		if err := insertRows(tx, targets); err != nil {
			return err
		}
		return insertRows(tx, files)
	})
	if err != nil {
		return "", fmt.Errorf("store code coverage for %s: %w", scope, err)
	}
	return report.ID, nil
}

func (s *CodeCoverageService) FetchLatestSummary(ctx context.Context, scope Scope) (*CodeCoverageReport, error) {
	var report CodeCoverageReport
	found, err := latestReport(ctx, s.db, scope, &report.CodeCoverage)
	if err != nil || !found {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Where("report_id = ?", report.ID).Find(&report.Files).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *CodeCoverageService) FetchLatestRaw(ctx context.Context, scope Scope) ([]byte, error) {
	return latestRaw(ctx, s.db, scope, &models.CodeCoverage{})
}

// FetchCodeCoverageFiles lists every file of a report ordered by target, then
// file name.
func (s *CodeCoverageService) FetchCodeCoverageFiles(ctx context.Context, reportID string) ([]models.CodeCoverageFile, error) {
	var files []models.CodeCoverageFile
	err := s.db.WithContext(ctx).
		Where("report_id = ?", reportID).
		Order("target").
		Order("file_name").
		Order("file_path").
		Find(&files).Error
	return files, err
}

func (s *CodeCoverageService) FetchTargets(ctx context.Context, reportID string) ([]models.CodeCoverageTarget, error) {
	var targets []models.CodeCoverageTarget
	err := s.db.WithContext(ctx).Where("report_id = ?", reportID).Order("target").Find(&targets).Error
	return targets, err
}

// FetchHistory returns up to limit coverage ratios, newest first.
func (s *CodeCoverageService) FetchHistory(ctx context.Context, scope Scope, limit int) ([]CoveragePoint, error) {
	var points []CoveragePoint
	err := scoped(s.db.WithContext(ctx).Model(&models.CodeCoverage{}), scope).
		Select("id, created_at, line_coverage").
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Scan(&points).Error
	return points, err
}
