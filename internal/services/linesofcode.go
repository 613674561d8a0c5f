package services

import (
	"context"
	"fmt"
	"time"

	"github.com/stockyard-ci/stockyard/internal/models"
	"github.com/stockyard-ci/stockyard/internal/summary"
	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

type LanguageInput struct {
	Language      string
	NumberOfFiles int
	BlankLines    int
	CommentLines  int
	CodeLines     int
}

// ParseLinesOfCode accepts {"languages":[...]}, a bare array of language
// objects, or the native `cloc --json` document.
func ParseLinesOfCode(raw []byte) ([]LanguageInput, error) {
	if !gjson.ValidBytes(raw) {
		return nil, ErrInvalidReport
	}
	doc := gjson.ParseBytes(raw)

	list := doc.Get("languages")
	if doc.IsArray() {
		list = doc
	}
	if list.IsArray() {
		var out []LanguageInput
		list.ForEach(func(_, v gjson.Result) bool {
			out = append(out, LanguageInput{
				Language:      v.Get("language").String(),
				NumberOfFiles: int(v.Get("numberOfFiles").Int()),
				BlankLines:    int(v.Get("blankLines").Int()),
				CommentLines:  int(v.Get("commentLines").Int()),
				CodeLines:     int(v.Get("codeLines").Int()),
			})
			return true
		})
		return out, nil
	}

	// cloc: {"header": {...}, "Go": {"nFiles": 1, "blank": 2, "comment": 3, "code": 4}, "SUM": {...}}
	var out []LanguageInput
	doc.ForEach(func(k, v gjson.Result) bool {
		name := k.String()
		if name == "header" || name == "SUM" || !v.IsObject() {
			return true
		}
		out = append(out, LanguageInput{
			Language:      name,
			NumberOfFiles: int(v.Get("nFiles").Int()),
			BlankLines:    int(v.Get("blank").Int()),
			CommentLines:  int(v.Get("comment").Int()),
			CodeLines:     int(v.Get("code").Int()),
		})
		return true
	})
	return out, nil
}

type LinesOfCodeService struct {
	db    *gorm.DB
	clock clock
}

func NewLinesOfCodeService(db *gorm.DB) *LinesOfCodeService {
	return &LinesOfCodeService{db: db}
}

func (s *LinesOfCodeService) SetClock(now func() time.Time) { s.clock = now }

// LinesOfCodeReport is a stored report with its per-language rows.
type LinesOfCodeReport struct {
	models.LinesOfCode
	Languages []models.LinesOfCodeLanguage `json:"languages"`
}

// Counts converts the stored rows for aggregation.
func (r *LinesOfCodeReport) Counts() []summary.LanguageCount {
	out := make([]summary.LanguageCount, 0, len(r.Languages))
	for _, l := range r.Languages {
		out = append(out, summary.LanguageCount{
			Language:     l.Language,
			Files:        l.NumberOfFiles,
			BlankLines:   l.BlankLines,
			CommentLines: l.CommentLines,
			CodeLines:    l.CodeLines,
		})
	}
	return out
}

// Store writes the report and its language rows in one transaction and
// returns the new report ID.
func (s *LinesOfCodeService) Store(ctx context.Context, scope Scope, languages []LanguageInput, raw []byte) (string, error) {
	report := models.LinesOfCode{
		ID:         newReportID(),
		Owner:      scope.Owner,
		Repository: scope.Repository,
		Branch:     scope.Branch,
		CreatedAt:  s.clock.now(),
		RawPayload: string(raw),
	}

	rows := make([]models.LinesOfCodeLanguage, 0, len(languages))
	for _, l := range languages {
		rows = append(rows, models.LinesOfCodeLanguage{
			ReportID:      report.ID,
			Language:      l.Language,
			NumberOfFiles: l.NumberOfFiles,
			BlankLines:    l.BlankLines,
			CommentLines:  l.CommentLines,
			CodeLines:     l.CodeLines,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&report).Error; err != nil {
			return err
		}
		return insertRows(tx, rows)
	})
	if err != nil {
		return "", fmt.Errorf("store lines of code for %s: %w", scope, err)
	}
	return report.ID, nil
}

// FetchLatestSummary returns nil when the scope has no report.
func (s *LinesOfCodeService) FetchLatestSummary(ctx context.Context, scope Scope) (*LinesOfCodeReport, error) {
	var report LinesOfCodeReport
	found, err := latestReport(ctx, s.db, scope, &report.LinesOfCode)
	if err != nil || !found {
		return nil, err
	}
	if err := s.db.WithContext(ctx).
		Where("report_id = ?", report.ID).
		Order("code_lines DESC").
		Find(&report.Languages).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *LinesOfCodeService) FetchLatestRaw(ctx context.Context, scope Scope) ([]byte, error) {
	return latestRaw(ctx, s.db, scope, &models.LinesOfCode{})
}
