package services

import (
	"context"
	"fmt"
	"time"

	"github.com/stockyard-ci/stockyard/internal/models"
	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

type ImageCaptureInput struct {
	Title    string
	URL      string
	FileName string
}

// ParseImageCaptures reads {"imageCaptures":[{"title","url","fileName"}]} or a
// bare array of captures.
func ParseImageCaptures(raw []byte) ([]ImageCaptureInput, error) {
	if !gjson.ValidBytes(raw) {
		return nil, ErrInvalidReport
	}
	doc := gjson.ParseBytes(raw)
	list := doc.Get("imageCaptures")
	if doc.IsArray() {
		list = doc
	}

	var out []ImageCaptureInput
	for _, v := range list.Array() {
		out = append(out, ImageCaptureInput{
			Title:    v.Get("title").String(),
			URL:      v.Get("url").String(),
			FileName: v.Get("fileName").String(),
		})
	}
	return out, nil
}

type ImageCaptureService struct {
	db    *gorm.DB
	clock clock
}

func NewImageCaptureService(db *gorm.DB) *ImageCaptureService {
	return &ImageCaptureService{db: db}
}

func (s *ImageCaptureService) SetClock(now func() time.Time) { s.clock = now }

type ImageCaptureReport struct {
	models.ImageCapture
	Files []models.ImageCaptureFile `json:"files"`
}

func (s *ImageCaptureService) Store(ctx context.Context, scope Scope, captures []ImageCaptureInput, raw []byte) (string, error) {
	report := models.ImageCapture{
		ID:         newReportID(),
		Owner:      scope.Owner,
		Repository: scope.Repository,
		Branch:     scope.Branch,
		CreatedAt:  s.clock.now(),
		RawPayload: string(raw),
	}

	rows := make([]models.ImageCaptureFile, 0, len(captures))
	for _, c := range captures {
		rows = append(rows, models.ImageCaptureFile{
			ReportID: report.ID,
			Title:    c.Title,
			URL:      c.URL,
			FileName: c.FileName,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&report).Error; err != nil {
			return err
		}
		return insertRows(tx, rows)
	})
	if err != nil {
		return "", fmt.Errorf("store image captures for %s: %w", scope, err)
	}
	return report.ID, nil
}

func (s *ImageCaptureService) FetchLatestSummary(ctx context.Context, scope Scope) (*ImageCaptureReport, error) {
	var report ImageCaptureReport
	found, err := latestReport(ctx, s.db, scope, &report.ImageCapture)
	if err != nil || !found {
		return nil, err
	}
	if err := s.db.WithContext(ctx).
		Where("report_id = ?", report.ID).
		Order("title").
		Find(&report.Files).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *ImageCaptureService) FetchLatestRaw(ctx context.Context, scope Scope) ([]byte, error) {
	return latestRaw(ctx, s.db, scope, &models.ImageCapture{})
}
