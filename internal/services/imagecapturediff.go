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

type ImageDiffEntry struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	PreviousURL string `json:"previous_url,omitempty"`
	FileName    string `json:"file_name"`
}

type ImageDiffEntries struct {
	New     []ImageDiffEntry `json:"new"`
	Changed []ImageDiffEntry `json:"changed"`
	Removed []ImageDiffEntry `json:"removed"`
}

// ParseImageDiffEntries reads the new/changed/removed sequences of a diff
// payload. Entries that are plain strings are taken as URLs.
func ParseImageDiffEntries(raw []byte) ImageDiffEntries {
	read := func(path string) []ImageDiffEntry {
		var out []ImageDiffEntry
		for _, v := range gjson.GetBytes(raw, path).Array() {
			if v.Type == gjson.String {
				out = append(out, ImageDiffEntry{URL: v.String()})
				continue
			}
			out = append(out, ImageDiffEntry{
				Title:       v.Get("title").String(),
				URL:         v.Get("url").String(),
				PreviousURL: v.Get("previousUrl").String(),
				FileName:    v.Get("fileName").String(),
			})
		}
		return out
	}
	return ImageDiffEntries{
		New:     read("new"),
		Changed: read("changed"),
		Removed: read("removed"),
	}
}

type ImageCaptureDiffService struct {
	db    *gorm.DB
	clock clock
}

func NewImageCaptureDiffService(db *gorm.DB) *ImageCaptureDiffService {
	return &ImageCaptureDiffService{db: db}
}

func (s *ImageCaptureDiffService) SetClock(now func() time.Time) { s.clock = now }

type ImageCaptureDiffReport struct {
	models.ImageCaptureDiff
	Entries ImageDiffEntries `json:"entries"`
}

func (r *ImageCaptureDiffReport) Counts() summary.ImageDiffCounts {
	return summary.ImageDiffCounts{
		New:     r.NewImagesCount,
		Changed: r.ChangedImagesCount,
		Removed: r.RemovedImagesCount,
	}
}

// Store keeps the payload verbatim with the lengths of its three sequences.
func (s *ImageCaptureDiffService) Store(ctx context.Context, scope Scope, raw []byte) (string, error) {
	if !gjson.ValidBytes(raw) {
		return "", ErrInvalidReport
	}
	counts := summary.ImageDiff(raw)
	report := models.ImageCaptureDiff{
		ID:                 newReportID(),
		Owner:              scope.Owner,
		Repository:         scope.Repository,
		Branch:             scope.Branch,
		CreatedAt:          s.clock.now(),
		RawPayload:         string(raw),
		NewImagesCount:     counts.New,
		ChangedImagesCount: counts.Changed,
		RemovedImagesCount: counts.Removed,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&report).Error
	})
	if err != nil {
		return "", fmt.Errorf("store image capture diff for %s: %w", scope, err)
	}
	return report.ID, nil
}

func (s *ImageCaptureDiffService) FetchLatestSummary(ctx context.Context, scope Scope) (*ImageCaptureDiffReport, error) {
	var report ImageCaptureDiffReport
	found, err := latestReport(ctx, s.db, scope, &report.ImageCaptureDiff)
	if err != nil || !found {
		return nil, err
	}
	report.Entries = ParseImageDiffEntries([]byte(report.RawPayload))
	return &report, nil
}

func (s *ImageCaptureDiffService) FetchLatestRaw(ctx context.Context, scope Scope) ([]byte, error) {
	return latestRaw(ctx, s.db, scope, &models.ImageCaptureDiff{})
}
