package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInvalidReport is returned when an uploaded body is not valid JSON.
var ErrInvalidReport = errors.New("invalid report body")

const insertBatchSize = 500

// Scope is the (owner, repository, branch) triple every report belongs to.
type Scope struct {
	Owner      string `form:"owner" json:"owner"`
	Repository string `form:"repository" json:"repository"`
	Branch     string `form:"branch" json:"branch"`
}

func (s Scope) Complete() bool {
	return strings.TrimSpace(s.Owner) != "" &&
		strings.TrimSpace(s.Repository) != "" &&
		strings.TrimSpace(s.Branch) != ""
}

func (s Scope) String() string {
	return s.Owner + "/" + s.Repository + "@" + s.Branch
}

// newReportID returns a time-ordered identifier so ties on created_at still
// sort by upload order.
func newReportID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func scoped(db *gorm.DB, s Scope) *gorm.DB {
	return db.Where("owner = ? AND repository = ? AND branch = ?", s.Owner, s.Repository, s.Branch)
}

// latestReport loads the newest parent row for the scope into dest and
// reports whether one exists.
func latestReport(ctx context.Context, db *gorm.DB, s Scope, dest interface{}) (bool, error) {
	err := scoped(db.WithContext(ctx), s).
		Order("created_at DESC").
		Order("id DESC").
		Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// latestRaw returns the raw payload column of the newest report, or nil.
func latestRaw(ctx context.Context, db *gorm.DB, s Scope, model interface{}) ([]byte, error) {
	var raws []string
	err := scoped(db.WithContext(ctx).Model(model), s).
		Order("created_at DESC").
		Order("id DESC").
		Limit(1).
		Pluck("raw_payload", &raws).Error
	if err != nil {
		return nil, err
	}
	if len(raws) == 0 {
		return nil, nil
	}
	return []byte(raws[0]), nil
}

// insertRows writes child rows in batches. A row whose key repeats within the
// same upload is dropped so the first occurrence wins.
func insertRows[T any](tx *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&rows, insertBatchSize).Error
}

type clock func() time.Time

func (c clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c()
}

// Reports bundles the registry and every report accessor over one database.
type Reports struct {
	Repositories      *RepositoryService
	LinesOfCode       *LinesOfCodeService
	CodeCoverage      *CodeCoverageService
	UnitTests         *UnitTestService
	ImageCaptures     *ImageCaptureService
	ImageCaptureDiffs *ImageCaptureDiffService
}

func NewReports(db *gorm.DB) *Reports {
	return &Reports{
		Repositories:      NewRepositoryService(db),
		LinesOfCode:       NewLinesOfCodeService(db),
		CodeCoverage:      NewCodeCoverageService(db),
		UnitTests:         NewUnitTestService(db),
		ImageCaptures:     NewImageCaptureService(db),
		ImageCaptureDiffs: NewImageCaptureDiffService(db),
	}
}

// SetClock overrides the time source of every accessor.
func (r *Reports) SetClock(now func() time.Time) {
	r.Repositories.SetClock(now)
	r.LinesOfCode.SetClock(now)
	r.CodeCoverage.SetClock(now)
	r.UnitTests.SetClock(now)
	r.ImageCaptures.SetClock(now)
	r.ImageCaptureDiffs.SetClock(now)
}
