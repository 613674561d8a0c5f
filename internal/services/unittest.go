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

type TestClassInput struct {
	Name  string
	Cases []TestCaseInput
}

type TestCaseInput struct {
	Name   string
	Status string
}

// ParseUnitTests reads {"testClasses":[{"id", "testCases":[{"id","status"}]}]}.
func ParseUnitTests(raw []byte) ([]TestClassInput, error) {
	if !gjson.ValidBytes(raw) {
		return nil, ErrInvalidReport
	}
	var classes []TestClassInput
	for _, c := range gjson.GetBytes(raw, "testClasses").Array() {
		class := TestClassInput{Name: c.Get("id").String()}
		for _, tc := range c.Get("testCases").Array() {
			class.Cases = append(class.Cases, TestCaseInput{
				Name:   tc.Get("id").String(),
				Status: tc.Get("status").String(),
			})
		}
		classes = append(classes, class)
	}
	return classes, nil
}

type UnitTestService struct {
	db    *gorm.DB
	clock clock
}

func NewUnitTestService(db *gorm.DB) *UnitTestService {
	return &UnitTestService{db: db}
}

func (s *UnitTestService) SetClock(now func() time.Time) { s.clock = now }

// UnitTestReport carries the per-status counts of the newest report.
type UnitTestReport struct {
	models.UnitTest
	Summary []summary.StatusCount `json:"summary"`
}

func (s *UnitTestService) Store(ctx context.Context, scope Scope, classes []TestClassInput, raw []byte) (string, error) {
	report := models.UnitTest{
		ID:         newReportID(),
		Owner:      scope.Owner,
		Repository: scope.Repository,
		Branch:     scope.Branch,
		CreatedAt:  s.clock.now(),
		RawPayload: string(raw),
	}

	var classRows []models.UnitTestClass
	var caseRows []models.UnitTestCase
	for _, c := range classes {
		classRows = append(classRows, models.UnitTestClass{ReportID: report.ID, Class: c.Name})
		for _, tc := range c.Cases {
			caseRows = append(caseRows, models.UnitTestCase{
				ReportID: report.ID,
				Class:    c.Name,
				Case:     tc.Name,
				Status:   tc.Status,
			})
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&report).Error; err != nil {
			return err
		}
		if err := insertRows(tx, classRows); err != nil {
			return err
		}
		return insertRows(tx, caseRows)
	})
	if err != nil {
		return "", fmt.Errorf("store unit tests for %s: %w", scope, err)
	}
	return report.ID, nil
}

func (s *UnitTestService) FetchLatestSummary(ctx context.Context, scope Scope) (*UnitTestReport, error) {
	var report UnitTestReport
	found, err := latestReport(ctx, s.db, scope, &report.UnitTest)
	if err != nil || !found {
		return nil, err
	}
	err = s.db.WithContext(ctx).Model(&models.UnitTestCase{}).
		Select("status, COUNT(*) AS count").
		Where("report_id = ?", report.ID).
		Group("status").
		Order("status").
		Scan(&report.Summary).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *UnitTestService) FetchLatestRaw(ctx context.Context, scope Scope) ([]byte, error) {
	return latestRaw(ctx, s.db, scope, &models.UnitTest{})
}

// FetchTestExecutionDetails lists every test case of a report ordered by
// class, then case name.
func (s *UnitTestService) FetchTestExecutionDetails(ctx context.Context, reportID string) ([]models.UnitTestCase, error) {
	var cases []models.UnitTestCase
	err := s.db.WithContext(ctx).
		Where("report_id = ?", reportID).
		Order("unit_test_class").
		Order("unit_test_case").
		Find(&cases).Error
	return cases, err
}
