package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stockyard-ci/stockyard/internal/config"
	"github.com/stockyard-ci/stockyard/internal/models"
	"github.com/stockyard-ci/stockyard/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	retentionLockName  = "report_retention"
	retentionBatchSize = 200
)

type reportTable struct {
	name     string
	children []string
}

// reportTables lists every parent table with the child tables keyed by its
// report ID.
var reportTables = []reportTable{
	{models.LinesOfCode{}.TableName(), []string{models.LinesOfCodeLanguage{}.TableName()}},
	{models.CodeCoverage{}.TableName(), []string{models.CodeCoverageTarget{}.TableName(), models.CodeCoverageFile{}.TableName()}},
	{models.UnitTest{}.TableName(), []string{models.UnitTestClass{}.TableName(), models.UnitTestCase{}.TableName()}},
	{models.ImageCapture{}.TableName(), []string{models.ImageCaptureFile{}.TableName()}},
	{models.ImageCaptureDiff{}.TableName(), nil},
}

// RetentionService deletes old reports on a schedule. The newest report of
// each (owner, repository, branch) is never deleted, however old it is.
type RetentionService struct {
	db       *gorm.DB
	cfg      config.RetentionConfig
	clock    clock
	hostname string

	mu   sync.Mutex
	cron *cron.Cron
}

func NewRetentionService(db *gorm.DB, cfg config.RetentionConfig) *RetentionService {
	host, _ := os.Hostname()
	return &RetentionService{db: db, cfg: cfg, hostname: host}
}

func (s *RetentionService) SetClock(now func() time.Time) { s.clock = now }

// RetentionResult counts deleted reports per parent table.
type RetentionResult struct {
	Cutoff  time.Time        `json:"cutoff"`
	Deleted map[string]int64 `json:"deleted"`
	Skipped bool             `json:"skipped,omitempty"`
}

func (s *RetentionService) Start() error {
	if !s.cfg.Enabled || s.cfg.Days <= 0 {
		logger.Infof("[Retention] Disabled")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if _, err := s.RunScheduled(ctx); err != nil {
			logger.Error().Err(err).Msg("[Retention] Sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", s.cfg.Schedule, err)
	}
	s.cron.Start()
	logger.Infof("[Retention] Scheduled (cron: %s, keep %d days)", s.cfg.Schedule, s.cfg.Days)
	return nil
}

func (s *RetentionService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.cron = nil
	}
}

// RunScheduled runs a sweep unless another replica already claimed today's.
func (s *RetentionService) RunScheduled(ctx context.Context) (*RetentionResult, error) {
	now := s.clock.now()
	acquired, err := s.acquireLock(ctx, now)
	if err != nil {
		return nil, err
	}
	if !acquired {
		logger.Infof("[Retention] Sweep for %s already claimed, skipping", now.Format("2006-01-02"))
		return &RetentionResult{Skipped: true}, nil
	}
	return s.Sweep(ctx)
}

// Sweep deletes every report older than the retention window that is not the
// newest of its branch. Each batch is deleted in its own transaction.
func (s *RetentionService) Sweep(ctx context.Context) (*RetentionResult, error) {
	days := s.cfg.Days
	if days <= 0 {
		return nil, errors.New("retention days must be positive")
	}
	cutoff := s.clock.now().AddDate(0, 0, -days)
	result := &RetentionResult{Cutoff: cutoff, Deleted: make(map[string]int64)}

	for _, table := range reportTables {
		deleted, err := s.sweepTable(ctx, table, cutoff)
		result.Deleted[table.name] = deleted
		if err != nil {
			return result, fmt.Errorf("sweep %s: %w", table.name, err)
		}
		if deleted > 0 {
			logger.Infof("[Retention] Deleted %d reports from %s", deleted, table.name)
		}
	}
	return result, nil
}

func (s *RetentionService) sweepTable(ctx context.Context, table reportTable, cutoff time.Time) (int64, error) {
	var total int64
	for {
		var ids []string
		err := s.db.WithContext(ctx).
			Table(table.name+" AS t").
			Where("t.created_at < ?", cutoff).
			Where("EXISTS (SELECT 1 FROM " + table.name + " n WHERE n.owner = t.owner AND n.repository = t.repository AND n.branch = t.branch AND n.created_at > t.created_at)").
			Limit(retentionBatchSize).
			Pluck("t.id", &ids).Error
		if err != nil {
			return total, err
		}
		if len(ids) == 0 {
			return total, nil
		}

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, child := range table.children {
				if err := tx.Exec("DELETE FROM "+child+" WHERE report_id IN ?", ids).Error; err != nil {
					return err
				}
			}
			return tx.Exec("DELETE FROM "+table.name+" WHERE id IN ?", ids).Error
		})
		if err != nil {
			return total, err
		}
		total += int64(len(ids))

		if len(ids) < retentionBatchSize {
			return total, nil
		}
	}
}

// acquireLock claims today's sweep. The unique (lock_name, lock_key) index
// makes the insert fail quietly for every replica but one.
func (s *RetentionService) acquireLock(ctx context.Context, now time.Time) (bool, error) {
	lock := models.SchedulerLock{
		LockName:  retentionLockName,
		LockKey:   now.Format("2006-01-02"),
		LockedBy:  s.hostname,
		LockedAt:  now,
		ExpiresAt: now.Add(24 * time.Hour),
	}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&lock)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	// expired locks are only kept for auditing a few days back
	s.db.WithContext(ctx).
		Where("lock_name = ? AND expires_at < ?", retentionLockName, now.AddDate(0, 0, -7)).
		Delete(&models.SchedulerLock{})
	return true, nil
}
