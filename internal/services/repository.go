package services

import (
	"context"
	"errors"
	"time"

	"github.com/stockyard-ci/stockyard/internal/models"
	"github.com/stockyard-ci/stockyard/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RepositoryService owns the repository and branch registry.
type RepositoryService struct {
	db    *gorm.DB
	clock clock
}

func NewRepositoryService(db *gorm.DB) *RepositoryService {
	return &RepositoryService{db: db}
}

// StoreRepository registers owner/repo. An existing row, including its
// default branch, is left untouched.
func (s *RepositoryService) StoreRepository(ctx context.Context, owner, repo, defaultBranch string) error {
	row := models.Repository{Owner: owner, Name: repo}
	if defaultBranch != "" {
		row.DefaultBranch = &defaultBranch
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

// StoreBranch registers a branch. An existing row is left untouched.
func (s *RepositoryService) StoreBranch(ctx context.Context, owner, repo, branch, pullRequest string) error {
	row := models.Branch{Owner: owner, Repository: repo, Name: branch}
	if pullRequest != "" {
		row.PullRequest = &pullRequest
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

// UpdateBranchActivity stamps the branch with the current time. Updating a
// branch that was never stored matches no rows and is not an error.
func (s *RepositoryService) UpdateBranchActivity(ctx context.Context, owner, repo, branch string) error {
	return s.db.WithContext(ctx).Model(&models.Branch{}).
		Where("owner = ? AND repository = ? AND branch = ?", owner, repo, branch).
		Update("latest_activity", s.clock.now()).Error
}

// RecordUpload performs the registry writes that precede every report upload.
func (s *RepositoryService) RecordUpload(ctx context.Context, scope Scope, pullRequest, defaultBranch string) error {
	if err := s.StoreRepository(ctx, scope.Owner, scope.Repository, defaultBranch); err != nil {
		return err
	}
	if err := s.StoreBranch(ctx, scope.Owner, scope.Repository, scope.Branch, pullRequest); err != nil {
		return err
	}
	return s.UpdateBranchActivity(ctx, scope.Owner, scope.Repository, scope.Branch)
}

// FetchRepository returns nil when owner/repo is not registered.
func (s *RepositoryService) FetchRepository(ctx context.Context, owner, repo string) (*models.Repository, error) {
	var row models.Repository
	err := s.db.WithContext(ctx).
		Where("owner = ? AND repository = ?", owner, repo).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *RepositoryService) FetchRepositories(ctx context.Context) ([]models.Repository, error) {
	var rows []models.Repository
	err := s.db.WithContext(ctx).Order("owner").Order("repository").Find(&rows).Error
	return rows, err
}

func (s *RepositoryService) FetchRepositoriesWithOwner(ctx context.Context, owner string) ([]models.Repository, error) {
	var rows []models.Repository
	err := s.db.WithContext(ctx).Where("owner = ?", owner).Order("repository").Find(&rows).Error
	return rows, err
}

func (s *RepositoryService) FetchOwners(ctx context.Context) ([]string, error) {
	var owners []string
	err := s.db.WithContext(ctx).Model(&models.Repository{}).
		Distinct("owner").
		Order("owner").
		Pluck("owner", &owners).Error
	return owners, err
}

// FetchBranches lists the branches of owner/repo except the excluded one,
// most recently active first.
func (s *RepositoryService) FetchBranches(ctx context.Context, owner, repo, excluding string) ([]models.Branch, error) {
	var rows []models.Branch
	err := s.db.WithContext(ctx).
		Where("owner = ? AND repository = ? AND branch <> ?", owner, repo, excluding).
		Order("latest_activity DESC").
		Order("branch").
		Find(&rows).Error
	return rows, err
}

// UpdateDefaultBranch is the only mutation of a registered repository.
func (s *RepositoryService) UpdateDefaultBranch(ctx context.Context, owner, repo, branch string) error {
	result := s.db.WithContext(ctx).Model(&models.Repository{}).
		Where("owner = ? AND repository = ?", owner, repo).
		Update("default_branch", branch)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRepositoryNotFound
	}
	return nil
}

var ErrRepositoryNotFound = errors.New("repository not found")

// ResolveBranch picks the branch a view should show: the requested one, else
// the repository's default branch, else fallback. Lookup errors fall back.
func (s *RepositoryService) ResolveBranch(ctx context.Context, owner, repo, requested, fallback string) string {
	if requested != "" {
		return requested
	}
	row, err := s.FetchRepository(ctx, owner, repo)
	if err != nil {
		logger.Warn().Err(err).Str("owner", owner).Str("repository", repo).Msg("[Repository] default branch lookup failed")
		return fallback
	}
	if row == nil || row.DefaultBranch == nil || *row.DefaultBranch == "" {
		return fallback
	}
	return *row.DefaultBranch
}

// SetClock overrides the time source, for tests.
func (s *RepositoryService) SetClock(now func() time.Time) {
	s.clock = now
}
