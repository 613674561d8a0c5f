package handlers

import (
	"context"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/stockyard-ci/stockyard/internal/cache"
	"github.com/stockyard-ci/stockyard/internal/services"
	"github.com/stockyard-ci/stockyard/pkg/logger"
)

// orEmpty logs a failed read and degrades it to "no data".
func orEmpty[T any](v *T, err error) *T {
	if err != nil {
		logger.Error().Err(err).Msgf("[Read] fetch %T failed", v)
		return nil
	}
	return v
}

func bindScope(c *gin.Context) services.Scope {
	var scope services.Scope
	_ = c.ShouldBindQuery(&scope)
	return scope
}

// OwnerDirectory serves the known owners. The cache set is authoritative;
// when it is empty the registry is read and the set is refilled.
type OwnerDirectory struct {
	store cache.Store
	repos *services.RepositoryService
}

func NewOwnerDirectory(store cache.Store, repos *services.RepositoryService) *OwnerDirectory {
	return &OwnerDirectory{store: store, repos: repos}
}

func (d *OwnerDirectory) List(ctx context.Context) []string {
	owners, err := d.store.Members(ctx, cache.OwnersKey)
	if err != nil {
		logger.Warn().Err(err).Msg("[Owners] cache read failed")
	}
	if len(owners) == 0 {
		owners, err = d.repos.FetchOwners(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("[Owners] registry read failed")
			return []string{}
		}
		if len(owners) > 0 {
			if err := d.store.Add(ctx, cache.OwnersKey, owners...); err != nil {
				logger.Warn().Err(err).Msg("[Owners] cache refill failed")
			}
		}
	}
	if owners == nil {
		owners = []string{}
	}
	sort.Strings(owners)
	return owners
}

func (d *OwnerDirectory) Add(ctx context.Context, owner string) error {
	return d.store.Add(ctx, cache.OwnersKey, owner)
}

func (d *OwnerDirectory) Remove(ctx context.Context, owner string) error {
	return d.store.Remove(ctx, cache.OwnersKey, owner)
}
