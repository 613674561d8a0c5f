package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stockyard-ci/stockyard/internal/testutil"
)

func newTestRepositories(t *testing.T) *RepositoryService {
	t.Helper()
	s := NewRepositoryService(testutil.OpenDB(t))
	s.SetClock(steppingClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)))
	return s
}

func TestStoreRepository_KeepsFirstDefaultBranch(t *testing.T) {
	ctx := context.Background()
	s := newTestRepositories(t)

	if err := s.StoreRepository(ctx, "acme", "app", "develop"); err != nil {
		t.Fatalf("StoreRepository() error = %v", err)
	}
	if err := s.StoreRepository(ctx, "acme", "app", "main"); err != nil {
		t.Fatalf("second StoreRepository() error = %v", err)
	}

	repo, err := s.FetchRepository(ctx, "acme", "app")
	if err != nil || repo == nil {
		t.Fatalf("FetchRepository() = %v, %v", repo, err)
	}
	if repo.DefaultBranch == nil || *repo.DefaultBranch != "develop" {
		t.Errorf("DefaultBranch = %v, want develop", repo.DefaultBranch)
	}

	repos, err := s.FetchRepositories(ctx)
	if err != nil || len(repos) != 1 {
		t.Errorf("FetchRepositories() = %d rows, %v", len(repos), err)
	}
}

func TestFetchRepository_Missing(t *testing.T) {
	s := newTestRepositories(t)
	repo, err := s.FetchRepository(context.Background(), "nobody", "nothing")
	if repo != nil || err != nil {
		t.Errorf("FetchRepository() = %v, %v; want nil, nil", repo, err)
	}
}

func TestOwnersAndRepositories(t *testing.T) {
	ctx := context.Background()
	s := newTestRepositories(t)

	for _, r := range [][2]string{{"zeta", "api"}, {"acme", "web"}, {"acme", "app"}} {
		if err := s.StoreRepository(ctx, r[0], r[1], ""); err != nil {
			t.Fatal(err)
		}
	}

	owners, err := s.FetchOwners(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(owners) != 2 || owners[0] != "acme" || owners[1] != "zeta" {
		t.Errorf("owners = %v", owners)
	}

	repos, err := s.FetchRepositoriesWithOwner(ctx, "acme")
	if err != nil {
		t.Fatal(err)
	}
	if len(repos) != 2 || repos[0].Name != "app" || repos[1].Name != "web" {
		t.Errorf("repos = %+v", repos)
	}
}

func TestFetchBranches_ExcludesAndOrdersByActivity(t *testing.T) {
	ctx := context.Background()
	s := newTestRepositories(t)

	for _, b := range []struct{ branch, pr string }{
		{"main", ""},
		{"feature-a", "12"},
		{"feature-b", ""},
	} {
		if err := s.RecordUpload(ctx, Scope{"acme", "app", b.branch}, b.pr, ""); err != nil {
			t.Fatalf("RecordUpload(%s) error = %v", b.branch, err)
		}
	}

	branches, err := s.FetchBranches(ctx, "acme", "app", "main")
	if err != nil {
		t.Fatal(err)
	}
	if len(branches) != 2 {
		t.Fatalf("branches = %+v", branches)
	}
	if branches[0].Name != "feature-b" || branches[1].Name != "feature-a" {
		t.Errorf("order = %s, %s; want most recent first", branches[0].Name, branches[1].Name)
	}
	if branches[1].PullRequest == nil || *branches[1].PullRequest != "12" {
		t.Errorf("PullRequest = %v, want 12", branches[1].PullRequest)
	}
	if branches[0].LatestActivity == nil {
		t.Error("LatestActivity not set")
	}
}

func TestUpdateBranchActivity_UnknownBranch(t *testing.T) {
	s := newTestRepositories(t)
	if err := s.UpdateBranchActivity(context.Background(), "acme", "app", "ghost"); err != nil {
		t.Errorf("UpdateBranchActivity() error = %v", err)
	}
}

func TestUpdateDefaultBranch(t *testing.T) {
	ctx := context.Background()
	s := newTestRepositories(t)

	if err := s.UpdateDefaultBranch(ctx, "acme", "app", "main"); !errors.Is(err, ErrRepositoryNotFound) {
		t.Errorf("UpdateDefaultBranch(missing) error = %v", err)
	}

	if err := s.StoreRepository(ctx, "acme", "app", "develop"); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateDefaultBranch(ctx, "acme", "app", "release"); err != nil {
		t.Fatalf("UpdateDefaultBranch() error = %v", err)
	}
	if got := s.ResolveBranch(ctx, "acme", "app", "", "main"); got != "release" {
		t.Errorf("ResolveBranch() = %q, want release", got)
	}
}

func TestResolveBranch(t *testing.T) {
	ctx := context.Background()
	s := newTestRepositories(t)
	if err := s.StoreRepository(ctx, "acme", "nodefault", ""); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		repo      string
		requested string
		want      string
	}{
		{"requested wins", "nodefault", "topic", "topic"},
		{"no default branch", "nodefault", "", "main"},
		{"unknown repository", "missing", "", "main"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.ResolveBranch(ctx, "acme", tt.repo, tt.requested, "main"); got != tt.want {
				t.Errorf("ResolveBranch() = %q, want %q", got, tt.want)
			}
		})
	}
}
