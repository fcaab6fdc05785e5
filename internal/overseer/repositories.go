package overseer

import (
	"context"
	"fmt"
	"sort"

	"github.com/wesm/issue-overseer/internal/models"
	"github.com/wesm/issue-overseer/internal/paginate"
)

// RepositoryLister lists the repositories of an organization one page at a time
type RepositoryLister interface {
	ListRepositoriesPage(ctx context.Context, org string, page int) ([]models.Repository, error)
}

// EnumerateRepositories returns the names of the non-archived repositories of
// org in lexicographic order. Pages are requested until one comes back empty.
func EnumerateRepositories(ctx context.Context, lister RepositoryLister, org string) ([]string, error) {
	repos, err := paginate.Walk(ctx, 1, paginate.Offset(func(ctx context.Context, page int) ([]models.Repository, error) {
		return lister.ListRepositoriesPage(ctx, org, page)
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories of %s: %w", org, err)
	}

	names := make([]string, 0, len(repos))
	for _, repo := range repos {
		if repo.Archived {
			continue
		}
		names = append(names, repo.Name)
	}
	sort.Strings(names)

	logger.WithField("organization", org).
		WithField("repositories", len(names)).
		WithField("archived", len(repos)-len(names)).
		Info("Enumerated repositories")

	return names, nil
}
