package labels

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/wesm/issue-overseer/internal/models"
)

var logger = log.WithField("package", "labels")

// LabelStore manages the label definitions of a repository
type LabelStore interface {
	ListLabels(ctx context.Context, owner, repo string) ([]models.Label, error)
	CreateLabel(ctx context.Context, owner, repo string, label models.Label) error
	DeleteLabel(ctx context.Context, owner, repo, name string) error
}

// Reconciler brings the label definitions of each repository in line with a
// canonical Set.
type Reconciler struct {
	store  LabelStore
	set    Set
	owner  string
	dryRun bool
}

// NewReconciler creates a reconciler for the repositories of owner. In dry-run
// mode the delta is computed and logged but not applied.
func NewReconciler(store LabelStore, owner string, set Set, dryRun bool) *Reconciler {
	return &Reconciler{
		store:  store,
		set:    set,
		owner:  owner,
		dryRun: dryRun,
	}
}

// Reconcile lists the labels of repo once, then deletes every mismatched
// canonical label concurrently and, once all deletions succeeded, creates
// every missing canonical label concurrently.
func (r *Reconciler) Reconcile(ctx context.Context, repo string) (Delta, error) {
	current, err := r.store.ListLabels(ctx, r.owner, repo)
	if err != nil {
		return Delta{}, fmt.Errorf("failed to list labels of %s/%s: %w", r.owner, repo, err)
	}

	delta := Plan(current, r.set.All())
	entry := logger.WithFields(log.Fields{
		"repository": r.owner + "/" + repo,
		"remove":     len(delta.ToRemove),
		"add":        len(delta.ToAdd),
	})
	if delta.Empty() {
		entry.Debug("Labels up to date")
		return delta, nil
	}
	if r.dryRun {
		entry.Info("Dry run: would reconcile labels")
		return delta, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, label := range delta.ToRemove {
		label := label
		g.Go(func() error {
			if err := r.store.DeleteLabel(gctx, r.owner, repo, label.Name); err != nil {
				return fmt.Errorf("failed to delete label %q: %w", label.Name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return delta, err
	}

	g, gctx = errgroup.WithContext(ctx)
	for _, label := range delta.ToAdd {
		label := label
		g.Go(func() error {
			if err := r.store.CreateLabel(gctx, r.owner, repo, label); err != nil {
				return fmt.Errorf("failed to create label %q: %w", label.Name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return delta, err
	}

	entry.Info("Reconciled labels")
	return delta, nil
}
