// Package migrations holds one-off label migrations applied to every
// repository of an organization.
package migrations

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/wesm/issue-overseer/internal/models"
)

var logger = log.WithField("package", "migrations")

// LabelRenamer lists and renames repository labels
type LabelRenamer interface {
	ListLabels(ctx context.Context, owner, repo string) ([]models.Label, error)
	RenameLabel(ctx context.Context, owner, repo, oldName, newName string) error
}

// Rename renames a label in place, keeping its color and its issues.
type Rename struct {
	From string
	To   string
}

// Migration is a named group of renames
type Migration struct {
	ID      string
	Renames []Rename
}

// All lists the migrations in the order they are applied.
var All = []Migration{
	{
		ID: "2020-07-13-issue-type",
		Renames: []Rename{
			{From: "bug", To: "type: bug"},
			{From: "enhancement", To: "type: enhancement"},
			{From: "question", To: "type: question"},
		},
	},
}

// Result counts what Up did
type Result struct {
	Renamed int
	Skipped int
}

// Up applies every migration to every repository. A rename is skipped in a
// repository that lacks the old label or already has the new one, so Up can
// be run repeatedly.
func Up(ctx context.Context, renamer LabelRenamer, owner string, repos []string) (Result, error) {
	var result Result

	for _, repo := range repos {
		current, err := renamer.ListLabels(ctx, owner, repo)
		if err != nil {
			return result, fmt.Errorf("failed to list labels of %s/%s: %w", owner, repo, err)
		}
		names := make(map[string]bool, len(current))
		for _, label := range current {
			names[label.Name] = true
		}

		for _, migration := range All {
			for _, rename := range migration.Renames {
				if !names[rename.From] || names[rename.To] {
					result.Skipped++
					continue
				}
				if err := renamer.RenameLabel(ctx, owner, repo, rename.From, rename.To); err != nil {
					return result, fmt.Errorf("migration %s: failed to rename %q in %s/%s: %w", migration.ID, rename.From, owner, repo, err)
				}
				delete(names, rename.From)
				names[rename.To] = true
				result.Renamed++
			}
		}
	}

	for _, migration := range All {
		logger.WithField("migration", migration.ID).Info("Migration finished")
	}
	logger.WithFields(log.Fields{
		"repositories": len(repos),
		"renamed":      result.Renamed,
		"skipped":      result.Skipped,
	}).Info("All migrations finished")

	return result, nil
}
