package labels

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/wesm/issue-overseer/internal/api"
	"github.com/wesm/issue-overseer/internal/models"
	"github.com/wesm/issue-overseer/internal/triage"
)

// Outcome is the result of a best-effort label removal.
type Outcome int

const (
	// Removed means the label was on the issue and is gone now.
	Removed Outcome = iota
	// Absent means the issue did not carry the label.
	Absent
	// Failed means the removal failed for another reason. The label may still
	// be on the issue.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Removed:
		return "removed"
	case Absent:
		return "absent"
	default:
		return "failed"
	}
}

// Removal is the result of removing a label from an issue. Removing a label
// is idempotent by absence, so it reports an outcome instead of failing.
type Removal struct {
	Outcome Outcome
	Err     error
}

// IssueLabelClient adds and removes labels on issues addressed by URL
type IssueLabelClient interface {
	AddIssueLabel(ctx context.Context, issueURL, name string) error
	RemoveIssueLabel(ctx context.Context, issueURL, name string) error
}

// IssueLabeler is an IssueLabelClient whose removals are best effort
type IssueLabeler interface {
	AddIssueLabel(ctx context.Context, issueURL, name string) error
	RemoveIssueLabel(ctx context.Context, issueURL, name string) Removal
}

type bestEffortLabeler struct {
	client IssueLabelClient
}

// BestEffort wraps client so that removals report a Removal. A 404 from the
// tracker means the label was absent.
func BestEffort(client IssueLabelClient) IssueLabeler {
	return &bestEffortLabeler{client: client}
}

func (l *bestEffortLabeler) AddIssueLabel(ctx context.Context, issueURL, name string) error {
	return l.client.AddIssueLabel(ctx, issueURL, name)
}

func (l *bestEffortLabeler) RemoveIssueLabel(ctx context.Context, issueURL, name string) Removal {
	err := l.client.RemoveIssueLabel(ctx, issueURL, name)
	switch {
	case err == nil:
		return Removal{Outcome: Removed}
	case api.IsNotFound(err):
		return Removal{Outcome: Absent, Err: err}
	default:
		return Removal{Outcome: Failed, Err: err}
	}
}

// Action is the kind of issue label change.
type Action string

const (
	ActionRemove Action = "remove"
	ActionAdd    Action = "add"
)

// Change describes one issue label mutation made by the Applier.
type Change struct {
	Issue  models.Issue
	Label  string
	Action Action
	// Outcome is "added" for additions and the Removal outcome for removals.
	Outcome string
}

// Report counts the issue label changes of one Apply.
type Report struct {
	Removed int
	Absent  int
	Failed  int
	Added   int
}

// Applier moves the canonical labels between issues.
type Applier struct {
	labeler  IssueLabeler
	set      Set
	dryRun   bool
	onChange func(Change)
}

// NewApplier creates an applier. onChange, when not nil, is called after every
// issue label mutation.
func NewApplier(labeler IssueLabeler, set Set, dryRun bool, onChange func(Change)) *Applier {
	return &Applier{
		labeler:  labeler,
		set:      set,
		dryRun:   dryRun,
		onChange: onChange,
	}
}

// Apply first removes every canonical label from every issue of the partition,
// one label and one issue at a time, and only then adds the label matching
// each issue's class. An interrupted run can leave an issue without a status
// label but never with two.
func (a *Applier) Apply(ctx context.Context, partition triage.Partition) (Report, error) {
	var report Report

	var corpus []models.Issue
	for _, class := range triage.Classes {
		corpus = append(corpus, partition.Bucket(class)...)
	}

	if a.dryRun {
		for _, class := range triage.Classes {
			logger.WithFields(log.Fields{
				"label":  a.set.For(class).Name,
				"issues": len(partition.Bucket(class)),
			}).Info("Dry run: would label issues")
		}
		return report, nil
	}

	for _, label := range a.set.All() {
		for _, issue := range corpus {
			if err := ctx.Err(); err != nil {
				return report, err
			}

			removal := a.labeler.RemoveIssueLabel(ctx, issue.URL, label.Name)
			switch removal.Outcome {
			case Removed:
				report.Removed++
			case Absent:
				report.Absent++
			case Failed:
				report.Failed++
				logger.WithError(removal.Err).WithFields(log.Fields{
					"issue": issue.URL,
					"label": label.Name,
				}).Warn("Failed to remove label, continuing")
			}
			a.notify(Change{Issue: issue, Label: label.Name, Action: ActionRemove, Outcome: removal.Outcome.String()})
		}
	}

	for _, class := range triage.Classes {
		label := a.set.For(class)
		for _, issue := range partition.Bucket(class) {
			if err := a.labeler.AddIssueLabel(ctx, issue.URL, label.Name); err != nil {
				return report, fmt.Errorf("failed to add label %q to %s: %w", label.Name, issue.URL, err)
			}
			report.Added++
			a.notify(Change{Issue: issue, Label: label.Name, Action: ActionAdd, Outcome: "added"})
		}
		logger.WithFields(log.Fields{
			"label":  label.Name,
			"issues": len(partition.Bucket(class)),
		}).Info("Labeled issues")
	}

	return report, nil
}

func (a *Applier) notify(change Change) {
	if a.onChange != nil {
		a.onChange(change)
	}
}
