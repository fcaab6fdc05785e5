// Package overseer runs the label sync of an organization: it reconciles the
// canonical labels of every repository, collects the open issues, classifies
// them and moves the answering labels accordingly.
package overseer

import (
	"context"
	"fmt"
	"time"

	"emperror.dev/errors"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/wesm/issue-overseer/internal/db"
	"github.com/wesm/issue-overseer/internal/labels"
	"github.com/wesm/issue-overseer/internal/models"
	"github.com/wesm/issue-overseer/internal/triage"
)

var logger = log.WithField("package", "overseer")

// progressInterval bounds how often per-repository progress is logged.
const progressInterval = 5 * time.Second

// GitHub is the REST surface the overseer needs
type GitHub interface {
	RepositoryLister
	labels.LabelStore
	labels.IssueLabelClient
}

// IssueFetcher fetches the open issues of a repository with their comment window
type IssueFetcher interface {
	ListOpenIssues(ctx context.Context, owner, name string) ([]models.Issue, error)
}

// Journal records runs. Journal writes are advisory: a failed write is
// logged and the run goes on.
type Journal interface {
	StartRun(ctx context.Context, run db.Run) error
	RecordRepository(ctx context.Context, runID string, sync db.RepositorySync) error
	RecordClassifications(ctx context.Context, runID string, classifications []db.Classification) error
	RecordLabelChange(ctx context.Context, runID string, change db.LabelChange) error
	FinishRun(ctx context.Context, runID string, result db.RunResult) error
}

var _ Journal = (*db.DB)(nil)

// Options configures an Overseer
type Options struct {
	Policy triage.Policy
	DryRun bool
	// Journal is optional.
	Journal Journal
	// RequestCount, when set, reports the number of API requests sent so far.
	RequestCount func() int64
}

// Overseer runs label syncs
type Overseer struct {
	github       GitHub
	issues       IssueFetcher
	policy       triage.Policy
	dryRun       bool
	journal      Journal
	requestCount func() int64

	now   func() time.Time
	newID func() string
}

// New creates a new overseer
func New(github GitHub, issues IssueFetcher, opts Options) *Overseer {
	return &Overseer{
		github:       github,
		issues:       issues,
		policy:       opts.Policy,
		dryRun:       opts.DryRun,
		journal:      opts.Journal,
		requestCount: opts.RequestCount,
		now:          time.Now,
		newID:        func() string { return uuid.New().String() },
	}
}

// Summary describes a finished run
type Summary struct {
	RunID        string
	Organization string
	Repositories int
	Partition    triage.Partition
	Labels       labels.Report
	Requests     int64
	Duration     time.Duration
}

// corpus accumulates the issues of the repositories processed so far.
type corpus struct {
	repositories int
	issues       []models.Issue
}

// with returns a new corpus extended with the issues of one more repository.
func (c corpus) with(issues []models.Issue) corpus {
	merged := make([]models.Issue, 0, len(c.issues)+len(issues))
	merged = append(merged, c.issues...)
	merged = append(merged, issues...)
	return corpus{repositories: c.repositories + 1, issues: merged}
}

// Run syncs the labels of every non-archived repository of org. Repositories
// are processed one after the other; any error aborts the run.
func (o *Overseer) Run(ctx context.Context, org string) (Summary, error) {
	summary := Summary{RunID: o.newID(), Organization: org}
	started := o.now()
	runLogger := logger.WithField("run_id", summary.RunID).WithField("organization", org)

	o.startJournal(ctx, runLogger, db.Run{
		ID:           summary.RunID,
		Organization: org,
		Strategy:     string(o.policy.Strategy()),
		DryRun:       o.dryRun,
		StartedAt:    started,
	})

	err := o.run(ctx, runLogger, org, &summary)

	summary.Duration = o.now().Sub(started)
	if o.requestCount != nil {
		summary.Requests = o.requestCount()
	}
	o.finishJournal(ctx, runLogger, summary, err)

	if err != nil {
		runLogger.Warn("Run aborted, labels may be partially applied; re-run to converge")
		return summary, err
	}

	runLogger.WithFields(log.Fields{
		"repositories": summary.Repositories,
		"internal":     len(summary.Partition.Internal),
		"answered":     len(summary.Partition.Answered),
		"not_answered": len(summary.Partition.NotAnswered),
		"requests":     humanize.Comma(summary.Requests),
		"duration":     summary.Duration.Round(time.Millisecond).String(),
	}).Infof("Labeled %s open issues, run started %s", humanize.Comma(int64(summary.Partition.Len())), humanize.Time(started))

	return summary, nil
}

func (o *Overseer) run(ctx context.Context, runLogger *log.Entry, org string, summary *Summary) error {
	repos, err := EnumerateRepositories(ctx, o.github, org)
	if err != nil {
		return err
	}

	set := labels.Canonical(org)
	reconciler := labels.NewReconciler(o.github, org, set, o.dryRun)

	acc := corpus{}
	lastProgress := time.Time{}
	for i, repo := range repos {
		acc, err = o.processRepository(ctx, runLogger, summary.RunID, reconciler, org, repo, acc)
		if err != nil {
			return err
		}

		if done := i + 1; done == len(repos) || time.Since(lastProgress) >= progressInterval {
			runLogger.Infof("Progress: %d/%d repositories (%.1f%%)", done, len(repos), float64(done)/float64(len(repos))*100.0)
			lastProgress = time.Now()
		}
	}
	summary.Repositories = acc.repositories

	partition := o.policy.Partition(acc.issues)
	summary.Partition = partition
	o.recordClassifications(ctx, runLogger, summary.RunID, partition)

	truncated := 0
	for _, issue := range acc.issues {
		if issue.CommentsTruncated {
			truncated++
		}
	}
	if truncated > 0 {
		runLogger.WithField("issues", truncated).Warn("Some issues have more comments than the fetched window; they were classified on the window only")
	}

	applier := labels.NewApplier(labels.BestEffort(o.github), set, o.dryRun, func(change labels.Change) {
		o.recordLabelChange(ctx, runLogger, summary.RunID, change)
	})
	report, err := applier.Apply(ctx, partition)
	summary.Labels = report
	if err != nil {
		return err
	}

	return nil
}

// processRepository reconciles the labels of repo and appends its open issues
// to acc.
func (o *Overseer) processRepository(ctx context.Context, runLogger *log.Entry, runID string, reconciler *labels.Reconciler, org, repo string, acc corpus) (corpus, error) {
	fullName := fmt.Sprintf("%s/%s", org, repo)

	delta, err := reconciler.Reconcile(ctx, repo)
	if err != nil {
		return acc, errors.WithDetails(err, "repository", fullName)
	}

	issues, err := o.issues.ListOpenIssues(ctx, org, repo)
	if err != nil {
		return acc, errors.WithDetails(fmt.Errorf("failed to fetch open issues of %s: %w", fullName, err), "repository", fullName)
	}

	if o.journal != nil {
		err := o.journal.RecordRepository(ctx, runID, db.RepositorySync{
			Repository:    fullName,
			LabelsRemoved: len(delta.ToRemove),
			LabelsAdded:   len(delta.ToAdd),
			OpenIssues:    len(issues),
		})
		if err != nil {
			runLogger.WithError(err).Warn("Failed to journal repository")
		}
	}

	return acc.with(issues), nil
}

func (o *Overseer) startJournal(ctx context.Context, runLogger *log.Entry, run db.Run) {
	if o.journal == nil {
		return
	}
	if err := o.journal.StartRun(ctx, run); err != nil {
		runLogger.WithError(err).Warn("Failed to journal run start")
	}
}

func (o *Overseer) finishJournal(ctx context.Context, runLogger *log.Entry, summary Summary, runErr error) {
	if o.journal == nil {
		return
	}

	result := db.RunResult{
		Repositories: summary.Repositories,
		Internal:     len(summary.Partition.Internal),
		Answered:     len(summary.Partition.Answered),
		NotAnswered:  len(summary.Partition.NotAnswered),
		Requests:     summary.Requests,
		FinishedAt:   o.now(),
	}
	if runErr != nil {
		result.Error = runErr.Error()
	}

	// The run context may already be cancelled; the end record is still written.
	if err := o.journal.FinishRun(context.WithoutCancel(ctx), summary.RunID, result); err != nil {
		runLogger.WithError(err).Warn("Failed to journal run end")
	}
}

func (o *Overseer) recordClassifications(ctx context.Context, runLogger *log.Entry, runID string, partition triage.Partition) {
	if o.journal == nil {
		return
	}

	var classifications []db.Classification
	for _, class := range triage.Classes {
		for _, issue := range partition.Bucket(class) {
			classifications = append(classifications, db.Classification{
				Repository:        issue.Repository,
				Number:            issue.Number,
				URL:               issue.URL,
				Title:             issue.Title,
				Class:             class.String(),
				CommentsTruncated: issue.CommentsTruncated,
			})
		}
	}

	if err := o.journal.RecordClassifications(ctx, runID, classifications); err != nil {
		runLogger.WithError(err).Warn("Failed to journal classifications")
	}
}

func (o *Overseer) recordLabelChange(ctx context.Context, runLogger *log.Entry, runID string, change labels.Change) {
	if o.journal == nil {
		return
	}

	err := o.journal.RecordLabelChange(ctx, runID, db.LabelChange{
		IssueURL: change.Issue.URL,
		Label:    change.Label,
		Action:   string(change.Action),
		Outcome:  change.Outcome,
	})
	if err != nil {
		runLogger.WithError(err).Warn("Failed to journal label change")
	}
}
