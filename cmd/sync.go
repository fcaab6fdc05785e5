package main

import (
	"github.com/spf13/cobra"

	"github.com/wesm/issue-overseer/internal/db"
	"github.com/wesm/issue-overseer/internal/overseer"
	"github.com/wesm/issue-overseer/internal/triage"
)

var syncCmd = &cobra.Command{
	Use:   "sync <organization>",
	Short: "Reconcile, classify and label the open issues of an organization",
	Long: `Bring the status labels of every non-archived repository of the organization
in line with the canonical set, then label every open issue as reported by the
organization, answered, or not answered.

Repositories are processed one at a time. Any error aborts the run; re-running
is always safe.

Example:
  issue-overseer sync acme
  issue-overseer sync acme --dry-run --strategy last-comment`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	addSyncFlags(syncCmd)
}

func addSyncFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("dry-run", false, "fetch and classify, but change no labels")
	cmd.Flags().String("strategy", "", "comment strategy: full-window (default) or last-comment")
}

func runSync(cmd *cobra.Command, org string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("strategy") {
		cfg.Triage.Strategy, _ = cmd.Flags().GetString("strategy")
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	strategy, err := triage.ParseStrategy(cfg.Triage.Strategy)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	c, err := newClients(ctx, cfg, strategy.CommentWindow())
	if err != nil {
		return err
	}

	opts := overseer.Options{
		Policy:       triage.NewPolicy(cfg.Triage.Bots, strategy),
		DryRun:       dryRun,
		RequestCount: c.counter.Count,
	}

	if cfg.Journal.Path != "" {
		database, err := db.New(cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer database.Close()

		if err := database.Initialize(); err != nil {
			return err
		}
		opts.Journal = database
	}

	_, err = overseer.New(c.rest, c.graphql, opts).Run(ctx, org)
	return err
}
