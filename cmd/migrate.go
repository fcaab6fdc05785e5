package main

import (
	"github.com/spf13/cobra"

	"github.com/wesm/issue-overseer/internal/migrations"
	"github.com/wesm/issue-overseer/internal/overseer"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate <organization>",
	Short: "Apply the label rename migrations to every repository",
	Long: `Rename legacy labels in every non-archived repository of the organization,
for example "bug" to "type: bug". Labels are renamed in place, so issues keep
them. Repositories that lack the old label or already have the new one are
skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		org := args[0]

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		c, err := newClients(ctx, cfg, 1)
		if err != nil {
			return err
		}

		repos, err := overseer.EnumerateRepositories(ctx, c.rest, org)
		if err != nil {
			return err
		}

		_, err = migrations.Up(ctx, c.rest, org, repos)
		return err
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
