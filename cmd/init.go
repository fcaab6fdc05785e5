package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wesm/issue-overseer/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a default .issue-overseer.yaml to the current directory, or to the
path given with --config.

Example:
  issue-overseer init
  issue-overseer init --config /etc/issue-overseer.yaml --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.DefaultConfigName + ".yaml"
		}

		force, _ := cmd.Flags().GetBool("force")
		if err := config.CreateDefaultConfig(path, force); err != nil {
			return err
		}

		fmt.Printf("Created %s\n\n", path)
		fmt.Println("Next steps:")
		fmt.Printf("  1. Export %s, or configure a GitHub App in the github section\n", config.EnvGithubToken)
		fmt.Println("  2. Run 'issue-overseer sync <organization> --dry-run' to preview the labels")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite existing config")
}
