// Package cmd provides the daybookctl commands.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"daybook/internal/logger"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "daybookctl",
	Short: "Operate a Daybook ledger store",
	Long: `daybookctl runs operator tasks against a Daybook deployment.

Example:
  daybookctl migrate up
  daybookctl migrate down 1
  daybookctl token --actor ana@example.com --ttl 72h`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(os.Getenv("ENV"))
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(tokenCmd)
}
