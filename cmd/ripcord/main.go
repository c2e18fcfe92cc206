package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ripcord [target]",
	Short: "Ripcord - one-shot rollback and recovery pipeline",
	Long: "Ripcord reverts a project to a named rollback point: it snapshots current state,\n" +
		"performs a destructive git revert, verifies the result with the project's test\n" +
		"suite, and records verified rollbacks in a durable ledger.",
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runRollback,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("ripcord v0.1.0")
	},
}

func init() {
	rootCmd.Flags().BoolVar(&flagForce, "force", false, "skip the confirmation prompt")
	rootCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "resolve and report the target without mutating anything")
	rootCmd.Flags().StringVar(&flagReason, "reason", "manual rollback", "reason recorded in the rollback ledger")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
