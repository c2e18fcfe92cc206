package main

import (
	"fmt"

	"github.com/lyndonlyu/ripcord/internal/rundb"
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List pipeline attempts, including aborted ones",
	RunE:  listRuns,
}

var runsCount int

func init() {
	runsCmd.Flags().IntVarP(&runsCount, "count", "n", 20, "number of attempts to show")
	rootCmd.AddCommand(runsCmd)
}

func listRuns(cmd *cobra.Command, args []string) error {
	cfg, _, err := openProject()
	if err != nil {
		return err
	}

	db, err := rundb.Open(cfg.RunDBPath())
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.List(runsCount)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No attempts recorded yet.")
		return nil
	}

	fmt.Printf("%-10s %-14s %-16s %-20s %s\n", "STATUS", "TARGET", "STAGE", "STARTED", "REASON")
	for _, r := range runs {
		status := r.Status
		if status == rundb.StatusAborted {
			status = styleDanger.Render(status)
		} else if status == rundb.StatusCompleted {
			status = styleSuccess.Render(status)
		}
		fmt.Printf("%-10s %-14s %-16s %-20s %s\n", status, r.Target, r.Stage, r.StartedAt, r.Reason)
	}
	return nil
}
