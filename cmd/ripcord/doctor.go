package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/lyndonlyu/ripcord/internal/filelock"
	"github.com/lyndonlyu/ripcord/internal/registry"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the pipeline can run here",
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	report := func(ok bool, what string) {
		mark := styleSuccess.Render("ok")
		if !ok {
			mark = styleDanger.Render("FAIL")
		}
		fmt.Printf("  %-4s %s\n", mark, what)
	}
	healthy := true

	cfg, store, err := openProject()
	if err != nil {
		report(false, fmt.Sprintf("project root: %v", err))
		return err
	}
	report(true, "project root: "+cfg.Root)

	if _, err := exec.LookPath("git"); err != nil {
		report(false, "git binary not found in PATH")
		healthy = false
	} else {
		report(true, "git binary available")
	}

	if !store.Exists() {
		report(false, "passport missing at "+store.Path()+" (run 'ripcord points add' to create one)")
		healthy = false
	} else if points, err := registry.New(store).Load(); err != nil {
		report(false, fmt.Sprintf("passport: %v", err))
		healthy = false
	} else {
		report(true, fmt.Sprintf("passport holds %d rollback point(s)", len(points)))
	}

	lockPath := filepath.Join(cfg.StateDir(), filelock.LockFileName)
	if _, err := os.Stat(lockPath); err == nil {
		if filelock.IsStale(lockPath) {
			report(false, "stale pipeline lock at "+lockPath+" (holder is gone; safe to remove)")
			healthy = false
		} else {
			report(true, "pipeline lock held by a live process")
		}
	} else {
		report(true, "no pipeline lock present")
	}

	if !healthy {
		return fmt.Errorf("doctor found problems")
	}
	return nil
}
