package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lyndonlyu/ripcord/internal/audit"
	"github.com/lyndonlyu/ripcord/internal/backup"
	"github.com/lyndonlyu/ripcord/internal/config"
	"github.com/lyndonlyu/ripcord/internal/filelock"
	"github.com/lyndonlyu/ripcord/internal/logging"
	"github.com/lyndonlyu/ripcord/internal/passport"
	"github.com/lyndonlyu/ripcord/internal/pipeline"
	"github.com/lyndonlyu/ripcord/internal/registry"
	"github.com/lyndonlyu/ripcord/internal/revert"
	"github.com/lyndonlyu/ripcord/internal/rundb"
	"github.com/lyndonlyu/ripcord/internal/verify"
	"github.com/spf13/cobra"
)

var (
	flagForce  bool
	flagDryRun bool
	flagReason string
)

func runRollback(cmd *cobra.Command, args []string) error {
	target := registry.Latest
	if len(args) > 0 {
		target = args[0]
	}

	cwd, _ := os.Getwd()
	root, err := config.FindRoot(cwd)
	if err != nil {
		return err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to create state dirs: %w", err)
	}

	log, err := logging.Open(cfg.LogPath())
	if err != nil {
		return err
	}
	defer log.Close()

	store := passport.NewFileStore(cfg.PassportPath())
	if !store.Exists() {
		log.Errorf("passport not found at %s", store.Path())
		return fmt.Errorf("passport not found at %s", store.Path())
	}

	opts := pipeline.Options{
		Store:   store,
		Backups: backup.NewManager(root, cfg.BackupsDir()),
		Revert:  revert.NewGitBackend(root, time.Duration(cfg.RevertTimeout)*time.Second),
		Tests:   verify.NewCommandBackend(root, cfg.TestCommand, time.Duration(cfg.TestTimeout)*time.Second),
		Confirm: promptConfirm,
		Log:     log,
		Globs:   cfg.BackupGlobs,
		Root:    root,
		Reason:  flagReason,
		DryRun:  flagDryRun,
		Force:   flagForce,
	}

	// Mutating runs hold the pipeline lock end to end and journal the
	// attempt; dry runs touch nothing.
	if !flagDryRun {
		lock, err := filelock.Acquire(cfg.StateDir())
		if err != nil {
			log.Errorf("%v", err)
			return err
		}
		defer lock.Release()

		trail, err := audit.NewTrail(cfg.AuditDir())
		if err != nil {
			log.Warnf("audit trail unavailable: %v", err)
		} else {
			opts.Trail = trail
		}
		runs, err := rundb.Open(cfg.RunDBPath())
		if err != nil {
			log.Warnf("run journal unavailable: %v", err)
		} else {
			defer runs.Close()
			opts.Runs = runs
		}
	}

	res, err := pipeline.New(opts).Run(context.Background(), target)
	if err != nil {
		return err
	}

	switch res.State {
	case pipeline.Reported:
		fmt.Println("Dry run. Would revert to:")
		fmt.Println("  " + pipeline.Describe(res.Point))
	case pipeline.Aborted:
		// Declined confirmation: no mutation happened, exit cleanly.
		fmt.Println("Cancelled.")
	case pipeline.LedgerUpdated:
		fmt.Printf("%s Rolled back to %s (%.1fs)\n", styleSuccess.Render("OK"), res.Point.CommitHash, res.Duration.Seconds())
		fmt.Printf("Backup: %s\n", res.Backup.Dir)
		if res.LedgerWarning != nil {
			fmt.Printf("%s ledger not updated: %v\n", styleWarn.Render("WARN"), res.LedgerWarning)
		}
	}
	return nil
}
