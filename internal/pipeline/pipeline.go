// Package pipeline sequences the one-shot rollback: resolve the target
// point, snapshot current state, revert, verify, and record the outcome.
// All collaborators are injected so the state machine itself stays free of
// process, filesystem and terminal concerns.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lyndonlyu/ripcord/internal/audit"
	"github.com/lyndonlyu/ripcord/internal/backup"
	"github.com/lyndonlyu/ripcord/internal/ledger"
	"github.com/lyndonlyu/ripcord/internal/logging"
	"github.com/lyndonlyu/ripcord/internal/passport"
	"github.com/lyndonlyu/ripcord/internal/registry"
	"github.com/lyndonlyu/ripcord/internal/revert"
	"github.com/lyndonlyu/ripcord/internal/rundb"
	"github.com/lyndonlyu/ripcord/internal/verify"
)

// Confirmer asks the user whether to proceed with a destructive revert to
// the resolved point. Returning false aborts with no mutation. Force mode
// never calls it.
type Confirmer func(pt passport.Point) (bool, error)

// Options wires the pipeline's collaborators and modes.
type Options struct {
	Store   passport.Store
	Backups *backup.Manager
	Revert  revert.Backend
	Tests   verify.Backend
	Confirm Confirmer
	Log     *logging.Logger
	Trail   *audit.Trail // optional attempt journal
	Runs    *rundb.DB    // optional attempt journal
	Globs   []string
	Root    string // when set, resolved points are validated against the repository
	Reason  string
	DryRun  bool
	Force   bool
}

// Result describes a finished pipeline run.
type Result struct {
	State      State
	RunID      string
	Point      passport.Point
	Backup     *backup.Backup
	TestOutput string
	Duration   time.Duration
	// LedgerWarning is set when the rollback succeeded but the Passport
	// write failed. The run still counts as successful.
	LedgerWarning error
}

type Pipeline struct {
	opts      Options
	reg       *registry.Registry
	led       *ledger.Ledger
	state     State
	journaled bool
}

func New(opts Options) *Pipeline {
	if opts.Reason == "" {
		opts.Reason = "manual rollback"
	}
	return &Pipeline{
		opts:  opts,
		reg:   registry.New(opts.Store),
		led:   ledger.New(opts.Store),
		state: Idle,
	}
}

// State returns the pipeline's current state.
func (p *Pipeline) State() State {
	return p.state
}

// Run executes the pipeline for the given target query. The returned error
// is non-nil exactly when the run aborted on a step failure; a declined
// confirmation aborts with a nil error.
func (p *Pipeline) Run(ctx context.Context, target string) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: uuid.New().String()}
	log := p.opts.Log

	// Dry runs mutate nothing, the attempt journals included.
	if !p.opts.DryRun {
		p.journalBegin(res.RunID, target)
	}

	p.state = ResolvingTarget
	pt, err := p.reg.Resolve(target)
	if err != nil {
		log.Errorf("%v", err)
		return p.abort(res, start, target, err)
	}
	res.Point = pt
	log.Infof("resolved target %q to %s (%s)", target, pt.CommitHash, pt.Description)

	if p.opts.Root != "" {
		if err := registry.Validate(p.opts.Root, pt); err != nil {
			log.Errorf("%v", err)
			return p.abort(res, start, target, err)
		}
	}

	if p.opts.DryRun {
		p.state = Reported
		res.State = Reported
		res.Duration = time.Since(start)
		log.Infof("dry run: would revert to %s (%s), created %s", pt.CommitHash, pt.Description, pt.Timestamp)
		return res, nil
	}

	if !p.opts.Force {
		p.state = ConfirmingIntent
		ok, err := p.opts.Confirm(pt)
		if err != nil {
			log.Errorf("confirmation failed: %v", err)
			return p.abort(res, start, target, err)
		}
		if !ok {
			p.state = Aborted
			res.State = Aborted
			res.Duration = time.Since(start)
			log.Infof("rollback to %s cancelled by user", pt.CommitHash)
			p.journalFinish(res.RunID, rundb.StatusAborted, ConfirmingIntent, "declined confirmation", "")
			p.trail(res, target, "aborted", ConfirmingIntent, "declined confirmation")
			return res, nil
		}
	}

	p.state = BackingUp
	b, err := p.opts.Backups.Snapshot(p.opts.Globs)
	if err != nil {
		log.Errorf("%v", err)
		return p.abort(res, start, target, err)
	}
	res.Backup = b
	log.Infof("backed up %d files to %s", len(b.Manifest.Files), b.Dir)

	p.state = Reverting
	if err := p.opts.Revert.Revert(ctx, pt.CommitHash); err != nil {
		log.Errorf("%v", err)
		log.Infof("working tree unchanged; backup retained at %s", b.Dir)
		return p.abort(res, start, target, err)
	}
	log.Infof("reverted working tree to %s", pt.CommitHash)

	p.state = Verifying
	out, err := p.opts.Tests.Verify(ctx)
	res.TestOutput = out
	if err != nil {
		// The revert is NOT undone: the tree stays reverted-but-unverified
		// and the ledger stays untouched. Recovery is manual, via the backup.
		log.Errorf("%v", err)
		log.Warnf("working tree remains reverted to %s but unverified; backup retained at %s", pt.CommitHash, b.Dir)
		return p.abort(res, start, target, err)
	}
	log.Infof("verification passed")

	rec := passport.Record{
		RollbackPoint:  pt.CommitHash,
		RollbackTime:   time.Now().UTC().Format(time.RFC3339),
		BackupLocation: b.Dir,
		Reason:         p.opts.Reason,
	}
	if err := p.led.Append(rec); err != nil {
		// The rollback itself already succeeded; a ledger write failure
		// must not flip the outcome.
		log.Warnf("%v", err)
		res.LedgerWarning = err
	}

	p.state = LedgerUpdated
	res.State = LedgerUpdated
	res.Duration = time.Since(start)
	log.Successf("rollback to %s complete (%.1fs)", pt.CommitHash, res.Duration.Seconds())

	p.journalFinish(res.RunID, rundb.StatusCompleted, LedgerUpdated, p.opts.Reason, b.Dir)
	p.trail(res, target, "success", LedgerUpdated, "")
	return res, nil
}

// abort finalizes the run in the Aborted state, journaling the stage that
// failed, and propagates the step error to the caller.
func (p *Pipeline) abort(res *Result, start time.Time, target string, err error) (*Result, error) {
	failedAt := p.state
	p.state = Aborted
	res.State = Aborted
	res.Duration = time.Since(start)

	backupDir := ""
	if res.Backup != nil {
		backupDir = res.Backup.Dir
	}
	p.journalFinish(res.RunID, rundb.StatusAborted, failedAt, err.Error(), backupDir)
	p.trail(res, target, "aborted", failedAt, err.Error())
	return res, err
}

func (p *Pipeline) journalBegin(runID, target string) {
	if p.opts.Runs == nil {
		return
	}
	if err := p.opts.Runs.Begin(runID, target); err != nil {
		p.opts.Log.Warnf("run journal: %v", err)
		return
	}
	p.journaled = true
}

func (p *Pipeline) journalFinish(runID, status string, stage State, reason, backupDir string) {
	if p.opts.Runs == nil || !p.journaled {
		return
	}
	if err := p.opts.Runs.Finish(runID, status, stage.String(), reason, backupDir); err != nil {
		p.opts.Log.Warnf("run journal: %v", err)
	}
}

func (p *Pipeline) trail(res *Result, target, outcome string, stage State, errMsg string) {
	if p.opts.Trail == nil || p.opts.DryRun {
		return
	}
	backupDir := ""
	if res.Backup != nil {
		backupDir = res.Backup.Dir
	}
	entry := audit.Entry{
		Target:         target,
		Stage:          stage.String(),
		Outcome:        outcome,
		Duration:       res.Duration,
		BackupLocation: backupDir,
		Error:          errMsg,
	}
	if err := p.opts.Trail.Append(entry); err != nil {
		p.opts.Log.Warnf("audit trail: %v", err)
	}
}

// Describe renders a one-line summary of a resolved point for dry-run and
// confirmation output.
func Describe(pt passport.Point) string {
	return fmt.Sprintf("%s  %s  (%s)", pt.CommitHash, pt.Description, pt.Timestamp)
}
