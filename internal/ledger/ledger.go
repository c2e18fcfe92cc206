// Package ledger appends verified rollback records to the Passport. Only a
// rollback whose backup, revert and verification all succeeded may be
// recorded; history is append-only and never rewritten.
package ledger

import (
	"errors"
	"fmt"

	"github.com/lyndonlyu/ripcord/internal/passport"
)

// ErrPersist marks a ledger write failure. Callers treat it as a warning:
// the rollback itself already succeeded, so a failed write must not flip
// the run outcome.
var ErrPersist = errors.New("ledger persist failed")

// Ledger writes rollback records through a passport store.
type Ledger struct {
	store passport.Store
}

func New(store passport.Store) *Ledger {
	return &Ledger{store: store}
}

// Append loads the Passport, appends the record to the rollback history,
// sets the last-rollback timestamp, and saves atomically.
func (l *Ledger) Append(rec passport.Record) error {
	p, err := l.store.Load()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	p.RollbackHistory = append(p.RollbackHistory, rec)
	ts := rec.RollbackTime
	p.LastRollback = &ts
	if err := l.store.Save(p); err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

// History returns the recorded rollbacks, oldest first.
func (l *Ledger) History() ([]passport.Record, error) {
	p, err := l.store.Load()
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}
	return p.RollbackHistory, nil
}
