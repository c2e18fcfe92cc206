// Package registry resolves named rollback points from the Passport. The
// registry itself is append-only and ordered most-recent-first; resolution
// never mutates it.
package registry

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/lyndonlyu/ripcord/internal/passport"
)

// Latest is the query resolving to the most recent rollback point.
const Latest = "latest"

var (
	// ErrEmpty is returned when the registry holds no rollback points.
	ErrEmpty = errors.New("no rollback points found")
	// ErrNotFound is returned when no point matches a query against a
	// non-empty registry.
	ErrNotFound = errors.New("rollback point not found")
)

// Registry reads rollback points through a passport store.
type Registry struct {
	store passport.Store
}

func New(store passport.Store) *Registry {
	return &Registry{store: store}
}

// Load returns all rollback points, most recent first. An unparseable
// Passport or an empty point list is a registry error.
func (r *Registry) Load() ([]passport.Point, error) {
	p, err := r.store.Load()
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if len(p.RollbackPoints) == 0 {
		return nil, ErrEmpty
	}
	return p.RollbackPoints, nil
}

// Resolve maps a query to a rollback point. "latest" returns the first
// point; otherwise the first point whose commit hash equals the query, or
// whose description contains it (case-sensitive), wins.
func (r *Registry) Resolve(query string) (passport.Point, error) {
	points, err := r.Load()
	if err != nil {
		return passport.Point{}, err
	}
	if query == Latest {
		return points[0], nil
	}
	for _, pt := range points {
		if pt.CommitHash == query {
			return pt, nil
		}
	}
	for _, pt := range points {
		if strings.Contains(pt.Description, query) {
			return pt, nil
		}
	}
	return passport.Point{}, fmt.Errorf("%w: %q", ErrNotFound, query)
}

// Validate checks that the point's commit actually exists in the repository
// at root, catching stale Passport entries before any destructive step.
func Validate(root string, pt passport.Point) error {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return fmt.Errorf("registry: open repository: %w", err)
	}
	if _, err := repo.ResolveRevision(plumbing.Revision(pt.CommitHash)); err != nil {
		return fmt.Errorf("registry: commit %s not in repository: %w", pt.CommitHash, err)
	}
	return nil
}

// Capture records the current HEAD as a new rollback point and prepends it
// to the Passport so it becomes "latest".
func (r *Registry) Capture(root, description string) (passport.Point, error) {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return passport.Point{}, fmt.Errorf("registry: open repository: %w", err)
	}
	head, err := repo.Head()
	if err != nil {
		return passport.Point{}, fmt.Errorf("registry: read HEAD: %w", err)
	}
	if description == "" {
		if commit, err := repo.CommitObject(head.Hash()); err == nil {
			description = strings.TrimSpace(strings.SplitN(commit.Message, "\n", 2)[0])
		}
	}

	pt := passport.Point{
		CommitHash:  head.Hash().String(),
		Description: description,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}

	p, err := r.store.Load()
	if err != nil {
		return passport.Point{}, fmt.Errorf("registry: %w", err)
	}
	p.RollbackPoints = append([]passport.Point{pt}, p.RollbackPoints...)
	if err := r.store.Save(p); err != nil {
		return passport.Point{}, fmt.Errorf("registry: %w", err)
	}
	return pt, nil
}
