package workspace

import (
	"context"
	"fmt"

	"github.com/prestokit/stagecraft/internal/git"
)

// Workspace owns the single shared checkout that every trial merge mutates.
// A trial runs inside Trial, which guarantees the working tree is hard-reset
// to the recorded baseline when the trial returns, success or failure. State
// never leaks from one trial to the next.
type Workspace struct {
	git      *git.Client
	baseline string
}

// New wraps a git client as a trial workspace
func New(gitClient *git.Client) *Workspace {
	return &Workspace{git: gitClient}
}

// Git returns the underlying git client
func (w *Workspace) Git() *git.Client {
	return w.git
}

// SetBaseline records the commit every trial starts from and resets to
func (w *Workspace) SetBaseline(commit string) {
	w.baseline = commit
}

// Baseline returns the recorded baseline commit
func (w *Workspace) Baseline() string {
	return w.baseline
}

// Reset aborts any in-progress merge and restores the working tree to the
// baseline, dropping untracked files
func (w *Workspace) Reset() error {
	if w.baseline == "" {
		return fmt.Errorf("workspace has no baseline")
	}
	if w.git.IsMergeInProgress() {
		if err := w.git.MergeAbort(); err != nil {
			return err
		}
	}
	if err := w.git.ResetHard(w.baseline); err != nil {
		return err
	}
	return w.git.Clean()
}

// Trial resets to the baseline, runs fn, and resets again on the way out
// regardless of fn's outcome
func (w *Workspace) Trial(ctx context.Context, fn func(ctx context.Context, g *git.Client) error) (err error) {
	if err := w.Reset(); err != nil {
		return fmt.Errorf("failed to prepare trial workspace: %w", err)
	}
	defer func() {
		if resetErr := w.Reset(); resetErr != nil && err == nil {
			err = fmt.Errorf("failed to restore trial workspace: %w", resetErr)
		}
	}()
	return fn(ctx, w.git)
}
