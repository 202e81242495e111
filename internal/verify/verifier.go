package verify

import (
	"context"
	"fmt"

	"github.com/prestokit/stagecraft/internal/commute"
	"github.com/prestokit/stagecraft/internal/gh"
	"github.com/prestokit/stagecraft/internal/git"
	"github.com/prestokit/stagecraft/internal/workspace"
)

// Resolver turns a PR number into its record, fetching the head commit into
// the workspace so it can be merged. Results are expected to be cached by
// the caller so resolution happens at most once per PR per run.
type Resolver func(ctx context.Context, number int) (gh.PR, error)

// Dumper persists a conflict report. kind tags what was being merged, label
// names the report directory, source is the ref that was merging.
type Dumper func(kind, label, source string, conflicts []commute.FileConflict) error

// Dropped records a PR excluded by individual verification
type Dropped struct {
	PR      gh.PR
	Outcome commute.Outcome
}

// Verifier runs trial merges over the candidate set: every PR individually
// against the baseline, then every pair. All trials go through the
// workspace so the checkout is reset between candidates.
type Verifier struct {
	Workspace *workspace.Workspace
	Merger    commute.Merger
	Resolve   Resolver
	// Dump persists conflict reports; nil disables dumping
	Dump Dumper
}

// dump invokes the dumper when configured
func (v *Verifier) dump(kind, label, source string, conflicts []commute.FileConflict) error {
	if v.Dump == nil {
		return nil
	}
	return v.Dump(kind, label, source, conflicts)
}

// Individual trial-merges every candidate against the workspace baseline
// with bank assistance. Conflicting PRs are dropped from the returned set,
// not fatal. Per-PR resolution stats are returned for reporting.
func (v *Verifier) Individual(ctx context.Context, candidates []int) (mergeable []int, stats map[int]commute.Stats, dropped []Dropped, err error) {
	stats = make(map[int]commute.Stats)

	for _, number := range candidates {
		pr, err := v.Resolve(ctx, number)
		if err != nil {
			return nil, nil, nil, err
		}

		var outcome commute.Outcome
		trialErr := v.Workspace.Trial(ctx, func(ctx context.Context, _ *git.Client) error {
			var mergeErr error
			outcome, mergeErr = v.Merger.AttemptMerge(ctx, pr.HeadSHA, commute.Options{
				EnableBank:   true,
				AutoContinue: true,
			})
			return mergeErr
		})
		if trialErr != nil {
			return nil, nil, nil, fmt.Errorf("trial merge of PR #%d failed: %w", number, trialErr)
		}

		stats[number] = outcome.Stats
		if outcome.Result == commute.Conflicted {
			label := fmt.Sprintf("pr-%d", number)
			if err := v.dump("individual", label, pr.HeadSHA, outcome.Conflicts); err != nil {
				return nil, nil, nil, err
			}
			dropped = append(dropped, Dropped{PR: pr, Outcome: outcome})
			continue
		}
		mergeable = append(mergeable, number)
	}

	return mergeable, stats, dropped, nil
}

// Pairwise trial-merges every ordered pair (A, B) with A before B in
// candidate order: A merges with bank auto-continue, then B is attempted on
// top without it, so only genuine B-on-A conflicts surface. A conflict in
// either step marks the pair.
func (v *Verifier) Pairwise(ctx context.Context, candidates []int) (*Matrix, error) {
	matrix := NewMatrix(candidates)

	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			a, err := v.Resolve(ctx, candidates[i])
			if err != nil {
				return nil, err
			}
			b, err := v.Resolve(ctx, candidates[j])
			if err != nil {
				return nil, err
			}

			conflicted, err := v.tryPair(ctx, a, b)
			if err != nil {
				return nil, fmt.Errorf("pairwise trial #%d+#%d failed: %w", a.Number, b.Number, err)
			}
			if conflicted {
				matrix.SetConflict(a.Number, b.Number)
			}
		}
	}

	return matrix, nil
}

// tryPair merges a then attempts b on top inside one trial
func (v *Verifier) tryPair(ctx context.Context, a, b gh.PR) (conflicted bool, err error) {
	label := fmt.Sprintf("pr-%d-pr-%d", a.Number, b.Number)

	trialErr := v.Workspace.Trial(ctx, func(ctx context.Context, _ *git.Client) error {
		first, mergeErr := v.Merger.AttemptMerge(ctx, a.HeadSHA, commute.Options{
			EnableBank:   true,
			AutoContinue: true,
			Commit:       true,
			Message:      fmt.Sprintf("trial merge of PR #%d", a.Number),
		})
		if mergeErr != nil {
			return mergeErr
		}
		if first.Result == commute.Conflicted {
			conflicted = true
			return v.dump("pairwise", label, a.HeadSHA, first.Conflicts)
		}

		second, mergeErr := v.Merger.AttemptMerge(ctx, b.HeadSHA, commute.Options{
			EnableBank: true,
		})
		if mergeErr != nil {
			return mergeErr
		}
		if second.Result == commute.Conflicted {
			conflicted = true
			return v.dump("pairwise", label, b.HeadSHA, second.Conflicts)
		}
		return nil
	})
	return conflicted, trialErr
}
