package staging

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/prestokit/stagecraft/internal/commute"
	"github.com/prestokit/stagecraft/internal/common"
	"github.com/prestokit/stagecraft/internal/config"
	"github.com/prestokit/stagecraft/internal/discover"
	"github.com/prestokit/stagecraft/internal/gh"
	"github.com/prestokit/stagecraft/internal/manifest"
	"github.com/prestokit/stagecraft/internal/ui"
	"github.com/prestokit/stagecraft/internal/verify"
)

// Reset fetches the baseline branch from the base repository and hard-resets
// the target branch onto it. This starts a fresh run: all prior run state is
// discarded.
func (o *Orchestrator) Reset(ctx context.Context) error {
	o.newRun()
	o.log.Step("reset")

	// The checkout below destroys uncommitted work
	dirty, err := o.git.HasUncommittedChanges()
	if err != nil {
		return err
	}
	if dirty {
		return fmt.Errorf("target checkout at %s has uncommitted changes", o.cfg.TargetPath)
	}

	err = common.Retry(ctx, o.cfg.RetryAttempts, o.cfg.RetryBase,
		"fetching base branch", func() error {
			return o.git.Fetch(o.cfg.BaseRepository, o.cfg.BaseBranch)
		})
	if err != nil {
		return err
	}

	if err := o.git.CheckoutBranchAt(o.cfg.TargetBranch, "FETCH_HEAD"); err != nil {
		return err
	}
	commit, err := o.git.GetCommitHash("HEAD")
	if err != nil {
		return err
	}

	o.state.ResetCommit = commit
	o.state.EffectiveBase = commit
	o.ws.SetBaseline(commit)

	ui.Successf("Reset %s to %s@%s (%s)", o.cfg.TargetBranch, o.cfg.BaseRepository, o.cfg.BaseBranch, short(commit))
	return o.saveRun()
}

// MergeAdditional merges a branch from the secondary repository into the
// target branch. On success the effective base moves to include the merge,
// so all subsequent compatibility tests run against it. A conflict here is
// fatal.
func (o *Orchestrator) MergeAdditional(ctx context.Context) error {
	if err := o.loadRun(); err != nil {
		return err
	}
	if o.cfg.AdditionalRepository == "" {
		ui.Info("No additional repository configured - skipping")
		return nil
	}
	o.log.Step("merge-additional",
		zap.String("repository", o.cfg.AdditionalRepository),
		zap.String("branch", o.cfg.AdditionalBranch))

	err := common.Retry(ctx, o.cfg.RetryAttempts, o.cfg.RetryBase,
		"fetching additional branch", func() error {
			return o.git.Fetch(o.cfg.AdditionalRepository, o.cfg.AdditionalBranch)
		})
	if err != nil {
		return err
	}
	source, err := o.git.GetCommitHash("FETCH_HEAD")
	if err != nil {
		return err
	}

	outcome, err := o.merger.AttemptMerge(ctx, source, commute.Options{
		EnableBank:   true,
		AutoContinue: true,
		Commit:       true,
		Message: fmt.Sprintf("Merge %s from %s",
			o.cfg.AdditionalBranch, o.cfg.AdditionalRepository),
	})
	if err != nil {
		return err
	}
	if outcome.Result == commute.Conflicted {
		dir, dumpErr := o.report.DumpConflicts("additional-branch",
			o.reportContext("additional-branch", source), outcome.Conflicts)
		if dumpErr != nil {
			return dumpErr
		}
		if dir != "" {
			ui.Warningf("Conflict report written to %s", dir)
		}
		return fmt.Errorf("additional branch %s from %s does not merge cleanly",
			o.cfg.AdditionalBranch, o.cfg.AdditionalRepository)
	}

	merged, err := o.git.GetCommitHash("HEAD")
	if err != nil {
		return err
	}
	o.state.AdditionalMergeCommit = merged
	o.state.EffectiveBase = merged
	o.ws.SetBaseline(merged)

	ui.Successf("Merged %s@%s (%s)", o.cfg.AdditionalRepository, o.cfg.AdditionalBranch, short(merged))
	return o.saveRun()
}

// FetchPRs builds the candidate set from the configured source
func (o *Orchestrator) FetchPRs(ctx context.Context) error {
	if err := o.loadRun(); err != nil {
		return err
	}
	o.log.Step("fetch-prs")

	opts := discover.Options{
		AutoFetch:  o.cfg.AutoFetch,
		Manual:     o.cfg.ManualPRs,
		Exclude:    o.cfg.ExcludePRs,
		Additional: o.cfg.AdditionalPRs,
		Labels:     o.cfg.PRLabels,
		Limit:      o.cfg.FetchLimit,
	}
	if o.cfg.Interactive {
		opts.Select = discover.SelectInteractive
	}

	var result *discover.Result
	err := common.Retry(ctx, o.cfg.RetryAttempts, o.cfg.RetryBase,
		"listing candidate PRs", func() error {
			var listErr error
			result, listErr = discover.Candidates(o.github, opts)
			if listErr == discover.ErrNoCandidates {
				// Empty candidate set is a hard failure, not a flaky call
				return nil
			}
			return listErr
		})
	if err != nil {
		return err
	}
	if result == nil {
		return discover.ErrNoCandidates
	}

	if result.Truncated {
		ui.Warningf("Auto-fetch returned the cap of %d PRs - more matching PRs may exist and were omitted", o.cfg.FetchLimit)
	}
	for number, pr := range result.Known {
		o.prCache[number] = pr
	}

	o.state.Candidates = result.Candidates
	ui.Successf("Candidate set: %s", common.FormatNumbers(result.Candidates))
	return o.saveRun()
}

// TestMerge trial-merges every candidate individually against the effective
// base. Conflicting PRs are dropped and reported; an empty remainder is
// fatal.
func (o *Orchestrator) TestMerge(ctx context.Context) error {
	if err := o.loadRun(); err != nil {
		return err
	}
	if len(o.state.Candidates) == 0 {
		return discover.ErrNoCandidates
	}
	o.log.Step("test-merge", zap.Ints("candidates", o.state.Candidates))

	verifier := o.newVerifier()
	mergeable, stats, dropped, err := verifier.Individual(ctx, o.state.Candidates)
	if err != nil {
		return err
	}

	for number, s := range stats {
		o.addStats(number, s)
	}
	for _, drop := range dropped {
		o.state.Dropped = append(o.state.Dropped, record(drop.PR))
		o.log.Trial("individual", fmt.Sprintf("pr-%d", drop.PR.Number), "conflicted")
		ui.Warningf("PR #%d conflicts with the baseline and is dropped: %s by %s (%s)",
			drop.PR.Number, drop.PR.Title, drop.PR.Author, drop.PR.URL)
	}
	if len(dropped) > 0 && !o.report.Enabled() {
		ui.Info("Re-run with --dump-conflicts to capture three-way conflict reports")
	}

	o.state.Candidates = mergeable
	if len(mergeable) == 0 {
		return fmt.Errorf("every candidate PR conflicts with the baseline")
	}

	ui.Successf("%d candidate(s) merge cleanly: %s", len(mergeable), common.FormatNumbers(mergeable))
	return o.saveRun()
}

// TestPairwise trial-merges every pair of surviving candidates. Any
// conflicting pair fails the run after the full matrix and the PRs touching
// conflicts are printed.
func (o *Orchestrator) TestPairwise(ctx context.Context) error {
	if err := o.loadRun(); err != nil {
		return err
	}
	if len(o.state.Candidates) == 0 {
		return discover.ErrNoCandidates
	}
	o.log.Step("test-pairwise", zap.Ints("candidates", o.state.Candidates))

	verifier := o.newVerifier()
	matrix, err := verifier.Pairwise(ctx, o.state.Candidates)
	if err != nil {
		return err
	}

	ui.Header("Pairwise compatibility matrix")
	ui.Print(matrix.Render())

	if matrix.HasConflicts() {
		titleWidth := ui.GetTerminalWidth() / 3
		rows := make([][]string, 0)
		for _, number := range matrix.ConflictingPRs() {
			pr, resolveErr := o.resolvePR(ctx, number)
			if resolveErr != nil {
				return resolveErr
			}
			rows = append(rows, []string{
				fmt.Sprintf("#%d", pr.Number), pr.Author, ui.Truncate(pr.Title, titleWidth), pr.URL,
			})
		}
		ui.Print(ui.RenderPRTable([]string{"PR", "Author", "Title", "URL"}, rows))

		pairs := matrix.ConflictingPairs()
		o.log.Step("test-pairwise", zap.Int("conflicting_pairs", len(pairs)))
		return fmt.Errorf("%d pairwise conflict(s) detected - staging aborted", len(pairs))
	}

	o.state.Verified = true
	ui.Success("All candidate pairs are compatible")
	return o.saveRun()
}

// Merge performs the real sequential merges of the verified candidate set.
// A conflict here means the verifier's verdict no longer holds and the run
// aborts: skipping would silently produce a different staging branch than
// what was validated.
func (o *Orchestrator) Merge(ctx context.Context) error {
	if err := o.loadRun(); err != nil {
		return err
	}
	if !o.state.Verified {
		return fmt.Errorf("candidate set is not pairwise-verified - run test-pairwise first")
	}
	o.log.Step("merge", zap.Ints("candidates", o.state.Candidates))

	if err := o.ws.Reset(); err != nil {
		return err
	}
	// The reset dropped any previously merged commits, so the record of
	// them goes too; a re-run rebuilds both from scratch
	o.state.Merged = nil

	for _, number := range o.state.Candidates {
		pr, err := o.resolvePR(ctx, number)
		if err != nil {
			return err
		}

		outcome, err := o.merger.AttemptMerge(ctx, pr.HeadSHA, commute.Options{
			EnableBank:   true,
			AutoContinue: true,
			Commit:       true,
			Message:      fmt.Sprintf("Merge PR #%d: %s", pr.Number, pr.Title),
		})
		if err != nil {
			return err
		}
		if outcome.Result == commute.Conflicted {
			dir, dumpErr := o.report.DumpConflicts(fmt.Sprintf("pr-%d", number),
				o.reportContext("merge", pr.HeadSHA), outcome.Conflicts)
			if dumpErr != nil {
				return dumpErr
			}
			if dir != "" {
				ui.Warningf("Conflict report written to %s", dir)
			}
			return fmt.Errorf("PR #%d conflicted during the final merge despite passing verification", number)
		}

		commit, err := o.git.GetCommitHash("HEAD")
		if err != nil {
			return err
		}
		o.addStats(number, outcome.Stats)
		rec := record(pr)
		rec.Commit = commit
		o.state.Merged = append(o.state.Merged, rec)
		o.log.Trial("merge", fmt.Sprintf("pr-%d", number), outcome.Result.String())
		ui.Successf("Merged PR #%d: %s (%s)", pr.Number, pr.Title, short(commit))
	}

	return o.saveRun()
}

// Manifest generates the staging manifest and commits it on the target
// branch. PR metadata is fetched fresh so the manifest reflects any
// post-fetch updates.
func (o *Orchestrator) Manifest(ctx context.Context) error {
	if err := o.loadRun(); err != nil {
		return err
	}
	o.log.Step("manifest")

	m := &manifest.Manifest{
		Timestamp:      time.Now().UTC(),
		BaseRepository: o.cfg.BaseRepository,
		BaseBranch:     o.cfg.BaseBranch,
		BaseCommit:     o.state.ResetCommit,
		TargetBranch:   o.cfg.TargetBranch,
	}
	if o.state.AdditionalMergeCommit != "" {
		m.AdditionalMerge = &manifest.AdditionalMerge{
			Repository: o.cfg.AdditionalRepository,
			Branch:     o.cfg.AdditionalBranch,
			Commit:     o.state.AdditionalMergeCommit,
		}
	}

	for _, merged := range o.state.Merged {
		var fresh *gh.PR
		err := common.Retry(ctx, o.cfg.RetryAttempts, o.cfg.RetryBase,
			fmt.Sprintf("fetching PR #%d for manifest", merged.Number), func() error {
				var viewErr error
				fresh, viewErr = o.github.ViewPR(merged.Number)
				return viewErr
			})
		if err != nil {
			return err
		}
		m.MergedPRs = append(m.MergedPRs, manifest.PREntry{
			Number: merged.Number,
			Commit: merged.Commit,
			Author: fresh.Author,
			Title:  fresh.Title,
			URL:    fresh.URL,
		})
	}

	if err := manifest.Commit(o.git, m); err != nil {
		return err
	}
	ui.Successf("Committed %s with %d merged PR(s)", manifest.FileName, len(m.MergedPRs))
	return nil
}

// Push publishes the target branch. In local mode this is a no-op; in ci
// mode both the rolling branch and a dated snapshot are pushed.
func (o *Orchestrator) Push(ctx context.Context) error {
	if err := o.loadRun(); err != nil {
		return err
	}
	if o.cfg.Mode != config.ModeCI {
		ui.Info("Local mode - skipping push")
		return nil
	}
	o.log.Step("push", zap.Bool("force", o.cfg.ForcePush))

	branches := []string{
		o.cfg.TargetBranch,
		fmt.Sprintf("%s-%s", o.cfg.TargetBranch, o.state.StartedAt.Format("20060102")),
	}
	for _, branch := range branches {
		err := common.Retry(ctx, o.cfg.RetryAttempts, o.cfg.RetryBase,
			fmt.Sprintf("pushing %s", branch), func() error {
				return o.git.Push(o.cfg.BaseRepository, o.cfg.TargetBranch, branch, o.cfg.ForcePush)
			})
		if err != nil {
			return err
		}
		ui.Successf("Pushed %s", branch)
	}
	return nil
}

// Purge deletes resolution bank entries unused by this run. Destructive and
// opt-in: never runs without the flag.
func (o *Orchestrator) Purge(ctx context.Context) error {
	if err := o.loadRun(); err != nil {
		return err
	}
	if !o.cfg.PurgeUnused {
		ui.Info("Purge not requested - resolution bank left untouched")
		return nil
	}
	o.log.Step("purge")

	purged, err := o.bank.Purge(o.usage.Set())
	if err != nil {
		return err
	}
	if len(purged) == 0 {
		ui.Info("No unused resolutions to purge")
		return nil
	}
	for _, key := range purged {
		ui.Printf("  purged %s\n", shortKey(key))
	}
	ui.Successf("Purged %d unused resolution(s)", len(purged))
	return nil
}

// Run executes the full pipeline in order
func (o *Orchestrator) Run(ctx context.Context) error {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"reset", o.Reset},
		{"merge-additional", o.MergeAdditional},
		{"fetch-prs", o.FetchPRs},
		{"test-merge", o.TestMerge},
		{"test-pairwise", o.TestPairwise},
		{"merge", o.Merge},
		{"manifest", o.Manifest},
		{"push", o.Push},
		{"report", o.Report},
		{"purge", o.Purge},
	}
	for _, step := range steps {
		if err := step.fn(ctx); err != nil {
			o.log.Error(fmt.Sprintf("step %s failed", step.name), err)
			return err
		}
	}
	return nil
}

// newVerifier wires a verifier against this run's workspace and merger
func (o *Orchestrator) newVerifier() *verify.Verifier {
	return &verify.Verifier{
		Workspace: o.ws,
		Merger:    o.merger,
		Resolve:   o.resolvePR,
		Dump: func(kind, label, source string, conflicts []commute.FileConflict) error {
			dir, err := o.report.DumpConflicts(label, o.reportContext(kind, source), conflicts)
			if err != nil {
				return err
			}
			if dir != "" {
				ui.Warningf("Conflict report written to %s", dir)
			}
			return nil
		},
	}
}

// addStats accumulates per-PR resolution counts across steps
func (o *Orchestrator) addStats(number int, stats commute.Stats) {
	current := o.state.StatsByPR[number]
	current.Add(stats)
	o.state.StatsByPR[number] = current
}

func short(commit string) string {
	if len(commit) > 10 {
		return commit[:10]
	}
	return commit
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
