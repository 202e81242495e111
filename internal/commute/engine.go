package commute

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prestokit/stagecraft/internal/bank"
	"github.com/prestokit/stagecraft/internal/git"
)

// Engine is the merge-commute implementation of Merger. It drives a real
// git merge and, on conflict, resolves regions that commute or that the
// resolution bank has seen before.
type Engine struct {
	git   *git.Client
	bank  *bank.Bank
	usage *bank.Usage
}

// NewEngine creates an engine bound to a git client and a resolution bank.
// usage accumulates the bank keys applied across all merges of a run.
func NewEngine(gitClient *git.Client, resolutions *bank.Bank, usage *bank.Usage) *Engine {
	return &Engine{git: gitClient, bank: resolutions, usage: usage}
}

// AttemptMerge merges sourceRef onto the current HEAD. On conflict it tries
// to resolve every conflict region; if anything stays unresolved the merge
// is aborted and the three-way blobs are returned for reporting.
func (e *Engine) AttemptMerge(ctx context.Context, sourceRef string, opts Options) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	conflicted, err := e.git.MergeNoCommit(sourceRef)
	if err != nil {
		return Outcome{}, err
	}
	if !conflicted {
		if opts.Commit {
			if err := e.git.Commit(opts.Message); err != nil {
				return Outcome{}, err
			}
		}
		return Outcome{Result: Clean}, nil
	}

	files, err := e.git.UnmergedFiles()
	if err != nil {
		return Outcome{}, err
	}

	outcome := Outcome{}
	resolved := make(map[string][]byte)
	for _, file := range files {
		base, ours, theirs, err := e.readSides(file)
		if err != nil {
			return Outcome{}, err
		}

		content, stats, err := e.resolveFile(base, ours, theirs, opts)
		if err != nil {
			return Outcome{}, err
		}
		outcome.Stats.Add(stats)

		if content == nil {
			outcome.Conflicts = append(outcome.Conflicts, FileConflict{
				Path:   file.Path,
				Base:   base,
				Ours:   ours,
				Theirs: theirs,
			})
			continue
		}
		resolved[file.Path] = content
	}

	if len(outcome.Conflicts) > 0 {
		if err := e.git.MergeAbort(); err != nil {
			return Outcome{}, err
		}
		outcome.Result = Conflicted
		return outcome, nil
	}

	paths := make([]string, 0, len(files))
	for _, file := range files {
		if err := os.WriteFile(filepath.Join(e.git.GitRoot(), file.Path), resolved[file.Path], 0644); err != nil {
			return Outcome{}, fmt.Errorf("failed to write resolved %s: %w", file.Path, err)
		}
		paths = append(paths, file.Path)
	}
	if err := e.git.Add(paths...); err != nil {
		return Outcome{}, err
	}
	if opts.Commit {
		if err := e.git.Commit(opts.Message); err != nil {
			return Outcome{}, err
		}
	}
	outcome.Result = Resolved
	return outcome, nil
}

// readSides loads the three merge-stage blobs of an unmerged file
func (e *Engine) readSides(file git.UnmergedFile) (base, ours, theirs []byte, err error) {
	if base, err = e.git.BlobContent(file.BaseHash); err != nil {
		return nil, nil, nil, err
	}
	if ours, err = e.git.BlobContent(file.OursHash); err != nil {
		return nil, nil, nil, err
	}
	if theirs, err = e.git.BlobContent(file.TheirsHash); err != nil {
		return nil, nil, nil, err
	}
	return base, ours, theirs, nil
}

// resolveFile attempts a full resolution of one conflicted file. Returns the
// resolved content, or nil when at least one region stayed unresolved.
func (e *Engine) resolveFile(base, ours, theirs []byte, opts Options) ([]byte, Stats, error) {
	// Delete/modify and add/add conflicts have no textual regions to
	// resolve; they always need a human.
	if len(ours) == 0 || len(theirs) == 0 {
		return nil, Stats{Regions: 1, Unresolved: 1}, nil
	}

	merged, conflicts, err := git.MergeFile(ours, base, theirs)
	if err != nil {
		return nil, Stats{}, err
	}
	if conflicts == 0 {
		return merged, Stats{}, nil
	}

	segments, err := parseConflicts(merged)
	if err != nil {
		return nil, Stats{}, err
	}

	stats := Stats{}
	var out bytes.Buffer
	complete := true
	for _, seg := range segments {
		if seg.conflict == nil {
			out.Write(seg.text)
			continue
		}
		stats.Regions++

		resolution, how := e.resolveRegion(*seg.conflict, opts)
		switch how {
		case resolvedByCommute:
			stats.ByCommute++
			out.Write(resolution)
		case resolvedByBank:
			stats.ByBank++
			out.Write(resolution)
		default:
			stats.Unresolved++
			complete = false
		}
	}

	if !complete {
		return nil, stats, nil
	}
	return out.Bytes(), stats, nil
}

type resolution int

const (
	unresolved resolution = iota
	resolvedByCommute
	resolvedByBank
)

// resolveRegion resolves a single conflict region, or reports it unresolved
func (e *Engine) resolveRegion(region Region, opts Options) ([]byte, resolution) {
	// Identical changes on both sides collapse to either one
	if bytes.Equal(region.Ours, region.Theirs) {
		return region.Ours, resolvedByCommute
	}

	// Two independent insertions at the same point commute: keep both,
	// ours first to match candidate order
	if len(region.Base) == 0 && len(region.Ours) > 0 && len(region.Theirs) > 0 {
		return append(append([]byte(nil), region.Ours...), region.Theirs...), resolvedByCommute
	}

	if !opts.EnableBank {
		return nil, unresolved
	}

	key := bank.Key(region.Base, region.Ours, region.Theirs)
	content, found, err := e.bank.Lookup(key)
	if err != nil || !found {
		return nil, unresolved
	}
	// A bank hit without auto-continue is surfaced as a conflict rather
	// than silently applied
	if !opts.AutoContinue {
		return nil, unresolved
	}
	e.usage.Mark(key)
	return content, resolvedByBank
}
