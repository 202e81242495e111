package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prestokit/stagecraft/internal/git"
	"github.com/prestokit/stagecraft/internal/testutil"
)

func newWorkspace(t *testing.T) (*Workspace, string) {
	t.Helper()
	client := testutil.NewTestGitClient(t)
	ws := New(client)
	head, err := client.GetCommitHash("HEAD")
	require.NoError(t, err)
	ws.SetBaseline(head)
	return ws, client.GitRoot()
}

func assertAtBaseline(t *testing.T, ws *Workspace) {
	t.Helper()
	head, err := ws.Git().GetCommitHash("HEAD")
	require.NoError(t, err)
	assert.Equal(t, ws.Baseline(), head)
	dirty, err := ws.Git().HasUncommittedChanges()
	require.NoError(t, err)
	assert.False(t, dirty)
}

func TestReset_RequiresBaseline(t *testing.T) {
	ws := New(testutil.NewTestGitClient(t))
	assert.ErrorContains(t, ws.Reset(), "no baseline")
}

func TestReset_DropsCommitsAndUntrackedFiles(t *testing.T) {
	ws, dir := newWorkspace(t)

	testutil.Commit(t, dir, "Stray commit", map[string]string{"stray.txt": "stray\n"})
	testutil.WriteFile(t, dir, "untracked.txt", "scratch\n")

	require.NoError(t, ws.Reset())
	assertAtBaseline(t, ws)

	_, err := os.Stat(filepath.Join(dir, "untracked.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestReset_AbortsInProgressMerge(t *testing.T) {
	ws, dir := newWorkspace(t)

	base := testutil.Commit(t, dir, "Add file", map[string]string{"f.txt": "base\n"})
	head := testutil.CommitOnBranch(t, dir, "feature", base, "Their change", map[string]string{"f.txt": "theirs\n"})
	testutil.Commit(t, dir, "Our change", map[string]string{"f.txt": "ours\n"})

	conflicted, err := ws.Git().MergeNoCommit(head)
	require.NoError(t, err)
	require.True(t, conflicted)
	require.True(t, ws.Git().IsMergeInProgress())

	require.NoError(t, ws.Reset())
	assert.False(t, ws.Git().IsMergeInProgress())
	assertAtBaseline(t, ws)
}

func TestTrial_ResetsAfterSuccess(t *testing.T) {
	ws, dir := newWorkspace(t)

	err := ws.Trial(context.Background(), func(_ context.Context, g *git.Client) error {
		testutil.Commit(t, dir, "Trial commit", map[string]string{"trial.txt": "x\n"})
		return nil
	})
	require.NoError(t, err)
	assertAtBaseline(t, ws)
}

func TestTrial_ResetsAfterFailureAndKeepsError(t *testing.T) {
	ws, dir := newWorkspace(t)

	trialErr := fmt.Errorf("trial went wrong")
	err := ws.Trial(context.Background(), func(_ context.Context, g *git.Client) error {
		testutil.WriteFile(t, dir, "partial.txt", "partial\n")
		return trialErr
	})
	assert.ErrorIs(t, err, trialErr)
	assertAtBaseline(t, ws)
}

func TestTrial_StartsFromBaseline(t *testing.T) {
	ws, dir := newWorkspace(t)

	// Dirt left outside any trial must not leak into the next one
	testutil.WriteFile(t, dir, "leftover.txt", "dirt\n")

	err := ws.Trial(context.Background(), func(_ context.Context, g *git.Client) error {
		_, statErr := os.Stat(filepath.Join(dir, "leftover.txt"))
		assert.True(t, os.IsNotExist(statErr))
		return nil
	})
	require.NoError(t, err)
}
