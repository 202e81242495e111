package commute

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prestokit/stagecraft/internal/bank"
	"github.com/prestokit/stagecraft/internal/git"
	"github.com/prestokit/stagecraft/internal/testutil"
)

type engineFixture struct {
	dir    string
	git    *git.Client
	bank   *bank.Bank
	usage  *bank.Usage
	engine *Engine
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	dir := testutil.NewRepo(t)

	gitClient, err := git.NewClientAt(dir)
	require.NoError(t, err)

	resolutions, err := bank.Open(t.TempDir())
	require.NoError(t, err)
	usage := bank.NewUsage()

	return &engineFixture{
		dir:    dir,
		git:    gitClient,
		bank:   resolutions,
		usage:  usage,
		engine: NewEngine(gitClient, resolutions, usage),
	}
}

func (f *engineFixture) readFile(t *testing.T, name string) string {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(f.dir, name))
	require.NoError(t, err)
	return string(content)
}

func TestAttemptMerge_Clean(t *testing.T) {
	f := newEngineFixture(t)
	head := testutil.CommitOnBranch(t, f.dir, "feature", "HEAD", "Add feature file", map[string]string{
		"feature.txt": "feature\n",
	})

	outcome, err := f.engine.AttemptMerge(context.Background(), head, Options{
		Commit:  true,
		Message: "Merge feature",
	})
	require.NoError(t, err)

	assert.Equal(t, Clean, outcome.Result)
	assert.Equal(t, Stats{}, outcome.Stats)
	assert.False(t, f.git.IsMergeInProgress())
	dirty, err := f.git.HasUncommittedChanges()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, "feature\n", f.readFile(t, "feature.txt"))
}

func TestAttemptMerge_ConcatenatesAlignedInsertions(t *testing.T) {
	f := newEngineFixture(t)
	base := testutil.Commit(t, f.dir, "Add list", map[string]string{
		"list.txt": "alpha\nomega\n",
	})
	head := testutil.CommitOnBranch(t, f.dir, "theirs", base, "Insert their line", map[string]string{
		"list.txt": "alpha\nfrom branch\nomega\n",
	})
	testutil.Commit(t, f.dir, "Insert our line", map[string]string{
		"list.txt": "alpha\nfrom main\nomega\n",
	})

	outcome, err := f.engine.AttemptMerge(context.Background(), head, Options{})
	require.NoError(t, err)

	assert.Equal(t, Resolved, outcome.Result)
	assert.Equal(t, Stats{Regions: 1, ByCommute: 1}, outcome.Stats)
	assert.Equal(t, "alpha\nfrom main\nfrom branch\nomega\n", f.readFile(t, "list.txt"))
	assert.True(t, f.git.IsMergeInProgress(), "resolution leaves the merge staged for the caller")
}

func TestAttemptMerge_BankResolution(t *testing.T) {
	f := newEngineFixture(t)
	base := testutil.Commit(t, f.dir, "Add config", map[string]string{
		"config.txt": "value = 1\n",
	})
	head := testutil.CommitOnBranch(t, f.dir, "theirs", base, "Set value 3", map[string]string{
		"config.txt": "value = 3\n",
	})
	testutil.Commit(t, f.dir, "Set value 2", map[string]string{
		"config.txt": "value = 2\n",
	})

	key := bank.Key([]byte("value = 1\n"), []byte("value = 2\n"), []byte("value = 3\n"))
	require.NoError(t, f.bank.Record(key, []byte("value = 5\n")))

	outcome, err := f.engine.AttemptMerge(context.Background(), head, Options{
		EnableBank:   true,
		AutoContinue: true,
		Commit:       true,
		Message:      "Merge with banked resolution",
	})
	require.NoError(t, err)

	assert.Equal(t, Resolved, outcome.Result)
	assert.Equal(t, Stats{Regions: 1, ByBank: 1}, outcome.Stats)
	assert.Equal(t, "value = 5\n", f.readFile(t, "config.txt"))
	assert.True(t, f.usage.Used(key))
	assert.False(t, f.git.IsMergeInProgress())
}

func TestAttemptMerge_BankHitWithoutAutoContinueSurfaces(t *testing.T) {
	f := newEngineFixture(t)
	base := testutil.Commit(t, f.dir, "Add config", map[string]string{
		"config.txt": "value = 1\n",
	})
	head := testutil.CommitOnBranch(t, f.dir, "theirs", base, "Set value 3", map[string]string{
		"config.txt": "value = 3\n",
	})
	testutil.Commit(t, f.dir, "Set value 2", map[string]string{
		"config.txt": "value = 2\n",
	})

	key := bank.Key([]byte("value = 1\n"), []byte("value = 2\n"), []byte("value = 3\n"))
	require.NoError(t, f.bank.Record(key, []byte("value = 5\n")))

	outcome, err := f.engine.AttemptMerge(context.Background(), head, Options{EnableBank: true})
	require.NoError(t, err)

	assert.Equal(t, Conflicted, outcome.Result)
	assert.Equal(t, Stats{Regions: 1, Unresolved: 1}, outcome.Stats)
	assert.False(t, f.usage.Used(key))
	assert.False(t, f.git.IsMergeInProgress(), "conflicted merge must be aborted")
}

func TestAttemptMerge_UnresolvedConflictAborts(t *testing.T) {
	f := newEngineFixture(t)
	base := testutil.Commit(t, f.dir, "Add config", map[string]string{
		"config.txt": "value = 1\n",
	})
	head := testutil.CommitOnBranch(t, f.dir, "theirs", base, "Set value 3", map[string]string{
		"config.txt": "value = 3\n",
	})
	mainHead := testutil.Commit(t, f.dir, "Set value 2", map[string]string{
		"config.txt": "value = 2\n",
	})

	outcome, err := f.engine.AttemptMerge(context.Background(), head, Options{
		EnableBank:   true,
		AutoContinue: true,
	})
	require.NoError(t, err)

	assert.Equal(t, Conflicted, outcome.Result)
	require.Len(t, outcome.Conflicts, 1)
	conflict := outcome.Conflicts[0]
	assert.Equal(t, "config.txt", conflict.Path)
	assert.Equal(t, []byte("value = 1\n"), conflict.Base)
	assert.Equal(t, []byte("value = 2\n"), conflict.Ours)
	assert.Equal(t, []byte("value = 3\n"), conflict.Theirs)

	assert.False(t, f.git.IsMergeInProgress())
	current, err := f.git.GetCommitHash("HEAD")
	require.NoError(t, err)
	assert.Equal(t, mainHead, current, "aborted merge must leave HEAD untouched")
}

func TestAttemptMerge_DeleteModifyNeedsHuman(t *testing.T) {
	f := newEngineFixture(t)
	base := testutil.Commit(t, f.dir, "Add doomed file", map[string]string{
		"doomed.txt": "content\n",
	})
	head := testutil.CommitOnBranch(t, f.dir, "theirs", base, "Edit doomed file", map[string]string{
		"doomed.txt": "edited content\n",
	})
	testutil.Git(t, f.dir, "rm", "doomed.txt")
	testutil.Git(t, f.dir, "commit", "-m", "Delete doomed file")

	outcome, err := f.engine.AttemptMerge(context.Background(), head, Options{
		EnableBank:   true,
		AutoContinue: true,
	})
	require.NoError(t, err)

	assert.Equal(t, Conflicted, outcome.Result)
	assert.Equal(t, Stats{Regions: 1, Unresolved: 1}, outcome.Stats)
	require.Len(t, outcome.Conflicts, 1)
	assert.Empty(t, outcome.Conflicts[0].Ours)
}

func TestResolveRegion_IdenticalSidesCollapse(t *testing.T) {
	f := newEngineFixture(t)

	content, how := f.engine.resolveRegion(Region{
		Base:   []byte("old\n"),
		Ours:   []byte("new\n"),
		Theirs: []byte("new\n"),
	}, Options{})

	assert.Equal(t, resolvedByCommute, how)
	assert.Equal(t, []byte("new\n"), content)
}

func TestResolveRegion_BankDisabled(t *testing.T) {
	f := newEngineFixture(t)

	region := Region{
		Base:   []byte("old\n"),
		Ours:   []byte("ours\n"),
		Theirs: []byte("theirs\n"),
	}
	require.NoError(t, f.bank.Record(bank.Key(region.Base, region.Ours, region.Theirs), []byte("fixed\n")))

	_, how := f.engine.resolveRegion(region, Options{})
	assert.Equal(t, unresolved, how)
}
