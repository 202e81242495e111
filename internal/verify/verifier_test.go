package verify

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prestokit/stagecraft/internal/bank"
	"github.com/prestokit/stagecraft/internal/commute"
	"github.com/prestokit/stagecraft/internal/gh"
	"github.com/prestokit/stagecraft/internal/git"
	"github.com/prestokit/stagecraft/internal/testutil"
	"github.com/prestokit/stagecraft/internal/workspace"
)

// verifyFixture is a repository with a baseline and four PR branches:
//
//	101 edits a.txt, compatible with everything but 104
//	102 adds b.txt, compatible with everything
//	103 edits the same shared.txt line the baseline later changed
//	104 edits the same a.txt line as 101 from the same base
type verifyFixture struct {
	verifier *Verifier
	ws       *workspace.Workspace
	baseline string
}

func newVerifyFixture(t *testing.T) *verifyFixture {
	t.Helper()
	dir := testutil.NewRepo(t)

	base := testutil.Commit(t, dir, "Add shared files", map[string]string{
		"shared.txt": "line1\nline2\nline3\n",
		"a.txt":      "alpha\n",
	})

	heads := map[int]string{
		101: testutil.CommitOnBranch(t, dir, "pr-101", base, "Change alpha", map[string]string{
			"a.txt": "alpha from 101\n",
		}),
		102: testutil.CommitOnBranch(t, dir, "pr-102", base, "Add beta", map[string]string{
			"b.txt": "beta\n",
		}),
		103: testutil.CommitOnBranch(t, dir, "pr-103", base, "Change line2", map[string]string{
			"shared.txt": "line1\nline2 from 103\nline3\n",
		}),
		104: testutil.CommitOnBranch(t, dir, "pr-104", base, "Change alpha differently", map[string]string{
			"a.txt": "alpha from 104\n",
		}),
	}

	// The baseline moves past the branch point, touching the line 103 edits
	baseline := testutil.Commit(t, dir, "Update line2 on main", map[string]string{
		"shared.txt": "line1\nline2 from main\nline3\n",
	})

	gitClient, err := git.NewClientAt(dir)
	require.NoError(t, err)

	ws := workspace.New(gitClient)
	ws.SetBaseline(baseline)

	resolutions, err := bank.Open(t.TempDir())
	require.NoError(t, err)

	return &verifyFixture{
		verifier: &Verifier{
			Workspace: ws,
			Merger:    commute.NewEngine(gitClient, resolutions, bank.NewUsage()),
			Resolve: func(_ context.Context, number int) (gh.PR, error) {
				head, ok := heads[number]
				if !ok {
					return gh.PR{}, fmt.Errorf("unknown PR #%d", number)
				}
				return gh.PR{Number: number, HeadSHA: head, Title: fmt.Sprintf("PR %d", number)}, nil
			},
		},
		ws:       ws,
		baseline: baseline,
	}
}

func (f *verifyFixture) assertRestored(t *testing.T) {
	t.Helper()
	head, err := f.ws.Git().GetCommitHash("HEAD")
	require.NoError(t, err)
	assert.Equal(t, f.baseline, head, "workspace must be back at the baseline")
	assert.False(t, f.ws.Git().IsMergeInProgress())
}

func TestVerifier_IndividualDropsBaselineConflicts(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := context.Background()

	mergeable, stats, dropped, err := f.verifier.Individual(ctx, []int{101, 102, 103})
	require.NoError(t, err)

	assert.Equal(t, []int{101, 102}, mergeable)
	require.Len(t, dropped, 1)
	assert.Equal(t, 103, dropped[0].PR.Number)
	assert.Equal(t, commute.Conflicted, dropped[0].Outcome.Result)

	assert.Equal(t, commute.Stats{}, stats[101], "clean merge records no regions")
	require.Contains(t, stats, 103)
	assert.Greater(t, stats[103].Unresolved, 0)

	f.assertRestored(t)
}

func TestVerifier_IndividualDumpsDroppedConflicts(t *testing.T) {
	f := newVerifyFixture(t)

	var gotKind, gotLabel string
	var gotConflicts []commute.FileConflict
	f.verifier.Dump = func(kind, label, source string, conflicts []commute.FileConflict) error {
		gotKind, gotLabel = kind, label
		gotConflicts = conflicts
		return nil
	}

	_, _, dropped, err := f.verifier.Individual(context.Background(), []int{103})
	require.NoError(t, err)
	require.Len(t, dropped, 1)

	assert.Equal(t, "individual", gotKind)
	assert.Equal(t, "pr-103", gotLabel)
	require.Len(t, gotConflicts, 1)
	assert.Equal(t, "shared.txt", gotConflicts[0].Path)
}

func TestVerifier_PairwiseMarksConflictingPair(t *testing.T) {
	f := newVerifyFixture(t)

	matrix, err := f.verifier.Pairwise(context.Background(), []int{101, 102, 104})
	require.NoError(t, err)

	assert.True(t, matrix.Conflicting(101, 104))
	assert.False(t, matrix.Conflicting(101, 102))
	assert.False(t, matrix.Conflicting(102, 104))
	assert.Equal(t, [][2]int{{101, 104}}, matrix.ConflictingPairs())

	f.assertRestored(t)
}

func TestVerifier_PairwiseCleanSet(t *testing.T) {
	f := newVerifyFixture(t)

	matrix, err := f.verifier.Pairwise(context.Background(), []int{101, 102})
	require.NoError(t, err)

	assert.False(t, matrix.HasConflicts())
	f.assertRestored(t)
}

func TestVerifier_ResolveErrorIsFatal(t *testing.T) {
	f := newVerifyFixture(t)

	_, _, _, err := f.verifier.Individual(context.Background(), []int{999})
	assert.ErrorContains(t, err, "unknown PR #999")
}
