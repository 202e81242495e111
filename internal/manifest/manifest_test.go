package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prestokit/stagecraft/internal/testutil"
)

func sampleManifest() *Manifest {
	return &Manifest{
		Timestamp:      time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
		BaseRepository: "example/app",
		BaseBranch:     "main",
		BaseCommit:     "cafe1234",
		TargetBranch:   "staging",
		MergedPRs: []PREntry{
			{Number: 101, Commit: "aaa111", Author: "alice", Title: "Add feature", URL: "https://example.com/pull/101"},
			{Number: 102, Commit: "bbb222", Author: "bob", Title: "Fix bug", URL: "https://example.com/pull/102"},
		},
	}
}

func TestManifest_RoundTrip(t *testing.T) {
	m := sampleManifest()
	m.AdditionalMerge = &AdditionalMerge{
		Repository: "example/overlay",
		Branch:     "integration",
		Commit:     "ccc333",
	}

	content, err := m.YAML()
	require.NoError(t, err)

	parsed, err := Parse(content)
	require.NoError(t, err)
	assert.Equal(t, m, parsed)
}

func TestManifest_NoAdditionalMergeRendersNull(t *testing.T) {
	content, err := sampleManifest().YAML()
	require.NoError(t, err)

	assert.Contains(t, string(content), "additional_merge: null\n")

	parsed, err := Parse(content)
	require.NoError(t, err)
	assert.Nil(t, parsed.AdditionalMerge)
	assert.Len(t, parsed.MergedPRs, 2)
	assert.Equal(t, 101, parsed.MergedPRs[0].Number)
}

func TestManifest_Commit(t *testing.T) {
	gitClient := testutil.NewTestGitClient(t)

	m := sampleManifest()
	require.NoError(t, Commit(gitClient, m))

	content, err := os.ReadFile(filepath.Join(gitClient.GitRoot(), FileName))
	require.NoError(t, err)
	parsed, err := Parse(content)
	require.NoError(t, err)
	assert.Equal(t, "staging", parsed.TargetBranch)

	dirty, err := gitClient.HasUncommittedChanges()
	require.NoError(t, err)
	assert.False(t, dirty)
	subject := testutil.Git(t, gitClient.GitRoot(), "log", "-1", "--format=%s")
	assert.Equal(t, "Add staging manifest for staging", subject)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("\t- tabs cannot start a document"))
	assert.Error(t, err)
}
