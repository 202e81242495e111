package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/prestokit/stagecraft/internal/git"
)

// Git runs a git command in dir and returns its trimmed stdout
func Git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_DATE=2024-01-01T00:00:00Z",
		"GIT_COMMITTER_DATE=2024-01-01T00:00:00Z",
	)
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s failed: %s", strings.Join(args, " "), string(output))
	return strings.TrimSpace(string(output))
}

// NewRepo initializes a git repository with an initial commit in a temp
// directory and returns its path
func NewRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	Git(t, dir, "init", "--initial-branch=main")
	Git(t, dir, "config", "user.email", "test@example.com")
	Git(t, dir, "config", "user.name", "Test User")
	WriteFile(t, dir, "README.md", "test repository\n")
	Git(t, dir, "add", ".")
	Git(t, dir, "commit", "-m", "Initial commit")
	return dir
}

// NewTestGitClient initializes a repository and returns a client for it
func NewTestGitClient(t *testing.T) *git.Client {
	t.Helper()
	client, err := git.NewClientAt(NewRepo(t))
	require.NoError(t, err)
	return client
}

// Clone clones src into a temp directory and returns its path
func Clone(t *testing.T, src string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "clone")
	Git(t, filepath.Dir(dir), "clone", src, dir)
	Git(t, dir, "config", "user.email", "test@example.com")
	Git(t, dir, "config", "user.name", "Test User")
	return dir
}

// WriteFile writes a file under root
func WriteFile(t *testing.T, root, name, content string) {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// Commit writes the given files, commits them, and returns the commit hash
func Commit(t *testing.T, dir, message string, files map[string]string) string {
	t.Helper()
	for name, content := range files {
		WriteFile(t, dir, name, content)
	}
	Git(t, dir, "add", ".")
	Git(t, dir, "commit", "--allow-empty", "-m", message)
	return Git(t, dir, "rev-parse", "HEAD")
}

// CommitOnBranch creates branch at base, commits files on it, checks main
// back out, and returns the branch tip hash
func CommitOnBranch(t *testing.T, dir, branch, base, message string, files map[string]string) string {
	t.Helper()
	Git(t, dir, "checkout", "-b", branch, base)
	hash := Commit(t, dir, message, files)
	Git(t, dir, "checkout", "main")
	return hash
}

// SetPullRef publishes a commit as refs/pull/<number>/head, the ref layout
// code hosts expose PR heads under
func SetPullRef(t *testing.T, dir string, number int, hash string) {
	t.Helper()
	Git(t, dir, "update-ref", "refs/pull/"+strconv.Itoa(number)+"/head", hash)
}
