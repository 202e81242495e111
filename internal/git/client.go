package git

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Client provides git operations for a repository
type Client struct {
	gitRoot string
}

// NewClient creates a new git client for the current directory
func NewClient() (*Client, error) {
	gitRoot, err := getGitRoot(".")
	if err != nil {
		return nil, err
	}
	return &Client{gitRoot: gitRoot}, nil
}

// NewClientAt creates a new git client rooted at the given directory
func NewClientAt(dir string) (*Client, error) {
	gitRoot, err := getGitRoot(dir)
	if err != nil {
		return nil, err
	}
	return &Client{gitRoot: gitRoot}, nil
}

// GitRoot returns the root directory of the git repository
func (c *Client) GitRoot() string {
	return c.gitRoot
}

// output runs a git command in the repository and returns its stdout
func (c *Client) output(args ...string) ([]byte, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = c.gitRoot
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("git %s: %s", args[0], strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("git %s: %w", args[0], err)
	}
	return out, nil
}

// run runs a git command in the repository, discarding output on success
func (c *Client) run(args ...string) error {
	cmd := exec.Command("git", args...)
	cmd.Dir = c.gitRoot
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git %s: %w\nOutput: %s", args[0], err, string(out))
	}
	return nil
}

// getGitRoot is a private helper to get the git root directory
func getGitRoot(dir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("not a git repository: %s", dir)
	}
	return strings.TrimSpace(string(output)), nil
}

// GetCurrentBranch returns the name of the current git branch
func (c *Client) GetCurrentBranch() (string, error) {
	output, err := c.output("rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to get current branch: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// GetCommitHash returns the commit hash for a given ref
func (c *Client) GetCommitHash(ref string) (string, error) {
	output, err := c.output("rev-parse", ref)
	if err != nil {
		return "", fmt.Errorf("failed to get commit hash for %s: %w", ref, err)
	}
	return strings.TrimSpace(string(output)), nil
}

// Fetch fetches a branch from a repository URL. FETCH_HEAD points at the
// fetched tip afterwards.
func (c *Client) Fetch(repository string, branch string) error {
	if err := c.run("fetch", repository, branch); err != nil {
		return fmt.Errorf("failed to fetch %s from %s: %w", branch, repository, err)
	}
	return nil
}

// CheckoutBranchAt checks out the branch, creating or resetting it to the
// given ref. This is equivalent to: git checkout -B <name> <ref>
func (c *Client) CheckoutBranchAt(name string, ref string) error {
	if err := c.run("checkout", "-B", name, ref); err != nil {
		return fmt.Errorf("failed to checkout branch %s at %s: %w", name, ref, err)
	}
	return nil
}

// ResetHard resets the current branch to a specific ref
func (c *Client) ResetHard(ref string) error {
	if err := c.run("reset", "--hard", ref); err != nil {
		return fmt.Errorf("failed to reset to %s: %w", ref, err)
	}
	return nil
}

// Clean removes untracked files and directories from the working tree
func (c *Client) Clean() error {
	if err := c.run("clean", "-fd"); err != nil {
		return fmt.Errorf("failed to clean working tree: %w", err)
	}
	return nil
}

// MergeNoCommit attempts a merge of ref into HEAD without committing.
// Returns conflicted=true when the merge stopped on conflicts, which is not
// an error: the index holds the unmerged paths and the caller decides whether
// to resolve or abort.
func (c *Client) MergeNoCommit(ref string) (conflicted bool, err error) {
	cmd := exec.Command("git", "merge", "--no-commit", "--no-ff", ref)
	cmd.Dir = c.gitRoot
	out, runErr := cmd.CombinedOutput()
	if runErr == nil {
		return false, nil
	}
	unmerged, umErr := c.HasUnmergedPaths()
	if umErr != nil {
		return false, umErr
	}
	if unmerged {
		return true, nil
	}
	return false, fmt.Errorf("failed to merge %s: %w\nOutput: %s", ref, runErr, string(out))
}

// MergeAbort aborts an in-progress merge
func (c *Client) MergeAbort() error {
	if err := c.run("merge", "--abort"); err != nil {
		return fmt.Errorf("failed to abort merge: %w", err)
	}
	return nil
}

// IsMergeInProgress checks if a merge is currently in progress
func (c *Client) IsMergeInProgress() bool {
	_, err := os.Stat(filepath.Join(c.gitRoot, ".git", "MERGE_HEAD"))
	return err == nil
}

// HasUnmergedPaths checks if the index contains unmerged entries
func (c *Client) HasUnmergedPaths() (bool, error) {
	output, err := c.output("ls-files", "-u")
	if err != nil {
		return false, fmt.Errorf("failed to list unmerged files: %w", err)
	}
	return len(strings.TrimSpace(string(output))) > 0, nil
}

// HasUncommittedChanges checks if there are any uncommitted changes in the working directory
func (c *Client) HasUncommittedChanges() (bool, error) {
	output, err := c.output("status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("failed to check git status: %w", err)
	}
	return len(strings.TrimSpace(string(output))) > 0, nil
}

// Add stages the given paths
func (c *Client) Add(paths ...string) error {
	args := append([]string{"add", "--"}, paths...)
	if err := c.run(args...); err != nil {
		return fmt.Errorf("failed to stage files: %w", err)
	}
	return nil
}

// Commit creates a commit with the given message. When a merge is in
// progress the commit concludes it, keeping both parents.
func (c *Client) Commit(message string) error {
	if err := c.run("commit", "--no-verify", "-m", message); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Push pushes a local ref to a branch on the given repository URL
func (c *Client) Push(repository string, localRef string, remoteBranch string, force bool) error {
	args := []string{"push"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, repository, localRef+":refs/heads/"+remoteBranch)
	if err := c.run(args...); err != nil {
		return fmt.Errorf("failed to push %s to %s: %w", remoteBranch, repository, err)
	}
	return nil
}
