package gh

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
)

// prFields is the JSON field list requested from gh for every PR query
const prFields = "number,title,url,state,isDraft,author,headRefOid,headRepositoryOwner,headRefName"

// Client provides GitHub operations via gh CLI. Commands run with the
// repository directory as working directory so gh resolves the right repo.
type Client struct {
	dir string
}

// NewClient creates a new GitHub client for a repository directory
func NewClient(dir string) *Client {
	return &Client{dir: dir}
}

// prJSON is the common structure for PR data from gh CLI
type prJSON struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	IsDraft bool   `json:"isDraft"`
	Author  struct {
		Login string `json:"login"`
	} `json:"author"`
	HeadRefOid          string `json:"headRefOid"`
	HeadRepositoryOwner struct {
		Login string `json:"login"`
	} `json:"headRepositoryOwner"`
	HeadRefName string `json:"headRefName"`
}

// toPR converts a prJSON to a PR
func (p *prJSON) toPR() PR {
	return PR{
		Number:    p.Number,
		Title:     p.Title,
		URL:       p.URL,
		IsDraft:   p.IsDraft,
		Author:    p.Author.Login,
		HeadSHA:   p.HeadRefOid,
		HeadOwner: p.HeadRepositoryOwner.Login,
		HeadRef:   p.HeadRefName,
	}
}

// execGH executes a gh CLI command and returns the output
func (c *Client) execGH(args ...string) ([]byte, error) {
	cmd := exec.Command("gh", args...)
	cmd.Dir = c.dir
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("gh CLI error: %s", string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("failed to execute gh: %w", err)
	}
	return output, nil
}

// ListOpenPRs returns open, non-draft PRs matching all of the given labels,
// newest first, up to limit. raw is the number of entries gh returned before
// drafts were filtered out: gh caps the response at limit, so raw reaching
// limit means more matching PRs may exist than were returned.
func (c *Client) ListOpenPRs(labels []string, limit int) (prs []PR, raw int, err error) {
	args := []string{
		"pr", "list",
		"--state", "open",
		"--json", prFields,
		"--limit", strconv.Itoa(limit),
	}
	for _, label := range labels {
		args = append(args, "--label", label)
	}

	output, err := c.execGH(args...)
	if err != nil {
		return nil, 0, err
	}
	return parsePRList(output)
}

// parsePRList decodes a gh PR listing, dropping drafts. raw counts the
// entries before the draft filter.
func parsePRList(output []byte) (prs []PR, raw int, err error) {
	var entries []prJSON
	if err := json.Unmarshal(output, &entries); err != nil {
		return nil, 0, fmt.Errorf("failed to parse PR list: %w", err)
	}

	prs = make([]PR, 0, len(entries))
	for i := range entries {
		if entries[i].IsDraft {
			continue
		}
		prs = append(prs, entries[i].toPR())
	}
	return prs, len(entries), nil
}

// ViewPR fetches PR details by number
func (c *Client) ViewPR(number int) (*PR, error) {
	output, err := c.execGH(
		"pr", "view", strconv.Itoa(number),
		"--json", prFields,
	)
	if err != nil {
		return nil, err
	}

	var raw prJSON
	if err := json.Unmarshal(output, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse PR %d: %w", number, err)
	}
	pr := raw.toPR()
	return &pr, nil
}
