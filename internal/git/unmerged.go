package git

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// UnmergedFile describes one conflicted path in the index: the blob hashes of
// the three merge stages. A stage hash is empty when that side has no blob
// (add/add or delete/modify conflicts).
type UnmergedFile struct {
	Path       string
	BaseHash   string // stage 1
	OursHash   string // stage 2
	TheirsHash string // stage 3
}

// UnmergedFiles returns the conflicted paths of an in-progress merge
func (c *Client) UnmergedFiles() ([]UnmergedFile, error) {
	output, err := c.output("ls-files", "-u", "-z")
	if err != nil {
		return nil, fmt.Errorf("failed to list unmerged files: %w", err)
	}

	byPath := make(map[string]*UnmergedFile)
	var order []string
	for _, entry := range strings.Split(string(output), "\x00") {
		if entry == "" {
			continue
		}
		// Format: <mode> <hash> <stage>\t<path>
		meta, path, found := strings.Cut(entry, "\t")
		if !found {
			return nil, fmt.Errorf("unexpected ls-files entry: %q", entry)
		}
		fields := strings.Fields(meta)
		if len(fields) != 3 {
			return nil, fmt.Errorf("unexpected ls-files entry: %q", entry)
		}
		hash, stage := fields[1], fields[2]

		file, ok := byPath[path]
		if !ok {
			file = &UnmergedFile{Path: path}
			byPath[path] = file
			order = append(order, path)
		}
		switch stage {
		case "1":
			file.BaseHash = hash
		case "2":
			file.OursHash = hash
		case "3":
			file.TheirsHash = hash
		default:
			return nil, fmt.Errorf("unexpected merge stage %s for %s", stage, path)
		}
	}

	files := make([]UnmergedFile, 0, len(order))
	for _, path := range order {
		files = append(files, *byPath[path])
	}
	return files, nil
}

// BlobContent returns the content of a blob by hash. An empty hash yields
// empty content, matching a missing merge stage.
func (c *Client) BlobContent(hash string) ([]byte, error) {
	if hash == "" {
		return nil, nil
	}
	output, err := c.output("cat-file", "-p", hash)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", hash, err)
	}
	return output, nil
}

// MergeFile performs a three-way file-level merge and returns the merged
// content with diff3-style conflict markers where the sides disagree.
// conflicts is the number of conflict regions git reported.
func MergeFile(ours, base, theirs []byte) (merged []byte, conflicts int, err error) {
	dir, err := os.MkdirTemp("", "merge-file-")
	if err != nil {
		return nil, 0, err
	}
	defer os.RemoveAll(dir)

	paths := map[string][]byte{"ours": ours, "base": base, "theirs": theirs}
	for name, content := range paths {
		if err := os.WriteFile(filepath.Join(dir, name), content, 0644); err != nil {
			return nil, 0, err
		}
	}

	cmd := exec.Command("git", "merge-file", "-p", "--diff3",
		"-L", "ours", "-L", "base", "-L", "theirs",
		filepath.Join(dir, "ours"), filepath.Join(dir, "base"), filepath.Join(dir, "theirs"))
	output, runErr := cmd.Output()
	if runErr == nil {
		return output, 0, nil
	}

	// merge-file exits with the number of conflicts, negative on real errors
	exitErr, ok := runErr.(*exec.ExitError)
	if !ok || exitErr.ExitCode() < 0 {
		return nil, 0, fmt.Errorf("git merge-file failed: %w", runErr)
	}
	return output, exitErr.ExitCode(), nil
}
