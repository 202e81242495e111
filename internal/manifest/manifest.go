package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/prestokit/stagecraft/internal/git"
)

// FileName is the manifest path inside the target branch
const FileName = "STAGING_MANIFEST.yaml"

// PREntry records one merged pull request
type PREntry struct {
	Number int    `yaml:"number"`
	Commit string `yaml:"commit"`
	Author string `yaml:"author"`
	Title  string `yaml:"title"`
	URL    string `yaml:"url"`
}

// AdditionalMerge records the optional merge of a branch from a secondary
// repository
type AdditionalMerge struct {
	Repository string `yaml:"repository"`
	Branch     string `yaml:"branch"`
	Commit     string `yaml:"commit"`
}

// Manifest is the generated record of exactly what went into a staging
// branch. MergedPRs lists the final successfully-merged candidate set in
// merge order.
type Manifest struct {
	Timestamp       time.Time        `yaml:"timestamp"`
	BaseRepository  string           `yaml:"base_repository"`
	BaseBranch      string           `yaml:"base_branch"`
	BaseCommit      string           `yaml:"base_commit"`
	TargetBranch    string           `yaml:"target_branch"`
	AdditionalMerge *AdditionalMerge `yaml:"additional_merge"` // nil renders as an explicit null
	MergedPRs       []PREntry        `yaml:"merged_prs"`
}

// YAML encodes the manifest
func (m *Manifest) YAML() ([]byte, error) {
	content, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	return content, nil
}

// Parse decodes a manifest document
func Parse(content []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(content, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// Commit writes the manifest into the repository and commits it on the
// current branch
func Commit(gitClient *git.Client, m *Manifest) error {
	content, err := m.YAML()
	if err != nil {
		return err
	}
	path := filepath.Join(gitClient.GitRoot(), FileName)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := gitClient.Add(FileName); err != nil {
		return err
	}
	return gitClient.Commit(fmt.Sprintf("Add staging manifest for %s", m.TargetBranch))
}
