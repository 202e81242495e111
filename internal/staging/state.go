package staging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prestokit/stagecraft/internal/commute"
)

// PRRecord is the serialized form of a PR touched by the run
type PRRecord struct {
	Number int    `json:"number"`
	Commit string `json:"commit,omitempty"`
	Author string `json:"author"`
	Title  string `json:"title"`
	URL    string `json:"url"`
}

// RunState is the serialized state one step hands to the next, so the
// pipeline composes across separate process invocations without
// environment variables
type RunState struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`

	ResetCommit   string `json:"reset_commit"`
	EffectiveBase string `json:"effective_base"`

	AdditionalMergeCommit string `json:"additional_merge_commit,omitempty"`

	Candidates []int      `json:"candidates,omitempty"`
	Dropped    []PRRecord `json:"dropped,omitempty"`
	Verified   bool       `json:"verified"`
	Merged     []PRRecord `json:"merged,omitempty"`

	StatsByPR map[int]commute.Stats `json:"stats_by_pr,omitempty"`
	BankUsed  []string              `json:"bank_used,omitempty"`
}

// LoadState reads a run state file
func LoadState(path string) (*RunState, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run state %s (did the reset step run?): %w", path, err)
	}
	var state RunState
	if err := json.Unmarshal(content, &state); err != nil {
		return nil, fmt.Errorf("failed to parse run state %s: %w", path, err)
	}
	return &state, nil
}

// Save writes the run state atomically
func (s *RunState) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}
	content, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode run state: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0644); err != nil {
		return fmt.Errorf("failed to write run state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to write run state: %w", err)
	}
	return nil
}
