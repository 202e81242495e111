package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/prestokit/stagecraft/internal/common"
	"github.com/prestokit/stagecraft/internal/discover"
)

// Mode selects push behavior: local runs never push, ci runs do
type Mode string

const (
	ModeLocal Mode = "local"
	ModeCI    Mode = "ci"
)

// Config is the fully-resolved configuration for one run
type Config struct {
	TargetPath     string
	BaseRepository string
	BaseBranch     string
	TargetBranch   string

	AutoFetch     bool
	ManualPRs     []int
	ExcludePRs    []int
	AdditionalPRs []int
	PRLabels      []string
	FetchLimit    int
	Interactive   bool

	AdditionalRepository string
	AdditionalBranch     string

	Mode          Mode
	ForcePush     bool
	DumpConflicts bool
	PurgeUnused   bool

	BankDir   string
	ReportDir string
	StateFile string
	RunLog    string
	Verbose   bool

	RetryAttempts int
	RetryBase     time.Duration
}

// file mirrors the optional TOML config supplying defaults. Flags override
// any value set here.
type file struct {
	TargetPath           string   `toml:"target_path"`
	BaseRepository       string   `toml:"base_repository"`
	BaseBranch           string   `toml:"base_branch"`
	TargetBranch         string   `toml:"target_branch"`
	AdditionalRepository string   `toml:"additional_repository"`
	AdditionalBranch     string   `toml:"additional_branch"`
	PRLabels             []string `toml:"pr_labels"`
	Mode                 string   `toml:"mode"`
	BankDir              string   `toml:"bank_dir"`
	ReportDir            string   `toml:"report_dir"`
	StateFile            string   `toml:"state_file"`
	RunLog               string   `toml:"run_log"`
	FetchLimit           int      `toml:"fetch_limit"`
	RetryAttempts        int      `toml:"retry_attempts"`
	RetryBaseSeconds     int      `toml:"retry_base_seconds"`
}

// Defaults returns a config with the built-in defaults applied
func Defaults() *Config {
	return &Config{
		BaseBranch:    "main",
		Mode:          ModeLocal,
		BankDir:       ".stagecraft/resolutions",
		ReportDir:     ".stagecraft/conflicts",
		StateFile:     ".stagecraft/run-state.json",
		RunLog:        ".stagecraft/run.log",
		FetchLimit:    discover.DefaultFetchLimit,
		RetryAttempts: common.DefaultRetryAttempts,
		RetryBase:     common.DefaultRetryBase,
	}
}

// applyFile overlays file values onto the defaults
func (c *Config) applyFile(f *file) {
	setString(&c.TargetPath, f.TargetPath)
	setString(&c.BaseRepository, f.BaseRepository)
	setString(&c.BaseBranch, f.BaseBranch)
	setString(&c.TargetBranch, f.TargetBranch)
	setString(&c.AdditionalRepository, f.AdditionalRepository)
	setString(&c.AdditionalBranch, f.AdditionalBranch)
	if len(f.PRLabels) > 0 {
		c.PRLabels = f.PRLabels
	}
	if f.Mode != "" {
		c.Mode = Mode(f.Mode)
	}
	setString(&c.BankDir, f.BankDir)
	setString(&c.ReportDir, f.ReportDir)
	setString(&c.StateFile, f.StateFile)
	setString(&c.RunLog, f.RunLog)
	if f.FetchLimit > 0 {
		c.FetchLimit = f.FetchLimit
	}
	if f.RetryAttempts > 0 {
		c.RetryAttempts = f.RetryAttempts
	}
	if f.RetryBaseSeconds > 0 {
		c.RetryBase = time.Duration(f.RetryBaseSeconds) * time.Second
	}
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// LoadFile reads a TOML config file into c. A missing file is only an
// error when the path was explicitly requested.
func (c *Config) LoadFile(path string, explicit bool) error {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if explicit {
			return fmt.Errorf("config file not found: %s", path)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var f file
	if err := toml.Unmarshal(content, &f); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	c.applyFile(&f)
	return nil
}

// Validate checks the fields every step depends on
func (c *Config) Validate() error {
	switch {
	case c.TargetPath == "":
		return fmt.Errorf("--target-path is required")
	case c.BaseRepository == "":
		return fmt.Errorf("--base-repository is required")
	case c.BaseBranch == "":
		return fmt.Errorf("--base-branch is required")
	case c.TargetBranch == "":
		return fmt.Errorf("--target-branch is required")
	}
	if c.Mode != ModeLocal && c.Mode != ModeCI {
		return fmt.Errorf("invalid mode %q: must be local or ci", c.Mode)
	}
	if c.AdditionalRepository != "" && c.AdditionalBranch == "" {
		return fmt.Errorf("--additional-branch is required with --additional-repository")
	}
	return nil
}
