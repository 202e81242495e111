package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prestokit/stagecraft/internal/discover"
)

// Flags holds the raw CLI flag values shared by every step command
type Flags struct {
	ConfigPath string

	TargetPath     string
	BaseRepository string
	BaseBranch     string
	TargetBranch   string

	AutoFetch     bool
	ManualPRs     string
	ExcludePRs    string
	AdditionalPRs string
	PRLabels      []string
	FetchLimit    int
	Interactive   bool

	AdditionalRepository string
	AdditionalBranch     string

	Mode          string
	ForcePush     bool
	DumpConflicts bool
	PurgeUnused   bool

	BankDir   string
	ReportDir string
	StateFile string
	Verbose   bool
}

// Register binds the shared flags onto a command
func (f *Flags) Register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.ConfigPath, "config", "", "TOML config file with default settings")
	flags.StringVar(&f.TargetPath, "target-path", "", "Path to the checkout of the target repository")
	flags.StringVar(&f.BaseRepository, "base-repository", "", "Repository URL to reset the target branch from")
	flags.StringVar(&f.BaseBranch, "base-branch", "", "Baseline branch in the base repository")
	flags.StringVar(&f.TargetBranch, "target-branch", "", "Staging branch to build")
	flags.BoolVar(&f.AutoFetch, "auto-fetch-prs", false, "Fetch candidate PRs by label from the code host")
	flags.StringVar(&f.ManualPRs, "manual-pr-numbers", "", "Explicit PR numbers to stage (disables auto-fetch)")
	flags.StringVar(&f.ExcludePRs, "exclude-pr-numbers", "", "PR numbers to drop from the candidate set")
	flags.StringVar(&f.AdditionalPRs, "additional-pr-numbers", "", "PR numbers to append to the candidate set")
	flags.StringSliceVar(&f.PRLabels, "pr-labels", nil, "Labels candidate PRs must all carry")
	flags.IntVar(&f.FetchLimit, "fetch-limit", 0, "Cap on auto-fetched PRs")
	flags.BoolVar(&f.Interactive, "interactive", false, "Pick candidate PRs from the fetched list interactively")
	flags.StringVar(&f.AdditionalRepository, "additional-repository", "", "Secondary repository to merge a branch from")
	flags.StringVar(&f.AdditionalBranch, "additional-branch", "", "Branch of the secondary repository to merge")
	flags.StringVar(&f.Mode, "mode", "", "Execution mode: local (no push) or ci")
	flags.BoolVar(&f.ForcePush, "force-push", false, "Force-push the target branch")
	flags.BoolVar(&f.DumpConflicts, "dump-conflicts", false, "Persist three-way conflict reports to disk")
	flags.BoolVar(&f.PurgeUnused, "purge-unused-resolutions", false, "Delete resolution bank entries unused by this run")
	flags.StringVar(&f.BankDir, "bank-dir", "", "Resolution bank directory")
	flags.StringVar(&f.ReportDir, "report-dir", "", "Conflict report directory")
	flags.StringVar(&f.StateFile, "state-file", "", "Run state file shared between step invocations")
	flags.BoolVar(&f.Verbose, "verbose", false, "Write a structured run log")
}

// Resolve merges defaults, config file, and flags into a validated Config
func (f *Flags) Resolve() (*Config, error) {
	cfg := Defaults()
	if err := cfg.LoadFile(configPath(f.ConfigPath), f.ConfigPath != ""); err != nil {
		return nil, err
	}

	setString(&cfg.TargetPath, f.TargetPath)
	setString(&cfg.BaseRepository, f.BaseRepository)
	setString(&cfg.BaseBranch, f.BaseBranch)
	setString(&cfg.TargetBranch, f.TargetBranch)
	setString(&cfg.AdditionalRepository, f.AdditionalRepository)
	setString(&cfg.AdditionalBranch, f.AdditionalBranch)
	if len(f.PRLabels) > 0 {
		cfg.PRLabels = f.PRLabels
	}
	if f.Mode != "" {
		cfg.Mode = Mode(f.Mode)
	}
	setString(&cfg.BankDir, f.BankDir)
	setString(&cfg.ReportDir, f.ReportDir)
	setString(&cfg.StateFile, f.StateFile)
	if f.FetchLimit > 0 {
		cfg.FetchLimit = f.FetchLimit
	}
	cfg.AutoFetch = cfg.AutoFetch || f.AutoFetch
	cfg.Interactive = f.Interactive
	cfg.ForcePush = f.ForcePush
	cfg.DumpConflicts = f.DumpConflicts
	cfg.PurgeUnused = f.PurgeUnused
	cfg.Verbose = f.Verbose

	var err error
	if cfg.ManualPRs, err = parseList("manual-pr-numbers", f.ManualPRs); err != nil {
		return nil, err
	}
	if cfg.ExcludePRs, err = parseList("exclude-pr-numbers", f.ExcludePRs); err != nil {
		return nil, err
	}
	if cfg.AdditionalPRs, err = parseList("additional-pr-numbers", f.AdditionalPRs); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configPath picks the default config location when none was given
func configPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return ".stagecraft/config.toml"
}

func parseList(flag, list string) ([]int, error) {
	numbers, err := discover.ParseNumbers(list)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", flag, err)
	}
	return numbers, nil
}
