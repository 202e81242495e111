package staging

import (
	"context"
	"fmt"
	"time"

	"github.com/prestokit/stagecraft/internal/bank"
	"github.com/prestokit/stagecraft/internal/commute"
	"github.com/prestokit/stagecraft/internal/common"
	"github.com/prestokit/stagecraft/internal/config"
	"github.com/prestokit/stagecraft/internal/gh"
	"github.com/prestokit/stagecraft/internal/git"
	"github.com/prestokit/stagecraft/internal/report"
	"github.com/prestokit/stagecraft/internal/runlog"
	"github.com/prestokit/stagecraft/internal/workspace"
)

// GithubClient is the code-hosting surface the orchestrator needs
type GithubClient interface {
	ListOpenPRs(labels []string, limit int) (prs []gh.PR, raw int, err error)
	ViewPR(number int) (*gh.PR, error)
}

// Orchestrator drives the staging pipeline: reset, optional additional
// merge, PR discovery, individual and pairwise verification, the real
// merges, manifest, push, report, purge. Steps share serialized run state
// so they compose across separate invocations.
type Orchestrator struct {
	cfg    *config.Config
	git    *git.Client
	github GithubClient
	ws     *workspace.Workspace
	merger commute.Merger
	bank   *bank.Bank
	usage  *bank.Usage
	report *report.Writer
	log    *runlog.Logger

	state   *RunState
	prCache map[int]gh.PR
	// fetched tracks which PR heads were pulled into the local repository
	fetched map[int]bool
}

// New builds an orchestrator from a resolved config
func New(cfg *config.Config) (*Orchestrator, error) {
	return NewWithGithub(cfg, gh.NewClient(cfg.TargetPath))
}

// NewWithGithub builds an orchestrator with an explicit code-hosting client
func NewWithGithub(cfg *config.Config, github GithubClient) (*Orchestrator, error) {
	gitClient, err := git.NewClientAt(cfg.TargetPath)
	if err != nil {
		return nil, err
	}

	resolutions, err := bank.Open(cfg.BankDir)
	if err != nil {
		return nil, err
	}
	usage := bank.NewUsage()

	log, err := runlog.New(cfg.Verbose, cfg.RunLog)
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		cfg:     cfg,
		git:     gitClient,
		github:  github,
		ws:      workspace.New(gitClient),
		merger:  commute.NewEngine(gitClient, resolutions, usage),
		bank:    resolutions,
		usage:   usage,
		report:  report.NewWriter(cfg.ReportDir, cfg.DumpConflicts),
		log:     log,
		prCache: make(map[int]gh.PR),
		fetched: make(map[int]bool),
	}, nil
}

// Close flushes the run log
func (o *Orchestrator) Close() {
	o.log.Sync()
}

// newRun initializes fresh run state. Only the reset step does this; every
// other step resumes from the state file.
func (o *Orchestrator) newRun() *RunState {
	o.state = &RunState{
		RunID:     common.GenerateRunID(),
		StartedAt: time.Now().UTC(),
		StatsByPR: make(map[int]commute.Stats),
	}
	return o.state
}

// loadRun resumes run state from the state file and restores the bank
// usage accumulator
func (o *Orchestrator) loadRun() error {
	if o.state != nil {
		return nil
	}
	state, err := LoadState(o.cfg.StateFile)
	if err != nil {
		return err
	}
	if state.StatsByPR == nil {
		state.StatsByPR = make(map[int]commute.Stats)
	}
	o.state = state
	o.usage.Restore(state.BankUsed)
	o.ws.SetBaseline(state.EffectiveBase)
	return nil
}

// saveRun snapshots the usage accumulator into the state and persists it
func (o *Orchestrator) saveRun() error {
	o.state.BankUsed = o.usage.Keys()
	return o.state.Save(o.cfg.StateFile)
}

// resolvePR returns the PR record for a number, querying the API and
// fetching the head commit into the repository at most once per run
func (o *Orchestrator) resolvePR(ctx context.Context, number int) (gh.PR, error) {
	pr, ok := o.prCache[number]
	if !ok {
		err := common.Retry(ctx, o.cfg.RetryAttempts, o.cfg.RetryBase,
			fmt.Sprintf("fetching PR #%d", number), func() error {
				fresh, viewErr := o.github.ViewPR(number)
				if viewErr != nil {
					return viewErr
				}
				pr = *fresh
				return nil
			})
		if err != nil {
			return gh.PR{}, err
		}
		o.prCache[number] = pr
	}

	if !o.fetched[number] {
		ref := fmt.Sprintf("pull/%d/head", number)
		err := common.Retry(ctx, o.cfg.RetryAttempts, o.cfg.RetryBase,
			fmt.Sprintf("fetching head of PR #%d", number), func() error {
				return o.git.Fetch(o.cfg.BaseRepository, ref)
			})
		if err != nil {
			return gh.PR{}, err
		}
		o.fetched[number] = true
	}

	return pr, nil
}

// record converts a PR to its serialized form
func record(pr gh.PR) PRRecord {
	return PRRecord{
		Number: pr.Number,
		Author: pr.Author,
		Title:  pr.Title,
		URL:    pr.URL,
	}
}

// reportContext stamps the run metadata for a conflict dump
func (o *Orchestrator) reportContext(kind, source string) report.Context {
	return report.Context{
		RunID:         o.state.RunID,
		Kind:          kind,
		Source:        source,
		TargetBranch:  o.cfg.TargetBranch,
		EffectiveBase: o.state.EffectiveBase,
	}
}
