package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	bankcmd "github.com/prestokit/stagecraft/cmd/bank"
	"github.com/prestokit/stagecraft/cmd/fetch"
	manifestcmd "github.com/prestokit/stagecraft/cmd/manifest"
	"github.com/prestokit/stagecraft/cmd/merge"
	"github.com/prestokit/stagecraft/cmd/mergeadditional"
	"github.com/prestokit/stagecraft/cmd/purge"
	"github.com/prestokit/stagecraft/cmd/push"
	reportcmd "github.com/prestokit/stagecraft/cmd/report"
	"github.com/prestokit/stagecraft/cmd/reset"
	"github.com/prestokit/stagecraft/cmd/run"
	"github.com/prestokit/stagecraft/cmd/testmerge"
	"github.com/prestokit/stagecraft/cmd/testpairwise"
	"github.com/prestokit/stagecraft/internal/ui"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stagecraft",
	Short: "Staging branch creator",
	Long: `Stagecraft builds validated staging branches.

It resets a target branch to an upstream baseline, selects a set of pull
requests, verifies that every PR merges cleanly both individually and
pairwise, applies a persistent bank of previously-recorded conflict
resolutions, merges the validated set in order, and commits a manifest
recording exactly what went in.

Each pipeline step is also invokable on its own for step-wise CI execution;
steps share their state through a run-state file.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.Error(err.Error())
		os.Exit(1)
	}
}

func init() {
	// Register all commands
	commands := []Command{
		&run.Command{},
		&reset.Command{},
		&fetch.Command{},
		&testmerge.Command{},
		&testpairwise.Command{},
		&merge.Command{},
		&mergeadditional.Command{},
		&manifestcmd.Command{},
		&push.Command{},
		&reportcmd.Command{},
		&purge.Command{},
		&bankcmd.Command{},
	}

	for _, cmd := range commands {
		cmd.Register(rootCmd)
	}
}
