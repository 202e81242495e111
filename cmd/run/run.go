package run

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/prestokit/stagecraft/internal/config"
	"github.com/prestokit/stagecraft/internal/staging"
)

// Command executes the full staging pipeline
type Command struct {
	Flags config.Flags
}

// Register registers the command with cobra
func (c *Command) Register(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full staging pipeline",
		Long: `Run every pipeline step in order: reset, merge-additional, fetch-prs,
test-merge, test-pairwise, merge, manifest, push, report, purge.

Example:
  stagecraft run --target-path ./checkout \
    --base-repository https://github.com/example/project.git \
    --base-branch main --target-branch staging \
    --auto-fetch-prs --pr-labels staging-candidate \
    --mode ci --dump-conflicts`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Run(cmd.Context())
		},
	}
	c.Flags.Register(cmd)
	parent.AddCommand(cmd)
}

// Run executes the command
func (c *Command) Run(ctx context.Context) error {
	cfg, err := c.Flags.Resolve()
	if err != nil {
		return err
	}
	o, err := staging.New(cfg)
	if err != nil {
		return err
	}
	defer o.Close()
	return o.Run(ctx)
}
