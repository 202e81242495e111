package testpairwise

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/prestokit/stagecraft/internal/config"
	"github.com/prestokit/stagecraft/internal/staging"
)

// Command trial-merges every pair of surviving candidates
type Command struct {
	Flags config.Flags
}

// Register registers the command with cobra
func (c *Command) Register(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "test-pairwise",
		Short: "Trial-merge every pair of candidate PRs",
		Long: `For every pair of surviving candidates, merge the first and attempt the
second on top, to detect cross-PR conflicts before any real merge happens.
Any conflicting pair fails the run after the full compatibility matrix and
the PRs involved are printed: an undetected cross-PR conflict would corrupt
the staging branch, so pairwise conflicts are never tolerated.`,
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
	return o.TestPairwise(ctx)
}
