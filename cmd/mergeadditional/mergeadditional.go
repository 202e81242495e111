package mergeadditional

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/prestokit/stagecraft/internal/config"
	"github.com/prestokit/stagecraft/internal/staging"
)

// Command merges a branch from the secondary repository
type Command struct {
	Flags config.Flags
}

// Register registers the command with cobra
func (c *Command) Register(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "merge-additional",
		Short: "Merge a branch from the additional repository",
		Long: `Fetch a branch from the additional repository and merge it into the
target branch with resolution-bank assistance. On success the effective
base commit moves to include the merge, so all later compatibility tests
run against it. A conflict aborts the run.`,
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
	return o.MergeAdditional(ctx)
}
