package merge

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/prestokit/stagecraft/internal/config"
	"github.com/prestokit/stagecraft/internal/staging"
)

// Command performs the real sequential merges
type Command struct {
	Flags config.Flags
}

// Register registers the command with cobra
func (c *Command) Register(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge the verified candidate PRs in order",
		Long: `Merge every pairwise-verified candidate PR into the target branch in
candidate order, with resolution-bank assistance. A conflict at this stage
aborts the whole run: the verifier declared the set safe, so skipping a PR
here would silently produce a different staging branch than what was
validated.`,
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
	return o.Merge(ctx)
}
