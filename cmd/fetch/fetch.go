package fetch

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/prestokit/stagecraft/internal/config"
	"github.com/prestokit/stagecraft/internal/staging"
)

// Command builds the candidate PR set
type Command struct {
	Flags config.Flags
}

// Register registers the command with cobra
func (c *Command) Register(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "fetch-prs",
		Short: "Build the candidate PR set",
		Long: `Build the candidate set either from open, non-draft PRs matching the
given labels, or from an explicit manual list (which disables auto-fetch).
Exclusions and additional includes apply afterwards; duplicates keep their
first occurrence.

Example:
  stagecraft fetch-prs --auto-fetch-prs --pr-labels staging
  stagecraft fetch-prs --manual-pr-numbers "101,102,103"`,
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
	return o.FetchPRs(ctx)
}
