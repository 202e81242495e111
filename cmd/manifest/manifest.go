package manifestcmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/prestokit/stagecraft/internal/config"
	"github.com/prestokit/stagecraft/internal/staging"
)

// Command commits the staging manifest
type Command struct {
	Flags config.Flags
}

// Register registers the command with cobra
func (c *Command) Register(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Commit the staging manifest on the target branch",
		Long: `Generate the YAML manifest recording the baseline, the optional
additional merge, and every merged PR, and commit it on the target branch.
PR authorship and titles are fetched fresh from the API so the manifest
reflects any updates since the candidate set was built.`,
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
	return o.Manifest(ctx)
}
