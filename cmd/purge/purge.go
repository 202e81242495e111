package purge

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/prestokit/stagecraft/internal/config"
	"github.com/prestokit/stagecraft/internal/staging"
)

// Command deletes unused resolution bank entries
type Command struct {
	Flags config.Flags
}

// Register registers the command with cobra
func (c *Command) Register(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete resolution bank entries unused by this run",
		Long: `Delete every resolution bank entry that no merge of this run consulted,
and drop metadata files whose every referenced entry was deleted. This is
destructive and only runs with the explicit --purge-unused-resolutions
flag.`,
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
	return o.Purge(ctx)
}
