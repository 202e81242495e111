package bankcmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/prestokit/stagecraft/internal/bank"
	"github.com/prestokit/stagecraft/internal/ui"
)

// Command manages the resolution bank directly
type Command struct {
	BankDir string

	// record flags
	BasePath     string
	OursPath     string
	TheirsPath   string
	ResolvedPath string
	Note         string
}

// Register registers the command with cobra
func (c *Command) Register(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "bank",
		Short: "Inspect and extend the resolution bank",
	}
	cmd.PersistentFlags().StringVar(&c.BankDir, "bank-dir", ".stagecraft/resolutions", "Resolution bank directory")

	record := &cobra.Command{
		Use:   "record",
		Short: "Record a conflict resolution",
		Long: `Record the resolution of one conflict region. The base, ours, and theirs
files hold the region content from a conflict report; the resolved file
holds what the region should become. Future runs apply the resolution
automatically whenever the same three-way conflict appears.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.RunRecord()
		},
	}
	record.Flags().StringVar(&c.BasePath, "base", "", "File holding the base side of the conflict")
	record.Flags().StringVar(&c.OursPath, "ours", "", "File holding our side of the conflict")
	record.Flags().StringVar(&c.TheirsPath, "theirs", "", "File holding their side of the conflict")
	record.Flags().StringVar(&c.ResolvedPath, "resolved", "", "File holding the resolved content")
	record.Flags().StringVar(&c.Note, "note", "", "Note stored with the resolution")
	record.MarkFlagRequired("base")
	record.MarkFlagRequired("ours")
	record.MarkFlagRequired("theirs")
	record.MarkFlagRequired("resolved")

	list := &cobra.Command{
		Use:   "list",
		Short: "List resolution bank entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.RunList()
		},
	}

	cmd.AddCommand(record, list)
	parent.AddCommand(cmd)
}

// RunRecord records one resolution
func (c *Command) RunRecord() error {
	read := func(path string) ([]byte, error) {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return content, nil
	}

	base, err := read(c.BasePath)
	if err != nil {
		return err
	}
	ours, err := read(c.OursPath)
	if err != nil {
		return err
	}
	theirs, err := read(c.TheirsPath)
	if err != nil {
		return err
	}
	resolved, err := read(c.ResolvedPath)
	if err != nil {
		return err
	}

	b, err := bank.Open(c.BankDir)
	if err != nil {
		return err
	}

	key := bank.Key(base, ours, theirs)
	if err := b.Record(key, resolved); err != nil {
		return err
	}
	if c.Note != "" {
		if err := b.WriteMetadata(key[:12], bank.Metadata{Note: c.Note, Keys: []string{key}}); err != nil {
			return err
		}
	}

	ui.Successf("Recorded resolution %s", key)
	return nil
}

// RunList prints every bank entry with any note attached to it
func (c *Command) RunList() error {
	b, err := bank.Open(c.BankDir)
	if err != nil {
		return err
	}

	keys, err := b.Keys()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		ui.Infof("Resolution bank at %s is empty", b.Dir())
		return nil
	}

	notes := make(map[string]string)
	metas, err := b.ReadMetadata()
	if err != nil {
		return err
	}
	for _, meta := range metas {
		for _, key := range meta.Keys {
			notes[key] = meta.Note
		}
	}

	for _, key := range keys {
		if note := notes[key]; note != "" {
			ui.Printf("%s  %s\n", key, ui.Muted(note))
		} else {
			ui.Printf("%s\n", key)
		}
	}
	return nil
}
