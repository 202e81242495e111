package discover

import (
	"fmt"
	"os"

	"github.com/ktr0731/go-fuzzyfinder"

	"github.com/prestokit/stagecraft/internal/gh"
)

// SelectInteractive presents the auto-fetched PRs in a fuzzy finder for
// multi-select. Cancelling keeps the full list.
func SelectInteractive(prs []gh.PR) ([]gh.PR, error) {
	if len(prs) == 0 {
		return prs, nil
	}

	// Flush stdout/stderr before starting fuzzy finder to clear any ANSI sequences
	os.Stdout.Sync()
	os.Stderr.Sync()

	indexes, err := fuzzyfinder.FindMulti(
		prs,
		func(i int) string {
			return fmt.Sprintf("#%d %s (%s)", prs[i].Number, prs[i].Title, prs[i].Author)
		},
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i == -1 {
				return ""
			}
			return fmt.Sprintf("#%d %s\n\nauthor: %s\nhead:   %s:%s\nsha:    %s\n%s",
				prs[i].Number, prs[i].Title, prs[i].Author,
				prs[i].HeadOwner, prs[i].HeadRef, prs[i].HeadSHA, prs[i].URL)
		}),
	)
	if err != nil {
		// User cancelled (Ctrl+C or ESC)
		return prs, nil
	}

	selected := make([]gh.PR, 0, len(indexes))
	for _, idx := range indexes {
		selected = append(selected, prs[idx])
	}
	return selected, nil
}
