package staging

import (
	"context"
	"fmt"

	"github.com/prestokit/stagecraft/internal/ui"
)

// Report prints the run summary: base commits, per-PR resolution stats,
// skipped PRs, and resolution bank utilization
func (o *Orchestrator) Report(ctx context.Context) error {
	if err := o.loadRun(); err != nil {
		return err
	}
	o.log.Step("report")

	ui.Title("Staging run " + o.state.RunID)
	ui.Printf("Base commit:      %s\n", o.state.ResetCommit)
	if o.state.AdditionalMergeCommit != "" {
		ui.Printf("Additional merge: %s\n", o.state.AdditionalMergeCommit)
	}
	ui.Println("")

	if len(o.state.Merged) > 0 {
		ui.Header("Merged PRs")
		for _, merged := range o.state.Merged {
			stats := o.state.StatsByPR[merged.Number]
			ui.Printf("  %s %s (%s)\n", ui.Bold(fmt.Sprintf("#%d", merged.Number)), merged.Title, short(merged.Commit))
			if stats.Regions > 0 {
				ui.Printf("      conflicts: %d resolved by bank, %d by commute, %d unresolved\n",
					stats.ByBank, stats.ByCommute, stats.Unresolved)
			}
		}
		ui.Println("")
	}

	if len(o.state.Dropped) > 0 {
		ui.Header("Skipped PRs (conflicting with baseline)")
		for _, dropped := range o.state.Dropped {
			ui.Printf("  #%d %s by %s (%s)\n", dropped.Number, dropped.Title, dropped.Author, dropped.URL)
		}
		ui.Println("")
	}

	return o.reportBankUtilization()
}

// reportBankUtilization prints which bank entries this run used, and which
// exist but went unused (candidates for purging)
func (o *Orchestrator) reportBankUtilization() error {
	keys, err := o.bank.Keys()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		ui.Info("Resolution bank is empty")
		return nil
	}

	var unused []string
	used := 0
	for _, key := range keys {
		if o.usage.Used(key) {
			used++
		} else {
			unused = append(unused, key)
		}
	}

	ui.Header(fmt.Sprintf("Resolution bank: %d of %d entries used", used, len(keys)))
	for _, key := range unused {
		ui.Printf("  unused %s\n", shortKey(key))
	}
	return nil
}
