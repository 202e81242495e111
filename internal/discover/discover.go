package discover

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/prestokit/stagecraft/internal/gh"
)

// DefaultFetchLimit caps how many PRs an auto-fetch requests. Hitting the
// cap means matching PRs beyond it were silently omitted.
const DefaultFetchLimit = 200

// ErrNoCandidates means the final candidate set came out empty
var ErrNoCandidates = errors.New("no candidate PRs remain after selection and exclusion")

// PRLister is the subset of the GitHub client discovery needs. raw counts
// the listing entries before draft filtering, for cap detection.
type PRLister interface {
	ListOpenPRs(labels []string, limit int) (prs []gh.PR, raw int, err error)
}

// Options selects the primary candidate source and its adjustments. Manual
// and auto-fetch are mutually exclusive: a non-empty Manual list disables
// auto-fetch.
type Options struct {
	AutoFetch  bool
	Manual     []int
	Exclude    []int
	Additional []int
	Labels     []string
	Limit      int
	// Select filters auto-fetched PRs, e.g. interactively. Nil keeps all.
	Select func([]gh.PR) ([]gh.PR, error)
}

// Result is the final candidate set plus whatever PR metadata the fetch
// already produced
type Result struct {
	// Candidates is ordered, deduplicated, first occurrence wins
	Candidates []int
	// Known caches PR records from auto-fetch, keyed by number
	Known map[int]gh.PR
	// Truncated is set when auto-fetch filled its cap, meaning more
	// matching PRs may exist
	Truncated bool
}

// ParseNumbers parses a comma- or space-separated list of PR numbers.
// Any non-numeric entry fails the whole list.
func ParseNumbers(list string) ([]int, error) {
	fields := strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	numbers := make([]int, 0, len(fields))
	for _, field := range fields {
		number, err := strconv.Atoi(strings.TrimPrefix(field, "#"))
		if err != nil || number <= 0 {
			return nil, fmt.Errorf("invalid PR number %q", field)
		}
		numbers = append(numbers, number)
	}
	return numbers, nil
}

// Candidates builds the final candidate set: primary source (manual list or
// auto-fetch), minus excludes, plus additional includes, deduplicated in
// first-seen order
func Candidates(lister PRLister, opts Options) (*Result, error) {
	result := &Result{Known: make(map[int]gh.PR)}

	var primary []int
	switch {
	case len(opts.Manual) > 0:
		primary = opts.Manual
	case opts.AutoFetch:
		limit := opts.Limit
		if limit <= 0 {
			limit = DefaultFetchLimit
		}
		prs, raw, err := lister.ListOpenPRs(opts.Labels, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch candidate PRs: %w", err)
		}
		// Drafts consume cap slots before they are filtered, so the cap
		// check must see the unfiltered count
		result.Truncated = raw >= limit
		if opts.Select != nil {
			if prs, err = opts.Select(prs); err != nil {
				return nil, err
			}
		}
		for _, pr := range prs {
			primary = append(primary, pr.Number)
			result.Known[pr.Number] = pr
		}
	}

	excluded := make(map[int]bool, len(opts.Exclude))
	for _, number := range opts.Exclude {
		excluded[number] = true
	}

	seen := make(map[int]bool)
	for _, number := range append(append([]int(nil), primary...), opts.Additional...) {
		if excluded[number] || seen[number] {
			continue
		}
		seen[number] = true
		result.Candidates = append(result.Candidates, number)
	}

	if len(result.Candidates) == 0 {
		return nil, ErrNoCandidates
	}
	return result, nil
}
