package commute

import "context"

// Result classifies a merge attempt
type Result int

const (
	// Clean means the merge applied without any conflicts
	Clean Result = iota
	// Resolved means conflicts occurred and every one was auto-resolved
	Resolved
	// Conflicted means at least one conflict could not be resolved and the
	// merge was aborted
	Conflicted
)

// String returns the lowercase name of the result
func (r Result) String() string {
	switch r {
	case Clean:
		return "clean"
	case Resolved:
		return "resolved"
	case Conflicted:
		return "conflicted"
	}
	return "unknown"
}

// Stats counts conflict regions by how they were handled
type Stats struct {
	Regions    int `json:"regions"`
	ByBank     int `json:"by_bank"`
	ByCommute  int `json:"by_commute"`
	Unresolved int `json:"unresolved"`
}

// Add accumulates counts from another Stats
func (s *Stats) Add(other Stats) {
	s.Regions += other.Regions
	s.ByBank += other.ByBank
	s.ByCommute += other.ByCommute
	s.Unresolved += other.Unresolved
}

// FileConflict carries the three-way blobs of one unresolved file, for
// conflict reports
type FileConflict struct {
	Path   string
	Base   []byte
	Ours   []byte
	Theirs []byte
}

// Options controls a merge attempt
type Options struct {
	// EnableBank consults the resolution bank for conflict regions
	EnableBank bool
	// AutoContinue lets bank resolutions complete the merge without
	// confirmation. When false a bank hit is surfaced as a conflict
	// instead of silently applied.
	AutoContinue bool
	// Commit concludes a clean or fully-resolved merge with a commit
	Commit bool
	// Message is the merge commit message
	Message string
}

// Outcome is the result of one merge attempt
type Outcome struct {
	Result    Result
	Stats     Stats
	Conflicts []FileConflict
}

// Merger attempts a merge of a source ref onto the current HEAD of a
// workspace. On a Conflicted outcome the merge must be fully aborted;
// otherwise the merge is applied, left open for the caller to commit
// unless Options.Commit was set.
type Merger interface {
	AttemptMerge(ctx context.Context, sourceRef string, opts Options) (Outcome, error)
}
