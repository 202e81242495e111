package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prestokit/stagecraft/internal/commute"
)

// Context is the run metadata stamped into every conflict report
type Context struct {
	RunID         string
	Kind          string // "individual", "pairwise", "merge", "additional-branch"
	Source        string // the ref that was merging
	TargetBranch  string
	EffectiveBase string
}

// Writer persists conflict reports under a directory, one subdirectory per
// conflicting PR or PR pair. Disabled writers drop everything.
type Writer struct {
	dir     string
	enabled bool
	now     func() time.Time
}

// NewWriter creates a report writer rooted at dir. When enabled is false
// all dumps are no-ops.
func NewWriter(dir string, enabled bool) *Writer {
	return &Writer{dir: dir, enabled: enabled, now: time.Now}
}

// Enabled reports whether dumps are persisted
func (w *Writer) Enabled() bool {
	return w.enabled
}

// DumpConflicts writes one report directory holding the three-way blobs of
// every unresolved file, an index mapping sanitized names back to original
// paths, and the run metadata. Returns the report directory path.
func (w *Writer) DumpConflicts(label string, ctx Context, conflicts []commute.FileConflict) (string, error) {
	if !w.enabled {
		return "", nil
	}

	stamp := w.now().UTC().Format("20060102-150405")
	dir := filepath.Join(w.dir, fmt.Sprintf("%s-%s-%s", stamp, ctx.Kind, label))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create conflict report dir: %w", err)
	}

	var index strings.Builder
	for _, conflict := range conflicts {
		name := SanitizePath(conflict.Path)
		sides := map[string][]byte{
			".base":   conflict.Base,
			".ours":   conflict.Ours,
			".theirs": conflict.Theirs,
		}
		for suffix, content := range sides {
			if err := os.WriteFile(filepath.Join(dir, name+suffix), content, 0644); err != nil {
				return "", fmt.Errorf("failed to write conflict blob: %w", err)
			}
		}
		fmt.Fprintf(&index, "%s\t%s\n", name, conflict.Path)
	}

	if err := os.WriteFile(filepath.Join(dir, "FILE_INDEX.tsv"), []byte(index.String()), 0644); err != nil {
		return "", fmt.Errorf("failed to write file index: %w", err)
	}

	meta := fmt.Sprintf(
		"run_id: %s\nkind: %s\nsource: %s\ntarget_branch: %s\neffective_base: %s\ntimestamp: %s\n",
		ctx.RunID, ctx.Kind, ctx.Source, ctx.TargetBranch, ctx.EffectiveBase,
		w.now().UTC().Format(time.RFC3339),
	)
	if err := os.WriteFile(filepath.Join(dir, "CONFLICT_CONTEXT.txt"), []byte(meta), 0644); err != nil {
		return "", fmt.Errorf("failed to write conflict context: %w", err)
	}

	return dir, nil
}

// SanitizePath flattens a repository path into a single file name
func SanitizePath(path string) string {
	var b strings.Builder
	for _, r := range path {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == '/':
			b.WriteString("__")
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
