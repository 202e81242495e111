package verify

import (
	"fmt"
	"sort"
	"strings"
)

// Matrix records the pairwise compatibility verdicts over the candidate set.
// Verdicts are symmetric: the trial merges are directionally ordered, but
// whether two PRs conflict is direction-independent, so one cell is stored
// per unordered pair.
type Matrix struct {
	order    []int
	conflict map[[2]int]bool
}

// NewMatrix creates an empty matrix over the candidates in order
func NewMatrix(candidates []int) *Matrix {
	return &Matrix{
		order:    append([]int(nil), candidates...),
		conflict: make(map[[2]int]bool),
	}
}

// key normalizes a pair to its unordered form
func key(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// SetConflict marks the pair (a, b) as conflicting
func (m *Matrix) SetConflict(a, b int) {
	m.conflict[key(a, b)] = true
}

// Conflicting reports whether the pair (a, b) conflicts
func (m *Matrix) Conflicting(a, b int) bool {
	return m.conflict[key(a, b)]
}

// HasConflicts reports whether any pair conflicts
func (m *Matrix) HasConflicts() bool {
	return len(m.conflict) > 0
}

// ConflictingPRs returns every PR touching at least one conflicting pair,
// in candidate order
func (m *Matrix) ConflictingPRs() []int {
	touched := make(map[int]bool)
	for pair := range m.conflict {
		touched[pair[0]] = true
		touched[pair[1]] = true
	}
	var prs []int
	for _, number := range m.order {
		if touched[number] {
			prs = append(prs, number)
		}
	}
	return prs
}

// ConflictingPairs returns the conflicting pairs, sorted
func (m *Matrix) ConflictingPairs() [][2]int {
	pairs := make([][2]int, 0, len(m.conflict))
	for pair := range m.conflict {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
	return pairs
}

// Render formats the matrix as a square grid indexed by PR number in
// candidate order. The diagonal is blank; off-diagonal cells read OK or XX.
// Columns are sized to the longest "#NNN" label.
func (m *Matrix) Render() string {
	width := 0
	for _, number := range m.order {
		if l := len(fmt.Sprintf("#%d", number)); l > width {
			width = l
		}
	}

	cell := func(s string) string {
		return fmt.Sprintf(" %*s", width, s)
	}

	var b strings.Builder
	b.WriteString(cell(""))
	for _, number := range m.order {
		b.WriteString(cell(fmt.Sprintf("#%d", number)))
	}
	b.WriteByte('\n')

	for _, row := range m.order {
		b.WriteString(cell(fmt.Sprintf("#%d", row)))
		for _, col := range m.order {
			switch {
			case row == col:
				b.WriteString(cell(""))
			case m.Conflicting(row, col):
				b.WriteString(cell("XX"))
			default:
				b.WriteString(cell("OK"))
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
