package commute

import (
	"bytes"
	"fmt"
)

// Region is one three-way conflict inside a merged file: what the merge base
// held, and what each side changed it to
type Region struct {
	Base   []byte
	Ours   []byte
	Theirs []byte
}

// segment is either plain merged text or an unresolved conflict region
type segment struct {
	text     []byte
	conflict *Region
}

// Conflict markers as emitted by git merge-file --diff3
var (
	markerOurs   = []byte("<<<<<<<")
	markerBase   = []byte("|||||||")
	markerSplit  = []byte("=======")
	markerTheirs = []byte(">>>>>>>")
)

// parseConflicts splits diff3-marked content into plain segments and
// conflict regions, preserving the surrounding text byte for byte
func parseConflicts(content []byte) ([]segment, error) {
	var segments []segment
	var plain bytes.Buffer

	lines := splitLines(content)
	for i := 0; i < len(lines); {
		if !bytes.HasPrefix(lines[i], markerOurs) {
			plain.Write(lines[i])
			i++
			continue
		}

		if plain.Len() > 0 {
			segments = append(segments, segment{text: append([]byte(nil), plain.Bytes()...)})
			plain.Reset()
		}

		region := Region{}
		i++ // past <<<<<<<
		start := i
		for i < len(lines) && !bytes.HasPrefix(lines[i], markerBase) {
			i++
		}
		if i == len(lines) {
			return nil, fmt.Errorf("unterminated conflict: missing base marker")
		}
		region.Ours = join(lines[start:i])

		i++ // past |||||||
		start = i
		for i < len(lines) && !bytes.HasPrefix(lines[i], markerSplit) {
			i++
		}
		if i == len(lines) {
			return nil, fmt.Errorf("unterminated conflict: missing separator")
		}
		region.Base = join(lines[start:i])

		i++ // past =======
		start = i
		for i < len(lines) && !bytes.HasPrefix(lines[i], markerTheirs) {
			i++
		}
		if i == len(lines) {
			return nil, fmt.Errorf("unterminated conflict: missing end marker")
		}
		region.Theirs = join(lines[start:i])
		i++ // past >>>>>>>

		segments = append(segments, segment{conflict: &region})
	}

	if plain.Len() > 0 {
		segments = append(segments, segment{text: plain.Bytes()})
	}
	return segments, nil
}

// splitLines splits content into lines, each keeping its trailing newline
func splitLines(content []byte) [][]byte {
	var lines [][]byte
	for len(content) > 0 {
		idx := bytes.IndexByte(content, '\n')
		if idx < 0 {
			lines = append(lines, content)
			break
		}
		lines = append(lines, content[:idx+1])
		content = content[idx+1:]
	}
	return lines
}

func join(lines [][]byte) []byte {
	return bytes.Join(lines, nil)
}
