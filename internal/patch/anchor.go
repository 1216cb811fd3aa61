package patch

import (
	"fmt"
	"strings"
)

// neonGuard is the architecture-conditional block the shims belong in when
// the file has one.
const neonGuard = "#if defined(__ARM_NEON)"

// insertionPoint chooses the line index at which the compatibility block
// should be inserted. Preference order: just inside the __ARM_NEON guard
// block when one exists, otherwise immediately after the last #include of
// the file's preamble. The returned index is always strictly inside the
// file: insertion never lands on line zero and never appends past the last
// line, and no existing line is overwritten.
func insertionPoint(lines []string) (int, error) {
	if idx := guardInterior(lines); idx > 0 && idx < len(lines) {
		return idx, nil
	}
	if idx := afterPreamble(lines); idx > 0 && idx < len(lines) {
		return idx, nil
	}
	return 0, fmt.Errorf("no safe insertion point: neither an %s guard nor an include preamble was found", neonGuard)
}

// guardInterior returns the index of the first line inside the __ARM_NEON
// guard, or 0 when the guard is absent.
func guardInterior(lines []string) int {
	for i, line := range lines {
		if strings.TrimSpace(line) == neonGuard {
			return i + 1
		}
	}
	return 0
}

// afterPreamble returns the index just past the last #include in the
// file's leading preamble, or 0 when the file has no include preamble.
// The preamble is the initial run of includes, other preprocessor
// directives, comments and blank lines; an include appearing after real
// code does not count.
func afterPreamble(lines []string) int {
	last := -1
	inBlockComment := false

	for i, raw := range lines {
		line := strings.TrimSpace(raw)

		if inBlockComment {
			if strings.Contains(line, "*/") {
				inBlockComment = false
			}
			continue
		}

		switch {
		case line == "", strings.HasPrefix(line, "//"):
			continue
		case strings.HasPrefix(line, "/*"):
			if !strings.Contains(line, "*/") {
				inBlockComment = true
			}
			continue
		case strings.HasPrefix(line, "#include"):
			last = i
			continue
		case strings.HasPrefix(line, "#"):
			// other preprocessor directives may be interleaved with
			// the includes
			continue
		default:
			// first line of real code ends the preamble
			if last < 0 {
				return 0
			}
			return last + 1
		}
	}

	if last < 0 {
		return 0
	}
	return last + 1
}
