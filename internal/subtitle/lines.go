package subtitle

import (
	"regexp"
	"strings"
)

var (
	// HH:MM:SS,mmm --> HH:MM:SS,mmm with optional cue settings after whitespace.
	timingLineRe = regexp.MustCompile(`^\s*(\d{2,}):(\d{2}):(\d{2})[,.](\d{3})\s*-->\s*(\d{2,}):(\d{2}):(\d{2})[,.](\d{3})(?:\s.*)?$`)
	indexLineRe  = regexp.MustCompile(`^\s*\d+\s*$`)
)

const utf8BOM = "\uFEFF"

// IsTimingLine reports whether line is a cue timing line.
func IsTimingLine(line string) bool {
	return timingLineRe.MatchString(line)
}

// IsIndexLine reports whether line holds nothing but a cue number.
func IsIndexLine(line string) bool {
	return indexLineRe.MatchString(line)
}

func Classify(line string) LineKind {
	switch {
	case strings.TrimSpace(line) == "":
		return LineBlank
	case IsTimingLine(line):
		return LineTiming
	case IsIndexLine(line):
		return LineIndex
	default:
		return LineText
	}
}

// SplitLines normalizes line endings, strips a leading BOM and splits src into lines.
func SplitLines(src string) []string {
	src = strings.TrimPrefix(src, utf8BOM)
	src = strings.ReplaceAll(src, "\r\n", "\n")
	src = strings.ReplaceAll(src, "\r", "\n")
	return strings.Split(src, "\n")
}
