package subtitle

import "strings"

const vttHeader = "WEBVTT"

// ConvertToVTT turns SRT text into WebVTT. Only timing lines are rewritten
// (the fractional-second comma becomes a period); index and text lines are
// copied unchanged, even when dialogue contains something that looks like a
// timestamp.
func ConvertToVTT(src string) string {
	lines := SplitLines(src)

	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	lines = lines[start:]

	var sb strings.Builder
	sb.Grow(len(src) + len(vttHeader) + 2)

	hasHeader := len(lines) > 0 && strings.HasPrefix(lines[0], vttHeader)
	if !hasHeader {
		sb.WriteString(vttHeader)
		sb.WriteString("\n\n")
	}

	for i, line := range lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(rewriteTiming(line))
	}
	return sb.String()
}

func rewriteTiming(line string) string {
	loc := timingLineRe.FindStringSubmatchIndex(line)
	if loc == nil {
		return line
	}
	// groups 3 and 7 are the seconds of each timestamp; the separator follows them
	firstSep := loc[2*3+1]
	secondSep := loc[2*7+1]
	b := []byte(line)
	b[firstSep] = '.'
	b[secondSep] = '.'
	return string(b)
}
