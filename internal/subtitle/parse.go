package subtitle

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Parse reads SRT text into a Document. Cue numbers are optional; a cue
// starts at a timing line and ends at the next blank line.
func Parse(src string) (*Document, error) {
	var cues []Cue

	current := Cue{}
	state := "index" // index, time, text
	pendingIndex := 0

	flush := func() {
		if len(current.Lines) > 0 {
			cues = append(cues, current)
		}
		current = Cue{}
		state = "index"
	}

	for n, raw := range SplitLines(src) {
		line := strings.TrimSpace(raw)

		switch state {
		case "index":
			if line == "" {
				continue
			}
			if IsIndexLine(line) {
				pendingIndex, _ = strconv.Atoi(line)
				state = "time"
				continue
			}
			if !IsTimingLine(line) {
				continue // stray text outside a cue
			}
			fallthrough

		case "time":
			if line == "" {
				continue
			}
			start, end, err := parseTimingLine(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", n+1, err)
			}
			current.Index = pendingIndex
			if current.Index == 0 {
				current.Index = len(cues) + 1
			}
			current.Start = start
			current.End = end
			pendingIndex = 0
			state = "text"

		case "text":
			if line == "" {
				flush()
				continue
			}
			current.Lines = append(current.Lines, line)
		}
	}
	if state == "text" {
		flush()
	}

	return &Document{Cues: cues, Format: "SRT"}, nil
}

// Validate checks that cue start times never go backwards.
func (d *Document) Validate() error {
	for i := 1; i < len(d.Cues); i++ {
		if d.Cues[i].Start < d.Cues[i-1].Start {
			return fmt.Errorf("cue %d starts at %s, before cue %d at %s",
				d.Cues[i].Index, d.Cues[i].Start, d.Cues[i-1].Index, d.Cues[i-1].Start)
		}
	}
	return nil
}

func parseTimingLine(line string) (time.Duration, time.Duration, error) {
	m := timingLineRe.FindStringSubmatch(line)
	if m == nil {
		return 0, 0, fmt.Errorf("invalid time format: %s", line)
	}
	return toDuration(m[1], m[2], m[3], m[4]), toDuration(m[5], m[6], m[7], m[8]), nil
}

func toDuration(hours, minutes, seconds, millis string) time.Duration {
	h, _ := strconv.Atoi(hours)
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(seconds)
	ms, _ := strconv.Atoi(millis)

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond
}
