package subtitle

import "time"

// Cue is one timed caption entry.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Lines []string
}

// Document is an ordered sequence of cues parsed from SRT text.
type Document struct {
	Cues   []Cue
	Format string
}

// Text returns the cue lines joined with newlines.
func (c Cue) Text() string {
	switch len(c.Lines) {
	case 0:
		return ""
	case 1:
		return c.Lines[0]
	}
	n := len(c.Lines) - 1
	for _, l := range c.Lines {
		n += len(l)
	}
	b := make([]byte, 0, n)
	for i, l := range c.Lines {
		if i > 0 {
			b = append(b, '\n')
		}
		b = append(b, l...)
	}
	return string(b)
}

type LineKind int

const (
	LineBlank LineKind = iota
	LineIndex
	LineTiming
	LineText
)

func (k LineKind) String() string {
	switch k {
	case LineBlank:
		return "blank"
	case LineIndex:
		return "index"
	case LineTiming:
		return "timing"
	case LineText:
		return "text"
	default:
		return "unknown"
	}
}
