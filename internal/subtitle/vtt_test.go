package subtitle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertToVTT(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "timing line rewritten",
			input: "1\n00:01:02,345 --> 00:01:04,000\nHello\n",
			want:  "WEBVTT\n\n1\n00:01:02.345 --> 00:01:04.000\nHello\n",
		},
		{
			name:  "timestamp inside dialogue untouched",
			input: "1\n00:00:01,000 --> 00:00:02,000\nMeet me at 00:01:02,345 sharp\n",
			want:  "WEBVTT\n\n1\n00:00:01.000 --> 00:00:02.000\nMeet me at 00:01:02,345 sharp\n",
		},
		{
			name:  "crlf normalized",
			input: "1\r\n00:00:01,000 --> 00:00:02,500\r\nHi\r\n",
			want:  "WEBVTT\n\n1\n00:00:01.000 --> 00:00:02.500\nHi\n",
		},
		{
			name:  "bom and leading blank lines dropped",
			input: "\uFEFF\n\n1\n00:00:01,000 --> 00:00:02,000\nHi",
			want:  "WEBVTT\n\n1\n00:00:01.000 --> 00:00:02.000\nHi",
		},
		{
			name:  "existing header kept once",
			input: "WEBVTT\n\n00:00:01.000 --> 00:00:02.000\nHi\n",
			want:  "WEBVTT\n\n00:00:01.000 --> 00:00:02.000\nHi\n",
		},
		{
			name:  "coordinates after timing preserved",
			input: "1\n00:00:01,000 --> 00:00:02,000 X1:10 X2:20\nHi\n",
			want:  "WEBVTT\n\n1\n00:00:01.000 --> 00:00:02.000 X1:10 X2:20\nHi\n",
		},
		{
			name:  "empty input",
			input: "",
			want:  "WEBVTT\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConvertToVTT(tt.input))
		})
	}
}

func TestConvertToVTT_PreservesCueStructure(t *testing.T) {
	src := "1\n00:00:01,000 --> 00:00:02,000\nOne\n\n2\n00:00:03,000 --> 00:00:04,000\nTwo\nlines\n"

	out := ConvertToVTT(src)

	body := strings.TrimPrefix(out, "WEBVTT\n\n")
	assert.Equal(t, strings.ReplaceAll(src, ",", "."), body)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, LineBlank, Classify("   "))
	assert.Equal(t, LineIndex, Classify("12"))
	assert.Equal(t, LineTiming, Classify("00:00:01,000 --> 00:00:02,000"))
	assert.Equal(t, LineTiming, Classify(" 00:00:01.000-->00:00:02.000"))
	assert.Equal(t, LineText, Classify("00:00:01,000 is when it starts"))
	assert.Equal(t, LineText, Classify("- Hello, 12 times"))
}
