package provider

import (
	"strings"

	"golang.org/x/text/language"

	"github.com/MimeLyc/caption-pipeline/internal/subtitle"
)

// Select returns the first track in the source language, or the first track
// when none matches. tracks must not be empty.
func Select(tracks []Track, source language.Tag) Track {
	for _, t := range tracks {
		if matchesLanguage(t.Language, source) {
			return t
		}
	}
	return tracks[0]
}

func matchesLanguage(label string, want language.Tag) bool {
	if strings.TrimSpace(label) == "" || want == language.Und {
		return false
	}
	tag, ok := subtitle.ParseLanguage(label)
	return ok && subtitle.SameLanguage(tag, want)
}
