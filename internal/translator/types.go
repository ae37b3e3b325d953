package translator

import (
	"context"

	"golang.org/x/text/language"
)

// LineTranslator translates a single line of text.
type LineTranslator interface {
	Translate(ctx context.Context, text string, source, target language.Tag) (string, error)
}

// Memory is a persistent second-level cache consulted on LRU misses.
type Memory interface {
	LookupTranslation(ctx context.Context, source, target, text string) (string, bool, error)
	SaveTranslation(ctx context.Context, source, target, text, translated string) error
}

// CacheKey identifies a translation by language pair and trimmed source text.
type CacheKey struct {
	Source string
	Target string
	Text   string
}

func newCacheKey(source, target language.Tag, text string) CacheKey {
	return CacheKey{Source: langCode(source), Target: langCode(target), Text: text}
}

func (k CacheKey) String() string {
	return k.Source + "\x00" + k.Target + "\x00" + k.Text
}

// Stats summarizes one TranslateDocument run.
type Stats struct {
	TextLines  int
	Distinct   int
	CacheHits  int
	Translated int
	Failed     int
}

// langCode returns the base language code, "auto" for an undetermined tag.
func langCode(tag language.Tag) string {
	if tag == language.Und {
		return "auto"
	}
	base, _ := tag.Base()
	return base.String()
}
