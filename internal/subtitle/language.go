package subtitle

import (
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// namedLanguages are matched by English display name ("English", "Spanish")
// for providers that label tracks that way.
var namedLanguages = []language.Tag{
	language.English, language.Spanish, language.French, language.German,
	language.Italian, language.Portuguese, language.BrazilianPortuguese,
	language.Dutch, language.Russian, language.Polish, language.Turkish,
	language.Arabic, language.Hebrew, language.Hindi, language.Japanese,
	language.Korean, language.Chinese, language.SimplifiedChinese,
	language.TraditionalChinese, language.Vietnamese, language.Thai,
	language.Indonesian, language.Swedish, language.Danish, language.Norwegian,
	language.Finnish, language.Greek, language.Czech, language.Hungarian,
	language.Romanian, language.Ukrainian, language.Persian,
}

// ParseLanguage interprets a provider language label: a BCP 47 / ISO 639 code
// ("en", "eng", "pt-BR") or an English language name ("English").
func ParseLanguage(label string) (language.Tag, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return language.Und, false
	}
	if tag, err := language.Parse(label); err == nil && tag != language.Und {
		return tag, true
	}
	namer := display.English.Tags()
	for _, tag := range namedLanguages {
		if strings.EqualFold(namer.Name(tag), label) {
			return tag, true
		}
	}
	return language.Und, false
}

// SameLanguage compares two tags by base language.
func SameLanguage(a, b language.Tag) bool {
	ba, _ := a.Base()
	bb, _ := b.Base()
	return ba == bb
}

// DetectLanguage returns the most frequent language over all cues.
func DetectLanguage(doc *Document) language.Tag {
	if doc == nil || len(doc.Cues) == 0 {
		return language.Und
	}

	counts := make(map[string]int)
	for _, cue := range doc.Cues {
		info := whatlanggo.Detect(cue.Text())
		if info.Script == nil {
			continue
		}
		code := info.Lang.Iso6391()
		if code == "" {
			continue
		}
		counts[code]++
	}

	var top string
	var topCount int
	for code, count := range counts {
		if count > topCount || (count == topCount && code < top) {
			top = code
			topCount = count
		}
	}
	if top == "" {
		return language.Und
	}
	return language.All.Make(top)
}
