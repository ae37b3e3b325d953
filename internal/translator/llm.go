package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ChatClient is the subset of the LLM client used for translation.
type ChatClient interface {
	SimpleChat(ctx context.Context, prompt string, systemPrompt string) (string, error)
}

// LLMTranslator translates one line per chat completion.
type LLMTranslator struct {
	client ChatClient
}

func NewLLMTranslator(client ChatClient) *LLMTranslator {
	return &LLMTranslator{client: client}
}

func (t *LLMTranslator) Translate(ctx context.Context, text string, source, target language.Tag) (string, error) {
	content, err := t.client.SimpleChat(ctx, text, buildLinePrompt(source, target))
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	return cleanOutput(content, text)
}

func buildLinePrompt(source, target language.Tag) string {
	var prompt strings.Builder

	prompt.WriteString("You are a professional subtitle translator. ")
	prompt.WriteString("Translate the subtitle line from ")
	prompt.WriteString(languageName(source))
	prompt.WriteString(" to ")
	prompt.WriteString(languageName(target))
	prompt.WriteString(".\n\n")

	prompt.WriteString("=== TRANSLATION GUIDELINES ===\n")
	prompt.WriteString("1. Keep the translation short enough to read on screen\n")
	prompt.WriteString("2. Keep names, numbers and markup tags such as <i> unchanged\n")
	prompt.WriteString("3. Translate exactly one line; never add line breaks\n")

	prompt.WriteString("\n=== OUTPUT FORMAT ===\n")
	prompt.WriteString("Return ONLY the translated line. Do not include quotes, explanations or notes.\n")

	return prompt.String()
}

func languageName(tag language.Tag) string {
	if tag == language.Und {
		return "the detected language"
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return tag.String()
}

var quotePairs = [][2]string{{`"`, `"`}, {"\u201c", "\u201d"}}

// cleanOutput strips wrappers models commonly add around a one-line answer.
func cleanOutput(content, original string) (string, error) {
	out := strings.TrimSpace(content)
	if strings.HasPrefix(out, "```") {
		out = strings.TrimPrefix(out, "```")
		if i := strings.IndexByte(out, '\n'); i >= 0 && !strings.Contains(out[:i], " ") {
			out = out[i+1:]
		}
		out = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(out), "```"))
	}
	for _, q := range quotePairs {
		if len(out) > len(q[0])+len(q[1]) &&
			strings.HasPrefix(out, q[0]) && strings.HasSuffix(out, q[1]) &&
			!strings.HasPrefix(strings.TrimSpace(original), q[0]) {
			out = strings.TrimSpace(out[len(q[0]) : len(out)-len(q[1])])
			break
		}
	}
	if out == "" {
		return "", errors.New("empty translation")
	}
	return out, nil
}
