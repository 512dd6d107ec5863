// Package prompt assembles the chat messages sent to the model and sizes
// the completion budget.
package prompt

import (
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/tiktoken-go/tokenizer"
)

const (
	// BaseMaxTokens is granted to every request.
	BaseMaxTokens = 2048
	// MaxExtraTokens caps the size-proportional bonus.
	MaxExtraTokens = 1000
	// unitsPerExtraToken converts input length into bonus tokens.
	unitsPerExtraToken = 100
)

// System returns the system message for a sourceLang -> targetLang request.
// Language names are used exactly as the caller supplied them.
func System(sourceLang, targetLang string) string {
	return fmt.Sprintf("You are a knowledgeable assistant skilled in translating code from %s to %s.", sourceLang, targetLang)
}

// User returns the instruction followed by a blank line and the code.
func User(sourceLang, targetLang, code string) string {
	return fmt.Sprintf("Translate the following code from %s to %s:\n\n%s", sourceLang, targetLang, code)
}

// MaxTokens is BaseMaxTokens plus one token per 100 UTF-16 code units of
// code, with the bonus capped at MaxExtraTokens.
func MaxTokens(code string) int {
	return BaseMaxTokens + min(UTF16Len(code)/unitsPerExtraToken, MaxExtraTokens)
}

// UTF16Len returns the length of s in UTF-16 code units. Invalid UTF-8
// bytes count as one unit each, like U+FFFD.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}

// CountTokens approximates how many prompt tokens text costs for model.
// It is informational only; MaxTokens does not depend on it.
func CountTokens(model, text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	enc, err := codecForModel(model)
	if err != nil {
		return 0, fmt.Errorf("load tokenizer: %w", err)
	}
	return enc.Count(text)
}

func codecForModel(model string) (tokenizer.Codec, error) {
	m := strings.ToLower(strings.TrimSpace(model))
	switch {
	case m == "":
		return tokenizer.Get(tokenizer.Cl100kBase)
	case strings.HasPrefix(m, "gpt-4o"):
		return tokenizer.ForModel(tokenizer.GPT4o)
	case strings.HasPrefix(m, "gpt-4"):
		return tokenizer.ForModel(tokenizer.GPT4)
	case strings.HasPrefix(m, "gpt-3.5"), strings.HasPrefix(m, "gpt-3"):
		return tokenizer.ForModel(tokenizer.GPT35Turbo)
	default:
		return tokenizer.Get(tokenizer.Cl100kBase)
	}
}
