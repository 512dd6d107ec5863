// Package postprocess removes model artifacts from a completion before it is
// returned as translated code.
//
// Some OpenAI-compatible models (DeepSeek-R1, Qwen3, ...) open their reply
// with a reasoning block. Only blocks at the very start of the reply are
// removed, so markup inside the translated code itself is never touched.
package postprocess

import (
	"regexp"
	"strings"
)

// leadingBlockRe matches one complete reasoning block at the start of text.
// Each tag is listed explicitly because RE2 has no backreferences.
var leadingBlockRe = regexp.MustCompile(
	`(?is)^\s*(?:<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>)`,
)

// leadingOpenRe matches a reasoning tag left open at the start of text.
var leadingOpenRe = regexp.MustCompile(`(?i)^\s*(?:<thinking>|<think>|<reasoning>|<reflection>)`)

// Clean strips leading reasoning blocks and surrounding whitespace. A reply
// that is nothing but an unterminated reasoning block yields "".
func Clean(text string) string {
	for {
		loc := leadingBlockRe.FindStringIndex(text)
		if loc == nil {
			break
		}
		text = text[loc[1]:]
	}
	if leadingOpenRe.MatchString(text) {
		return ""
	}
	return strings.TrimSpace(text)
}
