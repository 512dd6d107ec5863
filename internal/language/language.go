// Package language holds the closed set of programming languages codetran
// translates between, together with the comment syntax of each one.
package language

import (
	"golang.org/x/text/cases"
	textlang "golang.org/x/text/language"
)

// Language is a lower-case language tag, e.g. "python".
type Language string

const (
	Python     Language = "python"
	Java       Language = "java"
	JavaScript Language = "javascript"
)

// CommentRules describes how a language spells its comments. An empty
// BlockOpen means the language has no block comments we strip.
type CommentRules struct {
	LineMarker string
	BlockOpen  string
	BlockClose string
}

// rules is the comment table. Adding a language is a new entry here.
var rules = map[Language]CommentRules{
	Python:     {LineMarker: "#"},
	Java:       {LineMarker: "//", BlockOpen: "/*", BlockClose: "*/"},
	JavaScript: {LineMarker: "//", BlockOpen: "/*", BlockClose: "*/"},
}

// supported keeps the display order stable for messages and CLI help.
var supported = []Language{Python, Java, JavaScript}

// Parse lower-cases s and reports whether it names a supported language.
// Surrounding whitespace is not ignored.
func Parse(s string) (Language, bool) {
	// A Caser keeps state, so each call gets its own.
	lang := Language(cases.Lower(textlang.Und).String(s))
	if _, ok := rules[lang]; !ok {
		return "", false
	}
	return lang, true
}

// IsSupported reports whether s names a supported language, ignoring case.
func IsSupported(s string) bool {
	_, ok := Parse(s)
	return ok
}

// Rules returns the comment rules for lang.
func Rules(lang Language) (CommentRules, bool) {
	r, ok := rules[lang]
	return r, ok
}

// Supported returns the supported languages in display order.
func Supported() []Language {
	out := make([]Language, len(supported))
	copy(out, supported)
	return out
}

func (l Language) String() string {
	return string(l)
}
