// Package detector guesses the programming language of a code snippet.
package detector

import (
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// DefaultCandidates is the set of languages the classifier chooses from.
// Only three of them are translatable; the rest exist so that code in
// another language is recognised as such instead of forced into one of the three.
var DefaultCandidates = []string{
	"JavaScript", "C", "C++", "Python", "Java", "HTML", "CSS", "Ruby", "Go", "PHP",
}

type Detector struct {
	candidates []string
}

func New() *Detector {
	return &Detector{candidates: DefaultCandidates}
}

// Detect returns the lower-cased language name (e.g. "python"). Explicit
// hints (modelines, shebangs) win over the content classifier.
func (d *Detector) Detect(code string) (string, bool) {
	if strings.TrimSpace(code) == "" {
		return "", false
	}
	content := []byte(code)

	if langs := enry.GetLanguagesByModeline("", content, nil); len(langs) > 0 {
		return strings.ToLower(langs[0]), true
	}
	if langs := enry.GetLanguagesByShebang("", content, nil); len(langs) > 0 {
		return strings.ToLower(langs[0]), true
	}

	langs := enry.GetLanguagesByClassifier("", content, d.candidates)
	if len(langs) == 0 || langs[0] == "" {
		return "", false
	}
	return strings.ToLower(langs[0]), true
}
