// Package preprocess prepares source code before it is sent to the model.
//
// Comments are stripped according to the declared source language, but
// annotation comments (TODO:, FIXME:, NOTE:) are first copied verbatim into
// a header so the model still sees them. The copies are not excluded from
// the strip pass: an annotation is promoted to the header and deleted in
// place, including when it trails code on the same line.
package preprocess

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/valpere/codetran/internal/language"
)

// restOfLine matches up to, not including, the next line terminator.
const restOfLine = `[^\r\n\x{2028}\x{2029}]*`

var (
	// annotationRe finds //, /* */ and # comments carrying a marker.
	// Alternation order decides which style wins at the same offset.
	annotationRe = regexp.MustCompile(
		`//` + restOfLine + `(?:TODO|FIXME|NOTE):` + restOfLine +
			`|/\*` + restOfLine + `(?:TODO|FIXME|NOTE):` + restOfLine + `\*/` +
			`|#+` + restOfLine + `(?:TODO|FIXME|NOTE):` + restOfLine,
	)

	// stripRes is built from the language comment table at init.
	stripRes = map[language.Language]*regexp.Regexp{}
)

func init() {
	for _, lang := range language.Supported() {
		rules, _ := language.Rules(lang)
		stripRes[lang] = stripPattern(rules)
	}
}

func stripPattern(r language.CommentRules) *regexp.Regexp {
	var alts []string
	if r.BlockOpen != "" {
		alts = append(alts, `(?s:`+regexp.QuoteMeta(r.BlockOpen)+`.*?`+regexp.QuoteMeta(r.BlockClose)+`)`)
	}
	if r.LineMarker != "" {
		alts = append(alts, regexp.QuoteMeta(r.LineMarker)+restOfLine)
	}
	return regexp.MustCompile(strings.Join(alts, "|"))
}

// Preprocess returns the annotation header (one comment per line, in order
// of appearance) followed by the comment-stripped, trimmed code.
func Preprocess(code, sourceLang string) string {
	var header string
	if found := Annotations(code); len(found) > 0 {
		header = strings.Join(found, "\n") + "\n"
	}
	return header + trimSpace(StripComments(code, sourceLang))
}

// trimSpace trims what JavaScript's String.prototype.trim trims: Unicode
// white space and line terminators plus the byte order mark, but not NEL.
func trimSpace(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return r == '\ufeff' || (r != '\u0085' && unicode.IsSpace(r))
	})
}

// Annotations returns every annotation comment in code, in order.
func Annotations(code string) []string {
	return annotationRe.FindAllString(code, -1)
}

// StripComments removes comments using the rules of sourceLang. Unknown
// languages are returned unchanged.
func StripComments(code, sourceLang string) string {
	lang, ok := language.Parse(sourceLang)
	if !ok {
		return code
	}
	re, ok := stripRes[lang]
	if !ok {
		return code
	}
	return re.ReplaceAllString(code, "")
}
