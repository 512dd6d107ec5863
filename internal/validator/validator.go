// Package validator guards the translation pipeline against requests that
// must never reach the model: missing fields, unsupported languages,
// oversized input and code that does not look like a supported language.
package validator

import (
	"fmt"
	"strings"

	"github.com/valpere/codetran/internal"
	"github.com/valpere/codetran/internal/language"
)

// MaxLines is the largest input accepted, counted as line breaks plus one.
const MaxLines = 1500

const (
	MsgMissingFields       = "Missing required fields."
	MsgUnsupportedLanguage = "Unsupported source or target language."
	MsgUnsupportedDetected = "Unsupported source language detected. Please choose between Python, Java, and JavaScript."
)

// ValidationError is a client mistake; the request is rejected with 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// QuotaError rejects input that is too large to be worth the model call.
type QuotaError struct {
	Lines int
	Limit int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("Rate limit exceeded due to large input size. Please try again; max limit is %d lines.", e.Limit)
}

// LanguageDetector names the language of a code snippet.
type LanguageDetector interface {
	Detect(code string) (string, bool)
}

// Validator runs the request checks in a fixed order and stops at the first
// failure. It never performs I/O.
type Validator struct {
	det      LanguageDetector
	maxLines int
}

// New creates a Validator using det as the source-language guard.
// The detector result is only checked, never substituted for the declared
// source language.
func New(det LanguageDetector) *Validator {
	return &Validator{det: det, maxLines: MaxLines}
}

// Validate returns nil, a *ValidationError or a *QuotaError.
func (v *Validator) Validate(req internal.TranslationRequest) error {
	if req.InputCode == "" || req.SourceLang == "" || req.TargetLang == "" {
		return &ValidationError{Message: MsgMissingFields}
	}

	if !language.IsSupported(req.SourceLang) || !language.IsSupported(req.TargetLang) {
		return &ValidationError{Message: MsgUnsupportedLanguage}
	}

	if lines := LineCount(req.InputCode); lines > v.maxLines {
		return &QuotaError{Lines: lines, Limit: v.maxLines}
	}

	detected, ok := v.det.Detect(req.InputCode)
	if !ok || !language.IsSupported(detected) {
		return &ValidationError{Message: MsgUnsupportedDetected}
	}

	return nil
}

// LineCount counts line breaks plus one, so "" and "x" are both one line.
func LineCount(code string) int {
	return strings.Count(code, "\n") + 1
}
