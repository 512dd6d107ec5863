package internal

// TranslationRequest is the body accepted by POST /translate-code and the
// input of the translation pipeline.
type TranslationRequest struct {
	InputCode  string `json:"inputCode"`
	SourceLang string `json:"sourceLang"`
	TargetLang string `json:"targetLang"`
}

// TranslationResult is the JSON envelope returned to callers.
type TranslationResult struct {
	Success        bool   `json:"success"`
	TranslatedCode string `json:"translatedCode,omitempty"`
	Error          string `json:"error,omitempty"`
}
