package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"

	"github.com/valpere/codetran/internal"
	"github.com/valpere/codetran/internal/orchestrator"
	"github.com/valpere/codetran/internal/translator"
	"github.com/valpere/codetran/internal/validator"
)

const (
	msgInvalidJSON     = "Invalid JSON body."
	msgBodyTooLarge    = "Request body too large."
	msgProviderGeneric = "Invalid request. Please check the input."
	msgUnreachable     = "Failed to reach the OpenAI service. Please try again."
)

// Translator runs one translation request.
type Translator interface {
	Translate(ctx context.Context, req internal.TranslationRequest) (*orchestrator.OrchestratorResult, error)
}

func translateHandler(tr Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			status, msg := http.StatusBadRequest, msgInvalidJSON
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				status, msg = http.StatusRequestEntityTooLarge, msgBodyTooLarge
			}
			c.JSON(status, internal.TranslationResult{Success: false, Error: msg})
			return
		}

		req, err := decodeRequest(body)
		if err != nil {
			c.JSON(http.StatusBadRequest, internal.TranslationResult{Success: false, Error: msgInvalidJSON})
			return
		}

		res, err := tr.Translate(c.Request.Context(), req)
		if err != nil {
			_ = c.Error(err)
			status, msg := errorResponse(err)
			c.JSON(status, internal.TranslationResult{Success: false, Error: msg})
			return
		}

		c.JSON(http.StatusOK, internal.TranslationResult{Success: true, TranslatedCode: res.TranslatedCode})
	}
}

var errInvalidJSON = errors.New("invalid JSON body")

// decodeRequest reads the three request fields with exact key matching.
// The body must be one JSON value; an empty body, an array, absent fields
// and nulls all decode to empty strings and are left to the gate. Any other
// non-string field value is rejected.
func decodeRequest(body []byte) (internal.TranslationRequest, error) {
	var req internal.TranslationRequest
	if len(body) == 0 {
		return req, nil
	}
	if !gjson.ValidBytes(body) {
		return req, errInvalidJSON
	}
	root := gjson.ParseBytes(body)
	if root.IsArray() {
		return req, nil
	}
	if !root.IsObject() {
		return req, errInvalidJSON
	}

	fields := []struct {
		key string
		dst *string
	}{
		{"inputCode", &req.InputCode},
		{"sourceLang", &req.SourceLang},
		{"targetLang", &req.TargetLang},
	}
	for _, f := range fields {
		v := root.Get(f.key)
		switch v.Type {
		case gjson.Null:
		case gjson.String:
			*f.dst = v.String()
		default:
			return req, errInvalidJSON
		}
	}
	return req, nil
}

// errorResponse maps a pipeline error to the status and message returned
// to the client.
func errorResponse(err error) (int, string) {
	var (
		ve *validator.ValidationError
		qe *validator.QuotaError
		pe *translator.ProviderError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Message
	case errors.As(err, &qe):
		return http.StatusTooManyRequests, qe.Error()
	case errors.As(err, &pe):
		status := pe.Status
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		if pe.Message == "" {
			return status, msgProviderGeneric
		}
		return status, pe.Message
	default:
		return http.StatusInternalServerError, msgUnreachable
	}
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
