// Package orchestrator runs one translation request end to end: request
// gate, comment preprocessing, prompt and budget assembly, the model call
// and output cleanup. It holds no state between requests.
package orchestrator

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/valpere/codetran/internal"
	"github.com/valpere/codetran/internal/logging"
	"github.com/valpere/codetran/internal/metrics"
	"github.com/valpere/codetran/internal/postprocess"
	"github.com/valpere/codetran/internal/preprocess"
	"github.com/valpere/codetran/internal/prompt"
	"github.com/valpere/codetran/internal/translator"
	"github.com/valpere/codetran/internal/validator"
)

// Gate rejects requests that must not reach the model.
type Gate interface {
	Validate(req internal.TranslationRequest) error
}

type OrchestratorConfig struct {
	// Model is only used to estimate prompt tokens for logs and metrics.
	Model string
}

// Plan is everything sent to the model for one request.
type Plan struct {
	Preprocessed string
	System       string
	User         string
	MaxTokens    int
	PromptTokens int
}

type OrchestratorResult struct {
	TranslatedCode string
	Plan           Plan
	Latency        time.Duration
}

type Orchestrator struct {
	gate      Gate
	completer translator.Completer
	config    OrchestratorConfig
}

func New(gate Gate, completer translator.Completer, config OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		gate:      gate,
		completer: completer,
		config:    config,
	}
}

// Prepare builds the model request without validating or sending it.
// Language names are taken from req as the caller wrote them.
func Prepare(req internal.TranslationRequest, model string) Plan {
	code := preprocess.Preprocess(req.InputCode, req.SourceLang)
	p := Plan{
		Preprocessed: code,
		System:       prompt.System(req.SourceLang, req.TargetLang),
		User:         prompt.User(req.SourceLang, req.TargetLang, code),
		MaxTokens:    prompt.MaxTokens(code),
	}
	if n, err := prompt.CountTokens(model, p.System+"\n"+p.User); err == nil {
		p.PromptTokens = n
	}
	return p
}

// Translate returns the translated code, or one of *validator.ValidationError,
// *validator.QuotaError, *translator.ProviderError or a connectivity error.
// A failed model call is not retried.
func (o *Orchestrator) Translate(ctx context.Context, req internal.TranslationRequest) (*OrchestratorResult, error) {
	start := time.Now()
	logger := logging.FromContext(ctx).WithFields(log.Fields{
		"source_lang": req.SourceLang,
		"target_lang": req.TargetLang,
	})

	if err := o.gate.Validate(req); err != nil {
		outcome := Outcome(err)
		metrics.RecordTranslation(outcome, time.Since(start))
		logger.WithField("reason", err.Error()).Info("translation request rejected")
		return nil, err
	}

	plan := Prepare(req, o.config.Model)
	metrics.RecordInput(validator.LineCount(req.InputCode), plan.MaxTokens, plan.PromptTokens)
	logger.WithFields(log.Fields{
		"chars":         len(plan.Preprocessed),
		"max_tokens":    plan.MaxTokens,
		"prompt_tokens": plan.PromptTokens,
	}).Debug("sending translation to model")

	text, err := o.completer.Complete(ctx, plan.System, plan.User, plan.MaxTokens)
	elapsed := time.Since(start)
	if err != nil {
		metrics.RecordTranslation(Outcome(err), elapsed)
		logger.WithError(err).Error("error translating code")
		return nil, err
	}

	metrics.RecordTranslation(metrics.OutcomeOK, elapsed)
	logger.WithField("latency", elapsed.Truncate(time.Millisecond)).Info("translation completed")

	return &OrchestratorResult{
		TranslatedCode: postprocess.Clean(text),
		Plan:           plan,
		Latency:        elapsed,
	}, nil
}

// Outcome classifies err into a metrics outcome label.
func Outcome(err error) string {
	var (
		ve *validator.ValidationError
		qe *validator.QuotaError
		pe *translator.ProviderError
	)
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.As(err, &ve):
		return metrics.OutcomeValidation
	case errors.As(err, &qe):
		return metrics.OutcomeQuota
	case errors.As(err, &pe):
		return metrics.OutcomeProvider
	default:
		return metrics.OutcomeUnreachable
	}
}
