package scoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-intel/pkg/ai"
)

// Completer sends one chat request and returns the raw assistant content
type Completer interface {
	Complete(ctx context.Context, model, system, user string) (string, error)
}

// Recorder receives pass outcomes and request latencies
type Recorder interface {
	ObserveCriterion(track, criterion, outcome string)
	ObserveRequest(model, status string, elapsed time.Duration)
}

// Pass outcomes
const (
	OutcomeOK      = "ok"
	OutcomeRetried = "retried"
	OutcomeDefault = "default"
)

// maxEmptyRetries is how many more times an empty reply is re-requested
const maxEmptyRetries = 2

// failure is the reason and summary placed in a safe-default result
type failure struct {
	reason  string
	summary string
}

type pass struct {
	track   string
	name    string
	model   string
	prompt  string
	context string
	shape   shape
}

type requester struct {
	completer     Completer
	fallbackModel string
	recorder      Recorder
	logger        *zap.Logger
}

// run drives one rubric pass: request, validate, one corrective retry, then
// either an accepted object or a failure for the safe default.
func (r *requester) run(ctx context.Context, p pass) (map[string]interface{}, string, *failure) {
	obj, retried, f := r.ask(ctx, p.model, p.prompt, p.context, p.shape.corrective, false)
	if f != nil {
		return nil, OutcomeDefault, r.fail(p, f)
	}

	msg := p.shape.validate(obj)
	if msg == "" {
		if retried {
			return obj, OutcomeRetried, nil
		}
		return obj, OutcomeOK, nil
	}

	// The corrective retry is spent once, whether on a parse or a shape failure.
	if !retried {
		if r.logger != nil {
			r.logger.Warn("⚠️ Model output failed validation, retrying",
				zap.String("pass", p.name),
				zap.String("model", p.model),
				zap.String("problem", msg),
				zap.Strings("keys", sortedKeys(obj)),
			)
		}

		obj, _, f = r.ask(ctx, p.model, p.prompt+p.shape.corrective, p.context, p.shape.corrective, true)
		if f != nil {
			return nil, OutcomeDefault, r.fail(p, f)
		}
		if msg = p.shape.validate(obj); msg == "" {
			return obj, OutcomeRetried, nil
		}
	}
	if p.shape.salvage != nil && p.shape.salvage(obj) {
		return obj, OutcomeRetried, nil
	}
	return nil, OutcomeDefault, r.fail(p, &failure{reason: reasonInvalidJSON, summary: msg})
}

func (r *requester) fail(p pass, f *failure) *failure {
	if r.logger != nil {
		r.logger.Warn("❌ Rubric pass fell back to safe default",
			zap.String("track", p.track),
			zap.String("pass", p.name),
			zap.String("model", p.model),
			zap.String("reason", f.reason),
		)
	}
	return f
}

// ask returns a decoded object. Unparseable output is retried once on the
// same model with the corrective suffix unless retried says that retry was
// already spent; for the gpt-5 family a further failure gets one attempt on
// the fallback model.
func (r *requester) ask(ctx context.Context, model, prompt, input, corrective string, retried bool) (map[string]interface{}, bool, *failure) {
	content, f := r.complete(ctx, model, userMessage(prompt, input))
	if f != nil {
		return nil, retried, f
	}
	obj, err := decodeObject(content)
	if err == nil {
		return obj, retried, nil
	}

	if !retried {
		content, f = r.complete(ctx, model, userMessage(prompt+corrective, input))
		if f != nil {
			return nil, true, f
		}
		if obj, err = decodeObject(content); err == nil {
			return obj, true, nil
		}
	}

	if ai.IsHighCapability(model) && r.fallbackModel != "" && r.fallbackModel != model {
		if r.logger != nil {
			r.logger.Info("🔄 Falling back to cheaper model after unparseable output",
				zap.String("model", model),
				zap.String("fallback_model", r.fallbackModel),
			)
		}
		content, f = r.complete(ctx, r.fallbackModel, userMessage(prompt, input))
		if f != nil {
			return nil, true, f
		}
		if obj, err = decodeObject(content); err == nil {
			return obj, true, nil
		}
	}
	return nil, true, &failure{reason: "JSON parse error", summary: "Invalid response format"}
}

// complete issues one request, re-requesting empty replies
func (r *requester) complete(ctx context.Context, model, user string) (string, *failure) {
	for attempt := 0; attempt <= maxEmptyRetries; attempt++ {
		start := time.Now()
		content, err := r.completer.Complete(ctx, model, systemInstruction, user)
		if err != nil {
			r.observe(model, "error", start)
			return "", transportFailure(model, err)
		}
		if strings.TrimSpace(content) != "" {
			r.observe(model, "ok", start)
			return content, nil
		}
		r.observe(model, "empty", start)
		if ctx.Err() != nil {
			break
		}
	}
	return "", &failure{reason: "Empty response from " + model, summary: "No response received"}
}

func (r *requester) observe(model, status string, start time.Time) {
	if r.recorder != nil {
		r.recorder.ObserveRequest(model, status, time.Since(start))
	}
}

// transportFailure names the failure class in the default reason
func transportFailure(model string, err error) *failure {
	switch {
	case errors.Is(err, ai.ErrAccessDenied):
		return &failure{
			reason:  fmt.Sprintf("Model %s requires %s access", model, ai.Profile(model).Tier),
			summary: "API access error",
		}
	case errors.Is(err, ai.ErrRateLimited):
		return &failure{reason: "Rate limited by " + model, summary: "API request failed"}
	case errors.Is(err, ai.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return &failure{reason: fmt.Sprintf("Request to %s timed out", model), summary: "API request failed"}
	default:
		return &failure{reason: "API error: " + err.Error(), summary: "API request failed"}
	}
}
