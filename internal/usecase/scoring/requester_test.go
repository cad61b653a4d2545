package scoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/meeting-intel/pkg/ai"
)

type reply struct {
	content string
	err     error
}

type call struct {
	model string
	user  string
}

// scripted returns its replies in order and records every call
type scripted struct {
	mu      sync.Mutex
	replies []reply
	calls   []call
}

func (s *scripted) Complete(_ context.Context, model, _, user string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call{model: model, user: user})
	if len(s.replies) == 0 {
		return "", fmt.Errorf("unexpected call %d", len(s.calls))
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r.content, r.err
}

func newScripted(replies ...reply) *scripted {
	return &scripted{replies: replies}
}

func ok(content string) reply { return reply{content: content} }

func newTestRequester(c Completer) *requester {
	return &requester{completer: c, fallbackModel: "gpt-4o-mini"}
}

func sectionPass(model string) pass {
	return pass{
		track:   trackOpportunity,
		name:    string(CriterionNow),
		model:   model,
		prompt:  opportunityPrompts[CriterionNow],
		context: "Them: We need a CFO now.",
		shape:   sectionShape,
	}
}

func TestRun_ExactShapeAcceptedWithoutRetry(t *testing.T) {
	c := newScripted(ok(`{"qualified": true, "reason": "x", "summary": "y", "evidence": "z"}`))

	obj, outcome, f := newTestRequester(c).run(context.Background(), sectionPass("gpt-4o-mini"))
	require.Nil(t, f)
	assert.Equal(t, OutcomeOK, outcome)
	assert.Len(t, c.calls, 1)

	res := sectionFromObject(obj)
	assert.True(t, res.Qualified)
	assert.Equal(t, "x", res.Reason)
	assert.Equal(t, "y", res.Summary)
	require.NotNil(t, res.Evidence)
	assert.Equal(t, "z", *res.Evidence)
}

func TestRun_NonBooleanQualifiedRetriesOnceThenDefaults(t *testing.T) {
	bad := `{"qualified": "yes", "reason": "x", "summary": "y", "evidence": "z"}`
	c := newScripted(ok(bad), ok(bad))

	obj, outcome, f := newTestRequester(c).run(context.Background(), sectionPass("gpt-4o-mini"))
	assert.Nil(t, obj)
	assert.Equal(t, OutcomeDefault, outcome)
	require.NotNil(t, f)
	assert.Len(t, c.calls, 2)
	assert.Contains(t, c.calls[1].user, "You returned invalid JSON. Return exactly the schema.")

	res := defaultSection(f.reason, f.summary)
	assert.False(t, res.Qualified)
	assert.Equal(t, "Invalid JSON from model", res.Reason)
	assert.Equal(t, "Model returned non-boolean qualified field", res.Summary)
	assert.Nil(t, res.Evidence)
}

func TestRun_WrongKeysRepairedByRetry(t *testing.T) {
	c := newScripted(
		ok(`{"qualified": true, "reason": "x", "summary": "y", "evidence": "z", "confidence": 0.9}`),
		ok(`{"qualified": false, "reason": "none", "summary": "Not stated.", "evidence": null}`),
	)

	obj, outcome, f := newTestRequester(c).run(context.Background(), sectionPass("gpt-4o-mini"))
	require.Nil(t, f)
	assert.Equal(t, OutcomeRetried, outcome)
	assert.Len(t, c.calls, 2)
	assert.False(t, sectionFromObject(obj).Qualified)
	assert.Nil(t, sectionFromObject(obj).Evidence)
}

func TestRun_MissingKeysDefaultSummary(t *testing.T) {
	c := newScripted(ok(`{"qualified": true}`), ok(`{"qualified": true}`))

	_, outcome, f := newTestRequester(c).run(context.Background(), sectionPass("gpt-4o-mini"))
	assert.Equal(t, OutcomeDefault, outcome)
	require.NotNil(t, f)
	assert.Equal(t, reasonInvalidJSON, f.reason)
	assert.Equal(t, "Model returned invalid response format", f.summary)
}

func TestRun_LongEvidenceIsTruncatedNotRetried(t *testing.T) {
	words := make([]string, 30)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i+1)
	}
	body := fmt.Sprintf(`{"qualified": true, "reason": "x", "summary": "y", "evidence": %q}`, strings.Join(words, " "))
	c := newScripted(ok(body))

	obj, outcome, f := newTestRequester(c).run(context.Background(), sectionPass("gpt-4o-mini"))
	require.Nil(t, f)
	assert.Equal(t, OutcomeOK, outcome)
	assert.Len(t, c.calls, 1)

	res := sectionFromObject(obj)
	require.NotNil(t, res.Evidence)
	assert.Equal(t, strings.Join(words[:25], " "), *res.Evidence)
}

func TestRun_FencedResponse(t *testing.T) {
	c := newScripted(ok("```json\n{\"qualified\": false, \"reason\": \"r\", \"summary\": \"s\", \"evidence\": null}\n```"))

	obj, outcome, f := newTestRequester(c).run(context.Background(), sectionPass("gpt-4o-mini"))
	require.Nil(t, f)
	assert.Equal(t, OutcomeOK, outcome)
	assert.Equal(t, "r", sectionFromObject(obj).Reason)
}

func TestRun_EmptyResponseRetriedTwice(t *testing.T) {
	c := newScripted(ok(""), ok("  "), ok(""))

	_, outcome, f := newTestRequester(c).run(context.Background(), sectionPass("gpt-4o-mini"))
	assert.Equal(t, OutcomeDefault, outcome)
	require.NotNil(t, f)
	assert.Len(t, c.calls, 3)
	assert.Equal(t, "Empty response from gpt-4o-mini", f.reason)
	assert.Equal(t, "No response received", f.summary)
}

func TestRun_EmptyThenValid(t *testing.T) {
	c := newScripted(ok(""), ok(`{"qualified": true, "reason": "x", "summary": "y", "evidence": null}`))

	obj, _, f := newTestRequester(c).run(context.Background(), sectionPass("gpt-4o-mini"))
	require.Nil(t, f)
	assert.Len(t, c.calls, 2)
	assert.True(t, sectionFromObject(obj).Qualified)
}

func TestRun_UnparseableRetriesSameModelOnce(t *testing.T) {
	c := newScripted(ok("Sure! Here is my analysis."), ok("still not json"))

	_, outcome, f := newTestRequester(c).run(context.Background(), sectionPass("gpt-4o"))
	assert.Equal(t, OutcomeDefault, outcome)
	require.NotNil(t, f)
	assert.Equal(t, "JSON parse error", f.reason)
	assert.Equal(t, "Invalid response format", f.summary)
	require.Len(t, c.calls, 2)
	assert.Equal(t, "gpt-4o", c.calls[1].model)
}

func TestRun_HighCapabilityFallsBackToCheaperModel(t *testing.T) {
	c := newScripted(
		ok("Here you go"),
		ok("Here you go again"),
		ok(`{"qualified": true, "reason": "x", "summary": "y", "evidence": null}`),
	)

	obj, outcome, f := newTestRequester(c).run(context.Background(), sectionPass("gpt-5"))
	require.Nil(t, f)
	assert.Equal(t, OutcomeRetried, outcome)
	require.Len(t, c.calls, 3)
	assert.Equal(t, "gpt-5", c.calls[0].model)
	assert.Equal(t, "gpt-5", c.calls[1].model)
	assert.Equal(t, "gpt-4o-mini", c.calls[2].model)
	assert.True(t, sectionFromObject(obj).Qualified)
}

func TestRun_HighCapabilityFallbackAlsoFails(t *testing.T) {
	c := newScripted(ok("nope"), ok("nope"), ok("nope"))

	_, outcome, f := newTestRequester(c).run(context.Background(), sectionPass("gpt-5-mini"))
	assert.Equal(t, OutcomeDefault, outcome)
	require.NotNil(t, f)
	assert.Equal(t, "JSON parse error", f.reason)
	assert.Len(t, c.calls, 3)
}

func TestRun_TransportFailureClasses(t *testing.T) {
	tests := []struct {
		name    string
		model   string
		err     error
		reason  string
		summary string
	}{
		{"access", "gpt-5-pro", fmt.Errorf("%w: no access", ai.ErrAccessDenied), "Model gpt-5-pro requires Pro/Enterprise access", "API access error"},
		{"rate limit", "gpt-4o", fmt.Errorf("%w: 429", ai.ErrRateLimited), "Rate limited by gpt-4o", "API request failed"},
		{"timeout", "gpt-4o", fmt.Errorf("%w: slow", ai.ErrTimeout), "Request to gpt-4o timed out", "API request failed"},
		{"other", "gpt-4o", errors.New("connection reset"), "API error: connection reset", "API request failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newScripted(reply{err: tt.err})

			_, outcome, f := newTestRequester(c).run(context.Background(), sectionPass(tt.model))
			assert.Equal(t, OutcomeDefault, outcome)
			require.NotNil(t, f)
			assert.Equal(t, tt.reason, f.reason)
			assert.Equal(t, tt.summary, f.summary)
			assert.Len(t, c.calls, 1)
		})
	}
}

func TestRun_FitServicesSalvagedAfterRetry(t *testing.T) {
	bad := `{"qualified": true, "reason": "x", "summary": "y", "services": "Access", "evidence": null}`
	c := newScripted(ok(bad), ok(bad))

	obj, outcome, f := newTestRequester(c).run(context.Background(), pass{
		track: trackOpportunity, name: string(CriterionFit), model: "gpt-4o-mini",
		prompt: opportunityPrompts[CriterionFit], context: "ctx", shape: fitShape,
	})
	require.Nil(t, f)
	assert.Equal(t, OutcomeRetried, outcome)

	res := fitFromObject(obj)
	assert.True(t, res.Qualified)
	assert.NotNil(t, res.Services)
	assert.Empty(t, res.Services)
}

func TestRun_SalesCorrectiveNamesTheSchema(t *testing.T) {
	c := newScripted(
		ok(`{"score": 2, "reason": "x"}`),
		ok(`{"qualified": true, "score": 2, "reason": "x", "evidence": null, "coaching_note": null}`),
	)

	_, outcome, f := newTestRequester(c).run(context.Background(), pass{
		track: trackSales, name: "discovery", model: "gpt-4o-mini",
		prompt: "p", context: "ctx", shape: salesShape,
	})
	require.Nil(t, f)
	assert.Equal(t, OutcomeRetried, outcome)
	assert.Contains(t, c.calls[1].user, "Return exactly the schema with: qualified, score, reason, evidence, coaching_note")
}

func TestRun_WrongShapeThenUnparseableGoesStraightToFallback(t *testing.T) {
	c := newScripted(
		ok(`{"qualified": true}`),
		ok("not json"),
		ok("still not json"),
		ok(`{"qualified": true, "reason": "x", "summary": "y", "evidence": null}`),
	)

	_, outcome, f := newTestRequester(c).run(context.Background(), sectionPass("gpt-5"))
	assert.Equal(t, OutcomeDefault, outcome)
	require.NotNil(t, f)
	assert.Equal(t, "JSON parse error", f.reason)

	require.Len(t, c.calls, 3)
	assert.Equal(t, []string{"gpt-5", "gpt-5", "gpt-4o-mini"}, []string{c.calls[0].model, c.calls[1].model, c.calls[2].model})
	assert.Contains(t, c.calls[1].user, correctiveBase)
	assert.Len(t, c.replies, 1)
}

func TestRun_WrongShapeThenFallbackRecovers(t *testing.T) {
	c := newScripted(
		ok(`{"qualified": true}`),
		ok("not json"),
		ok(`{"qualified": true, "reason": "x", "summary": "y", "evidence": null}`),
	)

	obj, outcome, f := newTestRequester(c).run(context.Background(), sectionPass("gpt-5"))
	require.Nil(t, f)
	assert.Equal(t, OutcomeRetried, outcome)
	require.Len(t, c.calls, 3)
	assert.Equal(t, "gpt-4o-mini", c.calls[2].model)
	assert.True(t, sectionFromObject(obj).Qualified)
}

func TestRun_WrongShapeThenUnparseableOnCheaperModelDefaults(t *testing.T) {
	c := newScripted(ok(`{"qualified": true}`), ok("not json"), ok("unused"))

	_, outcome, f := newTestRequester(c).run(context.Background(), sectionPass("gpt-4o"))
	assert.Equal(t, OutcomeDefault, outcome)
	require.NotNil(t, f)
	assert.Equal(t, "JSON parse error", f.reason)
	assert.Len(t, c.calls, 2)
}

func TestRun_ParseRetryThenWrongShapeDoesNotRetryAgain(t *testing.T) {
	c := newScripted(ok("Sure!"), ok(`{"qualified": true}`), ok("unused"))

	_, outcome, f := newTestRequester(c).run(context.Background(), sectionPass("gpt-4o-mini"))
	assert.Equal(t, OutcomeDefault, outcome)
	require.NotNil(t, f)
	assert.Equal(t, reasonInvalidJSON, f.reason)
	assert.Equal(t, summaryInvalidKeys, f.summary)
	assert.Len(t, c.calls, 2)
}

func salesPass() pass {
	return pass{
		track: trackSales, name: "discovery", model: "gpt-4o-mini",
		prompt: "p", context: "ctx", shape: salesShape,
	}
}

func TestRun_SalesStringScoreRetriesThenDefaults(t *testing.T) {
	bad := `{"qualified": "yes", "score": "3", "reason": "x", "evidence": null, "coaching_note": null}`
	c := newScripted(ok(bad), ok(bad))

	obj, outcome, f := newTestRequester(c).run(context.Background(), salesPass())
	assert.Nil(t, obj)
	assert.Equal(t, OutcomeDefault, outcome)
	require.NotNil(t, f)
	assert.Len(t, c.calls, 2)
	assert.Contains(t, c.calls[1].user, "Return exactly the schema with: qualified, score, reason, evidence, coaching_note")

	res := defaultSales(f.reason, salesInvalidCoach)
	assert.Equal(t, 0, res.Score)
	assert.False(t, res.Qualified)
	assert.Equal(t, reasonInvalidJSON, res.Reason)
	require.NotNil(t, res.CoachingNote)
	assert.Equal(t, salesInvalidCoach, *res.CoachingNote)
}

func TestRun_SalesScoreTypeChecked(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		summary string
	}{
		{"string score", `{"qualified": true, "score": "3", "reason": "x", "evidence": null, "coaching_note": null}`, summaryNotNumeric},
		{"null score", `{"qualified": true, "score": null, "reason": "x", "evidence": null, "coaching_note": null}`, summaryNotNumeric},
		{"string qualified", `{"qualified": "yes", "score": 3, "reason": "x", "evidence": null, "coaching_note": null}`, summaryNotBoolean},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newScripted(ok(tt.body), ok(tt.body))

			_, outcome, f := newTestRequester(c).run(context.Background(), salesPass())
			assert.Equal(t, OutcomeDefault, outcome)
			require.NotNil(t, f)
			assert.Equal(t, tt.summary, f.summary)
		})
	}
}

func TestRun_SalesStringScoreRepairedByRetry(t *testing.T) {
	c := newScripted(
		ok(`{"qualified": true, "score": "3", "reason": "x", "evidence": null, "coaching_note": null}`),
		ok(`{"qualified": true, "score": 3, "reason": "x", "evidence": null, "coaching_note": null}`),
	)

	obj, outcome, f := newTestRequester(c).run(context.Background(), salesPass())
	require.Nil(t, f)
	assert.Equal(t, OutcomeRetried, outcome)
	assert.Equal(t, 3, salesFromObject(obj).Score)
}
