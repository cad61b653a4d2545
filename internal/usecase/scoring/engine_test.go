package scoring

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/meeting-intel/internal/domain/entities"
)

// routed answers each rubric pass by recognising its prompt
type routed struct {
	mu      sync.Mutex
	answers map[string]reply
	calls   map[string]int
	hook    func(key string)
}

func newRouted(answers map[string]reply) *routed {
	return &routed{answers: answers, calls: map[string]int{}}
}

func (r *routed) Complete(_ context.Context, _, _, user string) (string, error) {
	key := passKey(user)
	r.mu.Lock()
	r.calls[key]++
	hook := r.hook
	a, ok := r.answers[key]
	r.mu.Unlock()

	if hook != nil {
		hook(key)
	}
	if !ok {
		return "", errors.New("no answer for " + key)
	}
	return a.content, a.err
}

func passKey(user string) string {
	switch {
	case strings.HasPrefix(user, "Assess the NOW"):
		return "now"
	case strings.HasPrefix(user, "Assess the NEXT"):
		return "next"
	case strings.HasPrefix(user, "Assess the MEASURE"):
		return "measure"
	case strings.HasPrefix(user, "Assess the BLOCKER"):
		return "blocker"
	case strings.HasPrefix(user, "Assess the FIT"):
		return "fit"
	case strings.HasPrefix(user, "Tag this meeting"):
		return "taxonomy"
	case strings.HasPrefix(user, "Identify the client"):
		return "client"
	}
	for _, c := range entities.SalesCriteria {
		if strings.HasPrefix(user, "Assess our representative's "+c.DisplayName()+" ") {
			return string(c)
		}
	}
	return "unknown"
}

const (
	yes = `{"qualified": true, "reason": "clear need", "summary": "They need it", "evidence": "We need a CFO"}`
	no  = `{"qualified": false, "reason": "not discussed", "summary": "Not stated.", "evidence": null}`
)

var scoredAt = time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC)

func testTranscript() *entities.Transcript {
	t := entities.NewTranscript("initech-hiring-sync-1693785600", entities.SourcePlaintext)
	t.Company = "Initech"
	t.Date = time.Date(2025, 9, 3, 0, 0, 0, 0, time.UTC)
	t.Participants = []string{"Pat Lee", "Sam Chen"}
	t.CreatorName = "Sean"
	t.CreatorEmail = "sean@example.com"
	t.Notes = []entities.Note{
		{Speaker: "Them", Text: "We process payments for retailers and need a CFO now."},
		{Speaker: "Me", Text: "We can run a search for that."},
	}
	return t
}

func newTestEngine(c Completer, opts ...Option) *Engine {
	cfg := Config{
		Model:                       "gpt-4o-mini",
		FallbackModel:               "gpt-4o-mini",
		QualificationThreshold:      3,
		SalesQualificationThreshold: 5,
		Concurrency:                 3,
	}
	opts = append([]Option{WithClock(func() time.Time { return scoredAt })}, opts...)
	return NewEngine(c, cfg, nil, opts...)
}

func TestScore_AllQualified(t *testing.T) {
	c := newRouted(map[string]reply{
		"now":      ok(yes),
		"next":     ok(yes),
		"measure":  ok(yes),
		"blocker":  ok(yes),
		"fit":      ok(`{"qualified": true, "reason": "r", "summary": "s", "services": ["talent", "Access", "venture"], "evidence": null}`),
		"taxonomy": ok(`{"challenges": ["Succession planning", "Invented"], "results": ["Revenue Growth"], "offering": "Fintech"}`),
		"client":   ok(`{"client": "Initech Ltd", "domain": "fintech", "size": "Scaleup"}`),
	})

	res, err := newTestEngine(c).Score(context.Background(), testTranscript(), "")
	require.NoError(t, err)

	assert.Equal(t, "initech-hiring-sync-1693785600", res.MeetingID)
	assert.Equal(t, 5, res.TotalQualifiedSections)
	assert.True(t, res.Qualified)
	assert.Equal(t, "gpt-4o-mini", res.LLMModel)
	assert.Equal(t, scoredAt, res.ScoredAt)
	assert.Equal(t, []string{entities.ServiceAccess, entities.ServiceVentures}, res.Fit.Services)
	assert.Equal(t, []string{"Succession planning"}, res.Challenges)
	assert.Equal(t, []string{"Revenue Growth"}, res.Results)
	require.NotNil(t, res.Offering)
	assert.Equal(t, "Fintech", *res.Offering)

	assert.Equal(t, entities.ClientSourceLLM, res.ClientInfo.Source)
	assert.Equal(t, "Initech Ltd", res.ClientInfo.ClientName())
	require.NotNil(t, res.ClientInfo.Size)
	assert.Equal(t, "scaleup", *res.ClientInfo.Size)

	for _, key := range []string{"now", "next", "measure", "blocker", "fit", "taxonomy", "client"} {
		assert.Equal(t, 1, c.calls[key], key)
	}
}

func TestScore_ThresholdBoundary(t *testing.T) {
	answers := map[string]reply{
		"now":      ok(yes),
		"next":     ok(yes),
		"measure":  ok(yes),
		"blocker":  ok(no),
		"fit":      ok(`{"qualified": false, "reason": "r", "summary": "s", "services": [], "evidence": null}`),
		"taxonomy": ok(`{"challenges": [], "results": [], "offering": null}`),
		"client":   ok(`{"client": "Initech", "domain": null, "size": null}`),
	}

	res, err := newTestEngine(newRouted(answers)).Score(context.Background(), testTranscript(), "")
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalQualifiedSections)
	assert.True(t, res.Qualified)

	answers["measure"] = ok(no)
	res, err = newTestEngine(newRouted(answers)).Score(context.Background(), testTranscript(), "")
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalQualifiedSections)
	assert.False(t, res.Qualified)
}

func TestScore_EveryRequestFailsStillProducesResult(t *testing.T) {
	c := newRouted(map[string]reply{})

	res, err := newTestEngine(c).Score(context.Background(), testTranscript(), "")
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, 0, res.TotalQualifiedSections)
	assert.False(t, res.Qualified)
	for _, s := range []entities.SectionResult{res.Now, res.Next, res.Measure, res.Blocker} {
		assert.False(t, s.Qualified)
		assert.True(t, strings.HasPrefix(s.Reason, "API error:"), s.Reason)
		assert.Equal(t, "API request failed", s.Summary)
		assert.Nil(t, s.Evidence)
	}
	assert.False(t, res.Fit.Qualified)
	assert.NotNil(t, res.Fit.Services)
	assert.Empty(t, res.Fit.Services)
	assert.NotNil(t, res.Challenges)
	assert.NotNil(t, res.Results)
	assert.Nil(t, res.Offering)

	// model tier failed, so the meeting id names the client
	assert.Equal(t, entities.ClientSourceFilename, res.ClientInfo.Source)
	assert.Equal(t, "Initech Hiring", res.ClientInfo.ClientName())
	require.NotNil(t, res.ClientInfo.Domain)
	assert.Equal(t, "fintech", *res.ClientInfo.Domain)
}

func TestScore_ClientFallsBackToCompanyHint(t *testing.T) {
	tr := testTranscript()
	tr.MeetingID = "abc"

	c := newRouted(map[string]reply{
		"client": ok(`{"client": null, "domain": null, "size": null}`),
	})
	info, err := newTestEngine(c).ExtractClient(context.Background(), tr, "")
	require.NoError(t, err)
	assert.Equal(t, entities.ClientSourceDomain, info.Source)
	assert.Equal(t, "Initech", info.ClientName())

	tr.Company = ""
	info, err = newTestEngine(c).ExtractClient(context.Background(), tr, "")
	require.NoError(t, err)
	assert.Equal(t, UnknownClient, info.ClientName())
}

func TestScore_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newRouted(map[string]reply{})
	res, err := newTestEngine(c).Score(ctx, testTranscript(), "")
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, c.calls)
}

func TestScore_CancelledMidwayReturnsNoPartialResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := newRouted(map[string]reply{
		"now":      ok(yes),
		"next":     ok(yes),
		"measure":  ok(yes),
		"blocker":  ok(yes),
		"fit":      ok(yes),
		"taxonomy": ok(`{"challenges": [], "results": [], "offering": null}`),
		"client":   ok(`{"client": "Initech", "domain": null, "size": null}`),
	})
	c.hook = func(key string) {
		if key == "now" {
			cancel()
		}
	}

	res, err := newTestEngine(c, func(e *Engine) { e.cfg.Concurrency = 1 }).Score(ctx, testTranscript(), "")
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, context.Canceled))
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]string
	requests int
}

func (r *countingRecorder) ObserveCriterion(track, criterion, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[track+"/"+criterion] = outcome
}

func (r *countingRecorder) ObserveRequest(_, _ string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests++
}

func TestScore_RecordsOutcomes(t *testing.T) {
	rec := &countingRecorder{outcomes: map[string]string{}}
	c := newRouted(map[string]reply{
		"now":      ok(yes),
		"next":     ok(`{"qualified": "yes", "reason": "x", "summary": "y", "evidence": null}`),
		"measure":  ok(no),
		"blocker":  ok(no),
		"fit":      ok(`{"qualified": false, "reason": "r", "summary": "s", "services": [], "evidence": null}`),
		"taxonomy": ok(`{"challenges": [], "results": [], "offering": null}`),
		"client":   ok(`{"client": "Initech", "domain": null, "size": null}`),
	})

	_, err := newTestEngine(c, WithRecorder(rec)).Score(context.Background(), testTranscript(), "")
	require.NoError(t, err)

	assert.Equal(t, OutcomeOK, rec.outcomes["opportunity/now"])
	assert.Equal(t, OutcomeDefault, rec.outcomes["opportunity/next"])
	assert.Equal(t, OutcomeOK, rec.outcomes["opportunity/client"])
	assert.Equal(t, 8, rec.requests)
}

func salesAnswer(score string, note string) reply {
	return ok(`{"qualified": true, "score": ` + score + `, "reason": "because", "evidence": null, "coaching_note": ` + note + `}`)
}

func TestScoreSales_DerivesTotalsAndCoaching(t *testing.T) {
	c := newRouted(map[string]reply{
		"introduction":      salesAnswer("3", "null"),
		"discovery":         salesAnswer("3", "null"),
		"scoping":           salesAnswer("2", "null"),
		"solution":          salesAnswer("1", `"Map each problem to a product"`),
		"commercial":        salesAnswer("0", "null"),
		"case_studies":      salesAnswer("3", "null"),
		"next_steps":        salesAnswer("2", "null"),
		"strategic_context": salesAnswer("2.7", "null"),
	})

	res, err := newTestEngine(c).ScoreSales(context.Background(), testTranscript(), "", "Initech")
	require.NoError(t, err)

	assert.Equal(t, 16, res.TotalScore)
	assert.Equal(t, 6, res.TotalQualified)
	assert.True(t, res.Qualified)
	assert.Equal(t, entities.RatingGood, res.PerformanceRating)
	assert.Equal(t, "Good meeting performance. A few areas to refine for excellence.", res.OverallCoaching)
	assert.Equal(t, "Sean", res.SalespersonName)
	assert.Equal(t, "sean@example.com", res.SalespersonEmail)
	assert.Equal(t, "Initech", res.Client)
	assert.Len(t, res.Assessments, 8)

	assert.Equal(t, []string{
		"Introduction & Framing: because",
		"Discovery: because",
		"Case Studies: because",
	}, res.Strengths)
	assert.Equal(t, []string{
		"Solution Positioning: Map each problem to a product",
		"Commercial Confidence: because",
	}, res.Improvements)

	assert.False(t, res.Assessment(entities.SalesSolution).Qualified)
	assert.Equal(t, 2, res.Assessment(entities.SalesStrategicContext).Score)
	for _, a := range res.Assessments {
		assert.Equal(t, a.Score >= 2, a.Qualified)
	}
}

func TestScoreSales_FailuresDefault(t *testing.T) {
	res, err := newTestEngine(newRouted(map[string]reply{})).ScoreSales(context.Background(), testTranscript(), "", "")
	require.NoError(t, err)

	assert.Equal(t, 0, res.TotalScore)
	assert.False(t, res.Qualified)
	assert.Equal(t, entities.RatingNeedsImprovement, res.PerformanceRating)
	assert.Len(t, res.Improvements, 3)
	for _, c := range entities.SalesCriteria {
		a := res.Assessment(c)
		assert.Equal(t, 0, a.Score)
		require.NotNil(t, a.CoachingNote)
		assert.Equal(t, "Unable to assess - model returned invalid response", *a.CoachingNote)
	}
	assert.Equal(t, "Initech", res.Client)
}

func TestPerformanceBands(t *testing.T) {
	tests := []struct {
		total  int
		rating string
	}{
		{24, entities.RatingExcellent},
		{20, entities.RatingExcellent},
		{19, entities.RatingGood},
		{16, entities.RatingGood},
		{15, entities.RatingDeveloping},
		{12, entities.RatingDeveloping},
		{11, entities.RatingNeedsImprovement},
		{0, entities.RatingNeedsImprovement},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.rating, PerformanceRating(tt.total), "total %d", tt.total)
	}
	assert.True(t, strings.HasPrefix(OverallCoaching(21), "Excellent"))
	assert.True(t, strings.HasPrefix(OverallCoaching(12), "Developing"))
	assert.True(t, strings.HasPrefix(OverallCoaching(3), "Significant"))
}
