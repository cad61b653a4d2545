package scoring

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/johnquangdev/meeting-intel/internal/domain/entities"
	"github.com/johnquangdev/meeting-intel/pkg/config"
)

// Config holds the engine's model choice, thresholds and concurrency bound
type Config struct {
	Model                       string
	FallbackModel               string
	QualificationThreshold      int
	SalesQualificationThreshold int
	Concurrency                 int
}

// ConfigFrom extracts the engine settings from application config
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Model:                       cfg.LLM.DefaultModel,
		FallbackModel:               cfg.LLM.FallbackModel,
		QualificationThreshold:      cfg.Scoring.QualificationThreshold,
		SalesQualificationThreshold: cfg.Scoring.SalesQualificationThreshold,
		Concurrency:                 cfg.Scoring.Concurrency,
	}
}

// Engine runs the rubric passes for one transcript at a time. Passes share
// no state; a single engine is safe for concurrent use.
type Engine struct {
	req      *requester
	cfg      Config
	logger   *zap.Logger
	recorder Recorder
	now      func() time.Time
}

// Option customises an Engine
type Option func(*Engine)

// WithRecorder attaches a metrics recorder
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
		e.req.recorder = r
	}
}

// WithClock replaces the clock used for scored_at
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a scoring engine
func NewEngine(completer Completer, cfg Config, logger *zap.Logger, opts ...Option) *Engine {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	e := &Engine{
		req: &requester{
			completer:     completer,
			fallbackModel: cfg.FallbackModel,
			logger:        logger,
		},
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DefaultModel returns the model used when a caller names none
func (e *Engine) DefaultModel() string {
	return e.cfg.Model
}

func (e *Engine) model(model string) string {
	if model == "" {
		return e.cfg.Model
	}
	return model
}

// Score runs the five opportunity criteria, the taxonomy pass and client
// resolution. Model failures never surface as errors; they become safe
// defaults. A cancelled context returns its error and no result.
func (e *Engine) Score(ctx context.Context, t *entities.Transcript, model string) (*entities.OpportunityResult, error) {
	if t == nil {
		return nil, fmt.Errorf("transcript is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	model = e.model(model)
	input := OpportunityContext(t)

	var (
		sections = make([]entities.SectionResult, 4)
		fit      entities.FitResult
		tax      entities.Taxonomy
		client   entities.ClientInfo
	)

	g := e.newGroup(ctx)
	for i, c := range OpportunityCriteria[:4] {
		g.spawn(func(ctx context.Context) {
			sections[i] = e.section(ctx, model, c, input)
		})
	}
	g.spawn(func(ctx context.Context) { fit = e.fit(ctx, model, input) })
	g.spawn(func(ctx context.Context) { tax = e.taxonomy(ctx, model, input) })
	g.spawn(func(ctx context.Context) { client = e.resolveClient(ctx, t, model, input) })

	if err := g.wait(ctx); err != nil {
		return nil, err
	}

	result := &entities.OpportunityResult{
		MeetingID:  t.MeetingID,
		ClientInfo: client,
		Date:       t.Date,
		Now:        sections[0],
		Next:       sections[1],
		Measure:    sections[2],
		Blocker:    sections[3],
		Fit:        fit,
		Challenges: tax.Challenges,
		Results:    tax.Results,
		Offering:   tax.Offering,
		ScoredAt:   e.now().UTC(),
		LLMModel:   model,
	}
	for _, s := range sections {
		if s.Qualified {
			result.TotalQualifiedSections++
		}
	}
	if fit.Qualified {
		result.TotalQualifiedSections++
	}
	result.Qualified = result.TotalQualifiedSections >= e.cfg.QualificationThreshold

	if e.logger != nil {
		e.logger.Info("✅ Opportunity scoring completed",
			zap.String("meeting_id", t.MeetingID),
			zap.String("model", model),
			zap.Int("total_qualified_sections", result.TotalQualifiedSections),
			zap.Bool("qualified", result.Qualified),
		)
	}
	return result, nil
}

// ScoreSales runs the eight sales criteria against our representative's
// side of the meeting and derives the coaching summary.
func (e *Engine) ScoreSales(ctx context.Context, t *entities.Transcript, model, client string) (*entities.SalesResult, error) {
	if t == nil {
		return nil, fmt.Errorf("transcript is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	model = e.model(model)
	input := SalesContext(t, client)

	assessments := make([]entities.SalesAssessmentResult, len(entities.SalesCriteria))
	g := e.newGroup(ctx)
	for i, c := range entities.SalesCriteria {
		g.spawn(func(ctx context.Context) {
			assessments[i] = e.salesCriterion(ctx, model, c, input)
		})
	}
	if err := g.wait(ctx); err != nil {
		return nil, err
	}

	result := &entities.SalesResult{
		MeetingID:        t.MeetingID,
		SalespersonName:  t.CreatorName,
		SalespersonEmail: t.CreatorEmail,
		Date:             t.Date,
		Client:           valueOr(client, t.Company),
		Assessments:      make(map[entities.SalesCriterion]entities.SalesAssessmentResult, len(assessments)),
		ScoredAt:         e.now().UTC(),
		LLMModel:         model,
	}
	for i, c := range entities.SalesCriteria {
		result.Assessments[c] = assessments[i]
	}
	SummarizeSales(result, e.cfg.SalesQualificationThreshold)

	if e.logger != nil {
		e.logger.Info("✅ Sales scoring completed",
			zap.String("meeting_id", t.MeetingID),
			zap.String("model", model),
			zap.Int("total_score", result.TotalScore),
			zap.String("rating", result.PerformanceRating),
		)
	}
	return result, nil
}

// ExtractClient runs only the three-tier client resolution
func (e *Engine) ExtractClient(ctx context.Context, t *entities.Transcript, model string) (entities.ClientInfo, error) {
	if err := ctx.Err(); err != nil {
		return entities.ClientInfo{}, err
	}
	info := e.resolveClient(ctx, t, e.model(model), OpportunityContext(t))
	if err := ctx.Err(); err != nil {
		return entities.ClientInfo{}, err
	}
	return info, nil
}

func (e *Engine) section(ctx context.Context, model string, c Criterion, input string) entities.SectionResult {
	obj, outcome, f := e.req.run(ctx, pass{
		track:   trackOpportunity,
		name:    string(c),
		model:   model,
		prompt:  opportunityPrompts[c],
		context: input,
		shape:   sectionShape,
	})
	e.observe(trackOpportunity, string(c), outcome)
	if f != nil {
		return defaultSection(f.reason, f.summary)
	}
	return sectionFromObject(obj)
}

func (e *Engine) fit(ctx context.Context, model, input string) entities.FitResult {
	obj, outcome, f := e.req.run(ctx, pass{
		track:   trackOpportunity,
		name:    string(CriterionFit),
		model:   model,
		prompt:  opportunityPrompts[CriterionFit],
		context: input,
		shape:   fitShape,
	})
	e.observe(trackOpportunity, string(CriterionFit), outcome)
	if f != nil {
		return defaultFit(f.reason, f.summary)
	}
	return fitFromObject(obj)
}

func (e *Engine) taxonomy(ctx context.Context, model, input string) entities.Taxonomy {
	obj, outcome, f := e.req.run(ctx, pass{
		track:   trackOpportunity,
		name:    passTaxonomy,
		model:   model,
		prompt:  taxonomyPrompt,
		context: input,
		shape:   taxonomyShape,
	})
	e.observe(trackOpportunity, passTaxonomy, outcome)
	if f != nil {
		return emptyTaxonomy()
	}
	return FilterTaxonomy(obj)
}

func (e *Engine) salesCriterion(ctx context.Context, model string, c entities.SalesCriterion, input string) entities.SalesAssessmentResult {
	obj, outcome, f := e.req.run(ctx, pass{
		track:   trackSales,
		name:    string(c),
		model:   model,
		prompt:  salesPrompt(c),
		context: input,
		shape:   salesShape,
	})
	e.observe(trackSales, string(c), outcome)
	if f != nil {
		return defaultSales(f.reason, salesInvalidCoach)
	}
	return salesFromObject(obj)
}

func (e *Engine) observe(track, name, outcome string) {
	if e.recorder != nil {
		e.recorder.ObserveCriterion(track, name, outcome)
	}
}

// passGroup runs passes concurrently, bounded by the engine's concurrency
type passGroup struct {
	g   *errgroup.Group
	ctx context.Context
	sem *semaphore.Weighted
}

func (e *Engine) newGroup(ctx context.Context) *passGroup {
	g, gctx := errgroup.WithContext(ctx)
	return &passGroup{g: g, ctx: gctx, sem: semaphore.NewWeighted(int64(e.cfg.Concurrency))}
}

func (p *passGroup) spawn(fn func(context.Context)) {
	p.g.Go(func() error {
		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			return err
		}
		defer p.sem.Release(1)
		fn(p.ctx)
		return nil
	})
}

// wait blocks until every pass has finished. Any cancellation of the
// caller's context discards the results.
func (p *passGroup) wait(ctx context.Context) error {
	if err := p.g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
