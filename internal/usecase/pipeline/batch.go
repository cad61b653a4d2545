package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/johnquangdev/meeting-intel/internal/domain/entities"
)

// ModelComparison is the per-model tally of a compare-models run
type ModelComparison struct {
	Model             string  `json:"model"`
	Scored            int     `json:"scored"`
	Failed            int     `json:"failed"`
	Qualified         int     `json:"qualified"`
	AvgQualifiedCount float64 `json:"avg_total_qualified_sections"`
}

// ScoreAll scores transcripts concurrently. results[i] belongs to
// transcripts[i] and is nil when that transcript failed; one failure never
// stops the others.
func (s *pipelineService) ScoreAll(ctx context.Context, transcripts []*entities.Transcript, opts ScoreOptions) ([]*Result, []error) {
	results := make([]*Result, len(transcripts))
	errs := make([]error, len(transcripts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, t := range transcripts {
		g.Go(func() error {
			res, err := s.Score(gctx, t, opts)
			if err != nil {
				if s.logger != nil {
					s.logger.Warn("⚠️ Transcript failed",
						zap.String("meeting_id", t.MeetingID),
						zap.Error(err),
					)
				}
				errs[i] = fmt.Errorf("%s: %w", t.MeetingID, err)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	var failures []error
	for _, err := range errs {
		if err != nil {
			failures = append(failures, err)
		}
	}
	return results, failures
}

// CompareModels scores the same transcripts with each model in turn
func (s *pipelineService) CompareModels(ctx context.Context, transcripts []*entities.Transcript, models []string) ([]ModelComparison, error) {
	if len(models) == 0 {
		return nil, fmt.Errorf("at least one model is required")
	}

	out := make([]ModelComparison, 0, len(models))
	for _, model := range models {
		results, failures := s.ScoreAll(ctx, transcripts, ScoreOptions{Model: model})
		if err := ctx.Err(); err != nil {
			return out, err
		}

		cmp := ModelComparison{Model: model, Failed: len(failures)}
		total := 0
		for _, res := range results {
			if res == nil {
				continue
			}
			cmp.Scored++
			total += res.Opportunity.TotalQualifiedSections
			if res.Opportunity.Qualified {
				cmp.Qualified++
			}
		}
		if cmp.Scored > 0 {
			cmp.AvgQualifiedCount = float64(total) / float64(cmp.Scored)
		}
		out = append(out, cmp)
	}
	return out, nil
}
