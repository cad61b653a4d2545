package presenter

import (
	"github.com/johnquangdev/meeting-intel/internal/adapter/dto/pipeline"
	"github.com/johnquangdev/meeting-intel/internal/domain/entities"
	"github.com/johnquangdev/meeting-intel/pkg/ai"
)

// ToJobResponse converts a ScoringJob entity to JobResponse DTO
func ToJobResponse(j *entities.ScoringJob) *pipeline.JobResponse {
	if j == nil {
		return nil
	}
	return &pipeline.JobResponse{
		ID:           j.ID.String(),
		JobType:      string(j.JobType),
		MeetingID:    j.MeetingID,
		FilePath:     j.FilePath,
		Model:        j.Model,
		IncludeSales: j.IncludeSales,
		Status:       string(j.Status),
		CreatedAt:    j.CreatedAt,
		StartedAt:    j.StartedAt,
		CompletedAt:  j.CompletedAt,
		Score:        j.Score,
		Qualified:    j.Qualified,
		Cached:       j.Cached,
		Error:        j.LastError,
	}
}

// ToJobResponses converts a list of jobs
func ToJobResponses(jobs []*entities.ScoringJob) []*pipeline.JobResponse {
	out := make([]*pipeline.JobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, ToJobResponse(j))
	}
	return out
}

// ToModelResponses lists model profiles with the default flagged
func ToModelResponses(profiles []ai.ModelProfile, defaultModel string) []pipeline.ModelResponse {
	out := make([]pipeline.ModelResponse, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, pipeline.ModelResponse{
			Name:                p.Name,
			Tier:                p.Tier,
			Reasoning:           p.Reasoning,
			SupportsTemperature: p.SupportsTemperature,
			Default:             p.Name == defaultModel,
		})
	}
	return out
}
