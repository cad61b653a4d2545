package pipeline

import (
	"gorm.io/datatypes"

	"github.com/johnquangdev/meeting-intel/internal/domain/entities"
)

// Assemble merges a transcript and its scoring verdicts into the flat
// warehouse record. mappings is normalised variant -> canonical client name
// and may be nil. sales is nil when the sales track was not run.
func Assemble(t *entities.Transcript, opp *entities.OpportunityResult, sales *entities.SalesResult, mappings map[string]string) *entities.ScoredRecord {
	participants := t.Participants
	if participants == nil {
		participants = []string{}
	}

	record := &entities.ScoredRecord{
		MeetingID:    t.MeetingID,
		Date:         datatypes.Date(t.Date),
		DateInferred: t.DateInferred,
		Participants: participants,
		Desk:         t.Desk,
		Source:       string(t.Source),
		ClientInfo:   datatypes.NewJSONType(CanonicalClient(opp.ClientInfo, mappings)),

		GranolaNoteID:        entities.StringPtr(t.GranolaNoteID),
		Title:                entities.StringPtr(t.Title),
		CreatorName:          entities.StringPtr(t.CreatorName),
		CreatorEmail:         entities.StringPtr(t.CreatorEmail),
		CalendarEventTitle:   entities.StringPtr(t.CalendarEventTitle),
		CalendarEventID:      entities.StringPtr(t.CalendarEventID),
		CalendarEventTime:    t.CalendarEventTime,
		GranolaLink:          entities.StringPtr(t.GranolaLink),
		FileCreatedTimestamp: t.FileCreatedTimestamp,
		ZapierStepID:         t.ZapierStepID,

		EnhancedNotes:  entities.StringPtr(t.EnhancedNotes),
		MyNotes:        entities.StringPtr(t.MyNotes),
		FullTranscript: entities.StringPtr(t.FullTranscript),

		TotalQualifiedSections: opp.TotalQualifiedSections,
		Qualified:              opp.Qualified,
		Now:                    opp.Now,
		Next:                   opp.Next,
		Measure:                opp.Measure,
		Blocker:                opp.Blocker,
		Fit:                    opp.Fit,
		Challenges:             nonNil(opp.Challenges),
		Results:                nonNil(opp.Results),
		Offering:               opp.Offering,

		ScoredAt: opp.ScoredAt,
		LLMModel: opp.LLMModel,
	}

	if sales != nil {
		attachSales(record, sales)
	}
	return record
}

func attachSales(record *entities.ScoredRecord, sales *entities.SalesResult) {
	assessment := func(c entities.SalesCriterion) *entities.SalesAssessmentResult {
		a := sales.Assessment(c)
		return &a
	}
	totalScore := sales.TotalScore
	totalQualified := sales.TotalQualified
	qualified := sales.Qualified

	record.SalespersonName = entities.StringPtr(sales.SalespersonName)
	record.SalespersonEmail = entities.StringPtr(sales.SalespersonEmail)
	record.SalesTotalScore = &totalScore
	record.SalesTotalQualified = &totalQualified
	record.SalesQualified = &qualified
	record.SalesIntroduction = assessment(entities.SalesIntroduction)
	record.SalesDiscovery = assessment(entities.SalesDiscovery)
	record.SalesScoping = assessment(entities.SalesScoping)
	record.SalesSolution = assessment(entities.SalesSolution)
	record.SalesCommercial = assessment(entities.SalesCommercial)
	record.SalesCaseStudies = assessment(entities.SalesCaseStudies)
	record.SalesNextSteps = assessment(entities.SalesNextSteps)
	record.SalesStrategicContext = assessment(entities.SalesStrategicContext)
	record.SalesStrengths = nonNil(sales.Strengths)
	record.SalesImprovements = nonNil(sales.Improvements)
	record.SalesOverallCoaching = entities.StringPtr(sales.OverallCoaching)
	record.SalesPerformanceRating = entities.StringPtr(sales.PerformanceRating)
}

// CanonicalClient replaces the client name with its mapped canonical form.
// The resolution source is kept.
func CanonicalClient(info entities.ClientInfo, mappings map[string]string) entities.ClientInfo {
	if info.Client == nil || len(mappings) == 0 {
		return info
	}
	if canonical, ok := mappings[entities.NormalizeVariant(*info.Client)]; ok && canonical != "" {
		info.Client = &canonical
	}
	return info
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
