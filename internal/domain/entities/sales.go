package entities

import "time"

// SalesCriterion names one of the eight rep-capability criteria
type SalesCriterion string

const (
	SalesIntroduction     SalesCriterion = "introduction"
	SalesDiscovery        SalesCriterion = "discovery"
	SalesScoping          SalesCriterion = "scoping"
	SalesSolution         SalesCriterion = "solution"
	SalesCommercial       SalesCriterion = "commercial"
	SalesCaseStudies      SalesCriterion = "case_studies"
	SalesNextSteps        SalesCriterion = "next_steps"
	SalesStrategicContext SalesCriterion = "strategic_context"
)

// SalesCriteria lists the criteria in reporting order
var SalesCriteria = []SalesCriterion{
	SalesIntroduction,
	SalesDiscovery,
	SalesScoping,
	SalesSolution,
	SalesCommercial,
	SalesCaseStudies,
	SalesNextSteps,
	SalesStrategicContext,
}

var salesCriterionNames = map[SalesCriterion]string{
	SalesIntroduction:     "Introduction & Framing",
	SalesDiscovery:        "Discovery",
	SalesScoping:          "Opportunity Scoping",
	SalesSolution:         "Solution Positioning",
	SalesCommercial:       "Commercial Confidence",
	SalesCaseStudies:      "Case Studies",
	SalesNextSteps:        "Next Steps",
	SalesStrategicContext: "Strategic Context",
}

// DisplayName returns the human-readable criterion name
func (c SalesCriterion) DisplayName() string {
	if name, ok := salesCriterionNames[c]; ok {
		return name
	}
	return string(c)
}

// ParseSalesCriterion resolves a criterion key
func ParseSalesCriterion(key string) (SalesCriterion, error) {
	c := SalesCriterion(key)
	if _, ok := salesCriterionNames[c]; !ok {
		return "", ErrUnknownCriterion
	}
	return c, nil
}

// MaxSalesScore is the top of the per-criterion scale
const MaxSalesScore = 3

// SalesAssessmentResult is the verdict for one sales criterion.
// Qualified is always derived from Score.
type SalesAssessmentResult struct {
	Qualified    bool    `json:"qualified"`
	Score        int     `json:"score"`
	Reason       string  `json:"reason"`
	Evidence     *string `json:"evidence"`
	CoachingNote *string `json:"coaching_note"`
}

// Performance bands for the summed sales score
const (
	RatingExcellent        = "Excellent"
	RatingGood             = "Good"
	RatingDeveloping       = "Developing"
	RatingNeedsImprovement = "Needs Improvement"
)

// SalesResult aggregates the eight sales criteria
type SalesResult struct {
	MeetingID         string                                   `json:"meeting_id"`
	SalespersonName   string                                   `json:"salesperson_name,omitempty"`
	SalespersonEmail  string                                   `json:"salesperson_email,omitempty"`
	Date              time.Time                                `json:"date"`
	Client            string                                   `json:"client,omitempty"`
	TotalScore        int                                      `json:"total_score"`
	TotalQualified    int                                      `json:"total_qualified"`
	Qualified         bool                                     `json:"qualified"`
	PerformanceRating string                                   `json:"performance_rating"`
	Assessments       map[SalesCriterion]SalesAssessmentResult `json:"assessments"`
	Strengths         []string                                 `json:"strengths"`
	Improvements      []string                                 `json:"improvements"`
	OverallCoaching   string                                   `json:"overall_coaching"`
	ScoredAt          time.Time                                `json:"scored_at"`
	LLMModel          string                                   `json:"llm_model"`
}

// Assessment returns the result for a criterion, or a zero result
func (r *SalesResult) Assessment(c SalesCriterion) SalesAssessmentResult {
	if r == nil || r.Assessments == nil {
		return SalesAssessmentResult{}
	}
	return r.Assessments[c]
}
