package scoring

import (
	"fmt"

	"github.com/johnquangdev/meeting-intel/internal/domain/entities"
)

const maxCoachingItems = 3

// Band floors on the summed sales score (0..24)
const (
	excellentFloor  = 20
	goodFloor       = 16
	developingFloor = 12
)

// PerformanceRating returns the band for a summed sales score
func PerformanceRating(total int) string {
	switch {
	case total >= excellentFloor:
		return entities.RatingExcellent
	case total >= goodFloor:
		return entities.RatingGood
	case total >= developingFloor:
		return entities.RatingDeveloping
	default:
		return entities.RatingNeedsImprovement
	}
}

// OverallCoaching returns the banded overall message for a summed score
func OverallCoaching(total int) string {
	switch {
	case total >= excellentFloor:
		return "Excellent meeting performance. Focus on maintaining consistency and mentoring others."
	case total >= goodFloor:
		return "Good meeting performance. A few areas to refine for excellence."
	case total >= developingFloor:
		return "Developing skills. Focus on the improvement areas below for your next meeting."
	default:
		return "Significant coaching opportunity. Review the fundamentals and consider shadowing a senior colleague."
	}
}

// SummarizeSales fills the derived fields of a sales result from its
// assessments. Nothing here is asked of the model.
func SummarizeSales(r *entities.SalesResult, threshold int) {
	r.TotalScore = 0
	r.TotalQualified = 0
	r.Strengths = []string{}
	r.Improvements = []string{}

	for _, c := range entities.SalesCriteria {
		a := r.Assessment(c)
		r.TotalScore += a.Score
		if a.Qualified {
			r.TotalQualified++
		}

		switch {
		case a.Score == entities.MaxSalesScore && len(r.Strengths) < maxCoachingItems:
			r.Strengths = append(r.Strengths, fmt.Sprintf("%s: %s", c.DisplayName(), a.Reason))
		case a.Score <= 1 && len(r.Improvements) < maxCoachingItems:
			note := a.Reason
			if a.CoachingNote != nil && *a.CoachingNote != "" {
				note = *a.CoachingNote
			}
			r.Improvements = append(r.Improvements, fmt.Sprintf("%s: %s", c.DisplayName(), note))
		}
	}

	r.Qualified = r.TotalQualified >= threshold
	r.PerformanceRating = PerformanceRating(r.TotalScore)
	r.OverallCoaching = OverallCoaching(r.TotalScore)
}
