package entities

import (
	"time"

	"gorm.io/datatypes"
)

// ScoredRecord is the flat warehouse row for one meeting. MeetingID is the
// upsert key; ScoredAt decides whether a re-delivery replaces the stored row.
type ScoredRecord struct {
	ID           uint                           `json:"-" gorm:"primaryKey;autoIncrement"`
	MeetingID    string                         `json:"meeting_id" gorm:"type:varchar(255);not null;uniqueIndex:idx_meeting_intel_meeting_id"`
	Date         datatypes.Date                 `json:"date" gorm:"not null"`
	DateInferred bool                           `json:"date_inferred" gorm:"not null;default:false"`
	Participants []string                       `json:"participants" gorm:"type:jsonb;serializer:json"`
	Desk         string                         `json:"desk" gorm:"type:varchar(100)"`
	Source       string                         `json:"source" gorm:"type:varchar(50);not null"`
	ClientInfo   datatypes.JSONType[ClientInfo] `json:"client_info" gorm:"type:jsonb;not null"`

	GranolaNoteID        *string    `json:"granola_note_id" gorm:"type:varchar(255)"`
	Title                *string    `json:"title" gorm:"type:text"`
	CreatorName          *string    `json:"creator_name" gorm:"type:varchar(255)"`
	CreatorEmail         *string    `json:"creator_email" gorm:"type:varchar(255)"`
	CalendarEventTitle   *string    `json:"calendar_event_title" gorm:"type:text"`
	CalendarEventID      *string    `json:"calendar_event_id" gorm:"type:varchar(255)"`
	CalendarEventTime    *time.Time `json:"calendar_event_time"`
	GranolaLink          *string    `json:"granola_link" gorm:"type:text"`
	FileCreatedTimestamp *int64     `json:"file_created_timestamp"`
	ZapierStepID         *int64     `json:"zapier_step_id"`

	EnhancedNotes  *string `json:"enhanced_notes" gorm:"type:text"`
	MyNotes        *string `json:"my_notes" gorm:"type:text"`
	FullTranscript *string `json:"full_transcript" gorm:"type:text"`

	TotalQualifiedSections int           `json:"total_qualified_sections" gorm:"not null"`
	Qualified              bool          `json:"qualified" gorm:"not null"`
	Now                    SectionResult `json:"now" gorm:"type:jsonb;serializer:json;not null"`
	Next                   SectionResult `json:"next" gorm:"type:jsonb;serializer:json;not null"`
	Measure                SectionResult `json:"measure" gorm:"type:jsonb;serializer:json;not null"`
	Blocker                SectionResult `json:"blocker" gorm:"type:jsonb;serializer:json;not null"`
	Fit                    FitResult     `json:"fit" gorm:"type:jsonb;serializer:json;not null"`
	Challenges             []string      `json:"challenges" gorm:"type:jsonb;serializer:json"`
	Results                []string      `json:"results" gorm:"type:jsonb;serializer:json"`
	Offering               *string       `json:"offering" gorm:"type:varchar(255)"`

	ScoredAt time.Time `json:"scored_at" gorm:"not null;index"`
	LLMModel string    `json:"llm_model" gorm:"type:varchar(100);not null"`

	// Sales track, null when the track was not requested
	SalespersonName        *string                `json:"salesperson_name" gorm:"type:varchar(255)"`
	SalespersonEmail       *string                `json:"salesperson_email" gorm:"type:varchar(255)"`
	SalesTotalScore        *int                   `json:"sales_total_score"`
	SalesTotalQualified    *int                   `json:"sales_total_qualified"`
	SalesQualified         *bool                  `json:"sales_qualified"`
	SalesIntroduction      *SalesAssessmentResult `json:"sales_introduction" gorm:"type:jsonb;serializer:json"`
	SalesDiscovery         *SalesAssessmentResult `json:"sales_discovery" gorm:"type:jsonb;serializer:json"`
	SalesScoping           *SalesAssessmentResult `json:"sales_scoping" gorm:"type:jsonb;serializer:json"`
	SalesSolution          *SalesAssessmentResult `json:"sales_solution" gorm:"type:jsonb;serializer:json"`
	SalesCommercial        *SalesAssessmentResult `json:"sales_commercial" gorm:"type:jsonb;serializer:json"`
	SalesCaseStudies       *SalesAssessmentResult `json:"sales_case_studies" gorm:"type:jsonb;serializer:json"`
	SalesNextSteps         *SalesAssessmentResult `json:"sales_next_steps" gorm:"type:jsonb;serializer:json"`
	SalesStrategicContext  *SalesAssessmentResult `json:"sales_strategic_context" gorm:"type:jsonb;serializer:json"`
	SalesStrengths         []string               `json:"sales_strengths" gorm:"type:jsonb;serializer:json"`
	SalesImprovements      []string               `json:"sales_improvements" gorm:"type:jsonb;serializer:json"`
	SalesOverallCoaching   *string                `json:"sales_overall_coaching" gorm:"type:text"`
	SalesPerformanceRating *string                `json:"sales_performance_rating" gorm:"type:varchar(50)"`

	CreatedAt time.Time `json:"-" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"-" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (ScoredRecord) TableName() string {
	return "meeting_intel"
}

// WarehouseInfo summarises the warehouse table
type WarehouseInfo struct {
	Table          string     `json:"table"`
	Rows           int64      `json:"rows"`
	QualifiedRows  int64      `json:"qualified_rows"`
	LatestScoredAt *time.Time `json:"latest_scored_at"`
}

// SalespersonSummary is a per-rep aggregate over a recent window
type SalespersonSummary struct {
	SalespersonName   string  `json:"salesperson_name"`
	SalespersonEmail  string  `json:"salesperson_email"`
	TotalMeetings     int     `json:"total_meetings"`
	AvgTotalScore     float64 `json:"avg_total_score"`
	AvgQualified      float64 `json:"avg_qualified_count"`
	QualificationRate float64 `json:"qualification_rate"`
	BestScore         int     `json:"best_score"`
	WorstScore        int     `json:"worst_score"`
}
