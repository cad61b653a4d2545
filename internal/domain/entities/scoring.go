package entities

import "time"

// SectionResult is the verdict for one boolean opportunity criterion
type SectionResult struct {
	Qualified bool    `json:"qualified"`
	Reason    string  `json:"reason"`
	Summary   string  `json:"summary"`
	Evidence  *string `json:"evidence"`
}

// FitResult is the FIT criterion verdict with canonical service names
type FitResult struct {
	Qualified bool     `json:"qualified"`
	Reason    string   `json:"reason"`
	Summary   string   `json:"summary"`
	Services  []string `json:"services"`
	Evidence  *string  `json:"evidence"`
}

// Canonical FIT services
const (
	ServiceAccess    = "Access"
	ServiceTransform = "Transform"
	ServiceVentures  = "Ventures"
)

// ClientSource records which resolution tier named the client
type ClientSource string

const (
	ClientSourceLLM      ClientSource = "llm"
	ClientSourceFilename ClientSource = "filename"
	ClientSourceDomain   ClientSource = "domain"
)

// ClientInfo identifies the counterparty organisation
type ClientInfo struct {
	Client *string      `json:"client"`
	Domain *string      `json:"domain"`
	Size   *string      `json:"size"`
	Source ClientSource `json:"source"`
}

// ClientName returns the client or an empty string
func (c ClientInfo) ClientName() string {
	if c.Client == nil {
		return ""
	}
	return *c.Client
}

// Taxonomy holds closed-vocabulary tags for a meeting
type Taxonomy struct {
	Challenges []string `json:"challenges"`
	Results    []string `json:"results"`
	Offering   *string  `json:"offering"`
}

// OpportunityResult aggregates the five opportunity criteria and taxonomy tags
type OpportunityResult struct {
	MeetingID              string        `json:"meeting_id"`
	ClientInfo             ClientInfo    `json:"client_info"`
	Date                   time.Time     `json:"date"`
	TotalQualifiedSections int           `json:"total_qualified_sections"`
	Qualified              bool          `json:"qualified"`
	Now                    SectionResult `json:"now"`
	Next                   SectionResult `json:"next"`
	Measure                SectionResult `json:"measure"`
	Blocker                SectionResult `json:"blocker"`
	Fit                    FitResult     `json:"fit"`
	Challenges             []string      `json:"challenges"`
	Results                []string      `json:"results"`
	Offering               *string       `json:"offering"`
	ScoredAt               time.Time     `json:"scored_at"`
	LLMModel               string        `json:"llm_model"`
}

// StringPtr returns nil for an empty string
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
