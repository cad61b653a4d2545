package pipeline

import "time"

// JobResponse is the status view of a pipeline job
type JobResponse struct {
	ID           string     `json:"id"`
	JobType      string     `json:"job_type"`
	MeetingID    string     `json:"meeting_id"`
	FilePath     string     `json:"file_path,omitempty"`
	Model        string     `json:"model"`
	IncludeSales bool       `json:"include_sales"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at"`
	Score        *int       `json:"score"`
	Qualified    *bool      `json:"qualified,omitempty"`
	Cached       bool       `json:"cached"`
	Error        *string    `json:"error"`
}

// BatchResponse lists the jobs queued by a batch request
type BatchResponse struct {
	Prefix string         `json:"prefix"`
	Count  int            `json:"count"`
	Jobs   []*JobResponse `json:"jobs"`
}

// ModelResponse describes one supported model
type ModelResponse struct {
	Name                string `json:"name"`
	Tier                string `json:"tier"`
	Reasoning           bool   `json:"reasoning"`
	SupportsTemperature bool   `json:"supports_temperature"`
	Default             bool   `json:"default"`
}

// DedupeResponse reports how many duplicate rows were removed
type DedupeResponse struct {
	Removed int64 `json:"removed"`
}
