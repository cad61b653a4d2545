package entities

import (
	"time"

	"github.com/google/uuid"
)

// ScoringJobStatus represents the status of a pipeline job
type ScoringJobStatus string

const (
	ScoringJobStatusPending    ScoringJobStatus = "pending"    // Accepted, waiting for a worker
	ScoringJobStatusProcessing ScoringJobStatus = "processing" // Fetching, importing or scoring
	ScoringJobStatusCompleted  ScoringJobStatus = "completed"  // Record produced
	ScoringJobStatusFailed     ScoringJobStatus = "failed"     // Pipeline gave up
)

// ScoringJobType represents how a job was submitted
type ScoringJobType string

const (
	ScoringJobTypeFile    ScoringJobType = "file"    // Single blob path
	ScoringJobTypeBatch   ScoringJobType = "batch"   // One file out of a prefix listing
	ScoringJobTypeWebhook ScoringJobType = "webhook" // Automation payload
)

// ScoringJob tracks one transcript through the pipeline
type ScoringJob struct {
	ID           uuid.UUID        `json:"id"`
	JobType      ScoringJobType   `json:"job_type"`
	MeetingID    string           `json:"meeting_id"`
	Bucket       string           `json:"bucket,omitempty"`
	FilePath     string           `json:"file_path,omitempty"`
	Model        string           `json:"model"`
	IncludeSales bool             `json:"include_sales"`
	Status       ScoringJobStatus `json:"status"`

	// Processing details
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Score       *int       `json:"score,omitempty"`
	Qualified   *bool      `json:"qualified,omitempty"`
	Cached      bool       `json:"cached"`
	LastError   *string    `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewScoringJob creates a pending job. MeetingID is a placeholder until the
// transcript has been imported.
func NewScoringJob(jobType ScoringJobType, filePath, model string) *ScoringJob {
	now := time.Now().UTC()
	return &ScoringJob{
		ID:        uuid.New(),
		JobType:   jobType,
		MeetingID: "processing-" + filePath,
		FilePath:  filePath,
		Model:     model,
		Status:    ScoringJobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsTerminal reports whether the job will not change again
func (j *ScoringJob) IsTerminal() bool {
	return j.Status == ScoringJobStatusCompleted || j.Status == ScoringJobStatusFailed
}

// MarkAsProcessing marks job as being processed
func (j *ScoringJob) MarkAsProcessing() {
	j.Status = ScoringJobStatusProcessing
	now := time.Now().UTC()
	j.StartedAt = &now
	j.UpdatedAt = now
}

// MarkAsCompleted marks job as completed successfully
func (j *ScoringJob) MarkAsCompleted(meetingID string, score int, qualified, cached bool) {
	j.Status = ScoringJobStatusCompleted
	j.MeetingID = meetingID
	j.Score = &score
	j.Qualified = &qualified
	j.Cached = cached
	now := time.Now().UTC()
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// MarkAsFailed marks job as failed with error message
func (j *ScoringJob) MarkAsFailed(errMsg string) {
	j.Status = ScoringJobStatusFailed
	j.LastError = &errMsg
	now := time.Now().UTC()
	j.CompletedAt = &now
	j.UpdatedAt = now
}
