package pipeline

// ProcessTranscriptRequest queues one blob for background scoring
type ProcessTranscriptRequest struct {
	Bucket       string `json:"bucket,omitempty"`
	FilePath     string `json:"file_path" validate:"required,notblank,max=1024"`
	Model        string `json:"model,omitempty" validate:"omitempty,max=100"`
	IncludeSales bool   `json:"include_sales,omitempty"`
}

// ProcessBatchRequest queues every transcript under a prefix
type ProcessBatchRequest struct {
	Prefix       string `json:"prefix"`
	Model        string `json:"model,omitempty" validate:"omitempty,max=100"`
	MaxFiles     int    `json:"max_files" validate:"min=1,max=1000"`
	IncludeSales bool   `json:"include_sales,omitempty"`
}

// ScoreQuery holds the query parameters of a synchronous score request
type ScoreQuery struct {
	Model        string `query:"model" validate:"omitempty,max=100"`
	IncludeSales bool   `query:"include_sales"`
}

// RecentQuery limits the recent records listing
type RecentQuery struct {
	Limit int `query:"limit" validate:"min=1,max=500"`
}

// ClientMappingRequest adds or replaces a client-name mapping
type ClientMappingRequest struct {
	VariantName   string `json:"variant_name" validate:"required,notblank,max=255"`
	CanonicalName string `json:"canonical_name" validate:"required,notblank,max=255"`
	Notes         string `json:"notes,omitempty"`
}

// Defaults for batch requests
const (
	DefaultBatchPrefix   = "transcripts/"
	DefaultBatchMaxFiles = 10
	DefaultRecentLimit   = 10
)
