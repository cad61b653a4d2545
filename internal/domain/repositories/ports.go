package repositories

import (
	"context"
	"time"
)

// BlobStore is the external byte store holding raw transcripts and results
type BlobStore interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
	Put(ctx context.Context, path string, data []byte, contentType string) error
	Exists(ctx context.Context, path string) (bool, error)
	List(ctx context.Context, prefix string, max int) ([]string, error)
}

// ScoreCache is a write-once-per-key cache of scoring payloads keyed by
// (meeting id, model). Once a key is set, reads for it are stable.
type ScoreCache interface {
	Get(ctx context.Context, meetingID, model string) ([]byte, bool, error)
	// PutIfAbsent stores payload only when the key is unset and reports
	// whether this call stored it.
	PutIfAbsent(ctx context.Context, meetingID, model string, payload []byte, ttl time.Duration) (bool, error)
}
