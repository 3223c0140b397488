package extract

import (
	"time"

	"github.com/ghcatalog/extractor/pkg/record"
)

// Report is the per-run aggregate handed to the artifact sink as metadata.
// It is produced once during finalization and never mutated afterwards.
type Report struct {
	Pipeline    string `json:"pipeline"`
	StartCursor int64  `json:"start_cursor"`
	EndCursor   int64  `json:"end_cursor"`

	// APICalls counts remote calls actually issued, cache hits excluded.
	APICalls  int `json:"api_calls"`
	CacheHits int `json:"cache_hits"`

	// FetchedCount counts detail records obtained over the network this run.
	FetchedCount int `json:"fetched_count"`
	ValidCount   int `json:"valid_count"`
	InvalidCount int `json:"invalid_count"`
	FailedCount  int `json:"failed_count"`

	Interrupted bool `json:"interrupted"`

	StartedAt       time.Time `json:"started_at"`
	DurationSeconds float64   `json:"duration_seconds"`

	Statistics record.Statistics `json:"statistics"`

	// ArtifactLocation is set after a successful upload. It is not part of
	// the serialized metadata since the artifact cannot contain its own
	// final location.
	ArtifactLocation string `json:"-"`
}
