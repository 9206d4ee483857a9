package status

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	State        string `json:"state"`
	SourceCount  int    `json:"source_count"`
	OKCount      int    `json:"ok_count"`
	StaleCount   int    `json:"stale_count"`
	FailingCount int    `json:"failing_count"`
	UnknownCount int    `json:"unknown_count"`
	DocsPushed   int64  `json:"docs_pushed"`
}

// SourceResponse is one source entry in GET /api/v1/sources or
// GET /api/v1/sources/{id}.
type SourceResponse struct {
	SourceID            string `json:"source_id"`
	State               string `json:"state"`
	LastSuccess         string `json:"last_success,omitempty"` // RFC3339
	LastError           string `json:"last_error,omitempty"`
	LastErrorAt         string `json:"last_error_at,omitempty"` // RFC3339
	ConsecutiveFailures int    `json:"consecutive_failures"`
	DocsPushed          int64  `json:"docs_pushed"`
	SamplesLastPoll     int    `json:"samples_last_poll"`
	SkippedLastPoll     int    `json:"skipped_last_poll"`
}

// SnapshotResponse is the payload for GET /api/v1/snapshot and the data field
// of hub broadcasts.
type SnapshotResponse struct {
	Sources     []SourceResponse `json:"sources"`
	GeneratedAt string           `json:"generated_at"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
