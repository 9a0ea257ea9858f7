package domain

import "time"

// MaxReportedErrors caps the per-row error strings returned to callers.
const MaxReportedErrors = 10

// ImportSummary contains the result of one import
type ImportSummary struct {
	BatchID        string `json:"batchId"`
	Feed           Feed   `json:"feed"`
	FileName       string `json:"fileName"`
	RawRecords     int    `json:"rawRecords"`
	SkippedRecords int    `json:"skippedRecords"`
	DerivedRecords int    `json:"derivedRecords"`
	Inserted       int    `json:"inserted"`
	Updated        int    `json:"updated"`
	// 只保留前 MaxReportedErrors 条
	Errors     []string  `json:"errors"`
	DurationMs int64     `json:"durationMs"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewImportSummary creates a new ImportSummary with initialized fields
func NewImportSummary(batchID string, feed Feed, fileName string) *ImportSummary {
	return &ImportSummary{
		BatchID:  batchID,
		Feed:     feed,
		FileName: fileName,
		Errors:   []string{},
	}
}

// AddSkip records a skipped row; only the first MaxReportedErrors reasons are kept.
func (s *ImportSummary) AddSkip(reason string) {
	s.SkippedRecords++
	if len(s.Errors) < MaxReportedErrors {
		s.Errors = append(s.Errors, reason)
	}
}

// ImportEventType 导入事件类型
type ImportEventType string

const (
	ImportEventStarted   ImportEventType = "import.started"
	ImportEventCompleted ImportEventType = "import.completed"
	ImportEventFailed    ImportEventType = "import.failed"
)

// ImportEvent is published to event sinks and WebSocket clients.
type ImportEvent struct {
	Type      ImportEventType `json:"type"`
	BatchID   string          `json:"batchId"`
	Feed      Feed            `json:"feed"`
	FileName  string          `json:"fileName"`
	Summary   *ImportSummary  `json:"summary,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
