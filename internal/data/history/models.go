package history

import "time"

const SchemaVersion = 1

// Run outcomes.
const (
	StatusComplete  = "complete"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// TypeCounts holds the number of extracted components per type.
type TypeCounts struct {
	Pages      int `json:"page"`
	Layouts    int `json:"layout"`
	Components int `json:"component"`
	Hooks      int `json:"hook"`
	Utilities  int `json:"utility"`
	Contexts   int `json:"context"`
}

// Total sums every type.
func (c TypeCounts) Total() int {
	return c.Pages + c.Layouts + c.Components + c.Hooks + c.Utilities + c.Contexts
}

// Run is one recorded analysis session.
type Run struct {
	ID            string        `json:"id"`
	Repo          string        `json:"repo"`
	Branch        string        `json:"branch"`
	StartedAt     time.Time     `json:"startedAt"`
	Duration      time.Duration `json:"durationNs"`
	Status        string        `json:"status"`
	Error         string        `json:"error,omitempty"`
	Cached        bool          `json:"cached"`
	TotalFiles    int           `json:"totalFiles"`
	AnalyzedFiles int           `json:"analyzedFiles"`
	SkippedFiles  int           `json:"skippedFiles"`
	Counts        TypeCounts    `json:"counts"`
}
