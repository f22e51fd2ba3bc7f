package workspace

import "time"

// Source says where an analysis was computed.
type Source string

const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
)

// Run records one analyze or upload invocation.
type Run struct {
	ID           string    `json:"id"`
	File         string    `json:"file"`
	Source       Source    `json:"source"`
	Rows         int       `json:"rows"`
	Columns      int       `json:"columns"`
	QualityScore float64   `json:"quality_score"`
	ReportPath   string    `json:"report_path,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
