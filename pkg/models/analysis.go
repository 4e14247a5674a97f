package models

import "time"

// TableData is a rectangular grid of trimmed string cells.
// Every row has the same length; missing cells are empty strings.
type TableData [][]string

// Rows returns the number of rows
func (t TableData) Rows() int {
	return len(t)
}

// Cols returns the row width, 0 for an empty table
func (t TableData) Cols() int {
	if len(t) == 0 {
		return 0
	}
	return len(t[0])
}

// AnalysisResult is the normalized judgment returned by the vision model
type AnalysisResult struct {
	IsTable     bool      `json:"is_table"`
	Confidence  float64   `json:"confidence"`
	TableData   TableData `json:"table_data"`
	Description string    `json:"description"`
}

// AnalysisRecord wraps a result with the bookkeeping kept in analysis history
type AnalysisRecord struct {
	ID                string         `json:"id"`
	Source            string         `json:"source"`
	Model             string         `json:"model"`
	CreatedAt         time.Time      `json:"created_at"`
	ProcessingTimeSec float64        `json:"processing_time_sec"`
	Result            AnalysisResult `json:"result"`

	// Exports lists where the result was written (file paths, blob URLs)
	Exports []string `json:"exports,omitempty"`
}

// ConnectivityStatus reports the outcome of a connectivity probe
type ConnectivityStatus struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ImageMetadata contains metadata about an image
type ImageMetadata struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
}
