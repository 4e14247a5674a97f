package models

// AnalyzeURLRequest asks for the analysis of an image reference
type AnalyzeURLRequest struct {
	URL string `json:"url" binding:"required"`
}

// BatchAnalyzeRequest asks for the analysis of several image references
type BatchAnalyzeRequest struct {
	URLs []string `json:"urls" binding:"required,min=1"`
}

// BatchItem is one entry of a batch response, in input order
type BatchItem struct {
	URL       string          `json:"url"`
	Record    *AnalysisRecord `json:"record,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorType string          `json:"error_type,omitempty"`
}

// BatchAnalyzeResponse is the response of a batch analysis
type BatchAnalyzeResponse struct {
	Items     []BatchItem `json:"items"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
}

// ConnectivityRequest carries optional overrides for a connectivity probe.
// Empty fields fall back to the server configuration.
type ConnectivityRequest struct {
	APIKey string `json:"api_key,omitempty"`
	APIURL string `json:"api_url,omitempty"`
	Model  string `json:"model,omitempty"`
}

// CompareRequest carries the reference table for a comparison
type CompareRequest struct {
	TableData [][]interface{} `json:"table_data" binding:"required"`
}

// HistoryResponse lists stored analyses
type HistoryResponse struct {
	Items []*AnalysisRecord `json:"items"`
	Count int               `json:"count"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
}
