package analyzer

import (
	"time"

	"github.com/anime-shed/table-inspector-go/internal/preprocess"
	"github.com/anime-shed/table-inspector-go/pkg/models"
)

// Analysis is the outcome of one pipeline run
type Analysis struct {
	Result    *models.AnalysisResult `json:"result"`
	Original  models.ImageMetadata   `json:"original"`
	Processed models.ImageMetadata   `json:"processed"`
	Stats     preprocess.Stats       `json:"stats"`
	Duration  time.Duration          `json:"-"`
}
