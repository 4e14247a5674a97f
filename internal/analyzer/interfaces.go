package analyzer

import (
	"context"
	"image"

	"github.com/anime-shed/table-inspector-go/internal/vision"
	"github.com/anime-shed/table-inspector-go/pkg/models"
)

// TableAnalyzer runs the recognition pipeline on a decoded image
type TableAnalyzer interface {
	Analyze(ctx context.Context, img image.Image, settings vision.Settings) (*Analysis, error)

	// TestConnection probes the vision endpoint without sending an image
	TestConnection(ctx context.Context, settings vision.Settings) models.ConnectivityStatus

	Options() AnalysisOptions
}

// VisionClient is the remote model; *vision.Client implements it
type VisionClient interface {
	Analyze(ctx context.Context, img image.Image, s vision.Settings) (*models.AnalysisResult, error)
	TestConnection(ctx context.Context, s vision.Settings) models.ConnectivityStatus
}

// ImagePreprocessor prepares an image for upload; *preprocess.Preprocessor implements it
type ImagePreprocessor interface {
	Process(img image.Image) (*image.NRGBA, error)
}
