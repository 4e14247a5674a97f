package analyzer

import (
	"context"
	"image"
	"time"

	apperrors "github.com/anime-shed/table-inspector-go/internal/errors"
	"github.com/anime-shed/table-inspector-go/internal/logger"
	"github.com/anime-shed/table-inspector-go/internal/preprocess"
	"github.com/anime-shed/table-inspector-go/internal/vision"
	"github.com/anime-shed/table-inspector-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// coreAnalyzer chains preprocessing and the vision client. It keeps no per-call state.
type coreAnalyzer struct {
	options      AnalysisOptions
	preprocessor ImagePreprocessor
	client       VisionClient
}

// NewTableAnalyzer creates an analyzer using the given vision client
func NewTableAnalyzer(client VisionClient, options AnalysisOptions) (TableAnalyzer, error) {
	pre, err := preprocess.NewPreprocessor(options.Preprocess)
	if err != nil {
		return nil, err
	}
	return newCoreAnalyzer(client, pre, options), nil
}

func newCoreAnalyzer(client VisionClient, pre ImagePreprocessor, options AnalysisOptions) *coreAnalyzer {
	return &coreAnalyzer{
		options:      options,
		preprocessor: pre,
		client:       client,
	}
}

func (ca *coreAnalyzer) Options() AnalysisOptions {
	return ca.options
}

// Analyze preprocesses img, sends it to the model and returns the normalized result
func (ca *coreAnalyzer) Analyze(ctx context.Context, img image.Image, settings vision.Settings) (*Analysis, error) {
	start := time.Now()

	if !settings.HasCredential() {
		return nil, apperrors.NewConfigurationError("vision API key is not configured", nil)
	}

	prepared, err := ca.prepare(img)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	pb := prepared.Bounds()
	analysis := &Analysis{
		Original:  models.ImageMetadata{Width: b.Dx(), Height: b.Dy()},
		Processed: models.ImageMetadata{Width: pb.Dx(), Height: pb.Dy(), Format: "png"},
		Stats:     preprocess.ComputeStats(prepared),
	}

	logger.WithFields(logrus.Fields{
		"original":  b.Size().String(),
		"processed": pb.Size().String(),
		"model":     settings.Model,
	}).Debug("Image prepared for analysis")

	result, err := ca.client.Analyze(ctx, prepared, settings)
	if err != nil {
		return nil, err
	}

	analysis.Result = result
	analysis.Duration = time.Since(start)
	return analysis, nil
}

func (ca *coreAnalyzer) TestConnection(ctx context.Context, settings vision.Settings) models.ConnectivityStatus {
	return ca.client.TestConnection(ctx, settings)
}

func (ca *coreAnalyzer) prepare(img image.Image) (*image.NRGBA, error) {
	if ca.options.SkipPreprocessing {
		return toNRGBA(img)
	}
	return ca.preprocessor.Process(img)
}

func toNRGBA(img image.Image) (*image.NRGBA, error) {
	pre, err := preprocess.NewPreprocessor(preprocess.Options{
		MaxWidth:  maxInt,
		MaxHeight: maxInt,
		Contrast:  1,
		Sharpness: 1,
	})
	if err != nil {
		return nil, err
	}
	return pre.Process(img)
}

const maxInt = int(^uint(0) >> 1)
