package analyzer

import "github.com/anime-shed/table-inspector-go/internal/preprocess"

// AnalysisOptions configures how an image is prepared before it is sent to the model
type AnalysisOptions struct {
	Preprocess preprocess.Options

	// SkipPreprocessing sends the decoded image as is
	SkipPreprocessing bool

	// MaxWorkers bounds concurrent analyses in a batch; 0 uses the CPU count
	MaxWorkers int
}

// DefaultOptions returns default analysis options
func DefaultOptions() AnalysisOptions {
	return AnalysisOptions{
		Preprocess: preprocess.DefaultOptions(),
		MaxWorkers: 4,
	}
}

// WithMaxImageSize sets the bounding box images are downscaled into
func (opts AnalysisOptions) WithMaxImageSize(width, height int) AnalysisOptions {
	opts.Preprocess = opts.Preprocess.WithMaxSize(width, height)
	return opts
}

// WithoutPreprocessing disables resizing and enhancement
func (opts AnalysisOptions) WithoutPreprocessing() AnalysisOptions {
	opts.SkipPreprocessing = true
	return opts
}

// WithMaxWorkers sets the batch concurrency
func (opts AnalysisOptions) WithMaxWorkers(n int) AnalysisOptions {
	opts.MaxWorkers = n
	return opts
}
