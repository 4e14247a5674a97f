package preprocess

import (
	"fmt"
	"image"
	"math"

	apperrors "github.com/anime-shed/table-inspector-go/internal/errors"

	"golang.org/x/image/draw"
)

// Options configures image preparation before upload
type Options struct {
	MaxWidth  int
	MaxHeight int
	Contrast  float64
	Sharpness float64
}

// DefaultOptions returns the default preprocessing options
func DefaultOptions() Options {
	return Options{
		MaxWidth:  1024,
		MaxHeight: 1024,
		Contrast:  1.2,
		Sharpness: 1.1,
	}
}

// WithMaxSize returns options with a different bounding box
func (o Options) WithMaxSize(width, height int) Options {
	o.MaxWidth = width
	o.MaxHeight = height
	return o
}

// Validate reports unusable option values
func (o Options) Validate() error {
	if o.MaxWidth <= 0 || o.MaxHeight <= 0 {
		return fmt.Errorf("max dimensions must be > 0 (got %dx%d)", o.MaxWidth, o.MaxHeight)
	}
	if o.Contrast < 0 || o.Sharpness < 0 {
		return fmt.Errorf("enhancement factors must be >= 0 (got contrast=%g, sharpness=%g)", o.Contrast, o.Sharpness)
	}
	return nil
}

// Preprocessor downsizes and enhances images. It holds no mutable state.
type Preprocessor struct {
	opts Options
}

// NewPreprocessor creates a preprocessor with the given options
func NewPreprocessor(opts Options) (*Preprocessor, error) {
	if err := opts.Validate(); err != nil {
		return nil, apperrors.NewConfigurationError("invalid preprocessing options", err)
	}
	return &Preprocessor{opts: opts}, nil
}

// Options returns the options in use
func (p *Preprocessor) Options() Options {
	return p.opts
}

// Process returns a new image that fits within the configured bounds, with
// contrast and sharpness boosted. img is never written to.
func (p *Preprocessor) Process(img image.Image) (*image.NRGBA, error) {
	if img == nil {
		return nil, apperrors.NewPreprocessingError("preprocessing failed", fmt.Errorf("nil image"))
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, apperrors.NewPreprocessingError("preprocessing failed",
			fmt.Errorf("empty image bounds %v", bounds))
	}

	var out *image.NRGBA
	w, h := FitDimensions(bounds.Dx(), bounds.Dy(), p.opts.MaxWidth, p.opts.MaxHeight)
	if w != bounds.Dx() || h != bounds.Dy() {
		out = image.NewNRGBA(image.Rect(0, 0, w, h))
		// CatmullRom is the highest quality kernel x/image offers
		draw.CatmullRom.Scale(out, out.Bounds(), img, bounds, draw.Src, nil)
	} else {
		out = image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.Draw(out, out.Bounds(), img, bounds.Min, draw.Src)
	}

	out = adjustContrast(out, p.opts.Contrast)
	out = adjustSharpness(out, p.opts.Sharpness)
	return out, nil
}

// FitDimensions returns the size of a w x h image scaled down, aspect ratio
// preserved, to fit within maxW x maxH. Images already within bounds keep their size.
func FitDimensions(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}

	scale := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	nw := int(math.Round(float64(w) * scale))
	nh := int(math.Round(float64(h) * scale))

	nw = clampInt(nw, 1, maxW)
	nh = clampInt(nh, 1, maxH)
	return nw, nh
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
