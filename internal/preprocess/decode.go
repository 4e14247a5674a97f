package preprocess

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	apperrors "github.com/anime-shed/table-inspector-go/internal/errors"
	"github.com/anime-shed/table-inspector-go/pkg/models"

	_ "golang.org/x/image/bmp"
)

// Decode reads an image in any supported format (JPEG, PNG, GIF, BMP)
func Decode(r io.Reader) (image.Image, models.ImageMetadata, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, models.ImageMetadata{}, apperrors.NewPreprocessingError("failed to decode image", err)
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, models.ImageMetadata{}, apperrors.NewPreprocessingError("failed to decode image",
			fmt.Errorf("empty image bounds %v", b))
	}

	return img, models.ImageMetadata{Width: b.Dx(), Height: b.Dy(), Format: format}, nil
}

// DecodeBytes is Decode over an in-memory buffer
func DecodeBytes(data []byte) (image.Image, models.ImageMetadata, error) {
	if len(data) == 0 {
		return nil, models.ImageMetadata{}, apperrors.NewPreprocessingError("failed to decode image",
			fmt.Errorf("empty image data"))
	}
	return Decode(bytes.NewReader(data))
}
