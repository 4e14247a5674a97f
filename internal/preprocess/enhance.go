package preprocess

import (
	"image"
	"math"
)

// adjustContrast blends img against a flat grey image at the mean luminance.
// factor 1 returns an identical copy, 0 returns the flat grey.
func adjustContrast(img *image.NRGBA, factor float64) *image.NRGBA {
	out := cloneNRGBA(img)
	if factor == 1 {
		return out
	}

	mean := math.Floor(ComputeStats(out).MeanLuminance + 0.5)
	for i := 0; i < len(out.Pix); i += 4 {
		out.Pix[i] = blend(mean, float64(out.Pix[i]), factor)
		out.Pix[i+1] = blend(mean, float64(out.Pix[i+1]), factor)
		out.Pix[i+2] = blend(mean, float64(out.Pix[i+2]), factor)
	}
	return out
}

// adjustSharpness blends img against a smoothed copy of itself.
// Border pixels are left as they are in the smoothed copy, so they pass through unchanged.
func adjustSharpness(img *image.NRGBA, factor float64) *image.NRGBA {
	out := cloneNRGBA(img)
	if factor == 1 {
		return out
	}

	smooth := smoothFilter(out)
	for i := 0; i < len(out.Pix); i += 4 {
		out.Pix[i] = blend(float64(smooth.Pix[i]), float64(out.Pix[i]), factor)
		out.Pix[i+1] = blend(float64(smooth.Pix[i+1]), float64(out.Pix[i+1]), factor)
		out.Pix[i+2] = blend(float64(smooth.Pix[i+2]), float64(out.Pix[i+2]), factor)
	}
	return out
}

// smoothFilter applies the 3x3 kernel [1 1 1; 1 5 1; 1 1 1] / 13 to the colour channels.
// img must share the compact layout produced by cloneNRGBA.
func smoothFilter(img *image.NRGBA) *image.NRGBA {
	out := cloneNRGBA(img)
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w < 3 || h < 3 {
		return out
	}

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			base := y*img.Stride + x*4
			for c := 0; c < 3; c++ {
				var sum float64
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						weight := 1.0
						if dx == 0 && dy == 0 {
							weight = 5
						}
						sum += weight * float64(img.Pix[base+dy*img.Stride+dx*4+c])
					}
				}
				out.Pix[base+c] = clip8(sum/13 + 0.5)
			}
		}
	}
	return out
}

// blend returns degenerate + factor*(v - degenerate), truncated and clipped to a byte
func blend(degenerate, v, factor float64) uint8 {
	return clip8(degenerate + factor*(v-degenerate))
}

func clip8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

func cloneNRGBA(img *image.NRGBA) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, img.Rect.Dx(), img.Rect.Dy()))
	w := img.Rect.Dx() * 4
	for y := 0; y < img.Rect.Dy(); y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+w], img.Pix[y*img.Stride:y*img.Stride+w])
	}
	return out
}
