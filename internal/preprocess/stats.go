package preprocess

import (
	"image"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// Stats summarizes the luminance of an image
type Stats struct {
	MeanLuminance     float64 `json:"mean_luminance"`
	LuminanceStdDev   float64 `json:"luminance_stddev"`
	LaplacianVariance float64 `json:"laplacian_variance"`
}

// ComputeStats returns luminance statistics for img
func ComputeStats(img *image.NRGBA) Stats {
	lum := luminancePlane(img)
	if len(lum) == 0 {
		return Stats{}
	}

	mean, std := stat.MeanStdDev(lum, nil)
	return Stats{
		MeanLuminance:     mean,
		LuminanceStdDev:   std,
		LaplacianVariance: laplacianVariance(lum, img.Rect.Dx(), img.Rect.Dy()),
	}
}

// luma is the ITU-R 601-2 transform in 16.16 fixed point
func luma(r, g, b uint8) uint8 {
	return uint8((uint32(r)*19595 + uint32(g)*38470 + uint32(b)*7471 + 0x8000) >> 16)
}

// luminancePlane converts img to 8-bit grey values, row-major, processing
// horizontal strips in parallel for large images.
func luminancePlane(img *image.NRGBA) []float64 {
	width, height := img.Rect.Dx(), img.Rect.Dy()
	if width == 0 || height == 0 {
		return nil
	}
	out := make([]float64, width*height)

	numWorkers := runtime.NumCPU()
	if width*height < 100000 || height < numWorkers {
		numWorkers = 1
	}
	rowsPerWorker := (height + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		startY := i * rowsPerWorker
		endY := startY + rowsPerWorker
		if endY > height {
			endY = height
		}
		if startY >= endY {
			break
		}
		wg.Add(1)
		go func(startY, endY int) {
			defer wg.Done()
			for y := startY; y < endY; y++ {
				row := img.Pix[y*img.Stride : y*img.Stride+width*4]
				for x := 0; x < width; x++ {
					p := row[x*4 : x*4+4 : x*4+4]
					out[y*width+x] = float64(luma(p[0], p[1], p[2]))
				}
			}
		}(startY, endY)
	}
	wg.Wait()

	return out
}

// laplacianVariance measures edge energy with the [0 1 0; 1 -4 1; 0 1 0] kernel
func laplacianVariance(lum []float64, width, height int) float64 {
	if width < 3 || height < 3 {
		return 0
	}

	data := make([]float64, 0, (width-2)*(height-2))
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			data = append(data, -4*lum[i]+lum[i-width]+lum[i+width]+lum[i-1]+lum[i+1])
		}
	}
	return stat.Variance(data, nil)
}
