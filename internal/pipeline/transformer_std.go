package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/Sandahk/medical-simulator-demo/internal/domain"
	xdraw "golang.org/x/image/draw"
)

// sharpenKernel is a 3x3 high-pass filter; the negative ring subtracts the
// neighbourhood average so edges stand out.
var sharpenKernel = [3][3]float64{
	{0, -1, 0},
	{-1, 5, -1},
	{0, -1, 0},
}

type stdlibTransformer struct{}

func (t stdlibTransformer) Transform(ctx context.Context, src domain.DecodedImage, phase domain.Phase) ([]byte, int, int, error) {
	select {
	case <-ctx.Done():
		return nil, 0, 0, ctx.Err()
	default:
	}

	if src.Raster == nil {
		return nil, 0, 0, fmt.Errorf("decoded raster is required")
	}

	gray := toGray(src.Raster)

	var out *image.Gray
	switch phase {
	case domain.PhaseArterial:
		out = sharpen(adjustLevels(equalize(gray)))
	case domain.PhaseVenous:
		out = gaussianBlur(gray, blurSigma)
	default:
		return nil, 0, 0, fmt.Errorf("%w: %q", ErrUnknownPhase, phase)
	}

	data, err := encodePNG(out)
	if err != nil {
		return nil, 0, 0, err
	}

	bounds := out.Bounds()
	return data, bounds.Dx(), bounds.Dy(), nil
}

// toGray copies any decoded raster into a fresh 8-bit grayscale image
// anchored at the origin. Every later stage works on this copy, so the
// caller's raster stays untouched.
func toGray(src image.Image) *image.Gray {
	bounds := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	xdraw.Draw(dst, dst.Bounds(), src, bounds.Min, xdraw.Src)
	return dst
}

// equalize spreads the intensity histogram across the full range. A flat
// image (single intensity) is returned unchanged since there is nothing to
// redistribute.
func equalize(src *image.Gray) *image.Gray {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	total := w * h
	if total == 0 {
		return dst
	}

	var hist [256]int
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w]
		for _, v := range row {
			hist[v]++
		}
	}

	cdfMin := 0
	for _, count := range hist {
		if count > 0 {
			cdfMin = count
			break
		}
	}
	if cdfMin == total {
		copy(dst.Pix, src.Pix)
		return dst
	}

	var lut [256]uint8
	cum := 0
	scale := 255.0 / float64(total-cdfMin)
	for i, count := range hist {
		cum += count
		if cum >= cdfMin {
			lut[i] = uint8(math.Round(float64(cum-cdfMin) * scale))
		}
	}

	for i, v := range src.Pix {
		dst.Pix[i] = lut[v]
	}
	return dst
}

// adjustLevels applies the fixed contrast gain around the midpoint and the
// brightness lift in one lookup table, clamping to [0,255].
func adjustLevels(src *image.Gray) *image.Gray {
	var lut [256]uint8
	for i := range lut {
		v := (float64(i)-midpoint)*contrastGain + midpoint
		v *= brightnessGain
		lut[i] = clampU8(v)
	}

	dst := image.NewGray(src.Bounds())
	for i, v := range src.Pix {
		dst.Pix[i] = lut[v]
	}
	return dst
}

// sharpen convolves with the fixed 3x3 high-pass kernel. Samples outside the
// image clamp to the nearest edge pixel, so dimensions are preserved.
func sharpen(src *image.Gray) *image.Gray {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for ky := -1; ky <= 1; ky++ {
				sy := clampInt(y+ky, 0, h-1)
				for kx := -1; kx <= 1; kx++ {
					sx := clampInt(x+kx, 0, w-1)
					sum += sharpenKernel[ky+1][kx+1] * float64(src.Pix[sy*src.Stride+sx])
				}
			}
			dst.Pix[y*dst.Stride+x] = clampU8(sum)
		}
	}
	return dst
}

// gaussianBlur runs a separable Gaussian with the given sigma, horizontal
// pass then vertical, accumulating in float64 before the final rounding.
func gaussianBlur(src *image.Gray, sigma float64) *image.Gray {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return dst
	}

	radius := int(math.Ceil(3 * sigma))
	weights := make([]float64, 2*radius+1)
	var norm float64
	for i := range weights {
		d := float64(i - radius)
		weights[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		norm += weights[i]
	}
	for i := range weights {
		weights[i] /= norm
	}

	horizontal := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for i, weight := range weights {
				sx := clampInt(x+i-radius, 0, w-1)
				sum += weight * float64(src.Pix[y*src.Stride+sx])
			}
			horizontal[y*w+x] = sum
		}
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for i, weight := range weights {
				sy := clampInt(y+i-radius, 0, h-1)
				sum += weight * horizontal[sy*w+x]
			}
			dst.Pix[y*dst.Stride+x] = clampU8(sum)
		}
	}
	return dst
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	encoder := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func clampU8(v float64) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(math.Round(v))
	}
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
