package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"gonum.org/v1/gonum/stat"

	"github.com/Sandahk/medical-simulator-demo/internal/domain"
)

func TestProcessPreservesDimensions(t *testing.T) {
	processor := newTestProcessor(t)
	src := gradientImage(t, 100, 60)

	for _, phase := range []domain.Phase{domain.PhaseArterial, domain.PhaseVenous} {
		result, err := processor.Process(context.Background(), src, phase)
		if err != nil {
			t.Fatalf("process phase=%s: %v", phase, err)
		}
		if result.Width != 100 || result.Height != 60 {
			t.Fatalf("phase=%s: expected 100x60, got %dx%d", phase, result.Width, result.Height)
		}

		decoded, format, err := image.Decode(bytes.NewReader(result.PNG))
		if err != nil {
			t.Fatalf("phase=%s: decode output: %v", phase, err)
		}
		if format != "png" {
			t.Fatalf("phase=%s: expected png output, got %s", phase, format)
		}
		if decoded.Bounds().Dx() != 100 || decoded.Bounds().Dy() != 60 {
			t.Fatalf("phase=%s: output raster is %dx%d", phase, decoded.Bounds().Dx(), decoded.Bounds().Dy())
		}
	}
}

func TestProcessArterialChangesSolidGray(t *testing.T) {
	processor := newTestProcessor(t)
	src := solidGrayImage(t, 100, 100, 128)

	result, err := processor.Process(context.Background(), src, domain.PhaseArterial)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if bytes.Equal(result.PNG, src.Data) {
		t.Fatal("expected arterial output bytes to differ from input bytes")
	}
}

func TestProcessVenousReducesVariance(t *testing.T) {
	processor := newTestProcessor(t)
	src := checkerboardImage(t, 80, 80)

	result, err := processor.Process(context.Background(), src, domain.PhaseVenous)
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	decoded, _, err := image.Decode(bytes.NewReader(result.PNG))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}

	inVar := stat.Variance(grayValues(t, src.Raster), nil)
	outVar := stat.Variance(grayValues(t, decoded), nil)
	if outVar > inVar {
		t.Fatalf("expected blur to reduce variance, got in=%.2f out=%.2f", inVar, outVar)
	}
}

func TestProcessDeterministic(t *testing.T) {
	processor := newTestProcessor(t)
	src := gradientImage(t, 64, 64)

	for _, phase := range []domain.Phase{domain.PhaseArterial, domain.PhaseVenous} {
		first, err := processor.Process(context.Background(), src, phase)
		if err != nil {
			t.Fatalf("first run phase=%s: %v", phase, err)
		}
		second, err := processor.Process(context.Background(), src, phase)
		if err != nil {
			t.Fatalf("second run phase=%s: %v", phase, err)
		}
		if !bytes.Equal(first.PNG, second.PNG) {
			t.Fatalf("phase=%s: expected byte-identical output across runs", phase)
		}
	}
}

func TestProcessDoesNotMutateSource(t *testing.T) {
	processor := newTestProcessor(t)
	src := gradientImage(t, 32, 32)
	before := grayValues(t, src.Raster)

	if _, err := processor.Process(context.Background(), src, domain.PhaseArterial); err != nil {
		t.Fatalf("process: %v", err)
	}

	after := grayValues(t, src.Raster)
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("source raster changed at index %d", i)
		}
	}
}

func TestProcessUnknownPhase(t *testing.T) {
	processor := newTestProcessor(t)
	src := gradientImage(t, 16, 16)

	if _, err := processor.Process(context.Background(), src, domain.Phase("portal")); !errors.Is(err, ErrUnknownPhase) {
		t.Fatalf("expected ErrUnknownPhase, got %v", err)
	}
}

func TestProcessCanceledContext(t *testing.T) {
	processor := newTestProcessor(t)
	src := gradientImage(t, 16, 16)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := processor.Process(ctx, src, domain.PhaseVenous); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func newTestProcessor(t *testing.T) *Processor {
	t.Helper()

	processor, err := NewProcessor()
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}
	return processor
}

func decodedFromGray(t *testing.T, img *image.Gray) domain.DecodedImage {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode source png: %v", err)
	}

	bounds := img.Bounds()
	return domain.DecodedImage{
		Raster: img,
		Data:   buf.Bytes(),
		Format: "png",
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}
}

func gradientImage(t *testing.T, w, h int) domain.DecodedImage {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x*255/w + y*255/h) / 2)})
		}
	}
	return decodedFromGray(t, img)
}

func solidGrayImage(t *testing.T, w, h int, value uint8) domain.DecodedImage {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = value
	}
	return decodedFromGray(t, img)
}

func checkerboardImage(t *testing.T, w, h int) domain.DecodedImage {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return decodedFromGray(t, img)
}

func grayValues(t *testing.T, img image.Image) []float64 {
	t.Helper()

	bounds := img.Bounds()
	values := make([]float64, 0, bounds.Dx()*bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			values = append(values, float64(color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y))
		}
	}
	return values
}
