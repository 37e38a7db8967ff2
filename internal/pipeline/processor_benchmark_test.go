package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/Sandahk/medical-simulator-demo/internal/domain"
)

func BenchmarkProcessArterial(b *testing.B) {
	benchmarkProcess(b, domain.PhaseArterial)
}

func BenchmarkProcessVenous(b *testing.B) {
	benchmarkProcess(b, domain.PhaseVenous)
}

func benchmarkProcess(b *testing.B, phase domain.Phase) {
	b.Helper()

	processor, err := NewProcessor()
	if err != nil {
		b.Fatalf("new processor: %v", err)
	}
	src := benchmarkImage(b, 512, 512)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := processor.Process(context.Background(), src, phase); err != nil {
			b.Fatalf("process: %v", err)
		}
	}
}

func benchmarkImage(b *testing.B, w, h int) domain.DecodedImage {
	b.Helper()

	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x * y) % 256)})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		b.Fatalf("encode source png: %v", err)
	}

	return domain.DecodedImage{
		Raster: img,
		Data:   buf.Bytes(),
		Format: "png",
		Width:  w,
		Height: h,
	}
}
