package validate

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"
)

func TestDecodeUploadPNG(t *testing.T) {
	data := buildPNG(t, 120, 80)

	decoded, err := DecodeUpload("slice.png", "image/png", data)
	if err != nil {
		t.Fatalf("expected valid upload, got error: %v", err)
	}
	if decoded.Format != "png" {
		t.Fatalf("expected png format, got %s", decoded.Format)
	}
	if decoded.Width != 120 || decoded.Height != 80 {
		t.Fatalf("expected 120x80, got %dx%d", decoded.Width, decoded.Height)
	}
	if decoded.Raster == nil {
		t.Fatal("expected decoded raster")
	}
	if !bytes.Equal(decoded.Data, data) {
		t.Fatal("expected original bytes to be preserved")
	}
}

func TestDecodeUploadJPEGByContentType(t *testing.T) {
	data := buildJPEG(t, 64, 64)

	// Extension is useless here; the declared content type alone must
	// carry the upload through.
	decoded, err := DecodeUpload("upload", "image/jpeg; charset=binary", data)
	if err != nil {
		t.Fatalf("expected valid upload, got error: %v", err)
	}
	if decoded.Format != "jpeg" {
		t.Fatalf("expected jpeg format, got %s", decoded.Format)
	}
}

func TestDecodeUploadEmptyBuffer(t *testing.T) {
	if _, err := DecodeUpload("slice.png", "image/png", nil); !errors.Is(err, ErrEmptyUpload) {
		t.Fatalf("expected ErrEmptyUpload, got %v", err)
	}
	if _, err := DecodeUpload("slice.png", "image/png", []byte{}); !errors.Is(err, ErrEmptyUpload) {
		t.Fatalf("expected ErrEmptyUpload for zero-length buffer, got %v", err)
	}
}

func TestDecodeUploadDisallowedType(t *testing.T) {
	// Real PNG bytes, but neither the extension nor the declared type is
	// allowed, so the codec never runs.
	data := buildPNG(t, 32, 32)

	if _, err := DecodeUpload("slice.txt", "text/plain", data); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestDecodeUploadCorruptBytes(t *testing.T) {
	truncated := buildJPEG(t, 64, 64)
	truncated = truncated[:len(truncated)/2]

	if _, err := DecodeUpload("slice.jpg", "image/jpeg", truncated); !errors.Is(err, ErrUndecodable) {
		t.Fatalf("expected ErrUndecodable for truncated jpeg, got %v", err)
	}

	garbage := []byte("definitely not an image")
	if _, err := DecodeUpload("slice.jpg", "image/jpeg", garbage); !errors.Is(err, ErrUndecodable) {
		t.Fatalf("expected ErrUndecodable for garbage bytes, got %v", err)
	}
}

func TestDecodeUploadRejectsUnregisteredCodec(t *testing.T) {
	img := image.NewPaletted(image.Rect(0, 0, 16, 16), []color.Color{color.Black, color.White})
	var buf bytes.Buffer
	if err := gif.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode gif: %v", err)
	}

	// A GIF smuggled in under a png name must fail decode, not pass.
	if _, err := DecodeUpload("slice.png", "image/png", buf.Bytes()); !errors.Is(err, ErrUndecodable) {
		t.Fatalf("expected ErrUndecodable for gif payload, got %v", err)
	}
}

func TestDecodeUploadIdempotent(t *testing.T) {
	accepted := buildPNG(t, 40, 40)
	first, err := DecodeUpload("slice.png", "image/png", accepted)
	if err != nil {
		t.Fatalf("first validation failed: %v", err)
	}
	second, err := DecodeUpload("slice.png", "image/png", accepted)
	if err != nil {
		t.Fatalf("second validation failed: %v", err)
	}
	if first.Width != second.Width || first.Height != second.Height || first.Format != second.Format {
		t.Fatal("expected repeated validation to agree")
	}

	rejected := []byte("not an image")
	for i := 0; i < 2; i++ {
		if _, err := DecodeUpload("slice.jpg", "image/jpeg", rejected); !errors.Is(err, ErrUndecodable) {
			t.Fatalf("expected ErrUndecodable on attempt %d, got %v", i+1, err)
		}
	}
}

func buildPNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 255) / w),
				G: uint8((y * 255) / h),
				B: 140,
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func buildJPEG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x + y) % 256)})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}
