//go:build govips && cgo

package pipeline

import (
	"context"
	"fmt"

	"github.com/Sandahk/medical-simulator-demo/internal/domain"
	"github.com/davidbyttow/govips/v2/vips"
)

type govipsTransformer struct{}

func (t govipsTransformer) Transform(ctx context.Context, src domain.DecodedImage, phase domain.Phase) ([]byte, int, int, error) {
	select {
	case <-ctx.Done():
		return nil, 0, 0, ctx.Err()
	default:
	}

	img, err := vips.NewImageFromBuffer(src.Data)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode source image: %w", err)
	}
	defer img.Close()

	if err := img.ToColorSpace(vips.InterpretationBW); err != nil {
		return nil, 0, 0, fmt.Errorf("convert to grayscale: %w", err)
	}

	switch phase {
	case domain.PhaseArterial:
		err = applyGovipsArterial(img)
	case domain.PhaseVenous:
		err = applyGovipsVenous(img)
	default:
		return nil, 0, 0, fmt.Errorf("%w: %q", ErrUnknownPhase, phase)
	}
	if err != nil {
		return nil, 0, 0, err
	}

	data, _, err := img.ExportPng(vips.NewPngExportParams())
	if err != nil {
		return nil, 0, 0, fmt.Errorf("encode png: %w", err)
	}

	return data, img.Width(), img.Height(), nil
}

func applyGovipsArterial(img *vips.ImageRef) error {
	// Contrast around the midpoint plus the brightness lift collapse into a
	// single linear ramp v' = a*v + b.
	a := contrastGain * brightnessGain
	b := (midpoint - midpoint*contrastGain) * brightnessGain
	if err := img.Linear1(a, b); err != nil {
		return fmt.Errorf("contrast boost: %w", err)
	}
	if err := img.Sharpen(1.0, 2.0, 3.0); err != nil {
		return fmt.Errorf("sharpen: %w", err)
	}
	return nil
}

func applyGovipsVenous(img *vips.ImageRef) error {
	if err := img.GaussianBlur(blurSigma); err != nil {
		return fmt.Errorf("gaussian blur: %w", err)
	}
	return nil
}
