package pipeline

import (
	"context"

	"github.com/Sandahk/medical-simulator-demo/internal/domain"
)

type Transformer interface {
	Transform(ctx context.Context, src domain.DecodedImage, phase domain.Phase) (data []byte, width, height int, err error)
}

// Enhancement parameters. These are fixed so that identical input bytes and
// phase always yield byte-identical PNG output; they are not user-tunable.
const (
	// Arterial: linear rescale of each intensity around the midpoint,
	// followed by a mild brightness lift, then edge sharpening.
	contrastGain   = 1.35
	brightnessGain = 1.05
	midpoint       = 128.0

	// Venous: Gaussian smoothing.
	blurSigma = 2.0
)
