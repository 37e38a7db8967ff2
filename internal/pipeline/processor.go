// Package pipeline applies the phase enhancement transforms. Given a
// validated upload and a phase selector it produces a freshly encoded PNG;
// it holds no state across calls.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sandahk/medical-simulator-demo/internal/domain"
)

// ErrUnknownPhase means a caller handed the processor a selector outside the
// closed phase set. The boundary validates phases first, so hitting this is a
// contract violation, not user error.
var ErrUnknownPhase = errors.New("unknown processing phase")

type Result struct {
	PNG    []byte
	Width  int
	Height int
	Phase  domain.Phase
}

type Processor struct {
	transformer Transformer
}

// NewProcessor builds a processor backed by the transformer selected at
// build time (libvips when compiled with the govips tag, pure Go otherwise).
func NewProcessor() (*Processor, error) {
	transformer, err := newTransformer()
	if err != nil {
		return nil, fmt.Errorf("build transformer: %w", err)
	}
	return &Processor{transformer: transformer}, nil
}

// Process runs one phase transform over a decoded upload and returns the
// PNG-encoded result. The source image is never mutated and output
// dimensions always match the input.
func (p *Processor) Process(ctx context.Context, src domain.DecodedImage, phase domain.Phase) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	default:
	}

	if !phase.Known() {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownPhase, phase)
	}
	if src.Raster == nil && len(src.Data) == 0 {
		return Result{}, errors.New("decoded image is required")
	}

	data, width, height, err := p.transformer.Transform(ctx, src, phase)
	if err != nil {
		return Result{}, fmt.Errorf("transform stage phase=%s: %w", phase, err)
	}

	return Result{PNG: data, Width: width, Height: height, Phase: phase}, nil
}
