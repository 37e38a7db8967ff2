package domain

import "image"

// DecodedImage is a validated upload: the decoded raster plus the original
// encoded bytes it came from. It lives for a single request and is never
// mutated by the processing pipeline; transforms allocate fresh buffers.
type DecodedImage struct {
	// Raster is the in-memory pixel grid produced by the validator.
	Raster image.Image
	// Data holds the original encoded bytes. Native transformers decode
	// from these directly instead of going through Raster.
	Data []byte
	// Format is the source container, "jpeg" or "png".
	Format string
	Width  int
	Height int
}
