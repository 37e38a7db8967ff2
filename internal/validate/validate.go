// Package validate inspects uploaded image bytes before they reach the
// processing pipeline. It accepts JPEG and PNG uploads only and rejects
// everything else with a distinct, user-reportable error.
package validate

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	"github.com/Sandahk/medical-simulator-demo/internal/domain"
)

var (
	ErrEmptyUpload       = errors.New("no file supplied")
	ErrUnsupportedFormat = errors.New("only JPG/PNG images are supported")
	ErrUndecodable       = errors.New("file is not a valid image")
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
}

// DecodeUpload validates an uploaded byte buffer and decodes it into an
// in-memory raster. The upload passes when it is non-empty, when either the
// filename extension or the declared content type is an allowed image type,
// and when the bytes decode with the jpeg or png codec. Validation has no
// side effects, so re-validating the same buffer always yields the same
// outcome.
func DecodeUpload(filename, declaredContentType string, data []byte) (domain.DecodedImage, error) {
	if len(data) == 0 {
		return domain.DecodedImage{}, ErrEmptyUpload
	}

	ext := strings.ToLower(filepath.Ext(filename))
	contentType := normalizeContentType(declaredContentType)
	if !allowedExtensions[ext] && !allowedContentTypes[contentType] {
		return domain.DecodedImage{}, fmt.Errorf("%w: filename=%q content_type=%q", ErrUnsupportedFormat, filename, declaredContentType)
	}

	// Only the jpeg and png codecs are registered in this package, so a
	// disguised upload in any other container fails here.
	raster, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return domain.DecodedImage{}, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	bounds := raster.Bounds()
	return domain.DecodedImage{
		Raster: raster,
		Data:   data,
		Format: format,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

func normalizeContentType(contentType string) string {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	return contentType
}
