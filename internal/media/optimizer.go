// Package media normalises uploaded listing images and stores them in S3.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/disintegration/imaging"

	"catalog-admin-service/internal/domain"
)

const (
	// DefaultMaxDimension bounds the longer edge of a stored image.
	DefaultMaxDimension = 1600
	jpegQuality         = 85
)

var ErrNotImage = errors.New("media: file is not a supported image")

// Optimize decodes data (JPEG, PNG, GIF, BMP or TIFF), applies EXIF orientation,
// shrinks it to fit within maxDim×maxDim and re-encodes it as JPEG. Images
// already within bounds are only re-encoded.
func Optimize(data []byte, maxDim int) ([]byte, error) {
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}

	img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("media: encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// OptimizeFile runs Optimize on f and renames it to .jpg.
func OptimizeFile(f domain.MediaFile, maxDim int) (domain.MediaFile, error) {
	data, err := Optimize(f.Data, maxDim)
	if err != nil {
		return domain.MediaFile{}, err
	}
	name := strings.TrimSuffix(f.Filename, path.Ext(f.Filename))
	if name == "" {
		name = "image"
	}
	return domain.MediaFile{Filename: name + ".jpg", ContentType: "image/jpeg", Data: data}, nil
}
