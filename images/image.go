// Package images - Image loading, geometry and tensor conversion for detection.
package images

import (
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// ImageFormat represents supported image formats
type ImageFormat string

// ImageFormat constants
const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
	// FormatBMP is the BMP image format.
	FormatBMP ImageFormat = "bmp"
)

var extensions = map[string]ImageFormat{
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".png":  FormatPNG,
	".bmp":  FormatBMP,
}

// FormatFromPath returns the image format implied by the file extension.
//
// Arguments:
//   - path: A file path. The extension is matched case-insensitively.
//
// Returns:
//   - ImageFormat: The format.
//   - bool: False if the extension is not a supported image type.
func FormatFromPath(path string) (ImageFormat, bool) {
	format, ok := extensions[strings.ToLower(filepath.Ext(path))]
	return format, ok
}

// Load decodes the image at path, applying its EXIF orientation so the pixels are
// upright the way a camera preview shows them.
//
// Arguments:
//   - path: The image file path.
//
// Returns:
//   - image.Image: The decoded image.
//   - error: An error if the file is missing or cannot be decoded.
func Load(path string) (image.Image, error) {
	if _, ok := FormatFromPath(path); !ok {
		return nil, errors.Errorf("unsupported image type %q", filepath.Ext(path))
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load image %s", path)
	}
	return img, nil
}
