// ABOUTME: Image preparation before upload
// ABOUTME: Downscales large images so chat attachments stay small
package media

import (
	"bytes"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// MaxDimension is the longest edge an uploaded image keeps.
const MaxDimension = 1920

var imageExts = map[string]imaging.Format{
	".jpg":  imaging.JPEG,
	".jpeg": imaging.JPEG,
	".png":  imaging.PNG,
	".gif":  imaging.GIF,
	".bmp":  imaging.BMP,
	".tif":  imaging.TIFF,
	".tiff": imaging.TIFF,
}

// IsImage reports whether name has an image extension we can re-encode.
func IsImage(name string) bool {
	_, ok := imageExts[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Prepare returns data unchanged unless it is an image larger than MaxDimension,
// in which case it is resized to fit and re-encoded in its original format.
func Prepare(name string, data []byte) ([]byte, error) {
	format, ok := imageExts[strings.ToLower(filepath.Ext(name))]
	if !ok {
		return data, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", name, err)
	}
	if !tooLarge(img) {
		return data, nil
	}

	resized := imaging.Fit(img, MaxDimension, MaxDimension, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format); err != nil {
		return nil, fmt.Errorf("failed to encode image %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// Thumbnail renders a small JPEG preview.
func Thumbnail(data []byte, size int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	thumb := imaging.Thumbnail(img, size, size, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func tooLarge(img image.Image) bool {
	b := img.Bounds()
	return b.Dx() > MaxDimension || b.Dy() > MaxDimension
}

// HumanSize formats a byte count the way file messages display it.
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
