// Package image provides image loading and display preparation.
package image

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"ct-labeler/pkg/geometry"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/tiff"
)

var (
	// ErrUnsupportedFormat is returned for extensions no decoder handles.
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrEmptyImage is returned when a decoder yields a zero-sized image.
	ErrEmptyImage = errors.New("image has no pixels")
)

// DICOMDecoder turns a DICOM file into a normalized 8-bit image.
type DICOMDecoder func(r io.Reader) (image.Image, error)

var (
	dicomMu      sync.RWMutex
	dicomDecoder DICOMDecoder
)

// RegisterDICOMDecoder installs the decoder used for .dcm files.
// Passing nil removes it.
func RegisterDICOMDecoder(dec DICOMDecoder) {
	dicomMu.Lock()
	defer dicomMu.Unlock()
	dicomDecoder = dec
}

func registeredDICOM() DICOMDecoder {
	dicomMu.RLock()
	defer dicomMu.RUnlock()
	return dicomDecoder
}

// Layer is an opened source image.
type Layer struct {
	Path  string      // Original file path
	Image image.Image // Decoded pixels at native resolution
}

// Load opens the image at path.
func Load(path string) (*Layer, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !IsSupportedFormat(path) {
		return nil, fmt.Errorf("%s: %w", ext, ErrUnsupportedFormat)
	}

	var (
		img image.Image
		err error
	)
	switch ext {
	case ".dcm":
		img, err = loadDICOM(path)
	case ".webp":
		img, err = loadWebP(path)
	default:
		img, err = imaging.Open(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	layer := &Layer{Path: path, Image: img}
	if layer.Width() == 0 || layer.Height() == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyImage)
	}
	return layer, nil
}

func loadDICOM(path string) (image.Image, error) {
	dec := registeredDICOM()
	if dec == nil {
		return nil, fmt.Errorf("no DICOM decoder registered: %w", ErrUnsupportedFormat)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()
	return dec(file)
}

func loadWebP(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	if img, err := webp.Decode(file); err == nil {
		return img, nil
	}
	// Some files carry a .webp name but another encoding.
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(file)
	return img, err
}

// Width returns the image width in pixels.
func (l *Layer) Width() int {
	if l.Image == nil {
		return 0
	}
	return l.Image.Bounds().Dx()
}

// Height returns the image height in pixels.
func (l *Layer) Height() int {
	if l.Image == nil {
		return 0
	}
	return l.Image.Bounds().Dy()
}

// Size returns the native image size.
func (l *Layer) Size() geometry.Size {
	return geometry.NewSize(float64(l.Width()), float64(l.Height()))
}

// Name returns the base name of the source file.
func (l *Layer) Name() string {
	return filepath.Base(l.Path)
}

// SupportedFormats returns the list of supported image formats.
func SupportedFormats() []string {
	return []string{".png", ".jpg", ".jpeg", ".tiff", ".tif", ".webp", ".dcm"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}

// ListImages returns the supported images in dir, sorted by name.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !IsSupportedFormat(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out, nil
}
