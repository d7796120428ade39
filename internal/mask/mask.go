// Package mask rasterizes annotation shapes into binary masks at native
// resolution and encodes them as base64 PNG text for JSON embedding.
package mask

import (
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"

	"ct-labeler/internal/annotation"
	"ct-labeler/pkg/geometry"

	"gocv.io/x/gocv"
)

// Pixel values of a mask.
const (
	Background uint8 = 0
	Foreground uint8 = 255
)

// ErrMaskDecode is returned when a stored mask cannot be decoded.
var ErrMaskDecode = errors.New("mask: decode failed")

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Rasterize renders shape into a single-channel bitmap of the given canvas
// size. Inside pixels are Foreground, everything else Background. A shape
// whose native size differs from canvas is rescaled first; the input shape is
// never modified.
func Rasterize(shape annotation.Shape, canvas geometry.Size) (*image.Gray, error) {
	if canvas.IsZero() {
		return nil, fmt.Errorf("rasterize onto %vx%v canvas: %w",
			canvas.Width, canvas.Height, annotation.ErrDegenerateShape)
	}
	if shape.NativeSize() != canvas {
		shape = shape.Clone()
		shape.Rescale(canvas)
	}
	if err := shape.Validate(); err != nil {
		return nil, err
	}

	w, h := canvas.Ints()
	mat := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8U)
	defer mat.Close()
	mat.SetTo(gocv.NewScalar(0, 0, 0, 0))

	switch s := shape.(type) {
	case *annotation.Ellipse:
		p := s.Params()
		// OpenCV takes whole-pixel center and axes; fractions are truncated.
		center := image.Pt(int(p.Center.X), int(p.Center.Y))
		axes := image.Pt(int(p.Axes.X), int(p.Axes.Y))
		gocv.Ellipse(&mat, center, axes, p.Angle, 0, 360, white, -1)
	case *annotation.Polygon:
		ring := make([]image.Point, len(s.Points))
		for i, pt := range s.Points {
			ring[i] = image.Pt(int(pt.X), int(pt.Y))
		}
		pv := gocv.NewPointsVectorFromPoints([][]image.Point{ring})
		defer pv.Close()
		gocv.FillPoly(&mat, pv, white)
	default:
		return nil, fmt.Errorf("rasterize %T: %w", shape, annotation.ErrDegenerateShape)
	}

	return matToGray(mat)
}

// matToGray copies a CV_8UC1 Mat into a Go image.
func matToGray(mat gocv.Mat) (*image.Gray, error) {
	if mat.Type() != gocv.MatTypeCV8U {
		return nil, fmt.Errorf("expected single-channel mat, got type %v", mat.Type())
	}
	w, h := mat.Cols(), mat.Rows()
	data := mat.ToBytes()
	if len(data) < w*h {
		return nil, fmt.Errorf("mat data too short: %d bytes for %dx%d", len(data), w, h)
	}
	gray := image.NewGray(image.Rect(0, 0, w, h))
	copy(gray.Pix, data[:w*h])
	return gray, nil
}

// Encode serializes a mask as PNG and base64-encodes it.
func Encode(m *image.Gray) (string, error) {
	mat, err := gocv.ImageGrayToMatGray(m)
	if err != nil {
		return "", fmt.Errorf("failed to convert mask: %w", err)
	}
	defer mat.Close()

	buf, err := gocv.IMEncode(gocv.PNGFileExt, mat)
	if err != nil {
		return "", fmt.Errorf("failed to encode mask: %w", err)
	}
	defer buf.Close()

	return base64.StdEncoding.EncodeToString(buf.GetBytes()), nil
}

// Decode reverses Encode. Any failure wraps ErrMaskDecode.
func Decode(encoded string) (*image.Gray, error) {
	if encoded == "" {
		return nil, fmt.Errorf("empty mask: %w", ErrMaskDecode)
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("base64: %v: %w", err, ErrMaskDecode)
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadGrayScale)
	if err != nil {
		return nil, fmt.Errorf("png: %v: %w", err, ErrMaskDecode)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("png: empty image: %w", ErrMaskDecode)
	}

	gray, err := matToGray(mat)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrMaskDecode)
	}
	return gray, nil
}

// Generate rasterizes shape against canvas and returns the encoded mask.
func Generate(shape annotation.Shape, canvas geometry.Size) (string, error) {
	m, err := Rasterize(shape, canvas)
	if err != nil {
		return "", err
	}
	return Encode(m)
}

// Ensure fills in a missing mask on shape by rasterizing it against its own
// native size. It reports whether a mask was generated.
func Ensure(shape annotation.Shape) (bool, error) {
	if shape.Mask() != "" {
		return false, nil
	}
	encoded, err := Generate(shape, shape.NativeSize())
	if err != nil {
		return false, err
	}
	shape.SetMask(encoded)
	return true, nil
}

// Area returns the number of foreground pixels.
func Area(m *image.Gray) int {
	mat, err := gocv.ImageGrayToMatGray(m)
	if err != nil {
		return 0
	}
	defer mat.Close()
	return gocv.CountNonZero(mat)
}

// ErrSizeMismatch is returned when two masks of different sizes are compared.
var ErrSizeMismatch = errors.New("mask: size mismatch")

// IoU returns the intersection over union of the foreground of two masks of
// equal size. Two empty masks overlap fully.
func IoU(a, b *image.Gray) (float64, error) {
	if a.Bounds().Size() != b.Bounds().Size() {
		return 0, fmt.Errorf("%v vs %v: %w", a.Bounds().Size(), b.Bounds().Size(), ErrSizeMismatch)
	}
	ma, err := gocv.ImageGrayToMatGray(a)
	if err != nil {
		return 0, fmt.Errorf("failed to convert mask: %w", err)
	}
	defer ma.Close()
	mb, err := gocv.ImageGrayToMatGray(b)
	if err != nil {
		return 0, fmt.Errorf("failed to convert mask: %w", err)
	}
	defer mb.Close()

	and := gocv.NewMat()
	defer and.Close()
	or := gocv.NewMat()
	defer or.Close()
	gocv.BitwiseAnd(ma, mb, &and)
	gocv.BitwiseOr(ma, mb, &or)

	union := gocv.CountNonZero(or)
	if union == 0 {
		return 1, nil
	}
	return float64(gocv.CountNonZero(and)) / float64(union), nil
}
