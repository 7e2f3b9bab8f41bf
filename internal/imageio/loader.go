// Package imageio moves grayscale images between disk and gonum matrices.
package imageio

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

// ErrUnsupportedFormat is returned for paths whose extension OpenCV is not
// asked to handle.
var ErrUnsupportedFormat = errors.New("unsupported image format")

var supportedFormats = []string{".pgm", ".pnm", ".ppm", ".png", ".jpg", ".jpeg", ".tiff", ".tif", ".bmp"}

const (
	titleBand = 24
	panelGap  = 8
)

// Store loads and saves 8-bit grayscale images through OpenCV.
type Store struct {
	logger logrus.FieldLogger
}

func NewStore(logger logrus.FieldLogger) *Store {
	return &Store{logger: logger}
}

// Load reads path as 8-bit grayscale and returns its samples as a matrix.
func (s *Store) Load(path string) (*mat.Dense, error) {
	s.logger.WithField("path", path).Debug("Loading image")

	if !IsSupported(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	img := gocv.IMRead(path, gocv.IMReadGrayScale)
	defer img.Close()
	if img.Empty() {
		return nil, fmt.Errorf("failed to load image: %s", path)
	}

	rows, cols := img.Rows(), img.Cols()
	out := mat.NewDense(rows, cols, nil)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			out.Set(y, x, float64(img.GetUCharAt(y, x)))
		}
	}

	s.logger.WithFields(logrus.Fields{
		"path":   path,
		"width":  cols,
		"height": rows,
	}).Debug("Image loaded")
	return out, nil
}

// Save writes m as an 8-bit grayscale image, creating parent directories.
// Samples are clamped to [0, 255] and truncated toward zero.
func (s *Store) Save(path string, m mat.Matrix) error {
	if !IsSupported(path) {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return fmt.Errorf("cannot save empty image")
	}

	img := gocv.NewMatWithSize(r, c, gocv.MatTypeCV8U)
	defer img.Close()
	for y := 0; y < r; y++ {
		for x := 0; x < c; x++ {
			img.SetUCharAt(y, x, ToByte(m.At(y, x)))
		}
	}
	return s.write(path, img)
}

// SaveComparison writes the source and processed images side by side under
// their titles. Each panel is stretched to the full 8-bit range first, so
// a normalised pre-filtered input and a raw reconstruction stay comparable.
func (s *Store) SaveComparison(path string, left, right mat.Matrix, leftTitle, rightTitle string) error {
	if !IsSupported(path) {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	lr, lc := left.Dims()
	rr, rc := right.Dims()
	if lr == 0 || lc == 0 || rr == 0 || rc == 0 {
		return fmt.Errorf("cannot save empty image")
	}

	height := max(lr, rr) + titleBand
	width := lc + panelGap + rc
	canvas := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), height, width, gocv.MatTypeCV8U)
	defer canvas.Close()

	paint(&canvas, Stretch(left), titleBand, 0)
	paint(&canvas, Stretch(right), titleBand, lc+panelGap)

	black := color.RGBA{0, 0, 0, 0}
	gocv.PutText(&canvas, leftTitle, image.Pt(4, titleBand-8), gocv.FontHersheySimplex, 0.45, black, 1)
	gocv.PutText(&canvas, rightTitle, image.Pt(lc+panelGap+4, titleBand-8), gocv.FontHersheySimplex, 0.45, black, 1)

	return s.write(path, canvas)
}

func (s *Store) write(path string, img gocv.Mat) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if ok := gocv.IMWrite(path, img); !ok {
		return fmt.Errorf("failed to save image: %s", path)
	}

	s.logger.WithFields(logrus.Fields{
		"path":   path,
		"width":  img.Cols(),
		"height": img.Rows(),
	}).Debug("Image saved")
	return nil
}

func paint(dst *gocv.Mat, m mat.Matrix, top, left int) {
	r, c := m.Dims()
	for y := 0; y < r; y++ {
		for x := 0; x < c; x++ {
			dst.SetUCharAt(top+y, left+x, ToByte(m.At(y, x)))
		}
	}
}

// ToByte clamps v to [0, 255] and truncates it. NaN maps to zero.
func ToByte(v float64) uint8 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v)
}

// Stretch linearly maps the range of m onto [0, 255]. A constant image
// maps to zero.
func Stretch(m mat.Matrix) *mat.Dense {
	lo, hi := mat.Min(m), mat.Max(m)
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 {
		if hi == lo {
			return 0
		}
		return (v - lo) / (hi - lo) * 255
	}, m)
	return &out
}

// IsSupported reports whether path has an image extension the store
// handles.
func IsSupported(path string) bool {
	return slices.Contains(supportedFormats, strings.ToLower(filepath.Ext(path)))
}
