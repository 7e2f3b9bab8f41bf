package dwt

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidImage is returned when the input is not a well-formed 2D
	// real-valued matrix.
	ErrInvalidImage = errors.New("invalid image")

	// ErrUnknownWavelet is returned for a wavelet name with no registered
	// filter bank.
	ErrUnknownWavelet = errors.New("unknown wavelet")

	// ErrUnsupportedDepth is returned for a decomposition depth outside the
	// range supported by the caller.
	ErrUnsupportedDepth = errors.New("unsupported decomposition depth")

	// ErrShapeMismatch is returned when the bands of a decomposition cannot
	// be combined by the inverse transform.
	ErrShapeMismatch = errors.New("coefficient shape mismatch")
)

// ValidateImage checks that img is a non-empty matrix of finite samples and
// returns a private copy of it.
func ValidateImage(img mat.Matrix) (*mat.Dense, error) {
	if img == nil {
		return nil, fmt.Errorf("nil matrix: %w", ErrInvalidImage)
	}
	if d, ok := img.(*mat.Dense); ok && (d == nil || d.IsEmpty()) {
		return nil, fmt.Errorf("empty matrix: %w", ErrInvalidImage)
	}

	rows, cols := img.Dims()
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d: %w", rows, cols, ErrInvalidImage)
	}

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := img.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("non-finite sample at (%d, %d): %w", i, j, ErrInvalidImage)
			}
		}
	}

	return mat.DenseCopyOf(img), nil
}
