package enhance

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"wavelet-enhancer/internal/dwt"
)

// Depth range supported by the enhancement pipeline.
const (
	MinDepth = 2
	MaxDepth = 5
)

func checkDepth(depth int) error {
	if depth < MinDepth || depth > MaxDepth {
		return fmt.Errorf("depth %d outside [%d, %d]: %w", depth, MinDepth, MaxDepth, ErrUnsupportedDepth)
	}
	return nil
}

// Decompose is dwt.Decompose restricted to the depths the enhancement
// pipeline supports.
func Decompose(img mat.Matrix, wavelet string, depth int) (*dwt.Decomposition, error) {
	if err := checkDepth(depth); err != nil {
		return nil, err
	}
	return dwt.Decompose(img, wavelet, depth)
}

// DenoiseReconstruct thresholds dec (see Threshold), inverts the result and
// floors every non-positive sample to zero. depth must match the number of
// levels of dec. It returns the thresholded decomposition along with the
// enhanced image; dec is not modified.
func DenoiseReconstruct(dec *dwt.Decomposition, depth int) (*dwt.Decomposition, *mat.Dense, error) {
	if err := checkDepth(depth); err != nil {
		return nil, nil, err
	}
	if dec == nil {
		return nil, nil, fmt.Errorf("nil decomposition: %w", dwt.ErrShapeMismatch)
	}
	if dec.Depth() != depth {
		return nil, nil, fmt.Errorf("decomposition has %d levels, want %d: %w", dec.Depth(), depth, ErrUnsupportedDepth)
	}

	thresholded, _ := Threshold(dec)
	img, err := dwt.Reconstruct(thresholded)
	if err != nil {
		return nil, nil, fmt.Errorf("reconstruct: %w", err)
	}
	return thresholded, ClipNonPositive(img), nil
}

// ClipNonPositive returns a copy of m keeping only strictly positive
// samples; everything else becomes zero.
func ClipNonPositive(m mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 {
		if v > 0 {
			return v
		}
		return 0
	}, m)
	return &out
}
