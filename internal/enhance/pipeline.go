package enhance

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"wavelet-enhancer/internal/dwt"
)

// Options selects the wavelet, depth and pre-filter of a pipeline run.
type Options struct {
	Wavelet   string
	Depth     int
	Prefilter PrefilterConfig
	// Partial restricts Features to the detail bands of levels 2..Depth.
	Partial bool
}

// Result is the output of Enhance. Input is the image actually decomposed,
// i.e. after the pre-filter.
type Result struct {
	Input         *mat.Dense
	Decomposition *dwt.Decomposition
	Thresholded   *dwt.Decomposition
	Thresholds    Thresholds
	Image         *mat.Dense
}

// Enhance runs pre-filter, decomposition, thresholding and reconstruction on
// img.
func Enhance(img mat.Matrix, opts Options) (*Result, error) {
	if err := checkDepth(opts.Depth); err != nil {
		return nil, err
	}
	input, err := Prefilter(img, opts.Prefilter)
	if err != nil {
		return nil, fmt.Errorf("prefilter: %w", err)
	}

	dec, err := Decompose(input, opts.Wavelet, opts.Depth)
	if err != nil {
		return nil, fmt.Errorf("decompose: %w", err)
	}

	thresholded, thresholds := Threshold(dec)
	rec, err := dwt.Reconstruct(thresholded)
	if err != nil {
		return nil, fmt.Errorf("reconstruct: %w", err)
	}

	return &Result{
		Input:         input,
		Decomposition: dec,
		Thresholded:   thresholded,
		Thresholds:    thresholds,
		Image:         ClipNonPositive(rec),
	}, nil
}

// Features runs pre-filter, decomposition and flattening on img. Any depth
// >= 1 is accepted for a full flatten.
func Features(img mat.Matrix, opts Options) ([]float64, error) {
	if opts.Partial && opts.Depth != 3 && opts.Depth != 4 {
		return nil, fmt.Errorf("partial flatten at depth %d, want 3 or 4: %w", opts.Depth, ErrUnsupportedConfiguration)
	}
	input, err := Prefilter(img, opts.Prefilter)
	if err != nil {
		return nil, fmt.Errorf("prefilter: %w", err)
	}

	dec, err := dwt.Decompose(input, opts.Wavelet, opts.Depth)
	if err != nil {
		return nil, fmt.Errorf("decompose: %w", err)
	}
	return Flatten(dec, opts.Depth, opts.Partial)
}
