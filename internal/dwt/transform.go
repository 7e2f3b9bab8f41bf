package dwt

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Decompose applies a depth-level 2D wavelet transform to img using the
// named wavelet. Any depth >= 1 is accepted; see MaxLevel for the depth past
// which boundary effects dominate. img is not modified.
func Decompose(img mat.Matrix, wavelet string, depth int) (*Decomposition, error) {
	fb, err := Lookup(wavelet)
	if err != nil {
		return nil, err
	}
	if depth < 1 {
		return nil, fmt.Errorf("depth %d, want >= 1: %w", depth, ErrUnsupportedDepth)
	}
	src, err := ValidateImage(img)
	if err != nil {
		return nil, err
	}

	rows, cols := src.Dims()
	dec := &Decomposition{
		Wavelet: fb.Name,
		Rows:    rows,
		Cols:    cols,
		Details: make([]DetailBands, depth),
	}

	approx := src
	for level := 1; level <= depth; level++ {
		var bands DetailBands
		approx, bands = analyze2D(approx, fb)
		dec.Details[depth-level] = bands
	}
	dec.Approximation = approx
	return dec, nil
}

// Reconstruct inverts dec with the synthesis filters of its wavelet and crops
// the result to the source dimensions. dec is not modified.
func Reconstruct(dec *Decomposition) (*mat.Dense, error) {
	if dec == nil || dec.Approximation == nil || dec.Depth() == 0 {
		return nil, fmt.Errorf("empty decomposition: %w", ErrShapeMismatch)
	}
	fb, err := Lookup(dec.Wavelet)
	if err != nil {
		return nil, err
	}

	approx := dec.Approximation
	for level := dec.Depth(); level >= 1; level-- {
		bands := dec.Level(level)
		for _, b := range Bands {
			if bands.Get(b) == nil {
				return nil, fmt.Errorf("level %d band %s missing: %w", level, b, ErrShapeMismatch)
			}
		}
		rows, cols := bands.Dims()
		for _, b := range Bands {
			if r, c := bands.Get(b).Dims(); r != rows || c != cols {
				return nil, fmt.Errorf("level %d band %s is %dx%d, want %dx%d: %w",
					level, b, r, c, rows, cols, ErrShapeMismatch)
			}
		}
		if k := fb.Len() / 2; rows < k || cols < k {
			return nil, fmt.Errorf("level %d bands %dx%d shorter than half filter length %d: %w",
				level, rows, cols, k, ErrShapeMismatch)
		}

		// The approximation may carry one extra sample along odd dimensions
		// of the next finer level.
		ar, ac := approx.Dims()
		if ar < rows || ac < cols || ar-rows > 1 || ac-cols > 1 {
			return nil, fmt.Errorf("level %d approximation %dx%d incompatible with details %dx%d: %w",
				level, ar, ac, rows, cols, ErrShapeMismatch)
		}
		approx = synthesize2D(crop(approx, rows, cols), bands, fb)
	}

	r, c := approx.Dims()
	if r < dec.Rows || c < dec.Cols {
		return nil, fmt.Errorf("reconstruction %dx%d smaller than source %dx%d: %w",
			r, c, dec.Rows, dec.Cols, ErrShapeMismatch)
	}
	return crop(approx, dec.Rows, dec.Cols), nil
}

// MaxLevel returns the deepest useful decomposition level for an image of
// the given size: floor(log2(min(rows, cols) / (F - 1))) for filter length F.
func MaxLevel(rows, cols int, wavelet string) (int, error) {
	fb, err := Lookup(wavelet)
	if err != nil {
		return 0, err
	}
	n := min(rows, cols)
	f := fb.Len()
	if n < f-1 {
		return 0, nil
	}
	return int(math.Floor(math.Log2(float64(n) / float64(f-1)))), nil
}

// analyze2D performs one level of the separable forward transform.
func analyze2D(img *mat.Dense, fb *FilterBank) (*mat.Dense, DetailBands) {
	rows, cols := img.Dims()
	f := fb.Len()
	halfRows := analysisLen(rows, f)

	// Axis 0: filter each column.
	low := mat.NewDense(halfRows, cols, nil)
	high := mat.NewDense(halfRows, cols, nil)
	col := make([]float64, rows)
	colLow := make([]float64, halfRows)
	colHigh := make([]float64, halfRows)
	for x := 0; x < cols; x++ {
		mat.Col(col, x, img)
		analyze(col, fb.DecLo, fb.DecHi, colLow, colHigh)
		low.SetCol(x, colLow)
		high.SetCol(x, colHigh)
	}

	// Axis 1: filter each row of both halves.
	aa, ad := analyzeRows(low, fb)
	da, dd := analyzeRows(high, fb)
	return aa, DetailBands{Horizontal: da, Vertical: ad, Diagonal: dd}
}

func analyzeRows(m *mat.Dense, fb *FilterBank) (low, high *mat.Dense) {
	rows, cols := m.Dims()
	halfCols := analysisLen(cols, fb.Len())
	low = mat.NewDense(rows, halfCols, nil)
	high = mat.NewDense(rows, halfCols, nil)
	for y := 0; y < rows; y++ {
		analyze(m.RawRowView(y), fb.DecLo, fb.DecHi, low.RawRowView(y), high.RawRowView(y))
	}
	return low, high
}

// synthesize2D performs one level of the separable inverse transform.
// approx and the three bands must share one shape.
func synthesize2D(approx *mat.Dense, bands DetailBands, fb *FilterBank) *mat.Dense {
	// Axis 1 first, reversing the analysis order.
	low := synthesizeRows(approx, bands.Vertical, fb)
	high := synthesizeRows(bands.Horizontal, bands.Diagonal, fb)

	rows, cols := low.Dims()
	outRows := synthesisLen(rows, fb.Len())
	out := mat.NewDense(outRows, cols, nil)
	colLow := make([]float64, rows)
	colHigh := make([]float64, rows)
	col := make([]float64, outRows)
	for x := 0; x < cols; x++ {
		mat.Col(colLow, x, low)
		mat.Col(colHigh, x, high)
		synthesize(colLow, colHigh, fb.RecLo, fb.RecHi, col)
		out.SetCol(x, col)
	}
	return out
}

func synthesizeRows(lowBand, highBand *mat.Dense, fb *FilterBank) *mat.Dense {
	rows, cols := lowBand.Dims()
	out := mat.NewDense(rows, synthesisLen(cols, fb.Len()), nil)
	for y := 0; y < rows; y++ {
		synthesize(lowBand.RawRowView(y), highBand.RawRowView(y), fb.RecLo, fb.RecHi, out.RawRowView(y))
	}
	return out
}

// crop returns m itself when it already has the requested shape, otherwise
// a fresh copy of its top-left rows x cols block.
func crop(m *mat.Dense, rows, cols int) *mat.Dense {
	if r, c := m.Dims(); r == rows && c == cols {
		return m
	}
	return mat.DenseCopyOf(m.Slice(0, rows, 0, cols))
}
