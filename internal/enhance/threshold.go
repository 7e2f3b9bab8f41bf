package enhance

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"wavelet-enhancer/internal/dwt"
)

// Thresholds holds the per-band thresholds of a decomposition. Index l-1
// holds level l as [H, V, D], indexed like dwt.Bands.
type Thresholds [][3]float64

// Level returns the thresholds of level l (1 = finest).
func (t Thresholds) Level(l int) [3]float64 {
	return t[l-1]
}

// StdDev returns the population standard deviation of the samples of m.
func StdDev(m mat.Matrix) float64 {
	return stat.PopStdDev(samples(m), nil)
}

// HardThreshold returns a copy of m with every sample whose magnitude is
// below t replaced by zero. Samples with |v| == t survive unchanged.
func HardThreshold(m mat.Matrix, t float64) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 {
		if math.Abs(v) < t {
			return 0
		}
		return v
	}, m)
	return &out
}

// SoftThreshold returns a copy of m with every sample shrunk toward zero by
// t: sign(v) * max(|v| - t, 0).
func SoftThreshold(m mat.Matrix, t float64) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 {
		mag := math.Abs(v) - t
		if mag <= 0 {
			return 0
		}
		return math.Copysign(mag, v)
	}, m)
	return &out
}

// Threshold hard-thresholds every detail band of dec at its own standard
// deviation and zeroes the approximation. dec is not modified.
func Threshold(dec *dwt.Decomposition) (*dwt.Decomposition, Thresholds) {
	thresholds := make(Thresholds, dec.Depth())
	out := dec.MapDetails(func(level int, b dwt.Band, m *mat.Dense) *mat.Dense {
		t := StdDev(m)
		thresholds[level-1][b] = t
		return HardThreshold(m, t)
	})
	out.Approximation.Zero()
	return out, thresholds
}

// samples returns the values of m in row-major order. The returned slice
// may alias the backing array of a *mat.Dense and must not be modified.
func samples(m mat.Matrix) []float64 {
	rows, cols := m.Dims()
	if d, ok := m.(*mat.Dense); ok {
		raw := d.RawMatrix()
		if raw.Stride == cols {
			return raw.Data[:rows*cols]
		}
	}
	out := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out = append(out, m.At(i, j))
		}
	}
	return out
}
