package enhance

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"wavelet-enhancer/internal/dwt"
)

func TestStdDevIsPopulationStdDev(t *testing.T) {
	band := mat.NewDense(2, 2, []float64{-2, -1, 1, 2})
	assert.InDelta(t, math.Sqrt(2.5), StdDev(band), 1e-15)

	assert.Zero(t, StdDev(mat.NewDense(3, 3, []float64{7, 7, 7, 7, 7, 7, 7, 7, 7})))
}

func TestHardThresholdKnownBand(t *testing.T) {
	band := mat.NewDense(2, 2, []float64{-2, -1, 1, 2})
	out := HardThreshold(band, StdDev(band))
	assert.Equal(t, []float64{-2, 0, 0, 2}, out.RawMatrix().Data)

	// std of ±1 is exactly 1: values equal to the threshold survive.
	band = mat.NewDense(2, 2, []float64{1, -1, 1, -1})
	sigma := StdDev(band)
	require.Equal(t, 1.0, sigma)
	out = HardThreshold(band, sigma)
	assert.Equal(t, []float64{1, -1, 1, -1}, out.RawMatrix().Data)
}

func TestHardThresholdExactRule(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 23))
	band := mat.NewDense(16, 16, nil)
	for i := 0; i < 16; i++ {
		for j := 0; j < 16; j++ {
			band.Set(i, j, rng.NormFloat64()*5)
		}
	}
	sigma := StdDev(band)
	out := HardThreshold(band, sigma)

	zeroed := 0
	for i := 0; i < 16; i++ {
		for j := 0; j < 16; j++ {
			c := band.At(i, j)
			want := c
			if math.Abs(c) < sigma {
				want = 0
				zeroed++
			}
			assert.Equal(t, want, out.At(i, j), "(%d, %d)", i, j)
		}
	}
	assert.Greater(t, zeroed, 0)
	assert.Less(t, zeroed, 256)
}

func TestHardThresholdConstantBandKeepsEverything(t *testing.T) {
	band := mat.NewDense(2, 3, []float64{4, 4, 4, 4, 4, 4})
	sigma := StdDev(band)
	require.Zero(t, sigma)
	assert.True(t, mat.Equal(band, HardThreshold(band, sigma)))
}

func TestSoftThreshold(t *testing.T) {
	band := mat.NewDense(1, 5, []float64{-3, -0.5, 0, 0.5, 3})
	out := SoftThreshold(band, 1)
	assert.Equal(t, []float64{-2, 0, 0, 0, 2}, out.RawMatrix().Data)
}

func TestThresholdPerBand(t *testing.T) {
	dec, err := dwt.Decompose(gradientImage(32, 24), "db2", 3)
	require.NoError(t, err)
	before := dec.Clone()

	thresholded, thresholds := Threshold(dec)
	require.Len(t, thresholds, 3)

	assert.Zero(t, mat.Norm(thresholded.Approximation, 1))
	ar, ac := thresholded.Approximation.Dims()
	br, bc := dec.Approximation.Dims()
	assert.Equal(t, br, ar)
	assert.Equal(t, bc, ac)

	for l := 1; l <= 3; l++ {
		for _, b := range dwt.Bands {
			src := dec.Level(l).Get(b)
			want := StdDev(src)
			assert.Equal(t, want, thresholds.Level(l)[b], "level %d band %s", l, b)
			assert.True(t, mat.Equal(HardThreshold(src, want), thresholded.Level(l).Get(b)))
		}
	}

	// The input decomposition is untouched.
	assert.True(t, mat.Equal(before.Approximation, dec.Approximation))
	assert.True(t, mat.Equal(before.Level(1).Diagonal, dec.Level(1).Diagonal))
}
