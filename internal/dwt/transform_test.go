package dwt

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// testImage returns a deterministic non-trivial rows x cols image.
func testImage(rows, cols int) *mat.Dense {
	m := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			m.Set(i, j, float64((i*31+j*17)%97)+0.5*float64(i-j))
		}
	}
	return m
}

func constantImage(rows, cols int, v float64) *mat.Dense {
	m := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			m.Set(i, j, v)
		}
	}
	return m
}

func TestDecomposeReconstruct_RoundTrip(t *testing.T) {
	shapes := [][2]int{{8, 8}, {9, 7}, {16, 17}, {33, 20}}
	for _, name := range Names() {
		for _, shape := range shapes {
			for depth := 1; depth <= 3; depth++ {
				t.Run(fmt.Sprintf("%s/%dx%d/depth=%d", name, shape[0], shape[1], depth), func(t *testing.T) {
					img := testImage(shape[0], shape[1])

					dec, err := Decompose(img, name, depth)
					require.NoError(t, err)
					require.Equal(t, depth, dec.Depth())

					rec, err := Reconstruct(dec)
					require.NoError(t, err)

					r, c := rec.Dims()
					require.Equal(t, shape[0], r)
					require.Equal(t, shape[1], c)
					assert.True(t, mat.EqualApprox(img, rec, 1e-8), "reconstruction differs from source")
				})
			}
		}
	}
}

func TestDecomposeBandShapes(t *testing.T) {
	img := testImage(64, 45)

	dec, err := Decompose(img, "db2", 4)
	require.NoError(t, err)

	// db2 has filter length 4: n -> floor((n + 3) / 2).
	wantRows := []int{33, 18, 10, 6}
	wantCols := []int{24, 13, 8, 5}
	for l := 1; l <= 4; l++ {
		for _, b := range Bands {
			r, c := dec.Level(l).Get(b).Dims()
			assert.Equal(t, wantRows[l-1], r, "level %d band %s rows", l, b)
			assert.Equal(t, wantCols[l-1], c, "level %d band %s cols", l, b)
		}
	}
	r, c := dec.Approximation.Dims()
	assert.Equal(t, 6, r)
	assert.Equal(t, 5, c)

	size := 6 * 5
	for l := 0; l < 4; l++ {
		size += 3 * wantRows[l] * wantCols[l]
	}
	assert.Equal(t, size, dec.Size())
}

func TestDecomposeDetailsOrderedDeepestFirst(t *testing.T) {
	dec, err := Decompose(testImage(32, 32), "haar", 3)
	require.NoError(t, err)

	r, _ := dec.Details[0].Dims()
	assert.Equal(t, 4, r)
	r, _ = dec.Details[2].Dims()
	assert.Equal(t, 16, r)
	assert.Same(t, dec.Details[2].Horizontal, dec.Level(1).Horizontal)
	assert.Same(t, dec.Details[0].Diagonal, dec.Level(3).Diagonal)
	assert.Panics(t, func() { dec.Level(0) })
	assert.Panics(t, func() { dec.Level(4) })
}

func TestDecomposeHaarOrientation(t *testing.T) {
	// Rows alternate between 0 and 10: only axis-0 (vertical) variation.
	img := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			img.Set(i, j, float64(10*(i%2)))
		}
	}

	dec, err := Decompose(img, "haar", 1)
	require.NoError(t, err)

	bands := dec.Level(1)
	assert.Equal(t, 0.0, mat.Norm(bands.Vertical, 1))
	assert.Equal(t, 0.0, mat.Norm(bands.Diagonal, 1))
	assert.Greater(t, mat.Norm(bands.Horizontal, 1), 0.0)
}

func TestDecomposeConstantImage(t *testing.T) {
	img := constantImage(8, 8, 100)

	dec, err := Decompose(img, "haar", 2)
	require.NoError(t, err)

	for l := 1; l <= 2; l++ {
		for _, b := range Bands {
			assert.Zero(t, mat.Norm(dec.Level(l).Get(b), 1), "level %d band %s", l, b)
		}
	}
	r, c := dec.Approximation.Dims()
	require.Equal(t, 2, r)
	require.Equal(t, 2, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			assert.InDelta(t, 400.0, dec.Approximation.At(i, j), 1e-9)
		}
	}
	assert.Equal(t, 4, dec.SparseSize())
}

func TestDecomposeDeterministic(t *testing.T) {
	img := testImage(21, 18)

	a, err := Decompose(img, "sym4", 2)
	require.NoError(t, err)
	b, err := Decompose(img, "sym4", 2)
	require.NoError(t, err)

	assert.True(t, mat.Equal(a.Approximation, b.Approximation))
	for l := 1; l <= 2; l++ {
		for _, band := range Bands {
			assert.True(t, mat.Equal(a.Level(l).Get(band), b.Level(l).Get(band)))
		}
	}
}

func TestDecomposeDoesNotMutateInput(t *testing.T) {
	img := testImage(10, 10)
	before := mat.DenseCopyOf(img)

	_, err := Decompose(img, "db3", 2)
	require.NoError(t, err)
	assert.True(t, mat.Equal(before, img))
}

func TestDecomposeErrors(t *testing.T) {
	img := testImage(8, 8)

	_, err := Decompose(img, "nope", 2)
	assert.ErrorIs(t, err, ErrUnknownWavelet)

	_, err = Decompose(img, "haar", 0)
	assert.ErrorIs(t, err, ErrUnsupportedDepth)

	_, err = Decompose(nil, "haar", 2)
	assert.ErrorIs(t, err, ErrInvalidImage)

	_, err = Decompose(&mat.Dense{}, "haar", 2)
	assert.ErrorIs(t, err, ErrInvalidImage)

	bad := testImage(4, 4)
	bad.Set(1, 2, math.NaN())
	_, err = Decompose(bad, "haar", 1)
	assert.ErrorIs(t, err, ErrInvalidImage)

	bad.Set(1, 2, math.Inf(-1))
	_, err = Decompose(bad, "haar", 1)
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestReconstructErrors(t *testing.T) {
	_, err := Reconstruct(nil)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	dec, err := Decompose(testImage(16, 16), "haar", 2)
	require.NoError(t, err)

	broken := dec.Clone()
	broken.Details[0].Vertical = mat.NewDense(3, 3, nil)
	_, err = Reconstruct(broken)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	broken = dec.Clone()
	broken.Approximation = mat.NewDense(7, 7, nil)
	_, err = Reconstruct(broken)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	broken = dec.Clone()
	broken.Wavelet = "nope"
	_, err = Reconstruct(broken)
	assert.ErrorIs(t, err, ErrUnknownWavelet)
}

func TestMaxLevel(t *testing.T) {
	cases := []struct {
		rows, cols int
		wavelet    string
		want       int
	}{
		{8, 8, "haar", 3},
		{64, 100, "haar", 6},
		{8, 8, "db2", 1},
		{60, 60, "db4", 3},
		{2, 2, "db4", 0},
	}
	for _, tc := range cases {
		got, err := MaxLevel(tc.rows, tc.cols, tc.wavelet)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%dx%d %s", tc.rows, tc.cols, tc.wavelet)
	}

	_, err := MaxLevel(8, 8, "nope")
	assert.ErrorIs(t, err, ErrUnknownWavelet)
}

func TestMapDetailsLeavesSourceUntouched(t *testing.T) {
	dec, err := Decompose(testImage(16, 12), "db2", 2)
	require.NoError(t, err)
	orig := dec.Clone()

	seen := make(map[int]int)
	zeroed := dec.MapDetails(func(level int, _ Band, m *mat.Dense) *mat.Dense {
		seen[level]++
		r, c := m.Dims()
		return mat.NewDense(r, c, nil)
	})

	assert.Equal(t, map[int]int{1: 3, 2: 3}, seen)
	assert.Equal(t, countNonZero(orig.Approximation), zeroed.SparseSize())
	assert.True(t, mat.Equal(orig.Level(1).Horizontal, dec.Level(1).Horizontal))
	assert.NotSame(t, dec.Approximation, zeroed.Approximation)
}
