package dwt

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Band identifies one of the three detail orientations of a level.
type Band int

const (
	Horizontal Band = iota
	Vertical
	Diagonal
)

// Bands lists the detail orientations in canonical order.
var Bands = [3]Band{Horizontal, Vertical, Diagonal}

func (b Band) String() string {
	switch b {
	case Horizontal:
		return "H"
	case Vertical:
		return "V"
	case Diagonal:
		return "D"
	default:
		return fmt.Sprintf("Band(%d)", int(b))
	}
}

// DetailBands holds the three detail bands of one decomposition level.
type DetailBands struct {
	Horizontal *mat.Dense
	Vertical   *mat.Dense
	Diagonal   *mat.Dense
}

// Get returns the band with orientation b.
func (db DetailBands) Get(b Band) *mat.Dense {
	switch b {
	case Horizontal:
		return db.Horizontal
	case Vertical:
		return db.Vertical
	case Diagonal:
		return db.Diagonal
	default:
		panic(fmt.Sprintf("dwt: unknown band %d", int(b)))
	}
}

// Dims returns the shared shape of the three bands.
func (db DetailBands) Dims() (rows, cols int) {
	return db.Horizontal.Dims()
}

// Size returns the number of coefficients across the three bands.
func (db DetailBands) Size() int {
	r, c := db.Dims()
	return 3 * r * c
}

// Decomposition is the result of a multi-level 2D wavelet transform.
type Decomposition struct {
	// Wavelet is the name of the filter bank used for analysis.
	Wavelet string

	// Rows and Cols are the dimensions of the source image.
	Rows, Cols int

	// Approximation is the low-pass band of the deepest level.
	Approximation *mat.Dense

	// Details is ordered from the deepest level (index 0, level N) to
	// level 1.
	Details []DetailBands
}

// Depth returns the number of decomposition levels.
func (d *Decomposition) Depth() int {
	return len(d.Details)
}

// Level returns the detail bands of level l, where 1 is the finest level and
// Depth() the coarsest. It panics if l is out of range.
func (d *Decomposition) Level(l int) DetailBands {
	if l < 1 || l > len(d.Details) {
		panic(fmt.Sprintf("dwt: level %d out of range [1, %d]", l, len(d.Details)))
	}
	return d.Details[len(d.Details)-l]
}

// Size returns the total number of coefficients.
func (d *Decomposition) Size() int {
	r, c := d.Approximation.Dims()
	size := r * c
	for _, db := range d.Details {
		size += db.Size()
	}
	return size
}

// SparseSize returns the number of non-zero coefficients.
func (d *Decomposition) SparseSize() int {
	count := countNonZero(d.Approximation)
	for _, db := range d.Details {
		for _, b := range Bands {
			count += countNonZero(db.Get(b))
		}
	}
	return count
}

// Clone returns a deep copy of d.
func (d *Decomposition) Clone() *Decomposition {
	return d.MapDetails(func(_ int, _ Band, m *mat.Dense) *mat.Dense {
		return mat.DenseCopyOf(m)
	})
}

// MapDetails returns a new decomposition whose detail bands are fn applied to
// every band of d, level by level from 1 to Depth(). The approximation is
// copied. fn must return a matrix with the shape of its input and must not
// retain or mutate m.
func (d *Decomposition) MapDetails(fn func(level int, b Band, m *mat.Dense) *mat.Dense) *Decomposition {
	out := &Decomposition{
		Wavelet:       d.Wavelet,
		Rows:          d.Rows,
		Cols:          d.Cols,
		Approximation: mat.DenseCopyOf(d.Approximation),
		Details:       make([]DetailBands, len(d.Details)),
	}
	for l := 1; l <= d.Depth(); l++ {
		src := d.Level(l)
		out.Details[len(d.Details)-l] = DetailBands{
			Horizontal: fn(l, Horizontal, src.Horizontal),
			Vertical:   fn(l, Vertical, src.Vertical),
			Diagonal:   fn(l, Diagonal, src.Diagonal),
		}
	}
	return out
}

func countNonZero(m *mat.Dense) int {
	rows, cols := m.Dims()
	count := 0
	for i := 0; i < rows; i++ {
		for _, v := range m.RawRowView(i)[:cols] {
			if v != 0 {
				count++
			}
		}
	}
	return count
}
