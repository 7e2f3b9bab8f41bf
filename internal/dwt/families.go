package dwt

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
)

// Kind distinguishes orthogonal filter banks from biorthogonal ones.
type Kind string

const (
	Orthogonal   Kind = "orthogonal"
	Biorthogonal Kind = "biorthogonal"
)

// FilterBank holds the analysis (Dec) and synthesis (Rec) filter pairs of a
// wavelet. All four filters have the same even length.
type FilterBank struct {
	Name  string
	Kind  Kind
	DecLo []float64
	DecHi []float64
	RecLo []float64
	RecHi []float64
}

// Len returns the filter length.
func (fb *FilterBank) Len() int {
	return len(fb.DecLo)
}

// NewFilterBank derives the high-pass filters from the low-pass pair using
// the quadrature mirror relations recHi[i] = (-1)^i decLo[i] and
// decHi[i] = (-1)^(i+1) recLo[i].
func NewFilterBank(name string, kind Kind, decLo, recLo []float64) (*FilterBank, error) {
	n := len(decLo)
	if n < 2 || n%2 != 0 {
		return nil, fmt.Errorf("wavelet %s: filter length %d must be even and >= 2", name, n)
	}
	if len(recLo) != n {
		return nil, fmt.Errorf("wavelet %s: synthesis filter length %d != %d", name, len(recLo), n)
	}

	fb := &FilterBank{
		Name:  name,
		Kind:  kind,
		DecLo: slices.Clone(decLo),
		RecLo: slices.Clone(recLo),
		DecHi: make([]float64, n),
		RecHi: make([]float64, n),
	}
	for i := range n {
		sign := 1.0
		if i%2 == 1 {
			sign = -1.0
		}
		fb.RecHi[i] = sign * decLo[i]
		fb.DecHi[i] = -sign * recLo[i]
	}
	return fb, nil
}

func orthogonal(name string, decLo []float64) *FilterBank {
	recLo := slices.Clone(decLo)
	slices.Reverse(recLo)
	fb, err := NewFilterBank(name, Orthogonal, decLo, recLo)
	if err != nil {
		panic(err)
	}
	return fb
}

func biorthogonal(name string, decLo, recLo []float64) *FilterBank {
	fb, err := NewFilterBank(name, Biorthogonal, decLo, recLo)
	if err != nil {
		panic(err)
	}
	return fb
}

var banks = make(map[string]*FilterBank)

// Register adds a filter bank under its lower-cased name, replacing any
// previous registration.
func Register(fb *FilterBank) {
	banks[strings.ToLower(fb.Name)] = fb
}

// Get returns the filter bank registered under name.
func Get(name string) (*FilterBank, bool) {
	fb, exists := banks[strings.ToLower(name)]
	return fb, exists
}

// Lookup is Get with an ErrUnknownWavelet error for missing names.
func Lookup(name string) (*FilterBank, error) {
	fb, exists := Get(name)
	if !exists {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownWavelet)
	}
	return fb, nil
}

// IsValidWavelet reports whether name is registered.
func IsValidWavelet(name string) bool {
	_, exists := Get(name)
	return exists
}

// Names returns the registered wavelet names in lexical order.
func Names() []string {
	return slices.Sorted(maps.Keys(banks))
}

func init() {
	s := 1 / math.Sqrt2

	haar := orthogonal("haar", []float64{s, s})
	Register(haar)
	Register(orthogonal("db1", haar.DecLo))

	db2 := []float64{
		-0.12940952255126037, 0.2241438680420134,
		0.8365163037378079, 0.48296291314453416,
	}
	db3 := []float64{
		0.03522629188570953, -0.08544127388202666, -0.13501102001025458,
		0.45987750211849154, 0.8068915093110925, 0.33267055295008263,
	}
	Register(orthogonal("db2", db2))
	Register(orthogonal("db3", db3))
	Register(orthogonal("db4", []float64{
		-0.010597401785069032, 0.0328830116668852, 0.030841381835560764,
		-0.18703481171909309, -0.027983769416859854, 0.6308807679298589,
		0.7148465705529157, 0.2303778133088965,
	}))

	// sym2 and sym3 coincide with db2 and db3.
	Register(orthogonal("sym2", db2))
	Register(orthogonal("sym3", db3))
	Register(orthogonal("sym4", []float64{
		-0.07576571478927333, -0.02963552764599851, 0.49761866763201545,
		0.8037387518059161, 0.29785779560527736, -0.09921954357684722,
		-0.012603967262037833, 0.0322231006040427,
	}))

	Register(orthogonal("coif1", []float64{
		-0.01565572813546454, -0.0727326195128539, 0.38486484686420286,
		0.8525720202122554, 0.3378976624578092, -0.0727326195128539,
	}))

	Register(biorthogonal("bior1.1", []float64{s, s}, []float64{s, s}))
	Register(biorthogonal("bior2.2",
		[]float64{
			0, -0.1767766952966369, 0.3535533905932738,
			1.0606601717798214, 0.3535533905932738, -0.1767766952966369,
		},
		[]float64{
			0, 0.3535533905932738, 0.7071067811865476,
			0.3535533905932738, 0, 0,
		},
	))
}
