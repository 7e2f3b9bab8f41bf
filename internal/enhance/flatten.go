package enhance

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"wavelet-enhancer/internal/dwt"
)

// Segment describes where one band lives inside a flattened feature
// vector. Band is "A" for the approximation, otherwise H, V or D.
type Segment struct {
	Band   string
	Level  int
	Rows   int
	Cols   int
	Offset int
}

// Len returns the number of coefficients in the segment.
func (s Segment) Len() int {
	return s.Rows * s.Cols
}

// Layout returns the segments Flatten concatenates, in output order.
//
// Full layout: the approximation, then levels from depth down to 1, each as
// H, V, D. Partial layout: detail bands only, levels 2..depth in increasing
// order, each as H, V, D; defined for depth 3 and 4 only.
// Every band is laid out row-major.
func Layout(dec *dwt.Decomposition, depth int, partial bool) ([]Segment, error) {
	if dec == nil || dec.Approximation == nil {
		return nil, fmt.Errorf("nil decomposition: %w", dwt.ErrShapeMismatch)
	}
	if depth < 1 || dec.Depth() != depth {
		return nil, fmt.Errorf("decomposition has %d levels, want %d: %w", dec.Depth(), depth, ErrUnsupportedDepth)
	}

	var segments []Segment
	offset := 0
	add := func(band string, level int, m *mat.Dense) {
		r, c := m.Dims()
		segments = append(segments, Segment{Band: band, Level: level, Rows: r, Cols: c, Offset: offset})
		offset += r * c
	}
	addLevel := func(level int) {
		bands := dec.Level(level)
		for _, b := range dwt.Bands {
			add(b.String(), level, bands.Get(b))
		}
	}

	if !partial {
		add("A", depth, dec.Approximation)
		for level := depth; level >= 1; level-- {
			addLevel(level)
		}
		return segments, nil
	}

	if depth != 3 && depth != 4 {
		return nil, fmt.Errorf("partial flatten at depth %d, want 3 or 4: %w", depth, ErrUnsupportedConfiguration)
	}
	for level := 2; level <= depth; level++ {
		addLevel(level)
	}
	return segments, nil
}

// Flatten linearises the coefficients of a raw decomposition into a feature
// vector following Layout.
func Flatten(dec *dwt.Decomposition, depth int, partial bool) ([]float64, error) {
	segments, err := Layout(dec, depth, partial)
	if err != nil {
		return nil, err
	}

	last := segments[len(segments)-1]
	out := make([]float64, 0, last.Offset+last.Len())
	for _, s := range segments {
		var m *mat.Dense
		if s.Band == "A" {
			m = dec.Approximation
		} else {
			m = dec.Level(s.Level).Get(bandByName(s.Band))
		}
		out = append(out, samples(m)...)
	}
	return out, nil
}

func bandByName(name string) dwt.Band {
	for _, b := range dwt.Bands {
		if b.String() == name {
			return b
		}
	}
	panic(fmt.Sprintf("enhance: unknown band %q", name))
}
