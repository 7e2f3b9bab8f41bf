package enhance

import (
	"errors"

	"wavelet-enhancer/internal/dwt"
)

// Errors shared with the transform backend, re-exported so callers of this
// package can match every failure with errors.Is against enhance.Err*.
var (
	ErrInvalidImage     = dwt.ErrInvalidImage
	ErrUnknownWavelet   = dwt.ErrUnknownWavelet
	ErrUnsupportedDepth = dwt.ErrUnsupportedDepth
)

// ErrUnsupportedConfiguration is returned for parameter combinations with
// no defined behavior, such as a partial flatten at depth 2 or 5.
var ErrUnsupportedConfiguration = errors.New("unsupported configuration")
