// Package dwt implements the multi-level 2D discrete wavelet transform used
// by the enhancement and feature pipelines.
//
// The transform is a separable filter bank. Each level filters the current
// approximation along axis 0 (columns) and then axis 1 (rows) with the
// analysis low-pass/high-pass pair and keeps every other sample, yielding
// the next approximation plus three detail bands.
//
// # Boundary handling
//
// Signals are extended with half-sample symmetric extension
// (x[-1] = x[0], x[n] = x[n-1]). A signal of length n filtered with a
// filter of length F yields floor((n+F-1)/2) coefficients. Synthesis
// produces 2k-F+2 samples from k coefficients, which is one sample more
// than the source along every odd dimension. Reconstruct crops the result
// back to the source shape recorded in the Decomposition.
//
// # Band naming
//
//   - Horizontal: high-pass along axis 0, low-pass along axis 1
//   - Vertical:   low-pass along axis 0, high-pass along axis 1
//   - Diagonal:   high-pass along both axes
//
// # Level ordering
//
// Decomposition.Details is ordered from the deepest level (coarsest, level
// N) to level 1 (finest). Use Level(l) to address a level by its number.
//
// # Usage Example
//
//	dec, err := dwt.Decompose(img, "db2", 3)
//	if err != nil {
//		return err
//	}
//	h := dec.Level(1).Horizontal // finest horizontal details
//	rec, err := dwt.Reconstruct(dec)
package dwt
