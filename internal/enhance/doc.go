// Package enhance implements the detail-enhancement and feature-extraction
// pipelines on top of package dwt.
//
// Enhancement hard-thresholds every detail band at its own standard
// deviation, zeroes the approximation, inverts the transform and floors the
// result at zero. Feature extraction flattens a raw decomposition, either
// completely or restricted to the detail bands of levels 2 and up (depth 3
// or 4 only). Either pipeline may run an adaptive shrinkage pre-filter on
// the input first.
//
// All functions are pure: inputs are never modified and every result is
// freshly allocated, so images may be processed concurrently.
package enhance
