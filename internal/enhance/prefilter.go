package enhance

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"

	"wavelet-enhancer/internal/dwt"
)

// Shrinkage methods and modes accepted by PrefilterConfig.
const (
	MethodBayesShrink = "BayesShrink"
	MethodVisuShrink  = "VisuShrink"

	ModeSoft = "soft"
	ModeHard = "hard"
)

// madToSigma is the 0.75 quantile of the standard normal distribution; the
// median absolute deviation of Gaussian noise divided by it estimates sigma.
const madToSigma = 0.6744897501960817

// PrefilterConfig controls the optional wavelet denoise applied before
// decomposition.
type PrefilterConfig struct {
	Enabled bool

	// Method is MethodBayesShrink or MethodVisuShrink.
	Method string
	// Mode is ModeSoft or ModeHard.
	Mode string
	// Wavelet used by the denoise transform, independent of the analysis
	// wavelet.
	Wavelet string
	// Levels of the denoise transform; 0 selects max(MaxLevel-3, 1).
	Levels int
	// Sigma is the noise standard deviation; 0 estimates it from the finest
	// diagonal band.
	Sigma float64
	// RescaleSigma divides a supplied Sigma by MaxValue so it can be given
	// in raw sample units.
	RescaleSigma bool
	// MaxValue maps raw samples onto [0, 1]; 255 for 8-bit images.
	MaxValue float64
}

// DefaultPrefilterConfig returns the BayesShrink soft-threshold settings.
// The returned config is disabled.
func DefaultPrefilterConfig() PrefilterConfig {
	return PrefilterConfig{
		Method:       MethodBayesShrink,
		Mode:         ModeSoft,
		Wavelet:      "db1",
		RescaleSigma: true,
		MaxValue:     255,
	}
}

// Validate checks the method, mode, wavelet and scaling parameters.
func (c PrefilterConfig) Validate() error {
	if c.Method != MethodBayesShrink && c.Method != MethodVisuShrink {
		return fmt.Errorf("prefilter method %q: %w", c.Method, ErrUnsupportedConfiguration)
	}
	if c.Mode != ModeSoft && c.Mode != ModeHard {
		return fmt.Errorf("prefilter mode %q: %w", c.Mode, ErrUnsupportedConfiguration)
	}
	if !dwt.IsValidWavelet(c.Wavelet) {
		return fmt.Errorf("prefilter wavelet %q: %w", c.Wavelet, ErrUnknownWavelet)
	}
	if c.MaxValue <= 0 || math.IsInf(c.MaxValue, 0) || math.IsNaN(c.MaxValue) {
		return fmt.Errorf("prefilter max value %v: %w", c.MaxValue, ErrUnsupportedConfiguration)
	}
	if c.Levels < 0 || c.Sigma < 0 {
		return fmt.Errorf("prefilter levels %d, sigma %v: %w", c.Levels, c.Sigma, ErrUnsupportedConfiguration)
	}
	return nil
}

// Prefilter denoises img by adaptive wavelet shrinkage when cfg.Enabled.
// Samples are normalized by cfg.MaxValue and the result stays normalized,
// clipped to [0, 1] (or [-1, 1] if the normalized input has negative
// samples). When disabled it returns an unchanged copy of img.
func Prefilter(img mat.Matrix, cfg PrefilterConfig) (*mat.Dense, error) {
	src, err := dwt.ValidateImage(img)
	if err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return src, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	src.Scale(1/cfg.MaxValue, src)
	rows, cols := src.Dims()

	levels := cfg.Levels
	if levels == 0 {
		maxLevel, err := dwt.MaxLevel(rows, cols, cfg.Wavelet)
		if err != nil {
			return nil, err
		}
		levels = max(maxLevel-3, 1)
	}

	dec, err := dwt.Decompose(src, cfg.Wavelet, levels)
	if err != nil {
		return nil, fmt.Errorf("prefilter decompose: %w", err)
	}

	sigma := cfg.Sigma
	if sigma > 0 && cfg.RescaleSigma {
		sigma /= cfg.MaxValue
	}
	if sigma == 0 {
		sigma = EstimateSigma(dec.Level(1).Diagonal)
	}

	shrink := SoftThreshold
	if cfg.Mode == ModeHard {
		shrink = HardThreshold
	}
	universal := sigma * math.Sqrt(2*math.Log(float64(rows*cols)))

	denoised := dec.MapDetails(func(_ int, _ dwt.Band, m *mat.Dense) *mat.Dense {
		t := universal
		if cfg.Method == MethodBayesShrink {
			t = bayesThreshold(m, sigma)
		}
		return shrink(m, t)
	})

	out, err := dwt.Reconstruct(denoised)
	if err != nil {
		return nil, fmt.Errorf("prefilter reconstruct: %w", err)
	}

	lo := 0.0
	if mat.Min(src) < 0 {
		lo = -1
	}
	out.Apply(func(_, _ int, v float64) float64 {
		return math.Min(math.Max(v, lo), 1)
	}, out)
	return out, nil
}

// EstimateSigma estimates the Gaussian noise level of a detail band as the
// median absolute non-zero coefficient divided by 0.6745. It returns 0 when
// the band has no non-zero coefficient.
func EstimateSigma(detail mat.Matrix) float64 {
	var mags []float64
	for _, v := range samples(detail) {
		if v != 0 {
			mags = append(mags, math.Abs(v))
		}
	}
	if len(mags) == 0 {
		return 0
	}
	slices.Sort(mags)
	n := len(mags)
	median := mags[n/2]
	if n%2 == 0 {
		median = (mags[n/2-1] + mags[n/2]) / 2
	}
	return median / madToSigma
}

// bayesThreshold is the BayesShrink threshold sigma^2 / sigma_x, where
// sigma_x^2 = max(E[d^2] - sigma^2, eps) estimates the signal variance of
// the band.
func bayesThreshold(band *mat.Dense, sigma float64) float64 {
	variance := sigma * sigma
	var energy float64
	values := samples(band)
	for _, v := range values {
		energy += v * v
	}
	energy /= float64(len(values))

	const eps = 0x1p-52
	return variance / math.Sqrt(math.Max(energy-variance, eps))
}
