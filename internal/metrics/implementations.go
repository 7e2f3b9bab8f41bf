package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// pixels checks both images and returns their samples in row-major order.
func pixels(original, processed mat.Matrix) (x, y []float64, err error) {
	if isEmpty(original) || isEmpty(processed) {
		return nil, nil, ErrEmptyImage
	}
	r1, c1 := original.Dims()
	r2, c2 := processed.Dims()
	if r1 != r2 || c1 != c2 {
		return nil, nil, ErrShapeMismatch
	}
	return flatten(original), flatten(processed), nil
}

func isEmpty(m mat.Matrix) bool {
	if m == nil {
		return true
	}
	if d, ok := m.(*mat.Dense); ok && (d == nil || d.IsEmpty()) {
		return true
	}
	r, c := m.Dims()
	return r == 0 || c == 0
}

func flatten(m mat.Matrix) []float64 {
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out = append(out, m.At(i, j))
		}
	}
	return out
}

func meanSquaredError(x, y []float64) float64 {
	sum := 0.0
	for i := range x {
		d := x[i] - y[i]
		sum += d * d
	}
	return sum / float64(len(x))
}

// peakOf returns the largest absolute sample, used when no peak is fixed.
func peakOf(x []float64) float64 {
	return math.Max(math.Abs(floats.Max(x)), math.Abs(floats.Min(x)))
}

// MSE implements the mean squared error metric
type MSE struct{}

// NewMSE creates a new MSE metric
func NewMSE() *MSE {
	return &MSE{}
}

func (m *MSE) Calculate(original, processed mat.Matrix) (float64, error) {
	x, y, err := pixels(original, processed)
	if err != nil {
		return 0, err
	}
	return meanSquaredError(x, y), nil
}

func (m *MSE) GetName() string {
	return "MSE"
}

func (m *MSE) GetDescription() string {
	return "Mean Squared Error - average squared pixel difference"
}

func (m *MSE) GetRange() (float64, float64) {
	return 0, 65025 // 255^2
}

func (m *MSE) IsHigherBetter() bool {
	return false
}

// PSNR implements Peak Signal-to-Noise Ratio metric
type PSNR struct {
	// Peak is the maximum possible sample value. Zero means the largest
	// absolute sample of the original image.
	Peak float64
}

// NewPSNR creates a new PSNR metric
func NewPSNR(peak float64) *PSNR {
	return &PSNR{Peak: peak}
}

func (p *PSNR) Calculate(original, processed mat.Matrix) (float64, error) {
	x, y, err := pixels(original, processed)
	if err != nil {
		return 0, err
	}

	mse := meanSquaredError(x, y)
	if mse == 0 {
		return math.Inf(1), nil // Perfect match
	}

	peak := p.Peak
	if peak <= 0 {
		peak = peakOf(x)
	}
	if peak == 0 {
		return 0, ErrUndefined
	}
	return 20 * math.Log10(peak/math.Sqrt(mse)), nil
}

func (p *PSNR) GetName() string {
	return "PSNR"
}

func (p *PSNR) GetDescription() string {
	return "Peak Signal-to-Noise Ratio - measures image quality"
}

func (p *PSNR) GetRange() (float64, float64) {
	return 0, 100 // Practical range, can go higher
}

func (p *PSNR) IsHigherBetter() bool {
	return true
}

// SSIM implements a single-window Structural Similarity Index computed over
// the whole image.
type SSIM struct {
	// DynamicRange is L in the stabilising constants (0.01L)^2 and
	// (0.03L)^2. Zero means the sample range of the original image.
	DynamicRange float64
}

// NewSSIM creates a new SSIM metric
func NewSSIM(dynamicRange float64) *SSIM {
	return &SSIM{DynamicRange: dynamicRange}
}

func (s *SSIM) Calculate(original, processed mat.Matrix) (float64, error) {
	x, y, err := pixels(original, processed)
	if err != nil {
		return 0, err
	}

	l := s.DynamicRange
	if l <= 0 {
		l = floats.Max(x) - floats.Min(x)
	}
	if l == 0 {
		l = 1
	}
	c1 := (0.01 * l) * (0.01 * l)
	c2 := (0.03 * l) * (0.03 * l)

	muX, varX := stat.PopMeanVariance(x, nil)
	muY, varY := stat.PopMeanVariance(y, nil)
	cov := stat.Covariance(x, y, nil) * float64(len(x)-1) / float64(len(x))
	if len(x) == 1 {
		cov = 0
	}

	num := (2*muX*muY + c1) * (2*cov + c2)
	den := (muX*muX + muY*muY + c1) * (varX + varY + c2)
	return num / den, nil
}

func (s *SSIM) GetName() string {
	return "SSIM"
}

func (s *SSIM) GetDescription() string {
	return "Structural Similarity Index - measures structural similarity"
}

func (s *SSIM) GetRange() (float64, float64) {
	return -1, 1
}

func (s *SSIM) IsHigherBetter() bool {
	return true
}

// Correlation is the Pearson correlation between the two images.
type Correlation struct{}

// NewCorrelation creates a new Correlation metric
func NewCorrelation() *Correlation {
	return &Correlation{}
}

func (c *Correlation) Calculate(original, processed mat.Matrix) (float64, error) {
	x, y, err := pixels(original, processed)
	if err != nil {
		return 0, err
	}
	if len(x) < 2 || stat.PopStdDev(x, nil) == 0 || stat.PopStdDev(y, nil) == 0 {
		return 0, ErrUndefined
	}
	return stat.Correlation(x, y, nil), nil
}

func (c *Correlation) GetName() string {
	return "Correlation"
}

func (c *Correlation) GetDescription() string {
	return "Pearson correlation - linear agreement between pixel values"
}

func (c *Correlation) GetRange() (float64, float64) {
	return -1, 1
}

func (c *Correlation) IsHigherBetter() bool {
	return true
}

// Sparsity is the fraction of zero samples in the processed image. The
// enhancement zeroes everything below the detail thresholds, so this
// tracks how much of the image it discarded.
type Sparsity struct{}

// NewSparsity creates a new Sparsity metric
func NewSparsity() *Sparsity {
	return &Sparsity{}
}

func (s *Sparsity) Calculate(original, processed mat.Matrix) (float64, error) {
	_, y, err := pixels(original, processed)
	if err != nil {
		return 0, err
	}
	zeros := 0
	for _, v := range y {
		if v == 0 {
			zeros++
		}
	}
	return float64(zeros) / float64(len(y)), nil
}

func (s *Sparsity) GetName() string {
	return "Sparsity"
}

func (s *Sparsity) GetDescription() string {
	return "Fraction of zero pixels in the processed image"
}

func (s *Sparsity) GetRange() (float64, float64) {
	return 0, 1
}

func (s *Sparsity) IsHigherBetter() bool {
	return true
}

// ContrastRatio is the ratio of the processed image's standard deviation to
// the original's.
type ContrastRatio struct{}

// NewContrastRatio creates a new ContrastRatio metric
func NewContrastRatio() *ContrastRatio {
	return &ContrastRatio{}
}

func (c *ContrastRatio) Calculate(original, processed mat.Matrix) (float64, error) {
	x, y, err := pixels(original, processed)
	if err != nil {
		return 0, err
	}
	sx := stat.PopStdDev(x, nil)
	if sx == 0 {
		return 0, ErrUndefined
	}
	return stat.PopStdDev(y, nil) / sx, nil
}

func (c *ContrastRatio) GetName() string {
	return "Contrast Ratio"
}

func (c *ContrastRatio) GetDescription() string {
	return "Ratio of processed to original standard deviation"
}

func (c *ContrastRatio) GetRange() (float64, float64) {
	return 0, 2
}

func (c *ContrastRatio) IsHigherBetter() bool {
	return true
}

// Sharpness is the ratio of the processed image's mean gradient magnitude
// to the original's.
type Sharpness struct{}

// NewSharpness creates a new Sharpness metric
func NewSharpness() *Sharpness {
	return &Sharpness{}
}

func (s *Sharpness) Calculate(original, processed mat.Matrix) (float64, error) {
	if _, _, err := pixels(original, processed); err != nil {
		return 0, err
	}
	before := gradientEnergy(original)
	if before == 0 {
		return 0, ErrUndefined
	}
	return gradientEnergy(processed) / before, nil
}

// gradientEnergy is the mean magnitude of forward differences.
func gradientEnergy(m mat.Matrix) float64 {
	r, c := m.Dims()
	if r < 2 || c < 2 {
		return 0
	}
	sum := 0.0
	for i := 0; i < r-1; i++ {
		for j := 0; j < c-1; j++ {
			v := m.At(i, j)
			gx := m.At(i, j+1) - v
			gy := m.At(i+1, j) - v
			sum += math.Hypot(gx, gy)
		}
	}
	return sum / float64((r-1)*(c-1))
}

func (s *Sharpness) GetName() string {
	return "Sharpness"
}

func (s *Sharpness) GetDescription() string {
	return "Ratio of processed to original mean gradient magnitude"
}

func (s *Sharpness) GetRange() (float64, float64) {
	return 0, 2
}

func (s *Sharpness) IsHigherBetter() bool {
	return true
}
