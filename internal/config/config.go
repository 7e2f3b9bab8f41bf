// Package config resolves run settings from defaults, an optional TOML
// file and WAVELET_* environment variables. Command-line flags are applied
// on top by cmd/app.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"wavelet-enhancer/internal/dwt"
	"wavelet-enhancer/internal/enhance"
)

// Run modes.
const (
	ModeEnhance  = "enhance"
	ModeFeatures = "features"
)

type Config struct {
	Wavelet string `toml:"wavelet"`
	Depth   int    `toml:"depth"`
	// Mode is ModeEnhance or ModeFeatures.
	Mode    string `toml:"mode"`
	Partial bool   `toml:"partial"`

	// Input is the dataset root holding Images/{Train,Test}/{0,1}.
	Input      string `toml:"input"`
	Output     string `toml:"output"`
	Comparison bool   `toml:"comparison"`
	FailFast   bool   `toml:"fail_fast"`
	Debug      bool   `toml:"debug"`

	Denoise Denoise `toml:"denoise"`
}

// Denoise mirrors enhance.PrefilterConfig for the [denoise] table.
type Denoise struct {
	Enabled      bool    `toml:"enabled"`
	Method       string  `toml:"method"`
	Mode         string  `toml:"mode"`
	Wavelet      string  `toml:"wavelet"`
	Levels       int     `toml:"levels"`
	Sigma        float64 `toml:"sigma"`
	RescaleSigma bool    `toml:"rescale_sigma"`
	MaxValue     float64 `toml:"max_value"`
}

func Default() *Config {
	p := enhance.DefaultPrefilterConfig()
	return &Config{
		Wavelet: "haar",
		Depth:   3,
		Mode:    ModeEnhance,
		Input:   ".",
		Output:  ".",
		Denoise: Denoise{
			Enabled:      p.Enabled,
			Method:       p.Method,
			Mode:         p.Mode,
			Wavelet:      p.Wavelet,
			Levels:       p.Levels,
			Sigma:        p.Sigma,
			RescaleSigma: p.RescaleSigma,
			MaxValue:     p.MaxValue,
		},
	}
}

// Load returns the defaults overlaid with the TOML file at path (skipped
// when path is empty) and then with the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("config %s: unknown keys %s", path, strings.Join(keys, ", "))
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Wavelet = getEnv("WAVELET_NAME", c.Wavelet)
	c.Mode = getEnv("WAVELET_MODE", c.Mode)
	c.Input = getEnv("WAVELET_INPUT", c.Input)
	c.Output = getEnv("WAVELET_OUTPUT", c.Output)
	c.Denoise.Method = getEnv("WAVELET_DENOISE_METHOD", c.Denoise.Method)
	c.Denoise.Mode = getEnv("WAVELET_DENOISE_MODE", c.Denoise.Mode)
	c.Denoise.Wavelet = getEnv("WAVELET_DENOISE_WAVELET", c.Denoise.Wavelet)

	var err error
	if c.Depth, err = getEnvInt("WAVELET_DEPTH", c.Depth); err != nil {
		return err
	}
	if c.Denoise.Levels, err = getEnvInt("WAVELET_DENOISE_LEVELS", c.Denoise.Levels); err != nil {
		return err
	}
	if c.Denoise.Sigma, err = getEnvFloat("WAVELET_DENOISE_SIGMA", c.Denoise.Sigma); err != nil {
		return err
	}
	for key, dst := range map[string]*bool{
		"WAVELET_PARTIAL":    &c.Partial,
		"WAVELET_COMPARISON": &c.Comparison,
		"WAVELET_FAIL_FAST":  &c.FailFast,
		"WAVELET_DEBUG":      &c.Debug,
		"WAVELET_DENOISE":    &c.Denoise.Enabled,
	} {
		if *dst, err = getEnvBool(key, *dst); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the settings against the selected mode.
func (c *Config) Validate() error {
	if !dwt.IsValidWavelet(c.Wavelet) {
		return fmt.Errorf("wavelet %q: %w", c.Wavelet, dwt.ErrUnknownWavelet)
	}
	switch c.Mode {
	case ModeEnhance:
		if c.Depth < enhance.MinDepth || c.Depth > enhance.MaxDepth {
			return fmt.Errorf("depth %d, want %d..%d: %w", c.Depth, enhance.MinDepth, enhance.MaxDepth, enhance.ErrUnsupportedDepth)
		}
	case ModeFeatures:
		if c.Depth < 1 {
			return fmt.Errorf("depth %d: %w", c.Depth, enhance.ErrUnsupportedDepth)
		}
		if c.Partial && c.Depth != 3 && c.Depth != 4 {
			return fmt.Errorf("partial features at depth %d, want 3 or 4: %w", c.Depth, enhance.ErrUnsupportedConfiguration)
		}
	default:
		return fmt.Errorf("mode %q, want %s or %s: %w", c.Mode, ModeEnhance, ModeFeatures, enhance.ErrUnsupportedConfiguration)
	}
	if c.Denoise.Enabled {
		if err := c.Prefilter().Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Prefilter converts the [denoise] table.
func (c *Config) Prefilter() enhance.PrefilterConfig {
	d := c.Denoise
	return enhance.PrefilterConfig{
		Enabled:      d.Enabled,
		Method:       d.Method,
		Mode:         d.Mode,
		Wavelet:      d.Wavelet,
		Levels:       d.Levels,
		Sigma:        d.Sigma,
		RescaleSigma: d.RescaleSigma,
		MaxValue:     d.MaxValue,
	}
}

// EnhanceOptions returns the pipeline options for this configuration.
func (c *Config) EnhanceOptions() enhance.Options {
	return enhance.Options{
		Wavelet:   c.Wavelet,
		Depth:     c.Depth,
		Prefilter: c.Prefilter(),
		Partial:   c.Partial,
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
