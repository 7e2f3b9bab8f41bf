// Package batch runs the enhancement or feature pipeline over a labelled
// dataset laid out as <root>/Images/{Train,Test}/{0,1}/*.pgm.
package batch

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"wavelet-enhancer/internal/enhance"
	"wavelet-enhancer/internal/metrics"
)

var (
	// Splits are visited in this order.
	Splits = []string{"Train", "Test"}
	// Classes are the label directories inside each split: 0 holds images
	// without the structure of interest, 1 images with it.
	Classes = []string{"0", "1"}
)

// ImageStore reads and writes grayscale images.
type ImageStore interface {
	Load(path string) (*mat.Dense, error)
	Save(path string, m mat.Matrix) error
	SaveComparison(path string, left, right mat.Matrix, leftTitle, rightTitle string) error
}

type Config struct {
	// Root contains the Images directory.
	Root   string
	Output string
	// Pattern selects the files of each class directory.
	Pattern string

	Options enhance.Options
	// Features writes one CSV row per image instead of enhanced images.
	Features bool
	// Comparison also writes a side-by-side image next to each output.
	Comparison bool
	// FailFast stops at the first failed image.
	FailFast bool
}

// Summary counts the outcome of a run.
type Summary struct {
	Processed int
	Failed    int
	// OutputDir holds the enhanced images, or the CSV in features mode.
	OutputDir    string
	FeaturesFile string
	Duration     time.Duration
}

// Runner processes the dataset one image at a time.
type Runner struct {
	store  ImageStore
	eval   *metrics.Evaluator
	logger logrus.FieldLogger
}

func NewRunner(store ImageStore, eval *metrics.Evaluator, logger logrus.FieldLogger) *Runner {
	return &Runner{store: store, eval: eval, logger: logger}
}

// OutputDirName names the directory for one wavelet, depth and denoise
// setting, e.g. "db2_3levels_nodenoise".
func OutputDirName(opts enhance.Options) string {
	denoise := "no"
	if opts.Prefilter.Enabled {
		denoise = "yes"
	}
	return fmt.Sprintf("%s_%dlevels_%sdenoise", opts.Wavelet, opts.Depth, denoise)
}

// Run walks every split and class in order. Images within a class are
// numbered by their sorted position, which names the enhanced output.
func (r *Runner) Run(ctx context.Context, cfg Config) (Summary, error) {
	start := time.Now()
	summary := Summary{}
	if cfg.Pattern == "" {
		cfg.Pattern = "*.pgm"
	}

	var features *csv.Writer
	if cfg.Features {
		summary.OutputDir = cfg.Output
		summary.FeaturesFile = filepath.Join(cfg.Output, fmt.Sprintf("features_%s_%d.csv", cfg.Options.Wavelet, cfg.Options.Depth))
		if err := os.MkdirAll(cfg.Output, 0o755); err != nil {
			return summary, fmt.Errorf("creating output directory: %w", err)
		}
		f, err := os.Create(summary.FeaturesFile)
		if err != nil {
			return summary, fmt.Errorf("creating features file: %w", err)
		}
		defer f.Close()
		features = csv.NewWriter(f)
	} else {
		summary.OutputDir = filepath.Join(cfg.Output, "Processed Images", OutputDirName(cfg.Options))
	}

	r.logger.WithFields(logrus.Fields{
		"root":     cfg.Root,
		"output":   summary.OutputDir,
		"wavelet":  cfg.Options.Wavelet,
		"depth":    cfg.Options.Depth,
		"denoise":  cfg.Options.Prefilter.Enabled,
		"features": cfg.Features,
	}).Info("Starting batch")

	for _, split := range Splits {
		for _, class := range Classes {
			paths, err := filepath.Glob(filepath.Join(cfg.Root, "Images", split, class, cfg.Pattern))
			if err != nil {
				return summary, fmt.Errorf("listing %s/%s: %w", split, class, err)
			}
			if len(paths) == 0 {
				r.logger.WithFields(logrus.Fields{"split": split, "class": class}).Warn("No images found")
			}

			for i, path := range paths {
				if err := ctx.Err(); err != nil {
					return summary, err
				}

				log := r.logger.WithFields(logrus.Fields{"split": split, "class": class, "file": path})
				if cfg.Features {
					err = r.extract(features, cfg, split, class, path)
				} else {
					dir := filepath.Join(summary.OutputDir, split+"_png", class)
					err = r.enhance(log, cfg, path, dir, i)
				}
				if err != nil {
					summary.Failed++
					log.WithError(err).Error("Image failed")
					if cfg.FailFast {
						return summary, fmt.Errorf("%s: %w", path, err)
					}
					continue
				}
				summary.Processed++
			}
		}
	}

	if features != nil {
		features.Flush()
		if err := features.Error(); err != nil {
			return summary, fmt.Errorf("writing features: %w", err)
		}
	}

	summary.Duration = time.Since(start)
	r.logger.WithFields(logrus.Fields{
		"processed": summary.Processed,
		"failed":    summary.Failed,
		"duration":  summary.Duration.String(),
	}).Info("Batch finished")

	if summary.Processed == 0 && summary.Failed > 0 {
		return summary, errors.New("every image failed")
	}
	return summary, nil
}

func (r *Runner) enhance(log logrus.FieldLogger, cfg Config, path, dir string, index int) error {
	img, err := r.store.Load(path)
	if err != nil {
		return err
	}
	res, err := enhance.Enhance(img, cfg.Options)
	if err != nil {
		return err
	}

	out := filepath.Join(dir, strconv.Itoa(index)+".png")
	if err := r.store.Save(out, res.Image); err != nil {
		return err
	}
	if cfg.Comparison {
		cmp := filepath.Join(dir, strconv.Itoa(index)+"_comparison.png")
		title := fmt.Sprintf("%s, %d levels", cfg.Options.Wavelet, cfg.Options.Depth)
		if err := r.store.SaveComparison(cmp, res.Input, res.Image, "Original", title); err != nil {
			return err
		}
	}

	if r.eval != nil {
		report := r.eval.GenerateReport(res.Input, res.Image)
		fields := logrus.Fields{"output": out, "score": report.OverallScore}
		for name, v := range report.Metrics {
			if math.IsInf(v, 0) {
				// JSON cannot carry infinities.
				fields[name] = strconv.FormatFloat(v, 'g', -1, 64)
				continue
			}
			fields[name] = v
		}
		log.WithFields(fields).Debug("Image enhanced")
	}
	return nil
}

func (r *Runner) extract(w *csv.Writer, cfg Config, split, class, path string) error {
	img, err := r.store.Load(path)
	if err != nil {
		return err
	}
	vec, err := enhance.Features(img, cfg.Options)
	if err != nil {
		return err
	}

	row := make([]string, 0, len(vec)+3)
	row = append(row, split, class, filepath.Base(path))
	for _, v := range vec {
		row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
	}
	return w.Write(row)
}
