package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gonum.org/v1/gonum/mat"

	"wavelet-enhancer/internal/batch"
	"wavelet-enhancer/internal/config"
	"wavelet-enhancer/internal/dwt"
	"wavelet-enhancer/internal/enhance"
	"wavelet-enhancer/internal/imageio"
	"wavelet-enhancer/internal/metrics"
)

// addPipelineFlags registers the flags shared by every processing command.
// Defaults shown in help are those of config.Default; only flags given on
// the command line override the file and environment.
func addPipelineFlags(fs *pflag.FlagSet) {
	def := config.Default()
	fs.StringP("wavelet", "w", def.Wavelet, "wavelet family, see the wavelets command")
	fs.IntP("depth", "l", def.Depth, "decomposition depth")
	fs.Bool("denoise", def.Denoise.Enabled, "run the shrinkage pre-filter first")
	fs.String("denoise-method", def.Denoise.Method, "pre-filter method: BayesShrink or VisuShrink")
	fs.String("denoise-mode", def.Denoise.Mode, "pre-filter thresholding: soft or hard")
	fs.Float64("denoise-sigma", def.Denoise.Sigma, "noise sigma in sample units, 0 to estimate")
}

// applyFlags copies every flag set on the command line into cfg.
func applyFlags(cfg *config.Config, fs *pflag.FlagSet) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "wavelet":
			cfg.Wavelet = f.Value.String()
		case "depth":
			cfg.Depth, err = fs.GetInt(f.Name)
		case "denoise":
			cfg.Denoise.Enabled, err = fs.GetBool(f.Name)
		case "denoise-method":
			cfg.Denoise.Method = f.Value.String()
		case "denoise-mode":
			cfg.Denoise.Mode = f.Value.String()
		case "denoise-sigma":
			cfg.Denoise.Sigma, err = fs.GetFloat64(f.Name)
		case "partial":
			cfg.Partial, err = fs.GetBool(f.Name)
		case "input":
			cfg.Input = f.Value.String()
		case "output":
			cfg.Output = f.Value.String()
		case "mode":
			cfg.Mode = f.Value.String()
		case "comparison":
			cfg.Comparison, err = fs.GetBool(f.Name)
		case "fail-fast":
			cfg.FailFast, err = fs.GetBool(f.Name)
		}
	})
	return err
}

// resolve applies the command's flags, forces the run mode and validates.
func (a *app) resolve(cmd *cobra.Command, mode string) error {
	if err := applyFlags(a.cfg, cmd.Flags()); err != nil {
		return err
	}
	if mode != "" {
		a.cfg.Mode = mode
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	a.logger.WithFields(logrus.Fields{
		"wavelet": a.cfg.Wavelet,
		"depth":   a.cfg.Depth,
		"mode":    a.cfg.Mode,
		"denoise": a.cfg.Denoise.Enabled,
	}).Debug("Configuration resolved")
	return nil
}

// warnDepth flags decompositions deeper than the image supports. They still
// run, but the deepest bands are dominated by boundary extension.
func warnDepth(logger logrus.FieldLogger, img mat.Matrix, wavelet string, depth int) {
	r, c := img.Dims()
	maxLevel, err := dwt.MaxLevel(r, c, wavelet)
	if err != nil || depth <= maxLevel {
		return
	}
	logger.WithFields(logrus.Fields{
		"depth":     depth,
		"max_level": maxLevel,
		"width":     c,
		"height":    r,
	}).Warn("Depth exceeds the maximum useful level for this image")
}

func newEnhanceCmd(a *app) *cobra.Command {
	var comparisonPath string
	cmd := &cobra.Command{
		Use:   "enhance INPUT OUTPUT",
		Short: "Enhance the detail of a single image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.resolve(cmd, config.ModeEnhance); err != nil {
				return err
			}
			store := imageio.NewStore(a.logger)

			img, err := store.Load(args[0])
			if err != nil {
				return err
			}
			warnDepth(a.logger, img, a.cfg.Wavelet, a.cfg.Depth)

			res, err := enhance.Enhance(img, a.cfg.EnhanceOptions())
			if err != nil {
				return err
			}
			if err := store.Save(args[1], res.Image); err != nil {
				return err
			}
			if comparisonPath != "" {
				title := fmt.Sprintf("%s, %d levels", a.cfg.Wavelet, a.cfg.Depth)
				if err := store.SaveComparison(comparisonPath, res.Input, res.Image, "Original", title); err != nil {
					return err
				}
			}

			report := metrics.NewEvaluator().GenerateReport(res.Input, res.Image)
			fields := logrus.Fields{"input": args[0], "output": args[1], "score": report.OverallScore}
			for _, name := range []string{"ssim", "correlation", "sparsity"} {
				if v, ok := report.Metrics[name]; ok {
					fields[name] = v
				}
			}
			a.logger.WithFields(fields).Info("Image enhanced")
			return nil
		},
	}
	addPipelineFlags(cmd.Flags())
	cmd.Flags().StringVar(&comparisonPath, "comparison-out", "", "also write a side-by-side comparison image to this path")
	return cmd
}

func newFeaturesCmd(a *app) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "features INPUT",
		Short: "Print the flattened wavelet coefficients of a single image as a CSV row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out io.Writer = cmd.OutOrStdout()
			if outPath == "" {
				// Keep stdout for the CSV row.
				a.logger.SetOutput(os.Stderr)
			} else {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			if err := a.resolve(cmd, config.ModeFeatures); err != nil {
				return err
			}
			img, err := imageio.NewStore(a.logger).Load(args[0])
			if err != nil {
				return err
			}
			warnDepth(a.logger, img, a.cfg.Wavelet, a.cfg.Depth)

			vec, err := enhance.Features(img, a.cfg.EnhanceOptions())
			if err != nil {
				return err
			}

			row := make([]string, 0, len(vec)+1)
			row = append(row, filepath.Base(args[0]))
			for _, v := range vec {
				row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
			}
			w := csv.NewWriter(out)
			if err := w.Write(row); err != nil {
				return err
			}
			w.Flush()
			if err := w.Error(); err != nil {
				return err
			}

			a.logger.WithFields(logrus.Fields{"input": args[0], "features": len(vec)}).Info("Features extracted")
			return nil
		},
	}
	addPipelineFlags(cmd.Flags())
	cmd.Flags().Bool("partial", false, "only the detail bands of levels 2 and up (depth 3 or 4)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the CSV row to this file instead of stdout")
	return cmd
}

func newBatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Process every image under <input>/Images/{Train,Test}/{0,1}",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.resolve(cmd, ""); err != nil {
				return err
			}

			runner := batch.NewRunner(imageio.NewStore(a.logger), metrics.NewEvaluator(), a.logger)
			summary, err := runner.Run(cmd.Context(), batch.Config{
				Root:       a.cfg.Input,
				Output:     a.cfg.Output,
				Options:    a.cfg.EnhanceOptions(),
				Features:   a.cfg.Mode == config.ModeFeatures,
				Comparison: a.cfg.Comparison,
				FailFast:   a.cfg.FailFast,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "processed %d images (%d failed) in %s, output in %s\n",
				summary.Processed, summary.Failed, summary.Duration.Round(time.Millisecond), summary.OutputDir)
			return nil
		},
	}
	addPipelineFlags(cmd.Flags())
	cmd.Flags().Bool("partial", false, "features mode: only the detail bands of levels 2 and up (depth 3 or 4)")
	cmd.Flags().StringP("input", "i", ".", "dataset root containing the Images directory")
	cmd.Flags().StringP("output", "o", ".", "output root")
	cmd.Flags().String("mode", config.ModeEnhance, "enhance or features")
	cmd.Flags().Bool("comparison", false, "also write side-by-side comparison images")
	cmd.Flags().Bool("fail-fast", false, "stop at the first failed image")
	return cmd
}

func newWaveletsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wavelets",
		Short: "List the supported wavelet families",
		Args:  cobra.NoArgs,
		// Needs neither configuration nor logging.
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range dwt.Names() {
				fb, _ := dwt.Get(name)
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s %2d taps\n", name, fb.Len())
			}
		},
	}
}
