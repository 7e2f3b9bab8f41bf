package batch

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"wavelet-enhancer/internal/enhance"
	"wavelet-enhancer/internal/metrics"
)

// memStore serves a synthetic image for every path and records writes.
type memStore struct {
	broken  map[string]bool
	saved   map[string]*mat.Dense
	compare []string
}

func newMemStore() *memStore {
	return &memStore{broken: map[string]bool{}, saved: map[string]*mat.Dense{}}
}

func (s *memStore) Load(path string) (*mat.Dense, error) {
	if s.broken[filepath.Base(path)] {
		return nil, errors.New("corrupt image")
	}
	m := mat.NewDense(24, 20, nil)
	for i := 0; i < 24; i++ {
		for j := 0; j < 20; j++ {
			m.Set(i, j, float64((7*i+3*j+len(path))%256))
		}
	}
	return m, nil
}

func (s *memStore) Save(path string, m mat.Matrix) error {
	s.saved[path] = mat.DenseCopyOf(m)
	return nil
}

func (s *memStore) SaveComparison(path string, _, _ mat.Matrix, _, _ string) error {
	s.compare = append(s.compare, path)
	return nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// dataset creates empty files for the given counts of Train/0, Train/1,
// Test/0 and Test/1 images.
func dataset(t *testing.T, counts [4]int) string {
	t.Helper()
	root := t.TempDir()
	k := 0
	for _, split := range Splits {
		for _, class := range Classes {
			dir := filepath.Join(root, "Images", split, class)
			require.NoError(t, os.MkdirAll(dir, 0o755))
			for i := 0; i < counts[k]; i++ {
				name := filepath.Join(dir, string(rune('a'+i))+".pgm")
				require.NoError(t, os.WriteFile(name, nil, 0o644))
			}
			k++
		}
	}
	// Files with other extensions are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(root, "Images", "Train", "0", "notes.txt"), nil, 0o644))
	return root
}

func TestOutputDirName(t *testing.T) {
	opts := enhance.Options{Wavelet: "db2", Depth: 3}
	assert.Equal(t, "db2_3levels_nodenoise", OutputDirName(opts))
	opts.Prefilter.Enabled = true
	assert.Equal(t, "db2_3levels_yesdenoise", OutputDirName(opts))
}

func TestRunEnhance(t *testing.T) {
	root := dataset(t, [4]int{2, 1, 1, 3})
	out := t.TempDir()
	store := newMemStore()
	runner := NewRunner(store, metrics.NewEvaluator(), quietLogger())

	summary, err := runner.Run(context.Background(), Config{
		Root:       root,
		Output:     out,
		Options:    enhance.Options{Wavelet: "haar", Depth: 2},
		Comparison: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, summary.Processed)
	assert.Zero(t, summary.Failed)

	base := filepath.Join(out, "Processed Images", "haar_2levels_nodenoise")
	assert.Equal(t, base, summary.OutputDir)
	for _, rel := range []string{
		"Train_png/0/0.png", "Train_png/0/1.png",
		"Train_png/1/0.png",
		"Test_png/0/0.png",
		"Test_png/1/0.png", "Test_png/1/1.png", "Test_png/1/2.png",
	} {
		img, ok := store.saved[filepath.Join(base, filepath.FromSlash(rel))]
		if assert.True(t, ok, rel) {
			r, c := img.Dims()
			assert.Equal(t, 24, r)
			assert.Equal(t, 20, c)
			assert.GreaterOrEqual(t, mat.Min(img), 0.0)
		}
	}
	assert.Len(t, store.saved, 7)
	assert.Len(t, store.compare, 7)
	assert.Contains(t, store.compare, filepath.Join(base, "Test_png", "1", "2_comparison.png"))
}

func TestRunFeatures(t *testing.T) {
	root := dataset(t, [4]int{1, 1, 2, 0})
	out := filepath.Join(t.TempDir(), "features")
	runner := NewRunner(newMemStore(), nil, quietLogger())

	summary, err := runner.Run(context.Background(), Config{
		Root:     root,
		Output:   out,
		Options:  enhance.Options{Wavelet: "haar", Depth: 3, Partial: true},
		Features: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Processed)
	assert.Equal(t, filepath.Join(out, "features_haar_3.csv"), summary.FeaturesFile)

	f, err := os.Open(summary.FeaturesFile)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, []string{"Train", "0", "a.pgm"}, rows[0][:3])
	assert.Equal(t, []string{"Test", "0", "b.pgm"}, rows[3][:3])

	// Haar on 24x20 gives level 2 bands of 6x5 and level 3 bands of 3x3.
	for _, row := range rows {
		assert.Len(t, row, 3+3*(6*5)+3*(3*3))
	}
}

func TestRunContinuesPastFailures(t *testing.T) {
	root := dataset(t, [4]int{3, 0, 0, 0})
	store := newMemStore()
	store.broken["b.pgm"] = true
	runner := NewRunner(store, nil, quietLogger())

	cfg := Config{Root: root, Output: t.TempDir(), Options: enhance.Options{Wavelet: "haar", Depth: 2}}
	summary, err := runner.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Failed)

	cfg.FailFast = true
	summary, err = runner.Run(context.Background(), cfg)
	assert.ErrorContains(t, err, "b.pgm")
	assert.Equal(t, 1, summary.Processed)
}

func TestRunEveryImageFailed(t *testing.T) {
	root := dataset(t, [4]int{1, 0, 0, 0})
	runner := NewRunner(newMemStore(), nil, quietLogger())

	_, err := runner.Run(context.Background(), Config{
		Root:    root,
		Output:  t.TempDir(),
		Options: enhance.Options{Wavelet: "haar", Depth: 9},
	})
	assert.Error(t, err)
}

func TestRunCancelled(t *testing.T) {
	root := dataset(t, [4]int{2, 2, 2, 2})
	runner := NewRunner(newMemStore(), nil, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := runner.Run(ctx, Config{Root: root, Output: t.TempDir(), Options: enhance.Options{Wavelet: "haar", Depth: 2}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, summary.Processed)
}

func TestRunLogsWarningForEmptyClass(t *testing.T) {
	root := dataset(t, [4]int{1, 0, 0, 0})
	var buf strings.Builder
	logger := logrus.New()
	logger.SetOutput(&buf)

	_, err := NewRunner(newMemStore(), nil, logger).Run(context.Background(), Config{
		Root:    root,
		Output:  t.TempDir(),
		Options: enhance.Options{Wavelet: "haar", Depth: 2},
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No images found")
}
