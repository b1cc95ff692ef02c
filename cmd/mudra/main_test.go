package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ayusman/mudra/internal/classifier"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
)

func writeSamples(t *testing.T, dir string) string {
	t.Helper()

	set := classifier.SampleSet{Samples: []classifier.Sample{
		{Class: 0, Landmarks: detector.OpenPalmLandmarks().Points},
		{Class: 1, Landmarks: detector.ClosedFistLandmarks().Points},
		{Class: 1, Landmarks: detector.ClosedFistLandmarks().Points},
	}}
	data, err := json.Marshal(set)
	require.NoError(t, err)

	path := filepath.Join(dir, "samples.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestTrainCommand(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	samples := writeSamples(t, dir)
	out := filepath.Join(dir, "models", "centroid.json")

	cmd := newRootCommand()
	cmd.SetArgs([]string{"train", "--samples", samples, "--out", out, "--log-level", "error"})
	require.NoError(t, cmd.Execute())

	c, err := classifier.LoadCentroid(out)
	require.NoError(t, err)
	assert.Equal(t, 42, c.Dimension())

	id, err := c.Predict(make([]float64, 42))
	require.NoError(t, err)
	assert.Contains(t, []int{0, 1}, id)
}

func TestTrainCommand_RequiresSamples(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cmd := newRootCommand()
	cmd.SetArgs([]string{"train"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--samples")
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MUDRA_DETECTOR_KIND", "webcam")

	cmd := newRootCommand()
	cmd.SetArgs([]string{"train", "--samples", "x.json"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "detector.kind")
}

func TestNewDetector_None(t *testing.T) {
	for _, kind := range []string{"none", "None", "NONE"} {
		det := newDetector(config.DetectorConfig{Kind: kind}, zaptest.NewLogger(t))

		_, err := det.Detect(nil)
		assert.ErrorIs(t, err, detector.ErrUnavailable, "kind %q", kind)
	}
}
