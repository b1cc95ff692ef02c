package sign

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ayusman/mudra/internal/classifier"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/features"
	"github.com/ayusman/mudra/internal/imaging"
	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/store"
)

// pngPayload returns a small base64 PNG.
func pngPayload(t *testing.T) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 40), B: 90, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

type fakeHistory struct {
	mu      sync.Mutex
	entries []*store.Interpretation
	err     error
}

func (h *fakeHistory) Create(i *store.Interpretation) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.entries = append(h.entries, i)
	return nil
}

func (h *fakeHistory) Entries() []*store.Interpretation {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*store.Interpretation(nil), h.entries...)
}

type fixture struct {
	det     *detector.MockDetector
	clf     *classifier.Mock
	history *fakeHistory
	metrics *metrics.Metrics
	interp  *Interpreter
}

func newFixture(t *testing.T, classID int) *fixture {
	t.Helper()

	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	f := &fixture{
		det:     detector.NewMockDetector(),
		clf:     classifier.NewMock(classID),
		history: &fakeHistory{},
		metrics: m,
	}
	f.interp = New(Config{
		Detector: f.det,
		Model:    classifier.Available(f.clf),
		Labels:   classifier.DefaultLabels(),
		History:  f.history,
		Metrics:  m,
		Logger:   zaptest.NewLogger(t),
	})
	return f
}

func TestInterpret_Recognized(t *testing.T) {
	f := newFixture(t, 1)
	hand := detector.OpenPalmLandmarks()
	f.det.SetHands([]detector.HandLandmarks{hand})

	res, err := f.interp.Interpret(context.Background(), pngPayload(t))
	require.NoError(t, err)

	assert.Equal(t, OutcomeRecognized, res.Outcome)
	assert.Equal(t, "Chest pain", res.Label)
	assert.Equal(t, 1, res.ClassID)
	assert.Equal(t, "Right", res.Handedness)
	assert.Equal(t, features.FromHand(hand), res.Features)

	calls := f.clf.Calls()
	require.Len(t, calls, 1, "classifier must be invoked exactly once")
	assert.Len(t, calls[0], 2*detector.NumLandmarks)

	entries := f.history.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, store.OutcomeRecognized, entries[0].Outcome)
	assert.Equal(t, "Chest pain", entries[0].Label)
	require.NotNil(t, entries[0].ClassID)
	assert.Equal(t, 1, *entries[0].ClassID)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Interpretations.WithLabelValues("recognized")))
}

func TestInterpret_DataURI(t *testing.T) {
	f := newFixture(t, 0)
	f.det.SetHands([]detector.HandLandmarks{detector.ClosedFistLandmarks()})

	res, err := f.interp.Interpret(context.Background(), "data:image/png;base64,"+pngPayload(t))
	require.NoError(t, err)
	assert.Equal(t, "Headache", res.Label)
}

func TestInterpret_FirstHandOnly(t *testing.T) {
	f := newFixture(t, 2)
	first := detector.ClosedFistLandmarks()
	second := detector.OpenPalmLandmarks()
	second.Handedness = "Left"
	f.det.SetHands([]detector.HandLandmarks{first, second})

	res, err := f.interp.Interpret(context.Background(), pngPayload(t))
	require.NoError(t, err)

	assert.Equal(t, "Right", res.Handedness)
	require.Len(t, f.clf.Calls(), 1)
	assert.Equal(t, features.FromHand(first), f.clf.Calls()[0])
}

func TestInterpret_UnknownClass(t *testing.T) {
	f := newFixture(t, 42)
	f.det.SetHands([]detector.HandLandmarks{detector.OpenPalmLandmarks()})

	res, err := f.interp.Interpret(context.Background(), pngPayload(t))
	require.NoError(t, err)
	assert.Equal(t, classifier.UnknownLabel, res.Label)
	assert.Equal(t, 42, res.ClassID)
}

func TestInterpret_FollowsClassifier(t *testing.T) {
	f := newFixture(t, 0)
	f.det.SetHands([]detector.HandLandmarks{detector.OpenPalmLandmarks()})

	for id, label := range map[int]string{0: "Headache", 2: "Vomiting", 7: classifier.UnknownLabel} {
		f.clf.SetID(id)

		res, err := f.interp.Interpret(context.Background(), pngPayload(t))
		require.NoError(t, err)
		assert.Equal(t, id, res.ClassID)
		assert.Equal(t, label, res.Label)
	}
	assert.Len(t, f.history.Entries(), 3)
}

func TestInterpret_CollapsedHandStillClassified(t *testing.T) {
	f := newFixture(t, 0)
	f.det.SetHands([]detector.HandLandmarks{detector.CollapsedLandmarks(0.4, 0.6)})

	res, err := f.interp.Interpret(context.Background(), pngPayload(t))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRecognized, res.Outcome)

	calls := f.clf.Calls()
	require.Len(t, calls, 1)
	for _, v := range calls[0] {
		assert.Zero(t, v)
	}
}

func TestInterpret_NoHand(t *testing.T) {
	f := newFixture(t, 1)

	res, err := f.interp.Interpret(context.Background(), pngPayload(t))
	require.NoError(t, err)

	assert.Equal(t, OutcomeNoHand, res.Outcome)
	assert.Empty(t, res.Label)
	assert.Empty(t, f.clf.Calls(), "classifier must not run without a hand")

	entries := f.history.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, store.OutcomeNoHand, entries[0].Outcome)
	assert.Nil(t, entries[0].ClassID)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Interpretations.WithLabelValues("no_hand")))
}

func TestInterpret_ModelUnavailableBeforeDecode(t *testing.T) {
	det := detector.NewMockDetector()
	interp := New(Config{
		Detector: det,
		Model:    classifier.Unavailable(errors.New("missing model.tflite")),
		Logger:   zaptest.NewLogger(t),
	})

	assert.False(t, interp.ModelAvailable())

	_, err := interp.Interpret(context.Background(), "not-base64!!")
	assert.ErrorIs(t, err, classifier.ErrModelUnavailable)
	assert.NotErrorIs(t, err, imaging.ErrDecode)
	assert.Zero(t, det.Calls())

	// Sticky: the same answer for valid input.
	_, err = interp.Interpret(context.Background(), pngPayload(t))
	assert.ErrorIs(t, err, classifier.ErrModelUnavailable)
}

func TestInterpret_DecodeError(t *testing.T) {
	f := newFixture(t, 0)

	tests := []struct {
		name    string
		payload string
	}{
		{"invalid base64", "not-base64!!"},
		{"not an image", base64.StdEncoding.EncodeToString([]byte("hello world"))},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.interp.Interpret(context.Background(), tt.payload)
			assert.ErrorIs(t, err, imaging.ErrDecode)
		})
	}

	assert.Zero(t, f.det.Calls())
	assert.Empty(t, f.history.Entries(), "failures are not recorded")
}

func TestInterpret_DetectionError(t *testing.T) {
	f := newFixture(t, 0)
	f.det.SetError(errors.New("mediapipe crashed"))

	_, err := f.interp.Interpret(context.Background(), pngPayload(t))
	assert.ErrorIs(t, err, ErrDetection)
	assert.Contains(t, err.Error(), "mediapipe crashed")
	assert.Empty(t, f.clf.Calls())
}

func TestInterpret_NilDetector(t *testing.T) {
	interp := New(Config{Model: classifier.Available(classifier.NewMock(0))})

	_, err := interp.Interpret(context.Background(), pngPayload(t))
	assert.ErrorIs(t, err, ErrDetection)
}

func TestInterpret_PredictionError(t *testing.T) {
	f := newFixture(t, 0)
	f.det.SetHands([]detector.HandLandmarks{detector.OpenPalmLandmarks()})
	f.clf.SetError(errors.New("expected 63 features"))

	_, err := f.interp.Interpret(context.Background(), pngPayload(t))
	assert.ErrorIs(t, err, classifier.ErrPrediction)
	assert.Len(t, f.clf.Calls(), 1, "no retries")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Interpretations.WithLabelValues("prediction_error")))
}

func TestInterpret_HistoryFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, 2)
	f.det.SetHands([]detector.HandLandmarks{detector.OpenPalmLandmarks()})
	f.history.err = errors.New("disk full")

	res, err := f.interp.Interpret(context.Background(), pngPayload(t))
	require.NoError(t, err)
	assert.Equal(t, "Vomiting", res.Label)
}

func TestInterpret_CancelledContext(t *testing.T) {
	f := newFixture(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.interp.Interpret(ctx, pngPayload(t))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.det.Calls())
}

func TestNew_DefaultLabels(t *testing.T) {
	det := detector.NewMockDetector()
	det.SetHands([]detector.HandLandmarks{detector.OpenPalmLandmarks()})
	interp := New(Config{Detector: det, Model: classifier.Available(classifier.NewMock(0))})

	res, err := interp.Interpret(context.Background(), pngPayload(t))
	require.NoError(t, err)
	assert.Equal(t, "Headache", res.Label)
}
