// Package sign runs the sign interpretation pipeline: decode the image,
// detect the first hand, normalize its landmarks and classify them.
package sign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/classifier"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/features"
	"github.com/ayusman/mudra/internal/imaging"
	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/store"
)

// ErrDetection is returned when the hand detector fails on a decoded image.
var ErrDetection = errors.New("hand detection failed")

// Outcome is the kind of a successful interpretation.
type Outcome string

const (
	OutcomeRecognized Outcome = "recognized"
	// OutcomeNoHand is benign: the image decoded but held no hand.
	OutcomeNoHand Outcome = "no_hand"
)

// Result is a successful interpretation. Label, ClassID, Handedness and
// Features are only set for OutcomeRecognized.
type Result struct {
	Outcome    Outcome
	Label      string
	ClassID    int
	Handedness string
	Features   []float64
}

// History records interpretations. *store.InterpretationRepository
// satisfies it.
type History interface {
	Create(i *store.Interpretation) error
}

// Config wires an Interpreter to its collaborators. History, Metrics and
// Logger are optional.
type Config struct {
	Detector detector.Detector
	Model    classifier.Model
	Labels   *classifier.LabelTable
	History  History
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

// Interpreter turns base64 images into sign labels. It is safe for
// concurrent use when its detector and classifier are.
type Interpreter struct {
	detector detector.Detector
	model    classifier.Model
	labels   *classifier.LabelTable
	history  History
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// New creates an Interpreter. A nil label table falls back to the defaults.
func New(cfg Config) *Interpreter {
	labels := cfg.Labels
	if labels == nil {
		labels = classifier.DefaultLabels()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Interpreter{
		detector: cfg.Detector,
		model:    cfg.Model,
		labels:   labels,
		history:  cfg.History,
		metrics:  cfg.Metrics,
		logger:   logger,
	}
}

// ModelAvailable reports whether the classifier loaded at startup.
func (in *Interpreter) ModelAvailable() bool {
	return in.model.Available()
}

// Interpret runs the pipeline on one payload. Model availability is checked
// before the payload is looked at, so an unloaded model is reported even for
// malformed input.
func (in *Interpreter) Interpret(ctx context.Context, payload string) (Result, error) {
	start := time.Now()

	res, err := in.interpret(ctx, payload)
	in.metrics.ObserveInterpretation(metricOutcome(res, err), time.Since(start))

	if err != nil {
		in.logger.Debug("interpretation failed", zap.Error(err))
		return Result{}, err
	}

	in.record(res)
	return res, nil
}

func (in *Interpreter) interpret(ctx context.Context, payload string) (Result, error) {
	c, err := in.model.Classifier()
	if err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	mat, err := imaging.Decode(payload)
	if err != nil {
		return Result{}, err
	}
	defer mat.Close()

	if in.detector == nil {
		return Result{}, fmt.Errorf("%w: no detector configured", ErrDetection)
	}
	hands, err := in.detector.Detect(&mat)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrDetection, err)
	}
	if len(hands) == 0 {
		return Result{Outcome: OutcomeNoHand}, nil
	}

	hand := hands[0]
	vec := features.FromHand(hand)

	pred, err := classifier.NewDispatcher(c, in.labels).Classify(vec)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Outcome:    OutcomeRecognized,
		Label:      pred.Label,
		ClassID:    pred.ClassID,
		Handedness: hand.Handedness,
		Features:   vec,
	}, nil
}

// record writes res to history. Failures are logged, never returned.
func (in *Interpreter) record(res Result) {
	if in.history == nil {
		return
	}

	entry := &store.Interpretation{
		ID:      uuid.NewString(),
		Outcome: store.Outcome(res.Outcome),
	}
	if res.Outcome == OutcomeRecognized {
		classID := res.ClassID
		entry.ClassID = &classID
		entry.Label = res.Label
		entry.Handedness = res.Handedness
	}

	if err := in.history.Create(entry); err != nil {
		in.logger.Warn("failed to record interpretation", zap.Error(err))
	}
}

func metricOutcome(res Result, err error) string {
	switch {
	case err == nil:
		return string(res.Outcome)
	case errors.Is(err, classifier.ErrModelUnavailable):
		return "model_unavailable"
	case errors.Is(err, imaging.ErrDecode):
		return "decode_error"
	case errors.Is(err, ErrDetection):
		return "detection_error"
	case errors.Is(err, classifier.ErrPrediction):
		return "prediction_error"
	default:
		return "error"
	}
}
