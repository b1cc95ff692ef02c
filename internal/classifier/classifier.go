// Package classifier maps feature vectors to sign labels using a model loaded
// once at startup.
package classifier

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ayusman/mudra/internal/features"
)

var (
	// ErrPrediction is returned when the classifier fails on a feature vector,
	// for example because its length does not match what the model expects.
	ErrPrediction = errors.New("prediction failed")

	// ErrModelUnavailable is returned for every request when the classifier
	// could not be loaded at startup.
	ErrModelUnavailable = errors.New("sign language model not loaded")
)

// Classifier predicts an integer class id for one feature vector.
type Classifier interface {
	Predict(features []float64) (int, error)
	Close() error
}

// Backend kinds accepted in Config.Kind.
const (
	KindTFLite   = "tflite"
	KindCentroid = "centroid"
)

// Config selects and locates the serialized classifier artifact.
type Config struct {
	// Kind is KindTFLite or KindCentroid. Empty means infer from the file
	// extension (.tflite or .json).
	Kind string

	// Path is the artifact location.
	Path string

	// Threads is the interpreter thread count for TFLite models.
	Threads int
}

// Model is the outcome of loading the classifier at startup. A Model whose
// load failed stays unavailable for the lifetime of the process and every
// lookup reports ErrModelUnavailable.
type Model struct {
	classifier Classifier
	err        error
}

// Available wraps a loaded classifier.
func Available(c Classifier) Model {
	if c == nil {
		return Unavailable(errors.New("nil classifier"))
	}
	return Model{classifier: c}
}

// Unavailable records why no classifier could be loaded.
func Unavailable(cause error) Model {
	if cause == nil {
		cause = errors.New("unknown cause")
	}
	return Model{err: cause}
}

// Available reports whether a classifier was loaded.
func (m Model) Available() bool {
	return m.classifier != nil
}

// Err returns the load failure, or nil when the model is available.
func (m Model) Err() error {
	return m.err
}

// Classifier returns the loaded classifier or an error wrapping
// ErrModelUnavailable.
func (m Model) Classifier() (Classifier, error) {
	if m.classifier == nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, m.err)
	}
	return m.classifier, nil
}

// Close releases the classifier if one was loaded.
func (m Model) Close() error {
	if m.classifier == nil {
		return nil
	}
	return m.classifier.Close()
}

// Load reads the configured artifact. It never fails outright: errors are
// captured in an unavailable Model so the caller can keep serving other
// endpoints.
func Load(cfg Config) Model {
	if cfg.Path == "" {
		return Unavailable(errors.New("no classifier artifact configured"))
	}

	kind := strings.ToLower(cfg.Kind)
	if kind == "" {
		switch strings.ToLower(filepath.Ext(cfg.Path)) {
		case ".tflite":
			kind = KindTFLite
		case ".json":
			kind = KindCentroid
		default:
			return Unavailable(fmt.Errorf("cannot infer classifier kind from %q", cfg.Path))
		}
	}

	switch kind {
	case KindTFLite:
		c, err := LoadTFLite(cfg.Path, cfg.Threads)
		if err != nil {
			return Unavailable(err)
		}
		if err := checkInputSize(c.InputSize()); err != nil {
			c.Close()
			return Unavailable(err)
		}
		return Available(c)
	case KindCentroid:
		c, err := LoadCentroid(cfg.Path)
		if err != nil {
			return Unavailable(err)
		}
		return Available(c)
	default:
		return Unavailable(fmt.Errorf("unknown classifier kind %q", cfg.Kind))
	}
}

// checkInputSize rejects models whose input does not take one feature vector
// per hand.
func checkInputSize(n int) error {
	if n != features.Dimension {
		return fmt.Errorf("model input has %d values, hand features have %d", n, features.Dimension)
	}
	return nil
}
