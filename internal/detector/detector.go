package detector

import (
	"errors"
	"fmt"
	"time"

	"gocv.io/x/gocv"
)

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a decoded image and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect.
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// ScriptPath points at mediapipe_service.py. Empty means search the
	// usual locations.
	ScriptPath string

	// PythonPath is the interpreter used to run the script. Empty means
	// prefer a virtual environment and fall back to python3.
	PythonPath string

	// IdleTimeout stops the helper process after this long without use.
	IdleTimeout time.Duration
}

// DefaultConfig returns a Config tuned for single still images.
func DefaultConfig() Config {
	return Config{
		MaxHands:      1,
		MinConfidence: 0.3,
		IdleTimeout:   30 * time.Second,
	}
}

// ErrUnavailable is returned by a detector that could not be set up.
var ErrUnavailable = errors.New("hand detector unavailable")

type unavailable struct {
	cause error
}

// Unavailable returns a Detector whose Detect always fails with
// ErrUnavailable wrapping cause.
func Unavailable(cause error) Detector {
	return unavailable{cause: cause}
}

func (u unavailable) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, u.cause)
}

func (u unavailable) Close() error { return nil }
