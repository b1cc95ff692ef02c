// Package features turns detected hand landmarks into classifier input.
package features

import (
	"gonum.org/v1/gonum/floats"

	"github.com/ayusman/mudra/internal/detector"
)

// Dimension is the length of a feature vector built from a complete hand.
const Dimension = 2 * detector.NumLandmarks

// Normalize flattens the landmarks into an interleaved x,y vector with each
// coordinate translated by the minimum x (resp. y) over the whole set.
// Z is ignored. The result always has 2*len(points) entries and point order
// is preserved; an empty input yields an empty vector.
func Normalize(points []detector.Point3D) []float64 {
	if len(points) == 0 {
		return []float64{}
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.X
		ys[i] = p.Y
	}

	minX := floats.Min(xs)
	minY := floats.Min(ys)

	out := make([]float64, 0, 2*len(points))
	for i := range points {
		out = append(out, xs[i]-minX, ys[i]-minY)
	}
	return out
}

// FromHand is Normalize applied to a hand's points.
func FromHand(hand detector.HandLandmarks) []float64 {
	return Normalize(hand.Points)
}
