package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/features"
)

// Sample is one labelled hand recorded for training.
type Sample struct {
	Class     int                `json:"class"`
	Landmarks []detector.Point3D `json:"landmarks"`
}

// SampleSet is the on-disk training file.
type SampleSet struct {
	Samples []Sample `json:"samples"`
}

// LoadSamples reads a JSON SampleSet.
func LoadSamples(path string) ([]Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read samples: %w", err)
	}

	var set SampleSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse samples %s: %w", path, err)
	}
	return set.Samples, nil
}

// Train normalizes every sample and averages the feature vectors per class
// into a CentroidModel. All samples must produce vectors of one length.
func Train(samples []Sample) (CentroidModel, error) {
	if len(samples) == 0 {
		return CentroidModel{}, errors.New("no samples provided")
	}

	sums := make(map[int][]float64)
	counts := make(map[int]int)
	dimension := -1

	for i, s := range samples {
		if s.Class < 0 {
			return CentroidModel{}, fmt.Errorf("sample %d has negative class %d", i, s.Class)
		}
		if len(s.Landmarks) == 0 {
			return CentroidModel{}, fmt.Errorf("sample %d has no landmarks", i)
		}

		vec := features.Normalize(s.Landmarks)
		if dimension < 0 {
			dimension = len(vec)
		} else if len(vec) != dimension {
			return CentroidModel{}, fmt.Errorf("sample %d has %d landmarks, expected %d",
				i, len(s.Landmarks), dimension/2)
		}

		sum, ok := sums[s.Class]
		if !ok {
			sum = make([]float64, dimension)
			sums[s.Class] = sum
		}
		floats.Add(sum, vec)
		counts[s.Class]++
	}

	ids := make([]int, 0, len(sums))
	for id := range sums {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	model := CentroidModel{Dimension: dimension}
	for _, id := range ids {
		centroid := sums[id]
		floats.Scale(1/float64(counts[id]), centroid)
		model.Classes = append(model.Classes, CentroidClass{
			ID:       id,
			Samples:  counts[id],
			Centroid: centroid,
		})
	}

	return model, nil
}
