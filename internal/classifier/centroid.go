package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// CentroidModel is the JSON artifact for the Centroid classifier.
type CentroidModel struct {
	Dimension int             `json:"dimension"`
	Classes   []CentroidClass `json:"classes"`
}

// CentroidClass is the averaged feature vector for one class id.
type CentroidClass struct {
	ID       int       `json:"id"`
	Samples  int       `json:"samples,omitempty"`
	Centroid []float64 `json:"centroid"`
}

// Match is a class ranked by its distance to an input vector.
type Match struct {
	ClassID  int
	Distance float64 // Euclidean distance between input and centroid
	Score    float64 // 1 / (1 + Distance), higher is better
}

// Centroid is a nearest-centroid classifier.
type Centroid struct {
	model CentroidModel
}

// NewCentroid validates a model and wraps it as a Classifier.
func NewCentroid(model CentroidModel) (*Centroid, error) {
	if model.Dimension <= 0 {
		return nil, fmt.Errorf("centroid model: invalid dimension %d", model.Dimension)
	}
	if len(model.Classes) == 0 {
		return nil, errors.New("centroid model: no classes")
	}

	seen := make(map[int]bool, len(model.Classes))
	for _, c := range model.Classes {
		if c.ID < 0 {
			return nil, fmt.Errorf("centroid model: negative class id %d", c.ID)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("centroid model: duplicate class id %d", c.ID)
		}
		seen[c.ID] = true
		if len(c.Centroid) != model.Dimension {
			return nil, fmt.Errorf("centroid model: class %d has %d values, expected %d",
				c.ID, len(c.Centroid), model.Dimension)
		}
	}

	return &Centroid{model: model}, nil
}

// LoadCentroid reads a JSON artifact from path.
func LoadCentroid(path string) (*Centroid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read centroid model: %w", err)
	}

	var model CentroidModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("parse centroid model %s: %w", path, err)
	}

	return NewCentroid(model)
}

// SaveCentroid writes a model as indented JSON.
func SaveCentroid(path string, model CentroidModel) error {
	data, err := json.MarshalIndent(model, "", "  ")
	if err != nil {
		return fmt.Errorf("encode centroid model: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write centroid model: %w", err)
	}
	return nil
}

// Dimension returns the expected feature vector length.
func (c *Centroid) Dimension() int {
	return c.model.Dimension
}

// Rank returns every class sorted by distance, nearest first. Ties keep the
// artifact order.
func (c *Centroid) Rank(features []float64) ([]Match, error) {
	if len(features) != c.model.Dimension {
		return nil, fmt.Errorf("feature vector has %d values, model expects %d",
			len(features), c.model.Dimension)
	}

	matches := make([]Match, 0, len(c.model.Classes))
	for _, class := range c.model.Classes {
		distance := floats.Distance(features, class.Centroid, 2)
		matches = append(matches, Match{
			ClassID:  class.ID,
			Distance: distance,
			Score:    1.0 / (1.0 + distance),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	return matches, nil
}

// Predict returns the id of the nearest centroid.
func (c *Centroid) Predict(features []float64) (int, error) {
	matches, err := c.Rank(features)
	if err != nil {
		return 0, err
	}
	return matches[0].ClassID, nil
}

// Close is a no-op.
func (c *Centroid) Close() error {
	return nil
}
