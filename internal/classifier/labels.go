package classifier

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// UnknownLabel is returned for class ids missing from the table.
const UnknownLabel = "Unknown"

// LabelTable maps class ids to display strings. It is read-only once built
// and safe for concurrent use.
type LabelTable struct {
	labels map[int]string
}

// NewLabelTable copies the given mapping. Negative ids are rejected.
func NewLabelTable(labels map[int]string) (*LabelTable, error) {
	copied := make(map[int]string, len(labels))
	for id, name := range labels {
		if id < 0 {
			return nil, fmt.Errorf("label %q has negative class id %d", name, id)
		}
		copied[id] = name
	}
	return &LabelTable{labels: copied}, nil
}

// DefaultLabels returns the built-in table of symptom signs.
func DefaultLabels() *LabelTable {
	return &LabelTable{labels: map[int]string{
		0: "Headache",
		1: "Chest pain",
		2: "Vomiting",
	}}
}

// Lookup returns the label for id, or UnknownLabel.
func (t *LabelTable) Lookup(id int) string {
	if t == nil {
		return UnknownLabel
	}
	if name, ok := t.labels[id]; ok {
		return name
	}
	return UnknownLabel
}

// Len returns the number of labels.
func (t *LabelTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.labels)
}

// IDs returns the class ids in ascending order.
func (t *LabelTable) IDs() []int {
	if t == nil {
		return nil
	}
	ids := make([]int, 0, len(t.labels))
	for id := range t.labels {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

type labelFile struct {
	Labels map[int]string `yaml:"labels"`
}

// LoadLabels reads a YAML file of the form
//
//	labels:
//	  0: Headache
//	  1: Chest pain
func LoadLabels(path string) (*LabelTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}

	var file labelFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse labels %s: %w", path, err)
	}
	if len(file.Labels) == 0 {
		return nil, fmt.Errorf("labels %s: no labels defined", path)
	}

	return NewLabelTable(file.Labels)
}
