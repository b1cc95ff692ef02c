package classifier

import "fmt"

// Prediction is the classifier output resolved through the label table.
type Prediction struct {
	ClassID int
	Label   string
}

// Dispatcher feeds feature vectors to a classifier and names the result.
type Dispatcher struct {
	classifier Classifier
	labels     *LabelTable
}

// NewDispatcher creates a Dispatcher. A nil label table behaves as empty.
func NewDispatcher(c Classifier, labels *LabelTable) *Dispatcher {
	return &Dispatcher{classifier: c, labels: labels}
}

// Classify invokes the classifier exactly once. Ids missing from the label
// table resolve to UnknownLabel; classifier failures wrap ErrPrediction.
func (d *Dispatcher) Classify(features []float64) (p Prediction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: classifier panic: %v", ErrPrediction, r)
		}
	}()

	id, err := d.classifier.Predict(features)
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: %v", ErrPrediction, err)
	}

	return Prediction{ClassID: id, Label: d.labels.Lookup(id)}, nil
}
