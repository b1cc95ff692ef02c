package classifier

import "sync"

// Mock is a test Classifier that returns a fixed id or error and records
// every vector it was given.
type Mock struct {
	mu     sync.Mutex
	id     int
	err    error
	calls  [][]float64
	closed bool
}

// NewMock returns a Mock predicting id.
func NewMock(id int) *Mock {
	return &Mock{id: id}
}

// SetID changes the predicted id.
func (m *Mock) SetID(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = id
}

// SetError makes Predict fail with err.
func (m *Mock) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Predict records the vector and returns the configured result.
func (m *Mock) Predict(features []float64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	vec := make([]float64, len(features))
	copy(vec, features)
	m.calls = append(m.calls, vec)

	if m.err != nil {
		return 0, m.err
	}
	return m.id, nil
}

// Calls returns the recorded vectors.
func (m *Mock) Calls() [][]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]float64(nil), m.calls...)
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close marks the mock closed.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
