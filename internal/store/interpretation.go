package store

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Outcome is the result kind of a sign interpretation.
type Outcome string

const (
	// OutcomeRecognized means a hand was found and classified.
	OutcomeRecognized Outcome = "recognized"
	// OutcomeNoHand means the image was valid but contained no hand.
	OutcomeNoHand Outcome = "no_hand"
)

// Interpretation is a recorded sign interpretation.
type Interpretation struct {
	ID         string
	Outcome    Outcome
	Label      string
	ClassID    *int // nil when no hand was detected
	Handedness string
	CreatedAt  time.Time
}

// InterpretationRepository provides access to recorded interpretations.
type InterpretationRepository struct {
	db *sql.DB
}

// Interpretations returns the interpretation repository for this store.
func (s *Store) Interpretations() *InterpretationRepository {
	return &InterpretationRepository{db: s.db}
}

// Create inserts a new interpretation.
func (r *InterpretationRepository) Create(i *Interpretation) error {
	if i.CreatedAt.IsZero() {
		i.CreatedAt = time.Now()
	}

	var classID sql.NullInt64
	if i.ClassID != nil {
		classID = sql.NullInt64{Int64: int64(*i.ClassID), Valid: true}
	}

	_, err := r.db.Exec(
		`INSERT INTO interpretations (id, outcome, label, class_id, handedness, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		i.ID, string(i.Outcome), i.Label, classID, i.Handedness, i.CreatedAt,
	)
	return err
}

// GetByID retrieves an interpretation by its ID.
func (r *InterpretationRepository) GetByID(id string) (*Interpretation, error) {
	row := r.db.QueryRow(
		`SELECT id, outcome, label, class_id, handedness, created_at
		 FROM interpretations WHERE id = ?`,
		id,
	)

	i, err := scanInterpretation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return i, nil
}

// ListRecent returns up to limit interpretations, newest first.
func (r *InterpretationRepository) ListRecent(limit int) ([]*Interpretation, error) {
	rows, err := r.db.Query(
		`SELECT id, outcome, label, class_id, handedness, created_at
		 FROM interpretations ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Interpretation
	for rows.Next() {
		i, err := scanInterpretation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// CountByOutcome returns how many interpretations have the given outcome.
func (r *InterpretationRepository) CountByOutcome(o Outcome) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM interpretations WHERE outcome = ?`, string(o)).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInterpretation(s scanner) (*Interpretation, error) {
	i := &Interpretation{}
	var outcome string
	var classID sql.NullInt64

	if err := s.Scan(&i.ID, &outcome, &i.Label, &classID, &i.Handedness, &i.CreatedAt); err != nil {
		return nil, err
	}

	i.Outcome = Outcome(outcome)
	if classID.Valid {
		id := int(classID.Int64)
		i.ClassID = &id
	}
	return i, nil
}
