package store

import (
	"database/sql"
	"errors"
	"time"
)

// Translation is a recorded text translation.
type Translation struct {
	ID             string
	SourceText     string
	TranslatedText string
	AudioFile      string
	CreatedAt      time.Time
}

// TranslationRepository provides access to recorded translations.
type TranslationRepository struct {
	db *sql.DB
}

// Translations returns the translation repository for this store.
func (s *Store) Translations() *TranslationRepository {
	return &TranslationRepository{db: s.db}
}

// Create inserts a new translation.
func (r *TranslationRepository) Create(t *Translation) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO translations (id, source_text, translated_text, audio_file, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.SourceText, t.TranslatedText, t.AudioFile, t.CreatedAt,
	)
	return err
}

// GetByID retrieves a translation by its ID.
func (r *TranslationRepository) GetByID(id string) (*Translation, error) {
	t := &Translation{}

	err := r.db.QueryRow(
		`SELECT id, source_text, translated_text, audio_file, created_at
		 FROM translations WHERE id = ?`,
		id,
	).Scan(&t.ID, &t.SourceText, &t.TranslatedText, &t.AudioFile, &t.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return t, nil
}

// ListRecent returns up to limit translations, newest first.
func (r *TranslationRepository) ListRecent(limit int) ([]*Translation, error) {
	rows, err := r.db.Query(
		`SELECT id, source_text, translated_text, audio_file, created_at
		 FROM translations ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Translation
	for rows.Next() {
		t := &Translation{}
		if err := rows.Scan(&t.ID, &t.SourceText, &t.TranslatedText, &t.AudioFile, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}
