package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Interpretations table - one row per sign interpretation request that
		// reached the detector
		`CREATE TABLE IF NOT EXISTS interpretations (
			id TEXT PRIMARY KEY,
			outcome TEXT NOT NULL CHECK(outcome IN ('recognized', 'no_hand')),
			label TEXT NOT NULL DEFAULT '',
			class_id INTEGER,
			handedness TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Translations table - translated text and the synthesized audio file
		`CREATE TABLE IF NOT EXISTS translations (
			id TEXT PRIMARY KEY,
			source_text TEXT NOT NULL,
			translated_text TEXT NOT NULL,
			audio_file TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_interpretations_created_at ON interpretations(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_translations_created_at ON translations(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
