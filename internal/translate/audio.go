package translate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidName is returned for audio file names that could escape the
// audio directory.
var ErrInvalidName = errors.New("invalid audio file name")

// AudioStore keeps synthesized audio under one directory.
type AudioStore struct {
	dir string
}

func NewAudioStore(dir string) *AudioStore {
	return &AudioStore{dir: dir}
}

// Dir returns the directory audio is written to.
func (s *AudioStore) Dir() string {
	return s.dir
}

// Save writes data as audio_<uuid>.mp3, creating the directory on demand,
// and returns the file name.
func (s *AudioStore) Save(data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create audio dir: %w", err)
	}

	name := fmt.Sprintf("audio_%s.mp3", uuid.NewString())
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write audio: %w", err)
	}
	return name, nil
}

// Open opens a stored file by bare name. Names containing a path separator
// or dot segments are rejected with ErrInvalidName.
func (s *AudioStore) Open(name string) (*os.File, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return nil, ErrInvalidName
	}
	return os.Open(filepath.Join(s.dir, name))
}
