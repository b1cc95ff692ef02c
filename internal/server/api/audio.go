package api

import (
	"errors"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ayusman/mudra/internal/translate"
)

// AudioHandler serves GET /static/{file} from the audio store.
type AudioHandler struct {
	audio *translate.AudioStore
}

func NewAudioHandler(audio *translate.AudioStore) *AudioHandler {
	return &AudioHandler{audio: audio}
}

func (h *AudioHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, StaticPrefix)
	f, err := h.audio.Open(name)
	if err != nil {
		if errors.Is(err, translate.ErrInvalidName) || errors.Is(err, fs.ErrNotExist) {
			writeError(w, http.StatusNotFound, "File not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to open file")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	if strings.EqualFold(filepath.Ext(name), ".mp3") {
		w.Header().Set("Content-Type", "audio/mpeg")
	}
	http.ServeContent(w, r, name, info.ModTime(), f)
}
