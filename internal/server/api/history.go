package api

import (
	"net/http"
	"strconv"

	"github.com/ayusman/mudra/internal/store"
)

// History list limits.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

type interpretationResponse struct {
	ID         string `json:"id"`
	Outcome    string `json:"outcome"`
	Label      string `json:"label,omitempty"`
	ClassID    *int   `json:"class_id,omitempty"`
	Handedness string `json:"handedness,omitempty"`
	CreatedAt  string `json:"created_at"`
}

type listInterpretationsResponse struct {
	Interpretations []interpretationResponse `json:"interpretations"`
}

type translationResponse struct {
	ID             string `json:"id"`
	SourceText     string `json:"source_text"`
	TranslatedText string `json:"translated_text"`
	AudioURL       string `json:"audio_url,omitempty"`
	CreatedAt      string `json:"created_at"`
}

type listTranslationsResponse struct {
	Translations []translationResponse `json:"translations"`
}

const timeFormat = "2006-01-02T15:04:05Z07:00"

// HistoryHandler serves the recorded interpretations and translations.
type HistoryHandler struct {
	store *store.Store
}

func NewHistoryHandler(s *store.Store) *HistoryHandler {
	return &HistoryHandler{store: s}
}

// Interpretations handles GET /api/interpretations.
func (h *HistoryHandler) Interpretations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	list, err := h.store.Interpretations().ListRecent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list interpretations")
		return
	}

	response := listInterpretationsResponse{
		Interpretations: make([]interpretationResponse, 0, len(list)),
	}
	for _, i := range list {
		response.Interpretations = append(response.Interpretations, interpretationResponse{
			ID:         i.ID,
			Outcome:    string(i.Outcome),
			Label:      i.Label,
			ClassID:    i.ClassID,
			Handedness: i.Handedness,
			CreatedAt:  i.CreatedAt.Format(timeFormat),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// Translations handles GET /api/translations.
func (h *HistoryHandler) Translations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	list, err := h.store.Translations().ListRecent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list translations")
		return
	}

	response := listTranslationsResponse{
		Translations: make([]translationResponse, 0, len(list)),
	}
	for _, t := range list {
		tr := translationResponse{
			ID:             t.ID,
			SourceText:     t.SourceText,
			TranslatedText: t.TranslatedText,
			CreatedAt:      t.CreatedAt.Format(timeFormat),
		}
		if t.AudioFile != "" {
			tr.AudioURL = StaticPrefix + t.AudioFile
		}
		response.Translations = append(response.Translations, tr)
	}

	writeJSON(w, http.StatusOK, response)
}

// parseLimit reads ?limit=, writing a 400 and returning false when invalid.
// Values above MaxHistoryLimit are clamped.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return DefaultHistoryLimit, true
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return limit, true
}
