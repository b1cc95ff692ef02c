package api

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/translate"
)

// Translator is the translation service the handler drives.
// *translate.Service satisfies it, including a nil one.
type Translator interface {
	Enabled() bool
	Translate(ctx context.Context, text string) (translate.Translation, error)
}

type translateRequest struct {
	Text string `json:"text"`
}

type translateResponse struct {
	TranslatedText string `json:"translated_text"`
	AudioURL       string `json:"audio_url"`
}

// StaticPrefix is the URL prefix generated audio is served under.
const StaticPrefix = "/static/"

// TranslateHandler serves POST /translate.
type TranslateHandler struct {
	svc    Translator
	logger *zap.Logger
}

func NewTranslateHandler(svc Translator, logger *zap.Logger) *TranslateHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranslateHandler{svc: svc, logger: logger}
}

func (h *TranslateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.svc == nil || !h.svc.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "Translation service not configured")
		return
	}

	var req translateRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		status, msg := bodyStatus(err)
		writeError(w, status, msg)
		return
	}

	out, err := h.svc.Translate(r.Context(), req.Text)
	switch {
	case err == nil:
	case errors.Is(err, translate.ErrEmptyText):
		writeError(w, http.StatusBadRequest, "No text provided")
		return
	case errors.Is(err, translate.ErrUnavailable):
		h.logger.Warn("translation unavailable", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "Translation service unavailable")
		return
	default:
		h.logger.Error("translation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Translation failed")
		return
	}

	writeJSON(w, http.StatusOK, translateResponse{
		TranslatedText: out.Text,
		AudioURL:       StaticPrefix + out.AudioFile,
	})
}
