package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/classifier"
	"github.com/ayusman/mudra/internal/imaging"
	"github.com/ayusman/mudra/internal/sign"
)

// Interpreter is the sign pipeline the handlers drive. *sign.Interpreter
// satisfies it.
type Interpreter interface {
	ModelAvailable() bool
	Interpret(ctx context.Context, payload string) (sign.Result, error)
}

type signRequest struct {
	Image *string `json:"image"`
}

type signResponse struct {
	Status         string `json:"status"`
	PredictedLabel string `json:"predicted_label,omitempty"`
	ClassID        *int   `json:"class_id,omitempty"`
	Message        string `json:"message,omitempty"`
}

// Error messages returned by the sign endpoints.
const (
	MsgNoImage          = "No image provided"
	MsgNoHand           = "No hand detected"
	MsgModelUnavailable = "Sign language model not loaded"
)

// SignHandler serves POST /sign_interpret.
type SignHandler struct {
	interp Interpreter
	logger *zap.Logger
}

func NewSignHandler(interp Interpreter, logger *zap.Logger) *SignHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SignHandler{interp: interp, logger: logger}
}

func (h *SignHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// An unloaded model is reported before the request is inspected.
	if !h.interp.ModelAvailable() {
		status, body := ModelUnavailableBody()
		writeJSON(w, status, body)
		return
	}

	var req signRequest
	if err := decodeJSON(r, &req); err != nil {
		if errors.Is(err, errEmptyBody) {
			writeError(w, http.StatusBadRequest, MsgNoImage)
			return
		}
		status, msg := bodyStatus(err)
		writeError(w, status, msg)
		return
	}
	if req.Image == nil || *req.Image == "" {
		writeError(w, http.StatusBadRequest, MsgNoImage)
		return
	}

	res, err := h.interp.Interpret(r.Context(), *req.Image)
	status, body := InterpretBody(res, err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("sign interpretation failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, body)
}

// InterpretBody renders an interpretation outcome as the status and JSON
// body of /sign_interpret.
func InterpretBody(res sign.Result, err error) (int, interface{}) {
	if err != nil {
		status, msg := interpretError(err)
		return status, errorResponse{Error: msg}
	}

	if res.Outcome == sign.OutcomeNoHand {
		return http.StatusOK, signResponse{Status: string(sign.OutcomeNoHand), Message: MsgNoHand}
	}

	classID := res.ClassID
	return http.StatusOK, signResponse{
		Status:         string(sign.OutcomeRecognized),
		PredictedLabel: res.Label,
		ClassID:        &classID,
	}
}

// ModelUnavailableBody is the response for requests rejected because the
// classifier never loaded. Such requests never reach the interpreter, so they
// show up only in the per-route request counter.
func ModelUnavailableBody() (int, interface{}) {
	return InterpretBody(sign.Result{}, classifier.ErrModelUnavailable)
}

func interpretError(err error) (int, string) {
	switch {
	case errors.Is(err, classifier.ErrModelUnavailable):
		return http.StatusServiceUnavailable, MsgModelUnavailable
	case errors.Is(err, imaging.ErrDecode):
		return http.StatusBadRequest, fmt.Sprintf("Failed to decode image: %v", err)
	case errors.Is(err, classifier.ErrPrediction):
		return http.StatusInternalServerError, fmt.Sprintf("Prediction failed: %v", err)
	case errors.Is(err, sign.ErrDetection):
		return http.StatusInternalServerError, "Hand detection failed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "Request cancelled"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
