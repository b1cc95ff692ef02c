package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ayusman/mudra/internal/classifier"
	"github.com/ayusman/mudra/internal/imaging"
	"github.com/ayusman/mudra/internal/sign"
)

type fakeInterpreter struct {
	available bool
	result    sign.Result
	err       error
	payloads  []string
}

func (f *fakeInterpreter) ModelAvailable() bool { return f.available }

func (f *fakeInterpreter) Interpret(ctx context.Context, payload string) (sign.Result, error) {
	f.payloads = append(f.payloads, payload)
	return f.result, f.err
}

func postSign(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/sign_interpret", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	return rec, response
}

func TestSignHandler_Recognized(t *testing.T) {
	interp := &fakeInterpreter{
		available: true,
		result:    sign.Result{Outcome: sign.OutcomeRecognized, Label: "Chest pain", ClassID: 1},
	}
	h := NewSignHandler(interp, zaptest.NewLogger(t))

	rec, body := postSign(t, h, `{"image": "data:image/png;base64,AAAA"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "recognized", body["status"])
	assert.Equal(t, "Chest pain", body["predicted_label"])
	assert.Equal(t, 1.0, body["class_id"])
	assert.Equal(t, []string{"data:image/png;base64,AAAA"}, interp.payloads)
}

func TestSignHandler_ClassZeroIsSerialized(t *testing.T) {
	interp := &fakeInterpreter{
		available: true,
		result:    sign.Result{Outcome: sign.OutcomeRecognized, Label: "Headache", ClassID: 0},
	}

	_, body := postSign(t, NewSignHandler(interp, nil), `{"image": "AAAA"}`)
	assert.Contains(t, body, "class_id")
	assert.Equal(t, 0.0, body["class_id"])
}

func TestSignHandler_NoHand(t *testing.T) {
	interp := &fakeInterpreter{available: true, result: sign.Result{Outcome: sign.OutcomeNoHand}}

	rec, body := postSign(t, NewSignHandler(interp, nil), `{"image": "AAAA"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no_hand", body["status"])
	assert.Equal(t, MsgNoHand, body["message"])
	assert.NotContains(t, body, "predicted_label")
	assert.NotContains(t, body, "error")
}

func TestSignHandler_ModelUnavailableFirst(t *testing.T) {
	interp := &fakeInterpreter{available: false}
	h := NewSignHandler(interp, nil)

	for _, body := range []string{``, `{}`, `not json`, `{"image": "not-base64!!"}`} {
		rec, resp := postSign(t, h, body)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "body %q", body)
		assert.Equal(t, MsgModelUnavailable, resp["error"])
	}
	assert.Empty(t, interp.payloads)
}

func TestModelUnavailableBody(t *testing.T) {
	status, body := ModelUnavailableBody()
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, errorResponse{Error: MsgModelUnavailable}, body)
}

func TestSignHandler_BadRequests(t *testing.T) {
	interp := &fakeInterpreter{available: true}
	h := NewSignHandler(interp, nil)

	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"empty body", ``, MsgNoImage},
		{"missing image", `{"text": "hi"}`, MsgNoImage},
		{"empty image", `{"image": ""}`, MsgNoImage},
		{"invalid json", `{"image":`, "Invalid JSON body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := postSign(t, h, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.msg, body["error"])
		})
	}
	assert.Empty(t, interp.payloads)
}

func TestSignHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		prefix string
	}{
		{"decode", fmt.Errorf("%w: illegal base64 data", imaging.ErrDecode), http.StatusBadRequest, "Failed to decode image"},
		{"prediction", fmt.Errorf("%w: expected 42 features", classifier.ErrPrediction), http.StatusInternalServerError, "Prediction failed"},
		{"detection", fmt.Errorf("%w: broken pipe", sign.ErrDetection), http.StatusInternalServerError, "Hand detection failed"},
		{"model", fmt.Errorf("%w: gone", classifier.ErrModelUnavailable), http.StatusServiceUnavailable, MsgModelUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			interp := &fakeInterpreter{available: true, err: tt.err}
			rec, body := postSign(t, NewSignHandler(interp, zaptest.NewLogger(t)), `{"image": "AAAA"}`)

			assert.Equal(t, tt.status, rec.Code)
			assert.True(t, strings.HasPrefix(body["error"].(string), tt.prefix), "error = %v", body["error"])
		})
	}
}

func TestSignHandler_MethodNotAllowed(t *testing.T) {
	h := NewSignHandler(&fakeInterpreter{available: true}, nil)

	req := httptest.NewRequest(http.MethodGet, "/sign_interpret", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSignHandler_BodyTooLarge(t *testing.T) {
	h := NewSignHandler(&fakeInterpreter{available: true}, nil)

	payload := `{"image": "` + strings.Repeat("A", 1024) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/sign_interpret", bytes.NewBufferString(payload))
	rec := httptest.NewRecorder()
	req.Body = http.MaxBytesReader(rec, req.Body, 64)
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
