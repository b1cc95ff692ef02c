package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/classifier"
	"github.com/ayusman/mudra/internal/imaging"
	"github.com/ayusman/mudra/internal/sign"
)

func dialWS(t *testing.T, srv *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sign_interpret/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readReply(t *testing.T, conn *websocket.Conn) (int, map[string]interface{}) {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var reply struct {
		Code int                    `json:"code"`
		Body map[string]interface{} `json:"body"`
	}
	require.NoError(t, conn.ReadJSON(&reply))
	return reply.Code, reply.Body
}

func TestInterpretHandler_Stream(t *testing.T) {
	interp := &stubInterpreter{
		available: true,
		result:    sign.Result{Outcome: sign.OutcomeRecognized, Label: "Headache", ClassID: 0},
	}
	srv := httptest.NewServer(New(Config{Interpreter: interp}))
	defer srv.Close()

	conn := dialWS(t, srv, nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("AAAA")))
		code, body := readReply(t, conn)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "recognized", body["status"])
		assert.Equal(t, "Headache", body["predicted_label"])
	}
}

func TestInterpretHandler_Errors(t *testing.T) {
	t.Run("empty message", func(t *testing.T) {
		srv := httptest.NewServer(New(Config{Interpreter: &stubInterpreter{available: true}}))
		defer srv.Close()

		conn := dialWS(t, srv, nil)
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, nil))
		code, body := readReply(t, conn)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "No image provided", body["error"])
	})

	t.Run("decode error keeps the stream open", func(t *testing.T) {
		interp := &stubInterpreter{available: true, err: fmt.Errorf("%w: bad", imaging.ErrDecode)}
		srv := httptest.NewServer(New(Config{Interpreter: interp}))
		defer srv.Close()

		conn := dialWS(t, srv, nil)
		for i := 0; i < 2; i++ {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("!!")))
			code, _ := readReply(t, conn)
			assert.Equal(t, http.StatusBadRequest, code)
		}
	})

	t.Run("model unavailable", func(t *testing.T) {
		interp := &stubInterpreter{err: fmt.Errorf("%w: %v", classifier.ErrModelUnavailable, errors.New("missing"))}
		srv := httptest.NewServer(New(Config{Interpreter: interp}))
		defer srv.Close()

		conn := dialWS(t, srv, nil)
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, nil))
		code, body := readReply(t, conn)
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "Sign language model not loaded", body["error"])

		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("AAAA")))
		code, _ = readReply(t, conn)
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Zero(t, interp.calls.Load(), "rejected frames must not reach the interpreter")

		resp, err := http.Post(srv.URL+"/sign_interpret", "application/json", strings.NewReader(`{"image":"AAAA"}`))
		require.NoError(t, err)
		var httpBody map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&httpBody))
		resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, body, httpBody)
		assert.Zero(t, interp.calls.Load())
	})
}

func TestInterpretHandler_Origin(t *testing.T) {
	srv := httptest.NewServer(New(Config{
		Interpreter:   &stubInterpreter{available: true},
		AllowedOrigin: "https://clinic.example",
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sign_interpret/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn := dialWS(t, srv, http.Header{"Origin": {"https://clinic.example"}})
	assert.NotNil(t, conn)
}

func TestInterpretHandler_CloseAll(t *testing.T) {
	h := NewInterpretHandler(&stubInterpreter{available: true}, "*", nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return h.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	h.CloseAll()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	require.Eventually(t, func() bool { return h.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

// Replies carry the same JSON body the HTTP endpoint returns.
func TestInterpretHandler_NoHandBody(t *testing.T) {
	interp := &stubInterpreter{available: true, result: sign.Result{Outcome: sign.OutcomeNoHand}}
	srv := httptest.NewServer(New(Config{Interpreter: interp}))
	defer srv.Close()

	conn := dialWS(t, srv, nil)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("AAAA")))
	_, wsBody := readReply(t, conn)

	resp, err := http.Post(srv.URL+"/sign_interpret", "application/json", strings.NewReader(`{"image":"AAAA"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	var httpBody map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&httpBody))

	assert.Equal(t, httpBody, wsBody)
}
