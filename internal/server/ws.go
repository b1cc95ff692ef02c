package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/server/api"
)

const (
	wsWriteWait      = 10 * time.Second
	wsMaxMessageSize = 16 << 20
)

// InterpretHandler interprets a stream of images over a WebSocket. Each text
// message is one base64 image; each reply is the JSON body /sign_interpret
// would return for it, plus the HTTP status it would carry.
type InterpretHandler struct {
	interp   api.Interpreter
	upgrader websocket.Upgrader
	logger   *zap.Logger
	clients  map[*websocket.Conn]bool
	mu       sync.Mutex
}

// NewInterpretHandler creates a handler accepting browsers from allowedOrigin
// ("*" accepts any origin).
func NewInterpretHandler(interp api.Interpreter, allowedOrigin string, logger *zap.Logger) *InterpretHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InterpretHandler{
		interp: interp,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "*" {
					return true
				}
				origin := r.Header.Get("Origin")
				return origin == "" || origin == allowedOrigin
			},
		},
		logger:  logger,
		clients: make(map[*websocket.Conn]bool),
	}
}

type wsReply struct {
	Code int             `json:"code"`
	Body json.RawMessage `json:"body"`
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *InterpretHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxMessageSize)

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var status int
		var body interface{}
		if !h.interp.ModelAvailable() {
			status, body = api.ModelUnavailableBody()
		} else if len(msg) == 0 {
			status, body = http.StatusBadRequest, map[string]string{"error": api.MsgNoImage}
		} else {
			status, body = api.InterpretBody(h.interp.Interpret(r.Context(), string(msg)))
		}

		raw, err := json.Marshal(body)
		if err != nil {
			h.logger.Error("failed to encode reply", zap.Error(err))
			break
		}

		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(wsReply{Code: status, Body: raw}); err != nil {
			break
		}
	}
}

// CloseAll closes every open connection, ending their read loops.
func (h *InterpretHandler) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
	}
}

// Clients returns the number of open connections.
func (h *InterpretHandler) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
