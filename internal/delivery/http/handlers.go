package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmuslimabdulj/pairchat/internal/config"
	"github.com/mmuslimabdulj/pairchat/internal/delivery/ws"
	"github.com/mmuslimabdulj/pairchat/internal/domain"
	"github.com/mmuslimabdulj/pairchat/internal/logger"
)

// TokenService issues and verifies session tokens
type TokenService interface {
	domain.TokenIssuer
	domain.TokenVerifier
}

// PresenceLookup answers whether a user currently has a live connection
type PresenceLookup interface {
	IsOnline(ctx context.Context, userID string) (bool, error)
}

type Handler struct {
	cfg        *config.Config
	users      domain.UserStore
	messages   domain.MessageStore
	tokens     TokenService
	gateway    *ws.Gateway
	presence   PresenceLookup
	upgrader   websocket.Upgrader
	bcryptCost int
}

func NewHandler(cfg *config.Config, users domain.UserStore, messages domain.MessageStore, tokens TokenService, gateway *ws.Gateway) *Handler {
	return &Handler{
		cfg:      cfg,
		users:    users,
		messages: messages,
		tokens:   tokens,
		gateway:  gateway,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return cfg.IsOriginAllowed(r.Header.Get("Origin"))
			},
		},
		bcryptCost: bcrypt.DefaultCost,
	}
}

// SetPresence enables the online flag in HandlePeople
func (h *Handler) SetPresence(p PresenceLookup) {
	h.presence = p
}

// HandleTest is a liveness probe
func (h *Handler) HandleTest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "test ok"})
}

// HandlePeople lists every registered user
func (h *Handler) HandlePeople(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	users, err := h.users.List(r.Context())
	if err != nil {
		logger.Error("list users failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	type person struct {
		ID       string `json:"_id"`
		Username string `json:"username"`
		Online   bool   `json:"online"`
	}
	people := make([]person, 0, len(users))
	for _, u := range users {
		people = append(people, person{ID: u.ID, Username: u.Username, Online: h.isOnline(r.Context(), u.ID)})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": people})
}

// HandleMessages returns the conversation between the caller and {userId}
func (h *Handler) HandleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	caller, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	other := r.PathValue("userId")
	if other == "" {
		writeError(w, http.StatusBadRequest, "userId required")
		return
	}

	msgs, err := h.messages.Conversation(r.Context(), caller.UserID, other)
	if err != nil {
		logger.Error("load conversation failed", zap.String("user", caller.UserID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

// HandleWebSocket upgrades HTTP to WebSocket and hands the connection to the gateway
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.gateway == nil {
		http.Error(w, "WebSocket unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("upgrade failed", zap.Error(err))
		return
	}

	h.gateway.Serve(conn, r)
}

func (h *Handler) isOnline(ctx context.Context, userID string) bool {
	if h.presence == nil {
		return false
	}
	online, err := h.presence.IsOnline(ctx, userID)
	if err != nil {
		logger.Warn("presence lookup failed", zap.String("user", userID), zap.Error(err))
		return false
	}
	return online
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("write response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
