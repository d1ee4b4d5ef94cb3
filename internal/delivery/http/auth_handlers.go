package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmuslimabdulj/pairchat/internal/auth"
	"github.com/mmuslimabdulj/pairchat/internal/domain"
	"github.com/mmuslimabdulj/pairchat/internal/logger"
)

const maxUsernameLength = 32

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c *credentials) normalize() bool {
	c.Username = strings.TrimSpace(c.Username)
	return c.Username != "" && c.Password != "" && len(c.Username) <= maxUsernameLength
}

// HandleRegister creates an account and signs the caller in
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.normalize() {
		writeError(w, http.StatusBadRequest, "username and password required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.bcryptCost)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid password")
		return
	}

	user, err := h.users.Create(r.Context(), req.Username, string(hash))
	if errors.Is(err, domain.ErrUserExists) {
		writeError(w, http.StatusConflict, "username taken")
		return
	}
	if err != nil {
		logger.Error("create user failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	if !h.signIn(w, user) {
		return
	}
	logger.Info("user registered", zap.String("user", user.ID), zap.String("username", user.Username))
	writeJSON(w, http.StatusCreated, map[string]string{"_id": user.ID, "username": user.Username})
}

// HandleLogin checks the password and sets the token cookie
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.normalize() {
		writeError(w, http.StatusBadRequest, "username and password required")
		return
	}

	user, err := h.users.FindByUsername(r.Context(), req.Username)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		logger.Error("find user failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to login")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusBadRequest, domain.ErrInvalidCredentials.Error())
		return
	}

	if !h.signIn(w, user) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"_id": user.ID, "username": user.Username})
}

// HandleLogout clears the token cookie
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cookie := h.cookie("")
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	http.SetCookie(w, cookie)
	writeJSON(w, http.StatusOK, "ok")
}

// HandleProfile returns the identity carried by the token cookie
func (h *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]domain.Identity{"userData": id})
}

// authenticate verifies the token cookie, writing 401 when it is missing or invalid
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	token := auth.TokenFromRequest(r, h.cfg.TokenCookie)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "no token")
		return domain.Identity{}, false
	}

	id, err := h.tokens.Verify(r.Context(), token)
	if err != nil {
		logger.Debug("token rejected", zap.Error(err))
		writeError(w, http.StatusUnauthorized, "invalid token")
		return domain.Identity{}, false
	}
	return id, true
}

func (h *Handler) signIn(w http.ResponseWriter, user domain.User) bool {
	token, err := h.tokens.Issue(user.Identity())
	if err != nil {
		logger.Error("issue token failed", zap.String("user", user.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return false
	}
	http.SetCookie(w, h.cookie(token))
	return true
}

// cookie builds the token cookie. Cross-site clients need SameSite=None,
// which browsers only accept together with Secure.
func (h *Handler) cookie(value string) *http.Cookie {
	c := &http.Cookie{
		Name:     h.cfg.TokenCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if h.cfg.CookieSecure {
		c.SameSite = http.SameSiteNoneMode
	}
	if h.cfg.TokenTTL > 0 && value != "" {
		c.MaxAge = int(h.cfg.TokenTTL / time.Second)
	}
	return c
}
