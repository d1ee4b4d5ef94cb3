package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmuslimabdulj/pairchat/internal/auth"
	"github.com/mmuslimabdulj/pairchat/internal/config"
	"github.com/mmuslimabdulj/pairchat/internal/domain"
	"github.com/mmuslimabdulj/pairchat/internal/store/memstore"
)

type testEnv struct {
	h        *Handler
	users    *memstore.UserStore
	messages *memstore.MessageStore
	tokens   *auth.JWT
}

func setupTestHandler() *testEnv {
	cfg := config.DefaultConfig()
	cfg.JWTSecret = "test-secret"

	env := &testEnv{
		users:    memstore.NewUserStore(),
		messages: memstore.NewMessageStore(),
		tokens:   auth.NewJWT(cfg.JWTSecret, 0),
	}
	env.h = NewHandler(cfg, env.users, env.messages, env.tokens, nil)
	env.h.bcryptCost = bcrypt.MinCost
	return env
}

func (e *testEnv) post(handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func (e *testEnv) tokenFor(t *testing.T, id domain.Identity) *http.Cookie {
	t.Helper()
	token, err := e.tokens.Issue(id)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return &http.Cookie{Name: "token", Value: token}
}

func tokenCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == "token" {
			return c
		}
	}
	return nil
}

func TestHandleTest(t *testing.T) {
	env := setupTestHandler()
	w := httptest.NewRecorder()
	env.h.HandleTest(w, httptest.NewRequest("GET", "/test", nil))

	var res map[string]string
	json.NewDecoder(w.Body).Decode(&res)
	if res["message"] != "test ok" {
		t.Errorf("Expected 'test ok', got '%s'", res["message"])
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %s", ct)
	}
}

func TestHandleRegister(t *testing.T) {
	env := setupTestHandler()

	w := env.post(env.h.HandleRegister, "/register", `{"username":"alice","password":"pw"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", w.Code)
	}

	var res map[string]string
	json.NewDecoder(w.Body).Decode(&res)
	if res["username"] != "alice" || res["_id"] == "" {
		t.Errorf("Unexpected body %v", res)
	}

	c := tokenCookie(w)
	if c == nil || c.Value == "" {
		t.Fatal("Expected token cookie")
	}
	if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteNoneMode {
		t.Errorf("Unexpected cookie attributes %+v", c)
	}

	id, err := env.tokens.Verify(context.Background(), c.Value)
	if err != nil {
		t.Fatalf("Expected a valid token, got %v", err)
	}
	if id.UserID != res["_id"] || id.Username != "alice" {
		t.Errorf("Token identity %+v does not match body %v", id, res)
	}

	stored, err := env.users.FindByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Expected user stored, got %v", err)
	}
	if stored.PasswordHash == "pw" {
		t.Error("Expected password to be hashed")
	}
}

func TestHandleRegister_Duplicate(t *testing.T) {
	env := setupTestHandler()
	env.post(env.h.HandleRegister, "/register", `{"username":"alice","password":"pw"}`)

	w := env.post(env.h.HandleRegister, "/register", `{"username":"alice","password":"other"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409, got %d", w.Code)
	}
}

func TestHandleRegister_BadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"Invalid JSON", `{not json`},
		{"Empty username", `{"username":"  ","password":"pw"}`},
		{"Empty password", `{"username":"bob","password":""}`},
		{"Long username", `{"username":"` + strings.Repeat("a", 40) + `","password":"pw"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := setupTestHandler()
			w := env.post(env.h.HandleRegister, "/register", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", w.Code)
			}
			if tokenCookie(w) != nil {
				t.Error("Expected no cookie on failure")
			}
		})
	}
}

func TestHandleRegister_InvalidMethod(t *testing.T) {
	env := setupTestHandler()
	w := httptest.NewRecorder()
	env.h.HandleRegister(w, httptest.NewRequest("GET", "/register", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", w.Code)
	}
}

func TestHandleLogin(t *testing.T) {
	env := setupTestHandler()
	env.post(env.h.HandleRegister, "/register", `{"username":"alice","password":"pw"}`)

	tests := []struct {
		name   string
		body   string
		status int
		cookie bool
	}{
		{"Success", `{"username":"alice","password":"pw"}`, http.StatusOK, true},
		{"Wrong password", `{"username":"alice","password":"nope"}`, http.StatusBadRequest, false},
		{"Unknown user", `{"username":"mallory","password":"pw"}`, http.StatusNotFound, false},
		{"Invalid JSON", `[]`, http.StatusBadRequest, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := env.post(env.h.HandleLogin, "/login", tc.body)
			if w.Code != tc.status {
				t.Errorf("Expected %d, got %d", tc.status, w.Code)
			}
			if got := tokenCookie(w) != nil; got != tc.cookie {
				t.Errorf("Expected cookie=%v, got %v", tc.cookie, got)
			}
		})
	}
}

func TestHandleLogout(t *testing.T) {
	env := setupTestHandler()
	w := env.post(env.h.HandleLogout, "/logout", "")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	c := tokenCookie(w)
	if c == nil {
		t.Fatal("Expected cookie to be cleared")
	}
	if c.Value != "" || c.MaxAge >= 0 {
		t.Errorf("Expected expired empty cookie, got %+v", c)
	}

	var res string
	json.NewDecoder(w.Body).Decode(&res)
	if res != "ok" {
		t.Errorf("Expected 'ok', got '%s'", res)
	}
}

func TestHandleProfile(t *testing.T) {
	env := setupTestHandler()
	id := domain.Identity{UserID: "u1", Username: "alice"}

	tests := []struct {
		name   string
		cookie *http.Cookie
		status int
	}{
		{"No cookie", nil, http.StatusUnauthorized},
		{"Garbage token", &http.Cookie{Name: "token", Value: "garbage"}, http.StatusUnauthorized},
		{"Valid token", env.tokenFor(t, id), http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/profile", nil)
			if tc.cookie != nil {
				req.AddCookie(tc.cookie)
			}
			w := httptest.NewRecorder()
			env.h.HandleProfile(w, req)

			if w.Code != tc.status {
				t.Fatalf("Expected %d, got %d", tc.status, w.Code)
			}
			if tc.status != http.StatusOK {
				return
			}
			var res struct {
				UserData domain.Identity `json:"userData"`
			}
			json.NewDecoder(w.Body).Decode(&res)
			if res.UserData != id {
				t.Errorf("Expected %+v, got %+v", id, res.UserData)
			}
		})
	}
}

func TestHandlePeople(t *testing.T) {
	env := setupTestHandler()
	env.post(env.h.HandleRegister, "/register", `{"username":"alice","password":"pw"}`)
	env.post(env.h.HandleRegister, "/register", `{"username":"bob","password":"pw"}`)

	w := httptest.NewRecorder()
	env.h.HandlePeople(w, httptest.NewRequest("GET", "/people", nil))

	var res struct {
		Users []map[string]interface{} `json:"users"`
	}
	json.NewDecoder(w.Body).Decode(&res)
	if len(res.Users) != 2 {
		t.Fatalf("Expected 2 users, got %d", len(res.Users))
	}
	if res.Users[0]["username"] != "alice" || res.Users[1]["username"] != "bob" {
		t.Errorf("Unexpected users %v", res.Users)
	}
	if _, leaked := res.Users[0]["password"]; leaked {
		t.Error("Password hash must not be listed")
	}
	if res.Users[0]["online"] != false {
		t.Errorf("Expected offline without a presence source, got %v", res.Users[0]["online"])
	}
}

type staticPresence map[string]bool

func (p staticPresence) IsOnline(_ context.Context, userID string) (bool, error) {
	return p[userID], nil
}

func TestHandlePeople_OnlineFlag(t *testing.T) {
	env := setupTestHandler()
	env.post(env.h.HandleRegister, "/register", `{"username":"alice","password":"pw"}`)
	env.post(env.h.HandleRegister, "/register", `{"username":"bob","password":"pw"}`)

	alice, _ := env.users.FindByUsername(context.Background(), "alice")
	env.h.SetPresence(staticPresence{alice.ID: true})

	w := httptest.NewRecorder()
	env.h.HandlePeople(w, httptest.NewRequest("GET", "/people", nil))

	var res struct {
		Users []struct {
			Username string `json:"username"`
			Online   bool   `json:"online"`
		} `json:"users"`
	}
	json.NewDecoder(w.Body).Decode(&res)
	if len(res.Users) != 2 || !res.Users[0].Online || res.Users[1].Online {
		t.Errorf("Expected only alice online, got %+v", res.Users)
	}
}

func TestHandleMessages(t *testing.T) {
	env := setupTestHandler()
	ctx := context.Background()
	env.messages.Create(ctx, "u1", "u2", "hi")
	env.messages.Create(ctx, "u3", "u1", "unrelated")
	env.messages.Create(ctx, "u2", "u1", "hello")

	req := httptest.NewRequest("GET", "/messages/u2", nil)
	req.SetPathValue("userId", "u2")
	req.AddCookie(env.tokenFor(t, domain.Identity{UserID: "u1", Username: "alice"}))
	w := httptest.NewRecorder()
	env.h.HandleMessages(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var msgs []domain.Message
	json.NewDecoder(w.Body).Decode(&msgs)
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Text != "hi" || msgs[1].Text != "hello" {
		t.Errorf("Expected oldest first, got %q then %q", msgs[0].Text, msgs[1].Text)
	}
}

func TestHandleMessages_Empty(t *testing.T) {
	env := setupTestHandler()

	req := httptest.NewRequest("GET", "/messages/u9", nil)
	req.SetPathValue("userId", "u9")
	req.AddCookie(env.tokenFor(t, domain.Identity{UserID: "u1", Username: "alice"}))
	w := httptest.NewRecorder()
	env.h.HandleMessages(w, req)

	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("Expected empty array, got %s", body)
	}
}

func TestHandleMessages_Unauthenticated(t *testing.T) {
	env := setupTestHandler()

	req := httptest.NewRequest("GET", "/messages/u2", nil)
	req.SetPathValue("userId", "u2")
	w := httptest.NewRecorder()
	env.h.HandleMessages(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}
}

func TestHandleWebSocket_NoGateway(t *testing.T) {
	env := setupTestHandler()
	w := httptest.NewRecorder()
	env.h.HandleWebSocket(w, httptest.NewRequest("GET", "/ws", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", w.Code)
	}
}

func TestUpgraderCheckOrigin(t *testing.T) {
	env := setupTestHandler()

	tests := []struct {
		origin   string
		expected bool
	}{
		{"http://localhost:8080", true},
		{"http://localhost:3000", true},
		{"", true}, // Empty origin allowed (same-origin)
		{"http://evil.com", false},
	}

	for _, tc := range tests {
		req := httptest.NewRequest("GET", "/ws", nil)
		if tc.origin != "" {
			req.Header.Set("Origin", tc.origin)
		}
		if got := env.h.upgrader.CheckOrigin(req); got != tc.expected {
			t.Errorf("CheckOrigin(%s) = %v, expected %v", tc.origin, got, tc.expected)
		}
	}
}

func TestCookie_InsecureUsesLax(t *testing.T) {
	env := setupTestHandler()
	env.h.cfg.CookieSecure = false

	c := env.h.cookie("v")
	if c.Secure || c.SameSite != http.SameSiteLaxMode {
		t.Errorf("Expected Lax insecure cookie, got %+v", c)
	}
}

func TestHandleRegister_ContentType(t *testing.T) {
	env := setupTestHandler()
	req := httptest.NewRequest("POST", "/register", bytes.NewBufferString(`{"username":"c","password":"pw"}`))
	w := httptest.NewRecorder()
	env.h.HandleRegister(w, req)

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %s", ct)
	}
}
