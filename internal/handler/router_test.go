package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	authmodel "github.com/educhat/backend/internal/model/auth"
	chatmodel "github.com/educhat/backend/internal/model/chat"
	authService "github.com/educhat/backend/internal/service/auth"
	chatService "github.com/educhat/backend/internal/service/chat"
	quizService "github.com/educhat/backend/internal/service/quiz"
	"github.com/educhat/backend/internal/store"
	"github.com/educhat/backend/internal/web"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	renderer, err := web.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer err: %v", err)
	}
	backend := store.NewSeededMemoryStore()
	return NewRouter(Services{
		Auth:         authService.NewService(backend, nil, "secret", time.Hour),
		Chat:         chatService.NewService(backend, nil, 50),
		Quiz:         quizService.NewService(backend, time.Hour),
		Renderer:     renderer,
		AdvanceDelay: time.Second,
	})
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestAPIRequiresSession(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{"/api/messages", "/api/quiz", "/api/auth/session"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, resp.Code)
		}
	}
}

func TestAPIFlowWithBearerToken(t *testing.T) {
	r := newTestRouter(t)

	payload, _ := json.Marshal(map[string]string{"email": "grace@example.com", "password": "password"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var session authmodel.Session
	if err := json.Unmarshal(resp.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/messages", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body struct {
		Messages []chatmodel.Message `json:"messages"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode messages: %v", err)
	}
	if len(body.Messages) != 1 || !body.Messages[0].IsWelcome() {
		t.Fatalf("expected welcome message, got %+v", body.Messages)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/chat/stream", bytes.NewReader([]byte(`{"content":"hi"}`)))
	req.Header.Set("Authorization", "Bearer "+session.Token)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a model, got %d", resp.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/messages", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if got := resp.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Fatal("expected CORS headers on preflight")
	}
}
