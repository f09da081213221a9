package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/sfecr/compliagent/internal/auth"
	"github.com/sfecr/compliagent/internal/config"
	"github.com/sfecr/compliagent/internal/llm"
)

type nullProvider struct{}

func (nullProvider) Name() string { return "null" }

func (nullProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{Content: "[]"}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, err := NewWithProvider(config.DefaultConfig(), zap.NewNop(), nullProvider{}, nil)
	if err != nil {
		t.Fatalf("NewWithProvider: %v", err)
	}
	return srv
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q", body["status"])
	}
}

func TestAPIRequiresAuthentication(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/api/rules", "/api/workflow", "/api/reports"} {
		rec := httptest.NewRecorder()
		method := http.MethodGet
		if path == "/api/workflow" {
			method = http.MethodPost
		}
		srv.Router().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", path, rec.Code)
		}
	}
}

func TestAuthenticatedRuleListing(t *testing.T) {
	srv := newTestServer(t)
	token := loginAs(t, srv, "admin", "admin123")

	req := httptest.NewRequest(http.MethodGet, "/api/rules?category=风险控制", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "SASAC-001") {
		t.Error("seeded rules missing from response")
	}
}

// loginAs performs the captcha + login round trip over the router.
func loginAs(t *testing.T, srv *Server, username, password string) string {
	t.Helper()

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/captcha", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("captcha status %d", rec.Code)
	}
	var c auth.Captcha
	json.NewDecoder(rec.Body).Decode(&c)

	body := `{"username":"` + username + `","password":"` + password + `","captcha_id":"` + c.ID + `","captcha":"` + c.Text + `"}`
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("login status %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Token == "" {
		t.Fatal("missing token")
	}
	return resp.Token
}
