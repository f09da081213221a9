package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(time.Hour)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestCaptchaCharset(t *testing.T) {
	svc := newTestService(t)
	for i := 0; i < 20; i++ {
		c, err := svc.NewCaptcha()
		if err != nil {
			t.Fatalf("NewCaptcha: %v", err)
		}
		if len(c.Text) != captchaLength {
			t.Fatalf("captcha length %d", len(c.Text))
		}
		for _, r := range c.Text {
			if !strings.ContainsRune(captchaCharset, r) {
				t.Fatalf("captcha %q contains %q outside the charset", c.Text, r)
			}
		}
	}
}

func TestLoginFlow(t *testing.T) {
	svc := newTestService(t)

	c, _ := svc.NewCaptcha()
	token, account, err := svc.Login("admin", "admin123", c.ID, strings.ToLower(c.Text))
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if account.DisplayName != "合规部负责人" {
		t.Errorf("DisplayName = %q", account.DisplayName)
	}

	verified, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if verified.Username != "admin" {
		t.Errorf("Username = %q", verified.Username)
	}
}

func TestLoginRejectsBadCaptcha(t *testing.T) {
	svc := newTestService(t)
	c, _ := svc.NewCaptcha()

	_, _, err := svc.Login("admin", "admin123", c.ID, "XXXX")
	if !errors.Is(err, ErrCaptchaMismatch) {
		t.Fatalf("expected ErrCaptchaMismatch, got %v", err)
	}

	// The challenge is consumed: the right answer no longer works.
	_, _, err = svc.Login("admin", "admin123", c.ID, c.Text)
	if !errors.Is(err, ErrCaptchaMismatch) {
		t.Errorf("consumed captcha must not be reusable, got %v", err)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	svc := newTestService(t)
	c, _ := svc.NewCaptcha()

	_, _, err := svc.Login("sfecr001", "wrong", c.ID, c.Text)
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestVerifyRejectsForeignToken(t *testing.T) {
	svcA := newTestService(t)
	svcB := newTestService(t)

	c, _ := svcA.NewCaptcha()
	token, _, err := svcA.Login("admin", "admin123", c.ID, c.Text)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	// Signed with a different per-process secret.
	if _, err := svcB.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestMiddlewareGuardsRoutes(t *testing.T) {
	svc := newTestService(t)

	router := chi.NewRouter()
	RegisterRoutes(router, svc)
	router.Group(func(r chi.Router) {
		r.Use(Middleware(svc))
		r.Get("/api/protected", func(w http.ResponseWriter, r *http.Request) {
			account := FromContext(r.Context())
			json.NewEncoder(w).Encode(account)
		})
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/protected", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status %d", rec.Code)
	}

	// Full login over HTTP.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/captcha", nil))
	var c Captcha
	json.NewDecoder(rec.Body).Decode(&c)

	body := `{"username":"admin","password":"admin123","captcha_id":"` + c.ID + `","captcha":"` + c.Text + `"}`
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("login status %d: %s", rec.Code, rec.Body.String())
	}
	var resp loginResponse
	json.NewDecoder(rec.Body).Decode(&resp)

	req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated status %d", rec.Code)
	}
	var account Account
	json.NewDecoder(rec.Body).Decode(&account)
	if account.Username != "admin" {
		t.Errorf("account from context: %+v", account)
	}
}

func TestLoginFailureIssuesFreshCaptcha(t *testing.T) {
	svc := newTestService(t)
	router := chi.NewRouter()
	RegisterRoutes(router, svc)

	c, _ := svc.NewCaptcha()
	body := `{"username":"admin","password":"admin123","captcha_id":"` + c.ID + `","captcha":"WRNG"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body)))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d", rec.Code)
	}
	var resp struct {
		Error   string  `json:"error"`
		Captcha Captcha `json:"captcha"`
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Captcha.ID == "" || resp.Captcha.ID == c.ID {
		t.Errorf("expected a fresh challenge, got %+v", resp.Captcha)
	}
}
