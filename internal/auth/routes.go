package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type contextKey string

const accountKey contextKey = "auth.account"

// RegisterRoutes mounts the login endpoints. These stay outside the
// authenticated router group.
func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/captcha", handleCaptcha(svc))
		r.Post("/login", handleLogin(svc))
	})
}

func handleCaptcha(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := svc.NewCaptcha()
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(c)
	}
}

type loginRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	CaptchaID string `json:"captcha_id"`
	Captcha   string `json:"captcha"`
}

type loginResponse struct {
	Token   string   `json:"token"`
	Account *Account `json:"account"`
}

// handleLogin answers mismatches with a fresh challenge so the client
// can re-render without an extra round trip.
func handleLogin(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if req.Username == "" || req.Password == "" || req.Captcha == "" {
			http.Error(w, `{"error":"username, password and captcha are required"}`, http.StatusBadRequest)
			return
		}

		token, account, err := svc.Login(req.Username, req.Password, req.CaptchaID, req.Captcha)
		if err != nil {
			next, capErr := svc.NewCaptcha()
			if capErr != nil {
				http.Error(w, `{"error":"`+capErr.Error()+`"}`, http.StatusInternalServerError)
				return
			}
			msg := "用户名或密码错误"
			if errors.Is(err, ErrCaptchaMismatch) {
				msg = "验证码不正确，请重新输入"
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{"error": msg, "captcha": next})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(loginResponse{Token: token, Account: account})
	}
}

// Middleware rejects requests without a valid bearer token and stores
// the account on the request context.
func Middleware(svc *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
				return
			}

			account, err := svc.Verify(token)
			if err != nil {
				http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), accountKey, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext returns the authenticated account, if any.
func FromContext(ctx context.Context) *Account {
	account, _ := ctx.Value(accountKey).(*Account)
	return account
}
