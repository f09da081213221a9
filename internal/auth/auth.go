// Package auth implements the demo login gate: hardcoded credential
// pairs, a 4-character CAPTCHA, and short-lived JWT session tokens. This
// is a demonstration gate, not an identity system.
package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"
)

// captchaCharset deliberately omits ambiguous glyphs (I, O, 0, 1).
const captchaCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const captchaLength = 4

// captchaTTL is how long a challenge stays answerable.
const captchaTTL = 5 * time.Minute

// Account is a demo user.
type Account struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// demoAccounts maps username to password and profile.
var demoAccounts = map[string]struct {
	password string
	account  Account
}{
	"admin": {
		password: "admin123",
		account:  Account{Username: "admin", DisplayName: "合规部负责人", Role: "admin"},
	},
	"sfecr001": {
		password: "888888",
		account:  Account{Username: "sfecr001", DisplayName: "系统管理员", Role: "admin"},
	},
}

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrCaptchaMismatch    = errors.New("captcha mismatch")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Captcha is one issued challenge. Text is sent to the client, which
// renders it itself; this is a demo gate, not an anti-bot measure.
type Captcha struct {
	ID   string `json:"captcha_id"`
	Text string `json:"text"`
}

// Service issues CAPTCHAs and session tokens. The signing secret is
// random per process, so tokens die with the server.
type Service struct {
	secret   []byte
	tokenTTL time.Duration
	captchas *cache.Cache
}

// NewService creates the auth service with the given token lifetime.
func NewService(tokenTTL time.Duration) (*Service, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generating signing secret: %w", err)
	}
	return &Service{
		secret:   secret,
		tokenTTL: tokenTTL,
		captchas: cache.New(captchaTTL, captchaTTL),
	}, nil
}

// NewCaptcha issues a fresh challenge.
func (s *Service) NewCaptcha() (*Captcha, error) {
	buf := make([]byte, captchaLength)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generating captcha: %w", err)
	}
	code := make([]byte, captchaLength)
	for i, b := range buf {
		code[i] = captchaCharset[int(b)%len(captchaCharset)]
	}

	c := &Captcha{ID: uuid.New().String(), Text: string(code)}
	s.captchas.SetDefault(c.ID, c.Text)
	return c, nil
}

// Login checks credentials and the CAPTCHA answer, returning a signed
// token on success. The challenge is consumed either way; on mismatch
// the caller should issue a fresh one.
func (s *Service) Login(username, password, captchaID, captchaAnswer string) (string, *Account, error) {
	expected, ok := s.captchas.Get(captchaID)
	s.captchas.Delete(captchaID)
	if !ok || !strings.EqualFold(captchaAnswer, expected.(string)) {
		return "", nil, ErrCaptchaMismatch
	}

	entry, ok := demoAccounts[username]
	if !ok || entry.password != password {
		return "", nil, ErrInvalidCredentials
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("signing token: %w", err)
	}

	account := entry.account
	return signed, &account, nil
}

// Verify parses a token and returns the account it belongs to.
func (s *Service) Verify(tokenString string) (*Account, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims := token.Claims.(*jwt.RegisteredClaims)
	entry, ok := demoAccounts[claims.Subject]
	if !ok {
		return nil, ErrInvalidToken
	}
	account := entry.account
	return &account, nil
}
