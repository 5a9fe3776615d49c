package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const sessionIssuer = "issue-tracker"

// SessionClaims identify the account and token behind a session cookie.
type SessionClaims struct {
	AccountID string
	TokenKey  string
}

// SessionCodec signs and verifies session cookies as HS256 JWTs. The
// cookie stays valid only while the token it names exists, so revoking
// the token ends the session too.
type SessionCodec struct {
	secret     []byte
	ttl        time.Duration
	cookieName string
	secure     bool
}

func NewSessionCodec(secret, cookieName string, ttl time.Duration, secure bool) *SessionCodec {
	if ttl <= 0 {
		ttl = 14 * 24 * time.Hour
	}
	if cookieName == "" {
		cookieName = "sessionid"
	}
	return &SessionCodec{secret: []byte(secret), ttl: ttl, cookieName: cookieName, secure: secure}
}

func (s *SessionCodec) CookieName() string { return s.cookieName }

// Issue returns a signed session value for the account's token.
func (s *SessionCodec) Issue(accountID, tokenKey string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    sessionIssuer,
		Subject:   accountID,
		ID:        tokenKey,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

// Parse verifies value and returns its claims.
func (s *SessionCodec) Parse(value string) (*SessionClaims, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(value, &claims, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, errors.New("parse session: missing subject or token id")
	}
	return &SessionClaims{AccountID: claims.Subject, TokenKey: claims.ID}, nil
}

// SetCookie writes a session cookie for the account's token.
func (s *SessionCodec) SetCookie(c echo.Context, accountID, tokenKey string) error {
	value, err := s.Issue(accountID, tokenKey)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     s.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

// ClearCookie expires the session cookie.
func (s *SessionCodec) ClearCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	})
}
