package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/issuedesk/tracker/internal/core/domain"
	"github.com/issuedesk/tracker/internal/pkg/metrics"
)

const principalKey = "principal"

// TokenResolver maps a credential token key to its active account.
type TokenResolver interface {
	ResolveToken(ctx context.Context, key string) (*domain.Account, error)
}

// Principal returns the account authenticated for this request, or nil for
// anonymous requests.
func Principal(c echo.Context) *domain.Account {
	a, _ := c.Get(principalKey).(*domain.Account)
	return a
}

// SetPrincipal attaches account to the request context.
func SetPrincipal(c echo.Context, account *domain.Account) {
	c.Set(principalKey, account)
}

// Authenticate resolves the request's credentials to a principal. It
// accepts "Authorization: Token <key>" (or Bearer) and, when no header is
// sent, the signed session cookie. Requests without credentials continue
// anonymously; a presented but unknown token is rejected with 401.
func Authenticate(resolver TokenResolver, sessions *SessionCodec, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
				key, ok, err := tokenFromHeader(header)
				if err != nil {
					metrics.AuthAttemptsTotal.WithLabelValues("token", "failure").Inc()
					return err
				}
				if ok {
					account, err := resolver.ResolveToken(ctx, key)
					if err != nil {
						metrics.AuthAttemptsTotal.WithLabelValues("token", "failure").Inc()
						return err
					}
					SetPrincipal(c, account)
					return next(c)
				}
			}

			if sessions != nil {
				if account := sessionPrincipal(c, resolver, sessions, log); account != nil {
					SetPrincipal(c, account)
				}
			}
			return next(c)
		}
	}
}

// tokenFromHeader extracts the key of a Token or Bearer header. Other
// schemes are ignored (ok=false).
func tokenFromHeader(header string) (key string, ok bool, err error) {
	parts := strings.Fields(header)
	if len(parts) == 0 {
		return "", false, nil
	}
	scheme := strings.ToLower(parts[0])
	if scheme != "token" && scheme != "bearer" {
		return "", false, nil
	}
	if len(parts) != 2 {
		return "", false, domain.ErrInvalidToken
	}
	return parts[1], true, nil
}

// sessionPrincipal resolves the session cookie. Invalid or revoked
// sessions are treated as anonymous.
func sessionPrincipal(c echo.Context, resolver TokenResolver, sessions *SessionCodec, log zerolog.Logger) *domain.Account {
	cookie, err := c.Cookie(sessions.CookieName())
	if err != nil || cookie.Value == "" {
		return nil
	}

	claims, err := sessions.Parse(cookie.Value)
	if err != nil {
		log.Debug().Err(err).Msg("ignoring invalid session cookie")
		return nil
	}

	account, err := resolver.ResolveToken(c.Request().Context(), claims.TokenKey)
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidToken) {
			log.Error().Err(err).Msg("session lookup failed")
		}
		return nil
	}
	if account.ID != claims.AccountID {
		return nil
	}
	return account
}
