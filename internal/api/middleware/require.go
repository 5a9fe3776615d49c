package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/issuedesk/tracker/internal/core/domain"
)

// RequirePrincipal rejects anonymous requests with 401 before they reach
// the handler.
func RequirePrincipal() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if Principal(c) == nil {
				return domain.ErrNotAuthenticated
			}
			return next(c)
		}
	}
}
