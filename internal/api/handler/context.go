package handler

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/issuedesk/tracker/internal/api/middleware"
	"github.com/issuedesk/tracker/internal/core/domain"
)

// ctxPrincipal returns the authenticated account, or nil when anonymous.
// Handlers pass it straight to the services, which consult the policy.
func ctxPrincipal(c echo.Context) *domain.Account {
	return middleware.Principal(c)
}

// ticketID parses the :id path parameter. Non-numeric ids cannot name a
// ticket.
func ticketID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrTicketNotFound
	}
	return id, nil
}

// pageParam parses ?page=, defaulting to 1.
func pageParam(c echo.Context) (int, error) {
	raw := c.QueryParam("page")
	if raw == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.ErrInvalidPage
	}
	return n, nil
}

func isValidation(err error) bool {
	return errors.Is(err, domain.ErrValidation)
}
