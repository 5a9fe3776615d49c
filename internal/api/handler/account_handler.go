package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/issuedesk/tracker/internal/api/middleware"
	"github.com/issuedesk/tracker/internal/core/domain"
	"github.com/issuedesk/tracker/internal/core/ports"
	"github.com/issuedesk/tracker/internal/pkg/metrics"
)

var errInvalidPayload = echo.NewHTTPError(http.StatusBadRequest, "invalid payload")

// AccountHandler serves registration, login and account reads.
type AccountHandler struct {
	service  ports.AccountService
	sessions *middleware.SessionCodec
}

func NewAccountHandler(service ports.AccountService, sessions *middleware.SessionCodec) *AccountHandler {
	return &AccountHandler{service: service, sessions: sessions}
}

// Register handles POST /api/register.
func (h *AccountHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidPayload
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	account, key, err := h.service.Register(c.Request().Context(), ports.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
	})
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("register", "failure").Inc()
		return err
	}
	metrics.AuthAttemptsTotal.WithLabelValues("register", "success").Inc()

	if err := h.setSession(c, account.ID, key); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, authResponse{Token: key, User: toUserDetailResponse(account)})
}

// Login handles POST /api/login.
func (h *AccountHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidPayload
	}

	key, account, err := h.service.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			metrics.AuthAttemptsTotal.WithLabelValues("login", "failure").Inc()
		}
		return err
	}
	metrics.AuthAttemptsTotal.WithLabelValues("login", "success").Inc()

	if err := h.setSession(c, account.ID, key); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, authResponse{Token: key, User: toUserDetailResponse(account)})
}

// Logout handles POST /api/logout. The token is deleted, which also
// invalidates any session cookie minted for it.
func (h *AccountHandler) Logout(c echo.Context) error {
	if err := h.service.Logout(c.Request().Context(), ctxPrincipal(c)); err != nil {
		return err
	}
	if h.sessions != nil {
		h.sessions.ClearCookie(c)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Successfully logged out"})
}

// Me handles GET /api/users/me.
func (h *AccountHandler) Me(c echo.Context) error {
	account, err := h.service.Profile(c.Request().Context(), ctxPrincipal(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserDetailResponse(account))
}

// List handles GET /api/users.
func (h *AccountHandler) List(c echo.Context) error {
	page, err := pageParam(c)
	if err != nil {
		return err
	}

	result, err := h.service.ListAccounts(c.Request().Context(), ctxPrincipal(c), page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newPageResponse(c, result, toUserResponse))
}

// Get handles GET /api/users/:id.
func (h *AccountHandler) Get(c echo.Context) error {
	account, err := h.service.GetAccount(c.Request().Context(), ctxPrincipal(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserDetailResponse(account))
}

// Update handles PATCH /api/users/:id.
func (h *AccountHandler) Update(c echo.Context) error {
	var req updateAccountRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidPayload
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	in := ports.UpdateAccountInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		in.Role = &role
	}

	account, err := h.service.UpdateAccount(c.Request().Context(), ctxPrincipal(c), c.Param("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserDetailResponse(account))
}

func (h *AccountHandler) setSession(c echo.Context, accountID, key string) error {
	if h.sessions == nil {
		return nil
	}
	return h.sessions.SetCookie(c, accountID, key)
}
