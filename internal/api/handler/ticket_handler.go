package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/issuedesk/tracker/internal/core/ports"
	"github.com/issuedesk/tracker/internal/pkg/metrics"
)

const headerIdempotencyKey = "Idempotency-Key"

// TicketHandler handles HTTP requests for ticket operations.
type TicketHandler struct {
	service ports.TicketService
}

func NewTicketHandler(service ports.TicketService) *TicketHandler {
	return &TicketHandler{service: service}
}

// List handles GET /api/tickets?status=&priority=&page=.
func (h *TicketHandler) List(c echo.Context) error {
	page, err := pageParam(c)
	if err != nil {
		return err
	}

	filter := ports.TicketFilter{
		Status:   c.QueryParam("status"),
		Priority: c.QueryParam("priority"),
	}
	result, err := h.service.List(c.Request().Context(), ctxPrincipal(c), filter, page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newPageResponse(c, result, toTicketResponse))
}

// Create handles POST /api/tickets. A replay under the same
// Idempotency-Key returns the original ticket with 200.
func (h *TicketHandler) Create(c echo.Context) error {
	var req createTicketRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidPayload
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.service.Create(c.Request().Context(), ctxPrincipal(c), ports.CreateTicketInput{
		Title:          req.Title,
		Description:    req.Description,
		Priority:       req.Priority,
		IdempotencyKey: c.Request().Header.Get(headerIdempotencyKey),
	})
	if err != nil {
		return err
	}

	if result.AlreadyExisted {
		metrics.TicketOperationsTotal.WithLabelValues("replay").Inc()
		return c.JSON(http.StatusOK, toTicketResponse(result.Ticket))
	}
	metrics.TicketOperationsTotal.WithLabelValues("create").Inc()
	metrics.TicketsCreatedTotal.WithLabelValues(string(result.Ticket.Priority)).Inc()
	return c.JSON(http.StatusCreated, toTicketResponse(result.Ticket))
}

// Get handles GET /api/tickets/:id.
func (h *TicketHandler) Get(c echo.Context) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}

	ticket, err := h.service.Get(c.Request().Context(), ctxPrincipal(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTicketResponse(ticket))
}

// Replace handles PUT /api/tickets/:id.
func (h *TicketHandler) Replace(c echo.Context) error {
	return h.update(c, false)
}

// Patch handles PATCH /api/tickets/:id.
func (h *TicketHandler) Patch(c echo.Context) error {
	return h.update(c, true)
}

func (h *TicketHandler) update(c echo.Context, partial bool) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return errInvalidPayload
	}
	in, err := decodeTicketUpdate(body, partial)
	if err != nil {
		if isValidation(err) {
			return err
		}
		return errInvalidPayload
	}

	ticket, err := h.service.Update(c.Request().Context(), ctxPrincipal(c), id, in)
	if err != nil {
		return err
	}
	metrics.TicketOperationsTotal.WithLabelValues("update").Inc()
	return c.JSON(http.StatusOK, toTicketResponse(ticket))
}

// Delete handles DELETE /api/tickets/:id.
func (h *TicketHandler) Delete(c echo.Context) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), ctxPrincipal(c), id); err != nil {
		return err
	}
	metrics.TicketOperationsTotal.WithLabelValues("delete").Inc()
	return c.NoContent(http.StatusNoContent)
}

// Assign handles POST /api/tickets/:id/assign.
func (h *TicketHandler) Assign(c echo.Context) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}

	var req assignRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidPayload
	}

	ticket, err := h.service.Assign(c.Request().Context(), ctxPrincipal(c), id, req.accountID())
	if err != nil {
		return err
	}
	metrics.TicketOperationsTotal.WithLabelValues("assign").Inc()
	return c.JSON(http.StatusOK, toTicketResponse(ticket))
}

// Mine handles GET /api/tickets/mine.
func (h *TicketHandler) Mine(c echo.Context) error {
	tickets, err := h.service.Mine(c.Request().Context(), ctxPrincipal(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTicketResponses(tickets))
}

// Activity handles GET /api/tickets/:id/activity.
func (h *TicketHandler) Activity(c echo.Context) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}

	items, err := h.service.Activity(c.Request().Context(), ctxPrincipal(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toActivityResponses(items))
}
