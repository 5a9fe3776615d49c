package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/issuedesk/tracker/internal/api/middleware"
	"github.com/issuedesk/tracker/internal/core/domain"
	"github.com/issuedesk/tracker/internal/core/ports"
)

// stubTicketService records the last inputs and replays canned results.
type stubTicketService struct {
	ticket     *domain.Ticket
	page       *ports.Page[*domain.Ticket]
	existed    bool
	err        error
	lastFilter ports.TicketFilter
	lastPage   int
	lastCreate ports.CreateTicketInput
	lastUpdate ports.UpdateTicketInput
	lastAssign string
	principal  *domain.Account
}

func (s *stubTicketService) List(_ context.Context, p *domain.Account, f ports.TicketFilter, page int) (*ports.Page[*domain.Ticket], error) {
	s.principal, s.lastFilter, s.lastPage = p, f, page
	return s.page, s.err
}

func (s *stubTicketService) Get(_ context.Context, p *domain.Account, _ int64) (*domain.Ticket, error) {
	s.principal = p
	return s.ticket, s.err
}

func (s *stubTicketService) Create(_ context.Context, p *domain.Account, in ports.CreateTicketInput) (*ports.CreateTicketResult, error) {
	s.principal, s.lastCreate = p, in
	if s.err != nil {
		return nil, s.err
	}
	return &ports.CreateTicketResult{Ticket: s.ticket, AlreadyExisted: s.existed}, nil
}

func (s *stubTicketService) Update(_ context.Context, p *domain.Account, _ int64, in ports.UpdateTicketInput) (*domain.Ticket, error) {
	s.principal, s.lastUpdate = p, in
	return s.ticket, s.err
}

func (s *stubTicketService) Delete(_ context.Context, p *domain.Account, _ int64) error {
	s.principal = p
	return s.err
}

func (s *stubTicketService) Assign(_ context.Context, p *domain.Account, _ int64, accountID string) (*domain.Ticket, error) {
	s.principal, s.lastAssign = p, accountID
	return s.ticket, s.err
}

func (s *stubTicketService) Mine(_ context.Context, p *domain.Account) ([]*domain.Ticket, error) {
	s.principal = p
	if s.ticket == nil {
		return nil, s.err
	}
	return []*domain.Ticket{s.ticket}, s.err
}

func (s *stubTicketService) Activity(_ context.Context, _ *domain.Account, _ int64) ([]*domain.Activity, error) {
	return []*domain.Activity{{TicketID: 1, Action: domain.ActivityCreated, ActorID: "acct-1"}}, s.err
}

// stubAccountService serves a single fixed account.
type stubAccountService struct {
	account    *domain.Account
	key        string
	err        error
	lastUpdate ports.UpdateAccountInput
	loggedOut  bool
}

func (s *stubAccountService) Register(context.Context, ports.RegisterInput) (*domain.Account, string, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	return s.account, s.key, nil
}

func (s *stubAccountService) Login(context.Context, string, string) (string, *domain.Account, error) {
	if s.err != nil {
		return "", nil, s.err
	}
	return s.key, s.account, nil
}

func (s *stubAccountService) Logout(_ context.Context, p *domain.Account) error {
	if p == nil {
		return domain.ErrNotAuthenticated
	}
	s.loggedOut = true
	return s.err
}

func (s *stubAccountService) ResolveToken(_ context.Context, key string) (*domain.Account, error) {
	if key != s.key {
		return nil, domain.ErrInvalidToken
	}
	return s.account, nil
}

func (s *stubAccountService) Profile(context.Context, *domain.Account) (*domain.Account, error) {
	return s.account, s.err
}

func (s *stubAccountService) ListAccounts(context.Context, *domain.Account, int) (*ports.Page[*domain.Account], error) {
	return &ports.Page[*domain.Account]{Items: []*domain.Account{s.account}, Count: 1, Number: 1, Size: 20}, s.err
}

func (s *stubAccountService) GetAccount(context.Context, *domain.Account, string) (*domain.Account, error) {
	return s.account, s.err
}

func (s *stubAccountService) UpdateAccount(_ context.Context, _ *domain.Account, _ string, in ports.UpdateAccountInput) (*domain.Account, error) {
	s.lastUpdate = in
	return s.account, s.err
}

func (s *stubAccountService) CreateAccount(context.Context, ports.CreateAccountInput) (*domain.Account, error) {
	return s.account, s.err
}

func (s *stubAccountService) DeleteAccount(context.Context, string) error {
	return s.err
}

func sampleAccount() *domain.Account {
	return &domain.Account{
		ID:       "acct-1",
		Username: "alice",
		Email:    "alice@example.com",
		Role:     domain.RoleUser,
		IsActive: true,
	}
}

func sampleTicket() *domain.Ticket {
	creator := sampleAccount()
	return &domain.Ticket{
		ID:          7,
		Title:       "Broken login",
		Description: "Cannot sign in",
		Status:      domain.StatusOpen,
		Priority:    domain.PriorityMedium,
		CreatedByID: creator.ID,
		CreatedBy:   creator,
	}
}

// newContext builds an echo context with the validator installed and,
// optionally, an authenticated principal.
func newContext(method, target, body string, principal *domain.Account) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if principal != nil {
		middleware.SetPrincipal(c, principal)
	}
	return c, rec
}
