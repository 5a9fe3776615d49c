package ports

import (
	"context"

	"github.com/issuedesk/tracker/internal/core/domain"
)

// RegisterInput carries a self-service registration request.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
	FirstName       string
	LastName        string
}

// CreateAccountInput carries an operator-issued account creation.
type CreateAccountInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      domain.Role
	IsStaff   bool
}

// UpdateAccountInput carries a partial account update. Nil fields are left
// untouched.
type UpdateAccountInput struct {
	Email     *string
	FirstName *string
	LastName  *string
	Role      *domain.Role
}

// Page is one slice of a paginated listing. Number is 1-based.
type Page[T any] struct {
	Items    []T
	Count    int64
	Number   int
	Size     int
	HasNext  bool
	HasPrior bool
}

// AccountService covers registration, credentials and account reads.
type AccountService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.Account, string, error)
	Login(ctx context.Context, username, password string) (string, *domain.Account, error)
	Logout(ctx context.Context, principal *domain.Account) error
	ResolveToken(ctx context.Context, key string) (*domain.Account, error)
	Profile(ctx context.Context, principal *domain.Account) (*domain.Account, error)
	ListAccounts(ctx context.Context, principal *domain.Account, page int) (*Page[*domain.Account], error)
	GetAccount(ctx context.Context, principal *domain.Account, id string) (*domain.Account, error)
	UpdateAccount(ctx context.Context, principal *domain.Account, id string, in UpdateAccountInput) (*domain.Account, error)
	CreateAccount(ctx context.Context, in CreateAccountInput) (*domain.Account, error)
	DeleteAccount(ctx context.Context, id string) error
}

// CreateTicketInput carries a new ticket. Priority may be empty.
type CreateTicketInput struct {
	Title          string
	Description    string
	Priority       string
	IdempotencyKey string
}

// UpdateTicketInput carries a full or partial ticket update. Nil fields are
// left untouched; ClearAssignee unassigns the ticket. CreatedBy is set when
// the caller attempted to change the creator.
type UpdateTicketInput struct {
	Title         *string
	Description   *string
	Status        *string
	Priority      *string
	AssignedTo    *string
	ClearAssignee bool
	CreatedBy     bool
	Partial       bool
}

// CreateTicketResult reports whether an idempotent replay was served.
type CreateTicketResult struct {
	Ticket         *domain.Ticket
	AlreadyExisted bool
}

// TicketService covers the ticket lifecycle.
type TicketService interface {
	List(ctx context.Context, principal *domain.Account, f TicketFilter, page int) (*Page[*domain.Ticket], error)
	Get(ctx context.Context, principal *domain.Account, id int64) (*domain.Ticket, error)
	Create(ctx context.Context, principal *domain.Account, in CreateTicketInput) (*CreateTicketResult, error)
	Update(ctx context.Context, principal *domain.Account, id int64, in UpdateTicketInput) (*domain.Ticket, error)
	Delete(ctx context.Context, principal *domain.Account, id int64) error
	Assign(ctx context.Context, principal *domain.Account, id int64, accountID string) (*domain.Ticket, error)
	Mine(ctx context.Context, principal *domain.Account) ([]*domain.Ticket, error)
	Activity(ctx context.Context, principal *domain.Account, id int64) ([]*domain.Activity, error)
}

// Authorizer decides whether a principal may perform an action. A nil
// principal is anonymous. Denials are domain.ErrNotAuthenticated for
// anonymous callers and domain.ErrForbidden otherwise.
type Authorizer interface {
	Authorize(principal *domain.Account, resource domain.Resource, action domain.Action) error
}
