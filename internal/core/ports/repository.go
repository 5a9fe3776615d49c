package ports

import (
	"context"

	"github.com/issuedesk/tracker/internal/core/domain"
)

// AccountRepository persists accounts.
type AccountRepository interface {
	Create(ctx context.Context, a *domain.Account) error
	Update(ctx context.Context, a *domain.Account) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	FindByUsername(ctx context.Context, username string) (*domain.Account, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// List returns accounts newest-joined first together with the total count.
	List(ctx context.Context, offset, limit int) ([]*domain.Account, int64, error)
}

// TokenRepository persists credential tokens, one per account.
type TokenRepository interface {
	Create(ctx context.Context, t *domain.Token) error
	FindByKey(ctx context.Context, key string) (*domain.Token, error)
	FindByAccount(ctx context.Context, accountID string) (*domain.Token, error)
	DeleteByAccount(ctx context.Context, accountID string) error
}

// TicketFilter narrows ticket listings. Empty fields match everything.
type TicketFilter struct {
	Status   string
	Priority string
}

// TicketRepository persists tickets. Reads populate CreatedBy and AssignedTo.
type TicketRepository interface {
	Create(ctx context.Context, t *domain.Ticket) error
	Save(ctx context.Context, t *domain.Ticket) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*domain.Ticket, error)
	// List returns matching tickets newest first together with the total count.
	List(ctx context.Context, f TicketFilter, offset, limit int) ([]*domain.Ticket, int64, error)
	// ListInvolving returns tickets created by or assigned to the account,
	// each at most once, newest first.
	ListInvolving(ctx context.Context, accountID string) ([]*domain.Ticket, error)
}

// Transactor runs fn inside a single storage transaction. Repositories
// invoked with the ctx passed to fn join that transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ActivityRepository stores the ticket audit trail.
type ActivityRepository interface {
	Insert(ctx context.Context, a *domain.Activity) error
	ListByTicket(ctx context.Context, ticketID int64) ([]*domain.Activity, error)
}

// ActivityPublisher hands activity records to asynchronous storage.
type ActivityPublisher interface {
	Publish(a domain.Activity)
}

// IdempotencyStore remembers which ticket an idempotency key produced.
type IdempotencyStore interface {
	Lookup(ctx context.Context, accountID, key string) (int64, bool, error)
	Remember(ctx context.Context, accountID, key string, ticketID int64) error
}
