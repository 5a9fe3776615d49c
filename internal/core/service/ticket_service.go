package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/issuedesk/tracker/internal/core/domain"
	"github.com/issuedesk/tracker/internal/core/ports"
)

var _ ports.TicketService = (*TicketService)(nil)

// TicketService implements the ticket lifecycle. Every operation consults
// the access policy first; mutations run inside one transaction.
type TicketService struct {
	tickets     ports.TicketRepository
	accounts    ports.AccountRepository
	tx          ports.Transactor
	policy      ports.Authorizer
	publisher   ports.ActivityPublisher
	history     ports.ActivityRepository
	idempotency ports.IdempotencyStore
	pageSize    int
	logger      zerolog.Logger
}

// TicketOption customises a TicketService.
type TicketOption func(*TicketService)

// WithActivity records ticket changes through pub and serves the trail
// from repo.
func WithActivity(pub ports.ActivityPublisher, repo ports.ActivityRepository) TicketOption {
	return func(s *TicketService) {
		s.publisher = pub
		s.history = repo
	}
}

// WithIdempotency enables Idempotency-Key replays on create.
func WithIdempotency(store ports.IdempotencyStore) TicketOption {
	return func(s *TicketService) { s.idempotency = store }
}

// WithPageSize overrides DefaultPageSize for listings.
func WithPageSize(n int) TicketOption {
	return func(s *TicketService) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

func NewTicketService(
	tickets ports.TicketRepository,
	accounts ports.AccountRepository,
	tx ports.Transactor,
	policy ports.Authorizer,
	logger zerolog.Logger,
	opts ...TicketOption,
) *TicketService {
	s := &TicketService{
		tickets:   tickets,
		accounts:  accounts,
		tx:        tx,
		policy:    policy,
		publisher: discardActivity{},
		history:   discardActivity{},
		pageSize:  DefaultPageSize,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TicketService) List(ctx context.Context, principal *domain.Account, f ports.TicketFilter, page int) (*ports.Page[*domain.Ticket], error) {
	if err := s.policy.Authorize(principal, domain.ResourceTicket, domain.ActionList); err != nil {
		return nil, err
	}
	offset, err := pageOffset(page, s.pageSize)
	if err != nil {
		return nil, err
	}
	tickets, total, err := s.tickets.List(ctx, f, offset, s.pageSize)
	if err != nil {
		return nil, err
	}
	return newPage(tickets, total, page, s.pageSize)
}

func (s *TicketService) Get(ctx context.Context, principal *domain.Account, id int64) (*domain.Ticket, error) {
	if err := s.policy.Authorize(principal, domain.ResourceTicket, domain.ActionView); err != nil {
		return nil, err
	}
	return s.tickets.FindByID(ctx, id)
}

// Create opens a ticket owned by principal. Status always starts as open.
// When an idempotency key was already used by the same principal, the
// ticket created then is returned instead.
func (s *TicketService) Create(ctx context.Context, principal *domain.Account, in ports.CreateTicketInput) (*ports.CreateTicketResult, error) {
	if err := s.policy.Authorize(principal, domain.ResourceTicket, domain.ActionCreate); err != nil {
		return nil, err
	}

	if replay := s.replay(ctx, principal.ID, in.IdempotencyKey); replay != nil {
		return &ports.CreateTicketResult{Ticket: replay, AlreadyExisted: true}, nil
	}

	ve := domain.NewValidationError()
	title := requireText(ve, "title", in.Title, domain.TitleMaxLength)
	description := requireText(ve, "description", in.Description, 0)
	priority := domain.PriorityMedium
	if in.Priority != "" {
		priority = domain.TicketPriority(in.Priority)
		if !priority.Valid() {
			ve.Add("priority", invalidChoice(in.Priority))
		}
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	ticket := &domain.Ticket{
		Title:       title,
		Description: description,
		Status:      domain.StatusOpen,
		Priority:    priority,
		CreatedByID: principal.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var created *domain.Ticket
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.tickets.Create(ctx, ticket); err != nil {
			return err
		}
		var err error
		created, err = s.tickets.FindByID(ctx, ticket.ID)
		return err
	})
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", principal.ID).Msg("failed to create ticket")
		return nil, err
	}

	if in.IdempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.Remember(ctx, principal.ID, in.IdempotencyKey, created.ID); err != nil {
			s.logger.Warn().Err(err).Str("idempotency_key", in.IdempotencyKey).Msg("failed to store idempotency key")
		}
	}

	s.logger.Info().Int64("ticket_id", created.ID).Str("account_id", principal.ID).Msg("ticket created")
	s.record(created.ID, domain.ActivityCreated, principal.ID, map[string]any{
		"title":    created.Title,
		"status":   string(created.Status),
		"priority": string(created.Priority),
	})

	return &ports.CreateTicketResult{Ticket: created}, nil
}

// Update applies a full or partial change. Nothing is written unless every
// field validates.
func (s *TicketService) Update(ctx context.Context, principal *domain.Account, id int64, in ports.UpdateTicketInput) (*domain.Ticket, error) {
	if err := s.policy.Authorize(principal, domain.ResourceTicket, domain.ActionUpdate); err != nil {
		return nil, err
	}

	var (
		updated *domain.Ticket
		changes map[string]any
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ticket, err := s.tickets.FindByID(ctx, id)
		if err != nil {
			return err
		}

		changes, err = s.applyUpdate(ctx, ticket, in)
		if err != nil {
			return err
		}

		ticket.UpdatedAt = time.Now().UTC()
		if err := s.tickets.Save(ctx, ticket); err != nil {
			return err
		}
		updated, err = s.tickets.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("ticket_id", id).Str("account_id", principal.ID).Msg("ticket updated")
	s.record(id, domain.ActivityUpdated, principal.ID, changes)
	return updated, nil
}

// applyUpdate validates in and copies it onto t, returning the changed
// fields.
func (s *TicketService) applyUpdate(ctx context.Context, t *domain.Ticket, in ports.UpdateTicketInput) (map[string]any, error) {
	ve := domain.NewValidationError()
	changes := make(map[string]any)

	if in.CreatedBy {
		ve.Add("created_by", msgReadOnly)
	}
	if !in.Partial {
		if in.Title == nil {
			ve.Add("title", msgRequired)
		}
		if in.Description == nil {
			ve.Add("description", msgRequired)
		}
	}

	if in.Title != nil {
		if title := requireText(ve, "title", *in.Title, domain.TitleMaxLength); title != t.Title {
			t.Title = title
			changes["title"] = title
		}
	}
	if in.Description != nil {
		if desc := requireText(ve, "description", *in.Description, 0); desc != t.Description {
			t.Description = desc
			changes["description"] = desc
		}
	}
	if in.Status != nil {
		status := domain.TicketStatus(*in.Status)
		if !status.Valid() {
			ve.Add("status", invalidChoice(*in.Status))
		} else if status != t.Status {
			t.Status = status
			changes["status"] = string(status)
		}
	}
	if in.Priority != nil {
		priority := domain.TicketPriority(*in.Priority)
		if !priority.Valid() {
			ve.Add("priority", invalidChoice(*in.Priority))
		} else if priority != t.Priority {
			t.Priority = priority
			changes["priority"] = string(priority)
		}
	}

	switch {
	case in.ClearAssignee:
		if t.AssignedToID != nil {
			t.AssignedToID = nil
			changes["assigned_to"] = nil
		}
	case in.AssignedTo != nil:
		assignee, err := s.accounts.FindByID(ctx, *in.AssignedTo)
		switch {
		case errors.Is(err, domain.ErrAccountNotFound):
			ve.Add("assigned_to", fmt.Sprintf("Invalid pk %q - object does not exist.", *in.AssignedTo))
		case err != nil:
			return nil, err
		default:
			t.AssignedToID = &assignee.ID
			changes["assigned_to"] = assignee.ID
		}
	}

	if err := ve.OrNil(); err != nil {
		return nil, err
	}
	return changes, nil
}

func (s *TicketService) Delete(ctx context.Context, principal *domain.Account, id int64) error {
	if err := s.policy.Authorize(principal, domain.ResourceTicket, domain.ActionDelete); err != nil {
		return err
	}
	if err := s.tickets.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Int64("ticket_id", id).Str("account_id", principal.ID).Msg("ticket deleted")
	s.record(id, domain.ActivityDeleted, principal.ID, nil)
	return nil
}

// Assign sets the ticket's assignee. The ticket is untouched when either
// the ticket or the account does not exist.
func (s *TicketService) Assign(ctx context.Context, principal *domain.Account, id int64, accountID string) (*domain.Ticket, error) {
	if err := s.policy.Authorize(principal, domain.ResourceTicket, domain.ActionAssign); err != nil {
		return nil, err
	}

	var updated *domain.Ticket
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ticket, err := s.tickets.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if strings.TrimSpace(accountID) == "" {
			return domain.ErrAccountNotFound
		}
		assignee, err := s.accounts.FindByID(ctx, accountID)
		if err != nil {
			return err
		}

		ticket.AssignedToID = &assignee.ID
		ticket.UpdatedAt = time.Now().UTC()
		if err := s.tickets.Save(ctx, ticket); err != nil {
			return err
		}
		updated, err = s.tickets.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("ticket_id", id).Str("assignee_id", accountID).Msg("ticket assigned")
	s.record(id, domain.ActivityAssigned, principal.ID, map[string]any{"assigned_to": accountID})
	return updated, nil
}

// Mine lists tickets the principal created or is assigned to.
func (s *TicketService) Mine(ctx context.Context, principal *domain.Account) ([]*domain.Ticket, error) {
	if err := s.policy.Authorize(principal, domain.ResourceTicket, domain.ActionMine); err != nil {
		return nil, err
	}
	return s.tickets.ListInvolving(ctx, principal.ID)
}

// Activity returns the recorded trail of an existing ticket, oldest first.
func (s *TicketService) Activity(ctx context.Context, principal *domain.Account, id int64) ([]*domain.Activity, error) {
	if err := s.policy.Authorize(principal, domain.ResourceTicket, domain.ActionView); err != nil {
		return nil, err
	}
	if _, err := s.tickets.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.history.ListByTicket(ctx, id)
}

// replay looks up a ticket previously created under key. Store failures
// are logged and treated as a miss.
func (s *TicketService) replay(ctx context.Context, accountID, key string) *domain.Ticket {
	if key == "" || s.idempotency == nil {
		return nil
	}

	id, ok, err := s.idempotency.Lookup(ctx, accountID, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("idempotency_key", key).Msg("idempotency lookup failed")
		return nil
	}
	if !ok {
		return nil
	}

	ticket, err := s.tickets.FindByID(ctx, id)
	if err != nil {
		return nil
	}
	s.logger.Info().Str("idempotency_key", key).Int64("ticket_id", id).Msg("idempotent replay")
	return ticket
}

func (s *TicketService) record(ticketID int64, action domain.ActivityAction, actorID string, changes map[string]any) {
	s.publisher.Publish(domain.Activity{
		TicketID:   ticketID,
		Action:     action,
		ActorID:    actorID,
		Changes:    changes,
		OccurredAt: time.Now().UTC(),
	})
}

// discardActivity is used when no activity store is configured.
type discardActivity struct{}

func (discardActivity) Publish(domain.Activity) {}

func (discardActivity) Insert(context.Context, *domain.Activity) error { return nil }

func (discardActivity) ListByTicket(context.Context, int64) ([]*domain.Activity, error) {
	return []*domain.Activity{}, nil
}
