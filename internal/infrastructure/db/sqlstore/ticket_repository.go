package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/issuedesk/tracker/internal/core/domain"
	"github.com/issuedesk/tracker/internal/core/ports"
)

var _ ports.TicketRepository = (*TicketRepository)(nil)

// TicketRepository implements ports.TicketRepository with gorm.
type TicketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

func (r *TicketRepository) Create(ctx context.Context, t *domain.Ticket) error {
	m := ticketToModel(t)
	if err := conn(ctx, r.db).Omit(clause.Associations).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return fmt.Errorf("create ticket: %w", domain.ErrAccountNotFound)
		}
		return fmt.Errorf("create ticket: %w", err)
	}
	t.ID, t.CreatedAt, t.UpdatedAt = m.ID, m.CreatedAt, m.UpdatedAt
	return nil
}

// Save writes every mutable column of t. The creator is never rewritten.
func (r *TicketRepository) Save(ctx context.Context, t *domain.Ticket) error {
	m := ticketToModel(t)
	res := conn(ctx, r.db).
		Model(&TicketModel{ID: t.ID}).
		Omit(clause.Associations).
		Select("title", "description", "content", "status", "priority", "assigned_to_id", "resolved_at", "updated_at").
		Updates(m)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrForeignKeyViolated) {
			return fmt.Errorf("save ticket: %w", domain.ErrAccountNotFound)
		}
		return fmt.Errorf("save ticket: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrTicketNotFound
	}
	t.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *TicketRepository) Delete(ctx context.Context, id int64) error {
	res := conn(ctx, r.db).Delete(&TicketModel{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete ticket: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrTicketNotFound
	}
	return nil
}

func (r *TicketRepository) FindByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	var m TicketModel
	if err := withAccounts(conn(ctx, r.db)).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, fmt.Errorf("find ticket: %w", err)
	}
	return ticketToDomain(&m), nil
}

func (r *TicketRepository) List(ctx context.Context, f ports.TicketFilter, offset, limit int) ([]*domain.Ticket, int64, error) {
	filtered := func() *gorm.DB {
		q := conn(ctx, r.db).Model(&TicketModel{})
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		}
		if f.Priority != "" {
			q = q.Where("priority = ?", f.Priority)
		}
		return q
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count tickets: %w", err)
	}

	var models []TicketModel
	if err := withAccounts(newestFirst(filtered())).
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("list tickets: %w", err)
	}
	return ticketsToDomain(models), total, nil
}

func (r *TicketRepository) ListInvolving(ctx context.Context, accountID string) ([]*domain.Ticket, error) {
	var models []TicketModel
	if err := withAccounts(newestFirst(conn(ctx, r.db))).
		Where("created_by_id = ? OR assigned_to_id = ?", accountID, accountID).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list involving tickets: %w", err)
	}
	return ticketsToDomain(models), nil
}

func withAccounts(q *gorm.DB) *gorm.DB {
	return q.Preload("CreatedBy").Preload("AssignedTo")
}

func newestFirst(q *gorm.DB) *gorm.DB {
	return q.Order("created_at DESC").Order("id DESC")
}

func ticketsToDomain(models []TicketModel) []*domain.Ticket {
	tickets := make([]*domain.Ticket, 0, len(models))
	for i := range models {
		tickets = append(tickets, ticketToDomain(&models[i]))
	}
	return tickets
}
