package sqlstore

import (
	"time"

	"github.com/issuedesk/tracker/internal/core/domain"
)

// AccountModel is the users table row.
type AccountModel struct {
	ID         string    `gorm:"primaryKey;size:36"`
	Username   string    `gorm:"size:150;not null;uniqueIndex"`
	Email      string    `gorm:"size:254;not null;index"`
	FirstName  string    `gorm:"size:150;not null"`
	LastName   string    `gorm:"size:150;not null"`
	Password   string    `gorm:"size:128;not null"`
	Role       string    `gorm:"size:20;not null;index"`
	Avatar     string    `gorm:"size:255;not null"`
	IsActive   bool      `gorm:"not null"`
	IsStaff    bool      `gorm:"not null"`
	DateJoined time.Time `gorm:"not null;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (AccountModel) TableName() string { return "users" }

// TokenModel is the authtoken_token table row.
type TokenModel struct {
	Key       string        `gorm:"primaryKey;size:40"`
	AccountID string        `gorm:"size:36;not null;uniqueIndex"`
	Account   *AccountModel `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

func (TokenModel) TableName() string { return "authtoken_token" }

// TicketModel is the tickets table row.
type TicketModel struct {
	ID           int64         `gorm:"primaryKey;autoIncrement"`
	Title        string        `gorm:"size:200;not null"`
	Description  string        `gorm:"type:text;not null"`
	Content      string        `gorm:"type:text;not null"`
	Status       string        `gorm:"size:20;not null;index"`
	Priority     string        `gorm:"size:20;not null;index"`
	CreatedByID  string        `gorm:"size:36;not null;index"`
	CreatedBy    *AccountModel `gorm:"foreignKey:CreatedByID;constraint:OnDelete:CASCADE"`
	AssignedToID *string       `gorm:"size:36;index"`
	AssignedTo   *AccountModel `gorm:"foreignKey:AssignedToID;constraint:OnDelete:SET NULL"`
	CreatedAt    time.Time     `gorm:"index"`
	UpdatedAt    time.Time
	ResolvedAt   *time.Time
}

func (TicketModel) TableName() string { return "tickets" }

func accountToModel(a *domain.Account) *AccountModel {
	return &AccountModel{
		ID:         a.ID,
		Username:   a.Username,
		Email:      a.Email,
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		Password:   a.PasswordHash,
		Role:       string(a.Role),
		Avatar:     a.Avatar,
		IsActive:   a.IsActive,
		IsStaff:    a.IsStaff,
		DateJoined: a.DateJoined,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

func accountToDomain(m *AccountModel) *domain.Account {
	if m == nil {
		return nil
	}
	return &domain.Account{
		ID:           m.ID,
		Username:     m.Username,
		Email:        m.Email,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		PasswordHash: m.Password,
		Role:         domain.Role(m.Role),
		Avatar:       m.Avatar,
		IsActive:     m.IsActive,
		IsStaff:      m.IsStaff,
		DateJoined:   m.DateJoined,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func tokenToDomain(m *TokenModel) *domain.Token {
	return &domain.Token{Key: m.Key, AccountID: m.AccountID, CreatedAt: m.CreatedAt}
}

func ticketToModel(t *domain.Ticket) *TicketModel {
	return &TicketModel{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		Content:      t.Content,
		Status:       string(t.Status),
		Priority:     string(t.Priority),
		CreatedByID:  t.CreatedByID,
		AssignedToID: t.AssignedToID,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		ResolvedAt:   t.ResolvedAt,
	}
}

func ticketToDomain(m *TicketModel) *domain.Ticket {
	return &domain.Ticket{
		ID:           m.ID,
		Title:        m.Title,
		Description:  m.Description,
		Content:      m.Content,
		Status:       domain.TicketStatus(m.Status),
		Priority:     domain.TicketPriority(m.Priority),
		CreatedByID:  m.CreatedByID,
		CreatedBy:    accountToDomain(m.CreatedBy),
		AssignedToID: m.AssignedToID,
		AssignedTo:   accountToDomain(m.AssignedTo),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
		ResolvedAt:   m.ResolvedAt,
	}
}
