package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/issuedesk/tracker/internal/core/domain"
	"github.com/issuedesk/tracker/internal/core/ports"
)

var _ ports.AccountRepository = (*AccountRepository)(nil)

// AccountRepository implements ports.AccountRepository with gorm.
type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	m := accountToModel(a)
	if err := conn(ctx, r.db).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("create account %q: %w", a.Username, domain.ErrDuplicate)
		}
		return fmt.Errorf("create account: %w", err)
	}
	a.CreatedAt, a.UpdatedAt = m.CreatedAt, m.UpdatedAt
	return nil
}

func (r *AccountRepository) Update(ctx context.Context, a *domain.Account) error {
	m := accountToModel(a)
	res := conn(ctx, r.db).
		Model(&AccountModel{ID: a.ID}).
		Select("email", "first_name", "last_name", "password", "role", "avatar", "is_active", "is_staff", "updated_at").
		Updates(m)
	if res.Error != nil {
		return fmt.Errorf("update account: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrAccountNotFound
	}
	a.UpdatedAt = m.UpdatedAt
	return nil
}

// Delete removes the account. The database cascades the removal to its
// token and created tickets and unassigns tickets assigned to it.
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	res := conn(ctx, r.db).Delete(&AccountModel{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete account: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.findOne(ctx, "username = ?", username)
}

func (r *AccountRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "username = ?", username)
}

func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "LOWER(email) = LOWER(?)", email)
}

func (r *AccountRepository) List(ctx context.Context, offset, limit int) ([]*domain.Account, int64, error) {
	var total int64
	if err := conn(ctx, r.db).Model(&AccountModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count accounts: %w", err)
	}

	var models []AccountModel
	if err := conn(ctx, r.db).
		Order("date_joined DESC").
		Order("id").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}

	accounts := make([]*domain.Account, 0, len(models))
	for i := range models {
		accounts = append(accounts, accountToDomain(&models[i]))
	}
	return accounts, total, nil
}

func (r *AccountRepository) findOne(ctx context.Context, query string, arg any) (*domain.Account, error) {
	var m AccountModel
	if err := conn(ctx, r.db).Where(query, arg).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return accountToDomain(&m), nil
}

func (r *AccountRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var n int64
	if err := conn(ctx, r.db).Model(&AccountModel{}).Where(query, arg).Count(&n).Error; err != nil {
		return false, fmt.Errorf("check account: %w", err)
	}
	return n > 0, nil
}
