package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/issuedesk/tracker/internal/core/domain"
	"github.com/issuedesk/tracker/internal/core/ports"
)

var _ ports.TokenRepository = (*TokenRepository)(nil)

// TokenRepository implements ports.TokenRepository with gorm.
type TokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Create(ctx context.Context, t *domain.Token) error {
	m := &TokenModel{Key: t.Key, AccountID: t.AccountID, CreatedAt: t.CreatedAt}
	if err := conn(ctx, r.db).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("create token: %w", domain.ErrDuplicate)
		}
		return fmt.Errorf("create token: %w", err)
	}
	t.CreatedAt = m.CreatedAt
	return nil
}

func (r *TokenRepository) FindByKey(ctx context.Context, key string) (*domain.Token, error) {
	return r.findOne(ctx, `"key" = ?`, key)
}

func (r *TokenRepository) FindByAccount(ctx context.Context, accountID string) (*domain.Token, error) {
	return r.findOne(ctx, "account_id = ?", accountID)
}

func (r *TokenRepository) DeleteByAccount(ctx context.Context, accountID string) error {
	if err := conn(ctx, r.db).Delete(&TokenModel{}, "account_id = ?", accountID).Error; err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

func (r *TokenRepository) findOne(ctx context.Context, query string, arg any) (*domain.Token, error) {
	var m TokenModel
	if err := conn(ctx, r.db).Where(query, arg).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("find token: %w", err)
	}
	return tokenToDomain(&m), nil
}
