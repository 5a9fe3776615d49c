package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/issuedesk/tracker/internal/core/domain"
	"github.com/issuedesk/tracker/internal/core/ports"
)

var _ ports.AccountService = (*AccountService)(nil)

// AccountService implements registration, credential tokens and account
// reads on top of the account and token repositories.
type AccountService struct {
	accounts ports.AccountRepository
	tokens   ports.TokenRepository
	tx       ports.Transactor
	policy   ports.Authorizer
	pageSize int
	logger   zerolog.Logger
}

func NewAccountService(
	accounts ports.AccountRepository,
	tokens ports.TokenRepository,
	tx ports.Transactor,
	policy ports.Authorizer,
	pageSize int,
	logger zerolog.Logger,
) *AccountService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &AccountService{
		accounts: accounts,
		tokens:   tokens,
		tx:       tx,
		policy:   policy,
		pageSize: pageSize,
		logger:   logger,
	}
}

// Register creates a user-role account and its first token in one
// transaction.
func (s *AccountService) Register(ctx context.Context, in ports.RegisterInput) (*domain.Account, string, error) {
	ve := domain.NewValidationError()
	checkUsername(ve, in.Username)
	email := checkEmail(ve, in.Email)
	checkPassword(ve, "password", in.Password)
	checkPassword(ve, "password_confirm", in.PasswordConfirm)
	checkNames(ve, in.FirstName, in.LastName)
	if !ve.Has("password") && !ve.Has("password_confirm") && in.Password != in.PasswordConfirm {
		ve.Add("password", msgPasswordMatch)
	}
	if err := s.checkUnique(ctx, ve, in.Username, email); err != nil {
		return nil, "", err
	}
	if err := ve.OrNil(); err != nil {
		return nil, "", err
	}

	account, err := s.newAccount(in.Username, email, in.Password, in.FirstName, in.LastName, domain.RoleUser, false)
	if err != nil {
		return nil, "", err
	}

	var key string
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.accounts.Create(ctx, account); err != nil {
			return err
		}
		tok, err := s.issueToken(ctx, account.ID)
		if err != nil {
			return err
		}
		key = tok.Key
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, "", domain.FieldError("username", "A user with that username already exists.")
		}
		s.logger.Error().Err(err).Str("username", in.Username).Msg("failed to register account")
		return nil, "", err
	}

	s.logger.Info().Str("account_id", account.ID).Str("username", account.Username).Msg("account registered")
	return account, key, nil
}

// Login verifies credentials and returns the account's token, creating it
// when the account has none.
func (s *AccountService) Login(ctx context.Context, username, password string) (string, *domain.Account, error) {
	ve := domain.NewValidationError()
	if username == "" {
		ve.Add("username", msgRequired)
	}
	if password == "" {
		ve.Add("password", msgRequired)
	}
	if err := ve.OrNil(); err != nil {
		return "", nil, err
	}

	account, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !account.IsActive {
		return "", nil, domain.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		s.logger.Warn().Str("username", username).Msg("login rejected: bad password")
		return "", nil, domain.ErrInvalidCredentials
	}

	var key string
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		tok, err := s.tokens.FindByAccount(ctx, account.ID)
		if errors.Is(err, domain.ErrTokenNotFound) {
			tok, err = s.issueToken(ctx, account.ID)
		}
		if err != nil {
			return err
		}
		key = tok.Key
		return nil
	})
	if errors.Is(err, domain.ErrDuplicate) {
		// A concurrent login issued the token first.
		var tok *domain.Token
		tok, err = s.tokens.FindByAccount(ctx, account.ID)
		if err == nil {
			key = tok.Key
		}
	}
	if err != nil {
		return "", nil, err
	}

	return key, account, nil
}

// Logout revokes the principal's token.
func (s *AccountService) Logout(ctx context.Context, principal *domain.Account) error {
	if err := s.policy.Authorize(principal, domain.ResourceAccount, domain.ActionLogout); err != nil {
		return err
	}
	if err := s.tokens.DeleteByAccount(ctx, principal.ID); err != nil {
		return err
	}
	s.logger.Info().Str("account_id", principal.ID).Msg("token revoked")
	return nil
}

// ResolveToken returns the active account owning key.
func (s *AccountService) ResolveToken(ctx context.Context, key string) (*domain.Account, error) {
	if key == "" {
		return nil, domain.ErrInvalidToken
	}

	tok, err := s.tokens.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}

	account, err := s.accounts.FindByID(ctx, tok.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}
	if !account.IsActive {
		return nil, domain.ErrInvalidToken
	}
	return account, nil
}

func (s *AccountService) Profile(ctx context.Context, principal *domain.Account) (*domain.Account, error) {
	if err := s.policy.Authorize(principal, domain.ResourceAccount, domain.ActionMe); err != nil {
		return nil, err
	}
	return s.accounts.FindByID(ctx, principal.ID)
}

func (s *AccountService) ListAccounts(ctx context.Context, principal *domain.Account, page int) (*ports.Page[*domain.Account], error) {
	if err := s.policy.Authorize(principal, domain.ResourceAccount, domain.ActionList); err != nil {
		return nil, err
	}
	offset, err := pageOffset(page, s.pageSize)
	if err != nil {
		return nil, err
	}
	accounts, total, err := s.accounts.List(ctx, offset, s.pageSize)
	if err != nil {
		return nil, err
	}
	return newPage(accounts, total, page, s.pageSize)
}

func (s *AccountService) GetAccount(ctx context.Context, principal *domain.Account, id string) (*domain.Account, error) {
	if err := s.policy.Authorize(principal, domain.ResourceAccount, domain.ActionView); err != nil {
		return nil, err
	}
	return s.accounts.FindByID(ctx, id)
}

// UpdateAccount edits profile fields. Owners may edit themselves; editing
// others or changing a role requires the admin role.
func (s *AccountService) UpdateAccount(ctx context.Context, principal *domain.Account, id string, in ports.UpdateAccountInput) (*domain.Account, error) {
	action := domain.ActionUpdate
	if principal != nil && principal.ID == id {
		action = domain.ActionUpdateSelf
	}
	if err := s.policy.Authorize(principal, domain.ResourceAccount, action); err != nil {
		return nil, err
	}

	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ve := domain.NewValidationError()
	if in.Email != nil {
		email := checkEmail(ve, *in.Email)
		if !ve.Has("email") && !strings.EqualFold(email, account.Email) {
			taken, err := s.accounts.ExistsByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			if taken {
				ve.Add("email", "A user with that email already exists.")
			}
		}
		account.Email = email
	}
	if in.FirstName != nil {
		account.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		account.LastName = *in.LastName
	}
	checkNames(ve, account.FirstName, account.LastName)
	if in.Role != nil && *in.Role != account.Role {
		if err := s.policy.Authorize(principal, domain.ResourceAccount, domain.ActionChangeRole); err != nil {
			return nil, err
		}
		if !in.Role.Valid() {
			ve.Add("role", invalidChoice(string(*in.Role)))
		}
		account.Role = *in.Role
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	account.UpdatedAt = time.Now().UTC()
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// CreateAccount provisions an account without issuing a token. It is meant
// for operators and bypasses the access policy.
func (s *AccountService) CreateAccount(ctx context.Context, in ports.CreateAccountInput) (*domain.Account, error) {
	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}

	ve := domain.NewValidationError()
	checkUsername(ve, in.Username)
	email := checkEmail(ve, in.Email)
	checkPassword(ve, "password", in.Password)
	checkNames(ve, in.FirstName, in.LastName)
	if !role.Valid() {
		ve.Add("role", invalidChoice(string(role)))
	}
	if err := s.checkUnique(ctx, ve, in.Username, email); err != nil {
		return nil, err
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	account, err := s.newAccount(in.Username, email, in.Password, in.FirstName, in.LastName, role, in.IsStaff)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info().Str("account_id", account.ID).Str("role", string(role)).Msg("account created")
	return account, nil
}

// DeleteAccount removes an account together with the tickets it created.
func (s *AccountService) DeleteAccount(ctx context.Context, id string) error {
	if err := s.accounts.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Warn().Str("account_id", id).Msg("account deleted")
	return nil
}

func (s *AccountService) checkUnique(ctx context.Context, ve *domain.ValidationError, username, email string) error {
	if !ve.Has("username") {
		taken, err := s.accounts.ExistsByUsername(ctx, username)
		if err != nil {
			return err
		}
		if taken {
			ve.Add("username", "A user with that username already exists.")
		}
	}
	if !ve.Has("email") {
		taken, err := s.accounts.ExistsByEmail(ctx, email)
		if err != nil {
			return err
		}
		if taken {
			ve.Add("email", "A user with that email already exists.")
		}
	}
	return nil
}

func (s *AccountService) newAccount(username, email, password, firstName, lastName string, role domain.Role, staff bool) (*domain.Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	return &domain.Account{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
		IsStaff:      staff,
		DateJoined:   now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *AccountService) issueToken(ctx context.Context, accountID string) (*domain.Token, error) {
	key, err := generateTokenKey()
	if err != nil {
		return nil, err
	}
	tok := &domain.Token{Key: key, AccountID: accountID, CreatedAt: time.Now().UTC()}
	if err := s.tokens.Create(ctx, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// generateTokenKey returns 20 random bytes hex-encoded.
func generateTokenKey() (string, error) {
	b := make([]byte, domain.TokenKeyLength/2)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func checkNames(ve *domain.ValidationError, first, last string) {
	if len([]rune(first)) > maxNameLength {
		ve.Add("first_name", fmt.Sprintf("Ensure this field has no more than %d characters.", maxNameLength))
	}
	if len([]rune(last)) > maxNameLength {
		ve.Add("last_name", fmt.Sprintf("Ensure this field has no more than %d characters.", maxNameLength))
	}
}
