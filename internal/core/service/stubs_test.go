package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/issuedesk/tracker/internal/core/domain"
	"github.com/issuedesk/tracker/internal/core/policy"
	"github.com/issuedesk/tracker/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubAccountRepo struct {
	byID      map[string]*domain.Account
	createErr error
	findErr   error
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{byID: make(map[string]*domain.Account)}
}

func cloneAccount(a *domain.Account) *domain.Account {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

func (r *stubAccountRepo) Create(_ context.Context, a *domain.Account) error {
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.byID {
		if existing.Username == a.Username {
			return domain.ErrDuplicate
		}
	}
	r.byID[a.ID] = cloneAccount(a)
	return nil
}

func (r *stubAccountRepo) Update(_ context.Context, a *domain.Account) error {
	if _, ok := r.byID[a.ID]; !ok {
		return domain.ErrAccountNotFound
	}
	r.byID[a.ID] = cloneAccount(a)
	return nil
}

func (r *stubAccountRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return domain.ErrAccountNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *stubAccountRepo) FindByID(_ context.Context, id string) (*domain.Account, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	a, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return cloneAccount(a), nil
}

func (r *stubAccountRepo) FindByUsername(_ context.Context, username string) (*domain.Account, error) {
	for _, a := range r.byID {
		if a.Username == username {
			return cloneAccount(a), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *stubAccountRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	for _, a := range r.byID {
		if a.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubAccountRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	for _, a := range r.byID {
		if strings.EqualFold(a.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubAccountRepo) List(_ context.Context, offset, limit int) ([]*domain.Account, int64, error) {
	all := make([]*domain.Account, 0, len(r.byID))
	for _, a := range r.byID {
		all = append(all, cloneAccount(a))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].DateJoined.After(all[j].DateJoined) })
	total := int64(len(all))
	if offset >= len(all) {
		return []*domain.Account{}, total, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], total, nil
}

type stubTokenRepo struct {
	byKey     map[string]*domain.Token
	createErr error
	// beforeCreate runs ahead of Create, letting a test slip in a competing row.
	beforeCreate func(r *stubTokenRepo, t *domain.Token)
}

func newStubTokenRepo() *stubTokenRepo {
	return &stubTokenRepo{byKey: make(map[string]*domain.Token)}
}

func (r *stubTokenRepo) Create(_ context.Context, t *domain.Token) error {
	if r.createErr != nil {
		return r.createErr
	}
	if r.beforeCreate != nil {
		r.beforeCreate(r, t)
	}
	for _, existing := range r.byKey {
		if existing.AccountID == t.AccountID {
			return domain.ErrDuplicate
		}
	}
	c := *t
	r.byKey[t.Key] = &c
	return nil
}

func (r *stubTokenRepo) FindByKey(_ context.Context, key string) (*domain.Token, error) {
	t, ok := r.byKey[key]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	c := *t
	return &c, nil
}

func (r *stubTokenRepo) FindByAccount(_ context.Context, accountID string) (*domain.Token, error) {
	for _, t := range r.byKey {
		if t.AccountID == accountID {
			c := *t
			return &c, nil
		}
	}
	return nil, domain.ErrTokenNotFound
}

func (r *stubTokenRepo) DeleteByAccount(_ context.Context, accountID string) error {
	for k, t := range r.byKey {
		if t.AccountID == accountID {
			delete(r.byKey, k)
		}
	}
	return nil
}

type stubTicketRepo struct {
	accounts *stubAccountRepo
	byID     map[int64]*domain.Ticket
	nextID   int64
	saves    int
	saveErr  error
}

func newStubTicketRepo(accounts *stubAccountRepo) *stubTicketRepo {
	return &stubTicketRepo{accounts: accounts, byID: make(map[int64]*domain.Ticket)}
}

func (r *stubTicketRepo) clone(t *domain.Ticket) *domain.Ticket {
	c := *t
	c.CreatedBy = cloneAccount(r.accounts.byID[t.CreatedByID])
	c.AssignedTo = nil
	if t.AssignedToID != nil {
		id := *t.AssignedToID
		c.AssignedToID = &id
		c.AssignedTo = cloneAccount(r.accounts.byID[id])
	}
	return &c
}

func (r *stubTicketRepo) Create(_ context.Context, t *domain.Ticket) error {
	r.nextID++
	t.ID = r.nextID
	r.byID[t.ID] = r.clone(t)
	return nil
}

func (r *stubTicketRepo) Save(_ context.Context, t *domain.Ticket) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	if _, ok := r.byID[t.ID]; !ok {
		return domain.ErrTicketNotFound
	}
	r.saves++
	r.byID[t.ID] = r.clone(t)
	return nil
}

func (r *stubTicketRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.byID[id]; !ok {
		return domain.ErrTicketNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *stubTicketRepo) FindByID(_ context.Context, id int64) (*domain.Ticket, error) {
	t, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	return r.clone(t), nil
}

func (r *stubTicketRepo) sorted(keep func(*domain.Ticket) bool) []*domain.Ticket {
	out := make([]*domain.Ticket, 0, len(r.byID))
	for _, t := range r.byID {
		if keep(t) {
			out = append(out, r.clone(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r *stubTicketRepo) List(_ context.Context, f ports.TicketFilter, offset, limit int) ([]*domain.Ticket, int64, error) {
	all := r.sorted(func(t *domain.Ticket) bool {
		return (f.Status == "" || string(t.Status) == f.Status) &&
			(f.Priority == "" || string(t.Priority) == f.Priority)
	})
	total := int64(len(all))
	if offset >= len(all) {
		return []*domain.Ticket{}, total, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], total, nil
}

func (r *stubTicketRepo) ListInvolving(_ context.Context, accountID string) ([]*domain.Ticket, error) {
	return r.sorted(func(t *domain.Ticket) bool {
		return t.CreatedByID == accountID || (t.AssignedToID != nil && *t.AssignedToID == accountID)
	}), nil
}

// stubTx runs fn inline; stubs have no rollback.
type stubTx struct {
	calls int
}

func (s *stubTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.calls++
	return fn(ctx)
}

type stubActivity struct {
	mu        sync.Mutex
	published []domain.Activity
}

func (s *stubActivity) Publish(a domain.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, a)
}

func (s *stubActivity) Insert(_ context.Context, a *domain.Activity) error {
	s.Publish(*a)
	return nil
}

func (s *stubActivity) ListByTicket(_ context.Context, ticketID int64) ([]*domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Activity
	for i := range s.published {
		if s.published[i].TicketID == ticketID {
			a := s.published[i]
			out = append(out, &a)
		}
	}
	return out, nil
}

type stubIdempotency struct {
	keys      map[string]int64
	lookupErr error
}

func newStubIdempotency() *stubIdempotency {
	return &stubIdempotency{keys: make(map[string]int64)}
}

func (s *stubIdempotency) Lookup(_ context.Context, accountID, key string) (int64, bool, error) {
	if s.lookupErr != nil {
		return 0, false, s.lookupErr
	}
	id, ok := s.keys[accountID+":"+key]
	return id, ok, nil
}

func (s *stubIdempotency) Remember(_ context.Context, accountID, key string, ticketID int64) error {
	s.keys[accountID+":"+key] = ticketID
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func testPolicy(t *testing.T) *policy.Policy {
	t.Helper()
	p, err := policy.New()
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	return p
}

func seedAccount(repo *stubAccountRepo, id string, role domain.Role) *domain.Account {
	a := &domain.Account{
		ID:       id,
		Username: id,
		Email:    id + "@example.com",
		Role:     role,
		IsActive: true,
	}
	repo.byID[id] = cloneAccount(a)
	return a
}

func ptr[T any](v T) *T { return &v }
