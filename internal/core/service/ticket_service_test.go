package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/issuedesk/tracker/internal/core/domain"
	"github.com/issuedesk/tracker/internal/core/ports"
)

type ticketFixture struct {
	accounts *stubAccountRepo
	tickets  *stubTicketRepo
	activity *stubActivity
	idem     *stubIdempotency
	svc      *TicketService
}

func newTicketFixture(t *testing.T) *ticketFixture {
	t.Helper()
	f := &ticketFixture{
		accounts: newStubAccountRepo(),
		activity: &stubActivity{},
		idem:     newStubIdempotency(),
	}
	f.tickets = newStubTicketRepo(f.accounts)
	f.svc = NewTicketService(f.tickets, f.accounts, &stubTx{}, testPolicy(t), zerolog.Nop(),
		WithActivity(f.activity, f.activity),
		WithIdempotency(f.idem),
		WithPageSize(2),
	)
	return f
}

func (f *ticketFixture) create(t *testing.T, principal *domain.Account, title string) *domain.Ticket {
	t.Helper()
	res, err := f.svc.Create(context.Background(), principal, ports.CreateTicketInput{
		Title:       title,
		Description: "details",
	})
	if err != nil {
		t.Fatalf("create %q: %v", title, err)
	}
	return res.Ticket
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestTicketService_Create_Defaults(t *testing.T) {
	f := newTicketFixture(t)
	alice := seedAccount(f.accounts, "alice", domain.RoleUser)

	res, err := f.svc.Create(context.Background(), alice, ports.CreateTicketInput{
		Title:       "  Printer on fire  ",
		Description: "Third floor",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tk := res.Ticket
	if tk.Status != domain.StatusOpen {
		t.Errorf("expected status open, got %s", tk.Status)
	}
	if tk.Priority != domain.PriorityMedium {
		t.Errorf("expected default priority medium, got %s", tk.Priority)
	}
	if tk.CreatedByID != alice.ID || tk.CreatedBy == nil || tk.CreatedBy.Username != "alice" {
		t.Errorf("expected creator alice, got %+v", tk.CreatedBy)
	}
	if tk.Title != "Printer on fire" {
		t.Errorf("expected trimmed title, got %q", tk.Title)
	}
	if len(f.activity.published) != 1 || f.activity.published[0].Action != domain.ActivityCreated {
		t.Errorf("expected created activity, got %+v", f.activity.published)
	}
}

func TestTicketService_Create_Validation(t *testing.T) {
	f := newTicketFixture(t)
	alice := seedAccount(f.accounts, "alice", domain.RoleUser)

	cases := []struct {
		name  string
		in    ports.CreateTicketInput
		field string
	}{
		{"blank title", ports.CreateTicketInput{Title: "   ", Description: "d"}, "title"},
		{"blank description", ports.CreateTicketInput{Title: "t"}, "description"},
		{"long title", ports.CreateTicketInput{Title: strings.Repeat("x", domain.TitleMaxLength+1), Description: "d"}, "title"},
		{"bad priority", ports.CreateTicketInput{Title: "t", Description: "d", Priority: "urgent"}, "priority"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), alice, tc.in)
			if !fieldErrorsIs(err, tc.field) {
				t.Fatalf("expected %s error, got %v", tc.field, err)
			}
		})
	}
	if len(f.tickets.byID) != 0 {
		t.Fatalf("expected no tickets, got %d", len(f.tickets.byID))
	}
}

func TestTicketService_Create_TitleAtLimit(t *testing.T) {
	f := newTicketFixture(t)
	alice := seedAccount(f.accounts, "alice", domain.RoleUser)

	_, err := f.svc.Create(context.Background(), alice, ports.CreateTicketInput{
		Title:       strings.Repeat("é", domain.TitleMaxLength),
		Description: "d",
	})
	if err != nil {
		t.Fatalf("expected %d-character title to be accepted: %v", domain.TitleMaxLength, err)
	}
}

func TestTicketService_Create_Anonymous(t *testing.T) {
	f := newTicketFixture(t)

	_, err := f.svc.Create(context.Background(), nil, ports.CreateTicketInput{Title: "t", Description: "d"})
	if !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestTicketService_Create_IdempotentReplay(t *testing.T) {
	f := newTicketFixture(t)
	alice := seedAccount(f.accounts, "alice", domain.RoleUser)
	bob := seedAccount(f.accounts, "bob", domain.RoleUser)
	ctx := context.Background()
	in := ports.CreateTicketInput{Title: "t", Description: "d", IdempotencyKey: "key-1"}

	first, err := f.svc.Create(ctx, alice, in)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := f.svc.Create(ctx, alice, in)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !second.AlreadyExisted || second.Ticket.ID != first.Ticket.ID {
		t.Fatalf("expected replay of ticket %d, got %+v", first.Ticket.ID, second)
	}

	other, err := f.svc.Create(ctx, bob, in)
	if err != nil {
		t.Fatalf("other principal: %v", err)
	}
	if other.AlreadyExisted {
		t.Fatal("keys must be scoped to the principal")
	}
	if len(f.tickets.byID) != 2 {
		t.Fatalf("expected 2 tickets, got %d", len(f.tickets.byID))
	}
}

func TestTicketService_Create_IdempotencyStoreDown(t *testing.T) {
	f := newTicketFixture(t)
	f.idem.lookupErr = errors.New("redis timeout")
	alice := seedAccount(f.accounts, "alice", domain.RoleUser)

	res, err := f.svc.Create(context.Background(), alice, ports.CreateTicketInput{
		Title: "t", Description: "d", IdempotencyKey: "k",
	})
	if err != nil {
		t.Fatalf("expected create to proceed, got %v", err)
	}
	if res.AlreadyExisted {
		t.Fatal("unexpected replay")
	}
}

// ---------------------------------------------------------------------------
// Read
// ---------------------------------------------------------------------------

func TestTicketService_List_FiltersAndPages(t *testing.T) {
	f := newTicketFixture(t)
	alice := seedAccount(f.accounts, "alice", domain.RoleUser)
	ctx := context.Background()

	for _, tc := range []struct{ status, priority string }{
		{"open", "high"}, {"resolved", "high"}, {"resolved", "low"}, {"resolved", "high"},
	} {
		tk := f.create(t, alice, tc.status+"/"+tc.priority)
		if _, err := f.svc.Update(ctx, alice, tk.ID, ports.UpdateTicketInput{
			Partial:  true,
			Status:   ptr(tc.status),
			Priority: ptr(tc.priority),
		}); err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	page, err := f.svc.List(ctx, nil, ports.TicketFilter{Status: "resolved", Priority: "high"}, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Count != 2 || len(page.Items) != 2 || page.HasNext {
		t.Fatalf("unexpected page: %+v", page)
	}
	for _, tk := range page.Items {
		if tk.Status != domain.StatusResolved || tk.Priority != domain.PriorityHigh {
			t.Fatalf("filter leaked ticket %+v", tk)
		}
	}
	if page.Items[0].ID < page.Items[1].ID {
		t.Fatal("expected newest first")
	}

	empty, err := f.svc.List(ctx, nil, ports.TicketFilter{Status: "closed", Priority: "critical"}, 1)
	if err != nil {
		t.Fatalf("empty filter must not error: %v", err)
	}
	if empty.Count != 0 || len(empty.Items) != 0 {
		t.Fatalf("expected empty result, got %+v", empty)
	}

	all, err := f.svc.List(ctx, alice, ports.TicketFilter{}, 2)
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if all.Count != 4 || !all.HasPrior || all.HasNext {
		t.Fatalf("unexpected page 2: %+v", all)
	}

	if _, err := f.svc.List(ctx, alice, ports.TicketFilter{}, 3); !errors.Is(err, domain.ErrInvalidPage) {
		t.Fatalf("expected ErrInvalidPage, got %v", err)
	}
	if _, err := f.svc.List(ctx, alice, ports.TicketFilter{}, 0); !errors.Is(err, domain.ErrInvalidPage) {
		t.Fatalf("expected ErrInvalidPage for page 0, got %v", err)
	}
}

func TestTicketService_Get_NotFound(t *testing.T) {
	f := newTicketFixture(t)

	if _, err := f.svc.Get(context.Background(), nil, 42); !errors.Is(err, domain.ErrTicketNotFound) {
		t.Fatalf("expected ErrTicketNotFound, got %v", err)
	}
}

func TestTicketService_Mine_Distinct(t *testing.T) {
	f := newTicketFixture(t)
	alice := seedAccount(f.accounts, "alice", domain.RoleUser)
	bob := seedAccount(f.accounts, "bob", domain.RoleUser)
	ctx := context.Background()

	own := f.create(t, alice, "own and assigned")
	if _, err := f.svc.Assign(ctx, alice, own.ID, alice.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	theirs := f.create(t, bob, "assigned to alice")
	if _, err := f.svc.Assign(ctx, bob, theirs.ID, alice.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	f.create(t, bob, "unrelated")

	mine, err := f.svc.Mine(ctx, alice)
	if err != nil {
		t.Fatalf("mine: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 tickets, got %d", len(mine))
	}
	seen := map[int64]bool{}
	for _, tk := range mine {
		if seen[tk.ID] {
			t.Fatalf("ticket %d listed twice", tk.ID)
		}
		seen[tk.ID] = true
	}

	if _, err := f.svc.Mine(ctx, nil); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func TestTicketService_Update_Partial(t *testing.T) {
	f := newTicketFixture(t)
	alice := seedAccount(f.accounts, "alice", domain.RoleUser)
	bob := seedAccount(f.accounts, "bob", domain.RoleDeveloper)
	tk := f.create(t, alice, "original")

	got, err := f.svc.Update(context.Background(), bob, tk.ID, ports.UpdateTicketInput{
		Partial:    true,
		Status:     ptr("in_progress"),
		AssignedTo: ptr(bob.ID),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Status != domain.StatusInProgress || got.Title != "original" {
		t.Fatalf("unexpected ticket: %+v", got)
	}
	if got.AssignedTo == nil || got.AssignedTo.ID != bob.ID {
		t.Fatalf("expected bob assigned, got %+v", got.AssignedTo)
	}
	if got.CreatedByID != alice.ID {
		t.Fatal("creator must not change")
	}

	last := f.activity.published[len(f.activity.published)-1]
	if last.Action != domain.ActivityUpdated || last.Changes["status"] != "in_progress" {
		t.Fatalf("unexpected activity: %+v", last)
	}
}

func TestTicketService_Update_FullRequiresTitleAndDescription(t *testing.T) {
	f := newTicketFixture(t)
	alice := seedAccount(f.accounts, "alice", domain.RoleUser)
	tk := f.create(t, alice, "original")

	_, err := f.svc.Update(context.Background(), alice, tk.ID, ports.UpdateTicketInput{Status: ptr("closed")})

	ve := fieldErrors(t, err)
	if !ve.Has("title") || !ve.Has("description") {
		t.Fatalf("expected required errors, got %v", ve.Fields)
	}
	if f.tickets.byID[tk.ID].Status != domain.StatusOpen {
		t.Fatal("failed update must not change the ticket")
	}
}

func TestTicketService_Update_RejectsCreatedBy(t *testing.T) {
	f := newTicketFixture(t)
	alice := seedAccount(f.accounts, "alice", domain.RoleUser)
	tk := f.create(t, alice, "original")

	_, err := f.svc.Update(context.Background(), alice, tk.ID, ports.UpdateTicketInput{
		Partial:   true,
		Title:     ptr("renamed"),
		CreatedBy: true,
	})

	if !fieldErrorsIs(err, "created_by") {
		t.Fatalf("expected created_by error, got %v", err)
	}
	if f.tickets.byID[tk.ID].Title != "original" {
		t.Fatal("valid fields must not be applied when another field fails")
	}
	if f.tickets.saves != 0 {
		t.Fatalf("expected no writes, got %d", f.tickets.saves)
	}
}

func TestTicketService_Update_UnknownAssignee(t *testing.T) {
	f := newTicketFixture(t)
	alice := seedAccount(f.accounts, "alice", domain.RoleUser)
	tk := f.create(t, alice, "original")

	_, err := f.svc.Update(context.Background(), alice, tk.ID, ports.UpdateTicketInput{
		Partial:    true,
		AssignedTo: ptr("ghost"),
	})
	if !fieldErrorsIs(err, "assigned_to") {
		t.Fatalf("expected assigned_to error, got %v", err)
	}
}

func TestTicketService_Update_ClearAssignee(t *testing.T) {
	f := newTicketFixture(t)
	alice := seedAccount(f.accounts, "alice", domain.RoleUser)
	tk := f.create(t, alice, "original")
	ctx := context.Background()

	if _, err := f.svc.Assign(ctx, alice, tk.ID, alice.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	got, err := f.svc.Update(ctx, alice, tk.ID, ports.UpdateTicketInput{Partial: true, ClearAssignee: true})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.AssignedToID != nil {
		t.Fatal("expected assignee cleared")
	}
}

func TestTicketService_Update_NotFoundAndAnonymous(t *testing.T) {
	f := newTicketFixture(t)
	alice := seedAccount(f.accounts, "alice", domain.RoleUser)

	if _, err := f.svc.Update(context.Background(), alice, 99, ports.UpdateTicketInput{Partial: true}); !errors.Is(err, domain.ErrTicketNotFound) {
		t.Fatalf("expected ErrTicketNotFound, got %v", err)
	}
	if _, err := f.svc.Update(context.Background(), nil, 99, ports.UpdateTicketInput{Partial: true}); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Assign / Delete / Activity
// ---------------------------------------------------------------------------

func TestTicketService_Assign_UnknownUserKeepsAssignee(t *testing.T) {
	f := newTicketFixture(t)
	alice := seedAccount(f.accounts, "alice", domain.RoleUser)
	bob := seedAccount(f.accounts, "bob", domain.RoleUser)
	tk := f.create(t, alice, "t")
	ctx := context.Background()

	if _, err := f.svc.Assign(ctx, alice, tk.ID, bob.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	for _, id := range []string{"ghost", ""} {
		if _, err := f.svc.Assign(ctx, alice, tk.ID, id); !errors.Is(err, domain.ErrAccountNotFound) {
			t.Fatalf("assign %q: expected ErrAccountNotFound, got %v", id, err)
		}
	}

	stored := f.tickets.byID[tk.ID]
	if stored.AssignedToID == nil || *stored.AssignedToID != bob.ID {
		t.Fatalf("expected bob to remain assigned, got %v", stored.AssignedToID)
	}
}

func TestTicketService_Assign_UnknownTicket(t *testing.T) {
	f := newTicketFixture(t)
	alice := seedAccount(f.accounts, "alice", domain.RoleUser)

	if _, err := f.svc.Assign(context.Background(), alice, 7, alice.ID); !errors.Is(err, domain.ErrTicketNotFound) {
		t.Fatalf("expected ErrTicketNotFound, got %v", err)
	}
}

func TestTicketService_Delete(t *testing.T) {
	f := newTicketFixture(t)
	alice := seedAccount(f.accounts, "alice", domain.RoleUser)
	bob := seedAccount(f.accounts, "bob", domain.RoleUser)
	tk := f.create(t, alice, "t")
	ctx := context.Background()

	if err := f.svc.Delete(ctx, nil, tk.ID); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if err := f.svc.Delete(ctx, bob, tk.ID); err != nil {
		t.Fatalf("any authenticated account may delete: %v", err)
	}
	if err := f.svc.Delete(ctx, bob, tk.ID); !errors.Is(err, domain.ErrTicketNotFound) {
		t.Fatalf("expected ErrTicketNotFound, got %v", err)
	}
}

func TestTicketService_Activity(t *testing.T) {
	f := newTicketFixture(t)
	alice := seedAccount(f.accounts, "alice", domain.RoleUser)
	tk := f.create(t, alice, "t")
	ctx := context.Background()

	if _, err := f.svc.Assign(ctx, alice, tk.ID, alice.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	trail, err := f.svc.Activity(ctx, nil, tk.ID)
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if len(trail) != 2 || trail[0].Action != domain.ActivityCreated || trail[1].Action != domain.ActivityAssigned {
		t.Fatalf("unexpected trail: %+v", trail)
	}

	if _, err := f.svc.Activity(ctx, alice, 404); !errors.Is(err, domain.ErrTicketNotFound) {
		t.Fatalf("expected ErrTicketNotFound, got %v", err)
	}
}

func TestTicketService_WithoutActivityStore(t *testing.T) {
	accounts := newStubAccountRepo()
	tickets := newStubTicketRepo(accounts)
	svc := NewTicketService(tickets, accounts, &stubTx{}, testPolicy(t), zerolog.Nop())
	alice := seedAccount(accounts, "alice", domain.RoleUser)

	res, err := svc.Create(context.Background(), alice, ports.CreateTicketInput{Title: "t", Description: "d"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	trail, err := svc.Activity(context.Background(), alice, res.Ticket.ID)
	if err != nil || len(trail) != 0 {
		t.Fatalf("expected empty trail, got %v (%v)", trail, err)
	}
}
