// Package policy holds the access rules for tickets and accounts.
//
// Any authenticated, active account may perform every ticket operation.
// Anonymous callers may only list and view tickets. Account administration
// beyond one's own profile is reserved to the admin role.
package policy

import (
	"fmt"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/issuedesk/tracker/internal/core/domain"
)

const (
	subjectAnonymous     = "anonymous"
	subjectAuthenticated = "authenticated"
	wildcard             = "*"
)

const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && (p.act == "*" || r.act == p.act)
`

var rules = [][]string{
	{subjectAnonymous, string(domain.ResourceTicket), string(domain.ActionList)},
	{subjectAnonymous, string(domain.ResourceTicket), string(domain.ActionView)},

	{subjectAuthenticated, string(domain.ResourceTicket), wildcard},
	{subjectAuthenticated, string(domain.ResourceAccount), string(domain.ActionList)},
	{subjectAuthenticated, string(domain.ResourceAccount), string(domain.ActionView)},
	{subjectAuthenticated, string(domain.ResourceAccount), string(domain.ActionMe)},
	{subjectAuthenticated, string(domain.ResourceAccount), string(domain.ActionLogout)},
	{subjectAuthenticated, string(domain.ResourceAccount), string(domain.ActionUpdateSelf)},

	{roleSubject(domain.RoleAdmin), string(domain.ResourceAccount), wildcard},
}

// Policy is a casbin-backed Authorizer.
type Policy struct {
	mu       sync.RWMutex
	enforcer *casbin.Enforcer
}

// New builds the policy with its built-in rule set.
func New() (*Policy, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("load policy model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}

	if _, err := enforcer.AddPolicies(rules); err != nil {
		return nil, fmt.Errorf("add policies: %w", err)
	}
	for _, r := range domain.Roles {
		if _, err := enforcer.AddGroupingPolicy(roleSubject(r), subjectAuthenticated); err != nil {
			return nil, fmt.Errorf("add role %s: %w", r, err)
		}
	}

	return &Policy{enforcer: enforcer}, nil
}

// Authorize returns nil when principal may perform action on resource.
func (p *Policy) Authorize(principal *domain.Account, resource domain.Resource, action domain.Action) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	allowed, err := p.enforcer.Enforce(subjectOf(principal), string(resource), string(action))
	if err != nil {
		return fmt.Errorf("enforce %s/%s: %w", resource, action, err)
	}
	if allowed {
		return nil
	}
	if principal == nil {
		return domain.ErrNotAuthenticated
	}
	return domain.ErrForbidden
}

func subjectOf(principal *domain.Account) string {
	if principal == nil || !principal.IsActive {
		return subjectAnonymous
	}
	return roleSubject(principal.Role)
}

func roleSubject(r domain.Role) string {
	return "role:" + string(r)
}
