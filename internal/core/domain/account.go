package domain

import "time"

// Role is the coarse permission tier of an account.
type Role string

const (
	RoleUser      Role = "user"
	RoleDeveloper Role = "developer"
	RoleManager   Role = "manager"
	RoleAdmin     Role = "admin"
)

// Roles lists every known role in ascending privilege order.
var Roles = []Role{RoleUser, RoleDeveloper, RoleManager, RoleAdmin}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleDeveloper, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// IsAdmin reports whether the role grants administrator capabilities.
func IsAdmin(r Role) bool {
	return r == RoleAdmin
}

// IsManager reports whether the role grants manager capabilities.
// Administrators are managers too.
func IsManager(r Role) bool {
	return r == RoleAdmin || r == RoleManager
}

// Account is a registered user of the tracker.
type Account struct {
	ID           string
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Role         Role
	Avatar       string
	IsActive     bool
	IsStaff      bool
	DateJoined   time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
