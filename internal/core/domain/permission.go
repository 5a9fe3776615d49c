package domain

// Resource is a class of objects guarded by the access policy.
type Resource string

const (
	ResourceTicket  Resource = "ticket"
	ResourceAccount Resource = "account"
)

// Action is an operation a principal requests on a resource.
type Action string

const (
	ActionList       Action = "list"
	ActionView       Action = "view"
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
	ActionAssign     Action = "assign"
	ActionMine       Action = "mine"
	ActionMe         Action = "me"
	ActionLogout     Action = "logout"
	ActionUpdateSelf Action = "update_self"
	ActionChangeRole Action = "change_role"
)
