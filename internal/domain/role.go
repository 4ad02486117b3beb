package domain

// Account roles. New accounts default to RoleUser; RoleAdmin unlocks the
// account-administration endpoints.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)
