package domain

import "time"

// Membership links a user to a group with a role.
type Membership struct {
	GroupID   string
	UserID    string
	Role      Role
	CreatedAt time.Time
}

type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)
