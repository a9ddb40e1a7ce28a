package domain

import "time"

// Roles a user can hold. Role distribution on the dashboard compares
// members against employees; admins manage the platform.
const (
	RoleMember   = "member"
	RoleEmployee = "employee"
	RoleAdmin    = "admin"
)

// User mirrors an identity-provider account.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
}

// IsAdmin reports whether the user may use admin routes.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
