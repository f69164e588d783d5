package auth

import "time"

// AdminRole is the role string that grants mutation rights on admin routes.
const AdminRole = "admin"

// DefaultRole is assumed for principals with no role assignment row.
const DefaultRole = "user"

// Identity is the resolved result of verifying a session token: the
// principal plus its authorization role. It is stored in the request
// context after authentication.
type Identity struct {
	PrincipalID string    `json:"id"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsAdmin reports whether the identity carries the admin role.
func (i *Identity) IsAdmin() bool {
	return i.Role == AdminRole
}
