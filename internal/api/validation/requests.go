package validation

// LoginRequest is the POST /api/auth/login payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CreateUserRequest is the POST /api/users payload.
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	IsAdmin  bool   `json:"isAdmin"`
}

// UpdateUserRequest is the PUT /api/users/{id} payload.
type UpdateUserRequest struct {
	Role string `json:"role" validate:"required,oneof=admin user"`
}
