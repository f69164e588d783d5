package provider

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidCredentials is returned when sign-in credentials do not match.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrInvalidToken is returned when a session token cannot be resolved to a principal.
var ErrInvalidToken = errors.New("invalid or expired token")

// ErrUnavailable is returned when the backing store cannot be reached or
// rejects a request for reasons other than the caller's input.
var ErrUnavailable = errors.New("provider unavailable")

// ErrUserExists is returned when creating a principal with an email already in use.
var ErrUserExists = errors.New("user already exists")

// ErrUserNotFound is returned when a principal record is not found.
var ErrUserNotFound = errors.New("user not found")

// Principal is an authenticated identity managed by the provider.
type Principal struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Row is a single record in a provider table.
type Row map[string]any

// Filter is an equality constraint on a table column.
type Filter struct {
	Column string
	Value  any
}

// Eq builds an equality filter.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Value: value}
}

// Provider abstracts the identity and table-storage backend (hosted BaaS,
// local Postgres, in-memory fake). Implementations must be safe for
// concurrent use; no call is retried or cached by callers.
type Provider interface {
	// SignIn exchanges credentials for a principal and a bearer token.
	SignIn(ctx context.Context, email, password string) (*Principal, string, error)

	// SignOut invalidates the given token. Implementations that cannot
	// revoke tokens return nil.
	SignOut(ctx context.Context, token string) error

	// ResolveToken returns the principal a bearer token is bound to, or
	// ErrInvalidToken.
	ResolveToken(ctx context.Context, token string) (*Principal, error)

	// ListUsers returns all principals. Requires service-level access.
	ListUsers(ctx context.Context) ([]Principal, error)

	// CreateUser provisions a new principal with the given credentials.
	CreateUser(ctx context.Context, email, password string) (*Principal, error)

	// DeleteUser removes a principal. Deleting an unknown id is an error.
	DeleteUser(ctx context.Context, id string) error

	// Select returns rows matching all filters, newest-first by creation time.
	Select(ctx context.Context, table string, filters ...Filter) ([]Row, error)

	// Insert stores a row and returns it as persisted, including any
	// generated id and timestamps.
	Insert(ctx context.Context, table string, row Row) (Row, error)

	// Update applies changes to rows matching all filters and returns the
	// updated rows. An empty result means nothing matched.
	Update(ctx context.Context, table string, changes Row, filters ...Filter) ([]Row, error)

	// Delete removes rows matching all filters. Deleting nothing is not an error.
	Delete(ctx context.Context, table string, filters ...Filter) error

	// Upsert inserts a row or, on conflict over conflictColumn, replaces the
	// existing row. Returns the row as persisted.
	Upsert(ctx context.Context, table string, row Row, conflictColumn string) (Row, error)
}
