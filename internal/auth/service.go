package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/basisboard/basisboard/internal/provider"
)

// ErrInvalidToken is returned when a token cannot be resolved to a principal.
var ErrInvalidToken = errors.New("invalid or expired token")

// ErrRoleLookup is returned when the role assignment query itself fails.
// A missing role row is not an error; it resolves to DefaultRole.
var ErrRoleLookup = errors.New("error checking user role")

const roleTable = "user_roles"

// Service resolves session tokens and role assignments through the
// provider. It is stateless: every call consults the provider fresh, so
// authorization data is never stale.
type Service struct {
	provider provider.Provider
}

// NewService constructs a new Service.
func NewService(p provider.Provider) *Service {
	return &Service{provider: p}
}

// Verify resolves a bearer token to an Identity. Fail-closed: any provider
// error rejects the token rather than granting a default.
func (s *Service) Verify(ctx context.Context, token string) (*Identity, error) {
	principal, err := s.provider.ResolveToken(ctx, token)
	if err != nil || principal == nil {
		return nil, ErrInvalidToken
	}

	role, err := s.Role(ctx, principal.ID)
	if err != nil {
		return nil, err
	}

	return &Identity{
		PrincipalID: principal.ID,
		Email:       principal.Email,
		Role:        role,
		CreatedAt:   principal.CreatedAt,
	}, nil
}

// Login authenticates credentials and returns the identity with its
// session token.
func (s *Service) Login(ctx context.Context, email, password string) (*Identity, string, error) {
	principal, token, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, "", err
	}

	role, err := s.Role(ctx, principal.ID)
	if err != nil {
		return nil, "", err
	}

	return &Identity{
		PrincipalID: principal.ID,
		Email:       principal.Email,
		Role:        role,
		CreatedAt:   principal.CreatedAt,
	}, token, nil
}

// Logout ends the session bound to the token. It always succeeds: a
// client that asked to log out is logged out, and a provider failure only
// means the token will die of expiry instead of revocation. The failure
// is logged, not surfaced.
func (s *Service) Logout(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := s.provider.SignOut(ctx, token); err != nil {
		slog.Warn("sign-out failed, treating session as ended", "error", err)
	}
}

// Role returns the principal's assigned role, or DefaultRole when no
// assignment row exists.
func (s *Service) Role(ctx context.Context, principalID string) (string, error) {
	rows, err := s.provider.Select(ctx, roleTable, provider.Eq("user_id", principalID))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRoleLookup, err)
	}
	if len(rows) == 0 {
		return DefaultRole, nil
	}

	role, _ := rows[0]["role"].(string)
	if role == "" {
		return DefaultRole, nil
	}
	return role, nil
}

// SetRole assigns a role to a principal, replacing any existing
// assignment in a single atomic upsert.
func (s *Service) SetRole(ctx context.Context, principalID, role string) error {
	_, err := s.provider.Upsert(ctx, roleTable, provider.Row{
		"user_id": principalID,
		"role":    role,
	}, "user_id")
	if err != nil {
		return fmt.Errorf("assigning role: %w", err)
	}
	return nil
}

// RemoveRole deletes a principal's role assignment rows.
func (s *Service) RemoveRole(ctx context.Context, principalID string) error {
	if err := s.provider.Delete(ctx, roleTable, provider.Eq("user_id", principalID)); err != nil {
		return fmt.Errorf("removing role: %w", err)
	}
	return nil
}
