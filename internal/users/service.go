// Package users implements admin-only identity management on top of the
// provider's admin API and the role assignment table.
package users

import (
	"context"
	"fmt"

	"github.com/basisboard/basisboard/internal/auth"
	"github.com/basisboard/basisboard/internal/provider"
)

// UserWithRole is a principal joined with its resolved role.
type UserWithRole struct {
	provider.Principal
	Role string `json:"role"`
}

// Service manages principals and their role assignments.
type Service struct {
	provider provider.Provider
	roles    *auth.Service
}

// NewService constructs a new Service.
func NewService(p provider.Provider, roles *auth.Service) *Service {
	return &Service{provider: p, roles: roles}
}

// List returns all principals with their roles. Principals without a role
// assignment row carry the default role.
func (s *Service) List(ctx context.Context) ([]UserWithRole, error) {
	principals, err := s.provider.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	assignments, err := s.provider.Select(ctx, "user_roles")
	if err != nil {
		return nil, fmt.Errorf("listing role assignments: %w", err)
	}

	byUser := make(map[string]string, len(assignments))
	for _, row := range assignments {
		userID, _ := row["user_id"].(string)
		role, _ := row["role"].(string)
		if userID != "" && role != "" {
			byUser[userID] = role
		}
	}

	out := make([]UserWithRole, 0, len(principals))
	for _, p := range principals {
		role, ok := byUser[p.ID]
		if !ok {
			role = auth.DefaultRole
		}
		out = append(out, UserWithRole{Principal: p, Role: role})
	}
	return out, nil
}

// Create provisions a principal and assigns its role. If the role
// assignment fails the principal is deleted again so no half-created
// account is left behind.
func (s *Service) Create(ctx context.Context, email, password string, admin bool) (*UserWithRole, error) {
	principal, err := s.provider.CreateUser(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	role := auth.DefaultRole
	if admin {
		role = auth.AdminRole
	}

	if err := s.roles.SetRole(ctx, principal.ID, role); err != nil {
		if delErr := s.provider.DeleteUser(ctx, principal.ID); delErr != nil {
			return nil, fmt.Errorf("assigning role: %w (cleanup failed: %v)", err, delErr)
		}
		return nil, fmt.Errorf("assigning role: %w", err)
	}

	return &UserWithRole{Principal: *principal, Role: role}, nil
}

// UpdateRole replaces a principal's role assignment.
func (s *Service) UpdateRole(ctx context.Context, id, role string) (*UserWithRole, error) {
	principal, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.roles.SetRole(ctx, id, role); err != nil {
		return nil, err
	}

	return &UserWithRole{Principal: *principal, Role: role}, nil
}

// Delete removes a principal and its role assignments. Role rows go
// first so a partial failure never leaves a role without a principal
// owning it.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.roles.RemoveRole(ctx, id); err != nil {
		return err
	}
	if err := s.provider.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}

func (s *Service) find(ctx context.Context, id string) (*provider.Principal, error) {
	principals, err := s.provider.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	for i := range principals {
		if principals[i].ID == id {
			return &principals[i], nil
		}
	}
	return nil, provider.ErrUserNotFound
}
