package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basisboard/basisboard/internal/auth"
	"github.com/basisboard/basisboard/internal/provider"
	"github.com/basisboard/basisboard/internal/provider/providertest"
)

// --- Verify ---

func TestVerify_AdminRole(t *testing.T) {
	t.Parallel()

	fake := providertest.New()
	p := fake.SeedUser("admin@example.com", "secret")
	fake.SeedToken("tok-admin", p.ID)
	fake.SeedRow("user_roles", provider.Row{"user_id": p.ID, "role": "admin"})

	svc := auth.NewService(fake)

	identity, err := svc.Verify(context.Background(), "tok-admin")
	require.NoError(t, err)

	assert.Equal(t, p.ID, identity.PrincipalID)
	assert.Equal(t, "admin@example.com", identity.Email)
	assert.Equal(t, "admin", identity.Role)
	assert.True(t, identity.IsAdmin())
}

func TestVerify_NoRoleRowDefaults(t *testing.T) {
	t.Parallel()

	fake := providertest.New()
	p := fake.SeedUser("plain@example.com", "secret")
	fake.SeedToken("tok-plain", p.ID)

	svc := auth.NewService(fake)

	identity, err := svc.Verify(context.Background(), "tok-plain")
	require.NoError(t, err)

	assert.Equal(t, auth.DefaultRole, identity.Role)
	assert.False(t, identity.IsAdmin())
}

func TestVerify_UnknownToken(t *testing.T) {
	t.Parallel()

	svc := auth.NewService(providertest.New())

	identity, err := svc.Verify(context.Background(), "no-such-token")
	assert.Nil(t, identity)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerify_ProviderErrorRejects(t *testing.T) {
	t.Parallel()

	fake := providertest.New()
	fake.ResolveTokenFn = func(context.Context, string) (*provider.Principal, error) {
		return nil, provider.ErrUnavailable
	}

	svc := auth.NewService(fake)

	_, err := svc.Verify(context.Background(), "tok")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerify_RoleLookupErrorIsDistinct(t *testing.T) {
	t.Parallel()

	fake := providertest.New()
	p := fake.SeedUser("user@example.com", "secret")
	fake.SeedToken("tok", p.ID)
	fake.SelectFn = func(context.Context, string, ...provider.Filter) ([]provider.Row, error) {
		return nil, provider.ErrUnavailable
	}

	svc := auth.NewService(fake)

	_, err := svc.Verify(context.Background(), "tok")
	assert.ErrorIs(t, err, auth.ErrRoleLookup)
	assert.NotErrorIs(t, err, auth.ErrInvalidToken)
}

// --- Login ---

func TestLogin_AdminScenario(t *testing.T) {
	t.Parallel()

	fake := providertest.New()
	p := fake.SeedUser("a@b.com", "x")
	fake.SeedRow("user_roles", provider.Row{"user_id": p.ID, "role": "admin"})

	svc := auth.NewService(fake)

	identity, token, err := svc.Login(context.Background(), "a@b.com", "x")
	require.NoError(t, err)

	assert.NotEmpty(t, token)
	assert.Equal(t, "a@b.com", identity.Email)
	assert.True(t, identity.IsAdmin())

	// The issued token verifies back to the same identity.
	verified, err := svc.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, identity.PrincipalID, verified.PrincipalID)
}

func TestLogin_BadCredentials(t *testing.T) {
	t.Parallel()

	fake := providertest.New()
	fake.SeedUser("a@b.com", "right")

	svc := auth.NewService(fake)

	_, _, err := svc.Login(context.Background(), "a@b.com", "wrong")
	assert.ErrorIs(t, err, provider.ErrInvalidCredentials)
}

// --- Logout ---

func TestLogout_ProviderFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	fake := providertest.New()
	called := false
	fake.SignOutFn = func(context.Context, string) error {
		called = true
		return errors.New("provider exploded")
	}

	svc := auth.NewService(fake)

	svc.Logout(context.Background(), "tok") // must not panic or surface the error
	assert.True(t, called)
}

func TestLogout_EmptyTokenSkipsProvider(t *testing.T) {
	t.Parallel()

	fake := providertest.New()
	fake.SignOutFn = func(context.Context, string) error {
		t.Fatal("SignOut should not be called without a token")
		return nil
	}

	auth.NewService(fake).Logout(context.Background(), "")
}

// --- Roles ---

func TestSetRole_ReplacesExistingAssignment(t *testing.T) {
	t.Parallel()

	fake := providertest.New()
	p := fake.SeedUser("user@example.com", "secret")
	svc := auth.NewService(fake)

	ctx := context.Background()
	require.NoError(t, svc.SetRole(ctx, p.ID, "user"))
	require.NoError(t, svc.SetRole(ctx, p.ID, "admin"))

	role, err := svc.Role(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin", role)

	// A single assignment row remains after replacement.
	assert.Len(t, fake.TableRows("user_roles"), 1)
}

func TestRemoveRole(t *testing.T) {
	t.Parallel()

	fake := providertest.New()
	p := fake.SeedUser("user@example.com", "secret")
	svc := auth.NewService(fake)

	ctx := context.Background()
	require.NoError(t, svc.SetRole(ctx, p.ID, "admin"))
	require.NoError(t, svc.RemoveRole(ctx, p.ID))

	role, err := svc.Role(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, auth.DefaultRole, role)
}
