package local_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basisboard/basisboard/internal/provider"
	"github.com/basisboard/basisboard/internal/provider/local"
)

const testSecret = "test-secret"

func newProvider(t *testing.T, pool *pgxpool.Pool) *local.Provider {
	t.Helper()
	return local.New(pool, local.Config{
		JWTSecret:  testSecret,
		TokenTTL:   time.Hour,
		BcryptCost: 4, // min cost, tests only
	})
}

func signToken(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

// Token verification rejects bad input before it ever reaches the
// database, so these run against a nil pool.

func TestResolveToken_Garbage(t *testing.T) {
	t.Parallel()

	p := newProvider(t, nil)
	_, err := p.ResolveToken(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, provider.ErrInvalidToken)
}

func TestResolveToken_Expired(t *testing.T) {
	t.Parallel()

	token := signToken(t, testSecret, jwt.RegisteredClaims{
		Subject:   "some-id",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	})

	p := newProvider(t, nil)
	_, err := p.ResolveToken(context.Background(), token)
	assert.ErrorIs(t, err, provider.ErrInvalidToken)
}

func TestResolveToken_WrongSecret(t *testing.T) {
	t.Parallel()

	token := signToken(t, "other-secret", jwt.RegisteredClaims{
		Subject:   "some-id",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	p := newProvider(t, nil)
	_, err := p.ResolveToken(context.Background(), token)
	assert.ErrorIs(t, err, provider.ErrInvalidToken)
}

func TestResolveToken_MissingSubject(t *testing.T) {
	t.Parallel()

	token := signToken(t, testSecret, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	p := newProvider(t, nil)
	_, err := p.ResolveToken(context.Background(), token)
	assert.ErrorIs(t, err, provider.ErrInvalidToken)
}

// --- integration ---

// testPool connects to TEST_DATABASE_URL or skips. The schema from
// migrations/schema.sql must be applied.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database tests")
	}

	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestSignInResolveRoundTrip(t *testing.T) {
	pool := testPool(t)
	p := newProvider(t, pool)
	ctx := context.Background()

	email := "roundtrip-" + time.Now().Format("150405.000000000") + "@example.com"

	created, err := p.CreateUser(ctx, email, "password123")
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.DeleteUser(ctx, created.ID) })

	// Duplicate emails are rejected.
	_, err = p.CreateUser(ctx, email, "password123")
	assert.ErrorIs(t, err, provider.ErrUserExists)

	// Wrong password.
	_, _, err = p.SignIn(ctx, email, "wrong")
	assert.ErrorIs(t, err, provider.ErrInvalidCredentials)

	// Correct password yields a token that resolves back to the principal.
	principal, token, err := p.SignIn(ctx, email, "password123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, principal.ID)

	resolved, err := p.ResolveToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, resolved.ID)
	assert.Equal(t, email, resolved.Email)

	// Deleting the principal invalidates outstanding tokens.
	require.NoError(t, p.DeleteUser(ctx, created.ID))
	_, err = p.ResolveToken(ctx, token)
	assert.ErrorIs(t, err, provider.ErrInvalidToken)

	require.True(t, errors.Is(p.DeleteUser(ctx, created.ID), provider.ErrUserNotFound))
}

func TestTableCRUD(t *testing.T) {
	pool := testPool(t)
	p := newProvider(t, pool)
	ctx := context.Background()

	row, err := p.Insert(ctx, "friends", provider.Row{"name": "crud-test-friend"})
	require.NoError(t, err)
	id := row["id"]
	require.NotNil(t, id)
	t.Cleanup(func() { _ = p.Delete(ctx, "friends", provider.Eq("id", id)) })

	rows, err := p.Select(ctx, "friends", provider.Eq("id", id))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "crud-test-friend", rows[0]["name"])

	updated, err := p.Update(ctx, "friends", provider.Row{"name": "renamed"}, provider.Eq("id", id))
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, "renamed", updated[0]["name"])

	require.NoError(t, p.Delete(ctx, "friends", provider.Eq("id", id)))

	rows, err = p.Select(ctx, "friends", provider.Eq("id", id))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestBootstrap_SkipsWhenPrincipalsExist(t *testing.T) {
	pool := testPool(t)
	p := newProvider(t, pool)
	ctx := context.Background()

	email := "bootstrap-" + time.Now().Format("150405.000000000") + "@example.com"
	created, err := p.CreateUser(ctx, email, "password123")
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.DeleteUser(ctx, created.ID) })

	done, err := p.Bootstrap(ctx, "admin@example.com", "password123")
	require.NoError(t, err)
	assert.False(t, done)
}
