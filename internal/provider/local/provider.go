// Package local implements the provider boundary on top of a Postgres
// database, with bcrypt credentials and HMAC-signed JWT session tokens.
// It backs development setups that do not have a hosted BaaS available.
package local

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/basisboard/basisboard/internal/provider"
)

const uniqueViolation = "23505"

// Config holds the local provider settings.
type Config struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
}

// Provider implements provider.Provider against a pgx connection pool.
type Provider struct {
	pool       *pgxpool.Pool
	secret     []byte
	tokenTTL   time.Duration
	bcryptCost int
}

// New creates a local provider over the given pool.
func New(pool *pgxpool.Pool, cfg Config) *Provider {
	return &Provider{
		pool:       pool,
		secret:     []byte(cfg.JWTSecret),
		tokenTTL:   cfg.TokenTTL,
		bcryptCost: cfg.BcryptCost,
	}
}

var _ provider.Provider = (*Provider)(nil)

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// SignIn validates credentials against the principals table and issues a token.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*provider.Principal, string, error) {
	var (
		principal    provider.Principal
		passwordHash string
	)
	err := p.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM principals WHERE email = $1`,
		email,
	).Scan(&principal.ID, &principal.Email, &passwordHash, &principal.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", provider.ErrInvalidCredentials
		}
		return nil, "", storeErr("querying principal", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)) != nil {
		return nil, "", provider.ErrInvalidCredentials
	}

	token, err := p.issueToken(&principal)
	if err != nil {
		return nil, "", err
	}
	return &principal, token, nil
}

// SignOut is a no-op: tokens are stateless JWTs and expire on their own.
func (p *Provider) SignOut(_ context.Context, _ string) error {
	return nil
}

// ResolveToken parses and verifies a session token and confirms the
// principal still exists.
func (p *Provider) ResolveToken(ctx context.Context, token string) (*provider.Principal, error) {
	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, provider.ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || claims.Subject == "" {
		return nil, provider.ErrInvalidToken
	}

	var principal provider.Principal
	err = p.pool.QueryRow(ctx,
		`SELECT id, email, created_at FROM principals WHERE id = $1`,
		claims.Subject,
	).Scan(&principal.ID, &principal.Email, &principal.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, provider.ErrInvalidToken
		}
		return nil, storeErr("querying principal", err)
	}

	return &principal, nil
}

// ListUsers returns all principals, newest-first.
func (p *Provider) ListUsers(ctx context.Context) ([]provider.Principal, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, email, created_at FROM principals ORDER BY created_at DESC`)
	if err != nil {
		return nil, storeErr("listing principals", err)
	}
	defer rows.Close()

	principals := []provider.Principal{}
	for rows.Next() {
		var pr provider.Principal
		if err := rows.Scan(&pr.ID, &pr.Email, &pr.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning principal row: %w", err)
		}
		principals = append(principals, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterating principal rows", err)
	}

	return principals, nil
}

// CreateUser inserts a principal with a bcrypt-hashed password.
func (p *Provider) CreateUser(ctx context.Context, email, password string) (*provider.Principal, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	principal := provider.Principal{Email: email}
	err = p.pool.QueryRow(ctx,
		`INSERT INTO principals (email, password_hash) VALUES ($1, $2)
		 RETURNING id, created_at`,
		email, string(hash),
	).Scan(&principal.ID, &principal.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, provider.ErrUserExists
		}
		return nil, storeErr("inserting principal", err)
	}

	return &principal, nil
}

// DeleteUser removes a principal by id.
func (p *Provider) DeleteUser(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM principals WHERE id = $1`, id)
	if err != nil {
		return storeErr("deleting principal", err)
	}
	if tag.RowsAffected() == 0 {
		return provider.ErrUserNotFound
	}
	return nil
}

// Bootstrap creates an initial admin principal when the principals table is
// empty. Returns true if a principal was created.
func (p *Provider) Bootstrap(ctx context.Context, email, password string) (bool, error) {
	var count int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM principals`).Scan(&count); err != nil {
		return false, storeErr("counting principals", err)
	}
	if count > 0 {
		return false, nil
	}

	principal, err := p.CreateUser(ctx, email, password)
	if err != nil {
		return false, fmt.Errorf("creating bootstrap principal: %w", err)
	}

	_, err = p.Upsert(ctx, "user_roles", provider.Row{
		"user_id": principal.ID,
		"role":    "admin",
	}, "user_id")
	if err != nil {
		return false, fmt.Errorf("assigning bootstrap role: %w", err)
	}

	return true, nil
}

func (p *Provider) issueToken(principal *provider.Principal) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Email: principal.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.tokenTTL)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return token, nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, provider.ErrUnavailable)
}
