// Package providertest provides an in-memory Provider implementation for
// tests. Behavior can be overridden per method through function fields.
package providertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/basisboard/basisboard/internal/provider"
)

type account struct {
	principal provider.Principal
	password  string
}

// Fake is an in-memory identity and table store.
type Fake struct {
	mu       sync.Mutex
	accounts []account
	tokens   map[string]string // token -> principal id
	tables   map[string][]provider.Row

	SignInFn       func(ctx context.Context, email, password string) (*provider.Principal, string, error)
	SignOutFn      func(ctx context.Context, token string) error
	ResolveTokenFn func(ctx context.Context, token string) (*provider.Principal, error)
	ListUsersFn    func(ctx context.Context) ([]provider.Principal, error)
	CreateUserFn   func(ctx context.Context, email, password string) (*provider.Principal, error)
	DeleteUserFn   func(ctx context.Context, id string) error
	SelectFn       func(ctx context.Context, table string, filters ...provider.Filter) ([]provider.Row, error)
	InsertFn       func(ctx context.Context, table string, row provider.Row) (provider.Row, error)
	UpdateFn       func(ctx context.Context, table string, changes provider.Row, filters ...provider.Filter) ([]provider.Row, error)
	DeleteFn       func(ctx context.Context, table string, filters ...provider.Filter) error
	UpsertFn       func(ctx context.Context, table string, row provider.Row, conflictColumn string) (provider.Row, error)
}

// New creates an empty fake provider.
func New() *Fake {
	return &Fake{
		tokens: make(map[string]string),
		tables: make(map[string][]provider.Row),
	}
}

var _ provider.Provider = (*Fake)(nil)

// SeedUser registers a principal with credentials and returns it.
func (f *Fake) SeedUser(email, password string) provider.Principal {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := provider.Principal{
		ID:        uuid.New().String(),
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	f.accounts = append(f.accounts, account{principal: p, password: password})
	return p
}

// SeedToken binds a bearer token to a principal id.
func (f *Fake) SeedToken(token, principalID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[token] = principalID
}

// SeedRow stores a row directly, stamping id and created_at if absent.
func (f *Fake) SeedRow(table string, row provider.Row) provider.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.store(table, row)
}

// TableRows returns a copy of the rows currently in a table, oldest-first.
func (f *Fake) TableRows(table string) []provider.Row {
	f.mu.Lock()
	defer f.mu.Unlock()

	rows := make([]provider.Row, len(f.tables[table]))
	copy(rows, f.tables[table])
	return rows
}

func (f *Fake) SignIn(ctx context.Context, email, password string) (*provider.Principal, string, error) {
	if f.SignInFn != nil {
		return f.SignInFn(ctx, email, password)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, a := range f.accounts {
		if a.principal.Email == email && a.password == password {
			token := uuid.New().String()
			f.tokens[token] = a.principal.ID
			p := a.principal
			return &p, token, nil
		}
	}
	return nil, "", provider.ErrInvalidCredentials
}

func (f *Fake) SignOut(ctx context.Context, token string) error {
	if f.SignOutFn != nil {
		return f.SignOutFn(ctx, token)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, token)
	return nil
}

func (f *Fake) ResolveToken(ctx context.Context, token string) (*provider.Principal, error) {
	if f.ResolveTokenFn != nil {
		return f.ResolveTokenFn(ctx, token)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	id, ok := f.tokens[token]
	if !ok {
		return nil, provider.ErrInvalidToken
	}
	for _, a := range f.accounts {
		if a.principal.ID == id {
			p := a.principal
			return &p, nil
		}
	}
	return nil, provider.ErrInvalidToken
}

func (f *Fake) ListUsers(ctx context.Context) ([]provider.Principal, error) {
	if f.ListUsersFn != nil {
		return f.ListUsersFn(ctx)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	principals := make([]provider.Principal, 0, len(f.accounts))
	for i := len(f.accounts) - 1; i >= 0; i-- {
		principals = append(principals, f.accounts[i].principal)
	}
	return principals, nil
}

func (f *Fake) CreateUser(ctx context.Context, email, password string) (*provider.Principal, error) {
	if f.CreateUserFn != nil {
		return f.CreateUserFn(ctx, email, password)
	}

	f.mu.Lock()
	for _, a := range f.accounts {
		if a.principal.Email == email {
			f.mu.Unlock()
			return nil, provider.ErrUserExists
		}
	}
	f.mu.Unlock()

	p := f.SeedUser(email, password)
	return &p, nil
}

func (f *Fake) DeleteUser(ctx context.Context, id string) error {
	if f.DeleteUserFn != nil {
		return f.DeleteUserFn(ctx, id)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for i, a := range f.accounts {
		if a.principal.ID == id {
			f.accounts = append(f.accounts[:i], f.accounts[i+1:]...)
			return nil
		}
	}
	return provider.ErrUserNotFound
}

func (f *Fake) Select(ctx context.Context, table string, filters ...provider.Filter) ([]provider.Row, error) {
	if f.SelectFn != nil {
		return f.SelectFn(ctx, table, filters...)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	rows := f.tables[table]
	out := []provider.Row{}
	for i := len(rows) - 1; i >= 0; i-- { // newest-first
		if matches(rows[i], filters) {
			out = append(out, rows[i])
		}
	}
	return out, nil
}

func (f *Fake) Insert(ctx context.Context, table string, row provider.Row) (provider.Row, error) {
	if f.InsertFn != nil {
		return f.InsertFn(ctx, table, row)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.store(table, row), nil
}

func (f *Fake) Update(ctx context.Context, table string, changes provider.Row, filters ...provider.Filter) ([]provider.Row, error) {
	if f.UpdateFn != nil {
		return f.UpdateFn(ctx, table, changes, filters...)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	updated := []provider.Row{}
	for _, row := range f.tables[table] {
		if matches(row, filters) {
			for k, v := range changes {
				row[k] = v
			}
			updated = append(updated, row)
		}
	}
	return updated, nil
}

func (f *Fake) Delete(ctx context.Context, table string, filters ...provider.Filter) error {
	if f.DeleteFn != nil {
		return f.DeleteFn(ctx, table, filters...)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	kept := f.tables[table][:0]
	for _, row := range f.tables[table] {
		if !matches(row, filters) {
			kept = append(kept, row)
		}
	}
	f.tables[table] = kept
	return nil
}

func (f *Fake) Upsert(ctx context.Context, table string, row provider.Row, conflictColumn string) (provider.Row, error) {
	if f.UpsertFn != nil {
		return f.UpsertFn(ctx, table, row, conflictColumn)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.tables[table] {
		if equal(existing[conflictColumn], row[conflictColumn]) {
			for k, v := range row {
				existing[k] = v
			}
			return existing, nil
		}
	}
	return f.store(table, row), nil
}

// store appends a row to a table, stamping id and created_at when absent.
// Callers must hold the mutex.
func (f *Fake) store(table string, row provider.Row) provider.Row {
	stored := provider.Row{}
	for k, v := range row {
		stored[k] = v
	}
	if _, ok := stored["id"]; !ok {
		stored["id"] = uuid.New().String()
	}
	if _, ok := stored["created_at"]; !ok {
		stored["created_at"] = time.Now().UTC().Format(time.RFC3339Nano)
	}
	f.tables[table] = append(f.tables[table], stored)
	return stored
}

func matches(row provider.Row, filters []provider.Filter) bool {
	for _, f := range filters {
		if !equal(row[f.Column], f.Value) {
			return false
		}
	}
	return true
}

// equal compares values loosely: ids arrive variously as string and uuid.
func equal(a, b any) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}
