// Package resource implements generic CRUD over provider tables. One
// parameterized service replaces the per-entity copies the system would
// otherwise accumulate.
package resource

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/basisboard/basisboard/internal/provider"
)

// ErrNotFound is returned when an update targets a nonexistent record,
// detected as an empty result set rather than a provider error.
var ErrNotFound = errors.New("record not found")

// FieldError describes a single invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries per-field validation failures.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return "invalid fields: " + strings.Join(names, ", ")
}

// reserved fields are stamped by the service or the store and are
// stripped from client payloads.
var reserved = map[string]bool{"id": true, "created_at": true, "created_by": true}

// Service provides CRUD operations for one entity definition.
type Service struct {
	def      Definition
	provider provider.Provider
}

// NewService constructs a Service for the given definition.
func NewService(def Definition, p provider.Provider) *Service {
	return &Service{def: def, provider: p}
}

// Definition returns the entity definition the service was built with.
func (s *Service) Definition() Definition {
	return s.def
}

// List returns all records, newest-first.
func (s *Service) List(ctx context.Context) ([]provider.Row, error) {
	rows, err := s.provider.Select(ctx, s.def.table())
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", s.def.Name, err)
	}
	return rows, nil
}

// Create validates the payload, applies creation defaults, stamps the
// owning principal, and persists the record.
func (s *Service) Create(ctx context.Context, fields provider.Row, ownerID string) (provider.Row, error) {
	if err := s.validate(fields); err != nil {
		return nil, err
	}

	row := sanitize(fields)
	if s.def.OnCreate != nil {
		s.def.OnCreate(row)
	}
	row["created_by"] = ownerID

	created, err := s.provider.Insert(ctx, s.def.table(), row)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", s.def.Name, err)
	}
	return created, nil
}

// Update validates the payload and replaces the record's fields. A record
// that does not exist yields ErrNotFound.
func (s *Service) Update(ctx context.Context, id string, fields provider.Row) (provider.Row, error) {
	if err := s.validate(fields); err != nil {
		return nil, err
	}

	updated, err := s.provider.Update(ctx, s.def.table(), sanitize(fields), provider.Eq("id", id))
	if err != nil {
		return nil, fmt.Errorf("updating %s: %w", s.def.Name, err)
	}
	if len(updated) == 0 {
		return nil, ErrNotFound
	}
	return updated[0], nil
}

// Remove deletes the record. Removal is idempotent: deleting an id that
// is already absent succeeds.
func (s *Service) Remove(ctx context.Context, id string) error {
	if err := s.provider.Delete(ctx, s.def.table(), provider.Eq("id", id)); err != nil {
		return fmt.Errorf("removing %s: %w", s.def.Name, err)
	}
	return nil
}

// validate checks that every required field is present and non-empty.
func (s *Service) validate(fields provider.Row) error {
	var errs []FieldError
	for _, name := range s.def.Required {
		value, ok := fields[name]
		if !ok {
			errs = append(errs, FieldError{Field: name, Message: name + " is required"})
			continue
		}
		if str, isStr := value.(string); isStr && strings.TrimSpace(str) == "" {
			errs = append(errs, FieldError{Field: name, Message: name + " is required"})
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// sanitize copies the payload without reserved fields.
func sanitize(fields provider.Row) provider.Row {
	row := provider.Row{}
	for k, v := range fields {
		if reserved[k] {
			continue
		}
		row[k] = v
	}
	return row
}
