package resource

import "github.com/basisboard/basisboard/internal/provider"

// Definition configures one CRUD entity. All entities share a single
// service implementation; only the table, the required fields, and an
// optional creation hook differ per entity.
type Definition struct {
	// Name is the route segment, e.g. "friends".
	Name string

	// Table is the provider table backing the entity. Defaults to Name.
	Table string

	// Required lists fields that must be present and non-empty on create
	// and update.
	Required []string

	// OnCreate, when set, is applied to the row before insertion. Used for
	// server-assigned field defaults.
	OnCreate func(provider.Row)
}

func (d Definition) table() string {
	if d.Table != "" {
		return d.Table
	}
	return d.Name
}
