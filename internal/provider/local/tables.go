package local

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/basisboard/basisboard/internal/provider"
)

// Generic row operations. Table and column names come from code-side
// configuration, never from request input, but are quoted regardless.

// Select returns rows matching the filters, newest-first.
func (p *Provider) Select(ctx context.Context, table string, filters ...provider.Filter) ([]provider.Row, error) {
	query := fmt.Sprintf(`SELECT to_jsonb(t) FROM %s AS t`, quoteIdent(table))
	where, args := whereClause(filters, 1)
	query += where + ` ORDER BY created_at DESC`

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr("selecting from "+table, err)
	}
	defer rows.Close()

	out := []provider.Row{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning row from %s: %w", table, err)
		}
		var row provider.Row
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, fmt.Errorf("decoding row from %s: %w", table, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterating rows from "+table, err)
	}

	return out, nil
}

// Insert stores a row and returns it as persisted.
func (p *Provider) Insert(ctx context.Context, table string, row provider.Row) (provider.Row, error) {
	columns, args := sortedColumns(row)

	placeholders := make([]string, len(columns))
	quoted := make([]string, len(columns))
	for i, col := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		quoted[i] = quoteIdent(col)
	}

	query := fmt.Sprintf(`INSERT INTO %s AS t (%s) VALUES (%s) RETURNING to_jsonb(t)`,
		quoteIdent(table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))

	var raw []byte
	if err := p.pool.QueryRow(ctx, query, args...).Scan(&raw); err != nil {
		return nil, storeErr("inserting into "+table, err)
	}

	var persisted provider.Row
	if err := json.Unmarshal(raw, &persisted); err != nil {
		return nil, fmt.Errorf("decoding inserted row from %s: %w", table, err)
	}
	return persisted, nil
}

// Update applies changes to rows matching the filters and returns the
// updated rows.
func (p *Provider) Update(ctx context.Context, table string, changes provider.Row, filters ...provider.Filter) ([]provider.Row, error) {
	columns, args := sortedColumns(changes)

	sets := make([]string, len(columns))
	for i, col := range columns {
		sets[i] = fmt.Sprintf("%s = $%d", quoteIdent(col), i+1)
	}

	where, whereArgs := whereClause(filters, len(columns)+1)
	args = append(args, whereArgs...)

	query := fmt.Sprintf(`UPDATE %s AS t SET %s%s RETURNING to_jsonb(t)`,
		quoteIdent(table), strings.Join(sets, ", "), where)

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr("updating "+table, err)
	}
	defer rows.Close()

	out := []provider.Row{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning updated row from %s: %w", table, err)
		}
		var row provider.Row
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, fmt.Errorf("decoding updated row from %s: %w", table, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterating updated rows from "+table, err)
	}

	return out, nil
}

// Delete removes rows matching the filters. Matching nothing is a success.
func (p *Provider) Delete(ctx context.Context, table string, filters ...provider.Filter) error {
	where, args := whereClause(filters, 1)
	query := fmt.Sprintf(`DELETE FROM %s`, quoteIdent(table)) + where

	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		return storeErr("deleting from "+table, err)
	}
	return nil
}

// Upsert inserts the row, replacing an existing row on conflictColumn.
func (p *Provider) Upsert(ctx context.Context, table string, row provider.Row, conflictColumn string) (provider.Row, error) {
	columns, args := sortedColumns(row)

	placeholders := make([]string, len(columns))
	quoted := make([]string, len(columns))
	sets := make([]string, 0, len(columns))
	for i, col := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		quoted[i] = quoteIdent(col)
		if col != conflictColumn {
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", quoteIdent(col), quoteIdent(col)))
		}
	}

	query := fmt.Sprintf(
		`INSERT INTO %s AS t (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s RETURNING to_jsonb(t)`,
		quoteIdent(table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "),
		quoteIdent(conflictColumn), strings.Join(sets, ", "))

	var raw []byte
	if err := p.pool.QueryRow(ctx, query, args...).Scan(&raw); err != nil {
		return nil, storeErr("upserting into "+table, err)
	}

	var persisted provider.Row
	if err := json.Unmarshal(raw, &persisted); err != nil {
		return nil, fmt.Errorf("decoding upserted row from %s: %w", table, err)
	}
	return persisted, nil
}

// whereClause renders filters as "WHERE a = $n AND b = $n+1" starting at
// placeholder firstArg. Returns the clause (with leading space) and args.
func whereClause(filters []provider.Filter, firstArg int) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}

	conds := make([]string, len(filters))
	args := make([]any, len(filters))
	for i, f := range filters {
		conds[i] = fmt.Sprintf("%s = $%d", quoteIdent(f.Column), firstArg+i)
		args[i] = f.Value
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// sortedColumns returns the row's columns in a stable order with their values.
func sortedColumns(row provider.Row) ([]string, []any) {
	columns := make([]string, 0, len(row))
	for col := range row {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	args := make([]any, len(columns))
	for i, col := range columns {
		args[i] = row[col]
	}
	return columns, args
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
