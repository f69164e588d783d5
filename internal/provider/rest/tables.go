package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/basisboard/basisboard/internal/provider"
)

// tablePath builds the /rest/v1 URL for a table with equality filters
// rendered as PostgREST `col=eq.value` query parameters.
func (c *Client) tablePath(table, extra string, filters []provider.Filter) string {
	path := "/rest/v1/" + escape(table) + "?"
	if extra != "" {
		path += extra
	}
	for _, f := range filters {
		path += "&" + escape(f.Column) + "=eq." + escape(fmt.Sprint(f.Value))
	}
	return path
}

// Select returns rows matching the filters, newest-first.
func (c *Client) Select(ctx context.Context, table string, filters ...provider.Filter) ([]provider.Row, error) {
	path := c.tablePath(table, "select=*&order=created_at.desc", filters)

	resp, err := c.do(ctx, http.MethodGet, path, c.serviceKey, "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, unexpectedStatus("select "+table, resp)
	}

	return decodeRows(resp, "select "+table)
}

// Insert stores a row and returns the persisted representation.
func (c *Client) Insert(ctx context.Context, table string, row provider.Row) (provider.Row, error) {
	path := "/rest/v1/" + escape(table)

	resp, err := c.doTableMutation(ctx, http.MethodPost, path, []provider.Row{row})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, unexpectedStatus("insert "+table, resp)
	}

	return decodeSingleRow(resp, "insert "+table)
}

// Update patches rows matching the filters and returns the updated rows.
func (c *Client) Update(ctx context.Context, table string, changes provider.Row, filters ...provider.Filter) ([]provider.Row, error) {
	path := c.tablePath(table, "", filters)

	resp, err := c.doTableMutation(ctx, http.MethodPatch, path, changes)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return nil, unexpectedStatus("update "+table, resp)
	}

	if resp.StatusCode == http.StatusNoContent {
		return []provider.Row{}, nil
	}
	return decodeRows(resp, "update "+table)
}

// Delete removes rows matching the filters. Matching nothing is a success.
func (c *Client) Delete(ctx context.Context, table string, filters ...provider.Filter) error {
	path := c.tablePath(table, "", filters)

	resp, err := c.do(ctx, http.MethodDelete, path, c.serviceKey, "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return unexpectedStatus("delete "+table, resp)
	}
	return nil
}

// Upsert inserts the row, merging with an existing row on conflictColumn.
func (c *Client) Upsert(ctx context.Context, table string, row provider.Row, conflictColumn string) (provider.Row, error) {
	path := "/rest/v1/" + escape(table) + "?on_conflict=" + escape(conflictColumn)

	resp, err := c.doTableMutation(ctx, http.MethodPost, path, []provider.Row{row})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, unexpectedStatus("upsert "+table, resp)
	}

	return decodeSingleRow(resp, "upsert "+table)
}

// doTableMutation issues a mutating table request asking the provider to
// return the affected rows.
func (c *Client) doTableMutation(ctx context.Context, method, path string, body any) (*http.Response, error) {
	req, err := c.newTableRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %v: %w", method, path, err, provider.ErrUnavailable)
	}
	return resp, nil
}

func (c *Client) newTableRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation,resolution=merge-duplicates")
	return req, nil
}

func decodeRows(resp *http.Response, op string) ([]provider.Row, error) {
	var rows []provider.Row
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", op, err)
	}
	if rows == nil {
		rows = []provider.Row{}
	}
	return rows, nil
}

func decodeSingleRow(resp *http.Response, op string) (provider.Row, error) {
	rows, err := decodeRows(resp, op)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: provider returned no rows: %w", op, provider.ErrUnavailable)
	}
	return rows[0], nil
}
