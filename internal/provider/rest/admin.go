package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/basisboard/basisboard/internal/provider"
)

type listUsersResponse struct {
	Users []authUser `json:"users"`
}

// ListUsers returns every principal known to the provider. Requires the
// service key.
func (c *Client) ListUsers(ctx context.Context) ([]provider.Principal, error) {
	resp, err := c.do(ctx, http.MethodGet, "/auth/v1/admin/users", c.serviceKey, "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, unexpectedStatus("list users", resp)
	}

	var out listUsersResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding list users response: %w", err)
	}

	principals := make([]provider.Principal, 0, len(out.Users))
	for _, u := range out.Users {
		principals = append(principals, *u.principal())
	}
	return principals, nil
}

// CreateUser provisions a principal with a confirmed email address.
func (c *Client) CreateUser(ctx context.Context, email, password string) (*provider.Principal, error) {
	body := map[string]any{
		"email":         email,
		"password":      password,
		"email_confirm": true,
	}

	resp, err := c.do(ctx, http.MethodPost, "/auth/v1/admin/users", c.serviceKey, "", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		var u authUser
		if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
			return nil, fmt.Errorf("decoding create user response: %w", err)
		}
		return u.principal(), nil
	case http.StatusUnprocessableEntity, http.StatusConflict:
		return nil, provider.ErrUserExists
	default:
		return nil, unexpectedStatus("create user", resp)
	}
}

// DeleteUser removes the principal with the given id.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/auth/v1/admin/users/"+escape(id), c.serviceKey, "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return provider.ErrUserNotFound
	default:
		return unexpectedStatus("delete user", resp)
	}
}
