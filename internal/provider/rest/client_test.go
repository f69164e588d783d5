package rest_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basisboard/basisboard/internal/provider"
	"github.com/basisboard/basisboard/internal/provider/rest"
)

// capture records the last request the fake provider saw.
type capture struct {
	method string
	path   string
	query  string
	header http.Header
	body   []byte
}

// newServer starts an httptest server running handler and a Client
// pointed at it.
func newServer(t *testing.T, handler http.HandlerFunc) (*rest.Client, *capture) {
	t.Helper()

	cap := &capture{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cap.method = r.Method
		cap.path = r.URL.Path
		cap.query = r.URL.RawQuery
		cap.header = r.Header.Clone()
		cap.body, _ = io.ReadAll(r.Body)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	return rest.New(srv.URL, "anon-key", "service-key", rest.WithHTTPClient(srv.Client())), cap
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// --- auth endpoints ---

func TestSignIn(t *testing.T) {
	t.Parallel()

	client, cap := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "tok-123",
			"user": map[string]any{
				"id":         "u-1",
				"email":      "a@b.com",
				"created_at": "2024-01-02T03:04:05Z",
			},
		})
	})

	principal, token, err := client.SignIn(context.Background(), "a@b.com", "secret")
	require.NoError(t, err)

	assert.Equal(t, "tok-123", token)
	assert.Equal(t, "u-1", principal.ID)
	assert.Equal(t, "a@b.com", principal.Email)
	assert.Equal(t, 2024, principal.CreatedAt.Year())

	assert.Equal(t, http.MethodPost, cap.method)
	assert.Equal(t, "/auth/v1/token", cap.path)
	assert.Equal(t, "grant_type=password", cap.query)
	assert.Equal(t, "anon-key", cap.header.Get("apikey"))
	assert.Contains(t, string(cap.body), `"email":"a@b.com"`)
}

func TestSignIn_BadCredentials(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized} {
		client, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, status, map[string]string{"error": "invalid_grant"})
		})

		_, _, err := client.SignIn(context.Background(), "a@b.com", "wrong")
		assert.ErrorIs(t, err, provider.ErrInvalidCredentials, "status %d", status)
	}
}

func TestSignIn_ServerError(t *testing.T) {
	t.Parallel()

	client, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, _, err := client.SignIn(context.Background(), "a@b.com", "secret")
	assert.ErrorIs(t, err, provider.ErrUnavailable)
}

func TestSignOut_SendsBearerToken(t *testing.T) {
	t.Parallel()

	client, cap := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.SignOut(context.Background(), "tok-123"))
	assert.Equal(t, "/auth/v1/logout", cap.path)
	assert.Equal(t, "Bearer tok-123", cap.header.Get("Authorization"))
}

func TestResolveToken(t *testing.T) {
	t.Parallel()

	client, cap := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"id":         "u-1",
			"email":      "a@b.com",
			"created_at": "2024-01-02T03:04:05Z",
		})
	})

	principal, err := client.ResolveToken(context.Background(), "tok-123")
	require.NoError(t, err)
	assert.Equal(t, "u-1", principal.ID)
	assert.Equal(t, "/auth/v1/user", cap.path)
	assert.Equal(t, "Bearer tok-123", cap.header.Get("Authorization"))
}

func TestResolveToken_Rejected(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		client, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})

		_, err := client.ResolveToken(context.Background(), "expired")
		assert.ErrorIs(t, err, provider.ErrInvalidToken, "status %d", status)
	}
}

func TestResolveToken_EmptyUser(t *testing.T) {
	t.Parallel()

	client, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{})
	})

	_, err := client.ResolveToken(context.Background(), "tok")
	assert.ErrorIs(t, err, provider.ErrInvalidToken)
}

// --- table endpoints ---

func TestSelect_BuildsPostgRESTQuery(t *testing.T) {
	t.Parallel()

	client, cap := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{{"id": "r-1", "name": "Ana"}})
	})

	rows, err := client.Select(context.Background(), "friends", provider.Eq("name", "Ana"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ana", rows[0]["name"])

	assert.Equal(t, "/rest/v1/friends", cap.path)
	assert.Contains(t, cap.query, "select=*")
	assert.Contains(t, cap.query, "order=created_at.desc")
	assert.Contains(t, cap.query, "name=eq.Ana")
	assert.Equal(t, "service-key", cap.header.Get("apikey"))
}

func TestSelect_EmptyResult(t *testing.T) {
	t.Parallel()

	client, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{})
	})

	rows, err := client.Select(context.Background(), "friends")
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestInsert(t *testing.T) {
	t.Parallel()

	client, cap := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, []map[string]any{{"id": "r-1", "name": "Ana"}})
	})

	row, err := client.Insert(context.Background(), "friends", provider.Row{"name": "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "r-1", row["id"])

	assert.Equal(t, http.MethodPost, cap.method)
	assert.Equal(t, "/rest/v1/friends", cap.path)
	assert.Contains(t, cap.header.Get("Prefer"), "return=representation")
}

func TestUpdate_NoMatches(t *testing.T) {
	t.Parallel()

	client, cap := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{})
	})

	rows, err := client.Update(context.Background(), "friends",
		provider.Row{"name": "New"}, provider.Eq("id", "42"))
	require.NoError(t, err)
	assert.Empty(t, rows)

	assert.Equal(t, http.MethodPatch, cap.method)
	assert.Contains(t, cap.query, "id=eq.42")
}

func TestDelete(t *testing.T) {
	t.Parallel()

	client, cap := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.Delete(context.Background(), "friends", provider.Eq("id", "r-1")))
	assert.Equal(t, http.MethodDelete, cap.method)
	assert.Contains(t, cap.query, "id=eq.r-1")
}

func TestUpsert_SetsConflictColumn(t *testing.T) {
	t.Parallel()

	client, cap := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, []map[string]any{{"user_id": "u-1", "role": "admin"}})
	})

	row, err := client.Upsert(context.Background(), "user_roles",
		provider.Row{"user_id": "u-1", "role": "admin"}, "user_id")
	require.NoError(t, err)
	assert.Equal(t, "admin", row["role"])

	assert.Contains(t, cap.query, "on_conflict=user_id")
	assert.Contains(t, cap.header.Get("Prefer"), "resolution=merge-duplicates")
}

// --- admin endpoints ---

func TestListUsers(t *testing.T) {
	t.Parallel()

	client, cap := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"users": []map[string]any{
				{"id": "u-1", "email": "a@b.com", "created_at": "2024-01-02T03:04:05Z"},
				{"id": "u-2", "email": "c@d.com", "created_at": "2024-02-02T03:04:05Z"},
			},
		})
	})

	principals, err := client.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, principals, 2)
	assert.Equal(t, "a@b.com", principals[0].Email)

	assert.Equal(t, "/auth/v1/admin/users", cap.path)
	assert.Equal(t, "service-key", cap.header.Get("apikey"))
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusUnprocessableEntity, http.StatusConflict} {
		client, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})

		_, err := client.CreateUser(context.Background(), "a@b.com", "password123")
		assert.ErrorIs(t, err, provider.ErrUserExists, "status %d", status)
	}
}

func TestCreateUser_ConfirmsEmail(t *testing.T) {
	t.Parallel()

	client, cap := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"id": "u-3", "email": "new@b.com", "created_at": "2024-03-02T03:04:05Z",
		})
	})

	principal, err := client.CreateUser(context.Background(), "new@b.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "u-3", principal.ID)
	assert.Contains(t, string(cap.body), `"email_confirm":true`)
}

func TestDeleteUser(t *testing.T) {
	t.Parallel()

	client, cap := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.DeleteUser(context.Background(), "u-1"))
	assert.Equal(t, "/auth/v1/admin/users/u-1", cap.path)
}

func TestDeleteUser_NotFound(t *testing.T) {
	t.Parallel()

	client, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	err := client.DeleteUser(context.Background(), "missing")
	assert.ErrorIs(t, err, provider.ErrUserNotFound)
}
