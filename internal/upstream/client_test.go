package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCreds is a Credentials that swaps to a second token on refresh.
type fakeCreds struct {
	token        string
	next         string
	refreshCalls int
}

func (f *fakeCreds) AccessToken(context.Context) (string, error) {
	return f.token, nil
}

func (f *fakeCreds) ForceRefresh(context.Context) (string, error) {
	f.refreshCalls++
	f.token = f.next
	return f.token, nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, 2*time.Second)
}

func TestLoginKindEndpoints(t *testing.T) {
	cases := []struct {
		kind LoginKind
		path string
	}{
		{LoginKindUser, "/user/login"},
		{LoginKindAdmin, "/admin/login"},
		{LoginKindSystem, "/system/login"},
	}

	for _, tc := range cases {
		var gotPath string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			_ = json.NewEncoder(w).Encode(LoginResult{AccessToken: "AT", RefreshToken: "RT"})
		})

		_, err := client.Login(context.Background(), LoginRequest{Kind: tc.kind, Email: "a@b.c", Password: "pw"})
		require.NoError(t, err)
		assert.Equal(t, tc.path, gotPath)
	}
}

func TestLoginUnknownKind(t *testing.T) {
	client := New("http://unused", time.Second)
	_, err := client.Login(context.Background(), LoginRequest{Kind: "superuser"})
	assert.Error(t, err)
}

func TestLoginOmitsUnusedFields(t *testing.T) {
	var body map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(LoginResult{AccessToken: "AT", RefreshToken: "RT"})
	})

	_, err := client.Login(context.Background(), LoginRequest{Kind: LoginKindUser, LoginCode: "CODE-1"})
	require.NoError(t, err)
	assert.Equal(t, "CODE-1", body["loginCode"])
	assert.NotContains(t, body, "email")
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "institutionId")
}

func TestAPIErrorCarriesMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "duplicate login code"})
	})

	_, err := client.Login(context.Background(), LoginRequest{Kind: LoginKindUser, LoginCode: "X"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "duplicate login code", apiErr.Message)
}

func TestAuthorizedSetsBearerHeader(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]int{"count": 3})
	})

	creds := &fakeCreds{token: "AT1"}
	count, err := client.GetUnreadNotificationCount(context.Background(), creds)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, "Bearer AT1", gotAuth)
}

func TestAuthorizedRetriesOnceAfterRefresh(t *testing.T) {
	var tokens []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		tokens = append(tokens, token)
		if token != "Bearer AT2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]int{"count": 1})
	})

	creds := &fakeCreds{token: "AT1", next: "AT2"}
	count, err := client.GetUnreadNotificationCount(context.Background(), creds)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, 1, creds.refreshCalls)
	assert.Equal(t, []string{"Bearer AT1", "Bearer AT2"}, tokens)
}

func TestAuthorizedGivesUpAfterSecond401(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	})

	creds := &fakeCreds{token: "AT1", next: "AT2"}
	_, err := client.GetUnreadNotificationCount(context.Background(), creds)
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 2, calls, "exactly one retry")
	assert.Equal(t, 1, creds.refreshCalls)
}

func TestRefreshExchangesTokenPair(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		require.Equal(t, "RT1", body["refreshToken"])
		_ = json.NewEncoder(w).Encode(TokenPair{AccessToken: "AT2", RefreshToken: "RT2"})
	})

	pair, err := client.Refresh(context.Background(), "RT1")
	require.NoError(t, err)
	assert.Equal(t, "AT2", pair.AccessToken)
	assert.Equal(t, "RT2", pair.RefreshToken)
}

func TestLogoutBestEffort(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.Logout(context.Background(), "AT1"))
	assert.Equal(t, "Bearer AT1", gotAuth)
}

func TestBulkAssignPostsCategoryAndUsers(t *testing.T) {
	var req BulkAssignRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/assignments/bulk", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.WriteHeader(http.StatusNoContent)
	})

	err := client.BulkAssign(context.Background(), &fakeCreds{token: "AT"}, BulkAssignRequest{
		CategoryID: 5,
		UserIDs:    []int64{1, 2, 3},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), req.CategoryID)
	assert.Equal(t, []int64{1, 2, 3}, req.UserIDs)
}
