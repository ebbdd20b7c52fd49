package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onsamiro-welfare-service/onsae-console/internal/core/domain"
	"github.com/onsamiro-welfare-service/onsae-console/internal/core/repository"
	"github.com/onsamiro-welfare-service/onsae-console/internal/upstream"
)

func newSessionFixture(t *testing.T, handler http.HandlerFunc) (*Session, *repository.MemorySessionStore) {
	t.Helper()

	if handler == nil {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := repository.NewMemorySessionStore(time.Minute)
	api := upstream.New(srv.URL, 2*time.Second)
	return NewSession("sid-test", store, api), store
}

func kimProfile() domain.Profile {
	return domain.Profile{ID: 7, Name: "Kim", Role: domain.RoleAdmin}
}

func TestSessionStartsLoading(t *testing.T) {
	sess, _ := newSessionFixture(t, nil)

	assert.True(t, sess.Loading())
	assert.False(t, sess.Authenticated())
	assert.Nil(t, sess.User())

	_, err := sess.AccessToken(context.Background())
	assert.ErrorIs(t, err, ErrSessionLoading)
}

func TestResolveWithoutRecord(t *testing.T) {
	sess, _ := newSessionFixture(t, nil)

	sess.Resolve(context.Background())

	assert.False(t, sess.Loading())
	assert.False(t, sess.Authenticated())

	_, err := sess.AccessToken(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestLoginRoundTrip(t *testing.T) {
	sess, store := newSessionFixture(t, nil)
	ctx := context.Background()
	sess.Resolve(ctx)

	require.NoError(t, sess.Login(ctx, "AT1", "RT1", kimProfile()))

	// Durable storage and the in-memory holder agree.
	rec, err := store.Load(ctx, "sid-test")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "AT1", rec.AccessToken)
	assert.Equal(t, "RT1", rec.RefreshToken)

	profile, err := domain.DecodeProfile(rec.Profile)
	require.NoError(t, err)
	assert.Equal(t, int64(7), profile.ID)

	assert.True(t, sess.Authenticated())
	assert.Equal(t, "Kim", sess.User().Name)

	token, err := sess.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "AT1", token)
}

func TestLoginRejectsInvalidProfile(t *testing.T) {
	sess, store := newSessionFixture(t, nil)
	ctx := context.Background()
	sess.Resolve(ctx)

	err := sess.Login(ctx, "AT1", "RT1", domain.Profile{Name: "NoID", Role: domain.RoleUser})
	require.Error(t, err)

	rec, err := store.Load(ctx, "sid-test")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.False(t, sess.Authenticated())
}

func TestResolveRestoresPersistedSession(t *testing.T) {
	first, store := newSessionFixture(t, nil)
	ctx := context.Background()
	first.Resolve(ctx)
	require.NoError(t, first.Login(ctx, "AT1", "RT1", kimProfile()))

	// A new page load constructs a fresh context over the same storage.
	second := NewSession("sid-test", store, upstream.New("http://unused", time.Second))
	second.Resolve(ctx)

	assert.True(t, second.Authenticated())
	assert.Equal(t, "Kim", second.User().Name)
}

func TestResolveRejectsMalformedProfile(t *testing.T) {
	sess, store := newSessionFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "sid-test", domain.SessionRecord{
		AccessToken:  "AT1",
		RefreshToken: "RT1",
		Profile:      []byte(`{"version":42,"shape":"unknown"}`),
	}))

	sess.Resolve(ctx)

	assert.False(t, sess.Loading())
	assert.False(t, sess.Authenticated(), "unknown record shapes resolve to logged out")
}

func TestResolveRunsOnce(t *testing.T) {
	sess, store := newSessionFixture(t, nil)
	ctx := context.Background()
	sess.Resolve(ctx)

	// A record written after resolution must not appear mid-lifecycle.
	encoded, err := domain.EncodeProfile(kimProfile())
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "sid-test", domain.SessionRecord{
		AccessToken: "AT1", RefreshToken: "RT1", Profile: encoded,
	}))

	sess.Resolve(ctx)
	assert.False(t, sess.Authenticated())
}

func TestLogoutClearsEverything(t *testing.T) {
	sess, store := newSessionFixture(t, nil)
	ctx := context.Background()
	sess.Resolve(ctx)
	require.NoError(t, sess.Login(ctx, "AT1", "RT1", kimProfile()))

	sess.Logout(ctx)

	assert.False(t, sess.Authenticated())
	assert.Nil(t, sess.User())

	rec, err := store.Load(ctx, "sid-test")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestLogoutSurvivesUpstreamFailure(t *testing.T) {
	sess, store := newSessionFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	ctx := context.Background()
	sess.Resolve(ctx)
	require.NoError(t, sess.Login(ctx, "AT1", "RT1", kimProfile()))

	// The upstream invalidation rejects; local teardown happens anyway.
	sess.Logout(ctx)

	assert.False(t, sess.Authenticated())
	rec, err := store.Load(ctx, "sid-test")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestAuthenticateConsolidatedFlow(t *testing.T) {
	sess, store := newSessionFixture(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/admin/login", r.URL.Path)
		_ = json.NewEncoder(w).Encode(upstream.LoginResult{
			AccessToken:  "AT1",
			RefreshToken: "RT1",
			User:         domain.Profile{ID: 7, Name: "Kim", Role: domain.RoleAdmin},
		})
	})
	ctx := context.Background()
	sess.Resolve(ctx)

	profile, err := sess.Authenticate(ctx, upstream.LoginRequest{
		Kind:          upstream.LoginKindAdmin,
		Email:         "kim@example.org",
		Password:      "pw",
		InstitutionID: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "Kim", profile.Name)
	assert.True(t, sess.Authenticated())

	rec, err := store.Load(ctx, "sid-test")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "AT1", rec.AccessToken)
}

func TestAuthenticateRejected(t *testing.T) {
	sess, _ := newSessionFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	ctx := context.Background()
	sess.Resolve(ctx)

	_, err := sess.Authenticate(ctx, upstream.LoginRequest{Kind: upstream.LoginKindUser, LoginCode: "BAD"})
	require.ErrorIs(t, err, ErrLoginRejected)
	assert.False(t, sess.Authenticated())
}

func TestAuthenticateUpstreamFailureIsNotRejection(t *testing.T) {
	sess, _ := newSessionFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	ctx := context.Background()
	sess.Resolve(ctx)

	// A failing upstream is an infrastructure error, not bad credentials.
	_, err := sess.Authenticate(ctx, upstream.LoginRequest{Kind: upstream.LoginKindAdmin, Email: "a@b.c", Password: "pw"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLoginRejected)
	assert.False(t, sess.Authenticated())
}

func TestAuthenticateUpstreamUnreachableIsNotRejection(t *testing.T) {
	store := repository.NewMemorySessionStore(time.Minute)
	sess := NewSession("sid-test", store, upstream.New("http://127.0.0.1:1", 200*time.Millisecond))
	ctx := context.Background()
	sess.Resolve(ctx)

	_, err := sess.Authenticate(ctx, upstream.LoginRequest{Kind: upstream.LoginKindAdmin, Email: "a@b.c", Password: "pw"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLoginRejected)
}

func TestForceRefreshRotatesPair(t *testing.T) {
	sess, store := newSessionFixture(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/refresh", r.URL.Path)
		_ = json.NewEncoder(w).Encode(upstream.TokenPair{AccessToken: "AT2", RefreshToken: "RT2"})
	})
	ctx := context.Background()
	sess.Resolve(ctx)
	require.NoError(t, sess.Login(ctx, "AT1", "RT1", kimProfile()))

	token, err := sess.ForceRefresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, "AT2", token)

	rec, err := store.Load(ctx, "sid-test")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "AT2", rec.AccessToken)
	assert.Equal(t, "RT2", rec.RefreshToken)
}

func TestForceRefreshFailure(t *testing.T) {
	sess, _ := newSessionFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	ctx := context.Background()
	sess.Resolve(ctx)
	require.NoError(t, sess.Login(ctx, "AT1", "RT1", kimProfile()))

	_, err := sess.ForceRefresh(ctx)
	assert.ErrorIs(t, err, ErrRefreshFailed)
}
