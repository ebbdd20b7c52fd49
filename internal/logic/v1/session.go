package v1

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/onsamiro-welfare-service/onsae-console/internal/core/domain"
	"github.com/onsamiro-welfare-service/onsae-console/internal/logger"
	"github.com/onsamiro-welfare-service/onsae-console/internal/upstream"
	"github.com/onsamiro-welfare-service/onsae-console/middleware"
)

// Session is the explicitly constructed session context for one browser
// session. It is built per page load, resolved once against durable storage,
// and injected into the handler tree; nothing mutates session state outside
// this object's own methods.
//
// Lifecycle: loading (initial) → resolved-authenticated or
// resolved-unauthenticated. Consumers must treat Loading() == true as
// "unknown — do not decide": no redirects, no protected content.
type Session struct {
	id    string
	store domain.SessionStore
	api   *upstream.Client

	mu           sync.Mutex
	loading      bool
	profile      *domain.Profile
	accessToken  string
	refreshToken string
}

// NewSession creates a Session in the loading phase for the given session id.
func NewSession(id string, store domain.SessionStore, api *upstream.Client) *Session {
	return &Session{
		id:      id,
		store:   store,
		api:     api,
		loading: true,
	}
}

// ID returns the opaque session id this context is keyed by.
func (s *Session) ID() string {
	return s.id
}

// Loading reports whether the initial synchronization with durable storage
// has not yet completed.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Authenticated reports whether a valid profile is present. Always false
// while loading.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.loading && s.profile != nil
}

// User returns a copy of the resolved profile, or nil when unauthenticated
// or still loading.
func (s *Session) User() *domain.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading || s.profile == nil {
		return nil
	}
	p := *s.profile
	return &p
}

// Resolve performs the one-time synchronization with durable storage.
// Whatever the outcome, the loading flag flips to false exactly once; a
// missing, expired, or malformed record resolves to unauthenticated rather
// than erroring. Safe to call more than once; later calls are no-ops.
func (s *Session) Resolve(ctx context.Context) {
	ctx, span := middleware.StartSpan(ctx, "session.resolve", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loading {
		return
	}
	// The loading flag flips regardless of what the store returns.
	defer func() { s.loading = false }()

	if s.id == "" {
		span.SetAttributes(attribute.Bool("session.found", false))
		return
	}

	rec, err := s.store.Load(ctx, s.id)
	if err != nil {
		span.RecordError(err)
		logger.FromContext(ctx).Error().Err(err).Msg("Session load failed")
		return
	}
	if rec == nil || rec.AccessToken == "" {
		span.SetAttributes(attribute.Bool("session.found", false))
		return
	}

	profile, err := domain.DecodeProfile(rec.Profile)
	if err != nil {
		// Reject unknown record shapes instead of trusting them; the
		// user goes back through login.
		span.RecordError(err)
		logger.FromContext(ctx).Warn().Err(err).Msg("Persisted profile rejected")
		return
	}

	s.profile = profile
	s.accessToken = rec.AccessToken
	s.refreshToken = rec.RefreshToken
	span.SetAttributes(
		attribute.Bool("session.found", true),
		attribute.String("session.role", string(profile.Role)),
	)
}

// Login persists the token pair and profile to durable storage and
// transitions to resolved-authenticated. It performs no navigation; callers
// redirect afterward. The in-memory holder is only updated once the durable
// write succeeded, so the two always agree when Login returns.
func (s *Session) Login(ctx context.Context, accessToken, refreshToken string, profile domain.Profile) error {
	ctx, span := middleware.StartSpan(ctx, "session.login", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	profile.Version = domain.ProfileSchemaVersion
	if err := profile.Validate(); err != nil {
		span.RecordError(err)
		return err
	}

	encoded, err := domain.EncodeProfile(profile)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("encode profile: %w", err)
	}

	rec := domain.SessionRecord{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Profile:      encoded,
	}
	if err := s.store.Save(ctx, s.id, rec); err != nil {
		span.RecordError(err)
		return fmt.Errorf("persist session: %w", err)
	}

	s.mu.Lock()
	s.profile = &profile
	s.accessToken = accessToken
	s.refreshToken = refreshToken
	s.loading = false
	s.mu.Unlock()

	span.SetAttributes(
		attribute.String("user.role", string(profile.Role)),
		attribute.Bool("auth.success", true),
	)
	return nil
}

// Authenticate runs the consolidated login flow: it sends the credentials to
// the endpoint selected by req.Kind and, on success, persists the returned
// session. The three login forms share this one path.
func (s *Session) Authenticate(ctx context.Context, req upstream.LoginRequest) (*domain.Profile, error) {
	ctx, span := middleware.StartSpan(ctx, "session.authenticate", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("login.kind", string(req.Kind)),
	))
	defer span.End()

	result, err := s.api.Login(ctx, req)
	if err != nil {
		span.SetAttributes(attribute.Bool("auth.success", false))
		// Only an upstream 401 means the credentials were wrong. A dead
		// or failing upstream must not masquerade as a rejected login.
		if errors.Is(err, upstream.ErrUnauthorized) {
			return nil, fmt.Errorf("%s login: %w: %w", req.Kind, ErrLoginRejected, err)
		}
		return nil, fmt.Errorf("%s login: %w", req.Kind, err)
	}

	profile := result.User
	profile.Version = domain.ProfileSchemaVersion
	if err := profile.Validate(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("upstream profile: %w", err)
	}

	if err := s.Login(ctx, result.AccessToken, result.RefreshToken, profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Logout tears the session down. The upstream invalidation call is
// best-effort: its failure is logged and never blocks local teardown, so a
// user is never stranded in an authenticated-looking state. Always resolves
// to unauthenticated.
func (s *Session) Logout(ctx context.Context) {
	ctx, span := middleware.StartSpan(ctx, "session.logout", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	s.mu.Lock()
	token := s.accessToken
	s.mu.Unlock()

	if token != "" {
		if err := s.api.Logout(ctx, token); err != nil {
			span.RecordError(err)
			logger.FromContext(ctx).Warn().Err(err).Msg("Upstream logout failed, clearing local session anyway")
		}
	}

	if err := s.store.Delete(ctx, s.id); err != nil {
		span.RecordError(err)
		logger.FromContext(ctx).Error().Err(err).Msg("Session delete failed")
	}

	s.mu.Lock()
	s.profile = nil
	s.accessToken = ""
	s.refreshToken = ""
	s.loading = false
	s.mu.Unlock()
}

// AccessToken implements upstream.Credentials. When the token carries a
// readable expiry that has passed, it refreshes before returning.
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return "", ErrSessionLoading
	}
	if s.profile == nil || s.accessToken == "" {
		s.mu.Unlock()
		return "", ErrNotAuthenticated
	}
	token := s.accessToken
	s.mu.Unlock()

	if upstream.TokenExpired(token, time.Now()) {
		return s.ForceRefresh(ctx)
	}
	return token, nil
}

// ForceRefresh implements upstream.Credentials: it exchanges the refresh
// token for a new pair, persists it, and returns the new access token.
func (s *Session) ForceRefresh(ctx context.Context) (string, error) {
	ctx, span := middleware.StartSpan(ctx, "session.refresh", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	s.mu.Lock()
	refresh := s.refreshToken
	profile := s.profile
	s.mu.Unlock()

	if refresh == "" || profile == nil {
		return "", ErrNotAuthenticated
	}

	pair, err := s.api.Refresh(ctx, refresh)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	encoded, err := domain.EncodeProfile(*profile)
	if err != nil {
		return "", fmt.Errorf("encode profile: %w", err)
	}
	rec := domain.SessionRecord{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Profile:      encoded,
	}
	// Best-effort persist; the in-memory pair is updated regardless so the
	// current page keeps working, and the next resolve re-syncs.
	if err := s.store.Save(ctx, s.id, rec); err != nil {
		span.RecordError(err)
		logger.FromContext(ctx).Error().Err(err).Msg("Persisting refreshed tokens failed")
	}

	s.mu.Lock()
	s.accessToken = pair.AccessToken
	s.refreshToken = pair.RefreshToken
	s.mu.Unlock()

	return pair.AccessToken, nil
}
