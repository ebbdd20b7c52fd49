// Package v1 exposes the console HTTP surface: the login/logout endpoints,
// the session bootstrap, the guarded page routes, and the thin CRUD
// pass-throughs to the upstream care-management API.
package v1

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/onsamiro-welfare-service/onsae-console/config"
	"github.com/onsamiro-welfare-service/onsae-console/internal/core/domain"
	"github.com/onsamiro-welfare-service/onsae-console/internal/logger"
	logicv1 "github.com/onsamiro-welfare-service/onsae-console/internal/logic/v1"
	"github.com/onsamiro-welfare-service/onsae-console/internal/upstream"
	"github.com/onsamiro-welfare-service/onsae-console/middleware"
)

const sessionContextKey = "onsae_session"

// Handler groups the console HTTP handlers.
// Dependencies are injected via the constructor — no global state.
type Handler struct {
	store domain.SessionStore
	api   *upstream.Client
	cfg   *config.Config
}

// NewHandler creates a Handler over the given session store and upstream
// client.
func NewHandler(store domain.SessionStore, api *upstream.Client, cfg *config.Config) *Handler {
	return &Handler{store: store, api: api, cfg: cfg}
}

// RegisterRoutes registers the full console route surface.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	// Entry points; the edge gate has already bounced authenticated
	// visitors away from the login pages.
	r.GET(middleware.PathSignIn, h.LoginPage(upstream.LoginKindUser))
	r.GET(middleware.PathSignUp, h.SignUpPage)
	r.GET(middleware.PathSystemAdminLogin, h.LoginPage(upstream.LoginKindSystem))

	// Guarded page routes. The guard re-checks what the gate decided from
	// cookies against the resolved session, so purely client-side
	// navigation cannot slip through on a stale signal.
	r.GET(middleware.PathRoot, h.GuardPage(areaDashboard), h.DashboardPage)
	dashboard := r.Group(middleware.PathDashboard, h.GuardPage(areaDashboard))
	{
		dashboard.GET("", h.DashboardPage)
		dashboard.GET("/*page", h.DashboardPage)
	}
	system := r.Group(middleware.PathSystemAdmin, h.GuardPage(areaSystemAdmin))
	{
		system.GET("", h.SystemAdminPage)
		system.GET("/*page", h.SystemAdminPage)
	}

	api := r.Group("/api")
	{
		api.POST("/login/:kind", h.Login)
		api.POST("/logout", h.Logout)
		api.GET("/session", h.SessionBootstrap)

		authed := api.Group("", h.GuardAPI(areaAuthenticated))
		{
			authed.GET("/dashboard/stats", h.DashboardStats)

			authed.GET("/users", h.ListUsers)
			authed.POST("/users", h.CreateUser)
			authed.PUT("/users/:id", h.UpdateUser)
			authed.DELETE("/users/:id", h.DeleteUser)

			authed.GET("/groups", h.ListGroups)
			authed.POST("/groups", h.CreateGroup)
			authed.DELETE("/groups/:id", h.DeleteGroup)

			authed.GET("/categories", h.ListCategories)
			authed.POST("/categories", h.CreateCategory)
			authed.DELETE("/categories/:id", h.DeleteCategory)

			authed.GET("/questions", h.ListQuestions)
			authed.POST("/questions", h.CreateQuestion)
			authed.DELETE("/questions/:id", h.DeleteQuestion)

			authed.GET("/assignments", h.ListAssignments)
			authed.POST("/assignments/bulk", h.BulkAssign)
			authed.DELETE("/assignments/:id", h.DeleteAssignment)

			authed.GET("/notifications", h.ListNotifications)
			authed.GET("/notifications/stream", h.NotificationStream)
			authed.GET("/notifications/unread-count", h.UnreadNotificationCount)
			authed.POST("/notifications/:id/read", h.MarkNotificationRead)
		}

		systemAPI := api.Group("/system", h.GuardAPI(areaSystemAdmin))
		{
			systemAPI.GET("/institutions", h.ListInstitutions)
			systemAPI.POST("/institutions/:id/approve", h.ApproveInstitution)
		}
	}
}

// session returns the request's session context, constructing and resolving
// it on first use. One context per page load; handlers and guards share it
// through the gin context.
func (h *Handler) session(c *gin.Context) *logicv1.Session {
	if v, ok := c.Get(sessionContextKey); ok {
		return v.(*logicv1.Session)
	}

	sid, _ := c.Cookie(middleware.CookieSessionID)
	sess := logicv1.NewSession(sid, h.store, h.api)
	sess.Resolve(c.Request.Context())
	c.Set(sessionContextKey, sess)
	return sess
}

// loginRequestBody is the union body of the three login forms; the kind in
// the URL selects which fields matter.
type loginRequestBody struct {
	LoginCode     string `json:"loginCode"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	InstitutionID int64  `json:"institutionId"`
}

// Login handles the consolidated login flow for all three user classes.
// POST /api/login/:kind, kind ∈ {user, admin, system}.
func (h *Handler) Login(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()

	kind := upstream.LoginKind(c.Param("kind"))
	switch kind {
	case upstream.LoginKindUser, upstream.LoginKindAdmin, upstream.LoginKindSystem:
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown login kind"})
		return
	}

	var body loginRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// A fresh session id on every login; the old record, if any, is
	// orphaned and ages out by TTL.
	sid := uuid.NewString()
	sess := logicv1.NewSession(sid, h.store, h.api)
	sess.Resolve(ctx)

	profile, err := sess.Authenticate(ctx, upstream.LoginRequest{
		Kind:          kind,
		LoginCode:     body.LoginCode,
		Email:         body.Email,
		Password:      body.Password,
		InstitutionID: body.InstitutionID,
	})
	if err != nil {
		span.RecordError(err)
		logger.FromContext(ctx).Warn().Err(err).Str("kind", string(kind)).Msg("Login failed")

		var apiErr *upstream.APIError
		switch {
		case errors.Is(err, logicv1.ErrLoginRejected) && errors.As(err, &apiErr) && apiErr.Message != "":
			c.JSON(http.StatusUnauthorized, gin.H{"error": apiErr.Message})
		case errors.Is(err, logicv1.ErrLoginRejected):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	h.setSessionCookies(c, sid, profile.Role)
	c.Set(sessionContextKey, sess)

	logger.FromContext(ctx).Info().
		Int64("user_id", profile.ID).
		Str("role", string(profile.Role)).
		Msg("Login successful")

	c.JSON(http.StatusOK, gin.H{
		"user":       profile,
		"redirectTo": postLoginTarget(c.Query("returnUrl"), profile.Role),
	})
}

// Logout tears down the session. Local teardown always succeeds; the
// upstream invalidation is best-effort inside the session context.
// POST /api/logout
func (h *Handler) Logout(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()

	sess := h.session(c)
	sess.Logout(ctx)
	h.clearSessionCookies(c)

	c.JSON(http.StatusOK, gin.H{"redirectTo": middleware.PathSignIn})
}

// SessionBootstrap reports the resolved session so the page tree can decide
// what to render without a redirect round-trip.
// GET /api/session
func (h *Handler) SessionBootstrap(c *gin.Context) {
	sess := h.session(c)

	if user := sess.User(); user != nil {
		c.JSON(http.StatusOK, gin.H{
			"authenticated": true,
			"user":          user,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": false})
}

// postLoginTarget picks where a fresh login lands: a safe returnUrl when one
// was carried through the login redirect, otherwise the role's home area.
func postLoginTarget(returnURL string, role domain.Role) string {
	if safeReturnURL(returnURL) {
		return returnURL
	}
	if role == domain.RoleSystemAdmin {
		return middleware.PathSystemAdmin
	}
	return middleware.PathDashboard
}

// safeReturnURL accepts only same-origin absolute paths, rejecting
// protocol-relative and external targets.
func safeReturnURL(u string) bool {
	return strings.HasPrefix(u, "/") && !strings.HasPrefix(u, "//")
}

func (h *Handler) setSessionCookies(c *gin.Context, sid string, role domain.Role) {
	maxAge := h.cfg.Session.TTL
	domainName := h.cfg.Session.CookieDomain
	secure := h.cfg.Session.CookieSecure

	c.SetCookie(middleware.CookieSessionID, sid, maxAge, "/", domainName, secure, true)
	// Gate signals: presence marker plus the advisory role hint. The
	// authoritative token never leaves the server-side store.
	c.SetCookie(middleware.CookieAccessToken, "1", maxAge, "/", domainName, secure, true)
	c.SetCookie(middleware.CookieUserType, string(role), maxAge, "/", domainName, secure, true)
}

func (h *Handler) clearSessionCookies(c *gin.Context) {
	domainName := h.cfg.Session.CookieDomain
	secure := h.cfg.Session.CookieSecure

	c.SetCookie(middleware.CookieSessionID, "", -1, "/", domainName, secure, true)
	c.SetCookie(middleware.CookieAccessToken, "", -1, "/", domainName, secure, true)
	c.SetCookie(middleware.CookieUserType, "", -1, "/", domainName, secure, true)
}
