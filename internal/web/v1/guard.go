package v1

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/onsamiro-welfare-service/onsae-console/internal/core/domain"
	logicv1 "github.com/onsamiro-welfare-service/onsae-console/internal/logic/v1"
	"github.com/onsamiro-welfare-service/onsae-console/middleware"
)

// guardArea is the access requirement of a guarded route.
type guardArea int

const (
	// areaAuthenticated admits any logged-in actor. Used by the shared
	// data APIs, which both admin classes consume.
	areaAuthenticated guardArea = iota

	// areaDashboard is the general console area; system admins are sent
	// to their own area instead.
	areaDashboard

	// areaSystemAdmin is the system-admin area.
	areaSystemAdmin
)

// guardAction is the outcome of one guard evaluation.
type guardAction int

const (
	// guardWait means the session is still loading: render the neutral
	// waiting state, never protected content, never a redirect.
	guardWait guardAction = iota
	guardAllow
	guardRedirect
)

// evaluateGuard is the page-level access decision, layered on top of the
// edge gate for navigations the gate cannot see. It must only act on a
// resolved session; the decision is recomputed on every request, so a logout
// while a protected page is open redirects on the very next evaluation.
func evaluateGuard(sess *logicv1.Session, area guardArea, path string) (guardAction, string) {
	if sess.Loading() {
		return guardWait, ""
	}

	user := sess.User()
	if user == nil {
		login := middleware.PathSignIn
		if area == areaSystemAdmin {
			login = middleware.PathSystemAdminLogin
		}
		q := url.Values{"returnUrl": {path}}
		return guardRedirect, login + "?" + q.Encode()
	}

	// The stored profile is authoritative over the gate's cookie hint.
	isSystemAdmin := user.Role == domain.RoleSystemAdmin
	switch area {
	case areaSystemAdmin:
		if !isSystemAdmin {
			return guardRedirect, middleware.PathDashboard
		}
	case areaDashboard:
		if isSystemAdmin {
			return guardRedirect, middleware.PathSystemAdmin
		}
	}

	return guardAllow, ""
}

// GuardPage protects a page route: unauthenticated or wrong-role visitors
// are redirected, a loading session gets the neutral waiting response.
func (h *Handler) GuardPage(area guardArea) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := h.session(c)

		switch action, target := evaluateGuard(sess, area, c.Request.URL.Path); action {
		case guardWait:
			c.Header("Retry-After", "1")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "resolving"})
			c.Abort()
		case guardRedirect:
			c.Redirect(http.StatusFound, target)
			c.Abort()
		default:
			c.Next()
		}
	}
}

// GuardAPI protects an API route. The API namespace bypasses the edge gate,
// so failures surface as statuses for the caller instead of redirects.
func (h *Handler) GuardAPI(area guardArea) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := h.session(c)

		switch action, _ := evaluateGuard(sess, area, c.Request.URL.Path); action {
		case guardWait:
			c.Header("Retry-After", "1")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "resolving"})
			c.Abort()
		case guardRedirect:
			if sess.User() == nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			} else {
				c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			}
			c.Abort()
		default:
			c.Next()
		}
	}
}
