package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/onsamiro-welfare-service/onsae-console/internal/core/domain"
)

// Cookie names carrying the session signals the edge gate reads. They are
// set as a side effect of login and cleared on logout.
const (
	// CookieSessionID keys the durable session record.
	CookieSessionID = "onsae_sid"

	// CookieAccessToken marks token presence for the gate. The gate only
	// tests presence; the authoritative token lives in the session store.
	CookieAccessToken = "onsae_at"

	// CookieUserType is the advisory role hint for the gate. The page
	// guard re-checks against the stored profile, so a stale value costs
	// at most one extra redirect hop.
	CookieUserType = "onsae_user_type"
)

// Console route surface.
const (
	PathRoot             = "/"
	PathSignIn           = "/sign-in"
	PathSignUp           = "/sign-up"
	PathSystemAdminLogin = "/system-admin-login"
	PathDashboard        = "/dashboard"
	PathSystemAdmin      = "/system-admin"
)

// roleClass is the access requirement of a route prefix.
type roleClass int

const (
	classAnyAuthenticated roleClass = iota
	classSystemAdminOnly
	classLoginPage
)

// gateRule maps a path prefix to its access requirement and redirect
// targets. Rules are evaluated in order; the first match wins.
type gateRule struct {
	prefix    string
	exact     bool
	matchRoot bool
	class     roleClass
	loginPage string
}

// gateRules is the static role-based routing table. Prefixes are compared
// case-sensitively and segment-aware, so /system-admin-login never matches
// the /system-admin area rule.
var gateRules = []gateRule{
	{prefix: PathSystemAdmin, class: classSystemAdminOnly, loginPage: PathSystemAdminLogin},
	{prefix: PathDashboard, matchRoot: true, class: classAnyAuthenticated, loginPage: PathSignIn},
	{prefix: PathSignIn, exact: true, class: classLoginPage},
	{prefix: PathSystemAdminLogin, exact: true, class: classLoginPage},
}

// gateExemptPrefixes bypass the gate entirely: static assets, the API
// namespace, and operational endpoints.
var gateExemptPrefixes = []string{"/api", "/static", "/healthz", "/readyz", "/metrics", "/favicon.ico"}

// Gate is the pre-render request interceptor. For every navigable path it
// decides allow or redirect before the target handler runs, using only the
// token-presence and user-type cookies. It performs no I/O, holds no state,
// and treats an absent signal exactly like logged-out.
func Gate() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		for _, exempt := range gateExemptPrefixes {
			if hasPathPrefix(path, exempt) {
				c.Next()
				return
			}
		}

		hasToken := cookieValue(c, CookieAccessToken) != ""
		isSystemAdmin := cookieValue(c, CookieUserType) == string(domain.RoleSystemAdmin)

		for _, rule := range gateRules {
			if !rule.matches(path) {
				continue
			}
			if target, redirect := rule.decide(path, hasToken, isSystemAdmin); redirect {
				c.Redirect(http.StatusFound, target)
				c.Abort()
				return
			}
			c.Next()
			return
		}

		// No rule claims the path: pass through unchanged.
		c.Next()
	}
}

func (r gateRule) matches(path string) bool {
	if r.exact {
		return path == r.prefix
	}
	if r.matchRoot && path == PathRoot {
		return true
	}
	return hasPathPrefix(path, r.prefix)
}

// decide applies the decision table for one matched rule. The second return
// is false when the request may pass through.
func (r gateRule) decide(path string, hasToken, isSystemAdmin bool) (string, bool) {
	switch r.class {
	case classSystemAdminOnly:
		if !hasToken {
			return loginRedirect(r.loginPage, path), true
		}
		if !isSystemAdmin {
			return PathDashboard, true
		}
	case classAnyAuthenticated:
		if !hasToken {
			return loginRedirect(r.loginPage, path), true
		}
		if isSystemAdmin {
			return PathSystemAdmin, true
		}
	case classLoginPage:
		if hasToken {
			if isSystemAdmin {
				return PathSystemAdmin, true
			}
			return PathDashboard, true
		}
	}
	return "", false
}

// loginRedirect builds a login-page redirect preserving the original path in
// the returnUrl query parameter.
func loginRedirect(loginPage, originalPath string) string {
	q := url.Values{"returnUrl": {originalPath}}
	return loginPage + "?" + q.Encode()
}

// hasPathPrefix is a segment-aware, case-sensitive prefix test: the prefix
// matches itself and anything below it, never a sibling that merely shares
// leading characters.
func hasPathPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func cookieValue(c *gin.Context, name string) string {
	v, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return v
}
