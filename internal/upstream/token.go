package upstream

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// refreshSkew is how long before the recorded expiry a token is already
// treated as expired, to absorb clock drift and request latency.
const refreshSkew = 30 * time.Second

// TokenExpiry peeks at the exp claim of a token that happens to be a JWT.
// Tokens are opaque by contract, so the signature is deliberately not
// verified; the expiry is only a hint for refreshing proactively instead of
// waiting for a 401. Returns ok=false for non-JWT tokens or tokens without
// an exp claim.
func TokenExpiry(token string) (time.Time, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// TokenExpired reports whether the token's embedded expiry (when readable)
// has passed, allowing for refreshSkew. Opaque tokens are never considered
// expired here; the 401-retry path handles them.
func TokenExpired(token string, now time.Time) bool {
	exp, ok := TokenExpiry(token)
	if !ok {
		return false
	}
	return now.Add(refreshSkew).After(exp)
}
