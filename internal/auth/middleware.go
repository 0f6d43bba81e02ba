// Package auth's gin middleware enforces §6's access rule: all paths except
// `/sid/...` are localhost-only, and (unless disableauth is set) require a
// valid bearer AuthToken minted by the /auth_1 → /auth_2 exchange. /auth_1
// and /auth_2 themselves are exempt from the bearer check — they are how a
// token is obtained in the first place, so requiring one to reach them would
// make the exchange unreachable.
package auth

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/playdar/resolverd/internal/perr"
)

const grantContextKey = "auth.grant"

// Middleware builds the gin middleware enforcing local-only access and
// (when enabled) bearer token auth. Paths under "/sid/" bypass both checks —
// /sid/<sid> is reachable from any origin per §6.
func Middleware(issuer *Issuer, disableAuth bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/sid/") {
			c.Next()
			return
		}

		if !isLocalOrigin(c.Request.RemoteAddr) {
			perr.Abort(c, perr.Unauthorized("only localhost may access this path"))
			return
		}

		if disableAuth || isAuthExchangePath(path) {
			c.Next()
			return
		}

		tok := bearerToken(c.Request)
		if tok == "" {
			perr.Abort(c, perr.Unauthorized("missing bearer token"))
			return
		}

		grant, ok := issuer.Verify(AuthToken(tok))
		if !ok {
			perr.Abort(c, perr.Unauthorized("invalid or unknown token"))
			return
		}

		c.Set(grantContextKey, grant)
		c.Next()
	}
}

// GrantFromContext returns the Grant attached by Middleware, if any.
func GrantFromContext(c *gin.Context) (Grant, bool) {
	v, ok := c.Get(grantContextKey)
	if !ok {
		return Grant{}, false
	}
	grant, ok := v.(Grant)
	return grant, ok
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimPrefix(h, prefix)
}

func isAuthExchangePath(path string) bool {
	return path == "/auth_1" || path == "/auth_2"
}

func isLocalOrigin(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback()
}
