package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(issuer *Issuer, disableAuth bool) *gin.Engine {
	r := gin.New()
	r.Use(Middleware(issuer, disableAuth))
	r.GET("/settings/config", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/sid/:sid", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/auth_1", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/auth_2", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func doRequest(r *gin.Engine, method, path, remoteAddr, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = remoteAddr
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware_SIDPathBypassesLocalAndAuthChecks(t *testing.T) {
	issuer := NewIssuer(NewMemoryTokenStore())
	r := newRouter(issuer, false)

	rec := doRequest(r, http.MethodGet, "/sid/abc", "203.0.113.5:1234", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware_NonLocalOriginRejected(t *testing.T) {
	issuer := NewIssuer(NewMemoryTokenStore())
	r := newRouter(issuer, true)

	rec := doRequest(r, http.MethodGet, "/settings/config", "203.0.113.5:1234", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_DisableAuthSkipsTokenCheck(t *testing.T) {
	issuer := NewIssuer(NewMemoryTokenStore())
	r := newRouter(issuer, true)

	rec := doRequest(r, http.MethodGet, "/settings/config", "127.0.0.1:1234", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware_MissingBearerTokenRejected(t *testing.T) {
	issuer := NewIssuer(NewMemoryTokenStore())
	r := newRouter(issuer, false)

	rec := doRequest(r, http.MethodGet, "/settings/config", "127.0.0.1:1234", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_ValidBearerTokenAllowsRequest(t *testing.T) {
	issuer := NewIssuer(NewMemoryTokenStore())
	r := newRouter(issuer, false)

	ftoken, err := issuer.NewFormToken()
	require.NoError(t, err)
	tok, ok, err := issuer.Exchange(ftoken, "example.com", "player", "")
	require.NoError(t, err)
	require.True(t, ok)

	rec := doRequest(r, http.MethodGet, "/settings/config", "127.0.0.1:1234", string(tok))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware_UnknownBearerTokenRejected(t *testing.T) {
	issuer := NewIssuer(NewMemoryTokenStore())
	r := newRouter(issuer, false)

	rec := doRequest(r, http.MethodGet, "/settings/config", "127.0.0.1:1234", "not-a-real-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_AuthExchangeEndpointsBypassBearerCheck(t *testing.T) {
	issuer := NewIssuer(NewMemoryTokenStore())
	r := newRouter(issuer, false)

	rec := doRequest(r, http.MethodGet, "/auth_1", "127.0.0.1:1234", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec2 := doRequest(r, http.MethodPost, "/auth_2", "127.0.0.1:1234", "")
	assert.Equal(t, http.StatusOK, rec2.Code)
}

func TestMiddleware_AuthExchangeEndpointsStillRequireLocalOrigin(t *testing.T) {
	issuer := NewIssuer(NewMemoryTokenStore())
	r := newRouter(issuer, false)

	rec := doRequest(r, http.MethodGet, "/auth_1", "203.0.113.5:1234", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIsLocalOrigin(t *testing.T) {
	assert.True(t, isLocalOrigin("127.0.0.1:5000"))
	assert.True(t, isLocalOrigin("[::1]:5000"))
	assert.False(t, isLocalOrigin("203.0.113.5:5000"))
	assert.False(t, isLocalOrigin("not-an-address"))
}
