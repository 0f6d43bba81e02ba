package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeout_AbortsSlowHandlerWith408(t *testing.T) {
	router := gin.New()
	router.Use(Timeout(TimeoutConfig{Timeout: 20 * time.Millisecond, ErrorMessage: "Request timeout"}))
	router.GET("/slow", func(c *gin.Context) {
		time.Sleep(200 * time.Millisecond)
		c.String(http.StatusOK, "too late")
	})

	req := httptest.NewRequest(http.MethodGet, "/slow", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestTimeout, rec.Code)
}

func TestTimeout_AllowsFastHandlerThrough(t *testing.T) {
	router := gin.New()
	router.Use(Timeout(TimeoutConfig{Timeout: time.Second, ErrorMessage: "Request timeout"}))
	router.GET("/fast", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/fast", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestTimeout_ExcludesStreamingPathsByDefault(t *testing.T) {
	cfg := DefaultTimeoutConfig()
	cfg.Timeout = 20 * time.Millisecond // would abort a non-excluded path well before the handler finishes

	router := gin.New()
	router.Use(Timeout(cfg))
	router.GET("/sid/:sid", func(c *gin.Context) {
		time.Sleep(80 * time.Millisecond)
		c.String(http.StatusOK, "streamed")
	})
	router.GET("/comet", func(c *gin.Context) {
		time.Sleep(80 * time.Millisecond)
		c.String(http.StatusOK, "pushed")
	})
	router.GET("/queries", func(c *gin.Context) {
		time.Sleep(80 * time.Millisecond)
		c.String(http.StatusOK, "too slow")
	})

	req := httptest.NewRequest(http.MethodGet, "/sid/abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, "/sid/ is excluded from the timeout")

	reqComet := httptest.NewRequest(http.MethodGet, "/comet", nil)
	recComet := httptest.NewRecorder()
	router.ServeHTTP(recComet, reqComet)
	assert.Equal(t, http.StatusOK, recComet.Code, "/comet is excluded from the timeout")

	req2 := httptest.NewRequest(http.MethodGet, "/queries", nil)
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusRequestTimeout, rec2.Code, "/queries is not excluded")
}
