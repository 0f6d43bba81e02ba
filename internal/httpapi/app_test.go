package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playdar/resolverd/internal/auth"
	"github.com/playdar/resolverd/internal/config"
	"github.com/playdar/resolverd/internal/resolver"
	"github.com/playdar/resolverd/internal/resolvers"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestApp(t *testing.T) (*App, *gin.Engine) {
	t.Helper()
	registry := resolver.NewQueryRegistry(time.Hour)
	pipeline := resolver.NewResolverPipeline(registry)
	issuer := auth.NewIssuer(auth.NewMemoryTokenStore())

	localDisk := resolvers.NewStaticPlugin("localdisk", pipeline, []resolvers.Track{
		{Artist: "Radiohead", Album: "In Rainbows", Title: "Videotape", Path: "/music/videotape.flac"},
	})
	pipeline.AddPlugin(resolver.NewPluginAdaptor("localdisk", "LocalDisk", 100, 0, 1000, resolver.ScopeLocal, localDisk))

	app := NewApp(config.Default(), registry, pipeline, issuer, nil, func() {})
	router := NewRouter(app)
	return app, router
}

func TestApp_StatusPageServesHTML(t *testing.T) {
	_, router := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "playdard")
}

func TestApp_Auth1ThenAuth2Exchange(t *testing.T) {
	_, router := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/auth_1?website=example.com&name=myplayer", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "formtoken")

	var decoded struct {
		FormToken string `json:"formtoken"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))

	form := url.Values{"website": {"example.com"}, "name": {"myplayer"}, "formtoken": {decoded.FormToken}}
	req2 := httptest.NewRequest(http.MethodPost, "/auth_2", strings.NewReader(form.Encode()))
	req2.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)

	require.Equal(t, http.StatusOK, rec2.Code)
	assert.Contains(t, rec2.Body.String(), "authtoken")
}

func TestApp_Auth2WithUnknownFormTokenIsUnauthorized(t *testing.T) {
	_, router := newTestApp(t)

	form := url.Values{"website": {"example.com"}, "name": {"myplayer"}, "formtoken": {"bogus"}}
	req := httptest.NewRequest(http.MethodPost, "/auth_2", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestApp_QuickplayRedirectsToSID(t *testing.T) {
	_, router := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/quickplay/Radiohead/In%20Rainbows/Videotape", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/sid/"))
}

func TestApp_QuickplayNoMatchIs404(t *testing.T) {
	_, router := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/quickplay/Nobody/Nothing/Never", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApp_QueriesRootReportsLiveCount(t *testing.T) {
	app, router := newTestApp(t)

	rq := resolver.NewQuery("qid-live", resolver.OriginLocal, "test", resolver.ModeNormal, nil)
	require.NoError(t, app.Registry.Register(rq))

	req := httptest.NewRequest(http.MethodGet, "/queries", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"live_queries":1`)
}

func TestApp_QueryByIDCancel(t *testing.T) {
	app, router := newTestApp(t)

	rq := resolver.NewQuery("qid-cancel", resolver.OriginLocal, "test", resolver.ModeNormal, nil)
	require.NoError(t, app.Registry.Register(rq))

	form := url.Values{"cancel_query": {"1"}}
	req := httptest.NewRequest(http.MethodPost, "/queries/qid-cancel", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, rq.Cancelled())
}

func TestApp_SIDStreamsResolvedItem(t *testing.T) {
	app, router := newTestApp(t)

	rq := resolver.NewQuery("qid-sid", resolver.OriginLocal, "test", resolver.ModeNormal, map[string]interface{}{
		"artist": "Radiohead",
		"track":  "Videotape",
	})
	require.NoError(t, app.Registry.Register(rq))

	pa, _ := app.Pipeline.Find("localdisk")
	item := &resolver.ResolvedItem{
		SID:   "sid-test",
		Score: 1.0,
		Fields: map[string]interface{}{
			"artist": "Radiohead",
			"track":  "Videotape",
		},
		Plugin: pa,
	}
	rq.AppendResult(item)
	app.Registry.RecordSource(item.SID, rq.QID, pa)

	req := httptest.NewRequest(http.MethodGet, "/sid/sid-test", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestApp_SIDUnknownIs404(t *testing.T) {
	_, router := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/sid/unknown", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApp_ShutdownInvokesCancelFunc(t *testing.T) {
	registry := resolver.NewQueryRegistry(time.Hour)
	pipeline := resolver.NewResolverPipeline(registry)
	issuer := auth.NewIssuer(auth.NewMemoryTokenStore())

	ctx, cancel := context.WithCancel(context.Background())
	called := false
	app := NewApp(config.Default(), registry, pipeline, issuer, nil, func() {
		called = true
		cancel()
	})
	router := NewRouter(app)

	req := httptest.NewRequest(http.MethodGet, "/shutdown", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
	select {
	case <-ctx.Done():
	default:
		t.Fatal("expected shutdown context to be cancelled")
	}
}
