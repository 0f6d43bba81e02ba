// Package httpapi wires the resolution engine's public surface (§6): the
// status page, the auth token exchange, the queries/settings admin pages,
// quickplay, /sid streaming, and /comet push delivery, on top of gin.
package httpapi

import (
	"context"
	"html"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/playdar/resolverd/internal/adminfeed"
	"github.com/playdar/resolverd/internal/auth"
	"github.com/playdar/resolverd/internal/comet"
	"github.com/playdar/resolverd/internal/config"
	"github.com/playdar/resolverd/internal/middleware"
	"github.com/playdar/resolverd/internal/perr"
	"github.com/playdar/resolverd/internal/resolver"
)

// App holds the dependencies every handler needs; it carries no per-request
// state of its own beyond the comet session table, which outlives any
// single request (a client issues one /comet request per session id but
// may ask it to follow additional qids over repeated short-lived calls in
// some client implementations — kept here for that reuse).
type App struct {
	Config    *config.Daemon
	Registry  *resolver.QueryRegistry
	Pipeline  *resolver.ResolverPipeline
	Issuer    *auth.Issuer
	Feed      *adminfeed.Hub
	StartedAt time.Time
	Shutdown  context.CancelFunc

	cometMu       sync.Mutex
	cometSessions map[string]*comet.Session
}

// NewApp constructs an App with its comet session table initialized.
func NewApp(cfg *config.Daemon, registry *resolver.QueryRegistry, pipeline *resolver.ResolverPipeline, issuer *auth.Issuer, feed *adminfeed.Hub, shutdown context.CancelFunc) *App {
	return &App{
		Config:        cfg,
		Registry:      registry,
		Pipeline:      pipeline,
		Issuer:        issuer,
		Feed:          feed,
		StartedAt:     time.Now(),
		Shutdown:      shutdown,
		cometSessions: make(map[string]*comet.Session),
	}
}

// NewRouter builds the gin.Engine implementing the full route table. mw is
// applied to every route except where the route itself needs to run before
// auth (none do — /sid/... bypass happens inside the auth middleware).
func NewRouter(app *App, mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(perr.Recovery())
	r.Use(middleware.Timeout(middleware.DefaultTimeoutConfig()))
	r.Use(middleware.GzipWithExclusions(middleware.DefaultCompression, []string{"/sid/", "/comet"}))
	r.Use(middleware.DefaultSizeLimiter())
	for _, m := range mw {
		r.Use(m)
	}
	r.Use(perr.ErrorHandler())

	r.GET("/", app.handleStatus)
	r.GET("/crossdomain.xml", app.handleCrossdomain)

	// An IP-keyed limit on the token-minting endpoints: unlike the rest of
	// the API these are reachable without a bearer token at all, so they're
	// the one surface that is rate limited.
	authLimiter := middleware.NewRateLimiter(0.5, 3)
	r.GET("/auth_1", authLimiter.Middleware(), app.handleAuth1)
	r.POST("/auth_1", authLimiter.Middleware(), app.handleAuth1)
	r.GET("/auth_2", authLimiter.Middleware(), app.handleAuth2)
	r.POST("/auth_2", authLimiter.Middleware(), middleware.JSONSizeLimiter(), app.handleAuth2)

	r.GET("/shutdown", app.handleShutdown)

	r.GET("/settings", app.handleSettingsConfig)
	r.GET("/settings/config", app.handleSettingsConfig)
	r.GET("/settings/auth", app.handleSettingsAuth)

	r.GET("/queries", app.handleQueriesRoot)
	r.POST("/queries", app.handleQueriesRoot)
	r.GET("/queries/:qid", app.handleQueryByID)
	r.POST("/queries/:qid", app.handleQueryByID)

	r.GET("/quickplay/:artist/:album/:track", app.handleQuickplay)

	r.GET("/sid/:sid", app.handleSID)

	r.GET("/comet", app.handleComet)

	r.GET("/:plugin/*rest", app.handlePluginURL)

	return r
}

func htmlEscape(s string) string { return html.EscapeString(s) }
