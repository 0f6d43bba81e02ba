// Command playdard runs the resolution engine as a standalone HTTP daemon:
// it loads configuration, wires the registry/pipeline/plugins, starts the
// periodic registry sweep, and serves the HTTP surface described in §6
// until it receives a shutdown signal or an /shutdown request.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/playdar/resolverd/internal/adminfeed"
	"github.com/playdar/resolverd/internal/auth"
	"github.com/playdar/resolverd/internal/config"
	"github.com/playdar/resolverd/internal/httpapi"
	"github.com/playdar/resolverd/internal/middleware"
	"github.com/playdar/resolverd/internal/playdarlog"
	"github.com/playdar/resolverd/internal/resolver"
	"github.com/playdar/resolverd/internal/resolvers"
)

func main() {
	configPath := flag.String("config", "", "path to JSON configuration file")
	useDefault := flag.Bool("default", false, "run with built-in default configuration")
	port := flag.String("port", "60210", "HTTP listen port")
	logLevel := flag.String("log-level", "info", "zerolog level (debug, info, warn, error)")
	prettyLog := flag.Bool("pretty-log", false, "human-readable console log output")
	flag.Parse()

	playdarlog.Initialize(*logLevel, *prettyLog)
	log := playdarlog.GetLogger()

	cfg, err := loadConfig(*configPath, *useDefault)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, shutdown := context.WithCancel(context.Background())
	defer shutdown()

	registry := resolver.NewQueryRegistry(resolver.DefaultRetention)
	pipeline := resolver.NewResolverPipeline(registry)

	feed := adminfeed.NewHub()
	go feed.Run()
	registry.SetFeed(feed)
	pipeline.SetFeed(feed)

	issuer := auth.NewIssuer(auth.NewMemoryTokenStore())

	registerDefaultPlugins(pipeline)

	sweeper := cron.New()
	if _, err := sweeper.AddFunc("@every 5m", func() {
		evicted := registry.Sweep()
		if evicted > 0 {
			log.Info().Int("evicted", evicted).Msg("registry sweep")
		}
	}); err != nil {
		log.Fatal().Err(err).Msg("failed to schedule registry sweep")
	}
	sweeper.Start()
	defer sweeper.Stop()

	app := httpapi.NewApp(cfg, registry, pipeline, issuer, feed, shutdown)

	router := httpapi.NewRouter(app,
		middleware.RequestID(),
		middleware.StructuredLogger(),
		middleware.SecurityHeaders(),
		auth.Middleware(issuer, cfg.DisableAuth),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", *port),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      0, // streaming responses (/sid, /comet) must not be write-deadlined
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("playdard listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case <-ctx.Done():
		log.Info().Msg("shutdown requested via /shutdown")
	}

	shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http server forced to shutdown")
	} else {
		log.Info().Msg("http server stopped gracefully")
	}
}

func loadConfig(path string, useDefault bool) (*config.Daemon, error) {
	if path != "" {
		return config.Load(path)
	}
	if useDefault {
		return config.Default(), nil
	}
	return config.Load("playdar.conf.json")
}

// registerDefaultPlugins wires the two reference resolver plugins so the
// daemon is runnable end-to-end without an external plugin loader, which
// remains out of scope.
func registerDefaultPlugins(pipeline *resolver.ResolverPipeline) {
	localDisk := resolvers.NewStaticPlugin("localdisk", pipeline, nil)
	pipeline.AddPlugin(resolver.NewPluginAdaptor("localdisk", "LocalDiskResolver", 100, 100, 1000, resolver.ScopeLocal, localDisk))

	slowMirror := resolvers.NewDelayPlugin("slowmirror", 1500*time.Millisecond, resolvers.NewStaticPlugin("slowmirror-inner", pipeline, nil))
	pipeline.AddPlugin(resolver.NewPluginAdaptor("slowmirror", "DelayedMirrorResolver", 50, 0, 3000, resolver.ScopeAny, slowMirror))
}
