package main

//
//  @title           nsepulse API
//  @version         1.0
//  @description     Indian equity market data: quotes, history, technicals, shareholding, fundamentals and news for NSE/BSE listings.
//  @termsOfService  https://github.com/guttosm/nsepulse
//  @contact.name    API Support
//  @contact.url     https://github.com/guttosm/nsepulse
//  @contact.email   support@example.com
//  @license.name    MIT
//  @license.url     https://opensource.org/licenses/MIT
//  @host            localhost:8080
//  @BasePath        /
//  @schemes         http
//
//  @tag.name        search
//  @tag.description Symbol lookup
//
//  @tag.name        company
//  @tag.description Quotes, company data and aggregated overviews
//
//  @tag.name        prices
//  @tag.description Price history and technical indicators
//
//  @tag.name        news
//  @tag.description News feeds with sentiment filtering
//
//  @tag.name        snapshots
//  @tag.description Stored daily analysis snapshots
//
//  @tag.name        health
//  @tag.description Liveness and readiness probes

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/guttosm/nsepulse/config"
	_ "github.com/guttosm/nsepulse/docs" // swagger docs
	"github.com/guttosm/nsepulse/internal/app"
	"github.com/guttosm/nsepulse/internal/logger"
)

// startServer initializes and starts the HTTP server in a separate goroutine.
func startServer(router http.Handler, port string) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("server failed to start")
		}
	}()

	return server
}

// stopper is something torn down on shutdown before cleanup, e.g. the scheduler.
type stopper interface {
	Stop(ctx context.Context) error
}

// gracefulShutdown blocks until SIGINT or SIGTERM, then stops the extra
// components, shuts the server down and runs cleanup.
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func(), extra ...stopper) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	<-quit
	logger.L().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, s := range extra {
		if err := s.Stop(shutdownCtx); err != nil {
			logger.L().Warn().Err(err).Msg("component did not stop in time")
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Error().Err(err).Msg("server forced to shutdown")
	}

	cleanup()
	logger.L().Info().Msg("server exited gracefully")
}

// symbolList returns the comma separated symbols in flagValue, or def when empty.
func symbolList(flagValue string, def []string) []string {
	var out []string
	for _, s := range strings.Split(flagValue, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// main is the entry point of the nsepulse application.
//
// Modes (selected via --mode flag):
//   - api:      Starts the REST API (default).
//   - snapshot: Records one overview snapshot per symbol for the last trading day and exits.
//   - schedule: Starts the REST API and records snapshots on SNAPSHOT_CRON.
//
// Flags:
//   - --mode:    Execution mode. Default: "api".
//   - --symbols: Comma separated symbols for snapshot mode. Defaults to SNAPSHOT_SYMBOLS.
//   - --force:   Re-record snapshots already stored for the trading day.
//   - --port:    Port for the API server. Defaults to SERVER_PORT.
func main() {
	ctx := context.Background()

	// Load configuration from environment or .env file
	config.LoadConfig()

	// Initialize JSON logger
	logger.Init()

	mode := flag.String("mode", "api", "Mode: api, snapshot or schedule")
	symbols := flag.String("symbols", "", "Comma separated symbols for snapshot mode (default SNAPSHOT_SYMBOLS)")
	force := flag.Bool("force", false, "Re-record snapshots already stored for the trading day")
	port := flag.String("port", config.AppConfig.Server.Port, "Port for API mode")
	flag.Parse()

	a, err := app.InitializeApp()
	if err != nil {
		logger.L().Fatal().Err(err).Msg("app init error")
	}

	switch *mode {
	case "snapshot":
		list := symbolList(*symbols, config.AppConfig.Snapshot.Symbols)
		logger.L().Info().Strs("symbols", list).Bool("force", *force).Msg("recording snapshots")

		sum, err := a.Recorder.Run(ctx, list, *force)
		a.Close()
		if err != nil {
			logger.L().Fatal().Err(err).Int("failed", sum.Failed).Msg("snapshot run finished with errors")
		}
		logger.L().Info().Int("recorded", sum.Recorded).Int("skipped", sum.Skipped).Msg("snapshot run completed")

	case "api":
		logger.L().Info().Msg("starting API server")
		server := startServer(a.Router, *port)
		gracefulShutdown(ctx, server, a.Close)

	case "schedule":
		sched, err := a.NewScheduler()
		if err != nil {
			a.Close()
			logger.L().Fatal().Err(err).Msg("scheduler init error")
		}
		sched.Start()
		logger.L().Info().Time("next", sched.Next()).Msg("snapshot schedule armed")

		server := startServer(a.Router, *port)
		gracefulShutdown(ctx, server, a.Close, sched)

	default:
		a.Close()
		logger.L().Fatal().Str("mode", *mode).Msg("unknown mode")
	}
}
