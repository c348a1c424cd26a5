// Command server runs the club admin API: the Strava webhook endpoint,
// invite issuance and resolution, backfill triggers, and route geometry
// for the map pages.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/velohub/server/pkg/bootstrap"
	sentryutil "github.com/velohub/server/pkg/infrastructure/sentry"
	"github.com/velohub/server/pkg/invite"
	"github.com/velohub/server/pkg/strava"
)

func main() {
	ctx := context.Background()

	svc, err := bootstrap.NewService(ctx)
	if err != nil {
		slog.Error("Service init failed", "error", err)
		os.Exit(1)
	}
	cfg := svc.Config

	logger := bootstrap.NewLogger("club-server")

	if err := sentryutil.Init(sentryutil.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
		ServerName:  "club-server",
	}, logger); err != nil {
		logger.Warn("Continuing without Sentry", "error", err)
	}
	defer sentryutil.Flush(2 * time.Second)

	client := strava.NewClient(cfg.StravaClientID, cfg.StravaClientSecret)
	tokens := strava.NewTokenManager(svc.DB, client, logger)
	engine := strava.NewEngine(svc.DB, svc.Pub, client, tokens, logger)
	webhook := strava.NewWebhookHandler(svc.DB, engine, cfg.StravaVerifyToken, logger)

	s := &server{
		svc:     svc,
		engine:  engine,
		webhook: webhook,
		invites: invite.NewIssuer(svc.DB, cfg.PublicBaseURL),
		logger:  logger,
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("Listening", "port", cfg.Port, "base_url", cfg.PublicBaseURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", "error", err)
	}
}
