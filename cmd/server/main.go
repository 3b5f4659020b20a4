package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oggyb/rotrade-sync/internal/app"
	"github.com/oggyb/rotrade-sync/internal/config"
	"github.com/oggyb/rotrade-sync/internal/httpapi"
	"github.com/oggyb/rotrade-sync/internal/jobs"
	"github.com/oggyb/rotrade-sync/internal/logger"
	"github.com/oggyb/rotrade-sync/internal/server"
	"github.com/oggyb/rotrade-sync/internal/service/changefeed"
	"github.com/oggyb/rotrade-sync/internal/service/marketplace"
	"github.com/oggyb/rotrade-sync/internal/store"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init persisted store (redis, sqlite or mysql)
	s, err := store.Open(ctx, cfg)
	if err != nil {
		log.Error("failed to open store", "driver", cfg.Store.Driver, "err", err)
		return
	}
	defer s.Close()

	appCtx := app.New(cfg, s, log)
	svc := marketplace.NewService(appCtx)

	if cfg.App.ENV == "development" {
		users, err := svc.GetUsers(ctx)
		if err != nil {
			log.Error("failed to read users", "err", err)
		} else if len(users) == 0 {
			if err := marketplace.SeedDemoData(ctx, svc, marketplace.SeedOptions{}); err != nil {
				log.Error("failed to seed", "err", err)
			}
		}
	}

	expiry := jobs.NewListingExpiryJob(svc, cfg.Jobs.ListingExpirySchedule, log)
	if err := expiry.SetupAndStart(); err != nil {
		log.Error("failed to start listing expiry job", "err", err)
	}
	defer expiry.Stop()

	httpServer := httpapi.NewServer(cfg, svc, log)
	go func() {
		if err := httpServer.Start(); err != nil {
			log.Error("HTTP server failed", "err", err)
			stop()
		}
	}()

	go func() {
		if err := server.StartGRPCServer(ctx, cfg, log, changefeed.NewRegistrar(appCtx)); err != nil {
			log.Error("failed to start gRPC server", "err", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown failed", "err", err)
	}
}
