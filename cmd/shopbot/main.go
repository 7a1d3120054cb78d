package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopbot/internal/bot"
	"shopbot/internal/config"
	httpapi "shopbot/internal/http"
	"shopbot/internal/imagesearch"
	"shopbot/internal/logger"
	"shopbot/internal/repository"
	"shopbot/internal/service"
	"shopbot/internal/transport"

	_ "shopbot/docs"
)

// @title Shopbot API
// @version 1.0
// @description Chat event webhook and read-only catalog and order endpoints of the shop bot.
// @BasePath /api/v1
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Options{
		Service: "shopbot",
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Error("open store", slog.Any("err", err))
		os.Exit(1)
	}
	defer store.Close()

	catalogSvc := service.NewCatalogService(store)
	cartSvc := service.NewCartService(store, store)
	orderSvc := service.NewOrderService(store, store, store, store)

	var sender transport.Sender = transport.NewLogSender(log)
	if cfg.OutboundURL != "" {
		sender = transport.NewHTTPSender(cfg.OutboundURL, cfg.OutboundTimeout)
	}

	deps := bot.Deps{
		Catalog:  catalogSvc,
		Carts:    cartSvc,
		Orders:   orderSvc,
		Sessions: bot.NewLRUSessions(cfg.SessionCapacity, cfg.SessionTTL),
		Sender:   sender,
		Log:      log,
	}
	if cfg.ImageSearch {
		deps.Images = imagesearch.NewClient(cfg.ImageSearchURL, cfg.ImageTimeout, log)
	}
	if len(cfg.Operators) == 0 {
		log.Warn("no operators configured, admin features are unreachable")
	}

	b := bot.New(deps, bot.Options{
		StoreName:       cfg.StoreName,
		Currency:        cfg.Currency,
		Operators:       cfg.Operators,
		MinOrder:        cfg.MinOrder,
		DeliveryFee:     cfg.DeliveryFee,
		ImageCandidates: cfg.ImageCandidates,
	})
	if cfg.WebhookSecret == "" {
		log.Warn("WEBHOOK_SECRET is empty, the event webhook is open")
	}
	srv := httpapi.NewServer(b, catalogSvc, orderSvc, log, cfg.WebhookSecret)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("http server listening", slog.String("addr", httpServer.Addr), slog.String("store", cfg.Store))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.Any("err", err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.Any("err", err))
	}
	b.Wait()
}

func openStore(ctx context.Context, cfg config.Config) (repository.Store, error) {
	if cfg.Store == config.StoreMemory {
		return repository.NewMemoryStore(), nil
	}
	return repository.OpenSQLite(ctx, cfg.DBPath)
}
