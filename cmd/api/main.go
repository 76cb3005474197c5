package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/imiq/imiq-backend/api/controllers"
	"github.com/imiq/imiq-backend/api/routes"
	"github.com/imiq/imiq-backend/internal/bootstrap"
	"github.com/imiq/imiq-backend/internal/kpis"
	"github.com/imiq/imiq-backend/internal/orders"
	"github.com/imiq/imiq-backend/internal/shipments"
	"github.com/imiq/imiq-backend/pkg/config"
	"github.com/imiq/imiq-backend/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	loc, err := cfg.Business.Location()
	if err != nil {
		logg.Error(context.Background(), "failed to load business timezone", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	store, err := bootstrap.OpenStore(context.Background(), cfg, logg, registry)
	if err != nil {
		logg.Error(context.Background(), "failed to open row store", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logg.Error(context.Background(), "error closing row store", err)
		}
	}()

	ordersSvc, err := orders.NewService(store, logg, orders.Options{
		Location:     loc,
		DefaultOwner: cfg.Business.DefaultOrderOwner,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}
	shipmentsSvc, err := shipments.NewService(store, ordersSvc, logg, shipments.Options{
		Location: loc,
		Sender:   shipments.SenderFromConfig(cfg.Courier),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create shipments service", err)
		os.Exit(1)
	}
	kpisSvc, err := kpis.NewService(store, logg, kpis.Options{
		Location: loc,
		SLADays:  cfg.Business.ShipSLADays,
		TopN:     cfg.Business.LeaderboardTopN,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create kpis service", err)
		os.Exit(1)
	}

	readiness := []controllers.ReadinessCheck{{Name: "store", Pinger: store}}
	if store.Redis != nil {
		readiness = append(readiness, controllers.ReadinessCheck{Name: "redis", Pinger: store.Redis})
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"store_driver": cfg.Store.Driver,
		"timezone":     loc.String(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, registry, loc, readiness, ordersSvc, shipmentsSvc, kpisSvc),
		ReadHeaderTimeout: 5 * time.Second,
	}

	stop, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-stop.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
