package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-pos/config"
	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/receipts"
	"github.com/yeremiapane/restaurant-pos/router"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	utils.InitLogger(cfg.LogLevel)
	utils.SetJWTSecret(cfg.JWTSecret)
	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	utils.InfoLogger.Info("AutoMigrate completed.")

	if cfg.AdminPass != "" {
		created, err := database.SeedAdmin(db, "Administrator", cfg.AdminEmail, cfg.AdminPass)
		if err != nil {
			utils.ErrorLogger.Fatalf("Failed to seed admin: %v", err)
		}
		if created {
			utils.InfoLogger.WithField("email", cfg.AdminEmail).Info("admin account created")
		}
	}
	if cfg.SeedDemo {
		if err := database.SeedDemo(db); err != nil {
			utils.ErrorLogger.Fatalf("Failed to seed demo data: %v", err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := services.NewMetrics(reg)

	hub := kds.NewHub(utils.InfoLogger)
	registry := services.NewTableRegistry(db, metrics, utils.InfoLogger)
	orders := services.NewOrderService(db, registry, services.NewGormCatalog(db), hub, metrics, utils.InfoLogger)
	kot := services.NewKOTRouter(db, orders, metrics)
	checkout := services.NewCheckoutService(db, orders, registry, services.GormLedger{}, hub, metrics, utils.InfoLogger)
	layout := services.NewLayoutService(db, hub, utils.InfoLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// seed the gauges from what is already in the database
	if _, err := registry.ListOccupied(ctx); err != nil {
		utils.ErrorLogger.WithError(err).Warn("failed to read occupied tables")
	}
	if _, err := kot.PendingWork(ctx); err != nil {
		utils.ErrorLogger.WithError(err).Warn("failed to read pending work")
	}

	r := router.SetupRouter(router.Deps{
		DB:       db,
		Hub:      hub,
		Registry: registry,
		Orders:   orders,
		KOT:      kot,
		Checkout: checkout,
		Layout:   layout,
		Renderers: map[string]receipts.Renderer{
			"pdf": receipts.NewPDFRenderer(cfg.Restaurant),
			"txt": receipts.NewTextRenderer(cfg.Restaurant),
		},
		Gatherer:     reg,
		CORSOrigin:   cfg.CORSOrigin,
		TLS:          cfg.GinMode == gin.ReleaseMode,
		TokenTTL:     cfg.TokenTTL,
		RateLimitRPS: cfg.RateLimitRPS,
		RateBurst:    cfg.RateBurst,
	})
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		utils.ErrorLogger.WithError(err).Warn("failed to set trusted proxies")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.InfoLogger.Infof("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatal(err)
		}
	}()

	<-ctx.Done()
	utils.InfoLogger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.ErrorLogger.WithError(err).Error("graceful shutdown failed")
	}
}
