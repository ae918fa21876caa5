package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"planpay/internal/catalog"
	"planpay/internal/config"
	"planpay/internal/env"
	"planpay/internal/infrastructure/razorpay"
	"planpay/internal/infrastructure/receipt"
	"planpay/internal/infrastructure/repo"
	"planpay/internal/logger"
	"planpay/internal/server"
	"planpay/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "planpay-server:", err)
		os.Exit(1)
	}
}

func run() error {
	if err := env.Load(".env", ".env.local"); err != nil {
		return err
	}
	envDefaults := config.EnvDefaults()

	envName := flag.String("env", envDefaults.Env, "deployment environment (dev, prod)")
	port := flag.Int("port", envDefaults.Port, "listen port")
	logJSON := flag.Bool("log-json", envDefaults.LogJSON, "JSON log output")
	databaseURL := flag.String("database-url", envDefaults.DatabaseURL, "postgres DSN for the plan catalog")
	redisURL := flag.String("redis-url", envDefaults.RedisURL, "redis URL for receipt numbers")
	enforce := flag.Bool("enforce-catalog", envDefaults.EnforceCatalog, "only accept amounts that match a plan price")
	orderTimeout := flag.Duration("order-timeout", envDefaults.OrderTimeout, "provider call timeout, 0 for none")
	cors := flag.String("cors-origins", strings.Join(envDefaults.CORSOrigins, ","), "allowed CORS origins")
	flag.Parse()

	cfg := envDefaults
	cfg.Env = *envName
	cfg.Port = *port
	cfg.LogJSON = *logJSON
	cfg.DatabaseURL = *databaseURL
	cfg.RedisURL = *redisURL
	cfg.EnforceCatalog = *enforce
	cfg.OrderTimeout = *orderTimeout
	cfg.CORSOrigins = config.SplitList(*cors)

	log, err := logger.New(cfg.LogJSON)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		return err
	}
	log.Info("starting planpay-server", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := wire(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           server.New(cfg, deps).Handler(),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      cfg.OrderTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

func wire(ctx context.Context, cfg config.Config, log logger.Logger) (server.Deps, func(), error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}

	var store catalog.Store = repo.NewMemoryPlanRepo()
	if cfg.DatabaseURL != "" {
		pg, err := repo.NewPostgresPlanRepo(ctx, cfg.DatabaseURL)
		if err != nil {
			return server.Deps{}, cleanup, fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, pg.Close)
		store = pg
	}
	cat, err := catalog.Load(ctx, store, catalog.Default())
	if err != nil {
		cleanup()
		return server.Deps{}, func() {}, err
	}

	var receipts usecase.ReceiptSource = receipt.Random{}
	if cfg.RedisURL != "" {
		rc, err := receipt.NewRedisCounter(cfg.RedisURL, receipt.DefaultCounterKey)
		if err != nil {
			cleanup()
			return server.Deps{}, func() {}, fmt.Errorf("connect redis: %w", err)
		}
		closers = append(closers, rc.Close)
		receipts = rc
	}

	rzp, err := razorpay.New(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	if err != nil {
		cleanup()
		return server.Deps{}, func() {}, err
	}

	orders := &usecase.OrderService{
		Provider: rzp,
		Receipts: receipts,
		Timeout:  cfg.OrderTimeout,
		Log:      log.With("component", "orders"),
	}
	if cfg.EnforceCatalog {
		orders.Catalog = cat
	}

	var ents *usecase.EntitlementService
	if cfg.JWTSecret != "" {
		ents = &usecase.EntitlementService{Secret: cfg.JWTSecret, TTL: cfg.EntitlementTTL}
	} else {
		log.Warn("PLANPAY_JWT_SECRET not set, entitlements disabled")
	}
	payments := &usecase.PaymentService{
		Verifier:     rzp,
		Orders:       rzp,
		Catalog:      cat,
		Entitlements: ents,
		Timeout:      cfg.OrderTimeout,
		Log:          log.With("component", "payments"),
	}

	log.Info("plan catalog ready", "plans", len(cat.All()), "source", storeName(cfg))
	return server.Deps{
		Orders:       orders,
		Payments:     payments,
		Entitlements: ents,
		Catalog:      cat,
		Log:          log.With("component", "http"),
	}, cleanup, nil
}

func storeName(cfg config.Config) string {
	if cfg.DatabaseURL != "" {
		return "postgres"
	}
	return "memory"
}
