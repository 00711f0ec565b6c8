package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"booking-payments/internal/auth"
	"booking-payments/internal/config"
	"booking-payments/internal/database"
	"booking-payments/internal/handler"
	"booking-payments/internal/infrastructure/email"
	"booking-payments/internal/infrastructure/payment"
	"booking-payments/internal/metrics"
	"booking-payments/internal/repo"
	"booking-payments/internal/service"
	"booking-payments/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	configFile  = flag.String("config", os.Getenv("CONFIG_FILE"), "optional YAML config file")
	migrateOnly = flag.Bool("migrate-only", false, "run database migrations and exit")
)

func main() {
	flag.Parse()

	cfg, errs := config.Load(*configFile)
	if len(errs) > 0 {
		for _, err := range errs {
			slog.Error("invalid configuration", "error", err)
		}
		os.Exit(1)
	}
	setupLogger(cfg)
	slog.Info("configuration loaded", "config", cfg.LogSummary())

	if err := run(cfg); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var h slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.IsProduction() {
		h = slog.NewJSONHandler(os.Stdout, opts)
		gin.SetMode(gin.ReleaseMode)
	}
	slog.SetDefault(slog.New(handler.NewContextLogHandler(h)))
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RunMigrations || *migrateOnly {
		if err := database.Migrate(cfg.DatabaseURL); err != nil {
			return err
		}
		if *migrateOnly {
			return nil
		}
	}

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	m := metrics.NewMetrics()
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := m.Register(reg); err != nil {
		return err
	}

	bookingRepo := repo.NewBookingRepo(db.DB())
	paymentRepo := repo.NewPaymentRepo(db.DB())
	settingsRepo := repo.NewSettingsRepo(db.DB())

	paypalOpts := []payment.PayPalOption{payment.WithPayPalHTTPClient(payment.NewHTTPClient(20 * time.Second))}
	if cfg.PayPalBaseURLOverride != "" {
		paypalOpts = append(paypalOpts, payment.WithPayPalBaseURL(cfg.PayPalBaseURLOverride))
	}
	paymentLoader := payment.NewLoader(settingsRepo)
	paymentRegistry := payment.NewRegistry(payment.WithPayPalOptions(paypalOpts...), payment.WithObserver(m))

	emailService := email.NewService(email.NewLoader(settingsRepo), email.NewRegistry())
	reconciler := service.NewLogReconciler(m)

	paymentService := service.NewPaymentService(bookingRepo, paymentRepo, paymentLoader, paymentRegistry,
		service.WithReconciler(reconciler),
		service.WithNotifier(service.NewEmailNotifier(emailService)),
		service.WithDefaultCurrency(cfg.DefaultCurrency),
	)

	reconciliation := worker.NewReconciliationWorker(
		bookingRepo,
		paymentLoader,
		paymentRegistry,
		service.NewSettler(bookingRepo, paymentRepo, reconciler),
		worker.ReconciliationConfig{
			Interval:   cfg.ReconcileInterval,
			StaleAfter: cfg.ReconcileStaleAfter,
			BatchSize:  cfg.ReconcileBatchSize,
		},
		m,
	)
	go reconciliation.Run(ctx)

	router := handler.NewRouter(handler.Deps{
		Payments:       paymentService,
		Email:          emailService,
		Verifier:       auth.NewVerifier(cfg.JWTSecret),
		DB:             db,
		Observer:       m,
		Gatherer:       reg,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
