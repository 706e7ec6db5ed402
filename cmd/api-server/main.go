package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/curalink/patient-booking/internal/api"
	"github.com/curalink/patient-booking/internal/booking"
	"github.com/curalink/patient-booking/internal/clock"
	"github.com/curalink/patient-booking/internal/config"
	"github.com/curalink/patient-booking/internal/confirmation"
	"github.com/curalink/patient-booking/internal/db"
	"github.com/curalink/patient-booking/internal/directory"
	"github.com/curalink/patient-booking/internal/matching"
	"github.com/curalink/patient-booking/internal/observability/metrics"
	redisclient "github.com/curalink/patient-booking/internal/redis"
	"github.com/curalink/patient-booking/internal/reschedule"
	"github.com/curalink/patient-booking/internal/slots"
	"github.com/curalink/patient-booking/internal/store"
	"github.com/curalink/patient-booking/pkg/logging"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().Error("config load error", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	logger.Info("api-server starting", "env", cfg.Env, "http_port", cfg.HTTPPort)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Error("postgres connection error", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()
	logger.Info("connected to postgres")

	rdb, err := redisclient.New(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Error("redis connection error", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("error closing redis", "error", err)
		}
	}()
	logger.Info("connected to redis")

	clk := clock.NewReal()
	doctors := directory.NewPgDirectory(pgPool)
	slotDir := slots.NewDirectory(clk)

	stores := store.NewManager(func(patientID uuid.UUID) store.Persister {
		return redisclient.NewSnapshotPersister(rdb, cfg.SnapshotKeyPrefix, patientID)
	}, logger)

	promReg := prometheus.NewRegistry()
	m := metrics.NewMatchingMetrics(promReg)

	rng := matching.NewRand(time.Now().UnixNano())
	delays := matching.Delays{
		Searching:            cfg.SearchingDelay,
		FoundDoctors:         cfg.FoundDelay,
		CheckingAvailability: cfg.AvailabilityDelay,
		AwaitingConfirmation: cfg.ConfirmationDelay,
	}

	orch := matching.NewOrchestrator(doctors, slotDir, clk, rng, delays, logger, m)
	locker := redisclient.NewMatchLocker(rdb, cfg.MatchLockTTL)
	registry := matching.NewRegistry(orch, locker, clk, logger)

	bookings := booking.NewService(doctors, slotDir, clk, logger)
	resched := reschedule.NewService(
		reschedule.NewSuggester(slotDir, clk),
		reschedule.NewSimulatedConfirmer(slotDir, clk, rng),
		clk, logger, m,
	)

	sweeper := confirmation.NewSweeper(stores, clk, rng, cfg.ConfirmHold, logger, m)
	go sweeper.Run(rootCtx, cfg.SweepInterval)
	go archiveLoop(rootCtx, stores, bookings, cfg.SweepInterval, logger)

	router := api.NewRouter(api.RouterConfig{
		Stores:     stores,
		Registry:   registry,
		Booking:    bookings,
		Reschedule: resched,
		Doctors:    doctors,
		Slots:      slotDir,
		PgPool:     pgPool,
		Redis:      rdb,
		Metrics:    promReg,
		Logger:     logger,
		Env:        cfg.Env,
		Version:    version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-rootCtx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", "error", err)
	}

	// In-flight matching runs finish against the store before exit.
	registry.Wait()
	logger.Info("api-server stopped")
}

// archiveLoop periodically moves settled appointments into each
// patient's history.
func archiveLoop(ctx context.Context, stores *store.Manager, svc *booking.Service, interval time.Duration, logger *logging.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for patientID, st := range stores.Stores() {
				if moved := svc.ArchiveSettled(ctx, st); moved > 0 {
					logger.Debug("archived appointments", "patient_id", patientID, "count", moved)
				}
			}
		}
	}
}
