package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/tradesmatepro/fieldsched/internal/application"
	"github.com/tradesmatepro/fieldsched/internal/config"
	httptransport "github.com/tradesmatepro/fieldsched/internal/http"
	"github.com/tradesmatepro/fieldsched/internal/persistence"
	"github.com/tradesmatepro/fieldsched/internal/persistence/sqlite"
	"github.com/tradesmatepro/fieldsched/internal/scheduler"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to load .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close database", "error", cerr)
		}
	}()

	if err := pool.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	tokenGenerator := func() string { return randomHex(32) }
	now := time.Now

	events := sqlite.NewEventRepository(pool, now)
	workOrders := sqlite.NewWorkOrderRepository(pool, now)
	employees := sqlite.NewEmployeeRepository(pool, now)
	settings := sqlite.NewSettingsRepository(pool, now)
	series := sqlite.NewRecurrenceRepository(pool, now)
	sessions := sqlite.NewSessionRepository(pool, now)

	if err := seedSettings(ctx, cfg, settings); err != nil {
		logger.Error("failed to seed scheduling policy", "error", err)
		os.Exit(1)
	}

	bookings := application.NewBookingSource(events, workOrders)
	directory := application.NewEmployeeDirectory(employees)
	commits := application.NewCommitStore(events, workOrders, idGenerator)
	reschedules := application.NewRescheduleStore(events)

	engine := scheduler.NewEngine(bookings, application.NewCapacitySource(employees), now)
	crew := scheduler.NewCrewScheduler(bookings, directory, commits, logger)
	assigner := scheduler.NewBacklogAssigner(engine, crew, directory)
	rescheduler := scheduler.NewRescheduler(bookings, engine, reschedules)

	scheduleService := application.NewScheduleService(events, events, workOrders, employees, settings, bookings, idGenerator, now, logger)
	dispatchService := application.NewDispatchService(engine, crew, assigner, rescheduler, events, workOrders, settings, now, logger)
	recurrenceService := application.NewRecurrenceService(series, events, events, settings, bookings, idGenerator, now, logger)
	authService := application.NewAuthService(employees, sessions, nil, tokenGenerator, now, cfg.SessionTTL, logger)
	employeeService := application.NewEmployeeService(employees, nil, idGenerator, now)

	jobs := cron.New()
	if _, err := jobs.AddFunc("@hourly", func() {
		if err := recurrenceService.RollForward(context.Background(), now()); err != nil {
			logger.Error("recurrence roll-forward failed", "error", err)
		}
	}); err != nil {
		logger.Error("failed to register roll-forward job", "error", err)
		os.Exit(1)
	}
	if _, err := jobs.AddFunc("@every 6h", func() {
		if err := authService.PurgeExpiredSessions(context.Background()); err != nil {
			logger.Error("session purge failed", "error", err)
		}
	}); err != nil {
		logger.Error("failed to register session purge job", "error", err)
		os.Exit(1)
	}
	jobs.Start()
	defer jobs.Stop()

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:        httptransport.NewAuthHandler(authService, logger),
		Events:      httptransport.NewEventHandler(scheduleService, logger),
		Dispatch:    httptransport.NewDispatchHandler(dispatchService, logger),
		Recurrences: httptransport.NewRecurrenceHandler(recurrenceService, logger),
		Employees:   httptransport.NewEmployeeHandler(employeeService, logger),
	})

	protected := httptransport.RequireSession(authService, logger)(router)
	handler := httptransport.RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Session creation must stay reachable without a session.
		if r.URL.Path == "/sessions" && r.Method == http.MethodPost {
			router.ServeHTTP(w, r)
			return
		}
		protected.ServeHTTP(w, r)
	}))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("scheduling API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// seedSettings writes the policy row on first boot so later edits through the
// settings workflow start from the configured defaults. An existing row wins.
func seedSettings(ctx context.Context, cfg config.Config, repo persistence.SettingsRepository) error {
	if _, err := repo.GetSettings(ctx); err == nil {
		return nil
	} else if !errors.Is(err, persistence.ErrNotFound) {
		return err
	}

	defaults, err := cfg.LoadSchedulingDefaults()
	if err != nil {
		return err
	}
	_, err = repo.SaveSettings(ctx, settingsRecord(defaults))
	return err
}

// settingsRecord converts the scheduling policy into its stored form.
func settingsRecord(s scheduler.Settings) persistence.CompanySettings {
	return persistence.CompanySettings{
		BusinessHoursStart:     s.BusinessHoursStart,
		BusinessHoursEnd:       s.BusinessHoursEnd,
		BufferBeforeMinutes:    int(s.BufferBefore / time.Minute),
		BufferAfterMinutes:     int(s.BufferAfter / time.Minute),
		WorkingDays:            s.WorkingDays,
		NightsWeekends:         s.NightsWeekends,
		MinAdvanceBookingHours: int(s.MinAdvance / time.Hour),
		MaxAdvanceBookingDays:  s.MaxAdvanceDays,
	}
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
