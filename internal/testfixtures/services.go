package testfixtures

import (
	"errors"
	"log/slog"
	"time"

	"github.com/tradesmatepro/fieldsched/internal/application"
	"github.com/tradesmatepro/fieldsched/internal/scheduler"
)

// ServiceHarness wires the full application service stack on top of a
// MemoryStore with a controllable clock and deterministic identifiers. Tests
// seed the store, then drive the services.
type ServiceHarness struct {
	Clock *Clock
	IDs   *IDGenerator
	Store *MemoryStore

	Bookings  scheduler.BookingSource
	Directory scheduler.EmployeeDirectory
	Engine    *scheduler.Engine

	Schedule   *application.ScheduleService
	Dispatch   *application.DispatchService
	Recurrence *application.RecurrenceService
	Auth       *application.AuthService
	Employees  *application.EmployeeService
}

// HarnessOption configures a ServiceHarness under construction.
type HarnessOption func(*harnessConfig)

type harnessConfig struct {
	clock      *Clock
	ids        *IDGenerator
	sessionTTL time.Duration
	logger     *slog.Logger
}

// WithHarnessClock overrides the harness clock.
func WithHarnessClock(clock *Clock) HarnessOption {
	return func(c *harnessConfig) {
		c.clock = clock
	}
}

// WithHarnessIDs overrides the identifier generator.
func WithHarnessIDs(ids *IDGenerator) HarnessOption {
	return func(c *harnessConfig) {
		c.ids = ids
	}
}

// WithHarnessSessionTTL overrides the auth session lifetime.
func WithHarnessSessionTTL(ttl time.Duration) HarnessOption {
	return func(c *harnessConfig) {
		c.sessionTTL = ttl
	}
}

// WithHarnessLogger attaches a logger to every constructed service.
func WithHarnessLogger(logger *slog.Logger) HarnessOption {
	return func(c *harnessConfig) {
		c.logger = logger
	}
}

// VerifyPlainPassword treats stored hashes as plaintext, letting auth tests
// skip argon2id work.
func VerifyPlainPassword(hashedPassword, password string) error {
	if hashedPassword != password {
		return errors.New("password mismatch")
	}
	return nil
}

// HashPlainPassword stores passwords verbatim, pairing with
// VerifyPlainPassword.
func HashPlainPassword(password string) (string, error) {
	return password, nil
}

// NewServiceHarness constructs the full stack with defaults.
func NewServiceHarness(opts ...HarnessOption) *ServiceHarness {
	cfg := harnessConfig{
		sessionTTL: 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.clock == nil {
		cfg.clock = NewClock(time.Time{})
	}
	if cfg.ids == nil {
		cfg.ids = NewIDGenerator("id")
	}

	store := NewMemoryStore(cfg.clock.NowFunc())
	now := cfg.clock.NowFunc()
	ids := cfg.ids.NextFunc()

	bookings := application.NewBookingSource(store, store)
	directory := application.NewEmployeeDirectory(store)
	commits := application.NewCommitStore(store, store, ids)
	reschedules := application.NewRescheduleStore(store)

	engine := scheduler.NewEngine(bookings, application.NewCapacitySource(store), now)
	crew := scheduler.NewCrewScheduler(bookings, directory, commits, cfg.logger)
	assigner := scheduler.NewBacklogAssigner(engine, crew, directory)
	rescheduler := scheduler.NewRescheduler(bookings, engine, reschedules)

	return &ServiceHarness{
		Clock:     cfg.clock,
		IDs:       cfg.ids,
		Store:     store,
		Bookings:  bookings,
		Directory: directory,
		Engine:    engine,
		Schedule: application.NewScheduleService(
			store, store, store, store, store, bookings, ids, now, cfg.logger,
		),
		Dispatch: application.NewDispatchService(
			engine, crew, assigner, rescheduler, store, store, store, now, cfg.logger,
		),
		Recurrence: application.NewRecurrenceService(
			store, store, store, store, bookings, ids, now, cfg.logger,
		),
		Auth: application.NewAuthService(
			store, store, VerifyPlainPassword, ids, now, cfg.sessionTTL, cfg.logger,
		),
		Employees: application.NewEmployeeService(
			store, HashPlainPassword, ids, now,
		),
	}
}
