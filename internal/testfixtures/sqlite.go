package testfixtures

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tradesmatepro/fieldsched/internal/persistence"
	"github.com/tradesmatepro/fieldsched/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Pool *sqlite.ConnectionPool

	Events     *sqlite.EventRepository
	WorkOrders *sqlite.WorkOrderRepository
	Employees  *sqlite.EmployeeRepository
	Settings   *sqlite.SettingsRepository
	Series     *sqlite.RecurrenceRepository
	Sessions   *sqlite.SessionRepository

	cleanup func()
}

var _ persistence.SchedulingStore = (*sqlite.EventRepository)(nil)

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. A nil now falls back to time.Now for repository
// timestamps. The helper registers a cleanup callback with the provided
// testing.TB; calling Close directly is optional.
func NewSQLiteHarness(tb testing.TB, now func() time.Time) *SQLiteHarness {
	tb.Helper()

	dir := tb.TempDir()
	path := filepath.Join(dir, "fieldsched.db")

	pool, err := sqlite.Open(path)
	if err != nil {
		tb.Fatalf("failed to open database: %v", err)
	}

	if err := pool.Migrate(context.Background()); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to migrate database: %v", err)
	}

	harness := &SQLiteHarness{
		Pool:       pool,
		Events:     sqlite.NewEventRepository(pool, now),
		WorkOrders: sqlite.NewWorkOrderRepository(pool, now),
		Employees:  sqlite.NewEmployeeRepository(pool, now),
		Settings:   sqlite.NewSettingsRepository(pool, now),
		Series:     sqlite.NewRecurrenceRepository(pool, now),
		Sessions:   sqlite.NewSessionRepository(pool, now),
		cleanup: func() {
			_ = pool.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
