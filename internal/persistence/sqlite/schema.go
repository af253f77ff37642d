package sqlite

import (
	"context"
	"fmt"
)

// schema is applied idempotently at startup. Timestamps are stored as RFC3339
// text, matching the comparisons used in range queries.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'technician',
		schedulable INTEGER NOT NULL DEFAULT 1,
		capacity_hours_per_day REAL NOT NULL DEFAULT 8,
		password_hash TEXT NOT NULL DEFAULT '',
		disabled INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS work_orders (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		customer_id TEXT,
		scheduled_start TEXT,
		scheduled_end TEXT,
		assigned_to TEXT REFERENCES employees(id),
		estimated_duration_minutes INTEGER NOT NULL DEFAULT 0,
		crew_size INTEGER NOT NULL DEFAULT 1,
		hours_per_day REAL NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (scheduled_start IS NULL OR scheduled_end IS NULL OR scheduled_start < scheduled_end)
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		work_order_id TEXT REFERENCES work_orders(id) ON DELETE CASCADE,
		customer_id TEXT,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'scheduled',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (start_time < end_time)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_employee_window ON events (employee_id, start_time, end_time)`,
	`CREATE INDEX IF NOT EXISTS idx_events_work_order ON events (work_order_id)`,
	`CREATE TABLE IF NOT EXISTS work_order_labor (
		id TEXT PRIMARY KEY,
		work_order_id TEXT NOT NULL REFERENCES work_orders(id) ON DELETE CASCADE,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		hours REAL NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE (work_order_id, employee_id)
	)`,
	`CREATE TABLE IF NOT EXISTS company_settings (
		id TEXT PRIMARY KEY,
		business_hours_start TEXT NOT NULL,
		business_hours_end TEXT NOT NULL,
		buffer_before_minutes INTEGER NOT NULL,
		buffer_after_minutes INTEGER NOT NULL,
		working_days TEXT NOT NULL,
		nights_weekends INTEGER NOT NULL DEFAULT 0,
		min_advance_booking_hours INTEGER NOT NULL,
		max_advance_booking_days INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS recurring_series (
		id TEXT PRIMARY KEY,
		template_event_id TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		frequency TEXT NOT NULL,
		interval INTEGER NOT NULL DEFAULT 1,
		end_date TEXT,
		max_occurrences INTEGER NOT NULL DEFAULT 0,
		generated_count INTEGER NOT NULL DEFAULT 0,
		next_occurrence TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES employees(id),
		token TEXT NOT NULL UNIQUE,
		expires_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		revoked_at TEXT
	)`,
}

// Migrate applies the schema.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := cp.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
