package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tradesmatepro/fieldsched/internal/persistence"
)

// EventRepository implements persistence.EventRepository and
// persistence.SchedulingStore against the events and work_orders tables.
type EventRepository struct {
	pool *ConnectionPool
	now  func() time.Time
}

// NewEventRepository creates an event repository. A nil now falls back to
// time.Now.
func NewEventRepository(pool *ConnectionPool, now func() time.Time) *EventRepository {
	if now == nil {
		now = time.Now
	}
	return &EventRepository{pool: pool, now: now}
}

const eventColumns = `id, work_order_id, customer_id, employee_id, title, description, start_time, end_time, status, created_at, updated_at`

// CreateEvent inserts a new schedule event.
func (r *EventRepository) CreateEvent(ctx context.Context, event persistence.ScheduleEvent) (persistence.ScheduleEvent, error) {
	now := r.now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	if event.Status == "" {
		event.Status = persistence.EventStatusScheduled
	}

	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		nullString(event.WorkOrderID),
		nullString(event.CustomerID),
		event.EmployeeID,
		event.Title,
		event.Description,
		formatTime(event.Start),
		formatTime(event.End),
		string(event.Status),
		formatTime(event.CreatedAt),
		formatTime(event.UpdatedAt),
	)
	if err != nil {
		return persistence.ScheduleEvent{}, mapError(err)
	}
	return event, nil
}

// GetEvent retrieves an event by id.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (persistence.ScheduleEvent, error) {
	row := r.pool.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	return scanEvent(row)
}

// UpdateEvent rewrites an existing event.
func (r *EventRepository) UpdateEvent(ctx context.Context, event persistence.ScheduleEvent) (persistence.ScheduleEvent, error) {
	event.UpdatedAt = r.now().UTC()

	res, err := r.pool.db.ExecContext(ctx, `
		UPDATE events
		SET work_order_id = ?, customer_id = ?, employee_id = ?, title = ?, description = ?,
		    start_time = ?, end_time = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		nullString(event.WorkOrderID),
		nullString(event.CustomerID),
		event.EmployeeID,
		event.Title,
		event.Description,
		formatTime(event.Start),
		formatTime(event.End),
		string(event.Status),
		formatTime(event.UpdatedAt),
		event.ID,
	)
	if err != nil {
		return persistence.ScheduleEvent{}, mapError(err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return persistence.ScheduleEvent{}, persistence.ErrNotFound
	}
	return r.GetEvent(ctx, event.ID)
}

// DeleteEvent removes an event by id.
func (r *EventRepository) DeleteEvent(ctx context.Context, id string) error {
	res, err := r.pool.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// ListEvents returns events matching the filter, ordered by start time.
func (r *EventRepository) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.ScheduleEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events`
	var clauses []string
	var args []any

	if filter.EmployeeID != "" {
		clauses = append(clauses, "employee_id = ?")
		args = append(args, filter.EmployeeID)
	}
	if filter.WorkOrderID != "" {
		clauses = append(clauses, "work_order_id = ?")
		args = append(args, filter.WorkOrderID)
	}
	if filter.StartsBefore != nil {
		clauses = append(clauses, "start_time < ?")
		args = append(args, formatTime(*filter.StartsBefore))
	}
	if filter.EndsAfter != nil {
		clauses = append(clauses, "end_time > ?")
		args = append(args, formatTime(*filter.EndsAfter))
	}
	if len(filter.Statuses) > 0 {
		marks := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			marks[i] = "?"
			args = append(args, string(s))
		}
		clauses = append(clauses, "status IN ("+strings.Join(marks, ", ")+")")
	}

	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY start_time ASC, id ASC"

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var events []persistence.ScheduleEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// CommitScheduledEvent writes the event and its work order's scheduling
// fields in one transaction. This is the dual-write contract the rest of the
// core relies on: an event and its order never disagree about the interval.
func (r *EventRepository) CommitScheduledEvent(ctx context.Context, event persistence.ScheduleEvent) (persistence.ScheduleEvent, error) {
	now := r.now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	if event.Status == "" {
		event.Status = persistence.EventStatusScheduled
	}

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO events (`+eventColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			event.ID,
			nullString(event.WorkOrderID),
			nullString(event.CustomerID),
			event.EmployeeID,
			event.Title,
			event.Description,
			formatTime(event.Start),
			formatTime(event.End),
			string(event.Status),
			formatTime(event.CreatedAt),
			formatTime(event.UpdatedAt),
		)
		if err != nil {
			return mapError(err)
		}
		if event.WorkOrderID != nil {
			return r.syncWorkOrderTx(tx, *event.WorkOrderID, event.Start, event.End, event.EmployeeID, now)
		}
		return nil
	})
	if err != nil {
		return persistence.ScheduleEvent{}, err
	}
	return event, nil
}

// UpdateEventInterval moves an event to a new interval and keeps the linked
// work order in sync, in one transaction.
func (r *EventRepository) UpdateEventInterval(ctx context.Context, eventID string, start, end time.Time) (persistence.ScheduleEvent, error) {
	var updated persistence.ScheduleEvent

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRow(`SELECT `+eventColumns+` FROM events WHERE id = ?`, eventID)
		event, err := scanEvent(row)
		if err != nil {
			return err
		}

		now := r.now().UTC()
		_, err = tx.Exec(`UPDATE events SET start_time = ?, end_time = ?, updated_at = ? WHERE id = ?`,
			formatTime(start), formatTime(end), formatTime(now), eventID)
		if err != nil {
			return mapError(err)
		}

		if event.WorkOrderID != nil {
			if err := r.syncWorkOrderTx(tx, *event.WorkOrderID, start, end, event.EmployeeID, now); err != nil {
				return err
			}
		}

		event.Start = start
		event.End = end
		event.UpdatedAt = now
		updated = event
		return nil
	})
	if err != nil {
		return persistence.ScheduleEvent{}, err
	}
	return updated, nil
}

func (r *EventRepository) syncWorkOrderTx(tx *sql.Tx, workOrderID string, start, end time.Time, employeeID string, now time.Time) error {
	res, err := tx.Exec(`
		UPDATE work_orders
		SET scheduled_start = ?, scheduled_end = ?, assigned_to = ?, status = 'scheduled', updated_at = ?
		WHERE id = ?`,
		formatTime(start), formatTime(end), employeeID, formatTime(now), workOrderID)
	if err != nil {
		return mapError(err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("work order %s: %w", workOrderID, persistence.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (persistence.ScheduleEvent, error) {
	var (
		event                  persistence.ScheduleEvent
		workOrderID            sql.NullString
		customerID             sql.NullString
		start, end             string
		status                 string
		createdAt, updatedAt   string
	)
	err := row.Scan(&event.ID, &workOrderID, &customerID, &event.EmployeeID, &event.Title,
		&event.Description, &start, &end, &status, &createdAt, &updatedAt)
	if err != nil {
		return persistence.ScheduleEvent{}, mapError(err)
	}

	event.WorkOrderID = stringPtr(workOrderID)
	event.CustomerID = stringPtr(customerID)
	event.Status = persistence.EventStatus(status)
	if event.Start, err = parseTime(start); err != nil {
		return persistence.ScheduleEvent{}, err
	}
	if event.End, err = parseTime(end); err != nil {
		return persistence.ScheduleEvent{}, err
	}
	if event.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.ScheduleEvent{}, err
	}
	if event.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.ScheduleEvent{}, err
	}
	return event, nil
}
