package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/tradesmatepro/fieldsched/internal/persistence"
)

// WorkOrderRepository implements persistence.WorkOrderRepository.
type WorkOrderRepository struct {
	pool *ConnectionPool
	now  func() time.Time
}

// NewWorkOrderRepository creates a work order repository.
func NewWorkOrderRepository(pool *ConnectionPool, now func() time.Time) *WorkOrderRepository {
	if now == nil {
		now = time.Now
	}
	return &WorkOrderRepository{pool: pool, now: now}
}

const workOrderColumns = `id, title, customer_id, scheduled_start, scheduled_end, assigned_to,
	estimated_duration_minutes, crew_size, hours_per_day, status, created_at, updated_at`

// CreateWorkOrder inserts a new work order.
func (r *WorkOrderRepository) CreateWorkOrder(ctx context.Context, order persistence.WorkOrder) (persistence.WorkOrder, error) {
	now := r.now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now
	if order.Status == "" {
		order.Status = "pending"
	}
	if order.Labor.CrewSize < 1 {
		order.Labor.CrewSize = 1
	}

	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO work_orders (`+workOrderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.Title,
		nullString(order.CustomerID),
		formatTimePtr(order.ScheduledStart),
		formatTimePtr(order.ScheduledEnd),
		nullString(order.AssignedTo),
		order.EstimatedDurationMinutes,
		order.Labor.CrewSize,
		order.Labor.HoursPerDay,
		order.Status,
		formatTime(order.CreatedAt),
		formatTime(order.UpdatedAt),
	)
	if err != nil {
		return persistence.WorkOrder{}, mapError(err)
	}
	return order, nil
}

// GetWorkOrder retrieves a work order by id.
func (r *WorkOrderRepository) GetWorkOrder(ctx context.Context, id string) (persistence.WorkOrder, error) {
	row := r.pool.db.QueryRowContext(ctx, `SELECT `+workOrderColumns+` FROM work_orders WHERE id = ?`, id)
	return scanWorkOrder(row)
}

// ListBacklog returns unscheduled work orders, oldest first.
func (r *WorkOrderRepository) ListBacklog(ctx context.Context) ([]persistence.WorkOrder, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT `+workOrderColumns+` FROM work_orders
		WHERE scheduled_start IS NULL AND status NOT IN ('completed', 'cancelled')
		ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var orders []persistence.WorkOrder
	for rows.Next() {
		order, err := scanWorkOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// ListScheduledForEmployee returns work orders assigned to the employee whose
// scheduled interval overlaps [from, to). These count as bookings alongside
// schedule events.
func (r *WorkOrderRepository) ListScheduledForEmployee(ctx context.Context, employeeID string, from, to time.Time) ([]persistence.WorkOrder, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT `+workOrderColumns+` FROM work_orders
		WHERE assigned_to = ?
		  AND status IN ('scheduled', 'in_progress')
		  AND scheduled_start < ? AND scheduled_end > ?
		ORDER BY scheduled_start ASC`,
		employeeID, formatTime(to), formatTime(from))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var orders []persistence.WorkOrder
	for rows.Next() {
		order, err := scanWorkOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// UpdateScheduling patches the scheduling fields only.
func (r *WorkOrderRepository) UpdateScheduling(ctx context.Context, id string, start, end *time.Time, assignedTo *string) (persistence.WorkOrder, error) {
	now := r.now().UTC()
	status := "pending"
	if start != nil && end != nil {
		status = "scheduled"
	}

	res, err := r.pool.db.ExecContext(ctx, `
		UPDATE work_orders
		SET scheduled_start = ?, scheduled_end = ?, assigned_to = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		formatTimePtr(start), formatTimePtr(end), nullString(assignedTo), status, formatTime(now), id)
	if err != nil {
		return persistence.WorkOrder{}, mapError(err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return persistence.WorkOrder{}, persistence.ErrNotFound
	}
	return r.GetWorkOrder(ctx, id)
}

// AddLaborEntry records one crew member's share of a work order.
func (r *WorkOrderRepository) AddLaborEntry(ctx context.Context, entry persistence.LaborEntry) (persistence.LaborEntry, error) {
	entry.CreatedAt = r.now().UTC()
	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO work_order_labor (id, work_order_id, employee_id, hours, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.WorkOrderID, entry.EmployeeID, entry.Hours, formatTime(entry.CreatedAt))
	if err != nil {
		return persistence.LaborEntry{}, mapError(err)
	}
	return entry, nil
}

// ListLaborEntries returns the crew roster recorded for a work order.
func (r *WorkOrderRepository) ListLaborEntries(ctx context.Context, workOrderID string) ([]persistence.LaborEntry, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, work_order_id, employee_id, hours, created_at
		FROM work_order_labor WHERE work_order_id = ? ORDER BY created_at ASC, id ASC`, workOrderID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var entries []persistence.LaborEntry
	for rows.Next() {
		var entry persistence.LaborEntry
		var createdAt string
		if err := rows.Scan(&entry.ID, &entry.WorkOrderID, &entry.EmployeeID, &entry.Hours, &createdAt); err != nil {
			return nil, mapError(err)
		}
		if entry.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanWorkOrder(row rowScanner) (persistence.WorkOrder, error) {
	var (
		order                    persistence.WorkOrder
		customerID               sql.NullString
		scheduledStart           sql.NullString
		scheduledEnd             sql.NullString
		assignedTo               sql.NullString
		createdAt, updatedAt     string
	)
	err := row.Scan(&order.ID, &order.Title, &customerID, &scheduledStart, &scheduledEnd, &assignedTo,
		&order.EstimatedDurationMinutes, &order.Labor.CrewSize, &order.Labor.HoursPerDay,
		&order.Status, &createdAt, &updatedAt)
	if err != nil {
		return persistence.WorkOrder{}, mapError(err)
	}

	order.CustomerID = stringPtr(customerID)
	order.AssignedTo = stringPtr(assignedTo)
	if order.ScheduledStart, err = parseTimePtr(scheduledStart); err != nil {
		return persistence.WorkOrder{}, err
	}
	if order.ScheduledEnd, err = parseTimePtr(scheduledEnd); err != nil {
		return persistence.WorkOrder{}, err
	}
	if order.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.WorkOrder{}, err
	}
	if order.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.WorkOrder{}, err
	}
	return order, nil
}
