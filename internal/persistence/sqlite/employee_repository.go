package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/tradesmatepro/fieldsched/internal/persistence"
)

// EmployeeRepository implements persistence.EmployeeRepository.
type EmployeeRepository struct {
	pool *ConnectionPool
	now  func() time.Time
}

// NewEmployeeRepository creates an employee repository.
func NewEmployeeRepository(pool *ConnectionPool, now func() time.Time) *EmployeeRepository {
	if now == nil {
		now = time.Now
	}
	return &EmployeeRepository{pool: pool, now: now}
}

const employeeColumns = `id, email, display_name, role, schedulable, capacity_hours_per_day,
	password_hash, disabled, created_at, updated_at`

// CreateEmployee inserts a new employee.
func (r *EmployeeRepository) CreateEmployee(ctx context.Context, employee persistence.Employee) (persistence.Employee, error) {
	now := r.now().UTC()
	employee.CreatedAt = now
	employee.UpdatedAt = now
	if employee.CapacityHoursPerDay <= 0 {
		employee.CapacityHoursPerDay = 8
	}

	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO employees (`+employeeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		employee.ID,
		strings.ToLower(strings.TrimSpace(employee.Email)),
		employee.DisplayName,
		employee.Role,
		employee.Schedulable,
		employee.CapacityHoursPerDay,
		employee.PasswordHash,
		employee.Disabled,
		formatTime(employee.CreatedAt),
		formatTime(employee.UpdatedAt),
	)
	if err != nil {
		return persistence.Employee{}, mapError(err)
	}
	return employee, nil
}

// GetEmployee retrieves an employee by id.
func (r *EmployeeRepository) GetEmployee(ctx context.Context, id string) (persistence.Employee, error) {
	row := r.pool.db.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = ?`, id)
	return scanEmployee(row)
}

// GetEmployeeByEmail retrieves an employee by email, case-insensitively.
func (r *EmployeeRepository) GetEmployeeByEmail(ctx context.Context, email string) (persistence.Employee, error) {
	row := r.pool.db.QueryRowContext(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)))
	return scanEmployee(row)
}

// ListEmployees returns employees ordered by display name. With
// schedulableOnly set, disabled and non-schedulable records are filtered out.
func (r *EmployeeRepository) ListEmployees(ctx context.Context, schedulableOnly bool) ([]persistence.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees`
	if schedulableOnly {
		query += ` WHERE schedulable = 1 AND disabled = 0`
	}
	query += ` ORDER BY display_name ASC, id ASC`

	rows, err := r.pool.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var employees []persistence.Employee
	for rows.Next() {
		employee, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, employee)
	}
	return employees, rows.Err()
}

func scanEmployee(row rowScanner) (persistence.Employee, error) {
	var (
		employee             persistence.Employee
		createdAt, updatedAt string
	)
	err := row.Scan(&employee.ID, &employee.Email, &employee.DisplayName, &employee.Role,
		&employee.Schedulable, &employee.CapacityHoursPerDay, &employee.PasswordHash,
		&employee.Disabled, &createdAt, &updatedAt)
	if err != nil {
		return persistence.Employee{}, mapError(err)
	}
	if employee.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Employee{}, err
	}
	if employee.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Employee{}, err
	}
	return employee, nil
}
