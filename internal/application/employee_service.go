package application

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/tradesmatepro/fieldsched/internal/persistence"
)

// EmployeeInput captures caller provided employee attributes.
type EmployeeInput struct {
	Email               string
	DisplayName         string
	Role                string
	Schedulable         bool
	CapacityHoursPerDay float64
	Password            string
}

// CreateEmployeeParams wraps the data required to create an employee.
type CreateEmployeeParams struct {
	Principal Principal
	Input     EmployeeInput
}

// PasswordHasher derives a stored hash from a plaintext password.
type PasswordHasher func(password string) (string, error)

// EmployeeService orchestrates validation, authorization, and persistence for
// the employee directory.
type EmployeeService struct {
	employees    persistence.EmployeeRepository
	hashPassword PasswordHasher
	idGenerator  func() string
	now          func() time.Time
}

// NewEmployeeService wires dependencies for the employee service.
func NewEmployeeService(employees persistence.EmployeeRepository, hashPassword PasswordHasher, idGenerator func() string, now func() time.Time) *EmployeeService {
	if hashPassword == nil {
		hashPassword = func(password string) (string, error) {
			return CreatePasswordHash(password, DefaultArgon2idParams)
		}
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &EmployeeService{
		employees:    employees,
		hashPassword: hashPassword,
		idGenerator:  idGenerator,
		now:          now,
	}
}

// CreateEmployee validates input and persists a new employee for
// administrators.
func (s *EmployeeService) CreateEmployee(ctx context.Context, params CreateEmployeeParams) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("EmployeeService is nil")
	}
	if params.Principal.Role != "admin" {
		return User{}, ErrUnauthorized
	}

	normalized := normalizeEmployeeInput(params.Input)
	vErr := validateEmployeeInput(normalized)
	if vErr.HasErrors() {
		return User{}, vErr
	}

	hash, err := s.hashPassword(normalized.Password)
	if err != nil {
		return User{}, err
	}

	now := s.now()
	employee := persistence.Employee{
		ID:                  s.idGenerator(),
		Email:               normalized.Email,
		DisplayName:         normalized.DisplayName,
		Role:                normalized.Role,
		Schedulable:         normalized.Schedulable,
		CapacityHoursPerDay: normalized.CapacityHoursPerDay,
		PasswordHash:        hash,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if s.employees == nil {
		return userFromEmployee(employee), nil
	}

	persisted, err := s.employees.CreateEmployee(ctx, employee)
	if err != nil {
		return User{}, mapRepoError(err)
	}
	return userFromEmployee(persisted), nil
}

// GetEmployee loads one employee.
func (s *EmployeeService) GetEmployee(ctx context.Context, id string) (User, error) {
	if s == nil || s.employees == nil {
		return User{}, fmt.Errorf("employee repository not configured")
	}
	employee, err := s.employees.GetEmployee(ctx, id)
	if err != nil {
		return User{}, mapRepoError(err)
	}
	return userFromEmployee(employee), nil
}

// ListEmployees returns the directory ordered by email. With schedulableOnly
// set, disabled and non-schedulable records are filtered out.
func (s *EmployeeService) ListEmployees(ctx context.Context, schedulableOnly bool) ([]User, error) {
	if s == nil || s.employees == nil {
		return nil, fmt.Errorf("employee repository not configured")
	}

	employees, err := s.employees.ListEmployees(ctx, schedulableOnly)
	if err != nil {
		return nil, err
	}

	out := make([]User, 0, len(employees))
	for _, e := range employees {
		out = append(out, userFromEmployee(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if strings.EqualFold(out[i].Email, out[j].Email) {
			return out[i].ID < out[j].ID
		}
		return strings.ToLower(out[i].Email) < strings.ToLower(out[j].Email)
	})
	return out, nil
}

func normalizeEmployeeInput(input EmployeeInput) EmployeeInput {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.DisplayName = strings.TrimSpace(input.DisplayName)
	input.Role = strings.TrimSpace(strings.ToLower(input.Role))
	if input.Role == "" {
		input.Role = "technician"
	}
	if input.CapacityHoursPerDay <= 0 {
		input.CapacityHoursPerDay = 8
	}
	return input
}

func validateEmployeeInput(input EmployeeInput) *ValidationError {
	vErr := &ValidationError{}

	if input.Email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(input.Email); err != nil {
		vErr.add("email", "email is invalid")
	}

	if input.DisplayName == "" {
		vErr.add("display_name", "display name is required")
	}

	switch input.Role {
	case "admin", "dispatcher", "technician":
	default:
		vErr.add("role", "role must be admin, dispatcher, or technician")
	}

	if input.Password == "" {
		vErr.add("password", "password is required")
	} else if len(input.Password) < 8 {
		vErr.add("password", "password must be at least 8 characters")
	}

	return vErr
}
