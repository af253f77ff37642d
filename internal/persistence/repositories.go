package persistence

import (
	"context"
	"time"
)

// EventFilter narrows schedule event queries.
type EventFilter struct {
	EmployeeID  string
	WorkOrderID string
	// StartsBefore/EndsAfter select events overlapping a window: an event
	// overlaps [a, b) when Start < b and End > a.
	StartsBefore *time.Time
	EndsAfter    *time.Time
	Statuses     []EventStatus
}

// EventRepository stores schedule events.
type EventRepository interface {
	CreateEvent(ctx context.Context, event ScheduleEvent) (ScheduleEvent, error)
	GetEvent(ctx context.Context, id string) (ScheduleEvent, error)
	UpdateEvent(ctx context.Context, event ScheduleEvent) (ScheduleEvent, error)
	DeleteEvent(ctx context.Context, id string) error
	ListEvents(ctx context.Context, filter EventFilter) ([]ScheduleEvent, error)
}

// SchedulingStore performs the dual writes the event store contract requires:
// an event commit and its work order's scheduling fields change together or
// not at all.
type SchedulingStore interface {
	// CommitScheduledEvent persists the event and, when it references a work
	// order, patches the order's scheduled_start/scheduled_end/assigned_to in
	// the same transaction.
	CommitScheduledEvent(ctx context.Context, event ScheduleEvent) (ScheduleEvent, error)
	// UpdateEventInterval moves an existing event to a new interval, keeping
	// the linked work order's scheduling fields in sync.
	UpdateEventInterval(ctx context.Context, eventID string, start, end time.Time) (ScheduleEvent, error)
}

// WorkOrderRepository stores work orders and their labor entries.
type WorkOrderRepository interface {
	CreateWorkOrder(ctx context.Context, order WorkOrder) (WorkOrder, error)
	GetWorkOrder(ctx context.Context, id string) (WorkOrder, error)
	ListBacklog(ctx context.Context) ([]WorkOrder, error)
	// ListScheduledForEmployee returns orders assigned to the employee whose
	// scheduled interval overlaps [from, to).
	ListScheduledForEmployee(ctx context.Context, employeeID string, from, to time.Time) ([]WorkOrder, error)
	UpdateScheduling(ctx context.Context, id string, start, end *time.Time, assignedTo *string) (WorkOrder, error)
	AddLaborEntry(ctx context.Context, entry LaborEntry) (LaborEntry, error)
	ListLaborEntries(ctx context.Context, workOrderID string) ([]LaborEntry, error)
}

// EmployeeRepository stores employee records.
type EmployeeRepository interface {
	CreateEmployee(ctx context.Context, employee Employee) (Employee, error)
	GetEmployee(ctx context.Context, id string) (Employee, error)
	GetEmployeeByEmail(ctx context.Context, email string) (Employee, error)
	ListEmployees(ctx context.Context, schedulableOnly bool) ([]Employee, error)
}

// SettingsRepository stores the company scheduling policy.
type SettingsRepository interface {
	GetSettings(ctx context.Context) (CompanySettings, error)
	SaveSettings(ctx context.Context, settings CompanySettings) (CompanySettings, error)
}

// RecurrenceRepository stores recurring series master records.
type RecurrenceRepository interface {
	CreateSeries(ctx context.Context, series RecurringSeries) (RecurringSeries, error)
	GetSeries(ctx context.Context, id string) (RecurringSeries, error)
	ListActiveSeries(ctx context.Context, reference time.Time) ([]RecurringSeries, error)
	UpdateSeriesProgress(ctx context.Context, id string, generated int, next *time.Time) error
	DeleteSeries(ctx context.Context, id string) error
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}
