package persistence

import "time"

// Employee represents a schedulable field technician or office user.
type Employee struct {
	ID                  string
	Email               string
	DisplayName         string
	Role                string
	Schedulable         bool
	CapacityHoursPerDay float64
	PasswordHash        string
	Disabled            bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// EventStatus enumerates the lifecycle states of a schedule event.
type EventStatus string

const (
	EventStatusScheduled  EventStatus = "scheduled"
	EventStatusInProgress EventStatus = "in_progress"
	EventStatusCompleted  EventStatus = "completed"
	EventStatusCancelled  EventStatus = "cancelled"
)

// ScheduleEvent is a calendar entry stored in the events table. An event either
// references a work order or stands alone as a plain appointment.
type ScheduleEvent struct {
	ID          string
	WorkOrderID *string
	CustomerID  *string
	EmployeeID  string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	Status      EventStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LaborSummary carries the crew sizing fields of a work order.
type LaborSummary struct {
	CrewSize    int
	HoursPerDay float64
}

// WorkOrder holds the scheduling-relevant fields of a work order. A nil
// ScheduledStart/ScheduledEnd pair means the order sits in the backlog.
type WorkOrder struct {
	ID                       string
	Title                    string
	CustomerID               *string
	ScheduledStart           *time.Time
	ScheduledEnd             *time.Time
	AssignedTo               *string
	EstimatedDurationMinutes int
	Labor                    LaborSummary
	Status                   string
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// Scheduled reports whether the order has been placed on the calendar.
func (w WorkOrder) Scheduled() bool {
	return w.ScheduledStart != nil && w.ScheduledEnd != nil
}

// LaborEntry records one crew member's share of a work order.
type LaborEntry struct {
	ID          string
	WorkOrderID string
	EmployeeID  string
	Hours       float64
	CreatedAt   time.Time
}

// CompanySettings stores the per-company scheduling policy. The scheduling
// core reads it; writes happen through external settings workflows only.
type CompanySettings struct {
	ID                     string
	BusinessHoursStart     string
	BusinessHoursEnd       string
	BufferBeforeMinutes    int
	BufferAfterMinutes     int
	WorkingDays            []time.Weekday
	NightsWeekends         bool
	MinAdvanceBookingHours int
	MaxAdvanceBookingDays  int
	UpdatedAt              time.Time
}

// RecurringSeries is the stored master record for a recurring appointment.
// TemplateEventID points at the event whose interval and assignment seed each
// occurrence; NextOccurrence tracks where rolling materialization resumes.
type RecurringSeries struct {
	ID              string
	TemplateEventID string
	Frequency       string
	Interval        int
	EndDate         *time.Time
	MaxOccurrences  int
	GeneratedCount  int
	NextOccurrence  *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Session represents an authenticated API session issued to an employee.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}
