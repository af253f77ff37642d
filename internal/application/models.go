package application

import (
	"time"

	"github.com/tradesmatepro/fieldsched/internal/persistence"
	"github.com/tradesmatepro/fieldsched/internal/scheduler"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID string
	Role   string
}

// CanDispatch reports whether the principal may schedule on behalf of other
// employees.
func (p Principal) CanDispatch() bool {
	return p.Role == "admin" || p.Role == "dispatcher"
}

// User is the employee view exposed by the application services. Password
// material never leaves the persistence layer through this type.
type User struct {
	ID                  string
	Email               string
	DisplayName         string
	Role                string
	Schedulable         bool
	CapacityHoursPerDay float64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func userFromEmployee(e persistence.Employee) User {
	return User{
		ID:                  e.ID,
		Email:               e.Email,
		DisplayName:         e.DisplayName,
		Role:                e.Role,
		Schedulable:         e.Schedulable,
		CapacityHoursPerDay: e.CapacityHoursPerDay,
		CreatedAt:           e.CreatedAt,
		UpdatedAt:           e.UpdatedAt,
	}
}

// EventInput captures caller provided schedule event fields.
type EventInput struct {
	WorkOrderID *string
	CustomerID  *string
	EmployeeID  string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
}

// CreateEventParams wraps the data required to create an event.
type CreateEventParams struct {
	Principal Principal
	Input     EventInput
}

// UpdateEventParams wraps the data required to update an existing event.
type UpdateEventParams struct {
	Principal Principal
	EventID   string
	Input     EventInput
}

// ListEventsParams wraps the data required to list events for a calendar range.
type ListEventsParams struct {
	Principal  Principal
	EmployeeID string
	From       *time.Time
	To         *time.Time
}

// CalendarLanes is the resource-view projection of a calendar range: one row
// per employee lane, crews expanded into clone rows.
type CalendarLanes struct {
	Lanes []scheduler.LaneEvent
}

// SuggestParams wraps an availability search request.
type SuggestParams struct {
	Principal       Principal
	EmployeeIDs     []string
	DurationMinutes int
	WindowStart     time.Time
	WindowEnd       time.Time
	// WeekendsOnly restricts results to customer-preferred weekend slots.
	WeekendsOnly bool
}

// SuggestResult carries availability suggestions both per employee and merged
// in earliest-first order.
type SuggestResult struct {
	PerEmployee map[string][]scheduler.TimeSlot
	Earliest    []scheduler.TimeSlot
}

// RescheduleParams wraps one drag or resize gesture transition.
type RescheduleParams struct {
	Principal Principal
	EventID   string
	Start     time.Time
	End       time.Time
	// LaneEmployeeID is set when the gesture happened in a resource view.
	LaneEmployeeID string
	AcceptNext     bool
	Decline        bool
}

// AssignWorkOrderParams wraps a backlog smart-assign request.
type AssignWorkOrderParams struct {
	Principal   Principal
	WorkOrderID string
	WindowStart time.Time
	WindowEnd   time.Time
}

// AssignWorkOrderResult reports the committed assignment.
type AssignWorkOrderResult struct {
	Event    persistence.ScheduleEvent
	CrewIDs  []string
	Warnings []string
}

// AttachRecurrenceParams wraps a request to make an event recurring.
type AttachRecurrenceParams struct {
	Principal   Principal
	EventID     string
	Frequency   string
	Interval    int
	EndDate     *time.Time
	Occurrences int
}

// AttachRecurrenceResult reports the created series and the eagerly
// materialized occurrences.
type AttachRecurrenceResult struct {
	Series       persistence.RecurringSeries
	Materialized []persistence.ScheduleEvent
	Warnings     []string
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User    User
	Session persistence.Session
}
