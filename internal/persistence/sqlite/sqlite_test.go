package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/tradesmatepro/fieldsched/internal/persistence"
	"github.com/tradesmatepro/fieldsched/internal/testfixtures"
)

// repoNow is the fixed wall clock every repository in these tests stamps
// rows with. All interval fixtures live on the same Monday so string-ordered
// timestamp comparisons in SQL behave like time comparisons.
var repoNow = time.Date(2024, time.January, 8, 8, 0, 0, 0, time.UTC)

func newHarness(t *testing.T) *testfixtures.SQLiteHarness {
	t.Helper()
	return testfixtures.NewSQLiteHarness(t, func() time.Time { return repoNow })
}

// at returns a whole-minute instant on the harness's Monday.
func at(hour, minute int) time.Time {
	return time.Date(2024, time.January, 8, hour, minute, 0, 0, time.UTC)
}

// atDay returns an instant on an arbitrary day in January 2024.
func atDay(day, hour, minute int) time.Time {
	return time.Date(2024, time.January, day, hour, minute, 0, 0, time.UTC)
}

func strPtr(v string) *string { return &v }

func timePtr(v time.Time) *time.Time { return &v }

func seedEmployee(t *testing.T, h *testfixtures.SQLiteHarness, id string) persistence.Employee {
	t.Helper()
	employee, err := h.Employees.CreateEmployee(context.Background(), persistence.Employee{
		ID:          id,
		Email:       id + "@example.com",
		DisplayName: "Tech " + id,
		Role:        "technician",
		Schedulable: true,
	})
	if err != nil {
		t.Fatalf("seed employee %s: %v", id, err)
	}
	return employee
}

func seedWorkOrder(t *testing.T, h *testfixtures.SQLiteHarness, id, title string) persistence.WorkOrder {
	t.Helper()
	order, err := h.WorkOrders.CreateWorkOrder(context.Background(), persistence.WorkOrder{
		ID:                       id,
		Title:                    title,
		EstimatedDurationMinutes: 60,
	})
	if err != nil {
		t.Fatalf("seed work order %s: %v", id, err)
	}
	return order
}

func seedEvent(t *testing.T, h *testfixtures.SQLiteHarness, event persistence.ScheduleEvent) persistence.ScheduleEvent {
	t.Helper()
	created, err := h.Events.CreateEvent(context.Background(), event)
	if err != nil {
		t.Fatalf("seed event %s: %v", event.ID, err)
	}
	return created
}
