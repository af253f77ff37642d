package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tradesmatepro/fieldsched/internal/application"
	"github.com/tradesmatepro/fieldsched/internal/persistence"
	"github.com/tradesmatepro/fieldsched/internal/scheduler"
	"github.com/tradesmatepro/fieldsched/internal/testfixtures"
)

// monday is a Monday morning inside default business hours.
var monday = time.Date(2024, time.January, 1, 6, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return time.Date(2024, time.January, 1, hour, minute, 0, 0, time.UTC)
}

func newHarness(t *testing.T) *testfixtures.ServiceHarness {
	t.Helper()
	return testfixtures.NewServiceHarness(
		testfixtures.WithHarnessClock(testfixtures.NewClock(monday)),
	)
}

func seedTechnician(h *testfixtures.ServiceHarness, id string) application.Principal {
	fixture := testfixtures.NewEmployeeFixture(testfixtures.WithEmployeeID(id))
	h.Store.SeedEmployees(fixture.Persistence())
	return fixture.Principal()
}

func seedDispatcher(h *testfixtures.ServiceHarness, id string) application.Principal {
	fixture := testfixtures.NewEmployeeFixture(
		testfixtures.WithEmployeeID(id),
		testfixtures.WithEmployeeRole("dispatcher"),
		testfixtures.WithEmployeeSchedulable(false),
	)
	h.Store.SeedEmployees(fixture.Persistence())
	return fixture.Principal()
}

func TestScheduleService_CreateEvent(t *testing.T) {
	t.Parallel()

	t.Run("persists a valid event for the acting technician", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		principal := seedTechnician(h, "emp-1")

		event, err := h.Schedule.CreateEvent(context.Background(), application.CreateEventParams{
			Principal: principal,
			Input: application.EventInput{
				Title: "Drain cleaning",
				Start: at(9, 0),
				End:   at(11, 0),
			},
		})
		if err != nil {
			t.Fatalf("CreateEvent failed: %v", err)
		}
		if event.ID == "" {
			t.Fatalf("expected a generated event ID")
		}
		if event.EmployeeID != "emp-1" {
			t.Fatalf("expected the event to default to the principal, got %q", event.EmployeeID)
		}
		if event.Status != persistence.EventStatusScheduled {
			t.Fatalf("expected scheduled status, got %q", event.Status)
		}

		stored, err := h.Store.GetEvent(context.Background(), event.ID)
		if err != nil {
			t.Fatalf("expected the event in the store: %v", err)
		}
		if !stored.Start.Equal(at(9, 0)) {
			t.Fatalf("stored interval mismatch: %v", stored.Start)
		}
	})

	t.Run("syncs the linked work order's scheduling fields", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		principal := seedTechnician(h, "emp-1")
		order := testfixtures.NewWorkOrderFixture(testfixtures.WithWorkOrderID("wo-1"))
		h.Store.SeedWorkOrders(order.Persistence())

		workOrderID := "wo-1"
		event, err := h.Schedule.CreateEvent(context.Background(), application.CreateEventParams{
			Principal: principal,
			Input: application.EventInput{
				WorkOrderID: &workOrderID,
				Title:       "Water heater install",
				Start:       at(8, 0),
				End:         at(12, 0),
			},
		})
		if err != nil {
			t.Fatalf("CreateEvent failed: %v", err)
		}
		if event.WorkOrderID == nil || *event.WorkOrderID != "wo-1" {
			t.Fatalf("expected the work order link to persist")
		}

		updated, err := h.Store.GetWorkOrder(context.Background(), "wo-1")
		if err != nil {
			t.Fatalf("GetWorkOrder failed: %v", err)
		}
		if !updated.Scheduled() {
			t.Fatalf("expected the order to leave the backlog")
		}
		if updated.AssignedTo == nil || *updated.AssignedTo != "emp-1" {
			t.Fatalf("expected the order assigned to emp-1, got %+v", updated.AssignedTo)
		}
		if !updated.ScheduledStart.Equal(at(8, 0)) || !updated.ScheduledEnd.Equal(at(12, 0)) {
			t.Fatalf("expected scheduling fields to mirror the event interval")
		}
	})

	t.Run("technicians may not book for others", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		principal := seedTechnician(h, "emp-1")
		seedTechnician(h, "emp-2")

		_, err := h.Schedule.CreateEvent(context.Background(), application.CreateEventParams{
			Principal: principal,
			Input: application.EventInput{
				EmployeeID: "emp-2",
				Title:      "Estimate visit",
				Start:      at(9, 0),
				End:        at(10, 0),
			},
		})
		if !errors.Is(err, application.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("dispatchers book on behalf of technicians", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		dispatcher := seedDispatcher(h, "disp-1")
		seedTechnician(h, "emp-1")

		event, err := h.Schedule.CreateEvent(context.Background(), application.CreateEventParams{
			Principal: dispatcher,
			Input: application.EventInput{
				EmployeeID: "emp-1",
				Title:      "Estimate visit",
				Start:      at(9, 0),
				End:        at(10, 0),
			},
		})
		if err != nil {
			t.Fatalf("CreateEvent failed: %v", err)
		}
		if event.EmployeeID != "emp-1" {
			t.Fatalf("expected the technician on the event, got %q", event.EmployeeID)
		}
	})

	t.Run("collects field validation errors", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		principal := seedTechnician(h, "emp-1")

		_, err := h.Schedule.CreateEvent(context.Background(), application.CreateEventParams{
			Principal: principal,
			Input: application.EventInput{
				Title: "  ",
				Start: at(10, 0),
				End:   at(9, 0),
			},
		})
		var vErr *application.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected a validation error, got %v", err)
		}
		if _, ok := vErr.FieldErrors["title"]; !ok {
			t.Fatalf("expected a title error, got %v", vErr.FieldErrors)
		}
		if _, ok := vErr.FieldErrors["time"]; !ok {
			t.Fatalf("expected a time ordering error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("rejects unknown work order references", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		principal := seedTechnician(h, "emp-1")

		missing := "wo-missing"
		_, err := h.Schedule.CreateEvent(context.Background(), application.CreateEventParams{
			Principal: principal,
			Input: application.EventInput{
				WorkOrderID: &missing,
				Title:       "Orphan job",
				Start:       at(9, 0),
				End:         at(10, 0),
			},
		})
		var vErr *application.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected a validation error, got %v", err)
		}
		if _, ok := vErr.FieldErrors["work_order_id"]; !ok {
			t.Fatalf("expected a work order error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("rejects non-schedulable employees", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		dispatcher := seedDispatcher(h, "disp-1")
		office := testfixtures.NewEmployeeFixture(
			testfixtures.WithEmployeeID("emp-office"),
			testfixtures.WithEmployeeSchedulable(false),
		)
		h.Store.SeedEmployees(office.Persistence())

		_, err := h.Schedule.CreateEvent(context.Background(), application.CreateEventParams{
			Principal: dispatcher,
			Input: application.EventInput{
				EmployeeID: "emp-office",
				Title:      "Office task",
				Start:      at(9, 0),
				End:        at(10, 0),
			},
		})
		var vErr *application.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected a validation error, got %v", err)
		}
	})

	t.Run("rejects intervals inside an existing booking's buffer", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		principal := seedTechnician(h, "emp-1")
		existing := testfixtures.NewEventFixture(
			testfixtures.WithEventEmployee("emp-1"),
			testfixtures.WithEventInterval(at(8, 0), at(11, 10)),
		)
		h.Store.SeedEvents(existing.Persistence())

		// 11:20 sits inside the 30 minute trailing buffer.
		_, err := h.Schedule.CreateEvent(context.Background(), application.CreateEventParams{
			Principal: principal,
			Input: application.EventInput{
				Title: "Follow-up",
				Start: at(11, 20),
				End:   at(12, 20),
			},
		})
		if !errors.Is(err, scheduler.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}

		// 11:40 clears the buffer.
		if _, err := h.Schedule.CreateEvent(context.Background(), application.CreateEventParams{
			Principal: principal,
			Input: application.EventInput{
				Title: "Follow-up",
				Start: at(11, 40),
				End:   at(12, 40),
			},
		}); err != nil {
			t.Fatalf("expected the buffered edge to clear, got %v", err)
		}
	})
}

func TestScheduleService_UpdateEvent(t *testing.T) {
	t.Parallel()

	seedEvent := func(h *testfixtures.ServiceHarness) persistence.ScheduleEvent {
		event := testfixtures.NewEventFixture(
			testfixtures.WithEventID("evt-1"),
			testfixtures.WithEventEmployee("emp-1"),
			testfixtures.WithEventTitle("Morning job"),
			testfixtures.WithEventInterval(at(9, 0), at(10, 0)),
		).Persistence()
		h.Store.SeedEvents(event)
		return event
	}

	t.Run("moves the interval when the new slot is free", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		principal := seedTechnician(h, "emp-1")
		seedEvent(h)

		updated, err := h.Schedule.UpdateEvent(context.Background(), application.UpdateEventParams{
			Principal: principal,
			EventID:   "evt-1",
			Input: application.EventInput{
				Title: "Morning job",
				Start: at(13, 0),
				End:   at(14, 0),
			},
		})
		if err != nil {
			t.Fatalf("UpdateEvent failed: %v", err)
		}
		if !updated.Start.Equal(at(13, 0)) {
			t.Fatalf("expected the new interval, got %v", updated.Start)
		}
	})

	t.Run("its own old interval does not block the move", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		principal := seedTechnician(h, "emp-1")
		seedEvent(h)

		// 09:15 overlaps the event's own 09:00-10:00 slot, which must be
		// excluded from the comparison set.
		if _, err := h.Schedule.UpdateEvent(context.Background(), application.UpdateEventParams{
			Principal: principal,
			EventID:   "evt-1",
			Input: application.EventInput{
				Title: "Morning job",
				Start: at(9, 15),
				End:   at(10, 15),
			},
		}); err != nil {
			t.Fatalf("UpdateEvent failed: %v", err)
		}
	})

	t.Run("another booking blocks the move", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		principal := seedTechnician(h, "emp-1")
		seedEvent(h)
		other := testfixtures.NewEventFixture(
			testfixtures.WithEventID("evt-2"),
			testfixtures.WithEventEmployee("emp-1"),
			testfixtures.WithEventInterval(at(13, 0), at(14, 0)),
		)
		h.Store.SeedEvents(other.Persistence())

		_, err := h.Schedule.UpdateEvent(context.Background(), application.UpdateEventParams{
			Principal: principal,
			EventID:   "evt-1",
			Input: application.EventInput{
				Title: "Morning job",
				Start: at(13, 30),
				End:   at(14, 30),
			},
		})
		if !errors.Is(err, scheduler.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("unknown events map to not found", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		principal := seedTechnician(h, "emp-1")

		_, err := h.Schedule.UpdateEvent(context.Background(), application.UpdateEventParams{
			Principal: principal,
			EventID:   "evt-missing",
			Input: application.EventInput{
				Title: "Anything",
				Start: at(9, 0),
				End:   at(10, 0),
			},
		})
		if !errors.Is(err, application.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("technicians may not edit other calendars", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		seedTechnician(h, "emp-1")
		intruder := seedTechnician(h, "emp-2")
		seedEvent(h)

		_, err := h.Schedule.UpdateEvent(context.Background(), application.UpdateEventParams{
			Principal: intruder,
			EventID:   "evt-1",
			Input: application.EventInput{
				Title: "Hijack",
				Start: at(9, 0),
				End:   at(10, 0),
			},
		})
		if !errors.Is(err, application.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestScheduleService_DeleteEvent(t *testing.T) {
	t.Parallel()

	t.Run("deleting a work order's event returns it to the backlog", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		principal := seedTechnician(h, "emp-1")
		order := testfixtures.NewWorkOrderFixture(
			testfixtures.WithWorkOrderID("wo-1"),
			testfixtures.WithWorkOrderSchedule(at(9, 0), at(11, 0), "emp-1"),
		)
		h.Store.SeedWorkOrders(order.Persistence())
		event := testfixtures.NewEventFixture(
			testfixtures.WithEventID("evt-1"),
			testfixtures.WithEventEmployee("emp-1"),
			testfixtures.WithEventWorkOrder("wo-1"),
			testfixtures.WithEventInterval(at(9, 0), at(11, 0)),
		)
		h.Store.SeedEvents(event.Persistence())

		if err := h.Schedule.DeleteEvent(context.Background(), principal, "evt-1"); err != nil {
			t.Fatalf("DeleteEvent failed: %v", err)
		}

		if _, err := h.Store.GetEvent(context.Background(), "evt-1"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected the event gone, got %v", err)
		}
		backlog, err := h.Store.ListBacklog(context.Background())
		if err != nil {
			t.Fatalf("ListBacklog failed: %v", err)
		}
		if len(backlog) != 1 || backlog[0].ID != "wo-1" {
			t.Fatalf("expected wo-1 back in the backlog, got %+v", backlog)
		}
	})

	t.Run("requires ownership or dispatch rights", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		seedTechnician(h, "emp-1")
		intruder := seedTechnician(h, "emp-2")
		event := testfixtures.NewEventFixture(
			testfixtures.WithEventID("evt-1"),
			testfixtures.WithEventEmployee("emp-1"),
		)
		h.Store.SeedEvents(event.Persistence())

		if err := h.Schedule.DeleteEvent(context.Background(), intruder, "evt-1"); !errors.Is(err, application.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestScheduleService_ListEvents(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	principal := seedTechnician(h, "emp-1")
	seedTechnician(h, "emp-2")

	h.Store.SeedEvents(
		testfixtures.NewEventFixture(
			testfixtures.WithEventID("evt-1"),
			testfixtures.WithEventEmployee("emp-1"),
			testfixtures.WithEventInterval(at(9, 0), at(10, 0)),
		).Persistence(),
		testfixtures.NewEventFixture(
			testfixtures.WithEventID("evt-2"),
			testfixtures.WithEventEmployee("emp-1"),
			testfixtures.WithEventInterval(at(14, 0), at(15, 0)),
		).Persistence(),
		testfixtures.NewEventFixture(
			testfixtures.WithEventID("evt-3"),
			testfixtures.WithEventEmployee("emp-2"),
			testfixtures.WithEventInterval(at(9, 0), at(10, 0)),
		).Persistence(),
	)

	from := at(8, 0)
	to := at(12, 0)
	events, err := h.Schedule.ListEvents(context.Background(), application.ListEventsParams{
		Principal:  principal,
		EmployeeID: "emp-1",
		From:       &from,
		To:         &to,
	})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 1 || events[0].ID != "evt-1" {
		t.Fatalf("expected only evt-1 in the morning range, got %+v", events)
	}
}

func TestScheduleService_Lanes(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	principal := seedDispatcher(h, "disp-1")
	h.Store.SeedWorkOrders(testfixtures.NewWorkOrderFixture(testfixtures.WithWorkOrderID("wo-1")).Persistence())
	h.Store.SeedEvents(testfixtures.NewEventFixture(
		testfixtures.WithEventID("evt-1"),
		testfixtures.WithEventEmployee("emp-1"),
		testfixtures.WithEventWorkOrder("wo-1"),
		testfixtures.WithEventInterval(at(9, 0), at(11, 0)),
	).Persistence())
	for _, employeeID := range []string{"emp-1", "emp-2"} {
		if _, err := h.Store.AddLaborEntry(context.Background(), persistence.LaborEntry{
			ID:          "labor-" + employeeID,
			WorkOrderID: "wo-1",
			EmployeeID:  employeeID,
		}); err != nil {
			t.Fatalf("AddLaborEntry failed: %v", err)
		}
	}

	lanes, err := h.Schedule.Lanes(context.Background(), application.ListEventsParams{Principal: principal})
	if err != nil {
		t.Fatalf("Lanes failed: %v", err)
	}
	if len(lanes.Lanes) != 2 {
		t.Fatalf("expected an anchor lane plus one clone, got %d", len(lanes.Lanes))
	}
	if lanes.Lanes[0].LaneEmployeeID != "emp-1" || lanes.Lanes[0].Clone {
		t.Fatalf("expected the anchor lane first, got %+v", lanes.Lanes[0])
	}
	if lanes.Lanes[1].LaneEmployeeID != "emp-2" || !lanes.Lanes[1].Clone {
		t.Fatalf("expected a clone lane for emp-2, got %+v", lanes.Lanes[1])
	}
}
