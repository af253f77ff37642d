package http_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/tradesmatepro/fieldsched/internal/application"
	"github.com/tradesmatepro/fieldsched/internal/persistence"
	"github.com/tradesmatepro/fieldsched/internal/scheduler"
)

func sampleEvent() persistence.ScheduleEvent {
	return persistence.ScheduleEvent{
		ID:         "evt-1",
		EmployeeID: "emp-1",
		Title:      "Boiler service",
		Start:      handlerNow,
		End:        handlerNow.Add(2 * time.Hour),
		Status:     persistence.EventStatusScheduled,
		CreatedAt:  handlerNow,
		UpdatedAt:  handlerNow,
	}
}

func TestEventHandler_Create(t *testing.T) {
	t.Parallel()

	t.Run("decodes timestamps and returns the created event", func(t *testing.T) {
		t.Parallel()
		var gotParams application.CreateEventParams
		events := &eventServiceStub{
			createFn: func(ctx context.Context, params application.CreateEventParams) (persistence.ScheduleEvent, error) {
				gotParams = params
				return sampleEvent(), nil
			},
		}
		router := newTestRouter(routerStubs{events: events}, dispatcherValidator())

		rec := doJSON(t, router, http.MethodPost, "/events", "token", `{
			"employee_id": " emp-1 ",
			"title": " Boiler service ",
			"start": "2024-01-08T09:00:00Z",
			"end": "2024-01-08T11:00:00Z"
		}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201 (body %q)", rec.Code, rec.Body.String())
		}

		if gotParams.Input.EmployeeID != "emp-1" || gotParams.Input.Title != "Boiler service" {
			t.Errorf("input fields not trimmed: %+v", gotParams.Input)
		}
		if !gotParams.Input.Start.Equal(handlerNow) || !gotParams.Input.End.Equal(handlerNow.Add(2*time.Hour)) {
			t.Errorf("interval = %v / %v", gotParams.Input.Start, gotParams.Input.End)
		}
		if gotParams.Principal.UserID != "disp-1" {
			t.Errorf("principal = %+v, want disp-1", gotParams.Principal)
		}

		var body struct {
			Event struct {
				ID     string `json:"id"`
				Start  string `json:"start"`
				Status string `json:"status"`
			} `json:"event"`
		}
		decodeBody(t, rec, &body)
		if body.Event.ID != "evt-1" || body.Event.Status != "scheduled" {
			t.Errorf("event = %+v", body.Event)
		}
		if body.Event.Start != handlerNow.Format(time.RFC3339Nano) {
			t.Errorf("start = %q", body.Event.Start)
		}
	})

	t.Run("validation failures map to 422 with field errors", func(t *testing.T) {
		t.Parallel()
		events := &eventServiceStub{
			createFn: func(ctx context.Context, params application.CreateEventParams) (persistence.ScheduleEvent, error) {
				return persistence.ScheduleEvent{}, &application.ValidationError{
					FieldErrors: map[string]string{"title": "title is required"},
				}
			},
		}
		router := newTestRouter(routerStubs{events: events}, dispatcherValidator())

		rec := doJSON(t, router, http.MethodPost, "/events", "token", `{}`)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want 422", rec.Code)
		}
		var body struct {
			Errors map[string]string `json:"errors"`
		}
		decodeBody(t, rec, &body)
		if body.Errors["title"] == "" {
			t.Errorf("errors = %v, want title entry", body.Errors)
		}
	})

	t.Run("booking conflicts map to 409", func(t *testing.T) {
		t.Parallel()
		events := &eventServiceStub{
			createFn: func(ctx context.Context, params application.CreateEventParams) (persistence.ScheduleEvent, error) {
				return persistence.ScheduleEvent{}, scheduler.ErrConflict
			},
		}
		router := newTestRouter(routerStubs{events: events}, dispatcherValidator())

		rec := doJSON(t, router, http.MethodPost, "/events", "token", `{}`)
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", rec.Code)
		}
		var body struct {
			ErrorCode string `json:"error_code"`
		}
		decodeBody(t, rec, &body)
		if body.ErrorCode != "SCHEDULE_CONFLICT" {
			t.Errorf("error_code = %q, want SCHEDULE_CONFLICT", body.ErrorCode)
		}
	})

	t.Run("malformed body yields 400", func(t *testing.T) {
		t.Parallel()
		router := newTestRouter(routerStubs{events: &eventServiceStub{}}, dispatcherValidator())

		rec := doJSON(t, router, http.MethodPost, "/events", "token", `{"title":`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestEventHandler_GetUpdateDelete(t *testing.T) {
	t.Parallel()

	t.Run("get returns the event", func(t *testing.T) {
		t.Parallel()
		events := &eventServiceStub{
			getFn: func(ctx context.Context, id string) (persistence.ScheduleEvent, error) {
				return sampleEvent(), nil
			},
		}
		router := newTestRouter(routerStubs{events: events}, dispatcherValidator())

		rec := doJSON(t, router, http.MethodGet, "/events/evt-1", "token", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("missing event maps to 404", func(t *testing.T) {
		t.Parallel()
		events := &eventServiceStub{
			getFn: func(ctx context.Context, id string) (persistence.ScheduleEvent, error) {
				return persistence.ScheduleEvent{}, application.ErrNotFound
			},
		}
		router := newTestRouter(routerStubs{events: events}, dispatcherValidator())

		rec := doJSON(t, router, http.MethodGet, "/events/evt-gone", "token", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("update forwards the path id", func(t *testing.T) {
		t.Parallel()
		var gotID string
		events := &eventServiceStub{
			updateFn: func(ctx context.Context, params application.UpdateEventParams) (persistence.ScheduleEvent, error) {
				gotID = params.EventID
				return sampleEvent(), nil
			},
		}
		router := newTestRouter(routerStubs{events: events}, dispatcherValidator())

		rec := doJSON(t, router, http.MethodPut, "/events/evt-1", "token", `{"title":"Moved"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if gotID != "evt-1" {
			t.Errorf("event id = %q, want evt-1", gotID)
		}
	})

	t.Run("forbidden delete maps to 403", func(t *testing.T) {
		t.Parallel()
		events := &eventServiceStub{
			deleteFn: func(ctx context.Context, principal application.Principal, eventID string) error {
				return application.ErrUnauthorized
			},
		}
		router := newTestRouter(routerStubs{events: events}, dispatcherValidator())

		rec := doJSON(t, router, http.MethodDelete, "/events/evt-1", "token", "")
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})
}

func TestEventHandler_List(t *testing.T) {
	t.Parallel()

	t.Run("parses range query parameters", func(t *testing.T) {
		t.Parallel()
		var gotParams application.ListEventsParams
		events := &eventServiceStub{
			listFn: func(ctx context.Context, params application.ListEventsParams) ([]persistence.ScheduleEvent, error) {
				gotParams = params
				return []persistence.ScheduleEvent{sampleEvent()}, nil
			},
		}
		router := newTestRouter(routerStubs{events: events}, dispatcherValidator())

		rec := doJSON(t, router, http.MethodGet,
			"/events?employee=emp-1&from=2024-01-08T00:00:00Z&to=2024-01-09T00:00:00Z", "token", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		if gotParams.EmployeeID != "emp-1" {
			t.Errorf("employee = %q, want emp-1", gotParams.EmployeeID)
		}
		if gotParams.From == nil || !gotParams.From.Equal(time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("from = %v", gotParams.From)
		}
		if gotParams.To == nil || !gotParams.To.Equal(time.Date(2024, time.January, 9, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("to = %v", gotParams.To)
		}

		var body struct {
			Events []struct {
				ID string `json:"id"`
			} `json:"events"`
		}
		decodeBody(t, rec, &body)
		if len(body.Events) != 1 || body.Events[0].ID != "evt-1" {
			t.Errorf("events = %+v", body.Events)
		}
	})

	t.Run("garbage timestamps are dropped", func(t *testing.T) {
		t.Parallel()
		var gotParams application.ListEventsParams
		events := &eventServiceStub{
			listFn: func(ctx context.Context, params application.ListEventsParams) ([]persistence.ScheduleEvent, error) {
				gotParams = params
				return nil, nil
			},
		}
		router := newTestRouter(routerStubs{events: events}, dispatcherValidator())

		doJSON(t, router, http.MethodGet, "/events?from=yesterday", "token", "")
		if gotParams.From != nil {
			t.Errorf("from = %v, want nil", gotParams.From)
		}
	})
}

func TestEventHandler_Lanes(t *testing.T) {
	t.Parallel()

	events := &eventServiceStub{
		lanesFn: func(ctx context.Context, params application.ListEventsParams) (application.CalendarLanes, error) {
			return application.CalendarLanes{
				Lanes: []scheduler.LaneEvent{
					{
						Booking: scheduler.Booking{
							ID: "evt-1", WorkOrderID: "wo-1", EmployeeID: "emp-1",
							Title: "Crew job", Start: handlerNow, End: handlerNow.Add(time.Hour),
						},
						LaneEmployeeID: "emp-1",
					},
					{
						Booking: scheduler.Booking{
							ID: "evt-1", WorkOrderID: "wo-1", EmployeeID: "emp-1",
							Title: "Crew job", Start: handlerNow, End: handlerNow.Add(time.Hour),
						},
						LaneEmployeeID: "emp-2",
						Clone:          true,
					},
				},
			}, nil
		},
	}
	router := newTestRouter(routerStubs{events: events}, dispatcherValidator())

	rec := doJSON(t, router, http.MethodGet, "/events/lanes", "token", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Lanes []struct {
			BookingID      string `json:"booking_id"`
			LaneEmployeeID string `json:"lane_employee_id"`
			Clone          bool   `json:"clone"`
		} `json:"lanes"`
	}
	decodeBody(t, rec, &body)
	if len(body.Lanes) != 2 {
		t.Fatalf("got %d lanes, want 2", len(body.Lanes))
	}
	if body.Lanes[0].Clone || !body.Lanes[1].Clone {
		t.Errorf("clone flags = %v / %v", body.Lanes[0].Clone, body.Lanes[1].Clone)
	}
	if body.Lanes[1].LaneEmployeeID != "emp-2" {
		t.Errorf("clone lane = %q, want emp-2", body.Lanes[1].LaneEmployeeID)
	}
}
