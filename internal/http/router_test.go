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

// fullStubs returns a stub set where every service call succeeds with an
// empty result, so routing behavior can be observed in isolation.
func fullStubs() routerStubs {
	return routerStubs{
		auth: &authStub{
			authenticateFn: func(ctx context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error) {
				return application.AuthenticateResult{
					Session: persistence.Session{Token: "token-1", ExpiresAt: handlerNow.Add(24 * time.Hour)},
				}, nil
			},
		},
		events: &eventServiceStub{
			createFn: func(ctx context.Context, params application.CreateEventParams) (persistence.ScheduleEvent, error) {
				return persistence.ScheduleEvent{ID: "evt-1"}, nil
			},
			getFn: func(ctx context.Context, id string) (persistence.ScheduleEvent, error) {
				return persistence.ScheduleEvent{ID: id}, nil
			},
			updateFn: func(ctx context.Context, params application.UpdateEventParams) (persistence.ScheduleEvent, error) {
				return persistence.ScheduleEvent{ID: params.EventID}, nil
			},
			deleteFn: func(ctx context.Context, principal application.Principal, eventID string) error {
				return nil
			},
			listFn: func(ctx context.Context, params application.ListEventsParams) ([]persistence.ScheduleEvent, error) {
				return nil, nil
			},
			lanesFn: func(ctx context.Context, params application.ListEventsParams) (application.CalendarLanes, error) {
				return application.CalendarLanes{}, nil
			},
		},
		dispatch: &dispatchServiceStub{
			suggestFn: func(ctx context.Context, params application.SuggestParams) (application.SuggestResult, error) {
				return application.SuggestResult{}, nil
			},
			rescheduleFn: func(ctx context.Context, params application.RescheduleParams) (scheduler.Outcome, error) {
				return scheduler.Outcome{State: scheduler.StateCommitted}, nil
			},
			backlogFn: func(ctx context.Context, principal application.Principal) ([]persistence.WorkOrder, error) {
				return nil, nil
			},
			assignFn: func(ctx context.Context, params application.AssignWorkOrderParams) (application.AssignWorkOrderResult, error) {
				return application.AssignWorkOrderResult{}, nil
			},
		},
		recurrence: &recurrenceServiceStub{
			attachFn: func(ctx context.Context, params application.AttachRecurrenceParams) (application.AttachRecurrenceResult, error) {
				return application.AttachRecurrenceResult{}, nil
			},
			removeFn: func(ctx context.Context, principal application.Principal, seriesID string) error {
				return nil
			},
		},
		employees: &employeeServiceStub{
			createFn: func(ctx context.Context, params application.CreateEmployeeParams) (application.User, error) {
				return application.User{ID: "emp-1"}, nil
			},
			listFn: func(ctx context.Context, schedulableOnly bool) ([]application.User, error) {
				return nil, nil
			},
		},
	}
}

func TestRouter_Dispatch(t *testing.T) {
	t.Parallel()

	router := newTestRouter(fullStubs(), nil)

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
	}{
		{"create session", http.MethodPost, "/sessions", `{"email":"a@b.c","password":"pw"}`, http.StatusCreated},
		{"delete current session", http.MethodDelete, "/sessions/current", "", http.StatusUnauthorized},
		{"sessions wrong method", http.MethodGet, "/sessions", "", http.StatusMethodNotAllowed},
		{"list events", http.MethodGet, "/events", "", http.StatusOK},
		{"create event", http.MethodPost, "/events", `{}`, http.StatusCreated},
		{"event lanes", http.MethodGet, "/events/lanes", "", http.StatusOK},
		{"get event", http.MethodGet, "/events/evt-1", "", http.StatusOK},
		{"update event", http.MethodPut, "/events/evt-1", `{}`, http.StatusOK},
		{"delete event", http.MethodDelete, "/events/evt-1", "", http.StatusNoContent},
		{"patch event unsupported", http.MethodPatch, "/events/evt-1", `{}`, http.StatusMethodNotAllowed},
		{"reschedule event", http.MethodPost, "/events/evt-1/reschedule", `{}`, http.StatusOK},
		{"attach recurrence", http.MethodPost, "/events/evt-1/recurrences", `{}`, http.StatusCreated},
		{"unknown event action", http.MethodPost, "/events/evt-1/clone", `{}`, http.StatusNotFound},
		{"suggest availability", http.MethodPost, "/availability/suggest", `{}`, http.StatusOK},
		{"suggest wrong method", http.MethodGet, "/availability/suggest", "", http.StatusMethodNotAllowed},
		{"backlog", http.MethodGet, "/workorders/backlog", "", http.StatusOK},
		{"assign work order", http.MethodPost, "/workorders/wo-1/assign", `{}`, http.StatusCreated},
		{"work order without action", http.MethodPost, "/workorders/wo-1", `{}`, http.StatusNotFound},
		{"remove series", http.MethodDelete, "/recurrences/series-1", "", http.StatusNoContent},
		{"remove series wrong method", http.MethodGet, "/recurrences/series-1", "", http.StatusMethodNotAllowed},
		{"list employees", http.MethodGet, "/employees", "", http.StatusOK},
		{"create employee", http.MethodPost, "/employees", `{}`, http.StatusCreated},
		{"unknown path", http.MethodGet, "/nowhere", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := doJSON(t, router, tt.method, tt.target, "", tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("%s %s = %d, want %d (body %q)", tt.method, tt.target, rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestRouter_PathIDsReachServices(t *testing.T) {
	t.Parallel()

	stubs := fullStubs()
	var gotEventID, gotWorkOrderID, gotSeriesID string
	stubs.events.getFn = func(ctx context.Context, id string) (persistence.ScheduleEvent, error) {
		gotEventID = id
		return persistence.ScheduleEvent{ID: id}, nil
	}
	stubs.dispatch.assignFn = func(ctx context.Context, params application.AssignWorkOrderParams) (application.AssignWorkOrderResult, error) {
		gotWorkOrderID = params.WorkOrderID
		return application.AssignWorkOrderResult{}, nil
	}
	stubs.recurrence.removeFn = func(ctx context.Context, principal application.Principal, seriesID string) error {
		gotSeriesID = seriesID
		return nil
	}
	router := newTestRouter(stubs, nil)

	doJSON(t, router, http.MethodGet, "/events/evt-42", "", "")
	doJSON(t, router, http.MethodPost, "/workorders/wo-42/assign", "", `{}`)
	doJSON(t, router, http.MethodDelete, "/recurrences/series-42", "", "")

	if gotEventID != "evt-42" {
		t.Errorf("event id = %q, want evt-42", gotEventID)
	}
	if gotWorkOrderID != "wo-42" {
		t.Errorf("work order id = %q, want wo-42", gotWorkOrderID)
	}
	if gotSeriesID != "series-42" {
		t.Errorf("series id = %q, want series-42", gotSeriesID)
	}
}

func TestRouter_SessionMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("rejects requests without a token", func(t *testing.T) {
		t.Parallel()
		router := newTestRouter(fullStubs(), dispatcherValidator())

		rec := doJSON(t, router, http.MethodGet, "/events", "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("rejects invalid tokens", func(t *testing.T) {
		t.Parallel()
		validator := &authStub{
			validateFn: func(ctx context.Context, token string) (application.Principal, error) {
				return application.Principal{}, application.ErrSessionExpired
			},
		}
		router := newTestRouter(fullStubs(), validator)

		rec := doJSON(t, router, http.MethodGet, "/events", "stale-token", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("disabled accounts get forbidden", func(t *testing.T) {
		t.Parallel()
		validator := &authStub{
			validateFn: func(ctx context.Context, token string) (application.Principal, error) {
				return application.Principal{}, application.ErrAccountDisabled
			},
		}
		router := newTestRouter(fullStubs(), validator)

		rec := doJSON(t, router, http.MethodGet, "/events", "token", "")
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("valid token injects the principal", func(t *testing.T) {
		t.Parallel()
		stubs := fullStubs()
		var got application.Principal
		stubs.dispatch.backlogFn = func(ctx context.Context, principal application.Principal) ([]persistence.WorkOrder, error) {
			got = principal
			return nil, nil
		}
		router := newTestRouter(stubs, dispatcherValidator())

		rec := doJSON(t, router, http.MethodGet, "/workorders/backlog", "good-token", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %q)", rec.Code, rec.Body.String())
		}
		if got.UserID != "disp-1" || got.Role != "dispatcher" {
			t.Errorf("principal = %+v, want disp-1/dispatcher", got)
		}
	})
}
