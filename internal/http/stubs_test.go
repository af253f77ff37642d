package http_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	api "github.com/tradesmatepro/fieldsched/internal/http"

	"github.com/tradesmatepro/fieldsched/internal/application"
	"github.com/tradesmatepro/fieldsched/internal/persistence"
	"github.com/tradesmatepro/fieldsched/internal/scheduler"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var handlerNow = time.Date(2024, time.January, 8, 9, 0, 0, 0, time.UTC)

// authStub satisfies the auth handler and session middleware interfaces.
type authStub struct {
	authenticateFn func(ctx context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error)
	revokeFn       func(ctx context.Context, token string) error
	validateFn     func(ctx context.Context, token string) (application.Principal, error)
}

func (s *authStub) Authenticate(ctx context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error) {
	if s.authenticateFn == nil {
		return application.AuthenticateResult{}, application.ErrInvalidCredentials
	}
	return s.authenticateFn(ctx, params)
}

func (s *authStub) RevokeSession(ctx context.Context, token string) error {
	if s.revokeFn == nil {
		return nil
	}
	return s.revokeFn(ctx, token)
}

func (s *authStub) ValidateSession(ctx context.Context, token string) (application.Principal, error) {
	if s.validateFn == nil {
		return application.Principal{}, application.ErrUnauthorized
	}
	return s.validateFn(ctx, token)
}

type eventServiceStub struct {
	createFn func(ctx context.Context, params application.CreateEventParams) (persistence.ScheduleEvent, error)
	getFn    func(ctx context.Context, id string) (persistence.ScheduleEvent, error)
	updateFn func(ctx context.Context, params application.UpdateEventParams) (persistence.ScheduleEvent, error)
	deleteFn func(ctx context.Context, principal application.Principal, eventID string) error
	listFn   func(ctx context.Context, params application.ListEventsParams) ([]persistence.ScheduleEvent, error)
	lanesFn  func(ctx context.Context, params application.ListEventsParams) (application.CalendarLanes, error)
}

func (s *eventServiceStub) CreateEvent(ctx context.Context, params application.CreateEventParams) (persistence.ScheduleEvent, error) {
	return s.createFn(ctx, params)
}

func (s *eventServiceStub) GetEvent(ctx context.Context, id string) (persistence.ScheduleEvent, error) {
	return s.getFn(ctx, id)
}

func (s *eventServiceStub) UpdateEvent(ctx context.Context, params application.UpdateEventParams) (persistence.ScheduleEvent, error) {
	return s.updateFn(ctx, params)
}

func (s *eventServiceStub) DeleteEvent(ctx context.Context, principal application.Principal, eventID string) error {
	return s.deleteFn(ctx, principal, eventID)
}

func (s *eventServiceStub) ListEvents(ctx context.Context, params application.ListEventsParams) ([]persistence.ScheduleEvent, error) {
	return s.listFn(ctx, params)
}

func (s *eventServiceStub) Lanes(ctx context.Context, params application.ListEventsParams) (application.CalendarLanes, error) {
	return s.lanesFn(ctx, params)
}

type dispatchServiceStub struct {
	suggestFn    func(ctx context.Context, params application.SuggestParams) (application.SuggestResult, error)
	rescheduleFn func(ctx context.Context, params application.RescheduleParams) (scheduler.Outcome, error)
	backlogFn    func(ctx context.Context, principal application.Principal) ([]persistence.WorkOrder, error)
	assignFn     func(ctx context.Context, params application.AssignWorkOrderParams) (application.AssignWorkOrderResult, error)
}

func (s *dispatchServiceStub) Suggest(ctx context.Context, params application.SuggestParams) (application.SuggestResult, error) {
	return s.suggestFn(ctx, params)
}

func (s *dispatchServiceStub) Reschedule(ctx context.Context, params application.RescheduleParams) (scheduler.Outcome, error) {
	return s.rescheduleFn(ctx, params)
}

func (s *dispatchServiceStub) ListBacklog(ctx context.Context, principal application.Principal) ([]persistence.WorkOrder, error) {
	return s.backlogFn(ctx, principal)
}

func (s *dispatchServiceStub) AssignWorkOrder(ctx context.Context, params application.AssignWorkOrderParams) (application.AssignWorkOrderResult, error) {
	return s.assignFn(ctx, params)
}

type recurrenceServiceStub struct {
	attachFn func(ctx context.Context, params application.AttachRecurrenceParams) (application.AttachRecurrenceResult, error)
	removeFn func(ctx context.Context, principal application.Principal, seriesID string) error
}

func (s *recurrenceServiceStub) AttachRule(ctx context.Context, params application.AttachRecurrenceParams) (application.AttachRecurrenceResult, error) {
	return s.attachFn(ctx, params)
}

func (s *recurrenceServiceStub) RemoveSeries(ctx context.Context, principal application.Principal, seriesID string) error {
	return s.removeFn(ctx, principal, seriesID)
}

type employeeServiceStub struct {
	createFn func(ctx context.Context, params application.CreateEmployeeParams) (application.User, error)
	listFn   func(ctx context.Context, schedulableOnly bool) ([]application.User, error)
}

func (s *employeeServiceStub) CreateEmployee(ctx context.Context, params application.CreateEmployeeParams) (application.User, error) {
	return s.createFn(ctx, params)
}

func (s *employeeServiceStub) ListEmployees(ctx context.Context, schedulableOnly bool) ([]application.User, error) {
	return s.listFn(ctx, schedulableOnly)
}

// dispatcherValidator accepts any token and returns a dispatcher principal.
func dispatcherValidator() *authStub {
	return &authStub{
		validateFn: func(ctx context.Context, token string) (application.Principal, error) {
			return application.Principal{UserID: "disp-1", Role: "dispatcher"}, nil
		},
	}
}

type routerStubs struct {
	auth       *authStub
	events     *eventServiceStub
	dispatch   *dispatchServiceStub
	recurrence *recurrenceServiceStub
	employees  *employeeServiceStub
}

// newTestRouter wires the full route table around the given stubs. A nil
// validator skips the session middleware.
func newTestRouter(stubs routerStubs, validator api.SessionValidator) http.Handler {
	logger := quietLogger()
	cfg := api.RouterConfig{}

	if stubs.auth != nil {
		cfg.Auth = api.NewAuthHandler(stubs.auth, logger)
	}
	if stubs.events != nil {
		cfg.Events = api.NewEventHandler(stubs.events, logger)
	}
	if stubs.dispatch != nil {
		cfg.Dispatch = api.NewDispatchHandler(stubs.dispatch, logger)
	}
	if stubs.recurrence != nil {
		cfg.Recurrences = api.NewRecurrenceHandler(stubs.recurrence, logger)
	}
	if stubs.employees != nil {
		cfg.Employees = api.NewEmployeeHandler(stubs.employees, logger)
	}
	if validator != nil {
		cfg.Middleware = append(cfg.Middleware, api.RequireSession(validator, logger))
	}

	return api.NewRouter(cfg)
}

// doJSON performs a request with an optional JSON body and bearer token.
func doJSON(t *testing.T, handler http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// doJSONRequest builds a request without sending it, for callers that need
// to attach cookies first.
func doJSONRequest(method, target, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func serve(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
		t.Fatalf("decode response body: %v (body %q)", err, rec.Body.String())
	}
}
