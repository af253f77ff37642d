package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tradesmatepro/fieldsched/internal/application"
	"github.com/tradesmatepro/fieldsched/internal/persistence"
	"github.com/tradesmatepro/fieldsched/internal/scheduler"
)

type eventService interface {
	CreateEvent(ctx context.Context, params application.CreateEventParams) (persistence.ScheduleEvent, error)
	GetEvent(ctx context.Context, id string) (persistence.ScheduleEvent, error)
	UpdateEvent(ctx context.Context, params application.UpdateEventParams) (persistence.ScheduleEvent, error)
	DeleteEvent(ctx context.Context, principal application.Principal, eventID string) error
	ListEvents(ctx context.Context, params application.ListEventsParams) ([]persistence.ScheduleEvent, error)
	Lanes(ctx context.Context, params application.ListEventsParams) (application.CalendarLanes, error)
}

type EventHandler struct {
	service   eventService
	responder responder
	logger    *slog.Logger
}

func NewEventHandler(service eventService, logger *slog.Logger) *EventHandler {
	base := defaultLogger(logger)
	return &EventHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	event, err := h.service.CreateEvent(r.Context(), application.CreateEventParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, eventResponse{Event: toEventDTO(event)})
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	event, err := h.service.GetEvent(r.Context(), eventID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventResponse{Event: toEventDTO(event)})
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	event, err := h.service.UpdateEvent(r.Context(), application.UpdateEventParams{
		Principal: principal,
		EventID:   eventID,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventResponse{Event: toEventDTO(event)})
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteEvent(r.Context(), principal, eventID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params := buildListEventsParams(r.URL.Query(), principal)

	events, err := h.service.ListEvents(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEventsResponse{Events: toEventDTOs(events)})
}

// Lanes serves the resource calendar view: the same range as List, projected
// onto per-employee lanes with crew clones expanded.
func (h *EventHandler) Lanes(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params := buildListEventsParams(r.URL.Query(), principal)

	lanes, err := h.service.Lanes(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, lanesResponse{Lanes: toLaneDTOs(lanes.Lanes)})
}

type eventRequest struct {
	WorkOrderID *string `json:"work_order_id"`
	CustomerID  *string `json:"customer_id"`
	EmployeeID  string  `json:"employee_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Start       string  `json:"start"`
	End         string  `json:"end"`
}

func (r eventRequest) toInput() application.EventInput {
	return application.EventInput{
		WorkOrderID: r.WorkOrderID,
		CustomerID:  r.CustomerID,
		EmployeeID:  strings.TrimSpace(r.EmployeeID),
		Title:       strings.TrimSpace(r.Title),
		Description: r.Description,
		Start:       parseTimestamp(r.Start),
		End:         parseTimestamp(r.End),
	}
}

func parseTimestamp(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Time{}
}

type eventResponse struct {
	Event eventDTO `json:"event"`
}

type listEventsResponse struct {
	Events []eventDTO `json:"events"`
}

type lanesResponse struct {
	Lanes []laneDTO `json:"lanes"`
}

type eventDTO struct {
	ID          string  `json:"id"`
	WorkOrderID *string `json:"work_order_id,omitempty"`
	CustomerID  *string `json:"customer_id,omitempty"`
	EmployeeID  string  `json:"employee_id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Start       string  `json:"start"`
	End         string  `json:"end"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func toEventDTO(event persistence.ScheduleEvent) eventDTO {
	return eventDTO{
		ID:          event.ID,
		WorkOrderID: event.WorkOrderID,
		CustomerID:  event.CustomerID,
		EmployeeID:  event.EmployeeID,
		Title:       event.Title,
		Description: event.Description,
		Start:       event.Start.UTC().Format(time.RFC3339Nano),
		End:         event.End.UTC().Format(time.RFC3339Nano),
		Status:      string(event.Status),
		CreatedAt:   event.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:   event.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toEventDTOs(events []persistence.ScheduleEvent) []eventDTO {
	if len(events) == 0 {
		return nil
	}
	out := make([]eventDTO, 0, len(events))
	for _, event := range events {
		out = append(out, toEventDTO(event))
	}
	return out
}

type laneDTO struct {
	BookingID      string `json:"booking_id"`
	WorkOrderID    string `json:"work_order_id,omitempty"`
	LaneEmployeeID string `json:"lane_employee_id"`
	Title          string `json:"title"`
	Start          string `json:"start"`
	End            string `json:"end"`
	Clone          bool   `json:"clone,omitempty"`
}

func toLaneDTOs(lanes []scheduler.LaneEvent) []laneDTO {
	if len(lanes) == 0 {
		return nil
	}
	out := make([]laneDTO, 0, len(lanes))
	for _, lane := range lanes {
		out = append(out, laneDTO{
			BookingID:      lane.ID,
			WorkOrderID:    lane.WorkOrderID,
			LaneEmployeeID: lane.LaneEmployeeID,
			Title:          lane.Title,
			Start:          lane.Start.UTC().Format(time.RFC3339Nano),
			End:            lane.End.UTC().Format(time.RFC3339Nano),
			Clone:          lane.Clone,
		})
	}
	return out
}

func buildListEventsParams(values url.Values, principal application.Principal) application.ListEventsParams {
	params := application.ListEventsParams{Principal: principal}

	params.EmployeeID = strings.TrimSpace(values.Get("employee"))

	if from := strings.TrimSpace(values.Get("from")); from != "" {
		if ts := parseTimestamp(from); !ts.IsZero() {
			params.From = &ts
		}
	}
	if to := strings.TrimSpace(values.Get("to")); to != "" {
		if ts := parseTimestamp(to); !ts.IsZero() {
			params.To = &ts
		}
	}

	return params
}
