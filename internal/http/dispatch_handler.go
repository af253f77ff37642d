package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tradesmatepro/fieldsched/internal/application"
	"github.com/tradesmatepro/fieldsched/internal/persistence"
	"github.com/tradesmatepro/fieldsched/internal/scheduler"
)

type dispatchService interface {
	Suggest(ctx context.Context, params application.SuggestParams) (application.SuggestResult, error)
	Reschedule(ctx context.Context, params application.RescheduleParams) (scheduler.Outcome, error)
	ListBacklog(ctx context.Context, principal application.Principal) ([]persistence.WorkOrder, error)
	AssignWorkOrder(ctx context.Context, params application.AssignWorkOrderParams) (application.AssignWorkOrderResult, error)
}

type DispatchHandler struct {
	service   dispatchService
	responder responder
	logger    *slog.Logger
}

func NewDispatchHandler(service dispatchService, logger *slog.Logger) *DispatchHandler {
	base := defaultLogger(logger)
	return &DispatchHandler{service: service, responder: newResponder(base), logger: base}
}

// Suggest handles POST /availability/suggest.
func (h *DispatchHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req suggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	result, err := h.service.Suggest(r.Context(), application.SuggestParams{
		Principal:       principal,
		EmployeeIDs:     req.EmployeeIDs,
		DurationMinutes: req.DurationMinutes,
		WindowStart:     parseTimestamp(req.WindowStart),
		WindowEnd:       parseTimestamp(req.WindowEnd),
		WeekendsOnly:    req.WeekendsOnly,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, suggestResponse{
		Slots:       toSlotDTOs(result.Earliest),
		PerEmployee: toSlotDTOMap(result.PerEmployee),
	})
}

// Reschedule handles POST /events/{id}/reschedule.
func (h *DispatchHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	outcome, err := h.service.Reschedule(r.Context(), application.RescheduleParams{
		Principal:      principal,
		EventID:        eventID,
		Start:          parseTimestamp(req.Start),
		End:            parseTimestamp(req.End),
		LaneEmployeeID: strings.TrimSpace(req.LaneEmployeeID),
		AcceptNext:     req.AcceptNext,
		Decline:        req.Decline,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toOutcomeDTO(outcome))
}

// Backlog handles GET /workorders/backlog.
func (h *DispatchHandler) Backlog(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	orders, err := h.service.ListBacklog(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, backlogResponse{WorkOrders: toWorkOrderDTOs(orders)})
}

// Assign handles POST /workorders/{id}/assign.
func (h *DispatchHandler) Assign(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	workOrderID, ok := WorkOrderIDFromContext(r.Context())
	if !ok || strings.TrimSpace(workOrderID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidWorkOrderID)
		return
	}

	var req assignRequest
	if r.Body != nil {
		// An empty body means "search from now with defaults".
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	principal, _ := PrincipalFromContext(r.Context())

	result, err := h.service.AssignWorkOrder(r.Context(), application.AssignWorkOrderParams{
		Principal:   principal,
		WorkOrderID: workOrderID,
		WindowStart: parseTimestamp(req.WindowStart),
		WindowEnd:   parseTimestamp(req.WindowEnd),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, assignResponse{
		Event:    toEventDTO(result.Event),
		CrewIDs:  result.CrewIDs,
		Warnings: result.Warnings,
	})
}

type suggestRequest struct {
	EmployeeIDs     []string `json:"employee_ids"`
	DurationMinutes int      `json:"duration_minutes"`
	WindowStart     string   `json:"window_start"`
	WindowEnd       string   `json:"window_end"`
	WeekendsOnly    bool     `json:"weekends_only"`
}

type suggestResponse struct {
	Slots       []slotDTO            `json:"slots"`
	PerEmployee map[string][]slotDTO `json:"per_employee,omitempty"`
}

type slotDTO struct {
	Start      string `json:"start"`
	End        string `json:"end"`
	EmployeeID string `json:"employee_id"`
}

func toSlotDTO(slot scheduler.TimeSlot) slotDTO {
	return slotDTO{
		Start:      slot.Start.UTC().Format(time.RFC3339Nano),
		End:        slot.End.UTC().Format(time.RFC3339Nano),
		EmployeeID: slot.EmployeeID,
	}
}

func toSlotDTOs(slots []scheduler.TimeSlot) []slotDTO {
	if len(slots) == 0 {
		return nil
	}
	out := make([]slotDTO, 0, len(slots))
	for _, slot := range slots {
		out = append(out, toSlotDTO(slot))
	}
	return out
}

func toSlotDTOMap(perEmployee map[string][]scheduler.TimeSlot) map[string][]slotDTO {
	if len(perEmployee) == 0 {
		return nil
	}
	out := make(map[string][]slotDTO, len(perEmployee))
	for employeeID, slots := range perEmployee {
		out[employeeID] = toSlotDTOs(slots)
	}
	return out
}

type rescheduleRequest struct {
	Start          string `json:"start"`
	End            string `json:"end"`
	LaneEmployeeID string `json:"lane_employee_id"`
	AcceptNext     bool   `json:"accept_next"`
	Decline        bool   `json:"decline"`
}

type outcomeDTO struct {
	State     string        `json:"state"`
	Committed *slotDTO      `json:"committed,omitempty"`
	NextSlot  *slotDTO      `json:"next_slot,omitempty"`
	Conflicts []conflictDTO `json:"conflicts,omitempty"`
}

type conflictDTO struct {
	BookingID   string `json:"booking_id,omitempty"`
	WorkOrderID string `json:"work_order_id,omitempty"`
	EmployeeID  string `json:"employee_id,omitempty"`
	Title       string `json:"title,omitempty"`
	Start       string `json:"start"`
	End         string `json:"end"`
}

func toOutcomeDTO(outcome scheduler.Outcome) outcomeDTO {
	dto := outcomeDTO{State: string(outcome.State)}
	if outcome.Committed != nil {
		slot := toSlotDTO(*outcome.Committed)
		dto.Committed = &slot
	}
	if outcome.NextSlot != nil {
		slot := toSlotDTO(*outcome.NextSlot)
		dto.NextSlot = &slot
	}
	for _, conflict := range outcome.Conflicts {
		dto.Conflicts = append(dto.Conflicts, conflictDTO{
			BookingID:   conflict.WithBookingID,
			WorkOrderID: conflict.WorkOrderID,
			EmployeeID:  conflict.EmployeeID,
			Title:       conflict.Title,
			Start:       conflict.Start.UTC().Format(time.RFC3339Nano),
			End:         conflict.End.UTC().Format(time.RFC3339Nano),
		})
	}
	return dto
}

type backlogResponse struct {
	WorkOrders []workOrderDTO `json:"work_orders"`
}

type workOrderDTO struct {
	ID                       string  `json:"id"`
	Title                    string  `json:"title"`
	CustomerID               *string `json:"customer_id,omitempty"`
	ScheduledStart           *string `json:"scheduled_start,omitempty"`
	ScheduledEnd             *string `json:"scheduled_end,omitempty"`
	AssignedTo               *string `json:"assigned_to,omitempty"`
	EstimatedDurationMinutes int     `json:"estimated_duration_minutes"`
	CrewSize                 int     `json:"crew_size"`
	HoursPerDay              float64 `json:"hours_per_day,omitempty"`
	Status                   string  `json:"status"`
}

func toWorkOrderDTOs(orders []persistence.WorkOrder) []workOrderDTO {
	if len(orders) == 0 {
		return nil
	}
	out := make([]workOrderDTO, 0, len(orders))
	for _, order := range orders {
		dto := workOrderDTO{
			ID:                       order.ID,
			Title:                    order.Title,
			CustomerID:               order.CustomerID,
			AssignedTo:               order.AssignedTo,
			EstimatedDurationMinutes: order.EstimatedDurationMinutes,
			CrewSize:                 order.Labor.CrewSize,
			HoursPerDay:              order.Labor.HoursPerDay,
			Status:                   order.Status,
		}
		if order.ScheduledStart != nil {
			v := order.ScheduledStart.UTC().Format(time.RFC3339Nano)
			dto.ScheduledStart = &v
		}
		if order.ScheduledEnd != nil {
			v := order.ScheduledEnd.UTC().Format(time.RFC3339Nano)
			dto.ScheduledEnd = &v
		}
		out = append(out, dto)
	}
	return out
}

type assignRequest struct {
	WindowStart string `json:"window_start"`
	WindowEnd   string `json:"window_end"`
}

type assignResponse struct {
	Event    eventDTO `json:"event"`
	CrewIDs  []string `json:"crew_ids"`
	Warnings []string `json:"warnings,omitempty"`
}
