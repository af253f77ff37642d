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
)

type recurrenceService interface {
	AttachRule(ctx context.Context, params application.AttachRecurrenceParams) (application.AttachRecurrenceResult, error)
	RemoveSeries(ctx context.Context, principal application.Principal, seriesID string) error
}

type RecurrenceHandler struct {
	service   recurrenceService
	responder responder
	logger    *slog.Logger
}

func NewRecurrenceHandler(service recurrenceService, logger *slog.Logger) *RecurrenceHandler {
	base := defaultLogger(logger)
	return &RecurrenceHandler{service: service, responder: newResponder(base), logger: base}
}

// Attach handles POST /events/{id}/recurrences.
func (h *RecurrenceHandler) Attach(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	var req recurrenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	params := application.AttachRecurrenceParams{
		Principal:   principal,
		EventID:     eventID,
		Frequency:   strings.TrimSpace(strings.ToLower(req.Frequency)),
		Interval:    req.Interval,
		Occurrences: req.Occurrences,
	}
	if end := parseTimestamp(req.EndDate); !end.IsZero() {
		params.EndDate = &end
	}

	result, err := h.service.AttachRule(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, recurrenceResponse{
		Series:       toSeriesDTO(result.Series),
		Materialized: toEventDTOs(result.Materialized),
		Warnings:     result.Warnings,
	})
}

// Remove handles DELETE /recurrences/{id}.
func (h *RecurrenceHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	seriesID, ok := SeriesIDFromContext(r.Context())
	if !ok || strings.TrimSpace(seriesID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSeriesID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.RemoveSeries(r.Context(), principal, seriesID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type recurrenceRequest struct {
	Frequency   string `json:"frequency"`
	Interval    int    `json:"interval"`
	EndDate     string `json:"end_date"`
	Occurrences int    `json:"occurrences"`
}

type recurrenceResponse struct {
	Series       seriesDTO  `json:"series"`
	Materialized []eventDTO `json:"materialized,omitempty"`
	Warnings     []string   `json:"warnings,omitempty"`
}

type seriesDTO struct {
	ID              string `json:"id"`
	TemplateEventID string `json:"template_event_id"`
	Frequency       string `json:"frequency"`
	Interval        int    `json:"interval"`
	EndDate         string `json:"end_date,omitempty"`
	MaxOccurrences  int    `json:"max_occurrences"`
	GeneratedCount  int    `json:"generated_count"`
	NextOccurrence  string `json:"next_occurrence,omitempty"`
}

func toSeriesDTO(series persistence.RecurringSeries) seriesDTO {
	dto := seriesDTO{
		ID:              series.ID,
		TemplateEventID: series.TemplateEventID,
		Frequency:       series.Frequency,
		Interval:        series.Interval,
		MaxOccurrences:  series.MaxOccurrences,
		GeneratedCount:  series.GeneratedCount,
	}
	if series.EndDate != nil {
		dto.EndDate = series.EndDate.UTC().Format(time.RFC3339Nano)
	}
	if series.NextOccurrence != nil {
		dto.NextOccurrence = series.NextOccurrence.UTC().Format(time.RFC3339Nano)
	}
	return dto
}
