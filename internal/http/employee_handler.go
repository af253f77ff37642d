package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tradesmatepro/fieldsched/internal/application"
)

type employeeService interface {
	CreateEmployee(ctx context.Context, params application.CreateEmployeeParams) (application.User, error)
	ListEmployees(ctx context.Context, schedulableOnly bool) ([]application.User, error)
}

type EmployeeHandler struct {
	service   employeeService
	responder responder
	logger    *slog.Logger
}

func NewEmployeeHandler(service employeeService, logger *slog.Logger) *EmployeeHandler {
	base := defaultLogger(logger)
	return &EmployeeHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req employeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	user, err := h.service.CreateEmployee(r.Context(), application.CreateEmployeeParams{
		Principal: principal,
		Input: application.EmployeeInput{
			Email:               strings.TrimSpace(req.Email),
			DisplayName:         strings.TrimSpace(req.DisplayName),
			Role:                strings.TrimSpace(req.Role),
			Schedulable:         req.Schedulable,
			CapacityHoursPerDay: req.CapacityHoursPerDay,
			Password:            req.Password,
		},
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toUserDTO(user))
}

func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	schedulableOnly := strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("schedulable")), "true")

	users, err := h.service.ListEmployees(r.Context(), schedulableOnly)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]userDTO, 0, len(users))
	for _, user := range users {
		out = append(out, toUserDTO(user))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEmployeesResponse{Employees: out})
}

type employeeRequest struct {
	Email               string  `json:"email"`
	DisplayName         string  `json:"display_name"`
	Role                string  `json:"role"`
	Schedulable         bool    `json:"schedulable"`
	CapacityHoursPerDay float64 `json:"capacity_hours_per_day"`
	Password            string  `json:"password"`
}

type listEmployeesResponse struct {
	Employees []userDTO `json:"employees"`
}

type userDTO struct {
	ID                  string  `json:"id"`
	Email               string  `json:"email"`
	DisplayName         string  `json:"display_name"`
	Role                string  `json:"role"`
	Schedulable         bool    `json:"schedulable"`
	CapacityHoursPerDay float64 `json:"capacity_hours_per_day,omitempty"`
	CreatedAt           string  `json:"created_at,omitempty"`
	UpdatedAt           string  `json:"updated_at,omitempty"`
}

func toUserDTO(user application.User) userDTO {
	dto := userDTO{
		ID:                  user.ID,
		Email:               user.Email,
		DisplayName:         user.DisplayName,
		Role:                user.Role,
		Schedulable:         user.Schedulable,
		CapacityHoursPerDay: user.CapacityHoursPerDay,
	}
	if !user.CreatedAt.IsZero() {
		dto.CreatedAt = user.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	if !user.UpdatedAt.IsZero() {
		dto.UpdatedAt = user.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	return dto
}
