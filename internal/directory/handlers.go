package directory

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"staffdir/internal/api"
	"staffdir/internal/requestctx"
)

type Handler struct {
	Service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Route("/{employeeID}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Put("/", h.handleUpdate)
			r.Delete("/", h.handleDelete)
		})
	})
}

type createEmployeeRequest struct {
	FirstName       string           `json:"firstName"`
	LastName        string           `json:"lastName"`
	Email           string           `json:"email"`
	DocNumber       string           `json:"docNumber"`
	Age             int              `json:"age"`
	Position        string           `json:"position"`
	Department      string           `json:"department"`
	Salary          float64          `json:"salary"`
	HireDate        string           `json:"hireDate"`
	ManagerID       *int64           `json:"managerId"`
	PermissionLevel *PermissionLevel `json:"permissionLevel"`
	Phones          []PhoneInput     `json:"phones"`
}

type updateEmployeeRequest struct {
	FirstName       Optional[string]          `json:"firstName"`
	LastName        Optional[string]          `json:"lastName"`
	Email           Optional[string]          `json:"email"`
	DocNumber       Optional[string]          `json:"docNumber"`
	Age             Optional[int]             `json:"age"`
	Position        Optional[string]          `json:"position"`
	Department      Optional[string]          `json:"department"`
	Salary          Optional[float64]         `json:"salary"`
	HireDate        Optional[string]          `json:"hireDate"`
	ManagerID       Optional[int64]           `json:"managerId"`
	PermissionLevel Optional[PermissionLevel] `json:"permissionLevel"`
	Phones          Optional[[]PhoneInput]    `json:"phones"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	if _, ok := requestctx.GetIdentity(r.Context()); !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}

	employees, err := h.Service.List(r.Context())
	if err != nil {
		writeError(w, err, requestID)
		return
	}
	api.Success(w, employees, requestID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	if _, ok := requestctx.GetIdentity(r.Context()); !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}

	id, ok := parseEmployeeID(w, r, requestID)
	if !ok {
		return
	}

	emp, err := h.Service.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err, requestID)
		return
	}
	api.Success(w, emp, requestID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	identity, ok := requestctx.GetIdentity(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}

	var payload createEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}

	hireDate, err := parseDate(payload.HireDate)
	if err != nil {
		api.FailWithDetails(w, http.StatusBadRequest, "validation_error", "payload validation failed",
			map[string]any{"fields": []FieldIssue{{Field: "hireDate", Reason: "must be a valid date in YYYY-MM-DD or RFC3339 format"}}}, requestID)
		return
	}
	if hireDate.IsZero() {
		hireDate = time.Now().UTC()
	}

	params := CreateEmployeeParams{
		FirstName:  payload.FirstName,
		LastName:   payload.LastName,
		Email:      payload.Email,
		DocNumber:  payload.DocNumber,
		Age:        payload.Age,
		Position:   payload.Position,
		Department: payload.Department,
		Salary:     payload.Salary,
		HireDate:   hireDate,
		ManagerID:  payload.ManagerID,
		Phones:     payload.Phones,
	}
	if payload.PermissionLevel != nil {
		params.PermissionLevel = *payload.PermissionLevel
	}

	emp, err := h.Service.Create(r.Context(), identity.Email, params)
	if err != nil {
		writeError(w, err, requestID)
		return
	}
	api.Created(w, emp, requestID)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	identity, ok := requestctx.GetIdentity(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}

	id, ok := parseEmployeeID(w, r, requestID)
	if !ok {
		return
	}

	var payload updateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}

	params := UpdateEmployeeParams{
		FirstName:       payload.FirstName,
		LastName:        payload.LastName,
		Email:           payload.Email,
		DocNumber:       payload.DocNumber,
		Age:             payload.Age,
		Position:        payload.Position,
		Department:      payload.Department,
		Salary:          payload.Salary,
		ManagerID:       payload.ManagerID,
		PermissionLevel: payload.PermissionLevel,
		Phones:          payload.Phones,
	}
	if payload.HireDate.Present {
		if !payload.HireDate.Valid {
			params.HireDate = Null[time.Time]()
		} else {
			hireDate, err := parseDate(payload.HireDate.Value)
			if err != nil || hireDate.IsZero() {
				api.FailWithDetails(w, http.StatusBadRequest, "validation_error", "payload validation failed",
					map[string]any{"fields": []FieldIssue{{Field: "hireDate", Reason: "must be a valid date in YYYY-MM-DD or RFC3339 format"}}}, requestID)
				return
			}
			params.HireDate = Some(hireDate)
		}
	}

	emp, err := h.Service.Update(r.Context(), identity.Email, id, params)
	if err != nil {
		writeError(w, err, requestID)
		return
	}
	api.Success(w, emp, requestID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	if _, ok := requestctx.GetIdentity(r.Context()); !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}

	id, ok := parseEmployeeID(w, r, requestID)
	if !ok {
		return
	}

	if err := h.Service.Delete(r.Context(), id); err != nil {
		writeError(w, err, requestID)
		return
	}
	api.Success(w, map[string]string{"message": "employee deleted"}, requestID)
}

func parseEmployeeID(w http.ResponseWriter, r *http.Request, requestID string) (int64, bool) {
	raw := chi.URLParam(r, "employeeID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		api.FailWithDetails(w, http.StatusBadRequest, "validation_error", "payload validation failed",
			map[string]any{"fields": []FieldIssue{{Field: "id", Reason: "must be a positive integer"}}}, requestID)
		return 0, false
	}
	return id, true
}

// parseDate accepts RFC3339 or YYYY-MM-DD.
func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	return time.Parse("2006-01-02", value)
}

// writeError maps the directory error taxonomy onto transport status
// codes. Restricted deletes get their own code so callers can tell
// them apart from uniqueness conflicts.
func writeError(w http.ResponseWriter, err error, requestID string) {
	var validationErr *ValidationError
	var conflictErr *ConflictError
	switch {
	case errors.As(err, &validationErr):
		api.FailWithDetails(w, http.StatusBadRequest, "validation_error", "payload validation failed",
			map[string]any{"fields": validationErr.Issues}, requestID)
	case errors.As(err, &conflictErr):
		api.Fail(w, http.StatusConflict, "conflict", conflictErr.Reason, requestID)
	case errors.Is(err, ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", requestID)
	case errors.Is(err, ErrHasSubordinates):
		api.Fail(w, http.StatusConflict, "delete_restricted", "employee still has subordinates; reassign them first", requestID)
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrUnknownActor):
		api.Fail(w, http.StatusForbidden, "forbidden", "you don't have permission to assign this permission level", requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, "internal_error", "storage failure", requestID)
	}
}
