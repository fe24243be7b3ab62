/*
handlers.go - HTTP API handlers for the leave engine

PURPOSE:
  Exposes leave.Service over REST. Handlers decode and validate the body,
  call one service operation and serialize the result. All rules live in
  the service.

ENDPOINTS:
  Leave years:
    GET    /api/leave-years/resolve?date=       Resolve (and create) the window

  Employees:
    GET    /api/employees/{id}/balance?year=    Balance summary
    GET    /api/employees/{id}/entries?year=    Entries in a year
    POST   /api/employees/{id}/time-in-lieu     Credit time in lieu
    PUT    /api/employees/{id}/policies/{year}  Upsert the year's policy

  Requests:
    POST   /api/requests                        Submit (actor is the employee)
    POST   /api/requests/hr                     Create on behalf of an employee
    GET    /api/requests/{id}                   Read an entry
    PUT    /api/requests/{id}                   Edit a pending request
    POST   /api/requests/{id}/decision          approve|reject|yes|no|speak_to_line_manager
    POST   /api/requests/{id}/cancellation      Request cancellation
    POST   /api/requests/{id}/cancellation/resolve
    POST   /api/requests/{id}/force-cancel
    GET    /api/requests/{id}/audit             Audit trail

  Directory:
    PUT    /api/directory/employees/{id}        Upsert the directory read model

ACTOR:
  The surrounding application authenticates the caller and passes the
  employee id in X-Actor-ID. The engine only checks manager/HR/self.

ERROR HANDLING:
  - 400: validation (bad body, InvalidRange, OutOfWindow)
  - 401: missing X-Actor-ID
  - 403: Forbidden
  - 404: NotFound
  - 409: NotPending, ConflictError (with the colleagues listed)
  - 422: InsufficientBalance, VolunteerLimitExceeded
  - 500: everything else

SEE ALSO:
  - dto.go: request/response shapes
  - server.go: router and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// ActorHeader carries the authenticated caller's employee id.
const ActorHeader = "X-Actor-ID"

// DirectoryWriter maintains the employee read model.
type DirectoryWriter interface {
	UpsertEmployee(ctx context.Context, e leave.Employee) error
}

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service   *leave.Service
	Directory DirectoryWriter

	validate *validator.Validate
	log      *logrus.Entry
}

func NewHandler(svc *leave.Service, dir DirectoryWriter, log *logrus.Entry) *Handler {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = logrus.NewEntry(l)
	}
	return &Handler{
		Service:   svc,
		Directory: dir,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		log:       log.WithField("component", "api"),
	}
}

// =============================================================================
// LEAVE YEARS & BALANCES
// =============================================================================

func (h *Handler) ResolveLeaveYear(w http.ResponseWriter, r *http.Request) {
	date, err := generic.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD", err)
		return
	}
	y, err := h.Service.ResolveLeaveYear(r.Context(), date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toYearDTO(y))
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	yearID, ok := requireQuery(w, r, "year")
	if !ok {
		return
	}
	b, err := h.Service.GetBalance(r.Context(), chi.URLParam(r, "id"), yearID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(b))
}

func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	yearID, ok := requireQuery(w, r, "year")
	if !ok {
		return
	}
	entries, err := h.Service.ListEntries(r.Context(), chi.URLParam(r, "id"), yearID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	dtos := make([]EntryDTO, len(entries))
	for i := range entries {
		dtos[i] = toEntryDTO(&entries[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// REQUEST LIFECYCLE
// =============================================================================

// SubmitRequest is the employee's own submission.
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req LeaveRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.EmployeeID != "" && req.EmployeeID != actor {
		h.fail(w, r, &leave.ForbiddenError{ActorID: actor, Need: "the employee themselves"})
		return
	}
	start, end, err := req.dates()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "dates must be YYYY-MM-DD", err)
		return
	}

	e, err := h.Service.SubmitRequest(r.Context(), leave.SubmitInput{
		EmployeeID:    actor,
		ManagerID:     req.ManagerID,
		Type:          leave.Type(req.Type),
		TypeOther:     req.TypeOther,
		Start:         start,
		End:           end,
		IsSingleDay:   req.IsSingleDay,
		SingleDayPart: leave.DayPart(req.SingleDayPart),
		Reason:        req.Reason,
		Notes:         req.Notes,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(e))
}

// CreateRequest records leave on an employee's behalf.
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req LeaveRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.EmployeeID == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "employeeId is required", nil)
		return
	}
	start, end, err := req.dates()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "dates must be YYYY-MM-DD", err)
		return
	}

	e, err := h.Service.CreateRequest(r.Context(), leave.CreateInput{
		ActorID:       actor,
		EmployeeID:    req.EmployeeID,
		Type:          leave.Type(req.Type),
		TypeOther:     req.TypeOther,
		Start:         start,
		End:           end,
		IsSingleDay:   req.IsSingleDay,
		SingleDayPart: leave.DayPart(req.SingleDayPart),
		Reason:        req.Reason,
		Notes:         req.Notes,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(e))
}

func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	e, err := h.Service.GetEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(e))
}

func (h *Handler) EditRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req LeaveRequest
	if !h.decode(w, r, &req) {
		return
	}
	start, end, err := req.dates()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "dates must be YYYY-MM-DD", err)
		return
	}

	e, err := h.Service.EditRequest(r.Context(), leave.EditInput{
		EntryID:       chi.URLParam(r, "id"),
		ActorID:       actor,
		Type:          leave.Type(req.Type),
		TypeOther:     req.TypeOther,
		Start:         start,
		End:           end,
		IsSingleDay:   req.IsSingleDay,
		SingleDayPart: leave.DayPart(req.SingleDayPart),
		Reason:        req.Reason,
		Notes:         req.Notes,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(e))
}

func (h *Handler) Decide(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req DecisionRequest
	if !h.decode(w, r, &req) {
		return
	}
	e, err := h.Service.Decide(r.Context(), chi.URLParam(r, "id"), actor, leave.Decision(req.Decision))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(e))
}

func (h *Handler) RequestCancellation(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	e, err := h.Service.RequestCancellation(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(e))
}

func (h *Handler) ResolveCancellation(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req ResolveCancellationRequest
	if !h.decode(w, r, &req) {
		return
	}
	e, err := h.Service.ResolveCancellation(r.Context(), chi.URLParam(r, "id"), actor, *req.Approve)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(e))
}

func (h *Handler) ForceCancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	e, err := h.Service.ForceCancel(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(e))
}

func (h *Handler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Service.AuditTrail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	dtos := make([]AuditDTO, len(recs))
	for i, a := range recs {
		dtos[i] = toAuditDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// BALANCE ADJUSTMENTS
// =============================================================================

func (h *Handler) AdjustTimeInLieu(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req TimeInLieuRequest
	if !h.decode(w, r, &req) {
		return
	}
	a, err := h.Service.AdjustTimeInLieu(r.Context(), leave.TimeInLieuInput{
		EmployeeID: chi.URLParam(r, "id"),
		YearID:     req.YearID,
		Days:       req.Days,
		Reason:     req.Reason,
		ActorID:    actor,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTimeInLieuDTO(a))
}

func (h *Handler) UpdatePolicy(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req PolicyRequest
	if !h.decode(w, r, &req) {
		return
	}
	in := leave.PolicyInput{
		EmployeeID:      chi.URLParam(r, "id"),
		YearID:          chi.URLParam(r, "yearId"),
		ActorID:         actor,
		AnnualAllowance: req.AnnualAllowance,
		CarryOverDays:   req.CarryOverDays,
		AdjustmentDays:  req.AdjustmentDays,
		Notes:           req.Notes,
	}
	if req.SickTrackingMode != nil {
		mode := leave.SickTrackingMode(*req.SickTrackingMode)
		in.SickTrackingMode = &mode
	}
	p, err := h.Service.UpdatePolicy(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPolicyDTO(p))
}

// =============================================================================
// DIRECTORY
// =============================================================================

func (h *Handler) UpsertEmployee(w http.ResponseWriter, r *http.Request) {
	var req EmployeeRequest
	if !h.decode(w, r, &req) {
		return
	}
	e := leave.Employee{
		ID:           chi.URLParam(r, "id"),
		Name:         req.Name,
		Email:        req.Email,
		DepartmentID: req.DepartmentID,
		ManagerID:    req.ManagerID,
		Role:         leave.Role(req.Role),
	}
	if err := h.Directory.UpsertEmployee(r.Context(), e); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string, err error) {
	resp := ErrorResponse{Error: message, Code: code}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// decode reads and validates a JSON body, answering 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", validationMessage(err), err)
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request"
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return "invalid fields: " + strings.Join(fields, ", ")
}

func requireActor(w http.ResponseWriter, r *http.Request) (string, bool) {
	actor := strings.TrimSpace(r.Header.Get(ActorHeader))
	if actor == "" {
		writeError(w, http.StatusUnauthorized, "missing_actor", ActorHeader+" header is required", nil)
		return "", false
	}
	return actor, true
}

func requireQuery(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", key+" query parameter is required", nil)
		return "", false
	}
	return v, true
}

// fail maps a service error onto a status and a stable code.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var conflict *leave.ConflictError
	switch {
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:     err.Error(),
			Code:      "conflict",
			Conflicts: toConflictDTOs(conflict.Conflicts),
		})
	case errors.Is(err, leave.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, leave.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error(), nil)
	case errors.Is(err, leave.ErrNotPending):
		writeError(w, http.StatusConflict, "not_pending", err.Error(), nil)
	case errors.Is(err, leave.ErrInsufficientBalance):
		writeError(w, http.StatusUnprocessableEntity, "insufficient_balance", err.Error(), nil)
	case errors.Is(err, leave.ErrVolunteerLimitExceeded):
		writeError(w, http.StatusUnprocessableEntity, "volunteer_limit_exceeded", err.Error(), nil)
	case errors.Is(err, leave.ErrOutOfWindow):
		writeError(w, http.StatusBadRequest, "out_of_window", err.Error(), nil)
	case errors.Is(err, leave.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "invalid_range", err.Error(), nil)
	case leave.IsValidation(err):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
	default:
		h.log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal", "internal error", nil)
	}
}

