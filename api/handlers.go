/*
handlers.go - HTTP API handlers for the time-off engine

PURPOSE:
  Exposes the engine via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to domain logic.

ENDPOINTS:
  Calculations:
    POST   /api/durations                Compute duration for a date range
    POST   /api/notice                   Evaluate advance-notice compliance
    POST   /api/requests/preview         Full composer preview (derived state)

  Requests:
    POST   /api/requests                 Submit a request (created Pending)
    GET    /api/requests                 List requests (status/employee filters)
    GET    /api/requests/{id}            Get one request
    POST   /api/requests/{id}/approve    Approve (commits the ledger debit)
    POST   /api/requests/{id}/deny       Deny (reason required)

  Balances:
    POST   /api/adjustments              Manual balance adjustment
    GET    /api/employees/{id}/balances  All balances for an employee
    GET    /api/employees/{id}/ledger    Adjustment history, newest first
    POST   /api/accruals/run             Grant accruals due in a window
    POST   /api/carryover/run            Period-end carryover reconciliation

  Directory:
    GET    /api/employees                List employees
    GET    /api/employees/{id}           Get employee
    GET    /api/policies                 List policies
    GET    /api/policies/{id}            Get policy

  Admin:
    GET    /api/settings                 Current company settings
    PUT    /api/settings                 Replace settings (validated)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (decision on a non-pending request)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian/timeoff-engine/config"
	"github.com/meridian/timeoff-engine/directory"
	"github.com/meridian/timeoff-engine/engine"
	"github.com/meridian/timeoff-engine/ledger"
	"github.com/meridian/timeoff-engine/workflow"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// BalanceStore is the read side of the balance storage both store
// implementations provide.
type BalanceStore interface {
	Balance(ctx context.Context, employeeID engine.EmployeeID, policyID engine.PolicyID) (engine.Balance, error)
	Balances(ctx context.Context, employeeID engine.EmployeeID) ([]engine.Balance, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Workflow  *workflow.Service
	Scheduler *workflow.Scheduler
	Ledger    *ledger.Service
	Balances  BalanceStore
	Employees directory.EmployeeRepository
	Policies  directory.PolicyRepository
	Settings  *config.SettingsStore
	Metrics   *Metrics

	// Now is injectable for tests. Defaults to time.Now.
	Now func() time.Time
}

func (h *Handler) today() engine.Date {
	if h.Now != nil {
		return engine.DateOf(h.Now())
	}
	return engine.TodayDate()
}

// =============================================================================
// CALCULATION HANDLERS
// =============================================================================

// ComputeDuration runs the working-day calculator for a date range.
// POST /api/durations
func (h *Handler) ComputeDuration(w http.ResponseWriter, r *http.Request) {
	var req DurationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	form, err := req.toForm("", "")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid duration input", err)
		return
	}

	d := engine.ComputeDuration(form.StartDate, form.EndDate, h.Settings.Current(), form.Mode, form.Params)
	h.Metrics.DurationsComputed.Inc()
	writeJSON(w, http.StatusOK, toDurationDTO(d))
}

// EvaluateNotice checks advance-notice compliance for a prospective range.
// POST /api/notice
func (h *Handler) EvaluateNotice(w http.ResponseWriter, r *http.Request) {
	var req NoticeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	category := engine.Category(req.Category)
	if !category.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid category", engine.ErrInvalidCategory)
		return
	}
	form, err := req.toForm(category, "")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid duration input", err)
		return
	}

	settings := h.Settings.Current()
	d := engine.ComputeDuration(form.StartDate, form.EndDate, settings, form.Mode, form.Params)
	n := engine.EvaluateNotice(category, d.WorkingDays, form.StartDate, h.today(), settings)
	writeJSON(w, http.StatusOK, toNoticeDTO(n))
}

// PreviewRequest runs the full composer reducer: duration, notice,
// projection, warnings, and submit gating, without creating anything.
// POST /api/requests/preview
func (h *Handler) PreviewRequest(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	pol, err := h.Policies.Policy(ctx, engine.PolicyID(req.PolicyID))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	balance, err := h.Balances.Balance(ctx, engine.EmployeeID(req.EmployeeID), pol.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	form, err := req.toForm(pol.Category, req.Note)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid duration input", err)
		return
	}

	derived := engine.Derive(form, engine.ComposerContext{
		Settings:             h.Settings.Current(),
		Balance:              balance,
		NegativeBalanceLimit: pol.NegativeBalanceLimit,
		Today:                h.today(),
	})

	dto := PreviewDTO{
		Duration:    toDurationDTO(derived.Duration),
		Notice:      toNoticeDTO(derived.Notice),
		Unlimited:   derived.Projection.Unlimited,
		Warnings:    derived.Warnings,
		CanSubmit:   derived.CanSubmit,
		BlockReason: derived.BlockReason,
	}
	if !derived.Projection.Unlimited {
		projected := amountFloat(derived.Projection.Projected)
		dto.Projected = &projected
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

// SubmitRequest validates and creates a Pending request.
// POST /api/requests
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	form, err := req.toForm("", req.Note)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid duration input", err)
		return
	}

	created, err := h.Workflow.Submit(r.Context(), workflow.SubmitInput{
		EmployeeID: engine.EmployeeID(req.EmployeeID),
		PolicyID:   engine.PolicyID(req.PolicyID),
		Form:       form,
	})
	if err != nil {
		h.Metrics.RequestsSubmitted.WithLabelValues("rejected").Inc()
		writeDomainError(w, err)
		return
	}

	h.Metrics.RequestsSubmitted.WithLabelValues("accepted").Inc()
	writeJSON(w, http.StatusCreated, toRequestDTO(created))
}

// ListRequests returns requests, optionally filtered by status and employee.
// GET /api/requests?status=pending&employee_id=emp-1
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	var filter workflow.Filter
	if v := r.URL.Query().Get("status"); v != "" {
		status := workflow.Status(v)
		filter.Status = &status
	}
	if v := r.URL.Query().Get("employee_id"); v != "" {
		id := engine.EmployeeID(v)
		filter.EmployeeID = &id
	}

	reqs, err := h.Workflow.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list requests", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTOs(reqs))
}

// GetRequest returns one request.
// GET /api/requests/{id}
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id := workflow.RequestID(chi.URLParam(r, "id"))
	req, err := h.Workflow.Requests.Request(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// ApproveRequest moves a pending request to Approved and commits the debit.
// POST /api/requests/{id}/approve
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	var body ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if body.Approver == "" {
		writeError(w, http.StatusBadRequest, "approver is required", nil)
		return
	}

	id := workflow.RequestID(chi.URLParam(r, "id"))
	req, err := h.Workflow.Approve(r.Context(), id, body.Approver)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.Metrics.RequestsDecided.WithLabelValues("approved").Inc()
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// DenyRequest moves a pending request to Denied. The reason is mandatory.
// POST /api/requests/{id}/deny
func (h *Handler) DenyRequest(w http.ResponseWriter, r *http.Request) {
	var body DenyRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	id := workflow.RequestID(chi.URLParam(r, "id"))
	req, err := h.Workflow.Deny(r.Context(), id, body.Denier, body.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.Metrics.RequestsDecided.WithLabelValues("denied").Inc()
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// =============================================================================
// BALANCE HANDLERS
// =============================================================================

// CreateAdjustment applies a manual add/remove-days adjustment. The floor
// comes from the policy: zero, or its configured negative limit.
// POST /api/adjustments
func (h *Handler) CreateAdjustment(w http.ResponseWriter, r *http.Request) {
	var body AdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	pol, err := h.Policies.Policy(ctx, engine.PolicyID(body.PolicyID))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	effective := h.today()
	if body.EffectiveDate != "" {
		if effective, err = engine.ParseDate(body.EffectiveDate); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid effective_date (use YYYY-MM-DD)", err)
			return
		}
	}

	balance, entry, err := h.Ledger.ApplyAdjustment(ctx, ledger.Adjustment{
		EmployeeID:    engine.EmployeeID(body.EmployeeID),
		PolicyID:      pol.ID,
		Delta:         engine.Days(body.Delta),
		Reason:        body.Reason,
		Actor:         body.Actor,
		EffectiveDate: effective,
		Floor:         pol.Floor(),
	})
	if err != nil {
		h.Metrics.AdjustmentsApplied.WithLabelValues("rejected").Inc()
		writeDomainError(w, err)
		return
	}

	h.Metrics.AdjustmentsApplied.WithLabelValues("applied").Inc()
	writeJSON(w, http.StatusOK, AdjustmentResponse{
		Balance: toBalanceDTO(balance),
		Entry:   toEntryDTO(entry),
	})
}

// GetBalances returns every balance one employee holds.
// GET /api/employees/{id}/balances
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	id := engine.EmployeeID(chi.URLParam(r, "id"))
	balances, err := h.Balances.Balances(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list balances", err)
		return
	}

	dtos := make([]BalanceDTO, len(balances))
	for i, b := range balances {
		dtos[i] = toBalanceDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetLedger returns the adjustment history for one balance, newest first.
// GET /api/employees/{id}/ledger?policy_id=vacation-standard
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	employeeID := engine.EmployeeID(chi.URLParam(r, "id"))
	policyID := engine.PolicyID(r.URL.Query().Get("policy_id"))
	if policyID == "" {
		writeError(w, http.StatusBadRequest, "policy_id query parameter is required", nil)
		return
	}

	entries, err := h.Ledger.Entries(r.Context(), employeeID, policyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list ledger entries", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTOs(entries))
}

// =============================================================================
// DIRECTORY HANDLERS
// =============================================================================

// ListEmployees returns all employees.
// GET /api/employees
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Employees.Employees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
// GET /api/employees/{id}
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := engine.EmployeeID(chi.URLParam(r, "id"))
	emp, err := h.Employees.Employee(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// ListPolicies returns the policy catalog.
// GET /api/policies
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.Policies.Policies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list policies", err)
		return
	}

	dtos := make([]PolicyDTO, len(policies))
	for i, p := range policies {
		dtos[i] = toPolicyDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPolicy returns a single policy.
// GET /api/policies/{id}
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	id := engine.PolicyID(chi.URLParam(r, "id"))
	p, err := h.Policies.Policy(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPolicyDTO(p))
}

// =============================================================================
// SCHEDULER HANDLERS
// =============================================================================

// RunAccruals grants every accrual due in the given window.
// POST /api/accruals/run
func (h *Handler) RunAccruals(w http.ResponseWriter, r *http.Request) {
	var body AccrualRunRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	from, err := engine.ParseDate(body.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
		return
	}
	to, err := engine.ParseDate(body.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
		return
	}

	res, err := h.Scheduler.RunAccruals(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Accrual run failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toSchedulerResultDTO(res))
}

// RunCarryover reconciles period-end carryover for one calendar year.
// POST /api/carryover/run
func (h *Handler) RunCarryover(w http.ResponseWriter, r *http.Request) {
	var body CarryoverRunRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if body.Year < 1900 {
		writeError(w, http.StatusBadRequest, "year is required", nil)
		return
	}

	res, err := h.Scheduler.RunCarryover(r.Context(), body.Year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Carryover run failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toSchedulerResultDTO(res))
}

// =============================================================================
// SETTINGS HANDLERS
// =============================================================================

// GetSettings returns the live company settings.
// GET /api/settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toSettingsDTO(h.Settings.Current()))
}

// UpdateSettings replaces the company settings. The notice-rule table is
// validated for gaps and overlaps before anything changes.
// PUT /api/settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var dto SettingsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	next, err := dto.toSettings(h.Settings.Current())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid settings", err)
		return
	}
	if err := h.Settings.Update(next); err != nil {
		writeError(w, http.StatusBadRequest, "Settings rejected", err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsDTO(h.Settings.Current()))
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors onto the status taxonomy: 404 for
// unknown resources, 409 for decisions on non-pending requests, 400 for
// validation failures, 500 otherwise.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workflow.ErrRequestNotFound),
		errors.Is(err, directory.ErrEmployeeNotFound),
		errors.Is(err, directory.ErrPolicyNotFound),
		errors.Is(err, ledger.ErrBalanceNotFound):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, workflow.ErrNotPending):
		writeError(w, http.StatusConflict, "Request already decided", err)
	case engine.IsValidation(err),
		errors.Is(err, workflow.ErrNotEligible),
		errors.Is(err, ledger.ErrUnlimitedBalance):
		writeError(w, http.StatusBadRequest, "Validation failed", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
