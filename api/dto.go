/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNTS:
  Day/hour amounts travel as JSON numbers. The engine computes on
  decimals; conversion to float happens only at the API boundary.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"fmt"
	"time"

	"github.com/meridian/timeoff-engine/directory"
	"github.com/meridian/timeoff-engine/engine"
	"github.com/meridian/timeoff-engine/ledger"
	"github.com/meridian/timeoff-engine/policy"
	"github.com/meridian/timeoff-engine/workflow"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// DurationRequest is the input to the duration calculator endpoint. The
// same fields describe the range on submission and preview requests.
type DurationRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`

	// Mode: "full", "edges", or "uniform". Empty means full.
	Mode            string   `json:"mode,omitempty"`
	FirstDayHours   *float64 `json:"first_day_hours,omitempty"`
	LastDayHours    *float64 `json:"last_day_hours,omitempty"`
	SameHoursPerDay *float64 `json:"same_hours_per_day,omitempty"`
}

// NoticeRequest is the input to the notice evaluation endpoint.
type NoticeRequest struct {
	Category string `json:"category"`
	DurationRequest
}

// SubmitRequest is the input to request submission and preview.
type SubmitRequest struct {
	EmployeeID string `json:"employee_id"`
	PolicyID   string `json:"policy_id"`
	Note       string `json:"note,omitempty"`
	DurationRequest
}

// ApproveRequest carries the approver identity.
type ApproveRequest struct {
	Approver string `json:"approver"`
}

// DenyRequest carries the denier identity and the mandatory reason.
type DenyRequest struct {
	Denier string `json:"denier"`
	Reason string `json:"reason"`
}

// AdjustmentRequest is the input to a manual balance adjustment.
type AdjustmentRequest struct {
	EmployeeID    string  `json:"employee_id"`
	PolicyID      string  `json:"policy_id"`
	Delta         float64 `json:"delta"` // signed days
	Reason        string  `json:"reason"`
	Actor         string  `json:"actor"`
	EffectiveDate string  `json:"effective_date,omitempty"`
}

// AccrualRunRequest is the window an accrual run covers, inclusive.
type AccrualRunRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// CarryoverRunRequest names the calendar year to reconcile.
type CarryoverRunRequest struct {
	Year int `json:"year"`
}

// SettingsDTO doubles as the settings response and the update request.
type SettingsDTO struct {
	HoursPerWorkDay    float64         `json:"hours_per_work_day"`
	MinPartialHours    float64         `json:"min_partial_hours"`
	WorkDays           []string        `json:"work_days"`
	AdvanceNoticeRules []NoticeRuleDTO `json:"advance_notice_rules"`
	SickLeaveExempt    bool            `json:"sick_leave_exempt"`
	ManagerOverride    bool            `json:"manager_override"`
}

type NoticeRuleDTO struct {
	MinDays            int    `json:"min_days"`
	MaxDays            *int   `json:"max_days,omitempty"`
	RequiredNoticeDays int    `json:"required_notice_days"`
	Label              string `json:"label,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// DurationDTO is the calculator's output.
type DurationDTO struct {
	WorkingDays float64       `json:"working_days"`
	TotalHours  float64       `json:"total_hours"`
	Breakdown   []DayEntryDTO `json:"breakdown"`
}

type DayEntryDTO struct {
	Date          string  `json:"date"`
	Hours         float64 `json:"hours"`
	NonWorkingDay bool    `json:"non_working_day,omitempty"`
}

// NoticeDTO is the notice evaluator's output.
type NoticeDTO struct {
	Compliant          bool   `json:"compliant"`
	RequiredNoticeDays int    `json:"required_notice_days,omitempty"`
	ActualNoticeDays   int    `json:"actual_notice_days"`
	MatchedBucketLabel string `json:"matched_bucket_label,omitempty"`
	Exempt             bool   `json:"exempt,omitempty"`
}

// PreviewDTO is the composer's derived state: what the form renders.
type PreviewDTO struct {
	Duration    DurationDTO `json:"duration"`
	Notice      NoticeDTO   `json:"notice"`
	Projected   *float64    `json:"projected_balance,omitempty"` // absent when unlimited
	Unlimited   bool        `json:"unlimited,omitempty"`
	Warnings    []string    `json:"warnings,omitempty"`
	CanSubmit   bool        `json:"can_submit"`
	BlockReason string      `json:"block_reason,omitempty"`
}

// RequestDTO represents a time-off request.
type RequestDTO struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employee_id"`
	PolicyID   string `json:"policy_id"`
	Category   string `json:"category"`

	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Mode      string `json:"mode"`
	Note      string `json:"note,omitempty"`

	WorkingDays float64   `json:"working_days"`
	TotalHours  float64   `json:"total_hours"`
	Notice      NoticeDTO `json:"notice"`

	Status       string  `json:"status"`
	SubmittedAt  string  `json:"submitted_at"`
	DecidedBy    string  `json:"decided_by,omitempty"`
	DecidedAt    *string `json:"decided_at,omitempty"`
	DenialReason string  `json:"denial_reason,omitempty"`
}

// BalanceDTO represents one employee+policy balance.
type BalanceDTO struct {
	EmployeeID string  `json:"employee_id"`
	PolicyID   string  `json:"policy_id"`
	Category   string  `json:"category"`
	Available  float64 `json:"available"`
	Unlimited  bool    `json:"unlimited,omitempty"`
}

// EntryDTO represents one ledger entry.
type EntryDTO struct {
	ID          string  `json:"id"`
	EmployeeID  string  `json:"employee_id"`
	PolicyID    string  `json:"policy_id"`
	EffectiveAt string  `json:"effective_at"`
	CreatedAt   string  `json:"created_at"`
	Delta       float64 `json:"delta"`
	Resulting   float64 `json:"resulting_balance"`
	Kind        string  `json:"kind"`
	Actor       string  `json:"actor"`
	Reason      string  `json:"reason"`
	ReferenceID string  `json:"reference_id,omitempty"`
}

// AdjustmentResponse returns the new balance and the ledger entry it
// produced.
type AdjustmentResponse struct {
	Balance BalanceDTO `json:"balance"`
	Entry   EntryDTO   `json:"entry"`
}

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role"`
	HireDate  string `json:"hire_date"`
	ManagerID string `json:"manager_id,omitempty"`
}

// PolicyDTO represents a policy in API responses.
type PolicyDTO struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	Category             string   `json:"category"`
	AccrualType          string   `json:"accrual_type"`
	AccrualRate          float64  `json:"accrual_rate,omitempty"`
	AccrualPeriod        string   `json:"accrual_period,omitempty"`
	Eligibility          string   `json:"eligibility"`
	CarryoverAllowed     bool     `json:"carryover_allowed"`
	CarryoverMaxDays     *float64 `json:"carryover_max_days,omitempty"`
	NegativeBalanceLimit *float64 `json:"negative_balance_limit,omitempty"`
}

// SchedulerResultDTO summarizes an accrual or carryover run.
type SchedulerResultDTO struct {
	EntriesWritten int `json:"entries_written"`
	Skipped        int `json:"skipped,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func amountFloat(a engine.Amount) float64 {
	f, _ := a.Value.Float64()
	return f
}

// toForm converts the wire shape to the engine's form state. Partial-day
// overrides left null in JSON stay zero and get clamped by the calculator.
func (r DurationRequest) toForm(category engine.Category, note string) (engine.FormState, error) {
	form := engine.FormState{
		Category: category,
		Note:     note,
		Mode:     engine.PartialFull,
	}

	var err error
	if r.StartDate != "" {
		if form.StartDate, err = engine.ParseDate(r.StartDate); err != nil {
			return engine.FormState{}, fmt.Errorf("start_date: %w", err)
		}
	}
	if r.EndDate != "" {
		if form.EndDate, err = engine.ParseDate(r.EndDate); err != nil {
			return engine.FormState{}, fmt.Errorf("end_date: %w", err)
		}
	}

	switch r.Mode {
	case "", string(engine.PartialFull):
	case string(engine.PartialEdges):
		form.Mode = engine.PartialEdges
	case string(engine.PartialUniform):
		form.Mode = engine.PartialUniform
	default:
		return engine.FormState{}, fmt.Errorf("unknown partial-day mode %q", r.Mode)
	}

	if r.FirstDayHours != nil {
		form.Params.FirstDayHours = engine.Hours(*r.FirstDayHours)
	}
	if r.LastDayHours != nil {
		form.Params.LastDayHours = engine.Hours(*r.LastDayHours)
	}
	if r.SameHoursPerDay != nil {
		form.Params.SameHoursPerDay = engine.Hours(*r.SameHoursPerDay)
	}
	return form, nil
}

func toDurationDTO(d engine.Duration) DurationDTO {
	breakdown := make([]DayEntryDTO, len(d.Breakdown))
	for i, e := range d.Breakdown {
		breakdown[i] = DayEntryDTO{
			Date:          e.Date.String(),
			Hours:         amountFloat(e.Hours),
			NonWorkingDay: e.NonWorkingDay,
		}
	}
	return DurationDTO{
		WorkingDays: amountFloat(d.WorkingDays),
		TotalHours:  amountFloat(d.TotalHours),
		Breakdown:   breakdown,
	}
}

func toNoticeDTO(n engine.NoticeResult) NoticeDTO {
	return NoticeDTO{
		Compliant:          n.Compliant,
		RequiredNoticeDays: n.RequiredNoticeDays,
		ActualNoticeDays:   n.ActualNoticeDays,
		MatchedBucketLabel: n.MatchedBucketLabel,
		Exempt:             n.Exempt,
	}
}

func toRequestDTO(req workflow.Request) RequestDTO {
	dto := RequestDTO{
		ID:           string(req.ID),
		EmployeeID:   string(req.EmployeeID),
		PolicyID:     string(req.PolicyID),
		Category:     string(req.Category),
		StartDate:    req.StartDate.String(),
		EndDate:      req.EndDate.String(),
		Mode:         string(req.Mode),
		Note:         req.Note,
		WorkingDays:  amountFloat(req.WorkingDays),
		TotalHours:   amountFloat(req.TotalHours),
		Notice:       toNoticeDTO(req.Notice),
		Status:       string(req.Status),
		SubmittedAt:  req.SubmittedAt.Format(time.RFC3339),
		DecidedBy:    req.DecidedBy,
		DenialReason: req.DenialReason,
	}
	if req.DecidedAt != nil {
		at := req.DecidedAt.Format(time.RFC3339)
		dto.DecidedAt = &at
	}
	return dto
}

func toRequestDTOs(reqs []workflow.Request) []RequestDTO {
	dtos := make([]RequestDTO, len(reqs))
	for i, r := range reqs {
		dtos[i] = toRequestDTO(r)
	}
	return dtos
}

func toBalanceDTO(b engine.Balance) BalanceDTO {
	return BalanceDTO{
		EmployeeID: string(b.EmployeeID),
		PolicyID:   string(b.PolicyID),
		Category:   string(b.Category),
		Available:  amountFloat(b.Available),
		Unlimited:  b.Unlimited,
	}
}

func toEntryDTO(e ledger.Entry) EntryDTO {
	return EntryDTO{
		ID:          string(e.ID),
		EmployeeID:  string(e.EmployeeID),
		PolicyID:    string(e.PolicyID),
		EffectiveAt: e.EffectiveAt.String(),
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		Delta:       amountFloat(e.Delta),
		Resulting:   amountFloat(e.Resulting),
		Kind:        string(e.Kind),
		Actor:       e.Actor,
		Reason:      e.Reason,
		ReferenceID: e.ReferenceID,
	}
}

func toEntryDTOs(entries []ledger.Entry) []EntryDTO {
	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	return dtos
}

func toSchedulerResultDTO(r workflow.SchedulerResult) SchedulerResultDTO {
	return SchedulerResultDTO{
		EntriesWritten: r.EntriesWritten,
		Skipped:        r.Skipped,
	}
}

func toEmployeeDTO(e directory.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:        string(e.ID),
		Name:      e.Name,
		Email:     e.Email,
		Role:      string(e.Role),
		HireDate:  e.HireDate.String(),
		ManagerID: string(e.ManagerID),
	}
}

func toPolicyDTO(p policy.Policy) PolicyDTO {
	dto := PolicyDTO{
		ID:               string(p.ID),
		Name:             p.Name,
		Category:         string(p.Category),
		AccrualType:      string(p.AccrualType),
		AccrualPeriod:    string(p.AccrualRate.Per),
		Eligibility:      string(p.Eligibility.Kind),
		CarryoverAllowed: p.Carryover.Allowed,
	}
	if p.AccrualRate.Amount.IsPositive() {
		dto.AccrualRate = amountFloat(p.AccrualRate.Amount)
	}
	if p.Carryover.MaxDays != nil {
		v := amountFloat(*p.Carryover.MaxDays)
		dto.CarryoverMaxDays = &v
	}
	if p.NegativeBalanceLimit != nil {
		v := amountFloat(*p.NegativeBalanceLimit)
		dto.NegativeBalanceLimit = &v
	}
	return dto
}

func toSettingsDTO(s engine.CompanySettings) SettingsDTO {
	var days []string
	for _, wd := range []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
		time.Friday, time.Saturday, time.Sunday,
	} {
		if s.WorkWeek.Contains(wd) {
			days = append(days, wd.String())
		}
	}

	rules := make([]NoticeRuleDTO, len(s.AdvanceNoticeRules))
	for i, r := range s.AdvanceNoticeRules {
		rules[i] = NoticeRuleDTO{
			MinDays:            r.MinDays,
			MaxDays:            r.MaxDays,
			RequiredNoticeDays: r.RequiredNoticeDays,
			Label:              r.Label(),
		}
	}

	return SettingsDTO{
		HoursPerWorkDay:    amountFloat(s.HoursPerWorkDay),
		MinPartialHours:    amountFloat(s.MinPartialHours),
		WorkDays:           days,
		AdvanceNoticeRules: rules,
		SickLeaveExempt:    s.SickLeaveExempt,
		ManagerOverride:    s.ManagerOverride,
	}
}

// toSettings converts an update request back into engine settings. The
// holiday calendar is not editable over the API and carries over from the
// current settings.
func (dto SettingsDTO) toSettings(current engine.CompanySettings) (engine.CompanySettings, error) {
	next := current
	next.HoursPerWorkDay = engine.Hours(dto.HoursPerWorkDay)
	next.MinPartialHours = engine.Hours(dto.MinPartialHours)
	next.SickLeaveExempt = dto.SickLeaveExempt
	next.ManagerOverride = dto.ManagerOverride

	week := engine.WorkWeek{}
	for _, name := range dto.WorkDays {
		day, ok := weekdayByName(name)
		if !ok {
			return engine.CompanySettings{}, fmt.Errorf("unknown weekday %q", name)
		}
		week[day] = true
	}
	next.WorkWeek = week

	rules := make([]engine.NoticeRule, len(dto.AdvanceNoticeRules))
	for i, r := range dto.AdvanceNoticeRules {
		rules[i] = engine.NoticeRule{
			MinDays:            r.MinDays,
			MaxDays:            r.MaxDays,
			RequiredNoticeDays: r.RequiredNoticeDays,
		}
	}
	next.AdvanceNoticeRules = rules
	return next, nil
}

func weekdayByName(name string) (time.Weekday, bool) {
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if wd.String() == name {
			return wd, true
		}
	}
	return time.Sunday, false
}
