/*
Package config loads the server configuration from YAML with environment
overrides.

PURPOSE:
  One file describes the deployment: server settings, store selection,
  company settings (work week, hours per day, advance-notice rules), the
  policy catalog, and seed employees. Everything has a working default so
  the server runs with no file at all.

PRECEDENCE:
  defaults < YAML file < environment variables

ENVIRONMENT:
  TIMEOFF_PORT          HTTP port
  TIMEOFF_STORE_DRIVER  "memory" or "sqlite"
  TIMEOFF_DB_PATH       SQLite database path

VALIDATION:
  Load is the configuration-time gate: advance-notice buckets are checked
  for gaps and overlaps here (engine.ValidateNoticeRules) and every policy
  is checked for internal consistency, so a bad table fails startup
  instead of surfacing at request time.

SEE ALSO:
  - engine/settings.go: CompanySettings and notice-rule validation
  - cmd/server: flag handling and .env loading
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/meridian/timeoff-engine/directory"
	"github.com/meridian/timeoff-engine/engine"
	"github.com/meridian/timeoff-engine/policy"
)

// =============================================================================
// CONFIG SHAPE
// =============================================================================

type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Store     StoreConfig      `yaml:"store"`
	Company   CompanyConfig    `yaml:"company"`
	Policies  []PolicyConfig   `yaml:"policies"`
	Employees []EmployeeConfig `yaml:"employees"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type StoreConfig struct {
	// Driver selects the store implementation: "memory" or "sqlite".
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

type CompanyConfig struct {
	HoursPerWorkDay float64 `yaml:"hours_per_work_day"`
	MinPartialHours float64 `yaml:"min_partial_hours"`

	// WorkWeek is a preset: "standard" (Mon-Fri), "six_day" (Mon-Sat), or
	// "custom" with WorkDays listing weekday names.
	WorkWeek string   `yaml:"work_week"`
	WorkDays []string `yaml:"work_days"`

	// Holidays are YYYY-MM-DD dates excluded from working days.
	Holidays []string `yaml:"holidays"`

	AdvanceNoticeRules []NoticeRuleConfig `yaml:"advance_notice_rules"`
	SickLeaveExempt    *bool              `yaml:"sick_leave_exempt"`
	ManagerOverride    *bool              `yaml:"manager_override"`
}

type NoticeRuleConfig struct {
	MinDays            int  `yaml:"min_days"`
	MaxDays            *int `yaml:"max_days"` // absent means unbounded
	RequiredNoticeDays int  `yaml:"required_notice_days"`
}

type PolicyConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Category string `yaml:"category"`

	AccrualType   string  `yaml:"accrual_type"` // accrual | hours_worked | manual | unlimited
	AccrualRate   float64 `yaml:"accrual_rate"`
	AccrualPeriod string  `yaml:"accrual_period"` // month | year

	// Eligibility defaults by category when empty: paid categories wait out
	// probation, unpaid categories open from the hire date.
	Eligibility           string `yaml:"eligibility"` // from_hire_date | after_probation | custom
	EligibilityCustomDays int    `yaml:"eligibility_custom_days"`

	CarryoverAllowed bool     `yaml:"carryover_allowed"`
	CarryoverMaxDays *float64 `yaml:"carryover_max_days"`

	NegativeBalanceLimit *float64 `yaml:"negative_balance_limit"`

	// OpeningBalance seeds each employee's balance under this policy.
	OpeningBalance float64 `yaml:"opening_balance"`
}

type EmployeeConfig struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Email     string `yaml:"email"`
	Role      string `yaml:"role"`
	HireDate  string `yaml:"hire_date"`
	ManagerID string `yaml:"manager_id"`
}

// =============================================================================
// LOADING
// =============================================================================

// Default returns the stock configuration: port 8080, in-memory store,
// default company settings, and the three standard policies.
func Default() Config {
	three, five := 3, 5
	limit := 2.0
	carryCap := 5.0
	return Config{
		Server: ServerConfig{Port: 8080},
		Store:  StoreConfig{Driver: "memory", Path: "timeoff.db"},
		Company: CompanyConfig{
			HoursPerWorkDay: 8,
			MinPartialHours: 0.5,
			WorkWeek:        "standard",
			AdvanceNoticeRules: []NoticeRuleConfig{
				{MinDays: 1, MaxDays: &three, RequiredNoticeDays: 14},
				{MinDays: 4, MaxDays: &five, RequiredNoticeDays: 28},
				{MinDays: 6, RequiredNoticeDays: 60},
			},
		},
		Policies: []PolicyConfig{
			{
				ID: "vacation-standard", Name: "Standard Vacation", Category: "vacation",
				AccrualType: "accrual", AccrualRate: 1.25, AccrualPeriod: "month",
				CarryoverAllowed: true, CarryoverMaxDays: &carryCap,
				NegativeBalanceLimit: &limit, OpeningBalance: 10,
			},
			{
				ID: "sick-standard", Name: "Sick Leave", Category: "sick_leave",
				AccrualType: "manual", OpeningBalance: 8,
			},
			{
				ID: "personal-unpaid", Name: "Unpaid Personal", Category: "personal",
				AccrualType: "unlimited",
			},
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides and validates. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TIMEOFF_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("TIMEOFF_STORE_DRIVER"); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv("TIMEOFF_DB_PATH"); v != "" {
		c.Store.Path = v
	}
}

// Validate is the configuration-time gate: notice-rule bucket coverage,
// policy consistency, work-week shape, and seed-data parseability.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}

	settings, err := c.Settings()
	if err != nil {
		return err
	}
	if settings.WorkWeek.IsEmpty() {
		return fmt.Errorf("config: work week has no working days")
	}
	if err := engine.ValidateNoticeRules(settings.AdvanceNoticeRules); err != nil {
		return err
	}

	for _, pc := range c.Policies {
		p, err := pc.toPolicy()
		if err != nil {
			return err
		}
		if err := p.Validate(); err != nil {
			return err
		}
	}

	for _, ec := range c.Employees {
		if _, err := ec.toEmployee(); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// CONVERSION TO DOMAIN TYPES
// =============================================================================

// Settings converts the company block into engine settings.
func (c Config) Settings() (engine.CompanySettings, error) {
	s := engine.DefaultSettings()

	if c.Company.HoursPerWorkDay > 0 {
		s.HoursPerWorkDay = engine.Hours(c.Company.HoursPerWorkDay)
	}
	if c.Company.MinPartialHours > 0 {
		s.MinPartialHours = engine.Hours(c.Company.MinPartialHours)
	}

	switch c.Company.WorkWeek {
	case "", "standard":
		s.WorkWeek = engine.StandardWorkWeek()
	case "six_day":
		s.WorkWeek = engine.SixDayWorkWeek()
	case "custom":
		week := engine.WorkWeek{}
		for _, name := range c.Company.WorkDays {
			day, err := parseWeekday(name)
			if err != nil {
				return engine.CompanySettings{}, err
			}
			week[day] = true
		}
		s.WorkWeek = week
	default:
		return engine.CompanySettings{}, fmt.Errorf("config: unknown work week preset %q", c.Company.WorkWeek)
	}

	if len(c.Company.Holidays) > 0 {
		cal := make(holidaySet, len(c.Company.Holidays))
		for _, raw := range c.Company.Holidays {
			d, err := engine.ParseDate(raw)
			if err != nil {
				return engine.CompanySettings{}, fmt.Errorf("config: holiday %q: %w", raw, err)
			}
			cal[d] = struct{}{}
		}
		s.Holidays = cal
	}

	if len(c.Company.AdvanceNoticeRules) > 0 {
		rules := make([]engine.NoticeRule, len(c.Company.AdvanceNoticeRules))
		for i, rc := range c.Company.AdvanceNoticeRules {
			rules[i] = engine.NoticeRule{
				MinDays:            rc.MinDays,
				MaxDays:            rc.MaxDays,
				RequiredNoticeDays: rc.RequiredNoticeDays,
			}
		}
		s.AdvanceNoticeRules = rules
	}

	if c.Company.SickLeaveExempt != nil {
		s.SickLeaveExempt = *c.Company.SickLeaveExempt
	}
	if c.Company.ManagerOverride != nil {
		s.ManagerOverride = *c.Company.ManagerOverride
	}
	return s, nil
}

// DomainPolicies converts the policy catalog.
func (c Config) DomainPolicies() ([]policy.Policy, error) {
	out := make([]policy.Policy, 0, len(c.Policies))
	for _, pc := range c.Policies {
		p, err := pc.toPolicy()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// OpeningBalances maps policy ID to the configured opening amount.
func (c Config) OpeningBalances() map[engine.PolicyID]engine.Amount {
	out := make(map[engine.PolicyID]engine.Amount, len(c.Policies))
	for _, pc := range c.Policies {
		out[engine.PolicyID(pc.ID)] = engine.Days(pc.OpeningBalance)
	}
	return out
}

// SeedEmployees converts the employee seed list.
func (c Config) SeedEmployees() ([]directory.Employee, error) {
	out := make([]directory.Employee, 0, len(c.Employees))
	for _, ec := range c.Employees {
		e, err := ec.toEmployee()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (pc PolicyConfig) toPolicy() (policy.Policy, error) {
	p := policy.Policy{
		ID:       engine.PolicyID(pc.ID),
		Name:     pc.Name,
		Category: engine.Category(pc.Category),
	}

	switch pc.AccrualType {
	case "accrual":
		p.AccrualType = policy.AccrualTimeBased
		per := policy.AccrualPeriod(pc.AccrualPeriod)
		if pc.AccrualPeriod == "" {
			per = policy.PerMonth
		}
		p.AccrualRate = policy.AccrualRate{Amount: engine.Days(pc.AccrualRate), Per: per}
	case "hours_worked":
		p.AccrualType = policy.AccrualHoursWorked
		p.AccrualRate = policy.AccrualRate{Amount: engine.Days(pc.AccrualRate)}
	case "", "manual":
		p.AccrualType = policy.AccrualManual
	case "unlimited":
		p.AccrualType = policy.AccrualUnlimited
	default:
		return policy.Policy{}, fmt.Errorf("config: policy %s: unknown accrual type %q", pc.ID, pc.AccrualType)
	}

	switch pc.Eligibility {
	case "from_hire_date":
		p.Eligibility = policy.EligibilityRule{Kind: policy.EligibleFromHireDate}
	case "after_probation":
		p.Eligibility = policy.EligibilityRule{Kind: policy.EligibleAfterProbation}
	case "custom":
		p.Eligibility = policy.EligibilityRule{Kind: policy.EligibleAfterCustomDays, CustomDays: pc.EligibilityCustomDays}
	case "":
		// Paid categories wait out probation; unpaid open immediately.
		switch p.Category {
		case engine.CategoryPersonal, engine.CategoryOther:
			p.Eligibility = policy.EligibilityRule{Kind: policy.EligibleFromHireDate}
		default:
			p.Eligibility = policy.EligibilityRule{Kind: policy.EligibleAfterProbation}
		}
	default:
		return policy.Policy{}, fmt.Errorf("config: policy %s: unknown eligibility %q", pc.ID, pc.Eligibility)
	}

	p.Carryover = policy.CarryoverRule{Allowed: pc.CarryoverAllowed}
	if pc.CarryoverMaxDays != nil {
		maxDays := engine.Days(*pc.CarryoverMaxDays)
		p.Carryover.MaxDays = &maxDays
	}
	if pc.NegativeBalanceLimit != nil {
		limit := engine.Days(*pc.NegativeBalanceLimit)
		p.NegativeBalanceLimit = &limit
	}
	return p, nil
}

func (ec EmployeeConfig) toEmployee() (directory.Employee, error) {
	hireDate, err := engine.ParseDate(ec.HireDate)
	if err != nil {
		return directory.Employee{}, fmt.Errorf("config: employee %s: hire_date: %w", ec.ID, err)
	}
	role := directory.Role(ec.Role)
	if ec.Role == "" {
		role = directory.RoleEmployee
	}
	return directory.Employee{
		ID:        engine.EmployeeID(ec.ID),
		Name:      ec.Name,
		Email:     ec.Email,
		Role:      role,
		HireDate:  hireDate,
		ManagerID: engine.EmployeeID(ec.ManagerID),
	}, nil
}

func parseWeekday(name string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	case "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	}
	return time.Sunday, fmt.Errorf("config: unknown weekday %q", name)
}

// holidaySet is the config-backed engine.HolidayCalendar.
type holidaySet map[engine.Date]struct{}

func (h holidaySet) IsHoliday(d engine.Date) bool {
	_, ok := h[d]
	return ok
}

// =============================================================================
// SETTINGS STORE - Runtime-editable company settings
// =============================================================================

// SettingsStore holds the live company settings. Admin updates replace the
// whole value after re-validating the notice-rule table, so readers always
// see a consistent snapshot.
type SettingsStore struct {
	mu       sync.RWMutex
	settings engine.CompanySettings
}

func NewSettingsStore(s engine.CompanySettings) *SettingsStore {
	return &SettingsStore{settings: s}
}

// Current satisfies workflow.SettingsSource.
func (s *SettingsStore) Current() engine.CompanySettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Update replaces the settings after validating the notice-rule table.
func (s *SettingsStore) Update(next engine.CompanySettings) error {
	if err := engine.ValidateNoticeRules(next.AdvanceNoticeRules); err != nil {
		return err
	}
	if next.WorkWeek.IsEmpty() {
		return fmt.Errorf("settings: work week has no working days")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = next
	return nil
}
