/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements ledger.Store and workflow.RequestStore using SQLite. In
  production, the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

APPEND-ONLY ENFORCEMENT:
  The ledger_entries table is append-only:
  - No UPDATE statements on ledger_entries
  - No DELETE statements on ledger_entries
  - Corrections are new entries with the opposite sign

KEY TABLES:
  balances:       Current available amount per employee+policy
  ledger_entries: Immutable record of every balance movement
  requests:       Time-off requests and their decision stamps

ORDERING:
  Entries and requests rely on rowid for insertion order; listings read
  newest first, which is the display order.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/timeoff.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := ledger.NewService(store)

SEE ALSO:
  - ledger: Store interface and the movement service
  - workflow: RequestStore interface
  - store/memory: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/meridian/timeoff-engine/engine"
	"github.com/meridian/timeoff-engine/ledger"
	"github.com/meridian/timeoff-engine/workflow"
)

// Store implements ledger.Store and workflow.RequestStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Balances (current state; history lives in ledger_entries)
	CREATE TABLE IF NOT EXISTS balances (
		employee_id TEXT NOT NULL,
		policy_id TEXT NOT NULL,
		category TEXT NOT NULL,
		available TEXT NOT NULL,
		unlimited BOOLEAN NOT NULL DEFAULT FALSE,
		version INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (employee_id, policy_id)
	);

	CREATE INDEX IF NOT EXISTS idx_balances_employee
		ON balances(employee_id);

	-- Ledger entries (append-only)
	CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		policy_id TEXT NOT NULL,
		effective_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		delta TEXT NOT NULL,
		delta_unit TEXT NOT NULL,
		resulting TEXT NOT NULL,
		kind TEXT NOT NULL,
		actor TEXT NOT NULL,
		reason TEXT NOT NULL,
		reference_id TEXT,
		idempotency_key TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_entries_employee_policy
		ON ledger_entries(employee_id, policy_id);
	CREATE INDEX IF NOT EXISTS idx_entries_reference
		ON ledger_entries(reference_id) WHERE reference_id IS NOT NULL;
	CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_idempotency
		ON ledger_entries(employee_id, policy_id, idempotency_key)
		WHERE idempotency_key IS NOT NULL;

	-- Requests (approval workflow)
	CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		policy_id TEXT NOT NULL,
		category TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		mode TEXT NOT NULL,
		params_json TEXT NOT NULL,
		note TEXT,
		working_days TEXT NOT NULL,
		total_hours TEXT NOT NULL,
		notice_json TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		submitted_at TEXT NOT NULL,
		decided_by TEXT,
		decided_at TEXT,
		denial_reason TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_requests_employee
		ON requests(employee_id);
	CREATE INDEX IF NOT EXISTS idx_requests_status
		ON requests(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LEDGER STORE (ledger.Store interface)
// =============================================================================

// Balance returns the balance for one employee+policy.
func (s *Store) Balance(ctx context.Context, employeeID engine.EmployeeID, policyID engine.PolicyID) (engine.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		b         engine.Balance
		available string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT employee_id, policy_id, category, available, unlimited, version FROM balances WHERE employee_id = ? AND policy_id = ?",
		string(employeeID), string(policyID),
	).Scan(&b.EmployeeID, &b.PolicyID, &b.Category, &available, &b.Unlimited, &b.Version)

	if err == sql.ErrNoRows {
		return engine.Balance{}, ledger.ErrBalanceNotFound
	}
	if err != nil {
		return engine.Balance{}, fmt.Errorf("failed to query balance: %w", err)
	}

	b.Available, err = parseAmount(available, engine.UnitDays)
	if err != nil {
		return engine.Balance{}, err
	}
	return b, nil
}

// SaveBalance inserts or overwrites a balance.
func (s *Store) SaveBalance(ctx context.Context, balance engine.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO balances (employee_id, policy_id, category, available, unlimited, version)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, policy_id) DO UPDATE SET
			category = excluded.category,
			available = excluded.available,
			unlimited = excluded.unlimited,
			version = excluded.version
	`

	_, err := s.db.ExecContext(ctx, query,
		string(balance.EmployeeID),
		string(balance.PolicyID),
		string(balance.Category),
		balance.Available.Value.String(),
		balance.Unlimited,
		balance.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to save balance: %w", err)
	}
	return nil
}

// AppendEntry adds one entry to the ledger. There is no update or delete.
func (s *Store) AppendEntry(ctx context.Context, entry ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO ledger_entries
		(id, employee_id, policy_id, effective_at, created_at, delta, delta_unit, resulting, kind, actor, reason, reference_id, idempotency_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		string(entry.ID),
		string(entry.EmployeeID),
		string(entry.PolicyID),
		entry.EffectiveAt.String(),
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
		entry.Delta.Value.String(),
		string(entry.Delta.Unit),
		entry.Resulting.Value.String(),
		string(entry.Kind),
		entry.Actor,
		entry.Reason,
		nullString(entry.ReferenceID),
		nullString(entry.IdempotencyKey),
	)
	if err != nil {
		return fmt.Errorf("failed to append entry: %w", err)
	}
	return nil
}

// Entries returns the ledger for one balance, newest first.
func (s *Store) Entries(ctx context.Context, employeeID engine.EmployeeID, policyID engine.PolicyID) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, employee_id, policy_id, effective_at, created_at, delta, delta_unit, resulting, kind, actor, reason, reference_id, idempotency_key
		FROM ledger_entries
		WHERE employee_id = ? AND policy_id = ?
		ORDER BY rowid DESC
	`

	rows, err := s.db.QueryContext(ctx, query, string(employeeID), string(policyID))
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Balances lists every balance held by one employee, ordered by policy.
func (s *Store) Balances(ctx context.Context, employeeID engine.EmployeeID) ([]engine.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT employee_id, policy_id, category, available, unlimited, version FROM balances WHERE employee_id = ? ORDER BY policy_id",
		string(employeeID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query balances: %w", err)
	}
	defer rows.Close()

	var balances []engine.Balance
	for rows.Next() {
		var (
			b         engine.Balance
			available string
		)
		if err := rows.Scan(&b.EmployeeID, &b.PolicyID, &b.Category, &available, &b.Unlimited, &b.Version); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		b.Available, err = parseAmount(available, engine.UnitDays)
		if err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

func scanEntry(rows *sql.Rows) (ledger.Entry, error) {
	var (
		entry          ledger.Entry
		effectiveAt    string
		createdAt      string
		delta          string
		deltaUnit      string
		resulting      string
		referenceID    sql.NullString
		idempotencyKey sql.NullString
	)

	err := rows.Scan(
		&entry.ID, &entry.EmployeeID, &entry.PolicyID,
		&effectiveAt, &createdAt, &delta, &deltaUnit, &resulting,
		&entry.Kind, &entry.Actor, &entry.Reason, &referenceID, &idempotencyKey,
	)
	if err != nil {
		return entry, fmt.Errorf("failed to scan entry: %w", err)
	}

	entry.EffectiveAt, err = engine.ParseDate(effectiveAt)
	if err != nil {
		return entry, fmt.Errorf("failed to parse effective_at: %w", err)
	}
	entry.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)

	unit := engine.Unit(deltaUnit)
	if entry.Delta, err = parseAmount(delta, unit); err != nil {
		return entry, err
	}
	if entry.Resulting, err = parseAmount(resulting, unit); err != nil {
		return entry, err
	}
	entry.ReferenceID = referenceID.String
	entry.IdempotencyKey = idempotencyKey.String

	return entry, nil
}

// =============================================================================
// REQUEST STORE (workflow.RequestStore interface)
// =============================================================================

// paramsRecord serializes the partial-day overrides into one JSON column.
type paramsRecord struct {
	FirstDayHours   string `json:"firstDayHours"`
	LastDayHours    string `json:"lastDayHours"`
	SameHoursPerDay string `json:"sameHoursPerDay"`
}

// noticeRecord serializes the submit-time notice evaluation.
type noticeRecord struct {
	Compliant          bool   `json:"compliant"`
	RequiredNoticeDays int    `json:"requiredNoticeDays"`
	ActualNoticeDays   int    `json:"actualNoticeDays"`
	MatchedBucketLabel string `json:"matchedBucketLabel,omitempty"`
	Exempt             bool   `json:"exempt,omitempty"`
}

// SaveRequest inserts or overwrites a request by ID.
func (s *Store) SaveRequest(ctx context.Context, req workflow.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	paramsJSON, err := json.Marshal(paramsRecord{
		FirstDayHours:   req.Params.FirstDayHours.Value.String(),
		LastDayHours:    req.Params.LastDayHours.Value.String(),
		SameHoursPerDay: req.Params.SameHoursPerDay.Value.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}
	noticeJSON, err := json.Marshal(noticeRecord{
		Compliant:          req.Notice.Compliant,
		RequiredNoticeDays: req.Notice.RequiredNoticeDays,
		ActualNoticeDays:   req.Notice.ActualNoticeDays,
		MatchedBucketLabel: req.Notice.MatchedBucketLabel,
		Exempt:             req.Notice.Exempt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notice: %w", err)
	}

	var decidedAt *string
	if req.DecidedAt != nil {
		t := req.DecidedAt.UTC().Format(time.RFC3339Nano)
		decidedAt = &t
	}

	query := `
		INSERT INTO requests
		(id, employee_id, policy_id, category, start_date, end_date, mode, params_json, note,
		 working_days, total_hours, notice_json, status, submitted_at, decided_by, decided_at, denial_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			decided_by = excluded.decided_by,
			decided_at = excluded.decided_at,
			denial_reason = excluded.denial_reason
	`

	_, err = s.db.ExecContext(ctx, query,
		string(req.ID),
		string(req.EmployeeID),
		string(req.PolicyID),
		string(req.Category),
		req.StartDate.String(),
		req.EndDate.String(),
		string(req.Mode),
		string(paramsJSON),
		req.Note,
		req.WorkingDays.Value.String(),
		req.TotalHours.Value.String(),
		string(noticeJSON),
		string(req.Status),
		req.SubmittedAt.UTC().Format(time.RFC3339Nano),
		req.DecidedBy,
		decidedAt,
		req.DenialReason,
	)
	if err != nil {
		return fmt.Errorf("failed to save request: %w", err)
	}
	return nil
}

// Request retrieves one request by ID.
func (s *Store) Request(ctx context.Context, id workflow.RequestID) (workflow.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := requestSelect + " WHERE id = ?"
	rows, err := s.db.QueryContext(ctx, query, string(id))
	if err != nil {
		return workflow.Request{}, fmt.Errorf("failed to query request: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return workflow.Request{}, err
		}
		return workflow.Request{}, workflow.ErrRequestNotFound
	}
	return scanRequest(rows)
}

// Requests returns matching requests, newest submission first.
func (s *Store) Requests(ctx context.Context, filter workflow.Filter) ([]workflow.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := requestSelect
	var (
		conds []string
		args  []any
	)
	if filter.EmployeeID != nil {
		conds = append(conds, "employee_id = ?")
		args = append(args, string(*filter.EmployeeID))
	}
	if filter.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, string(*filter.Status))
	}
	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY rowid DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var requests []workflow.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

const requestSelect = `
	SELECT id, employee_id, policy_id, category, start_date, end_date, mode, params_json, note,
	       working_days, total_hours, notice_json, status, submitted_at, decided_by, decided_at, denial_reason
	FROM requests`

func scanRequest(rows *sql.Rows) (workflow.Request, error) {
	var (
		req          workflow.Request
		startDate    string
		endDate      string
		paramsJSON   string
		note         sql.NullString
		workingDays  string
		totalHours   string
		noticeJSON   string
		submittedAt  string
		decidedBy    sql.NullString
		decidedAt    sql.NullString
		denialReason sql.NullString
	)

	err := rows.Scan(
		&req.ID, &req.EmployeeID, &req.PolicyID, &req.Category,
		&startDate, &endDate, &req.Mode, &paramsJSON, &note,
		&workingDays, &totalHours, &noticeJSON, &req.Status,
		&submittedAt, &decidedBy, &decidedAt, &denialReason,
	)
	if err != nil {
		return req, fmt.Errorf("failed to scan request: %w", err)
	}

	if req.StartDate, err = engine.ParseDate(startDate); err != nil {
		return req, fmt.Errorf("failed to parse start_date: %w", err)
	}
	if req.EndDate, err = engine.ParseDate(endDate); err != nil {
		return req, fmt.Errorf("failed to parse end_date: %w", err)
	}

	var params paramsRecord
	if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
		return req, fmt.Errorf("failed to unmarshal params: %w", err)
	}
	if req.Params.FirstDayHours, err = parseAmount(params.FirstDayHours, engine.UnitHours); err != nil {
		return req, err
	}
	if req.Params.LastDayHours, err = parseAmount(params.LastDayHours, engine.UnitHours); err != nil {
		return req, err
	}
	if req.Params.SameHoursPerDay, err = parseAmount(params.SameHoursPerDay, engine.UnitHours); err != nil {
		return req, err
	}

	var notice noticeRecord
	if err := json.Unmarshal([]byte(noticeJSON), &notice); err != nil {
		return req, fmt.Errorf("failed to unmarshal notice: %w", err)
	}
	req.Notice = engine.NoticeResult{
		Compliant:          notice.Compliant,
		RequiredNoticeDays: notice.RequiredNoticeDays,
		ActualNoticeDays:   notice.ActualNoticeDays,
		MatchedBucketLabel: notice.MatchedBucketLabel,
		Exempt:             notice.Exempt,
	}

	if req.WorkingDays, err = parseAmount(workingDays, engine.UnitDays); err != nil {
		return req, err
	}
	if req.TotalHours, err = parseAmount(totalHours, engine.UnitHours); err != nil {
		return req, err
	}

	req.Note = note.String
	req.SubmittedAt, _ = time.Parse(time.RFC3339Nano, submittedAt)
	req.DecidedBy = decidedBy.String
	req.DenialReason = denialReason.String
	if decidedAt.Valid {
		t, _ := time.Parse(time.RFC3339Nano, decidedAt.String)
		req.DecidedAt = &t
	}

	return req, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"ledger_entries", "balances", "requests"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseAmount(value string, unit engine.Unit) (engine.Amount, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return engine.Amount{}, fmt.Errorf("failed to parse amount %q: %w", value, err)
	}
	return engine.Amount{Value: d, Unit: unit}, nil
}
