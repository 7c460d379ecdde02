package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/pairgen/internal/orchestrator"
)

const (
	// defaultLimit is the page size when none is given.
	defaultLimit = 50

	// maxLimit caps the page size.
	maxLimit = 200

	// timeLayout is fixed-width so created_at sorts lexically.
	timeLayout = "2006-01-02T15:04:05.000000Z07:00"
)

// Entry is one row of operation history.
type Entry struct {
	ID          string    `json:"id"`
	Operation   string    `json:"operation"`
	Identity    string    `json:"identity"`
	Transport   string    `json:"transport"`
	Success     bool      `json:"success"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	Message     string    `json:"message,omitempty"`
	Destination string    `json:"destination,omitempty"`
	Verified    bool      `json:"verified"`
	DurationMS  int64     `json:"duration_ms"`
	Source      string    `json:"source"`
	CreatedAt   time.Time `json:"created_at"`
}

// Filter controls which entries List returns.
type Filter struct {
	Operation string // optional: export, wifi-test, wifi-enable, regenerate
	Identity  string // optional: device identity
	Success   *bool  // optional: only successes or only failures
	Limit     int    // default 50, max 200
	Offset    int    // pagination offset
}

// ListResult contains a page of entries.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository defines the interface for operation history.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores operation history in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new history repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts an entry. ID and CreatedAt are generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = "op-" + uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO operation_log
		 (id, operation, identity, transport, success, error_kind, message, destination, verified, duration_ms, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Operation, e.Identity, e.Transport,
		boolToInt(e.Success),
		nullableString(e.ErrorKind), nullableString(e.Message), nullableString(e.Destination),
		boolToInt(e.Verified),
		e.DurationMS, e.Source,
		e.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting operation log: %w", err)
	}
	return nil
}

// Record stores an orchestrator event. It satisfies orchestrator.Recorder.
func (r *SQLiteRepository) Record(ctx context.Context, ev orchestrator.Event) error {
	return r.Create(ctx, EntryFromEvent(ev))
}

// EntryFromEvent converts an orchestrator event into a history entry.
func EntryFromEvent(ev orchestrator.Event) *Entry {
	return &Entry{
		Operation:   string(ev.Operation),
		Identity:    ev.Identity,
		Transport:   ev.Transport,
		Success:     ev.Success,
		ErrorKind:   ev.ErrorKind,
		Message:     ev.Error,
		Destination: ev.Destination,
		Verified:    ev.Verified,
		DurationMS:  ev.Duration.Milliseconds(),
		Source:      ev.Source,
		CreatedAt:   ev.At,
	}
}

// List returns entries matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any

	if filter.Operation != "" {
		conditions = append(conditions, "operation = ?")
		args = append(args, filter.Operation)
	}
	if filter.Identity != "" {
		conditions = append(conditions, "identity = ?")
		args = append(args, filter.Identity)
	}
	if filter.Success != nil {
		conditions = append(conditions, "success = ?")
		args = append(args, boolToInt(*filter.Success))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM operation_log %s", where) //nolint:gosec // WHERE built from parameterised conditions, not user input
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting operation log: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		`SELECT id, operation, identity, transport, success, error_kind, message, destination, verified, duration_ms, source, created_at
		 FROM operation_log %s ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying operation log: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var success, verified int
		var errorKind, message, destination sql.NullString
		var createdAt string

		if err := rows.Scan(&e.ID, &e.Operation, &e.Identity, &e.Transport, &success,
			&errorKind, &message, &destination, &verified, &e.DurationMS, &e.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning operation log: %w", err)
		}

		e.Success = success != 0
		e.Verified = verified != 0
		e.ErrorKind = errorKind.String
		e.Message = message.String
		e.Destination = destination.String

		t, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			t, err = time.Parse(time.RFC3339, createdAt)
			if err != nil {
				return nil, fmt.Errorf("parsing operation log timestamp %q: %w", createdAt, err)
			}
		}
		e.CreatedAt = t

		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating operation log: %w", err)
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

// nullableString returns nil for empty strings so optional TEXT columns
// store NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ orchestrator.Recorder = (*SQLiteRepository)(nil)
