package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Kind classifies a journal entry.
type Kind string

const (
	KindEnrollment  Kind = "enrollment"
	KindMaintenance Kind = "maintenance"
)

// Entry is one journal row.
type Entry struct {
	ID        int64           `json:"id"`
	RunID     string          `json:"run_id"`
	Kind      Kind            `json:"kind"`
	CreatedAt time.Time       `json:"created_at"`
	Outcome   string          `json:"outcome"`
	Summary   string          `json:"summary"`
	Failed    bool            `json:"failed"`
	Error     string          `json:"error,omitempty"`
	Detail    json.RawMessage `json:"detail,omitempty"`
}

// Store is the SQLite-backed journal.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open creates or opens the journal at path. Parent directories are created.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("open history: path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer at a time keeps pragmas and the schema check on a single
	// connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the journal file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type record struct {
	kind    Kind
	outcome string
	summary string
	failed  bool
	err     error
	detail  any
}

func (s *Store) insert(ctx context.Context, r record) (Entry, error) {
	detail, err := json.Marshal(r.detail)
	if err != nil {
		return Entry{}, fmt.Errorf("marshal detail: %w", err)
	}
	entry := Entry{
		RunID:     uuid.NewString(),
		Kind:      r.kind,
		CreatedAt: s.now().UTC(),
		Outcome:   r.outcome,
		Summary:   r.summary,
		Failed:    r.failed || r.err != nil,
		Detail:    detail,
	}
	if r.err != nil {
		entry.Error = r.err.Error()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (run_id, kind, created_at, outcome, summary, failed, error, detail_json)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		string(entry.Kind),
		entry.CreatedAt.Format(time.RFC3339Nano),
		entry.Outcome,
		entry.Summary,
		boolToInt(entry.Failed),
		nullableString(entry.Error),
		string(detail),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("insert %s entry: %w", r.kind, err)
	}
	if entry.ID, err = res.LastInsertId(); err != nil {
		return Entry{}, fmt.Errorf("last insert id: %w", err)
	}
	return entry, nil
}

// List returns up to limit entries, newest first. A limit of zero or less
// returns every entry.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, run_id, kind, created_at, outcome, summary, failed, error, detail_json
              FROM entries ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			kind      string
			createdAt string
			failed    int
			errText   sql.NullString
			detail    string
		)
		if err := rows.Scan(&e.ID, &e.RunID, &kind, &createdAt, &e.Outcome, &e.Summary, &failed, &errText, &detail); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Kind = Kind(kind)
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at of entry %d: %w", e.ID, err)
		}
		e.Failed = failed != 0
		e.Error = errText.String
		e.Detail = json.RawMessage(detail)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
