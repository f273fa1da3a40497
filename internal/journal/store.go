package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// FileName is the journal database name inside the state directory.
const FileName = "journal.db"

// Delivery statuses.
const (
	StatusOK      = "ok"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// Delivery is one handled event.
type Delivery struct {
	ID           int64
	RequestID    string
	EventID      string
	Source       string
	DetailType   string
	Stage        string
	ResourceKey  string
	Status       string
	FailureClass string
	Outcome      string
	Message      string
	Duration     time.Duration
	ReceivedAt   time.Time
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Stage  string
	Status string
	Limit  int
}

// Store manages journal persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal inside stateDir.
func Open(stateDir string) (*Store, error) {
	if strings.TrimSpace(stateDir) == "" {
		return nil, errors.New("journal state directory is required")
	}
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure state directory: %w", err)
	}

	dbPath := filepath.Join(stateDir, FileName)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends a delivery and returns it with its assigned ID.
func (s *Store) Record(ctx context.Context, d Delivery) (Delivery, error) {
	if d.ReceivedAt.IsZero() {
		d.ReceivedAt = time.Now()
	}
	d.ReceivedAt = d.ReceivedAt.UTC()
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO deliveries (
            request_id, event_id, source, detail_type, stage, resource_key,
            status, failure_class, outcome, message, duration_ms, received_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.RequestID,
		nullableString(d.EventID),
		d.Source,
		nullableString(d.DetailType),
		d.Stage,
		nullableString(d.ResourceKey),
		d.Status,
		nullableString(d.FailureClass),
		nullableString(d.Outcome),
		nullableString(d.Message),
		d.Duration.Milliseconds(),
		d.ReceivedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Delivery{}, fmt.Errorf("insert delivery: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Delivery{}, fmt.Errorf("last insert id: %w", err)
	}
	d.ID = id
	return d, nil
}

// List returns deliveries newest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]Delivery, error) {
	var (
		where []string
		args  []any
	)
	if filter.Stage != "" {
		where = append(where, "stage = ?")
		args = append(args, filter.Stage)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	query := `SELECT ` + deliveryColumns + ` FROM deliveries`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}

// Stats returns a count of deliveries grouped by status.
func (s *Store) Stats(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM deliveries GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("journal stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Prune removes deliveries received before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM deliveries WHERE received_at < ?`,
		cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("prune deliveries: %w", err)
	}
	return res.RowsAffected()
}

// Ping verifies the database answers queries.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("journal connection unavailable")
	}
	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.db.PingContext(connCtx)
}

const deliveryColumns = "id, request_id, event_id, source, detail_type, stage, resource_key, status, failure_class, outcome, message, duration_ms, received_at"

func scanDelivery(scanner interface{ Scan(dest ...any) error }) (Delivery, error) {
	var (
		d            Delivery
		eventID      sql.NullString
		detailType   sql.NullString
		resourceKey  sql.NullString
		failureClass sql.NullString
		outcome      sql.NullString
		message      sql.NullString
		durationMS   int64
		receivedRaw  string
	)
	if err := scanner.Scan(
		&d.ID,
		&d.RequestID,
		&eventID,
		&d.Source,
		&detailType,
		&d.Stage,
		&resourceKey,
		&d.Status,
		&failureClass,
		&outcome,
		&message,
		&durationMS,
		&receivedRaw,
	); err != nil {
		return Delivery{}, err
	}
	d.EventID = eventID.String
	d.DetailType = detailType.String
	d.ResourceKey = resourceKey.String
	d.FailureClass = failureClass.String
	d.Outcome = outcome.String
	d.Message = message.String
	d.Duration = time.Duration(durationMS) * time.Millisecond
	if received, err := time.Parse(time.RFC3339Nano, receivedRaw); err == nil {
		d.ReceivedAt = received
	}
	return d, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
