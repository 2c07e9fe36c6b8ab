package ticket

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/marti95432/discordbot/pkg/protocol"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database and runs migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ticket store: open: %w", err)
	}

	// Enable WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("ticket store: wal: %w", err)
	}

	return open(db)
}

// NewMemoryStore opens a private in-memory ledger that lives as long as the
// returned store. Nothing is written to disk.
func NewMemoryStore() (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:ledger-%s?mode=memory&cache=shared", uuid.NewString())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("ticket store: open memory: %w", err)
	}
	// The database vanishes with its last connection.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)
	return open(db)
}

func open(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS tickets (
			channel_id       TEXT PRIMARY KEY,
			name             TEXT NOT NULL,
			opener_id        TEXT NOT NULL,
			opener_tag       TEXT NOT NULL DEFAULT '',
			path             TEXT NOT NULL DEFAULT '',
			status           TEXT NOT NULL DEFAULT 'open',
			opened_at        TEXT NOT NULL,
			closed_at        TEXT,
			closed_by        TEXT NOT NULL DEFAULT '',
			transcript_lines INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status);
		CREATE INDEX IF NOT EXISTS idx_tickets_opener ON tickets(opener_id);
	`)
	if err != nil {
		return fmt.Errorf("ticket store: migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Record(t *protocol.Ticket) error {
	status := t.Status
	if status == "" {
		status = protocol.TicketOpen
	}
	_, err := s.db.Exec(`
		INSERT INTO tickets (channel_id, name, opener_id, opener_tag, path, status, opened_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, t.ChannelID, t.Name, t.OpenerID, t.OpenerTag, t.Path, string(status), formatTime(t.OpenedAt))
	if err != nil {
		return fmt.Errorf("ticket store: record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(channelID string) (*protocol.Ticket, error) {
	row := s.db.QueryRow(`SELECT `+columns+` FROM tickets WHERE channel_id = ?`, channelID)

	t, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("ticket %q: %w", channelID, ErrNotFound)
		}
		return nil, fmt.Errorf("ticket store: get: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) List(filter Filter) ([]*protocol.Ticket, error) {
	where, args := filter.where()
	query := "SELECT " + columns + " FROM tickets" + where + " ORDER BY opened_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("ticket store: list: %w", err)
	}
	defer rows.Close()

	var tickets []*protocol.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("ticket store: list scan: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

func (s *SQLiteStore) Count(filter Filter) (int, error) {
	where, args := filter.where()
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM tickets"+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ticket store: count: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) MarkClosed(channelID, closedBy string, transcriptLines int, at time.Time) error {
	result, err := s.db.Exec(`
		UPDATE tickets SET status = 'closed', closed_by = ?, transcript_lines = ?, closed_at = ?
		WHERE channel_id = ? AND status != 'closed'
	`, closedBy, transcriptLines, formatTime(at), channelID)
	if err != nil {
		return fmt.Errorf("ticket store: close: %w", err)
	}
	if n, _ := result.RowsAffected(); n > 0 {
		return nil
	}
	// Either unknown or already closed.
	if _, err := s.Get(channelID); err != nil {
		return err
	}
	return nil
}

// Close releases the database. An in-memory ledger is discarded.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection (for testing or direct access).
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// --- helpers ---

const columns = "channel_id, name, opener_id, opener_tag, path, status, opened_at, closed_at, closed_by, transcript_lines"

func (f Filter) where() (string, []any) {
	var conds []string
	var args []any
	if f.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, string(*f.Status))
	}
	if f.OpenerID != "" {
		conds = append(conds, "opener_id = ?")
		args = append(args, f.OpenerID)
	}
	if f.Path != "" {
		conds = append(conds, "path = ?")
		args = append(args, f.Path)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// timeLayout is fixed-width so lexical order is chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanTicket(s scannable) (*protocol.Ticket, error) {
	var t protocol.Ticket
	var status, openedAt string
	var closedAt *string

	err := s.Scan(&t.ChannelID, &t.Name, &t.OpenerID, &t.OpenerTag, &t.Path, &status,
		&openedAt, &closedAt, &t.ClosedBy, &t.TranscriptLines)
	if err != nil {
		return nil, err
	}

	t.Status = protocol.TicketStatus(status)
	t.OpenedAt, _ = time.Parse(timeLayout, openedAt)
	if closedAt != nil {
		ct, _ := time.Parse(timeLayout, *closedAt)
		t.ClosedAt = &ct
	}
	return &t, nil
}
