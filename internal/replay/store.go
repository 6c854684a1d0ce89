package replay

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// ErrMiss is returned when replay mode has no stored response for a call.
var ErrMiss = errors.New("no recorded generation")

// Store persists generation transcripts keyed by (instruction, prompt).
type Store struct {
	db    *sqlx.DB
	mu    sync.Mutex
	clock func() time.Time
}

type Entry struct {
	Key        string `db:"key"`
	Model      string `db:"model"`
	System     string `db:"system"`
	Prompt     string `db:"prompt"`
	Response   string `db:"response"`
	CreatedAt  string `db:"created_at"`
	LastUsedAt string `db:"last_used_at"`
	Hits       int    `db:"hits"`
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS generations (
	key          TEXT PRIMARY KEY,
	model        TEXT NOT NULL DEFAULT '',
	system       TEXT NOT NULL,
	prompt       TEXT NOT NULL,
	response     TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	last_used_at TEXT NOT NULL DEFAULT '',
	hits         INTEGER NOT NULL DEFAULT 0
);
`

func Open(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, clock: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Key identifies a call by its instruction and prompt.
func Key(system, prompt string) string {
	sum := sha256.Sum256([]byte(system + "\x00" + prompt))
	return hex.EncodeToString(sum[:])
}

func (s *Store) Lookup(ctx context.Context, system, prompt string) (string, error) {
	key := Key(system, prompt)

	s.mu.Lock()
	defer s.mu.Unlock()

	var response string
	err := s.db.GetContext(ctx, &response, `SELECT response FROM generations WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: key=%s", ErrMiss, key[:12])
	}
	if err != nil {
		return "", fmt.Errorf("lookup generation: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE generations SET hits = hits + 1, last_used_at = ? WHERE key = ?`,
		s.clock().UTC().Format(time.RFC3339Nano), key); err != nil {
		return "", fmt.Errorf("touch generation: %w", err)
	}
	return response, nil
}

func (s *Store) Save(ctx context.Context, model, system, prompt, response string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO generations (key, model, system, prompt, response, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		Key(system, prompt), model, system, prompt, response, s.clock().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save generation: %w", err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM generations`); err != nil {
		return 0, err
	}
	return n, nil
}

// Entries returns stored generations, oldest first.
func (s *Store) Entries(ctx context.Context) ([]Entry, error) {
	var out []Entry
	if err := s.db.SelectContext(ctx, &out, `SELECT key, model, system, prompt, response, created_at, last_used_at, hits
		FROM generations ORDER BY created_at, key`); err != nil {
		return nil, err
	}
	return out, nil
}
