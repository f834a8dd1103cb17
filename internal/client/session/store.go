package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spec-kit/blog-service/internal/domain"

	_ "modernc.org/sqlite"
)

const (
	keyToken    = "token"
	keyIdentity = "identity"

	schema = `CREATE TABLE IF NOT EXISTS metadata (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);`
)

// ErrCorrupt is returned by Load after a partial or unparsable session was
// found and purged.
var ErrCorrupt = errors.New("stored session is corrupt")

// Snapshot is what survives a restart.
type Snapshot struct {
	Token    string
	Identity domain.PublicIdentity
}

// Storage persists the token and identity together or not at all.
type Storage interface {
	// Load returns (nil, nil) when nothing is stored.
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
	Clear(ctx context.Context) error
}

// SQLiteStorage keeps the session in a key/value metadata table.
type SQLiteStorage struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the session database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	// A single connection keeps ":memory:" databases stable.
	db.SetMaxOpenConns(1)

	s := NewSQLiteStorage(db)
	if err := s.Init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func NewSQLiteStorage(db *sql.DB) *SQLiteStorage {
	return &SQLiteStorage{db: db}
}

// Init creates the metadata table if needed.
func (s *SQLiteStorage) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create metadata table: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) Load(ctx context.Context) (*Snapshot, error) {
	values, err := s.entries(ctx)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}

	snap, ok := parseSnapshot(values)
	if !ok {
		if err := s.Clear(ctx); err != nil {
			return nil, errors.Join(ErrCorrupt, err)
		}
		return nil, ErrCorrupt
	}
	return snap, nil
}

func (s *SQLiteStorage) entries(ctx context.Context) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM metadata WHERE key IN (?, ?)`, keyToken, keyIdentity)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	defer rows.Close()

	values := make(map[string][]byte, 2)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}
	return values, nil
}

func parseSnapshot(values map[string][]byte) (*Snapshot, bool) {
	token, hasToken := values[keyToken]
	rawIdentity, hasIdentity := values[keyIdentity]
	if !hasToken || !hasIdentity || len(token) == 0 {
		return nil, false
	}
	var identity domain.PublicIdentity
	if err := json.Unmarshal(rawIdentity, &identity); err != nil || identity.ID == "" {
		return nil, false
	}
	return &Snapshot{Token: string(token), Identity: identity}, true
}

// Save writes both entries in one transaction.
func (s *SQLiteStorage) Save(ctx context.Context, snap Snapshot) error {
	if snap.Token == "" || snap.Identity.ID == "" {
		return errors.New("refusing to store an incomplete session")
	}
	rawIdentity, err := json.Marshal(snap.Identity)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin session write: %w", err)
	}
	const upsert = `INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	for _, kv := range []struct {
		key   string
		value []byte
	}{
		{keyToken, []byte(snap.Token)},
		{keyIdentity, rawIdentity},
	} {
		if _, err := tx.ExecContext(ctx, upsert, kv.key, kv.value); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to set metadata[%s]: %w", kv.key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM metadata WHERE key IN (?, ?)`, keyToken, keyIdentity); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
