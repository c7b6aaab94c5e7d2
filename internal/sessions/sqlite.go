package sessions

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS sessions (
	token TEXT PRIMARY KEY,
	data BLOB NOT NULL,
	expiry REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`

const sessionKeyUserID = "user_id"

// noExpiry is the deadline committed for every session. sqlite3store filters
// on expiry, so sessions are written far enough ahead to never lapse.
var noExpiry = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// SQLiteStore persists sessions in the application database through scs's
// sqlite3store. Row data is the scs gob encoding of {"user_id": id}.
type SQLiteStore struct {
	db    *sql.DB
	store *sqlite3store.SQLite3Store
	codec scs.Codec
	newID func() string
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates the sessions table if needed. Expired-row cleanup
// is disabled since rows never expire.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("create sessions table: %w", err)
	}
	return &SQLiteStore{
		db:    db,
		store: sqlite3store.NewWithCleanupInterval(db, 0),
		codec: scs.GobCodec{},
		newID: newID,
	}, nil
}

func (s *SQLiteStore) Create(ctx context.Context, userID uint) (string, error) {
	data, err := s.codec.Encode(noExpiry, map[string]interface{}{sessionKeyUserID: uint64(userID)})
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	for i := 0; i < maxCreateAttempts; i++ {
		id := s.newID()
		_, exists, err := s.store.Find(id)
		if err != nil {
			return "", fmt.Errorf("check session id: %w", err)
		}
		if exists {
			continue
		}
		if err := s.store.Commit(id, data, noExpiry); err != nil {
			return "", fmt.Errorf("store session: %w", err)
		}
		return id, nil
	}
	return "", ErrIDCollision
}

func (s *SQLiteStore) Resolve(ctx context.Context, id string) (uint, bool, error) {
	if id == "" {
		return 0, false, nil
	}
	data, found, err := s.store.Find(id)
	if err != nil {
		return 0, false, fmt.Errorf("load session: %w", err)
	}
	if !found {
		return 0, false, nil
	}
	_, values, err := s.codec.Decode(data)
	if err != nil {
		return 0, false, fmt.Errorf("decode session: %w", err)
	}
	userID, ok := values[sessionKeyUserID].(uint64)
	if !ok {
		return 0, false, fmt.Errorf("corrupt session %q: missing user id", id)
	}
	return uint(userID), true, nil
}

func (s *SQLiteStore) Revoke(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.store.Delete(id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Ping checks the database connection. Used by the health endpoint.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
