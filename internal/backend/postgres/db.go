// Package postgres implements service.Backend and identity.Accounts on
// PostgreSQL. Task documents live in a jsonb column and changes are
// announced with LISTEN/NOTIFY.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"sync"

	_ "github.com/lib/pq"

	"quicktasks/internal/service"
)

// notifyChannel carries the owner id of every changed task.
const notifyChannel = "task_changes"

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id             text PRIMARY KEY,
	email          text NOT NULL UNIQUE,
	password_hash  text NOT NULL DEFAULT '',
	google_subject text UNIQUE,
	disabled       boolean NOT NULL DEFAULT false,
	created_at     timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS login_failures (
	email     text NOT NULL,
	failed_at timestamptz NOT NULL
);

CREATE INDEX IF NOT EXISTS login_failures_email_idx ON login_failures (email, failed_at);

CREATE TABLE IF NOT EXISTS tasks (
	id         text PRIMARY KEY,
	user_id    text NOT NULL,
	doc        jsonb NOT NULL DEFAULT '{}'::jsonb,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS tasks_owner_idx ON tasks (user_id, created_at, id);

CREATE OR REPLACE FUNCTION quicktasks_notify_task_change() RETURNS trigger AS $$
BEGIN
	IF TG_OP = 'DELETE' THEN
		PERFORM pg_notify('task_changes', OLD.user_id);
	ELSE
		PERFORM pg_notify('task_changes', NEW.user_id);
	END IF;
	RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DO $$
BEGIN
	IF NOT EXISTS (
		SELECT 1 FROM pg_trigger
		WHERE tgname = 'tasks_notify' AND tgrelid = 'tasks'::regclass
	) THEN
		CREATE TRIGGER tasks_notify
			AFTER INSERT OR UPDATE OR DELETE ON tasks
			FOR EACH ROW EXECUTE FUNCTION quicktasks_notify_task_change();
	END IF;
END;
$$;
`

// migrateLockID keys the advisory lock that serializes concurrent Migrate
// calls.
const migrateLockID = 73162024

// Connect opens a connection pool and checks it with a ping.
func Connect(ctx context.Context, connString string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Store is the PostgreSQL task store and live subscription channel.
type Store struct {
	mu      sync.RWMutex
	db      *sql.DB
	connStr string
	logger  *log.Logger
}

// New wraps an open database. connString is used by subscriptions, which
// hold their own listener connection. A nil logger discards output.
func New(db *sql.DB, connString string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Store{db: db, connStr: connString, logger: logger}
}

// Open connects to connString and returns a Store.
func Open(ctx context.Context, connString string, logger *log.Logger) (*Store, error) {
	db, err := Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return New(db, connString, logger), nil
}

// Migrate creates the tables, indexes and notify trigger. It is safe to
// run repeatedly and from several processes at once: the schema is
// applied in one transaction holding an advisory lock, and an existing
// trigger is left alone.
func (s *Store) Migrate(ctx context.Context) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, migrateLockID); err != nil {
		return fmt.Errorf("migrate: lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close releases the pool. Later calls fail with ErrStoreUnavailable.
func (s *Store) Close() error {
	s.mu.Lock()
	db := s.db
	s.db = nil
	s.mu.Unlock()
	if db == nil {
		return nil
	}
	return db.Close()
}

func (s *Store) handle() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, service.ErrStoreUnavailable
	}
	return s.db, nil
}
