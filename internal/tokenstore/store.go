package tokenstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ServiceName identifies the Pocket Casts credential row.
const ServiceName = "pocketcasts"

//go:embed schema.sql
var schemaSQL string

// Credential is a bearer token with its absolute expiry.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// Present reports whether both the token and its expiry are set.
func (c Credential) Present() bool {
	return c.Token != "" && !c.ExpiresAt.IsZero()
}

// Valid reports whether the credential is present and expires after now.
func (c Credential) Valid(now time.Time) bool {
	return c.Present() && c.ExpiresAt.After(now)
}

// Store manages credential persistence backed by SQLite.
type Store struct {
	db      *sql.DB
	path    string
	service string
}

// Open initializes or connects to the token database at path, creating the
// parent directory and the auth table when absent.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("token store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure token store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
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

	store := &Store{db: db, path: path, service: ServiceName}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	return retryOnBusy(ctx, func() error {
		if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		return nil
	})
}

// Load returns the stored credential. A missing row, or a row with either
// field unset, yields a zero Credential and no error.
func (s *Store) Load(ctx context.Context) (Credential, error) {
	ctx = ensureContext(ctx)
	var (
		token   sql.NullString
		expires sql.NullInt64
	)
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			"SELECT token, expires FROM auth WHERE name = ? LIMIT 1", s.service,
		).Scan(&token, &expires)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Credential{}, nil
	}
	if err != nil {
		return Credential{}, fmt.Errorf("read credential: %w", err)
	}
	if !token.Valid || token.String == "" || !expires.Valid || expires.Int64 <= 0 {
		return Credential{}, nil
	}
	return Credential{Token: token.String, ExpiresAt: time.Unix(expires.Int64, 0)}, nil
}

// Replace deletes every stored credential and inserts cred in a single
// transaction.
func (s *Store) Replace(ctx context.Context, cred Credential) error {
	if !cred.Present() {
		return errors.New("replace credential: token and expiry are required")
	}
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin credential tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, "DELETE FROM auth"); err != nil {
			return fmt.Errorf("delete credentials: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO auth (name, token, expires) VALUES (?, ?, ?)",
			s.service, cred.Token, cred.ExpiresAt.Unix(),
		); err != nil {
			return fmt.Errorf("insert credential: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit credential: %w", err)
		}
		return nil
	})
}

// Clear removes every stored credential.
func (s *Store) Clear(ctx context.Context) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM auth"); err != nil {
			return fmt.Errorf("clear credentials: %w", err)
		}
		return nil
	})
}
