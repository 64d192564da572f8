// internal/storage/sqlite/sqlite.go
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"offer-tracker/internal/migrations"
	"offer-tracker/internal/storage"

	"github.com/mattn/go-sqlite3"
)

// Storage is the local single-file store. Writers are serialized by sqlite:
// every transaction starts with BEGIN IMMEDIATE and waits on busy_timeout.
type Storage struct {
	db *sql.DB
}

var _ storage.Store = (*Storage)(nil)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DSN builds the connection string for a database file.
func DSN(path string) string {
	return path + "?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate&_foreign_keys=off"
}

// Open opens the database file at path and brings its schema to
// migrations.TargetVersion.
func Open(ctx context.Context, path string) (*Storage, error) {
	db, err := sql.Open("sqlite3", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := migrations.Up(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return NewStorage(db), nil
}

func NewStorage(db *sql.DB) *Storage {
	return &Storage{db: db}
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) SchemaVersion(ctx context.Context) (int64, error) {
	return migrations.Version(ctx, s.db)
}

// InTx runs fn inside one transaction.
func (s *Storage) InTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()

	if err := fn(&txStorage{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("commit tx: %w", err))
	}
	slog.Debug("Transaction committed")
	return nil
}

// IsRetryable reports whether err came from lock contention.
func IsRetryable(err error) bool {
	if errors.Is(err, storage.ErrBusy) {
		return true
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}

func classify(err error) error {
	if err == nil || errors.Is(err, storage.ErrBusy) {
		return err
	}
	if IsRetryable(err) {
		return fmt.Errorf("%w: %w", storage.ErrBusy, err)
	}
	return err
}

// txStorage implements storage.Tx over an open *sql.Tx.
type txStorage struct {
	q querier
}

// sanitizeString strips control and other non-printable characters and
// collapses runs of whitespace.
func sanitizeString(s string) string {
	result := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			result = append(result, ' ')
		} else if unicode.IsPrint(r) {
			result = append(result, r)
		}
	}
	return strings.Join(strings.Fields(string(result)), " ")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(migrations.TimeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
