// Package store handles SQLite persistence of accounts, interaction logs and
// per-user settings.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vanpelt/aura/internal/models"

	_ "modernc.org/sqlite" // SQLite driver.
)

var (
	ErrEmailExists = errors.New("email already exists")
	ErrNotFound    = errors.New("not found")
)

// Store wraps SQLite access
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies migrations.
// ":memory:" gives a private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one writer; also keeps :memory: on a single connection
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate %s: %w", path, err)
	}
	return s, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS interaction_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			user_id INTEGER,
			provider TEXT NOT NULL,
			model TEXT NOT NULL,
			prompt_length INTEGER NOT NULL,
			response_length INTEGER NOT NULL,
			status TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_interaction_logs_user ON interaction_logs(user_id, timestamp);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// CreateUser inserts an account. A duplicate email yields ErrEmailExists.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (*models.User, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, created_at) VALUES (?, ?, ?)`,
		email, passwordHash, now.Format(time.RFC3339Nano))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.User{ID: id, Email: email, PasswordHash: passwordHash, CreatedAt: now}, nil
}

// UserByEmail looks up an account by email
func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, email))
}

// UserByID looks up an account by id
func (s *Store) UserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE id = ?`, id))
}

func (s *Store) scanUser(row *sql.Row) (*models.User, error) {
	var (
		u       models.User
		created string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return &u, nil
}

// LogInteraction appends a row to the interaction log
func (s *Store) LogInteraction(ctx context.Context, entry models.InteractionLog) (int64, error) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	var userID any
	if entry.UserID != 0 {
		userID = entry.UserID
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO interaction_logs (timestamp, user_id, provider, model, prompt_length, response_length, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.Timestamp.UTC().Format(time.RFC3339Nano),
		userID,
		string(entry.Provider),
		entry.Model,
		entry.PromptLength,
		entry.ResponseLength,
		entry.Status,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RecentInteractions returns up to limit rows, newest first. userID 0 means
// every user.
func (s *Store) RecentInteractions(ctx context.Context, userID int64, limit int) ([]models.InteractionLog, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, timestamp, COALESCE(user_id, 0), provider, model, prompt_length, response_length, status
		FROM interaction_logs`
	args := []any{}
	if userID != 0 {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.InteractionLog
	for rows.Next() {
		var (
			entry    models.InteractionLog
			ts       string
			provider string
		)
		if err := rows.Scan(&entry.ID, &ts, &entry.UserID, &provider, &entry.Model, &entry.PromptLength, &entry.ResponseLength, &entry.Status); err != nil {
			return nil, err
		}
		entry.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		entry.Provider = models.Provider(provider)
		out = append(out, entry)
	}
	return out, rows.Err()
}

// GetSetting returns the stored value for key or ErrNotFound
func (s *Store) GetSetting(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

// PutSetting upserts the value for key
func (s *Store) PutSetting(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value), time.Now().UTC().Format(time.RFC3339Nano))
	return err
}
