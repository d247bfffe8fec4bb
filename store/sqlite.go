package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"guideboard/guide"

	_ "modernc.org/sqlite"
)

// SQLite conserva utenti, documenti e immagini in un unico file
type SQLite struct {
	db *sql.DB
}

// NewSQLite apre (o crea) il database indicato
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("percorso database non specificato")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("impossibile creare la directory del database: %w", err)
		}
	}

	// modernc.org/sqlite registra il driver come "sqlite"
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	s := &SQLite{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			name TEXT PRIMARY KEY,
			created_at_unixms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS documents (
			username TEXT PRIMARY KEY REFERENCES users(name) ON DELETE CASCADE,
			body_json TEXT NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS images (
			username TEXT NOT NULL REFERENCES users(name) ON DELETE CASCADE,
			filename TEXT NOT NULL,
			data BLOB NOT NULL,
			created_at_unixms INTEGER NOT NULL,
			PRIMARY KEY(username, filename)
		);`,
	}
	for _, st := range stmts {
		if _, err := s.db.ExecContext(ctx, st); err != nil {
			return fmt.Errorf("migrazione sqlite: %w", err)
		}
	}
	return nil
}

func (s *SQLite) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM users ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		users = append(users, name)
	}
	return users, rows.Err()
}

func (s *SQLite) CreateUser(ctx context.Context, username string) (string, error) {
	name := guide.SanitizeUsername(username)
	if name == "" {
		return "", ErrUserRequired
	}
	body, err := json.Marshal(guide.NewDocument())
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE name = ?`, name).Scan(&exists); err != nil {
		return "", err
	}
	if exists > 0 {
		return "", fmt.Errorf("%w: %s", ErrUserExists, name)
	}

	now := time.Now().UnixMilli()
	if _, err := tx.ExecContext(ctx, `INSERT INTO users(name, created_at_unixms) VALUES(?, ?)`, name, now); err != nil {
		return "", err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO documents(username, body_json, updated_at_unixms) VALUES(?, ?, ?)`, name, string(body), now); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return name, nil
}

func (s *SQLite) GetDocument(ctx context.Context, username string) (*guide.Document, error) {
	if err := checkUser(username); err != nil {
		return nil, err
	}
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body_json FROM documents WHERE username = ?`, username).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	if err != nil {
		return nil, fmt.Errorf("errore lettura documento: %w", err)
	}
	doc := guide.NewDocument()
	if err := json.Unmarshal([]byte(body), doc); err != nil {
		return nil, fmt.Errorf("documento corrotto per %s: %w", username, err)
	}
	doc.Normalize()
	return doc, nil
}

func (s *SQLite) PutDocument(ctx context.Context, username string, doc *guide.Document) error {
	if err := checkUser(username); err != nil {
		return err
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("errore serializzazione documento: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET body_json = ?, updated_at_unixms = ? WHERE username = ?`,
		string(body), time.Now().UnixMilli(), username)
	if err != nil {
		return fmt.Errorf("errore scrittura documento: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	return nil
}

func (s *SQLite) SaveImage(ctx context.Context, username, originalName string, data []byte) (string, error) {
	if err := checkUser(username); err != nil {
		return "", err
	}
	filename := imageName(originalName)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO images(username, filename, data, created_at_unixms) VALUES(?, ?, ?, ?)`,
		username, filename, data, time.Now().UnixMilli())
	if err != nil {
		// la foreign key fallisce se l'utente non esiste
		var count int
		if qerr := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE name = ?`, username).Scan(&count); qerr == nil && count == 0 {
			return "", fmt.Errorf("%w: %s", ErrUserNotFound, username)
		}
		return "", fmt.Errorf("errore salvataggio immagine: %w", err)
	}
	return filename, nil
}

func (s *SQLite) ReadImage(ctx context.Context, username, filename string) ([]byte, error) {
	if err := checkUser(username); err != nil {
		return nil, err
	}
	if err := checkImage(filename); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM images WHERE username = ? AND filename = ?`, username, filename).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrImageNotFound, filename)
	}
	return data, err
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
