// Package credstore persists the server-issued session cookies between
// short-lived CLI invocations. Only the credential is stored; fetched
// content never is.
package credstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps SQLite operations over the saved sessions.
type Store struct {
	db *sql.DB
}

// storedCookie is the serialized form of one cookie.
type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Open opens or creates the credential database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		origin TEXT PRIMARY KEY,
		cookies TEXT NOT NULL,
		saved_at TIMESTAMP NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save stores the cookies currently held for the given API origin.
func (s *Store) Save(origin *url.URL, cookies []*http.Cookie) error {
	stored := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		stored = append(stored, storedCookie{Name: c.Name, Value: c.Value})
	}
	blob, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal cookies: %w", err)
	}

	query := `
	INSERT INTO sessions (origin, cookies, saved_at) VALUES (?, ?, ?)
	ON CONFLICT(origin) DO UPDATE SET
		cookies = excluded.cookies,
		saved_at = excluded.saved_at
	`
	_, err = s.db.Exec(query, originKey(origin), string(blob), time.Now().UTC())
	return err
}

// Load returns the cookies saved for the origin, or nil when none are
// stored.
func (s *Store) Load(origin *url.URL) ([]*http.Cookie, error) {
	var blob string
	err := s.db.QueryRow("SELECT cookies FROM sessions WHERE origin = ?", originKey(origin)).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var stored []storedCookie
	if err := json.Unmarshal([]byte(blob), &stored); err != nil {
		return nil, fmt.Errorf("unmarshal cookies: %w", err)
	}

	cookies := make([]*http.Cookie, 0, len(stored))
	for _, c := range stored {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return cookies, nil
}

// Clear drops the saved session for the origin.
func (s *Store) Clear(origin *url.URL) error {
	_, err := s.db.Exec("DELETE FROM sessions WHERE origin = ?", originKey(origin))
	return err
}

func originKey(origin *url.URL) string {
	return origin.Scheme + "://" + origin.Host
}
