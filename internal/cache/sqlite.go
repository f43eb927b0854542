package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteCache stores entries in an embedded SQLite database. Unlike the
// file backend it rewrites only the touched row on Put.
type SQLiteCache struct {
	db *sql.DB
}

func NewSQLiteCache(path string) (*SQLiteCache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS results (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}

	return &SQLiteCache{db: db}, nil
}

func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

func (c *SQLiteCache) Get(key string) (json.RawMessage, bool) {
	var value string
	err := c.db.QueryRow(`SELECT value FROM results WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		log.Printf("Warning: cache lookup failed for %s: %v", key, err)
		return nil, false
	}
	return json.RawMessage(value), true
}

func (c *SQLiteCache) Put(key string, value json.RawMessage) error {
	_, err := c.db.Exec(`INSERT INTO results (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, string(value))
	return err
}

func (c *SQLiteCache) Clear() (int, error) {
	var n int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM results`).Scan(&n); err != nil {
		return 0, err
	}
	if _, err := c.db.Exec(`DELETE FROM results`); err != nil {
		return 0, err
	}
	return n, nil
}

func (c *SQLiteCache) Stats() (int, []string) {
	var n int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM results`).Scan(&n); err != nil {
		log.Printf("Warning: cache stats failed: %v", err)
		return 0, nil
	}

	rows, err := c.db.Query(`SELECT key FROM results ORDER BY key LIMIT ?`, statsSampleLimit)
	if err != nil {
		log.Printf("Warning: cache stats failed: %v", err)
		return n, nil
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			break
		}
		keys = append(keys, k)
	}
	return n, keys
}
