package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/vincentbai/visittrace-agent/internal/models"
	_ "modernc.org/sqlite" // CGO-free SQLite
)

// Database mirrors the browser cookie store. The extension pushes every
// cookies.onChanged notification and the tracker reads it back by domain.
type Database struct {
	db          *sql.DB
	validCauses map[string]bool
}

func NewDatabase(databasePath string) (*Database, error) {
	// WAL + busy timeout to avoid "database is locked"
	db, err := sql.Open("sqlite", databasePath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Database{
		db: db,
		validCauses: map[string]bool{
			"":                  true,
			"explicit":          true,
			"overwrite":         true,
			"expired":           true,
			"evicted":           true,
			"expired_overwrite": true,
		},
	}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS cookies(
	  domain     TEXT    NOT NULL,
	  name       TEXT    NOT NULL,
	  path       TEXT    NOT NULL DEFAULT '/',
	  value      TEXT    NOT NULL,
	  updated_at INTEGER NOT NULL,
	  PRIMARY KEY (domain, name, path)
	);
	CREATE INDEX IF NOT EXISTS idx_cookies_domain ON cookies(domain);
	`)
	if err != nil {
		return fmt.Errorf("failed to create database tables: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) ValidateChange(change models.CookieChange) error {
	if normalizeDomain(change.Cookie.Domain) == "" {
		return fmt.Errorf("cookie domain cannot be empty")
	}
	if change.Cookie.Name == "" {
		return fmt.Errorf("cookie name cannot be empty")
	}
	if !d.validCauses[change.Cause] {
		return fmt.Errorf("invalid change cause: %s", change.Cause)
	}
	return nil
}

// ApplyChanges applies a batch of cookie changes atomically.
func (d *Database) ApplyChanges(ctx context.Context, changes []models.CookieChange) error {
	transaction, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	upsert, err := transaction.PrepareContext(ctx, `
	INSERT INTO cookies(domain, name, path, value, updated_at) VALUES(?,?,?,?,?)
	ON CONFLICT(domain, name, path) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)
	if err != nil {
		_ = transaction.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer upsert.Close()

	now := time.Now().Unix()
	for _, change := range changes {
		if err := d.ValidateChange(change); err != nil {
			_ = transaction.Rollback()
			return fmt.Errorf("invalid cookie change: %w", err)
		}

		cookie := change.Cookie
		domain := cookieKeyDomain(cookie.Domain)
		path := cookie.Path
		if path == "" {
			path = "/"
		}

		if change.Removed {
			_, err = transaction.ExecContext(ctx, `DELETE FROM cookies WHERE domain = ? AND name = ? AND path = ?`, domain, cookie.Name, path)
		} else {
			_, err = upsert.ExecContext(ctx, domain, cookie.Name, path, cookie.Value, now)
		}
		if err != nil {
			_ = transaction.Rollback()
			return fmt.Errorf("failed to execute statement: %w", err)
		}
	}
	if err := transaction.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Cookies returns the cookies scoped to domain or any of its subdomains.
func (d *Database) Cookies(ctx context.Context, domain string) ([]models.Cookie, error) {
	domain = normalizeDomain(domain)
	rows, err := d.db.QueryContext(ctx, `
	SELECT domain, name, path, value FROM cookies
	WHERE ltrim(domain, '.') = ?1
	   OR (length(domain) > length(?1) AND substr(domain, -length(?1) - 1) = '.' || ?1)
	ORDER BY domain, name, path`, domain)
	if err != nil {
		return nil, fmt.Errorf("failed to query cookies: %w", err)
	}
	defer rows.Close()

	var cookies []models.Cookie
	for rows.Next() {
		var cookie models.Cookie
		if err := rows.Scan(&cookie.Domain, &cookie.Name, &cookie.Path, &cookie.Value); err != nil {
			return nil, fmt.Errorf("failed to scan cookie: %w", err)
		}
		cookies = append(cookies, cookie)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cookies: %w", err)
	}
	return cookies, nil
}

// Count returns the number of mirrored cookies.
func (d *Database) Count(ctx context.Context) (int, error) {
	var count int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cookies`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count cookies: %w", err)
	}
	return count, nil
}

// cookieKeyDomain keeps the leading dot: a host-only cookie ("example.com")
// and a domain cookie (".example.com") are distinct browser cookies.
func cookieKeyDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}

func normalizeDomain(domain string) string {
	return strings.TrimPrefix(cookieKeyDomain(domain), ".")
}
