package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vincentbai/visittrace-agent/internal/models"
)

func setupTestDB(t *testing.T) *Database {
	t.Helper()

	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "failed to create test database")
	t.Cleanup(func() { db.Close() })

	return db
}

func setCookie(domain, name, value string) models.CookieChange {
	return models.CookieChange{
		Cookie: models.Cookie{Domain: domain, Name: name, Value: value, Path: "/"},
		Cause:  "explicit",
	}
}

func TestNewDatabase(t *testing.T) {
	db := setupTestDB(t)

	require.NotNil(t, db)
	require.NotNil(t, db.db)
}

func TestValidateChange(t *testing.T) {
	db := setupTestDB(t)

	tests := []struct {
		name      string
		change    models.CookieChange
		wantError bool
	}{
		{"valid change", setCookie("example.com", "sid", "abc"), false},
		{"no cause", models.CookieChange{Cookie: models.Cookie{Domain: "example.com", Name: "sid"}}, false},
		{"empty domain", setCookie("", "sid", "abc"), true},
		{"dot only domain", setCookie(".", "sid", "abc"), true},
		{"empty name", setCookie("example.com", "", "abc"), true},
		{"invalid cause", models.CookieChange{Cookie: models.Cookie{Domain: "example.com", Name: "sid"}, Cause: "magic"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := db.ValidateChange(tt.change)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestApplyChangesAndLookup(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	err := db.ApplyChanges(ctx, []models.CookieChange{
		setCookie(".example.com", "auth_token", "abc123"),
		setCookie("app.example.com", "theme", "dark"),
		setCookie("example.com", "lang", "en"),
		setCookie("notexample.com", "session", "other"),
		setCookie("example.org", "session", "other"),
	})
	require.NoError(t, err)

	cookies, err := db.Cookies(ctx, "example.com")
	require.NoError(t, err)

	names := make([]string, 0, len(cookies))
	for _, c := range cookies {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"auth_token", "lang", "theme"}, names)

	count, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestApplyChangesOverwriteAndRemove(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.ApplyChanges(ctx, []models.CookieChange{setCookie(".example.com", "sid", "first")}))
	require.NoError(t, db.ApplyChanges(ctx, []models.CookieChange{setCookie(".EXAMPLE.com", "sid", "second")}))

	cookies, err := db.Cookies(ctx, "example.com")
	require.NoError(t, err)
	require.Len(t, cookies, 1)
	assert.Equal(t, "second", cookies[0].Value)

	removal := models.CookieChange{
		Cookie:  models.Cookie{Domain: ".example.com", Name: "sid"},
		Removed: true,
		Cause:   "expired",
	}
	require.NoError(t, db.ApplyChanges(ctx, []models.CookieChange{removal}))

	cookies, err = db.Cookies(ctx, "example.com")
	require.NoError(t, err)
	assert.Empty(t, cookies)
}

func TestHostOnlyAndDomainCookiesAreDistinct(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.ApplyChanges(ctx, []models.CookieChange{
		setCookie(".example.com", "session", "abc"),
		setCookie("example.com", "session", "xyz"),
	}))

	cookies, err := db.Cookies(ctx, "example.com")
	require.NoError(t, err)
	assert.Len(t, cookies, 2)

	removal := models.CookieChange{
		Cookie:  models.Cookie{Domain: "example.com", Name: "session", Path: "/"},
		Removed: true,
		Cause:   "explicit",
	}
	require.NoError(t, db.ApplyChanges(ctx, []models.CookieChange{removal}))

	cookies, err = db.Cookies(ctx, "example.com")
	require.NoError(t, err)
	require.Len(t, cookies, 1)
	assert.Equal(t, ".example.com", cookies[0].Domain)
	assert.Equal(t, "abc", cookies[0].Value)
}

func TestApplyChangesInvalidRollsBack(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	err := db.ApplyChanges(ctx, []models.CookieChange{
		setCookie("example.com", "sid", "abc"),
		setCookie("", "broken", "x"), // Invalid: empty domain
	})
	require.Error(t, err)

	count, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "transaction should have been rolled back")
}

func TestApplyChangesEmpty(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, db.ApplyChanges(context.Background(), nil))
}

func TestCookiesPathsAreDistinct(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	root := setCookie("example.com", "sid", "root")
	scoped := setCookie("example.com", "sid", "scoped")
	scoped.Cookie.Path = "/app"
	require.NoError(t, db.ApplyChanges(ctx, []models.CookieChange{root, scoped}))

	cookies, err := db.Cookies(ctx, "example.com")
	require.NoError(t, err)
	assert.Len(t, cookies, 2)
}

func TestCookiesAfterClose(t *testing.T) {
	db, err := NewDatabase(filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = db.Cookies(context.Background(), "example.com")
	assert.Error(t, err)
}
