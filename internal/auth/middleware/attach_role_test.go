package auth

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/mind-engage/mindengage-progress/internal/db"
	"github.com/mind-engage/mindengage-progress/internal/rbac"
)

func openUsersDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "users.db") + "?_pragma=busy_timeout(5000)"
	dbh, err := db.Open(ctx, db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { dbh.Close() })
	if _, err := dbh.ExecContext(ctx,
		`INSERT INTO users (id, username, role, created_at) VALUES ($1, $2, $3, $4)`,
		"u-tina", "tina", "teacher", 1,
	); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return dbh
}

// serveAs runs AttachRoleFromDB for a request carrying sub and the claimed role
// and reports the status and the role the next handler saw.
func serveAs(dbh *sql.DB, fallback bool, sub, claim string) (int, string) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = rbac.RoleFromContext(r.Context())
	})
	req := httptest.NewRequest("GET", "/", nil)
	ctx := rbac.WithRole(WithSubject(req.Context(), sub), claim)
	rec := httptest.NewRecorder()
	AttachRoleFromDB(dbh, fallback)(next).ServeHTTP(rec, req.WithContext(ctx))
	return rec.Code, seen
}

func TestAttachRoleFromDB(t *testing.T) {
	dbh := openUsersDB(t)

	cases := []struct {
		name     string
		fallback bool
		sub      string
		claim    string
		code     int
		role     string
	}{
		{"db role by username overrides claim", false, "tina", "student", 200, "teacher"},
		{"db role by id", false, "u-tina", "admin", 200, "teacher"},
		{"unknown subject without fallback", false, "mallory", "teacher", 403, ""},
		{"unknown subject keeps claim with fallback", true, "sam", "student", 200, "student"},
		{"unknown subject without a claim", true, "sam", "", 403, ""},
		{"admin claim passes", false, "root", "admin", 200, "admin"},
	}
	for _, tc := range cases {
		code, role := serveAs(dbh, tc.fallback, tc.sub, tc.claim)
		if code != tc.code || role != tc.role {
			t.Errorf("%s: got %d %q, want %d %q", tc.name, code, role, tc.code, tc.role)
		}
	}
}
