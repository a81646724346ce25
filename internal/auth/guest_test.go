package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	authmw "github.com/mind-engage/mindengage-progress/internal/auth/middleware"
	"github.com/mind-engage/mindengage-progress/internal/db"
)

func TestGuestLoginReusesCookie(t *testing.T) {
	dbh, err := db.Open(context.Background(), db.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "g.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer dbh.Close()

	a := authmw.NewAuthService("s3cret")
	h := GuestLoginHandler(a, dbh, false)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/auth/guest", nil))
	if rec.Code != 200 {
		t.Fatalf("first guest login: %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || !strings.HasPrefix(cookies[0].Value, guestPrefix) {
		t.Fatalf("unexpected cookies: %+v", cookies)
	}
	var first struct{ Username string }
	_ = json.NewDecoder(rec.Body).Decode(&first)

	req := httptest.NewRequest("POST", "/auth/guest", nil)
	req.AddCookie(&http.Cookie{Name: guestCookie, Value: cookies[0].Value})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var second struct {
		AccessToken string `json:"access_token"`
		Username    string `json:"username"`
	}
	_ = json.NewDecoder(rec.Body).Decode(&second)
	if second.Username != first.Username {
		t.Fatalf("guest not reused: %q vs %q", second.Username, first.Username)
	}
	c, err := a.Parse(second.AccessToken)
	if err != nil || c.Sub != cookies[0].Value || c.Role != "student" {
		t.Fatalf("token claims: %+v %v", c, err)
	}
}
