package auth

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-progress/internal/rbac"
)

func TestJWTMiddlewareSetsSubjectAndRole(t *testing.T) {
	a := NewAuthService("s3cret")
	tok, err := a.IssueJWT("alice", "student")
	if err != nil {
		t.Fatalf("IssueJWT: %v", err)
	}
	var sub, role string
	h := JWTMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub = SubjectFromContext(r.Context())
		role = rbac.RoleFromContext(r.Context())
	}))
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if sub != "alice" || role != "student" {
		t.Fatalf("got sub=%q role=%q", sub, role)
	}
}

func TestParseRejectsForeignTokens(t *testing.T) {
	a := NewAuthService("s3cret")
	other, _ := NewAuthService("other").IssueJWT("alice", "admin")
	if _, err := a.Parse(other); err == nil {
		t.Fatal("token signed with another key accepted")
	}
	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Sub: "alice", Role: "admin"})
	raw, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := a.Parse(raw); err == nil {
		t.Fatal("unsigned token accepted")
	}
}

func TestCredentials(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	c := Credentials{AdminUser: "admin", AdminPassHash: string(hash), DevLogins: true}
	if role, err := c.Check("admin", "pw", ""); err != nil || role != "admin" {
		t.Fatalf("admin login: %q %v", role, err)
	}
	if _, err := c.Check("admin", "nope", ""); err == nil {
		t.Fatal("wrong admin password accepted")
	}
	if role, err := c.Check("sam", "sam", "student"); err != nil || role != "student" {
		t.Fatalf("dev login: %q %v", role, err)
	}
	c.DevLogins = false
	if _, err := c.Check("sam", "sam", "student"); err == nil {
		t.Fatal("dev login accepted with DevLogins off")
	}
}

func TestLoginHandler(t *testing.T) {
	a := NewAuthService("s3cret")
	h := LoginHandler(a, Credentials{AdminUser: "admin", DevLogins: true})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/auth/login", bytes.NewBufferString(`{"username":"t1","password":"t1","role":"teacher"}`)))
	if rec.Code != 200 || !bytes.Contains(rec.Body.Bytes(), []byte("access_token")) {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/auth/login", bytes.NewBufferString(`{"username":"t1","password":"x","role":"teacher"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: %d", rec.Code)
	}
}
