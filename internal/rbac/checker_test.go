package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCheckerHas(t *testing.T) {
	c := NewChecker(map[string][]string{
		"student": {"progress:view-own", "quiz:*"},
		"teacher": {"events:view-all"},
		"admin":   {"*"},
	})
	cases := []struct {
		role, perm string
		want       bool
	}{
		{"student", "progress:view-own", true},
		{"student", "progress:view-all", false},
		{"student", "quiz:submit", true},
		{"admin", "events:view-all", true},
		{"teacher", "events:view-own", true},
		{"teacher", "progress:view-own", false},
		{"ghost", "progress:view-own", false},
	}
	for _, tc := range cases {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Errorf("Has(%s, %s) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
}

func TestRequireMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := Require("progress:view-all")(ok)

	for role, want := range map[string]int{"teacher": 204, "student": 403, "": 403} {
		req := httptest.NewRequest("GET", "/", nil)
		req = req.WithContext(WithRole(req.Context(), role))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("role %q: status %d, want %d", role, rec.Code, want)
		}
	}
}
