package auth

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	authmw "github.com/mind-engage/mindengage-progress/internal/auth/middleware"
)

const (
	guestCookie   = "progress_guest_id"
	guestPrefix   = "guest|"
	guestLifetime = 30 * 24 * time.Hour
)

func setGuestCookie(w http.ResponseWriter, id string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     guestCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(guestLifetime),
	})
}

// GuestLoginHandler issues a student token for an anonymous learner, reusing
// the guest identity stored in the browser cookie when it is still known.
func GuestLoginHandler(a *authmw.AuthService, db *sql.DB, secureCookie bool) http.HandlerFunc {
	type out struct {
		AccessToken string `json:"access_token"`
		Username    string `json:"username"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if c, err := r.Cookie(guestCookie); err == nil && strings.HasPrefix(c.Value, guestPrefix) {
			var username, role string
			err := db.QueryRowContext(r.Context(), `SELECT username, role FROM users WHERE id=$1`, c.Value).Scan(&username, &role)
			if err == nil && role == "student" {
				tok, err := a.IssueJWT(c.Value, role)
				if err != nil {
					http.Error(w, "issue token", http.StatusInternalServerError)
					return
				}
				setGuestCookie(w, c.Value, secureCookie)
				_ = json.NewEncoder(w).Encode(out{AccessToken: tok, Username: username})
				return
			}
		}

		id := uuid.New()
		userID := guestPrefix + id.String()
		username := "guest-" + strings.ReplaceAll(id.String(), "-", "")[:8]
		role := "student"

		if _, err := db.ExecContext(r.Context(), `INSERT INTO users (id, username, role, created_at)
		                VALUES ($1,$2,$3,$4)`, userID, username, role, time.Now().Unix()); err != nil {
			log.Printf("warn: guest insert %s: %v", userID, err)
		}

		tok, err := a.IssueJWT(userID, role)
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		setGuestCookie(w, userID, secureCookie)
		_ = json.NewEncoder(w).Encode(out{AccessToken: tok, Username: username})
	}
}
