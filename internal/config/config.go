package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode      Mode
	HTTPAddr  string
	PublicURL string
	SiteID    string

	DBDriver string
	DBDSN    string

	StateDriver   string // sql|fs|memory
	StateBasePath string // for fs

	AuthSecret      string
	EnableLocalAuth bool
	EnableGuestAuth bool

	AdminUser     string
	AdminPassHash string // bcrypt

	CORSOriginsOnline  []string
	CORSOriginsOffline []string

	// XP paid once when a lesson's summary unlocks.
	SummaryXPReward int

	// External lesson endpoints (quiz submission, completion toggle).
	LessonAPIBaseURL      string
	LessonAPITokenURL     string // optional client-credentials token endpoint
	LessonAPIClientID     string
	LessonAPIClientSecret string
	LessonAPITimeout      time.Duration
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	return Config{
		Mode:               mode,
		HTTPAddr:           envOr("HTTP_ADDR", ":8080"),
		PublicURL:          os.Getenv("PUBLIC_URL"),
		SiteID:             envOr("SITE_ID", "local"),
		DBDriver:           envOr("DB_DRIVER", "sqlite"),
		DBDSN:              envOr("DB_DSN", ""),
		StateDriver:        envOr("STATE_DRIVER", "sql"),
		StateBasePath:      envOr("STATE_BASE_PATH", "./data/state"),
		AuthSecret:         envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		EnableLocalAuth:    envBool("ENABLE_LOCAL_AUTH", true),
		EnableGuestAuth:    envBool("ENABLE_GUEST_AUTH", mode == ModeOffline),
		AdminUser:          envOr("ADMIN_USER", "admin"),
		AdminPassHash:      envOr("ADMIN_PASS_HASH", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji"),
		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", "https://lms.mindengage.ai"),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:3010,http://localhost:3020"),

		SummaryXPReward: envInt("SUMMARY_XP_REWARD", 40),

		LessonAPIBaseURL:      strings.TrimSuffix(os.Getenv("LESSON_API_BASE_URL"), "/"),
		LessonAPITokenURL:     os.Getenv("LESSON_API_TOKEN_URL"),
		LessonAPIClientID:     os.Getenv("LESSON_API_CLIENT_ID"),
		LessonAPIClientSecret: os.Getenv("LESSON_API_CLIENT_SECRET"),
		LessonAPITimeout:      envDuration("LESSON_API_TIMEOUT", 10*time.Second),
	}
}

// CORSOrigins returns the allow-list for the configured mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return n
}
func envDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(k))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
