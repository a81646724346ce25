package config

import (
	"reflect"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"MODE", "HTTP_ADDR", "DB_DRIVER", "SUMMARY_XP_REWARD", "LESSON_API_TIMEOUT", "ENABLE_GUEST_AUTH"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()
	if cfg.Mode != ModeOffline || cfg.HTTPAddr != ":8080" || cfg.DBDriver != "sqlite" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.SummaryXPReward != 40 {
		t.Fatalf("summary reward = %d, want 40", cfg.SummaryXPReward)
	}
	if cfg.LessonAPITimeout != 10*time.Second {
		t.Fatalf("timeout = %v", cfg.LessonAPITimeout)
	}
	if !cfg.EnableGuestAuth {
		t.Fatal("guest auth should default on in offline mode")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MODE", "online")
	t.Setenv("SUMMARY_XP_REWARD", "75")
	t.Setenv("LESSON_API_BASE_URL", "https://lessons.example/")
	t.Setenv("CORS_ORIGINS_ONLINE", " https://a.example , ,https://b.example")
	t.Setenv("ENABLE_GUEST_AUTH", "")

	cfg := FromEnv()
	if cfg.SummaryXPReward != 75 {
		t.Fatalf("summary reward = %d", cfg.SummaryXPReward)
	}
	if cfg.LessonAPIBaseURL != "https://lessons.example" {
		t.Fatalf("base url = %q", cfg.LessonAPIBaseURL)
	}
	if cfg.EnableGuestAuth {
		t.Fatal("guest auth should default off online")
	}
	want := []string{"https://a.example", "https://b.example"}
	if got := cfg.CORSOrigins(); !reflect.DeepEqual(got, want) {
		t.Fatalf("origins = %v, want %v", got, want)
	}
}
