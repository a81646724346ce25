package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/mind-engage/mindengage-progress/internal/api/http"
	guest "github.com/mind-engage/mindengage-progress/internal/auth"
	auth "github.com/mind-engage/mindengage-progress/internal/auth/middleware"
	"github.com/mind-engage/mindengage-progress/internal/config"
	"github.com/mind-engage/mindengage-progress/internal/db"
	"github.com/mind-engage/mindengage-progress/internal/lessonapi"
	"github.com/mind-engage/mindengage-progress/internal/progress"
	"github.com/mind-engage/mindengage-progress/internal/storage"
	syncx "github.com/mind-engage/mindengage-progress/internal/sync"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer dbh.Close()

	stateFor, err := stateStorage(cfg, dbh)
	if err != nil {
		log.Fatalf("state storage: %v", err)
	}

	authSvc := auth.NewAuthService(cfg.AuthSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.EnableLocalAuth {
		r.Post("/auth/login", auth.LoginHandler(authSvc, auth.Credentials{
			AdminUser:     cfg.AdminUser,
			AdminPassHash: cfg.AdminPassHash,
			DevLogins:     cfg.Mode == config.ModeOffline,
		}))
	}
	if cfg.EnableGuestAuth {
		r.Post("/auth/guest", guest.GuestLoginHandler(authSvc, dbh, cfg.Mode == config.ModeOnline))
	}

	progressAPI := &api.ProgressAPI{
		Sessions: progress.NewRegistry(progress.WithSummaryReward(cfg.SummaryXPReward)),
		Storage:  stateFor,
		Events:   syncx.NewEventRepo(dbh, cfg.SiteID),
		Lessons: lessonapi.New(lessonapi.Config{
			BaseURL:      cfg.LessonAPIBaseURL,
			TokenURL:     cfg.LessonAPITokenURL,
			ClientID:     cfg.LessonAPIClientID,
			ClientSecret: cfg.LessonAPIClientSecret,
			Timeout:      cfg.LessonAPITimeout,
		}),
	}

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.Use(auth.AttachRoleFromDB(dbh, cfg.Mode == config.ModeOffline))
		pr.Route("/api/lessons", func(lr chi.Router) {
			api.MountProgress(lr, progressAPI)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbh.PingContext(r.Context()); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})

	s := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Printf("listening on %s (mode=%s, db=%s, state=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver, cfg.StateDriver)
	log.Fatal(s.ListenAndServe())
}

func stateStorage(cfg config.Config, dbh *sql.DB) (func(context.Context) progress.Storage, error) {
	switch cfg.StateDriver {
	case "fs":
		fs, err := storage.NewFSStore(cfg.StateBasePath)
		if err != nil {
			return nil, err
		}
		return func(context.Context) progress.Storage { return fs }, nil
	case "memory":
		mem := progress.NewMemoryStorage()
		return func(context.Context) progress.Storage { return mem }, nil
	default:
		sqlStore := progress.NewSQLStorage(dbh)
		return func(ctx context.Context) progress.Storage { return sqlStore.WithContext(ctx) }, nil
	}
}
