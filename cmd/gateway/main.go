package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/cyberdefenders/cybergrader/internal/api/http"
	"github.com/cyberdefenders/cybergrader/internal/auth"
	"github.com/cyberdefenders/cybergrader/internal/config"
	"github.com/cyberdefenders/cybergrader/internal/content"
	"github.com/cyberdefenders/cybergrader/internal/db"
	"github.com/cyberdefenders/cybergrader/internal/export"
	"github.com/cyberdefenders/cybergrader/internal/rbac"
	"github.com/cyberdefenders/cybergrader/internal/store"
)

func main() {
	cfg := config.FromEnv()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// --- Content checkout ---
	var fetcher content.Fetcher
	root := cfg.ContentRoot
	syncOpts := content.SyncOpts{
		ContentSource:   cfg.ContentRoot,
		RefreshSchedule: cfg.RefreshSchedule,
		BackupSchedule:  cfg.BackupSchedule,
	}
	if cfg.ContentRepoURL != "" {
		git := &content.GitFetcher{
			URL:       cfg.ContentRepoURL,
			Branch:    cfg.ContentRepoBranch,
			TargetDir: cfg.ContentRepoPath,
			Log:       logger,
		}
		dir, status := git.Prepare(ctx)
		if status.Status == "error" {
			logger.Warn("content repo unavailable, serving bundled content",
				"url", cfg.ContentRepoURL, "message", status.Message)
		} else {
			fetcher = git
			root = dir
			syncOpts.ContentSource = cfg.ContentRepoURL
			syncOpts.RepoBranch = cfg.ContentRepoBranch
		}
	}

	// --- Store ---
	core := store.NewCoreStore(root)
	var (
		st     store.Store
		authDB *sql.DB
	)
	switch {
	case cfg.DatabaseURL != "":
		dbh, err := db.Open(ctx, db.DriverPostgres, cfg.DatabaseURL)
		if err != nil {
			logger.Warn("postgres open failed, continuing in memory", "error", err)
		}
		authDB = dbh
		st = store.NewPersistingStore(ctx, core, dbh, db.DriverPostgres, logger)
	case cfg.SupabaseURL != "" && cfg.SupabaseKey != "":
		client, err := store.NewSupabaseClient(cfg.SupabaseURL, cfg.SupabaseKey)
		if err != nil {
			logger.Warn("supabase client rejected, continuing in memory", "error", err)
			client = nil
		}
		st = store.NewSupabaseStore(ctx, core, client, logger)
	case cfg.DBDriver == "memory":
		st = core
	default:
		dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
		if err != nil {
			logger.Warn("db open failed, continuing in memory", "driver", cfg.DBDriver, "error", err)
		}
		authDB = dbh
		st = store.NewPersistingStore(ctx, core, dbh, db.Driver(cfg.DBDriver), logger)
	}

	if resp, err := content.SyncAll(st, root, syncOpts); err != nil {
		logger.Error("initial content sync failed", "root", root, "error", err)
	} else {
		logger.Info("content loaded", "labs", resp.Labs, "quizzes", resp.Quizzes, "exams", resp.Exams)
	}

	// --- Auth ---
	tokens := auth.NewTokenService(cfg.AuthSecret)
	var notifier auth.Notifier = auth.ConsoleNotifier{Log: logger}
	if cfg.ForwardEmailToken != "" {
		notifier = auth.NewForwardEmailNotifier(cfg.ForwardEmailToken, cfg.ForwardEmailFrom)
	}
	authSvc := auth.NewService(authDB, tokens, notifier, cfg.ResetLinkBase, logger)

	// --- Export ---
	var sheets export.SheetSync = export.NoopSheetSync{}
	if cfg.SheetPath != "" {
		sheets = export.NewXLSXSheetSync(cfg.SheetPath, logger)
	}

	persistent := func() bool {
		switch s := st.(type) {
		case *store.PersistingStore:
			return s.Enabled()
		case *store.SupabaseStore:
			return s.Enabled()
		default:
			return false
		}
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", api.HealthzHandler(persistent))

	r.Post("/auth/login", api.LoginHandler(authSvc))
	r.Post("/auth/signup", api.SignupHandler(authSvc))
	r.Post("/auth/password-reset/request", api.RequestResetHandler(authSvc))
	r.Post("/auth/password-reset/perform", api.PerformResetHandler(authSvc))

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(tokens))

		pr.Get("/auth/me", api.MeHandler(authSvc))
		pr.Post("/auth/student-id", api.StudentIDHandler(authSvc))

		pr.With(rbac.Require("lab:view")).
			Get("/labs", api.ListLabsHandler(st))
		pr.With(rbac.Require("lab:submit")).
			Post("/labs/{labID}/flags/{flagName}", api.SubmitFlagHandler(st))

		pr.With(rbac.Require("quiz:view")).
			Get("/quizzes", api.ListQuizzesHandler(st))
		pr.With(rbac.Require("quiz:submit")).
			Post("/quizzes/{quizID}/submit", api.SubmitQuizHandler(st))

		pr.With(rbac.Require("exam:view")).
			Get("/exams", api.ListExamsHandler(st))
		pr.With(rbac.Require("exam:submit")).
			Post("/exams/{examID}/submit", api.SubmitExamHandler(st))

		pr.With(rbac.RequireOwnerOr("dashboard:view-all", func(r *http.Request) bool {
			return chi.URLParam(r, "userID") == auth.SubjectFromContext(r.Context())
		})).Get("/dashboard/{userID}", api.DashboardHandler(st))

		pr.With(rbac.Require("notes:view")).
			Get("/notes/{name}", api.NoteHandler(func() string { return root }))

		pr.With(rbac.Require("content:sync")).
			Post("/admin/sync", api.SyncContentHandler(st, fetcher, root, syncOpts))
		pr.With(rbac.Require("scores:export")).
			Get("/admin/export-scores", api.ExportScoresHandler(st, sheets))
	})

	logger.Info("listening", "addr", cfg.HTTPAddr, "persistent", persistent())
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
