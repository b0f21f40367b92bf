package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	api "github.com/bretkramer/ethos-content-creator/internal/api/http"
	auth "github.com/bretkramer/ethos-content-creator/internal/auth/middleware"
	"github.com/bretkramer/ethos-content-creator/internal/config"
	"github.com/bretkramer/ethos-content-creator/internal/db"
	"github.com/bretkramer/ethos-content-creator/internal/draftstore"
	"github.com/bretkramer/ethos-content-creator/internal/enroll"
	"github.com/bretkramer/ethos-content-creator/internal/generate"
	"github.com/bretkramer/ethos-content-creator/internal/lmshttp"
	"github.com/bretkramer/ethos-content-creator/internal/publish"
	"github.com/bretkramer/ethos-content-creator/internal/rbac"
	"github.com/bretkramer/ethos-content-creator/internal/report"
	"github.com/bretkramer/ethos-content-creator/internal/simulate"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.WithError(err).Fatal("db open failed")
	}
	reports := report.NewSQLStore(dbh)

	drafts, err := draftstore.NewFSStore(cfg.DraftDir)
	if err != nil {
		log.WithError(err).Fatal("draft store")
	}

	profiles, err := config.LoadProfiles(cfg.ProfilesPath)
	if err != nil {
		log.WithError(err).Fatal("profiles")
	}

	// --- LMS side ---
	lms := lmshttp.New(lmshttp.Config{
		BaseURL:      cfg.LMSBaseURL,
		TokenURL:     cfg.LMSTokenURL,
		ClientID:     cfg.LMSClientID,
		ClientSecret: cfg.LMSClientSecret,
		Timeout:      cfg.LMSTimeout,
	})
	locator := enroll.NewLocator(lms, log)
	publisher := publish.NewPublisher(lms, log)

	reconciler := enroll.NewReconciler(locator, publisher, log)
	reconciler.Interval = cfg.PollInterval
	reconciler.Budget = cfg.PollBudget

	runner := &publish.Runner{
		Source:   generate.NewWikipedia(cfg.WikipediaURL),
		Pub:      publisher,
		Rec:      reconciler,
		Quiz:     simulate.NewQuizEngine(lms, log),
		Lesson:   simulate.NewLessonDriver(lms, log),
		Profiles: profiles,
		Reports:  reports,
		Drafts:   drafts,
		Log:      log,
	}

	// --- Auth ---
	authSvc := auth.NewAuthService(cfg.AuthSecret, cfg.AdminUser, cfg.AdminPassHash)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc))

	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		pr.With(rbac.Require("runs:create")).
			Post("/api/runs", api.StartRunHandler(runner))
		pr.With(rbac.Require("runs:view")).
			Get("/api/runs", api.ListRunsHandler(reports))
		pr.With(rbac.Require("runs:view")).
			Get("/api/runs/{runID}", api.GetRunHandler(reports))

		pr.With(rbac.Require("enrollments:diagnose")).
			Post("/api/enrollments/diagnose", api.DiagnoseHandler(locator))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.WithFields(logrus.Fields{"addr": cfg.HTTPAddr, "db": cfg.DBDriver, "lms": cfg.LMSBaseURL}).Info("listening")
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
