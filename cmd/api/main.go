package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"pathwise/api/internal/app"
	"pathwise/api/internal/checkin"
	"pathwise/api/internal/config"
	"pathwise/api/internal/email"
	"pathwise/api/internal/goals"
	"pathwise/api/internal/identity"
	"pathwise/api/internal/logging"
	"pathwise/api/internal/scheduler"
	"pathwise/api/internal/session"
	"pathwise/api/internal/store"
	"pathwise/api/internal/tutor"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("could not read .env")
	}
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	log := logging.Component(logger, "main")
	ctx := context.Background()
	loc := cfg.Location()

	cron := scheduler.New(loc, logging.Component(logger, "scheduler"))
	checks := map[string]app.Pinger{}

	var sessions session.Store
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Info("using Redis for session storage")
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("redis connection failed")
		}
		defer redisStore.Close()
		sessions = redisStore
	} else {
		log.Info("using in-memory session storage")
		memoryStore := session.NewMemoryStore()
		if _, err := cron.ScheduleInterval("session-sweep", cfg.SessionSweepInterval, func(context.Context) error {
			if removed := memoryStore.Sweep(time.Now()); removed > 0 {
				log.WithField("removed", removed).Debug("expired sessions swept")
			}
			return nil
		}); err != nil {
			log.WithError(err).Fatal("schedule session sweep")
		}
		sessions = memoryStore
	}
	checks["sessions"] = sessions

	var (
		users        identity.UserStore = identity.NewMemoryUserStore()
		checkinStore checkin.Store      = checkin.NewMemoryStore()
		db           *sql.DB
	)
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		var err error
		db, err = store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("database connection failed")
		}
		defer db.Close()
		if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
			log.WithError(err).Fatal("migrations failed")
		}
		pg := store.NewPostgresStore(db)
		users, checkinStore = pg, pg
		checks["database"] = pg
		log.Info("using PostgreSQL for users and check-ins")
	} else {
		log.Warn("DATABASE_URL not set, users and check-ins are kept in memory")
	}

	ident := identity.NewService(users, sessions, cfg.JWTSecret, cfg.SessionTTL, identity.WithBcryptCost(cfg.BcryptCost))
	goalRepo := goals.NewRepository(goals.Template{
		Weeks:        cfg.GoalTemplateWeeks,
		PreCompleted: cfg.GoalTemplatePreCompleted,
	})
	ledger := checkin.NewLedger(checkinStore,
		checkin.WithLocation(loc),
		checkin.WithLogger(logging.Component(logger, "checkin")),
	)

	templates := tutor.MustTemplateResponder()
	var responder tutor.Responder = templates
	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		model, err := tutor.NewOpenAIResponder(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
		if err != nil {
			log.WithError(err).Fatal("tutor model setup failed")
		}
		responder = tutor.Fallback{Primary: model, Secondary: templates, Logger: logging.Component(logger, "tutor")}
		log.WithField("model", cfg.OpenAIModel).Info("tutor replies use the chat model")
	}

	mailer := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	})
	if !mailer.IsConfigured() {
		log.Info("SMTP not configured, check-in reminders are only logged")
	}
	notifier := app.NewReminderNotifier(ident, goalRepo, mailer, loc, logging.Component(logger, "reminders"))
	reminders := checkin.NewReminders(ledger, notifier, logging.Component(logger, "reminders"))
	if _, err := cron.ScheduleInterval("checkin-reminders", cfg.ReminderInterval, func(ctx context.Context) error {
		_, err := reminders.Run(ctx)
		return err
	}); err != nil {
		log.WithError(err).Fatal("schedule reminders")
	}

	service := app.New(cfg, app.Deps{
		Identity: ident,
		Goals:    goalRepo,
		Ledger:   ledger,
		Tutor:    responder,
		History:  tutor.NewHistory(),
		Checks:   checks,
		Logger:   logging.Component(logger, "app"),
	})

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, logging.Component(logger, "http"))
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	cron.Start()
	go func() {
		log.WithField("addr", cfg.Addr).Info("Pathwise API listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown error")
	}
	cron.Stop()
}
