package api

import (
	"fmt"
	"net/http"

	"github.com/ifeis/server/internal/api/handlers"
	"github.com/ifeis/server/internal/api/middleware"
	"github.com/ifeis/server/internal/audit"
	"github.com/ifeis/server/internal/auth"
	"github.com/ifeis/server/internal/auth/oauth"
	"github.com/ifeis/server/internal/config"
	"github.com/ifeis/server/internal/domain/accounts"
	"github.com/ifeis/server/internal/domain/catalog"
	"github.com/ifeis/server/internal/domain/events"
	"github.com/ifeis/server/internal/domain/feiseanna"
	"github.com/ifeis/server/internal/domain/grants"
	"github.com/ifeis/server/internal/domain/leads"
	"github.com/ifeis/server/internal/domain/payments"
	"github.com/ifeis/server/internal/domain/registrations"
	"github.com/ifeis/server/internal/domain/resources"
	"github.com/ifeis/server/internal/domain/scores"
	"github.com/ifeis/server/internal/domain/stages"
	"github.com/ifeis/server/internal/email"
	"github.com/ifeis/server/internal/jobs"
	"github.com/ifeis/server/internal/metrics"
	"github.com/ifeis/server/internal/payments/stripe"
	"github.com/ifeis/server/internal/storage/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/rs/zerolog"
)

// Router is the HTTP handler plus the River client whose workers serve the
// jobs the handlers enqueue. The caller starts and stops the client.
type Router struct {
	Handler     http.Handler
	RiverClient *river.Client[pgx.Tx]
}

func NewRouter(cfg config.Config, logger zerolog.Logger, pool *pgxpool.Pool, version, gitCommit, buildDate string) (*Router, error) {
	repo, err := postgres.NewRepository(pool)
	if err != nil {
		return nil, fmt.Errorf("repository init: %w", err)
	}

	policy := jobs.NewRetryPolicy(cfg.Jobs)
	queue := jobs.NewQueue(policy)

	mailer, err := email.NewService(cfg.Email, cfg.Server.BaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("email init: %w", err)
	}
	stripeClient := stripe.NewClient(cfg.Stripe)

	accountService := accounts.NewService(repo.Accounts(), queue, logger)
	catalogService := catalog.NewService(repo.Catalog())
	grantService := grants.NewService(repo.Grants(), accountService, logger)
	paymentService := payments.NewService(repo.Payments(), stripeClient, logger)
	feisService := feiseanna.NewService(repo.Feiseanna(), accountService, paymentService, queue, logger)
	eventService := events.NewService(repo.Events(), queue, logger)
	stageService := stages.NewService(repo.Stages(), logger)
	scoreService := scores.NewService(repo.Scores(), logger)
	registrationService := registrations.NewService(repo.Registrations(), logger)
	resourceService := resources.NewService(repo.Resources())
	leadService := leads.NewService(repo.Leads(), accountService, queue, cfg.Email.ContactTo, logger)

	workers := jobs.NewWorkers(jobs.Dependencies{
		Sender:        mailer,
		Placements:    scoreService,
		Invitations:   feisService,
		ReminderAfter: cfg.Jobs.ReminderAfter,
		Logger:        logger,
	})
	riverClient, err := jobs.NewClient(pool, workers, policy, jobs.NewLogger(cfg.Logging.Level),
		[]rivertype.Hook{metrics.NewRiverMetricsHook()}, jobs.NewPeriodicJobs())
	if err != nil {
		return nil, fmt.Errorf("river client: %w", err)
	}
	queue.Attach(riverClient)

	secret := []byte(cfg.Auth.SessionSecret)
	sessionKey, err := auth.DeriveSessionKey(secret)
	if err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	csrfKey, err := auth.DeriveCSRFKey(secret)
	if err != nil {
		return nil, fmt.Errorf("derive csrf key: %w", err)
	}
	sessions := auth.NewSessionManager(sessionKey, cfg.Auth.SessionExpiry, cfg.Server.BaseURL)

	google := oauth.NewGoogleClient(oauth.GoogleConfig{
		ClientID:     cfg.OAuth.GoogleClientID,
		ClientSecret: cfg.OAuth.GoogleClientSecret,
		CallbackURL:  cfg.Server.BaseURL + "/login/google/callback",
	})
	cookie := handlers.CookieSettings{
		Name:   cfg.Auth.CookieName,
		Secure: cfg.Auth.CookieSecure,
		Expiry: cfg.Auth.SessionExpiry,
	}
	env := cfg.Environment

	mux := Routes(Handlers{
		Health:        handlers.NewHealthChecker(pool, true, version, gitCommit),
		Auth:          handlers.NewAuthHandler(google, accountService, sessions, cookie, env, logger),
		Accounts:      handlers.NewAccountsHandler(accountService, paymentService, feisService, feisService, grantService, env),
		Catalog:       handlers.NewCatalogHandler(catalogService, env),
		Leads:         handlers.NewLeadsHandler(leadService, env),
		Stripe:        handlers.NewStripeHandler(stripeClient, accountService, grantService, cfg.Server.BaseURL, env, logger),
		Feiseanna:     handlers.NewFeiseannaHandler(feisService, grantService, catalogService, eventService, env),
		Resources:     handlers.NewResourcesHandler(resourceService, env),
		Payments:      handlers.NewPaymentsHandler(paymentService, env),
		Registrations: handlers.NewRegistrationsHandler(registrationService, accountService, env),
		Stages:        handlers.NewStagesHandler(stageService, env),
		Events:        handlers.NewEventsHandler(eventService, env),
		Scores:        handlers.NewScoresHandler(scoreService, env),
		Guard:         middleware.NewFeisGuard(feisService, grantService, env),
		Audit:         audit.NewLogger(logger),
		Version:       version,
		GitCommit:     gitCommit,
		BuildDate:     buildDate,
		DevLogin:      cfg.IsDevelopment(),
		Env:           env,
	})

	handler := Chain(metrics.RecordRoute(mux),
		middleware.Tracing,
		middleware.CorrelationID(logger),
		middleware.RequestLogging(logger),
		metrics.HTTPMiddleware,
		middleware.SecurityHeaders(cfg.Auth.CookieSecure),
		middleware.RateLimit(cfg.RateLimit, cfg.Auth.CookieName, env),
		middleware.RequestSize(middleware.DefaultMaxBodySize, env),
		middleware.Sessions(sessions, cfg.Auth.CookieName, cfg.Auth.CookieSecure, env),
		middleware.CSRFProtection(csrfKey, cfg.Auth.CookieSecure, env),
	)

	return &Router{Handler: handler, RiverClient: riverClient}, nil
}
