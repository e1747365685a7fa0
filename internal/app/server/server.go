package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"hrflow/internal/domain/attendance"
	"hrflow/internal/domain/audit"
	"hrflow/internal/domain/auth"
	"hrflow/internal/domain/calendar"
	"hrflow/internal/domain/employee"
	"hrflow/internal/domain/leave"
	"hrflow/internal/domain/notifications"
	platformaws "hrflow/internal/platform/aws"
	"hrflow/internal/platform/config"
	"hrflow/internal/platform/crypto"
	"hrflow/internal/platform/db"
	"hrflow/internal/platform/email"
	"hrflow/internal/platform/events"
	"hrflow/internal/platform/jobs"
	"hrflow/internal/platform/metrics"
	"hrflow/internal/platform/telemetry"
	"hrflow/internal/transport/http/api"
	attendancehandler "hrflow/internal/transport/http/handlers/attendance"
	audithandler "hrflow/internal/transport/http/handlers/audit"
	authhandler "hrflow/internal/transport/http/handlers/auth"
	employeehandler "hrflow/internal/transport/http/handlers/employees"
	holidayhandler "hrflow/internal/transport/http/handlers/holidays"
	leavehandler "hrflow/internal/transport/http/handlers/leave"
	notificationshandler "hrflow/internal/transport/http/handlers/notifications"
	"hrflow/internal/transport/http/middleware"
	"hrflow/internal/transport/http/shared"
)

const serviceName = "hrflow"

// AuditService records and reads the audit trail.
type AuditService interface {
	shared.Auditor
	audithandler.Service
}

// Services is everything the router needs. Tests build it from fakes.
type Services struct {
	Auth          authhandler.Authenticator
	Employees     employeehandler.Service
	Directory     employeehandler.DirectoryRefresher
	Requests      leavehandler.Service
	Attendance    attendancehandler.Service
	Holidays      holidayhandler.Service
	Notifications notificationshandler.Service
	Audit         AuditService
	Idempotency   middleware.IdempotencyBackend
	Metrics       *metrics.Collector
	Ready         func(ctx context.Context) error
}

type App struct {
	Config   config.Config
	DB       *pgxpool.Pool
	Jobs     *jobs.Service
	Router   http.Handler
	shutdown []func(context.Context) error
}

// New connects to the database, prepares the schema and wires every service.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	app := &App{Config: cfg}
	fail := func(err error) (*App, error) {
		app.Close(ctx)
		return nil, err
	}

	shutdownTracer, err := telemetry.InitTracer(ctx, serviceName, cfg.OTELEndpoint)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	app.shutdown = append(app.shutdown, shutdownTracer)

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return fail(fmt.Errorf("db connect: %w", err))
	}
	app.DB = pool
	app.shutdown = append(app.shutdown, func(context.Context) error {
		pool.Close()
		return nil
	})

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			return fail(fmt.Errorf("migrations: %w", err))
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			return fail(fmt.Errorf("seed: %w", err))
		}
	}

	sealer, err := crypto.New(cfg.DataEncryptionKey)
	if err != nil {
		return fail(err)
	}

	var sesClient email.SESClient
	publisher := leave.EventPublisher(events.Noop{})
	if platformaws.Needed(cfg) {
		awsCfg, err := platformaws.LoadConfig(ctx, cfg)
		if err != nil {
			return fail(fmt.Errorf("aws config: %w", err))
		}
		if cfg.EmailProvider == config.EmailProviderSES {
			sesClient = ses.NewFromConfig(awsCfg)
		}
		if cfg.EventsQueueURL != "" {
			publisher = events.NewSQSPublisher(sqs.NewFromConfig(awsCfg), cfg.EventsQueueURL)
		}
		log.Info().Str("region", awsCfg.Region).Msg("aws clients configured")
	}

	app.Jobs = jobs.New(pool)
	collector := metrics.New()

	employeeStore := employee.NewStore(pool)
	directory := employee.NewDirectory(employeeStore)
	dirJobs := directoryJobs{jobs: app.Jobs, dir: directory}
	app.Jobs.Schedule(jobs.JobDirectoryRefresh, cfg.DirectoryRefreshInterval, dirJobs.refresh)

	notifier := notifications.New(notifications.NewStore(pool), email.New(cfg, sesClient), app.Jobs)
	leaveStore := leave.NewStore(pool)

	services := Services{
		Auth:          auth.NewService(auth.NewStore(pool), sealer, cfg.JWTSecret, cfg.TokenTTL, cfg.MFAIssuer),
		Employees:     employee.NewService(employeeStore, directory),
		Directory:     dirJobs,
		Requests:      leave.NewService(leaveStore, directory, notifier, publisher, collector),
		Attendance:    attendance.NewService(attendance.NewStore(pool), directory, leaveStore),
		Holidays:      calendar.NewService(calendar.NewStore(pool)),
		Notifications: notifier,
		Audit:         audit.New(pool),
		Idempotency:   middleware.NewIdempotencyStore(pool),
		Metrics:       collector,
		Ready:         pool.Ping,
	}
	app.Router = NewRouter(cfg, services)
	return app, nil
}

type cacheRefresher interface {
	Refresh(ctx context.Context) error
	LoadedAt() time.Time
}

// directoryJobs routes cache reloads through the job runner.
type directoryJobs struct {
	jobs *jobs.Service
	dir  cacheRefresher
}

func (d directoryJobs) RefreshDirectory(ctx context.Context) (any, error) {
	return d.jobs.RunNow(ctx, jobs.JobDirectoryRefresh, d.refresh)
}

func (d directoryJobs) refresh(ctx context.Context) (any, error) {
	if err := d.dir.Refresh(ctx); err != nil {
		return nil, err
	}
	return map[string]any{"loadedAt": d.dir.LoadedAt()}, nil
}

// NewRouter builds the HTTP surface. Every API route lives under /api/v1.
func NewRouter(cfg config.Config, s Services) http.Handler {
	var recorder middleware.StatusRecorder
	if s.Metrics != nil && cfg.MetricsEnabled {
		recorder = s.Metrics
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(recorder))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if s.Ready != nil {
			if err := s.Ready(ctx); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

		authhandler.NewHandler(s.Auth, s.Audit).RegisterRoutes(r)
		employeehandler.NewHandler(s.Employees, s.Directory, s.Audit).RegisterRoutes(r)
		leavehandler.NewHandler(s.Requests, s.Audit, s.Idempotency).RegisterRoutes(r)
		attendancehandler.NewHandler(s.Attendance, s.Audit).RegisterRoutes(r)
		holidayhandler.NewHandler(s.Holidays, s.Audit).RegisterRoutes(r)
		notificationshandler.NewHandler(s.Notifications).RegisterRoutes(r)
		if s.Audit != nil {
			audithandler.NewHandler(s.Audit).RegisterRoutes(r)
		}

		r.With(middleware.RequirePermission(auth.PermSystemMetrics)).Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			if s.Metrics == nil {
				api.Success(w, map[string]any{}, middleware.GetRequestID(r.Context()))
				return
			}
			api.Success(w, s.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	})

	return otelhttp.NewHandler(router, serviceName)
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	a.Jobs.Start(ctx)

	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", a.Config.Addr).Msg("hrflow server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			a.Close(context.Background())
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown failed")
	}
	a.Close(shutdownCtx)
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) {
	for i := len(a.shutdown) - 1; i >= 0; i-- {
		if err := a.shutdown[i](ctx); err != nil {
			log.Warn().Err(err).Msg("shutdown step failed")
		}
	}
	a.shutdown = nil
}
