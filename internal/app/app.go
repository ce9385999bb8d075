package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/do/v2"

	"transcript-restream-service/internal/config"
	"transcript-restream-service/internal/events"
	"transcript-restream-service/internal/observability/logging"
	"transcript-restream-service/internal/observability/metrics"
	"transcript-restream-service/internal/service/replay"
	"transcript-restream-service/internal/service/session"
	"transcript-restream-service/internal/service/sink/livepush"
	"transcript-restream-service/internal/transcript"
	"transcript-restream-service/internal/webhook"
)

// ErrNotStarted is reported by Ready before Start has run.
var ErrNotStarted = errors.New("application not started")

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Config
	Injector    do.Injector

	Registry  *session.Registry
	Loader    *transcript.Loader
	Scheduler *replay.Scheduler
	LivePush  *livepush.Server
	Webhook   *webhook.Client
	Publisher *events.Publisher

	stopReaper context.CancelFunc
}

// New wires the dependency graph for cfg. The global logger must already be initialised.
func New(cfg *config.Config) (*Application, error) {
	injector := do.New()
	do.ProvideValue(injector, cfg)
	session.RegisterDI(injector)
	transcript.RegisterDI(injector)
	events.RegisterDI(injector)
	webhook.RegisterDI(injector)
	replay.RegisterDI(injector)
	livepush.RegisterDI(injector)

	a := &Application{
		Cfg:      cfg,
		Injector: injector,
		Logger: logging.WithComponent("application").With().
			Str("service", cfg.Service.Name).
			Logger(),
	}

	var err error
	if a.Registry, err = do.Invoke[*session.Registry](injector); err != nil {
		return nil, err
	}
	if a.Loader, err = do.Invoke[*transcript.Loader](injector); err != nil {
		return nil, err
	}
	if a.Publisher, err = do.Invoke[*events.Publisher](injector); err != nil {
		return nil, err
	}
	if a.Webhook, err = do.Invoke[*webhook.Client](injector); err != nil {
		return nil, err
	}
	if a.Scheduler, err = do.Invoke[*replay.Scheduler](injector); err != nil {
		return nil, err
	}
	if a.LivePush, err = do.Invoke[*livepush.Server](injector); err != nil {
		return nil, err
	}

	a.Logger.Info().
		Str("transcriptDir", a.Loader.Dir()).
		Bool("kafka", a.Publisher.Enabled()).
		Msg("Transcript restream application created")
	return a, nil
}

// Start performs any startup work required before serving traffic.
func (a *Application) Start() error {
	startLogger := a.Logger.With().
		Str("method", "Start").
		Logger()

	a.StartupTime = time.Now().UTC()

	ctx, cancel := context.WithCancel(context.Background())
	a.stopReaper = cancel
	go a.Registry.Reap(ctx, a.Cfg.Session.PendingTTL, func(string) {
		metrics.DefaultMetrics.RecordSessionExpired()
	})

	startLogger.Info().
		Time("startupTime", a.StartupTime).
		Dur("pendingTTL", a.Cfg.Session.PendingTTL).
		Msg("Transcript restream service starting")
	return nil
}

// Ready reports whether the service can accept traffic.
func (a *Application) Ready() error {
	if a.StartupTime.IsZero() {
		return ErrNotStarted
	}
	return nil
}

// Shutdown stops background sessions and closes outbound connections.
func (a *Application) Shutdown(ctx context.Context) {
	shutdownLogger := a.Logger.With().
		Str("method", "Shutdown").
		Logger()

	shutdownLogger.Info().Int("sessions", a.Registry.Len()).Msg("Transcript restream service shutting down")

	if a.stopReaper != nil {
		a.stopReaper()
	}
	if err := a.LivePush.Shutdown(ctx); err != nil {
		shutdownLogger.Warn().Err(err).Msg("Live-push connections did not finish in time")
	}
	if err := a.Scheduler.Shutdown(ctx); err != nil {
		shutdownLogger.Warn().Err(err).Msg("Background sessions did not finish in time")
	}
	if err := a.Publisher.Close(); err != nil {
		shutdownLogger.Warn().Err(err).Msg("Kafka publisher close failed")
	}
}
