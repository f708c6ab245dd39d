package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"satnam/internal/backend"
	"satnam/internal/cli"
	jwttoken "satnam/internal/jwt_token"
	"satnam/internal/nfc"
	"satnam/internal/onboarding/attestation"
	"satnam/internal/onboarding/card"
	"satnam/internal/onboarding/handler"
	"satnam/internal/onboarding/metrics"
	"satnam/internal/onboarding/secrets"
	"satnam/internal/onboarding/service"
	"satnam/internal/onboarding/store"
	"satnam/internal/onboarding/wallet"
	"satnam/internal/platform/config"
	platformredis "satnam/internal/platform/redis"
	"satnam/internal/relay"
	id "satnam/pkg/domain"
	"satnam/pkg/platform/audit"
	"satnam/pkg/platform/audit/store/kafka"
	auditmemory "satnam/pkg/platform/audit/store/memory"
	"satnam/pkg/platform/audit/worker"
	"satnam/pkg/platform/circuit"
)

// app is one wired onboarding process.
type app struct {
	cfg         config.Config
	logger      *slog.Logger
	coordinator id.UserID
	tokens      *jwttoken.JWTService
	registry    *prometheus.Registry
	service     *service.Service
	health      handler.Health
	background  []func(context.Context) error
	closers     []func()
}

func coordinatorFromConfig(cfg config.Config) (id.UserID, error) {
	if cfg.CoordinatorID == "" {
		return id.UserID{}, fmt.Errorf("SATNAM_COORDINATOR_ID is required")
	}
	uid, err := id.ParseUserID(cfg.CoordinatorID)
	if err != nil {
		return id.UserID{}, fmt.Errorf("SATNAM_COORDINATOR_ID: %w", err)
	}
	return uid, nil
}

func newTokens(cfg config.Config) *jwttoken.JWTService {
	return jwttoken.NewJWTService(cfg.Backend.JWTSigningKey, cfg.Backend.JWTIssuer, cfg.Backend.JWTAudience, cfg.Backend.TokenTTL)
}

// newApp connects every dependency. lines is the console input; the card
// reader shares it unless a dedicated device is configured.
func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger, lines *nfc.ReaderSource) (_ *app, err error) {
	coordinator, err := coordinatorFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:         cfg,
		logger:      logger,
		coordinator: coordinator,
		tokens:      newTokens(cfg),
		registry:    prometheus.NewRegistry(),
		health:      handler.Health{},
	}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(a.registry)

	sessions, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	auditSink, err := a.openAudit(ctx)
	if err != nil {
		return nil, err
	}
	queue := worker.NewWorker(auditSink, cfg.Audit.QueueSize, logger)
	a.background = append(a.background, queue.Run)

	client := backend.New(cfg.Backend.BaseURL,
		backend.WithTimeout(cfg.Backend.Timeout),
		backend.WithTokenSource(a.tokens),
		backend.WithLogger(logger),
		backend.WithMetrics(m),
		backend.WithBreaker(circuit.New("backend")),
	)

	scanner, err := a.cardReader(lines)
	if err != nil {
		return nil, err
	}
	cards := card.New(scanner, client,
		card.WithScanTimeout(cfg.NFC.ScanTimeout),
		card.WithLogger(logger),
	)
	wallets := wallet.New(client, cfg.Onboarding.PlatformDomain, wallet.WithLogger(logger))
	pipeline := attestation.New(client, cfg.Onboarding.Relays,
		attestation.WithLogger(logger),
		attestation.WithMetrics(m),
		attestation.WithMaxAttempts(cfg.Onboarding.AttestationMaxAttempts),
	)
	display := secrets.NewManager(
		secrets.WithWindow(cfg.Onboarding.SecretDisplayWindow),
		secrets.WithLogger(logger),
		secrets.WithMetrics(m),
	)

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithMetrics(m),
		service.WithAuditPublisher(audit.NewPublisher(queue)),
		service.WithPlatformDomain(cfg.Onboarding.PlatformDomain),
		service.WithSecretLifetime(cfg.Onboarding.SecretDisplayWindow),
	}
	if cfg.CoordinatorNsec != "" {
		pub, err := relay.New([]byte(cfg.CoordinatorNsec), cfg.Onboarding.Relays, relay.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("relay publisher: %w", err)
		}
		logger.Info("session summaries will be published", "coordinator_pubkey", pub.PublicKey())
		opts = append(opts, service.WithSummaryPublisher(pub))
	}

	a.service = service.New(sessions, cards, wallets, pipeline, display, opts...)
	return a, nil
}

func (a *app) openStore(ctx context.Context) (service.SessionStore, error) {
	switch a.cfg.Store.Driver {
	case config.StoreMemory:
		a.logger.Warn("sessions are kept in memory and lost on exit")
		return store.NewInMemory(), nil
	case config.StoreRedis:
		rc, err := platformredis.New(ctx, a.cfg.Redis)
		if err != nil {
			return nil, err
		}
		if rc == nil {
			return nil, fmt.Errorf("SATNAM_REDIS_URL is required for the redis store")
		}
		a.health["redis"] = rc.Health
		a.closers = append(a.closers, func() { _ = rc.Close() })
		return store.NewRedis(rc.Client, store.WithKeyPrefix(a.cfg.Store.KeyPrefix)), nil
	case config.StorePostgres:
		db, err := store.OpenPostgres(ctx, a.cfg.Store.PostgresDSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		if err := store.Migrate(ctx, db); err != nil {
			return nil, err
		}
		a.health["postgres"] = db.PingContext
		return store.NewPostgres(db), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", a.cfg.Store.Driver)
}

func (a *app) openAudit(ctx context.Context) (audit.Store, error) {
	if len(a.cfg.Audit.KafkaBrokers) == 0 {
		return auditmemory.NewInMemoryStore(), nil
	}
	ks, err := kafka.New(a.cfg.Audit.KafkaBrokers, a.cfg.Audit.KafkaTopic)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, ks.Close)
	if err := ks.EnsureTopic(ctx, 1, 1); err != nil {
		return nil, err
	}
	a.health["kafka"] = ks.Health
	return ks, nil
}

func (a *app) cardReader(lines *nfc.ReaderSource) (*nfc.Wedge, error) {
	if a.cfg.NFC.Device == "" {
		return nfc.NewWedge(lines, a.logger), nil
	}
	f, err := os.Open(a.cfg.NFC.Device)
	if err != nil {
		return nil, fmt.Errorf("open card reader: %w", err)
	}
	a.closers = append(a.closers, func() { _ = f.Close() })
	return nfc.NewWedge(nfc.NewReaderSource(f), a.logger), nil
}

func (a *app) wizard(con *cli.Console, metadata map[string]string) *cli.Wizard {
	return cli.NewWizard(a.service, con, a.coordinator,
		cli.WithWizardLogger(a.logger),
		cli.WithSessionMetadata(metadata),
	)
}

// close wipes in-memory secrets and releases connections, newest first.
func (a *app) close() {
	if a.service != nil {
		a.service.Shutdown(context.Background())
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
