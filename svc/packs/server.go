package packs

import (
	"context"
	"fmt"

	"github.com/go-chi/chi/v5"

	"github.com/packwise/packwise/pkg/billing"
	"github.com/packwise/packwise/pkg/catalog"
	"github.com/packwise/packwise/pkg/config"
	"github.com/packwise/packwise/pkg/email"
	"github.com/packwise/packwise/pkg/httpserver"
	"github.com/packwise/packwise/pkg/ledger"
	"github.com/packwise/packwise/pkg/logger"
	"github.com/packwise/packwise/pkg/pg"
	"github.com/packwise/packwise/pkg/redis"
	"github.com/packwise/packwise/pkg/transition"
)

// RunOption configures the composed service.
type RunOption func(*runConfig)

type runConfig struct {
	resolveEmail EmailResolver
}

// WithReceipts enables receipt emails for confirmed payments. The resolver
// maps user IDs to addresses; user accounts are owned by the host
// application, not this service.
func WithReceipts(resolve EmailResolver) RunOption {
	return func(c *runConfig) { c.resolveEmail = resolve }
}

// Run wires configuration, storage, provider, and HTTP transport together
// and blocks until the context is cancelled or the server stops.
//
// All configuration is read from the environment (see the Config structs of
// pkg/pg, pkg/redis, pkg/httpserver, pkg/billing, and this package). The
// tier catalog is supplied by the caller since pack definitions are product
// configuration, not service code.
func Run(ctx context.Context, src catalog.TierSource, opts ...RunOption) error {
	var rc runConfig
	for _, opt := range opts {
		opt(&rc)
	}

	var svcCfg Config
	if err := config.Load(&svcCfg); err != nil {
		return fmt.Errorf("load service config: %w", err)
	}

	log := logger.New(logger.WithEnvironment(svcCfg.Environment, svcCfg.ServiceName))
	logger.SetAsDefault(log)

	cat, err := catalog.New(ctx, src)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	var pgCfg pg.Config
	if err := config.Load(&pgCfg); err != nil {
		return fmt.Errorf("load pg config: %w", err)
	}
	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	var redisCfg redis.Config
	if err := config.Load(&redisCfg); err != nil {
		return fmt.Errorf("load redis config: %w", err)
	}
	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() { _ = redisClient.Close() }()

	var paddleCfg billing.PaddleConfig
	if err := config.Load(&paddleCfg); err != nil {
		return fmt.Errorf("load paddle config: %w", err)
	}
	provider, err := billing.NewPaddleProvider(paddleCfg)
	if err != nil {
		return fmt.Errorf("init billing provider: %w", err)
	}

	store := NewPGStore(pool)
	recorder := ledger.NewRecorder(NewPGLedger(pool))
	guard := transition.NewRedisReplayGuard(redisClient, svcCfg.WebhookReplayTTL)

	notifierOpts := []NotifierOption{
		WithEventWebhook(svcCfg.EventWebhookURL, svcCfg.EventWebhookSecret),
		WithNotifierLogger(log),
	}
	if rc.resolveEmail != nil {
		var emailCfg email.Config
		if err := config.Load(&emailCfg); err != nil {
			return fmt.Errorf("load email config: %w", err)
		}
		sender, err := email.NewPostmarkClient(emailCfg)
		if err != nil {
			return fmt.Errorf("init email sender: %w", err)
		}
		notifierOpts = append(notifierOpts, WithReceiptEmail(sender, rc.resolveEmail))
	}
	notifier := NewChangeNotifier(notifierOpts...)

	svc := transition.NewService(cat, provider, store,
		transition.WithLogger(log),
		transition.WithCheckoutTTL(svcCfg.CheckoutTTL),
	)
	confirmer := transition.NewConfirmer(cat, provider, store, recorder,
		transition.WithReplayGuard(guard),
		transition.WithNotifier(notifier),
		transition.WithConfirmerLogger(log),
	)

	r := chi.NewRouter()
	r.Get("/healthz", httpserver.HealthCheckHandler(ctx, log,
		pg.Healthcheck(pool),
		redis.Healthcheck(redisClient),
	))
	r.Mount("/", Router(svc, confirmer, cat, log))

	var httpCfg httpserver.Config
	if err := config.Load(&httpCfg); err != nil {
		return fmt.Errorf("load http config: %w", err)
	}

	srv := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log))
	return srv.Run(ctx, r)
}
