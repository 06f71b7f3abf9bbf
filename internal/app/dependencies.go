package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/shipgrid/backend-import/internal/cache"
	"github.com/shipgrid/backend-import/internal/catalog"
	"github.com/shipgrid/backend-import/internal/chargeconfig"
	"github.com/shipgrid/backend-import/internal/common"
	"github.com/shipgrid/backend-import/internal/config"
	"github.com/shipgrid/backend-import/internal/contact"
	"github.com/shipgrid/backend-import/internal/deposit"
	"github.com/shipgrid/backend-import/internal/obs"
	"github.com/shipgrid/backend-import/internal/pricing"
	"github.com/shipgrid/backend-import/internal/quote"
	"github.com/shipgrid/backend-import/internal/ratelimit"
	"github.com/shipgrid/backend-import/internal/resilience"
)

// Dependencies enumerates the services shared by the HTTP surface.
type Dependencies struct {
	Config          *config.Config
	Logger          zerolog.Logger
	Redis           *redis.Client
	Validator       *validator.Validate
	Registry        prometheus.Registerer
	HTTPMetrics     *obs.HTTPMetrics
	Tables          *pricing.TableHolder
	Reloader        *chargeconfig.Reloader
	CatalogClient   *catalog.Client
	Catalog         *catalog.Service
	Quotes          *quote.Service
	Deposits        *deposit.Service
	GlobalLimiter   *ratelimit.Global
	DepositLimiter  ratelimit.Limiter
	Idempotency     common.Idem
	ContactSettings contact.Settings
}

// NewRedis parses url, instruments the client with OpenTelemetry and pings it.
func NewRedis(ctx context.Context, url string, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisotel.InstrumentMetrics(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis metrics")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewUpstreamClient builds the retrying, circuit-broken client for one target.
func NewUpstreamClient(cfg config.UpstreamConfig, target string, logger zerolog.Logger) resilience.HTTPClient {
	breaker := resilience.NewBreaker(cfg.BreakerMinCalls, cfg.BreakerRatio, cfg.BreakerOpenFor).
		WithTarget(target).
		WithLogger(logger)
	return resilience.HTTPClient{
		Client:      resilience.NewInstrumentedClient(cfg.Timeout),
		Breaker:     breaker,
		Target:      target,
		Logger:      logger,
		BaseBackoff: cfg.BaseBackoff,
		MaxAttempts: cfg.MaxAttempts,
		Jitter:      cfg.Jitter,
		Timeout:     cfg.Timeout,
	}
}

// NewChargeSource picks the HTTP source when a URL is configured, otherwise the file.
func NewChargeSource(cfg *config.Config, c *cache.Cache, logger zerolog.Logger) chargeconfig.Source {
	if cfg.ChargeTableURL != "" {
		return chargeconfig.HTTPSource{
			URL:    cfg.ChargeTableURL,
			HTTP:   NewUpstreamClient(cfg.Upstream, "charge_table", logger),
			Cache:  c,
			Logger: logger,
		}
	}
	return chargeconfig.FileSource{Path: cfg.ChargeTablePath}
}

// New wires every service from cfg. rdb must already be connected. A nil
// registry uses the default Prometheus registerer.
func New(cfg *config.Config, logger zerolog.Logger, rdb *redis.Client, reg prometheus.Registerer) (*Dependencies, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	if rdb == nil {
		return nil, errors.New("app: redis client is required")
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, reg)

	d := &Dependencies{
		Config:      cfg,
		Logger:      logger,
		Redis:       rdb,
		Validator:   common.NewValidator(),
		Registry:    reg,
		HTTPMetrics: obs.NewHTTPMetrics(cfg.MetricsNamespace, obs.ParseBucketsCSV(cfg.HTTPBucketsMS), reg),
		Tables:      pricing.NewTableHolder(nil),
		Idempotency: common.Idem{R: rdb, TTL: cfg.IdempotencyTTL},
		DepositLimiter: ratelimit.Limiter{
			Client: rdb,
			Prefix: "ratelimit:",
		},
		ContactSettings: contact.Settings{
			WhatsAppNumber: cfg.Contact.WhatsAppNumber,
			SchedulingURL:  cfg.Contact.SchedulingURL,
			Email:          cfg.Contact.Email,
			Phone:          cfg.Contact.Phone,
			ContactName:    cfg.Contact.ContactName,
		},
	}

	d.Reloader = &chargeconfig.Reloader{
		Source:   NewChargeSource(cfg, cache.New(rdb, 0, ""), logger),
		Holder:   d.Tables,
		Interval: cfg.ChargeTableReloadInterval,
		Logger:   logger.With().Str("component", "charge_table").Logger(),
	}

	catalogClient, err := catalog.NewClient(catalog.ClientConfig{
		BaseURL: cfg.CatalogBaseURL,
		HTTP:    NewUpstreamClient(cfg.Upstream, "catalog", logger),
		Cache:   cache.New(rdb, cfg.CatalogCacheTTL, ""),
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	d.CatalogClient = catalogClient

	calc := pricing.NewCalculator(d.Tables)
	contacts := contact.NewBuilder(d.ContactSettings)
	defaultProvince, err := pricing.ParseProvince(cfg.DefaultProvince)
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_PROVINCE: %w", err)
	}

	d.Catalog, err = catalog.NewService(catalog.ServiceConfig{
		Source:          catalogClient,
		Calculator:      calc,
		Contacts:        contacts,
		DefaultProvince: defaultProvince,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}

	d.Quotes, err = quote.NewService(calc, logger)
	if err != nil {
		return nil, err
	}

	d.Deposits, err = deposit.NewService(deposit.Config{
		Provider: deposit.Stripe{
			SecretKey: cfg.Deposit.StripeSecretKey,
			BaseURL:   cfg.Deposit.StripeBaseURL,
			HTTP:      NewUpstreamClient(cfg.Upstream, "stripe", logger),
		},
		Catalog:    catalogClient,
		Contacts:   contacts,
		AmountCAD:  cfg.Deposit.AmountCAD,
		Currency:   cfg.Deposit.Currency,
		SuccessURL: cfg.Deposit.SuccessURL,
		CancelURL:  cfg.Deposit.CancelURL,
		Logger:     logger.With().Str("component", "deposit").Logger(),
	})
	if err != nil {
		return nil, err
	}
	if cfg.Deposit.StripeSecretKey == "" {
		logger.Warn().Msg("STRIPE_SECRET_KEY not set; deposit checkout will fail")
	}

	d.GlobalLimiter, err = ratelimit.NewGlobal(rdb, ratelimit.GlobalConfig{
		Rate:   cfg.Limits.GlobalRate,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}
