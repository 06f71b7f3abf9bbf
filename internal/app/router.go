package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shipgrid/backend-import/internal/catalog"
	"github.com/shipgrid/backend-import/internal/contact"
	"github.com/shipgrid/backend-import/internal/common"
	"github.com/shipgrid/backend-import/internal/deposit"
	"github.com/shipgrid/backend-import/internal/health"
	"github.com/shipgrid/backend-import/internal/obs"
	"github.com/shipgrid/backend-import/internal/quote"
	"github.com/shipgrid/backend-import/internal/ratelimit"
	"github.com/shipgrid/backend-import/internal/security"
)

// RouterOptions toggles optional middleware.
type RouterOptions struct {
	Tracing bool
	// Gatherer serves /metrics. Nil uses the default gatherer.
	Gatherer prometheus.Gatherer
}

// Router builds the HTTP surface.
func Router(d *Dependencies, opts RouterOptions) http.Handler {
	cfg := d.Config
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if opts.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	r.Use(obs.HTTPObs{Metrics: d.HTTPMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.AppEnv == "production"}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg.CORSAllowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: security.CORSHeaders,
		ExposedHeaders: security.CORSExposed,
		MaxAge:         300,
	}))

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	healthHandler := health.Handler{
		Checkers: readinessCheckers(d),
		Timeout:  cfg.ReadinessTimeout,
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	catalogHandler := catalog.NewHandler(catalog.HandlerConfig{Service: d.Catalog})
	quoteHandler := quote.NewHandler(d.Quotes, d.Validator)
	depositHandler := &deposit.Handler{Svc: d.Deposits}
	contacts := contact.NewBuilder(d.ContactSettings)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)
		v.Use(d.GlobalLimiter.Middleware)

		catalogHandler.Routes(v)
		quoteHandler.Routes(v)
		v.Get("/contact", func(w http.ResponseWriter, _ *http.Request) {
			common.JSON(w, http.StatusOK, map[string]any{"data": contacts.General()})
		})

		depositLimit := d.DepositLimiter.Middleware(ratelimit.Rule{
			Scope:  "deposit",
			Key:    ratelimit.ByClientIP("deposit"),
			Window: cfg.Limits.DepositWindow,
			Max:    cfg.Limits.DepositPerMin,
		}, d.Logger)
		depositHandler.Routes(v, depositLimit, d.Idempotency.Middleware)
	})
	return r
}

func readinessCheckers(d *Dependencies) []health.Checker {
	return []health.Checker{
		health.CheckFunc{Label: "redis", Fn: func(ctx context.Context) error {
			return d.Redis.Ping(ctx).Err()
		}},
		health.CheckFunc{Label: "catalog", Fn: d.CatalogClient.Ping},
		health.CheckFunc{Label: "charge_table", Fn: func(context.Context) error {
			if d.Tables.Load() == nil {
				return errors.New("charge table not loaded")
			}
			return nil
		}},
	}
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
