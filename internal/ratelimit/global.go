package ratelimit

import (
	"fmt"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/shipgrid/backend-import/internal/common"
)

// GlobalConfig configures the per-IP limit applied to every API route.
type GlobalConfig struct {
	// Rate uses the limiter formatted notation, e.g. "120-M".
	Rate   string
	Prefix string
	Logger zerolog.Logger
}

// Global is a fixed-window per-IP limiter stored in Redis.
type Global struct {
	limiter *limiter.Limiter
	logger  zerolog.Logger
}

// NewGlobal builds a Global limiter from cfg.
func NewGlobal(rdb *redis.Client, cfg GlobalConfig) (*Global, error) {
	rate, err := limiter.NewRateFromFormatted(cfg.Rate)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: parse rate %q: %w", cfg.Rate, err)
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "ratelimit:global"
	}
	store, err := limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: prefix})
	if err != nil {
		return nil, fmt.Errorf("ratelimit: redis store: %w", err)
	}
	return &Global{limiter: limiter.New(store, rate), logger: cfg.Logger}, nil
}

// Middleware rejects requests over the limit with 429. Store errors let the
// request through.
func (g *Global) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g == nil || g.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		lctx, err := g.limiter.Get(r.Context(), common.ClientIP(r))
		if err != nil {
			g.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("rate_limit_store_error")
			next.ServeHTTP(w, r)
			return
		}
		reset := time.Unix(lctx.Reset, 0)
		writeHeaders(w, int(lctx.Limit), int(lctx.Remaining), reset)
		if lctx.Reached {
			reject(w, "global", reset)
			return
		}
		next.ServeHTTP(w, r)
	})
}
