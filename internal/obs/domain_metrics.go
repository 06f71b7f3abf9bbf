package obs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	domainOnce sync.Once

	// QuoteTotal counts landed-price calculations by surface, province and outcome.
	QuoteTotal *prometheus.CounterVec
	// CatalogFetchTotal counts catalog reads by operation, source and outcome.
	CatalogFetchTotal *prometheus.CounterVec
	// DepositSessionTotal counts checkout session creation outcomes.
	DepositSessionTotal *prometheus.CounterVec
	// RateLimitedTotal counts requests rejected by a rate limit, by scope.
	RateLimitedTotal *prometheus.CounterVec
	// ChargeTableReloadTotal counts charge table reload attempts.
	ChargeTableReloadTotal *prometheus.CounterVec
	// ChargeTableProvinces reports how many province labels the active table carries.
	ChargeTableProvinces prometheus.Gauge
	// ChargeTableLoadedAt is the unix time of the last successful table swap.
	ChargeTableLoadedAt prometheus.Gauge

	quoteHistOnce sync.Once
	quoteHist     metric.Float64Histogram
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuoteTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_total",
			Help:      "Count of landed price calculations by outcome.",
		}, []string{"kind", "province", "result"})
		CatalogFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_fetch_total",
			Help:      "Count of catalog reads by operation, source and outcome.",
		}, []string{"operation", "source", "result"})
		DepositSessionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deposit_session_total",
			Help:      "Count of deposit checkout session creations by outcome.",
		}, []string{"provider", "result"})
		RateLimitedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected with 429 by limiter scope.",
		}, []string{"scope"})
		ChargeTableReloadTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "charge_table_reload_total",
			Help:      "Count of charge table reload attempts by source and outcome.",
		}, []string{"source", "result"})
		ChargeTableProvinces = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "charge_table_provinces",
			Help:      "Number of province labels in the active charge table.",
		})
		ChargeTableLoadedAt = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "charge_table_loaded_timestamp_seconds",
			Help:      "Unix time of the last successful charge table swap.",
		})

		mustRegisterCollector(reg, QuoteTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuoteTotal = v
			}
		})
		mustRegisterCollector(reg, CatalogFetchTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CatalogFetchTotal = v
			}
		})
		mustRegisterCollector(reg, DepositSessionTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				DepositSessionTotal = v
			}
		})
		mustRegisterCollector(reg, RateLimitedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				RateLimitedTotal = v
			}
		})
		mustRegisterCollector(reg, ChargeTableReloadTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ChargeTableReloadTotal = v
			}
		})
		mustRegisterCollector(reg, ChargeTableProvinces, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Gauge); ok {
				ChargeTableProvinces = v
			}
		})
		mustRegisterCollector(reg, ChargeTableLoadedAt, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Gauge); ok {
				ChargeTableLoadedAt = v
			}
		})
	})
}

// ObserveQuote counts a calculation. Safe to call before registration.
func ObserveQuote(kind, province, result string) {
	if QuoteTotal == nil {
		return
	}
	QuoteTotal.WithLabelValues(kind, province, result).Inc()
}

// ObserveCatalogFetch counts a catalog read.
func ObserveCatalogFetch(operation, source, result string) {
	if CatalogFetchTotal == nil {
		return
	}
	CatalogFetchTotal.WithLabelValues(operation, source, result).Inc()
}

// ObserveDepositSession counts a checkout session attempt.
func ObserveDepositSession(provider, result string) {
	if DepositSessionTotal == nil {
		return
	}
	DepositSessionTotal.WithLabelValues(provider, result).Inc()
}

// ObserveRateLimited counts a 429.
func ObserveRateLimited(scope string) {
	if RateLimitedTotal == nil {
		return
	}
	RateLimitedTotal.WithLabelValues(scope).Inc()
}

// ObserveChargeTableReload counts a reload attempt. On success provinces and the
// load timestamp are updated too.
func ObserveChargeTableReload(source, result string, provinces int) {
	if ChargeTableReloadTotal == nil {
		return
	}
	ChargeTableReloadTotal.WithLabelValues(source, result).Inc()
	if result != "success" {
		return
	}
	ChargeTableProvinces.Set(float64(provinces))
	ChargeTableLoadedAt.Set(float64(time.Now().Unix()))
}

// RecordQuoteAmount records a computed landed total on the OpenTelemetry meter.
func RecordQuoteAmount(ctx context.Context, kind, province string, total float64) {
	quoteHistOnce.Do(func() {
		h, err := otel.Meter("github.com/shipgrid/backend-import/quote").Float64Histogram(
			"landed.quote.total",
			metric.WithDescription("Landed totals returned to callers."),
			metric.WithUnit("CAD"),
		)
		if err == nil {
			quoteHist = h
		}
	})
	if quoteHist == nil {
		return
	}
	quoteHist.Record(ctx, total, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("province", province),
	))
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
