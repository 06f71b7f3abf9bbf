package quote_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/shipgrid/backend-import/internal/obs"
	"github.com/shipgrid/backend-import/internal/pricing"
	"github.com/shipgrid/backend-import/internal/quote"
)

const table = `{
  "British Columbia": [
    {"label": "Shipping & Clearance", "value": 2500},
    {"label": "Import Duty", "value": 0.061},
    {"label": "Inspection", "value": 0}
  ],
  "Manitoba": [
    {"label": "PST", "value": 0.05}
  ]
}`

func init() {
	obs.MustRegisterDomainMetrics("quote_test", prometheus.NewRegistry())
}

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	tbl, err := pricing.DecodeChargeTable(strings.NewReader(table))
	require.NoError(t, err)
	svc, err := quote.NewService(pricing.NewCalculator(pricing.NewTableHolder(tbl)), zerolog.Nop())
	require.NoError(t, err)
	r := chi.NewRouter()
	r.Route("/api/v1", quote.NewHandler(svc, nil).Routes)
	return r
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestProvinces(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/provinces", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []quote.ProvinceInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 13)
	require.Equal(t, pricing.BC, resp.Data[0].Code)
	require.Equal(t, "British Columbia", resp.Data[0].Label)
	require.True(t, resp.Data[0].Configured)
	for _, p := range resp.Data {
		if p.Code != pricing.BC && p.Code != pricing.MB {
			require.False(t, p.Configured, p.Code)
		}
	}
}

func TestLandedQuote(t *testing.T) {
	rec := post(t, newRouter(t), "/api/v1/quotes", `{"basePrice": 100000, "province": "bc"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Total        string `json:"total"`
			TotalDisplay string `json:"totalDisplay"`
			Province     string `json:"province"`
			LineItems    []struct {
				Label  string `json:"label"`
				Kind   string `json:"kind"`
				IsFree bool   `json:"isFree"`
			} `json:"lineItems"`
			Lines []pricing.DisplayLine `json:"lines"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "108600", resp.Data.Total)
	require.Equal(t, "$108,600 CAD", resp.Data.TotalDisplay)
	require.Equal(t, "BC", resp.Data.Province)
	require.Len(t, resp.Data.LineItems, 3)
	require.True(t, resp.Data.LineItems[2].IsFree)
	require.Equal(t, "$6,100", resp.Data.Lines[1].Display)

	require.Equal(t, 1.0, testutil.ToFloat64(obs.QuoteTotal.WithLabelValues("landed", "BC", "success")))
}

func TestLandedQuoteRoundsHalfUp(t *testing.T) {
	rec := post(t, newRouter(t), "/api/v1/quotes", `{"basePrice": 79999.50, "province": "MB"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"total":"83999.48"`)
	require.Contains(t, rec.Body.String(), `"totalDisplay":"$83,999 CAD"`)
}

func TestLandedQuoteMissingProvince(t *testing.T) {
	rec := post(t, newRouter(t), "/api/v1/quotes", `{"basePrice": 50000, "province": "ON"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), `"code":"MISSING_PROVINCE_CONFIG"`)
}

func TestStandardQuote(t *testing.T) {
	rec := post(t, newRouter(t), "/api/v1/quotes/standard", `{"basePrice": 50000, "province": "ON"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"total":"69771.5"`)
	require.Contains(t, rec.Body.String(), `"hst":"7221.5"`)
}

func TestQuoteInvalidInput(t *testing.T) {
	cases := map[string]string{
		"negative":         `{"basePrice": -1, "province": "BC"}`,
		"missing price":    `{"province": "BC"}`,
		"missing province": `{"basePrice": 1000}`,
		"unknown province": `{"basePrice": 1000, "province": "ZZ"}`,
		"long province":    `{"basePrice": 1000, "province": "BCX"}`,
		"string price":     `{"basePrice": "lots", "province": "BC"}`,
		"not json":         `{"basePrice":`,
		"unknown field":    `{"basePrice": 1000, "province": "BC", "discount": 5}`,
	}
	router := newRouter(t)
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			for _, path := range []string{"/api/v1/quotes", "/api/v1/quotes/standard"} {
				rec := post(t, router, path, body)
				require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
				require.Contains(t, rec.Body.String(), `"code":"INVALID_INPUT"`)
			}
		})
	}
}

func TestQuoteValidationDetailsUseJSONNames(t *testing.T) {
	rec := post(t, newRouter(t), "/api/v1/quotes", `{"province": "BC"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), `"basePrice":"required"`)
}
