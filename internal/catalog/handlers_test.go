package catalog_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/shipgrid/backend-import/internal/cache"
	"github.com/shipgrid/backend-import/internal/catalog"
	"github.com/shipgrid/backend-import/internal/contact"
	"github.com/shipgrid/backend-import/internal/pricing"
	"github.com/shipgrid/backend-import/internal/resilience"
)

const upstreamCars = `[
  {"carId": "101", "make": "Porsche", "model": "911", "trim": "Carrera S", "year": 2021, "mileage": 12000,
   "price": 150000, "priceCad": 145000, "fuelType": "Gasoline",
   "carPhotos": [{"photoId": "p1", "carId": "101", "photoUrl": "https://img.example.com/101.jpg"}]},
  {"carId": "102", "make": "Hyundai", "model": "Genesis G80", "trim": "Sport", "year": 2019, "mileage": 54000,
   "price": "38000", "priceCad": 0, "fuelType": "gasoline", "carPhotos": []},
  {"carId": "103", "make": "Kia", "model": "EV6", "trim": "GT", "year": 2023, "mileage": 8000,
   "price": 61000, "priceCad": 60000, "fuelType": "Electric", "carPhotos": []},
  {"carId": "104", "make": "Mystery", "model": "Concept", "trim": "", "year": 2024, "mileage": 0,
   "price": 0, "priceCad": 0, "fuelType": "Electric", "carPhotos": []}
]`

type fixture struct {
	router   http.Handler
	upstream *atomic.Int32
	mr       *miniredis.Miniredis
}

func newFixture(t *testing.T, tableJSON string) fixture {
	t.Helper()
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/cars":
			_, _ = w.Write([]byte(upstreamCars))
		case "/cars/fetchRecommendedCars":
			_, _ = w.Write([]byte(`[{"carId": "103", "make": "Kia", "model": "EV6", "year": 2023, "priceCad": 60000}]`))
		case "/cars/101":
			_, _ = w.Write([]byte(`{"carId": "101", "make": "Porsche", "model": "911", "trim": "Carrera S", "year": 2021,
				"mileage": 12000, "price": 150000, "priceCad": 145000, "fuelType": "Gasoline", "carPhotos": []}`))
		case "/cars/104":
			_, _ = w.Write([]byte(`{"carId": "104", "make": "Mystery", "model": "Concept", "year": 2024, "price": 0}`))
		case "/cars/500":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(upstream.Close)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	client, err := catalog.NewClient(catalog.ClientConfig{
		BaseURL: upstream.URL,
		HTTP:    resilience.HTTPClient{Client: upstream.Client(), MaxAttempts: 1},
		Cache:   cache.New(rdb, time.Minute, "test:"),
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)

	table, err := pricing.DecodeChargeTable(strings.NewReader(tableJSON))
	require.NoError(t, err)

	svc, err := catalog.NewService(catalog.ServiceConfig{
		Source:          client,
		Calculator:      pricing.NewCalculator(pricing.NewTableHolder(table)),
		Contacts:        contact.NewBuilder(contact.Settings{WhatsAppNumber: "14374638189", SchedulingURL: "https://calendly.com/x"}),
		DefaultProvince: pricing.BC,
		Logger:          zerolog.Nop(),
	})
	require.NoError(t, err)

	h := catalog.NewHandler(catalog.HandlerConfig{
		Service: svc,
		Now:     func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) },
	})
	r := chi.NewRouter()
	r.Route("/api/v1", h.Routes)
	return fixture{router: r, upstream: &calls, mr: mr}
}

const bcOnly = `{"British Columbia": [
  {"label": "Shipping", "value": 2500},
  {"label": "GST", "value": 0.05},
  {"label": "Inspection", "value": 0}
]}`

type listResponse struct {
	Data []struct {
		CarID         string  `json:"carId"`
		Province      string  `json:"province"`
		LandedTotal   *string `json:"landedTotal"`
		LandedDisplay string  `json:"landedDisplay"`
	} `json:"data"`
	Pagination struct {
		Page       int `json:"page"`
		PerPage    int `json:"perPage"`
		TotalItems int `json:"totalItems"`
		TotalPages int `json:"totalPages"`
	} `json:"pagination"`
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestListSortsAndPricesVehicles(t *testing.T) {
	f := newFixture(t, bcOnly)
	rec := get(t, f.router, "/api/v1/cars")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "4", rec.Header().Get("X-Total-Count"))

	var resp listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 4)
	ids := []string{resp.Data[0].CarID, resp.Data[1].CarID, resp.Data[2].CarID, resp.Data[3].CarID}
	require.Equal(t, []string{"104", "102", "103", "101"}, ids)

	// unpriced vehicle is listed without a total
	require.Nil(t, resp.Data[0].LandedTotal)
	require.Equal(t, "Price unavailable", resp.Data[0].LandedDisplay)

	// price falls back to "price" when priceCad is zero: 38000 + 2500 + 1900
	require.NotNil(t, resp.Data[1].LandedTotal)
	require.Equal(t, "42400", *resp.Data[1].LandedTotal)
	require.Equal(t, "$42,400 CAD", resp.Data[1].LandedDisplay)
	require.Equal(t, "BC", resp.Data[1].Province)
}

func TestListMissingProvinceYieldsNullTotals(t *testing.T) {
	f := newFixture(t, bcOnly)
	rec := get(t, f.router, "/api/v1/cars?province=on")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 4)
	for _, item := range resp.Data {
		require.Nil(t, item.LandedTotal)
		require.Equal(t, "ON", item.Province)
	}
}

func TestListFilters(t *testing.T) {
	f := newFixture(t, bcOnly)
	cases := map[string][]string{
		"/api/v1/cars?make=por":                       {"101"},
		"/api/v1/cars?fuelType=GASOLINE":              {"102", "101"},
		"/api/v1/cars?fuelType=gas":                   {},
		"/api/v1/cars?minPrice=40000&maxPrice=100000": {"103"},
		"/api/v1/cars?minYear=2020&maxMileage=10000":  {"104", "103"},
		"/api/v1/cars?model=g80&trim=SPORT":           {"102"},
		"/api/v1/cars?limit=2&page=2":                 {"103", "101"},
	}
	for path, want := range cases {
		t.Run(path, func(t *testing.T) {
			rec := get(t, f.router, path)
			require.Equal(t, http.StatusOK, rec.Code)
			var resp listResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			got := make([]string, 0, len(resp.Data))
			for _, item := range resp.Data {
				got = append(got, item.CarID)
			}
			require.Equal(t, want, got)
		})
	}
}

func TestListRejectsMalformedFilters(t *testing.T) {
	f := newFixture(t, bcOnly)
	for _, path := range []string{
		"/api/v1/cars?minPrice=abc",
		"/api/v1/cars?minYear=20x",
		"/api/v1/cars?minPrice=10&maxPrice=5",
		"/api/v1/cars?province=ZZ",
		"/api/v1/cars?page=0",
	} {
		rec := get(t, f.router, path)
		require.Equal(t, http.StatusBadRequest, rec.Code, path)
		require.Contains(t, rec.Body.String(), `"code":"INVALID_INPUT"`, path)
	}
}

func TestListUsesCache(t *testing.T) {
	f := newFixture(t, bcOnly)
	require.Equal(t, http.StatusOK, get(t, f.router, "/api/v1/cars").Code)
	require.Equal(t, http.StatusOK, get(t, f.router, "/api/v1/cars?make=kia").Code)
	require.EqualValues(t, 1, f.upstream.Load())
	require.True(t, f.mr.Exists("test:"+cache.KeyVehicleList()))
}

func TestDetail(t *testing.T) {
	f := newFixture(t, bcOnly)
	rec := get(t, f.router, "/api/v1/cars/101")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Vehicle struct {
				CarID string `json:"carId"`
			} `json:"vehicle"`
			Province string `json:"province"`
			Landed   *struct {
				Total        string `json:"total"`
				TotalDisplay string `json:"totalDisplay"`
				ProvinceName string `json:"provinceName"`
				Lines        []struct {
					Label   string `json:"label"`
					Display string `json:"display"`
				} `json:"lines"`
			} `json:"landed"`
			Standard *struct {
				Total string `json:"total"`
			} `json:"standard"`
			Contact struct {
				WhatsApp string `json:"whatsapp"`
			} `json:"contact"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "101", resp.Data.Vehicle.CarID)
	require.NotNil(t, resp.Data.Landed)
	// 145000 + 2500 + 7250
	require.Equal(t, "154750", resp.Data.Landed.Total)
	require.Equal(t, "$154,750 CAD", resp.Data.Landed.TotalDisplay)
	require.Equal(t, "British Columbia", resp.Data.Landed.ProvinceName)
	require.Len(t, resp.Data.Landed.Lines, 3)
	require.Equal(t, "FREE", resp.Data.Landed.Lines[2].Display)
	require.NotNil(t, resp.Data.Standard)
	require.Contains(t, resp.Data.Contact.WhatsApp, "Stock%20%23101")
}

func TestDetailWithoutProvinceConfigStillRenders(t *testing.T) {
	f := newFixture(t, bcOnly)
	rec := get(t, f.router, "/api/v1/cars/101?province=QC")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"landed":null`)
	require.NotContains(t, rec.Body.String(), `"standard":null`)
}

func TestPriceEndpoint(t *testing.T) {
	f := newFixture(t, bcOnly)

	rec := get(t, f.router, "/api/v1/cars/101/price")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"totalDisplay":"$154,750 CAD"`)

	rec = get(t, f.router, "/api/v1/cars/101/price?province=ON")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), `"code":"MISSING_PROVINCE_CONFIG"`)

	rec = get(t, f.router, "/api/v1/cars/104/price")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUpstreamErrors(t *testing.T) {
	f := newFixture(t, bcOnly)

	rec := get(t, f.router, "/api/v1/cars/999")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), `"code":"NOT_FOUND"`)

	rec = get(t, f.router, "/api/v1/cars/500")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Contains(t, rec.Body.String(), `"code":"UPSTREAM_UNAVAILABLE"`)
}

func TestRecommended(t *testing.T) {
	f := newFixture(t, bcOnly)
	rec := get(t, f.router, "/api/v1/cars/recommended")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Equal(t, "103", resp.Data[0].CarID)
	require.NotNil(t, resp.Data[0].LandedTotal)
	require.Equal(t, "65500", *resp.Data[0].LandedTotal)
}

func TestFiltersEndpoint(t *testing.T) {
	f := newFixture(t, bcOnly)
	rec := get(t, f.router, "/api/v1/cars/filters")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data catalog.Bounds `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 2027, resp.Data.MaxYear)
	require.Equal(t, 300000, resp.Data.MaxMileage)
	require.Equal(t, []string{"Hyundai", "Kia", "Mystery", "Porsche"}, resp.Data.Makes)
	require.Equal(t, []string{"Electric", "Gasoline"}, resp.Data.FuelTypes)
	require.True(t, resp.Data.MinPrice.Equal(catalog.DefaultMinPrice))
}

func TestClientWithoutCache(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(upstreamCars))
	}))
	t.Cleanup(upstream.Close)

	client, err := catalog.NewClient(catalog.ClientConfig{
		BaseURL: upstream.URL,
		HTTP:    resilience.HTTPClient{Client: upstream.Client(), MaxAttempts: 1},
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)

	vehicles, err := client.ListVehicles(t.Context())
	require.NoError(t, err)
	require.Len(t, vehicles, 4)
}
