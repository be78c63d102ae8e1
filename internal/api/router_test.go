package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airlens/airlens/internal/airquality"
	"github.com/airlens/airlens/internal/api"
	"github.com/airlens/airlens/internal/api/handler"
	"github.com/airlens/airlens/internal/api/models"
	"github.com/airlens/airlens/internal/auth"
	"github.com/airlens/airlens/internal/featureflags"
	"github.com/airlens/airlens/internal/geo"
	"github.com/airlens/airlens/internal/panel"
	"github.com/airlens/airlens/internal/predictions"
	"github.com/airlens/airlens/internal/provider"
	"github.com/airlens/airlens/internal/provider/resilience"
	"github.com/airlens/airlens/internal/satellite"
	"github.com/airlens/airlens/internal/weather"
)

type fakeStations struct {
	observations []airquality.Observation
	err          error
}

func (f *fakeStations) Current(context.Context, geo.Point, float64) ([]airquality.Observation, error) {
	return f.observations, f.err
}

type fakeWeather struct {
	snapshot *weather.Snapshot
	err      error
}

func (f *fakeWeather) Current(context.Context, geo.Point) (*weather.Snapshot, error) {
	return f.snapshot, f.err
}

type fakeSatellite struct {
	reading *satellite.Reading
	err     error
}

func (f *fakeSatellite) Reading(context.Context, geo.Point) (*satellite.Reading, error) {
	return f.reading, f.err
}

type fakePredictions struct {
	err error
}

func (f *fakePredictions) Query(_ context.Context, q predictions.Query) (*geojson.FeatureCollection, error) {
	if f.err != nil {
		return nil, f.err
	}
	fc := geojson.NewFeatureCollection()
	feature := geojson.NewFeature(orb.Point{-118.25, 34.05})
	feature.Properties["pm25_pred"] = 12.5
	fc.Append(feature)
	return fc, nil
}

// blockingLoader holds loads for Los Angeles until their context ends.
type blockingLoader struct {
	started chan struct{}
}

func (l *blockingLoader) Load(ctx context.Context, point geo.Point) panel.State {
	if point.Lat == 34.05 {
		close(l.started)
		<-ctx.Done()
	}
	return panel.State{Point: point, Region: panel.RegionInside}
}

type routerDeps struct {
	stations    *fakeStations
	weather     *fakeWeather
	satellite   *fakeSatellite
	predictions *fakePredictions
	loader      panel.Loader
	policies    provider.Policies
	flags       *featureflags.Service
}

func testJWTService() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "https://api.airlens.dev",
		Audience:   "airlens-admin",
	})
}

func generateTestToken(t *testing.T, role string) string {
	t.Helper()
	token, _, err := testJWTService().GenerateAccessToken("ops@airlens.dev", role, time.Hour)
	require.NoError(t, err)
	return token
}

func newTestRouter(deps routerDeps) http.Handler {
	if deps.stations == nil {
		deps.stations = &fakeStations{observations: []airquality.Observation{
			{Parameter: airquality.ParameterPM25, AQI: 42, Category: airquality.Category{Number: 1, Name: "Good"}},
		}}
	}
	if deps.weather == nil {
		deps.weather = &fakeWeather{snapshot: &weather.Snapshot{TemperatureC: 21.5}}
	}
	if deps.satellite == nil {
		deps.satellite = &fakeSatellite{reading: &satellite.Reading{Value: "3.10e+15 mol/m²", Source: satellite.SourceLive}}
	}
	if deps.predictions == nil {
		deps.predictions = &fakePredictions{}
	}
	if deps.loader == nil {
		deps.loader = &blockingLoader{started: make(chan struct{})}
	}

	registry := resilience.NewRegistry()
	registry.Register("airnow", nil)

	return api.NewRouter(api.RouterConfig{
		Version:            "test",
		BuildTime:          "2024-01-01T00:00:00Z",
		Logger:             zerolog.New(io.Discard),
		JWTService:         testJWTService(),
		Registry:           registry,
		FeatureFlagService: deps.flags,
		Policies:           deps.policies,
		Stations:           deps.stations,
		Weather:            deps.weather,
		Satellite:          deps.satellite,
		Predictions:        deps.predictions,
		Panel:              deps.loader,
		Sessions:           panel.NewSessions(deps.loader, time.Minute),
		Center:             geo.CaliforniaCenter,
		StationLadder:      airquality.DefaultLadder,
	})
}

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) models.Problem {
	t.Helper()
	var problem models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	return problem
}

func TestRouter_HealthCheck(t *testing.T) {
	router := newTestRouter(routerDeps{})

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	var health models.Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "test", health.Version)
	assert.Equal(t, "2024-01-01T00:00:00Z", health.BuildTime)
}

func TestRouter_SystemStatus(t *testing.T) {
	router := newTestRouter(routerDeps{})

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+generateTestToken(t, auth.RoleAdmin))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, models.HealthStatusOK, status.Status)
	require.Len(t, status.Providers, 1)
	assert.Equal(t, "airnow", status.Providers[0].Provider)
	assert.Equal(t, "degrade", status.Policies["satellite"])
	assert.Equal(t, []string{"policy.satellite"}, status.ActiveDegradationFlags)
}

func TestRouter_SystemStatus_RequiresToken(t *testing.T) {
	router := newTestRouter(routerDeps{})

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_AirQuality(t *testing.T) {
	router := newTestRouter(routerDeps{})

	req := httptest.NewRequest(http.MethodGet, "/v1/air-quality?lat=34.05&lon=-118.25", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "public, max-age=300", w.Header().Get("Cache-Control"))

	var observations []airquality.Observation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &observations))
	require.Len(t, observations, 1)
	assert.Equal(t, 42, observations[0].AQI)
}

func TestRouter_MissingCoordinates(t *testing.T) {
	for _, path := range []string{"/v1/air-quality", "/v1/weather", "/v1/satellite/no2", "/v1/panel"} {
		t.Run(path, func(t *testing.T) {
			router := newTestRouter(routerDeps{})

			req := httptest.NewRequest(http.MethodGet, path+"?lat=34.05", http.NoBody)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, `Missing "lat" or "lon" parameters.`, decodeProblem(t, w).Error)
		})
	}
}

func TestRouter_Weather_UpstreamFailure(t *testing.T) {
	upstream := &provider.Error{
		Provider:   "google-weather",
		Kind:       provider.KindStatus,
		StatusCode: http.StatusServiceUnavailable,
		Body:       "backend unavailable",
	}
	router := newTestRouter(routerDeps{weather: &fakeWeather{err: upstream}})

	req := httptest.NewRequest(http.MethodGet, "/v1/weather?lat=34.05&lon=-118.25", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	problem := decodeProblem(t, w)
	assert.Equal(t, "Failed to fetch weather data from Google.", problem.Error)
	assert.NotEmpty(t, problem.Details)
}

func TestRouter_Weather_Degraded(t *testing.T) {
	router := newTestRouter(routerDeps{
		weather: &fakeWeather{err: provider.Transport("google-weather", context.DeadlineExceeded)},
		policies: provider.Policies{
			provider.DomainWeather: provider.Degrade,
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/weather?lat=34.05&lon=-118.25", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ProvenanceDegraded, w.Header().Get(models.ProvenanceHeader))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, "null", strings.TrimSpace(w.Body.String()))
}

func TestRouter_Satellite_NotConfigured(t *testing.T) {
	router := newTestRouter(routerDeps{
		satellite: &fakeSatellite{err: provider.NotConfigured("harmony")},
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/satellite/no2?lat=34.05&lon=-118.25", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Server is not configured with a TEMPO API token.", decodeProblem(t, w).Error)
}

func TestRouter_Satellite_SimulatedIsDegraded(t *testing.T) {
	router := newTestRouter(routerDeps{
		satellite: &fakeSatellite{reading: &satellite.Reading{Value: "1.00e+15 mol/m²", Source: satellite.SourceSimulated}},
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/satellite/no2?lat=34.05&lon=-118.25", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ProvenanceDegraded, w.Header().Get(models.ProvenanceHeader))
}

func TestRouter_Predictions(t *testing.T) {
	router := newTestRouter(routerDeps{})

	req := httptest.NewRequest(http.MethodGet,
		"/v1/predictions?ts=2024-08-01T12:00:00Z&bbox=-119,33.5,-117.5,34.5", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	fc, err := geojson.UnmarshalFeatureCollection(w.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	assert.InDelta(t, 12.5, fc.Features[0].Properties.MustFloat64("pm25_pred"), 1e-9)
}

func TestRouter_Predictions_QueryFailure(t *testing.T) {
	router := newTestRouter(routerDeps{
		predictions: &fakePredictions{err: provider.Transport(predictions.StoreName, errors.New(`relation "pm25_grid" does not exist`))},
	})

	req := httptest.NewRequest(http.MethodGet,
		"/v1/predictions?ts=2024-08-01T12:00:00Z&lat=34.05&lon=-118.25&radius_km=5", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	problem := decodeProblem(t, w)
	assert.Equal(t, "Failed to query predictions.", problem.Error)
	assert.Equal(t, `relation "pm25_grid" does not exist`, problem.Details)
}

func TestRouter_Predictions_InvalidQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"missing ts", "bbox=-119,33.5,-117.5,34.5", `Missing timestamp parameter "ts".`},
		{"bad bbox", "ts=2024-08-01T12:00:00Z&bbox=-119,33.5", `Invalid "bbox" parameter format.`},
		{"no selector", "ts=2024-08-01T12:00:00Z", `Either "bbox" or "lat", "lon" and "radius_km" must be provided.`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(routerDeps{})

			req := httptest.NewRequest(http.MethodGet, "/v1/predictions?"+tt.query, http.NoBody)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.want, decodeProblem(t, w).Error)
		})
	}
}

func TestRouter_Panel_Superseded(t *testing.T) {
	loader := &blockingLoader{started: make(chan struct{})}
	router := newTestRouter(routerDeps{loader: loader})

	stale := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		req := httptest.NewRequest(http.MethodGet, "/v1/panel?lat=34.05&lon=-118.25", http.NoBody)
		req.Header.Set(handler.SessionIDHeader, "session-1")
		router.ServeHTTP(stale, req)
	}()
	<-loader.started

	req := httptest.NewRequest(http.MethodGet, "/v1/panel?lat=37.77&lon=-122.42", http.NoBody)
	req.Header.Set(handler.SessionIDHeader, "session-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	<-done

	require.Equal(t, http.StatusOK, w.Code)
	var state panel.State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, uint64(2), state.Generation)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	assert.Equal(t, http.StatusConflict, stale.Code)
}

func TestRouter_GetRegion(t *testing.T) {
	router := newTestRouter(routerDeps{})

	req := httptest.NewRequest(http.MethodGet, "/v1/metadata/region", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var region struct {
		Name     string           `json:"name"`
		Outline  *geojson.Feature `json:"outline"`
		Polyline string           `json:"polyline"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &region))
	assert.Equal(t, "California", region.Name)
	require.NotNil(t, region.Outline)
	assert.Equal(t, "Polygon", region.Outline.Geometry.GeoJSONType())
	assert.NotEmpty(t, region.Polyline)
}

func TestRouter_GetEnums(t *testing.T) {
	router := newTestRouter(routerDeps{})

	req := httptest.NewRequest(http.MethodGet, "/v1/metadata/enums", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var enums models.Enums
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &enums))
	assert.Contains(t, enums.Parameters, "PM2.5")
	assert.Len(t, enums.Categories, 6)
}

func TestRouter_FeatureFlags_Auth(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"wrong role", "viewer", http.StatusForbidden},
		{"admin", auth.RoleAdmin, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(routerDeps{})

			req := httptest.NewRequest(http.MethodGet, "/v1/admin/feature-flags", http.NoBody)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+generateTestToken(t, tt.token))
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRouter_FeatureFlags_PolicyOverride(t *testing.T) {
	flags := featureflags.NewService(featureflags.ServiceConfig{
		Store:  featureflags.NewMemoryStore(),
		Logger: zerolog.New(io.Discard),
	})
	router := newTestRouter(routerDeps{
		flags:    flags,
		stations: &fakeStations{err: provider.Transport("airnow", context.DeadlineExceeded)},
	})
	token := generateTestToken(t, auth.RoleAdmin)

	body := `{"updates":[{"key":"policy.stations","value":"degrade"}],"reason":"airnow outage"}`
	req := httptest.NewRequest(http.MethodPut, "/v1/admin/feature-flags", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/air-quality?lat=34.05&lon=-118.25", http.NoBody)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ProvenanceDegraded, w.Header().Get(models.ProvenanceHeader))
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
}

func TestRouter_FeatureFlags_RejectsInvalidPolicy(t *testing.T) {
	router := newTestRouter(routerDeps{})

	body := `{"updates":[{"key":"policy.stations","value":"retry"}]}`
	req := httptest.NewRequest(http.MethodPut, "/v1/admin/feature-flags", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer "+generateTestToken(t, auth.RoleAdmin))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	problem := decodeProblem(t, w)
	require.Len(t, problem.Errors, 1)
	assert.Equal(t, "policy.stations", problem.Errors[0].Field)
}

func TestRouter_RequestID_Preserved(t *testing.T) {
	router := newTestRouter(routerDeps{})

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	req.Header.Set("X-Request-Id", "req_custom123")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, "req_custom123", w.Header().Get("X-Request-Id"))
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter(routerDeps{})

	req := httptest.NewRequest(http.MethodGet, "/v1/routes", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_Panel_InvalidSessionID(t *testing.T) {
	router := newTestRouter(routerDeps{})

	req := httptest.NewRequest(http.MethodGet, "/v1/panel?lat=34.05&lon=-118.25", http.NoBody)
	req.Header.Set(handler.SessionIDHeader, "not a session")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, `Invalid "X-Session-Id" header.`, decodeProblem(t, w).Error)
}

func TestRouter_FeatureFlags_RequiresJSONBody(t *testing.T) {
	router := newTestRouter(routerDeps{})

	req := httptest.NewRequest(http.MethodPut, "/v1/admin/feature-flags", bytes.NewBufferString("policy.weather=degrade"))
	req.Header.Set("Authorization", "Bearer "+generateTestToken(t, auth.RoleAdmin))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
}

func TestRouter_FeatureFlags_ResetOverride(t *testing.T) {
	router := newTestRouter(routerDeps{
		stations: &fakeStations{err: provider.Transport("airnow", context.DeadlineExceeded)},
	})
	token := generateTestToken(t, auth.RoleAdmin)

	body := `{"updates":[{"key":"policy.stations","value":"degrade"}]}`
	req := httptest.NewRequest(http.MethodPut, "/v1/admin/feature-flags", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodDelete, "/v1/admin/feature-flags/policy.stations", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/air-quality?lat=34.05&lon=-118.25", http.NoBody)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	req = httptest.NewRequest(http.MethodDelete, "/v1/admin/feature-flags/policy.stations", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
