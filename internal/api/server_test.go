package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quicksafe/quicksafe-server/internal/advisory"
	"github.com/quicksafe/quicksafe-server/internal/catalog"
	"github.com/quicksafe/quicksafe-server/internal/config"
	"github.com/quicksafe/quicksafe-server/internal/domain"
	"github.com/quicksafe/quicksafe-server/internal/service"
	"github.com/quicksafe/quicksafe-server/internal/sse"
)

// testEnvelope mirrors the response envelope with a typed payload.
type testEnvelope[T any] struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details"`
}

type testServer struct {
	*Server
	api     humatest.TestAPI
	manager *sse.Manager
	reports *service.ReportService
}

type testOption func(*config.Config)

func withSubmitsPerMinute(n int) testOption {
	return func(cfg *config.Config) { cfg.Report.SubmitsPerMinute = n }
}

// setupTestServer creates a test server with all dependencies.
func setupTestServer(t *testing.T, opts ...testOption) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := &config.Config{
		Server: config.ServerConfig{CORSOrigins: []string{"*"}},
		Report: config.ReportConfig{
			MinSubmitDelay:   10 * time.Millisecond,
			VerifyDelay:      time.Millisecond,
			SessionTTL:       time.Hour,
			SubmitsPerMinute: 100,
			OpensPerMinute:   100,
		},
		Poster: config.PosterConfig{QRImageURL: config.DefaultQRImageURL},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	cat, err := catalog.New()
	require.NoError(t, err)

	manager := sse.NewManager(logger)
	advisor := advisory.AdvisorFunc(func(context.Context, int, string, []string) string {
		return "Stay aware of your surroundings."
	})
	reports := service.NewReportService(cat, advisor, manager, cfg.Report, logger)

	services := &Services{
		Reports:      reports,
		Catalog:      cat,
		Events:       sse.NewHandler(manager, reports.Snapshot, logger),
		EventManager: manager,
	}

	s, err := NewServer(services, cfg, logger)
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = reports.Shutdown(ctx)
		_ = manager.Shutdown(ctx)
	})

	return &testServer{
		Server:  s,
		api:     humatest.Wrap(t, s.API()),
		manager: manager,
		reports: reports,
	}
}

func decode[T any](t *testing.T, body []byte) testEnvelope[T] {
	t.Helper()
	var env testEnvelope[T]
	require.NoError(t, json.Unmarshal(body, &env), "body: %s", body)
	return env
}

func (ts *testServer) openSession(t *testing.T, locationID string) service.SessionView {
	t.Helper()
	resp := ts.api.Post("/api/v1/sessions", map[string]any{"location_id": locationID})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decode[service.SessionView](t, resp.Body.Bytes()).Data
}

func TestHealth(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	env := decode[HealthResponse](t, resp.Body.Bytes())
	assert.True(t, env.Success)
	assert.Equal(t, 1, env.Version)
	assert.Equal(t, "degraded", env.Data.Status, "no advisory key is configured")
	assert.Equal(t, "degraded", env.Data.Components["advisory"].Status)
	assert.Equal(t, "healthy", env.Data.Components["sessions"].Status)
	assert.Contains(t, env.Data.Components, "sse")
}

func TestCatalogRoutes(t *testing.T) {
	ts := setupTestServer(t)

	t.Run("known location", func(t *testing.T) {
		resp := ts.api.Get("/api/v1/locations/central-plaza")
		require.Equal(t, http.StatusOK, resp.Code)
		loc := decode[domain.Location](t, resp.Body.Bytes()).Data
		assert.Equal(t, "The Grand Plaza", loc.Name)
		assert.Equal(t, "Downtown", loc.Zone)
		assert.True(t, loc.Known)
	})

	t.Run("unknown location derives a name", func(t *testing.T) {
		resp := ts.api.Get("/api/v1/locations/east_side-park")
		require.Equal(t, http.StatusOK, resp.Code)
		loc := decode[domain.Location](t, resp.Body.Bytes()).Data
		assert.Equal(t, "East Side Park", loc.Name)
		assert.False(t, loc.Known)
	})

	t.Run("list locations", func(t *testing.T) {
		resp := ts.api.Get("/api/v1/locations")
		require.Equal(t, http.StatusOK, resp.Code)
		locs := decode[[]domain.Location](t, resp.Body.Bytes()).Data
		require.Len(t, locs, 3)
		assert.Equal(t, "general", locs[0].ID)
	})

	t.Run("tags", func(t *testing.T) {
		resp := ts.api.Get("/api/v1/tags")
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, domain.SafetyTags, decode[[]domain.Tag](t, resp.Body.Bytes()).Data)
	})

	t.Run("ratings", func(t *testing.T) {
		resp := ts.api.Get("/api/v1/ratings")
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, domain.RatingLevels, decode[[]domain.RatingLevel](t, resp.Body.Bytes()).Data)
	})
}

func TestSessionFlow(t *testing.T) {
	ts := setupTestServer(t)

	view := ts.openSession(t, "north-transit")
	require.NotEmpty(t, view.ID)
	assert.Equal(t, domain.StateRating, view.State)
	assert.Equal(t, "Northern Hub", view.LocationName)
	assert.False(t, view.CanSubmit)

	resp := ts.api.Put("/api/v1/sessions/"+view.ID+"/score", map[string]any{"score": 4})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, 4, decode[service.SessionView](t, resp.Body.Bytes()).Data.Score)

	ts.api.Post("/api/v1/sessions/" + view.ID + "/tags/crowded")
	resp = ts.api.Post("/api/v1/sessions/" + view.ID + "/tags/well-lit")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, []string{"well-lit", "crowded"}, decode[service.SessionView](t, resp.Body.Bytes()).Data.Tags)

	resp = ts.api.Put("/api/v1/sessions/"+view.ID+"/comment", map[string]any{"comment": "Busy but calm"})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Post("/api/v1/sessions/" + view.ID + "/submit")
	require.Equal(t, http.StatusAccepted, resp.Code, resp.Body.String())
	assert.Equal(t, domain.StateSubmitting, decode[service.SessionView](t, resp.Body.Bytes()).Data.State)

	var final service.SessionView
	require.Eventually(t, func() bool {
		resp := ts.api.Get("/api/v1/sessions/" + view.ID)
		final = decode[service.SessionView](t, resp.Body.Bytes()).Data
		return final.State == domain.StateSuccess
	}, 2*time.Second, 10*time.Millisecond)

	require.NotNil(t, final.Receipt)
	assert.Equal(t, view.Reference, final.Receipt.ReferenceID)
	assert.Equal(t, "Stay aware of your surroundings.", final.Receipt.Advisory)
	assert.Equal(t, "Northern Hub", final.Receipt.LocationName)
}

func TestSubmit_WithoutScoreIsNoop(t *testing.T) {
	ts := setupTestServer(t)
	view := ts.openSession(t, "")

	resp := ts.api.Post("/api/v1/sessions/" + view.ID + "/submit")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	got := decode[service.SessionView](t, resp.Body.Bytes()).Data
	assert.Equal(t, domain.StateRating, got.State)
	assert.Equal(t, "general", got.LocationID)
}

func TestSessionErrors(t *testing.T) {
	ts := setupTestServer(t)
	view := ts.openSession(t, "central-plaza")

	t.Run("unknown session", func(t *testing.T) {
		resp := ts.api.Get("/api/v1/sessions/nope")
		require.Equal(t, http.StatusNotFound, resp.Code)
		env := decode[any](t, resp.Body.Bytes())
		assert.False(t, env.Success)
		assert.Equal(t, "NOT_FOUND", env.Code)
	})

	t.Run("score out of range", func(t *testing.T) {
		resp := ts.api.Put("/api/v1/sessions/"+view.ID+"/score", map[string]any{"score": 6})
		require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
		assert.Equal(t, "VALIDATION", decode[any](t, resp.Body.Bytes()).Code)
	})

	t.Run("unknown tag", func(t *testing.T) {
		resp := ts.api.Post("/api/v1/sessions/" + view.ID + "/tags/haunted")
		require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
	})

	t.Run("invalid location id", func(t *testing.T) {
		resp := ts.api.Post("/api/v1/sessions", map[string]any{"location_id": "../admin"})
		require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
		env := decode[any](t, resp.Body.Bytes())
		assert.Equal(t, "VALIDATION", env.Code)
		assert.NotNil(t, env.Details)
	})

	t.Run("submit twice conflicts", func(t *testing.T) {
		ts.api.Put("/api/v1/sessions/"+view.ID+"/score", map[string]any{"score": 2})
		resp := ts.api.Post("/api/v1/sessions/" + view.ID + "/submit")
		require.Equal(t, http.StatusAccepted, resp.Code)

		resp = ts.api.Post("/api/v1/sessions/" + view.ID + "/submit")
		require.Equal(t, http.StatusConflict, resp.Code, resp.Body.String())
		assert.Equal(t, "CONFLICT", decode[any](t, resp.Body.Bytes()).Code)

		resp = ts.api.Put("/api/v1/sessions/"+view.ID+"/score", map[string]any{"score": 5})
		require.Equal(t, http.StatusConflict, resp.Code)
	})
}

func TestSubmit_RateLimited(t *testing.T) {
	ts := setupTestServer(t, withSubmitsPerMinute(1))

	first := ts.openSession(t, "general")
	second := ts.openSession(t, "general")
	for _, id := range []string{first.ID, second.ID} {
		ts.api.Put("/api/v1/sessions/"+id+"/score", map[string]any{"score": 3})
	}

	resp := ts.api.Post("/api/v1/sessions/" + first.ID + "/submit")
	require.Equal(t, http.StatusAccepted, resp.Code)

	resp = ts.api.Post("/api/v1/sessions/" + second.ID + "/submit")
	require.Equal(t, http.StatusTooManyRequests, resp.Code, resp.Body.String())
	assert.Equal(t, "RATE_LIMITED", decode[any](t, resp.Body.Bytes()).Code)

	// The rejected form stays editable.
	resp = ts.api.Get("/api/v1/sessions/" + second.ID)
	assert.Equal(t, domain.StateRating, decode[service.SessionView](t, resp.Body.Bytes()).Data.State)
}
