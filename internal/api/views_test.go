package api

import (
	"bufio"
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quicksafe/quicksafe-server/internal/fx/field"
)

func TestWebViews(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		name     string
		path     string
		contains []string
	}{
		{
			name:     "home",
			path:     "/",
			contains: []string{"Gateway: Universal", `href="/report/general"`, "QR-CODE.png", "The Grand Plaza"},
		},
		{
			name:     "report for known location",
			path:     "/report/central-plaza",
			contains: []string{`data-location="central-plaza"`, "Rate Your", "Dim Lighting", "Optimal"},
		},
		{
			name:     "report without location",
			path:     "/report",
			contains: []string{`data-location="general"`},
		},
		{
			name:     "poster for derived location",
			path:     "/poster/east-gate",
			contains: []string{"East Gate", "Print Now", "window.print()", "Takes less than 30 seconds", "Location Verified"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ts.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
			for _, want := range tt.contains {
				assert.Contains(t, rec.Body.String(), want)
			}
		})
	}
}

func TestWebViews_EscapesLocation(t *testing.T) {
	ts := setupTestServer(t)

	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/poster/%3Cscript%3E", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFieldFrame(t *testing.T) {
	ts := setupTestServer(t)

	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/fx/field.png?w=64&h=48&frames=3&px=32&py=24&variant=circle", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, CacheNoStore, rec.Header().Get("Cache-Control"))

	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 48, img.Bounds().Dy())
}

func TestFieldFrame_Invalid(t *testing.T) {
	ts := setupTestServer(t)

	for _, query := range []string{
		"w=abc",
		"w=5000",
		"h=0",
		"frames=601",
		"variant=hexagon",
		"px=left",
		"px=NaN&py=1",
		"px=1&py=Inf",
		"px=-Inf",
		"px=1e300&py=1",
	} {
		t.Run(query, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ts.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/fx/field.png?"+query, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"success":false`)
		})
	}
}

func TestTrailFrame(t *testing.T) {
	ts := setupTestServer(t)

	body := `{"width":80,"height":60,"seed":7,"frames":2,"path":[{"x":10,"y":10},{"x":20,"y":15},{"x":30,"y":20}]}`
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/fx/trail.png", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	frame := rec.Body.Bytes()
	img, err := png.Decode(bytes.NewReader(frame))
	require.NoError(t, err)
	assert.Equal(t, 80, img.Bounds().Dx())

	// The same seed replays the same particles.
	again := httptest.NewRecorder()
	ts.ServeHTTP(again, httptest.NewRequest(http.MethodPost, "/api/v1/fx/trail.png", strings.NewReader(body)))
	assert.Equal(t, frame, again.Body.Bytes())
}

func TestTrailFrame_Invalid(t *testing.T) {
	ts := setupTestServer(t)

	for name, body := range map[string]string{
		"malformed": `{"width":`,
		"too wide":  `{"width":4000,"height":10}`,
		"no height": `{"width":10}`,
		"far point": `{"width":10,"height":10,"path":[{"x":1e300,"y":0}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ts.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/fx/trail.png", strings.NewReader(body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestAmbientFrame_Disabled(t *testing.T) {
	ts := setupTestServer(t)

	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/fx/ambient.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	resp := ts.api.Post("/api/v1/fx/ambient/input", map[string]any{"x": 0.5, "y": 0.5})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

// fakeAmbient records input the way the background loop would receive it.
type fakeAmbient struct {
	mu       sync.Mutex
	frame    *image.RGBA
	pointers [][2]float64
	touches  [][][2]float64
}

func (f *fakeAmbient) Snapshot() (*image.RGBA, uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.frame == nil {
		return nil, 0
	}
	return f.frame, 7
}

func (f *fakeAmbient) Size() (int, int) { return 200, 100 }

func (f *fakeAmbient) Pointer(x, y float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pointers = append(f.pointers, [2]float64{x, y})
}

func (f *fakeAmbient) Touch(points [][2]float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touches = append(f.touches, points)
}

func TestAmbientFrame(t *testing.T) {
	ts := setupTestServer(t)
	scene := &fakeAmbient{}
	ts.services.Ambient = scene

	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/fx/ambient.png", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	scene.frame = image.NewRGBA(image.Rect(0, 0, 20, 10))
	rec = httptest.NewRecorder()
	ts.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/fx/ambient.png", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "7", rec.Header().Get("X-Frame-Sequence"))
	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 20, img.Bounds().Dx())
}

func TestAmbientInput(t *testing.T) {
	ts := setupTestServer(t)
	scene := &fakeAmbient{}
	ts.services.Ambient = scene

	resp := ts.api.Post("/api/v1/fx/ambient/input", map[string]any{"x": 0.25, "y": 0.5})
	require.Equal(t, http.StatusNoContent, resp.Code, resp.Body.String())

	resp = ts.api.Post("/api/v1/fx/ambient/input", map[string]any{
		"x":       0.9,
		"y":       0.9,
		"touches": []map[string]float64{{"x": 0.5, "y": 0.1}, {"x": 1, "y": 1}},
	})
	require.Equal(t, http.StatusNoContent, resp.Code, resp.Body.String())

	resp = ts.api.Post("/api/v1/fx/ambient/input", map[string]any{"leave": true})
	require.Equal(t, http.StatusNoContent, resp.Code, resp.Body.String())

	scene.mu.Lock()
	defer scene.mu.Unlock()
	assert.Equal(t, [][2]float64{{50, 50}, {field.OffscreenPointer, field.OffscreenPointer}}, scene.pointers)
	require.Len(t, scene.touches, 1, "touches win over x/y")
	assert.Equal(t, [][2]float64{{100, 10}, {200, 100}}, scene.touches[0])
}

func TestAmbientInput_Invalid(t *testing.T) {
	ts := setupTestServer(t)
	scene := &fakeAmbient{}
	ts.services.Ambient = scene

	for name, body := range map[string]map[string]any{
		"empty":          {},
		"x only":         {"x": 0.5},
		"outside frame":  {"x": 1.5, "y": 0.5},
		"negative touch": {"touches": []map[string]float64{{"x": -0.1, "y": 0}}},
	} {
		t.Run(name, func(t *testing.T) {
			resp := ts.api.Post("/api/v1/fx/ambient/input", body)
			assert.Contains(t, []int{http.StatusBadRequest, http.StatusUnprocessableEntity}, resp.Code, resp.Body.String())
			assert.Equal(t, "VALIDATION", decode[any](t, resp.Body.Bytes()).Code)
		})
	}

	scene.mu.Lock()
	defer scene.mu.Unlock()
	assert.Empty(t, scene.pointers)
	assert.Empty(t, scene.touches)
}

func TestSessionEvents(t *testing.T) {
	ts := setupTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ts.manager.Start(ctx)

	srv := httptest.NewServer(ts)
	defer srv.Close()

	view := ts.openSession(t, "general")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/sessions/"+view.ID+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Cache-Control"), "no-cache")

	events := make(chan string, 8)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if name, ok := strings.CutPrefix(scanner.Text(), "event: "); ok {
				events <- name
			}
		}
		close(events)
	}()

	require.Equal(t, "report.snapshot", nextEvent(t, events))

	ts.api.Put("/api/v1/sessions/"+view.ID+"/score", map[string]any{"score": 5})
	ts.api.Post("/api/v1/sessions/" + view.ID + "/submit")

	assert.Equal(t, "report.submitting", nextEvent(t, events))
	assert.Equal(t, "report.success", nextEvent(t, events))
}

func TestSessionEvents_UnknownSession(t *testing.T) {
	ts := setupTestServer(t)

	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/missing/events", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func nextEvent(t *testing.T, events <-chan string) string {
	t.Helper()
	select {
	case name, ok := <-events:
		require.True(t, ok, "stream closed")
		return name
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
		return ""
	}
}
