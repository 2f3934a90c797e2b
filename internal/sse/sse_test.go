package sse

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	domainerrors "github.com/quicksafe/quicksafe-server/internal/errors"
	"github.com/quicksafe/quicksafe-server/internal/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

func startManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	m := NewManager(logger.Discard().Logger, opts...)
	go m.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		assert.NoError(t, m.Shutdown(ctx))
	})
	return m
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case e := <-c.EventChan:
		return e
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
		return Event{}
	}
}

func TestManager_ScopesEventsToSession(t *testing.T) {
	m := startManager(t)

	a, err := m.Connect("session-a")
	require.NoError(t, err)
	b, err := m.Connect("session-b")
	require.NoError(t, err)

	m.Emit(NewReportEvent(EventReportSubmitting, "session-a", "payload"))

	got := receive(t, a)
	assert.Equal(t, EventReportSubmitting, got.Type)
	assert.Equal(t, "payload", got.Data)

	select {
	case e := <-b.EventChan:
		t.Fatalf("session-b got %s", e.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestManager_Heartbeat(t *testing.T) {
	m := startManager(t, WithHeartbeat(10*time.Millisecond))

	c, err := m.Connect("s")
	require.NoError(t, err)
	assert.Equal(t, EventHeartbeat, receive(t, c).Type)
}

func TestManager_Disconnect(t *testing.T) {
	m := startManager(t)

	c, err := m.Connect("s")
	require.NoError(t, err)
	assert.Equal(t, 1, m.ClientCount())

	m.Disconnect(c.ID)
	m.Disconnect(c.ID)
	assert.Equal(t, 0, m.ClientCount())

	_, open := <-c.Done
	assert.False(t, open)
}

func TestManager_ShutdownDeliversQueuedAndCloses(t *testing.T) {
	m := NewManager(logger.Discard().Logger)
	c, err := m.Connect("s")
	require.NoError(t, err)

	m.Emit(NewReportEvent(EventReportSuccess, "s", nil))
	require.NoError(t, m.Shutdown(context.Background()))

	e, ok := <-c.EventChan
	require.True(t, ok)
	assert.Equal(t, EventReportSuccess, e.Type)
	_, ok = <-c.EventChan
	assert.False(t, ok)

	// Emitting after shutdown is a no-op.
	m.Emit(NewReportEvent(EventReportSuccess, "s", nil))
	require.NoError(t, m.Shutdown(context.Background()))
}

type view struct {
	State string `json:"state"`
}

func TestHandler_StreamsSnapshotThenEvents(t *testing.T) {
	m := startManager(t)
	h := NewHandler(m, func(id string) (any, error) {
		if id != "known" {
			return nil, domainerrors.NotFoundf("session %s", id)
		}
		return view{State: "rating"}, nil
	}, logger.Discard().Logger)

	r := chi.NewRouter()
	r.Get("/sessions/{id}/events", h.ServeHTTP)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sessions/known/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	reader := bufio.NewReader(resp.Body)

	typ, data := readEvent(t, reader)
	assert.Equal(t, "report.snapshot", typ)
	var snap struct {
		Data view `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(data), &snap))
	assert.Equal(t, "rating", snap.Data.State)

	m.Emit(NewReportEvent(EventReportSuccess, "known", view{State: "success"}))
	typ, _ = readEvent(t, reader)
	assert.Equal(t, "report.success", typ)
}

func TestHandler_UnknownSession(t *testing.T) {
	m := startManager(t)
	h := NewHandler(m, func(id string) (any, error) {
		return nil, domainerrors.NotFoundf("session %s", id)
	}, logger.Discard().Logger)

	r := chi.NewRouter()
	r.Get("/sessions/{id}/events", h.ServeHTTP)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/nope/events", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func readEvent(t *testing.T, r *bufio.Reader) (eventType, data string) {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			eventType = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && eventType != "":
			return eventType, data
		}
	}
}
