package core

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awsl-project/ranstat/internal/domain"
)

func TestImportTracker_RejectsAfterShutdown(t *testing.T) {
	tr := NewImportTracker()
	require.True(t, tr.Add())
	assert.Equal(t, int64(1), tr.ActiveCount())

	done := make(chan bool)
	go func() { done <- tr.GracefulShutdown(time.Second) }()

	select {
	case <-tr.ShutdownCh():
	case <-time.After(time.Second):
		t.Fatal("shutdown channel not closed")
	}
	assert.True(t, tr.IsShuttingDown())
	assert.False(t, tr.Add())

	tr.Done()
	assert.True(t, <-done)
	assert.Equal(t, int64(0), tr.ActiveCount())
}

func TestImportTracker_Timeout(t *testing.T) {
	tr := NewImportTracker()
	require.True(t, tr.Add())
	assert.False(t, tr.GracefulShutdown(20*time.Millisecond))
	tr.Done()
}

func TestImportTracker_ShutdownTwice(t *testing.T) {
	tr := NewImportTracker()
	assert.True(t, tr.GracefulShutdown(0))
	assert.True(t, tr.GracefulShutdown(0))
}

func TestManagedServer_StartStop(t *testing.T) {
	tr := NewImportTracker()
	stopped := false
	srv, err := NewManagedServer(&ServerConfig{
		Addr: "127.0.0.1:0",
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "ok")
		}),
		Tracker: tr,
		OnStop:  []func(){func() { stopped = true }},
	})
	require.NoError(t, err)
	require.NoError(t, srv.Start(context.Background()))
	assert.True(t, srv.IsRunning())

	resp, err := http.Get("http://" + srv.Addr() + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	require.NoError(t, srv.Stop(context.Background()))
	assert.False(t, srv.IsRunning())
	assert.True(t, stopped)
	assert.False(t, tr.Add(), "imports are rejected once the server stopped")

	_, open := <-srv.Err()
	assert.False(t, open)
}

func TestNewManagedServer_RequiresHandler(t *testing.T) {
	_, err := NewManagedServer(&ServerConfig{Addr: ":0"})
	assert.Error(t, err)
}

type fakePurger struct {
	mu    sync.Mutex
	calls int
	ch    chan struct{}
}

func (f *fakePurger) Purge(_ context.Context, _ time.Time, hourlyDays, weeklyDays int) (map[domain.Feed]int64, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	select {
	case f.ch <- struct{}{}:
	default:
	}
	return map[domain.Feed]int64{domain.FeedNRHourly: int64(hourlyDays)}, nil
}

func TestStartBackgroundTasks_RunsRetention(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := &fakePurger{ch: make(chan struct{}, 4)}
	StartBackgroundTasks(ctx, BackgroundTaskDeps{
		Retention:  p,
		HourlyDays: 30,
		Interval:   10 * time.Millisecond,
	})

	for i := 0; i < 2; i++ {
		select {
		case <-p.ch:
		case <-time.After(2 * time.Second):
			t.Fatal("retention did not run")
		}
	}
}

func TestStartBackgroundTasks_DisabledWithoutDays(t *testing.T) {
	p := &fakePurger{ch: make(chan struct{}, 1)}
	StartBackgroundTasks(context.Background(), BackgroundTaskDeps{Retention: p, Interval: time.Millisecond})
	time.Sleep(20 * time.Millisecond)
	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Equal(t, 0, p.calls)
}

func TestPprofManager_DisabledIsNoop(t *testing.T) {
	m := NewPprofManager(PprofConfig{})
	require.NoError(t, m.Start())
	assert.False(t, m.IsRunning())
	require.NoError(t, m.Stop(context.Background()))
}

func TestPprofBasicAuth(t *testing.T) {
	h := basicAuth(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), "secret")

	tests := []struct {
		user, pass string
		set        bool
		want       int
	}{
		{"", "", false, http.StatusUnauthorized},
		{"pprof", "wrong", true, http.StatusUnauthorized},
		{"admin", "secret", true, http.StatusUnauthorized},
		{"pprof", "secret", true, http.StatusNoContent},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
		if tt.set {
			req.SetBasicAuth(tt.user, tt.pass)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, tt.want, rec.Code, "%s:%s", tt.user, tt.pass)
	}
}
