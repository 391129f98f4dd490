package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ── Stubs ────────────────────────────────────────────────────────────────

type stubLister struct {
	endpoints []Endpoint
}

func (s *stubLister) ListActiveEndpoints(_ context.Context) ([]Endpoint, error) {
	return s.endpoints, nil
}

type stubUpdater struct {
	failures map[uuid.UUID]int
	active   map[uuid.UUID]bool
}

func (s *stubUpdater) UpdateEndpointHealth(_ context.Context, id uuid.UUID, failures int, active bool) error {
	s.failures[id] = failures
	s.active[id] = active
	return nil
}

func newStubUpdater() *stubUpdater {
	return &stubUpdater{
		failures: make(map[uuid.UUID]int),
		active:   make(map[uuid.UUID]bool),
	}
}

// ── Tests ────────────────────────────────────────────────────────────────

func TestProbeEndpoint_success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	checker := New(nil, nil, Config{ProbeTimeout: 5 * time.Second}, zap.NewNop())
	if !checker.probeEndpoint(context.Background(), srv.URL) {
		t.Error("expected probe to succeed")
	}
}

func TestProbeEndpoint_failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	checker := New(nil, nil, Config{ProbeTimeout: 5 * time.Second}, zap.NewNop())
	if checker.probeEndpoint(context.Background(), srv.URL) {
		t.Error("expected probe to fail")
	}
}

func TestCheckAll_disablesAfterThreshold(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	subID := uuid.New()
	lister := &stubLister{endpoints: []Endpoint{
		{ID: subID, URL: srv.URL},
	}}
	updater := newStubUpdater()

	checker := New(lister, updater, Config{
		ProbeTimeout:  5 * time.Second,
		FailThreshold: 3,
	}, zap.NewNop())

	// Run 3 times to hit the threshold.
	for i := 0; i < 3; i++ {
		checker.CheckAll(context.Background())
	}

	if updater.active[subID] {
		t.Error("expected subscription to be disabled after reaching the threshold")
	}
	if updater.failures[subID] != 3 {
		t.Errorf("expected 3 recorded failures, got %d", updater.failures[subID])
	}
}

func TestCheckAll_resetsOnSuccess(t *testing.T) {
	failCount := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failCount < 2 {
			failCount++
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	subID := uuid.New()
	lister := &stubLister{endpoints: []Endpoint{
		{ID: subID, URL: srv.URL},
	}}
	updater := newStubUpdater()

	checker := New(lister, updater, Config{
		ProbeTimeout:  5 * time.Second,
		FailThreshold: 3,
	}, zap.NewNop())

	// Fail twice (below threshold), then succeed.
	for i := 0; i < 3; i++ {
		checker.CheckAll(context.Background())
	}

	if !updater.active[subID] {
		t.Error("expected subscription to stay active after recovery")
	}
	if updater.failures[subID] != 0 {
		t.Errorf("expected failure count reset to 0, got %d", updater.failures[subID])
	}
}

func TestStart_returnsWhenStopChannelCloses(t *testing.T) {
	checker := New(&stubLister{}, newStubUpdater(), Config{CheckInterval: time.Hour}, zap.NewNop())

	stop := make(chan os.Signal)
	done := make(chan struct{})
	go func() {
		checker.Start(stop)
		close(done)
	}()

	close(stop)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after the stop channel closed")
	}
}
