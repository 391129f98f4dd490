// Package health runs periodic reachability probes against webhook
// subscription endpoints and disables subscriptions that fail repeatedly.
package health

import (
	"context"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config holds health check configuration.
type Config struct {
	CheckInterval time.Duration
	ProbeTimeout  time.Duration
	FailThreshold int
}

// EndpointLister returns active webhook endpoints to probe.
type EndpointLister interface {
	ListActiveEndpoints(ctx context.Context) ([]Endpoint, error)
}

// HealthUpdater records a subscription's consecutive failure count and
// active flag.
type HealthUpdater interface {
	UpdateEndpointHealth(ctx context.Context, id uuid.UUID, failures int, active bool) error
}

// Endpoint is the minimal data needed for health probes.
type Endpoint struct {
	ID  uuid.UUID
	URL string
}

// MetricsRecordFunc is an optional callback for recording probe results.
type MetricsRecordFunc func(success bool)

// Checker runs periodic webhook endpoint health probes.
type Checker struct {
	lister     EndpointLister
	updater    HealthUpdater
	httpClient *http.Client
	failCounts map[uuid.UUID]int
	mu         sync.Mutex
	cfg        Config
	onMetrics  MetricsRecordFunc
	logger     *zap.Logger
}

// New creates a new Checker.
func New(lister EndpointLister, updater HealthUpdater, cfg Config, logger *zap.Logger) *Checker {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 5 * time.Minute
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 10 * time.Second
	}
	if cfg.FailThreshold == 0 {
		cfg.FailThreshold = 3
	}

	return &Checker{
		lister:     lister,
		updater:    updater,
		httpClient: &http.Client{Timeout: cfg.ProbeTimeout},
		failCounts: make(map[uuid.UUID]int),
		cfg:        cfg,
		logger:     logger,
	}
}

// SetMetricsRecord configures the metrics recording callback.
func (h *Checker) SetMetricsRecord(fn MetricsRecordFunc) {
	h.onMetrics = fn
}

// Start runs the health check loop until quit is signalled.
func (h *Checker) Start(quit <-chan os.Signal) {
	ticker := time.NewTicker(h.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), h.cfg.CheckInterval-time.Second)
			h.CheckAll(ctx)
			cancel()
		case <-quit:
			return
		}
	}
}

// CheckAll probes all active webhook endpoints with bounded concurrency.
func (h *Checker) CheckAll(ctx context.Context) {
	endpoints, err := h.lister.ListActiveEndpoints(ctx)
	if err != nil {
		h.logger.Error("health: list endpoints", zap.Error(err))
		return
	}

	sem := make(chan struct{}, 10)
	var wg sync.WaitGroup

	for _, e := range endpoints {
		wg.Add(1)
		go func(ep Endpoint) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			success := h.probeEndpoint(ctx, ep.URL)

			if h.onMetrics != nil {
				h.onMetrics(success)
			}

			h.mu.Lock()
			if success {
				h.failCounts[ep.ID] = 0
			} else {
				h.failCounts[ep.ID]++
			}
			count := h.failCounts[ep.ID]
			h.mu.Unlock()

			if success {
				if err := h.updater.UpdateEndpointHealth(ctx, ep.ID, 0, true); err != nil {
					h.logger.Warn("health: update endpoint", zap.Error(err))
				}
				return
			}

			// Once disabled the endpoint drops out of ListActiveEndpoints,
			// so the threshold transition happens exactly once.
			disable := count >= h.cfg.FailThreshold
			if err := h.updater.UpdateEndpointHealth(ctx, ep.ID, count, !disable); err != nil {
				h.logger.Warn("health: update endpoint", zap.Error(err))
			}
			if disable {
				h.logger.Warn("health: subscription disabled",
					zap.String("url", ep.URL),
					zap.Int("fail_count", count),
				)
			}
		}(e)
	}

	wg.Wait()
}

// probeEndpoint attempts HEAD then GET, returning true if any 2xx response.
func (h *Checker) probeEndpoint(ctx context.Context, endpoint string) bool {
	// Try HEAD first.
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, endpoint, nil)
	if err != nil {
		return false
	}
	resp, err := h.httpClient.Do(req)
	if err == nil {
		resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return true
		}
	}

	// Fallback to GET.
	req, err = http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false
	}
	resp, err = h.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
