package proxy

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"dycrawler/pkg/logger"
	"dycrawler/pkg/retry"
)

// ErrPoolEmpty means the provider returned no usable endpoints.
var ErrPoolEmpty = errors.New("proxy pool is empty")

// PoolConfig holds proxy pool settings.
type PoolConfig struct {
	// Count is how many endpoints one provider call asks for.
	Count int
	// Validate enables a liveness probe on every acquisition.
	Validate bool
	// ProbeURL is the target of the liveness probe.
	ProbeURL string
	// ProbeTimeout bounds one probe attempt.
	ProbeTimeout time.Duration
	// AcquireAttempts bounds how often a failed acquisition is retried.
	AcquireAttempts int
	// AcquireDelay is the fixed spacing between acquisition attempts.
	AcquireDelay time.Duration
}

// DefaultPoolConfig returns the pool defaults: 3 acquisition attempts
// one second apart, probing enabled.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Count:           5,
		Validate:        true,
		ProbeURL:        "https://httpbin.org/ip",
		ProbeTimeout:    10 * time.Second,
		AcquireAttempts: 3,
		AcquireDelay:    time.Second,
	}
}

// Pool hands out proxy endpoints. Consumption is destructive: each
// endpoint is given out at most once per load, and the pool reloads
// from the provider when it runs dry.
type Pool struct {
	mu        sync.Mutex
	provider  Provider
	endpoints []*Endpoint
	cfg       PoolConfig
	log       logger.Logger
}

// NewPool creates a proxy pool over the given provider.
func NewPool(provider Provider, cfg PoolConfig, log logger.Logger) *Pool {
	if log == nil {
		log = logger.GetLogger()
	}
	if cfg.Count <= 0 {
		cfg.Count = DefaultPoolConfig().Count
	}
	if cfg.AcquireAttempts <= 0 {
		cfg.AcquireAttempts = DefaultPoolConfig().AcquireAttempts
	}
	if cfg.AcquireDelay <= 0 {
		cfg.AcquireDelay = DefaultPoolConfig().AcquireDelay
	}
	return &Pool{
		provider: provider,
		cfg:      cfg,
		log:      log,
	}
}

// Load fetches count endpoints from the provider and replaces the
// in-memory list.
func (p *Pool) Load(ctx context.Context, count int) error {
	endpoints, err := p.provider.FetchProxies(ctx, count)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.endpoints = endpoints
	p.mu.Unlock()

	p.log.InfoWithFields("proxy pool loaded", map[string]interface{}{
		"count": len(endpoints),
	})
	return nil
}

// Acquire picks a random endpoint, removes it from the pool, and
// probes it when validation is enabled. Acquisition retries a bounded
// number of times with fixed spacing before giving up.
func (p *Pool) Acquire(ctx context.Context) (*Endpoint, error) {
	return retry.DoWithResult(func() (*Endpoint, error) {
		return p.acquireOnce(ctx)
	}, &retry.Config{
		MaxAttempts: p.cfg.AcquireAttempts,
		Backoff:     &retry.ConstantBackoff{Delay: p.cfg.AcquireDelay},
		RetryIf:     func(err error) bool { return err != nil },
		Context:     ctx,
		Logger:      p.log,
	})
}

func (p *Pool) acquireOnce(ctx context.Context) (*Endpoint, error) {
	p.mu.Lock()
	if len(p.endpoints) == 0 {
		p.mu.Unlock()
		if err := p.Load(ctx, p.cfg.Count); err != nil {
			return nil, err
		}
		p.mu.Lock()
	}
	if len(p.endpoints) == 0 {
		p.mu.Unlock()
		return nil, ErrPoolEmpty
	}

	// Random pick, destructive remove
	idx := rand.Intn(len(p.endpoints))
	ep := p.endpoints[idx]
	p.endpoints = append(p.endpoints[:idx], p.endpoints[idx+1:]...)
	p.mu.Unlock()

	if ep.IsExpired() {
		return nil, fmt.Errorf("proxy %s already expired", ep)
	}

	if p.cfg.Validate {
		if err := p.probe(ctx, ep); err != nil {
			p.log.WarnWithFields("proxy failed liveness probe", map[string]interface{}{
				"proxy": ep.String(),
				"error": err.Error(),
			})
			return nil, err
		}
	}

	p.log.DebugWithFields("proxy acquired", map[string]interface{}{
		"proxy":   ep.String(),
		"expires": ep.ExpiresAt,
	})
	return ep, nil
}

// probe issues one request through the endpoint to confirm it routes.
func (p *Pool) probe(ctx context.Context, ep *Endpoint) error {
	client := &http.Client{
		Timeout: p.cfg.ProbeTimeout,
		Transport: &http.Transport{
			Proxy: http.ProxyURL(ep.URL()),
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.ProbeURL, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("probe through %s failed: %w", ep, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("probe through %s returned status %d", ep, resp.StatusCode)
	}
	return nil
}

// Invalidate reports the endpoint to the provider (best-effort) and
// removes it from the in-memory list if still present. Matching is by
// full identity since endpoints carry no key.
func (p *Pool) Invalidate(ctx context.Context, ep *Endpoint) {
	if ep == nil {
		return
	}

	if err := p.provider.MarkInvalid(ctx, ep); err != nil {
		p.log.WarnWithFields("failed to report dead proxy to provider", map[string]interface{}{
			"proxy": ep.String(),
			"error": err.Error(),
		})
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for i, candidate := range p.endpoints {
		if candidate.Equal(ep) {
			p.endpoints = append(p.endpoints[:i], p.endpoints[i+1:]...)
			break
		}
	}

	p.log.DebugWithFields("proxy invalidated", map[string]interface{}{
		"proxy": ep.String(),
	})
}

// Size returns the number of endpoints currently pooled.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.endpoints)
}
