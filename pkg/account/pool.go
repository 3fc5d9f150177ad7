package account

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"dycrawler/pkg/logger"
)

// Pool errors
var (
	// ErrSourceUnavailable means the external credential source could
	// not be read at all.
	ErrSourceUnavailable = errors.New("credential source unavailable")
	// ErrNoActiveCredential means every credential is invalid, even
	// after reloading from the source.
	ErrNoActiveCredential = errors.New("no active credential in pool")
)

// Pool owns the in-memory credential list for a run. It is the sole
// authority for status transitions; invalidation never rewrites the
// external source.
type Pool struct {
	mu       sync.Mutex
	store    Store
	platform string
	creds    []*Credential
	nextID   int64
	log      logger.Logger
}

// NewPool creates a credential pool fed by the given store.
func NewPool(store Store, platform string, log logger.Logger) *Pool {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Pool{
		store:    store,
		platform: platform,
		log:      log,
	}
}

// Load populates the in-memory credential list from the source. The
// list is replaced wholesale, so credentials invalidated earlier in
// the run come back active if the source still lists them.
func (p *Pool) Load() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadLocked()
}

func (p *Pool) loadLocked() error {
	creds, err := p.store.List()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	p.creds = p.creds[:0]
	for _, cred := range creds {
		p.nextID++
		c := *cred
		c.ID = p.nextID
		c.Platform = p.platform
		c.Status = StatusActive
		c.InvalidatedAt = 0
		p.creds = append(p.creds, &c)
	}

	p.log.InfoWithFields("credential pool loaded", map[string]interface{}{
		"platform": p.platform,
		"count":    len(p.creds),
	})
	return nil
}

// AcquireActive returns the first credential with status active, in
// load order. If none is found it reloads from the source once and
// scans again before giving up.
func (p *Pool) AcquireActive() (*Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cred := p.firstActiveLocked(); cred != nil {
		return cred, nil
	}

	// Reload-on-exhaustion recovers from stale in-memory state without
	// restarting the process.
	p.log.Warn("no active credential in memory, reloading from source")
	if err := p.loadLocked(); err != nil {
		return nil, err
	}

	if cred := p.firstActiveLocked(); cred != nil {
		return cred, nil
	}
	return nil, ErrNoActiveCredential
}

func (p *Pool) firstActiveLocked() *Credential {
	for _, cred := range p.creds {
		if cred.IsActive() {
			return cred
		}
	}
	return nil
}

// Invalidate marks a credential invalid and records when. Invalidating
// twice is a no-op; the external source is never touched.
func (p *Pool) Invalidate(cred *Credential) {
	if cred == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, c := range p.creds {
		if c.ID != cred.ID {
			continue
		}
		if c.Status == StatusInvalid {
			return
		}
		c.Status = StatusInvalid
		c.InvalidatedAt = time.Now().Unix()
		p.log.WarnWithFields("credential invalidated", map[string]interface{}{
			"account": c.Name,
			"id":      c.ID,
		})
		return
	}
}

// Size returns the number of credentials currently loaded.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.creds)
}

// ActiveCount returns the number of credentials still active.
func (p *Pool) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	count := 0
	for _, cred := range p.creds {
		if cred.IsActive() {
			count++
		}
	}
	return count
}
