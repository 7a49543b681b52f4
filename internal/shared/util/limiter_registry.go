package util

import (
	"sync"
	"time"
)

const defaultIdleTTL = 10 * time.Minute

// LimiterRegistry hands out one Limiter per client key and forgets keys that
// stay idle longer than the configured TTL.
type LimiterRegistry struct {
	perSecond float64
	burst     int
	idleTTL   time.Duration

	mu      sync.Mutex
	clients map[string]*client

	stop     chan struct{}
	stopOnce sync.Once
}

type client struct {
	limiter *Limiter
	seen    time.Time
}

// NewLimiterRegistry starts a registry whose sweeper runs every idleTTL/2.
func NewLimiterRegistry(perSecond float64, burst int, idleTTL time.Duration) *LimiterRegistry {
	if idleTTL <= 0 {
		idleTTL = defaultIdleTTL
	}
	reg := &LimiterRegistry{
		perSecond: perSecond,
		burst:     burst,
		idleTTL:   idleTTL,
		clients:   make(map[string]*client),
		stop:      make(chan struct{}),
	}
	go reg.sweepLoop()
	return reg
}

// Get returns the limiter for key, creating it on first sight.
func (r *LimiterRegistry) Get(key string) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[key]
	if !ok {
		c = &client{limiter: NewLimiter(r.perSecond, r.burst)}
		r.clients[key] = c
	}
	c.seen = time.Now()
	return c.limiter
}

// Admit is Get(key).Admit().
func (r *LimiterRegistry) Admit(key string) (bool, time.Duration) {
	return r.Get(key).Admit()
}

// Len reports how many client keys are currently tracked.
func (r *LimiterRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Close stops the sweeper. Safe to call more than once.
func (r *LimiterRegistry) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *LimiterRegistry) sweepLoop() {
	ticker := time.NewTicker(r.idleTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case now := <-ticker.C:
			r.sweep(now)
		}
	}
}

func (r *LimiterRegistry) sweep(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, c := range r.clients {
		if now.Sub(c.seen) > r.idleTTL {
			delete(r.clients, key)
		}
	}
}
