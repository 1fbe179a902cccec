// Package session keeps one mounted dashboard controller per browser session.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/client-dashboard/internal/dashboard"
	"github.com/jwalitptl/client-dashboard/pkg/logger"
	"github.com/jwalitptl/client-dashboard/pkg/metrics"
)

// Factory builds an unmounted controller for a new session.
type Factory func() *dashboard.Controller

type Config struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

// Store maps session ids to mounted controllers. Sessions idle for longer
// than the TTL are evicted and their controllers unmounted.
type Store struct {
	cache   *cache.Cache
	factory Factory
	log     *logger.Logger
	metrics *metrics.Metrics

	// ctx outlives individual requests; controllers are mounted on it.
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	wg     sync.WaitGroup
}

func NewStore(cfg Config, factory Factory, log *logger.Logger, m *metrics.Metrics) *Store {
	if log == nil {
		log = logger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		// No go-cache janitor: it can only be stopped by a finalizer. The
		// store runs its own sweeper, bound to Close.
		cache:   cache.New(cfg.TTL, 0),
		factory: factory,
		log:     log,
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
	}
	s.cache.OnEvicted(s.evicted)

	if cfg.CleanupInterval > 0 {
		s.wg.Add(1)
		go s.sweepLoop(cfg.CleanupInterval)
	}
	return s
}

func (s *Store) sweepLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Get returns the controller for id, renewing its TTL. An empty or unknown
// id starts a new session; the returned id is the one to hand back to the
// browser.
func (s *Store) Get(id string) (*dashboard.Controller, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if v, found := s.cache.Get(id); found {
			ctrl := v.(*dashboard.Controller)
			s.cache.Set(id, ctrl, cache.DefaultExpiration)
			return ctrl, id, nil
		}
	}

	ctrl := s.factory()
	if err := ctrl.Mount(s.ctx); err != nil {
		return nil, "", err
	}
	id = uuid.New().String()
	s.cache.Set(id, ctrl, cache.DefaultExpiration)
	if s.metrics != nil {
		s.metrics.ActiveSessions.Inc()
	}
	s.log.Debug("session started", "session_id", id)
	return ctrl, id, nil
}

// Len reports the number of live sessions, expired ones included until the
// next sweep.
func (s *Store) Len() int {
	return s.cache.ItemCount()
}

// Sweep evicts expired sessions now instead of waiting for the next tick.
func (s *Store) Sweep() {
	s.cache.DeleteExpired()
}

// Close stops the sweeper and ends every session.
func (s *Store) Close() {
	s.cancel()
	s.wg.Wait()
	s.cache.DeleteExpired()
	for id := range s.cache.Items() {
		s.cache.Delete(id)
	}
}

func (s *Store) evicted(id string, v interface{}) {
	ctrl, ok := v.(*dashboard.Controller)
	if !ok {
		return
	}
	ctrl.Unmount()
	if s.metrics != nil {
		s.metrics.ActiveSessions.Dec()
	}
	s.log.Debug("session ended", "session_id", id)
}
