package worker

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/client-dashboard/pkg/logger"
)

// Pinger reports whether the client API answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BackendProbe pings the client API on an interval and publishes the result
// as a 0/1 gauge, logging only when reachability changes.
type BackendProbe struct {
	backend  Pinger
	interval time.Duration
	timeout  time.Duration
	up       prometheus.Gauge
	log      *logger.Logger
}

func NewBackendProbe(backend Pinger, interval, timeout time.Duration, up prometheus.Gauge, log *logger.Logger) *BackendProbe {
	if log == nil {
		log = logger.Nop()
	}
	return &BackendProbe{
		backend:  backend,
		interval: interval,
		timeout:  timeout,
		up:       up,
		log:      log,
	}
}

// Start probes once immediately, then on every tick until ctx is done.
func (w *BackendProbe) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	last := w.probe(ctx, nil)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			last = w.probe(ctx, last)
		}
	}
}

func (w *BackendProbe) probe(ctx context.Context, last *bool) *bool {
	pingCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	err := w.backend.Ping(pingCtx)
	if ctx.Err() != nil {
		return last
	}

	up := err == nil
	if up {
		w.up.Set(1)
	} else {
		w.up.Set(0)
	}

	if last == nil || *last != up {
		if up {
			w.log.Info("client API reachable")
		} else {
			w.log.Warn(err, "client API unreachable")
		}
	}
	return &up
}
