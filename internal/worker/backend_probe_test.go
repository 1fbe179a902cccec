package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type flakyBackend struct {
	down  atomic.Bool
	calls atomic.Int32
}

func (b *flakyBackend) Ping(ctx context.Context) error {
	b.calls.Add(1)
	if b.down.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func TestBackendProbeTracksReachability(t *testing.T) {
	backend := &flakyBackend{}
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "backend_up"})
	probe := NewBackendProbe(backend, 5*time.Millisecond, time.Second, gauge, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		probe.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return testutil.ToFloat64(gauge) == 1 }, time.Second, time.Millisecond)

	backend.down.Store(true)
	assert.Eventually(t, func() bool { return testutil.ToFloat64(gauge) == 0 }, time.Second, time.Millisecond)

	backend.down.Store(false)
	assert.Eventually(t, func() bool { return testutil.ToFloat64(gauge) == 1 }, time.Second, time.Millisecond)

	cancel()
	<-done
	assert.GreaterOrEqual(t, backend.calls.Load(), int32(3))
}
