package service_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/SergeiKhy/link-redirector/internal/models"
	"github.com/SergeiKhy/link-redirector/internal/service"
	"github.com/stretchr/testify/assert"
)

// slowRecorder blocks until release is closed.
type slowRecorder struct {
	release chan struct{}
	calls   atomic.Int64
}

func (r *slowRecorder) Record(ctx context.Context, _ *models.VisitEvent) (*models.Visit, error) {
	select {
	case <-r.release:
	case <-ctx.Done():
	}
	r.calls.Add(1)
	return &models.Visit{}, nil
}

type countingCounter struct {
	mu    sync.Mutex
	calls int
	panic bool
}

func (c *countingCounter) Increment(context.Context, models.LinkRef) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.panic {
		panic("boom")
	}
	return int64(c.calls), nil
}

func TestVisitDispatcher_OverflowIsNotDropped(t *testing.T) {
	recorder := &slowRecorder{release: make(chan struct{})}
	counter := &countingCounter{}
	d := service.NewVisitDispatcher(recorder, counter, nil,
		service.DispatcherConfig{Workers: 1, Buffer: 2, Timeout: 5 * time.Second}, zap.NewNop())
	d.Start()

	const n = 10
	for i := 0; i < n; i++ {
		d.Dispatch(&models.VisitEvent{ShortCode: "abc"})
	}

	stats := d.Stats()
	assert.Equal(t, 2, stats.BufferSize)
	assert.Equal(t, 1, stats.WorkerCount)
	assert.Positive(t, stats.Overflowed)

	close(recorder.release)
	d.Stop()

	assert.Equal(t, int64(n), recorder.calls.Load())
	assert.Equal(t, n, counter.calls)
	assert.Equal(t, int64(n), d.Stats().Processed)
}

func TestVisitDispatcher_StopDrainsWithoutWorkers(t *testing.T) {
	recorder := &slowRecorder{release: make(chan struct{})}
	close(recorder.release)
	counter := &countingCounter{}
	d := service.NewVisitDispatcher(recorder, counter, nil, service.DispatcherConfig{Buffer: 5}, zap.NewNop())

	for i := 0; i < 3; i++ {
		d.Dispatch(&models.VisitEvent{})
	}
	d.Stop()
	d.Stop()

	assert.Equal(t, int64(3), recorder.calls.Load())
	assert.Equal(t, 3, counter.calls)
}

func TestVisitDispatcher_PanicIsContained(t *testing.T) {
	recorder := &slowRecorder{release: make(chan struct{})}
	close(recorder.release)
	counter := &countingCounter{panic: true}
	d := service.NewVisitDispatcher(recorder, counter, nil, service.DispatcherConfig{Workers: 1}, zap.NewNop())
	d.Start()

	d.Dispatch(&models.VisitEvent{})
	d.Dispatch(&models.VisitEvent{})
	d.Stop()

	assert.Equal(t, int64(2), recorder.calls.Load())
	assert.Equal(t, int64(2), d.Stats().Failed)
}
