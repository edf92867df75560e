package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SergeiKhy/link-redirector/internal/models"
	"github.com/SergeiKhy/link-redirector/internal/repository"
	"go.uber.org/zap"
)

// Константы worker pool
const (
	defaultWorkerCount   = 3
	defaultChannelBuffer = 1000
	defaultEventTimeout  = 5 * time.Second
)

type DispatcherConfig struct {
	Workers int
	Buffer  int
	Timeout time.Duration // per event, covers record + count
}

// VisitDispatcher выполняет побочные эффекты редиректа (запись визита и подсчёт клика)
// вне запроса. Dispatch не блокируется и не возвращает ошибок.
type VisitDispatcher interface {
	Start()
	Stop()
	Dispatch(event *models.VisitEvent)
	Stats() DispatcherStats
}

// DispatcherStats статистика worker pool
type DispatcherStats struct {
	BufferSize  int   `json:"buffer_size"`
	BufferUsed  int   `json:"buffer_used"`
	WorkerCount int   `json:"worker_count"`
	Processed   int64 `json:"processed"`
	Failed      int64 `json:"failed"`
	Overflowed  int64 `json:"overflowed"`
}

type visitDispatcher struct {
	recorder  VisitRecorder
	counter   ClickCounter
	cacheRepo repository.CacheRepository
	logger    *zap.Logger

	events  chan *models.VisitEvent
	workers int
	timeout time.Duration

	// ctx не связан с HTTP-запросом: отключение клиента не прерывает запись
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	started bool
	stopped bool

	processed  atomic.Int64
	failed     atomic.Int64
	overflowed atomic.Int64
}

// NewVisitDispatcher создаёт пул воркеров. cacheRepo может быть nil
func NewVisitDispatcher(recorder VisitRecorder, counter ClickCounter, cacheRepo repository.CacheRepository, cfg DispatcherConfig, logger *zap.Logger) VisitDispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkerCount
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = defaultChannelBuffer
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultEventTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &visitDispatcher{
		recorder:  recorder,
		counter:   counter,
		cacheRepo: cacheRepo,
		logger:    logger,
		events:    make(chan *models.VisitEvent, cfg.Buffer),
		workers:   cfg.Workers,
		timeout:   cfg.Timeout,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start запускает воркеров
func (d *visitDispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped {
		return
	}
	d.started = true

	d.logger.Info("Starting visit dispatcher", zap.Int("workers", d.workers))

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
}

// Stop закрывает канал и ждёт, пока воркеры обработают оставшиеся события
func (d *visitDispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.events)
	started := d.started
	d.mu.Unlock()

	d.logger.Info("Stopping visit dispatcher...")

	// без воркеров буфер разбираем сами
	if !started {
		for event := range d.events {
			d.process(event)
		}
	}

	d.wg.Wait()
	d.cancel()
	d.logger.Info("Visit dispatcher stopped")
}

func (d *visitDispatcher) worker(id int) {
	defer d.wg.Done()

	d.logger.Debug("Visit worker started", zap.Int("id", id))
	for event := range d.events {
		d.process(event)
	}
	d.logger.Debug("Visit worker stopped", zap.Int("id", id))
}

// Dispatch ставит событие в очередь. При переполненном буфере событие
// обрабатывается в отдельной горутине, а не теряется.
func (d *visitDispatcher) Dispatch(event *models.VisitEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	// после Stop контекст пула отменён, поэтому событие получает свой
	if d.stopped {
		d.logger.Warn("Dispatcher stopped, processing visit on a detached goroutine", zap.String("short_code", event.ShortCode))
		go d.processWith(context.Background(), event)
		return
	}

	select {
	case d.events <- event:
	default:
		d.overflowed.Add(1)
		d.logger.Warn("Visit buffer full, processing on a detached goroutine",
			zap.String("short_code", event.ShortCode),
		)
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.process(event)
		}()
	}
}

func (d *visitDispatcher) process(event *models.VisitEvent) {
	d.processWith(d.ctx, event)
}

// processWith выполняет оба шага, сбой одного не отменяет другой
func (d *visitDispatcher) processWith(parent context.Context, event *models.VisitEvent) {
	ctx, cancel := context.WithTimeout(parent, d.timeout)
	defer cancel()

	recorded := d.run("record", event, func() error {
		_, err := d.recorder.Record(ctx, event)
		return err
	})
	counted := d.run("count", event, func() error {
		_, err := d.counter.Increment(ctx, event.Link)
		if errors.Is(err, repository.ErrLinkNotFound) {
			d.evict(ctx, event)
		}
		return err
	})

	if recorded && counted {
		d.processed.Add(1)
	} else {
		d.failed.Add(1)
	}
}

func (d *visitDispatcher) run(step string, event *models.VisitEvent, fn func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			d.logger.Error("Side effect panicked",
				zap.String("step", step),
				zap.String("short_code", event.ShortCode),
				zap.Error(fmt.Errorf("panic: %v", r)),
			)
		}
	}()

	if err := fn(); err != nil {
		d.logger.Warn("Side effect failed",
			zap.String("step", step),
			zap.String("short_code", event.ShortCode),
			zap.String("link_id", event.Link.ID.String()),
			zap.Error(err),
		)
		return false
	}
	return true
}

// evict убирает из кэша код ссылки, удалённой между чтением и записью кэша
func (d *visitDispatcher) evict(ctx context.Context, event *models.VisitEvent) {
	if d.cacheRepo == nil {
		return
	}
	if err := d.cacheRepo.Delete(ctx, event.ShortCode); err != nil {
		d.logger.Warn("Failed to evict stale link", zap.String("short_code", event.ShortCode), zap.Error(err))
		return
	}
	d.logger.Info("Evicted stale link from cache", zap.String("short_code", event.ShortCode))
}

// Stats возвращает статистику для мониторинга
func (d *visitDispatcher) Stats() DispatcherStats {
	return DispatcherStats{
		BufferSize:  cap(d.events),
		BufferUsed:  len(d.events),
		WorkerCount: d.workers,
		Processed:   d.processed.Load(),
		Failed:      d.failed.Load(),
		Overflowed:  d.overflowed.Load(),
	}
}
