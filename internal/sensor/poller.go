// Package sensor polls the backend for the latest environmental snapshot.
package sensor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"smartfarm-dashboard-go/internal/farmapi"
)

// DefaultInterval matches the dashboard's status page refresh.
const DefaultInterval = 2000 * time.Millisecond

// Fetcher is the sensor collaborator.
type Fetcher interface {
	LatestSensor(ctx context.Context) (*farmapi.SensorSnapshot, error)
}

type ticker interface {
	C() <-chan time.Time
	Stop()
}

type wallTicker struct{ t *time.Ticker }

func (w wallTicker) C() <-chan time.Time { return w.t.C }
func (w wallTicker) Stop()               { w.t.Stop() }

func newWallTicker(d time.Duration) ticker {
	return wallTicker{t: time.NewTicker(d)}
}

// Poller starts repeating snapshot fetches.
type Poller struct {
	api       Fetcher
	log       *log.Logger
	newTicker func(time.Duration) ticker
}

func NewPoller(api Fetcher, logger *log.Logger) *Poller {
	if logger == nil {
		logger = log.Default()
	}
	return &Poller{
		api:       api,
		log:       logger.WithPrefix("Sensor"),
		newTicker: newWallTicker,
	}
}

type Stats struct {
	Ticks     uint64
	Succeeded uint64
	Failed    uint64
}

// PollHandle owns one repeating loop.
type PollHandle struct {
	id       uuid.UUID
	interval time.Duration
	store    *Store
	log      *log.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// mu serializes delivery with Stop so no callback runs after Stop returns.
	mu         sync.Mutex
	stopped    atomic.Bool
	onSnapshot func(*farmapi.SensorSnapshot)

	stopOnce sync.Once
	inflight sync.WaitGroup
	loopDone chan struct{}
	done     chan struct{}

	ticks     atomic.Uint64
	succeeded atomic.Uint64
	failed    atomic.Uint64
}

// Start fetches once immediately and then once per interval. A slow fetch
// never delays the next tick, so fetches may overlap; whichever resolves last
// wins. Failures are logged and counted and never stop the schedule.
func (p *Poller) Start(interval time.Duration, onSnapshot func(*farmapi.SensorSnapshot)) *PollHandle {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &PollHandle{
		id:         uuid.New(),
		interval:   interval,
		store:      NewStore(),
		ctx:        ctx,
		cancel:     cancel,
		onSnapshot: onSnapshot,
		loopDone:   make(chan struct{}),
		done:       make(chan struct{}),
	}
	h.log = p.log.With("poll", h.id.String()[:8])
	h.log.Info("polling started", "interval", interval)

	go p.loop(h)
	go func() {
		<-h.loopDone
		h.inflight.Wait()
		close(h.done)
	}()
	return h
}

// Stop is a convenience for h.Stop.
func (p *Poller) Stop(h *PollHandle) {
	if h != nil {
		h.Stop()
	}
}

func (p *Poller) loop(h *PollHandle) {
	defer close(h.loopDone)

	t := p.newTicker(h.interval)
	defer t.Stop()

	p.spawn(h)
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-t.C():
			p.spawn(h)
		}
	}
}

func (p *Poller) spawn(h *PollHandle) {
	h.ticks.Add(1)
	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		snap, err := p.api.LatestSensor(h.ctx)
		h.deliver(snap, err)
	}()
}

func (h *PollHandle) deliver(snap *farmapi.SensorSnapshot, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped.Load() {
		return
	}
	if err != nil {
		h.failed.Add(1)
		h.store.MarkFailed()
		h.log.Warn("sensor fetch failed", "err", err, "failures", h.failed.Load())
		return
	}
	h.store.Put(snap)
	h.succeeded.Add(1)
	if h.onSnapshot != nil {
		h.onSnapshot(snap)
	}
}

// Stop ends the loop and cancels in-flight fetches. It is idempotent and
// no callback is delivered once it returns. It must not be called from
// inside the snapshot callback.
func (h *PollHandle) Stop() {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		h.stopped.Store(true)
		h.mu.Unlock()
		h.cancel()
		h.log.Info("polling stopped", "ticks", h.ticks.Load(), "failed", h.failed.Load())
	})
}

func (h *PollHandle) ID() string {
	return h.id.String()
}

// Done is closed once the loop and every in-flight fetch have finished.
func (h *PollHandle) Done() <-chan struct{} {
	return h.done
}

// Stopped reports whether Stop has been called.
func (h *PollHandle) Stopped() bool {
	return h.stopped.Load()
}

// Latest is the last delivered snapshot.
func (h *PollHandle) Latest() *farmapi.SensorSnapshot {
	return h.store.Latest()
}

func (h *PollHandle) Stats() Stats {
	return Stats{
		Ticks:     h.ticks.Load(),
		Succeeded: h.succeeded.Load(),
		Failed:    h.failed.Load(),
	}
}
