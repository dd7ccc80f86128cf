// Package camera keeps the latest photo of the farm camera on screen.
//
// The feed polls the backend's latest-image endpoint on a fixed interval and
// installs every fresh image into the camera preview slot, so the previous
// handle is always released first. The current image can be saved to disk.
package camera

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"smartfarm-dashboard-go/internal/farmapi"
	"smartfarm-dashboard-go/internal/farmerr"
	"smartfarm-dashboard-go/internal/preview"
)

// DefaultInterval matches the camera page refresh.
const DefaultInterval = 30 * time.Second

// Fetcher is the latest-image collaborator.
type Fetcher interface {
	LatestImage(ctx context.Context) (*farmapi.Image, error)
}

// Feed is safe for concurrent use.
type Feed struct {
	api      Fetcher
	previews *preview.Manager
	log      *log.Logger
	interval time.Duration
	now      func() time.Time

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
	onUpdate  func(*preview.Handle)
	fetchedAt time.Time

	fetches  atomic.Uint64
	failures atomic.Uint64
}

func NewFeed(api Fetcher, previews *preview.Manager, logger *log.Logger, interval time.Duration) *Feed {
	if logger == nil {
		logger = log.Default()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Feed{
		api:      api,
		previews: previews,
		log:      logger.WithPrefix("Camera"),
		interval: interval,
		now:      time.Now,
	}
}

// Start fetches immediately and then once per interval until Stop. onUpdate
// runs after every new image is installed. Calling Start on a running feed
// does nothing.
func (f *Feed) Start(onUpdate func(*preview.Handle)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	f.running = true
	f.cancel = cancel
	f.done = make(chan struct{})
	f.onUpdate = onUpdate
	go f.loop(ctx, f.done)
	f.log.Info("camera feed started", "interval", f.interval)
}

// Stop ends the loop and waits for it. Safe to call more than once.
func (f *Feed) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	f.running = false
	cancel, done := f.cancel, f.done
	f.onUpdate = nil
	f.mu.Unlock()

	cancel()
	<-done
	f.log.Info("camera feed stopped", "fetches", f.fetches.Load(), "failures", f.failures.Load())
}

func (f *Feed) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	f.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.tick(ctx)
		}
	}
}

func (f *Feed) tick(ctx context.Context) {
	h, err := f.Refresh(ctx)
	if err != nil {
		if ctx.Err() == nil {
			f.log.Warn("latest image fetch failed", "err", err, "failures", f.failures.Load())
		}
		return
	}
	f.mu.Lock()
	cb := f.onUpdate
	f.mu.Unlock()
	if cb != nil {
		cb(h)
	}
}

// Refresh fetches the latest image once and installs it.
func (f *Feed) Refresh(ctx context.Context) (*preview.Handle, error) {
	f.fetches.Add(1)
	img, err := f.api.LatestImage(ctx)
	if err != nil {
		f.failures.Add(1)
		return nil, err
	}
	name := fmt.Sprintf("latest_%d.jpg", f.now().UnixMilli())
	h := f.previews.SetPreview(preview.SlotCamera, img.Data, name, img.ContentType)

	f.mu.Lock()
	f.fetchedAt = f.now()
	f.mu.Unlock()
	return h, nil
}

// Current is the live camera preview, nil before the first image.
func (f *Feed) Current() *preview.Handle {
	return f.previews.Current(preview.SlotCamera)
}

// FetchedAt is the time of the last successful fetch.
func (f *Feed) FetchedAt() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchedAt
}

// Save writes the current image into dir as camera_image_<unix-ms>.jpg and
// returns the written path.
func (f *Feed) Save(dir string) (string, error) {
	const op = "save"
	h := f.Current()
	if h == nil {
		return "", farmerr.New(farmerr.KindUserInputMissing, op, "no camera image yet")
	}
	data, err := h.Bytes()
	if err != nil {
		return "", farmerr.Wrap(farmerr.KindUserInputMissing, op, "the camera image was replaced", err)
	}
	return WriteImage(dir, data, f.now())
}

// WriteImage stores data as camera_image_<unix-ms>.jpg under dir.
func WriteImage(dir string, data []byte, at time.Time) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("camera: create save dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("camera_image_%d.jpg", at.UnixMilli()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("camera: write image: %w", err)
	}
	return path, nil
}
