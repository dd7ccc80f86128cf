// Package view is the dashboard's state machine. It composes the preview
// manager, the image resolver, the analysis pipeline, the sensor poller and
// the trigger orchestrator behind one set of user actions.
package view

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"smartfarm-dashboard-go/internal/analysis"
	"smartfarm-dashboard-go/internal/farmapi"
	"smartfarm-dashboard-go/internal/farmerr"
	"smartfarm-dashboard-go/internal/imagesource"
	"smartfarm-dashboard-go/internal/preview"
	"smartfarm-dashboard-go/internal/sensor"
	"smartfarm-dashboard-go/internal/trigger"
)

var (
	ErrNotMounted        = errors.New("view: dashboard is not mounted")
	ErrSubmissionPending = errors.New("view: an analysis is already running")
)

const (
	noSourceText      = "choose an image first"
	triggerFailedText = "could not reach the device"
)

// API is everything the dashboard needs from the backend.
type API interface {
	imagesource.Fetcher
	analysis.Predictor
	sensor.Fetcher
	trigger.Triggerer
	ListUploads(ctx context.Context) ([]farmapi.Upload, error)
	Health(ctx context.Context) error
}

type Options struct {
	API            API
	Logger         *log.Logger
	SensorInterval time.Duration

	// Previews is shared with other owners of preview slots. A fresh manager
	// is created when nil.
	Previews *preview.Manager

	TriggerOptions []trigger.Option
}

// Dashboard is safe for concurrent use. Subscribers are called outside the
// state lock but must not call back into the dashboard synchronously.
type Dashboard struct {
	api            API
	log            *log.Logger
	previews       *preview.Manager
	resolver       *imagesource.Resolver
	pipeline       *analysis.Pipeline
	poller         *sensor.Poller
	orchestrator   *trigger.Orchestrator
	sensorInterval time.Duration

	mu    sync.Mutex
	state State
	poll  *sensor.PollHandle
	// submitGen drops completions of superseded submissions.
	submitGen uint64
	// previewGen drops stale gallery preview loads.
	previewGen uint64

	pubMu   sync.Mutex
	subsMu  sync.Mutex
	subs    map[int]func(State)
	nextSub int
}

func New(opts Options) *Dashboard {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	previews := opts.Previews
	if previews == nil {
		previews = preview.NewManager()
	}
	interval := opts.SensorInterval
	if interval <= 0 {
		interval = sensor.DefaultInterval
	}

	d := &Dashboard{
		api:            opts.API,
		log:            logger.WithPrefix("View"),
		previews:       previews,
		resolver:       imagesource.NewResolver(opts.API, logger),
		pipeline:       analysis.NewPipeline(opts.API, logger),
		poller:         sensor.NewPoller(opts.API, logger),
		sensorInterval: interval,
		subs:           make(map[int]func(State)),
	}
	d.orchestrator = trigger.New(opts.API, trigger.Refreshers{
		Gallery: d.RefreshGallery,
		Sensor:  d.refreshSensor,
	}, logger, opts.TriggerOptions...)
	return d
}

// Previews is the preview manager the dashboard releases on teardown.
func (d *Dashboard) Previews() *preview.Manager {
	return d.previews
}

// Mount starts the sensor poller and loads the gallery and the health probe
// concurrently. The dashboard stays mounted when the gallery load fails; the
// error is returned and shown in the gallery.
func (d *Dashboard) Mount(ctx context.Context) error {
	d.mu.Lock()
	if d.state.Mounted {
		d.mu.Unlock()
		return nil
	}
	d.state.Mounted = true
	d.poll = d.poller.Start(d.sensorInterval, d.applySensor)
	d.mu.Unlock()
	d.publish()
	d.log.Info("dashboard mounted", "sensor_interval", d.sensorInterval)

	// A failed gallery load must not cancel the health probe.
	var g errgroup.Group
	g.Go(func() error {
		return d.RefreshGallery(ctx)
	})
	g.Go(func() error {
		err := d.api.Health(ctx)
		if err != nil {
			d.log.Warn("backend health check failed", "err", err)
		}
		d.update(func(s *State) { s.ServerOnline = err == nil })
		return nil
	})
	return g.Wait()
}

// Teardown stops the poller and releases every preview handle. Follow-ups
// that fire later find the dashboard unmounted and do nothing.
func (d *Dashboard) Teardown() {
	d.mu.Lock()
	if !d.state.Mounted {
		d.mu.Unlock()
		return
	}
	d.state.Mounted = false
	d.state.Loading = false
	d.state.Preview = nil
	d.submitGen++
	d.previewGen++
	poll := d.poll
	d.poll = nil
	d.mu.Unlock()

	// Outside d.mu: a snapshot delivery may be waiting on it.
	if poll != nil {
		poll.Stop()
	}
	d.previews.ReleaseAll()
	d.publish()
	stats := d.previews.Stats()
	d.log.Info("dashboard torn down", "previews_created", stats.Created, "previews_released", stats.Released)
}

func (d *Dashboard) SelectTab(tab Tab) {
	d.update(func(s *State) { s.Tab = tab })
}

// PickLocal makes a file from disk the active source and previews it.
func (d *Dashboard) PickLocal(src imagesource.Local) error {
	d.mu.Lock()
	if !d.state.Mounted {
		d.mu.Unlock()
		return ErrNotMounted
	}
	d.newCycleLocked(src)
	d.state.Preview = d.previews.SetPreview(preview.SlotUpload, src.Bytes, src.Filename, src.MimeType)
	d.mu.Unlock()
	d.publish()
	return nil
}

// SelectGalleryEntry makes a captured image the active source. It always
// switches to the upload tab and clears the previous result; the preview
// bytes load in the background.
func (d *Dashboard) SelectGalleryEntry(ctx context.Context, entry farmapi.Upload) error {
	d.mu.Lock()
	if !d.state.Mounted {
		d.mu.Unlock()
		return ErrNotMounted
	}
	d.newCycleLocked(imagesource.Remote{URL: entry.URL, Filename: entry.Filename})
	d.state.Tab = TabUpload
	d.previews.Clear(preview.SlotUpload)
	d.state.Preview = nil
	gen := d.previewGen
	d.mu.Unlock()
	d.publish()

	go d.loadRemotePreview(ctx, gen, entry)
	return nil
}

func (d *Dashboard) loadRemotePreview(ctx context.Context, gen uint64, entry farmapi.Upload) {
	img, err := d.api.FetchImage(ctx, entry.URL)
	if err != nil {
		d.log.Warn("gallery preview failed", "file", entry.Filename, "err", err)
		return
	}
	d.mu.Lock()
	if !d.state.Mounted || gen != d.previewGen {
		d.mu.Unlock()
		return
	}
	d.state.Preview = d.previews.SetPreview(preview.SlotUpload, img.Data, entry.Filename, img.ContentType)
	d.mu.Unlock()
	d.publish()
}

// newCycleLocked replaces the source and starts a new analysis cycle.
func (d *Dashboard) newCycleLocked(src imagesource.Source) {
	d.state.Source = src
	d.state.Result = Result{Status: ResultNone}
	d.state.Loading = false
	d.submitGen++
	d.previewGen++
}

// Analyze resolves the active source and submits it. Only the most recently
// started submission may write the result; a call while one is pending is
// refused.
func (d *Dashboard) Analyze(ctx context.Context) (*analysis.Result, error) {
	d.mu.Lock()
	if !d.state.Mounted {
		d.mu.Unlock()
		return nil, ErrNotMounted
	}
	if d.state.Loading {
		d.mu.Unlock()
		return nil, ErrSubmissionPending
	}
	src := d.state.Source
	if src == nil {
		d.state.Notice = noSourceText
		d.mu.Unlock()
		d.publish()
		return nil, farmerr.New(farmerr.KindUserInputMissing, "analyze", noSourceText)
	}
	d.submitGen++
	gen := d.submitGen
	d.state.Loading = true
	d.state.Result = Result{Status: ResultPending}
	d.mu.Unlock()
	d.publish()

	payload, err := d.resolver.Resolve(ctx, src)
	var res *analysis.Result
	if err == nil {
		res, err = d.pipeline.Submit(ctx, payload)
	}

	d.mu.Lock()
	if gen != d.submitGen || !d.state.Mounted {
		d.mu.Unlock()
		d.log.Debug("dropping superseded analysis result", "source", src.Name())
		return res, err
	}
	d.state.Loading = false
	if err != nil {
		d.state.Result = Result{Status: ResultFailure, Text: farmerr.UserMessage(err, analysis.FailureText)}
	} else {
		d.state.Result = Result{Status: ResultSuccess, Text: res.Text()}
	}
	d.mu.Unlock()
	d.publish()
	return res, err
}

// Trigger wakes a device. A failure becomes the notice and leaves the
// dashboard usable.
func (d *Dashboard) Trigger(ctx context.Context, action trigger.Action) (*trigger.Task, error) {
	d.mu.Lock()
	mounted := d.state.Mounted
	d.mu.Unlock()
	if !mounted {
		return nil, ErrNotMounted
	}

	task, err := d.orchestrator.Trigger(ctx, action)
	if err != nil {
		d.update(func(s *State) { s.Notice = farmerr.UserMessage(err, triggerFailedText) })
	}
	return task, err
}

// RefreshGallery re-fetches the whole gallery. It is a no-op once unmounted.
func (d *Dashboard) RefreshGallery(ctx context.Context) error {
	if !d.isMounted() {
		return nil
	}
	uploads, err := d.api.ListUploads(ctx)
	if err != nil {
		d.log.Warn("gallery refresh failed", "err", err)
		d.update(func(s *State) {
			if s.Mounted {
				s.GalleryError = farmerr.UserMessage(err, "could not load the gallery")
			}
		})
		return err
	}
	d.update(func(s *State) {
		if s.Mounted {
			s.Gallery = uploads
			s.GalleryError = ""
		}
	})
	return nil
}

func (d *Dashboard) refreshSensor(ctx context.Context) error {
	if !d.isMounted() {
		return nil
	}
	snap, err := d.api.LatestSensor(ctx)
	if err != nil {
		return err
	}
	d.applySensor(snap)
	return nil
}

func (d *Dashboard) applySensor(snap *farmapi.SensorSnapshot) {
	d.update(func(s *State) {
		if s.Mounted {
			s.Sensor = snap
			s.SensorUpdated = time.Now()
		}
	})
}

// Reset clears the source, the preview and the result.
func (d *Dashboard) Reset() {
	d.mu.Lock()
	d.newCycleLocked(nil)
	d.previews.Clear(preview.SlotUpload)
	d.state.Preview = nil
	d.mu.Unlock()
	d.publish()
}

func (d *Dashboard) ClearNotice() {
	d.update(func(s *State) { s.Notice = "" })
}

// State returns a copy of the current state.
func (d *Dashboard) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Subscribe registers fn for every state change and returns its cancel func.
func (d *Dashboard) Subscribe(fn func(State)) (cancel func()) {
	d.subsMu.Lock()
	id := d.nextSub
	d.nextSub++
	d.subs[id] = fn
	d.subsMu.Unlock()
	return func() {
		d.subsMu.Lock()
		delete(d.subs, id)
		d.subsMu.Unlock()
	}
}

// PollStats reports the active poller's counters.
func (d *Dashboard) PollStats() (sensor.Stats, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.poll == nil {
		return sensor.Stats{}, false
	}
	return d.poll.Stats(), true
}

func (d *Dashboard) isMounted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Mounted
}

func (d *Dashboard) update(fn func(*State)) {
	d.mu.Lock()
	fn(&d.state)
	d.mu.Unlock()
	d.publish()
}

// publish hands the latest state to every subscriber. Snapshots are taken
// under pubMu so subscribers never see state go backwards.
func (d *Dashboard) publish() {
	d.pubMu.Lock()
	defer d.pubMu.Unlock()

	s := d.State()
	d.subsMu.Lock()
	subs := make([]func(State), 0, len(d.subs))
	for _, fn := range d.subs {
		subs = append(subs, fn)
	}
	d.subsMu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
}
