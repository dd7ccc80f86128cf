package ui

import (
	"context"
	"image/color"
	"sync"
	"sync/atomic"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/charmbracelet/log"

	"smartfarm-dashboard-go/internal/camera"
	"smartfarm-dashboard-go/internal/config"
	"smartfarm-dashboard-go/internal/preview"
	"smartfarm-dashboard-go/internal/view"
)

var panelBackground = color.RGBA{25, 25, 25, 255}

// API is the backend surface the desktop app needs.
type API interface {
	view.API
	camera.Fetcher
}

// App represents the smart farm dashboard window
type App struct {
	fyneApp fyne.App
	window  fyne.Window
	cfg     *config.Config
	log     *log.Logger

	dash *view.Dashboard
	feed *camera.Feed

	// ctx is cancelled on cleanup and bounds every request the window starts.
	ctx    context.Context
	cancel context.CancelFunc

	upload    *uploadPanel
	gallery   *galleryPanel
	status    *statusPanel
	cam       *cameraPanel
	plantTabs *container.AppTabs
	serverLbl *widget.Label

	// UI state
	renderMu    sync.Mutex
	shownTab    atomic.Int32
	lastNotice  string
	unsubscribe func()
	cleanupOnce sync.Once
}

// NewApp creates the window and wires the dashboard and the camera feed to
// one shared preview manager.
func NewApp(cfg *config.Config, logger *log.Logger, api API) *App {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = log.Default()
	}

	fyneApp := app.New()
	window := fyneApp.NewWindow("Smart Farm Dashboard")
	window.Resize(fyne.NewSize(float32(cfg.WindowWidth), float32(cfg.WindowHeight)))
	window.SetFullScreen(cfg.Fullscreen)

	previews := preview.NewManager()
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		fyneApp: fyneApp,
		window:  window,
		cfg:     cfg,
		log:     logger.WithPrefix("UI"),
		ctx:     ctx,
		cancel:  cancel,
		dash: view.New(view.Options{
			API:            api,
			Logger:         logger,
			SensorInterval: cfg.SensorInterval(),
			Previews:       previews,
		}),
		feed: camera.NewFeed(api, previews, logger, cfg.LatestImageInterval()),
	}
	return a
}

func (a *App) Start() {
	a.setupUI()
	a.unsubscribe = a.dash.Subscribe(a.render)
	a.window.Show()

	go func() {
		if err := a.dash.Mount(a.ctx); err != nil {
			a.log.Warn("initial gallery load failed", "err", err)
		}
	}()
	a.feed.Start(a.cam.show)

	a.fyneApp.Run()
}

func (a *App) setupUI() {
	a.upload = newUploadPanel(a)
	a.gallery = newGalleryPanel(a)
	a.status = newStatusPanel(a)
	a.cam = newCameraPanel(a)

	// Inner tab order follows view.Tab.
	a.plantTabs = container.NewAppTabs(
		container.NewTabItem("Upload", a.upload.content),
		container.NewTabItem("Gallery", a.gallery.content),
	)
	a.plantTabs.OnSelected = func(*container.TabItem) {
		idx := a.plantTabs.SelectedIndex()
		if int32(idx) == a.shownTab.Load() {
			return
		}
		a.shownTab.Store(int32(idx))
		a.dash.SelectTab(view.Tab(idx))
	}

	pages := container.NewAppTabs(
		container.NewTabItem("Plant Check", a.plantTabs),
		container.NewTabItem("Live Status", a.status.content),
		container.NewTabItem("Camera", a.cam.content),
	)
	pages.SetTabLocation(container.TabLocationLeading)

	a.serverLbl = widget.NewLabel("Server: checking...")
	a.window.SetContent(container.NewBorder(nil, a.serverLbl, nil, nil, pages))
}

// render runs for every dashboard state change, on whichever goroutine
// published it. It must not call back into the dashboard synchronously.
func (a *App) render(st view.State) {
	a.renderMu.Lock()
	defer a.renderMu.Unlock()

	a.upload.render(st)
	a.gallery.render(st)
	a.status.render(st)

	if int32(st.Tab) != a.shownTab.Load() {
		a.shownTab.Store(int32(st.Tab))
		a.plantTabs.SelectIndex(int(st.Tab))
	}

	switch {
	case !st.Mounted:
		a.serverLbl.SetText("Server: disconnected")
	case st.ServerOnline:
		a.serverLbl.SetText("Server: online")
	default:
		a.serverLbl.SetText("Server: offline")
	}

	switch {
	case st.Notice == "":
		a.lastNotice = ""
	case st.Notice != a.lastNotice:
		a.lastNotice = st.Notice
		dialog.ShowInformation("Notice", st.Notice, a.window)
		go a.dash.ClearNotice()
	}
}

// cleanup stops all background work and quits
func (a *App) cleanup() {
	a.cleanupOnce.Do(func() {
		a.log.Info("cleanup: stopping background work")

		a.cancel()
		if a.unsubscribe != nil {
			a.unsubscribe()
		}
		a.feed.Stop()
		a.dash.Teardown()

		a.log.Info("cleanup: complete, exiting")
		a.fyneApp.Quit()
	})
}

// Cleanup is exported for external use (e.g., from main)
func (a *App) Cleanup() {
	a.cleanup()
}
