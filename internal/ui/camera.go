package ui

import (
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"smartfarm-dashboard-go/internal/preview"
)

// cameraPanel displays the latest farm camera image
type cameraPanel struct {
	app *App

	image      *canvas.Image
	status     *widget.Label
	refreshBtn *widget.Button
	saveBtn    *widget.Button
	content    fyne.CanvasObject

	mu    sync.Mutex
	shown string
}

func newCameraPanel(a *App) *cameraPanel {
	p := &cameraPanel{app: a}

	p.image = canvas.NewImageFromResource(nil)
	p.image.FillMode = canvas.ImageFillContain
	p.image.SetMinSize(fyne.NewSize(320, 240))

	p.status = widget.NewLabel("No camera image yet")
	p.refreshBtn = widget.NewButton("Refresh", p.refresh)
	p.saveBtn = widget.NewButton("Save", p.save)

	bg := canvas.NewRectangle(panelBackground)
	p.content = container.NewBorder(
		container.NewHBox(p.refreshBtn, p.saveBtn, p.status),
		nil, nil, nil,
		container.NewStack(bg, p.image),
	)
	return p
}

func (p *cameraPanel) refresh() {
	go func() {
		h, err := p.app.feed.Refresh(p.app.ctx)
		if err != nil {
			p.app.log.Warn("camera refresh failed", "err", err)
			p.status.SetText("Could not load the latest image")
			return
		}
		p.show(h)
	}()
}

func (p *cameraPanel) save() {
	path, err := p.app.feed.Save(p.app.cfg.SaveDir)
	if err != nil {
		dialog.ShowError(err, p.app.window)
		return
	}
	p.app.log.Info("camera image saved", "path", path)
	dialog.ShowInformation("Saved", "Image saved to "+path, p.app.window)
}

// show draws h. It runs on the feed goroutine as well as after a manual
// refresh.
func (p *cameraPanel) show(h *preview.Handle) {
	if h == nil {
		return
	}
	data, err := h.Bytes()
	if err != nil {
		return
	}

	p.mu.Lock()
	if h.URL() == p.shown {
		p.mu.Unlock()
		return
	}
	p.shown = h.URL()
	p.mu.Unlock()

	p.image.Resource = fyne.NewStaticResource(h.Name(), data)
	p.image.Refresh()
	p.status.SetText("Updated " + p.app.feed.FetchedAt().Format("15:04:05"))
}
