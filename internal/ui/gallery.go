package ui

import (
	"slices"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"smartfarm-dashboard-go/internal/farmapi"
	"smartfarm-dashboard-go/internal/trigger"
	"smartfarm-dashboard-go/internal/view"
)

// galleryPanel lists captured images. Selecting one makes it the analysis
// source and jumps back to the upload tab.
type galleryPanel struct {
	app *App

	mu      sync.RWMutex
	entries []farmapi.Upload

	list       *widget.List
	errLabel   *widget.Label
	captureBtn *widget.Button
	refreshBtn *widget.Button
	content    fyne.CanvasObject
}

func newGalleryPanel(a *App) *galleryPanel {
	p := &galleryPanel{app: a}

	p.list = widget.NewList(
		func() int {
			p.mu.RLock()
			defer p.mu.RUnlock()
			return len(p.entries)
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("capture_0000-00-00.jpg  0000-00-00 00:00:00")
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			p.mu.RLock()
			defer p.mu.RUnlock()
			if id < len(p.entries) {
				obj.(*widget.Label).SetText(galleryLabel(p.entries[id]))
			}
		},
	)
	p.list.OnSelected = p.selected

	p.errLabel = widget.NewLabel("")
	p.errLabel.Hide()

	p.captureBtn = widget.NewButton("Capture", p.capture)
	p.captureBtn.Importance = widget.HighImportance
	p.refreshBtn = widget.NewButton("Refresh", func() {
		go p.app.dash.RefreshGallery(p.app.ctx)
	})

	p.content = container.NewBorder(
		container.NewHBox(p.captureBtn, p.refreshBtn),
		p.errLabel,
		nil, nil,
		p.list,
	)
	return p
}

func (p *galleryPanel) selected(id widget.ListItemID) {
	p.mu.RLock()
	if id < 0 || id >= len(p.entries) {
		p.mu.RUnlock()
		return
	}
	entry := p.entries[id]
	p.mu.RUnlock()

	p.list.UnselectAll()
	if err := p.app.dash.SelectGalleryEntry(p.app.ctx, entry); err != nil {
		p.app.log.Warn("could not select gallery image", "file", entry.Filename, "err", err)
	}
}

// capture asks the camera for a photo. The gallery reloads on its own once
// the follow-up fires.
func (p *galleryPanel) capture() {
	p.captureBtn.Disable()
	go func() {
		defer p.captureBtn.Enable()
		if _, err := p.app.dash.Trigger(p.app.ctx, trigger.Capture); err != nil {
			p.app.log.Warn("capture trigger failed", "err", err)
		}
	}()
}

func (p *galleryPanel) render(st view.State) {
	if st.GalleryError != "" {
		p.errLabel.SetText(st.GalleryError)
		p.errLabel.Show()
	} else {
		p.errLabel.Hide()
	}

	p.mu.Lock()
	changed := !slices.Equal(p.entries, st.Gallery)
	if changed {
		p.entries = st.Gallery
	}
	p.mu.Unlock()
	if changed {
		p.list.Refresh()
	}
}
