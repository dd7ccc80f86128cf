package ui

import (
	"errors"
	"io"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"smartfarm-dashboard-go/internal/imagesource"
	"smartfarm-dashboard-go/internal/preview"
	"smartfarm-dashboard-go/internal/view"
)

// uploadPanel is the "Upload" half of the plant check page: choose an image,
// preview it and run the analysis.
type uploadPanel struct {
	app *App

	image       *canvas.Image
	placeholder *widget.Label
	sourceLabel *widget.Label
	resultLabel *widget.Label
	progress    *widget.ProgressBarInfinite
	chooseBtn   *widget.Button
	analyzeBtn  *widget.Button
	resetBtn    *widget.Button

	// shown is the URL of the handle currently drawn.
	shown   string
	content fyne.CanvasObject
}

func newUploadPanel(a *App) *uploadPanel {
	p := &uploadPanel{app: a}

	p.image = canvas.NewImageFromResource(nil)
	p.image.FillMode = canvas.ImageFillContain
	p.image.SetMinSize(fyne.NewSize(320, 240))
	p.image.Hide()
	p.placeholder = widget.NewLabelWithStyle("No image selected", fyne.TextAlignCenter, fyne.TextStyle{Italic: true})

	p.sourceLabel = widget.NewLabel("")
	p.resultLabel = widget.NewLabelWithStyle("", fyne.TextAlignCenter, fyne.TextStyle{Bold: true})
	p.resultLabel.Wrapping = fyne.TextWrapWord
	p.progress = widget.NewProgressBarInfinite()
	p.progress.Stop()
	p.progress.Hide()

	p.chooseBtn = widget.NewButton("Choose image", p.choose)
	p.analyzeBtn = widget.NewButton("Analyze", p.analyze)
	p.analyzeBtn.Importance = widget.HighImportance
	p.resetBtn = widget.NewButton("Reset", func() { a.dash.Reset() })

	buttons := container.NewHBox(p.chooseBtn, p.analyzeBtn, p.resetBtn)
	previewArea := container.NewStack(container.NewCenter(p.placeholder), p.image)
	p.content = container.NewBorder(
		container.NewVBox(buttons, p.sourceLabel),
		container.NewVBox(p.progress, p.resultLabel),
		nil, nil,
		previewArea,
	)
	return p
}

func (p *uploadPanel) choose() {
	fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, p.app.window)
			return
		}
		if rc == nil {
			return // cancelled
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			dialog.ShowError(err, p.app.window)
			return
		}
		local, err := imagesource.LocalFromBytes(rc.URI().Name(), data)
		if err != nil {
			dialog.ShowError(err, p.app.window)
			return
		}
		if err := p.app.dash.PickLocal(local); err != nil {
			p.app.log.Warn("could not select local image", "file", local.Filename, "err", err)
		}
	}, p.app.window)
	fd.SetFilter(storage.NewExtensionFileFilter(imagesource.AllowedExtensions))
	fd.Show()
}

func (p *uploadPanel) analyze() {
	go func() {
		_, err := p.app.dash.Analyze(p.app.ctx)
		if errors.Is(err, view.ErrSubmissionPending) {
			p.app.log.Debug("analysis already running")
		}
	}()
}

func (p *uploadPanel) render(st view.State) {
	p.renderPreview(st.Preview)

	switch src := st.Source.(type) {
	case nil:
		p.sourceLabel.SetText("No image selected")
	case imagesource.Remote:
		p.sourceLabel.SetText("Gallery: " + src.Filename)
	default:
		p.sourceLabel.SetText("File: " + src.Name())
	}

	switch st.Result.Status {
	case view.ResultPending:
		p.resultLabel.SetText("Analyzing...")
	case view.ResultSuccess, view.ResultFailure:
		p.resultLabel.SetText(st.Result.Text)
	default:
		p.resultLabel.SetText("")
	}

	if st.Loading {
		p.analyzeBtn.Disable()
		p.progress.Show()
		p.progress.Start()
	} else {
		p.analyzeBtn.Enable()
		p.progress.Stop()
		p.progress.Hide()
	}
}

func (p *uploadPanel) renderPreview(h *preview.Handle) {
	if h == nil {
		if p.shown != "" {
			p.shown = ""
			p.image.Resource = nil
			p.image.Hide()
			p.placeholder.Show()
		}
		return
	}
	if h.URL() == p.shown {
		return
	}
	data, err := h.Bytes()
	if err != nil {
		// Replaced before we got to draw it; the next state carries the new one.
		return
	}
	p.shown = h.URL()
	p.image.Resource = fyne.NewStaticResource(h.Name(), data)
	p.placeholder.Hide()
	p.image.Show()
	p.image.Refresh()
}
