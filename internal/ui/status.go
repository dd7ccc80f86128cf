package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"smartfarm-dashboard-go/internal/trigger"
	"smartfarm-dashboard-go/internal/view"
)

// statusPanel shows the live sensor readings as a grid of tiles.
type statusPanel struct {
	app *App

	grid        *fyne.Container
	cards       map[string]*widget.Card
	order       []string
	updated     *widget.Label
	resampleBtn *widget.Button
	content     fyne.CanvasObject
}

func newStatusPanel(a *App) *statusPanel {
	p := &statusPanel{
		app:   a,
		grid:  container.New(newFillGridLayout()),
		cards: make(map[string]*widget.Card),
	}
	p.updated = widget.NewLabel("Waiting for sensor data...")
	p.resampleBtn = widget.NewButton("Read sensors now", p.resample)

	p.content = container.NewBorder(
		container.NewHBox(p.resampleBtn, p.updated),
		nil, nil, nil,
		p.grid,
	)
	p.setTiles(sensorTiles(nil))
	return p
}

func (p *statusPanel) resample() {
	p.resampleBtn.Disable()
	go func() {
		defer p.resampleBtn.Enable()
		if _, err := p.app.dash.Trigger(p.app.ctx, trigger.Resample); err != nil {
			p.app.log.Warn("resample trigger failed", "err", err)
		}
	}()
}

// setTiles rebuilds the grid when the set of readings changes and only
// updates values otherwise.
func (p *statusPanel) setTiles(tiles []tile) {
	same := len(tiles) == len(p.order)
	for i := 0; same && i < len(tiles); i++ {
		same = tiles[i].Key == p.order[i]
	}

	if !same {
		p.order = p.order[:0]
		p.cards = make(map[string]*widget.Card, len(tiles))
		objects := make([]fyne.CanvasObject, 0, len(tiles))
		for _, t := range tiles {
			value := widget.NewLabelWithStyle(t.Value, fyne.TextAlignCenter, fyne.TextStyle{Bold: true})
			card := widget.NewCard(t.Title, "", value)
			p.cards[t.Key] = card
			p.order = append(p.order, t.Key)
			objects = append(objects, card)
		}
		p.grid.Objects = objects
		p.grid.Refresh()
		return
	}

	for _, t := range tiles {
		if label, ok := p.cards[t.Key].Content.(*widget.Label); ok {
			label.SetText(t.Value)
		}
	}
}

func (p *statusPanel) render(st view.State) {
	p.setTiles(sensorTiles(st.Sensor))
	if !st.SensorUpdated.IsZero() {
		p.updated.SetText("Updated " + st.SensorUpdated.Format("15:04:05"))
	}
}
