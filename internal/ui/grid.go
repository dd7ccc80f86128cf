package ui

import (
	"fyne.io/fyne/v2"

	"smartfarm-dashboard-go/internal/helpers"
)

// fillGridLayout splits the available space into equal cells, one per
// object, using the tile grid shape for the current object count.
type fillGridLayout struct {
	minCell fyne.Size
}

func newFillGridLayout() *fillGridLayout {
	return &fillGridLayout{minCell: fyne.NewSize(140, 90)}
}

func (g *fillGridLayout) MinSize(objects []fyne.CanvasObject) fyne.Size {
	rows, cols := helpers.TileGrid(len(objects))
	return fyne.NewSize(g.minCell.Width*float32(cols), g.minCell.Height*float32(rows))
}

func (g *fillGridLayout) Layout(objects []fyne.CanvasObject, size fyne.Size) {
	if len(objects) == 0 {
		return
	}

	rows, cols := helpers.TileGrid(len(objects))
	cellWidth := size.Width / float32(cols)
	cellHeight := size.Height / float32(rows)

	for i, obj := range objects {
		row, col := helpers.TileCell(i, cols)
		obj.Move(fyne.NewPos(float32(col)*cellWidth, float32(row)*cellHeight))
		obj.Resize(fyne.NewSize(cellWidth, cellHeight))
	}
}
